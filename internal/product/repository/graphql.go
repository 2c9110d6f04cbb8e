package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/fekuna/omnipos-catalog-gate/config"
	"github.com/fekuna/omnipos-catalog-gate/internal/gql"
	"github.com/fekuna/omnipos-catalog-gate/internal/model"
	"github.com/fekuna/omnipos-catalog-gate/internal/product/dto"
)

type metafield struct {
	Value string `json:"value"`
}

func (m *metafield) value() string {
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m.Value)
}

type variantNode struct {
	ID              string                 `json:"id"`
	Title           string                 `json:"title"`
	SKU             string                 `json:"sku"`
	Price           string                 `json:"price"`
	SelectedOptions []model.SelectedOption `json:"selectedOptions"`
	InventoryItem   struct {
		ID                   string `json:"id"`
		HarmonizedSystemCode string `json:"harmonizedSystemCode"`
		CountryCodeOfOrigin  string `json:"countryCodeOfOrigin"`
	} `json:"inventoryItem"`
}

func (v variantNode) toModel() model.ProductVariant {
	return model.ProductVariant{
		ID:              v.ID,
		Title:           v.Title,
		SKU:             v.SKU,
		Price:           v.Price,
		SelectedOptions: v.SelectedOptions,
		InventoryItem: model.InventoryItem{
			ID:              v.InventoryItem.ID,
			HarmonizedCode:  v.InventoryItem.HarmonizedSystemCode,
			CountryOfOrigin: v.InventoryItem.CountryCodeOfOrigin,
		},
	}
}

type productNode struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Status          string `json:"status"`
	DescriptionHTML string `json:"descriptionHtml"`
	MediaCount      struct {
		Count int `json:"count"`
	} `json:"mediaCount"`
	Options []struct {
		Name            string `json:"name"`
		LinkedMetafield *struct {
			Namespace string `json:"namespace"`
			Key       string `json:"key"`
		} `json:"linkedMetafield"`
	} `json:"options"`
	TaxRate        *metafield                       `json:"taxRate"`
	PreOrder       *metafield                       `json:"preOrder"`
	Origin         *metafield                       `json:"origin"`
	PendingChanges *metafield                       `json:"pendingChanges"`
	MainConfirmed  *metafield                       `json:"mainConfirmed"`
	Collections    gql.Connection[model.Collection] `json:"collections"`
	Variants       gql.Connection[variantNode]      `json:"variants"`
}

// GraphQLRepository reads and writes catalog data through the Admin API.
type GraphQLRepository struct {
	client     gql.Executor
	metafields config.Metafields
	pageSize   int
}

func NewGraphQLRepository(client gql.Executor, metafields config.Metafields, pageSize int) *GraphQLRepository {
	if pageSize <= 0 {
		pageSize = 25
	}
	return &GraphQLRepository{client: client, metafields: metafields, pageSize: pageSize}
}

func (r *GraphQLRepository) FlaggedProducts(ctx context.Context, cursor string) (gql.Page[dto.ProductHeader], error) {
	ns, key := splitKey(r.metafields.PendingChanges)
	vars := map[string]any{
		"first":      r.pageSize,
		"query":      fmt.Sprintf("metafields.%s.%s:*", ns, key),
		"pendingNs":  ns,
		"pendingKey": key,
	}
	if cursor != "" {
		vars["after"] = cursor
	}
	var out struct {
		Products gql.Connection[struct {
			ID             string     `json:"id"`
			Title          string     `json:"title"`
			Status         string     `json:"status"`
			PendingChanges *metafield `json:"pendingChanges"`
		}] `json:"products"`
	}
	if err := r.client.Do(ctx, flaggedProductsQuery, vars, &out); err != nil {
		return gql.Page[dto.ProductHeader]{}, fmt.Errorf("scan flagged products: %w", err)
	}

	page := gql.Page[dto.ProductHeader]{
		HasNextPage: out.Products.PageInfo.HasNextPage,
		EndCursor:   out.Products.PageInfo.EndCursor,
	}
	for _, n := range out.Products.Nodes {
		page.Nodes = append(page.Nodes, dto.ProductHeader{
			ID:             n.ID,
			Title:          n.Title,
			Status:         model.ProductStatus(n.Status),
			PendingChanges: parseList(n.PendingChanges.value()),
		})
	}
	return page, nil
}

// FindByID loads a product with every variant and collection. It returns nil, nil when the product is gone.
func (r *GraphQLRepository) FindByID(ctx context.Context, id string) (*model.Product, error) {
	vars := map[string]any{"id": id, "first": r.pageSize}
	for prefix, ref := range map[string]string{
		"tax":      r.metafields.TaxRate,
		"preOrder": r.metafields.PreOrder,
		"origin":   r.metafields.CountryOfOrigin,
		"pending":  r.metafields.PendingChanges,
		"main":     r.metafields.MainItemConfirmed,
	} {
		ns, key := splitKey(ref)
		vars[prefix+"Ns"] = ns
		vars[prefix+"Key"] = key
	}

	var out struct {
		Product *productNode `json:"product"`
	}
	if err := r.client.Do(ctx, productQuery, vars, &out); err != nil {
		return nil, fmt.Errorf("fetch product %s: %w", id, err)
	}
	if out.Product == nil {
		return nil, nil
	}
	n := out.Product

	variants, err := gql.Collect(ctx, n.Variants.Page(), func(ctx context.Context, cursor string) (gql.Page[variantNode], error) {
		var page struct {
			Product struct {
				Variants gql.Connection[variantNode] `json:"variants"`
			} `json:"product"`
		}
		err := r.client.Do(ctx, productVariantsQuery, map[string]any{"id": id, "first": r.pageSize, "after": cursor}, &page)
		if err != nil {
			return gql.Page[variantNode]{}, fmt.Errorf("fetch variants of %s: %w", id, err)
		}
		return page.Product.Variants.Page(), nil
	})
	if err != nil {
		return nil, err
	}

	collections, err := gql.Collect(ctx, n.Collections.Page(), func(ctx context.Context, cursor string) (gql.Page[model.Collection], error) {
		var page struct {
			Product struct {
				Collections gql.Connection[model.Collection] `json:"collections"`
			} `json:"product"`
		}
		err := r.client.Do(ctx, productCollectionsQuery, map[string]any{"id": id, "first": r.pageSize, "after": cursor}, &page)
		if err != nil {
			return gql.Page[model.Collection]{}, fmt.Errorf("fetch collections of %s: %w", id, err)
		}
		return page.Product.Collections.Page(), nil
	})
	if err != nil {
		return nil, err
	}

	p := &model.Product{
		ID:              n.ID,
		Title:           n.Title,
		Status:          model.ProductStatus(n.Status),
		DescriptionHTML: n.DescriptionHTML,
		ImageCount:      n.MediaCount.Count,
		Collections:     collections,
		TaxRate:         n.TaxRate.value(),
		PreOrder:        n.PreOrder.value(),
		CountryOfOrigin: n.Origin.value(),
		PendingChanges:  parseList(n.PendingChanges.value()),
	}
	p.MainItemConfirmed, _ = strconv.ParseBool(n.MainConfirmed.value())
	for _, o := range n.Options {
		opt := model.ProductOption{Name: o.Name}
		if o.LinkedMetafield != nil {
			opt.LinkedMetafield = o.LinkedMetafield.Namespace + "." + o.LinkedMetafield.Key
		}
		p.Options = append(p.Options, opt)
	}
	for _, v := range variants {
		p.Variants = append(p.Variants, v.toModel())
	}
	return p, nil
}

// FindVariantsBySKU runs the platform's SKU search. Hits may be fuzzy; callers filter for exact matches.
func (r *GraphQLRepository) FindVariantsBySKU(ctx context.Context, sku string) ([]model.VariantRef, error) {
	type node struct {
		ID      string `json:"id"`
		SKU     string `json:"sku"`
		Product struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"product"`
	}
	query := fmt.Sprintf("sku:%s", strconv.Quote(sku))
	nodes, err := gql.CollectAll(ctx, func(ctx context.Context, cursor string) (gql.Page[node], error) {
		vars := map[string]any{"first": r.pageSize, "query": query}
		if cursor != "" {
			vars["after"] = cursor
		}
		var out struct {
			ProductVariants gql.Connection[node] `json:"productVariants"`
		}
		if err := r.client.Do(ctx, variantsBySKUQuery, vars, &out); err != nil {
			return gql.Page[node]{}, fmt.Errorf("find variants by sku %s: %w", sku, err)
		}
		return out.ProductVariants.Page(), nil
	})
	if err != nil {
		return nil, err
	}
	refs := make([]model.VariantRef, 0, len(nodes))
	for _, n := range nodes {
		refs = append(refs, model.VariantRef{ID: n.ID, SKU: n.SKU, ProductID: n.Product.ID, ProductTitle: n.Product.Title})
	}
	return refs, nil
}

func (r *GraphQLRepository) ProductTaxRate(ctx context.Context, productID string) (string, error) {
	ns, key := splitKey(r.metafields.TaxRate)
	var out struct {
		Product *struct {
			Metafield *metafield `json:"metafield"`
		} `json:"product"`
	}
	if err := r.client.Do(ctx, productTaxQuery, map[string]any{"id": productID, "ns": ns, "key": key}, &out); err != nil {
		return "", fmt.Errorf("fetch tax rate of %s: %w", productID, err)
	}
	if out.Product == nil {
		return "", nil
	}
	return out.Product.Metafield.value(), nil
}

func (r *GraphQLRepository) Publications(ctx context.Context) ([]model.Publication, error) {
	return gql.CollectAll(ctx, func(ctx context.Context, cursor string) (gql.Page[model.Publication], error) {
		vars := map[string]any{"first": r.pageSize}
		if cursor != "" {
			vars["after"] = cursor
		}
		var out struct {
			Publications gql.Connection[model.Publication] `json:"publications"`
		}
		if err := r.client.Do(ctx, publicationsQuery, vars, &out); err != nil {
			return gql.Page[model.Publication]{}, fmt.Errorf("fetch publications: %w", err)
		}
		return out.Publications.Page(), nil
	})
}

// CatalogPublication returns the publication id behind the catalog with the given title.
func (r *GraphQLRepository) CatalogPublication(ctx context.Context, catalogTitle string) (string, error) {
	var out struct {
		Catalogs struct {
			Nodes []struct {
				ID          string `json:"id"`
				Title       string `json:"title"`
				Publication *struct {
					ID string `json:"id"`
				} `json:"publication"`
			} `json:"nodes"`
		} `json:"catalogs"`
	}
	query := fmt.Sprintf("title:%s", strconv.Quote(catalogTitle))
	if err := r.client.Do(ctx, catalogsQuery, map[string]any{"query": query}, &out); err != nil {
		return "", fmt.Errorf("fetch catalog %q: %w", catalogTitle, err)
	}
	for _, c := range out.Catalogs.Nodes {
		if strings.EqualFold(strings.TrimSpace(c.Title), strings.TrimSpace(catalogTitle)) && c.Publication != nil {
			return c.Publication.ID, nil
		}
	}
	return "", fmt.Errorf("catalog %q not found or has no publication", catalogTitle)
}

// Metaobject returns nil, nil when no entry has the handle.
func (r *GraphQLRepository) Metaobject(ctx context.Context, objectType, handle string) (*model.Metaobject, error) {
	var out struct {
		Metaobject *struct {
			ID     string `json:"id"`
			Type   string `json:"type"`
			Handle string `json:"handle"`
			Fields []struct {
				Key   string `json:"key"`
				Value string `json:"value"`
			} `json:"fields"`
		} `json:"metaobjectByHandle"`
	}
	if err := r.client.Do(ctx, metaobjectQuery, map[string]any{"type": objectType, "handle": handle}, &out); err != nil {
		return nil, fmt.Errorf("fetch metaobject %s/%s: %w", objectType, handle, err)
	}
	if out.Metaobject == nil {
		return nil, nil
	}
	mo := &model.Metaobject{
		ID:     out.Metaobject.ID,
		Type:   out.Metaobject.Type,
		Handle: out.Metaobject.Handle,
		Fields: make(map[string]string, len(out.Metaobject.Fields)),
	}
	for _, f := range out.Metaobject.Fields {
		mo.Fields[f.Key] = f.Value
	}
	return mo, nil
}

func (r *GraphQLRepository) SetStatus(ctx context.Context, id string, status model.ProductStatus) error {
	var out struct {
		Result struct {
			UserErrors []gql.UserError `json:"userErrors"`
		} `json:"productUpdate"`
	}
	vars := map[string]any{"product": map[string]any{"id": id, "status": string(status)}}
	if err := r.client.Do(ctx, productUpdateMutation, vars, &out); err != nil {
		return fmt.Errorf("set status of %s: %w", id, err)
	}
	return gql.CheckUserErrors("productUpdate", out.Result.UserErrors)
}

// SetPendingChanges overwrites the whole list. There is no compare-and-set: the last writer wins.
func (r *GraphQLRepository) SetPendingChanges(ctx context.Context, id string, labels []string) error {
	if labels == nil {
		labels = []string{}
	}
	value, err := json.Marshal(labels)
	if err != nil {
		return fmt.Errorf("encode pending changes: %w", err)
	}
	return r.setMetafield(ctx, id, r.metafields.PendingChanges, "list.single_line_text_field", string(value))
}

func (r *GraphQLRepository) SetMainItemConfirmed(ctx context.Context, id string, confirmed bool) error {
	return r.setMetafield(ctx, id, r.metafields.MainItemConfirmed, "boolean", strconv.FormatBool(confirmed))
}

func (r *GraphQLRepository) setMetafield(ctx context.Context, ownerID, ref, typ, value string) error {
	ns, key := splitKey(ref)
	vars := map[string]any{
		"metafields": []map[string]any{{
			"ownerId":   ownerID,
			"namespace": ns,
			"key":       key,
			"type":      typ,
			"value":     value,
		}},
	}
	var out struct {
		Result struct {
			UserErrors []gql.UserError `json:"userErrors"`
		} `json:"metafieldsSet"`
	}
	if err := r.client.Do(ctx, metafieldsSetMutation, vars, &out); err != nil {
		return fmt.Errorf("set %s on %s: %w", ref, ownerID, err)
	}
	return gql.CheckUserErrors("metafieldsSet", out.Result.UserErrors)
}

func (r *GraphQLRepository) PublishTo(ctx context.Context, id string, publicationIDs []string) error {
	if len(publicationIDs) == 0 {
		return nil
	}
	input := make([]map[string]any, 0, len(publicationIDs))
	for _, pid := range publicationIDs {
		input = append(input, map[string]any{"publicationId": pid})
	}
	var out struct {
		Result struct {
			UserErrors []gql.UserError `json:"userErrors"`
		} `json:"publishablePublish"`
	}
	if err := r.client.Do(ctx, publishMutation, map[string]any{"id": id, "input": input}, &out); err != nil {
		return fmt.Errorf("publish %s: %w", id, err)
	}
	return gql.CheckUserErrors("publishablePublish", out.Result.UserErrors)
}

func splitKey(ref string) (string, string) {
	ns, key, _ := strings.Cut(ref, ".")
	return ns, key
}

// parseList decodes a list metafield value. Legacy single values become a one-element list.
func parseList(value string) []string {
	if value == "" {
		return nil
	}
	if strings.HasPrefix(value, "[") {
		var out []string
		if err := json.Unmarshal([]byte(value), &out); err == nil {
			return out
		}
	}
	return []string{value}
}
