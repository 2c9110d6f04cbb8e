package sku

import (
	"context"
	"fmt"
	"strings"

	"github.com/fekuna/omnipos-catalog-gate/internal/model"
)

// Catalog answers the cross-product questions the resolver needs.
type Catalog interface {
	FindVariantsBySKU(ctx context.Context, sku string) ([]model.VariantRef, error)
	ProductTaxRate(ctx context.Context, productID string) (string, error)
}

// MainItem is the resolved zero-suffixed variant of a group.
type MainItem struct {
	VariantID string `json:"variant_id"`
	SKU       string `json:"sku"`
	ProductID string `json:"product_id"`
	Local     bool   `json:"local"`
	TaxRate   string `json:"tax_rate"`
}

type Group struct {
	Key          string
	Pattern      bool
	ExpectedMain string
	Main         *MainItem
	Members      []model.ProductVariant
}

type Resolution struct {
	Groups         []*Group
	MainItemHolder bool
	Duplicates     []string
	MissingMains   []string
	TaxMismatches  []model.TaxMismatch

	byVariant map[string]*Group
}

// GroupOf returns the group a variant was placed in, or nil for variants without SKU.
func (r *Resolution) GroupOf(variantID string) *Group {
	return r.byVariant[variantID]
}

// PatternGroups returns only the groups built from pattern-matched SKUs.
func (r *Resolution) PatternGroups() []*Group {
	var out []*Group
	for _, g := range r.Groups {
		if g.Pattern {
			out = append(out, g)
		}
	}
	return out
}

// Resolver groups a product's variants by SKU and resolves each group's main item.
// SKU and tax lookups are memoized for the lifetime of the resolver (one run).
type Resolver struct {
	catalog Catalog
	skus    *Memo[[]model.VariantRef]
	taxes   *Memo[string]
}

func NewResolver(catalog Catalog, store Store) *Resolver {
	return &Resolver{
		catalog: catalog,
		skus:    NewMemo[[]model.VariantRef](store, "sku:"),
		taxes:   NewMemo[string](store, "tax:"),
	}
}

// Lookup returns every catalog variant whose SKU equals sku, ignoring case.
func (r *Resolver) Lookup(ctx context.Context, sku string) ([]model.VariantRef, error) {
	key := normalize(sku)
	refs, err := r.skus.GetOrLoad(ctx, key, func(ctx context.Context) ([]model.VariantRef, error) {
		refs, err := r.catalog.FindVariantsBySKU(ctx, strings.TrimSpace(sku))
		if err != nil {
			return nil, fmt.Errorf("lookup sku %s: %w", sku, err)
		}
		if refs == nil {
			refs = []model.VariantRef{}
		}
		return refs, nil
	})
	if err != nil {
		return nil, err
	}
	exact := refs[:0:0]
	for _, ref := range refs {
		if normalize(ref.SKU) == key {
			exact = append(exact, ref)
		}
	}
	return exact, nil
}

func (r *Resolver) taxRate(ctx context.Context, productID string) (string, error) {
	return r.taxes.GetOrLoad(ctx, productID, func(ctx context.Context) (string, error) {
		rate, err := r.catalog.ProductTaxRate(ctx, productID)
		if err != nil {
			return "", fmt.Errorf("tax rate of %s: %w", productID, err)
		}
		return rate, nil
	})
}

func (r *Resolver) Resolve(ctx context.Context, p *model.Product) (*Resolution, error) {
	res := &Resolution{byVariant: make(map[string]*Group)}
	index := make(map[string]*Group)
	local := make(map[string][]model.ProductVariant)

	matched, allZero := 0, true
	for _, v := range p.Variants {
		s := strings.TrimSpace(v.SKU)
		if s == "" {
			continue
		}
		local[normalize(s)] = append(local[normalize(s)], v)

		var key string
		m, ok := Parse(s)
		if ok {
			matched++
			if !m.IsMain() {
				allZero = false
			}
			key = "p:" + m.GroupKey()
		} else {
			key = "s:" + normalize(s)
		}

		g, exists := index[key]
		if !exists {
			g = &Group{Key: key, Pattern: ok}
			if ok {
				g.ExpectedMain = m.ExpectedMain()
			} else {
				g.ExpectedMain = s
				g.Main = &MainItem{VariantID: v.ID, SKU: s, ProductID: p.ID, Local: true, TaxRate: p.TaxRate}
			}
			index[key] = g
			res.Groups = append(res.Groups, g)
		}
		g.Members = append(g.Members, v)
		res.byVariant[v.ID] = g
	}
	res.MainItemHolder = matched > 0 && allZero

	for _, g := range res.Groups {
		if !g.Pattern {
			continue
		}
		if err := r.resolveMain(ctx, p, g, local); err != nil {
			return nil, err
		}
		if g.Main == nil {
			res.MissingMains = append(res.MissingMains, g.ExpectedMain)
			continue
		}
		if !g.Main.Local && g.Main.TaxRate != p.TaxRate {
			res.TaxMismatches = append(res.TaxMismatches, model.TaxMismatch{
				MainSKU:       g.Main.SKU,
				MainProductID: g.Main.ProductID,
				MainTaxRate:   g.Main.TaxRate,
				TaxRate:       p.TaxRate,
			})
		}
	}

	dups, err := r.duplicates(ctx, p, local)
	if err != nil {
		return nil, err
	}
	res.Duplicates = dups
	return res, nil
}

func (r *Resolver) resolveMain(ctx context.Context, p *model.Product, g *Group, local map[string][]model.ProductVariant) error {
	if vs, ok := local[normalize(g.ExpectedMain)]; ok {
		v := vs[0]
		g.Main = &MainItem{VariantID: v.ID, SKU: strings.TrimSpace(v.SKU), ProductID: p.ID, Local: true, TaxRate: p.TaxRate}
		return nil
	}
	// A zero-padded member such as X-00 is the group's main too.
	for _, v := range g.Members {
		if m, ok := Parse(v.SKU); ok && m.IsMain() {
			g.Main = &MainItem{VariantID: v.ID, SKU: m.SKU, ProductID: p.ID, Local: true, TaxRate: p.TaxRate}
			return nil
		}
	}
	refs, err := r.Lookup(ctx, g.ExpectedMain)
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		return nil
	}
	ref := refs[0]
	if ref.ProductID == p.ID {
		g.Main = &MainItem{VariantID: ref.ID, SKU: ref.SKU, ProductID: p.ID, Local: true, TaxRate: p.TaxRate}
		return nil
	}
	rate, err := r.taxRate(ctx, ref.ProductID)
	if err != nil {
		return err
	}
	g.Main = &MainItem{VariantID: ref.ID, SKU: ref.SKU, ProductID: ref.ProductID, TaxRate: rate}
	return nil
}

// duplicates lists SKUs used by more than one variant anywhere in the catalog.
func (r *Resolver) duplicates(ctx context.Context, p *model.Product, local map[string][]model.ProductVariant) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	for _, v := range p.Variants {
		key := normalize(v.SKU)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		if len(local[key]) > 1 {
			out = append(out, strings.TrimSpace(v.SKU))
			continue
		}
		refs, err := r.Lookup(ctx, v.SKU)
		if err != nil {
			return nil, err
		}
		for _, ref := range refs {
			if ref.ProductID != p.ID {
				out = append(out, strings.TrimSpace(v.SKU))
				break
			}
		}
	}
	return out, nil
}
