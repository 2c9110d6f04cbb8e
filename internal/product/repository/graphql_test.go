package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/fekuna/omnipos-catalog-gate/config"
	"github.com/fekuna/omnipos-catalog-gate/internal/gql"
	"github.com/fekuna/omnipos-catalog-gate/internal/model"
)

type call struct {
	query string
	vars  map[string]any
}

type scripted struct {
	calls     []call
	responses []string
}

func (s *scripted) Do(_ context.Context, query string, vars map[string]any, out any) error {
	s.calls = append(s.calls, call{query: query, vars: vars})
	if len(s.responses) == 0 {
		return fmt.Errorf("unexpected call %d", len(s.calls))
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return json.Unmarshal([]byte(resp), out)
}

var metafields = config.Metafields{
	TaxRate:           "custom.indian_tax_rate",
	PreOrder:          "custom.pre_order",
	CountryOfOrigin:   "custom.country_of_origin",
	PendingChanges:    "custom.pending_changes",
	MainItemConfirmed: "custom.main_item_confirmed",
	VariantQuantities: "custom.variant_quantities",
}

func TestFlaggedProductsParsesPendingList(t *testing.T) {
	ex := &scripted{responses: []string{`{"products":{"nodes":[
		{"id":"P1","title":"Oil","status":"DRAFT","pendingChanges":{"value":"[\"Title Updated\",\"New Product Checks\"]"}},
		{"id":"P2","title":"Soap","status":"ACTIVE","pendingChanges":{"value":"Price Updated"}},
		{"id":"P3","title":"Salt","status":"ACTIVE","pendingChanges":null}
	],"pageInfo":{"hasNextPage":true,"endCursor":"c1"}}}`}}

	page, err := NewGraphQLRepository(ex, metafields, 10).FlaggedProducts(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if !page.HasNextPage || page.EndCursor != "c1" || len(page.Nodes) != 3 {
		t.Fatalf("page %+v", page)
	}
	if !reflect.DeepEqual(page.Nodes[0].PendingChanges, []string{"Title Updated", "New Product Checks"}) {
		t.Fatalf("p1 %v", page.Nodes[0].PendingChanges)
	}
	if !reflect.DeepEqual(page.Nodes[1].PendingChanges, []string{"Price Updated"}) {
		t.Fatalf("p2 %v", page.Nodes[1].PendingChanges)
	}
	if page.Nodes[2].PendingChanges != nil || page.Nodes[0].Status != model.StatusDraft {
		t.Fatalf("p3 %+v", page.Nodes[2])
	}
	vars := ex.calls[0].vars
	if vars["query"] != "metafields.custom.pending_changes:*" || vars["first"] != 10 {
		t.Fatalf("vars %v", vars)
	}
	if _, ok := vars["after"]; ok {
		t.Fatal("first page must not send a cursor")
	}
}

func TestFindByIDFollowsNestedPages(t *testing.T) {
	ex := &scripted{responses: []string{
		`{"product":{
			"id":"P1","title":"Oil","status":"ACTIVE","descriptionHtml":"<p>x</p>","mediaCount":{"count":3},
			"options":[{"name":"Pack Size","linkedMetafield":{"namespace":"custom","key":"variant_quantities"}},{"name":"Color","linkedMetafield":null}],
			"taxRate":{"value":" 5% "},"preOrder":{"value":"false"},"origin":{"value":"IN"},
			"pendingChanges":{"value":"[\"New Product Checks\"]"},"mainConfirmed":{"value":"true"},
			"collections":{"nodes":[{"id":"C1","title":"Tax Rate 5%"}],"pageInfo":{"hasNextPage":false}},
			"variants":{"nodes":[{"id":"V1","title":"100 ml","sku":"OIL-0","price":"10.00",
				"selectedOptions":[{"name":"Pack Size","value":"100 ml"}],
				"inventoryItem":{"id":"I1","harmonizedSystemCode":"1515","countryCodeOfOrigin":"IN"}}],
				"pageInfo":{"hasNextPage":true,"endCursor":"v1"}}
		}}`,
		`{"product":{"variants":{"nodes":[{"id":"V2","title":"200 ml","sku":"OIL-1","price":"18.00","inventoryItem":{"id":"I2"}}],"pageInfo":{"hasNextPage":false}}}}`,
	}}

	p, err := NewGraphQLRepository(ex, metafields, 1).FindByID(context.Background(), "P1")
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Variants) != 2 || p.Variants[1].SKU != "OIL-1" || p.Variants[0].InventoryItem.HarmonizedCode != "1515" {
		t.Fatalf("variants %+v", p.Variants)
	}
	if p.TaxRate != "5%" || p.ImageCount != 3 || !p.MainItemConfirmed || p.CountryOfOrigin != "IN" {
		t.Fatalf("product %+v", p)
	}
	if p.Options[0].LinkedMetafield != "custom.variant_quantities" || p.Options[1].LinkedMetafield != "" {
		t.Fatalf("options %+v", p.Options)
	}
	if ex.calls[1].query != productVariantsQuery || ex.calls[1].vars["after"] != "v1" {
		t.Fatalf("second call %+v", ex.calls[1])
	}
	if ex.calls[0].vars["taxNs"] != "custom" || ex.calls[0].vars["taxKey"] != "indian_tax_rate" {
		t.Fatalf("metafield vars %v", ex.calls[0].vars)
	}
}

func TestFindByIDMissingProduct(t *testing.T) {
	ex := &scripted{responses: []string{`{"product":null}`}}
	p, err := NewGraphQLRepository(ex, metafields, 10).FindByID(context.Background(), "gone")
	if err != nil || p != nil {
		t.Fatalf("p=%v err=%v", p, err)
	}
}

func TestSetPendingChangesWritesJSONList(t *testing.T) {
	ok := `{"metafieldsSet":{"userErrors":[]}}`
	ex := &scripted{responses: []string{ok, ok}}
	repo := NewGraphQLRepository(ex, metafields, 10)

	if err := repo.SetPendingChanges(context.Background(), "P1", []string{"New Product Checks"}); err != nil {
		t.Fatal(err)
	}
	if err := repo.SetPendingChanges(context.Background(), "P1", nil); err != nil {
		t.Fatal(err)
	}
	first := ex.calls[0].vars["metafields"].([]map[string]any)[0]
	if first["value"] != `["New Product Checks"]` || first["type"] != "list.single_line_text_field" || first["key"] != "pending_changes" {
		t.Fatalf("metafield %v", first)
	}
	second := ex.calls[1].vars["metafields"].([]map[string]any)[0]
	if second["value"] != `[]` {
		t.Fatalf("empty list written as %v", second["value"])
	}
}

func TestSetStatusUserErrors(t *testing.T) {
	ex := &scripted{responses: []string{`{"productUpdate":{"userErrors":[{"field":["status"],"message":"not allowed"}]}}`}}
	err := NewGraphQLRepository(ex, metafields, 10).SetStatus(context.Background(), "P1", model.StatusActive)
	var ue *gql.UserErrors
	if !errors.As(err, &ue) || ue.Errors[0].Message != "not allowed" {
		t.Fatalf("err %v", err)
	}
	product := ex.calls[0].vars["product"].(map[string]any)
	if product["status"] != "ACTIVE" {
		t.Fatalf("vars %v", product)
	}
}

func TestCatalogPublicationMatchesTitle(t *testing.T) {
	ex := &scripted{responses: []string{`{"catalogs":{"nodes":[
		{"id":"K0","title":"India Catalog B2B","publication":{"id":"X"}},
		{"id":"K1","title":"India Catalog","publication":{"id":"PUB-IN"}}
	]}}`}}
	id, err := NewGraphQLRepository(ex, metafields, 10).CatalogPublication(context.Background(), "India Catalog")
	if err != nil || id != "PUB-IN" {
		t.Fatalf("id=%q err=%v", id, err)
	}
}

func TestMetaobjectFields(t *testing.T) {
	ex := &scripted{responses: []string{
		`{"metaobjectByHandle":{"id":"M1","type":"variant_quantity","handle":"500-g","fields":[{"key":"quantity","value":"500"},{"key":"unit","value":"g"}]}}`,
		`{"metaobjectByHandle":null}`,
	}}
	repo := NewGraphQLRepository(ex, metafields, 10)
	mo, err := repo.Metaobject(context.Background(), "variant_quantity", "500-g")
	if err != nil || mo.Fields["quantity"] != "500" || mo.Fields["unit"] != "g" {
		t.Fatalf("mo=%+v err=%v", mo, err)
	}
	if mo, err := repo.Metaobject(context.Background(), "variant_quantity", "nope"); mo != nil || err != nil {
		t.Fatalf("mo=%+v err=%v", mo, err)
	}
}

func TestParseList(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{`["a","b"]`, []string{"a", "b"}},
		{"Title Updated", []string{"Title Updated"}},
		{"[broken", []string{"[broken"}},
	}
	for _, c := range cases {
		if got := parseList(c.in); !reflect.DeepEqual(got, c.want) {
			t.Fatalf("parseList(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}
