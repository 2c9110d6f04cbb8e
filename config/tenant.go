package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Tenant models one store profile. The engine is the same for every tenant; only these
// constants and rule toggles differ.
type Tenant struct {
	ID                  string            `yaml:"id"`
	Store               string            `yaml:"store"`
	APIVersion          string            `yaml:"api_version"`
	Labels              Labels            `yaml:"labels"`
	Metafields          Metafields        `yaml:"metafields"`
	TaxLabel            string            `yaml:"tax_label"`
	TaxCollectionFormat string            `yaml:"tax_collection_format"`
	TaxCodes            map[string]string `yaml:"tax_codes"`
	RegionalCatalog     string            `yaml:"regional_catalog"`
	UnitMetaobjectType  string            `yaml:"unit_metaobject_type"`
	UnitTerms           []string          `yaml:"unit_terms"`
	Payload             PayloadFields     `yaml:"payload"`
	Rules               Rules             `yaml:"rules"`
}

type Labels struct {
	TitleUpdated string `yaml:"title_updated"`
	PriceUpdated string `yaml:"price_updated"`
	HSNUpdated   string `yaml:"hsn_updated"`
	TaxUpdated   string `yaml:"tax_updated"`
	FullCheck    string `yaml:"full_check"`
}

// Metafields holds "namespace.key" identifiers.
type Metafields struct {
	TaxRate           string `yaml:"tax_rate"`
	PreOrder          string `yaml:"pre_order"`
	CountryOfOrigin   string `yaml:"country_of_origin"`
	PendingChanges    string `yaml:"pending_changes"`
	MainItemConfirmed string `yaml:"main_item_confirmed"`
	VariantQuantities string `yaml:"variant_quantities"`
}

type PayloadFields struct {
	ProductID string `yaml:"product_id"`
	TaxCode   string `yaml:"tax_code"`
}

type Rules struct {
	CosmeticsCollection string `yaml:"cosmetics_collection"`
	MainItemHandshake   bool   `yaml:"main_item_handshake"`
	ZeroStockOnCheck    *bool  `yaml:"zero_stock_on_check"`
}

// ZeroStock defaults to true when unset.
func (r Rules) ZeroStock() bool {
	return r.ZeroStockOnCheck == nil || *r.ZeroStockOnCheck
}

// TaxCollection returns the collection title that encodes percent.
func (t *Tenant) TaxCollection(percent string) string {
	return strings.ReplaceAll(t.TaxCollectionFormat, "{percent}", percent)
}

func (t *Tenant) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("tenant.id is required")
	}
	if t.Store == "" {
		return fmt.Errorf("tenant %s: store is required", t.ID)
	}
	if t.APIVersion == "" {
		return fmt.Errorf("tenant %s: api_version is required", t.ID)
	}
	labels := map[string]string{
		"title_updated": t.Labels.TitleUpdated,
		"price_updated": t.Labels.PriceUpdated,
		"hsn_updated":   t.Labels.HSNUpdated,
		"tax_updated":   t.Labels.TaxUpdated,
		"full_check":    t.Labels.FullCheck,
	}
	seen := make(map[string]string, len(labels))
	for name, value := range labels {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("tenant %s: labels.%s is required", t.ID, name)
		}
		if other, ok := seen[value]; ok {
			return fmt.Errorf("tenant %s: labels.%s and labels.%s share %q", t.ID, name, other, value)
		}
		seen[value] = name
	}
	fields := map[string]string{
		"tax_rate":            t.Metafields.TaxRate,
		"pre_order":           t.Metafields.PreOrder,
		"country_of_origin":   t.Metafields.CountryOfOrigin,
		"pending_changes":     t.Metafields.PendingChanges,
		"main_item_confirmed": t.Metafields.MainItemConfirmed,
		"variant_quantities":  t.Metafields.VariantQuantities,
	}
	for name, value := range fields {
		if ns, key, ok := strings.Cut(value, "."); !ok || ns == "" || key == "" {
			return fmt.Errorf("tenant %s: metafields.%s must be namespace.key, got %q", t.ID, name, value)
		}
	}
	if !strings.Contains(t.TaxCollectionFormat, "{percent}") {
		return fmt.Errorf("tenant %s: tax_collection_format must contain {percent}", t.ID)
	}
	if t.TaxLabel == "" {
		return fmt.Errorf("tenant %s: tax_label is required", t.ID)
	}
	if len(t.UnitTerms) == 0 {
		return fmt.Errorf("tenant %s: unit_terms is required", t.ID)
	}
	if t.Payload.ProductID == "" || t.Payload.TaxCode == "" {
		return fmt.Errorf("tenant %s: payload.product_id and payload.tax_code are required", t.ID)
	}
	return nil
}

// TenantFromYAML parses and validates a tenant profile.
func TenantFromYAML(data []byte) (*Tenant, error) {
	var t Tenant
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("invalid tenant yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// LoadTenant reads a profile from path, or falls back to the built-in profile called name.
func LoadTenant(name, path string) (*Tenant, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read tenant profile: %w", err)
		}
		return TenantFromYAML(data)
	}
	raw, ok := builtinTenants[name]
	if !ok {
		return nil, fmt.Errorf("unknown tenant %q (built-in: %s)", name, strings.Join(BuiltinTenants(), ", "))
	}
	return TenantFromYAML([]byte(raw))
}

// BuiltinTenants lists the names of the embedded profiles.
func BuiltinTenants() []string {
	names := make([]string, 0, len(builtinTenants))
	for name := range builtinTenants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var builtinTenants = map[string]string{
	"in":     inTenantYAML,
	"global": globalTenantYAML,
}

const sharedUnitTerms = `unit_terms:
  - pack
  - pack size
  - packs
  - size
  - quantity
  - qty
  - count
  - pieces
  - pcs
  - weight
  - volume
  - net weight
  - net quantity
  - units
`

const inTenantYAML = `id: in
store: omnipos-in.myshopify.com
api_version: "2025-01"
labels:
  title_updated: Title Updated
  price_updated: Price Updated
  hsn_updated: HSN Updated
  tax_updated: Tax Updated
  full_check: New Product Checks
metafields:
  tax_rate: custom.indian_tax_rate
  pre_order: custom.pre_order
  country_of_origin: custom.country_of_origin
  pending_changes: custom.pending_changes
  main_item_confirmed: custom.main_item_confirmed
  variant_quantities: custom.variant_quantities
tax_label: Indian tax rate
tax_collection_format: "Tax Rate {percent}%"
tax_codes:
  "0": GST0
  "5": GST5
  "12": GST12
  "18": GST18
  "28": GST28
regional_catalog: India Catalog
unit_metaobject_type: variant_quantity
payload:
  product_id: shopifyProductId
  tax_code: gstCode
rules:
  cosmetics_collection: Cosmetics
  main_item_handshake: false
` + sharedUnitTerms

const globalTenantYAML = `id: global
store: omnipos-global.myshopify.com
api_version: "2025-01"
labels:
  title_updated: Title Updated
  price_updated: Price Updated
  hsn_updated: HSN Updated
  tax_updated: Tax Updated
  full_check: New Product Checks
metafields:
  tax_rate: custom.tax_rate
  pre_order: custom.pre_order
  country_of_origin: custom.country_of_origin
  pending_changes: custom.pending_changes
  main_item_confirmed: custom.main_item_confirmed
  variant_quantities: custom.variant_quantities
tax_label: Tax rate
tax_collection_format: "Tax Rate {percent}%"
tax_codes:
  "0": ZERO
  "5": REDUCED
  "20": STANDARD
regional_catalog: EU Catalog
unit_metaobject_type: variant_quantity
payload:
  product_id: productId
  tax_code: taxCode
rules:
  main_item_handshake: true
` + sharedUnitTerms
