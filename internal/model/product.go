package model

import "strings"

type ProductStatus string

const (
	StatusDraft    ProductStatus = "DRAFT"
	StatusActive   ProductStatus = "ACTIVE"
	StatusArchived ProductStatus = "ARCHIVED"
)

type Product struct {
	ID                string           `json:"id"`
	Title             string           `json:"title"`
	Status            ProductStatus    `json:"status"`
	DescriptionHTML   string           `json:"description_html"`
	ImageCount        int              `json:"image_count"`
	Options           []ProductOption  `json:"options"`
	Collections       []Collection     `json:"collections"`
	Variants          []ProductVariant `json:"variants"`
	TaxRate           string           `json:"tax_rate"`
	PreOrder          string           `json:"pre_order"`
	CountryOfOrigin   string           `json:"country_of_origin"`
	PendingChanges    []string         `json:"pending_changes"`
	MainItemConfirmed bool             `json:"main_item_confirmed"`
}

func (p *Product) HasImages() bool {
	return p.ImageCount > 0
}

// InCollection reports whether the product belongs to a collection with the given title (case-insensitive).
func (p *Product) InCollection(title string) bool {
	title = strings.TrimSpace(title)
	for _, c := range p.Collections {
		if strings.EqualFold(strings.TrimSpace(c.Title), title) {
			return true
		}
	}
	return false
}

type ProductOption struct {
	Name string `json:"name"`
	// LinkedMetafield is "namespace.key" when the option values come from a metafield, empty otherwise.
	LinkedMetafield string `json:"linked_metafield"`
}

type Collection struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type ProductVariant struct {
	ID              string           `json:"id"`
	Title           string           `json:"title"`
	SKU             string           `json:"sku"`
	Price           string           `json:"price"`
	SelectedOptions []SelectedOption `json:"selected_options"`
	InventoryItem   InventoryItem    `json:"inventory_item"`
}

// OptionValue returns the selected value for the named option.
func (v *ProductVariant) OptionValue(name string) (string, bool) {
	for _, o := range v.SelectedOptions {
		if strings.EqualFold(o.Name, name) {
			return o.Value, true
		}
	}
	return "", false
}

type SelectedOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// VariantRef is a catalog-wide variant hit returned by a SKU lookup.
type VariantRef struct {
	ID           string `json:"id"`
	SKU          string `json:"sku"`
	ProductID    string `json:"product_id"`
	ProductTitle string `json:"product_title"`
}

type Publication struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Metaobject is structured reference data looked up by type and handle.
type Metaobject struct {
	ID     string            `json:"id"`
	Type   string            `json:"type"`
	Handle string            `json:"handle"`
	Fields map[string]string `json:"fields"`
}
