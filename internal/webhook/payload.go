package webhook

import (
	"strings"

	"github.com/fekuna/omnipos-catalog-gate/config"
	"github.com/shopspring/decimal"
)

// Unit is the quantity/unit pair looked up for a variant's pack option.
type Unit struct {
	Quantity string
	Name     string
}

type ConfirmItem struct {
	SKU          string `json:"sku"`
	VariantID    string `json:"variantId"`
	Title        string `json:"title"`
	Price        string `json:"price"`
	UnitQuantity string `json:"unitQuantity,omitempty"`
	Unit         string `json:"unit,omitempty"`
	UnitPrice    string `json:"unitPrice,omitempty"`
}

// ConfirmPayload is sent once per SKU group, or once for a main item alone when MainOnly is set.
type ConfirmPayload struct {
	ProductID  string
	Items      []ConfirmItem
	TaxRate    string
	TaxPercent string
	TaxCode    string
	HSCode     string
	MainSKU    string
	MainOnly   bool
}

// NewItem builds an item and fills the unit price when the unit quantity is a positive number.
func NewItem(sku, variantID, title, price string, unit *Unit) ConfirmItem {
	item := ConfirmItem{SKU: sku, VariantID: variantID, Title: title, Price: price}
	if unit == nil {
		return item
	}
	item.UnitQuantity = unit.Quantity
	item.Unit = unit.Name
	if up, ok := UnitPrice(price, unit.Quantity); ok {
		item.UnitPrice = up
	}
	return item
}

// UnitPrice divides price by quantity, rounded to two places.
func UnitPrice(price, quantity string) (string, bool) {
	p, err := decimal.NewFromString(strings.TrimSpace(price))
	if err != nil {
		return "", false
	}
	q, err := decimal.NewFromString(strings.TrimSpace(quantity))
	if err != nil || !q.IsPositive() {
		return "", false
	}
	return p.DivRound(q, 2).StringFixed(2), true
}

func (p ConfirmPayload) body(fields config.PayloadFields) map[string]any {
	items := p.Items
	if items == nil {
		items = []ConfirmItem{}
	}
	return map[string]any{
		fields.ProductID: p.ProductID,
		"items":          items,
		"taxRate":        p.TaxRate,
		"taxPercent":     p.TaxPercent,
		fields.TaxCode:   p.TaxCode,
		"hsCode":         p.HSCode,
		"mainSku":        p.MainSKU,
		"mainOnly":       p.MainOnly,
	}
}
