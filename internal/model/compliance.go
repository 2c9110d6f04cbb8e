package model

type ComplianceResult struct {
	Passed         bool           `json:"passed"`
	Reasons        []string       `json:"reasons"`
	Notes          []string       `json:"notes,omitempty"`
	DuplicateSKUs  []string       `json:"duplicate_skus,omitempty"`
	MissingMains   []string       `json:"missing_mains,omitempty"`
	TaxMismatches  []TaxMismatch  `json:"tax_mismatches,omitempty"`
	VariantIssues  []VariantIssue `json:"variant_issues,omitempty"`
	UnitLinked     bool           `json:"unit_linked"`
	MainItemHolder bool           `json:"main_item_holder"`
}

type TaxMismatch struct {
	MainSKU       string `json:"main_sku"`
	MainProductID string `json:"main_product_id"`
	MainTaxRate   string `json:"main_tax_rate"`
	TaxRate       string `json:"tax_rate"`
}

// VariantIssue is one row of the per-variant table in the product report.
type VariantIssue struct {
	VariantTitle string `json:"variant_title"`
	SKU          string `json:"sku"`
	Issue        string `json:"issue"`
}
