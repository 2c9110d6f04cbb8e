package compliance

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/fekuna/omnipos-catalog-gate/config"
	"github.com/fekuna/omnipos-catalog-gate/internal/model"
	"github.com/fekuna/omnipos-catalog-gate/internal/sku"
)

const minDescriptionLength = 10

const (
	IssueFillSKU    = "Fill in SKU"
	IssueFillHSCode = "Fill in HS code"
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// Evaluator runs the fixed publish-readiness rules for one tenant.
type Evaluator struct {
	tenant   *config.Tenant
	glossary glossary
}

func NewEvaluator(tenant *config.Tenant) *Evaluator {
	return &Evaluator{tenant: tenant, glossary: newGlossary(tenant.UnitTerms)}
}

// Evaluate combines every check with AND. Reasons are appended in a fixed priority order.
func (e *Evaluator) Evaluate(p *model.Product, res *sku.Resolution) model.ComplianceResult {
	out := model.ComplianceResult{
		Passed:         true,
		DuplicateSKUs:  res.Duplicates,
		MissingMains:   res.MissingMains,
		TaxMismatches:  res.TaxMismatches,
		MainItemHolder: res.MainItemHolder,
	}
	fail := func(reason string) {
		out.Passed = false
		out.Reasons = append(out.Reasons, reason)
	}

	tax := strings.TrimSpace(p.TaxRate)
	if tax == "" {
		fail(fmt.Sprintf("%s is empty.", e.tenant.TaxLabel))
	} else {
		pct, ok := TaxPercent(tax)
		if !ok {
			pct = strings.TrimSpace(strings.TrimSuffix(tax, "%"))
		}
		if want := e.tenant.TaxCollection(pct); !p.InCollection(want) {
			fail(fmt.Sprintf("Assign product to collection: %s.", want))
		}
	}

	if len(res.TaxMismatches) > 0 {
		parts := make([]string, 0, len(res.TaxMismatches))
		for _, m := range res.TaxMismatches {
			parts = append(parts, fmt.Sprintf("%s (%s)", m.MainSKU, displayRate(m.MainTaxRate)))
		}
		fail(fmt.Sprintf("Tax rate %s does not match main item: %s.", displayRate(p.TaxRate), strings.Join(parts, ", ")))
	}

	unlinked, linked := e.unitOptions(p)
	out.UnitLinked = linked
	if len(unlinked) > 0 {
		fail(fmt.Sprintf("Link option to the variant quantities metafield: %s.", strings.Join(unlinked, ", ")))
	}

	if len(res.Duplicates) > 0 {
		fail(fmt.Sprintf("Duplicate SKUs found in catalog: %s.", strings.Join(res.Duplicates, ", ")))
	}
	if len(res.MissingMains) > 0 {
		fail(fmt.Sprintf("Main item missing for SKU: %s.", strings.Join(res.MissingMains, ", ")))
	}
	if strings.TrimSpace(p.PreOrder) == "" {
		fail("Pre-order setting is empty.")
	}
	if strings.TrimSpace(p.CountryOfOrigin) == "" {
		fail("Country of origin is empty.")
	}
	if utf8.RuneCountInString(PlainText(p.DescriptionHTML)) < minDescriptionLength {
		fail(fmt.Sprintf("Description must be at least %d characters.", minDescriptionLength))
	}
	if !p.HasImages() {
		fail("Product has no images.")
	}

	// Missing-main rows are already covered by their own reason above.
	out.VariantIssues = variantIssues(p, res)
	if n := countIssues(out.VariantIssues, IssueFillSKU, IssueFillHSCode); n > 0 {
		fail(fmt.Sprintf("%d variant(s) missing SKU or HS code, see table.", n))
	}

	if c := e.tenant.Rules.CosmeticsCollection; c != "" && p.InCollection(c) {
		out.Notes = append(out.Notes, fmt.Sprintf("Product is in the %s collection: check ingredient and shelf-life details.", c))
	}
	return out
}

// unitOptions returns unit-bearing options missing the variant quantities link, and whether any option has it.
func (e *Evaluator) unitOptions(p *model.Product) ([]string, bool) {
	var unlinked []string
	linked := false
	for _, opt := range p.Options {
		isLinked := strings.EqualFold(opt.LinkedMetafield, e.tenant.Metafields.VariantQuantities)
		if isLinked {
			linked = true
		}
		if e.glossary.Match(opt.Name) && !isLinked {
			unlinked = append(unlinked, opt.Name)
		}
	}
	return unlinked, linked
}

func variantIssues(p *model.Product, res *sku.Resolution) []model.VariantIssue {
	var issues []model.VariantIssue
	for _, v := range p.Variants {
		s := strings.TrimSpace(v.SKU)
		if s == "" {
			issues = append(issues, model.VariantIssue{VariantTitle: v.Title, Issue: IssueFillSKU})
			continue
		}
		g := res.GroupOf(v.ID)
		if g == nil || !g.Pattern {
			continue
		}
		if g.Main == nil {
			issues = append(issues, model.VariantIssue{VariantTitle: v.Title, SKU: s, Issue: fmt.Sprintf("Main item %s not found", g.ExpectedMain)})
		}
		if strings.TrimSpace(v.InventoryItem.HarmonizedCode) == "" {
			issues = append(issues, model.VariantIssue{VariantTitle: v.Title, SKU: s, Issue: IssueFillHSCode})
		}
	}
	return issues
}

func countIssues(issues []model.VariantIssue, kinds ...string) int {
	n := 0
	for _, is := range issues {
		for _, k := range kinds {
			if is.Issue == k {
				n++
				break
			}
		}
	}
	return n
}

// PlainText strips markup and entities from a description.
func PlainText(descriptionHTML string) string {
	s := tagPattern.ReplaceAllString(descriptionHTML, " ")
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

func displayRate(rate string) string {
	if strings.TrimSpace(rate) == "" {
		return "(empty)"
	}
	return rate
}
