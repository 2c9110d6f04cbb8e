package compliance

import (
	"fmt"
	"strings"

	"github.com/fekuna/omnipos-catalog-gate/internal/model"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Report is the plain-text summary sent to the notification channel for one product.
type Report struct {
	Product      *model.Product
	StatusBefore model.ProductStatus
	Result       *model.ComplianceResult

	lines    []string
	failures int
}

func NewReport(p *model.Product) *Report {
	return &Report{Product: p, StatusBefore: p.Status}
}

// Add appends a neutral line (actions, acknowledgements).
func (r *Report) Add(format string, args ...any) {
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

// Fail appends a line describing a failed action.
func (r *Report) Fail(format string, args ...any) {
	r.failures++
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

// OK is the routing hint: true only when nothing failed and any compliance check passed.
func (r *Report) OK() bool {
	if r.failures > 0 {
		return false
	}
	return r.Result == nil || r.Result.Passed
}

func (r *Report) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Product: %s\n", r.Product.Title)
	fmt.Fprintf(&b, "ID: %s\n", r.Product.ID)
	fmt.Fprintf(&b, "Status: %s\n", r.StatusBefore)

	if r.Result != nil {
		if r.Result.Passed {
			b.WriteString("Compliance: PASSED\n")
		} else {
			b.WriteString("Compliance: FAILED\n")
		}
		for _, reason := range r.Result.Reasons {
			fmt.Fprintf(&b, "- %s\n", reason)
		}
		for _, note := range r.Result.Notes {
			fmt.Fprintf(&b, "Note: %s\n", note)
		}
		if len(r.Result.VariantIssues) > 0 {
			b.WriteString(IssueTable(r.Result.VariantIssues))
			b.WriteString("\n")
		}
	}

	for _, line := range r.lines {
		b.WriteString(line)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// IssueTable renders the per-variant issue rows.
func IssueTable(issues []model.VariantIssue) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Variant", "SKU", "Issue"})
	for _, is := range issues {
		sku := is.SKU
		if sku == "" {
			sku = "-"
		}
		t.AppendRow(table.Row{is.VariantTitle, sku, is.Issue})
	}
	return t.Render()
}
