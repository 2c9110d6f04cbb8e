package compliance

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var numberPattern = regexp.MustCompile(`[0-9]+(?:\.[0-9]+)?`)

// TaxPercent extracts the percentage encoded in a tax-rate string ("5%", "5", "12.0 %").
func TaxPercent(rate string) (string, bool) {
	raw := numberPattern.FindString(rate)
	if raw == "" {
		return "", false
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return "", false
	}
	return d.String(), true
}

// TaxCode maps a tax-rate string to the external system's code.
func TaxCode(codes map[string]string, rate string) string {
	pct, ok := TaxPercent(rate)
	if !ok {
		return ""
	}
	return strings.TrimSpace(codes[pct])
}
