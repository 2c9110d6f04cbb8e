package sku

import (
	"regexp"
	"strings"
)

var skuPattern = regexp.MustCompile(`^(.+)-([0-9]+)([A-Za-z]*)$`)

// Match is a SKU of the shape base-digits[tail].
type Match struct {
	SKU    string
	Base   string
	Digits string
	Tail   string
}

// Parse splits sku into base, digits and letter tail. ok is false for non-pattern SKUs.
func Parse(sku string) (Match, bool) {
	sku = strings.TrimSpace(sku)
	m := skuPattern.FindStringSubmatch(sku)
	if m == nil {
		return Match{}, false
	}
	return Match{SKU: sku, Base: m[1], Digits: m[2], Tail: m[3]}, true
}

// ExpectedMain is the zero-suffixed SKU of the group m belongs to.
func (m Match) ExpectedMain() string {
	return m.Base + "-0" + m.Tail
}

// GroupKey identifies sibling SKUs regardless of case.
func (m Match) GroupKey() string {
	return strings.ToLower(m.Base + m.Tail)
}

// IsMain reports whether the digits are all zeros.
func (m Match) IsMain() bool {
	return strings.Trim(m.Digits, "0") == ""
}

// ExpectedMain returns the main SKU for any SKU; non-pattern SKUs are their own main.
func ExpectedMain(sku string) string {
	if m, ok := Parse(sku); ok {
		return m.ExpectedMain()
	}
	return strings.TrimSpace(sku)
}

func normalize(sku string) string {
	return strings.ToLower(strings.TrimSpace(sku))
}
