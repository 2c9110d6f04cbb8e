package compliance

import (
	"strings"
	"unicode"
)

// glossary matches option names against the tenant's unit/pack vocabulary.
type glossary struct {
	terms []string
}

func newGlossary(terms []string) glossary {
	g := glossary{}
	for _, t := range terms {
		if n := normalizeWords(t); n != "" {
			g.terms = append(g.terms, n)
		}
	}
	return g
}

// Match reports whether any glossary term appears as whole words in name.
func (g glossary) Match(name string) bool {
	n := " " + normalizeWords(name) + " "
	if strings.TrimSpace(n) == "" {
		return false
	}
	for _, term := range g.terms {
		if strings.Contains(n, " "+term+" ") {
			return true
		}
	}
	return false
}

func normalizeWords(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
