package geospatial

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeName canonicalizes a place name for equality comparison:
// lowercase, trimmed, diacritics stripped, non-alphanumeric characters
// removed, whitespace collapsed. Two names denote the same place iff their
// canonical forms are identical.
func NormalizeName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))

	// NFD decomposition, then drop combining marks (accents).
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		if r == ' ' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
