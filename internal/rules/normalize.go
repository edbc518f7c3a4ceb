package rules

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeText folds s for filter comparison: diacritics stripped,
// lowercased, whitespace collapsed. "  Stéfanos  Tsitsipás" becomes
// "stefanos tsitsipas".
func NormalizeText(s string) string {
	// Transformers carry state, so build one per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// NormalizeList folds every entry of list and drops blanks.
func NormalizeList(list []string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if n := NormalizeText(v); n != "" {
			out = append(out, n)
		}
	}
	return out
}
