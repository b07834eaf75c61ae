// Package textutil holds the text normalization helpers shared by the bank
// extractors: whitespace cleanup, accent folding, localized amounts, card
// digits, Ecuador-local dates and HTML flattening.
package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var invisibles = strings.NewReplacer(
	"\u200b", "",
	"\u200c", "",
	"\u200d", "",
	"\ufeff", "",
)

// Clean collapses every whitespace run to a single space and trims.
func Clean(text string) string {
	return strings.Join(strings.Fields(invisibles.Replace(text)), " ")
}

// Fold lowercases s and strips diacritics, so "Crédito" and "CREDITO"
// compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// ContainsFold reports whether sub is within s ignoring case and accents.
func ContainsFold(s, sub string) bool {
	return strings.Contains(Fold(s), Fold(sub))
}

// FirstNonEmpty returns the first argument that is not blank after Clean.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if c := Clean(v); c != "" {
			return c
		}
	}
	return ""
}
