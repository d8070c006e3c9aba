// Package normalize canonicalizes question text so intent matching and
// metric resolution agree on what "the same question" means.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Punctuation and symbol characters replaced with spaces.
const punctuation = "?!.,;:'\"()[]{}<>/\\|@#&*+=~^%$-_"

var foldTransformer = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Normalize decomposes accented characters and drops their combining marks,
// lowercases, replaces punctuation with spaces and collapses whitespace runs.
// Pure and idempotent; empty input yields empty output.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	folded, _, err := transform.String(foldTransformer, text)
	if err != nil {
		folded = text
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if strings.ContainsRune(punctuation, r) {
			b.WriteRune(' ')
		} else {
			b.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
