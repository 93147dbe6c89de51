package store

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nameKeyTransformer = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// NameKey derives the upsert key for a company name: lowercased, trimmed,
// diacritics stripped, inner whitespace collapsed. "Café  Zeezicht" and
// "cafe zeezicht" map to the same key.
func NameKey(name string) string {
	stripped, _, err := transform.String(nameKeyTransformer, name)
	if err != nil {
		stripped = name
	}
	return strings.Join(strings.Fields(strings.ToLower(stripped)), " ")
}
