package store

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizeName normalizes an identity name for comparison (lowercase,
// no diacritics, spaces for dashes). Lookups by name compare normalized
// forms so "Jiří Novák" and "jiri novak" refer to the same person.
func NormalizeName(name string) string {
	name = RemoveDiacritics(name)
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "-", " ")
	return strings.Join(strings.Fields(name), " ")
}

// FindIdentityByName returns the first identity whose normalized name
// equals the normalized query, in enrollment order. The bool reports
// whether one was found.
func FindIdentityByName(identities []Identity, name string) (*Identity, bool) {
	want := NormalizeName(name)
	for i := range identities {
		if NormalizeName(identities[i].Name) == want {
			return &identities[i], true
		}
	}
	return nil, false
}
