package forest

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// PlaceholderTitles are the localized default titles that mean "no title".
var PlaceholderTitles = []string{
	"Untitled document",
	"Unbenanntes Dokument",
	"Document sans titre",
}

// CanonicalTitle maps empty and placeholder titles to nil.
func CanonicalTitle(title *string) *string {
	if title == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*title)
	if trimmed == "" {
		return nil
	}
	for _, p := range PlaceholderTitles {
		if trimmed == p {
			return nil
		}
	}
	return title
}

// FoldTitle lowercases s and strips diacritics, so "Évènement" and
// "evenement" compare equal. Stores index titles by this form.
func FoldTitle(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return cases.Fold().String(stripped)
}

// TitleMatches reports whether the folded title contains the folded query.
func TitleMatches(title *string, query string) bool {
	if query == "" {
		return true
	}
	if title == nil {
		return false
	}
	return strings.Contains(FoldTitle(*title), FoldTitle(query))
}
