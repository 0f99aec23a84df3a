package geo

import (
	"strings"
	"unicode"
)

// Fragments splits a free-text location description into lower-cased
// candidate place names. Any rune other than a letter, digit, whitespace
// or apostrophe separates fragments. Order and duplicates are preserved.
func Fragments(where string) []string {
	parts := strings.FieldsFunc(where, isSeparator)

	fragments := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		fragments = append(fragments, strings.ToLower(p))
	}
	return fragments
}

func isSeparator(r rune) bool {
	return !(unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || r == '\'')
}
