// Package textproc holds the small text-normalization helpers shared by
// ingestion and scraping.
package textproc

import (
	"strings"
	"unicode/utf8"
)

// SanitizeUTF8 drops invalid byte sequences from s. Valid strings are
// returned unchanged, so clean input round-trips byte for byte.
func SanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}

	v := make([]rune, 0, len(s))
	for i, r := range s {
		if r == utf8.RuneError {
			_, size := utf8.DecodeRuneInString(s[i:])
			if size == 1 {
				continue
			}
		}
		v = append(v, r)
	}
	return string(v)
}

// CollapseWhitespace folds all runs of whitespace into single spaces and
// trims the ends. Used for scraped HTML text, where layout whitespace
// carries no meaning.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(strings.Join(strings.Fields(s), " "))
}
