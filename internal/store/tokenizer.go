package store

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Tokenize normalizes text for sparse indexing: lowercase, strip
// punctuation, split on whitespace. Tokens of length <= 1 are dropped
// because single characters carry no discriminative signal for keyword
// search.
func Tokenize(text string) []string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			return unicode.ToLower(r)
		default:
			// Punctuation and everything else becomes a separator.
			return ' '
		}
	}, text)

	fields := strings.Fields(mapped)
	tokens := make([]string, 0, len(fields))
	for _, t := range fields {
		if utf8.RuneCountInString(t) > 1 {
			tokens = append(tokens, t)
		}
	}
	return tokens
}
