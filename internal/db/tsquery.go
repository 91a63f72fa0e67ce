package db

import (
	"strings"
	"unicode"
)

// buildOrTsQuery turns free text into a to_tsquery('simple', ...) input
// that matches any of the words: each token becomes a quoted lexeme and
// the tokens are OR-ed together. Returns "" when the text has no tokens,
// which callers treat as "no candidates". Combining marks count as word
// runes so Bengali vowel signs and conjuncts do not split a token.
func buildOrTsQuery(text string) string {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsMark(r)
	})
	if len(tokens) == 0 {
		return ""
	}

	seen := make(map[string]struct{}, len(tokens))
	parts := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		parts = append(parts, "'"+token+"'")
	}
	return strings.Join(parts, " | ")
}
