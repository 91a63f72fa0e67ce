// Package dedup collapses raw scrape observations into one canonical
// article per story. It fingerprints normalized text, scores title and
// description similarity against ranked candidates, merges matches field
// by field and compacts residual same-URL duplicates.
package dedup

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"unicode"
	"unicode/utf8"
)

// stopwords is the fixed bilingual list removed during normalization.
var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
	"এ": {}, "এই": {}, "ও": {}, "এবং": {}, "কিন্তু": {}, "তবে": {}, "যে": {},
	"যা": {}, "যার": {}, "যাকে": {}, "যাদের": {}, "সে": {}, "তার": {}, "তাকে": {},
	"তাদের": {},
}

// NormalizeText canonicalizes text for fingerprinting and similarity
// scoring: lowercase, keep only word characters, Bengali script,
// sentence punctuation and whitespace, then drop stop words and tokens
// of one or two runes. Idempotent.
func NormalizeText(text string) string {
	if text == "" {
		return ""
	}

	lowered := strings.ToLower(text)

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		if keepRune(r) {
			b.WriteRune(r)
		}
	}

	words := strings.Fields(b.String())
	kept := words[:0]
	for _, word := range words {
		if _, ok := stopwords[word]; ok {
			continue
		}
		if utf8.RuneCountInString(word) <= 2 {
			continue
		}
		kept = append(kept, word)
	}

	return strings.Join(kept, " ")
}

func keepRune(r rune) bool {
	switch {
	case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
		return true
	// The whole Bengali block, so vowel signs, viramas and currency
	// marks survive alongside the letters.
	case r >= 0x0980 && r <= 0x09FF:
		return true
	case r == '.' || r == ',' || r == '!' || r == '?':
		return true
	case unicode.IsSpace(r):
		return true
	}
	return false
}

// Fingerprint hashes the normalized title and description into the
// same-batch duplicate-suppression key.
func Fingerprint(title, description string) string {
	content := NormalizeText(title) + "|" + NormalizeText(description)
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}
