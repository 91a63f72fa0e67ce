package dedup

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Similarity scores two texts in [0,1] using the Ratcliff-Obershelp
// ratio over their normalized forms: twice the total matched-run length
// divided by the combined length. Symmetric; 1.0 for identical nonempty
// inputs; 0 when either side normalizes to nothing.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}

	normA := NormalizeText(a)
	normB := NormalizeText(b)
	if normA == "" || normB == "" {
		return 0
	}

	matcher := difflib.NewMatcherWithJunk(
		strings.Split(normA, ""),
		strings.Split(normB, ""),
		false,
		nil,
	)
	return matcher.Ratio()
}
