package geo

import "unicode"

// ExtractLocations scans text against the place-name table and returns
// the distinct matched surface forms, original casing preserved, in
// table order rather than text order. Table order is the deliberate
// tie-break: when several places appear, the more significant one is
// geocoded first.
func ExtractLocations(text string) []string {
	if text == "" {
		return nil
	}

	original := []rune(text)
	folded := make([]rune, len(original))
	for i, r := range original {
		folded[i] = unicode.ToLower(r)
	}

	var locations []string
	seen := make(map[string]struct{})
	for _, names := range compiledPatterns {
		scanPattern(original, folded, names, func(surface string) {
			if _, ok := seen[surface]; ok {
				return
			}
			seen[surface] = struct{}{}
			locations = append(locations, surface)
		})
	}
	return locations
}

// scanPattern walks the text once, trying each surface form of one
// place at every position and skipping past a hit, so matches never
// overlap within a pattern.
func scanPattern(original, folded []rune, names [][]rune, accept func(string)) {
	for i := 0; i < len(folded); {
		width := 0
		for _, name := range names {
			end := i + len(name)
			if end > len(folded) || !runesEqual(folded[i:end], name) {
				continue
			}
			if !boundaryBefore(folded, i) || !boundaryAfter(folded, end) {
				continue
			}
			accept(string(original[i:end]))
			width = len(name)
			break
		}
		if width == 0 {
			width = 1
		}
		i += width
	}
}

func runesEqual(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Word boundaries sit wherever word-character membership flips, with
// the positions beyond both ends of the text counting as non-word.
// Combining marks are not word characters, matching how the \b class
// behaves in PCRE-style engines, so Bengali names ending in a vowel
// sign bind to the suffixed forms common in news copy.
func boundaryBefore(runes []rune, start int) bool {
	first := wordRune(runes[start])
	if start == 0 {
		return first
	}
	return wordRune(runes[start-1]) != first
}

func boundaryAfter(runes []rune, end int) bool {
	last := wordRune(runes[end-1])
	if end == len(runes) {
		return last
	}
	return last != wordRune(runes[end])
}

func wordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
