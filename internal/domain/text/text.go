// Package text holds the lexical helpers every cache key and semantic lookup is built on.
package text

import (
	"strings"
	"unicode"
)

// Normalize lowercases and trims s. All cache keys derive from it.
func Normalize(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}

// TokenSet normalizes s, replaces punctuation and symbols with spaces
// and returns the set of remaining whitespace-separated words.
func TokenSet(s string) map[string]struct{} {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, Normalize(s))

	words := strings.Fields(cleaned)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Similarity returns the Jaccard index of the token sets of a and b.
// It is 0 when either side has no tokens. Overlap is purely lexical:
// short strings sharing one or two words score high.
func Similarity(a, b string) float64 {
	ta, tb := TokenSet(a), TokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	small, large := ta, tb
	if len(small) > len(large) {
		small, large = large, small
	}

	intersection := 0
	for w := range small {
		if _, ok := large[w]; ok {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection
	return float64(intersection) / float64(union)
}
