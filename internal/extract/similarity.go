package extract

import (
	"regexp"
	"strings"
)

var nonWordPattern = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

// Tokenize lower-cases s and returns its set of word tokens
func Tokenize(s string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, tok := range nonWordPattern.Split(strings.ToLower(s), -1) {
		if tok != "" {
			tokens[tok] = struct{}{}
		}
	}
	return tokens
}

// Similarity returns the Jaccard coefficient of the token sets of a and b.
// Two texts without any tokens score 0.
func Similarity(a, b string) float64 {
	return jaccard(Tokenize(a), Tokenize(b))
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}
	intersection := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
