package extract

import (
	"iter"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinClaimLength is the shortest normalized sentence kept as a claim (in runes)
const MinClaimLength = 20

var (
	blankLinesPattern = regexp.MustCompile(`\n[ \t]*(\n[ \t]*)+`)
	citationPattern   = regexp.MustCompile(`\[[A-Za-z]?\d+\]`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	quoteReplacer     = strings.NewReplacer("“", `"`, "”", `"`, "„", `"`, "‘", "'", "’", "'", "‚", "'")
	dashReplacer      = strings.NewReplacer("—", "-", "–", "-")
)

// Sentences returns the candidate claims found in text.
// The sequence is lazy and can be ranged over any number of times.
func Sentences(text string) iter.Seq[string] {
	flat := flatten(text)
	return func(yield func(string) bool) {
		start := 0
		for start < len(flat) {
			end, next := nextBoundary(flat, start)
			if candidate, ok := normalizeClaim(flat[start:end]); ok {
				if !yield(candidate) {
					return
				}
			}
			start = next
		}
	}
}

// SplitSentences collects Sentences into a slice
func SplitSentences(text string) []string {
	var out []string
	for s := range Sentences(text) {
		out = append(out, s)
	}
	return out
}

// flatten collapses carriage returns and blank-line runs, then turns newlines into spaces
func flatten(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = blankLinesPattern.ReplaceAllString(text, "\n")
	return strings.ReplaceAll(text, "\n", " ")
}

// nextBoundary finds the end of the sentence starting at start.
// It returns the end offset (exclusive, terminator included) and the offset
// where the following sentence begins.
func nextBoundary(text string, start int) (end, next int) {
	for i := start; i < len(text); i++ {
		c := text[i]
		if c != '.' && c != '?' && c != '!' {
			continue
		}
		j := i + 1
		for j < len(text) && isSpace(text[j]) {
			j++
		}
		if j == i+1 || j >= len(text) {
			continue
		}
		r, _ := utf8.DecodeRuneInString(text[j:])
		if opensSentence(r) {
			return i + 1, j
		}
	}
	return len(text), len(text)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\f' || c == '\v'
}

func opensSentence(r rune) bool {
	switch r {
	case '"', '\'', '“', '‘':
		return true
	}
	return unicode.IsUpper(r) || unicode.IsDigit(r)
}

// normalizeClaim cleans one candidate and reports whether it is long enough to keep
func normalizeClaim(s string) (string, bool) {
	s = quoteReplacer.Replace(s)
	s = dashReplacer.Replace(s)
	s = citationPattern.ReplaceAllString(s, "")
	s = strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
	if utf8.RuneCountInString(s) < MinClaimLength {
		return "", false
	}
	return s, true
}

// DefaultFillerPhrases are lower-cased fragments that mark meta commentary
var DefaultFillerPhrases = []string{
	"based on the information provided",
	"would you like to know more",
	"i hope this helps",
	"as an ai language model",
	"i don't have real-time",
	"feel free to ask",
	"let me know if you",
	"i cannot browse",
}

// isFiller reports whether the claim contains one of the filler phrases
func isFiller(claim string, phrases []string) bool {
	lower := strings.ToLower(claim)
	for _, phrase := range phrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
