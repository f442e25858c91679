package synth

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrNoJSONObject is returned when raw model output holds no complete JSON object
var ErrNoJSONObject = errors.New("no complete JSON object in synthesis output")

// previewLimit bounds the offending text quoted in extraction errors (runes)
const previewLimit = 200

type scanState int

const (
	outsideString scanState = iota
	insideString
	insideStringEscape
)

// ExtractJSONObject returns the first balanced {...} object in text.
// Braces inside quoted strings, including escaped quotes, are ignored.
// Leading and trailing noise is skipped; an object that never closes is an error.
func ExtractJSONObject(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", fmt.Errorf("%w: no opening brace (text: %q)", ErrNoJSONObject, preview(text))
	}

	depth := 0
	state := outsideString
	for i := start; i < len(text); i++ {
		c := text[i]
		switch state {
		case insideStringEscape:
			state = insideString
		case insideString:
			switch c {
			case '\\':
				state = insideStringEscape
			case '"':
				state = outsideString
			}
		case outsideString:
			switch c {
			case '"':
				state = insideString
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return text[start : i+1], nil
				}
			}
		}
	}

	return "", fmt.Errorf("%w: object opened at offset %d is never closed (text: %q)", ErrNoJSONObject, start, preview(text[start:]))
}

// preview truncates s to previewLimit runes for error messages
func preview(s string) string {
	if utf8.RuneCountInString(s) <= previewLimit {
		return s
	}
	runes := []rune(s)
	return string(runes[:previewLimit]) + "..."
}
