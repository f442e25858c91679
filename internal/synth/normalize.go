package synth

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ppiankov/chorus/internal/model"
)

// NoAnswerText replaces an empty finalAnswer from the backend
const NoAnswerText = "(No answer returned.)"

// Limits bounds the size of a summary. Zero values select the defaults.
type Limits struct {
	MaxKeyFacts      int
	MaxSentences     int
	MaxDisagreements int
}

const (
	DefaultMaxKeyFacts      = 20
	DefaultMaxSentences     = 40
	DefaultMaxDisagreements = 20
)

func (l Limits) withDefaults() Limits {
	if l.MaxKeyFacts <= 0 {
		l.MaxKeyFacts = DefaultMaxKeyFacts
	}
	if l.MaxSentences <= 0 {
		l.MaxSentences = DefaultMaxSentences
	}
	if l.MaxDisagreements <= 0 {
		l.MaxDisagreements = DefaultMaxDisagreements
	}
	return l
}

// rawSummary mirrors the backend's JSON. Numbers stay as looseNumber so
// out-of-range or malformed values can be dropped instead of failing the whole decode.
type rawSummary struct {
	FinalAnswer   string        `json:"finalAnswer"`
	KeyFacts      []string      `json:"keyFacts"`
	Sentences     []rawSentence `json:"sentences"`
	Disagreements []string      `json:"disagreements"`
}

type rawSentence struct {
	Text       string        `json:"text"`
	Citations  []looseNumber `json:"citations"`
	Confidence looseNumber   `json:"confidence"`
}

// looseNumber holds a JSON number or a string such as "85"; models quote numbers often
type looseNumber string

func (n *looseNumber) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = looseNumber(strings.TrimSpace(s))
		return nil
	}
	*n = looseNumber(data)
	return nil
}

// ParseSummary extracts, validates and normalizes a summary from raw backend output.
// Sources are echoed from the input; the backend never contributes sources.
func ParseSummary(raw string, sources []model.RetrievalSource, limits Limits) (model.Summary, error) {
	object, err := ExtractJSONObject(raw)
	if err != nil {
		return model.Summary{}, err
	}
	if err := validateSummaryJSON([]byte(object)); err != nil {
		return model.Summary{}, err
	}

	var parsed rawSummary
	if err := json.Unmarshal([]byte(object), &parsed); err != nil {
		return model.Summary{}, fmt.Errorf("decode synthesis JSON: %w (text: %q)", err, preview(object))
	}

	return normalize(parsed, sources, limits.withDefaults()), nil
}

func normalize(in rawSummary, sources []model.RetrievalSource, limits Limits) model.Summary {
	known := model.SourceIDs(sources)

	out := model.Summary{
		FinalAnswer:   strings.TrimSpace(in.FinalAnswer),
		KeyFacts:      cleanList(in.KeyFacts, limits.MaxKeyFacts, true),
		Disagreements: cleanList(in.Disagreements, limits.MaxDisagreements, false),
		Sentences:     []model.SummarySentence{},
		Sources:       echoSources(sources),
	}
	if out.FinalAnswer == "" {
		out.FinalAnswer = NoAnswerText
	}

	for _, s := range in.Sentences {
		if len(out.Sentences) >= limits.MaxSentences {
			break
		}
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		out.Sentences = append(out.Sentences, model.SummarySentence{
			Text:       text,
			Citations:  scopeCitations(s.Citations, known),
			Confidence: clampConfidence(s.Confidence),
		})
	}

	return out
}

// cleanList trims entries, drops blanks and caps the result.
// With dedupe set, case-insensitive duplicates are dropped too.
func cleanList(items []string, limit int, dedupe bool) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, item := range items {
		if len(out) >= limit {
			break
		}
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if dedupe {
			key := strings.ToLower(item)
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		out = append(out, item)
	}
	return out
}

// scopeCitations keeps integer ids that exist in the input sources, once each
func scopeCitations(raw []looseNumber, known map[int]struct{}) []int {
	out := []int{}
	seen := make(map[int]bool)
	for _, n := range raw {
		f, ok := finite(n)
		if !ok || f != math.Trunc(f) {
			continue
		}
		id := int(f)
		if _, exists := known[id]; !exists || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// clampConfidence rounds to an integer in [0,100]; missing or non-finite values become 0
func clampConfidence(n looseNumber) int {
	f, ok := finite(n)
	if !ok {
		return 0
	}
	return ClampConfidence(f)
}

// ClampConfidence rounds f and clamps it into [0,100]
func ClampConfidence(f float64) int {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(math.Max(0, math.Min(100, math.Round(f))))
}

func finite(n looseNumber) (float64, bool) {
	text := strings.TrimSpace(string(n))
	if text == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func echoSources(sources []model.RetrievalSource) []model.RetrievalSource {
	out := make([]model.RetrievalSource, len(sources))
	copy(out, sources)
	return out
}
