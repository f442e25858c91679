package model

import "encoding/json"

// Summary is the structured meta-summary produced for one run
type Summary struct {
	FinalAnswer   string            `json:"finalAnswer"`
	KeyFacts      []string          `json:"keyFacts"`
	Sentences     []SummarySentence `json:"sentences"`
	Disagreements []string          `json:"disagreements"`
	Sources       []RetrievalSource `json:"sources"` // Echoed from input, never produced by synthesis
}

// SummarySentence is one cited sentence of a summary
type SummarySentence struct {
	Text       string `json:"text"`
	Citations  []int  `json:"citations"`  // RetrievalSource ids
	Confidence int    `json:"confidence"` // 0-100
}

// MarshalJSON always emits every array key, even when empty
func (s Summary) MarshalJSON() ([]byte, error) {
	type plain Summary
	out := plain(s)
	if out.KeyFacts == nil {
		out.KeyFacts = []string{}
	}
	if out.Sentences == nil {
		out.Sentences = []SummarySentence{}
	}
	if out.Disagreements == nil {
		out.Disagreements = []string{}
	}
	if out.Sources == nil {
		out.Sources = []RetrievalSource{}
	}
	return json.Marshal(out)
}

// MarshalJSON emits an empty citation list instead of null
func (s SummarySentence) MarshalJSON() ([]byte, error) {
	type plain SummarySentence
	out := plain(s)
	if out.Citations == nil {
		out.Citations = []int{}
	}
	return json.Marshal(out)
}

// RunRecord is a history entry for one completed run
type RunRecord struct {
	ID          string            `json:"id"`
	Timestamp   int64             `json:"ts"` // Unix milliseconds
	Fingerprint string            `json:"fingerprint,omitempty"`
	Prompt      string            `json:"prompt"`
	Providers   []ProviderName    `json:"providers"`
	Results     []ProviderAnswer  `json:"results"`
	Sources     []RetrievalSource `json:"sources,omitempty"`
	Meta        *Summary          `json:"meta"`
}
