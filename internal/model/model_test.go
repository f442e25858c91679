package model

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestParseProviders(t *testing.T) {
	tests := []struct {
		name string
		raw  []string
		want []ProviderName
	}{
		{"empty", nil, nil},
		{"single", []string{"openai"}, []ProviderName{ProviderOpenAI}},
		{"comma separated", []string{"openai, Claude,grok"}, []ProviderName{ProviderOpenAI, ProviderAnthropic, ProviderXAI}},
		{"aliases", []string{"chatgpt", "gpt", "claude", "grok"}, []ProviderName{ProviderOpenAI, ProviderOpenAI, ProviderAnthropic, ProviderXAI}},
		{"blank parts skipped", []string{" , gemini ,,"}, []ProviderName{ProviderGemini}},
		{"unknown kept", []string{"mistral"}, []ProviderName{"mistral"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseProviders(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseProviders(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestProviderLabelAndKnown(t *testing.T) {
	labels := map[ProviderName]string{
		ProviderOpenAI:    "ChatGPT",
		ProviderAnthropic: "Claude",
		ProviderGemini:    "Gemini",
		ProviderXAI:       "Grok",
	}
	for p, want := range labels {
		if got := p.Label(); got != want {
			t.Errorf("%s.Label() = %q, want %q", p, got, want)
		}
		if !p.Known() {
			t.Errorf("%s should be known", p)
		}
	}

	unknown := ProviderName("mistral")
	if unknown.Known() {
		t.Error("mistral should not be known")
	}
	if unknown.Label() != "mistral" {
		t.Errorf("unknown label = %q, want raw name", unknown.Label())
	}

	if got := AllProviders(); len(got) != 4 || got[0] != ProviderOpenAI || got[3] != ProviderXAI {
		t.Errorf("AllProviders() = %v", got)
	}
}

func TestProviderConfigMerge(t *testing.T) {
	fallback := ProviderConfig{Model: "base", Temperature: Float64(0.2), MaxTokens: 1400}

	got := ProviderConfig{}.Merge(fallback)
	if got.Model != "base" || *got.Temperature != 0.2 || got.MaxTokens != 1400 {
		t.Errorf("empty merge = %+v", got)
	}

	override := ProviderConfig{Model: "custom", Temperature: Float64(0), MaxTokens: 10}
	got = override.Merge(fallback)
	if got.Model != "custom" || got.MaxTokens != 10 {
		t.Errorf("override merge = %+v", got)
	}
	if got.Temperature == nil || *got.Temperature != 0 {
		t.Errorf("explicit zero temperature should survive merge, got %v", got.Temperature)
	}
}

func TestProvidersConfigFor(t *testing.T) {
	cfg := ProvidersConfig{
		OpenAI:    ProviderConfig{Model: "o"},
		Anthropic: ProviderConfig{Model: "a"},
		Gemini:    ProviderConfig{Model: "g"},
		XAI:       ProviderConfig{Model: "x"},
	}
	want := map[ProviderName]string{
		ProviderOpenAI:    "o",
		ProviderAnthropic: "a",
		ProviderGemini:    "g",
		ProviderXAI:       "x",
		"mistral":         "",
	}
	for p, model := range want {
		if got := cfg.For(p).Model; got != model {
			t.Errorf("For(%s).Model = %q, want %q", p, got, model)
		}
	}
}

func TestAnsweredProviders(t *testing.T) {
	answers := []ProviderAnswer{
		{Provider: ProviderGemini},
		{Provider: ProviderOpenAI},
		{Provider: ProviderGemini},
		{},
	}
	got := AnsweredProviders(answers)
	want := []ProviderName{ProviderGemini, ProviderOpenAI}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AnsweredProviders() = %v, want %v", got, want)
	}
	if AnsweredProviders(nil) != nil {
		t.Error("expected nil for no answers")
	}
}

func TestProviderAnswerUsable(t *testing.T) {
	if !(ProviderAnswer{Text: "hello"}).Usable() {
		t.Error("answer with text should be usable")
	}
	if (ProviderAnswer{Text: "  \n"}).Usable() {
		t.Error("blank answer should not be usable")
	}
	if (ProviderAnswer{Text: "hello", Error: "call failed: boom"}).Usable() {
		t.Error("failed answer should not be usable")
	}
}

func TestFactAddProvider(t *testing.T) {
	f := Fact{ID: "f1", Text: "Water boils at 100C."}
	f.AddProvider(ProviderOpenAI)
	f.AddProvider(ProviderGemini)
	f.AddProvider(ProviderOpenAI)

	if f.Corroboration() != 2 {
		t.Errorf("Corroboration() = %d, want 2", f.Corroboration())
	}
	if !f.HasProvider(ProviderGemini) || f.HasProvider(ProviderXAI) {
		t.Errorf("unexpected providers %v", f.Providers)
	}
}

func TestSummaryMarshalEmitsEmptyArrays(t *testing.T) {
	data, err := json.Marshal(Summary{FinalAnswer: "ok", Sentences: []SummarySentence{{Text: "s", Confidence: 50}}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got := string(data)
	for _, want := range []string{
		`"keyFacts":[]`,
		`"disagreements":[]`,
		`"sources":[]`,
		`"citations":[]`,
		`"finalAnswer":"ok"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("marshaled summary missing %s: %s", want, got)
		}
	}
}

func TestSummaryMarshalPointer(t *testing.T) {
	rec := RunRecord{ID: "r1", Meta: &Summary{}}
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"meta":{"finalAnswer":"","keyFacts":[]`) {
		t.Errorf("unexpected record JSON: %s", data)
	}
}

func TestSourceIDs(t *testing.T) {
	ids := SourceIDs([]RetrievalSource{{ID: 1}, {ID: 3}})
	if len(ids) != 2 {
		t.Fatalf("len = %d, want 2", len(ids))
	}
	if _, ok := ids[3]; !ok {
		t.Error("missing id 3")
	}
	if _, ok := ids[2]; ok {
		t.Error("unexpected id 2")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Providers.Temperature != 0.2 || cfg.Providers.MaxTokens != 1400 {
		t.Errorf("provider defaults = %v/%d", cfg.Providers.Temperature, cfg.Providers.MaxTokens)
	}
	if len(cfg.Providers.Enabled) != 4 {
		t.Errorf("enabled = %v", cfg.Providers.Enabled)
	}
	if cfg.Retrieval.MaxResults != 6 {
		t.Errorf("retrieval max results = %d, want 6", cfg.Retrieval.MaxResults)
	}
	if cfg.History.Backend != "disk" {
		t.Errorf("history backend = %q", cfg.History.Backend)
	}
}

func TestRetrievalSource_JSONKeepsEmptyFields(t *testing.T) {
	data, err := json.Marshal(RetrievalSource{ID: 1, URL: "https://a.example"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"id":1,"title":"","url":"https://a.example","snippet":""}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}
