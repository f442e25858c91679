package llm

import (
	"net/http"
	"testing"

	"github.com/ppiankov/chorus/internal/model"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry(model.BaseURLs{}, http.DefaultClient)

	names := r.Names()
	want := model.AllProviders()
	if len(names) != len(want) {
		t.Fatalf("Expected %d adapters, got %d", len(want), len(names))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %s, want %s", i, names[i], want[i])
		}
	}

	defaults := map[model.ProviderName]string{
		model.ProviderOpenAI:    "gpt-5.2",
		model.ProviderAnthropic: "claude-sonnet-4-5",
		model.ProviderGemini:    "gemini-2.5-flash",
		model.ProviderXAI:       "grok-3",
	}
	for name, m := range defaults {
		a, ok := r.Lookup(name)
		if !ok {
			t.Fatalf("Lookup(%s) missing", name)
		}
		if a.DefaultModel() != m {
			t.Errorf("%s default model = %s, want %s", name, a.DefaultModel(), m)
		}
	}

	if _, ok := r.Lookup("mistral"); ok {
		t.Error("Expected unknown provider lookup to fail")
	}
}

func TestNewRegistry_ReplacesDuplicate(t *testing.T) {
	first := NewOpenAIProvider("http://one", nil)
	second := NewOpenAIProvider("http://two", nil)
	r := NewRegistry(first, second)

	if len(r.Names()) != 1 {
		t.Fatalf("Expected one name, got %v", r.Names())
	}
	a, _ := r.Lookup(model.ProviderOpenAI)
	if a != Adapter(second) {
		t.Error("Expected later adapter to win")
	}
}
