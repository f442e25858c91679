package retrieval

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/ppiankov/chorus/internal/credential"
	"github.com/ppiankov/chorus/internal/model"
)

func TestTavily_Search(t *testing.T) {
	var got tavilyRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("Expected path /search, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tvly-key" {
			t.Errorf("Unexpected Authorization header %q", r.Header.Get("Authorization"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"results": [
			{"title": "Tower facts", "url": "https://a.example", "content": "The tower has <b>60</b> floors &amp; a spire."},
			{"title": "Empty", "url": "https://b.example", "content": "   "},
			{"title": "", "url": " https://c.example ", "content": "Opened in 2010."}
		]}`))
	}))
	defer server.Close()

	tv := NewTavily(server.URL, server.Client(), credential.Static{"tavily": "tvly-key"}, zaptest.NewLogger(t))
	sources := tv.Search(context.Background(), "tower height", 0)

	if got.Query != "tower height" || got.MaxResults != DefaultMaxResults || got.SearchDepth != "basic" {
		t.Errorf("Unexpected request: %+v", got)
	}
	if got.IncludeAnswer || got.IncludeRawContent {
		t.Errorf("Expected include flags false, got %+v", got)
	}

	want := []model.RetrievalSource{
		{ID: 1, Title: "Tower facts", URL: "https://a.example", Snippet: "The tower has 60 floors & a spire."},
		{ID: 2, Title: "Source 2", URL: "https://c.example", Snippet: "Opened in 2010."},
	}
	if len(sources) != len(want) {
		t.Fatalf("Expected %d sources, got %d: %+v", len(want), len(sources), sources)
	}
	for i := range want {
		if sources[i] != want[i] {
			t.Errorf("sources[%d] = %+v, want %+v", i, sources[i], want[i])
		}
	}
}

func TestTavily_Search_NoKey(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	tv := NewTavily(server.URL, server.Client(), credential.Static{}, zaptest.NewLogger(t))
	if sources := tv.Search(context.Background(), "q", 3); len(sources) != 0 {
		t.Errorf("Expected no sources, got %+v", sources)
	}
	if called {
		t.Error("Expected no request without a key")
	}
}

func TestTavily_Search_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"non-2xx", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail": "invalid key"}`))
		}},
		{"bad json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			tv := NewTavily(server.URL, server.Client(), credential.Static{"tavily": "k"}, zaptest.NewLogger(t))
			if sources := tv.Search(context.Background(), "q", 3); sources != nil {
				t.Errorf("Expected nil sources, got %+v", sources)
			}
		})
	}
}

func TestTavily_Search_CapsResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results": [
			{"title": "a", "content": "one"},
			{"title": "b", "content": "two"},
			{"title": "c", "content": "three"}
		]}`))
	}))
	defer server.Close()

	tv := NewTavily(server.URL, server.Client(), credential.Static{"tavily": "k"}, nil)
	sources := tv.Search(context.Background(), "q", 2)
	if len(sources) != 2 || sources[1].ID != 2 {
		t.Errorf("Expected two sources numbered 1..2, got %+v", sources)
	}
}

func TestDisabled_Search(t *testing.T) {
	if got := (Disabled{}).Search(context.Background(), "q", 5); got != nil {
		t.Errorf("Expected nil, got %+v", got)
	}
}

func TestFormatSourcesBlock(t *testing.T) {
	if got := FormatSourcesBlock(nil); got != "" {
		t.Errorf("Expected empty block, got %q", got)
	}

	got := FormatSourcesBlock([]model.RetrievalSource{
		{ID: 1, Title: "Tower facts", URL: "https://a.example", Snippet: "60 floors."},
		{ID: 2, Title: "No URL", Snippet: "Opened in 2010."},
	})
	want := "\n\nSOURCES (use these as evidence and cite as [1], [2], etc.):\n\n" +
		"[1] Tower facts - https://a.example\n60 floors.\n\n" +
		"[2] No URL\nOpened in 2010.\n"
	if got != want {
		t.Errorf("FormatSourcesBlock() =\n%q\nwant\n%q", got, want)
	}
}

func TestFormatEvidenceBlock(t *testing.T) {
	if got := FormatEvidenceBlock(nil); got != "" {
		t.Errorf("Expected empty block, got %q", got)
	}

	got := FormatEvidenceBlock([]model.RetrievalSource{
		{ID: 1, Title: "Tower facts", URL: "https://a.example", Snippet: "60 floors."},
	})
	want := "WEB EVIDENCE (use as evidence only):\n" +
		"- Do NOT mention snippets/web results/Tavily.\n" +
		"- Synthesize in your own words.\n\n" +
		"Source [1] Tower facts (https://a.example)\n60 floors.\n"
	if got != want {
		t.Errorf("FormatEvidenceBlock() =\n%q\nwant\n%q", got, want)
	}
}

func TestPlainText(t *testing.T) {
	tests := map[string]string{
		"plain text":                     "plain text",
		"  padded  ":                     "padded",
		"<p>Hello <i>world</i></p>":      "Hello world",
		"a <script>alert(1)</script>b":   "a b",
		"Fish &amp; chips":               "Fish & chips",
		"":                               "",
		"<div>\n  multi\n  line\n</div>": "multi line",
	}
	for in, want := range tests {
		if got := plainText(in); got != want {
			t.Errorf("plainText(%q) = %q, want %q", in, got, want)
		}
	}
}
