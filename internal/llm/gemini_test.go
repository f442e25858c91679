package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ppiankov/chorus/internal/model"
)

func TestGeminiProvider_Call_Success(t *testing.T) {
	var got geminiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/gemini-2.5-flash:generateContent" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "g-key" {
			t.Errorf("Expected key query parameter, got %q", r.URL.Query().Get("key"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"candidates": [{"content": {"parts": [{"text": "Hello "}, {"text": "world."}]}}]}`))
	}))
	defer server.Close()

	p := NewGeminiProvider(server.URL, server.Client())
	ans := p.Call(context.Background(), model.ProviderRequest{
		Prompt:       "Say hello",
		SystemPrompt: "Be polite.",
		Temperature:  0.35,
		MaxTokens:    1000,
	}, "g-key")

	if ans.Error != "" {
		t.Fatalf("Unexpected error: %s", ans.Error)
	}
	if ans.Text != "Hello world." {
		t.Errorf("Unexpected text: %q", ans.Text)
	}
	if got.SystemInstruction == nil || got.SystemInstruction.Parts[0].Text != "Be polite." {
		t.Errorf("Expected systemInstruction, got %+v", got.SystemInstruction)
	}
	if got.GenerationConfig.Temperature != 0.35 || got.GenerationConfig.MaxOutputTokens != 1000 {
		t.Errorf("Unexpected generation config: %+v", got.GenerationConfig)
	}
	if len(got.Contents) != 1 || got.Contents[0].Role != "user" {
		t.Errorf("Unexpected contents: %+v", got.Contents)
	}
}

func TestGeminiProvider_Call_NoSystemInstruction(t *testing.T) {
	var raw map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&raw)
		_, _ = w.Write([]byte(`{"candidates": [{"content": {"parts": [{"text": "ok"}]}}]}`))
	}))
	defer server.Close()

	NewGeminiProvider(server.URL, server.Client()).Call(context.Background(), model.ProviderRequest{Prompt: "q"}, "k")
	if _, ok := raw["systemInstruction"]; ok {
		t.Error("Did not expect systemInstruction for an empty system prompt")
	}
}

func TestGeminiProvider_Call_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"code": 400, "message": "API key not valid", "status": "INVALID_ARGUMENT"}}`))
	}))
	defer server.Close()

	ans := NewGeminiProvider(server.URL, server.Client()).Call(context.Background(), model.ProviderRequest{Prompt: "q"}, "bad")
	if ans.Error != "Gemini 400: API key not valid" {
		t.Errorf("Unexpected error: %q", ans.Error)
	}
}

func TestGeminiProvider_Call_TransportErrorHidesKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	ans := NewGeminiProvider(url, &http.Client{}).Call(context.Background(), model.ProviderRequest{Prompt: "q"}, "secret-key")
	if ans.Error == "" {
		t.Fatal("Expected transport error")
	}
	if strings.Contains(ans.Error, "secret-key") {
		t.Errorf("Error leaks API key: %q", ans.Error)
	}
}

func TestGeminiProvider_Call_ParseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer server.Close()

	ans := NewGeminiProvider(server.URL, server.Client()).Call(context.Background(), model.ProviderRequest{Prompt: "q"}, "k")
	if !strings.HasPrefix(ans.Error, "Gemini parse error") {
		t.Errorf("Unexpected error: %q", ans.Error)
	}
}
