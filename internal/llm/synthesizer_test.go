package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAISynthesizer_Complete(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(chatResponse(`{"finalAnswer": "ok"}`))
	}))
	defer server.Close()

	s := NewOpenAISynthesizer("k", server.Client(), SynthesizerOptions{BaseURL: server.URL})
	out, err := s.Complete(context.Background(), "system rules", "user content")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if out != `{"finalAnswer": "ok"}` {
		t.Errorf("Unexpected output: %q", out)
	}

	format, _ := body["response_format"].(map[string]any)
	if format["type"] != "json_object" {
		t.Errorf("Expected json_object response format, got %v", body["response_format"])
	}
	if body["model"] != DefaultOpenAIModel {
		t.Errorf("Expected model %s, got %v", DefaultOpenAIModel, body["model"])
	}
	if body["max_completion_tokens"] != float64(900) {
		t.Errorf("Expected max_completion_tokens 900, got %v", body["max_completion_tokens"])
	}
}

func TestOpenAISynthesizer_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"message": "bad request"}}`))
	}))
	defer server.Close()

	s := NewOpenAISynthesizer("k", server.Client(), SynthesizerOptions{BaseURL: server.URL, Model: "gpt-4o"})
	if _, err := s.Complete(context.Background(), "s", "u"); err == nil {
		t.Fatal("Expected error")
	}
}

func TestOpenAISynthesizer_ZeroTemperatureIsSent(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(chatResponse(`{"finalAnswer": "ok"}`))
	}))
	defer server.Close()

	s := NewOpenAISynthesizer("k", server.Client(), SynthesizerOptions{BaseURL: server.URL, Model: "gpt-4o"})
	if _, err := s.Complete(context.Background(), "s", "u"); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	temp, ok := body["temperature"].(float64)
	if !ok || temp > 1e-6 {
		t.Errorf("Expected near-zero temperature in request body, got %v", body["temperature"])
	}
	if body["max_tokens"] != float64(900) {
		t.Errorf("Expected max_tokens 900, got %v", body["max_tokens"])
	}
}
