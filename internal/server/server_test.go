package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ppiankov/chorus/internal/cache"
	"github.com/ppiankov/chorus/internal/fanout"
	"github.com/ppiankov/chorus/internal/history"
	"github.com/ppiankov/chorus/internal/model"
	"github.com/ppiankov/chorus/internal/synth"
)

type fakeBackend struct {
	runReq       fanout.RunRequest
	summarizeReq fanout.SummarizeRequest
	expandReq    fanout.ExpandRequest
	runErr       error
	panicOnRun   bool
}

func (f *fakeBackend) Run(_ context.Context, req fanout.RunRequest) (*fanout.RunResult, error) {
	if f.panicOnRun {
		panic("boom")
	}
	f.runReq = req
	if f.runErr != nil {
		return nil, f.runErr
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, fanout.ErrMissingPrompt
	}
	res := &fanout.RunResult{ID: "run-1"}
	for _, p := range req.Providers {
		res.Results = append(res.Results, model.ProviderAnswer{Provider: p, Model: "m", Text: "answer"})
	}
	if req.UseRetrieval {
		res.Sources = []model.RetrievalSource{{ID: 1, Title: "T", URL: "https://a.example", Snippet: "S"}}
		res.UsedRetrieval = true
	}
	if req.Summarize {
		res.Summary = &synth.Result{
			Summary:  model.Summary{FinalAnswer: "final"},
			Strategy: synth.StrategyDeterministic,
		}
	}
	return res, nil
}

func (f *fakeBackend) Summarize(_ context.Context, req fanout.SummarizeRequest) (synth.Result, error) {
	f.summarizeReq = req
	if strings.TrimSpace(req.Prompt) == "" {
		return synth.Result{}, fanout.ErrMissingPrompt
	}
	return synth.Result{
		Summary:  model.Summary{FinalAnswer: "The tower has 60 floors.", Sources: req.Sources},
		Strategy: synth.StrategyDelegated,
	}, nil
}

func (f *fakeBackend) Expand(_ context.Context, req fanout.ExpandRequest) ([]model.ProviderAnswer, error) {
	f.expandReq = req
	if strings.TrimSpace(req.OriginalPrompt) == "" {
		return nil, fanout.ErrMissingPrompt
	}
	if len(req.Providers) == 0 {
		return nil, fanout.ErrNoProviders
	}
	out := make([]model.ProviderAnswer, 0, len(req.Providers))
	for _, p := range req.Providers {
		out = append(out, model.ProviderAnswer{Provider: p, Text: "more"})
	}
	return out, nil
}

func (f *fakeBackend) Status(context.Context) fanout.Status {
	return fanout.Status{
		"openai":    {Configured: true, Models: []string{"gpt-5.2"}},
		"anthropic": {Configured: false},
		"tavily":    {Configured: false},
	}
}

func newTestServer(t *testing.T, backend Backend, hist HistoryReader) *httptest.Server {
	t.Helper()
	srv := New(backend, Options{History: hist, Logger: zaptest.NewLogger(t)})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, ts *httptest.Server, path, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func get(t *testing.T, ts *httptest.Server, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestQuery_DefaultsToAllProviders(t *testing.T) {
	backend := &fakeBackend{}
	ts := newTestServer(t, backend, nil)

	resp, body := post(t, ts, "/api/query", `{"prompt": "How tall is it?"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	assert.Equal(t, model.AllProviders(), backend.runReq.Providers)

	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, true, out["ok"])
	assert.Equal(t, "run-1", out["id"])
	assert.Equal(t, false, out["usedRetrieval"])
	assert.Equal(t, []any{}, out["snippets"])
	assert.Len(t, out["results"], 4)
	assert.NotContains(t, out, "summary")
}

func TestQuery_PassesRequestThrough(t *testing.T) {
	backend := &fakeBackend{}
	ts := newTestServer(t, backend, nil)

	resp, body := post(t, ts, "/api/query", `{
		"prompt": "q",
		"providers": ["claude", "gemini"],
		"apiKeys": {"anthropic": "sk-a"},
		"providerConfigs": {"gemini": {"model": "gemini-2.5-pro", "temperature": 0.7, "maxTokens": 300}},
		"useRetrieval": true,
		"systemPrompt": "Be brief.",
		"summarize": true
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	req := backend.runReq
	assert.Equal(t, []model.ProviderName{"anthropic", "gemini"}, req.Providers)
	assert.Equal(t, "sk-a", req.APIKeys[model.ProviderAnthropic])
	assert.Equal(t, "gemini-2.5-pro", req.Configs[model.ProviderGemini].Model)
	require.NotNil(t, req.Configs[model.ProviderGemini].Temperature)
	assert.Equal(t, 0.7, *req.Configs[model.ProviderGemini].Temperature)
	assert.Equal(t, 300, req.Configs[model.ProviderGemini].MaxTokens)
	assert.True(t, req.UseRetrieval)
	assert.True(t, req.Summarize)
	assert.Equal(t, "Be brief.", req.SystemPrompt)

	var out queryResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.True(t, out.UsedRetrieval)
	assert.Len(t, out.Snippets, 1)
	require.NotNil(t, out.Summary)
	assert.Equal(t, "final", out.Summary.FinalAnswer)
	assert.Equal(t, "deterministic", out.SummaryStrategy)
}

func TestQuery_BadRequests(t *testing.T) {
	ts := newTestServer(t, &fakeBackend{}, nil)

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"invalid json", `{"prompt": `, "invalid JSON body"},
		{"wrong type", `{"prompt": 42}`, "invalid JSON body"},
		{"missing prompt", `{"prompt": "   "}`, "Missing prompt"},
		{"temperature out of range", `{"prompt": "q", "providerConfigs": {"openai": {"temperature": 3}}}`, "temperature failed lte=2"},
		{"max tokens out of range", `{"prompt": "q", "providerConfigs": {"xai": {"maxTokens": 64000}}}`, "maxTokens failed lte=32000"},
		{"unknown top-level field", `{"prompt": "q", "bogus": 1}`, `unknown field "bogus"`},
		{"unknown provider config field", `{"prompt": "q", "providerConfigs": {"openai": {"model": "x", "topP": 0.9}}}`, `unknown field "topP"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := post(t, ts, "/api/query", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var out errorResponse
			require.NoError(t, json.Unmarshal(body, &out))
			assert.False(t, out.OK)
			assert.Contains(t, out.Error, tt.wantErr)
		})
	}
}

func TestQuery_PanicRecovered(t *testing.T) {
	ts := newTestServer(t, &fakeBackend{panicOnRun: true}, nil)

	resp, body := post(t, ts, "/api/query", `{"prompt": "q"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, string(body), "Internal Server Error")
}

func TestMetaSummary(t *testing.T) {
	backend := &fakeBackend{}
	ts := newTestServer(t, backend, nil)

	resp, body := post(t, ts, "/api/meta-summary", `{
		"prompt": "How tall?",
		"results": [{"provider": "openai", "model": "gpt-5.2", "text": "60 floors", "latencyMs": 12}],
		"sources": [{"id": 1, "title": "T", "url": "https://a.example", "snippet": "S"}]
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "delegated", resp.Header.Get("X-Summary-Strategy"))

	require.Len(t, backend.summarizeReq.Answers, 1)
	assert.Equal(t, "60 floors", backend.summarizeReq.Answers[0].Text)

	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "The tower has 60 floors.", out["finalAnswer"])
	for _, key := range []string{"keyFacts", "sentences", "disagreements"} {
		assert.Equal(t, []any{}, out[key], key)
	}
	assert.Len(t, out["sources"], 1)

	resp, body = post(t, ts, "/api/meta-summary", `{"prompt": ""}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "Missing prompt")
}

func TestExpand(t *testing.T) {
	backend := &fakeBackend{}
	ts := newTestServer(t, backend, nil)

	resp, body := post(t, ts, "/api/expand", `{
		"originalPrompt": "Who built it?",
		"results": [
			{"provider": "gemini", "text": "Acme"},
			{"provider": "openai", "text": "Acme Corp"},
			{"provider": "gemini", "text": "dup"}
		],
		"focus": "TEAM"
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	req := backend.expandReq
	assert.Equal(t, []model.ProviderName{"gemini", "openai"}, req.Providers)
	assert.True(t, req.UseRetrieval, "retrieval defaults to on")
	assert.Equal(t, fanout.FocusTeam, req.Focus)
	assert.Len(t, req.Previous, 3)

	var out expandResponse
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out.Results, 2)
	assert.Equal(t, "more", out.Results[0].Text)
}

func TestExpand_Errors(t *testing.T) {
	backend := &fakeBackend{}
	ts := newTestServer(t, backend, nil)

	resp, _ := post(t, ts, "/api/expand", `{"results": [{"provider": "openai"}]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := post(t, ts, "/api/expand", `{"originalPrompt": "q", "results": []}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "No providers requested")

	resp, _ = post(t, ts, "/api/expand", `{"originalPrompt": "q", "providers": ["xai"], "useRetrieval": false}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, backend.expandReq.UseRetrieval)

	resp, body = post(t, ts, "/api/expand", `{"originalPrompt": "q", "results": [{"provider": "xai", "ok": true}]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), `unknown field \"ok\"`)
}

func TestConfig(t *testing.T) {
	ts := newTestServer(t, &fakeBackend{}, nil)

	resp, body := get(t, ts, "/api/config")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		OK     bool `json:"ok"`
		Status map[string]struct {
			Configured bool      `json:"configured"`
			Models     *[]string `json:"models"`
		} `json:"status"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.True(t, out.OK)
	assert.True(t, out.Status["openai"].Configured)
	require.NotNil(t, out.Status["openai"].Models)
	assert.Equal(t, []string{"gpt-5.2"}, *out.Status["openai"].Models)
	assert.Nil(t, out.Status["anthropic"].Models)
	assert.Contains(t, out.Status, "tavily")
}

func TestHistory(t *testing.T) {
	store := history.NewStore(cache.NewMemoryCache(time.Hour, time.Minute), time.Hour, 10)
	require.NoError(t, store.Save(model.RunRecord{ID: "a", Timestamp: 1, Prompt: "first", Fingerprint: "fp1"}))
	require.NoError(t, store.Save(model.RunRecord{ID: "b", Timestamp: 2, Prompt: "second", Fingerprint: "fp2"}))

	ts := newTestServer(t, &fakeBackend{}, store)

	resp, body := get(t, ts, "/api/history")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list historyResponse
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list.Runs, 2)
	assert.Equal(t, "b", list.Runs[0].ID)

	resp, body = get(t, ts, "/api/history?fingerprint=fp1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list.Runs, 1)
	assert.Equal(t, "a", list.Runs[0].ID)

	resp, body = get(t, ts, "/api/history/a")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rec model.RunRecord
	require.NoError(t, json.Unmarshal(body, &rec))
	assert.Equal(t, "first", rec.Prompt)

	resp, _ = get(t, ts, "/api/history/missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHistory_Disabled(t *testing.T) {
	ts := newTestServer(t, &fakeBackend{}, nil)

	resp, body := get(t, ts, "/api/history")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"runs": []`)

	resp, _ = get(t, ts, "/api/history/a")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, &fakeBackend{}, nil)

	resp, body := get(t, ts, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	resp, body = get(t, ts, "/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestListenAndServe_StopsOnCancel(t *testing.T) {
	srv := New(&fakeBackend{}, Options{Logger: zaptest.NewLogger(t)})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
