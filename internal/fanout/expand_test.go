package fanout

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/chorus/internal/model"
)

func TestParseFocus(t *testing.T) {
	assert.Equal(t, FocusSize, ParseFocus("SIZE"))
	assert.Equal(t, FocusTimeline, ParseFocus(" timeline "))
	assert.Equal(t, FocusGeneral, ParseFocus(""))
	assert.Equal(t, FocusGeneral, ParseFocus("vibes"))
}

func TestDeepenPrompt(t *testing.T) {
	got := DeepenPrompt(model.ProviderOpenAI, "Who built it?", "Acme built it.", FocusTeam)
	want := "You are expanding your prior answer with more detail.\n" +
		"Constraints:\n" +
		"- Do NOT mention snippets/web results/Tavily.\n" +
		"- Prefer concrete names, dates, numbers.\n" +
		"- Avoid repeating your previous sentences.\n" +
		"- Focus on who built it: developer/owner, architect, general contractor, engineers.\n" +
		"- Name companies and people; be precise.\n" +
		"\nOriginal question:\nWho built it?\n\nYour previous answer:\nAcme built it.\n"
	assert.Equal(t, want, got)
}

func TestDeepenPrompt_GeminiAndNoPrevious(t *testing.T) {
	got := DeepenPrompt(model.ProviderGemini, "q", "  ", FocusGeneral)
	assert.Contains(t, got, "reply exactly: 'No additional confirmed facts found.'\n")
	assert.True(t, strings.HasSuffix(got, "Your previous answer:\n(none)\n"))
	assert.Contains(t, got, "- Add more useful factual detail without being verbose.\n")
}

func TestExpand(t *testing.T) {
	collector := &fakeCollector{sources: []model.RetrievalSource{{ID: 1, Title: "T", URL: "https://a.example", Snippet: "S"}}}
	openai := &fakeAdapter{name: model.ProviderOpenAI, text: "More detail."}
	gemini := &fakeAdapter{name: model.ProviderGemini, text: NoNewFactsReply}

	o := newTestOrchestrator(t, Config{Credentials: allKeys(), Retriever: collector}, openai, gemini)

	results, err := o.Expand(context.Background(), ExpandRequest{
		OriginalPrompt: "How big is it?",
		Previous: []model.ProviderAnswer{
			{Provider: model.ProviderOpenAI, Text: "It is big."},
		},
		Providers:    []model.ProviderName{"gemini", "openai", "mistral"},
		SystemPrompt: "Be terse.",
		UseRetrieval: true,
		Focus:        FocusSize,
		Configs: map[model.ProviderName]model.ProviderConfig{
			model.ProviderOpenAI: {MaxTokens: 200},
		},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, NoNewFactsReply, results[0].Text)
	assert.Equal(t, "More detail.", results[1].Text)
	assert.Equal(t, "unknown provider: mistral", results[2].Error)

	req := openai.lastRequest(t)
	assert.Contains(t, req.Prompt, "Your previous answer:\nIt is big.\n")
	assert.Contains(t, req.Prompt, "- Focus on quantitative specs")
	assert.NotContains(t, req.Prompt, "IMPORTANT")
	assert.Equal(t, 200, req.MaxTokens)
	assert.Equal(t, ExpandTemperature, req.Temperature)
	assert.True(t, strings.HasPrefix(req.SystemPrompt, "Be terse.\n\nWEB EVIDENCE (use as evidence only):\n"), req.SystemPrompt)
	assert.Contains(t, req.SystemPrompt, "Source [1] T (https://a.example)\nS\n")

	req = gemini.lastRequest(t)
	assert.Contains(t, req.Prompt, "IMPORTANT: Only add NEW factual details")
	assert.Contains(t, req.Prompt, "Your previous answer:\n(none)\n")
	assert.Equal(t, ExpandMaxTokens, req.MaxTokens)
}

func TestExpand_NoRetrievalNoSystemPrompt(t *testing.T) {
	openai := &fakeAdapter{name: model.ProviderOpenAI, text: "x"}
	o := newTestOrchestrator(t, Config{Credentials: allKeys()}, openai)

	_, err := o.Expand(context.Background(), ExpandRequest{OriginalPrompt: "q", Providers: []model.ProviderName{"openai"}})
	require.NoError(t, err)
	assert.Equal(t, "", openai.lastRequest(t).SystemPrompt)
}

func TestExpand_Validation(t *testing.T) {
	o := newTestOrchestrator(t, Config{})

	_, err := o.Expand(context.Background(), ExpandRequest{Providers: []model.ProviderName{"openai"}})
	assert.ErrorIs(t, err, ErrMissingPrompt)

	_, err = o.Expand(context.Background(), ExpandRequest{OriginalPrompt: "q"})
	assert.ErrorIs(t, err, ErrNoProviders)
}
