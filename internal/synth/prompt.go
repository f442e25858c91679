package synth

import (
	"fmt"
	"strings"

	"github.com/ppiankov/chorus/internal/extract"
	"github.com/ppiankov/chorus/internal/model"
)

// maxPromptSources bounds the web sources embedded in the synthesis request
const maxPromptSources = 10

// SystemPrompt is the instruction sent with every delegated synthesis call
const SystemPrompt = `You are a meta-summarizer for a multi-provider AI app.

GOAL:
Given a user prompt, multiple provider answers, and optional web snippets, produce the best possible final answer.

RULES:
- Do NOT refuse unless the user request is genuinely unsafe or prohibited.
- Answer directly when possible.
- Prefer provider answers over snippets when they conflict.
- If answers conflict, explicitly note the disagreement and choose the most likely correct option.
- Do not invent facts. If unsure, clearly state uncertainty and what would confirm it.
- Write a helpful answer that is NOT overly short.

OUTPUT REQUIREMENTS:
Return STRICT JSON (no markdown) with this schema ONLY:
{
  "finalAnswer": string,                 // 8-12 sentences, readable
  "keyFacts": string[],                  // 6-12 bullets, no duplicates
  "sentences": { "text": string, "citations": number[], "confidence": number }[],
  "disagreements": string[]              // list conflicts/uncertainties
}

CITATIONS:
- citations is an array of web source ids like [1,2].
- Only use ids listed under WEB SOURCES.
- If no web snippets were provided, citations should be [].

CONFIDENCE:
- 0..100 integer.

Keep JSON valid. Do NOT include any additional keys.`

// BuildUserContent assembles the user message for delegated synthesis
func BuildUserContent(in Input, partitionLimit int) string {
	consensus, unique := extract.Partition(in.Facts, partitionLimit)

	var b strings.Builder
	b.WriteString("USER PROMPT:\n")
	b.WriteString(strings.TrimSpace(in.Prompt))
	b.WriteString("\n\nPROVIDER ANSWERS:\n")
	b.WriteString(orNone(providerSection(in.Answers)))
	b.WriteString("\n\nCONSENSUS FACTS:\n")
	b.WriteString(orNone(factSection(consensus)))
	b.WriteString("\n\nUNIQUE FACTS:\n")
	b.WriteString(orNone(factSection(unique)))
	b.WriteString("\n\nWEB SOURCES (optional):\n")
	b.WriteString(orNone(sourceSection(in.Sources)))
	return b.String()
}

func providerSection(answers []model.ProviderAnswer) string {
	blocks := make([]string, 0, len(answers))
	for _, a := range answers {
		text := strings.TrimSpace(a.Text)
		errText := strings.TrimSpace(a.Error)

		status := "OK"
		switch {
		case errText != "":
			status = "ERROR: " + errText
		case text == "":
			status = "EMPTY"
		}

		modelName := a.Model
		if modelName == "" {
			modelName = "n/a"
		}

		lines := []string{
			"PROVIDER: " + string(a.Provider),
			"MODEL: " + modelName,
			"STATUS: " + status,
		}
		if text != "" && errText == "" {
			lines = append(lines, "ANSWER:\n"+text)
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return strings.Join(blocks, "\n\n---\n\n")
}

func factSection(facts []model.Fact) string {
	lines := make([]string, 0, len(facts))
	for _, f := range facts {
		names := make([]string, len(f.Providers))
		for i, p := range f.Providers {
			names[i] = string(p)
		}
		lines = append(lines, fmt.Sprintf("- %s (%s)", f.Text, strings.Join(names, ", ")))
	}
	return strings.Join(lines, "\n")
}

func sourceSection(sources []model.RetrievalSource) string {
	if len(sources) > maxPromptSources {
		sources = sources[:maxPromptSources]
	}
	blocks := make([]string, 0, len(sources))
	for _, s := range sources {
		title := strings.TrimSpace(s.Title)
		if title == "" {
			title = "Source"
		}
		lines := []string{fmt.Sprintf("[%d] %s", s.ID, title)}
		if url := strings.TrimSpace(s.URL); url != "" {
			lines = append(lines, url)
		}
		if snippet := strings.TrimSpace(s.Snippet); snippet != "" {
			lines = append(lines, "SNIPPET:\n"+snippet)
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return strings.Join(blocks, "\n\n")
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
