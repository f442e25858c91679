// Package retrieval fetches web search results used as citable evidence.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/chorus/internal/model"
)

// DefaultMaxResults caps a search when the caller passes no limit
const DefaultMaxResults = 6

// Collector runs one web search. Search never fails: any problem yields no sources.
type Collector interface {
	Search(ctx context.Context, query string, maxResults int) []model.RetrievalSource
}

// Disabled is a Collector that never returns sources
type Disabled struct{}

// Search implements Collector
func (Disabled) Search(context.Context, string, int) []model.RetrievalSource {
	return nil
}

// FormatSourcesBlock renders sources as the block appended to the user prompt
func FormatSourcesBlock(sources []model.RetrievalSource) string {
	if len(sources) == 0 {
		return ""
	}

	entries := make([]string, 0, len(sources))
	for _, s := range sources {
		line := fmt.Sprintf("[%d] %s", s.ID, strings.TrimSpace(s.Title))
		if u := strings.TrimSpace(s.URL); u != "" {
			line += " - " + u
		}
		entries = append(entries, line+"\n"+strings.TrimSpace(s.Snippet))
	}

	return "\n\nSOURCES (use these as evidence and cite as [1], [2], etc.):\n\n" +
		strings.Join(entries, "\n\n") + "\n"
}

// FormatEvidenceBlock renders sources as the block added to an expansion system prompt
func FormatEvidenceBlock(sources []model.RetrievalSource) string {
	if len(sources) == 0 {
		return ""
	}

	entries := make([]string, 0, len(sources))
	for _, s := range sources {
		line := fmt.Sprintf("Source [%d] %s", s.ID, strings.TrimSpace(s.Title))
		if u := strings.TrimSpace(s.URL); u != "" {
			line += " (" + u + ")"
		}
		entries = append(entries, line+"\n"+strings.TrimSpace(s.Snippet))
	}

	return "WEB EVIDENCE (use as evidence only):\n" +
		"- Do NOT mention snippets/web results/Tavily.\n" +
		"- Synthesize in your own words.\n\n" +
		strings.Join(entries, "\n\n") + "\n"
}
