package fanout

import (
	"context"
	"strings"

	"github.com/ppiankov/chorus/internal/model"
	"github.com/ppiankov/chorus/internal/retrieval"
)

// Focus narrows what an expansion should add
type Focus string

const (
	FocusGeneral  Focus = "general"
	FocusSize     Focus = "size"
	FocusTeam     Focus = "team"
	FocusTimeline Focus = "timeline"
	FocusNaming   Focus = "naming"
)

// ParseFocus maps a name to a Focus; unknown names select FocusGeneral
func ParseFocus(s string) Focus {
	switch f := Focus(strings.ToLower(strings.TrimSpace(s))); f {
	case FocusSize, FocusTeam, FocusTimeline, FocusNaming:
		return f
	}
	return FocusGeneral
}

// Expansion generation defaults
const (
	ExpandTemperature = 0.35
	ExpandMaxTokens   = 1000
)

// NoNewFactsReply is the exact reply Gemini is asked to give when it has nothing to add
const NoNewFactsReply = "No additional confirmed facts found."

// ExpandRequest asks each provider to deepen its previous answer
type ExpandRequest struct {
	OriginalPrompt string
	Previous       []model.ProviderAnswer
	Providers      []model.ProviderName
	APIKeys        map[model.ProviderName]string
	Configs        map[model.ProviderName]model.ProviderConfig
	SystemPrompt   string
	UseRetrieval   bool
	Focus          Focus
}

// Expand sends each provider its own previous answer with a deepen prompt.
// Results follow req.Providers order and use the same error taxonomy as Run.
func (o *Orchestrator) Expand(ctx context.Context, req ExpandRequest) ([]model.ProviderAnswer, error) {
	original := strings.TrimSpace(req.OriginalPrompt)
	if original == "" {
		return nil, ErrMissingPrompt
	}
	if len(req.Providers) == 0 {
		return nil, ErrNoProviders
	}

	var sources []model.RetrievalSource
	if req.UseRetrieval {
		sources = o.cfg.Retriever.Search(ctx, original, o.cfg.Defaults.MaxSources)
	}

	system := ""
	if s := strings.TrimSpace(req.SystemPrompt); s != "" {
		system = s + "\n\n"
	}
	system += retrieval.FormatEvidenceBlock(sources)

	previous := make(map[model.ProviderName]string, len(req.Previous))
	for _, ans := range req.Previous {
		if _, seen := previous[ans.Provider]; !seen {
			previous[ans.Provider] = ans.Text
		}
	}

	focus := ParseFocus(string(req.Focus))
	creds := o.resolver(req.APIKeys)

	return o.fanOut(ctx, req.Providers, creds, func(p model.ProviderName) model.ProviderRequest {
		cfg := req.Configs[p].
			Merge(model.ProviderConfig{Model: o.cfg.Defaults.PerProvider[p].Model}).
			Merge(model.ProviderConfig{Temperature: model.Float64(ExpandTemperature), MaxTokens: ExpandMaxTokens})
		return model.ProviderRequest{
			Prompt:       DeepenPrompt(p, original, previous[p], focus),
			SystemPrompt: system,
			Model:        cfg.Model,
			Temperature:  *cfg.Temperature,
			MaxTokens:    cfg.MaxTokens,
		}
	}), nil
}

// DeepenPrompt builds the expansion prompt for one provider
func DeepenPrompt(p model.ProviderName, original, previous string, focus Focus) string {
	var sb strings.Builder
	sb.WriteString("You are expanding your prior answer with more detail.\n")
	if p == model.ProviderGemini {
		sb.WriteString("IMPORTANT: Only add NEW factual details not already present in your previous answer. ")
		sb.WriteString("If you cannot add any confirmed new facts, reply exactly: '" + NoNewFactsReply + "'\n")
	}
	sb.WriteString("Constraints:\n")
	sb.WriteString("- Do NOT mention snippets/web results/Tavily.\n")
	sb.WriteString("- Prefer concrete names, dates, numbers.\n")
	sb.WriteString("- Avoid repeating your previous sentences.\n")
	sb.WriteString(focusInstructions(focus))
	sb.WriteString("\nOriginal question:\n")
	sb.WriteString(original)
	sb.WriteString("\n\nYour previous answer:\n")
	if strings.TrimSpace(previous) == "" {
		previous = "(none)"
	}
	sb.WriteString(previous)
	sb.WriteString("\n")
	return sb.String()
}

func focusInstructions(f Focus) string {
	switch f {
	case FocusSize:
		return "- Focus on quantitative specs: square footage (range if uncertain), floors, rentable area.\n" +
			"- If multiple numbers exist, list the range and say which source/provider reported it.\n"
	case FocusTeam:
		return "- Focus on who built it: developer/owner, architect, general contractor, engineers.\n" +
			"- Name companies and people; be precise.\n"
	case FocusTimeline:
		return "- Focus on timeline: groundbreaking/start, completion/opening, major renovations/renames.\n" +
			"- Include years and sequence.\n"
	case FocusNaming:
		return "- Focus on alternate names and branding: prior/current names and why/when they changed.\n"
	default:
		return "- Add more useful factual detail without being verbose.\n" +
			"- Prefer concrete numbers, names, dates.\n"
	}
}
