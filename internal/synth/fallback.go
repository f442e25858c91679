package synth

import (
	"fmt"
	"strings"

	"github.com/ppiankov/chorus/internal/extract"
	"github.com/ppiankov/chorus/internal/model"
)

// NothingToSummarize opens the final answer when no provider produced usable text
const NothingToSummarize = "Nothing could be summarized: no provider returned usable text."

// Deterministic assembles a summary from the ranked facts without any LLM call.
// Consensus facts become key facts; single-provider facts are listed as unique details.
func Deterministic(in Input, partitionLimit int, limits Limits) model.Summary {
	limits = limits.withDefaults()

	answering := countUsable(in.Answers)
	if answering == 0 {
		return nothingSummarized(in)
	}

	consensus, unique := extract.Partition(in.Facts, partitionLimit)

	key := consensus
	if len(key) == 0 {
		key = unique
	}
	if len(key) > limits.MaxKeyFacts {
		key = key[:limits.MaxKeyFacts]
	}

	summary := model.Summary{
		FinalAnswer:   renderReport(in, consensus, unique),
		KeyFacts:      make([]string, 0, len(key)),
		Sentences:     make([]model.SummarySentence, 0, len(key)),
		Disagreements: []string{},
		Sources:       echoSources(in.Sources),
	}
	for _, f := range key {
		summary.KeyFacts = append(summary.KeyFacts, f.Text)
		if len(summary.Sentences) < limits.MaxSentences {
			summary.Sentences = append(summary.Sentences, model.SummarySentence{
				Text:       f.Text,
				Citations:  []int{},
				Confidence: ClampConfidence(100 * float64(f.Corroboration()) / float64(answering)),
			})
		}
	}
	return summary
}

func renderReport(in Input, consensus, unique []model.Fact) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n", strings.TrimSpace(in.Prompt))

	b.WriteString("\nKey facts:\n")
	if len(consensus) == 0 {
		b.WriteString("- (no fact was reported by more than one provider)\n")
	}
	for _, f := range consensus {
		fmt.Fprintf(&b, "- %s (%s)\n", f.Text, labels(f.Providers))
	}

	if len(unique) > 0 {
		b.WriteString("\nUnique details:\n")
		for _, f := range unique {
			fmt.Fprintf(&b, "- %s (%s)\n", f.Text, labels(f.Providers))
		}
	}

	if errs := providerErrors(in.Answers); len(errs) > 0 {
		b.WriteString("\nProvider errors:\n")
		for _, line := range errs {
			b.WriteString("- " + line + "\n")
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// nothingSummarized reports that no answer had text, listing each provider's problem
func nothingSummarized(in Input) model.Summary {
	var b strings.Builder
	b.WriteString(NothingToSummarize)
	if errs := providerErrors(in.Answers); len(errs) > 0 {
		b.WriteString("\n\nProvider errors:\n")
		b.WriteString("- " + strings.Join(errs, "\n- "))
	}
	return model.Summary{
		FinalAnswer:   b.String(),
		KeyFacts:      []string{},
		Sentences:     []model.SummarySentence{},
		Disagreements: []string{},
		Sources:       echoSources(in.Sources),
	}
}

// providerErrors lists "provider: problem" for every answer without usable text
func providerErrors(answers []model.ProviderAnswer) []string {
	var out []string
	for _, a := range answers {
		switch {
		case a.Error != "":
			out = append(out, fmt.Sprintf("%s: %s", a.Provider, a.Error))
		case strings.TrimSpace(a.Text) == "":
			out = append(out, fmt.Sprintf("%s: empty response", a.Provider))
		}
	}
	return out
}

func countUsable(answers []model.ProviderAnswer) int {
	n := 0
	for _, a := range answers {
		if a.Usable() {
			n++
		}
	}
	return n
}

func labels(providers []model.ProviderName) string {
	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = p.Label()
	}
	return strings.Join(names, ", ")
}
