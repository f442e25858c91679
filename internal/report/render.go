// Package report renders runs as JSON files, Markdown and terminal summaries.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/chorus/internal/model"
)

// Renderer writes run reports
type Renderer struct {
	out           io.Writer // terminal output
	includeFooter bool
}

// NewRenderer creates a renderer printing terminal summaries to out
func NewRenderer(out io.Writer, includeFooter bool) *Renderer {
	return &Renderer{out: out, includeFooter: includeFooter}
}

// RenderJSON writes v as indented JSON to path, creating parent directories
func (r *Renderer) RenderJSON(v any, path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	return writeFile(path, append(data, '\n'))
}

// RenderMarkdown writes the Markdown report for rec to path
func (r *Renderer) RenderMarkdown(rec model.RunRecord, path string) error {
	return writeFile(path, []byte(r.Markdown(rec)))
}

// Markdown renders rec as a Markdown document
func (r *Renderer) Markdown(rec model.RunRecord) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", oneLine(rec.Prompt))
	if rec.Timestamp > 0 {
		fmt.Fprintf(&b, "_Run %s, %s_\n\n", rec.ID, time.UnixMilli(rec.Timestamp).UTC().Format(time.RFC3339))
	}

	if rec.Meta != nil {
		b.WriteString("## Meta-summary\n\n")
		b.WriteString(strings.TrimSpace(rec.Meta.FinalAnswer))
		b.WriteString("\n\n")

		if len(rec.Meta.KeyFacts) > 0 {
			b.WriteString("### Key facts\n\n")
			for _, f := range rec.Meta.KeyFacts {
				fmt.Fprintf(&b, "- %s\n", f)
			}
			b.WriteString("\n")
		}
		if len(rec.Meta.Disagreements) > 0 {
			b.WriteString("### Disagreements\n\n")
			for _, d := range rec.Meta.Disagreements {
				fmt.Fprintf(&b, "- %s\n", d)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("## Provider answers\n\n")
	for _, ans := range rec.Results {
		fmt.Fprintf(&b, "### %s", ans.Provider.Label())
		if ans.Model != "" {
			fmt.Fprintf(&b, " (%s)", ans.Model)
		}
		b.WriteString("\n\n")
		if ans.Error != "" {
			fmt.Fprintf(&b, "> Error: %s\n\n", ans.Error)
			continue
		}
		b.WriteString(strings.TrimSpace(ans.Text))
		fmt.Fprintf(&b, "\n\n_%d ms_\n\n", ans.LatencyMs)
	}

	if len(rec.Sources) > 0 {
		b.WriteString("## Sources\n\n")
		for _, s := range rec.Sources {
			fmt.Fprintf(&b, "%d. [%s](%s)\n", s.ID, sourceTitle(s), s.URL)
		}
		b.WriteString("\n")
	}

	if r.includeFooter {
		b.WriteString("---\n\n")
		b.WriteString("_Generated by chorus. Answers are model output and may be wrong; check the cited sources._\n")
	}

	return b.String()
}

// RenderSummary prints a terminal summary of rec
func (r *Renderer) RenderSummary(rec model.RunRecord) {
	rule := strings.Repeat("═", 59)

	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, rule)
	fmt.Fprintf(r.out, "  %s\n", truncate(oneLine(rec.Prompt), 56))
	fmt.Fprintln(r.out, rule)
	fmt.Fprintln(r.out)

	for _, ans := range rec.Results {
		if ans.Error != "" {
			fmt.Fprintf(r.out, "✗ %s: %s\n\n", ans.Provider.Label(), ans.Error)
			continue
		}
		fmt.Fprintf(r.out, "✓ %s (%s, %d ms)\n", ans.Provider.Label(), ans.Model, ans.LatencyMs)
		fmt.Fprintln(r.out, indent(strings.TrimSpace(ans.Text), "    "))
		fmt.Fprintln(r.out)
	}

	if rec.Meta != nil {
		fmt.Fprintln(r.out, rule)
		fmt.Fprintln(r.out, "  Meta-summary")
		fmt.Fprintln(r.out, rule)
		fmt.Fprintln(r.out)
		fmt.Fprintln(r.out, strings.TrimSpace(rec.Meta.FinalAnswer))
		fmt.Fprintln(r.out)
		for _, d := range rec.Meta.Disagreements {
			fmt.Fprintf(r.out, "  ⚠ %s\n", d)
		}
	}

	if len(rec.Sources) > 0 {
		fmt.Fprintln(r.out, "Sources:")
		for _, s := range rec.Sources {
			fmt.Fprintf(r.out, "  [%d] %s %s\n", s.ID, sourceTitle(s), s.URL)
		}
		fmt.Fprintln(r.out)
	}
}

// RenderAnswers prints bare provider answers, as returned by an expansion
func (r *Renderer) RenderAnswers(answers []model.ProviderAnswer) {
	for _, ans := range answers {
		if ans.Error != "" {
			fmt.Fprintf(r.out, "✗ %s: %s\n\n", ans.Provider.Label(), ans.Error)
			continue
		}
		fmt.Fprintf(r.out, "✓ %s (%s)\n", ans.Provider.Label(), ans.Model)
		fmt.Fprintln(r.out, indent(strings.TrimSpace(ans.Text), "    "))
		fmt.Fprintln(r.out)
	}
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func sourceTitle(s model.RetrievalSource) string {
	if t := strings.TrimSpace(s.Title); t != "" {
		return t
	}
	return fmt.Sprintf("Source %d", s.ID)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}
