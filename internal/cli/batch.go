package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
	"unicode"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/chorus/internal/fanout"
	"github.com/ppiankov/chorus/internal/model"
	"github.com/ppiankov/chorus/internal/report"
	"github.com/ppiankov/chorus/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
	// providersFlag, modelFlags, useRetrieval, noSummary and noFooter are defined in ask.go and shared here
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Ask many prompts from a file concurrently",
	Long: `Batch reads prompts from a file (one per line; blank lines and lines
starting with # are skipped), runs each through the providers with a pool
of workers, and writes a JSON and Markdown report per prompt.

Provider rate limits are shared across workers.

Example:
  chorus batch prompts.txt
  chorus batch prompts.txt --concurrency 2 --output-dir ./runs --retrieval`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	// Batch-specific flags
	batchCmd.Flags().IntVarP(&concurrency, "concurrency", "c", runtime.NumCPU(), "number of concurrent prompts")
	batchCmd.Flags().StringVarP(&outputDir, "output-dir", "o", "./chorus-runs", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "overall batch timeout")

	// Shared flags
	batchCmd.Flags().StringSliceVarP(&providersFlag, "providers", "p", nil, "providers to ask (default: providers.enabled)")
	batchCmd.Flags().StringArrayVar(&modelFlags, "model", nil, "model override as provider=model (repeatable)")
	batchCmd.Flags().BoolVar(&useRetrieval, "retrieval", false, "ground answers with web search results (default: retrieval.enabled)")
	batchCmd.Flags().BoolVar(&noSummary, "no-summary", false, "skip the meta-summaries")
	batchCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
}

// runAsker adapts the orchestrator to the worker.Asker interface
type runAsker struct {
	orch *fanout.Orchestrator
	base fanout.RunRequest
}

// Ask implements worker.Asker
func (r runAsker) Ask(ctx context.Context, prompt string) (*model.RunRecord, error) {
	req := r.base
	req.Prompt = prompt
	result, err := r.orch.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	rec := result.Record(req)
	return &rec, nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("retrieval") {
		useRetrieval = cfg.Retrieval.Enabled
	}
	providers := resolveProviders(providersFlag, cfg)
	configs, err := providerOverrides(providers, modelFlags, -1, 0)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Chorus Batch Processing\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Providers:    %s\n", joinProviders(providers))
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "  Retrieval:    %v\n", useRetrieval)
	fmt.Fprintf(os.Stderr, "\n")

	// Create output directory
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	processor := worker.NewBatchProcessor(runAsker{
		orch: a.orch,
		base: fanout.RunRequest{
			Providers:    providers,
			Configs:      configs,
			UseRetrieval: useRetrieval,
			Summarize:    !noSummary,
		},
	}, concurrency)

	fmt.Fprintf(os.Stderr, "⚙️  Reading prompts from file...\n")
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	fmt.Fprintf(os.Stderr, "✓ Processed %d prompts\n", len(results))
	fmt.Fprintf(os.Stderr, "\n")

	successCount := 0
	failureCount := 0
	renderer := report.NewRenderer(os.Stderr, !noFooter)

	for _, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", truncatePrompt(result.Prompt), result.Error)
			continue
		}

		rec := *result.Record
		base := filepath.Join(outputDir, reportName(rec))
		if err := renderer.RenderJSON(rec, base+".json"); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", truncatePrompt(result.Prompt), err)
			continue
		}
		if err := renderer.RenderMarkdown(rec, base+".md"); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write Markdown: %v\n", truncatePrompt(result.Prompt), err)
			continue
		}

		successCount++
		answered := 0
		for _, ans := range rec.Results {
			if ans.Usable() {
				answered++
			}
		}
		fmt.Fprintf(os.Stderr, "✓ %s (%d/%d answered)\n", truncatePrompt(result.Prompt), answered, len(rec.Results))
	}

	// Summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d prompts\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

// reportName builds a file-safe base name from the prompt and run id
func reportName(rec model.RunRecord) string {
	id := rec.ID
	if len(id) > 8 {
		id = id[:8]
	}
	slug := slugify(rec.Prompt, 60)
	if slug == "" {
		return id
	}
	return slug + "-" + id
}

// slugify lowercases s and keeps letters and digits, joined by single dashes
func slugify(s string, maxLen int) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
			continue
		}
		dash = true
	}

	out := []rune(b.String())
	if len(out) > maxLen {
		out = out[:maxLen]
	}
	return strings.Trim(string(out), "-")
}

func truncatePrompt(p string) string {
	p = strings.Join(strings.Fields(p), " ")
	if r := []rune(p); len(r) > 60 {
		return string(r[:59]) + "…"
	}
	return p
}
