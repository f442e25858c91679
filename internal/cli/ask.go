package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/chorus/internal/fanout"
	"github.com/ppiankov/chorus/internal/model"
	"github.com/ppiankov/chorus/internal/report"
)

// defaultTimeout bounds a single ask or expand
const defaultTimeout = 3 * time.Minute

var (
	providersFlag []string
	modelFlags    []string
	temperature   float64
	maxTokens     int
	systemPrompt  string
	useRetrieval  bool
	noSummary     bool
	outJSON       string
	outMD         string
	noFooter      bool
	timeout       time.Duration
)

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask [prompt]",
	Short: "Ask every provider one question and summarize the answers",
	Long: `Ask sends a prompt to the selected providers in parallel and prints
each provider's answer, followed by a meta-summary of the facts they agree
and disagree on.

The prompt is taken from the arguments, or read from stdin when the only
argument is "-" or no argument is given.

Example:
  chorus ask "When did the Eiffel Tower open?"
  chorus ask --providers openai,claude --retrieval "Who designed the Gherkin?"
  chorus ask --model openai=gpt-4o --json run.json --md run.md "How tall is Taipei 101?"
  echo "Explain CRDTs" | chorus ask --no-summary`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	// Provider flags
	askCmd.Flags().StringSliceVarP(&providersFlag, "providers", "p", nil, "providers to ask (default: providers.enabled)")
	askCmd.Flags().StringArrayVar(&modelFlags, "model", nil, "model override as provider=model (repeatable)")
	askCmd.Flags().Float64Var(&temperature, "temperature", -1, "sampling temperature for every provider (default: config)")
	askCmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "output token cap for every provider (default: config)")
	askCmd.Flags().StringVar(&systemPrompt, "system", "", "system prompt override")

	// Retrieval and summary flags
	askCmd.Flags().BoolVar(&useRetrieval, "retrieval", false, "ground answers with web search results (default: retrieval.enabled)")
	askCmd.Flags().BoolVar(&noSummary, "no-summary", false, "skip the meta-summary")

	// Output flags
	askCmd.Flags().StringVar(&outJSON, "json", "", "write the run as JSON to this path")
	askCmd.Flags().StringVar(&outMD, "md", "", "write the run as Markdown to this path")
	askCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
	askCmd.Flags().DurationVar(&timeout, "timeout", defaultTimeout, "overall timeout")
}

func runAsk(cmd *cobra.Command, args []string) error {
	prompt, err := readPrompt(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("retrieval") {
		useRetrieval = cfg.Retrieval.Enabled
	}

	providers := resolveProviders(providersFlag, cfg)
	configs, err := providerOverrides(providers, modelFlags, temperature, maxTokens)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	if verbose {
		fmt.Fprintf(os.Stderr, "Asking: %s\n", joinProviders(providers))
		fmt.Fprintf(os.Stderr, "Retrieval: %v\n", useRetrieval)
		fmt.Fprintf(os.Stderr, "Timeout: %v\n", timeout)
		fmt.Fprintln(os.Stderr)
	}

	req := fanout.RunRequest{
		Prompt:       prompt,
		Providers:    providers,
		Configs:      configs,
		SystemPrompt: systemPrompt,
		UseRetrieval: useRetrieval,
		Summarize:    !noSummary,
	}
	result, err := a.orch.Run(ctx, req)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if verbose {
		answered := 0
		for _, ans := range result.Results {
			if ans.Usable() {
				answered++
			}
		}
		fmt.Fprintf(os.Stderr, "✓ %d/%d providers answered\n", answered, len(result.Results))
		if result.UsedRetrieval {
			fmt.Fprintf(os.Stderr, "✓ Retrieved %d sources\n", len(result.Sources))
		}
		if result.Summary != nil {
			fmt.Fprintf(os.Stderr, "✓ Meta-summary: %s\n", result.Summary.Strategy)
			if result.Summary.FallbackReason != "" {
				fmt.Fprintf(os.Stderr, "  (%s)\n", result.Summary.FallbackReason)
			}
		}
		fmt.Fprintf(os.Stderr, "✓ Run id: %s\n", result.ID)
	}

	return renderRun(cmd.OutOrStdout(), result.Record(req), outJSON, outMD, !noFooter)
}

// renderRun prints rec and writes the optional JSON and Markdown files
func renderRun(out io.Writer, rec model.RunRecord, jsonPath, mdPath string, footer bool) error {
	renderer := report.NewRenderer(out, footer)
	renderer.RenderSummary(rec)

	if jsonPath != "" {
		if err := renderer.RenderJSON(rec, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", jsonPath)
		}
	}
	if mdPath != "" {
		if err := renderer.RenderMarkdown(rec, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote Markdown: %s\n", mdPath)
		}
	}
	return nil
}

// readPrompt joins args into a prompt, reading stdin for "-" or no args
func readPrompt(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.TrimSpace(strings.Join(args, " ")), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read prompt from stdin: %w", err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", fmt.Errorf("no prompt given")
	}
	return prompt, nil
}

// providerOverrides builds per-provider configs from the model, temperature
// and max-token flags. A negative temperature or zero max tokens means unset.
func providerOverrides(providers []model.ProviderName, models []string, temp float64, tokens int) (map[model.ProviderName]model.ProviderConfig, error) {
	configs := make(map[model.ProviderName]model.ProviderConfig)

	for _, pair := range models {
		name, modelName, ok := strings.Cut(pair, "=")
		parsed := model.ParseProviders([]string{name})
		if !ok || len(parsed) != 1 || strings.TrimSpace(modelName) == "" {
			return nil, fmt.Errorf("invalid --model %q (want provider=model)", pair)
		}
		p := parsed[0]
		cfg := configs[p]
		cfg.Model = strings.TrimSpace(modelName)
		configs[p] = cfg
	}

	if temp > 2 {
		return nil, fmt.Errorf("--temperature must be between 0 and 2")
	}
	if tokens < 0 || tokens > 32000 {
		return nil, fmt.Errorf("--max-tokens must be between 1 and 32000")
	}
	for _, p := range providers {
		cfg := configs[p]
		if temp >= 0 {
			cfg.Temperature = model.Float64(temp)
		}
		if tokens > 0 {
			cfg.MaxTokens = tokens
		}
		configs[p] = cfg
	}

	return configs, nil
}

func joinProviders(providers []model.ProviderName) string {
	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}
