package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/chorus/internal/fanout"
	"github.com/ppiankov/chorus/internal/model"
	"github.com/ppiankov/chorus/internal/report"
)

var (
	focus             string
	expandNoRetrieval bool
	expandJSON        string
)

// expandCmd represents the expand command
var expandCmd = &cobra.Command{
	Use:   "expand <run-id>",
	Short: "Ask providers to deepen their answers from a stored run",
	Long: `Expand loads a run from history and sends each provider its own
previous answer with instructions to add new, concrete detail.

Focus narrows what to add: general, size, team, timeline or naming.

Example:
  chorus expand 0f8c2a1e-... --focus timeline
  chorus expand 0f8c2a1e-... --providers gemini --no-retrieval`,
	Args: cobra.ExactArgs(1),
	RunE: runExpand,
}

func init() {
	rootCmd.AddCommand(expandCmd)

	expandCmd.Flags().StringVar(&focus, "focus", "general", "what to expand on (general, size, team, timeline, naming)")
	expandCmd.Flags().StringSliceVarP(&providersFlag, "providers", "p", nil, "providers to ask (default: providers in the run)")
	expandCmd.Flags().StringArrayVar(&modelFlags, "model", nil, "model override as provider=model (repeatable)")
	expandCmd.Flags().StringVar(&systemPrompt, "system", "", "system prompt")
	expandCmd.Flags().BoolVar(&expandNoRetrieval, "no-retrieval", false, "do not add web evidence")
	expandCmd.Flags().StringVar(&expandJSON, "json", "", "write the expanded answers as JSON to this path")
	expandCmd.Flags().DurationVar(&timeout, "timeout", defaultTimeout, "overall timeout")
}

func runExpand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	store, err := a.requireHistory()
	if err != nil {
		return err
	}
	rec, err := store.Get(args[0])
	if err != nil {
		return err
	}

	providers := model.ParseProviders(providersFlag)
	if len(providers) == 0 {
		providers = model.AnsweredProviders(rec.Results)
	}
	configs, err := providerOverrides(providers, modelFlags, -1, 0)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	answers, err := a.orch.Expand(ctx, fanout.ExpandRequest{
		OriginalPrompt: rec.Prompt,
		Previous:       rec.Results,
		Providers:      providers,
		Configs:        configs,
		SystemPrompt:   systemPrompt,
		UseRetrieval:   !expandNoRetrieval,
		Focus:          fanout.ParseFocus(focus),
	})
	if err != nil {
		return fmt.Errorf("expand failed: %w", err)
	}

	renderer := report.NewRenderer(cmd.OutOrStdout(), false)
	renderer.RenderAnswers(answers)
	if expandJSON != "" {
		if err := renderer.RenderJSON(answers, expandJSON); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
	}
	return nil
}
