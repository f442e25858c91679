package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/chorus/internal/credential"
	"github.com/ppiankov/chorus/internal/fanout"
	"github.com/ppiankov/chorus/internal/model"
)

var statusJSON bool

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which providers have credentials",
	Long: `Status reports which providers and the web search backend have an
API key in the environment, and lists the OpenAI chat models visible to
the configured OpenAI key.

Keys are read from OPENAI_API_KEY, ANTHROPIC_API_KEY, GEMINI_API_KEY,
XAI_API_KEY and TAVILY_API_KEY.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print status as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	status := a.orch.Status(ctx)
	if statusJSON {
		return printJSON(cmd.OutOrStdout(), map[string]any{"ok": true, "status": status})
	}
	printStatus(cmd.OutOrStdout(), status)
	return nil
}

// printStatus prints one line per provider, then the search backend
func printStatus(w io.Writer, status fanout.Status) {
	names := make([]string, 0, len(status))
	for _, p := range model.AllProviders() {
		names = append(names, string(p))
	}
	names = append(names, credential.Tavily)

	for _, name := range names {
		st, ok := status[name]
		if !ok {
			continue
		}
		mark := "✗"
		state := "not configured"
		if st.Configured {
			mark = "✓"
			state = "configured"
		}
		fmt.Fprintf(w, "%s %-10s %s\n", mark, name, state)
		for _, m := range st.Models {
			fmt.Fprintf(w, "    %s\n", m)
		}
	}
}
