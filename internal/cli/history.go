package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/chorus/internal/model"
)

var (
	historyFingerprint string
	historyJSON        bool
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored runs",
	Long: `History lists stored runs, newest first.

Runs are kept in the configured history backend (disk by default, under
~/.chorus/history). Use --fingerprint to list earlier runs of the same
request.`,
	Args: cobra.NoArgs,
	RunE: runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a stored run",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a stored run",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)

	historyCmd.Flags().StringVar(&historyFingerprint, "fingerprint", "", "only runs with this request fingerprint")
	historyCmd.PersistentFlags().BoolVar(&historyJSON, "json", false, "print as JSON")
	historyShowCmd.Flags().StringVar(&outMD, "md", "", "write the run as Markdown to this path")
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	a, err := appFromConfig()
	if err != nil {
		return err
	}
	defer a.Close()

	store, err := a.requireHistory()
	if err != nil {
		return err
	}
	runs := store.List(historyFingerprint)

	if historyJSON {
		return printJSON(cmd.OutOrStdout(), runs)
	}
	printRuns(cmd.OutOrStdout(), runs)
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	a, err := appFromConfig()
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

	if historyJSON {
		return printJSON(cmd.OutOrStdout(), rec)
	}
	return renderRun(cmd.OutOrStdout(), *rec, "", outMD, true)
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	a, err := appFromConfig()
	if err != nil {
		return err
	}
	defer a.Close()

	store, err := a.requireHistory()
	if err != nil {
		return err
	}
	if err := store.Delete(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted run %s\n", args[0])
	return nil
}

func appFromConfig() (*app, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	return newApp(cfg, logger)
}

// printRuns prints one line per run: id, time, answered count and prompt
func printRuns(w io.Writer, runs []model.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No stored runs")
		return
	}
	for _, r := range runs {
		answered := 0
		for _, ans := range r.Results {
			if ans.Usable() {
				answered++
			}
		}
		fmt.Fprintf(w, "%s  %s  %d/%d  %s\n",
			r.ID,
			time.UnixMilli(r.Timestamp).Local().Format("2006-01-02 15:04"),
			answered, len(r.Results),
			truncatePrompt(strings.TrimSpace(r.Prompt)),
		)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
