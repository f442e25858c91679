package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/chorus/internal/model"
	"github.com/ppiankov/chorus/internal/server"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON HTTP API",
	Long: `Serve exposes chorus over HTTP:

  POST /api/query          fan a prompt out to providers
  POST /api/meta-summary   summarize answers already collected
  POST /api/expand         deepen previous answers
  GET  /api/config         provider credential status
  GET  /api/history        stored runs (?fingerprint=)
  GET  /api/history/{id}   one stored run
  GET  /healthz            liveness
  GET  /metrics            Prometheus metrics

Request bodies may carry per-request API keys; they are never stored.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default: server.addr)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := server.Options{
		DefaultProviders: model.ParseProviders(cfg.Providers.Enabled),
		Logger:           logger,
	}
	if a.history != nil {
		opts.History = a.history
	}

	fmt.Fprintf(os.Stderr, "chorus %s listening on %s\n", version, cfg.Server.Addr)
	return server.New(a.orch, opts).ListenAndServe(cmd.Context(), cfg.Server.Addr)
}
