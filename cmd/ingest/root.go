package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/cryptomonitor/internal/app"
	"github.com/cryptomonitor/internal/config"
	"github.com/cryptomonitor/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	logLevel string
	cfg      *config.Config
	log      zerolog.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run cryptomonitor ingestion outside the API server",
	Long: `ingest runs the feed polling and article fetching loops as standalone
processes, registers feeds from a fixture file and manages the schema.

Configuration comes from the same environment variables as the server.

Example usage:
  ingest feeds                         # Poll feeds every FEED_POLL_INTERVAL
  ingest articles --once               # Process one batch of pending jobs
  ingest seed --file configs/feeds.yaml
  ingest migrate down                  # Roll back the last migration`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL")
}

func initConfig() error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	log = logger.New(cfg.Log.Level, cfg.Log.Format)
	return nil
}

// withApp opens the application for the duration of fn. The context is
// cancelled on SIGINT or SIGTERM.
func withApp(fn func(ctx context.Context, a *app.App) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}
