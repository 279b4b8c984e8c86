package main

import (
	"context"
	"fmt"

	"github.com/cryptomonitor/internal/app"
	"github.com/cryptomonitor/internal/fixtures"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Register feeds and rules from a fixture file",
	Long: `Register every feed in a YAML fixture file together with its rules.
Feeds whose URL is already registered are skipped.

Examples:
  ingest seed                              # Uses configs/feeds.yaml
  ingest seed --file /etc/cryptomonitor/feeds.yaml`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().StringP("file", "f", "configs/feeds.yaml", "fixture file")
}

func runSeed(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("file")

	// Parse before connecting so a bad file fails fast
	file, err := fixtures.Load(path)
	if err != nil {
		return err
	}

	return withApp(func(ctx context.Context, a *app.App) error {
		res, err := fixtures.Seed(ctx, a.Services.Registry, file, log)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "registered %d feeds, skipped %d already present\n", res.Registered, res.Skipped)
		return nil
	})
}
