package main

import (
	"context"
	"errors"

	"github.com/cryptomonitor/internal/app"
	"github.com/cryptomonitor/internal/scheduler"
	"github.com/spf13/cobra"
)

var feedsCmd = &cobra.Command{
	Use:   "feeds",
	Short: "Poll registered feeds and queue new entries",
	Long: `Poll every registered feed, create articles for matching inline entries
and queue article jobs for the rest.

Examples:
  ingest feeds           # Loop every FEED_POLL_INTERVAL
  ingest feeds --once    # Single pass`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLoop(cmd, (*app.App).FeedTask)
	},
}

var articlesCmd = &cobra.Command{
	Use:   "articles",
	Short: "Fetch pending article jobs",
	Long: `Claim a batch of pending article jobs, fetch and match each page, and
record the outcome on the job.

Examples:
  ingest articles           # Loop every JOB_POLL_INTERVAL
  ingest articles --once    # Single batch`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLoop(cmd, (*app.App).ArticleTask)
	},
}

func init() {
	rootCmd.AddCommand(feedsCmd)
	rootCmd.AddCommand(articlesCmd)

	feedsCmd.Flags().Bool("once", false, "run a single cycle and exit")
	articlesCmd.Flags().Bool("once", false, "run a single cycle and exit")
}

func runLoop(cmd *cobra.Command, taskOf func(*app.App) scheduler.Task) error {
	once, _ := cmd.Flags().GetBool("once")

	return withApp(func(ctx context.Context, a *app.App) error {
		task := taskOf(a)
		if once {
			return scheduler.RunOnce(ctx, task)
		}

		runner := scheduler.NewRunner(log, cfg.Ingestion.StopOnError)
		runner.Start(ctx, task)
		runner.Wait()

		for _, st := range runner.Status() {
			if st.State == scheduler.StateFailed {
				return errors.New(st.Name + " loop stopped: " + st.LastError)
			}
		}
		return nil
	})
}
