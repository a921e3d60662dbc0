package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/p2r3/epochtal/internal/adapters/archive"
	"github.com/p2r3/epochtal/internal/adapters/competitor"
	"github.com/p2r3/epochtal/internal/loadtest"
)

// LoadTestOptions holds flags for the loadtest command.
type LoadTestOptions struct {
	*RootOptions
	URL         string
	Submissions int
	Workers     int
	Timeout     time.Duration
	Verbose     bool
}

// NewLoadTestCommand creates the loadtest command.
func NewLoadTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadTestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Submit random runs to a live server and verify its leaderboard",
		Long: `Loadtest submits runs for the competitors in the configured users file,
spread over the categories of the configured active period, then checks
that the server's leaderboard is consistent with what it accepted.

Run it against a fresh period: existing runs from the same competitors
fail verification.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoadTest(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.URL, "url", "http://localhost:9080", "base URL of the service")
	cmd.Flags().IntVar(&opts.Submissions, "submissions", 1000, "number of runs to submit")
	cmd.Flags().IntVar(&opts.Workers, "workers", loadtest.DefaultWorkers, "concurrent submitters")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", loadtest.DefaultTimeout, "per-request timeout")
	cmd.Flags().BoolVar(&opts.Verbose, "verbose", false, "log every failed submission")

	return cmd
}

func runLoadTest(opts *LoadTestOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	cfg, err := opts.setup(cmd)
	if err != nil {
		return err
	}
	meta, err := archive.ReadMetadata(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("read active period: %w", err)
	}
	users, err := competitor.LoadFile(cfg.UsersFile)
	if err != nil {
		return err
	}

	stats, err := loadtest.Run(ctx, &loadtest.Config{
		BaseURL:     opts.URL,
		Submissions: opts.Submissions,
		Workers:     opts.Workers,
		Timeout:     opts.Timeout,
		Competitors: users.List(ctx),
		Categories:  meta.Categories.Names(),
		Verbose:     opts.Verbose,
	})
	if err != nil {
		return err
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), stats)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "submitted %d, accepted %d, failed %d, ranked %d in %s\n",
		stats.Submitted, stats.Accepted, stats.Failed, stats.LeaderboardEntries, stats.Duration.Round(time.Millisecond))
	return nil
}
