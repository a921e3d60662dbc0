package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	service "github.com/p2r3/epochtal/internal/app"
)

// CompactOptions holds flags for the compact-all command.
type CompactOptions struct {
	*RootOptions
	Workers int
}

// NewCompactCommand creates the compact-all command.
func NewCompactCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompactOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compact-all",
		Short: "Rebuild the profile of every known competitor",
		Long: `Compact-all enqueues one compaction job per competitor in the users file
and waits for the worker pool to finish them.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompact(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "worker count (defaults to compaction_workers)")

	return cmd
}

func runCompact(opts *CompactOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	svc, err := opts.openService(cmd, service.WithWorkerCount(opts.Workers))
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	summary, err := svc.CompactAll(ctx)
	if err != nil {
		return err
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), summary)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "compacted %d, skipped %d, failed %d\n",
		summary.Compacted, summary.Skipped, summary.Failed)
	if summary.Failed > 0 {
		return fmt.Errorf("%d compactions failed", summary.Failed)
	}
	return nil
}
