package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/p2r3/epochtal/internal/adapters/notes"
	"github.com/p2r3/epochtal/internal/domain/leaderboard"
)

// LeaderboardOptions holds flags for the leaderboard command.
type LeaderboardOptions struct {
	*RootOptions
	Category string
}

// NewLeaderboardCommand creates the leaderboard command.
func NewLeaderboardCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LeaderboardOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "leaderboard <period-dir>",
		Short: "Reconstruct the standings of a period",
		Long: `Leaderboard replays the ledger of the given period directory and prints
the ranked runs per category. Notes are attached when the directory holds
a notes.yaml sidecar.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLeaderboard(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Category, "category", "", "print only this category")

	return cmd
}

func runLeaderboard(opts *LeaderboardOptions, cmd *cobra.Command, dir string) error {
	ctx := cmd.Context()
	p, err := openPeriod(opts.RootOptions, cmd, dir)
	if err != nil {
		return err
	}

	var lbOpts []leaderboard.Option
	sidecarPath := filepath.Join(dir, notes.File)
	if _, err := os.Stat(sidecarPath); err == nil {
		sidecar, err := notes.Open(sidecarPath)
		if err != nil {
			return err
		}
		lbOpts = append(lbOpts, leaderboard.WithAnnotator(sidecar.Annotator()))
	}

	frames, err := p.Ledger.Frames(ctx)
	if err != nil {
		return err
	}
	board, err := leaderboard.Reconstruct(frames, p.Categories, p.Start, lbOpts...)
	if err != nil {
		return fmt.Errorf("reconstruct %s: %w", dir, err)
	}

	if opts.Category != "" {
		if _, ok := p.Categories.Index(opts.Category); !ok {
			return fmt.Errorf("unknown category %q", opts.Category)
		}
		for name := range board {
			if name != opts.Category {
				delete(board, name)
			}
		}
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), board)
	}

	out := cmd.OutOrStdout()
	for _, c := range p.Categories {
		runs, ok := board[c.Name]
		if !ok {
			continue
		}
		fmt.Fprintf(out, "== %s ==\n", c.Name)
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for i, run := range runs {
			portals := "-"
			if run.Portals != nil {
				portals = fmt.Sprint(*run.Portals)
			}
			fmt.Fprintf(w, "%d\t%d\t%d\t%s\t%s\t%s\n", i+1, run.SteamID, run.Time, portals,
				run.Date.UTC().Format("2006-01-02 15:04:05"), run.Note)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	if len(board) == 0 {
		fmt.Fprintln(out, "No runs found")
	}
	return nil
}
