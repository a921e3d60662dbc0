package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/p2r3/epochtal/internal/adapters/archive"
	"github.com/p2r3/epochtal/internal/domain/period"
)

// DecodeOptions holds flags for the decode command.
type DecodeOptions struct {
	*RootOptions
}

type decodedRecord struct {
	SteamID   uint64    `json:"steamid,string"`
	Category  string    `json:"category"`
	Time      uint64    `json:"time"`
	Portals   uint64    `json:"portals"`
	Timestamp uint64    `json:"timestamp"`
	Date      time.Time `json:"date"`
	Tombstone bool      `json:"tombstone,omitempty"`
}

// NewDecodeCommand creates the decode command.
func NewDecodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DecodeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "decode <period-dir>",
		Short: "Dump every record of a weekly ledger",
		Long: `Decode reads weeklog.bin of the given period directory and prints its
records in append order, tombstones included.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(opts, cmd, args[0])
		},
	}

	return cmd
}

func runDecode(opts *DecodeOptions, cmd *cobra.Command, dir string) error {
	ctx := cmd.Context()
	p, err := openPeriod(opts.RootOptions, cmd, dir)
	if err != nil {
		return err
	}
	records, err := p.Ledger.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("decode %s: %w", dir, err)
	}

	out := make([]decodedRecord, 0, len(records))
	for _, r := range records {
		out = append(out, decodedRecord{
			SteamID:   r.SteamID,
			Category:  r.Category,
			Time:      r.Time,
			Portals:   r.Portals,
			Timestamp: r.Timestamp,
			Date:      p.Start.Add(time.Duration(r.Timestamp) * time.Second).UTC(),
			Tombstone: r.IsTombstone(),
		})
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), out)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STEAMID\tCATEGORY\tTIME\tPORTALS\tTIMESTAMP")
	for _, r := range out {
		category := r.Category
		if r.Tombstone {
			category += " (retracted)"
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\n", r.SteamID, category, r.Time, r.Portals, r.Timestamp)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d records\n", len(out))
	return nil
}

// openPeriod opens dir on the configured tournament timeline.
func openPeriod(opts *RootOptions, cmd *cobra.Command, dir string) (*period.Context, error) {
	cfg, err := opts.setup(cmd)
	if err != nil {
		return nil, err
	}
	p, err := archive.OpenPeriod(dir, cfg.EpochTime(), cfg.PeriodDuration())
	if err != nil {
		return nil, fmt.Errorf("open period %s: %w", dir, err)
	}
	return p, nil
}

