package cli

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/p2r3/epochtal/internal/domain/model"
	"github.com/p2r3/epochtal/internal/domain/weeklog"
)

// ProfileOptions holds flags for the profile command.
type ProfileOptions struct {
	*RootOptions
	Stored bool
}

type profileOutput struct {
	SteamID    string                `json:"steamid"`
	Categories []string              `json:"categories"`
	Data       []byte                `json:"data"`
	Records    []model.ProfileRecord `json:"records"`
}

// NewProfileCommand creates the profile command.
func NewProfileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProfileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "profile <steamid>",
		Short: "Compact and print one competitor's history",
		Long: `Profile scans the archived periods for the competitor's runs, rewrites
the stored profile, and prints the resulting history. With --stored it
prints the last persisted profile instead and leaves the store untouched.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfile(opts, cmd, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.Stored, "stored", false, "print the persisted profile without recompacting")

	return cmd
}

func runProfile(opts *ProfileOptions, cmd *cobra.Command, rawID string) error {
	id, err := weeklog.ParseSteamID(rawID)
	if err != nil {
		return err
	}
	svc, err := opts.openService(cmd)
	if err != nil {
		return err
	}
	load := svc.Profile
	if opts.Stored {
		load = svc.StoredProfile
	}
	p, err := load(cmd.Context(), id)
	if err != nil {
		return err
	}
	records, err := p.Records()
	if err != nil {
		return err
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), profileOutput{
			SteamID:    strconv.FormatUint(p.SteamID, 10),
			Categories: append([]string{}, p.Categories...),
			Data:       p.Data,
			Records:    records,
		})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d: %d runs, %d bytes\n", p.SteamID, len(records), len(p.Data))
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", r.Category, r.Time, r.Portals, r.Timestamp)
	}
	return w.Flush()
}
