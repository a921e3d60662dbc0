// Package cli implements the epochtal operator command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	service "github.com/p2r3/epochtal/internal/app"
	"github.com/p2r3/epochtal/internal/config"
	"github.com/p2r3/epochtal/pkg/logger"
)

// RootOptions holds flags shared by every subcommand.
type RootOptions struct {
	Format string // "text" or "json"
	Config string // optional YAML config path
}

// NewRootCommand creates the root command with all subcommands attached.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect and maintain epochtal ledgers and profiles",
		Long: `ledger works directly on the period directories and profile store
used by the epochtal server.

Period directories hold week.yaml and weeklog.bin. Commands that need the
tournament timeline read it from the server configuration.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.Format != "text" && opts.Format != "json" {
				return fmt.Errorf("invalid format %q: must be 'text' or 'json'", opts.Format)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format: text or json")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "path to a YAML config file (defaults to $"+config.FileEnv+")")

	cmd.AddCommand(NewDecodeCommand(opts))
	cmd.AddCommand(NewLeaderboardCommand(opts))
	cmd.AddCommand(NewProfileCommand(opts))
	cmd.AddCommand(NewCompactCommand(opts))
	cmd.AddCommand(NewLoadTestCommand(opts))

	return cmd
}

// setup loads the configuration, layering the --config file over defaults
// and the environment, and points the global logger at stderr so it never
// mixes with command output.
func (o *RootOptions) setup(cmd *cobra.Command) (*config.Config, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	var (
		cfg *config.Config
		err error
	)
	if o.Config != "" {
		cfg, err = config.LoadFile(ctx, o.Config)
	} else {
		cfg, err = config.Load(ctx)
	}
	if err != nil {
		return nil, err
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithWriter(cmd.ErrOrStderr())); err != nil {
		return nil, fmt.Errorf("initialize logging: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		_ = logger.SetLevelString("warn")
	}
	return cfg, nil
}

// openService builds the service over the configured directories. extra is
// applied after the configured options.
func (o *RootOptions) openService(cmd *cobra.Command, extra ...service.Option) (*service.Service, error) {
	cfg, err := o.setup(cmd)
	if err != nil {
		return nil, err
	}
	return service.FromConfig(cmd.Context(), cfg, append([]service.Option{service.WithLogger(logger.Named("cli"))}, extra...)...)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
