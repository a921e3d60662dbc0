// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - All future functions must accept context.Context as the first parameter.
// - External errors must be wrapped via this package's sentinel errors.
package config

import (
	"context"
	"fmt"
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DataDir holds the active period: week.yaml, weeklog.bin, notes.yaml.
	DataDir string `koanf:"data_dir"`

	// ArchiveDir holds one week<N> directory per concluded period.
	ArchiveDir string `koanf:"archive_dir"`

	// ProfilesDir receives compacted profiles, one directory per competitor.
	ProfilesDir string `koanf:"profiles_dir"`

	// UsersFile lists known competitors.
	UsersFile string `koanf:"users_file"`

	// Epoch is the RFC3339 start of period number 1.
	Epoch string `koanf:"epoch"`

	// PeriodDurationS is the length of one period in seconds.
	PeriodDurationS int `koanf:"period_duration_s"`

	// CompactionWorkers sets the number of profile compaction workers.
	CompactionWorkers int `koanf:"compaction_workers"`

	// CompactionQueueSize bounds the compaction job queue.
	CompactionQueueSize int `koanf:"compaction_queue_size"`

	// CompactOnStart recompacts every known competitor at startup.
	CompactOnStart bool `koanf:"compact_on_start"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		DataDir:             "data/week",
		ArchiveDir:          "data/archive",
		ProfilesDir:         "data/profiles",
		UsersFile:           "data/users.yaml",
		Epoch:               "2024-01-01T00:00:00Z",
		PeriodDurationS:     604800,
		CompactionWorkers:   runtime.NumCPU(),
		CompactionQueueSize: 4096,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DataDir == "":
		return fmt.Errorf("%w: data_dir must not be empty", ErrInvalidConfig)
	case c.PeriodDurationS <= 0:
		return fmt.Errorf("%w: period_duration_s must be positive", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format must be text or json", ErrInvalidConfig)
	}
	if _, err := time.Parse(time.RFC3339, c.Epoch); err != nil {
		return fmt.Errorf("%w: epoch: %w", ErrInvalidConfig, err)
	}
	return nil
}

// EpochTime returns the parsed epoch. It is the zero time when Epoch is
// invalid; Validate reports that case.
func (c *Config) EpochTime() time.Time {
	t, _ := time.Parse(time.RFC3339, c.Epoch)
	return t
}

// PeriodDuration returns the period length.
func (c *Config) PeriodDuration() time.Duration {
	return time.Duration(c.PeriodDurationS) * time.Second
}
