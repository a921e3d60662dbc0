package service

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/p2r3/epochtal/internal/adapters/archive"
	"github.com/p2r3/epochtal/internal/adapters/competitor"
	"github.com/p2r3/epochtal/internal/adapters/notes"
	"github.com/p2r3/epochtal/internal/adapters/repository"
	"github.com/p2r3/epochtal/internal/config"
)

// FromConfig opens the filesystem collaborators named by cfg and builds a
// Service over them. opts are applied after the configured ones.
func FromConfig(_ context.Context, cfg *config.Config, opts ...Option) (*Service, error) {
	active, err := archive.OpenPeriod(cfg.DataDir, cfg.EpochTime(), cfg.PeriodDuration())
	if err != nil {
		return nil, fmt.Errorf("open active period: %w", err)
	}
	directory, err := competitor.LoadFile(cfg.UsersFile)
	if err != nil {
		return nil, err
	}
	sidecar, err := notes.Open(filepath.Join(cfg.DataDir, notes.File))
	if err != nil {
		return nil, err
	}

	base := []Option{
		WithDirectory(directory),
		WithProfileStore(repository.NewProfileStore(cfg.ProfilesDir)),
		WithNotes(sidecar),
		WithWorkerCount(cfg.CompactionWorkers),
		WithQueueSize(cfg.CompactionQueueSize),
	}
	arch := archive.New(cfg.ArchiveDir, cfg.EpochTime(), cfg.PeriodDuration())
	return New(active, arch, append(base, opts...)...), nil
}
