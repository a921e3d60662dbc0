package profile

import (
	"context"
	"fmt"
	"time"

	"github.com/p2r3/epochtal/internal/domain/category"
	"github.com/p2r3/epochtal/internal/domain/errs"
	"github.com/p2r3/epochtal/internal/domain/leaderboard"
	"github.com/p2r3/epochtal/internal/domain/model"
	"github.com/p2r3/epochtal/internal/domain/period"
	"github.com/p2r3/epochtal/pkg/logger"
	"github.com/p2r3/epochtal/pkg/metrics"
)

// Profile is a compacted stream together with the name list its category
// indices refer to. The two are only meaningful as a pair.
type Profile struct {
	SteamID    uint64         `json:"steamid,string"`
	Categories category.Names `json:"categories"`
	Data       []byte         `json:"data"`
}

// Records decodes the stream.
func (p Profile) Records() ([]model.ProfileRecord, error) {
	return DecodeAll(p.Data, p.Categories)
}

// Directory knows which competitors exist.
type Directory interface {
	Exists(ctx context.Context, steamID uint64) bool
}

// Store persists compacted profiles.
type Store interface {
	// Save replaces the stored profile of p.SteamID.
	Save(ctx context.Context, p Profile) error
	// Load returns the stored profile. found is false when nothing was ever
	// written; an empty stream is found with no data. Stored treats both as
	// "no history".
	Load(ctx context.Context, steamID uint64) (p Profile, found bool, err error)
}

// Compactor rebuilds profiles from the archive.
type Compactor struct {
	archive   period.Archive
	directory Directory
	store     Store
	logger    logger.Logger
}

// Option applies a configuration option to the Compactor.
type Option func(*Compactor)

// WithLogger sets a custom logger for the compactor.
func WithLogger(l logger.Logger) Option {
	return func(c *Compactor) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCompactor creates a compactor over archive. store may be nil, in which
// case Build never persists.
func NewCompactor(archive period.Archive, directory Directory, store Store, opts ...Option) *Compactor {
	c := &Compactor{archive: archive, directory: directory, store: store}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("compactor")
	}
	return c
}

// Collect scans every archived period oldest to newest and returns the
// competitor's standing records on the absolute timeline, together with the
// private category index in first-occurrence order.
func (c *Compactor) Collect(ctx context.Context, steamID uint64) ([]model.ProfileRecord, category.Names, error) {
	if !c.directory.Exists(ctx, steamID) {
		return nil, nil, errs.Wrap("profile.collect", errs.ErrSteamID, fmt.Errorf("unknown competitor %d", steamID))
	}

	ids, err := c.archive.ListPeriods(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list periods: %w", err)
	}

	var (
		out   []model.ProfileRecord
		names category.Names
	)
	for _, id := range ids {
		p, err := c.archive.Period(ctx, id)
		if err != nil {
			return nil, nil, fmt.Errorf("open period %s: %w", id, err)
		}
		records, err := p.Ledger.ReadAll(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("read period %s: %w", id, err)
		}
		offset := p.Offset()
		for _, r := range leaderboard.Resolve(records) {
			if r.SteamID != steamID {
				continue
			}
			names.Add(r.Category)
			out = append(out, model.ProfileRecord{
				Category:  r.Category,
				Time:      r.Time,
				Portals:   r.Portals,
				Timestamp: r.Timestamp + offset,
			})
		}
	}
	return out, names, nil
}

// Build compacts and, when a store is configured, persists the profile.
// Nothing is written for an unknown competitor.
func (c *Compactor) Build(ctx context.Context, steamID uint64) (Profile, error) {
	start := time.Now()
	defer func() {
		metrics.RecordCompactionLatency(float64(time.Since(start).Milliseconds()))
	}()

	records, names, err := c.Collect(ctx, steamID)
	if err != nil {
		metrics.RecordCompactionError(errs.Code(err))
		return Profile{}, err
	}
	data, err := EncodeAll(records, names)
	if err != nil {
		metrics.RecordCompactionError(errs.Code(err))
		return Profile{}, err
	}
	if names == nil {
		names = category.Names{}
	}
	p := Profile{SteamID: steamID, Categories: names, Data: data}

	if c.store != nil {
		if err := c.store.Save(ctx, p); err != nil {
			metrics.RecordCompactionError("io")
			return Profile{}, fmt.Errorf("save profile %d: %w", steamID, err)
		}
	}

	c.logger.Debug(ctx, "profile compacted",
		logger.Uint64("steamid", steamID),
		logger.Int("records", len(records)),
		logger.Int("categories", len(names)),
	)
	return p, nil
}

// Stored returns the last persisted profile without rescanning the archive.
// A competitor with no stored artifact, or an empty one, has no history.
func (c *Compactor) Stored(ctx context.Context, steamID uint64) (Profile, error) {
	if !c.directory.Exists(ctx, steamID) {
		return Profile{}, errs.Wrap("profile.stored", errs.ErrSteamID, fmt.Errorf("unknown competitor %d", steamID))
	}
	empty := Profile{SteamID: steamID, Categories: category.Names{}, Data: []byte{}}
	if c.store == nil {
		return empty, nil
	}
	p, found, err := c.store.Load(ctx, steamID)
	if err != nil {
		return Profile{}, fmt.Errorf("load profile %d: %w", steamID, err)
	}
	if !found || len(p.Data) == 0 {
		return empty, nil
	}
	if _, err := p.Records(); err != nil {
		return Profile{}, err
	}
	return p, nil
}
