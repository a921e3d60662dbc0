// Package service binds the active period, the archive and the competitor
// directory into the operations exposed by the HTTP API and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/p2r3/epochtal/internal/adapters/competitor"
	"github.com/p2r3/epochtal/internal/adapters/mq/queue"
	"github.com/p2r3/epochtal/internal/adapters/mq/worker"
	"github.com/p2r3/epochtal/internal/adapters/notes"
	"github.com/p2r3/epochtal/internal/domain/errs"
	"github.com/p2r3/epochtal/internal/domain/leaderboard"
	"github.com/p2r3/epochtal/internal/domain/model"
	"github.com/p2r3/epochtal/internal/domain/period"
	"github.com/p2r3/epochtal/internal/domain/profile"
	"github.com/p2r3/epochtal/internal/domain/weeklog"
	"github.com/p2r3/epochtal/pkg/logger"
	"github.com/p2r3/epochtal/pkg/metrics"
)

// ErrNotStarted is returned by operations that need the worker pool.
var ErrNotStarted = errors.New("service not started")

// Submission is a run handed in by a competitor.
type Submission struct {
	SteamID   uint64
	Category  string
	Time      uint64
	Portals   uint64
	Note      string
	Segmented bool
}

// CompactionSummary reports the outcome of CompactAll.
type CompactionSummary struct {
	Compacted int `json:"compacted"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Service implements the API dependencies for one running competition.
type Service struct {
	mu sync.RWMutex

	active    *period.Context
	archive   period.Archive
	directory competitor.Directory
	profiles  profile.Store
	notes     *notes.Store
	compactor *profile.Compactor

	queue *queue.InMemoryQueue
	pool  *worker.Pool

	workerCount int
	queueSize   int
	now         func() time.Time

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of compaction workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the compaction queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDirectory sets the competitor directory.
func WithDirectory(d competitor.Directory) Option {
	return func(s *Service) {
		if d != nil {
			s.directory = d
		}
	}
}

// WithProfileStore persists compacted profiles.
func WithProfileStore(store profile.Store) Option {
	return func(s *Service) {
		s.profiles = store
	}
}

// WithNotes sets the sidecar holding run notes and segmented flags.
func WithNotes(n *notes.Store) Option {
	return func(s *Service) {
		if n != nil {
			s.notes = n
		}
	}
}

// WithClock overrides the wall clock used to stamp submissions.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service over the active period and the archive.
func New(active *period.Context, archive period.Archive, opts ...Option) *Service {
	s := &Service{
		active:      active,
		archive:     archive,
		directory:   competitor.NewStatic(),
		workerCount: runtime.NumCPU(),
		queueSize:   4096,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.notes == nil {
		s.notes, _ = notes.Open("")
	}
	s.compactor = profile.NewCompactor(archive, s.directory, s.profiles)
	return s
}

// Start starts the compaction worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s.compactor)
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "service started",
		logger.String("period", s.active.ID),
		logger.Uint64("number", s.active.Number),
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
	)
	return nil
}

// Stop closes the compaction queue, lets the workers finish the jobs
// already queued and stops them.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Error(ctx, "worker pool shutdown failed", logger.Error(err))
	}
	s.started = false
	s.logger.Info(ctx, "service stopped")
}

// Period returns the active period.
func (s *Service) Period() *period.Context { return s.active }

// timestamp returns the seconds elapsed since the active period began.
// Submissions stamped before the start count as second zero.
func (s *Service) timestamp() uint64 {
	elapsed := s.now().Sub(s.active.Start)
	if elapsed < 0 {
		return 0
	}
	return uint64(elapsed / time.Second)
}

// Submit validates sub, stamps it and appends it to the active ledger.
func (s *Service) Submit(ctx context.Context, sub Submission) (model.Record, error) {
	const op = "service.submit"
	switch {
	case sub.SteamID == 0:
		return model.Record{}, errs.Wrap(op, errs.ErrArgs, errors.New("steamid is required"))
	case sub.Category == "":
		return model.Record{}, errs.Wrap(op, errs.ErrArgs, errors.New("category is required"))
	case sub.Time == 0:
		return model.Record{}, errs.Wrap(op, errs.ErrArgs, errors.New("time must be positive"))
	case weeklog.WireTombstone(model.Record{Time: sub.Time, Portals: sub.Portals}):
		return model.Record{}, errs.Wrap(op, errs.ErrArgs, errors.New("time and portals wrap to a retraction"))
	}
	if _, ok := s.active.Categories.Index(sub.Category); !ok {
		return model.Record{}, errs.Wrap(op, errs.ErrCategory, fmt.Errorf("unknown category %q", sub.Category))
	}
	if !s.directory.Exists(ctx, sub.SteamID) {
		return model.Record{}, errs.Wrap(op, errs.ErrSteamID, fmt.Errorf("unknown competitor %d", sub.SteamID))
	}

	rec := model.Record{
		SteamID:   sub.SteamID,
		Category:  sub.Category,
		Time:      sub.Time,
		Portals:   sub.Portals,
		Timestamp: s.timestamp(),
	}
	if err := s.active.Ledger.Append(ctx, rec); err != nil {
		return model.Record{}, err
	}
	if err := s.notes.Put(ctx, notes.KeyOf(rec), notes.Note{Text: sub.Note, Segmented: sub.Segmented}); err != nil {
		s.logger.Warn(ctx, "note not saved", logger.Uint64("steamid", rec.SteamID), logger.Error(err))
	}

	s.logger.Info(ctx, "run submitted",
		logger.Uint64("steamid", rec.SteamID),
		logger.String("category", rec.Category),
		logger.Uint64("time", rec.Time),
		logger.Uint64("portals", rec.Portals),
		logger.Uint64("timestamp", rec.Timestamp),
	)
	return rec, nil
}

// Retract appends a tombstone withdrawing the competitor's latest standing
// run in category.
func (s *Service) Retract(ctx context.Context, steamID uint64, categoryName string) error {
	const op = "service.retract"
	if steamID == 0 || categoryName == "" {
		return errs.Wrap(op, errs.ErrArgs, errors.New("steamid and category are required"))
	}
	if _, ok := s.active.Categories.Index(categoryName); !ok {
		return errs.Wrap(op, errs.ErrCategory, fmt.Errorf("unknown category %q", categoryName))
	}
	rec := model.Record{SteamID: steamID, Category: categoryName, Timestamp: s.timestamp()}
	if err := s.active.Ledger.Append(ctx, rec); err != nil {
		return err
	}
	s.logger.Info(ctx, "run retracted", logger.Uint64("steamid", steamID), logger.String("category", categoryName))
	return nil
}

// RemoveByTimestamp excises the first ledger record stamped ts.
func (s *Service) RemoveByTimestamp(ctx context.Context, ts uint64) error {
	return s.active.Ledger.RemoveByTimestamp(ctx, ts)
}

// Leaderboard reconstructs the standings of the active period.
func (s *Service) Leaderboard(ctx context.Context) (model.Leaderboard, error) {
	frames, err := s.active.Ledger.Frames(ctx)
	if err != nil {
		return nil, err
	}
	return leaderboard.Reconstruct(frames, s.active.Categories, s.active.Start,
		leaderboard.WithAnnotator(s.notes.Annotator()))
}

// CategoryLeaderboard returns the ranked runs of one category. A known
// category without runs yields an empty slice.
func (s *Service) CategoryLeaderboard(ctx context.Context, name string) ([]model.Run, error) {
	if _, ok := s.active.Categories.Index(name); !ok {
		return nil, errs.Wrap("service.category_leaderboard", errs.ErrCategory, fmt.Errorf("unknown category %q", name))
	}
	board, err := s.Leaderboard(ctx)
	if err != nil {
		return nil, err
	}
	runs := board[name]
	if runs == nil {
		runs = []model.Run{}
	}
	return runs, nil
}

// Profile compacts and returns the cross-period history of steamID.
func (s *Service) Profile(ctx context.Context, steamID uint64) (profile.Profile, error) {
	return s.compactor.Build(ctx, steamID)
}

// StoredProfile returns the last compacted profile of steamID as persisted,
// without recompacting.
func (s *Service) StoredProfile(ctx context.Context, steamID uint64) (profile.Profile, error) {
	return s.compactor.Stored(ctx, steamID)
}

// CompactAll recompacts every known competitor on the worker pool and waits
// for the results. Jobs the queue rejects are counted as skipped.
func (s *Service) CompactAll(ctx context.Context) (CompactionSummary, error) {
	s.mu.RLock()
	started, q := s.started, s.queue
	s.mu.RUnlock()
	if !started {
		return CompactionSummary{}, ErrNotStarted
	}

	ids := s.directory.List(ctx)
	results := make(chan error, len(ids))
	var summary CompactionSummary
	pending := 0
	for _, id := range ids {
		if err := q.Enqueue(ctx, queue.Job{SteamID: id, Result: results}); err != nil {
			summary.Skipped++
			s.logger.Warn(ctx, "compaction job rejected", logger.Uint64("steamid", id), logger.Error(err))
			continue
		}
		pending++
	}

	for ; pending > 0; pending-- {
		select {
		case err := <-results:
			if err != nil {
				summary.Failed++
				continue
			}
			summary.Compacted++
		case <-ctx.Done():
			return summary, ctx.Err()
		}
	}

	s.logger.Info(ctx, "compaction finished",
		logger.Int("compacted", summary.Compacted),
		logger.Int("skipped", summary.Skipped),
		logger.Int("failed", summary.Failed),
	)
	return summary, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":      s.started,
		"period":       s.active.ID,
		"periodNumber": s.active.Number,
		"periodStart":  s.active.Start,
		"categories":   len(s.active.Categories),
		"competitors":  len(s.directory.List(ctx)),
		"workerCount":  s.workerCount,
		"queueSize":    s.queueSize,
	}

	if frames, err := s.active.Ledger.Len(ctx); err == nil {
		stats["frames"] = frames
	}
	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["queueLength"] = queueLen
		metrics.UpdateQueueSize(queueLen)
	}
	return stats
}
