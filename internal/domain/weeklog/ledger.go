package weeklog

import (
	"context"
	"fmt"
	"sync"

	"github.com/p2r3/epochtal/internal/domain/category"
	"github.com/p2r3/epochtal/internal/domain/errs"
	"github.com/p2r3/epochtal/internal/domain/model"
	"github.com/p2r3/epochtal/pkg/logger"
	"github.com/p2r3/epochtal/pkg/metrics"
)

// FrameStore is the raw byte ledger underneath a Ledger.
type FrameStore interface {
	// Append writes frame at the end of the ledger.
	Append(ctx context.Context, frame []byte) error
	// ReadAll returns a snapshot of the whole ledger.
	ReadAll(ctx context.Context) ([]byte, error)
	// RemoveAt excises length bytes at offset, shifting later bytes back.
	RemoveAt(ctx context.Context, offset int64, length int) error
	// Size returns the ledger length in bytes.
	Size(ctx context.Context) (int64, error)
}

// Ledger reads and mutates one period's weekly log in terms of records.
// Mutations are serialized; reads work on snapshots and never block them.
type Ledger struct {
	mu       sync.Mutex
	store    FrameStore
	registry category.Registry
	logger   logger.Logger
}

// Option applies a configuration option to the Ledger.
type Option func(*Ledger)

// WithLogger sets a custom logger for the ledger.
func WithLogger(l logger.Logger) Option {
	return func(lg *Ledger) {
		if l != nil {
			lg.logger = l
		}
	}
}

// NewLedger binds a frame store to the category registry active for it.
func NewLedger(store FrameStore, registry category.Registry, opts ...Option) *Ledger {
	l := &Ledger{store: store, registry: registry}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = logger.Get().Named("weeklog")
	}
	return l
}

// Categories returns the registry snapshot used for encoding and decoding.
func (l *Ledger) Categories() category.List {
	return l.registry.Categories()
}

// Append encodes r and appends it to the ledger.
func (l *Ledger) Append(ctx context.Context, r model.Record) error {
	frame, err := Encode(r, l.registry.Categories())
	if err != nil {
		metrics.RecordLedgerError(errs.Code(err))
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.store.Append(ctx, frame); err != nil {
		metrics.RecordLedgerError("io")
		return fmt.Errorf("weeklog append: %w", err)
	}

	tombstone := IsTombstoneFrame(frame)
	if tombstone {
		metrics.RecordLedgerTombstone()
	} else {
		metrics.RecordLedgerAppend()
	}
	l.logger.Debug(ctx, "ledger record appended",
		logger.Uint64("steamid", r.SteamID),
		logger.String("category", r.Category),
		logger.Uint64("timestamp", r.Timestamp),
		logger.Bool("tombstone", tombstone),
	)
	return nil
}

// Len returns the number of frames without reading them.
func (l *Ledger) Len(ctx context.Context) (int, error) {
	size, err := l.store.Size(ctx)
	if err != nil {
		return 0, fmt.Errorf("weeklog size: %w", err)
	}
	n := int(size / FrameSize)
	metrics.UpdateLedgerFrames(n)
	return n, nil
}

// Frames returns a raw snapshot of the ledger.
func (l *Ledger) Frames(ctx context.Context) ([]byte, error) {
	data, err := l.store.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("weeklog read: %w", err)
	}
	metrics.UpdateLedgerFrames(len(data) / FrameSize)
	return data, nil
}

// ReadAll returns every record in file order, tombstones included.
func (l *Ledger) ReadAll(ctx context.Context) ([]model.Record, error) {
	data, err := l.Frames(ctx)
	if err != nil {
		return nil, err
	}
	return DecodeAll(data, l.registry.Categories())
}

// RemoveByTimestamp excises the first frame in file order whose timestamp
// equals ts. Timestamps are not unique; later frames with the same timestamp
// are left alone.
func (l *Ledger) RemoveByTimestamp(ctx context.Context, ts uint64) error {
	const op = "weeklog.remove_by_timestamp"

	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := l.store.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("weeklog read: %w", err)
	}
	if len(data)%FrameSize != 0 {
		metrics.RecordLedgerError(errs.ErrCorrupt.Error())
		return errs.Wrap(op, errs.ErrCorrupt, fmt.Errorf("ledger is %d bytes", len(data)))
	}

	off := FindTimestamp(data, ts)
	if off < 0 {
		metrics.RecordLedgerError(errs.ErrTimestamp.Error())
		return errs.Wrap(op, errs.ErrTimestamp, fmt.Errorf("no record at timestamp %d", ts))
	}
	if err := l.store.RemoveAt(ctx, int64(off), FrameSize); err != nil {
		metrics.RecordLedgerError("io")
		return fmt.Errorf("weeklog remove: %w", err)
	}

	metrics.RecordLedgerRemoval()
	l.logger.Info(ctx, "ledger record removed",
		logger.Uint64("timestamp", ts),
		logger.Int("offset", off),
	)
	return nil
}

// FindTimestamp returns the byte offset of the first frame in data whose
// timestamp equals ts, or -1.
func FindTimestamp(data []byte, ts uint64) int {
	for off := 0; off+FrameSize <= len(data); off += FrameSize {
		if timestamp(data[off:off+FrameSize]) == ts {
			return off
		}
	}
	return -1
}
