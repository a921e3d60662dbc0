// Package leaderboard rebuilds ranked standings from a weekly ledger.
//
// Reconstruction runs in two passes over the records in file order:
//
//  1. Resolve walks oldest to newest. A tombstone removes the most recent
//     earlier record of the same competitor and category from the working
//     log and is itself discarded. A tombstone with nothing to retract is a
//     no-op.
//  2. Rank walks the working log newest to oldest. The first record seen for
//     a (category, competitor) pair is that competitor's standing run; older
//     ones are ignored. Each standing run is inserted into its category by
//     linear scan, just before the first entry it does not rank after.
package leaderboard

import (
	"time"

	"github.com/p2r3/epochtal/internal/domain/category"
	"github.com/p2r3/epochtal/internal/domain/model"
	"github.com/p2r3/epochtal/internal/domain/weeklog"
	"github.com/p2r3/epochtal/pkg/metrics"
)

// Annotator supplies per-run metadata the binary ledger cannot carry.
type Annotator func(r model.Record) (note string, segmented bool)

type options struct {
	annotate Annotator
}

// Option applies a configuration option to reconstruction.
type Option func(*options)

// WithAnnotator attaches notes and the segmented flag to reconstructed runs.
func WithAnnotator(a Annotator) Option {
	return func(o *options) {
		if a != nil {
			o.annotate = a
		}
	}
}

// Reconstruct decodes frames against categories and ranks them. start is the
// absolute time the period began; run dates are start plus the record
// timestamp.
func Reconstruct(frames []byte, categories category.Indexer, start time.Time, opts ...Option) (model.Leaderboard, error) {
	began := time.Now()
	defer func() {
		metrics.RecordReconstructLatency(float64(time.Since(began).Milliseconds()))
	}()

	records, err := weeklog.DecodeAll(frames, categories)
	if err != nil {
		return nil, err
	}
	return Rank(Resolve(records), start, opts...), nil
}

// Resolve applies tombstones and returns the working log in file order.
// The input slice is not modified.
func Resolve(records []model.Record) []model.Record {
	log := make([]model.Record, 0, len(records))
	for _, r := range records {
		if !r.IsTombstone() {
			log = append(log, r)
			continue
		}
		for i := len(log) - 1; i >= 0; i-- {
			if log[i].SteamID == r.SteamID && log[i].Category == r.Category {
				log = append(log[:i], log[i+1:]...)
				break
			}
		}
	}
	return log
}

type standing struct {
	category string
	steamID  uint64
}

// Rank orders a resolved working log into a leaderboard.
func Rank(log []model.Record, start time.Time, opts ...Option) model.Leaderboard {
	o := options{annotate: func(model.Record) (string, bool) { return "", false }}
	for _, opt := range opts {
		opt(&o)
	}

	board := make(model.Leaderboard)
	placed := make(map[standing]struct{}, len(log))

	for i := len(log) - 1; i >= 0; i-- {
		r := log[i]
		key := standing{category: r.Category, steamID: r.SteamID}
		if _, ok := placed[key]; ok {
			continue
		}
		placed[key] = struct{}{}

		note, segmented := o.annotate(r)
		run := model.Run{
			SteamID: r.SteamID,
			Time:    r.Time,
			Date:    start.Add(time.Duration(r.Timestamp) * time.Second),
			Note:    note,
		}
		if r.Category == category.LowestPortals {
			portals := r.Portals
			run.Portals = &portals
			run.Segmented = segmented
		}
		board[r.Category] = Insert(board[r.Category], run, r.Category)
	}
	return board
}

// Insert places run into runs before the first entry it does not rank after,
// or at the end.
func Insert(runs []model.Run, run model.Run, categoryName string) []model.Run {
	better := Comparator(categoryName)
	at := len(runs)
	for i := range runs {
		if !better(runs[i], run) {
			at = i
			break
		}
	}
	runs = append(runs, model.Run{})
	copy(runs[at+1:], runs[at:])
	runs[at] = run
	return runs
}

// Comparator returns the strict "ranks above" relation for a category.
//
// "lp" orders by fewer portals, then non-segmented before segmented, then
// faster time. Every other category orders by time alone.
func Comparator(categoryName string) func(a, b model.Run) bool {
	if categoryName == category.LowestPortals {
		return lowestPortalsBetter
	}
	return fasterBetter
}

func fasterBetter(a, b model.Run) bool {
	return a.Time < b.Time
}

func lowestPortalsBetter(a, b model.Run) bool {
	ap, bp := portalsOf(a), portalsOf(b)
	if ap != bp {
		return ap < bp
	}
	if a.Segmented != b.Segmented {
		return !a.Segmented
	}
	return a.Time < b.Time
}

func portalsOf(r model.Run) uint64 {
	if r.Portals == nil {
		return 0
	}
	return *r.Portals
}
