// Package archive opens competition periods laid out on the local
// filesystem. Every period directory holds a week.yaml document and a
// weeklog.bin ledger.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/p2r3/epochtal/internal/adapters/repository"
	"github.com/p2r3/epochtal/internal/domain/category"
	"github.com/p2r3/epochtal/internal/domain/period"
	"github.com/p2r3/epochtal/internal/domain/weeklog"
	"github.com/p2r3/epochtal/pkg/logger"
)

const (
	// MetadataFile is the period document inside a period directory.
	MetadataFile = "week.yaml"
	// LedgerFile is the weekly ledger inside a period directory.
	LedgerFile = "weeklog.bin"
)

// ErrNoMetadata is returned when a directory has no week.yaml.
var ErrNoMetadata = errors.New("period metadata missing")

// Metadata is the week.yaml document.
type Metadata struct {
	Number     uint64        `yaml:"number"`
	Categories category.List `yaml:"categories"`
}

// ReadMetadata parses dir/week.yaml.
func ReadMetadata(dir string) (Metadata, error) {
	raw, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if errors.Is(err, fs.ErrNotExist) {
		return Metadata{}, fmt.Errorf("%s: %w", dir, ErrNoMetadata)
	}
	if err != nil {
		return Metadata{}, fmt.Errorf("read metadata: %w", err)
	}
	var m Metadata
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return Metadata{}, fmt.Errorf("parse %s: %w", filepath.Join(dir, MetadataFile), err)
	}
	return m, nil
}

// WriteMetadata replaces dir/week.yaml.
func WriteMetadata(dir string, m Metadata) error {
	raw, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	return repository.WriteFileAtomic(filepath.Join(dir, MetadataFile), raw, 0o644)
}

// OpenPeriod opens the period stored in dir. Its start is derived from the
// tournament epoch, the period duration and the period number.
func OpenPeriod(dir string, epoch time.Time, duration time.Duration, opts ...repository.Option) (*period.Context, error) {
	m, err := ReadMetadata(dir)
	if err != nil {
		return nil, err
	}
	if duration <= 0 {
		duration = period.DefaultDuration
	}
	store := repository.NewFileStore(filepath.Join(dir, LedgerFile), opts...)
	return &period.Context{
		ID:         filepath.Base(dir),
		Number:     m.Number,
		Duration:   duration,
		Start:      period.StartFor(epoch, duration, m.Number),
		Categories: m.Categories,
		Ledger:     weeklog.NewLedger(store, m.Categories),
	}, nil
}

// FS is a period.Archive over a directory of period directories.
type FS struct {
	dir      string
	epoch    time.Time
	duration time.Duration
	logger   logger.Logger
}

// Option applies a configuration option to FS.
type Option func(*FS)

// WithLogger sets a custom logger for the archive.
func WithLogger(l logger.Logger) Option {
	return func(a *FS) {
		if l != nil {
			a.logger = l
		}
	}
}

// New returns an archive rooted at dir.
func New(dir string, epoch time.Time, duration time.Duration, opts ...Option) *FS {
	if duration <= 0 {
		duration = period.DefaultDuration
	}
	a := &FS{dir: dir, epoch: epoch, duration: duration}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = logger.Get().Named("archive")
	}
	return a
}

// ListPeriods returns the ids of archived periods ordered by period number.
// Directories without week.yaml are skipped. A missing archive is empty.
func (a *FS) ListPeriods(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(a.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list archive: %w", err)
	}

	type entry struct {
		id     string
		number uint64
	}
	var found []entry
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		m, err := ReadMetadata(filepath.Join(a.dir, e.Name()))
		if errors.Is(err, ErrNoMetadata) {
			a.logger.Debug(ctx, "skipping directory without metadata", logger.String("dir", e.Name()))
			continue
		}
		if err != nil {
			return nil, err
		}
		found = append(found, entry{id: e.Name(), number: m.Number})
	}

	sort.SliceStable(found, func(i, j int) bool {
		if found[i].number != found[j].number {
			return found[i].number < found[j].number
		}
		return found[i].id < found[j].id
	})
	ids := make([]string, len(found))
	for i, e := range found {
		ids[i] = e.id
	}
	return ids, nil
}

// Period opens the archived period id.
func (a *FS) Period(_ context.Context, id string) (*period.Context, error) {
	if id == "" || id != filepath.Base(id) {
		return nil, fmt.Errorf("invalid period id %q", id)
	}
	return OpenPeriod(filepath.Join(a.dir, id), a.epoch, a.duration)
}

// DirName is the conventional directory name of period number.
func DirName(number uint64) string {
	return fmt.Sprintf("week%d", number)
}
