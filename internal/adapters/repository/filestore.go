// Package repository persists raw ledger bytes on the local filesystem.
package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/p2r3/epochtal/pkg/logger"
	"github.com/p2r3/epochtal/pkg/metrics"
)

const defaultFileMode = 0o644

// FileStore keeps one append-only ledger in a single file. All mutations on one
// FileStore are serialized; concurrent readers see either the state before
// or after a mutation.
type FileStore struct {
	mu     sync.RWMutex
	path   string
	mode   os.FileMode
	sync   bool
	logger logger.Logger
}

// NewFileStore returns a store for the ledger at path. The file is created
// on first append.
func NewFileStore(path string, opts ...Option) *FileStore {
	s := &FileStore{
		path: path,
		mode: defaultFileMode,
		sync: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("filestore")
	}
	return s
}

// Path returns the ledger file path.
func (s *FileStore) Path() string { return s.path }

// Append writes frame at the end of the file in a single write. On failure
// the file is truncated back to its previous size.
func (s *FileStore) Append(ctx context.Context, frame []byte) error {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, s.mode)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat ledger: %w", err)
	}
	prev := st.Size()

	n, err := f.Write(frame)
	if err == nil && n != len(frame) {
		err = ErrShortWrite
	}
	if err == nil && s.sync {
		err = f.Sync()
	}
	if err != nil {
		if terr := f.Truncate(prev); terr != nil {
			s.logger.Error(ctx, "ledger rollback failed",
				logger.String("path", s.path),
				logger.Error(terr),
			)
			return errors.Join(fmt.Errorf("append ledger: %w", err), terr)
		}
		return fmt.Errorf("append ledger: %w", err)
	}
	return nil
}

// ReadAll returns the whole file. A missing file reads as empty.
func (s *FileStore) ReadAll(ctx context.Context) ([]byte, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []byte{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	return data, nil
}

// RemoveAt rewrites the file without the span [offset, offset+length).
// The rewrite goes through a temporary file and a rename, so a crash leaves
// either the old or the new ledger.
func (s *FileStore) RemoveAt(ctx context.Context, offset int64, length int) error {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		data = nil
	} else if err != nil {
		return fmt.Errorf("read ledger: %w", err)
	}

	out, err := excise(data, offset, length)
	if err != nil {
		return err
	}
	if err := WriteFileAtomic(s.path, out, s.mode); err != nil {
		return fmt.Errorf("rewrite ledger: %w", err)
	}
	s.logger.Debug(ctx, "ledger span excised",
		logger.String("path", s.path),
		logger.Int("offset", int(offset)),
		logger.Int("length", length),
	)
	return nil
}

// Size returns the current file size; a missing file has size zero.
func (s *FileStore) Size(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, err := os.Stat(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("stat ledger: %w", err)
	}
	return st.Size(), nil
}

// excise returns a copy of data without [offset, offset+length).
func excise(data []byte, offset int64, length int) ([]byte, error) {
	if offset < 0 || length < 0 || offset+int64(length) > int64(len(data)) {
		return nil, fmt.Errorf("remove [%d,+%d) from %d bytes: %w", offset, length, len(data), ErrOutOfRange)
	}
	out := make([]byte, 0, len(data)-length)
	out = append(out, data[:offset]...)
	out = append(out, data[offset+int64(length):]...)
	return out, nil
}
