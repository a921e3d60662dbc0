// Package notes keeps the run metadata the weekly ledger has no room for:
// the free-text note and the segmented flag of each submission.
package notes

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/p2r3/epochtal/internal/adapters/repository"
	"github.com/p2r3/epochtal/internal/domain/leaderboard"
	"github.com/p2r3/epochtal/internal/domain/model"
)

// File is the conventional sidecar name inside a period directory.
const File = "notes.yaml"

// Key identifies a submission.
type Key struct {
	SteamID   uint64
	Category  string
	Timestamp uint64
}

// KeyOf returns the key of r.
func KeyOf(r model.Record) Key {
	return Key{SteamID: r.SteamID, Category: r.Category, Timestamp: r.Timestamp}
}

// Note is the metadata of one submission.
type Note struct {
	Text      string
	Segmented bool
}

type entry struct {
	SteamID   string `yaml:"steamid"`
	Category  string `yaml:"category"`
	Timestamp uint64 `yaml:"timestamp"`
	Note      string `yaml:"note,omitempty"`
	Segmented bool   `yaml:"segmented,omitempty"`
}

// Store is a notes sidecar. With an empty path it lives in memory only.
type Store struct {
	mu    sync.RWMutex
	path  string
	order []Key
	notes map[Key]Note
}

// Open loads the sidecar at path. A missing file is an empty store.
func Open(path string) (*Store, error) {
	s := &Store{path: path, notes: make(map[Key]Note)}
	if path == "" {
		return s, nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read notes: %w", err)
	}
	var entries []entry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse notes: %w", err)
	}
	for _, e := range entries {
		id, err := strconv.ParseUint(e.SteamID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse notes: steamid %q: %w", e.SteamID, err)
		}
		s.set(Key{SteamID: id, Category: e.Category, Timestamp: e.Timestamp}, Note{Text: e.Note, Segmented: e.Segmented})
	}
	return s, nil
}

func (s *Store) set(k Key, n Note) {
	if _, ok := s.notes[k]; !ok {
		s.order = append(s.order, k)
	}
	s.notes[k] = n
}

// Put records n for k and rewrites the sidecar. Empty notes are not stored.
func (s *Store) Put(_ context.Context, k Key, n Note) error {
	if n == (Note{}) {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.set(k, n)
	if s.path == "" {
		return nil
	}
	entries := make([]entry, 0, len(s.order))
	for _, key := range s.order {
		note := s.notes[key]
		entries = append(entries, entry{
			SteamID:   strconv.FormatUint(key.SteamID, 10),
			Category:  key.Category,
			Timestamp: key.Timestamp,
			Note:      note.Text,
			Segmented: note.Segmented,
		})
	}
	raw, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode notes: %w", err)
	}
	return repository.WriteFileAtomic(s.path, raw, 0o644)
}

// Get returns the note stored for k.
func (s *Store) Get(k Key) (Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notes[k]
	return n, ok
}

// Annotator adapts the store for leaderboard reconstruction.
func (s *Store) Annotator() leaderboard.Annotator {
	return func(r model.Record) (string, bool) {
		n, _ := s.Get(KeyOf(r))
		return n.Text, n.Segmented
	}
}
