// Package competitor provides the set of known competitors.
package competitor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/p2r3/epochtal/internal/domain/weeklog"
)

// Directory answers whether a competitor exists.
type Directory interface {
	Exists(ctx context.Context, steamID uint64) bool
	List(ctx context.Context) []uint64
}

// Entry is one users.yaml item.
type Entry struct {
	SteamID string `yaml:"steamid"`
	Name    string `yaml:"name"`
}

// Static is an in-memory Directory.
type Static struct {
	mu    sync.RWMutex
	names map[uint64]string
}

// NewStatic returns a directory holding ids.
func NewStatic(ids ...uint64) *Static {
	s := &Static{names: make(map[uint64]string, len(ids))}
	for _, id := range ids {
		s.names[id] = ""
	}
	return s
}

// Add registers a competitor.
func (s *Static) Add(steamID uint64, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names[steamID] = name
}

// Exists reports whether steamID is known.
func (s *Static) Exists(_ context.Context, steamID uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.names[steamID]
	return ok
}

// Name returns the display name of steamID.
func (s *Static) Name(steamID uint64) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.names[steamID]
	return n, ok
}

// List returns all known ids in ascending order.
func (s *Static) List(_ context.Context) []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]uint64, 0, len(s.names))
	for id := range s.names {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// LoadFile reads a users.yaml document. A missing file yields an empty
// directory.
func LoadFile(path string) (*Static, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewStatic(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read users: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a users.yaml document.
func Parse(raw []byte) (*Static, error) {
	var entries []Entry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse users: %w", err)
	}
	s := NewStatic()
	for i, e := range entries {
		id, err := weeklog.ParseSteamID(e.SteamID)
		if err != nil {
			return nil, fmt.Errorf("users entry %d: %w", i, err)
		}
		s.Add(id, e.Name)
	}
	return s, nil
}
