package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/p2r3/epochtal/internal/domain/category"
	"github.com/p2r3/epochtal/internal/domain/profile"
)

const (
	profileDataFile  = "profilelog.bin"
	profileIndexFile = "profilelog.json"
)

// ProfileStore keeps compacted profiles under dir/<steamid>/. The stream and
// its category index are written as a pair, index first. A rebuild only
// appends names to the index, so an interrupted save leaves the old stream
// next to an index that still covers it.
type ProfileStore struct {
	mu   sync.Mutex
	dir  string
	mode os.FileMode
}

// NewProfileStore returns a store rooted at dir.
func NewProfileStore(dir string) *ProfileStore {
	return &ProfileStore{dir: dir, mode: defaultFileMode}
}

// Dir returns the profile directory of steamID.
func (s *ProfileStore) Dir(steamID uint64) string {
	return filepath.Join(s.dir, strconv.FormatUint(steamID, 10))
}

// Save replaces the stored profile of p.SteamID.
func (s *ProfileStore) Save(_ context.Context, p profile.Profile) error {
	names := p.Categories
	if names == nil {
		names = category.Names{}
	}
	index, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("marshal category index: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.Dir(p.SteamID)
	if err := WriteFileAtomic(filepath.Join(dir, profileIndexFile), index, s.mode); err != nil {
		return fmt.Errorf("write profile index: %w", err)
	}
	if err := WriteFileAtomic(filepath.Join(dir, profileDataFile), p.Data, s.mode); err != nil {
		return fmt.Errorf("write profile stream: %w", err)
	}
	return nil
}

// Load returns the stored profile of steamID. found is false when no
// profile was ever written.
func (s *ProfileStore) Load(_ context.Context, steamID uint64) (profile.Profile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.Dir(steamID)
	index, err := os.ReadFile(filepath.Join(dir, profileIndexFile))
	if errors.Is(err, fs.ErrNotExist) {
		return profile.Profile{}, false, nil
	}
	if err != nil {
		return profile.Profile{}, false, fmt.Errorf("read profile index: %w", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, profileDataFile))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return profile.Profile{}, false, fmt.Errorf("read profile stream: %w", err)
	}

	names := category.Names{}
	if err := json.Unmarshal(index, &names); err != nil {
		return profile.Profile{}, false, fmt.Errorf("decode profile index: %w", err)
	}
	if data == nil {
		data = []byte{}
	}
	return profile.Profile{SteamID: steamID, Categories: names, Data: data}, true, nil
}
