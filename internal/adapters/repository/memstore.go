package repository

import (
	"context"
	"sync"
)

// MemStore is an in-memory ledger store, used for tests and dry runs.
type MemStore struct {
	mu   sync.RWMutex
	data []byte
}

// NewMemStore returns a store seeded with a copy of data.
func NewMemStore(data []byte) *MemStore {
	return &MemStore{data: append([]byte(nil), data...)}
}

func (m *MemStore) Append(_ context.Context, frame []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append(m.data, frame...)
	return nil
}

func (m *MemStore) ReadAll(_ context.Context) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]byte{}, m.data...), nil
}

func (m *MemStore) RemoveAt(_ context.Context, offset int64, length int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	out, err := excise(m.data, offset, length)
	if err != nil {
		return err
	}
	m.data = out
	return nil
}

func (m *MemStore) Size(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.data)), nil
}
