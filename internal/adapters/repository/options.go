package repository

import (
	"os"

	"github.com/p2r3/epochtal/pkg/logger"
)

// Option applies a configuration option to the FileStore.
type Option func(*FileStore)

// WithFileMode sets the permission bits used when creating the ledger.
func WithFileMode(mode os.FileMode) Option {
	return func(s *FileStore) {
		if mode != 0 {
			s.mode = mode
		}
	}
}

// WithSync controls whether every mutation is fsynced before returning.
func WithSync(enabled bool) Option {
	return func(s *FileStore) {
		s.sync = enabled
	}
}

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(s *FileStore) {
		if l != nil {
			s.logger = l
		}
	}
}
