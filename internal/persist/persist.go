// Package persist is the key-value port behind the event store and the
// insight cache. Each key holds one JSON blob that is always rewritten
// whole.
package persist

import (
	"errors"
	"fmt"

	"tetcal/internal/config"
)

// ErrNotFound is returned by Load when nothing has been saved under a key.
var ErrNotFound = errors.New("persist: key not found")

// Store reads and writes named blobs of structured state.
type Store interface {
	Load(key string) ([]byte, error)
	Save(key string, data []byte) error
	Close() error
}

// Open builds the Store selected by cfg.Backend.
func Open(cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case config.BackendFile, "":
		return NewFileStore(cfg.Dir)
	case config.BackendSQLite:
		return NewSQLiteStore(cfg.SQLitePath)
	case config.BackendRedis:
		return NewRedisStore(cfg.RedisURL)
	case config.BackendMemory:
		return NewMemStore(), nil
	default:
		return nil, fmt.Errorf("persist: unknown backend %q", cfg.Backend)
	}
}
