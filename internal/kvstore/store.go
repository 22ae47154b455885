// Package kvstore provides the string-keyed persistence used by the schedule cache.
//
// A store holds at most one value per key. Writes overwrite, nothing is ever
// deleted, and values are opaque bytes to the store.
package kvstore

import (
	"context"

	"github.com/pkg/errors"
)

// Store is an opaque get/set store keyed by string.
type Store interface {
	// Get returns the value stored under key. The bool is false when the key is absent.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// New creates a store for the named driver ("memory" or "sqlite").
func New(driver, dsn string) (Store, error) {
	switch driver {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite":
		store, err := NewSQLite(dsn)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create sqlite store")
		}
		return store, nil
	default:
		return nil, errors.Errorf("unknown store driver %q: only 'memory' and 'sqlite' are supported", driver)
	}
}
