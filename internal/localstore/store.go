// Package localstore is the device-local key-value persistence used by the device identity provider
// and the session store. Backends: in-memory, SQL (SQLite on device, Postgres for hosted agents) and Redis.
package localstore

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("localstore: closed")

// KV is a namespaced string key-value store.
type KV interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set writes all entries atomically; last write wins.
	Set(ctx context.Context, entries map[string]string) error
	// Delete removes keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
}
