// Package kv provides the durable key-value store used by every service
// component: independent get/put/delete plus prefix-scoped key scans.
// There are no multi-key transactions and no compare-and-swap; callers
// order their writes so partial failure is observable as a safe state.
package kv

import (
	"context"
	"fmt"
)

// Backend names accepted by Config.Type.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds store configuration.
type Config struct {
	// Type selects the backend: "memory" or "redis".
	Type string

	// Redis settings, used when Type is "redis".
	RedisURL      string
	RedisPassword string
	RedisDB       int
	RedisPoolSize int

	// ScanCount is the page size hint for prefix scans.
	ScanCount int
}

// DefaultConfig returns a config suitable for local development.
func DefaultConfig() Config {
	return Config{
		Type:      BackendMemory,
		RedisURL:  "redis://localhost:6379",
		RedisDB:   0,
		ScanCount: 100,
	}
}

// Iterator walks the keys under a prefix lazily, fetching pages behind the
// scenes until the scan is exhausted. Callers never see cursors.
//
//	it := store.Scan(ctx, "ann:mymod:")
//	for it.Next(ctx) {
//	    key := it.Key()
//	    ...
//	}
//	if err := it.Err(); err != nil { ... }
type Iterator interface {
	// Next advances to the next key, returning false when the scan is
	// exhausted or failed. Check Err after a false return.
	Next(ctx context.Context) bool
	// Key returns the current key.
	Key() string
	// Err returns the first error encountered, if any.
	Err() error
}

// Store is the durable key-value abstraction. Get reports misses via the
// ok flag rather than an error so absent records stay ordinary control
// flow.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Scan(ctx context.Context, prefix string) Iterator
	Ping(ctx context.Context) error
	Close() error
}

// New creates a store for the configured backend.
func New(cfg Config) (Store, error) {
	switch cfg.Type {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendRedis:
		return NewRedisStore(cfg)
	default:
		return nil, fmt.Errorf("invalid storage type: %s (must be memory or redis)", cfg.Type)
	}
}
