// Package cache stores build fingerprints so unchanged projects are not
// rebuilt.
//
// A [Cache] maps string keys to opaque byte values with an optional TTL.
// Backends:
//   - [FileCache]: JSON entries under a local directory (the default)
//   - [RedisCache]: a Redis server shared by a team or CI fleet
//   - [MongoCache]: a MongoDB collection with a TTL index
//   - [NullCache]: stores nothing, for --no-cache
//
// Keys are built by a [Keyer], optionally scoped with [NewScopedKeyer] so
// several workspaces can share one remote backend.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store.
type Cache interface {
	// Get returns the value for key. A missing or expired entry is reported
	// as (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl <= 0 stores the entry without expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend connections.
	Close() error
}

// Clearer is implemented by backends that can drop every entry they own.
type Clearer interface {
	Clear(ctx context.Context) (int, error)
}
