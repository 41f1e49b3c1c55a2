// Package cache stores compiled evaluation results between CLI runs.
//
// nodecalc eval keys each result on the script, the scene and the
// configuration it ran with, so rerunning an unchanged script skips the
// calculator entirely. Three backends implement [Cache]:
//
//   - [FileCache] keeps entries as JSON files under the user cache dir
//   - [RedisCache] shares entries between machines through Redis
//   - [NullCache] stores nothing and backs --no-cache
//
// [Instrument] wraps any backend and reports hits, misses and writes to
// the observability cache hooks.
package cache

import (
	"context"
	"time"

	"github.com/matzehuels/nodecalc/pkg/observability"
)

// Cache is a byte store with optional expiry.
type Cache interface {
	// Get returns the entry for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend's resources.
	Close() error
}

type instrumented struct {
	Cache
	keyType string
}

// Instrument reports every Get and Set on c to the registered cache hooks
// under keyType.
func Instrument(c Cache, keyType string) Cache {
	return &instrumented{Cache: c, keyType: keyType}
}

func (c *instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok, err := c.Cache.Get(ctx, key)
	if err == nil {
		if ok {
			observability.Cache().OnCacheHit(ctx, c.keyType)
		} else {
			observability.Cache().OnCacheMiss(ctx, c.keyType)
		}
	}
	return data, ok, err
}

func (c *instrumented) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := c.Cache.Set(ctx, key, data, ttl); err != nil {
		return err
	}
	observability.Cache().OnCacheSet(ctx, c.keyType, len(data))
	return nil
}
