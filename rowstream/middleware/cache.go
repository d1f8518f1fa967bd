package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/prodevtools/lazy-rowstream-go/rowstream"
)

// QueryCache memoizes the results of read operations keyed by their
// QuerySignature. Entries never expire and the cache is unbounded; its
// lifetime is whatever its owner gives it, typically the process. Two
// concurrent callers racing on the same signature populate it exactly once.
//
// Only read operations belong in the cache: a cached mutating operation would
// silently skip its side effect on the second call, so wrapping one is a
// caller error this middleware cannot detect.
type QueryCache struct {
	mu      sync.Mutex
	entries map[rowstream.QuerySignature]*cacheEntry
}

type cacheEntry struct {
	once  sync.Once
	value any
	err   error
}

// NewQueryCache creates an empty cache. The caller owns its lifetime.
func NewQueryCache() *QueryCache {
	return &QueryCache{entries: make(map[rowstream.QuerySignature]*cacheEntry)}
}

// Len returns the number of populated or in-flight entries.
func (c *QueryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// entry returns the entry for the signature, creating it if absent.
func (c *QueryCache) entry(signature rowstream.QuerySignature) *cacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, found := c.entries[signature]
	if !found {
		entry = &cacheEntry{}
		c.entries[signature] = entry
	}

	return entry
}

// evict drops a failed entry so a later call can repopulate it. The pointer
// comparison keeps a concurrent repopulation from being evicted by a stale
// caller.
func (c *QueryCache) evict(signature rowstream.QuerySignature, failed *cacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entries[signature] == failed {
		delete(c.entries, signature)
	}
}

// Cached wraps a read operation with memoization on the given signature. The
// first call executes the operation and stores the result; subsequent calls
// with the same signature return the stored result without re-invoking the
// operation. Failed executions are not cached; the next call re-executes.
func Cached[T any](cache *QueryCache, signature rowstream.QuerySignature, operation Operation[T]) Operation[T] {
	return func(ctx context.Context) (T, error) {
		var empty T

		entry := cache.entry(signature)
		entry.once.Do(func() {
			entry.value, entry.err = operation(ctx)
		})

		if entry.err != nil {
			cache.evict(signature, entry)
			return empty, entry.err
		}

		result, ok := entry.value.(T)
		if !ok {
			return empty, errors.Join(
				rowstream.ErrValidation,
				fmt.Errorf("cache entry for signature %q holds %T, not the requested type", signature, entry.value),
			)
		}

		return result, nil
	}
}

// Caching returns Cached as a composable Middleware for use with Chain.
func Caching[T any](cache *QueryCache, signature rowstream.QuerySignature) Middleware[T] {
	return func(operation Operation[T]) Operation[T] {
		return Cached(cache, signature, operation)
	}
}
