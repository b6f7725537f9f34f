/*
result.go - Short-TTL cache of aggregation results with stampede protection

PURPOSE:
  Labor aggregation walks the whole ledger for a range; at tens of
  requests per second recomputing it per request would melt the store.
  ResultCache memoizes results per query key for a short TTL and
  guarantees at most one concurrent compute per key.

STAMPEDE PROTECTION:
  GetOrCompute runs the compute inside a per-key single-flight. Under N
  concurrent callers for the same expired key exactly one compute runs;
  the other N-1 block and share its result. A double-check inside the
  flight catches the case where the winner already stored the value
  before a late caller joined.

FAILURE SEMANTICS:
  A compute error propagates to every waiter of that flight and is
  never stored, so the next caller retries. No permanent poisoning.

STORAGE:
  Backed by ristretto with per-entry TTLs; admission may drop entries
  under memory pressure, which only costs a recompute.
*/
package cache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
	"golang.org/x/sync/singleflight"
)

// ResultCache memoizes expensive computations keyed by query parameters.
type ResultCache struct {
	store  *ristretto.Cache
	flight singleflight.Group
}

// NewResultCache creates a result cache sized for analytics workloads.
func NewResultCache() (*ResultCache, error) {
	store, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     1 << 26,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build result cache: %w", err)
	}
	return &ResultCache{store: store}, nil
}

// GetOrCompute returns the cached value for key, or runs fn once and
// caches its result for ttl. Concurrent callers for the same key share
// a single fn execution; fn errors propagate to all of them and are
// not cached.
func (c *ResultCache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) (any, error)) (any, error) {
	if v, ok := c.store.Get(key); ok {
		return v, nil
	}

	v, err, _ := c.flight.Do(key, func() (any, error) {
		// Double-check: the previous flight holder may have stored the
		// value while this caller was queueing.
		if v, ok := c.store.Get(key); ok {
			return v, nil
		}

		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}

		c.store.SetWithTTL(key, v, 1, ttl)
		// Make the write visible before the waiters return; ristretto
		// applies sets asynchronously.
		c.store.Wait()
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Invalidate drops one key.
func (c *ResultCache) Invalidate(key string) {
	c.store.Del(key)
}

// Clear drops every cached result. Ledger edits made through the admin
// path can affect any range, so the whole cache goes.
func (c *ResultCache) Clear() {
	c.store.Clear()
}

// Close releases the underlying cache resources.
func (c *ResultCache) Close() {
	c.store.Close()
}

// Key builds a deterministic cache key from query parts. Parts are
// joined in argument order, so callers must pass them in a canonical
// order. Each part is length-prefixed: a delimiter character inside a
// part (an id containing "|") cannot make two distinct part lists
// collide.
func Key(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(strconv.Itoa(len(p)))
		b.WriteByte(':')
		b.WriteString(p)
		b.WriteByte('|')
	}
	return b.String()
}
