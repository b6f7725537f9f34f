/*
Package cache holds the two caching layers: the directory read-through
cache and the analytics result cache. Both share the same single-flight
refresh discipline so an expired entry is only ever recomputed once no
matter how many callers hit it concurrently.
*/
package cache

import (
	"time"
)

// Entry is one cached value with its freshness metadata. Entries are
// created on first successful fetch and replaced wholesale on refresh,
// never mutated in place, so concurrent readers always see a complete
// snapshot.
type Entry[T any] struct {
	Value      T
	ComputedAt time.Time
	TTL        time.Duration
}

// Fresh reports whether the entry is still within its TTL at the given
// instant.
func (e *Entry[T]) Fresh(now time.Time) bool {
	return e != nil && now.Sub(e.ComputedAt) < e.TTL
}
