/*
directory.go - TTL read-through cache over the external directory

PURPOSE:
  The upstream directory is slow and rate-sensitive, so every labor
  query must NOT hit it. This cache holds one immutable snapshot of the
  whole directory and refreshes it at most once per TTL window.

REFRESH POLICY:
  - First caller past the TTL triggers one upstream fetch; concurrent
    callers join the same flight and block for its result
  - Refresh failure with a previous good snapshot: serve the stale
    snapshot and log a warning (bounded staleness beats a failed call)
  - Refresh failure with NO previous snapshot (first-ever call): the
    call fails with punch.ErrUpstreamUnavailable
  - Upstream fetches are retried a few times with backoff and bounded
    by a rate limiter, so a flapping upstream cannot be hammered

CONCURRENCY:
  The snapshot pointer is guarded by a RWMutex and replaced wholesale;
  readers never observe a half-built snapshot. The single-flight group
  guarantees at most one upstream fetch in flight.
*/
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/warp/punchclock/directory"
	"github.com/warp/punchclock/punch"
)

// DefaultDirectoryTTL is how long a directory snapshot stays fresh.
const DefaultDirectoryTTL = 5 * time.Minute

// directorySnapshot is the immutable cached view of the whole directory.
type directorySnapshot struct {
	Employees map[punch.EmployeeID]directory.EmployeeRecord
	SiteNames map[punch.SiteID]string
}

// DirectoryCache is a TTL read-through cache over directory.Service.
type DirectoryCache struct {
	upstream directory.Service
	ttl      time.Duration
	log      *logrus.Logger

	mu      sync.RWMutex
	current *Entry[*directorySnapshot]

	flight  singleflight.Group
	limiter *rate.Limiter

	now func() time.Time
}

// NewDirectoryCache creates a cache with the default 5 minute TTL and a
// refresh rate cap of one upstream fetch per 10 seconds (burst 2, so a
// cold start can fetch immediately even right after a failed attempt).
func NewDirectoryCache(upstream directory.Service, log *logrus.Logger) *DirectoryCache {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &DirectoryCache{
		upstream: upstream,
		ttl:      DefaultDirectoryTTL,
		log:      log,
		limiter:  rate.NewLimiter(rate.Every(10*time.Second), 2),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetTTL overrides the snapshot TTL.
func (c *DirectoryCache) SetTTL(ttl time.Duration) { c.ttl = ttl }

// SetClock overrides the cache clock. Test hook.
func (c *DirectoryCache) SetClock(now func() time.Time) { c.now = now }

// GetAll returns the employee map from the current snapshot, refreshing
// it if stale. The returned map is shared and must not be mutated.
func (c *DirectoryCache) GetAll(ctx context.Context) (map[punch.EmployeeID]directory.EmployeeRecord, error) {
	snap, err := c.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Employees, nil
}

// GetSiteNames returns the site-id to display-name map.
func (c *DirectoryCache) GetSiteNames(ctx context.Context) (map[punch.SiteID]string, error) {
	snap, err := c.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.SiteNames, nil
}

// snapshot returns a fresh snapshot, joining or triggering a refresh as
// needed, falling back to the last good snapshot on refresh failure.
func (c *DirectoryCache) snapshot(ctx context.Context) (*directorySnapshot, error) {
	c.mu.RLock()
	entry := c.current
	c.mu.RUnlock()

	if entry.Fresh(c.now()) {
		return entry.Value, nil
	}

	// One flight per cache; all expired callers share the same refresh.
	v, err, _ := c.flight.Do("directory", func() (any, error) {
		// Double-check: another caller may have refreshed while we
		// queued for the flight.
		c.mu.RLock()
		cur := c.current
		c.mu.RUnlock()
		if cur.Fresh(c.now()) {
			return cur.Value, nil
		}

		snap, err := c.fetch(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.current = &Entry[*directorySnapshot]{Value: snap, ComputedAt: c.now(), TTL: c.ttl}
		c.mu.Unlock()
		return snap, nil
	})

	if err == nil {
		return v.(*directorySnapshot), nil
	}

	// Refresh failed: degrade to the last good snapshot when one exists.
	c.mu.RLock()
	stale := c.current
	c.mu.RUnlock()
	if stale != nil {
		c.log.WithError(err).Warn("directory refresh failed, serving stale snapshot")
		return stale.Value, nil
	}
	return nil, fmt.Errorf("%w: %v", punch.ErrUpstreamUnavailable, err)
}

// fetch performs the rate-limited, retried upstream round trip and
// builds a new snapshot.
func (c *DirectoryCache) fetch(ctx context.Context) (*directorySnapshot, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var (
		employees []directory.EmployeeRecord
		sites     []directory.SiteRecord
	)
	err := retry.Do(
		func() error {
			var err error
			employees, err = c.upstream.FetchAllEmployees(ctx)
			if err != nil {
				return err
			}
			sites, err = c.upstream.FetchAllSites(ctx)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}

	snap := &directorySnapshot{
		Employees: make(map[punch.EmployeeID]directory.EmployeeRecord, len(employees)),
		SiteNames: make(map[punch.SiteID]string, len(sites)),
	}
	for _, e := range employees {
		snap.Employees[e.ID] = e
	}
	for _, s := range sites {
		snap.SiteNames[s.ID] = s.Name
	}
	return snap, nil
}
