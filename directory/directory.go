/*
Package directory defines the external employee/site directory this
system reads from.

PURPOSE:
  Employee records (names, wages, site assignments) live in an external
  managed directory that is slow, rate-sensitive, and eventually
  consistent. This package defines the narrow collaborator interface
  and the record types; all production access goes through
  cache.DirectoryCache, never straight to a Service.

SEE ALSO:
  - cache/directory.go: TTL read-through cache over Service
*/
package directory

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/punchclock/punch"
)

// EmployeeRecord is a read-only employee profile from the directory.
type EmployeeRecord struct {
	ID              punch.EmployeeID
	DisplayName     string
	HourlyWage      float64
	AssignedSiteIDs []punch.SiteID
}

// SiteRecord is a read-only site name entry from the directory.
type SiteRecord struct {
	ID   punch.SiteID
	Name string
}

// Service is the upstream directory. Both calls are full-collection
// fetches by design: the upstream bills per call, not per record, and
// the caching layer amortizes them.
type Service interface {
	FetchAllEmployees(ctx context.Context) ([]EmployeeRecord, error)
	FetchAllSites(ctx context.Context) ([]SiteRecord, error)
}

// =============================================================================
// MEMORY SERVICE - In-memory directory (tests/dev)
// =============================================================================

// Memory is an in-memory Service for tests and local development.
type Memory struct {
	mu        sync.RWMutex
	employees map[punch.EmployeeID]EmployeeRecord
	sites     map[punch.SiteID]SiteRecord
}

func NewMemory() *Memory {
	return &Memory{
		employees: make(map[punch.EmployeeID]EmployeeRecord),
		sites:     make(map[punch.SiteID]SiteRecord),
	}
}

func (m *Memory) PutEmployee(r EmployeeRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[r.ID] = r
}

func (m *Memory) PutSite(r SiteRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sites[r.ID] = r
}

func (m *Memory) FetchAllEmployees(_ context.Context) ([]EmployeeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]EmployeeRecord, 0, len(m.employees))
	for _, r := range m.employees {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) FetchAllSites(_ context.Context) ([]SiteRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]SiteRecord, 0, len(m.sites))
	for _, r := range m.sites {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
