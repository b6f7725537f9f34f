// Package store provides LedgerStore implementations.
package store

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/warp/punchclock/punch"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu     sync.RWMutex
	events map[punch.EmployeeID][]punch.PunchEvent
	sites  map[punch.SiteID]punch.Site
	nextID punch.EventID
}

func NewMemory() *Memory {
	return &Memory{
		events: make(map[punch.EmployeeID][]punch.PunchEvent),
		sites:  make(map[punch.SiteID]punch.Site),
		nextID: 1,
	}
}

// Append adds a single event and assigns its id.
func (m *Memory) Append(_ context.Context, e punch.PunchEvent) (punch.PunchEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendLocked(e), nil
}

// AppendPair adds two events atomically.
func (m *Memory) AppendPair(_ context.Context, first, second punch.PunchEvent) ([]punch.PunchEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a := m.appendLocked(first)
	b := m.appendLocked(second)
	return []punch.PunchEvent{a, b}, nil
}

func (m *Memory) appendLocked(e punch.PunchEvent) punch.PunchEvent {
	e.ID = m.nextID
	m.nextID++
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	evs := m.events[e.EmployeeID]

	// Binary search for insertion point so reads stay timestamp-ordered.
	i := sort.Search(len(evs), func(i int) bool {
		return evs[i].Timestamp.After(e.Timestamp)
	})
	evs = append(evs, punch.PunchEvent{})
	copy(evs[i+1:], evs[i:])
	evs[i] = e
	m.events[e.EmployeeID] = evs

	return e
}

// Latest returns the most recent event for an employee, nil if none.
func (m *Memory) Latest(_ context.Context, id punch.EmployeeID) (*punch.PunchEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	evs := m.events[id]
	if len(evs) == 0 {
		return nil, nil
	}
	e := evs[len(evs)-1]
	return &e, nil
}

// LoadRange returns events for the given employees in [from, to],
// ordered by timestamp then id.
func (m *Memory) LoadRange(_ context.Context, ids []punch.EmployeeID, from, to time.Time) ([]punch.PunchEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []punch.PunchEvent
	for _, id := range ids {
		for _, e := range m.events[id] {
			if e.Timestamp.Before(from) || e.Timestamp.After(to) {
				continue
			}
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID < out[j].ID
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

// RecentEmployeeIDs returns employees with activity at or after the cutoff.
func (m *Memory) RecentEmployeeIDs(_ context.Context, since time.Time) ([]punch.EmployeeID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []punch.EmployeeID
	for id, evs := range m.events {
		for _, e := range evs {
			if !e.Timestamp.Before(since) {
				out = append(out, id)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// =============================================================================
// ADMIN OVERRIDES
// =============================================================================

// AdminCreatePair inserts a punch pair directly, bypassing validation.
func (m *Memory) AdminCreatePair(_ context.Context, clockIn, clockOut punch.PunchEvent, adminID, reason string) ([]punch.PunchEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	clockIn.CreatedByAdminID = adminID
	clockIn.AdminNote = reason
	clockOut.CreatedByAdminID = adminID
	clockOut.AdminNote = reason

	a := m.appendLocked(clockIn)
	b := m.appendLocked(clockOut)
	return []punch.PunchEvent{a, b}, nil
}

// AdminDeleteEvent removes an event by id.
func (m *Memory) AdminDeleteEvent(_ context.Context, id punch.EventID, adminID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for emp, evs := range m.events {
		for i, e := range evs {
			if e.ID == id {
				m.events[emp] = append(evs[:i], evs[i+1:]...)
				return nil
			}
		}
	}
	return &punch.NotFoundError{Kind: "punch event", ID: strconv.FormatInt(int64(id), 10)}
}

// =============================================================================
// SITE STORE
// =============================================================================

func (m *Memory) SaveSite(_ context.Context, s punch.Site) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sites[s.ID] = s
	return nil
}

func (m *Memory) ListSites(_ context.Context) ([]punch.Site, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]punch.Site, 0, len(m.sites))
	for _, s := range m.sites {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
