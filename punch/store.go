/*
store.go - Persistence interfaces for the punch ledger

PURPOSE:
  Defines the interface between the punch domain and the database.
  Different implementations can use SQLite or in-memory storage.

KEY INTERFACES:
  LedgerStore: Core event persistence (append, latest, range queries)
  AdminStore:  Out-of-band admin corrections (create/delete whole rows)
  SiteStore:   Site boundary records backing the GeofenceIndex

APPEND-MOSTLY CONTRACT:
  The validator only ever appends. AppendPair() is atomic: when a new
  clock-in auto-closes a previous shift, either both rows land or
  neither does - a concurrent reader must never see the synthetic
  clock-out without its clock-in.

ADMIN OVERRIDES:
  Admin tooling may insert or delete rows directly, bypassing the
  validator, tagged with the acting admin's id and a reason. Aggregation
  must tolerate such rows; no validation is reapplied retroactively.

SEE ALSO:
  - store/sqlite/sqlite.go: Production implementation
  - punch/store/memory.go:  In-memory implementation for tests
*/
package punch

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// LEDGER STORE
// =============================================================================

// LedgerStore persists punch events in timestamp order.
type LedgerStore interface {
	// Append persists one event and returns it with the store-assigned id.
	Append(ctx context.Context, e PunchEvent) (PunchEvent, error)

	// AppendPair persists two events atomically, first then second.
	// Used for auto-close: synthetic clock-out plus the new clock-in.
	AppendPair(ctx context.Context, first, second PunchEvent) ([]PunchEvent, error)

	// Latest returns the most recent event for an employee, or nil when
	// the employee has never punched.
	Latest(ctx context.Context, employeeID EmployeeID) (*PunchEvent, error)

	// LoadRange returns events for the given employees with
	// from <= Timestamp <= to, ordered by timestamp then id. One query
	// regardless of how many employees are asked for.
	LoadRange(ctx context.Context, employeeIDs []EmployeeID, from, to time.Time) ([]PunchEvent, error)

	// RecentEmployeeIDs returns the distinct employees with at least one
	// event at or after the cutoff. Used to scope background scans.
	RecentEmployeeIDs(ctx context.Context, since time.Time) ([]EmployeeID, error)
}

// AdminStore extends LedgerStore with the admin override surface. These
// writes bypass the validator and always record an audit entry.
type AdminStore interface {
	LedgerStore

	// AdminCreatePair inserts a clock-in/clock-out pair directly.
	AdminCreatePair(ctx context.Context, clockIn, clockOut PunchEvent, adminID, reason string) ([]PunchEvent, error)

	// AdminDeleteEvent removes a row by id.
	AdminDeleteEvent(ctx context.Context, id EventID, adminID, reason string) error
}

// SiteStore persists site boundary records.
type SiteStore interface {
	SaveSite(ctx context.Context, s Site) error
	ListSites(ctx context.Context) ([]Site, error)
}

// =============================================================================
// KEYED MUTEX - Per-employee write serialization
// =============================================================================

// KeyedMutex hands out one mutex per employee so that two concurrent
// punches for the same employee cannot both read "no open shift" and
// both write a clock-in, while punches for different employees proceed
// in parallel. Mutexes are created on demand and never released; the
// population of employees is small and bounded.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[EmployeeID]*sync.Mutex
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[EmployeeID]*sync.Mutex)}
}

// Lock acquires the mutex for one employee and returns the unlock func.
func (k *KeyedMutex) Lock(id EmployeeID) func() {
	k.mu.Lock()
	m, ok := k.locks[id]
	if !ok {
		m = &sync.Mutex{}
		k.locks[id] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
