/*
Package punch contains the core time-and-attendance domain: the punch
event model, the geofence index, the validation state machine, and batch
status resolution.

PURPOSE:
  Employees punch in and out at geofenced sites. Every accepted punch is
  recorded as an immutable PunchEvent in an ordered, append-mostly ledger.
  Everything downstream (active status, labor analytics) is derived by
  replaying that ledger - there is no separate "currently clocked in"
  field that can drift out of sync.

KEY CONCEPTS IN THIS FILE (types.go):
  - PunchEvent: An immutable ledger entry (one clock-in or clock-out)
  - PunchKind:  CLOCK_IN / CLOCK_OUT
  - Site:       A circular geofence (center + radius) where punches are valid
  - Employee/Site IDs: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Immutability: events are never edited by the validator; corrections
     come from the admin override path and carry an audit trail
  2. Derivation: clocked-in state is always derived from the latest event
  3. Type Safety: strong typing for IDs prevents mixing employee/site IDs

SEE ALSO:
  - validator.go: The punch validation state machine
  - geofence.go:  Geofence resolution
  - store.go:     Ledger persistence interfaces
*/
package punch

import (
	"time"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type SiteID string

// EventID is assigned by the store, monotonically increasing per store.
type EventID int64

// =============================================================================
// PUNCH EVENT - Immutable ledger entry
// =============================================================================

type PunchKind string

const (
	ClockIn  PunchKind = "clock_in"
	ClockOut PunchKind = "clock_out"
)

// MaxSignatureLen bounds the initials captured on clock-out.
const MaxSignatureLen = 10

// PunchEvent is a single clock-in or clock-out. Once written it is never
// mutated; admin corrections insert or delete whole rows out-of-band and
// are tagged with CreatedByAdminID.
type PunchEvent struct {
	ID         EventID
	EmployeeID EmployeeID
	SiteID     SiteID
	Kind       PunchKind
	Timestamp  time.Time // UTC instant

	Latitude  *float64
	Longitude *float64

	// Clock-out safety attestation. Nil/empty for clock-ins and for
	// system-synthesized closes.
	InjuryFlag *bool
	Signature  string

	// Audit fields. AdminNote is set on synthesized auto-closes and on
	// admin-originated rows; CreatedByAdminID only on the latter.
	AdminNote        string
	CreatedByAdminID string

	CreatedAt time.Time
}

// IsOpen reports whether this event, as the most recent one for an
// employee, leaves a shift open.
func (e *PunchEvent) IsOpen() bool { return e != nil && e.Kind == ClockIn }

// =============================================================================
// SITE - Circular geofence, read-only snapshot during validation
// =============================================================================

type Site struct {
	ID           SiteID
	CenterLat    float64
	CenterLng    float64
	RadiusMeters float64
}

// =============================================================================
// SUBMISSION CONTRACT
// =============================================================================

// SubmitRequest is a raw geolocated punch attempt from the employee client.
// Latitude/Longitude are pointers so "not supplied" is distinguishable
// from coordinate zero.
type SubmitRequest struct {
	EmployeeID       EmployeeID
	CandidateSiteIDs []SiteID
	Kind             PunchKind
	Latitude         *float64
	Longitude        *float64
	InjuryFlag       *bool
	Signature        string
}

// SubmitResult reports the ledger writes produced by one submission.
// CreatedEvents holds one event, or two when a previous open shift was
// auto-closed (the synthetic CLOCK_OUT first, then the new CLOCK_IN).
type SubmitResult struct {
	CreatedEvents []PunchEvent
	AutoClosed    bool
}

// =============================================================================
// ACTIVE STATUS
// =============================================================================

// ActiveStatus is the derived "currently clocked in" state of one employee.
type ActiveStatus struct {
	IsActive  bool
	SiteID    SiteID
	ClockInAt time.Time // zero unless IsActive
}
