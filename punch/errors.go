/*
errors.go - Centralized error types for the punch domain

PURPOSE:
  All error kinds in one place for consistency and discoverability.
  Callers branch with errors.Is/errors.As; reason strings are returned
  to the client verbatim, never silently coerced.

ERROR CATEGORIES:
  1. Validation errors - missing/malformed input (location, injury fields)
  2. Geofence violations - coordinate outside every candidate site
  3. State conflicts - punch order violations (clock-out with no open shift)
  4. Not found / upstream - unknown ids, directory fetch failures

SEE ALSO:
  - validator.go: Produces validation/geofence/state errors
  - cache/directory.go: Produces ErrUpstreamUnavailable
*/
package punch

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the base of all client input validation failures.
	ErrValidation = errors.New("validation failed")

	// ErrGeofenceViolation is returned when no candidate site contains
	// the submitted coordinate.
	ErrGeofenceViolation = errors.New("outside geofence")

	// ErrStateConflict is returned when the requested punch kind is
	// incompatible with the employee's current ledger state.
	ErrStateConflict = errors.New("punch state conflict")

	// ErrNotFound is returned for unknown employee or site ids.
	ErrNotFound = errors.New("not found")

	// ErrUpstreamUnavailable is returned when the external directory
	// cannot be reached and no cached snapshot exists.
	ErrUpstreamUnavailable = errors.New("directory upstream unavailable")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports missing or malformed punch input.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }
func (e *ValidationError) Unwrap() error { return ErrValidation }

// GeofenceViolationError names the attempted coordinates so the client
// can show the employee where the system thinks they are.
type GeofenceViolationError struct {
	Latitude  float64
	Longitude float64
}

func (e *GeofenceViolationError) Error() string {
	return fmt.Sprintf("you must be within the geofence of an assigned site to punch. Location: (%v,%v)",
		e.Latitude, e.Longitude)
}

func (e *GeofenceViolationError) Unwrap() error { return ErrGeofenceViolation }

// StateConflictError reports a punch order violation.
type StateConflictError struct {
	EmployeeID EmployeeID
	Reason     string
}

func (e *StateConflictError) Error() string { return e.Reason }
func (e *StateConflictError) Unwrap() error { return ErrStateConflict }

// NotFoundError reports an unknown employee or site id.
type NotFoundError struct {
	Kind string // "employee" or "site"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrGeofenceViolation)
}

// IsConflict returns true for punch order violations.
func IsConflict(err error) bool {
	return errors.Is(err, ErrStateConflict)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
