/*
validator.go - The punch validation state machine

PURPOSE:
  Converts a raw geolocated punch request into one or two ledger writes.
  This is the only production write path into the ledger; the admin
  override surface is separate and audited.

VALIDATION ORDER (all checks before any write):
  1. Location must be supplied
  2. Clock-out must carry the injury flag and a short signature
  3. The coordinate must fall inside one of the employee's candidate sites
  4. The requested kind must be compatible with the latest ledger event

STATE MACHINE (state derived from the most recent event's kind):
  none / last=clock-out + CLOCK_IN  -> write clock-in
  none / last=clock-out + CLOCK_OUT -> StateConflict (nothing to close)
  last=clock-in + CLOCK_OUT         -> write clock-out (normal shift close)
  last=clock-in + CLOCK_IN          -> auto-close: synthesize a clock-out
                                       for the open shift, then write the
                                       new clock-in. Both rows are one
                                       atomic write.

CONCURRENCY:
  Writes for one employee are serialized through a keyed mutex so the
  read-latest/decide/write sequence cannot interleave for the same
  employee. Different employees do not contend.
*/
package punch

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

// autoCloseNote annotates the synthesized clock-out that terminates a
// shift left open when a new clock-in arrives.
const autoCloseNote = "Automatically clocked out previous shift."

// autoCloseGap is how far after the open clock-in the synthetic
// clock-out is stamped.
const autoCloseGap = time.Second

// Validator is the punch validation state machine.
type Validator struct {
	store    LedgerStore
	geofence *GeofenceIndex
	locks    *KeyedMutex
	log      *logrus.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewValidator creates a validator over a ledger store and a geofence
// snapshot.
func NewValidator(store LedgerStore, geofence *GeofenceIndex, log *logrus.Logger) *Validator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Validator{
		store:    store,
		geofence: geofence,
		locks:    NewKeyedMutex(),
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the validator's clock. Test hook.
func (v *Validator) SetClock(now func() time.Time) { v.now = now }

// SetGeofence swaps in a new geofence snapshot (e.g. after sites change).
func (v *Validator) SetGeofence(g *GeofenceIndex) { v.geofence = g }

// Locks exposes the per-employee mutexes so other ledger writers (the
// shift guard) can join the same serialization discipline.
func (v *Validator) Locks() *KeyedMutex { return v.locks }

// Submit validates a punch request and appends the resulting event(s).
func (v *Validator) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if err := validateInput(req); err != nil {
		return nil, err
	}

	site, err := v.geofence.Locate(req.CandidateSiteIDs, *req.Latitude, *req.Longitude)
	if err != nil {
		return nil, err
	}

	// Serialize the read-decide-write sequence per employee.
	unlock := v.locks.Lock(req.EmployeeID)
	defer unlock()

	last, err := v.store.Latest(ctx, req.EmployeeID)
	if err != nil {
		return nil, fmt.Errorf("fetch latest punch: %w", err)
	}

	now := v.now()

	switch req.Kind {
	case ClockOut:
		if !last.IsOpen() {
			return nil, &StateConflictError{
				EmployeeID: req.EmployeeID,
				Reason:     "cannot clock out before clocking in",
			}
		}
		out := PunchEvent{
			EmployeeID: req.EmployeeID,
			SiteID:     site.ID,
			Kind:       ClockOut,
			Timestamp:  now,
			Latitude:   req.Latitude,
			Longitude:  req.Longitude,
			InjuryFlag: req.InjuryFlag,
			Signature:  req.Signature,
		}
		created, err := v.store.Append(ctx, out)
		if err != nil {
			return nil, fmt.Errorf("append clock-out: %w", err)
		}
		return &SubmitResult{CreatedEvents: []PunchEvent{created}}, nil

	case ClockIn:
		in := PunchEvent{
			EmployeeID: req.EmployeeID,
			SiteID:     site.ID,
			Kind:       ClockIn,
			Timestamp:  now,
			Latitude:   req.Latitude,
			Longitude:  req.Longitude,
		}

		if !last.IsOpen() {
			created, err := v.store.Append(ctx, in)
			if err != nil {
				return nil, fmt.Errorf("append clock-in: %w", err)
			}
			return &SubmitResult{CreatedEvents: []PunchEvent{created}}, nil
		}

		// Previous shift still open: synthesize its close just after the
		// original clock-in, then write the requested clock-in. The new
		// clock-in is bumped forward if the wall clock would not already
		// order it after the synthetic close.
		closeAt := last.Timestamp.Add(autoCloseGap)
		if !in.Timestamp.After(closeAt) {
			in.Timestamp = closeAt.Add(autoCloseGap)
		}
		autoClose := PunchEvent{
			EmployeeID: req.EmployeeID,
			SiteID:     last.SiteID,
			Kind:       ClockOut,
			Timestamp:  closeAt,
			AdminNote:  autoCloseNote,
		}

		created, err := v.store.AppendPair(ctx, autoClose, in)
		if err != nil {
			return nil, fmt.Errorf("append auto-close pair: %w", err)
		}
		v.log.WithFields(logrus.Fields{
			"employee_id": req.EmployeeID,
			"closed_site": last.SiteID,
			"new_site":    site.ID,
		}).Info("auto-closed open shift on new clock-in")
		return &SubmitResult{CreatedEvents: created, AutoClosed: true}, nil

	default:
		return nil, &ValidationError{Reason: fmt.Sprintf("unknown punch kind %q", req.Kind)}
	}
}

// validateInput applies the pre-geofence input checks in contract order.
func validateInput(req SubmitRequest) error {
	if req.EmployeeID == "" {
		return &ValidationError{Reason: "employee id required"}
	}
	if req.Latitude == nil || req.Longitude == nil {
		return &ValidationError{Reason: "location required to punch"}
	}
	if req.Kind == ClockOut {
		if req.InjuryFlag == nil {
			return &ValidationError{Reason: "injury status is required for clock out"}
		}
		if req.Signature == "" {
			return &ValidationError{Reason: "safety signature is required for clock out"}
		}
		// Characters, not bytes: multi-byte initials must fit.
		if utf8.RuneCountInString(req.Signature) > MaxSignatureLen {
			return &ValidationError{Reason: fmt.Sprintf("safety signature must be at most %d characters", MaxSignatureLen)}
		}
	}
	return nil
}
