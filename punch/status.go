/*
status.go - Batch "currently clocked in" resolution

PURPOSE:
  Computes active status for a set of employees from the ledger in one
  store query. The single-query batch shape is the point: resolving N
  employees must never issue N queries.

ALGORITHM:
  Load all events for the given employees inside a bounded lookback
  window, group per employee, take the most recent. An employee is
  active iff that event is a clock-in (and at the filtered site, when a
  site filter is given). A shift older than the lookback window is
  treated as closed; the shift guard closes runaway shifts well before
  the window expires.
*/
package punch

import (
	"context"
	"time"
)

// DefaultStatusLookback bounds how far back the status query scans.
const DefaultStatusLookback = 72 * time.Hour

// StatusResolver derives active status from the ledger.
type StatusResolver struct {
	store    LedgerStore
	lookback time.Duration

	now func() time.Time
}

func NewStatusResolver(store LedgerStore) *StatusResolver {
	return &StatusResolver{
		store:    store,
		lookback: DefaultStatusLookback,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the resolver's clock. Test hook.
func (r *StatusResolver) SetClock(now func() time.Time) { r.now = now }

// SetLookback overrides the scan window.
func (r *StatusResolver) SetLookback(d time.Duration) { r.lookback = d }

// BatchActiveStatus resolves status for all given employees with one
// ledger query. siteFilter narrows "active" to shifts open at that site;
// pass "" for no filter. Employees with no events in the window map to
// an inactive status.
func (r *StatusResolver) BatchActiveStatus(ctx context.Context, employeeIDs []EmployeeID, siteFilter SiteID) (map[EmployeeID]ActiveStatus, error) {
	result := make(map[EmployeeID]ActiveStatus, len(employeeIDs))
	for _, id := range employeeIDs {
		result[id] = ActiveStatus{}
	}
	if len(employeeIDs) == 0 {
		return result, nil
	}

	now := r.now()
	events, err := r.store.LoadRange(ctx, employeeIDs, now.Add(-r.lookback), now)
	if err != nil {
		return nil, err
	}

	// Events arrive ordered by timestamp; the last one seen per employee
	// is the most recent.
	latest := make(map[EmployeeID]PunchEvent, len(employeeIDs))
	for _, e := range events {
		latest[e.EmployeeID] = e
	}

	for id, e := range latest {
		if e.Kind != ClockIn {
			continue
		}
		if siteFilter != "" && e.SiteID != siteFilter {
			continue
		}
		result[id] = ActiveStatus{IsActive: true, SiteID: e.SiteID, ClockInAt: e.Timestamp}
	}
	return result, nil
}
