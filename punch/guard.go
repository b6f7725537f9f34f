/*
guard.go - Runaway shift guard

PURPOSE:
  Employees forget to clock out. The guard periodically scans for shifts
  that have been open longer than a threshold and closes them with an
  automatic clock-out stamped at exactly clock-in + threshold, so a
  forgotten punch never inflates hours past the cap.

DESIGN:
  - Background goroutine with a configurable check interval
  - Scope limited to employees with recent ledger activity
  - Each close is tagged created_by "system" with a human-readable note
  - Race-checked: each close takes the employee's write lock (shared
    with the validator via ShareLocks) and reads the latest event under
    it, so a live punch cannot interleave with the auto stop

USAGE:
  guard := punch.NewShiftGuard(store, log)
  guard.Start()
  // ... later
  guard.Stop()
*/
package punch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ShiftGuard closes shifts left open past a threshold.
type ShiftGuard struct {
	Store          LedgerStore
	ThresholdHours float64
	CheckInterval  time.Duration
	ScanLookback   time.Duration

	log    *logrus.Logger
	locks  *KeyedMutex
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex

	now func() time.Time
}

// NewShiftGuard creates a guard with the default 15h threshold, hourly
// checks, and a 3-day activity scan window.
func NewShiftGuard(store LedgerStore, log *logrus.Logger) *ShiftGuard {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ShiftGuard{
		Store:          store,
		ThresholdHours: 15.0,
		CheckInterval:  time.Hour,
		ScanLookback:   72 * time.Hour,
		log:            log,
		locks:          NewKeyedMutex(),
		stop:           make(chan struct{}),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the guard's clock. Test hook.
func (g *ShiftGuard) SetClock(now func() time.Time) { g.now = now }

// ShareLocks points the guard at another writer's per-employee mutexes.
// The guard and the validator write the same ledger; sharing the locks
// keeps the read-decide-write sequence serialized per employee across
// both of them.
func (g *ShiftGuard) ShareLocks(locks *KeyedMutex) { g.locks = locks }

// Start begins the background scan loop. Runs one scan immediately.
func (g *ShiftGuard) Start() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.ticker = time.NewTicker(g.CheckInterval)
	g.wg.Add(1)
	go g.run()

	g.log.WithField("interval", g.CheckInterval).Info("shift guard started")
}

// Stop halts the scan loop and waits for an in-flight scan to finish.
func (g *ShiftGuard) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.ticker != nil {
		g.ticker.Stop()
		close(g.stop)
		g.wg.Wait()
		g.log.Info("shift guard stopped")
	}
}

func (g *ShiftGuard) run() {
	defer g.wg.Done()

	g.RunOnce(context.Background())

	for {
		select {
		case <-g.ticker.C:
			g.RunOnce(context.Background())
		case <-g.stop:
			return
		}
	}
}

// RunOnce performs a single scan iteration. Exported so operators (and
// tests) can trigger a scan outside the ticker.
func (g *ShiftGuard) RunOnce(ctx context.Context) {
	now := g.now()

	ids, err := g.Store.RecentEmployeeIDs(ctx, now.Add(-g.ScanLookback))
	if err != nil {
		g.log.WithError(err).Warn("shift guard: listing recent employees failed")
		return
	}

	for _, id := range ids {
		if err := g.closeIfRunaway(ctx, id, now); err != nil {
			g.log.WithError(err).WithField("employee_id", id).
				Warn("shift guard: close failed")
		}
	}
}

func (g *ShiftGuard) closeIfRunaway(ctx context.Context, id EmployeeID, now time.Time) error {
	// The latest-event read must happen under the employee's write lock:
	// a clock-out committed between an unlocked read and the append would
	// leave two adjacent clock-outs in the ledger.
	unlock := g.locks.Lock(id)
	defer unlock()

	last, err := g.Store.Latest(ctx, id)
	if err != nil {
		return err
	}
	if !last.IsOpen() {
		return nil
	}

	openHours := now.Sub(last.Timestamp).Hours()
	if openHours < g.ThresholdHours {
		return nil
	}

	stopAt := last.Timestamp.Add(time.Duration(g.ThresholdHours * float64(time.Hour)))
	autoStop := PunchEvent{
		EmployeeID:       id,
		SiteID:           last.SiteID,
		Kind:             ClockOut,
		Timestamp:        stopAt,
		AdminNote:        fmt.Sprintf("AUTO STOP SHIFT: exceeded %.2f hours.", g.ThresholdHours),
		CreatedByAdminID: "system",
	}

	if _, err := g.Store.Append(ctx, autoStop); err != nil {
		return err
	}

	g.log.WithFields(logrus.Fields{
		"employee_id": id,
		"site_id":     last.SiteID,
		"open_hours":  openHours,
	}).Info("shift guard closed runaway shift")
	return nil
}
