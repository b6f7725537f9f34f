package punch_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/punchclock/punch"
	"github.com/warp/punchclock/punch/store"
)

// =============================================================================
// RUNAWAY SHIFT GUARD TESTS
// =============================================================================

func TestShiftGuard_ClosesRunawayShift(t *testing.T) {
	// GIVEN: A shift open for 16 hours against a 15 hour cap
	// WHEN: The guard scans
	// THEN: A system clock-out is stamped at exactly clock-in + 15h

	mem := store.NewMemory()
	now := time.Date(2026, time.January, 6, 1, 0, 0, 0, time.UTC)
	clockIn := now.Add(-16 * time.Hour)

	seedEvent(t, mem, "emp-1", "site-1", punch.ClockIn, clockIn)

	guard := punch.NewShiftGuard(mem, nil)
	guard.SetClock(func() time.Time { return now })
	guard.RunOnce(context.Background())

	last, err := mem.Latest(context.Background(), "emp-1")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, punch.ClockOut, last.Kind)
	assert.Equal(t, clockIn.Add(15*time.Hour), last.Timestamp)
	assert.Equal(t, "system", last.CreatedByAdminID)
	assert.Equal(t, "AUTO STOP SHIFT: exceeded 15.00 hours.", last.AdminNote)
	assert.Equal(t, punch.SiteID("site-1"), last.SiteID)
}

func TestShiftGuard_LeavesShortShiftOpen(t *testing.T) {
	// GIVEN: A shift open for 14 hours
	mem := store.NewMemory()
	now := time.Date(2026, time.January, 6, 1, 0, 0, 0, time.UTC)

	seedEvent(t, mem, "emp-1", "site-1", punch.ClockIn, now.Add(-14*time.Hour))

	guard := punch.NewShiftGuard(mem, nil)
	guard.SetClock(func() time.Time { return now })
	guard.RunOnce(context.Background())

	// THEN: The shift is untouched
	last, err := mem.Latest(context.Background(), "emp-1")
	require.NoError(t, err)
	assert.True(t, last.IsOpen())
}

func TestShiftGuard_IgnoresClosedShifts(t *testing.T) {
	mem := store.NewMemory()
	now := time.Date(2026, time.January, 6, 1, 0, 0, 0, time.UTC)

	seedEvent(t, mem, "emp-1", "site-1", punch.ClockIn, now.Add(-20*time.Hour))
	seedEvent(t, mem, "emp-1", "site-1", punch.ClockOut, now.Add(-12*time.Hour))

	guard := punch.NewShiftGuard(mem, nil)
	guard.SetClock(func() time.Time { return now })
	guard.RunOnce(context.Background())

	events, err := mem.LoadRange(context.Background(),
		[]punch.EmployeeID{"emp-1"}, now.Add(-24*time.Hour), now)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestShiftGuard_SecondScanIsNoop(t *testing.T) {
	// GIVEN: A runaway shift already closed by a previous scan
	mem := store.NewMemory()
	now := time.Date(2026, time.January, 6, 1, 0, 0, 0, time.UTC)

	seedEvent(t, mem, "emp-1", "site-1", punch.ClockIn, now.Add(-16*time.Hour))

	guard := punch.NewShiftGuard(mem, nil)
	guard.SetClock(func() time.Time { return now })
	guard.RunOnce(context.Background())
	guard.RunOnce(context.Background())

	// THEN: Only one auto stop was written
	events, err := mem.LoadRange(context.Background(),
		[]punch.EmployeeID{"emp-1"}, now.Add(-24*time.Hour), now)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestShiftGuard_SharedLockPreventsDoubleClockOut(t *testing.T) {
	// GIVEN: A runaway shift and a guard sharing the per-employee write
	// locks with the live punch path
	mem := store.NewMemory()
	now := time.Date(2026, time.January, 6, 1, 0, 0, 0, time.UTC)
	clockIn := now.Add(-16 * time.Hour)
	seedEvent(t, mem, "emp-1", "site-1", punch.ClockIn, clockIn)

	locks := punch.NewKeyedMutex()
	guard := punch.NewShiftGuard(mem, nil)
	guard.ShareLocks(locks)
	guard.SetClock(func() time.Time { return now })

	// WHEN: A punch for the employee is mid-write, holding the lock, and
	// commits a clock-out before the guard can acquire it
	unlock := locks.Lock("emp-1")
	done := make(chan struct{})
	go func() {
		guard.RunOnce(context.Background())
		close(done)
	}()
	seedEvent(t, mem, "emp-1", "site-1", punch.ClockOut, now)
	unlock()
	<-done

	// THEN: The guard re-read the ledger under the lock, saw the closed
	// shift, and wrote nothing; the events still alternate
	events, err := mem.LoadRange(context.Background(),
		[]punch.EmployeeID{"emp-1"}, now.Add(-24*time.Hour), now)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, punch.ClockIn, events[0].Kind)
	assert.Equal(t, punch.ClockOut, events[1].Kind)
}

func TestShiftGuard_CustomThreshold(t *testing.T) {
	mem := store.NewMemory()
	now := time.Date(2026, time.January, 6, 1, 0, 0, 0, time.UTC)
	clockIn := now.Add(-13 * time.Hour)

	seedEvent(t, mem, "emp-1", "site-1", punch.ClockIn, clockIn)

	guard := punch.NewShiftGuard(mem, nil)
	guard.ThresholdHours = 12
	guard.SetClock(func() time.Time { return now })
	guard.RunOnce(context.Background())

	last, err := mem.Latest(context.Background(), "emp-1")
	require.NoError(t, err)
	assert.Equal(t, punch.ClockOut, last.Kind)
	assert.Equal(t, clockIn.Add(12*time.Hour), last.Timestamp)
	assert.Equal(t, "AUTO STOP SHIFT: exceeded 12.00 hours.", last.AdminNote)
}
