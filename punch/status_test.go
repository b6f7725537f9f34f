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
// TEST HELPERS
// =============================================================================

func seedEvent(t *testing.T, mem *store.Memory, emp string, site string, kind punch.PunchKind, at time.Time) punch.PunchEvent {
	t.Helper()
	e, err := mem.Append(context.Background(), punch.PunchEvent{
		EmployeeID: punch.EmployeeID(emp),
		SiteID:     punch.SiteID(site),
		Kind:       kind,
		Timestamp:  at,
	})
	require.NoError(t, err)
	return e
}

// =============================================================================
// BATCH STATUS TESTS
// =============================================================================

func TestBatchActiveStatus_MixedStates(t *testing.T) {
	// GIVEN: One employee clocked in, one clocked out, one with no history
	mem := store.NewMemory()
	now := time.Date(2026, time.January, 5, 12, 0, 0, 0, time.UTC)

	seedEvent(t, mem, "active", "site-1", punch.ClockIn, now.Add(-3*time.Hour))
	seedEvent(t, mem, "done", "site-1", punch.ClockIn, now.Add(-8*time.Hour))
	seedEvent(t, mem, "done", "site-1", punch.ClockOut, now.Add(-time.Hour))

	resolver := punch.NewStatusResolver(mem)
	resolver.SetClock(func() time.Time { return now })

	// WHEN: Resolving all three in one batch
	statuses, err := resolver.BatchActiveStatus(context.Background(),
		[]punch.EmployeeID{"active", "done", "ghost"}, "")
	require.NoError(t, err)

	// THEN: Only the open shift is active; everyone is present in the map
	require.Len(t, statuses, 3)
	assert.True(t, statuses["active"].IsActive)
	assert.Equal(t, punch.SiteID("site-1"), statuses["active"].SiteID)
	assert.Equal(t, now.Add(-3*time.Hour), statuses["active"].ClockInAt)
	assert.False(t, statuses["done"].IsActive)
	assert.False(t, statuses["ghost"].IsActive)
}

func TestBatchActiveStatus_SiteFilter(t *testing.T) {
	// GIVEN: Two employees clocked in at different sites
	mem := store.NewMemory()
	now := time.Date(2026, time.January, 5, 12, 0, 0, 0, time.UTC)

	seedEvent(t, mem, "emp-a", "site-1", punch.ClockIn, now.Add(-time.Hour))
	seedEvent(t, mem, "emp-b", "site-2", punch.ClockIn, now.Add(-time.Hour))

	resolver := punch.NewStatusResolver(mem)
	resolver.SetClock(func() time.Time { return now })

	// WHEN: Filtering to site-1
	statuses, err := resolver.BatchActiveStatus(context.Background(),
		[]punch.EmployeeID{"emp-a", "emp-b"}, "site-1")
	require.NoError(t, err)

	// THEN: Only the site-1 shift counts as active
	assert.True(t, statuses["emp-a"].IsActive)
	assert.False(t, statuses["emp-b"].IsActive)
}

func TestBatchActiveStatus_StaleShiftOutsideLookback(t *testing.T) {
	// GIVEN: A clock-in older than the scan window
	mem := store.NewMemory()
	now := time.Date(2026, time.January, 5, 12, 0, 0, 0, time.UTC)

	seedEvent(t, mem, "emp-a", "site-1", punch.ClockIn, now.Add(-80*time.Hour))

	resolver := punch.NewStatusResolver(mem)
	resolver.SetClock(func() time.Time { return now })

	statuses, err := resolver.BatchActiveStatus(context.Background(),
		[]punch.EmployeeID{"emp-a"}, "")
	require.NoError(t, err)

	// THEN: The ancient shift is treated as closed
	assert.False(t, statuses["emp-a"].IsActive)
}

func TestBatchActiveStatus_EmptyBatch(t *testing.T) {
	resolver := punch.NewStatusResolver(store.NewMemory())

	statuses, err := resolver.BatchActiveStatus(context.Background(), nil, "")
	require.NoError(t, err)
	assert.Empty(t, statuses)
}

func TestBatchActiveStatus_LatestEventWins(t *testing.T) {
	// GIVEN: A full in/out/in history
	mem := store.NewMemory()
	now := time.Date(2026, time.January, 5, 12, 0, 0, 0, time.UTC)

	seedEvent(t, mem, "emp-a", "site-1", punch.ClockIn, now.Add(-10*time.Hour))
	seedEvent(t, mem, "emp-a", "site-1", punch.ClockOut, now.Add(-5*time.Hour))
	seedEvent(t, mem, "emp-a", "site-2", punch.ClockIn, now.Add(-time.Hour))

	resolver := punch.NewStatusResolver(mem)
	resolver.SetClock(func() time.Time { return now })

	statuses, err := resolver.BatchActiveStatus(context.Background(),
		[]punch.EmployeeID{"emp-a"}, "")
	require.NoError(t, err)

	// THEN: The newest clock-in determines the state and site
	assert.True(t, statuses["emp-a"].IsActive)
	assert.Equal(t, punch.SiteID("site-2"), statuses["emp-a"].SiteID)
}
