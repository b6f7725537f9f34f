package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/punchclock/punch"
	"github.com/warp/punchclock/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func punchAt(emp, site string, kind punch.PunchKind, at time.Time) punch.PunchEvent {
	return punch.PunchEvent{
		EmployeeID: punch.EmployeeID(emp),
		SiteID:     punch.SiteID(site),
		Kind:       kind,
		Timestamp:  at,
	}
}

var base = time.Date(2026, time.January, 5, 9, 0, 0, 0, time.UTC)

// =============================================================================
// LEDGER TESTS
// =============================================================================

func TestAppend_AssignsIDAndRoundTrips(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	lat, lng := 40.0005, -75.0
	injury := false
	e, err := s.Append(ctx, punch.PunchEvent{
		EmployeeID: "emp-1",
		SiteID:     "site-1",
		Kind:       punch.ClockOut,
		Timestamp:  base,
		Latitude:   &lat,
		Longitude:  &lng,
		InjuryFlag: &injury,
		Signature:  "JD",
	})
	require.NoError(t, err)
	assert.NotZero(t, e.ID)

	got, err := s.Latest(ctx, "emp-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, punch.ClockOut, got.Kind)
	assert.True(t, got.Timestamp.Equal(base))
	require.NotNil(t, got.Latitude)
	assert.Equal(t, lat, *got.Latitude)
	require.NotNil(t, got.InjuryFlag)
	assert.False(t, *got.InjuryFlag)
	assert.Equal(t, "JD", got.Signature)
}

func TestLatest_NoEvents_ReturnsNil(t *testing.T) {
	s := newTestStore(t)

	got, err := s.Latest(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLatest_TimestampOrderWithIDTieBreak(t *testing.T) {
	// GIVEN: Two events at the same timestamp
	// THEN: The later insert (higher id) wins

	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Append(ctx, punchAt("emp-1", "site-1", punch.ClockIn, base))
	require.NoError(t, err)
	out, err := s.Append(ctx, punchAt("emp-1", "site-1", punch.ClockOut, base))
	require.NoError(t, err)

	got, err := s.Latest(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, out.ID, got.ID)
}

func TestAppendPair_BothRowsVisible(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	pair, err := s.AppendPair(ctx,
		punchAt("emp-1", "site-1", punch.ClockOut, base.Add(time.Second)),
		punchAt("emp-1", "site-2", punch.ClockIn, base.Add(2*time.Second)),
	)
	require.NoError(t, err)
	require.Len(t, pair, 2)
	assert.NotZero(t, pair[0].ID)
	assert.Greater(t, pair[1].ID, pair[0].ID)

	events, err := s.LoadRange(ctx, []punch.EmployeeID{"emp-1"}, base, base.Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestLoadRange_FiltersEmployeesAndBounds(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Append(ctx, punchAt("emp-1", "site-1", punch.ClockIn, base))
	require.NoError(t, err)
	_, err = s.Append(ctx, punchAt("emp-1", "site-1", punch.ClockOut, base.Add(8*time.Hour)))
	require.NoError(t, err)
	_, err = s.Append(ctx, punchAt("emp-2", "site-1", punch.ClockIn, base))
	require.NoError(t, err)
	_, err = s.Append(ctx, punchAt("emp-1", "site-1", punch.ClockIn, base.AddDate(0, 0, 3)))
	require.NoError(t, err)

	// Only emp-1, only the first day; range bounds are inclusive
	events, err := s.LoadRange(ctx, []punch.EmployeeID{"emp-1"}, base, base.Add(8*time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, punch.ClockIn, events[0].Kind)
	assert.Equal(t, punch.ClockOut, events[1].Kind)
}

func TestLoadRange_EmptyIDList(t *testing.T) {
	s := newTestStore(t)

	events, err := s.LoadRange(context.Background(), nil, base, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestRecentEmployeeIDs_CutoffApplies(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Append(ctx, punchAt("old", "site-1", punch.ClockOut, base.Add(-100*time.Hour)))
	require.NoError(t, err)
	_, err = s.Append(ctx, punchAt("recent", "site-1", punch.ClockIn, base))
	require.NoError(t, err)

	ids, err := s.RecentEmployeeIDs(ctx, base.Add(-72*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []punch.EmployeeID{"recent"}, ids)
}

// =============================================================================
// ADMIN OVERRIDE TESTS
// =============================================================================

func TestAdminCreatePair_WritesEventsAndAudit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	pair, err := s.AdminCreatePair(ctx,
		punchAt("emp-1", "site-1", punch.ClockIn, base),
		punchAt("emp-1", "site-1", punch.ClockOut, base.Add(4*time.Hour)),
		"admin-9", "forgot to punch")
	require.NoError(t, err)
	require.Len(t, pair, 2)
	assert.Equal(t, "admin-9", pair[0].CreatedByAdminID)
	assert.Equal(t, "forgot to punch", pair[0].AdminNote)

	changes, err := s.AdminChanges(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "create", changes[0].Action)
	assert.Equal(t, "admin-9", changes[0].AdminID)
	assert.Equal(t, "forgot to punch", changes[0].Reason)
	assert.NotEmpty(t, changes[0].EventIDs)
}

func TestAdminDeleteEvent_RemovesRowAndAudits(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	e, err := s.Append(ctx, punchAt("emp-1", "site-1", punch.ClockIn, base))
	require.NoError(t, err)

	require.NoError(t, s.AdminDeleteEvent(ctx, e.ID, "admin-9", "entered in error"))

	got, err := s.Latest(ctx, "emp-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	changes, err := s.AdminChanges(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "delete", changes[0].Action)
}

func TestAdminDeleteEvent_MissingID_NotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.AdminDeleteEvent(context.Background(), 9999, "admin-9", "oops")
	require.Error(t, err)
	assert.True(t, punch.IsNotFound(err))
}

// =============================================================================
// SITE STORE TESTS
// =============================================================================

func TestSaveSite_UpsertAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSite(ctx, punch.Site{
		ID: "site-1", CenterLat: 40.0, CenterLng: -75.0, RadiusMeters: 100,
	}))
	require.NoError(t, s.SaveSite(ctx, punch.Site{
		ID: "site-2", CenterLat: 41.0, CenterLng: -74.0, RadiusMeters: 50,
	}))

	// Upsert widens site-1
	require.NoError(t, s.SaveSite(ctx, punch.Site{
		ID: "site-1", CenterLat: 40.0, CenterLng: -75.0, RadiusMeters: 250,
	}))

	sites, err := s.ListSites(ctx)
	require.NoError(t, err)
	require.Len(t, sites, 2)
	assert.Equal(t, punch.SiteID("site-1"), sites[0].ID)
	assert.Equal(t, 250.0, sites[0].RadiusMeters)
	assert.Equal(t, punch.SiteID("site-2"), sites[1].ID)
}
