package punch_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/punchclock/punch"
)

// =============================================================================
// HAVERSINE TESTS
// =============================================================================

func TestHaversine_KnownDistance(t *testing.T) {
	// GIVEN: Two points 0.0005 degrees of latitude apart
	// WHEN: Computing the great-circle distance
	// THEN: It is roughly 55.6 meters

	d := punch.HaversineMeters(40.0000, -75.0000, 40.0005, -75.0000)
	assert.InDelta(t, 55.6, d, 1.0)
}

func TestHaversine_ZeroDistance(t *testing.T) {
	d := punch.HaversineMeters(40.0, -75.0, 40.0, -75.0)
	assert.Equal(t, 0.0, d)
}

// =============================================================================
// SITE CONTAINMENT TESTS
// =============================================================================

func TestSiteContains_BoundaryIsInside(t *testing.T) {
	// GIVEN: A site whose radius is exactly the distance to the point
	// WHEN: Checking containment
	// THEN: The point on the boundary counts as inside

	d := punch.HaversineMeters(40.0, -75.0, 40.0005, -75.0)
	site := punch.Site{ID: "s1", CenterLat: 40.0, CenterLng: -75.0, RadiusMeters: d}

	assert.True(t, site.Contains(40.0005, -75.0))
}

func TestSiteContains_JustOutside(t *testing.T) {
	d := punch.HaversineMeters(40.0, -75.0, 40.0005, -75.0)
	site := punch.Site{ID: "s1", CenterLat: 40.0, CenterLng: -75.0, RadiusMeters: d - 0.5}

	assert.False(t, site.Contains(40.0005, -75.0))
}

func TestSiteContains_TypicalPunch(t *testing.T) {
	// GIVEN: A 100m site and a punch about 55m from center
	site := punch.Site{ID: "s1", CenterLat: 40.000, CenterLng: -75.000, RadiusMeters: 100}

	assert.True(t, site.Contains(40.0005, -75.000))
	assert.False(t, site.Contains(40.002, -75.000))
}

// =============================================================================
// GEOFENCE INDEX TESTS
// =============================================================================

func TestLocate_PicksContainingSite(t *testing.T) {
	// GIVEN: Two candidate sites, only one of which contains the point
	idx := punch.NewGeofenceIndex([]punch.Site{
		{ID: "warehouse", CenterLat: 40.0, CenterLng: -75.0, RadiusMeters: 100},
		{ID: "office", CenterLat: 41.0, CenterLng: -74.0, RadiusMeters: 100},
	})

	// WHEN: Locating against both candidates
	site, err := idx.Locate([]punch.SiteID{"warehouse", "office"}, 40.0005, -75.0)

	// THEN: The containing site is returned
	require.NoError(t, err)
	assert.Equal(t, punch.SiteID("warehouse"), site.ID)
}

func TestLocate_NoMatch_GeofenceViolation(t *testing.T) {
	idx := punch.NewGeofenceIndex([]punch.Site{
		{ID: "warehouse", CenterLat: 40.0, CenterLng: -75.0, RadiusMeters: 100},
	})

	_, err := idx.Locate([]punch.SiteID{"warehouse"}, 42.0, -75.0)

	require.Error(t, err)
	var gve *punch.GeofenceViolationError
	assert.True(t, errors.As(err, &gve))
	assert.True(t, punch.IsClientError(err))
}

func TestLocate_UnknownCandidateSkipped(t *testing.T) {
	// GIVEN: A candidate list naming a site the index does not know
	idx := punch.NewGeofenceIndex([]punch.Site{
		{ID: "warehouse", CenterLat: 40.0, CenterLng: -75.0, RadiusMeters: 100},
	})

	// WHEN: The unknown candidate precedes the real one
	site, err := idx.Locate([]punch.SiteID{"deleted-site", "warehouse"}, 40.0, -75.0)

	// THEN: The unknown id is ignored, the real site still matches
	require.NoError(t, err)
	assert.Equal(t, punch.SiteID("warehouse"), site.ID)
}

func TestLocate_NoCandidates(t *testing.T) {
	idx := punch.NewGeofenceIndex(nil)

	_, err := idx.Locate(nil, 40.0, -75.0)
	assert.True(t, punch.IsClientError(err))
}
