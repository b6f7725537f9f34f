/*
geofence.go - Site boundary lookup

PURPOSE:
  Answers "which of these sites, if any, contains this coordinate" using
  great-circle distance against each site's circular boundary.

DESIGN:
  The index is an immutable snapshot of site records, built once from the
  store and replaced wholesale when sites change. Validation reads never
  observe a half-updated index.

BOUNDARY RULE:
  Distance exactly equal to the radius is inside. radius+epsilon is out.
*/
package punch

import (
	"math"
)

const earthRadiusMeters = 6371000

// HaversineMeters returns the great-circle distance between two
// coordinates in meters.
func HaversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// Contains reports whether the coordinate lies within the site's
// boundary. The boundary itself counts as inside.
func (s Site) Contains(lat, lng float64) bool {
	return HaversineMeters(lat, lng, s.CenterLat, s.CenterLng) <= s.RadiusMeters
}

// =============================================================================
// GEOFENCE INDEX - Immutable site snapshot
// =============================================================================

// GeofenceIndex is a read-only lookup of site boundaries.
type GeofenceIndex struct {
	sites map[SiteID]Site
}

// NewGeofenceIndex builds an index from a site snapshot.
func NewGeofenceIndex(sites []Site) *GeofenceIndex {
	m := make(map[SiteID]Site, len(sites))
	for _, s := range sites {
		m[s.ID] = s
	}
	return &GeofenceIndex{sites: m}
}

// Site returns the site record for an id.
func (g *GeofenceIndex) Site(id SiteID) (Site, bool) {
	s, ok := g.sites[id]
	return s, ok
}

// Locate scans the candidate sites in order and returns the first one
// whose boundary contains the coordinate. Unknown ids are skipped.
// Returns a GeofenceViolationError when no candidate matches.
func (g *GeofenceIndex) Locate(candidates []SiteID, lat, lng float64) (Site, error) {
	for _, id := range candidates {
		site, ok := g.sites[id]
		if !ok {
			continue
		}
		if site.Contains(lat, lng) {
			return site, nil
		}
	}
	return Site{}, &GeofenceViolationError{Latitude: lat, Longitude: lng}
}
