package directory_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/punchclock/directory"
	"github.com/warp/punchclock/punch"
)

func TestLoadFile_ParsesSnapshot(t *testing.T) {
	// GIVEN: A JSON snapshot on disk
	path := filepath.Join(t.TempDir(), "directory.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"employees": [
			{"id": "emp-1", "display_name": "Ana", "hourly_wage": 20, "site_ids": ["site-1"]},
			{"id": "emp-2", "display_name": "Bo", "hourly_wage": 30, "site_ids": []}
		],
		"sites": [
			{"id": "site-1", "name": "Warehouse"}
		]
	}`), 0o644))

	// WHEN: Loading it
	dir, err := directory.LoadFile(path)
	require.NoError(t, err)

	// THEN: Both collections round-trip
	employees, err := dir.FetchAllEmployees(context.Background())
	require.NoError(t, err)
	require.Len(t, employees, 2)
	assert.Equal(t, "Ana", employees[0].DisplayName)
	assert.Equal(t, 20.0, employees[0].HourlyWage)
	assert.Equal(t, []punch.SiteID{"site-1"}, employees[0].AssignedSiteIDs)

	sites, err := dir.FetchAllSites(context.Background())
	require.NoError(t, err)
	require.Len(t, sites, 1)
	assert.Equal(t, "Warehouse", sites[0].Name)
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := directory.LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadFile_MalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := directory.LoadFile(path)
	assert.Error(t, err)
}
