package directory

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/warp/punchclock/punch"
)

// fileSnapshot is the on-disk directory format: a single JSON document
// with both collections. Useful for local development and demos when no
// real directory upstream is reachable.
type fileSnapshot struct {
	Employees []fileEmployee `json:"employees"`
	Sites     []fileSite     `json:"sites"`
}

type fileEmployee struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"display_name"`
	HourlyWage  float64  `json:"hourly_wage"`
	SiteIDs     []string `json:"site_ids"`
}

type fileSite struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LoadFile reads a directory snapshot from a JSON file into a Memory
// service.
func LoadFile(path string) (*Memory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read directory file: %w", err)
	}

	var snap fileSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("parse directory file %s: %w", path, err)
	}

	m := NewMemory()
	for _, e := range snap.Employees {
		siteIDs := make([]punch.SiteID, len(e.SiteIDs))
		for i, s := range e.SiteIDs {
			siteIDs[i] = punch.SiteID(s)
		}
		m.PutEmployee(EmployeeRecord{
			ID:              punch.EmployeeID(e.ID),
			DisplayName:     e.DisplayName,
			HourlyWage:      e.HourlyWage,
			AssignedSiteIDs: siteIDs,
		})
	}
	for _, s := range snap.Sites {
		m.PutSite(SiteRecord{ID: punch.SiteID(s.ID), Name: s.Name})
	}
	return m, nil
}
