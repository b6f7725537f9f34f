/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Punches:
    PunchEventDTO, SubmitPunchRequest, SubmitPunchResponse

  Status:
    ActiveStatusDTO, RosterEntryDTO

  Labor:
    LaborSummaryDTO, EmployeeTotalsDTO, SiteTotalsDTO

  Admin:
    AdminPairRequest, AdminDeleteRequest, AdminChangeDTO, SiteDTO

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - punch/types.go: Domain model these map from
*/
package api

import (
	"time"

	"github.com/warp/punchclock/labor"
	"github.com/warp/punchclock/punch"
)

// =============================================================================
// PUNCH TYPES
// =============================================================================

// PunchEventDTO represents one ledger entry in API responses.
type PunchEventDTO struct {
	ID               int64    `json:"id"`
	EmployeeID       string   `json:"employee_id"`
	SiteID           string   `json:"site_id"`
	Kind             string   `json:"kind"`
	Timestamp        string   `json:"timestamp"`
	Latitude         *float64 `json:"latitude,omitempty"`
	Longitude        *float64 `json:"longitude,omitempty"`
	InjuryFlag       *bool    `json:"injury_flag,omitempty"`
	Signature        string   `json:"signature,omitempty"`
	AdminNote        string   `json:"admin_note,omitempty"`
	CreatedByAdminID string   `json:"created_by_admin_id,omitempty"`
}

// SubmitPunchRequest is a geolocated punch attempt from the mobile client.
type SubmitPunchRequest struct {
	EmployeeID string   `json:"employee_id"`
	SiteIDs    []string `json:"site_ids"`
	Kind       string   `json:"kind"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	InjuryFlag *bool    `json:"injury_flag,omitempty"`
	Signature  string   `json:"signature,omitempty"`
}

// SubmitPunchResponse reports the ledger writes an accepted punch produced.
type SubmitPunchResponse struct {
	Events     []PunchEventDTO `json:"events"`
	AutoClosed bool            `json:"auto_closed"`
}

// =============================================================================
// STATUS TYPES
// =============================================================================

// ActiveStatusDTO is one employee's derived clocked-in state.
type ActiveStatusDTO struct {
	EmployeeID string `json:"employee_id"`
	IsActive   bool   `json:"is_active"`
	SiteID     string `json:"site_id,omitempty"`
	ClockInAt  string `json:"clock_in_at,omitempty"`
}

// RosterEntryDTO pairs directory identity with live status.
type RosterEntryDTO struct {
	EmployeeID  string `json:"employee_id"`
	DisplayName string `json:"display_name"`
	IsActive    bool   `json:"is_active"`
	SiteID      string `json:"site_id,omitempty"`
	ClockInAt   string `json:"clock_in_at,omitempty"`
}

// =============================================================================
// LABOR TYPES
// =============================================================================

// TotalsDTO is one hours/cost roll-up.
type TotalsDTO struct {
	Hours         float64 `json:"hours"`
	RegularHours  float64 `json:"regular_hours"`
	OvertimeHours float64 `json:"overtime_hours"`
	Cost          string  `json:"cost"`
}

// EmployeeTotalsDTO is the per-employee slice of a labor summary.
type EmployeeTotalsDTO struct {
	EmployeeID  string    `json:"employee_id"`
	DisplayName string    `json:"display_name"`
	HourlyWage  string    `json:"hourly_wage"`
	Totals      TotalsDTO `json:"totals"`
	IsActive    bool      `json:"is_active"`
	ClockInAt   string    `json:"clock_in_at,omitempty"`
	MissingWage bool      `json:"missing_wage,omitempty"`
}

// SiteTotalsDTO is the per-site slice of a labor summary.
type SiteTotalsDTO struct {
	SiteID         string    `json:"site_id"`
	Name           string    `json:"name"`
	Totals         TotalsDTO `json:"totals"`
	ActiveCount    int       `json:"active_count"`
	HourlyBurnRate string    `json:"hourly_burn_rate"`
}

// LaborSummaryDTO is the response for a labor aggregation query.
type LaborSummaryDTO struct {
	Level    string `json:"level"`
	FromUTC  string `json:"from_utc"`
	ToUTC    string `json:"to_utc"`
	Timezone string `json:"timezone"`

	Totals    TotalsDTO           `json:"totals"`
	Employees []EmployeeTotalsDTO `json:"employees,omitempty"`
	Sites     []SiteTotalsDTO     `json:"sites,omitempty"`

	HourlyBurnRate     string `json:"hourly_burn_rate"`
	ProjectedDailyCost string `json:"projected_daily_cost"`
	GeneratedAt        string `json:"generated_at"`
}

// =============================================================================
// ADMIN TYPES
// =============================================================================

// AdminPairRequest inserts a complete clock-in/clock-out pair, bypassing
// geofence and state-machine validation.
type AdminPairRequest struct {
	EmployeeID string `json:"employee_id"`
	SiteID     string `json:"site_id"`
	ClockIn    string `json:"clock_in"`
	ClockOut   string `json:"clock_out"`
	AdminID    string `json:"admin_id"`
	Reason     string `json:"reason"`
}

// AdminDeleteRequest removes one ledger entry with an audit trail.
type AdminDeleteRequest struct {
	AdminID string `json:"admin_id"`
	Reason  string `json:"reason"`
}

// AdminChangeDTO is one audit-trail entry.
type AdminChangeDTO struct {
	ID         string `json:"id"`
	AdminID    string `json:"admin_id"`
	EmployeeID string `json:"employee_id"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
	EventIDs   string `json:"event_ids"`
	CreatedAt  string `json:"created_at"`
}

// SiteDTO represents a geofenced site.
type SiteDTO struct {
	ID           string  `json:"id"`
	CenterLat    float64 `json:"center_lat"`
	CenterLng    float64 `json:"center_lng"`
	RadiusMeters float64 `json:"radius_meters"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// MAPPERS
// =============================================================================

func toPunchEventDTO(e punch.PunchEvent) PunchEventDTO {
	return PunchEventDTO{
		ID:               int64(e.ID),
		EmployeeID:       string(e.EmployeeID),
		SiteID:           string(e.SiteID),
		Kind:             string(e.Kind),
		Timestamp:        e.Timestamp.UTC().Format(time.RFC3339Nano),
		Latitude:         e.Latitude,
		Longitude:        e.Longitude,
		InjuryFlag:       e.InjuryFlag,
		Signature:        e.Signature,
		AdminNote:        e.AdminNote,
		CreatedByAdminID: e.CreatedByAdminID,
	}
}

func toPunchEventDTOs(events []punch.PunchEvent) []PunchEventDTO {
	dtos := make([]PunchEventDTO, len(events))
	for i, e := range events {
		dtos[i] = toPunchEventDTO(e)
	}
	return dtos
}

func toTotalsDTO(t labor.Totals) TotalsDTO {
	return TotalsDTO{
		Hours:         t.Hours,
		RegularHours:  t.RegularHours,
		OvertimeHours: t.OvertimeHours,
		Cost:          t.Cost.StringFixed(2),
	}
}

func toLaborSummaryDTO(r *labor.AggregateResult) LaborSummaryDTO {
	dto := LaborSummaryDTO{
		Level:              string(r.Level),
		FromUTC:            r.FromUTC.Format(time.RFC3339Nano),
		ToUTC:              r.ToUTC.Format(time.RFC3339Nano),
		Timezone:           r.Timezone,
		Totals:             toTotalsDTO(r.Totals),
		HourlyBurnRate:     r.HourlyBurnRate.StringFixed(2),
		ProjectedDailyCost: r.ProjectedDailyCost.StringFixed(2),
		GeneratedAt:        r.GeneratedAt.Format(time.RFC3339Nano),
	}
	for _, et := range r.Employees {
		e := EmployeeTotalsDTO{
			EmployeeID:  string(et.EmployeeID),
			DisplayName: et.DisplayName,
			HourlyWage:  et.HourlyWage.StringFixed(2),
			Totals:      toTotalsDTO(et.Totals),
			IsActive:    et.IsActive,
			MissingWage: et.MissingWage,
		}
		if et.IsActive {
			e.ClockInAt = et.ClockInAt.UTC().Format(time.RFC3339Nano)
		}
		dto.Employees = append(dto.Employees, e)
	}
	for _, st := range r.Sites {
		dto.Sites = append(dto.Sites, SiteTotalsDTO{
			SiteID:         string(st.SiteID),
			Name:           st.Name,
			Totals:         toTotalsDTO(st.Totals),
			ActiveCount:    st.ActiveCount,
			HourlyBurnRate: st.HourlyBurnRate.StringFixed(2),
		})
	}
	return dto
}
