/*
Package labor turns the punch ledger into money: it pairs punch events
into work intervals, splits weekly hours into regular and overtime, and
rolls costs up from employee to site to company.

KEY CONCEPTS:
  - Interval: one paired clock-in/clock-out span (or an open shift)
  - Weekly overtime: hours past 40 in an ISO week, paid at 1.5x
  - Burn rate: sum of hourly wages of currently clocked-in employees

PRECISION:
  Hours are float64 (they come from time subtraction and feed UIs);
  money is decimal.Decimal throughout so cost totals never accumulate
  float error.
*/
package labor

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/punchclock/punch"
)

// =============================================================================
// QUERY
// =============================================================================

type ScopeLevel string

const (
	ScopeCompany  ScopeLevel = "company"
	ScopeSite     ScopeLevel = "site"
	ScopeEmployee ScopeLevel = "employee"
)

// Query selects what to aggregate. StartDate/EndDate are interpreted as
// whole days in Timezone (an IANA zone name); a single-day query passes
// the same date twice.
type Query struct {
	Level      ScopeLevel
	SiteID     punch.SiteID     // required when Level == ScopeSite
	EmployeeID punch.EmployeeID // required when Level == ScopeEmployee
	StartDate  time.Time        // date portion only
	EndDate    time.Time        // date portion only, inclusive
	Timezone   string
}

// =============================================================================
// RESULTS - immutable once produced
// =============================================================================

// Totals is one hours/cost roll-up.
type Totals struct {
	Hours         float64
	RegularHours  float64
	OvertimeHours float64
	Cost          decimal.Decimal
}

// EmployeeTotals is the per-employee slice of an AggregateResult.
type EmployeeTotals struct {
	EmployeeID  punch.EmployeeID
	DisplayName string
	HourlyWage  decimal.Decimal
	Totals      Totals

	IsActive  bool
	ClockInAt time.Time

	// MissingWage marks employees found in the ledger but absent from
	// the directory; their cost used the zero-wage fallback.
	MissingWage bool
}

// SiteTotals is the per-site roll-up.
type SiteTotals struct {
	SiteID         punch.SiteID
	Name           string
	Totals         Totals
	ActiveCount    int
	HourlyBurnRate decimal.Decimal
}

// AggregateResult is a snapshot answer for one Query.
type AggregateResult struct {
	Level    ScopeLevel
	FromUTC  time.Time
	ToUTC    time.Time
	Timezone string

	Totals    Totals
	Employees []EmployeeTotals
	Sites     []SiteTotals

	// Burn rate across the queried scope: sum of wages of currently
	// clocked-in employees, and the daily cost projected from it.
	HourlyBurnRate     decimal.Decimal
	ProjectedDailyCost decimal.Decimal

	GeneratedAt time.Time
}

// =============================================================================
// CONFIG
// =============================================================================

// BreakRule is the automatic unpaid-break deduction: shifts of at least
// ThresholdHours lose DeductMinutes of paid time.
type BreakRule struct {
	ThresholdHours float64
	DeductMinutes  float64
}

// DefaultBreakRule is the standard 30-minute unpaid lunch on shifts of
// five hours or more.
var DefaultBreakRule = BreakRule{ThresholdHours: 5.0, DeductMinutes: 30}

// Config tunes the aggregation rules.
type Config struct {
	WeeklyOvertimeThresholdHours float64
	OvertimeMultiplier           decimal.Decimal
	Break                        BreakRule
}

// DefaultConfig matches US FLSA-style weekly overtime.
func DefaultConfig() Config {
	return Config{
		WeeklyOvertimeThresholdHours: 40.0,
		OvertimeMultiplier:           decimal.NewFromFloat(1.5),
		Break:                        DefaultBreakRule,
	}
}
