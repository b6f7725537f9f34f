/*
aggregator.go - Labor hours/cost aggregation

PURPOSE:
  Answers "how many hours and how much money" for a company, site, or
  employee over a local-timezone date range, with the weekly overtime
  split and burn-rate figures.

ALGORITHM:
  1. Resolve local day boundaries in the caller's IANA zone; extend the
     fetch window to the full ISO weeks overlapping the range so the
     weekly overtime split sees hours worked earlier in each week
  2. ONE ledger query for all relevant employees
  3. Pair events into intervals per employee; an open shift contributes
     up to "now"
  4. Split each week at the 40h threshold, overtime attributed to the
     latest intervals; clip back to the requested range for the totals
  5. Cost = regular x wage + overtime x wage x multiplier, wages joined
     in memory from the directory cache (zero-wage fallback + flag for
     ledger employees missing from the directory)
  6. Roll up employee -> site -> company; burn rate from batch active
     status

  Aggregation is a pure read: a caller abandoning the computation
  (context cancellation) has no side effects.
*/
package labor

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/punchclock/cache"
	"github.com/warp/punchclock/directory"
	"github.com/warp/punchclock/punch"
)

// Aggregator computes labor analytics over the punch ledger.
type Aggregator struct {
	store  punch.LedgerStore
	dir    *cache.DirectoryCache
	status *punch.StatusResolver
	cfg    Config

	now func() time.Time
}

func NewAggregator(store punch.LedgerStore, dir *cache.DirectoryCache, status *punch.StatusResolver, cfg Config) *Aggregator {
	return &Aggregator{
		store:  store,
		dir:    dir,
		status: status,
		cfg:    cfg,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the aggregator's clock. Test hook.
func (a *Aggregator) SetClock(now func() time.Time) { a.now = now }

// Compute aggregates hours and cost for the query's scope and range.
func (a *Aggregator) Compute(ctx context.Context, q Query) (*AggregateResult, error) {
	loc, err := LoadZone(q.Timezone)
	if err != nil {
		return nil, err
	}
	if q.EndDate.Before(q.StartDate) {
		return nil, &punch.ValidationError{Reason: "end date before start date"}
	}

	now := a.now()
	rangeFrom := DateStartUTC(q.StartDate, loc)
	rangeTo := DateEndUTC(q.EndDate, loc)

	// Fetch the full weeks so weekly overtime context is complete.
	fetchFrom := WeekStartUTC(rangeFrom, loc)
	fetchTo := WeekEndUTC(rangeTo, loc)

	employees, err := a.dir.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	siteNames, err := a.dir.GetSiteNames(ctx)
	if err != nil {
		return nil, err
	}

	ids, err := a.scopeEmployeeIDs(ctx, q, employees, fetchFrom)
	if err != nil {
		return nil, err
	}

	events, err := a.store.LoadRange(ctx, ids, fetchFrom, fetchTo)
	if err != nil {
		return nil, err
	}

	byEmployee := make(map[punch.EmployeeID][]punch.PunchEvent)
	for _, e := range events {
		byEmployee[e.EmployeeID] = append(byEmployee[e.EmployeeID], e)
	}

	statuses, err := a.status.BatchActiveStatus(ctx, ids, a.statusSiteFilter(q))
	if err != nil {
		return nil, err
	}

	result := &AggregateResult{
		Level:       q.Level,
		FromUTC:     rangeFrom,
		ToUTC:       rangeTo,
		Timezone:    q.Timezone,
		GeneratedAt: now,
	}

	weeks := weeksCovering(rangeFrom, rangeTo, loc)
	siteAgg := make(map[punch.SiteID]*SiteTotals)

	for _, id := range ids {
		rec, inDirectory := employees[id]
		evs := byEmployee[id]
		if len(evs) == 0 && !inDirectory {
			continue
		}

		wage := decimal.NewFromFloat(rec.HourlyWage)
		et := EmployeeTotals{
			EmployeeID:  id,
			DisplayName: rec.DisplayName,
			HourlyWage:  wage,
			MissingWage: !inDirectory,
			Totals:      Totals{Cost: decimal.Zero},
		}
		if st, ok := statuses[id]; ok && st.IsActive {
			et.IsActive = true
			et.ClockInAt = st.ClockInAt
		}

		intervals := PairIntervals(evs, now)
		for _, week := range weeks {
			weekFrom := week
			weekTo := WeekEndUTC(week, loc)
			for _, seg := range splitWeek(intervals, weekFrom, weekTo, a.cfg) {
				if q.Level == ScopeSite && seg.siteID != q.SiteID {
					continue
				}
				hours, regular, overtime := seg.clipToRange(rangeFrom, rangeTo)
				if hours == 0 {
					continue
				}
				et.Totals.Hours += hours
				et.Totals.RegularHours += regular
				et.Totals.OvertimeHours += overtime

				st := a.siteTotals(siteAgg, seg.siteID, siteNames)
				st.Totals.Hours += hours
				st.Totals.RegularHours += regular
				st.Totals.OvertimeHours += overtime
				cost := a.cost(regular, overtime, wage)
				st.Totals.Cost = st.Totals.Cost.Add(cost)
			}
		}

		et.Totals.Cost = a.cost(et.Totals.RegularHours, et.Totals.OvertimeHours, wage)
		if et.Totals.Hours == 0 && !et.IsActive && q.Level != ScopeEmployee {
			continue
		}

		if et.IsActive {
			st := a.siteTotals(siteAgg, statuses[id].SiteID, siteNames)
			st.ActiveCount++
			st.HourlyBurnRate = st.HourlyBurnRate.Add(wage)
			result.HourlyBurnRate = result.HourlyBurnRate.Add(wage)
		}

		result.Employees = append(result.Employees, et)
		result.Totals.Hours += et.Totals.Hours
		result.Totals.RegularHours += et.Totals.RegularHours
		result.Totals.OvertimeHours += et.Totals.OvertimeHours
		result.Totals.Cost = result.Totals.Cost.Add(et.Totals.Cost)
	}

	sort.Slice(result.Employees, func(i, j int) bool {
		return result.Employees[i].EmployeeID < result.Employees[j].EmployeeID
	})

	for _, st := range siteAgg {
		result.Sites = append(result.Sites, *st)
	}
	sort.Slice(result.Sites, func(i, j int) bool {
		return result.Sites[i].SiteID < result.Sites[j].SiteID
	})

	result.ProjectedDailyCost = a.projectDailyCost(result, now, loc)
	return result, nil
}

// scopeEmployeeIDs selects which employees the query covers: the
// directory set filtered by scope, unioned with ledger employees that
// the directory no longer knows (so their hours still count, with the
// zero-wage fallback).
func (a *Aggregator) scopeEmployeeIDs(ctx context.Context, q Query, employees map[punch.EmployeeID]directory.EmployeeRecord, since time.Time) ([]punch.EmployeeID, error) {
	if q.Level == ScopeEmployee {
		if q.EmployeeID == "" {
			return nil, &punch.ValidationError{Reason: "employee id required for employee scope"}
		}
		return []punch.EmployeeID{q.EmployeeID}, nil
	}

	set := make(map[punch.EmployeeID]struct{})
	for id, rec := range employees {
		if q.Level == ScopeSite && !assignedTo(rec, q.SiteID) {
			continue
		}
		set[id] = struct{}{}
	}

	ledgerIDs, err := a.store.RecentEmployeeIDs(ctx, since)
	if err != nil {
		return nil, err
	}
	for _, id := range ledgerIDs {
		if q.Level == ScopeSite {
			if rec, ok := employees[id]; ok && !assignedTo(rec, q.SiteID) {
				continue
			}
		}
		set[id] = struct{}{}
	}

	ids := make([]punch.EmployeeID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func assignedTo(rec directory.EmployeeRecord, siteID punch.SiteID) bool {
	for _, s := range rec.AssignedSiteIDs {
		if s == siteID {
			return true
		}
	}
	return false
}

func (a *Aggregator) statusSiteFilter(q Query) punch.SiteID {
	if q.Level == ScopeSite {
		return q.SiteID
	}
	return ""
}

func (a *Aggregator) siteTotals(agg map[punch.SiteID]*SiteTotals, id punch.SiteID, names map[punch.SiteID]string) *SiteTotals {
	st, ok := agg[id]
	if !ok {
		st = &SiteTotals{
			SiteID: id,
			Name:   names[id],
			Totals: Totals{Cost: decimal.Zero},
		}
		agg[id] = st
	}
	return st
}

// cost prices a regular/overtime hour split at one wage.
func (a *Aggregator) cost(regular, overtime float64, wage decimal.Decimal) decimal.Decimal {
	reg := decimal.NewFromFloat(regular).Mul(wage)
	ot := decimal.NewFromFloat(overtime).Mul(wage).Mul(a.cfg.OvertimeMultiplier)
	return reg.Add(ot).Round(4)
}

// projectDailyCost extrapolates today's spend from the current burn
// rate: cost so far plus burn rate times the hours left in the local
// day. Zero when the query range does not include the current day.
func (a *Aggregator) projectDailyCost(r *AggregateResult, now time.Time, loc *time.Location) decimal.Decimal {
	if now.Before(r.FromUTC) || now.After(r.ToUTC) {
		return decimal.Zero
	}
	remaining := DayEndUTC(now, loc).Sub(now).Hours()
	return r.Totals.Cost.Add(r.HourlyBurnRate.Mul(decimal.NewFromFloat(remaining))).Round(4)
}
