/*
intervals.go - Pairing punches into work intervals and splitting overtime

PAIRING RULES (tolerant of admin-edited ledgers):
  - clock-in followed by clock-out: one closed interval
  - clock-in followed by another clock-in: the later clock-in wins and
    restarts the shift (admin edits can produce this; the validator
    never does)
  - clock-out with no open shift: ignored
  - trailing open clock-in: an open interval ending "now"

OVERTIME SPLIT:
  Hours are accumulated per ISO week in chronological order. Everything
  up to the weekly threshold is regular; the interval that crosses the
  threshold is split at the crossing point and everything after is
  overtime. Overtime therefore lands on the latest intervals of the
  week.

BREAK DEDUCTION:
  Shifts at or past the break threshold lose the standard unpaid break
  before any weekly accumulation. Deducted time is treated as coming
  uniformly out of the shift, which keeps range-clipping linear.
*/
package labor

import (
	"time"

	"github.com/warp/punchclock/punch"
)

// Interval is one worked span at a single site.
type Interval struct {
	Start  time.Time
	End    time.Time
	SiteID punch.SiteID
	Open   bool // true when the shift had no clock-out yet; End is "now"
}

// RawHours is the wall-clock length of the interval.
func (iv Interval) RawHours() float64 {
	return iv.End.Sub(iv.Start).Hours()
}

// PaidHours applies the unpaid-break deduction to a raw shift length.
func (r BreakRule) PaidHours(raw float64) float64 {
	if raw >= r.ThresholdHours {
		paid := raw - r.DeductMinutes/60.0
		if paid < 0 {
			return 0
		}
		return paid
	}
	return raw
}

// PairIntervals walks one employee's events in timestamp order and
// produces work intervals. An open trailing shift is closed at now.
func PairIntervals(events []punch.PunchEvent, now time.Time) []Interval {
	var (
		intervals []Interval
		openAt    *time.Time
		openSite  punch.SiteID
	)

	for _, e := range events {
		switch e.Kind {
		case punch.ClockIn:
			// Later clock-in wins when the ledger has two in a row.
			t := e.Timestamp
			openAt = &t
			openSite = e.SiteID
		case punch.ClockOut:
			if openAt == nil {
				continue
			}
			if e.Timestamp.After(*openAt) {
				intervals = append(intervals, Interval{Start: *openAt, End: e.Timestamp, SiteID: openSite})
			}
			openAt = nil
		}
	}

	if openAt != nil && now.After(*openAt) {
		intervals = append(intervals, Interval{Start: *openAt, End: now, SiteID: openSite, Open: true})
	}
	return intervals
}

// =============================================================================
// WEEKLY SEGMENTS - intervals annotated with regular/overtime attribution
// =============================================================================

// segment is a week-clipped interval with its paid hours split into
// regular and overtime by the weekly accumulation walk.
type segment struct {
	start    time.Time
	end      time.Time
	siteID   punch.SiteID
	paid     float64
	regular  float64
	overtime float64
}

// splitWeek clips intervals to one week window and attributes regular
// vs overtime hours by chronological accumulation against the weekly
// threshold.
func splitWeek(intervals []Interval, weekFrom, weekTo time.Time, cfg Config) []segment {
	var segs []segment
	cum := 0.0

	for _, iv := range intervals {
		start, end := clip(iv.Start, iv.End, weekFrom, weekTo)
		if !end.After(start) {
			continue
		}
		paid := cfg.Break.PaidHours(end.Sub(start).Hours())
		if paid <= 0 {
			continue
		}

		seg := segment{start: start, end: end, siteID: iv.SiteID, paid: paid}
		remainingRegular := cfg.WeeklyOvertimeThresholdHours - cum
		switch {
		case remainingRegular <= 0:
			seg.overtime = paid
		case paid <= remainingRegular:
			seg.regular = paid
		default:
			seg.regular = remainingRegular
			seg.overtime = paid - remainingRegular
		}
		cum += paid
		segs = append(segs, seg)
	}
	return segs
}

// clipToRange returns the segment's paid/regular/overtime hours that
// fall inside [from, to]. Paid time is treated as accruing uniformly
// across the segment, with the regular portion occupying the earliest
// part of it.
func (s segment) clipToRange(from, to time.Time) (hours, regular, overtime float64) {
	start, end := clip(s.start, s.end, from, to)
	if !end.After(start) {
		return 0, 0, 0
	}
	span := s.end.Sub(s.start).Seconds()
	if span <= 0 {
		return 0, 0, 0
	}

	// Map the clipped span onto the paid-hours timeline [0, paid].
	a := s.paid * start.Sub(s.start).Seconds() / span
	b := s.paid * end.Sub(s.start).Seconds() / span

	hours = b - a
	regular = clampRange(a, b, 0, s.regular)
	overtime = hours - regular
	return hours, regular, overtime
}

// clip intersects [start, end] with [from, to].
func clip(start, end, from, to time.Time) (time.Time, time.Time) {
	if start.Before(from) {
		start = from
	}
	if end.After(to) {
		end = to
	}
	return start, end
}

// clampRange returns the length of the intersection of [a, b] and [lo, hi].
func clampRange(a, b, lo, hi float64) float64 {
	if a < lo {
		a = lo
	}
	if b > hi {
		b = hi
	}
	if b <= a {
		return 0
	}
	return b - a
}
