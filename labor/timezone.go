/*
timezone.go - Local-time boundary resolution

PURPOSE:
  "Today" and "this week" mean the CALLER's day and week, not the
  server's. These helpers resolve local-timezone day and ISO week
  (Monday-start) boundaries and convert them to UTC instants for
  querying the ledger, which stores UTC only.
*/
package labor

import (
	"time"

	"github.com/warp/punchclock/punch"
)

// LoadZone resolves an IANA timezone name, mapping failures to a
// client validation error.
func LoadZone(name string) (*time.Location, error) {
	if name == "" {
		return nil, &punch.ValidationError{Reason: "timezone required"}
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, &punch.ValidationError{Reason: "invalid timezone: " + name}
	}
	return loc, nil
}

// DayStartUTC returns the UTC instant of 00:00:00 local time on the day
// containing t in loc.
func DayStartUTC(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc).UTC()
}

// DayEndUTC returns the UTC instant of the last nanosecond of the local
// day containing t. Computed from the next day's local midnight, not by
// adding 24h, so 23h and 25h DST days keep an exact boundary.
func DayEndUTC(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day()+1, 0, 0, 0, 0, loc).Add(-time.Nanosecond).UTC()
}

// DateStartUTC interprets the date fields of d as a calendar date in
// loc and returns the UTC instant of that day's local midnight. Unlike
// DayStartUTC it never converts d between zones first, so a parsed
// "2026-01-05" stays January 5 in every timezone.
func DateStartUTC(d time.Time, loc *time.Location) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc).UTC()
}

// DateEndUTC returns the UTC instant of the last nanosecond of the
// calendar date d in loc. Computed from the next day's midnight so DST
// transitions keep the boundary exact.
func DateEndUTC(d time.Time, loc *time.Location) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day()+1, 0, 0, 0, 0, loc).Add(-time.Nanosecond).UTC()
}

// WeekStartUTC returns the UTC instant of Monday 00:00:00 local time of
// the ISO week containing t.
func WeekStartUTC(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	// time.Weekday puts Sunday at 0; shift so Monday is 0.
	offset := (int(lt.Weekday()) + 6) % 7
	monday := lt.AddDate(0, 0, -offset)
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, loc).UTC()
}

// WeekEndUTC returns the UTC instant of the last nanosecond of Sunday
// of the ISO week containing t. Computed from the next week's local
// Monday midnight, so 167h and 169h DST weeks keep an exact boundary.
func WeekEndUTC(t time.Time, loc *time.Location) time.Time {
	return nextWeek(WeekStartUTC(t, loc), loc).Add(-time.Nanosecond)
}

// weeksCovering returns the Monday starts (UTC) of every ISO week
// overlapping [from, to].
func weeksCovering(from, to time.Time, loc *time.Location) []time.Time {
	var weeks []time.Time
	for w := WeekStartUTC(from, loc); !w.After(to); w = nextWeek(w, loc) {
		weeks = append(weeks, w)
	}
	return weeks
}

// nextWeek advances one local week, stepping over DST boundaries by
// recomputing from the local date rather than adding 168 hours.
func nextWeek(weekStartUTC time.Time, loc *time.Location) time.Time {
	lt := weekStartUTC.In(loc)
	n := lt.AddDate(0, 0, 7)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, loc).UTC()
}
