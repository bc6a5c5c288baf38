// Package datemath implements the pure calendar arithmetic the recurrence
// engine is built on: nth-weekday resolution, business-day adjustment, and
// month stepping with day-of-month clamping.
package datemath

import (
	"fmt"
	"time"
)

// ISODate is the wire and storage format for calendar dates.
const ISODate = "2006-01-02"

// Date builds a civil date at UTC midnight.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Parse parses an ISO "YYYY-MM-DD" date string.
func Parse(s string) (time.Time, error) {
	t, err := time.Parse(ISODate, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// Format renders a date as "YYYY-MM-DD".
func Format(t time.Time) string {
	return t.Format(ISODate)
}

// MonthKey renders the "YYYY-M" key used by the monthly balance cache.
func MonthKey(year int, month time.Month) string {
	return fmt.Sprintf("%d-%d", year, int(month))
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return Date(year, month+1, 0).Day()
}

// IsLastDayOfMonth reports whether t falls on the last day of its month.
func IsLastDayOfMonth(t time.Time) bool {
	return t.Day() == DaysInMonth(t.Year(), t.Month())
}

// ClampDay builds a date in (year, month) with the day clamped to the
// month's last day, so a day-31 anchor lands on day 30 in a 30-day month.
func ClampDay(year int, month time.Month, day int) time.Time {
	if last := DaysInMonth(year, month); day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return Date(year, month, day)
}

// MonthsBetween returns the number of whole calendar months from a's month
// to b's month, ignoring the day component. Negative when b precedes a.
func MonthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

// AddMonths steps a month identifier forward (or back) by n months.
func AddMonths(year int, month time.Month, n int) (int, time.Month) {
	idx := year*12 + int(month) - 1 + n
	return idx / 12, time.Month(idx%12 + 1)
}

// SameMonth reports whether t falls in (year, month).
func SameMonth(t time.Time, year int, month time.Month) bool {
	return t.Year() == year && t.Month() == month
}

// NthWeekdayOfMonth resolves patterns like "third Friday" or "last Monday".
// Ordinal 1..4 counts forward from the first day of the month; ordinal -1 is
// the last occurrence of the weekday; ordinals below -1 count backward from
// the last occurrence. Returns false when the requested occurrence does not
// exist in the month.
func NthWeekdayOfMonth(year int, month time.Month, weekday time.Weekday, ordinal int) (time.Time, bool) {
	if ordinal == 0 {
		return time.Time{}, false
	}
	last := DaysInMonth(year, month)
	if ordinal > 0 {
		first := Date(year, month, 1)
		offset := (int(weekday) - int(first.Weekday()) + 7) % 7
		day := 1 + offset + (ordinal-1)*7
		if day > last {
			return time.Time{}, false
		}
		return Date(year, month, day), true
	}
	lastDate := Date(year, month, last)
	back := (int(lastDate.Weekday()) - int(weekday) + 7) % 7
	day := last - back - (-ordinal-1)*7
	if day < 1 {
		return time.Time{}, false
	}
	return Date(year, month, day), true
}

// AdjustMode selects how a date falling on a weekend is moved to a weekday.
type AdjustMode string

const (
	AdjustNone     AdjustMode = "none"
	AdjustPrevious AdjustMode = "previous"
	AdjustNext     AdjustMode = "next"
	AdjustNearest  AdjustMode = "nearest"
)

// IsBusinessDay reports whether t is a weekday.
func IsBusinessDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// AdjustForBusinessDay moves a weekend date to a nearby weekday according to
// mode. The second return value reports whether an adjustment happened; a
// date that is already a business day comes back unchanged with false, so
// callers do not record an original date for it.
func AdjustForBusinessDay(date time.Time, mode AdjustMode) (time.Time, bool) {
	if mode == AdjustNone || mode == "" || IsBusinessDay(date) {
		return date, false
	}
	switch mode {
	case AdjustPrevious:
		d := date
		for !IsBusinessDay(d) {
			d = d.AddDate(0, 0, -1)
		}
		return d, true
	case AdjustNext:
		d := date
		for !IsBusinessDay(d) {
			d = d.AddDate(0, 0, 1)
		}
		return d, true
	case AdjustNearest:
		// Equal distances resolve to the earlier date, so the earlier side
		// is probed first at each distance.
		for dist := 1; dist <= 3; dist++ {
			if d := date.AddDate(0, 0, -dist); IsBusinessDay(d) {
				return d, true
			}
			if d := date.AddDate(0, 0, dist); IsBusinessDay(d) {
				return d, true
			}
		}
		return date, false
	default:
		return date, false
	}
}
