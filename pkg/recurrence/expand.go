package recurrence

import (
	"sort"
	"time"

	"github.com/cashfolio/cashfolio/pkg/datemath"
	"github.com/cashfolio/cashfolio/pkg/money"
	log "github.com/sirupsen/logrus"
)

// Expand produces the occurrences of a template that land in (year, month)
// after business-day adjustment. An occurrence whose natural date falls in
// an adjacent month but whose adjusted date lands here is emitted here, and
// only here, tagged with its original date. maxOccurrences and variable
// amounts are always evaluated against natural (pre-adjustment) indexes.
func Expand(t Template, year int, month time.Month) ([]Occurrence, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	var out []Occurrence
	// Adjustment moves a date at most a few days, so only the two adjacent
	// months can donate or steal occurrences.
	for _, delta := range []int{-1, 0, 1} {
		y, m := datemath.AddMonths(year, month, delta)
		for _, nat := range naturalOccurrences(t, y, m) {
			adjusted, moved := datemath.AdjustForBusinessDay(nat.date, t.Adjustment)
			if !datemath.SameMonth(adjusted, year, month) {
				continue
			}
			amount, err := occurrenceAmount(t, nat.index)
			if err != nil {
				log.Warnf("skipping occurrence %d of template %s on %s: %v",
					nat.index, t.ID, datemath.Format(nat.date), err)
				continue
			}
			occ := Occurrence{Date: adjusted, Amount: amount, Index: nat.index}
			if moved {
				original := nat.date
				occ.OriginalDate = &original
			}
			out = append(out, occ)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func occurrenceAmount(t Template, index int) (money.Cents, error) {
	if t.Variable == nil {
		return t.Amount, nil
	}
	return money.Compound(t.Amount, t.Variable.PercentPerOccurrence, index)
}

type natural struct {
	date  time.Time
	index int
}

// naturalOccurrences lists the template's unadjusted occurrences inside one
// calendar month, with their natural indexes.
func naturalOccurrences(t Template, year int, month time.Month) []natural {
	switch t.Kind {
	case KindOnce:
		if datemath.SameMonth(t.StartDate, year, month) && t.withinWindow(t.StartDate) && t.underCap(0) {
			return []natural{{t.StartDate, 0}}
		}
		return nil
	case KindDaily:
		return steppedByDays(t, 1, year, month)
	case KindWeekly:
		return steppedByDays(t, 7, year, month)
	case KindBiweekly:
		return steppedByDays(t, 14, year, month)
	case KindMonthly:
		if t.DayPattern != nil {
			return daySpecificMonthly(t, year, month)
		}
		return plainMonthly(t, year, month)
	case KindSemiMonthly:
		return semiMonthly(t, year, month)
	case KindQuarterly:
		return everyNMonths(t, 3, year, month)
	case KindSemiAnnual:
		return everyNMonths(t, 6, year, month)
	case KindYearly:
		return yearly(t, year, month)
	case KindCustom:
		switch t.CustomInterval.Unit {
		case UnitDays:
			return steppedByDays(t, t.CustomInterval.Value, year, month)
		case UnitWeeks:
			return steppedByDays(t, t.CustomInterval.Value*7, year, month)
		case UnitMonths:
			return everyNMonths(t, t.CustomInterval.Value, year, month)
		}
	}
	return nil
}

// steppedByDays handles the fixed-step kinds: occurrence i falls on
// startDate + i*step days, counting from 0 on the start date itself.
func steppedByDays(t Template, step int, year int, month time.Month) []natural {
	monthStart := datemath.Date(year, month, 1)
	monthEnd := datemath.Date(year, month, datemath.DaysInMonth(year, month))
	if t.StartDate.After(monthEnd) {
		return nil
	}

	firstIndex := 0
	if gap := int(monthStart.Sub(t.StartDate).Hours() / 24); gap > 0 {
		firstIndex = (gap + step - 1) / step
	}

	var out []natural
	for index := firstIndex; t.underCap(index); index++ {
		date := t.StartDate.AddDate(0, 0, index*step)
		if date.After(monthEnd) {
			break
		}
		if !t.withinWindow(date) {
			if t.EndDate != nil && date.After(*t.EndDate) {
				break
			}
			continue
		}
		out = append(out, natural{date, index})
	}
	return out
}

// plainMonthly targets the start date's day of month, clamped to the
// month's length. A template anchored to the last day of its starting month
// is end-of-month sticky: it always targets the current month's last day.
func plainMonthly(t Template, year int, month time.Month) []natural {
	monthsSince := datemath.MonthsBetween(t.StartDate, datemath.Date(year, month, 1))
	if monthsSince < 0 || !t.underCap(monthsSince) {
		return nil
	}
	var date time.Time
	if datemath.IsLastDayOfMonth(t.StartDate) {
		date = datemath.Date(year, month, datemath.DaysInMonth(year, month))
	} else {
		date = datemath.ClampDay(year, month, t.StartDate.Day())
	}
	if !t.withinWindow(date) {
		return nil
	}
	return []natural{{date, monthsSince}}
}

// daySpecificMonthly resolves the ordinal-weekday pattern month by month
// from the start so indexes count only months where the pattern resolved
// inside the template window.
func daySpecificMonthly(t Template, year int, month time.Month) []natural {
	targetFirst := datemath.Date(year, month, 1)
	if datemath.MonthsBetween(t.StartDate, targetFirst) < 0 {
		return nil
	}
	index := 0
	y, m := t.StartDate.Year(), t.StartDate.Month()
	for {
		date, ok := datemath.NthWeekdayOfMonth(y, m, t.DayPattern.Weekday, t.DayPattern.Ordinal)
		fires := ok && t.withinWindow(date)
		if y == year && m == month {
			if fires && t.underCap(index) {
				return []natural{{date, index}}
			}
			return nil
		}
		if fires {
			index++
		}
		y, m = datemath.AddMonths(y, m, 1)
	}
}

// semiMonthly fires on two fixed days per month; the second day may be the
// last-day sentinel. Indexes count the template's paydates from the start,
// resolving the open question around mid-month start dates as "number of
// semimonthly paydates strictly before the current date".
func semiMonthly(t Template, year int, month time.Month) []natural {
	targetFirst := datemath.Date(year, month, 1)
	if datemath.MonthsBetween(t.StartDate, targetFirst) < 0 {
		return nil
	}
	index := 0
	y, m := t.StartDate.Year(), t.StartDate.Month()
	for {
		var out []natural
		for _, date := range semiMonthlyDates(t.SemiMonthly, y, m) {
			if !t.withinWindow(date) {
				continue
			}
			if y == year && m == month && t.underCap(index) {
				out = append(out, natural{date, index})
			}
			index++
		}
		if y == year && m == month {
			return out
		}
		y, m = datemath.AddMonths(y, m, 1)
	}
}

func semiMonthlyDates(days *SemiMonthlyDays, year int, month time.Month) []time.Time {
	resolve := func(day int) time.Time {
		if day == SemiMonthlyLastDay {
			return datemath.Date(year, month, datemath.DaysInMonth(year, month))
		}
		return datemath.ClampDay(year, month, day)
	}
	first := resolve(days.First)
	second := resolve(days.Second)
	if second.Before(first) {
		first, second = second, first
	}
	if first.Equal(second) {
		return []time.Time{first}
	}
	return []time.Time{first, second}
}

// everyNMonths handles quarterly, semiannual, and custom month intervals:
// fires when whole months since the start are a multiple of n, on the
// anniversary day of month, clamped.
func everyNMonths(t Template, n int, year int, month time.Month) []natural {
	monthsSince := datemath.MonthsBetween(t.StartDate, datemath.Date(year, month, 1))
	if monthsSince < 0 || monthsSince%n != 0 {
		return nil
	}
	index := monthsSince / n
	if !t.underCap(index) {
		return nil
	}
	date := datemath.ClampDay(year, month, t.StartDate.Day())
	if !t.withinWindow(date) {
		return nil
	}
	return []natural{{date, index}}
}

// yearly fires in the start date's month every year. A Feb 29 anniversary
// falls back to Feb 28 in non-leap years via the clamp.
func yearly(t Template, year int, month time.Month) []natural {
	if month != t.StartDate.Month() {
		return nil
	}
	yearsSince := year - t.StartDate.Year()
	if yearsSince < 0 || !t.underCap(yearsSince) {
		return nil
	}
	date := datemath.ClampDay(year, month, t.StartDate.Day())
	if !t.withinWindow(date) {
		return nil
	}
	return []natural{{date, yearsSince}}
}
