// Package summary rolls the reconciled ledger into per-day totals and
// per-month starting/ending balances.
package summary

import (
	"time"

	"github.com/cashfolio/cashfolio/pkg/datemath"
	"github.com/cashfolio/cashfolio/pkg/ledger"
	"github.com/cashfolio/cashfolio/pkg/money"
)

// DailyTotals is the rolled-up view of a single date.
type DailyTotals struct {
	Date    time.Time
	Income  money.Cents
	Expense money.Cents
	// Balance is the explicit balance override on this date, if any.
	Balance *money.Cents
	// HasSkipped is set when at least one instance that day is skipped.
	HasSkipped bool
	// HasTransactions counts skipped instances too, so the calendar can
	// still mark the day.
	HasTransactions bool
}

// MonthlyBalance is the derived starting/ending balance pair for one month.
type MonthlyBalance struct {
	Starting money.Cents
	Ending   money.Cents
}

// MonthlySummary combines a month's flows with its cached balances.
type MonthlySummary struct {
	Year     int
	Month    time.Month
	Income   money.Cents
	Expense  money.Cents
	Starting money.Cents
	Ending   money.Cents
	Days     []DailyTotals
}

// ComputeDailyTotals aggregates one date. Skipped instances are excluded
// from the sums but still count toward HasTransactions; hidden instances are
// excluded entirely.
func ComputeDailyTotals(led *ledger.Ledger, date time.Time) DailyTotals {
	totals := DailyTotals{Date: date}
	for _, instance := range led.On(date) {
		if instance.Hidden {
			continue
		}
		if instance.RecurringID != "" && led.IsSkipped(date, instance.RecurringID) {
			totals.HasSkipped = true
			totals.HasTransactions = true
			continue
		}
		totals.HasTransactions = true
		switch instance.EntryType {
		case ledger.EntryIncome:
			totals.Income += instance.Amount
		case ledger.EntryExpense:
			totals.Expense += instance.Amount
		case ledger.EntryBalance:
			amount := instance.Amount
			totals.Balance = &amount
		}
	}
	return totals
}

// BalanceCache memoizes monthly starting/ending balances per "YYYY-M" key.
// It is fully derived and is thrown away whenever the ledger changes.
type BalanceCache struct {
	months map[string]MonthlyBalance
}

func NewBalanceCache() *BalanceCache {
	return &BalanceCache{months: map[string]MonthlyBalance{}}
}

func (c *BalanceCache) Get(year int, month time.Month) (MonthlyBalance, bool) {
	b, ok := c.months[datemath.MonthKey(year, month)]
	return b, ok
}

func (c *BalanceCache) set(year int, month time.Month, b MonthlyBalance) {
	c.months[datemath.MonthKey(year, month)] = b
}

// RecomputeMonthlyBalances rebuilds the cache by walking every month from
// the earliest transaction (or the anchor, whichever is earlier) to one
// month past the latest activity. Each month's ending balance carries
// forward as the next month's starting balance unless day 1 carries an
// explicit balance entry, which takes its place. Within a month the running
// balance resets to any balance override it meets, then applies that day's
// income and expense on top.
func RecomputeMonthlyBalances(led *ledger.Ledger, anchor time.Time) *BalanceCache {
	cache := NewBalanceCache()

	from := anchor
	until := anchor
	if first, last, ok := led.Bounds(); ok {
		if first.Before(from) {
			from = first
		}
		if last.After(until) {
			until = last
		}
	}
	untilYear, untilMonth := datemath.AddMonths(until.Year(), until.Month(), 1)
	untilFirst := datemath.Date(untilYear, untilMonth, 1)

	running := money.Cents(0)
	year, month := from.Year(), from.Month()
	for {
		monthFirst := datemath.Date(year, month, 1)
		if monthFirst.After(untilFirst) {
			break
		}

		starting := running
		if totals := ComputeDailyTotals(led, monthFirst); totals.Balance != nil {
			starting = *totals.Balance
		}
		for day := 1; day <= datemath.DaysInMonth(year, month); day++ {
			totals := ComputeDailyTotals(led, datemath.Date(year, month, day))
			if totals.Balance != nil {
				running = *totals.Balance
			}
			running += totals.Income - totals.Expense
		}
		cache.set(year, month, MonthlyBalance{Starting: starting, Ending: running})
		year, month = datemath.AddMonths(year, month, 1)
	}
	return cache
}

// ComputeMonthlySummary sums a month's daily totals and pairs them with the
// cached balances.
func ComputeMonthlySummary(led *ledger.Ledger, cache *BalanceCache, year int, month time.Month) MonthlySummary {
	s := MonthlySummary{Year: year, Month: month}
	for day := 1; day <= datemath.DaysInMonth(year, month); day++ {
		totals := ComputeDailyTotals(led, datemath.Date(year, month, day))
		s.Income += totals.Income
		s.Expense += totals.Expense
		s.Days = append(s.Days, totals)
	}
	if balance, ok := cache.Get(year, month); ok {
		s.Starting = balance.Starting
		s.Ending = balance.Ending
	}
	return s
}

// RunningBalances returns the end-of-day running balance for every day of a
// month, seeded from the month's starting balance.
func RunningBalances(led *ledger.Ledger, cache *BalanceCache, year int, month time.Month) []money.Cents {
	running := money.Cents(0)
	if balance, ok := cache.Get(year, month); ok {
		running = balance.Starting
	}
	out := make([]money.Cents, 0, datemath.DaysInMonth(year, month))
	for day := 1; day <= datemath.DaysInMonth(year, month); day++ {
		totals := ComputeDailyTotals(led, datemath.Date(year, month, day))
		if totals.Balance != nil {
			running = *totals.Balance
		}
		running += totals.Income - totals.Expense
		out = append(out, running)
	}
	return out
}
