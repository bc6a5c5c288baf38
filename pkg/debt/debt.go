// Package debt simulates month-by-month loan amortization with snowball
// extra payments and writes the resulting payment plan back into the ledger.
package debt

import (
	"fmt"
	"time"

	"github.com/cashfolio/cashfolio/pkg/money"
	"github.com/cashfolio/cashfolio/pkg/recurrence"
)

// Debt is one tracked liability. Its minimum-payment schedule is described
// by a recurrence shape; the concrete template is a derived artifact rebuilt
// from the debt's fields on every use, never edited freestanding.
type Debt struct {
	ID         string
	Name       string
	Balance    money.Cents
	MinPayment money.Cents
	// InterestRate is the annual percentage, applied as balance*rate/1200
	// per month, rounded to cents.
	InterestRate float64
	// Schedule is the recurrence shape (kind, anchor dates, adjustment) of
	// the minimum payment; its id, amount, and entry type are ignored and
	// recomputed by MinimumTemplate.
	Schedule recurrence.Template
	// TemplateID is the stable id under which the derived minimum-payment
	// template appears in the ledger.
	TemplateID string
}

// MinimumTemplate derives the debt's minimum-payment template from its
// current fields.
func (d Debt) MinimumTemplate() recurrence.Template {
	t := d.Schedule
	t.ID = d.TemplateID
	t.Amount = d.MinPayment
	t.EntryType = "expense"
	t.Description = fmt.Sprintf("%s minimum payment", d.Name)
	t.DebtID = d.ID
	return t
}

// CashInfusion is an ad hoc lump sum. An empty TargetDebtID sends the whole
// amount into the snowball pool.
type CashInfusion struct {
	ID           string
	Name         string
	Amount       money.Cents
	Date         time.Time
	TargetDebtID string
}

// Settings controls the snowball projection.
type Settings struct {
	// BaseExtraPayment is the fixed monthly amount fed into the pool.
	BaseExtraPayment money.Cents
	// AutoGenerate re-runs the projection and syncs it into the ledger on
	// the nightly schedule.
	AutoGenerate bool
}

// YearMonth identifies a simulated month.
type YearMonth struct {
	Year  int
	Month time.Month
}

// Before reports whether ym precedes other.
func (ym YearMonth) Before(other YearMonth) bool {
	return ym.Year < other.Year || (ym.Year == other.Year && ym.Month < other.Month)
}

// AtOrBefore reports whether ym is other or earlier.
func (ym YearMonth) AtOrBefore(other YearMonth) bool {
	return !other.Before(ym)
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%d-%02d", ym.Year, int(ym.Month))
}

// PoolBreakdown itemizes where a month's snowball pool came from.
type PoolBreakdown struct {
	BaseExtra       money.Cents
	Infusions       money.Cents
	InMonthRollover money.Cents
	MaturedRollover money.Cents
}

// DebtMonth is one debt's slice of a simulated month.
type DebtMonth struct {
	DebtID           string
	Interest         money.Cents
	ScheduledMinimum money.Cents
	AppliedMinimum   money.Cents
	Infusion         money.Cents
	Extra            money.Cents
	EndingBalance    money.Cents
}

// MonthProjection is the full state of one simulated month.
type MonthProjection struct {
	YearMonth
	// TargetDebtID is the smallest-balance active debt the pool pours into
	// first; empty once everything is paid.
	TargetDebtID string
	Pool         money.Cents
	Breakdown    PoolBreakdown
	Debts        []DebtMonth
}

// Projection is the simulation result. A nil entry in Payoffs means the
// debt was not paid off within the horizon; the caller reports it as "no
// payoff within horizon" rather than failing.
type Projection struct {
	Months  []MonthProjection
	Payoffs map[string]*YearMonth
}

// PaidOffBy reports whether the debt's payoff month is at or before ym.
func (p Projection) PaidOffBy(debtID string, ym YearMonth) bool {
	payoff := p.Payoffs[debtID]
	return payoff != nil && payoff.AtOrBefore(ym)
}

// MonthFor returns the projection of a specific month, if simulated.
func (p Projection) MonthFor(ym YearMonth) (MonthProjection, bool) {
	for _, m := range p.Months {
		if m.Year == ym.Year && m.Month == ym.Month {
			return m, true
		}
	}
	return MonthProjection{}, false
}
