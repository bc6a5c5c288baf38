// Package recurrence turns small recurring templates into concrete calendar
// occurrences and keeps the ledger reconciled with them across re-expansions
// and template edits.
package recurrence

import (
	"errors"
	"fmt"
	"time"

	"github.com/cashfolio/cashfolio/pkg/datemath"
	"github.com/cashfolio/cashfolio/pkg/ledger"
	"github.com/cashfolio/cashfolio/pkg/money"
)

type Kind string

const (
	KindOnce        Kind = "once"
	KindDaily       Kind = "daily"
	KindWeekly      Kind = "weekly"
	KindBiweekly    Kind = "biweekly"
	KindMonthly     Kind = "monthly"
	KindSemiMonthly Kind = "semimonthly"
	KindQuarterly   Kind = "quarterly"
	KindSemiAnnual  Kind = "semiannual"
	KindYearly      Kind = "yearly"
	KindCustom      Kind = "custom"
)

type IntervalUnit string

const (
	UnitDays   IntervalUnit = "days"
	UnitWeeks  IntervalUnit = "weeks"
	UnitMonths IntervalUnit = "months"
)

// ErrInvalidTemplate marks templates the engine cannot expand (unknown kind,
// custom kind without an interval, and similar). Invalid templates never
// abort a whole expansion run; the caller decides how to report them.
var ErrInvalidTemplate = errors.New("invalid recurring template")

// DayPattern targets an ordinal weekday within the month, e.g. the third
// Friday. Ordinal is 1..4 or -1 for "last". Only meaningful for monthly
// templates.
type DayPattern struct {
	Ordinal int
	Weekday time.Weekday
}

// SemiMonthlyLastDay is the sentinel for "the month's actual last day" in
// the second semimonthly slot.
const SemiMonthlyLastDay = -1

// SemiMonthlyDays holds the two fixed days of month for semimonthly
// templates. Second may be SemiMonthlyLastDay.
type SemiMonthlyDays struct {
	First  int
	Second int
}

// Interval is the step for custom-kind templates.
type Interval struct {
	Value int
	Unit  IntervalUnit
}

// VariableAmount grows the template amount per natural occurrence:
// amount(i) = base * (1 + PercentPerOccurrence/100)^i.
type VariableAmount struct {
	PercentPerOccurrence float64
}

// Template describes a recurring income or expense schedule. Balance-type
// templates are disallowed; an explicit balance reset is always a one-off
// ledger entry.
type Template struct {
	ID             string
	StartDate      time.Time
	EndDate        *time.Time
	MaxOccurrences int // 0 means unlimited
	Kind           Kind
	Amount         money.Cents
	EntryType      ledger.EntryType
	Description    string
	DayPattern     *DayPattern
	SemiMonthly    *SemiMonthlyDays
	CustomInterval *Interval
	Adjustment     datemath.AdjustMode
	Variable       *VariableAmount
	// DebtID links the template to the debt whose minimum payment it
	// generates. Such templates are derived artifacts recomputed from the
	// debt's fields, never edited freestanding.
	DebtID string
}

// Occurrence is one concrete date+amount generated from a template.
type Occurrence struct {
	Date   time.Time
	Amount money.Cents
	// Index is the natural (pre-adjustment) occurrence ordinal, counted
	// from 0 at the first occurrence.
	Index int
	// OriginalDate is set when business-day adjustment moved the occurrence
	// away from its natural date.
	OriginalDate *time.Time
}

// Validate reports whether the template can be expanded at all.
func (t Template) Validate() error {
	switch t.Kind {
	case KindOnce, KindDaily, KindWeekly, KindBiweekly, KindMonthly,
		KindSemiMonthly, KindQuarterly, KindSemiAnnual, KindYearly:
	case KindCustom:
		if t.CustomInterval == nil {
			return fmt.Errorf("%w: custom kind requires an interval", ErrInvalidTemplate)
		}
		if t.CustomInterval.Value < 1 {
			return fmt.Errorf("%w: custom interval value must be at least 1", ErrInvalidTemplate)
		}
		switch t.CustomInterval.Unit {
		case UnitDays, UnitWeeks, UnitMonths:
		default:
			return fmt.Errorf("%w: unknown interval unit %q", ErrInvalidTemplate, t.CustomInterval.Unit)
		}
	default:
		return fmt.Errorf("%w: unknown recurrence kind %q", ErrInvalidTemplate, t.Kind)
	}
	if t.EntryType != ledger.EntryIncome && t.EntryType != ledger.EntryExpense {
		return fmt.Errorf("%w: recurring templates must be income or expense, got %q", ErrInvalidTemplate, t.EntryType)
	}
	if t.Amount < 0 {
		return fmt.Errorf("%w: amount must be non-negative", ErrInvalidTemplate)
	}
	if t.StartDate.IsZero() {
		return fmt.Errorf("%w: start date is required", ErrInvalidTemplate)
	}
	if t.Kind == KindMonthly && t.DayPattern != nil {
		if o := t.DayPattern.Ordinal; (o < 1 || o > 4) && o != -1 {
			return fmt.Errorf("%w: day pattern ordinal must be 1-4 or -1", ErrInvalidTemplate)
		}
		if wd := t.DayPattern.Weekday; wd < time.Sunday || wd > time.Saturday {
			return fmt.Errorf("%w: day pattern weekday out of range", ErrInvalidTemplate)
		}
	}
	if t.Kind == KindSemiMonthly {
		if t.SemiMonthly == nil {
			return fmt.Errorf("%w: semimonthly kind requires two days of month", ErrInvalidTemplate)
		}
		if t.SemiMonthly.First < 1 || t.SemiMonthly.First > 31 {
			return fmt.Errorf("%w: semimonthly first day out of range", ErrInvalidTemplate)
		}
		if s := t.SemiMonthly.Second; s != SemiMonthlyLastDay && (s < 1 || s > 31) {
			return fmt.Errorf("%w: semimonthly second day out of range", ErrInvalidTemplate)
		}
	}
	return nil
}

// withinWindow checks the template's date window; occurrence cap is checked
// separately because it works on natural indexes.
func (t Template) withinWindow(date time.Time) bool {
	if date.Before(t.StartDate) {
		return false
	}
	if t.EndDate != nil && date.After(*t.EndDate) {
		return false
	}
	return true
}

// underCap reports whether the natural occurrence index is still below
// maxOccurrences.
func (t Template) underCap(index int) bool {
	return t.MaxOccurrences == 0 || index < t.MaxOccurrences
}
