// Package ledger holds the date-keyed transaction register the rest of the
// application computes over. The Ledger is an in-memory value handed to the
// expansion, aggregation, and projection engines explicitly, so independent
// what-if simulations can run against isolated snapshots.
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cashfolio/cashfolio/pkg/datemath"
	"github.com/cashfolio/cashfolio/pkg/money"
)

type EntryType string

const (
	EntryIncome  EntryType = "income"
	EntryExpense EntryType = "expense"
	EntryBalance EntryType = "balance"
)

// ErrConstraintViolation is wrapped by every mutation rejection; the ledger
// is left unchanged when it is returned.
var ErrConstraintViolation = errors.New("ledger constraint violation")

// Instance is one concrete transaction stored under a calendar date.
type Instance struct {
	ID          int64
	Amount      money.Cents
	EntryType   EntryType
	Description string
	// RecurringID links a generated occurrence back to its template; empty
	// for one-off entries.
	RecurringID string
	// Modified marks a user-edited occurrence that must survive re-expansion.
	Modified bool
	// OriginalDate is set when a business-day adjustment moved the
	// occurrence away from its natural date.
	OriginalDate *time.Time
	// Hidden instances stay in the register for history but are excluded
	// from aggregation. The projection sync zeroes-and-hides rather than
	// deletes.
	Hidden bool
	// SnowballDebtID tags a synthetic extra-payment instance with the debt
	// it pays down, keying idempotent upserts per (debt, month).
	SnowballDebtID string
}

// Ledger maps ISO date strings to ordered transaction instances, together
// with the per-(date, template) skip flags.
type Ledger struct {
	days  map[string][]Instance
	skips SkipSet
}

func New() *Ledger {
	return &Ledger{days: map[string][]Instance{}, skips: SkipSet{}}
}

// Clone deep-copies the ledger for isolated simulations.
func (l *Ledger) Clone() *Ledger {
	c := New()
	for date, instances := range l.days {
		c.days[date] = append([]Instance(nil), instances...)
	}
	for k := range l.skips {
		c.skips[k] = true
	}
	return c
}

// On returns the instances stored under a date, in insertion order.
func (l *Ledger) On(date time.Time) []Instance {
	return l.days[datemath.Format(date)]
}

// Dates returns every date carrying at least one instance, ascending.
func (l *Ledger) Dates() []time.Time {
	keys := make([]string, 0, len(l.days))
	for k, instances := range l.days {
		if len(instances) > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	dates := make([]time.Time, 0, len(keys))
	for _, k := range keys {
		d, err := datemath.Parse(k)
		if err != nil {
			continue
		}
		dates = append(dates, d)
	}
	return dates
}

// Bounds returns the earliest and latest dates with activity, or false for
// an empty ledger.
func (l *Ledger) Bounds() (time.Time, time.Time, bool) {
	dates := l.Dates()
	if len(dates) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return dates[0], dates[len(dates)-1], true
}

// Add appends an instance under a date after checking the register
// constraints: at most one balance entry per date, and at most one instance
// per (date, recurring template).
func (l *Ledger) Add(date time.Time, instance Instance) error {
	key := datemath.Format(date)
	for _, existing := range l.days[key] {
		if instance.EntryType == EntryBalance && existing.EntryType == EntryBalance {
			return fmt.Errorf("%w: date %s already has a balance entry", ErrConstraintViolation, key)
		}
		if instance.RecurringID != "" && existing.RecurringID == instance.RecurringID {
			return fmt.Errorf("%w: template %s already has an instance on %s", ErrConstraintViolation, instance.RecurringID, key)
		}
		if instance.SnowballDebtID != "" && existing.SnowballDebtID == instance.SnowballDebtID {
			return fmt.Errorf("%w: debt %s already has an extra payment on %s", ErrConstraintViolation, instance.SnowballDebtID, key)
		}
	}
	l.days[key] = append(l.days[key], instance)
	return nil
}

// FindRecurring locates the instance generated from a template on a date.
func (l *Ledger) FindRecurring(date time.Time, recurringID string) (Instance, bool) {
	for _, instance := range l.On(date) {
		if instance.RecurringID == recurringID {
			return instance, true
		}
	}
	return Instance{}, false
}

// Update replaces the instance at position idx under date.
func (l *Ledger) Update(date time.Time, idx int, instance Instance) error {
	key := datemath.Format(date)
	instances := l.days[key]
	if idx < 0 || idx >= len(instances) {
		return fmt.Errorf("%w: no instance at %s[%d]", ErrConstraintViolation, key, idx)
	}
	instances[idx] = instance
	return nil
}

// Remove deletes the instance at position idx under date.
func (l *Ledger) Remove(date time.Time, idx int) error {
	key := datemath.Format(date)
	instances := l.days[key]
	if idx < 0 || idx >= len(instances) {
		return fmt.Errorf("%w: no instance at %s[%d]", ErrConstraintViolation, key, idx)
	}
	l.days[key] = append(instances[:idx], instances[idx+1:]...)
	if len(l.days[key]) == 0 {
		delete(l.days, key)
	}
	return nil
}

// Filter removes every instance for which keep returns false, across the
// whole register.
func (l *Ledger) Filter(keep func(date time.Time, instance Instance) bool) {
	for key, instances := range l.days {
		date, err := datemath.Parse(key)
		if err != nil {
			continue
		}
		kept := instances[:0]
		for _, instance := range instances {
			if keep(date, instance) {
				kept = append(kept, instance)
			}
		}
		if len(kept) == 0 {
			delete(l.days, key)
		} else {
			l.days[key] = kept
		}
	}
}

// Each visits every (date, index, instance) in date order.
func (l *Ledger) Each(visit func(date time.Time, idx int, instance Instance)) {
	for _, date := range l.Dates() {
		for idx, instance := range l.On(date) {
			visit(date, idx, instance)
		}
	}
}

// Skips exposes the ledger's skip set.
func (l *Ledger) Skips() SkipSet {
	return l.skips
}

// IsSkipped reports whether the (date, template) occurrence is excluded from
// aggregation.
func (l *Ledger) IsSkipped(date time.Time, recurringID string) bool {
	return l.skips.Contains(date, recurringID)
}
