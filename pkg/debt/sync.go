package debt

import (
	"fmt"
	"time"

	"github.com/cashfolio/cashfolio/pkg/datemath"
	"github.com/cashfolio/cashfolio/pkg/ledger"
	"github.com/cashfolio/cashfolio/pkg/money"
	"github.com/cashfolio/cashfolio/pkg/recurrence"
)

// SyncMonth reconciles a projection into one ledger month: minimum-payment
// instances of paid-off debts are zeroed and hidden (history survives),
// remaining minimum amounts are rewritten to the capped projected value, and
// synthetic extra-payment instances tagged with their debt are upserted or
// removed so repeated recomputation never duplicates or orphans anything.
//
// Callers must only pass the current or a future month; past months are
// immutable and guarded at the service boundary.
func SyncMonth(led *ledger.Ledger, debts []Debt, projection Projection, year int, month time.Month) error {
	target := YearMonth{year, month}
	monthProjection, simulated := projection.MonthFor(target)

	projected := map[string]DebtMonth{}
	if simulated {
		for _, dm := range monthProjection.Debts {
			projected[dm.DebtID] = dm
		}
	}

	for _, d := range debts {
		dm, ok := projected[d.ID]
		if !ok && !projection.PaidOffBy(d.ID, target) {
			// Beyond the simulated horizon an unpaid debt keeps its
			// scheduled minimum rather than getting zeroed out.
			dm = DebtMonth{DebtID: d.ID, AppliedMinimum: scheduledMinimum(d, year, month)}
		}
		if err := syncMinimumInstances(led, d, projection, target, dm); err != nil {
			return err
		}
		if err := syncExtraInstance(led, d, target, dm); err != nil {
			return err
		}
	}
	return nil
}

// syncMinimumInstances rewrites the month's generated minimum-payment
// instances for one debt to the capped projected value. The scheduled
// amount per occurrence is recomputed from the derived template, not read
// back from the instance, so repeated syncs stay idempotent. User-modified
// instances are left alone, matching the reconciler's edit-wins rule.
func syncMinimumInstances(led *ledger.Ledger, d Debt, projection Projection, target YearMonth, dm DebtMonth) error {
	if d.TemplateID == "" {
		return nil
	}
	scheduled := map[string]money.Cents{}
	if occurrences, err := recurrence.Expand(d.MinimumTemplate(), target.Year, target.Month); err == nil {
		for _, occ := range occurrences {
			scheduled[datemath.Format(occ.Date)] = occ.Amount
		}
	}

	// Earlier occurrences are paid in full first; the cap lands on the
	// tail. With the usual single monthly occurrence this is simply the
	// capped projected value.
	remaining := dm.AppliedMinimum
	var updateErr error
	led.Each(func(date time.Time, idx int, instance ledger.Instance) {
		if updateErr != nil || !datemath.SameMonth(date, target.Year, target.Month) {
			return
		}
		if instance.RecurringID != d.TemplateID || instance.Modified {
			return
		}
		applied := remaining
		if full, ok := scheduled[datemath.Format(date)]; ok && applied > full {
			applied = full
		}
		remaining -= applied
		instance.Amount = applied
		instance.Hidden = applied == 0 && projection.PaidOffBy(d.ID, target)
		if err := led.Update(date, idx, instance); err != nil {
			updateErr = fmt.Errorf("rewriting minimum payment for debt %s: %w", d.ID, err)
		}
	})
	return updateErr
}

// syncExtraInstance upserts or removes the synthetic snowball instance for
// (debt, month).
func syncExtraInstance(led *ledger.Ledger, d Debt, target YearMonth, dm DebtMonth) error {
	var existingDate time.Time
	existingIdx := -1
	var anchor time.Time

	led.Each(func(date time.Time, idx int, instance ledger.Instance) {
		if !datemath.SameMonth(date, target.Year, target.Month) {
			return
		}
		if instance.SnowballDebtID == d.ID {
			existingDate, existingIdx = date, idx
		}
		if anchor.IsZero() && instance.RecurringID == d.TemplateID && d.TemplateID != "" {
			anchor = date
		}
	})
	if anchor.IsZero() {
		anchor = datemath.Date(target.Year, target.Month, 1)
	}

	if dm.Extra <= 0 {
		if existingIdx >= 0 {
			return led.Remove(existingDate, existingIdx)
		}
		return nil
	}

	if existingIdx >= 0 {
		if !existingDate.Equal(anchor) {
			if err := led.Remove(existingDate, existingIdx); err != nil {
				return err
			}
			existingIdx = -1
		} else {
			instance := led.On(existingDate)[existingIdx]
			instance.Amount = dm.Extra
			instance.Description = extraDescription(d)
			return led.Update(existingDate, existingIdx, instance)
		}
	}
	return led.Add(anchor, ledger.Instance{
		Amount:         dm.Extra,
		EntryType:      ledger.EntryExpense,
		Description:    extraDescription(d),
		SnowballDebtID: d.ID,
	})
}

func extraDescription(d Debt) string {
	return fmt.Sprintf("%s extra payment", d.Name)
}
