package debt

import (
	"sort"
	"time"

	"github.com/cashfolio/cashfolio/pkg/datemath"
	"github.com/cashfolio/cashfolio/pkg/money"
	"github.com/cashfolio/cashfolio/pkg/recurrence"
	log "github.com/sirupsen/logrus"
)

// Horizon caps the simulation so schedules that can never pay off (minimum
// payments below accruing interest) still terminate.
const Horizon = 600

// Project runs the monthly snowball simulation from (year, month). Each
// month accrues interest, applies scheduled minimums capped at the balance,
// applies cash infusions, and pours the pool (base extra + untargeted
// infusions + in-month rollover + matured rollover) into the
// smallest-balance active debt first.
//
// Active debts are ordered by post-minimum balance with ties broken by name;
// the tie-break is a deliberate determinism guarantee, not inherited
// behavior. includeExtra toggles only the base extra payment, so a
// minimums-only plan can be projected with the same machinery.
func Project(debts []Debt, settings Settings, infusions []CashInfusion, year int, month time.Month, includeExtra bool) Projection {
	ordered := make([]Debt, len(debts))
	copy(ordered, debts)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Name != ordered[j].Name {
			return ordered[i].Name < ordered[j].Name
		}
		return ordered[i].ID < ordered[j].ID
	})

	balances := make(map[string]money.Cents, len(ordered))
	payoffs := make(map[string]*YearMonth, len(ordered))
	for _, d := range ordered {
		balances[d.ID] = money.ClampNonNegative(d.Balance)
		payoffs[d.ID] = nil
		if balances[d.ID] == 0 {
			// Already settled before the simulation starts.
			settled := YearMonth{year, month}
			payoffs[d.ID] = &settled
		}
	}

	result := Projection{Payoffs: payoffs}
	for step := 0; step < Horizon; step++ {
		y, m := datemath.AddMonths(year, month, step)
		current := YearMonth{y, m}

		remaining := money.Cents(0)
		for _, bal := range balances {
			remaining += bal
		}
		if remaining == 0 {
			break
		}

		perDebt := make(map[string]*DebtMonth, len(ordered))
		monthProjection := MonthProjection{YearMonth: current}

		recordPayoff := func(id string) {
			if balances[id] == 0 && payoffs[id] == nil {
				paid := current
				payoffs[id] = &paid
			}
		}

		// 1. Interest accrual on active debts.
		for _, d := range ordered {
			dm := &DebtMonth{DebtID: d.ID}
			perDebt[d.ID] = dm
			if balances[d.ID] == 0 {
				continue
			}
			interest, err := money.MonthlyInterest(balances[d.ID], d.InterestRate)
			if err != nil {
				log.Warnf("debt %s has an unusable interest rate: %v", d.ID, err)
				interest = 0
			}
			dm.Interest = interest
			balances[d.ID] += interest
		}

		// 2. Scheduled minimums, capped at the balance; the shortfall rolls
		// into this month's pool.
		inMonthRollover := money.Cents(0)
		for _, d := range ordered {
			dm := perDebt[d.ID]
			if balances[d.ID] == 0 {
				continue
			}
			scheduled := scheduledMinimum(d, y, m)
			applied := scheduled
			if applied > balances[d.ID] {
				applied = balances[d.ID]
			}
			balances[d.ID] -= applied
			dm.ScheduledMinimum = scheduled
			dm.AppliedMinimum = applied
			inMonthRollover += scheduled - applied
			recordPayoff(d.ID)
		}

		// 3. Cash infusions: targeted ones hit their debt directly, capped;
		// the remainder and every untargeted infusion feed the pool.
		infusionPool := money.Cents(0)
		for _, infusion := range infusions {
			if !datemath.SameMonth(infusion.Date, y, m) {
				continue
			}
			amount := money.ClampNonNegative(infusion.Amount)
			if target := infusion.TargetDebtID; target != "" {
				if bal, ok := balances[target]; ok && bal > 0 {
					applied := amount
					if applied > bal {
						applied = bal
					}
					balances[target] -= applied
					perDebt[target].Infusion += applied
					amount -= applied
					recordPayoff(target)
				}
			}
			infusionPool += amount
		}

		// 4. Snowball pool. Minimums of debts paid off in earlier months
		// permanently redirect here; a debt paid off this month already
		// contributed its unused remainder through the in-month rollover.
		matured := money.Cents(0)
		for _, d := range ordered {
			if payoff := payoffs[d.ID]; payoff != nil && payoff.Before(current) {
				matured += scheduledMinimum(d, y, m)
			}
		}
		breakdown := PoolBreakdown{
			Infusions:       infusionPool,
			InMonthRollover: inMonthRollover,
			MaturedRollover: matured,
		}
		if includeExtra {
			breakdown.BaseExtra = money.ClampNonNegative(settings.BaseExtraPayment)
		}
		pool := breakdown.BaseExtra + breakdown.Infusions + breakdown.InMonthRollover + breakdown.MaturedRollover
		monthProjection.Pool = pool
		monthProjection.Breakdown = breakdown

		// 5. Pour the pool into active debts, smallest balance first.
		actives := make([]Debt, 0, len(ordered))
		for _, d := range ordered {
			if balances[d.ID] > 0 {
				actives = append(actives, d)
			}
		}
		sort.SliceStable(actives, func(i, j int) bool {
			if balances[actives[i].ID] != balances[actives[j].ID] {
				return balances[actives[i].ID] < balances[actives[j].ID]
			}
			return actives[i].Name < actives[j].Name
		})
		if len(actives) > 0 {
			monthProjection.TargetDebtID = actives[0].ID
		}
		for _, d := range actives {
			if pool == 0 {
				break
			}
			applied := pool
			if applied > balances[d.ID] {
				applied = balances[d.ID]
			}
			balances[d.ID] -= applied
			pool -= applied
			perDebt[d.ID].Extra = applied
			recordPayoff(d.ID)
		}

		for _, d := range ordered {
			perDebt[d.ID].EndingBalance = balances[d.ID]
			monthProjection.Debts = append(monthProjection.Debts, *perDebt[d.ID])
		}
		result.Months = append(result.Months, monthProjection)
	}
	return result
}

// scheduledMinimum sums the debt's minimum-payment occurrences for a month.
// A schedule the engine cannot expand falls back to the flat minimum so the
// projection stays usable; the condition is logged, never fatal.
func scheduledMinimum(d Debt, year int, month time.Month) money.Cents {
	occurrences, err := recurrence.Expand(d.MinimumTemplate(), year, month)
	if err != nil {
		log.Warnf("minimum-payment schedule of debt %s is invalid, using flat minimum: %v", d.ID, err)
		return money.ClampNonNegative(d.MinPayment)
	}
	total := money.Cents(0)
	for _, occ := range occurrences {
		total += occ.Amount
	}
	return total
}
