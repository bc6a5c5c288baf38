package debt

import (
	"testing"
	"time"

	"github.com/cashfolio/cashfolio/pkg/datemath"
	"github.com/cashfolio/cashfolio/pkg/money"
	"github.com/cashfolio/cashfolio/pkg/recurrence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func monthlyDebt(id, name string, balance, minimum int64, rate float64) Debt {
	return Debt{
		ID:           id,
		Name:         name,
		Balance:      money.Cents(balance),
		MinPayment:   money.Cents(minimum),
		InterestRate: rate,
		Schedule: recurrence.Template{
			Kind:      recurrence.KindMonthly,
			StartDate: datemath.Date(2024, time.January, 1),
		},
		TemplateID: "tpl-" + id,
	}
}

func debtRow(t *testing.T, mp MonthProjection, id string) DebtMonth {
	t.Helper()
	for _, dm := range mp.Debts {
		if dm.DebtID == id {
			return dm
		}
	}
	t.Fatalf("debt %s missing from month %s", id, mp.YearMonth)
	return DebtMonth{}
}

func TestProject_SnowballRollsFreedMinimumForward(t *testing.T) {
	// given two zero-interest debts and a fixed extra payment
	debts := []Debt{
		monthlyDebt("a", "Card A", 50000, 5000, 0),
		monthlyDebt("b", "Card B", 100000, 10000, 0),
	}
	settings := Settings{BaseExtraPayment: money.Cents(20000)}

	// when projecting from January 2024 with the extra included
	p := Project(debts, settings, nil, 2024, time.January, true)

	// then month one pours the pool into the smaller debt
	jan := p.Months[0]
	assert.Equal(t, "a", jan.TargetDebtID)
	rowA := debtRow(t, jan, "a")
	assert.Equal(t, money.Cents(5000), rowA.AppliedMinimum)
	assert.Equal(t, money.Cents(20000), rowA.Extra)
	assert.Equal(t, money.Cents(25000), rowA.EndingBalance)
	rowB := debtRow(t, jan, "b")
	assert.Equal(t, money.Cents(10000), rowB.AppliedMinimum)
	assert.Equal(t, money.Cents(90000), rowB.EndingBalance)

	// and the smaller debt pays off within three months
	payoffA := p.Payoffs["a"]
	require.NotNil(t, payoffA)
	assert.True(t, payoffA.AtOrBefore(YearMonth{2024, time.March}))

	// and its freed minimum joins the pool in every later month
	afterPayoff, ok := p.MonthFor(YearMonth{payoffA.Year, payoffA.Month + 1})
	require.True(t, ok)
	assert.Equal(t, money.Cents(5000), afterPayoff.Breakdown.MaturedRollover)

	payoffB := p.Payoffs["b"]
	require.NotNil(t, payoffB)
	assert.True(t, payoffA.Before(*payoffB))
}

func TestProject_ExcludingExtraKeepsMinimumsOnly(t *testing.T) {
	debts := []Debt{monthlyDebt("a", "Card A", 50000, 5000, 0)}
	settings := Settings{BaseExtraPayment: money.Cents(20000)}

	p := Project(debts, settings, nil, 2024, time.January, false)

	jan := p.Months[0]
	assert.Equal(t, money.Cents(0), jan.Breakdown.BaseExtra)
	rowA := debtRow(t, jan, "a")
	assert.Equal(t, money.Cents(0), rowA.Extra)
	assert.Equal(t, money.Cents(45000), rowA.EndingBalance)

	payoff := p.Payoffs["a"]
	require.NotNil(t, payoff)
	assert.Equal(t, YearMonth{2024, time.October}, *payoff)
}

func TestProject_InterestAccruesBeforeMinimum(t *testing.T) {
	// 12% annual on 100000 cents is exactly 1000 cents per month.
	debts := []Debt{monthlyDebt("a", "Loan", 100000, 5000, 12)}

	p := Project(debts, Settings{}, nil, 2024, time.January, true)

	rowA := debtRow(t, p.Months[0], "a")
	assert.Equal(t, money.Cents(1000), rowA.Interest)
	assert.Equal(t, money.Cents(96000), rowA.EndingBalance)
}

func TestProject_MinimumBelowInterestNeverPaysOff(t *testing.T) {
	debts := []Debt{monthlyDebt("a", "Trap", 10000000, 1000, 24)}

	p := Project(debts, Settings{}, nil, 2024, time.January, false)

	assert.Len(t, p.Months, Horizon)
	assert.Nil(t, p.Payoffs["a"])
}

func TestProject_TargetedInfusionCappedAtBalance(t *testing.T) {
	debts := []Debt{
		monthlyDebt("a", "Card A", 20000, 5000, 0),
		monthlyDebt("b", "Card B", 100000, 10000, 0),
	}
	infusions := []CashInfusion{{
		ID:           "inf-1",
		Name:         "Bonus",
		Amount:       money.Cents(50000),
		Date:         datemath.Date(2024, time.January, 15),
		TargetDebtID: "a",
	}}

	p := Project(debts, Settings{}, infusions, 2024, time.January, false)

	jan := p.Months[0]
	rowA := debtRow(t, jan, "a")
	// Minimum leaves 15000; the infusion covers it and the 35000 remainder
	// spills into the pool toward the other debt.
	assert.Equal(t, money.Cents(15000), rowA.Infusion)
	assert.Equal(t, money.Cents(0), rowA.EndingBalance)
	assert.Equal(t, money.Cents(35000), jan.Breakdown.Infusions)
	rowB := debtRow(t, jan, "b")
	assert.Equal(t, money.Cents(35000), rowB.Extra)

	payoffA := p.Payoffs["a"]
	require.NotNil(t, payoffA)
	assert.Equal(t, YearMonth{2024, time.January}, *payoffA)
}

func TestProject_UntargetedInfusionFeedsPool(t *testing.T) {
	debts := []Debt{monthlyDebt("a", "Card A", 50000, 5000, 0)}
	infusions := []CashInfusion{{
		ID:     "inf-1",
		Amount: money.Cents(7500),
		Date:   datemath.Date(2024, time.February, 3),
	}}

	p := Project(debts, Settings{}, infusions, 2024, time.January, false)

	assert.Equal(t, money.Cents(0), p.Months[0].Breakdown.Infusions)
	feb := p.Months[1]
	assert.Equal(t, money.Cents(7500), feb.Breakdown.Infusions)
	assert.Equal(t, money.Cents(7500), debtRow(t, feb, "a").Extra)
}

func TestProject_FinalMonthShortfallRollsInMonth(t *testing.T) {
	debts := []Debt{
		monthlyDebt("a", "Card A", 3000, 5000, 0),
		monthlyDebt("b", "Card B", 100000, 10000, 0),
	}

	p := Project(debts, Settings{}, nil, 2024, time.January, false)

	jan := p.Months[0]
	rowA := debtRow(t, jan, "a")
	assert.Equal(t, money.Cents(5000), rowA.ScheduledMinimum)
	assert.Equal(t, money.Cents(3000), rowA.AppliedMinimum)
	// The unused 2000 of the minimum is already available this month.
	assert.Equal(t, money.Cents(2000), jan.Breakdown.InMonthRollover)
	assert.Equal(t, money.Cents(2000), debtRow(t, jan, "b").Extra)
}

func TestProject_ZeroBalanceDebtSettledImmediately(t *testing.T) {
	debts := []Debt{
		monthlyDebt("a", "Paid", 0, 5000, 0),
		monthlyDebt("b", "Open", 30000, 10000, 0),
	}

	p := Project(debts, Settings{}, nil, 2024, time.January, false)

	payoffA := p.Payoffs["a"]
	require.NotNil(t, payoffA)
	assert.Equal(t, YearMonth{2024, time.January}, *payoffA)
	// The settled debt's minimum matures into the pool from month two on.
	require.True(t, len(p.Months) >= 2)
	assert.Equal(t, money.Cents(0), p.Months[0].Breakdown.MaturedRollover)
	assert.Equal(t, money.Cents(5000), p.Months[1].Breakdown.MaturedRollover)
	assert.Equal(t, "b", p.Months[0].TargetDebtID)
}

func TestProject_BalanceTieBrokenByName(t *testing.T) {
	debts := []Debt{
		monthlyDebt("z", "Zulu", 50000, 5000, 0),
		monthlyDebt("a", "Alpha", 50000, 5000, 0),
	}

	p := Project(debts, Settings{BaseExtraPayment: money.Cents(1000)}, nil, 2024, time.January, true)

	assert.Equal(t, "a", p.Months[0].TargetDebtID)
}

func TestProject_SemiMonthlyMinimumCountsBothPaydates(t *testing.T) {
	d := monthlyDebt("a", "Loan", 100000, 2500, 0)
	d.Schedule = recurrence.Template{
		Kind:      recurrence.KindSemiMonthly,
		StartDate: datemath.Date(2024, time.January, 1),
		SemiMonthly: &recurrence.SemiMonthlyDays{
			First:  1,
			Second: 15,
		},
	}

	p := Project([]Debt{d}, Settings{}, nil, 2024, time.January, false)

	rowA := debtRow(t, p.Months[0], "a")
	assert.Equal(t, money.Cents(5000), rowA.ScheduledMinimum)
}
