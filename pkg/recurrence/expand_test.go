package recurrence

import (
	"testing"
	"time"

	"github.com/cashfolio/cashfolio/pkg/datemath"
	"github.com/cashfolio/cashfolio/pkg/ledger"
	"github.com/cashfolio/cashfolio/pkg/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expenseTemplate(kind Kind, start time.Time) Template {
	return Template{
		ID:          "tpl-1",
		StartDate:   start,
		Kind:        kind,
		Amount:      money.Cents(10000),
		EntryType:   ledger.EntryExpense,
		Description: "test expense",
		Adjustment:  datemath.AdjustNone,
	}
}

func TestExpand_Once(t *testing.T) {
	tpl := expenseTemplate(KindOnce, datemath.Date(2024, time.June, 14))

	occs, err := Expand(tpl, 2024, time.June)
	require.NoError(t, err)
	require.Len(t, occs, 1)
	assert.Equal(t, datemath.Date(2024, time.June, 14), occs[0].Date)
	assert.Equal(t, 0, occs[0].Index)

	occs, err = Expand(tpl, 2024, time.July)
	require.NoError(t, err)
	assert.Empty(t, occs)
}

func TestExpand_MonthlyClampsToShortMonths(t *testing.T) {
	// Anchored to Jan 31: end-of-month sticky.
	tpl := expenseTemplate(KindMonthly, datemath.Date(2024, time.January, 31))

	occs, err := Expand(tpl, 2024, time.April)
	require.NoError(t, err)
	require.Len(t, occs, 1)
	assert.Equal(t, datemath.Date(2024, time.April, 30), occs[0].Date)

	tpl2 := expenseTemplate(KindMonthly, datemath.Date(2023, time.January, 31))
	occs, err = Expand(tpl2, 2023, time.February)
	require.NoError(t, err)
	require.Len(t, occs, 1)
	assert.Equal(t, datemath.Date(2023, time.February, 28), occs[0].Date)
}

func TestExpand_MonthlyNonStickyKeepsAnchorDay(t *testing.T) {
	tpl := expenseTemplate(KindMonthly, datemath.Date(2024, time.January, 30))

	occs, err := Expand(tpl, 2024, time.February)
	require.NoError(t, err)
	require.Len(t, occs, 1)
	assert.Equal(t, datemath.Date(2024, time.February, 29), occs[0].Date)

	occs, err = Expand(tpl, 2024, time.March)
	require.NoError(t, err)
	require.Len(t, occs, 1)
	assert.Equal(t, datemath.Date(2024, time.March, 30), occs[0].Date)
}

func TestExpand_BusinessDayShiftAcrossMonthBoundary(t *testing.T) {
	// Jan 31 2026 is a Saturday; with next-day adjustment the January
	// occurrence belongs to February, on Monday Feb 2.
	tpl := expenseTemplate(KindMonthly, datemath.Date(2026, time.January, 31))
	tpl.Adjustment = datemath.AdjustNext

	jan, err := Expand(tpl, 2026, time.January)
	require.NoError(t, err)
	assert.Empty(t, jan, "January must not emit an occurrence that was adjusted into February")

	feb, err := Expand(tpl, 2026, time.February)
	require.NoError(t, err)
	require.Len(t, feb, 1, "February gets the adopted occurrence; its own Feb 28 lands on a Saturday and moves to March")
	assert.Equal(t, datemath.Date(2026, time.February, 2), feb[0].Date)
	require.NotNil(t, feb[0].OriginalDate)
	assert.Equal(t, datemath.Date(2026, time.January, 31), *feb[0].OriginalDate)
	assert.Equal(t, 0, feb[0].Index)

	mar, err := Expand(tpl, 2026, time.March)
	require.NoError(t, err)
	require.Len(t, mar, 2, "March adopts February's shifted occurrence and keeps its own")
	assert.Equal(t, datemath.Date(2026, time.March, 2), mar[0].Date)
	require.NotNil(t, mar[0].OriginalDate)
	assert.Equal(t, datemath.Date(2026, time.February, 28), *mar[0].OriginalDate)
	assert.Equal(t, datemath.Date(2026, time.March, 31), mar[1].Date)
	assert.Nil(t, mar[1].OriginalDate)
}

func TestExpand_VariableAmountCompounds(t *testing.T) {
	tpl := expenseTemplate(KindDaily, datemath.Date(2024, time.June, 3))
	tpl.Variable = &VariableAmount{PercentPerOccurrence: 10}

	occs, err := Expand(tpl, 2024, time.June)
	require.NoError(t, err)
	require.Len(t, occs, 28)
	assert.Equal(t, money.Cents(10000), occs[0].Amount)
	assert.Equal(t, money.Cents(11000), occs[1].Amount)
	assert.Equal(t, money.Cents(12100), occs[2].Amount)
}

func TestExpand_WeeklyMaxOccurrencesSpansMonths(t *testing.T) {
	tpl := expenseTemplate(KindWeekly, datemath.Date(2024, time.June, 24))
	tpl.MaxOccurrences = 3

	jun, err := Expand(tpl, 2024, time.June)
	require.NoError(t, err)
	require.Len(t, jun, 1)
	assert.Equal(t, datemath.Date(2024, time.June, 24), jun[0].Date)

	jul, err := Expand(tpl, 2024, time.July)
	require.NoError(t, err)
	require.Len(t, jul, 2)
	assert.Equal(t, datemath.Date(2024, time.July, 1), jul[0].Date)
	assert.Equal(t, datemath.Date(2024, time.July, 8), jul[1].Date)

	aug, err := Expand(tpl, 2024, time.August)
	require.NoError(t, err)
	assert.Empty(t, aug)
}

func TestExpand_BiweeklyIndexesCrossMonths(t *testing.T) {
	tpl := expenseTemplate(KindBiweekly, datemath.Date(2024, time.January, 5))

	feb, err := Expand(tpl, 2024, time.February)
	require.NoError(t, err)
	require.Len(t, feb, 2)
	assert.Equal(t, datemath.Date(2024, time.February, 2), feb[0].Date)
	assert.Equal(t, 2, feb[0].Index)
	assert.Equal(t, datemath.Date(2024, time.February, 16), feb[1].Date)
	assert.Equal(t, 3, feb[1].Index)
}

func TestExpand_SemiMonthlyMidMonthStart(t *testing.T) {
	tpl := expenseTemplate(KindSemiMonthly, datemath.Date(2024, time.May, 16))
	tpl.SemiMonthly = &SemiMonthlyDays{First: 1, Second: SemiMonthlyLastDay}

	may, err := Expand(tpl, 2024, time.May)
	require.NoError(t, err)
	require.Len(t, may, 1, "May 1st precedes the start date")
	assert.Equal(t, datemath.Date(2024, time.May, 31), may[0].Date)
	assert.Equal(t, 0, may[0].Index)

	jun, err := Expand(tpl, 2024, time.June)
	require.NoError(t, err)
	require.Len(t, jun, 2)
	assert.Equal(t, datemath.Date(2024, time.June, 1), jun[0].Date)
	assert.Equal(t, 1, jun[0].Index)
	assert.Equal(t, datemath.Date(2024, time.June, 30), jun[1].Date)
	assert.Equal(t, 2, jun[1].Index)
}

func TestExpand_DaySpecificMonthly(t *testing.T) {
	tpl := expenseTemplate(KindMonthly, datemath.Date(2024, time.January, 1))
	tpl.DayPattern = &DayPattern{Ordinal: 3, Weekday: time.Friday}

	mar, err := Expand(tpl, 2024, time.March)
	require.NoError(t, err)
	require.Len(t, mar, 1)
	assert.Equal(t, datemath.Date(2024, time.March, 15), mar[0].Date)
	assert.Equal(t, 2, mar[0].Index)
}

func TestExpand_QuarterlyFiresOnMultiplesOnly(t *testing.T) {
	tpl := expenseTemplate(KindQuarterly, datemath.Date(2024, time.January, 15))

	feb, err := Expand(tpl, 2024, time.February)
	require.NoError(t, err)
	assert.Empty(t, feb)

	apr, err := Expand(tpl, 2024, time.April)
	require.NoError(t, err)
	require.Len(t, apr, 1)
	assert.Equal(t, datemath.Date(2024, time.April, 15), apr[0].Date)
	assert.Equal(t, 1, apr[0].Index)
}

func TestExpand_YearlyLeapDayFallsBack(t *testing.T) {
	tpl := expenseTemplate(KindYearly, datemath.Date(2024, time.February, 29))

	y2025, err := Expand(tpl, 2025, time.February)
	require.NoError(t, err)
	require.Len(t, y2025, 1)
	assert.Equal(t, datemath.Date(2025, time.February, 28), y2025[0].Date)
	assert.Equal(t, 1, y2025[0].Index)

	y2028, err := Expand(tpl, 2028, time.February)
	require.NoError(t, err)
	require.Len(t, y2028, 1)
	assert.Equal(t, datemath.Date(2028, time.February, 29), y2028[0].Date)
	assert.Equal(t, 4, y2028[0].Index)
}

func TestExpand_CustomMonthInterval(t *testing.T) {
	tpl := expenseTemplate(KindCustom, datemath.Date(2024, time.January, 10))
	tpl.CustomInterval = &Interval{Value: 2, Unit: UnitMonths}

	mar, err := Expand(tpl, 2024, time.March)
	require.NoError(t, err)
	require.Len(t, mar, 1)
	assert.Equal(t, datemath.Date(2024, time.March, 10), mar[0].Date)
	assert.Equal(t, 1, mar[0].Index)

	feb, err := Expand(tpl, 2024, time.February)
	require.NoError(t, err)
	assert.Empty(t, feb)
}

func TestExpand_EndDateTruncates(t *testing.T) {
	tpl := expenseTemplate(KindMonthly, datemath.Date(2024, time.January, 15))
	end := datemath.Date(2024, time.March, 1)
	tpl.EndDate = &end

	feb, err := Expand(tpl, 2024, time.February)
	require.NoError(t, err)
	assert.Len(t, feb, 1)

	mar, err := Expand(tpl, 2024, time.March)
	require.NoError(t, err)
	assert.Empty(t, mar)
}

func TestExpand_InvalidTemplates(t *testing.T) {
	unknown := expenseTemplate(Kind("fortnightly-ish"), datemath.Date(2024, time.January, 1))
	_, err := Expand(unknown, 2024, time.January)
	assert.ErrorIs(t, err, ErrInvalidTemplate)

	custom := expenseTemplate(KindCustom, datemath.Date(2024, time.January, 1))
	_, err = Expand(custom, 2024, time.January)
	assert.ErrorIs(t, err, ErrInvalidTemplate)

	balance := expenseTemplate(KindMonthly, datemath.Date(2024, time.January, 1))
	balance.EntryType = ledger.EntryBalance
	_, err = Expand(balance, 2024, time.January)
	assert.ErrorIs(t, err, ErrInvalidTemplate)
}
