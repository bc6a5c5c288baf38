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

func monthInstances(led *ledger.Ledger, year int, month time.Month) []ledger.Instance {
	var out []ledger.Instance
	led.Each(func(date time.Time, _ int, instance ledger.Instance) {
		if datemath.SameMonth(date, year, month) {
			out = append(out, instance)
		}
	})
	return out
}

func TestReconcileMonth_Idempotent(t *testing.T) {
	led := ledger.New()
	tpl := expenseTemplate(KindWeekly, datemath.Date(2024, time.June, 3))

	require.Empty(t, ReconcileMonth(led, []Template{tpl}, 2024, time.June))
	first := monthInstances(led, 2024, time.June)
	require.Len(t, first, 4)

	require.Empty(t, ReconcileMonth(led, []Template{tpl}, 2024, time.June))
	second := monthInstances(led, 2024, time.June)
	assert.Equal(t, first, second)
}

func TestReconcileMonth_ModifiedInstanceWins(t *testing.T) {
	led := ledger.New()
	tpl := expenseTemplate(KindMonthly, datemath.Date(2024, time.January, 15))

	ReconcileMonth(led, []Template{tpl}, 2024, time.June)
	date := datemath.Date(2024, time.June, 15)
	instance, ok := led.FindRecurring(date, tpl.ID)
	require.True(t, ok)

	// User bumps this one occurrence.
	instance.Amount = money.Cents(99999)
	instance.Modified = true
	require.NoError(t, led.Update(date, 0, instance))

	ReconcileMonth(led, []Template{tpl}, 2024, time.June)

	instances := monthInstances(led, 2024, time.June)
	require.Len(t, instances, 1)
	assert.True(t, instances[0].Modified)
	assert.Equal(t, money.Cents(99999), instances[0].Amount)
}

func TestReconcileMonth_ShortenedEndDateRemovesStaleInstances(t *testing.T) {
	led := ledger.New()
	tpl := expenseTemplate(KindMonthly, datemath.Date(2024, time.January, 15))

	ReconcileMonth(led, []Template{tpl}, 2024, time.June)
	require.Len(t, monthInstances(led, 2024, time.June), 1)

	end := datemath.Date(2024, time.March, 31)
	tpl.EndDate = &end
	ReconcileMonth(led, []Template{tpl}, 2024, time.June)
	assert.Empty(t, monthInstances(led, 2024, time.June))
}

func TestReconcileMonth_SkipSurvivesWithoutDuplicates(t *testing.T) {
	led := ledger.New()
	tpl := expenseTemplate(KindMonthly, datemath.Date(2024, time.January, 15))

	ReconcileMonth(led, []Template{tpl}, 2024, time.June)
	date := datemath.Date(2024, time.June, 15)
	led.Skips().Toggle(date, tpl.ID)

	ReconcileMonth(led, []Template{tpl}, 2024, time.June)

	instances := monthInstances(led, 2024, time.June)
	require.Len(t, instances, 1, "re-expansion must not resurrect a duplicate")
	assert.True(t, led.IsSkipped(date, tpl.ID))
}

func TestReconcileMonth_AdoptedOccurrenceNotDuplicated(t *testing.T) {
	led := ledger.New()
	tpl := expenseTemplate(KindMonthly, datemath.Date(2026, time.January, 31))
	tpl.Adjustment = datemath.AdjustNext

	ReconcileMonth(led, []Template{tpl}, 2026, time.January)
	ReconcileMonth(led, []Template{tpl}, 2026, time.February)

	assert.Empty(t, monthInstances(led, 2026, time.January))
	feb := monthInstances(led, 2026, time.February)
	require.Len(t, feb, 1)
	require.NotNil(t, feb[0].OriginalDate)
	assert.Equal(t, datemath.Date(2026, time.January, 31), *feb[0].OriginalDate)

	// Reconciling both months again changes nothing.
	ReconcileMonth(led, []Template{tpl}, 2026, time.January)
	ReconcileMonth(led, []Template{tpl}, 2026, time.February)
	assert.Empty(t, monthInstances(led, 2026, time.January))
	assert.Len(t, monthInstances(led, 2026, time.February), 1)
}

func TestReconcileMonth_OneOffsUntouched(t *testing.T) {
	led := ledger.New()
	date := datemath.Date(2024, time.June, 10)
	require.NoError(t, led.Add(date, ledger.Instance{
		Amount:      money.Cents(5000),
		EntryType:   ledger.EntryIncome,
		Description: "garage sale",
	}))

	tpl := expenseTemplate(KindMonthly, datemath.Date(2024, time.January, 10))
	ReconcileMonth(led, []Template{tpl}, 2024, time.June)

	instances := led.On(date)
	require.Len(t, instances, 2)
	assert.Equal(t, "garage sale", instances[0].Description)
}

func TestReconcileMonth_InvalidTemplateDoesNotAbortOthers(t *testing.T) {
	led := ledger.New()
	bad := expenseTemplate(KindCustom, datemath.Date(2024, time.June, 1))
	bad.ID = "tpl-bad"
	good := expenseTemplate(KindOnce, datemath.Date(2024, time.June, 5))
	good.ID = "tpl-good"

	invalid := ReconcileMonth(led, []Template{bad, good}, 2024, time.June)

	require.Len(t, invalid, 1)
	assert.ErrorIs(t, invalid[0], ErrInvalidTemplate)
	_, ok := led.FindRecurring(datemath.Date(2024, time.June, 5), "tpl-good")
	assert.True(t, ok)
}
