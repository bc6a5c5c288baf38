package debt

import (
	"context"
	"testing"
	"time"

	"github.com/cashfolio/cashfolio/internal/event_bus"
	"github.com/cashfolio/cashfolio/internal/utils"
	"github.com/cashfolio/cashfolio/pkg/datemath"
	"github.com/cashfolio/cashfolio/pkg/ledger"
	"github.com/cashfolio/cashfolio/pkg/money"
	"github.com/cashfolio/cashfolio/pkg/recurrence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDebtService() (*DebtServiceImpl, *StubDebtRepo, *recurrence.StubTemplateRepo, *ledger.StubLedgerRepo, *utils.MockClock) {
	debtRepo := NewStubDebtRepo()
	templateRepo := recurrence.NewStubTemplateRepo()
	ledgerRepo := ledger.NewStubLedgerRepo()
	clock := &utils.MockClock{FixedNow: time.Date(2024, time.January, 10, 12, 0, 0, 0, time.UTC)}
	service := NewDebtService(debtRepo, templateRepo, ledgerRepo, event_bus.NewEventBus(), clock)
	return service, debtRepo, templateRepo, ledgerRepo, clock
}

func cardDebt() Debt {
	return Debt{
		Name:         "Card A",
		Balance:      money.Cents(50000),
		MinPayment:   money.Cents(5000),
		InterestRate: 0,
		Schedule: recurrence.Template{
			Kind:      recurrence.KindMonthly,
			StartDate: datemath.Date(2024, time.January, 15),
		},
	}
}

func TestDebtService_CreateStoresDerivedTemplate(t *testing.T) {
	// given
	service, _, templateRepo, _, _ := newTestDebtService()

	// when
	created, err := service.CreateDebt(context.Background(), cardDebt())

	// then
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.NotEmpty(t, created.TemplateID)

	template, found, err := templateRepo.GetByID(context.Background(), created.TemplateID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, created.ID, template.DebtID)
	assert.Equal(t, money.Cents(5000), template.Amount)
	assert.Equal(t, ledger.EntryType("expense"), template.EntryType)
	assert.Equal(t, "Card A minimum payment", template.Description)
}

func TestDebtService_CreateRejectsInvalidDebt(t *testing.T) {
	// given
	service, _, _, _, _ := newTestDebtService()

	nameless := cardDebt()
	nameless.Name = ""
	negative := cardDebt()
	negative.Balance = money.Cents(-1)
	badSchedule := cardDebt()
	badSchedule.Schedule.Kind = "fortnightly"

	// when / then
	_, err := service.CreateDebt(context.Background(), nameless)
	assert.Error(t, err)
	_, err = service.CreateDebt(context.Background(), negative)
	assert.Error(t, err)
	_, err = service.CreateDebt(context.Background(), badSchedule)
	assert.Error(t, err)
}

func TestDebtService_UpdateKeepsTemplateID(t *testing.T) {
	// given
	service, _, templateRepo, _, _ := newTestDebtService()
	created, err := service.CreateDebt(context.Background(), cardDebt())
	require.NoError(t, err)

	edit := created
	edit.MinPayment = money.Cents(6000)
	edit.TemplateID = "something-else"

	// when
	updated, err := service.UpdateDebt(context.Background(), edit)

	// then
	require.NoError(t, err)
	assert.Equal(t, created.TemplateID, updated.TemplateID)
	template, found, err := templateRepo.GetByID(context.Background(), created.TemplateID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, money.Cents(6000), template.Amount)
}

func TestDebtService_UpdateRestoresMissingTemplate(t *testing.T) {
	// given a debt whose derived template is gone, as after a partial restore
	service, _, templateRepo, _, _ := newTestDebtService()
	created, err := service.CreateDebt(context.Background(), cardDebt())
	require.NoError(t, err)
	_, err = templateRepo.Delete(context.Background(), created.TemplateID)
	require.NoError(t, err)

	// when
	_, err = service.UpdateDebt(context.Background(), created)

	// then
	require.NoError(t, err)
	_, found, err := templateRepo.GetByID(context.Background(), created.TemplateID)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestDebtService_DeleteCleansUpFromToday(t *testing.T) {
	// given
	service, _, templateRepo, ledgerRepo, _ := newTestDebtService()
	created, err := service.CreateDebt(context.Background(), cardDebt())
	require.NoError(t, err)

	led := ledgerRepo.Ledger()
	past := datemath.Date(2023, time.December, 15)
	future := datemath.Date(2024, time.February, 15)
	require.NoError(t, led.Add(past, ledger.Instance{ID: 1, Amount: 5000, EntryType: ledger.EntryExpense, RecurringID: created.TemplateID}))
	require.NoError(t, led.Add(future, ledger.Instance{ID: 2, Amount: 5000, EntryType: ledger.EntryExpense, RecurringID: created.TemplateID}))
	require.NoError(t, led.Add(future, ledger.Instance{ID: 3, Amount: 2000, EntryType: ledger.EntryExpense, SnowballDebtID: created.ID}))

	// when
	deleted, err := service.DeleteDebt(context.Background(), created.ID)

	// then
	require.NoError(t, err)
	assert.True(t, deleted)
	_, found, err := templateRepo.GetByID(context.Background(), created.TemplateID)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Len(t, led.On(past), 1)
	assert.Empty(t, led.On(future))
}

func TestDebtService_DeleteMissingDebt(t *testing.T) {
	// given
	service, _, _, _, _ := newTestDebtService()

	// when
	deleted, err := service.DeleteDebt(context.Background(), "nope")

	// then
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestDebtService_AddInfusionValidates(t *testing.T) {
	// given
	service, _, _, _, _ := newTestDebtService()

	// when / then
	_, err := service.AddInfusion(context.Background(), CashInfusion{Name: "Bonus", Amount: -1, Date: datemath.Date(2024, time.March, 1)})
	assert.Error(t, err)
	_, err = service.AddInfusion(context.Background(), CashInfusion{Name: "Bonus", Amount: 10000})
	assert.Error(t, err)

	created, err := service.AddInfusion(context.Background(), CashInfusion{Name: "Bonus", Amount: 10000, Date: datemath.Date(2024, time.March, 1)})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
}

func TestDebtService_RefreshPlanWritesCurrentAndLaterMonths(t *testing.T) {
	// given a debt with activity stored through February, small enough to be
	// paid off within January
	service, _, _, ledgerRepo, _ := newTestDebtService()
	small := cardDebt()
	small.Balance = money.Cents(20000)
	created, err := service.CreateDebt(context.Background(), small)
	require.NoError(t, err)
	require.NoError(t, service.UpdateSettings(context.Background(), Settings{BaseExtraPayment: money.Cents(20000)}))

	led := ledgerRepo.Ledger()
	december := datemath.Date(2023, time.December, 15)
	january := datemath.Date(2024, time.January, 15)
	february := datemath.Date(2024, time.February, 15)
	require.NoError(t, led.Add(december, ledger.Instance{ID: 1, Amount: 5000, EntryType: ledger.EntryExpense, RecurringID: created.TemplateID}))
	require.NoError(t, led.Add(january, ledger.Instance{ID: 2, Amount: 5000, EntryType: ledger.EntryExpense, RecurringID: created.TemplateID}))
	require.NoError(t, led.Add(february, ledger.Instance{ID: 3, Amount: 5000, EntryType: ledger.EntryExpense, RecurringID: created.TemplateID}))

	// when
	require.NoError(t, service.RefreshPlan(context.Background()))

	// then the extra payment lands in January, December history is untouched
	decemberDay := led.On(december)
	require.Len(t, decemberDay, 1)
	assert.Empty(t, decemberDay[0].SnowballDebtID)

	januaryDay := led.On(january)
	require.Len(t, januaryDay, 2)
	var extra *ledger.Instance
	for i := range januaryDay {
		if januaryDay[i].SnowballDebtID == created.ID {
			extra = &januaryDay[i]
		}
	}
	require.NotNil(t, extra)
	assert.Equal(t, money.Cents(15000), extra.Amount)

	// the debt is gone after January, so February's minimum is zeroed out
	februaryDay := led.On(february)
	require.Len(t, februaryDay, 1)
	assert.Equal(t, money.Cents(0), februaryDay[0].Amount)
	assert.True(t, februaryDay[0].Hidden)
}

func TestDebtService_RefreshPlanWithoutDebtsIsNoOp(t *testing.T) {
	// given
	service, _, _, ledgerRepo, _ := newTestDebtService()
	led := ledgerRepo.Ledger()
	date := datemath.Date(2024, time.January, 15)
	require.NoError(t, led.Add(date, ledger.Instance{ID: 1, Amount: 5000, EntryType: ledger.EntryExpense}))

	// when
	require.NoError(t, service.RefreshPlan(context.Background()))

	// then
	assert.Len(t, led.On(date), 1)
}
