package recurrence

import (
	"context"
	"testing"
	"time"

	"github.com/cashfolio/cashfolio/internal/event_bus"
	"github.com/cashfolio/cashfolio/internal/utils"
	"github.com/cashfolio/cashfolio/pkg/datemath"
	"github.com/cashfolio/cashfolio/pkg/ledger"
	"github.com/cashfolio/cashfolio/pkg/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTemplateService() (*TemplateServiceImpl, *StubTemplateRepo, *ledger.StubLedgerRepo) {
	templateRepo := NewStubTemplateRepo()
	ledgerRepo := ledger.NewStubLedgerRepo()
	clock := &utils.MockClock{FixedNow: time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)}
	service := NewTemplateService(templateRepo, ledgerRepo, event_bus.NewEventBus(), clock)
	return service, templateRepo, ledgerRepo
}

func rentTemplate() Template {
	return Template{
		Kind:        KindMonthly,
		StartDate:   datemath.Date(2024, time.January, 1),
		Amount:      money.Cents(120000),
		EntryType:   ledger.EntryExpense,
		Description: "Rent",
		Adjustment:  datemath.AdjustNone,
	}
}

func TestTemplateService_CreateAssignsID(t *testing.T) {
	// given
	service, repo, _ := newTestTemplateService()

	// when
	created, err := service.Create(context.Background(), rentTemplate())

	// then
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	stored, found, err := repo.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Rent", stored.Description)
}

func TestTemplateService_CreateRejectsDebtTemplates(t *testing.T) {
	// given
	service, _, _ := newTestTemplateService()
	template := rentTemplate()
	template.DebtID = "debt-1"

	// when
	_, err := service.Create(context.Background(), template)

	// then
	assert.ErrorIs(t, err, ErrInvalidTemplate)
}

func TestTemplateService_CreateRejectsInvalidTemplate(t *testing.T) {
	// given
	service, _, _ := newTestTemplateService()
	template := rentTemplate()
	template.Kind = "fortnightly"

	// when
	_, err := service.Create(context.Background(), template)

	// then
	assert.ErrorIs(t, err, ErrInvalidTemplate)
}

func TestTemplateService_UpdateAllRewritesInPlace(t *testing.T) {
	// given
	service, repo, _ := newTestTemplateService()
	created, err := service.Create(context.Background(), rentTemplate())
	require.NoError(t, err)
	created.Amount = money.Cents(130000)

	// when
	updated, err := service.Update(context.Background(), created, ScopeAll, time.Time{})

	// then
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	stored, _, err := repo.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, money.Cents(130000), stored.Amount)
	all, err := repo.GetAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestTemplateService_UpdateFutureSplitsTemplate(t *testing.T) {
	// given
	service, repo, ledgerRepo := newTestTemplateService()
	created, err := service.Create(context.Background(), rentTemplate())
	require.NoError(t, err)
	effectiveFrom := datemath.Date(2024, time.June, 1)
	// a skip after the split date should follow the successor
	skipDate := datemath.Date(2024, time.July, 1)
	require.NoError(t, ledgerRepo.AddSkip(context.Background(), skipDate, created.ID))

	edit := created
	edit.Amount = money.Cents(130000)

	// when
	successor, err := service.Update(context.Background(), edit, ScopeFuture, effectiveFrom)

	// then
	require.NoError(t, err)
	assert.NotEqual(t, created.ID, successor.ID)
	assert.Equal(t, effectiveFrom, successor.StartDate)
	assert.Equal(t, money.Cents(130000), successor.Amount)

	original, found, err := repo.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.True(t, found)
	require.NotNil(t, original.EndDate)
	assert.Equal(t, datemath.Date(2024, time.May, 31), *original.EndDate)
	assert.Equal(t, money.Cents(120000), original.Amount)

	assert.True(t, ledgerRepo.Ledger().Skips().Contains(skipDate, successor.ID))
	assert.False(t, ledgerRepo.Ledger().Skips().Contains(skipDate, created.ID))
}

func TestTemplateService_UpdateFutureRequiresEffectiveDate(t *testing.T) {
	// given
	service, _, _ := newTestTemplateService()
	created, err := service.Create(context.Background(), rentTemplate())
	require.NoError(t, err)

	// when
	_, err = service.Update(context.Background(), created, ScopeFuture, time.Time{})

	// then
	assert.ErrorIs(t, err, ErrInvalidTemplate)
}

func TestTemplateService_UpdateFutureRejectsEffectiveDateAtOrBeforeStart(t *testing.T) {
	// given
	service, repo, _ := newTestTemplateService()
	created, err := service.Create(context.Background(), rentTemplate())
	require.NoError(t, err)

	for _, effectiveFrom := range []time.Time{
		created.StartDate,
		created.StartDate.AddDate(0, 0, -1),
	} {
		// when
		_, err = service.Update(context.Background(), created, ScopeFuture, effectiveFrom)

		// then
		assert.ErrorIs(t, err, ErrInvalidTemplate)
	}

	// the original must not have been truncated
	stored, found, err := repo.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Nil(t, stored.EndDate)
}

func TestTemplateService_UpdateRejectsDebtTemplates(t *testing.T) {
	// given
	service, repo, _ := newTestTemplateService()
	derived := rentTemplate()
	derived.ID = "tpl-debt"
	derived.DebtID = "debt-1"
	require.NoError(t, repo.Store(context.Background(), derived))
	edit := derived
	edit.DebtID = ""

	// when
	_, err := service.Update(context.Background(), edit, ScopeAll, time.Time{})

	// then
	assert.ErrorIs(t, err, ErrInvalidTemplate)
}

func TestTemplateService_DeleteKeepsHistoryAndEditedInstances(t *testing.T) {
	// given
	service, _, ledgerRepo := newTestTemplateService()
	created, err := service.Create(context.Background(), rentTemplate())
	require.NoError(t, err)

	past := datemath.Date(2024, time.February, 1)
	future := datemath.Date(2024, time.April, 1)
	edited := datemath.Date(2024, time.May, 1)
	led := ledgerRepo.Ledger()
	require.NoError(t, led.Add(past, ledger.Instance{ID: 1, Amount: 120000, EntryType: ledger.EntryExpense, RecurringID: created.ID}))
	require.NoError(t, led.Add(future, ledger.Instance{ID: 2, Amount: 120000, EntryType: ledger.EntryExpense, RecurringID: created.ID}))
	require.NoError(t, led.Add(edited, ledger.Instance{ID: 3, Amount: 99999, EntryType: ledger.EntryExpense, RecurringID: created.ID, Modified: true}))
	led.Skips().Set(future, created.ID)

	// when
	deleted, err := service.Delete(context.Background(), created.ID)

	// then
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Len(t, led.On(past), 1)
	assert.Empty(t, led.On(future))
	assert.Len(t, led.On(edited), 1)
	assert.False(t, led.Skips().Contains(future, created.ID))
}

func TestTemplateService_DeleteMissingTemplate(t *testing.T) {
	// given
	service, _, _ := newTestTemplateService()

	// when
	deleted, err := service.Delete(context.Background(), "nope")

	// then
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestTemplateService_EnsureMonthGeneratesAndPersists(t *testing.T) {
	// given
	service, _, ledgerRepo := newTestTemplateService()
	_, err := service.Create(context.Background(), rentTemplate())
	require.NoError(t, err)

	// when
	led, err := service.EnsureMonth(context.Background(), 2024, time.April)

	// then
	require.NoError(t, err)
	day := led.On(datemath.Date(2024, time.April, 1))
	require.Len(t, day, 1)
	assert.Equal(t, money.Cents(120000), day[0].Amount)

	// the generated month is persisted, re-running is stable
	stored := ledgerRepo.Ledger().On(datemath.Date(2024, time.April, 1))
	require.Len(t, stored, 1)
	_, err = service.EnsureMonth(context.Background(), 2024, time.April)
	require.NoError(t, err)
	assert.Len(t, ledgerRepo.Ledger().On(datemath.Date(2024, time.April, 1)), 1)
}
