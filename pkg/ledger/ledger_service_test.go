package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/cashfolio/cashfolio/internal/event_bus"
	"github.com/cashfolio/cashfolio/pkg/datemath"
	"github.com/cashfolio/cashfolio/pkg/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedgerService() (*LedgerServiceImpl, *StubLedgerRepo) {
	repo := NewStubLedgerRepo()
	return NewLedgerService(repo, event_bus.NewEventBus()), repo
}

func TestLedgerService_AddEntryStoresInstance(t *testing.T) {
	// given
	service, repo := newTestLedgerService()
	date := datemath.Date(2024, time.March, 5)

	// when
	created, err := service.AddEntry(context.Background(), date, Instance{
		Amount:      2500,
		EntryType:   EntryExpense,
		Description: "Coffee beans",
	})

	// then
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	stored := repo.Ledger().On(date)
	require.Len(t, stored, 1)
	assert.Equal(t, "Coffee beans", stored[0].Description)
}

func TestLedgerService_AddEntryRejectsSecondBalance(t *testing.T) {
	// given
	service, _ := newTestLedgerService()
	date := datemath.Date(2024, time.March, 5)
	_, err := service.AddEntry(context.Background(), date, Instance{Amount: 100000, EntryType: EntryBalance})
	require.NoError(t, err)

	// when
	_, err = service.AddEntry(context.Background(), date, Instance{Amount: 200000, EntryType: EntryBalance})

	// then
	assert.ErrorIs(t, err, ErrConstraintViolation)
}

func TestLedgerService_AddEntryRejectsBadInput(t *testing.T) {
	// given
	service, _ := newTestLedgerService()
	date := datemath.Date(2024, time.March, 5)

	// when / then
	_, err := service.AddEntry(context.Background(), date, Instance{Amount: 100, EntryType: "transfer"})
	assert.ErrorIs(t, err, ErrConstraintViolation)
	_, err = service.AddEntry(context.Background(), date, Instance{Amount: -100, EntryType: EntryExpense})
	assert.ErrorIs(t, err, ErrConstraintViolation)
}

func TestLedgerService_UpdateEntryMarksGeneratedAsModified(t *testing.T) {
	// given
	service, repo := newTestLedgerService()
	date := datemath.Date(2024, time.March, 5)
	id, err := repo.InsertInstance(context.Background(), date, Instance{
		Amount:      120000,
		EntryType:   EntryExpense,
		RecurringID: "tpl-rent",
	})
	require.NoError(t, err)

	// when
	updated, err := service.UpdateEntry(context.Background(), Instance{
		ID:          id,
		Amount:      119000,
		EntryType:   EntryExpense,
		RecurringID: "tpl-rent",
	})

	// then
	require.NoError(t, err)
	assert.True(t, updated)
	stored := repo.Ledger().On(date)
	require.Len(t, stored, 1)
	assert.True(t, stored[0].Modified)
	assert.Equal(t, money.Cents(119000), stored[0].Amount)
}

func TestLedgerService_UpdateEntryLeavesOneOffsUnmarked(t *testing.T) {
	// given
	service, repo := newTestLedgerService()
	date := datemath.Date(2024, time.March, 5)
	id, err := repo.InsertInstance(context.Background(), date, Instance{Amount: 2500, EntryType: EntryExpense})
	require.NoError(t, err)

	// when
	updated, err := service.UpdateEntry(context.Background(), Instance{ID: id, Amount: 2600, EntryType: EntryExpense})

	// then
	require.NoError(t, err)
	assert.True(t, updated)
	assert.False(t, repo.Ledger().On(date)[0].Modified)
}

func TestLedgerService_DeleteEntry(t *testing.T) {
	// given
	service, repo := newTestLedgerService()
	date := datemath.Date(2024, time.March, 5)
	id, err := repo.InsertInstance(context.Background(), date, Instance{Amount: 2500, EntryType: EntryExpense})
	require.NoError(t, err)

	// when
	deleted, err := service.DeleteEntry(context.Background(), date, id)

	// then
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Empty(t, repo.Ledger().On(date))

	// deleting again reports false without error
	deleted, err = service.DeleteEntry(context.Background(), date, id)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestLedgerService_ToggleSkipFlips(t *testing.T) {
	// given
	service, repo := newTestLedgerService()
	date := datemath.Date(2024, time.March, 5)

	// when / then
	skipped, err := service.ToggleSkip(context.Background(), date, "tpl-rent")
	require.NoError(t, err)
	assert.True(t, skipped)
	assert.True(t, repo.Ledger().Skips().Contains(date, "tpl-rent"))

	skipped, err = service.ToggleSkip(context.Background(), date, "tpl-rent")
	require.NoError(t, err)
	assert.False(t, skipped)
	assert.False(t, repo.Ledger().Skips().Contains(date, "tpl-rent"))
}

func TestLedgerService_ToggleSkipRequiresRecurringID(t *testing.T) {
	// given
	service, _ := newTestLedgerService()

	// when
	_, err := service.ToggleSkip(context.Background(), datemath.Date(2024, time.March, 5), "")

	// then
	assert.ErrorIs(t, err, ErrConstraintViolation)
}
