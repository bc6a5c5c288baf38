package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/cashfolio/cashfolio/internal/event_bus"
	"github.com/cashfolio/cashfolio/pkg/datemath"
	log "github.com/sirupsen/logrus"
)

type LedgerService interface {
	// AddEntry stores a one-off transaction after checking the register
	// constraints for its date.
	AddEntry(ctx context.Context, date time.Time, instance Instance) (Instance, error)
	// UpdateEntry rewrites a stored instance. Editing a generated occurrence
	// marks it modified so later re-expansions leave it alone.
	UpdateEntry(ctx context.Context, instance Instance) (bool, error)
	DeleteEntry(ctx context.Context, date time.Time, id int64) (bool, error)
	// ToggleSkip flips the skip flag of a generated occurrence and returns
	// the new state.
	ToggleSkip(ctx context.Context, date time.Time, recurringID string) (bool, error)
}

type LedgerServiceImpl struct {
	repo LedgerRepo
	bus  *event_bus.EventBus
}

func NewLedgerService(repo LedgerRepo, bus *event_bus.EventBus) *LedgerServiceImpl {
	return &LedgerServiceImpl{repo: repo, bus: bus}
}

func (s *LedgerServiceImpl) AddEntry(ctx context.Context, date time.Time, instance Instance) (Instance, error) {
	switch instance.EntryType {
	case EntryIncome, EntryExpense, EntryBalance:
	default:
		return Instance{}, fmt.Errorf("%w: unknown entry type %q", ErrConstraintViolation, instance.EntryType)
	}
	if instance.Amount < 0 {
		return Instance{}, fmt.Errorf("%w: amount must be non-negative", ErrConstraintViolation)
	}

	stored, err := s.repo.InstancesOn(ctx, date)
	if err != nil {
		return Instance{}, err
	}
	day := New()
	for _, existing := range stored {
		if err := day.Add(date, existing); err != nil {
			return Instance{}, fmt.Errorf("stored register is inconsistent: %w", err)
		}
	}
	if err := day.Add(date, instance); err != nil {
		return Instance{}, err
	}

	id, err := s.repo.InsertInstance(ctx, date, instance)
	if err != nil {
		return Instance{}, err
	}
	instance.ID = id
	s.publishChanged(ctx, date)
	return instance, nil
}

func (s *LedgerServiceImpl) UpdateEntry(ctx context.Context, instance Instance) (bool, error) {
	if instance.RecurringID != "" || instance.SnowballDebtID != "" {
		instance.Modified = true
	}
	updated, err := s.repo.UpdateInstance(ctx, instance)
	if err != nil {
		return false, err
	}
	if !updated {
		log.Warnf("transaction %d not updated, probably because it does not exist", instance.ID)
		return false, nil
	}
	s.publishChanged(ctx, time.Time{})
	return true, nil
}

func (s *LedgerServiceImpl) DeleteEntry(ctx context.Context, date time.Time, id int64) (bool, error) {
	deleted, err := s.repo.DeleteInstance(ctx, id)
	if err != nil {
		return false, err
	}
	if !deleted {
		log.Warnf("transaction %d not deleted, probably because it does not exist", id)
		return false, nil
	}
	s.publishChanged(ctx, date)
	return true, nil
}

func (s *LedgerServiceImpl) ToggleSkip(ctx context.Context, date time.Time, recurringID string) (bool, error) {
	if recurringID == "" {
		return false, fmt.Errorf("%w: only generated occurrences can be skipped", ErrConstraintViolation)
	}
	removed, err := s.repo.RemoveSkip(ctx, date, recurringID)
	if err != nil {
		return false, err
	}
	if removed {
		s.publishChanged(ctx, date)
		return false, nil
	}
	if err := s.repo.AddSkip(ctx, date, recurringID); err != nil {
		return false, err
	}
	s.publishChanged(ctx, date)
	return true, nil
}

func (s *LedgerServiceImpl) publishChanged(ctx context.Context, date time.Time) {
	payload := event_bus.LedgerChangedPayload{}
	if !date.IsZero() {
		payload.Months = []time.Time{datemath.Date(date.Year(), date.Month(), 1)}
	}
	if err := s.bus.Publish(event_bus.NewEvent(ctx, event_bus.LedgerChanged, payload)); err != nil {
		log.Errorf("failed to publish ledger change: %v", err)
	}
}
