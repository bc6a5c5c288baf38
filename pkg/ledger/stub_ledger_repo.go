package ledger

import (
	"context"
	"time"

	"github.com/cashfolio/cashfolio/pkg/datemath"
)

// StubLedgerRepo keeps the register in memory for tests.
type StubLedgerRepo struct {
	nextID int64
	led    *Ledger
}

func NewStubLedgerRepo() *StubLedgerRepo {
	return &StubLedgerRepo{led: New()}
}

// Ledger exposes the in-memory register so tests can seed and inspect it.
func (s *StubLedgerRepo) Ledger() *Ledger {
	return s.led
}

func (s *StubLedgerRepo) LoadAll(ctx context.Context) (*Ledger, error) {
	return s.led.Clone(), nil
}

func (s *StubLedgerRepo) ReplaceMonth(ctx context.Context, year int, month time.Month, led *Ledger) error {
	s.led.Filter(func(date time.Time, _ Instance) bool {
		return !datemath.SameMonth(date, year, month)
	})
	var addErr error
	led.Each(func(date time.Time, _ int, instance Instance) {
		if addErr != nil || !datemath.SameMonth(date, year, month) {
			return
		}
		if instance.ID == 0 {
			s.nextID++
			instance.ID = s.nextID
		}
		addErr = s.led.Add(date, instance)
	})
	return addErr
}

func (s *StubLedgerRepo) InstancesOn(ctx context.Context, date time.Time) ([]Instance, error) {
	return append([]Instance(nil), s.led.On(date)...), nil
}

func (s *StubLedgerRepo) InsertInstance(ctx context.Context, date time.Time, instance Instance) (int64, error) {
	s.nextID++
	instance.ID = s.nextID
	if err := s.led.Add(date, instance); err != nil {
		return 0, err
	}
	return instance.ID, nil
}

func (s *StubLedgerRepo) UpdateInstance(ctx context.Context, instance Instance) (bool, error) {
	updated := false
	s.led.Each(func(date time.Time, idx int, existing Instance) {
		if updated || existing.ID != instance.ID {
			return
		}
		_ = s.led.Update(date, idx, instance)
		updated = true
	})
	return updated, nil
}

func (s *StubLedgerRepo) DeleteInstance(ctx context.Context, id int64) (bool, error) {
	deleted := false
	s.led.Filter(func(_ time.Time, instance Instance) bool {
		if instance.ID == id {
			deleted = true
			return false
		}
		return true
	})
	return deleted, nil
}

func (s *StubLedgerRepo) AddSkip(ctx context.Context, date time.Time, recurringID string) error {
	s.led.Skips().Set(date, recurringID)
	return nil
}

func (s *StubLedgerRepo) RemoveSkip(ctx context.Context, date time.Time, recurringID string) (bool, error) {
	if !s.led.Skips().Contains(date, recurringID) {
		return false, nil
	}
	s.led.Skips().Delete(date, recurringID)
	return true, nil
}

func (s *StubLedgerRepo) MigrateSkips(ctx context.Context, fromID, toID string, cutoff time.Time) error {
	s.led.Skips().Migrate(fromID, toID, cutoff)
	return nil
}

func (s *StubLedgerRepo) DeleteSkips(ctx context.Context, recurringID string, cutoff time.Time) error {
	s.led.Skips().DropTemplate(recurringID, cutoff)
	return nil
}

func (s *StubLedgerRepo) DeleteUnmodifiedInstances(ctx context.Context, recurringID string, cutoff time.Time) error {
	s.led.Filter(func(date time.Time, instance Instance) bool {
		return instance.RecurringID != recurringID || instance.Modified || date.Before(cutoff)
	})
	return nil
}

func (s *StubLedgerRepo) DeleteSnowballInstances(ctx context.Context, debtID string, cutoff time.Time) error {
	s.led.Filter(func(date time.Time, instance Instance) bool {
		return instance.SnowballDebtID != debtID || date.Before(cutoff)
	})
	return nil
}
