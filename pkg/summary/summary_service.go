package summary

import (
	"context"
	"sync"
	"time"

	"github.com/cashfolio/cashfolio/internal/event_bus"
	"github.com/cashfolio/cashfolio/internal/utils"
	"github.com/cashfolio/cashfolio/pkg/ledger"
	"github.com/cashfolio/cashfolio/pkg/money"
)

// MonthGenerator produces a ledger whose target month is reconciled against
// the current recurring templates.
type MonthGenerator interface {
	EnsureMonth(ctx context.Context, year int, month time.Month) (*ledger.Ledger, error)
}

type SummaryService interface {
	MonthSummary(ctx context.Context, year int, month time.Month) (MonthlySummary, error)
	MonthRunningBalances(ctx context.Context, year int, month time.Month) ([]money.Cents, error)
	// MonthRegister returns the reconciled ledger for a calendar month view.
	MonthRegister(ctx context.Context, year int, month time.Month) (*ledger.Ledger, error)
}

// SummaryServiceImpl memoizes the monthly balance cache between requests and
// drops it whenever the register changes.
type SummaryServiceImpl struct {
	generator MonthGenerator
	clock     utils.Clock

	mu    sync.Mutex
	cache *BalanceCache
}

func NewSummaryService(generator MonthGenerator, bus *event_bus.EventBus, clock utils.Clock) *SummaryServiceImpl {
	s := &SummaryServiceImpl{generator: generator, clock: clock}
	bus.Subscribe(event_bus.LedgerChanged, func(event_bus.Event) error {
		s.invalidate()
		return nil
	})
	bus.Subscribe(event_bus.TemplatesChanged, func(event_bus.Event) error {
		s.invalidate()
		return nil
	})
	return s
}

func (s *SummaryServiceImpl) MonthSummary(ctx context.Context, year int, month time.Month) (MonthlySummary, error) {
	led, err := s.generator.EnsureMonth(ctx, year, month)
	if err != nil {
		return MonthlySummary{}, err
	}
	cache := s.balances(led)
	return ComputeMonthlySummary(led, cache, year, month), nil
}

func (s *SummaryServiceImpl) MonthRunningBalances(ctx context.Context, year int, month time.Month) ([]money.Cents, error) {
	led, err := s.generator.EnsureMonth(ctx, year, month)
	if err != nil {
		return nil, err
	}
	cache := s.balances(led)
	return RunningBalances(led, cache, year, month), nil
}

func (s *SummaryServiceImpl) MonthRegister(ctx context.Context, year int, month time.Month) (*ledger.Ledger, error) {
	return s.generator.EnsureMonth(ctx, year, month)
}

// balances returns the memoized balance cache, recomputing it when a ledger
// change dropped it. EnsureMonth publishes a change event while the summary
// request is in flight, so the recompute always runs against the ledger just
// loaded.
func (s *SummaryServiceImpl) balances(led *ledger.Ledger) *BalanceCache {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache == nil {
		s.cache = RecomputeMonthlyBalances(led, s.clock.Now())
	}
	return s.cache
}

func (s *SummaryServiceImpl) invalidate() {
	s.mu.Lock()
	s.cache = nil
	s.mu.Unlock()
}
