package debt

import (
	"context"
	"fmt"
	"time"

	"github.com/cashfolio/cashfolio/internal/event_bus"
	"github.com/cashfolio/cashfolio/internal/utils"
	"github.com/cashfolio/cashfolio/pkg/datemath"
	"github.com/cashfolio/cashfolio/pkg/ledger"
	"github.com/cashfolio/cashfolio/pkg/recurrence"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type DebtService interface {
	CreateDebt(ctx context.Context, d Debt) (Debt, error)
	GetDebts(ctx context.Context) ([]Debt, error)
	UpdateDebt(ctx context.Context, d Debt) (Debt, error)
	DeleteDebt(ctx context.Context, id string) (bool, error)
	AddInfusion(ctx context.Context, infusion CashInfusion) (CashInfusion, error)
	GetInfusions(ctx context.Context) ([]CashInfusion, error)
	DeleteInfusion(ctx context.Context, id string) (bool, error)
	GetSettings(ctx context.Context) (Settings, error)
	UpdateSettings(ctx context.Context, settings Settings) error
	// ProjectPlan simulates the payoff schedule from the current month
	// without touching the ledger.
	ProjectPlan(ctx context.Context, includeExtra bool) (Projection, error)
	// RefreshPlan re-runs the projection and writes it into every ledger
	// month from the current one through the end of stored activity.
	RefreshPlan(ctx context.Context) error
}

type DebtServiceImpl struct {
	repo         DebtRepo
	templateRepo recurrence.TemplateRepo
	ledgerRepo   ledger.LedgerRepo
	bus          *event_bus.EventBus
	clock        utils.Clock
}

func NewDebtService(repo DebtRepo, templateRepo recurrence.TemplateRepo, ledgerRepo ledger.LedgerRepo, bus *event_bus.EventBus, clock utils.Clock) *DebtServiceImpl {
	return &DebtServiceImpl{repo: repo, templateRepo: templateRepo, ledgerRepo: ledgerRepo, bus: bus, clock: clock}
}

func (s *DebtServiceImpl) CreateDebt(ctx context.Context, d Debt) (Debt, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.TemplateID == "" {
		d.TemplateID = uuid.NewString()
	}
	if err := s.validate(d); err != nil {
		return Debt{}, err
	}
	if err := s.repo.StoreDebt(ctx, d); err != nil {
		return Debt{}, err
	}
	// The minimum payment shows up on the calendar through a derived
	// template kept in lockstep with the debt.
	if err := s.templateRepo.Store(ctx, d.MinimumTemplate()); err != nil {
		return Debt{}, err
	}
	s.publishTemplatesChanged(ctx, d.TemplateID)
	return d, nil
}

func (s *DebtServiceImpl) GetDebts(ctx context.Context) ([]Debt, error) {
	return s.repo.GetDebts(ctx)
}

func (s *DebtServiceImpl) UpdateDebt(ctx context.Context, d Debt) (Debt, error) {
	if err := s.validate(d); err != nil {
		return Debt{}, err
	}
	existing, found, err := s.repo.GetDebt(ctx, d.ID)
	if err != nil {
		return Debt{}, err
	}
	if !found {
		return Debt{}, fmt.Errorf("debt %s not found", d.ID)
	}
	// The template id is stable across edits so generated instances keep
	// their link.
	d.TemplateID = existing.TemplateID

	if updated, err := s.repo.UpdateDebt(ctx, d); err != nil {
		return Debt{}, err
	} else if !updated {
		return Debt{}, fmt.Errorf("debt %s not updated", d.ID)
	}
	if updated, err := s.templateRepo.Update(ctx, d.MinimumTemplate()); err != nil {
		return Debt{}, err
	} else if !updated {
		// The derived template can be missing after a restored backup.
		if err := s.templateRepo.Store(ctx, d.MinimumTemplate()); err != nil {
			return Debt{}, err
		}
	}
	s.publishTemplatesChanged(ctx, d.TemplateID)
	return d, nil
}

func (s *DebtServiceImpl) DeleteDebt(ctx context.Context, id string) (bool, error) {
	existing, found, err := s.repo.GetDebt(ctx, id)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	deleted, err := s.repo.DeleteDebt(ctx, id)
	if err != nil {
		return false, err
	}
	if !deleted {
		return false, nil
	}

	if _, err := s.templateRepo.Delete(ctx, existing.TemplateID); err != nil {
		return false, err
	}
	today := s.today()
	if err := s.ledgerRepo.DeleteUnmodifiedInstances(ctx, existing.TemplateID, today); err != nil {
		return false, err
	}
	if err := s.ledgerRepo.DeleteSkips(ctx, existing.TemplateID, today); err != nil {
		return false, err
	}
	if err := s.ledgerRepo.DeleteSnowballInstances(ctx, id, today); err != nil {
		return false, err
	}
	s.publishTemplatesChanged(ctx, existing.TemplateID)
	return true, nil
}

func (s *DebtServiceImpl) AddInfusion(ctx context.Context, infusion CashInfusion) (CashInfusion, error) {
	if infusion.ID == "" {
		infusion.ID = uuid.NewString()
	}
	if infusion.Amount < 0 {
		return CashInfusion{}, fmt.Errorf("infusion amount must be non-negative")
	}
	if infusion.Date.IsZero() {
		return CashInfusion{}, fmt.Errorf("infusion date is required")
	}
	if err := s.repo.StoreInfusion(ctx, infusion); err != nil {
		return CashInfusion{}, err
	}
	return infusion, nil
}

func (s *DebtServiceImpl) GetInfusions(ctx context.Context) ([]CashInfusion, error) {
	return s.repo.GetInfusions(ctx)
}

func (s *DebtServiceImpl) DeleteInfusion(ctx context.Context, id string) (bool, error) {
	return s.repo.DeleteInfusion(ctx, id)
}

func (s *DebtServiceImpl) GetSettings(ctx context.Context) (Settings, error) {
	return s.repo.GetSettings(ctx)
}

func (s *DebtServiceImpl) UpdateSettings(ctx context.Context, settings Settings) error {
	if settings.BaseExtraPayment < 0 {
		return fmt.Errorf("base extra payment must be non-negative")
	}
	return s.repo.UpdateSettings(ctx, settings)
}

func (s *DebtServiceImpl) ProjectPlan(ctx context.Context, includeExtra bool) (Projection, error) {
	debts, settings, infusions, err := s.loadPlanInputs(ctx)
	if err != nil {
		return Projection{}, err
	}
	now := s.clock.Now()
	return Project(debts, settings, infusions, now.Year(), now.Month(), includeExtra), nil
}

func (s *DebtServiceImpl) RefreshPlan(ctx context.Context) error {
	debts, settings, infusions, err := s.loadPlanInputs(ctx)
	if err != nil {
		return err
	}
	if len(debts) == 0 {
		return nil
	}

	now := s.clock.Now()
	projection := Project(debts, settings, infusions, now.Year(), now.Month(), true)

	led, err := s.ledgerRepo.LoadAll(ctx)
	if err != nil {
		return err
	}

	// Past months are immutable history; the sync starts at the current
	// month and runs through the last month with stored activity.
	last := datemath.Date(now.Year(), now.Month(), 1)
	if _, latest, ok := led.Bounds(); ok && latest.After(last) {
		last = datemath.Date(latest.Year(), latest.Month(), 1)
	}

	var synced []time.Time
	for year, month := now.Year(), now.Month(); ; {
		if err := SyncMonth(led, debts, projection, year, month); err != nil {
			return err
		}
		if err := s.ledgerRepo.ReplaceMonth(ctx, year, month, led); err != nil {
			return err
		}
		synced = append(synced, datemath.Date(year, month, 1))
		if datemath.SameMonth(last, year, month) {
			break
		}
		year, month = datemath.AddMonths(year, month, 1)
	}

	target := ""
	if mp, ok := projection.MonthFor(YearMonth{now.Year(), now.Month()}); ok {
		target = mp.TargetDebtID
	}
	event := event_bus.NewEvent(ctx, event_bus.DebtPlanRefreshed, event_bus.DebtPlanRefreshedPayload{
		From:         synced[0],
		TargetDebtID: target,
	})
	if err := s.bus.Publish(event); err != nil {
		log.Errorf("failed to publish plan refresh: %v", err)
	}
	changed := event_bus.NewEvent(ctx, event_bus.LedgerChanged, event_bus.LedgerChangedPayload{Months: synced})
	if err := s.bus.Publish(changed); err != nil {
		log.Errorf("failed to publish ledger change: %v", err)
	}
	return nil
}

func (s *DebtServiceImpl) loadPlanInputs(ctx context.Context) ([]Debt, Settings, []CashInfusion, error) {
	debts, err := s.repo.GetDebts(ctx)
	if err != nil {
		return nil, Settings{}, nil, err
	}
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return nil, Settings{}, nil, err
	}
	infusions, err := s.repo.GetInfusions(ctx)
	if err != nil {
		return nil, Settings{}, nil, err
	}
	return debts, settings, infusions, nil
}

func (s *DebtServiceImpl) validate(d Debt) error {
	if d.Name == "" {
		return fmt.Errorf("debt name is required")
	}
	if d.Balance < 0 || d.MinPayment < 0 {
		return fmt.Errorf("debt balance and minimum payment must be non-negative")
	}
	if d.InterestRate < 0 {
		return fmt.Errorf("interest rate must be non-negative")
	}
	return d.MinimumTemplate().Validate()
}

func (s *DebtServiceImpl) today() time.Time {
	now := s.clock.Now()
	return datemath.Date(now.Year(), now.Month(), now.Day())
}

func (s *DebtServiceImpl) publishTemplatesChanged(ctx context.Context, templateID string) {
	payload := event_bus.TemplatesChangedPayload{TemplateIDs: []string{templateID}}
	if err := s.bus.Publish(event_bus.NewEvent(ctx, event_bus.TemplatesChanged, payload)); err != nil {
		log.Errorf("failed to publish template change: %v", err)
	}
}
