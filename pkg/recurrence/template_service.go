package recurrence

import (
	"context"
	"fmt"
	"time"

	"github.com/cashfolio/cashfolio/internal/event_bus"
	"github.com/cashfolio/cashfolio/internal/utils"
	"github.com/cashfolio/cashfolio/pkg/datemath"
	"github.com/cashfolio/cashfolio/pkg/ledger"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// EditScope selects how far a template edit reaches. Editing a single
// occurrence is not a template edit at all; it is an instance edit handled by
// the ledger service.
type EditScope string

const (
	// ScopeAll rewrites the template everywhere, past months included on
	// their next regeneration.
	ScopeAll EditScope = "all"
	// ScopeFuture splits the template: the original ends the day before the
	// effective date and a successor carries the changes from there on.
	ScopeFuture EditScope = "future"
)

type TemplateService interface {
	Create(ctx context.Context, template Template) (Template, error)
	GetAll(ctx context.Context) ([]Template, error)
	Get(ctx context.Context, id string) (Template, bool, error)
	// Update applies a template edit with the given scope. For ScopeFuture
	// the returned template is the newly created successor.
	Update(ctx context.Context, template Template, scope EditScope, effectiveFrom time.Time) (Template, error)
	// Delete removes the template together with its generated unmodified
	// instances and skip flags from today forward. Past months and
	// user-edited occurrences stay untouched.
	Delete(ctx context.Context, id string) (bool, error)
	// EnsureMonth reconciles one ledger month against the current templates
	// and persists the result.
	EnsureMonth(ctx context.Context, year int, month time.Month) (*ledger.Ledger, error)
}

type TemplateServiceImpl struct {
	repo       TemplateRepo
	ledgerRepo ledger.LedgerRepo
	bus        *event_bus.EventBus
	clock      utils.Clock
}

func NewTemplateService(repo TemplateRepo, ledgerRepo ledger.LedgerRepo, bus *event_bus.EventBus, clock utils.Clock) *TemplateServiceImpl {
	return &TemplateServiceImpl{repo: repo, ledgerRepo: ledgerRepo, bus: bus, clock: clock}
}

func (s *TemplateServiceImpl) Create(ctx context.Context, template Template) (Template, error) {
	if template.ID == "" {
		template.ID = uuid.NewString()
	}
	if template.DebtID != "" {
		return Template{}, fmt.Errorf("%w: debt payment templates are derived from their debt", ErrInvalidTemplate)
	}
	if err := template.Validate(); err != nil {
		return Template{}, err
	}
	if err := s.repo.Store(ctx, template); err != nil {
		return Template{}, err
	}
	s.publishChanged(ctx, template.ID)
	return template, nil
}

func (s *TemplateServiceImpl) GetAll(ctx context.Context) ([]Template, error) {
	return s.repo.GetAll(ctx)
}

func (s *TemplateServiceImpl) Get(ctx context.Context, id string) (Template, bool, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *TemplateServiceImpl) Update(ctx context.Context, template Template, scope EditScope, effectiveFrom time.Time) (Template, error) {
	if err := template.Validate(); err != nil {
		return Template{}, err
	}
	existing, found, err := s.repo.GetByID(ctx, template.ID)
	if err != nil {
		return Template{}, err
	}
	if !found {
		return Template{}, fmt.Errorf("template %s not found", template.ID)
	}
	if existing.DebtID != "" {
		return Template{}, fmt.Errorf("%w: debt payment templates are derived from their debt", ErrInvalidTemplate)
	}

	switch scope {
	case ScopeAll:
		updated, err := s.repo.Update(ctx, template)
		if err != nil {
			return Template{}, err
		}
		if !updated {
			return Template{}, fmt.Errorf("template %s not updated", template.ID)
		}
		s.publishChanged(ctx, template.ID)
		return template, nil

	case ScopeFuture:
		if effectiveFrom.IsZero() {
			return Template{}, fmt.Errorf("%w: future-scoped edit needs an effective date", ErrInvalidTemplate)
		}
		if !effectiveFrom.After(existing.StartDate) {
			return Template{}, fmt.Errorf("%w: effective date must be after the template start", ErrInvalidTemplate)
		}
		// End the original the day before the split and start a successor
		// carrying the changes.
		lastDay := effectiveFrom.AddDate(0, 0, -1)
		existing.EndDate = &lastDay
		if updated, err := s.repo.Update(ctx, existing); err != nil {
			return Template{}, err
		} else if !updated {
			return Template{}, fmt.Errorf("template %s not updated", existing.ID)
		}

		successor := template
		successor.ID = uuid.NewString()
		successor.StartDate = effectiveFrom
		if err := s.repo.Store(ctx, successor); err != nil {
			return Template{}, err
		}
		if err := s.ledgerRepo.MigrateSkips(ctx, existing.ID, successor.ID, effectiveFrom); err != nil {
			return Template{}, err
		}
		s.publishChanged(ctx, existing.ID, successor.ID)
		return successor, nil

	default:
		return Template{}, fmt.Errorf("%w: unknown edit scope %q", ErrInvalidTemplate, scope)
	}
}

func (s *TemplateServiceImpl) Delete(ctx context.Context, id string) (bool, error) {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if !deleted {
		log.Warnf("template %s not deleted, probably because it does not exist", id)
		return false, nil
	}

	// Generated occurrences disappear from today forward; history and
	// user-edited instances stay.
	now := s.clock.Now()
	today := datemath.Date(now.Year(), now.Month(), now.Day())
	if err := s.ledgerRepo.DeleteUnmodifiedInstances(ctx, id, today); err != nil {
		return false, err
	}
	if err := s.ledgerRepo.DeleteSkips(ctx, id, today); err != nil {
		return false, err
	}
	s.publishChanged(ctx, id)
	return true, nil
}

func (s *TemplateServiceImpl) EnsureMonth(ctx context.Context, year int, month time.Month) (*ledger.Ledger, error) {
	led, err := s.ledgerRepo.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	templates, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	for _, expandErr := range ReconcileMonth(led, templates, year, month) {
		log.Warnf("skipping template during %d-%02d generation: %v", year, int(month), expandErr)
	}

	if err := s.ledgerRepo.ReplaceMonth(ctx, year, month, led); err != nil {
		return nil, err
	}
	payload := event_bus.LedgerChangedPayload{Months: []time.Time{datemath.Date(year, month, 1)}}
	if err := s.bus.Publish(event_bus.NewEvent(ctx, event_bus.LedgerChanged, payload)); err != nil {
		log.Errorf("failed to publish ledger change: %v", err)
	}
	return led, nil
}

func (s *TemplateServiceImpl) publishChanged(ctx context.Context, ids ...string) {
	payload := event_bus.TemplatesChangedPayload{TemplateIDs: ids}
	if err := s.bus.Publish(event_bus.NewEvent(ctx, event_bus.TemplatesChanged, payload)); err != nil {
		log.Errorf("failed to publish template change: %v", err)
	}
}
