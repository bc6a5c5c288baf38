package app

import (
	"context"
	"time"

	"github.com/cashfolio/cashfolio/internal/config"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Scheduler runs the nightly regeneration job: reconcile the current and next
// ledger month against the templates and, when auto-generation is on, refresh
// the snowball plan.
type Scheduler struct {
	cron    *cron.Cron
	enabled bool
}

func NewScheduler(cfg config.Scheduler, deps *Dependencies) (*Scheduler, error) {
	c := cron.New()
	if cfg.Enabled {
		if _, err := c.AddFunc(cfg.Spec, func() { regenerate(deps) }); err != nil {
			return nil, err
		}
	}
	return &Scheduler{cron: c, enabled: cfg.Enabled}, nil
}

func (s *Scheduler) Start() {
	if !s.enabled {
		return
	}
	s.cron.Start()
	log.Info("Scheduler started")
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func regenerate(deps *Dependencies) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	now := deps.Clock.Now()
	months := []time.Time{now, now.AddDate(0, 1, 0)}
	for _, m := range months {
		if _, err := deps.TemplateService.EnsureMonth(ctx, m.Year(), m.Month()); err != nil {
			log.Errorf("scheduled regeneration of %d-%02d failed: %v", m.Year(), m.Month(), err)
			return
		}
	}

	settings, err := deps.DebtService.GetSettings(ctx)
	if err != nil {
		log.Errorf("could not load snowball settings: %v", err)
		return
	}
	if settings.AutoGenerate {
		if err := deps.DebtService.RefreshPlan(ctx); err != nil {
			log.Errorf("scheduled plan refresh failed: %v", err)
		}
	}
}
