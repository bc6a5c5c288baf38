package app

import (
	"database/sql"

	"github.com/cashfolio/cashfolio/internal/config"
	"github.com/cashfolio/cashfolio/internal/event_bus"
	"github.com/cashfolio/cashfolio/internal/utils"
	"github.com/cashfolio/cashfolio/pkg/backup"
	"github.com/cashfolio/cashfolio/pkg/debt"
	"github.com/cashfolio/cashfolio/pkg/ledger"
	"github.com/cashfolio/cashfolio/pkg/recurrence"
	"github.com/cashfolio/cashfolio/pkg/summary"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	Bus   *event_bus.EventBus
	Clock utils.Clock

	LedgerRepo    ledger.LedgerRepo
	LedgerService *ledger.LedgerServiceImpl
	LedgerHandler *ledger.LedgerHandler

	TemplateRepo    recurrence.TemplateRepo
	TemplateService *recurrence.TemplateServiceImpl
	TemplateHandler *recurrence.TemplateHandler

	SummaryService *summary.SummaryServiceImpl
	SummaryHandler *summary.SummaryHandler

	DebtRepo    debt.DebtRepo
	DebtService *debt.DebtServiceImpl
	DebtHandler *debt.DebtHandler

	BackupService *backup.BackupServiceImpl
	CsvRenderer   *backup.CsvRendererImpl
	CloudClient   *backup.CloudClient
	BackupHandler *backup.BackupHandler
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(db *sql.DB, cfg config.Application) *Dependencies {
	deps := &Dependencies{}

	deps.Bus = event_bus.NewEventBus()
	deps.Clock = &utils.SystemClock{}

	deps.LedgerRepo = ledger.NewLedgerRepo(db)
	deps.LedgerService = ledger.NewLedgerService(deps.LedgerRepo, deps.Bus)
	deps.LedgerHandler = ledger.NewLedgerHandler(deps.LedgerService)

	deps.TemplateRepo = recurrence.NewTemplateRepo(db)
	deps.TemplateService = recurrence.NewTemplateService(deps.TemplateRepo, deps.LedgerRepo, deps.Bus, deps.Clock)
	deps.TemplateHandler = recurrence.NewTemplateHandler(deps.TemplateService)

	deps.SummaryService = summary.NewSummaryService(deps.TemplateService, deps.Bus, deps.Clock)
	deps.SummaryHandler = summary.NewSummaryHandler(deps.SummaryService)

	deps.DebtRepo = debt.NewDebtRepo(db)
	deps.DebtService = debt.NewDebtService(deps.DebtRepo, deps.TemplateRepo, deps.LedgerRepo, deps.Bus, deps.Clock)
	deps.DebtHandler = debt.NewDebtHandler(deps.DebtService)

	deps.BackupService = backup.NewBackupService(deps.TemplateRepo, deps.LedgerRepo, deps.DebtRepo)
	deps.CsvRenderer = backup.NewCsvRenderer()
	deps.CloudClient = backup.NewCloudClient(cfg.Sync)
	deps.BackupHandler = backup.NewBackupHandler(deps.BackupService, deps.CsvRenderer, deps.TemplateService, deps.CloudClient, cfg.Sync, deps.Clock)

	return deps
}
