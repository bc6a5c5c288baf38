// Package backup exports and restores the full application state as a JSON
// snapshot, optionally sealed with a passphrase and pushed to a remote store.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cashfolio/cashfolio/pkg/datemath"
	"github.com/cashfolio/cashfolio/pkg/debt"
	"github.com/cashfolio/cashfolio/pkg/ledger"
	"github.com/cashfolio/cashfolio/pkg/recurrence"
	log "github.com/sirupsen/logrus"
)

// SnapshotVersion is bumped when the snapshot layout changes incompatibly.
const SnapshotVersion = 1

// Snapshot is the complete exported state.
type Snapshot struct {
	Version    int                   `json:"version"`
	ExportedAt time.Time             `json:"exportedAt"`
	Templates  []recurrence.Template `json:"templates"`
	Instances  []ledger.InstanceDTO  `json:"instances"`
	Skips      []SkipDTO             `json:"skips"`
	Debts      []debt.Debt           `json:"debts"`
	Infusions  []debt.CashInfusion   `json:"infusions"`
	Settings   debt.Settings         `json:"settings"`
}

type SkipDTO struct {
	Date        string `json:"date"`
	RecurringID string `json:"recurringId"`
}

type BackupService interface {
	// Export serializes the full state to JSON.
	Export(ctx context.Context) ([]byte, error)
	// Import restores a snapshot. It is meant for a fresh database; existing
	// rows with colliding ids make it fail partway through.
	Import(ctx context.Context, data []byte) error
}

type BackupServiceImpl struct {
	templateRepo recurrence.TemplateRepo
	ledgerRepo   ledger.LedgerRepo
	debtRepo     debt.DebtRepo
}

func NewBackupService(templateRepo recurrence.TemplateRepo, ledgerRepo ledger.LedgerRepo, debtRepo debt.DebtRepo) *BackupServiceImpl {
	return &BackupServiceImpl{templateRepo: templateRepo, ledgerRepo: ledgerRepo, debtRepo: debtRepo}
}

func (s *BackupServiceImpl) Export(ctx context.Context) ([]byte, error) {
	snapshot := Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: time.Now().UTC(),
	}

	templates, err := s.templateRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	snapshot.Templates = templates

	led, err := s.ledgerRepo.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	led.Each(func(date time.Time, _ int, instance ledger.Instance) {
		snapshot.Instances = append(snapshot.Instances, ledger.InstanceToDTO(date, instance))
	})
	for _, entry := range led.Skips().Entries() {
		snapshot.Skips = append(snapshot.Skips, SkipDTO{
			Date:        datemath.Format(entry.Date),
			RecurringID: entry.RecurringID,
		})
	}

	debts, err := s.debtRepo.GetDebts(ctx)
	if err != nil {
		return nil, err
	}
	snapshot.Debts = debts
	infusions, err := s.debtRepo.GetInfusions(ctx)
	if err != nil {
		return nil, err
	}
	snapshot.Infusions = infusions
	settings, err := s.debtRepo.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	snapshot.Settings = settings

	return json.MarshalIndent(snapshot, "", "  ")
}

func (s *BackupServiceImpl) Import(ctx context.Context, data []byte) error {
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return fmt.Errorf("could not decode snapshot: %w", err)
	}
	if snapshot.Version != SnapshotVersion {
		return fmt.Errorf("unsupported snapshot version %d", snapshot.Version)
	}

	for _, template := range snapshot.Templates {
		if err := s.templateRepo.Store(ctx, template); err != nil {
			return fmt.Errorf("restoring template %s: %w", template.ID, err)
		}
	}
	for _, dto := range snapshot.Instances {
		date, err := datemath.Parse(dto.Date)
		if err != nil {
			return fmt.Errorf("restoring transaction: %w", err)
		}
		instance := ledger.DTOToInstance(dto)
		instance.ID = 0
		if _, err := s.ledgerRepo.InsertInstance(ctx, date, instance); err != nil {
			return fmt.Errorf("restoring transaction on %s: %w", dto.Date, err)
		}
	}
	for _, skip := range snapshot.Skips {
		date, err := datemath.Parse(skip.Date)
		if err != nil {
			return fmt.Errorf("restoring skip: %w", err)
		}
		if err := s.ledgerRepo.AddSkip(ctx, date, skip.RecurringID); err != nil {
			return fmt.Errorf("restoring skip on %s: %w", skip.Date, err)
		}
	}
	for _, d := range snapshot.Debts {
		if err := s.debtRepo.StoreDebt(ctx, d); err != nil {
			return fmt.Errorf("restoring debt %s: %w", d.ID, err)
		}
	}
	for _, infusion := range snapshot.Infusions {
		if err := s.debtRepo.StoreInfusion(ctx, infusion); err != nil {
			return fmt.Errorf("restoring infusion %s: %w", infusion.ID, err)
		}
	}
	if err := s.debtRepo.UpdateSettings(ctx, snapshot.Settings); err != nil {
		return fmt.Errorf("restoring settings: %w", err)
	}

	log.Infof("restored snapshot with %d templates, %d transactions, %d debts",
		len(snapshot.Templates), len(snapshot.Instances), len(snapshot.Debts))
	return nil
}
