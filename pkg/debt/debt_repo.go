package debt

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/cashfolio/cashfolio/pkg/datemath"
	"github.com/cashfolio/cashfolio/pkg/money"
	"github.com/cashfolio/cashfolio/pkg/recurrence"
	log "github.com/sirupsen/logrus"
)

type DebtRepo interface {
	StoreDebt(ctx context.Context, d Debt) error
	GetDebts(ctx context.Context) ([]Debt, error)
	GetDebt(ctx context.Context, id string) (Debt, bool, error)
	UpdateDebt(ctx context.Context, d Debt) (bool, error)
	DeleteDebt(ctx context.Context, id string) (bool, error)
	StoreInfusion(ctx context.Context, infusion CashInfusion) error
	GetInfusions(ctx context.Context) ([]CashInfusion, error)
	DeleteInfusion(ctx context.Context, id string) (bool, error)
	GetSettings(ctx context.Context) (Settings, error)
	UpdateSettings(ctx context.Context, settings Settings) error
}

type DebtRepoImpl struct {
	db *sql.DB
}

func NewDebtRepo(db *sql.DB) *DebtRepoImpl {
	return &DebtRepoImpl{db: db}
}

func (r DebtRepoImpl) StoreDebt(ctx context.Context, d Debt) error {
	schedule, err := json.Marshal(d.Schedule)
	if err != nil {
		err := fmt.Errorf("could not encode payment schedule: %w", err)
		log.Error(err)
		return err
	}
	query := `INSERT INTO debt (id, name, balance, min_payment, interest_rate, schedule, template_id)
				VALUES (?, ?, ?, ?, ?, ?, ?)`
	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		err := fmt.Errorf("could not prepare query: %w", err)
		log.Error(err)
		return err
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx,
		d.ID,
		d.Name,
		int64(d.Balance),
		int64(d.MinPayment),
		d.InterestRate,
		string(schedule),
		d.TemplateID,
	)
	if err != nil {
		err := fmt.Errorf("could not execute query: %w", err)
		log.Error(err)
		return err
	}
	return nil
}

func (r DebtRepoImpl) GetDebts(ctx context.Context) ([]Debt, error) {
	query := "SELECT id, name, balance, min_payment, interest_rate, schedule, template_id FROM debt ORDER BY name, id"
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		err := fmt.Errorf("could not query debts: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	var debts []Debt
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			log.Error(err)
			return nil, err
		}
		debts = append(debts, d)
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating over rows: %w", err)
		log.Error(err)
		return nil, err
	}
	return debts, nil
}

func (r DebtRepoImpl) GetDebt(ctx context.Context, id string) (Debt, bool, error) {
	query := "SELECT id, name, balance, min_payment, interest_rate, schedule, template_id FROM debt WHERE id = ?"
	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		err := fmt.Errorf("could not query debt: %w", err)
		log.Error(err)
		return Debt{}, false, err
	}
	defer rows.Close()

	if !rows.Next() {
		return Debt{}, false, rows.Err()
	}
	d, err := scanDebt(rows)
	if err != nil {
		log.Error(err)
		return Debt{}, false, err
	}
	return d, true, nil
}

func (r DebtRepoImpl) UpdateDebt(ctx context.Context, d Debt) (bool, error) {
	schedule, err := json.Marshal(d.Schedule)
	if err != nil {
		err := fmt.Errorf("could not encode payment schedule: %w", err)
		log.Error(err)
		return false, err
	}
	query := `UPDATE debt SET
				name = ?,
				balance = ?,
				min_payment = ?,
				interest_rate = ?,
				schedule = ?,
				template_id = ?
			WHERE id = ?`
	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		err := fmt.Errorf("could not prepare query: %w", err)
		log.Error(err)
		return false, err
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx,
		d.Name,
		int64(d.Balance),
		int64(d.MinPayment),
		d.InterestRate,
		string(schedule),
		d.TemplateID,
		d.ID,
	)
	if err != nil {
		err := fmt.Errorf("could not execute query: %w", err)
		log.Error(err)
		return false, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		err := fmt.Errorf("could not get rows affected: %w", err)
		log.Error(err)
		return false, err
	}
	return rowsAffected == 1, nil
}

func (r DebtRepoImpl) DeleteDebt(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM debt WHERE id = ?", id)
	if err != nil {
		err := fmt.Errorf("could not execute query: %w", err)
		log.Error(err)
		return false, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		err := fmt.Errorf("could not get rows affected: %w", err)
		log.Error(err)
		return false, err
	}
	return rowsAffected == 1, nil
}

func (r DebtRepoImpl) StoreInfusion(ctx context.Context, infusion CashInfusion) error {
	query := "INSERT INTO cash_infusion (id, name, amount, date, target_debt_id) VALUES (?, ?, ?, ?, ?)"
	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		err := fmt.Errorf("could not prepare query: %w", err)
		log.Error(err)
		return err
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx,
		infusion.ID,
		infusion.Name,
		int64(infusion.Amount),
		datemath.Format(infusion.Date),
		infusion.TargetDebtID,
	)
	if err != nil {
		err := fmt.Errorf("could not execute query: %w", err)
		log.Error(err)
		return err
	}
	return nil
}

func (r DebtRepoImpl) GetInfusions(ctx context.Context) ([]CashInfusion, error) {
	query := "SELECT id, name, amount, date, target_debt_id FROM cash_infusion ORDER BY date, id"
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		err := fmt.Errorf("could not query infusions: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	var infusions []CashInfusion
	for rows.Next() {
		var infusion CashInfusion
		var amount int64
		var dateString string
		if err := rows.Scan(&infusion.ID, &infusion.Name, &amount, &dateString, &infusion.TargetDebtID); err != nil {
			err := fmt.Errorf("could not scan infusion: %w", err)
			log.Error(err)
			return nil, err
		}
		infusion.Amount = money.Cents(amount)
		date, err := datemath.Parse(dateString)
		if err != nil {
			err := fmt.Errorf("could not parse infusion date: %w", err)
			log.Error(err)
			return nil, err
		}
		infusion.Date = date
		infusions = append(infusions, infusion)
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating over rows: %w", err)
		log.Error(err)
		return nil, err
	}
	return infusions, nil
}

func (r DebtRepoImpl) DeleteInfusion(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM cash_infusion WHERE id = ?", id)
	if err != nil {
		err := fmt.Errorf("could not execute query: %w", err)
		log.Error(err)
		return false, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		err := fmt.Errorf("could not get rows affected: %w", err)
		log.Error(err)
		return false, err
	}
	return rowsAffected == 1, nil
}

func (r DebtRepoImpl) GetSettings(ctx context.Context) (Settings, error) {
	row := r.db.QueryRowContext(ctx, "SELECT base_extra_payment, auto_generate FROM snowball_settings WHERE id = 1")
	var settings Settings
	var baseExtra int64
	if err := row.Scan(&baseExtra, &settings.AutoGenerate); err != nil {
		err := fmt.Errorf("could not read snowball settings: %w", err)
		log.Error(err)
		return Settings{}, err
	}
	settings.BaseExtraPayment = money.Cents(baseExtra)
	return settings, nil
}

func (r DebtRepoImpl) UpdateSettings(ctx context.Context, settings Settings) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE snowball_settings SET base_extra_payment = ?, auto_generate = ? WHERE id = 1",
		int64(settings.BaseExtraPayment), settings.AutoGenerate,
	)
	if err != nil {
		err := fmt.Errorf("could not update snowball settings: %w", err)
		log.Error(err)
		return err
	}
	return nil
}

func scanDebt(rows *sql.Rows) (Debt, error) {
	var d Debt
	var balance, minPayment int64
	var schedule string
	if err := rows.Scan(&d.ID, &d.Name, &balance, &minPayment, &d.InterestRate, &schedule, &d.TemplateID); err != nil {
		return Debt{}, fmt.Errorf("could not scan debt: %w", err)
	}
	d.Balance = money.Cents(balance)
	d.MinPayment = money.Cents(minPayment)
	var shape recurrence.Template
	if err := json.Unmarshal([]byte(schedule), &shape); err != nil {
		return Debt{}, fmt.Errorf("could not decode payment schedule: %w", err)
	}
	d.Schedule = shape
	return d, nil
}
