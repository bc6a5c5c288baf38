package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cashfolio/cashfolio/pkg/datemath"
	"github.com/cashfolio/cashfolio/pkg/money"
	log "github.com/sirupsen/logrus"
)

type LedgerRepo interface {
	// LoadAll reads the whole register, instances and skip flags, into memory.
	LoadAll(ctx context.Context) (*Ledger, error)
	// ReplaceMonth atomically swaps one month of stored instances for the
	// month's content of the given ledger.
	ReplaceMonth(ctx context.Context, year int, month time.Month, led *Ledger) error
	InstancesOn(ctx context.Context, date time.Time) ([]Instance, error)
	InsertInstance(ctx context.Context, date time.Time, instance Instance) (int64, error)
	UpdateInstance(ctx context.Context, instance Instance) (bool, error)
	DeleteInstance(ctx context.Context, id int64) (bool, error)
	AddSkip(ctx context.Context, date time.Time, recurringID string) error
	// RemoveSkip reports whether a skip flag was actually removed, so the
	// caller can implement toggling.
	RemoveSkip(ctx context.Context, date time.Time, recurringID string) (bool, error)
	// MigrateSkips re-points skip flags to a successor template from cutoff
	// forward. Future-scoped template edits split a template in two.
	MigrateSkips(ctx context.Context, fromID, toID string, cutoff time.Time) error
	// DeleteSkips drops a template's skip flags from cutoff forward.
	DeleteSkips(ctx context.Context, recurringID string, cutoff time.Time) error
	// DeleteUnmodifiedInstances drops a template's generated, unedited
	// instances from cutoff forward. User-modified occurrences survive.
	DeleteUnmodifiedInstances(ctx context.Context, recurringID string, cutoff time.Time) error
	// DeleteSnowballInstances drops a debt's synthetic extra-payment
	// instances from cutoff forward.
	DeleteSnowballInstances(ctx context.Context, debtID string, cutoff time.Time) error
}

type LedgerRepoImpl struct {
	db *sql.DB
}

func NewLedgerRepo(db *sql.DB) *LedgerRepoImpl {
	return &LedgerRepoImpl{db: db}
}

const instanceColumns = "id, date, amount, entry_type, description, recurring_id, modified, original_date, hidden, snowball_debt_id"

func (r LedgerRepoImpl) LoadAll(ctx context.Context) (*Ledger, error) {
	query := fmt.Sprintf("SELECT %s FROM transaction_instance ORDER BY date, id", instanceColumns)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		err := fmt.Errorf("could not query transaction instances: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	led := New()
	for rows.Next() {
		date, instance, err := scanInstance(rows)
		if err != nil {
			log.Error(err)
			return nil, err
		}
		if err := led.Add(date, instance); err != nil {
			// A constraint violation here means the stored data is already
			// inconsistent; report it instead of silently dropping rows.
			err := fmt.Errorf("stored register is inconsistent: %w", err)
			log.Error(err)
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating over rows: %w", err)
		log.Error(err)
		return nil, err
	}

	skipRows, err := r.db.QueryContext(ctx, "SELECT date, recurring_id FROM skipped_transaction")
	if err != nil {
		err := fmt.Errorf("could not query skipped transactions: %w", err)
		log.Error(err)
		return nil, err
	}
	defer skipRows.Close()
	for skipRows.Next() {
		var dateString, recurringID string
		if err := skipRows.Scan(&dateString, &recurringID); err != nil {
			err := fmt.Errorf("could not scan skipped transaction: %w", err)
			log.Error(err)
			return nil, err
		}
		date, err := datemath.Parse(dateString)
		if err != nil {
			err := fmt.Errorf("could not parse skip date: %w", err)
			log.Error(err)
			return nil, err
		}
		led.Skips().Set(date, recurringID)
	}
	if err := skipRows.Err(); err != nil {
		err := fmt.Errorf("error iterating over rows: %w", err)
		log.Error(err)
		return nil, err
	}

	return led, nil
}

func (r LedgerRepoImpl) ReplaceMonth(ctx context.Context, year int, month time.Month, led *Ledger) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		err := fmt.Errorf("could not begin transaction: %w", err)
		log.Error(err)
		return err
	}
	defer tx.Rollback()

	monthStart := datemath.Date(year, month, 1)
	nextYear, nextMonth := datemath.AddMonths(year, month, 1)
	monthEnd := datemath.Date(nextYear, nextMonth, 1)

	_, err = tx.ExecContext(ctx,
		"DELETE FROM transaction_instance WHERE date >= ? AND date < ?",
		datemath.Format(monthStart), datemath.Format(monthEnd),
	)
	if err != nil {
		err := fmt.Errorf("could not clear month: %w", err)
		log.Error(err)
		return err
	}

	insert := `INSERT INTO transaction_instance
				(date, amount, entry_type, description, recurring_id, modified, original_date, hidden, snowball_debt_id)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		err := fmt.Errorf("could not prepare query: %w", err)
		log.Error(err)
		return err
	}
	defer stmt.Close()

	var execErr error
	led.Each(func(date time.Time, _ int, instance Instance) {
		if execErr != nil || !datemath.SameMonth(date, year, month) {
			return
		}
		var originalDate interface{}
		if instance.OriginalDate != nil {
			originalDate = datemath.Format(*instance.OriginalDate)
		}
		_, err := stmt.ExecContext(ctx,
			datemath.Format(date),
			int64(instance.Amount),
			string(instance.EntryType),
			instance.Description,
			instance.RecurringID,
			instance.Modified,
			originalDate,
			instance.Hidden,
			instance.SnowballDebtID,
		)
		if err != nil {
			execErr = fmt.Errorf("could not insert instance: %w", err)
			log.Error(execErr)
		}
	})
	if execErr != nil {
		return execErr
	}

	return tx.Commit()
}

func (r LedgerRepoImpl) InstancesOn(ctx context.Context, date time.Time) ([]Instance, error) {
	query := fmt.Sprintf("SELECT %s FROM transaction_instance WHERE date = ? ORDER BY id", instanceColumns)
	rows, err := r.db.QueryContext(ctx, query, datemath.Format(date))
	if err != nil {
		err := fmt.Errorf("could not query transaction instances: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	var instances []Instance
	for rows.Next() {
		_, instance, err := scanInstance(rows)
		if err != nil {
			log.Error(err)
			return nil, err
		}
		instances = append(instances, instance)
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating over rows: %w", err)
		log.Error(err)
		return nil, err
	}
	return instances, nil
}

func (r LedgerRepoImpl) InsertInstance(ctx context.Context, date time.Time, instance Instance) (int64, error) {
	query := `INSERT INTO transaction_instance
				(date, amount, entry_type, description, recurring_id, modified, original_date, hidden, snowball_debt_id)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		err := fmt.Errorf("could not prepare query: %w", err)
		log.Error(err)
		return 0, err
	}
	defer stmt.Close()

	var originalDate interface{}
	if instance.OriginalDate != nil {
		originalDate = datemath.Format(*instance.OriginalDate)
	}
	result, err := stmt.ExecContext(ctx,
		datemath.Format(date),
		int64(instance.Amount),
		string(instance.EntryType),
		instance.Description,
		instance.RecurringID,
		instance.Modified,
		originalDate,
		instance.Hidden,
		instance.SnowballDebtID,
	)
	if err != nil {
		err := fmt.Errorf("could not execute query: %w", err)
		log.Error(err)
		return 0, err
	}
	lastInsertID, err := result.LastInsertId()
	if err != nil {
		err := fmt.Errorf("could not retrieve last insert id: %w", err)
		log.Error(err)
		return 0, err
	}
	return lastInsertID, nil
}

func (r LedgerRepoImpl) UpdateInstance(ctx context.Context, instance Instance) (bool, error) {
	query := `UPDATE transaction_instance SET
				amount = ?,
				entry_type = ?,
				description = ?,
				modified = ?,
				hidden = ?
			WHERE id = ?`
	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		err := fmt.Errorf("could not prepare query: %w", err)
		log.Error(err)
		return false, err
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx,
		int64(instance.Amount),
		string(instance.EntryType),
		instance.Description,
		instance.Modified,
		instance.Hidden,
		instance.ID,
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

func (r LedgerRepoImpl) DeleteInstance(ctx context.Context, id int64) (bool, error) {
	stmt, err := r.db.PrepareContext(ctx, "DELETE FROM transaction_instance WHERE id = ?")
	if err != nil {
		err := fmt.Errorf("could not prepare query: %w", err)
		log.Error(err)
		return false, err
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, id)
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

func (r LedgerRepoImpl) AddSkip(ctx context.Context, date time.Time, recurringID string) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO skipped_transaction (date, recurring_id) VALUES (?, ?)",
		datemath.Format(date), recurringID,
	)
	if err != nil {
		err := fmt.Errorf("could not store skip: %w", err)
		log.Error(err)
		return err
	}
	return nil
}

func (r LedgerRepoImpl) RemoveSkip(ctx context.Context, date time.Time, recurringID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM skipped_transaction WHERE date = ? AND recurring_id = ?",
		datemath.Format(date), recurringID,
	)
	if err != nil {
		err := fmt.Errorf("could not delete skip: %w", err)
		log.Error(err)
		return false, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		err := fmt.Errorf("could not get rows affected: %w", err)
		log.Error(err)
		return false, err
	}
	return rowsAffected > 0, nil
}

func (r LedgerRepoImpl) MigrateSkips(ctx context.Context, fromID, toID string, cutoff time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE OR IGNORE skipped_transaction SET recurring_id = ? WHERE recurring_id = ? AND date >= ?",
		toID, fromID, datemath.Format(cutoff),
	)
	if err != nil {
		err := fmt.Errorf("could not migrate skips: %w", err)
		log.Error(err)
		return err
	}
	return nil
}

func (r LedgerRepoImpl) DeleteSkips(ctx context.Context, recurringID string, cutoff time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM skipped_transaction WHERE recurring_id = ? AND date >= ?",
		recurringID, datemath.Format(cutoff),
	)
	if err != nil {
		err := fmt.Errorf("could not delete skips: %w", err)
		log.Error(err)
		return err
	}
	return nil
}

func (r LedgerRepoImpl) DeleteUnmodifiedInstances(ctx context.Context, recurringID string, cutoff time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM transaction_instance WHERE recurring_id = ? AND modified = 0 AND date >= ?",
		recurringID, datemath.Format(cutoff),
	)
	if err != nil {
		err := fmt.Errorf("could not delete generated instances: %w", err)
		log.Error(err)
		return err
	}
	return nil
}

func (r LedgerRepoImpl) DeleteSnowballInstances(ctx context.Context, debtID string, cutoff time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM transaction_instance WHERE snowball_debt_id = ? AND date >= ?",
		debtID, datemath.Format(cutoff),
	)
	if err != nil {
		err := fmt.Errorf("could not delete extra payment instances: %w", err)
		log.Error(err)
		return err
	}
	return nil
}

func scanInstance(rows *sql.Rows) (time.Time, Instance, error) {
	var instance Instance
	var dateString string
	var amount int64
	var entryType string
	var originalDate sql.NullString
	if err := rows.Scan(
		&instance.ID,
		&dateString,
		&amount,
		&entryType,
		&instance.Description,
		&instance.RecurringID,
		&instance.Modified,
		&originalDate,
		&instance.Hidden,
		&instance.SnowballDebtID,
	); err != nil {
		return time.Time{}, Instance{}, fmt.Errorf("could not scan instance: %w", err)
	}
	instance.Amount = money.Cents(amount)
	instance.EntryType = EntryType(entryType)
	date, err := datemath.Parse(dateString)
	if err != nil {
		return time.Time{}, Instance{}, fmt.Errorf("could not parse instance date: %w", err)
	}
	if originalDate.Valid {
		original, err := datemath.Parse(originalDate.String)
		if err != nil {
			return time.Time{}, Instance{}, fmt.Errorf("could not parse original date: %w", err)
		}
		instance.OriginalDate = &original
	}
	return date, instance, nil
}
