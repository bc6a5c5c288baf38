package recurrence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cashfolio/cashfolio/pkg/datemath"
	"github.com/cashfolio/cashfolio/pkg/ledger"
	"github.com/cashfolio/cashfolio/pkg/money"
	log "github.com/sirupsen/logrus"
)

type TemplateRepo interface {
	Store(ctx context.Context, template Template) error
	GetAll(ctx context.Context) ([]Template, error)
	GetByID(ctx context.Context, id string) (Template, bool, error)
	Update(ctx context.Context, template Template) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type TemplateRepoImpl struct {
	db *sql.DB
}

func NewTemplateRepo(db *sql.DB) *TemplateRepoImpl {
	return &TemplateRepoImpl{db: db}
}

const templateColumns = `id, start_date, end_date, max_occurrences, kind, amount, entry_type, description,
		day_ordinal, day_weekday, semimonthly_first, semimonthly_second,
		interval_value, interval_unit, adjustment, variable_percent, debt_id`

func (r TemplateRepoImpl) Store(ctx context.Context, template Template) error {
	query := fmt.Sprintf(`INSERT INTO recurring_template (%s)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, templateColumns)
	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		err := fmt.Errorf("could not prepare query: %w", err)
		log.Error(err)
		return err
	}
	defer stmt.Close()

	if _, err := stmt.ExecContext(ctx, templateParams(template)...); err != nil {
		err := fmt.Errorf("could not execute query: %w", err)
		log.Error(err)
		return err
	}
	return nil
}

func (r TemplateRepoImpl) GetAll(ctx context.Context) ([]Template, error) {
	query := fmt.Sprintf("SELECT %s FROM recurring_template ORDER BY start_date, id", templateColumns)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		err := fmt.Errorf("could not query templates: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	var templates []Template
	for rows.Next() {
		template, err := scanTemplate(rows)
		if err != nil {
			log.Error(err)
			return nil, err
		}
		templates = append(templates, template)
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating over rows: %w", err)
		log.Error(err)
		return nil, err
	}
	return templates, nil
}

func (r TemplateRepoImpl) GetByID(ctx context.Context, id string) (Template, bool, error) {
	query := fmt.Sprintf("SELECT %s FROM recurring_template WHERE id = ?", templateColumns)
	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		err := fmt.Errorf("could not query template: %w", err)
		log.Error(err)
		return Template{}, false, err
	}
	defer rows.Close()

	if !rows.Next() {
		return Template{}, false, rows.Err()
	}
	template, err := scanTemplate(rows)
	if err != nil {
		log.Error(err)
		return Template{}, false, err
	}
	return template, true, nil
}

func (r TemplateRepoImpl) Update(ctx context.Context, template Template) (bool, error) {
	query := `UPDATE recurring_template SET
				start_date = ?,
				end_date = ?,
				max_occurrences = ?,
				kind = ?,
				amount = ?,
				entry_type = ?,
				description = ?,
				day_ordinal = ?,
				day_weekday = ?,
				semimonthly_first = ?,
				semimonthly_second = ?,
				interval_value = ?,
				interval_unit = ?,
				adjustment = ?,
				variable_percent = ?,
				debt_id = ?
			WHERE id = ?`
	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		err := fmt.Errorf("could not prepare query: %w", err)
		log.Error(err)
		return false, err
	}
	defer stmt.Close()

	params := append(templateParams(template)[1:], template.ID)
	result, err := stmt.ExecContext(ctx, params...)
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

func (r TemplateRepoImpl) Delete(ctx context.Context, id string) (bool, error) {
	stmt, err := r.db.PrepareContext(ctx, "DELETE FROM recurring_template WHERE id = ?")
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

// templateParams flattens a Template into the insert/update parameter list,
// in templateColumns order.
func templateParams(t Template) []interface{} {
	var endDate interface{}
	if t.EndDate != nil {
		endDate = datemath.Format(*t.EndDate)
	}
	var dayOrdinal, dayWeekday interface{}
	if t.DayPattern != nil {
		dayOrdinal = t.DayPattern.Ordinal
		dayWeekday = int(t.DayPattern.Weekday)
	}
	var semiFirst, semiSecond interface{}
	if t.SemiMonthly != nil {
		semiFirst = t.SemiMonthly.First
		semiSecond = t.SemiMonthly.Second
	}
	var intervalValue, intervalUnit interface{}
	if t.CustomInterval != nil {
		intervalValue = t.CustomInterval.Value
		intervalUnit = string(t.CustomInterval.Unit)
	}
	var variablePercent interface{}
	if t.Variable != nil {
		variablePercent = t.Variable.PercentPerOccurrence
	}
	return []interface{}{
		t.ID,
		datemath.Format(t.StartDate),
		endDate,
		t.MaxOccurrences,
		string(t.Kind),
		int64(t.Amount),
		string(t.EntryType),
		t.Description,
		dayOrdinal,
		dayWeekday,
		semiFirst,
		semiSecond,
		intervalValue,
		intervalUnit,
		string(t.Adjustment),
		variablePercent,
		t.DebtID,
	}
}

func scanTemplate(rows *sql.Rows) (Template, error) {
	var t Template
	var startDate string
	var endDate sql.NullString
	var kind, entryType, adjustment string
	var amount int64
	var dayOrdinal, dayWeekday, semiFirst, semiSecond, intervalValue sql.NullInt64
	var intervalUnit sql.NullString
	var variablePercent sql.NullFloat64
	if err := rows.Scan(
		&t.ID,
		&startDate,
		&endDate,
		&t.MaxOccurrences,
		&kind,
		&amount,
		&entryType,
		&t.Description,
		&dayOrdinal,
		&dayWeekday,
		&semiFirst,
		&semiSecond,
		&intervalValue,
		&intervalUnit,
		&adjustment,
		&variablePercent,
		&t.DebtID,
	); err != nil {
		return Template{}, fmt.Errorf("could not scan template: %w", err)
	}

	t.Kind = Kind(kind)
	t.Amount = money.Cents(amount)
	t.EntryType = ledger.EntryType(entryType)
	t.Adjustment = datemath.AdjustMode(adjustment)

	start, err := datemath.Parse(startDate)
	if err != nil {
		return Template{}, fmt.Errorf("could not parse start date: %w", err)
	}
	t.StartDate = start
	if endDate.Valid {
		end, err := datemath.Parse(endDate.String)
		if err != nil {
			return Template{}, fmt.Errorf("could not parse end date: %w", err)
		}
		t.EndDate = &end
	}
	if dayOrdinal.Valid {
		t.DayPattern = &DayPattern{
			Ordinal: int(dayOrdinal.Int64),
			Weekday: time.Weekday(dayWeekday.Int64),
		}
	}
	if semiFirst.Valid {
		t.SemiMonthly = &SemiMonthlyDays{
			First:  int(semiFirst.Int64),
			Second: int(semiSecond.Int64),
		}
	}
	if intervalValue.Valid {
		t.CustomInterval = &Interval{
			Value: int(intervalValue.Int64),
			Unit:  IntervalUnit(intervalUnit.String),
		}
	}
	if variablePercent.Valid {
		t.Variable = &VariableAmount{PercentPerOccurrence: variablePercent.Float64}
	}
	return t, nil
}
