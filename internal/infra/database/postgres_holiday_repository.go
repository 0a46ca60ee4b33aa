package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"attendance_poll_bot/internal/domain/calendar"
)

type PostgresHolidayRepository struct {
	db *sql.DB
}

func NewPostgresHolidayRepository(db *sql.DB) *PostgresHolidayRepository {
	return &PostgresHolidayRepository{db: db}
}

func (r *PostgresHolidayRepository) LoadAll(ctx context.Context) (map[calendar.Date]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT holiday_date, label FROM holidays ORDER BY holiday_date`)
	if err != nil {
		return nil, fmt.Errorf("error querying holidays: %w", err)
	}
	defer rows.Close()

	holidays := make(map[calendar.Date]string)
	for rows.Next() {
		var day time.Time
		var label string
		if err := rows.Scan(&day, &label); err != nil {
			return nil, fmt.Errorf("error scanning holiday row: %w", err)
		}
		holidays[calendar.DateOf(day.UTC())] = label
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holiday rows: %w", err)
	}
	return holidays, nil
}

func (r *PostgresHolidayRepository) Put(ctx context.Context, date calendar.Date, label string) error {
	query := `INSERT INTO holidays (holiday_date, label) VALUES ($1::date, $2)
	          ON CONFLICT (holiday_date) DO UPDATE SET label = EXCLUDED.label`
	if _, err := r.db.ExecContext(ctx, query, date.String(), label); err != nil {
		return fmt.Errorf("error saving holiday %s: %w", date, err)
	}
	return nil
}

func (r *PostgresHolidayRepository) Delete(ctx context.Context, date calendar.Date) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM holidays WHERE holiday_date = $1::date`, date.String()); err != nil {
		return fmt.Errorf("error deleting holiday %s: %w", date, err)
	}
	return nil
}
