package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"attendance_poll_bot/internal/domain/attendance"
	"attendance_poll_bot/internal/domain/calendar"
)

type PostgresResponseRepository struct {
	db *sql.DB
}

func NewPostgresResponseRepository(db *sql.DB) *PostgresResponseRepository {
	return &PostgresResponseRepository{db: db}
}

// Upsert relies on the (response_date, user_id) constraint; the row keeps its
// id, so insertion order survives overwrites.
func (r *PostgresResponseRepository) Upsert(ctx context.Context, date calendar.Date, answer attendance.Answer, at time.Time) (*attendance.Response, error) {
	query := `INSERT INTO attendance_responses (response_date, user_id, display_name, can_attend, start_time, end_time, created_at, updated_at)
	          VALUES ($1::date, $2, $3, $4, $5, $6, $7, $7)
	          ON CONFLICT ON CONSTRAINT attendance_responses_date_user_unique DO UPDATE
	          SET display_name = COALESCE(NULLIF(EXCLUDED.display_name, ''), attendance_responses.display_name),
	              can_attend = EXCLUDED.can_attend,
	              start_time = EXCLUDED.start_time,
	              end_time   = EXCLUDED.end_time,
	              updated_at = EXCLUDED.updated_at
	          RETURNING display_name, created_at, updated_at`

	saved := &attendance.Response{
		UserID:    answer.UserID,
		CanAttend: answer.CanAttend,
		StartTime: answer.StartTime,
		EndTime:   answer.EndTime,
	}
	err := r.db.QueryRowContext(ctx, query,
		date.String(), answer.UserID, answer.DisplayName, answer.CanAttend,
		nullClock(answer.StartTime), nullClock(answer.EndTime), at,
	).Scan(&saved.DisplayName, &saved.CreatedAt, &saved.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("error upserting attendance response: %w", err)
	}
	return saved, nil
}

func (r *PostgresResponseRepository) ListByDate(ctx context.Context, date calendar.Date) ([]*attendance.Response, error) {
	query := `SELECT user_id, display_name, can_attend, start_time, end_time, created_at, updated_at
	          FROM attendance_responses
	          WHERE response_date = $1::date
	          ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, date.String())
	if err != nil {
		return nil, fmt.Errorf("error querying attendance responses: %w", err)
	}
	defer rows.Close()

	responses := make([]*attendance.Response, 0)
	for rows.Next() {
		var start, end sql.NullString
		resp := &attendance.Response{}
		if err := rows.Scan(&resp.UserID, &resp.DisplayName, &resp.CanAttend, &start, &end, &resp.CreatedAt, &resp.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning attendance response row: %w", err)
		}
		if resp.StartTime, err = parseNullClock(start); err != nil {
			return nil, err
		}
		if resp.EndTime, err = parseNullClock(end); err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attendance response rows: %w", err)
	}
	return responses, nil
}

func nullClock(c *calendar.Clock) sql.NullString {
	if c == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: c.String(), Valid: true}
}

func parseNullClock(v sql.NullString) (*calendar.Clock, error) {
	if !v.Valid {
		return nil, nil
	}
	c, err := calendar.ParseClock(v.String)
	if err != nil {
		return nil, fmt.Errorf("error parsing stored time %q: %w", v.String, err)
	}
	return &c, nil
}
