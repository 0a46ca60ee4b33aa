package attendance

import (
	"context"
	"time"

	"attendance_poll_bot/internal/domain/calendar"
)

// Repository stores responses grouped by event date.
type Repository interface {
	// Upsert inserts or overwrites the (date, answer.UserID) record. CreatedAt is
	// set to at only on first insert; UpdatedAt is always set to at.
	Upsert(ctx context.Context, date calendar.Date, answer Answer, at time.Time) (*Response, error)
	// ListByDate returns the bucket in storage insertion order.
	ListByDate(ctx context.Context, date calendar.Date) ([]*Response, error)
}
