package holiday

import (
	"context"

	"attendance_poll_bot/internal/domain/calendar"
)

// Repository persists the holiday table. Every write is synchronous; callers
// rely on a nil error meaning the change reached storage.
type Repository interface {
	LoadAll(ctx context.Context) (map[calendar.Date]string, error)
	Put(ctx context.Context, date calendar.Date, label string) error
	Delete(ctx context.Context, date calendar.Date) error
}
