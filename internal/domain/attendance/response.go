package attendance

import (
	"time"

	"attendance_poll_bot/internal/domain/calendar"
)

// Response is one user's answer for one event date.
// Corresponds to one element of a date bucket in the responses file.
type Response struct {
	UserID      int64           `json:"user_id"`
	DisplayName string          `json:"display_name,omitempty"`
	CanAttend   bool            `json:"can_attend"`
	StartTime   *calendar.Clock `json:"start_time"`
	EndTime     *calendar.Clock `json:"end_time"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at,omitzero"`
}

// AnsweredAt is the ordering key for the attendable list: UpdatedAt, or
// CreatedAt for records written without one.
func (r *Response) AnsweredAt() time.Time {
	if r.UpdatedAt.IsZero() {
		return r.CreatedAt
	}
	return r.UpdatedAt
}

// Answer is the payload of a save request. DisplayName is the name shown in
// summaries and may be empty.
type Answer struct {
	UserID      int64
	DisplayName string
	CanAttend   bool
	StartTime   *calendar.Clock
	EndTime     *calendar.Clock
}

// AttendableUser is the per-user line of a Summary.
type AttendableUser struct {
	UserID      int64           `json:"user_id"`
	DisplayName string          `json:"display_name,omitempty"`
	StartTime   *calendar.Clock `json:"start_time"`
	EndTime     *calendar.Clock `json:"end_time"`
}

// Summary aggregates a date bucket.
type Summary struct {
	Date               calendar.Date    `json:"date"`
	TotalResponses     int              `json:"total_responses"`
	AttendableCount    int              `json:"attendable_count"`
	NotAttendableCount int              `json:"not_attendable_count"`
	AttendableUsers    []AttendableUser `json:"attendable_users"`
}
