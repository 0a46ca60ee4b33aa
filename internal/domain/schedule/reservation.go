package schedule

import (
	"sort"
	"time"

	"attendance_poll_bot/internal/domain/calendar"
)

// Reservation is a one-off prompt at an explicit date and time.
// The value itself is the identity: two reservations with the same date and
// time are the same reservation.
type Reservation struct {
	Date calendar.Date  `json:"date"`
	Time calendar.Clock `json:"time"`
}

// At returns the firing instant in loc.
func (r Reservation) At(loc *time.Location) time.Time {
	return r.Date.At(r.Time, loc)
}

func (r Reservation) String() string {
	return r.Date.String() + " " + r.Time.String()
}

// SortReservations orders by date, then time, ascending.
func SortReservations(list []Reservation) {
	sort.Slice(list, func(i, j int) bool {
		if c := list[i].Date.Compare(list[j].Date); c != 0 {
			return c < 0
		}
		return list[i].Time.Compare(list[j].Time) < 0
	})
}
