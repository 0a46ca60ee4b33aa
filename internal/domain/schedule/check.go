package schedule

import (
	"fmt"
	"strings"

	"attendance_poll_bot/internal/domain/calendar"
)

// Reasons reported by CheckResult.
const (
	ReasonWeekday     = "eligible weekday"
	ReasonHolidayEve  = "day before holiday"
	ReasonReservation = "reservation"
	ReasonNoTrigger   = "no trigger matched (not an eligible weekday, not a holiday eve, no reservation)"
)

// CheckResult is the side-effect free evaluation of a date.
type CheckResult struct {
	Date           calendar.Date
	WillSend       bool
	Reason         string
	WeekdayMatch   bool
	HolidayBefore  bool
	HolidayLabel   string
	Scheduled      bool
	ScheduledTimes []calendar.Clock
}

// Evaluate combines the rule with the reservation times found for date.
func Evaluate(rule Rule, date calendar.Date, holidays HolidayLookup, reservedTimes []calendar.Clock) CheckResult {
	res := CheckResult{
		Date:           date,
		WeekdayMatch:   rule.WeekdayMatch(date),
		Scheduled:      len(reservedTimes) > 0,
		ScheduledTimes: reservedTimes,
	}
	res.HolidayLabel, res.HolidayBefore = rule.HolidayEve(date, holidays)
	res.WillSend = res.WeekdayMatch || res.HolidayBefore || res.Scheduled

	var reasons []string
	if res.WeekdayMatch {
		reasons = append(reasons, ReasonWeekday)
	}
	if res.HolidayBefore {
		if res.HolidayLabel != "" {
			reasons = append(reasons, fmt.Sprintf("%s (%s)", ReasonHolidayEve, res.HolidayLabel))
		} else {
			reasons = append(reasons, ReasonHolidayEve)
		}
	}
	if res.Scheduled {
		times := make([]string, len(reservedTimes))
		for i, c := range reservedTimes {
			times[i] = c.String()
		}
		reasons = append(reasons, fmt.Sprintf("%s at %s", ReasonReservation, strings.Join(times, ", ")))
	}
	if len(reasons) == 0 {
		res.Reason = ReasonNoTrigger
	} else {
		res.Reason = strings.Join(reasons, "; ")
	}
	return res
}
