// Package schedule contains the recurring send rule and the one-off
// reservations layered on top of it.
package schedule

import (
	"fmt"
	"sort"
	"time"

	"attendance_poll_bot/internal/domain/calendar"
)

// HolidayLookup answers whether the day after date is a registered holiday.
type HolidayLookup interface {
	HolidayBefore(date calendar.Date) (label string, ok bool)
}

// Rule is the recurring prompt/summary rule.
type Rule struct {
	Weekdays           map[time.Weekday]bool
	SendBeforeHolidays bool
	PromptTime         calendar.Clock
	SummaryTime        calendar.Clock
}

// WeekdaysFromIndexes converts 0=Monday … 6=Sunday indexes, the convention of
// the WEEKDAYS setting, into time.Weekday values.
func WeekdaysFromIndexes(indexes []int) (map[time.Weekday]bool, error) {
	days := make(map[time.Weekday]bool, len(indexes))
	for _, i := range indexes {
		if i < 0 || i > 6 {
			return nil, fmt.Errorf("weekday index %d out of range 0-6", i)
		}
		days[time.Weekday((i+1)%7)] = true
	}
	return days, nil
}

// WeekdayIndex is the inverse of WeekdaysFromIndexes for a single day.
func WeekdayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

// Clone returns a copy whose weekday set can be mutated independently.
func (r Rule) Clone() Rule {
	days := make(map[time.Weekday]bool, len(r.Weekdays))
	for wd, on := range r.Weekdays {
		days[wd] = on
	}
	r.Weekdays = days
	return r
}

// SortedWeekdays lists the eligible weekdays Monday first.
func (r Rule) SortedWeekdays() []time.Weekday {
	var days []time.Weekday
	for wd, on := range r.Weekdays {
		if on {
			days = append(days, wd)
		}
	}
	sort.Slice(days, func(i, j int) bool { return WeekdayIndex(days[i]) < WeekdayIndex(days[j]) })
	return days
}

func (r Rule) WeekdayMatch(date calendar.Date) bool {
	return r.Weekdays[date.Weekday()]
}

// HolidayEve reports whether the holiday-eve rule applies to date.
func (r Rule) HolidayEve(date calendar.Date, holidays HolidayLookup) (string, bool) {
	if !r.SendBeforeHolidays || holidays == nil {
		return "", false
	}
	return holidays.HolidayBefore(date)
}

// ShouldSendOn is true when date is an eligible weekday or, with
// SendBeforeHolidays, the day before a holiday.
func (r Rule) ShouldSendOn(date calendar.Date, holidays HolidayLookup) bool {
	if r.WeekdayMatch(date) {
		return true
	}
	_, eve := r.HolidayEve(date, holidays)
	return eve
}
