package calendar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrMisalignedTime is returned where only half-hour slots are accepted.
var ErrMisalignedTime = errors.New("time is not aligned to a 30-minute slot")

// Clock is a time of day with minute precision.
type Clock struct {
	Hour   int
	Minute int
}

// NewClock validates the hour and minute ranges.
func NewClock(hour, minute int) (Clock, error) {
	if hour < 0 || hour > 23 {
		return Clock{}, fmt.Errorf("hour %d out of range 0-23", hour)
	}
	if minute < 0 || minute > 59 {
		return Clock{}, fmt.Errorf("minute %d out of range 0-59", minute)
	}
	return Clock{Hour: hour, Minute: minute}, nil
}

// MustClock panics on invalid input. Intended for constants and tests.
func MustClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseClock accepts "HH:MM" and "H:MM".
func ParseClock(s string) (Clock, error) {
	hourPart, minutePart, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(hourPart) == 0 || len(hourPart) > 2 || len(minutePart) != 2 || !digits(hourPart) || !digits(minutePart) {
		return Clock{}, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	hour, err := strconv.Atoi(hourPart)
	if err != nil {
		return Clock{}, fmt.Errorf("invalid hour in %q: %w", s, err)
	}
	minute, err := strconv.Atoi(minutePart)
	if err != nil {
		return Clock{}, fmt.Errorf("invalid minute in %q: %w", s, err)
	}
	return NewClock(hour, minute)
}

func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ClockOf truncates t to its hour and minute in t's location.
func ClockOf(t time.Time) Clock {
	return Clock{Hour: t.Hour(), Minute: t.Minute()}
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Minutes since midnight.
func (c Clock) Minutes() int {
	return c.Hour*60 + c.Minute
}

func (c Clock) Compare(other Clock) int {
	switch {
	case c.Minutes() < other.Minutes():
		return -1
	case c.Minutes() > other.Minutes():
		return 1
	}
	return 0
}

func (c Clock) IsHalfHourAligned() bool {
	return c.Minute == 0 || c.Minute == 30
}

// HalfHourSlots lists every aligned slot in [from, to], ascending.
func HalfHourSlots(from, to Clock) []Clock {
	start := (from.Minutes() + 29) / 30 * 30
	var slots []Clock
	for m := start; m <= to.Minutes() && m < 24*60; m += 30 {
		slots = append(slots, Clock{Hour: m / 60, Minute: m % 60})
	}
	return slots
}

func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Clock) UnmarshalText(text []byte) error {
	parsed, err := ParseClock(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
