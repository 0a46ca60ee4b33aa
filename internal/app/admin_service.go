package app

import (
	"context"
	"fmt"
	"time"

	"attendance_poll_bot/internal/domain/attendance"
	"attendance_poll_bot/internal/domain/calendar"
	"attendance_poll_bot/internal/domain/schedule"
)

// Custom application-level errors for admin commands
var ErrChatNotAllowed = fmt.Errorf("commands are only accepted in the configured chat")
var ErrReservationInPast = fmt.Errorf("reservation must be in the future")
var ErrReservationNotFound = fmt.Errorf("no matching reservation")

// Times is the answer to the "show times" command.
type Times struct {
	PromptTime  calendar.Clock
	SummaryTime calendar.Clock
	Rule        schedule.Rule
	NextSend    time.Time
	HasNextSend bool
}

// AdminService implements the command entry points on top of the engine,
// the holiday registry and the poll service.
type AdminService struct {
	engine        *ScheduleEngine
	holidays      *HolidayRegistry
	polls         *PollService
	attendance    *AttendanceService
	allowedChatID int64
}

// NewAdminService wires the command layer. allowedChatID 0 accepts any chat.
func NewAdminService(engine *ScheduleEngine, holidays *HolidayRegistry, polls *PollService, attendanceService *AttendanceService, allowedChatID int64) *AdminService {
	return &AdminService{
		engine:        engine,
		holidays:      holidays,
		polls:         polls,
		attendance:    attendanceService,
		allowedChatID: allowedChatID,
	}
}

// Authorize checks that a command comes from the configured chat.
func (s *AdminService) Authorize(chatID int64) error {
	if s.allowedChatID != 0 && chatID != s.allowedChatID {
		return ErrChatNotAllowed
	}
	return nil
}

// Today is the current civil date of the engine.
func (s *AdminService) Today() calendar.Date {
	return calendar.DateOf(s.engine.Now())
}

func (s *AdminService) SetPromptTime(chatID int64, c calendar.Clock) error {
	if err := s.Authorize(chatID); err != nil {
		return err
	}
	s.engine.SetPromptTime(c)
	return nil
}

func (s *AdminService) SetSummaryTime(chatID int64, c calendar.Clock) error {
	if err := s.Authorize(chatID); err != nil {
		return err
	}
	s.engine.SetSummaryTime(c)
	return nil
}

func (s *AdminService) Times(chatID int64) (*Times, error) {
	if err := s.Authorize(chatID); err != nil {
		return nil, err
	}
	rule := s.engine.Rule()
	next, ok := s.engine.NextSendDatetime()
	return &Times{
		PromptTime:  rule.PromptTime,
		SummaryTime: rule.SummaryTime,
		Rule:        rule,
		NextSend:    next,
		HasNextSend: ok,
	}, nil
}

func (s *AdminService) CheckSchedule(chatID int64, date calendar.Date) (*schedule.CheckResult, error) {
	if err := s.Authorize(chatID); err != nil {
		return nil, err
	}
	res := s.engine.CheckScheduleForDate(date)
	return &res, nil
}

// Reserve adds a one-off prompt. The instant must be strictly after the engine clock.
func (s *AdminService) Reserve(chatID int64, date calendar.Date, at calendar.Clock) (*schedule.Reservation, error) {
	if err := s.Authorize(chatID); err != nil {
		return nil, err
	}
	if !date.At(at, s.engine.Location()).After(s.engine.Now()) {
		return nil, ErrReservationInPast
	}
	r := s.engine.AddReservation(date, at)
	return &r, nil
}

func (s *AdminService) Reservations(chatID int64) ([]schedule.Reservation, error) {
	if err := s.Authorize(chatID); err != nil {
		return nil, err
	}
	return s.engine.Reservations(), nil
}

// CancelReservation removes the reservation at (date, at), or all of date's
// reservations when at is nil.
func (s *AdminService) CancelReservation(chatID int64, date calendar.Date, at *calendar.Clock) (int, error) {
	if err := s.Authorize(chatID); err != nil {
		return 0, err
	}
	removed := s.engine.RemoveReservation(date, at)
	if removed == 0 {
		return 0, ErrReservationNotFound
	}
	return removed, nil
}

// SendPromptNow posts a prompt for today regardless of the schedule.
func (s *AdminService) SendPromptNow(ctx context.Context, chatID int64) error {
	if err := s.Authorize(chatID); err != nil {
		return err
	}
	return s.polls.SendPrompt(ctx, s.engine.Now())
}

// SummaryNow returns the current aggregation for date.
func (s *AdminService) SummaryNow(ctx context.Context, chatID int64, date calendar.Date) (*attendance.Summary, error) {
	if err := s.Authorize(chatID); err != nil {
		return nil, err
	}
	return s.attendance.Summary(ctx, date)
}

func (s *AdminService) AddHoliday(ctx context.Context, chatID int64, date calendar.Date, label string) error {
	if err := s.Authorize(chatID); err != nil {
		return err
	}
	return s.holidays.Add(ctx, date, label)
}

func (s *AdminService) RemoveHoliday(ctx context.Context, chatID int64, date calendar.Date) error {
	if err := s.Authorize(chatID); err != nil {
		return err
	}
	return s.holidays.Remove(ctx, date)
}

// Holidays lists a year's holidays, or all of them when year is 0.
func (s *AdminService) Holidays(chatID int64, year int) (map[calendar.Date]string, error) {
	if err := s.Authorize(chatID); err != nil {
		return nil, err
	}
	if year == 0 {
		return s.holidays.All(), nil
	}
	return s.holidays.InYear(year), nil
}
