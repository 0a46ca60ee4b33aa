package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"attendance_poll_bot/internal/domain/calendar"
	"attendance_poll_bot/internal/domain/schedule"

	"github.com/sirupsen/logrus"
)

// FireFunc is invoked with the tick instant when a prompt or summary fires.
type FireFunc func(ctx context.Context, firedAt time.Time) error

// nextSendHorizonDays bounds NextSendDatetime.
const nextSendHorizonDays = 7

// TickReport describes what a single Tick decided. It is returned for
// observability and tests; the engine has already logged everything in it.
type TickReport struct {
	MinuteKey         string
	PromptFired       bool
	SummaryFired      bool
	Reservation       *schedule.Reservation
	PromptSkippedDup  bool
	SummarySkippedDup bool
	MissingPromptCb   bool
	MissingSummaryCb  bool
	PromptErr         error
	SummaryErr        error
}

// ScheduleEngine decides on every minute tick whether a prompt or a summary
// is due. It owns the recurring rule, the reservation list and the
// per-minute fire guards.
type ScheduleEngine struct {
	holidays schedule.HolidayLookup
	loc      *time.Location
	now      func() time.Time
	logger   *logrus.Entry

	mu                sync.Mutex
	rule              schedule.Rule
	reservations      map[schedule.Reservation]struct{}
	onPrompt          FireFunc
	onSummary         FireFunc
	lastPromptMinute  string
	lastSummaryMinute string
}

func NewScheduleEngine(rule schedule.Rule, holidays schedule.HolidayLookup, loc *time.Location, now func() time.Time, logger *logrus.Entry) *ScheduleEngine {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &ScheduleEngine{
		holidays:     holidays,
		loc:          loc,
		now:          now,
		logger:       logger,
		rule:         rule.Clone(),
		reservations: make(map[schedule.Reservation]struct{}),
	}
}

func (e *ScheduleEngine) RegisterPromptCallback(fn FireFunc) {
	e.mu.Lock()
	e.onPrompt = fn
	e.mu.Unlock()
}

func (e *ScheduleEngine) RegisterSummaryCallback(fn FireFunc) {
	e.mu.Lock()
	e.onSummary = fn
	e.mu.Unlock()
}

// Location is the civil timezone all decisions are made in.
func (e *ScheduleEngine) Location() *time.Location {
	return e.loc
}

// Now is the engine clock in the engine location.
func (e *ScheduleEngine) Now() time.Time {
	return e.now().In(e.loc)
}

// Rule returns a copy of the current rule.
func (e *ScheduleEngine) Rule() schedule.Rule {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rule.Clone()
}

// SetPromptTime takes effect from the next tick.
func (e *ScheduleEngine) SetPromptTime(c calendar.Clock) {
	e.mu.Lock()
	e.rule.PromptTime = c
	e.mu.Unlock()
	e.logger.WithField("prompt_time", c.String()).Info("Prompt time updated")
}

// SetSummaryTime takes effect from the next tick.
func (e *ScheduleEngine) SetSummaryTime(c calendar.Clock) {
	e.mu.Lock()
	e.rule.SummaryTime = c
	e.mu.Unlock()
	e.logger.WithField("summary_time", c.String()).Info("Summary time updated")
}

// ShouldSendOn evaluates the recurring rule for date.
func (e *ScheduleEngine) ShouldSendOn(date calendar.Date) bool {
	return e.Rule().ShouldSendOn(date, e.holidays)
}

// Tick runs one evaluation against the engine clock.
func (e *ScheduleEngine) Tick(ctx context.Context) TickReport {
	return e.TickAt(ctx, e.now())
}

// TickAt runs one evaluation for the instant now. Reservations take priority
// over the recurring prompt; the summary check is independent of both.
func (e *ScheduleEngine) TickAt(ctx context.Context, now time.Time) TickReport {
	now = now.In(e.loc)
	today := calendar.DateOf(now)
	current := calendar.ClockOf(now)
	key := minuteKey(now)
	report := TickReport{MinuteKey: key}
	log := e.logger.WithFields(logrus.Fields{"minute": key})

	firePrompt, fireSummary := e.decide(today, current, key, &report)

	if report.MissingPromptCb {
		log.Error("Prompt is due but no prompt callback is registered")
	}
	if report.MissingSummaryCb {
		log.Error("Summary is due but no summary callback is registered")
	}

	if firePrompt != nil {
		if report.Reservation != nil {
			log.WithField("reservation", report.Reservation.String()).Info("Firing reserved prompt")
		} else {
			log.Info("Firing scheduled prompt")
		}
		report.PromptFired = true
		if err := firePrompt(ctx, now); err != nil {
			report.PromptErr = err
			log.WithError(err).Error("Prompt callback failed")
		}
	}

	if fireSummary != nil {
		log.Info("Firing scheduled summary")
		report.SummaryFired = true
		if err := fireSummary(ctx, now); err != nil {
			report.SummaryErr = err
			log.WithError(err).Error("Summary callback failed")
		}
	}

	return report
}

// decide updates guards and reservations under the lock and returns the
// callbacks to run once the lock is released.
func (e *ScheduleEngine) decide(today calendar.Date, current calendar.Clock, key string, report *TickReport) (prompt, summary FireFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()

	reserved := schedule.Reservation{Date: today, Time: current}
	_, hasReservation := e.reservations[reserved]

	switch {
	case hasReservation:
		if e.lastPromptMinute == key {
			report.PromptSkippedDup = true
			break
		}
		if e.onPrompt == nil {
			report.MissingPromptCb = true
			break
		}
		delete(e.reservations, reserved)
		e.lastPromptMinute = key
		report.Reservation = &reserved
		prompt = e.onPrompt

	case current == e.rule.PromptTime:
		if e.lastPromptMinute == key {
			report.PromptSkippedDup = true
			break
		}
		if !e.rule.ShouldSendOn(today, e.holidays) {
			e.logger.WithFields(logrus.Fields{
				"date":    today.String(),
				"weekday": today.Weekday().String(),
			}).Info("Prompt time reached but today is not a send day")
			break
		}
		if e.onPrompt == nil {
			report.MissingPromptCb = true
			break
		}
		e.lastPromptMinute = key
		prompt = e.onPrompt
	}

	if current == e.rule.SummaryTime {
		switch {
		case e.lastSummaryMinute == key:
			report.SummarySkippedDup = true
		case e.onSummary == nil:
			report.MissingSummaryCb = true
		default:
			e.lastSummaryMinute = key
			summary = e.onSummary
		}
	}
	return prompt, summary
}

// AddReservation registers a one-off prompt. Callers must have checked that
// the instant lies in the future; a duplicate (date, time) simply replaces
// the existing entry.
func (e *ScheduleEngine) AddReservation(date calendar.Date, at calendar.Clock) schedule.Reservation {
	r := schedule.Reservation{Date: date, Time: at}
	e.mu.Lock()
	e.reservations[r] = struct{}{}
	e.mu.Unlock()
	e.logger.WithField("reservation", r.String()).Info("Reservation added")
	return r
}

// RemoveReservation drops the reservation at (date, at), or every
// reservation of date when at is nil, and returns how many were removed.
func (e *ScheduleEngine) RemoveReservation(date calendar.Date, at *calendar.Clock) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	removed := 0
	for r := range e.reservations {
		if r.Date != date || (at != nil && r.Time != *at) {
			continue
		}
		delete(e.reservations, r)
		removed++
	}
	if removed > 0 {
		e.logger.WithFields(logrus.Fields{"date": date.String(), "removed": removed}).Info("Reservations cancelled")
	}
	return removed
}

// Reservations lists pending reservations by (date, time) ascending.
func (e *ScheduleEngine) Reservations() []schedule.Reservation {
	e.mu.Lock()
	list := make([]schedule.Reservation, 0, len(e.reservations))
	for r := range e.reservations {
		list = append(list, r)
	}
	e.mu.Unlock()

	schedule.SortReservations(list)
	return list
}

// CheckScheduleForDate is a dry run of every trigger for date.
func (e *ScheduleEngine) CheckScheduleForDate(date calendar.Date) schedule.CheckResult {
	var times []calendar.Clock
	for _, r := range e.Reservations() {
		if r.Date == date {
			times = append(times, r.Time)
		}
	}
	return schedule.Evaluate(e.Rule(), date, e.holidays, times)
}

// NextSendDatetime scans tomorrow and the following days of the horizon for
// the first recurring send day and returns its prompt instant.
func (e *ScheduleEngine) NextSendDatetime() (time.Time, bool) {
	rule := e.Rule()
	today := calendar.DateOf(e.Now())
	for i := 1; i <= nextSendHorizonDays; i++ {
		d := today.AddDays(i)
		if rule.ShouldSendOn(d, e.holidays) {
			return d.At(rule.PromptTime, e.loc), true
		}
	}
	return time.Time{}, false
}

func minuteKey(t time.Time) string {
	return fmt.Sprintf("%d-%d-%d-%d-%d", t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute())
}
