package app

import (
	"context"
	"fmt"
	"sync"

	"attendance_poll_bot/internal/domain/calendar"
	"attendance_poll_bot/internal/domain/holiday"

	"github.com/sirupsen/logrus"
)

// HolidayRegistry serves holiday lookups from memory and writes every
// mutation through to the repository before touching the cache.
type HolidayRegistry struct {
	repo   holiday.Repository
	logger *logrus.Entry

	mu       sync.RWMutex
	holidays map[calendar.Date]string
}

// NewHolidayRegistry loads the holiday table once. A load failure yields an
// empty registry; it is logged, not returned.
func NewHolidayRegistry(ctx context.Context, repo holiday.Repository, logger *logrus.Entry) *HolidayRegistry {
	r := &HolidayRegistry{
		repo:     repo,
		logger:   logger,
		holidays: make(map[calendar.Date]string),
	}

	loaded, err := repo.LoadAll(ctx)
	if err != nil {
		logger.WithError(err).Warn("Could not load holidays, starting with an empty registry")
		return r
	}
	for d, label := range loaded {
		r.holidays[d] = label
	}
	logger.WithField("holidays_count", len(r.holidays)).Info("Holiday registry loaded")
	return r
}

func (r *HolidayRegistry) IsHoliday(date calendar.Date) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.holidays[date]
	return ok
}

// Label returns the label of a holiday, ok is false when date is not one.
func (r *HolidayRegistry) Label(date calendar.Date) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	label, ok := r.holidays[date]
	return label, ok
}

// HolidayBefore reports whether the day after date is a holiday and returns
// that holiday's label.
func (r *HolidayRegistry) HolidayBefore(date calendar.Date) (string, bool) {
	return r.Label(date.AddDays(1))
}

// Add creates or relabels a holiday.
func (r *HolidayRegistry) Add(ctx context.Context, date calendar.Date, label string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.repo.Put(ctx, date, label); err != nil {
		return fmt.Errorf("failed to persist holiday %s: %w", date, err)
	}
	r.holidays[date] = label
	r.logger.WithFields(logrus.Fields{"date": date.String(), "label": label}).Info("Holiday added")
	return nil
}

// Remove deletes a holiday. Removing a date that is not registered is a no-op.
func (r *HolidayRegistry) Remove(ctx context.Context, date calendar.Date) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.holidays[date]; !ok {
		return nil
	}
	if err := r.repo.Delete(ctx, date); err != nil {
		return fmt.Errorf("failed to delete holiday %s: %w", date, err)
	}
	delete(r.holidays, date)
	r.logger.WithField("date", date.String()).Info("Holiday removed")
	return nil
}

// InYear returns a copy of the holidays that fall in year.
func (r *HolidayRegistry) InYear(year int) map[calendar.Date]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[calendar.Date]string)
	for d, label := range r.holidays {
		if d.Year == year {
			out[d] = label
		}
	}
	return out
}

// All returns a copy of every registered holiday.
func (r *HolidayRegistry) All() map[calendar.Date]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[calendar.Date]string, len(r.holidays))
	for d, label := range r.holidays {
		out[d] = label
	}
	return out
}
