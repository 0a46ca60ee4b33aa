package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"attendance_poll_bot/internal/domain/attendance"
	"attendance_poll_bot/internal/domain/calendar"

	"github.com/sirupsen/logrus"
)

type responseBuckets map[calendar.Date][]*attendance.Response

// JSONResponseRepository stores responses as {"YYYY-MM-DD": [response, ...]}.
// The file is re-read on every call so manual edits are picked up; a single
// mutex makes each load-modify-save atomic with respect to the others.
type JSONResponseRepository struct {
	path   string
	logger *logrus.Entry
	mu     sync.Mutex
}

func NewJSONResponseRepository(path string, logger *logrus.Entry) *JSONResponseRepository {
	return &JSONResponseRepository{path: path, logger: logger}
}

func (r *JSONResponseRepository) Upsert(ctx context.Context, date calendar.Date, answer attendance.Answer, at time.Time) (*attendance.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	buckets, err := r.loadForWrite(at)
	if err != nil {
		return nil, err
	}
	var saved *attendance.Response
	for _, existing := range buckets[date] {
		if existing.UserID == answer.UserID {
			saved = existing
			break
		}
	}
	if saved == nil {
		saved = &attendance.Response{UserID: answer.UserID, CreatedAt: at}
		buckets[date] = append(buckets[date], saved)
	}
	if answer.DisplayName != "" {
		saved.DisplayName = answer.DisplayName
	}
	saved.CanAttend = answer.CanAttend
	saved.StartTime = answer.StartTime
	saved.EndTime = answer.EndTime
	saved.UpdatedAt = at

	if err := writeJSON(r.path, buckets); err != nil {
		return nil, err
	}
	out := *saved
	return &out, nil
}

func (r *JSONResponseRepository) ListByDate(ctx context.Context, date calendar.Date) ([]*attendance.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()[date], nil
}

// load never fails: unreadable or corrupt content is logged and treated as empty.
func (r *JSONResponseRepository) load() responseBuckets {
	buckets := make(responseBuckets)
	if err := readJSON(r.path, &buckets); err != nil {
		r.logger.WithError(err).WithField("path", r.path).Warn("Responses file unreadable, treating it as empty")
		return make(responseBuckets)
	}
	return buckets
}

// loadForWrite is load for mutations. A corrupt file is moved aside first and
// other read errors abort the write.
func (r *JSONResponseRepository) loadForWrite(at time.Time) (responseBuckets, error) {
	buckets := make(responseBuckets)
	err := readJSON(r.path, &buckets)
	if err == nil {
		return buckets, nil
	}
	if !errors.Is(err, ErrCorruptFile) {
		return nil, err
	}
	aside, moveErr := moveAside(r.path, at)
	if moveErr != nil {
		return nil, moveErr
	}
	r.logger.WithError(err).WithFields(logrus.Fields{"path": r.path, "moved_to": aside}).Warn("Corrupt responses file moved aside")
	return make(responseBuckets), nil
}
