package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"attendance_poll_bot/internal/domain/calendar"

	"github.com/sirupsen/logrus"
)

// JSONHolidayRepository stores holidays as {"YYYY-MM-DD": "label"}.
type JSONHolidayRepository struct {
	path   string
	logger *logrus.Entry
	mu     sync.Mutex
}

func NewJSONHolidayRepository(path string, logger *logrus.Entry) *JSONHolidayRepository {
	return &JSONHolidayRepository{path: path, logger: logger}
}

func (r *JSONHolidayRepository) LoadAll(ctx context.Context) (map[calendar.Date]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

func (r *JSONHolidayRepository) Put(ctx context.Context, date calendar.Date, label string) error {
	return r.mutate(func(h map[calendar.Date]string) { h[date] = label })
}

func (r *JSONHolidayRepository) Delete(ctx context.Context, date calendar.Date) error {
	return r.mutate(func(h map[calendar.Date]string) { delete(h, date) })
}

// mutate is a locked load-modify-save. A corrupt file is moved aside and the
// mutation applies to an empty table, the same table the registry started
// with. Any other read error aborts the write.
func (r *JSONHolidayRepository) mutate(fn func(map[calendar.Date]string)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	holidays, err := r.load()
	if err != nil {
		if !errors.Is(err, ErrCorruptFile) {
			return err
		}
		aside, moveErr := moveAside(r.path, time.Now())
		if moveErr != nil {
			return moveErr
		}
		r.logger.WithError(err).WithFields(logrus.Fields{"path": r.path, "moved_to": aside}).Warn("Corrupt holidays file moved aside")
	}
	fn(holidays)
	return writeJSON(r.path, holidays)
}

func (r *JSONHolidayRepository) load() (map[calendar.Date]string, error) {
	holidays := make(map[calendar.Date]string)
	if err := readJSON(r.path, &holidays); err != nil {
		return make(map[calendar.Date]string), err
	}
	return holidays, nil
}
