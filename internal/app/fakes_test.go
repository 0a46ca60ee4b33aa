package app

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"attendance_poll_bot/internal/domain/attendance"
	"attendance_poll_bot/internal/domain/calendar"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

var errBoom = errors.New("boom")

var jst = time.FixedZone("JST", 9*60*60)

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func clockPtr(s string) *calendar.Clock {
	c := calendar.MustClock(s)
	return &c
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// memoryResponses is an in-memory attendance.Repository.
type memoryResponses struct {
	mu      sync.Mutex
	buckets map[calendar.Date][]*attendance.Response
	failPut bool
}

func newMemoryResponses() *memoryResponses {
	return &memoryResponses{buckets: make(map[calendar.Date][]*attendance.Response)}
}

func (m *memoryResponses) Upsert(_ context.Context, date calendar.Date, a attendance.Answer, at time.Time) (*attendance.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPut {
		return nil, errBoom
	}
	for _, r := range m.buckets[date] {
		if r.UserID == a.UserID {
			r.CanAttend, r.StartTime, r.EndTime, r.UpdatedAt = a.CanAttend, a.StartTime, a.EndTime, at
			if a.DisplayName != "" {
				r.DisplayName = a.DisplayName
			}
			cp := *r
			return &cp, nil
		}
	}
	r := &attendance.Response{UserID: a.UserID, DisplayName: a.DisplayName, CanAttend: a.CanAttend, StartTime: a.StartTime, EndTime: a.EndTime, CreatedAt: at, UpdatedAt: at}
	m.buckets[date] = append(m.buckets[date], r)
	cp := *r
	return &cp, nil
}

func (m *memoryResponses) ListByDate(_ context.Context, date calendar.Date) ([]*attendance.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*attendance.Response, 0, len(m.buckets[date]))
	for _, r := range m.buckets[date] {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

// memoryHolidays is an in-memory holiday.Repository that can be told to fail.
type memoryHolidays struct {
	mu       sync.Mutex
	table    map[calendar.Date]string
	failLoad bool
	failPut  bool
	writes   int
}

func newMemoryHolidays(seed map[calendar.Date]string) *memoryHolidays {
	table := make(map[calendar.Date]string, len(seed))
	for d, l := range seed {
		table[d] = l
	}
	return &memoryHolidays{table: table}
}

func (m *memoryHolidays) LoadAll(context.Context) (map[calendar.Date]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failLoad {
		return nil, errBoom
	}
	out := make(map[calendar.Date]string, len(m.table))
	for d, l := range m.table {
		out[d] = l
	}
	return out, nil
}

func (m *memoryHolidays) Put(_ context.Context, d calendar.Date, label string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPut {
		return errBoom
	}
	m.writes++
	m.table[d] = label
	return nil
}

func (m *memoryHolidays) Delete(_ context.Context, d calendar.Date) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPut {
		return errBoom
	}
	m.writes++
	delete(m.table, d)
	return nil
}

type sentMessage struct {
	chatID  int64
	text    string
	options *telebot.SendOptions
}

// recordingClient captures outgoing messages.
type recordingClient struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (c *recordingClient) SendMessage(chatID int64, text string, options *telebot.SendOptions) (*telebot.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	c.sent = append(c.sent, sentMessage{chatID: chatID, text: text, options: options})
	return &telebot.Message{ID: len(c.sent)}, nil
}

func (c *recordingClient) messages() []sentMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sentMessage(nil), c.sent...)
}
