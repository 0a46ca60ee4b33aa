package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"attendance_poll_bot/internal/domain/calendar"
	"attendance_poll_bot/internal/domain/schedule"

	"github.com/sirupsen/logrus"
)

type stubEngine struct {
	rule         schedule.Rule
	reservations []schedule.Reservation
	next         time.Time
}

func (s stubEngine) Rule() schedule.Rule                  { return s.rule }
func (s stubEngine) Reservations() []schedule.Reservation { return s.reservations }
func (s stubEngine) NextSendDatetime() (time.Time, bool)  { return s.next, !s.next.IsZero() }

type stubPinger struct{ err error }

func (p stubPinger) PingContext(context.Context) error { return p.err }

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newStubEngine() stubEngine {
	days, _ := schedule.WeekdaysFromIndexes([]int{4, 5})
	jst := time.FixedZone("JST", 9*60*60)
	return stubEngine{
		rule: schedule.Rule{
			Weekdays:           days,
			SendBeforeHolidays: true,
			PromptTime:         calendar.MustClock("20:00"),
			SummaryTime:        calendar.MustClock("22:00"),
		},
		reservations: []schedule.Reservation{
			{Date: calendar.NewDate(2025, time.November, 24), Time: calendar.MustClock("09:00")},
		},
		next: time.Date(2025, time.November, 28, 20, 0, 0, 0, jst),
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		db       Pinger
		wantCode int
		want     string
	}{
		{name: "file storage", db: nil, wantCode: http.StatusOK, want: "healthy"},
		{name: "database up", db: stubPinger{}, wantCode: http.StatusOK, want: "healthy"},
		{name: "database down", db: stubPinger{err: errors.New("refused")}, wantCode: http.StatusServiceUnavailable, want: "degraded"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			router := NewRouter(newStubEngine(), tc.db, quietLogger())
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			if rec.Code != tc.wantCode {
				t.Fatalf("expected status %d, got %d", tc.wantCode, rec.Code)
			}
			var body HealthResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Status != tc.want || body.NextSendAt != "2025-11-28T20:00:00+09:00" {
				t.Fatalf("unexpected body %+v", body)
			}
			if (tc.db == nil) != (body.DBConnected == nil) {
				t.Fatalf("db_connected must only be reported with a database, got %+v", body)
			}
		})
	}
}

func TestStatus(t *testing.T) {
	t.Parallel()
	router := NewRouter(newStubEngine(), nil, quietLogger())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body StatusResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.PromptTime != "20:00" || body.SummaryTime != "22:00" || !body.SendBeforeHolidays {
		t.Fatalf("unexpected rule in %+v", body)
	}
	if len(body.Weekdays) != 2 || body.Weekdays[0] != "Friday" || body.Weekdays[1] != "Saturday" {
		t.Fatalf("unexpected weekdays %v", body.Weekdays)
	}
	if body.ReservationsCount != 1 || body.Reservations[0] != "2025-11-24 09:00" {
		t.Fatalf("unexpected reservations %+v", body)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/status", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for POST, got %d", rec.Code)
	}
}
