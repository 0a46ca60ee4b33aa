package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"attendance_poll_bot/internal/domain/calendar"
)

const adminChat int64 = -100

func newAdminFixture(now time.Time) (*AdminService, *ScheduleEngine, *recordingClient) {
	clock := newFakeClock(now)
	holidays := NewHolidayRegistry(context.Background(), newMemoryHolidays(nil), quietLogger())
	engine := NewScheduleEngine(friSat(true), holidays, jst, clock.Now, quietLogger())
	client := &recordingClient{}
	svc := NewAttendanceService(newMemoryResponses(), clock.Now, quietLogger())
	polls := NewPollService(client, svc, adminChat, jst, quietLogger())
	return NewAdminService(engine, holidays, polls, svc, adminChat), engine, client
}

func TestAdminService_Authorize(t *testing.T) {
	t.Parallel()
	admin, _, _ := newAdminFixture(at(2025, time.November, 24, 10, 0, 0))
	ctx := context.Background()

	if err := admin.Authorize(adminChat); err != nil {
		t.Fatalf("configured chat rejected: %v", err)
	}
	if err := admin.SetPromptTime(42, calendar.MustClock("19:00")); !errors.Is(err, ErrChatNotAllowed) {
		t.Fatalf("expected ErrChatNotAllowed, got %v", err)
	}
	if err := admin.AddHoliday(ctx, 42, calendar.NewDate(2025, time.December, 1), ""); !errors.Is(err, ErrChatNotAllowed) {
		t.Fatalf("expected ErrChatNotAllowed, got %v", err)
	}
	if err := admin.SendPromptNow(ctx, 42); !errors.Is(err, ErrChatNotAllowed) {
		t.Fatalf("expected ErrChatNotAllowed, got %v", err)
	}

	open := NewAdminService(nil, nil, nil, nil, 0)
	if err := open.Authorize(42); err != nil {
		t.Fatalf("allowedChatID 0 must accept any chat: %v", err)
	}
}

func TestAdminService_Times(t *testing.T) {
	t.Parallel()
	admin, _, _ := newAdminFixture(at(2025, time.November, 24, 10, 0, 0))

	if err := admin.SetPromptTime(adminChat, calendar.MustClock("19:30")); err != nil {
		t.Fatalf("set prompt time: %v", err)
	}
	if err := admin.SetSummaryTime(adminChat, calendar.MustClock("23:00")); err != nil {
		t.Fatalf("set summary time: %v", err)
	}
	times, err := admin.Times(adminChat)
	if err != nil {
		t.Fatalf("times: %v", err)
	}
	if times.PromptTime.String() != "19:30" || times.SummaryTime.String() != "23:00" {
		t.Fatalf("unexpected times %+v", times)
	}
	if !times.HasNextSend || !times.NextSend.Equal(at(2025, time.November, 28, 19, 30, 0)) {
		t.Fatalf("unexpected next send %v", times.NextSend)
	}
}

func TestAdminService_Reservations(t *testing.T) {
	t.Parallel()
	admin, engine, _ := newAdminFixture(at(2025, time.November, 24, 10, 0, 0))
	monday := calendar.NewDate(2025, time.November, 24)

	if _, err := admin.Reserve(adminChat, monday, calendar.MustClock("10:00")); !errors.Is(err, ErrReservationInPast) {
		t.Fatalf("expected the current minute to count as past, got %v", err)
	}
	if _, err := admin.Reserve(adminChat, monday, calendar.MustClock("09:00")); !errors.Is(err, ErrReservationInPast) {
		t.Fatalf("expected ErrReservationInPast, got %v", err)
	}
	r, err := admin.Reserve(adminChat, monday, calendar.MustClock("10:01"))
	if err != nil || r.String() != "2025-11-24 10:01" {
		t.Fatalf("reserve: %v, %v", r, err)
	}
	list, _ := admin.Reservations(adminChat)
	if len(list) != 1 || len(engine.Reservations()) != 1 {
		t.Fatalf("unexpected reservations %v", list)
	}

	res, err := admin.CheckSchedule(adminChat, monday)
	if err != nil || !res.Scheduled || !res.WillSend {
		t.Fatalf("check schedule: %+v, %v", res, err)
	}

	if _, err := admin.CancelReservation(adminChat, monday.AddDays(1), nil); !errors.Is(err, ErrReservationNotFound) {
		t.Fatalf("expected ErrReservationNotFound, got %v", err)
	}
	if n, err := admin.CancelReservation(adminChat, monday, nil); err != nil || n != 1 {
		t.Fatalf("cancel: %d, %v", n, err)
	}
}

func TestAdminService_ManualPromptAndSummary(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	admin, _, client := newAdminFixture(at(2025, time.November, 24, 10, 0, 0))

	if err := admin.SendPromptNow(ctx, adminChat); err != nil {
		t.Fatalf("send prompt now: %v", err)
	}
	if len(client.messages()) != 1 {
		t.Fatalf("expected a prompt to be sent")
	}
	summary, err := admin.SummaryNow(ctx, adminChat, admin.Today())
	if err != nil || summary.Date != calendar.NewDate(2025, time.November, 24) || summary.TotalResponses != 0 {
		t.Fatalf("summary now: %+v, %v", summary, err)
	}
}

func TestAdminService_Holidays(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	admin, engine, _ := newAdminFixture(at(2025, time.November, 24, 10, 0, 0))
	dec := calendar.NewDate(2025, time.December, 31)
	jan := calendar.NewDate(2026, time.January, 1)

	for d, label := range map[calendar.Date]string{dec: "大晦日", jan: "元日"} {
		if err := admin.AddHoliday(ctx, adminChat, d, label); err != nil {
			t.Fatalf("add %s: %v", d, err)
		}
	}
	if got, _ := admin.Holidays(adminChat, 2026); len(got) != 1 || got[jan] != "元日" {
		t.Fatalf("unexpected 2026 holidays %v", got)
	}
	if got, _ := admin.Holidays(adminChat, 0); len(got) != 2 {
		t.Fatalf("unexpected holiday list %v", got)
	}
	if !engine.ShouldSendOn(dec) {
		t.Fatalf("the day before New Year should be a send day")
	}
	if err := admin.RemoveHoliday(ctx, adminChat, jan); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if engine.ShouldSendOn(dec) {
		t.Fatalf("removing the holiday must disable its eve")
	}
}
