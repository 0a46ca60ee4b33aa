package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"attendance_poll_bot/internal/domain/attendance"
	"attendance_poll_bot/internal/domain/calendar"
	domainTelegram "attendance_poll_bot/internal/domain/telegram"
)

func newPollFixture() (*PollService, *recordingClient, *AttendanceService) {
	client := &recordingClient{}
	svc := NewAttendanceService(newMemoryResponses(), nil, quietLogger())
	return NewPollService(client, svc, -100, jst, quietLogger()), client, svc
}

func TestPollService_SendPrompt(t *testing.T) {
	t.Parallel()
	polls, client, _ := newPollFixture()

	// 11:00 UTC is 20:00 in Tokyo on the same date.
	if err := polls.SendPrompt(context.Background(), time.Date(2025, time.November, 28, 11, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("send prompt: %v", err)
	}
	sent := client.messages()
	if len(sent) != 1 || sent[0].chatID != -100 {
		t.Fatalf("unexpected messages %+v", sent)
	}
	if !strings.Contains(sent[0].text, "2025年11月28日") {
		t.Fatalf("prompt text does not name the date: %q", sent[0].text)
	}
	markup := sent[0].options.ReplyMarkup
	if markup == nil || len(markup.InlineKeyboard) != 1 || len(markup.InlineKeyboard[0]) != 2 {
		t.Fatalf("expected one row of two buttons, got %+v", markup)
	}
	yes := markup.InlineKeyboard[0][0]
	if yes.Unique != domainTelegram.UniqueCanAttend || yes.Data != "2025-11-28" {
		t.Fatalf("unexpected yes button %+v", yes)
	}
	if !polls.WasPrompted(calendar.NewDate(2025, time.November, 28)) {
		t.Fatalf("expected the date to be marked as prompted")
	}
}

func TestPollService_SendPromptFailure(t *testing.T) {
	t.Parallel()
	polls, client, _ := newPollFixture()
	client.err = errBoom

	err := polls.SendPrompt(context.Background(), at(2025, time.November, 28, 20, 0, 0))
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected send error, got %v", err)
	}
	if polls.WasPrompted(calendar.NewDate(2025, time.November, 28)) {
		t.Fatalf("a failed send must not mark the date")
	}
}

func TestPollService_ScheduledSummaryNeedsPrompt(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	polls, client, svc := newPollFixture()
	friday := calendar.NewDate(2025, time.November, 28)

	if err := polls.SendScheduledSummary(ctx, at(2025, time.November, 28, 22, 0, 0)); err != nil {
		t.Fatalf("summary without prompt: %v", err)
	}
	if len(client.messages()) != 0 {
		t.Fatalf("summary must be skipped when no prompt went out")
	}

	if err := polls.SendPrompt(ctx, at(2025, time.November, 28, 20, 0, 0)); err != nil {
		t.Fatalf("prompt: %v", err)
	}
	if _, err := svc.SaveResponse(ctx, 5, "", friday, true, clockPtr("20:30"), nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := polls.SendScheduledSummary(ctx, at(2025, time.November, 28, 22, 0, 0)); err != nil {
		t.Fatalf("summary: %v", err)
	}
	sent := client.messages()
	if len(sent) != 2 || !strings.Contains(sent[1].text, "参加可能: 1人") {
		t.Fatalf("expected the summary after the prompt, got %+v", sent)
	}
	if polls.WasPrompted(friday) {
		t.Fatalf("prompted mark must be cleared after the summary")
	}

	if err := polls.SendScheduledSummary(ctx, at(2025, time.November, 28, 22, 0, 0)); err != nil {
		t.Fatalf("second summary: %v", err)
	}
	if len(client.messages()) != 2 {
		t.Fatalf("summary must only be sent once per prompt")
	}
}

func TestRenderSummary(t *testing.T) {
	t.Parallel()

	t.Run("with users", func(t *testing.T) {
		out := RenderSummary(&attendance.Summary{
			Date:               calendar.NewDate(2025, time.November, 28),
			TotalResponses:     3,
			AttendableCount:    2,
			NotAttendableCount: 1,
			AttendableUsers: []attendance.AttendableUser{
				{UserID: 11, DisplayName: "Aki <T>", StartTime: clockPtr("20:00"), EndTime: clockPtr("23:00")},
				{UserID: 12},
			},
		})
		for _, want := range []string{
			"2025-11-28 の集計結果",
			"総回答数: 3件",
			"参加可能: 2人",
			"参加不可: 1人",
			`<a href="tg://user?id=11">Aki &lt;T&gt;</a>: 20:00 ～ 23:00`,
			`<a href="tg://user?id=12">12</a>: 未設定 ～ 未設定`,
		} {
			if !strings.Contains(out, want) {
				t.Fatalf("summary missing %q:\n%s", want, out)
			}
		}
		if strings.HasSuffix(out, "\n") {
			t.Fatalf("summary must not end with a newline")
		}
	})

	t.Run("empty", func(t *testing.T) {
		out := RenderSummary(&attendance.Summary{Date: calendar.NewDate(2025, time.November, 28)})
		if !strings.HasSuffix(out, "なし") || !strings.Contains(out, "総回答数: 0件") {
			t.Fatalf("unexpected empty summary:\n%s", out)
		}
	})
}
