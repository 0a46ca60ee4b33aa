package app

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"sync"
	"time"

	"attendance_poll_bot/internal/domain/attendance"
	"attendance_poll_bot/internal/domain/calendar"
	domainTelegram "attendance_poll_bot/internal/domain/telegram"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const notSet = "未設定"

// PollService delivers prompts and summaries to the configured chat. Its
// SendPrompt and SendScheduledSummary methods are the engine callbacks.
type PollService struct {
	client     domainTelegram.Client
	attendance *AttendanceService
	chatID     int64
	loc        *time.Location
	logger     *logrus.Entry

	mu       sync.Mutex
	prompted map[calendar.Date]struct{}
}

func NewPollService(client domainTelegram.Client, attendanceService *AttendanceService, chatID int64, loc *time.Location, logger *logrus.Entry) *PollService {
	return &PollService{
		client:     client,
		attendance: attendanceService,
		chatID:     chatID,
		loc:        loc,
		logger:     logger,
		prompted:   make(map[calendar.Date]struct{}),
	}
}

// SendPrompt posts the attendance question for the date of firedAt.
func (s *PollService) SendPrompt(ctx context.Context, firedAt time.Time) error {
	date := calendar.DateOf(firedAt.In(s.loc))
	text, markup := PromptMessage(date)

	msg, err := s.client.SendMessage(s.chatID, text, &telebot.SendOptions{ReplyMarkup: markup, ParseMode: telebot.ModeHTML})
	if err != nil {
		s.logger.WithError(err).WithField("date", date.String()).Error("Failed to send attendance prompt")
		return fmt.Errorf("failed to send prompt for %s: %w", date, err)
	}

	s.mu.Lock()
	s.prompted[date] = struct{}{}
	s.mu.Unlock()

	entry := s.logger.WithField("date", date.String())
	if msg != nil {
		entry = entry.WithField("message_id", msg.ID)
	}
	entry.Info("Attendance prompt sent")
	return nil
}

// WasPrompted reports whether a prompt went out for date since the last summary.
func (s *PollService) WasPrompted(date calendar.Date) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.prompted[date]
	return ok
}

// SendScheduledSummary posts the summary for the date of firedAt, once, and
// only if a prompt was sent for that date.
func (s *PollService) SendScheduledSummary(ctx context.Context, firedAt time.Time) error {
	date := calendar.DateOf(firedAt.In(s.loc))

	s.mu.Lock()
	_, ok := s.prompted[date]
	s.mu.Unlock()
	if !ok {
		s.logger.WithField("date", date.String()).Info("No prompt sent for this date, skipping scheduled summary")
		return nil
	}

	if err := s.SendSummary(ctx, date); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.prompted, date)
	s.mu.Unlock()
	return nil
}

// SendSummary posts the aggregated answers for date.
func (s *PollService) SendSummary(ctx context.Context, date calendar.Date) error {
	summary, err := s.attendance.Summary(ctx, date)
	if err != nil {
		return fmt.Errorf("failed to build summary for %s: %w", date, err)
	}

	if _, err := s.client.SendMessage(s.chatID, RenderSummary(summary), &telebot.SendOptions{ParseMode: telebot.ModeHTML}); err != nil {
		s.logger.WithError(err).WithField("date", date.String()).Error("Failed to send summary")
		return fmt.Errorf("failed to send summary for %s: %w", date, err)
	}
	s.logger.WithFields(logrus.Fields{
		"date":             date.String(),
		"total_responses":  summary.TotalResponses,
		"attendable_count": summary.AttendableCount,
	}).Info("Summary sent")
	return nil
}

// PromptMessage builds the question text and its two answer buttons. The
// button payload carries the event date so any later click can be resolved
// without server-side prompt state.
func PromptMessage(date calendar.Date) (string, *telebot.ReplyMarkup) {
	text := fmt.Sprintf("<b>参加可否の確認</b>\n%d年%02d月%02d日に参加可能ですか？", date.Year, int(date.Month), date.Day)

	markup := &telebot.ReplyMarkup{}
	btnYes := markup.Data("✅ 参加可能", domainTelegram.UniqueCanAttend, date.String())
	btnNo := markup.Data("❌ 参加不可", domainTelegram.UniqueCannotAttend, date.String())
	markup.Inline(markup.Row(btnYes, btnNo))
	return text, markup
}

// RenderSummary formats a summary as Telegram HTML.
func RenderSummary(summary *attendance.Summary) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("<b>%s の集計結果</b>\n", summary.Date))
	b.WriteString(fmt.Sprintf("総回答数: %d件\n", summary.TotalResponses))
	b.WriteString(fmt.Sprintf("参加可能: %d人\n", summary.AttendableCount))
	b.WriteString(fmt.Sprintf("参加不可: %d人\n", summary.NotAttendableCount))
	b.WriteString("\n<b>参加可能なユーザー</b>\n")

	if len(summary.AttendableUsers) == 0 {
		b.WriteString("なし")
		return b.String()
	}
	for _, u := range summary.AttendableUsers {
		b.WriteString(fmt.Sprintf("%s: %s ～ %s\n", mention(u.UserID, u.DisplayName), clockOrNotSet(u.StartTime), clockOrNotSet(u.EndTime)))
	}
	return strings.TrimRight(b.String(), "\n")
}

// mention links to the user. Answers saved without a name show the id.
func mention(userID int64, name string) string {
	if name == "" {
		name = strconv.FormatInt(userID, 10)
	}
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, userID, html.EscapeString(name))
}

func clockOrNotSet(c *calendar.Clock) string {
	if c == nil {
		return notSet
	}
	return c.String()
}
