package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"attendance_poll_bot/internal/app"
	"attendance_poll_bot/internal/domain/calendar"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// RegisterAdminHandlers registers handlers for the schedule, reservation and
// holiday commands. Every command is authorized against the configured chat
// by the admin service.
func RegisterAdminHandlers(ctx context.Context, b *telebot.Bot, adminService *app.AdminService, baseLogger *logrus.Entry) {
	commandLogger := func(c telebot.Context, command string) *logrus.Entry {
		return baseLogger.WithFields(logrus.Fields{
			"handler":   command,
			"sender_id": c.Sender().ID,
			"chat_id":   c.Chat().ID,
		})
	}

	b.Handle("/set_send_time", func(c telebot.Context) error {
		handlerLogger := commandLogger(c, "/set_send_time")
		handlerLogger.Info("Command received")

		args := c.Args()
		if len(args) != 1 {
			return c.Send("形式が正しくありません。使い方: /set_send_time HH:MM")
		}
		at, err := calendar.ParseClock(args[0])
		if err != nil {
			handlerLogger.WithField("arg", args[0]).Warn("Invalid time format")
			return c.Send("時刻は HH:MM 形式で指定してください。")
		}
		if err := adminService.SetPromptTime(c.Chat().ID, at); err != nil {
			return replyAdminError(c, handlerLogger, err)
		}
		return c.Send(fmt.Sprintf("質問送信時刻を %s に設定しました。", at))
	})

	b.Handle("/set_summary_time", func(c telebot.Context) error {
		handlerLogger := commandLogger(c, "/set_summary_time")
		handlerLogger.Info("Command received")

		args := c.Args()
		if len(args) != 1 {
			return c.Send("形式が正しくありません。使い方: /set_summary_time HH:MM")
		}
		at, err := calendar.ParseClock(args[0])
		if err != nil {
			handlerLogger.WithField("arg", args[0]).Warn("Invalid time format")
			return c.Send("時刻は HH:MM 形式で指定してください。")
		}
		if err := adminService.SetSummaryTime(c.Chat().ID, at); err != nil {
			return replyAdminError(c, handlerLogger, err)
		}
		return c.Send(fmt.Sprintf("集計送信時刻を %s に設定しました。", at))
	})

	b.Handle("/show_times", func(c telebot.Context) error {
		handlerLogger := commandLogger(c, "/show_times")
		handlerLogger.Info("Command received")

		times, err := adminService.Times(c.Chat().ID)
		if err != nil {
			return replyAdminError(c, handlerLogger, err)
		}
		return c.Send(renderTimes(times))
	})

	b.Handle("/check_schedule", func(c telebot.Context) error {
		handlerLogger := commandLogger(c, "/check_schedule")
		handlerLogger.Info("Command received")

		date, ok, err := optionalDateArg(c.Args(), adminService.Today())
		if !ok {
			return c.Send("形式が正しくありません。使い方: /check_schedule YYYY-MM-DD")
		}
		if err != nil {
			return c.Send("日付は YYYY-MM-DD 形式で指定してください。")
		}
		res, err := adminService.CheckSchedule(c.Chat().ID, date)
		if err != nil {
			return replyAdminError(c, handlerLogger, err)
		}
		return c.Send(renderCheck(res))
	})

	b.Handle("/reserve", func(c telebot.Context) error {
		handlerLogger := commandLogger(c, "/reserve")
		handlerLogger.Info("Command received")

		args := c.Args()
		if len(args) != 2 {
			return c.Send("形式が正しくありません。使い方: /reserve YYYY-MM-DD HH:MM")
		}
		date, at, err := parseDateClock(args[0], args[1])
		if err != nil {
			handlerLogger.WithError(err).Warn("Invalid reservation arguments")
			return c.Send("日時は YYYY-MM-DD HH:MM 形式で指定してください。")
		}
		reservation, err := adminService.Reserve(c.Chat().ID, date, at)
		if err != nil {
			return replyAdminError(c, handlerLogger, err)
		}
		handlerLogger.WithField("reservation", reservation.String()).Info("Reservation created")
		return c.Send(fmt.Sprintf("%s %s に質問を送信する予約をしました。", formatDateJP(reservation.Date), reservation.Time))
	})

	b.Handle("/reservations", func(c telebot.Context) error {
		handlerLogger := commandLogger(c, "/reservations")
		handlerLogger.Info("Command received")

		list, err := adminService.Reservations(c.Chat().ID)
		if err != nil {
			return replyAdminError(c, handlerLogger, err)
		}
		return c.Send(renderReservations(list))
	})

	b.Handle("/cancel_reservation", func(c telebot.Context) error {
		handlerLogger := commandLogger(c, "/cancel_reservation")
		handlerLogger.Info("Command received")

		args := c.Args()
		if len(args) < 1 || len(args) > 2 {
			return c.Send("形式が正しくありません。使い方: /cancel_reservation YYYY-MM-DD [HH:MM]")
		}
		date, err := calendar.ParseDate(args[0])
		if err != nil {
			return c.Send("日付は YYYY-MM-DD 形式で指定してください。")
		}
		var at *calendar.Clock
		if len(args) == 2 {
			parsed, err := calendar.ParseClock(args[1])
			if err != nil {
				return c.Send("時刻は HH:MM 形式で指定してください。")
			}
			at = &parsed
		}
		removed, err := adminService.CancelReservation(c.Chat().ID, date, at)
		if err != nil {
			return replyAdminError(c, handlerLogger, err)
		}
		return c.Send(fmt.Sprintf("予約を%d件取り消しました。", removed))
	})

	b.Handle("/send_question", func(c telebot.Context) error {
		handlerLogger := commandLogger(c, "/send_question")
		handlerLogger.Info("Command received")

		if err := adminService.SendPromptNow(ctx, c.Chat().ID); err != nil {
			return replyAdminError(c, handlerLogger, err)
		}
		// The prompt itself is the reply.
		return nil
	})

	b.Handle("/show_summary", func(c telebot.Context) error {
		handlerLogger := commandLogger(c, "/show_summary")
		handlerLogger.Info("Command received")

		date, ok, err := optionalDateArg(c.Args(), adminService.Today())
		if !ok {
			return c.Send("形式が正しくありません。使い方: /show_summary [YYYY-MM-DD]")
		}
		if err != nil {
			return c.Send("日付は YYYY-MM-DD 形式で指定してください。")
		}
		summary, err := adminService.SummaryNow(ctx, c.Chat().ID, date)
		if err != nil {
			return replyAdminError(c, handlerLogger, err)
		}
		return c.Send(app.RenderSummary(summary), &telebot.SendOptions{ParseMode: telebot.ModeHTML})
	})

	b.Handle("/add_holiday", func(c telebot.Context) error {
		handlerLogger := commandLogger(c, "/add_holiday")
		handlerLogger.Info("Command received")

		args := c.Args()
		if len(args) < 1 {
			return c.Send("形式が正しくありません。使い方: /add_holiday YYYY-MM-DD [名称]")
		}
		date, err := calendar.ParseDate(args[0])
		if err != nil {
			return c.Send("日付は YYYY-MM-DD 形式で指定してください。")
		}
		label := strings.Join(args[1:], " ")
		if err := adminService.AddHoliday(ctx, c.Chat().ID, date, label); err != nil {
			return replyAdminError(c, handlerLogger, err)
		}
		return c.Send(fmt.Sprintf("%s を祝日に登録しました。", formatDateJP(date)))
	})

	b.Handle("/remove_holiday", func(c telebot.Context) error {
		handlerLogger := commandLogger(c, "/remove_holiday")
		handlerLogger.Info("Command received")

		args := c.Args()
		if len(args) != 1 {
			return c.Send("形式が正しくありません。使い方: /remove_holiday YYYY-MM-DD")
		}
		date, err := calendar.ParseDate(args[0])
		if err != nil {
			return c.Send("日付は YYYY-MM-DD 形式で指定してください。")
		}
		if err := adminService.RemoveHoliday(ctx, c.Chat().ID, date); err != nil {
			return replyAdminError(c, handlerLogger, err)
		}
		return c.Send(fmt.Sprintf("%s を祝日から削除しました。", formatDateJP(date)))
	})

	b.Handle("/holidays", func(c telebot.Context) error {
		handlerLogger := commandLogger(c, "/holidays")
		handlerLogger.Info("Command received")

		year := 0
		if args := c.Args(); len(args) > 0 {
			parsed, err := strconv.Atoi(args[0])
			if err != nil || parsed < 1 {
				return c.Send("年は YYYY 形式で指定してください。")
			}
			year = parsed
		}
		holidays, err := adminService.Holidays(c.Chat().ID, year)
		if err != nil {
			return replyAdminError(c, handlerLogger, err)
		}
		return c.Send(renderHolidays(holidays, year))
	})
}

// replyAdminError maps service errors to a reply, logging unexpected ones.
func replyAdminError(c telebot.Context, handlerLogger *logrus.Entry, err error) error {
	logWithError := handlerLogger.WithError(err)
	text, expected := adminErrorText(err)
	if expected {
		logWithError.Warn("Command rejected")
	} else {
		logWithError.Error("Command failed")
	}
	return c.Send(text)
}

func adminErrorText(err error) (string, bool) {
	switch {
	case errors.Is(err, app.ErrChatNotAllowed):
		return "このチャットではコマンドを使用できません。", true
	case errors.Is(err, app.ErrReservationInPast):
		return "過去の日時は予約できません。", true
	case errors.Is(err, app.ErrReservationNotFound):
		return "該当する予約はありません。", true
	default:
		return fmt.Sprintf("エラーが発生しました: %s", err.Error()), false
	}
}

// optionalDateArg returns fallback when no argument is given. ok is false
// when there are too many arguments.
func optionalDateArg(args []string, fallback calendar.Date) (calendar.Date, bool, error) {
	switch len(args) {
	case 0:
		return fallback, true, nil
	case 1:
		d, err := calendar.ParseDate(args[0])
		return d, true, err
	default:
		return calendar.Date{}, false, nil
	}
}

func parseDateClock(dateArg, clockArg string) (calendar.Date, calendar.Clock, error) {
	date, err := calendar.ParseDate(dateArg)
	if err != nil {
		return calendar.Date{}, calendar.Clock{}, err
	}
	at, err := calendar.ParseClock(clockArg)
	if err != nil {
		return calendar.Date{}, calendar.Clock{}, err
	}
	return date, at, nil
}
