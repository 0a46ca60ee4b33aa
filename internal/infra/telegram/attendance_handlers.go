package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	"attendance_poll_bot/internal/app"
	"attendance_poll_bot/internal/domain/calendar"
	domainTelegram "attendance_poll_bot/internal/domain/telegram"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

type attendanceHandlers struct {
	ctx      context.Context
	sessions *app.SessionManager
	logger   *logrus.Entry
}

// RegisterAttendanceHandlers wires the prompt buttons and the time picker to
// the session manager.
func RegisterAttendanceHandlers(ctx context.Context, b *telebot.Bot, sessions *app.SessionManager, baseLogger *logrus.Entry) {
	h := &attendanceHandlers{ctx: ctx, sessions: sessions, logger: baseLogger.WithField("handler_group", "attendance")}

	b.Handle(&telebot.Btn{Unique: domainTelegram.UniqueCanAttend}, h.onCanAttend)
	b.Handle(&telebot.Btn{Unique: domainTelegram.UniqueCannotAttend}, h.onCannotAttend)
	b.Handle(&telebot.Btn{Unique: domainTelegram.UniquePickTime}, h.onPickTime)
	b.Handle(&telebot.Btn{Unique: domainTelegram.UniquePickerMode}, h.onPickerMode)
	b.Handle(&telebot.Btn{Unique: domainTelegram.UniqueConfirm}, h.onConfirm)
}

func (h *attendanceHandlers) callbackLogger(c telebot.Context, name string) *logrus.Entry {
	return h.logger.WithFields(logrus.Fields{
		"handler":   name,
		"sender_id": c.Sender().ID,
	})
}

// promptKey identifies the prompt message a callback came from.
func promptKey(c telebot.Context) string {
	if msg := c.Message(); msg != nil {
		return fmt.Sprintf("%d:%d", msg.Chat.ID, msg.ID)
	}
	return c.Callback().MessageID
}

func (h *attendanceHandlers) onCanAttend(c telebot.Context) error {
	log := h.callbackLogger(c, "can_attend")

	date, err := calendar.ParseDate(c.Callback().Data)
	if err != nil {
		log.WithError(err).Warn("Invalid prompt payload")
		return c.Respond(&telebot.CallbackResponse{Text: "無効なボタンです。"})
	}

	userID := c.Sender().ID
	session := h.sessions.Open(promptKey(c), date, userID, displayName(c.Sender()))
	if session.State() == app.StateTimeSelection {
		return c.Respond(&telebot.CallbackResponse{Text: "時間選択のメッセージから回答を続けてください。"})
	}
	if err := session.CanAttend(userID); err != nil {
		return h.respondSessionError(c, log, err)
	}

	snap := session.Snapshot()
	opts := &telebot.SendOptions{ReplyMarkup: PickerMarkup(snap, domainTelegram.PickStart), ParseMode: telebot.ModeHTML}
	if err := c.Send(pickerBody(c.Sender(), snap), opts); err != nil {
		log.WithError(err).Error("Failed to send time picker")
		return c.Respond(&telebot.CallbackResponse{Text: "エラーが発生しました。もう一度お試しください。"})
	}
	log.WithFields(logrus.Fields{"session_id": snap.ID, "date": date.String()}).Info("Time picker sent")
	return c.Respond()
}

func (h *attendanceHandlers) onCannotAttend(c telebot.Context) error {
	log := h.callbackLogger(c, "cannot_attend")

	date, err := calendar.ParseDate(c.Callback().Data)
	if err != nil {
		log.WithError(err).Warn("Invalid prompt payload")
		return c.Respond(&telebot.CallbackResponse{Text: "無効なボタンです。"})
	}

	userID := c.Sender().ID
	session := h.sessions.Open(promptKey(c), date, userID, displayName(c.Sender()))
	if err := session.CannotAttend(h.ctx, userID); err != nil {
		return h.respondSessionError(c, log, err)
	}
	log.WithField("date", date.String()).Info("Recorded cannot attend")
	return c.Respond(&telebot.CallbackResponse{Text: "参加不可で登録しました。"})
}

func (h *attendanceHandlers) onPickTime(c telebot.Context) error {
	log := h.callbackLogger(c, "pick_time")

	args := c.Args() // session id, mode, HH:MM
	if len(args) != 3 {
		log.WithField("data", c.Callback().Data).Warn("Invalid picker payload")
		return c.Respond(&telebot.CallbackResponse{Text: "無効なボタンです。"})
	}
	session, err := h.sessions.Get(args[0])
	if err != nil {
		return h.respondSessionError(c, log, err)
	}
	slot, err := calendar.ParseClock(args[2])
	if err != nil {
		log.WithError(err).Warn("Invalid picker time")
		return c.Respond(&telebot.CallbackResponse{Text: "無効なボタンです。"})
	}

	userID := c.Sender().ID
	if args[1] == domainTelegram.PickEnd {
		err = session.SelectEnd(userID, slot)
	} else {
		err = session.SelectStart(userID, slot)
	}
	if err != nil {
		return h.respondSessionError(c, log, err)
	}
	return h.refreshPicker(c, log, session, args[1])
}

func (h *attendanceHandlers) onPickerMode(c telebot.Context) error {
	log := h.callbackLogger(c, "picker_mode")

	args := c.Args() // session id, mode
	if len(args) != 2 {
		log.WithField("data", c.Callback().Data).Warn("Invalid picker payload")
		return c.Respond(&telebot.CallbackResponse{Text: "無効なボタンです。"})
	}
	session, err := h.sessions.Get(args[0])
	if err != nil {
		return h.respondSessionError(c, log, err)
	}
	snap := session.Snapshot()
	switch {
	case snap.UserID != c.Sender().ID:
		return h.respondSessionError(c, log, app.ErrNotSessionOwner)
	case snap.State == app.StateExpired:
		return h.respondSessionError(c, log, app.ErrSessionExpired)
	case snap.State != app.StateTimeSelection:
		return h.respondSessionError(c, log, app.ErrSessionClosed)
	}
	return h.refreshPicker(c, log, session, args[1])
}

func (h *attendanceHandlers) onConfirm(c telebot.Context) error {
	log := h.callbackLogger(c, "confirm")

	args := c.Args() // session id
	if len(args) != 1 {
		log.WithField("data", c.Callback().Data).Warn("Invalid confirm payload")
		return c.Respond(&telebot.CallbackResponse{Text: "無効なボタンです。"})
	}
	session, err := h.sessions.Get(args[0])
	if err != nil {
		return h.respondSessionError(c, log, err)
	}
	if _, err := session.Confirm(h.ctx, c.Sender().ID); err != nil {
		return h.respondSessionError(c, log, err)
	}

	snap := session.Snapshot()
	if err := c.Edit(ConfirmedText(snap)); err != nil {
		log.WithError(err).Warn("Failed to replace time picker")
	}
	log.WithFields(logrus.Fields{"session_id": snap.ID, "date": snap.Date.String()}).Info("Recorded can attend")
	return c.Respond(&telebot.CallbackResponse{Text: "登録しました。"})
}

func (h *attendanceHandlers) refreshPicker(c telebot.Context, log *logrus.Entry, session *app.Session, mode string) error {
	snap := session.Snapshot()
	opts := &telebot.SendOptions{ReplyMarkup: PickerMarkup(snap, mode), ParseMode: telebot.ModeHTML}
	if err := c.Edit(pickerBody(c.Sender(), snap), opts); err != nil {
		// Re-selecting the current slot leaves the message unchanged and Telegram rejects the edit.
		log.WithError(err).Debug("Time picker not edited")
	}
	return c.Respond()
}

// respondSessionError answers the callback with the message for err. A timed
// out picker is also replaced so it stops offering buttons.
func (h *attendanceHandlers) respondSessionError(c telebot.Context, log *logrus.Entry, err error) error {
	text, closePicker := sessionErrorText(err)
	if closePicker {
		log.WithError(err).Info("Session no longer active")
		if c.Callback().Unique != domainTelegram.UniqueCanAttend && c.Callback().Unique != domainTelegram.UniqueCannotAttend {
			if editErr := c.Edit("時間切れになりました。もう一度「参加可能」を押してください。"); editErr != nil {
				log.WithError(editErr).Debug("Expired picker not edited")
			}
		}
	} else if text == genericErrorText {
		log.WithError(err).Error("Attendance callback failed")
	} else {
		log.WithError(err).Warn("Attendance callback rejected")
	}
	return c.Respond(&telebot.CallbackResponse{Text: text, ShowAlert: !closePicker && text != genericErrorText})
}

const genericErrorText = "エラーが発生しました。もう一度お試しください。"

// sessionErrorText maps session and validation errors to the callback toast.
func sessionErrorText(err error) (text string, closePicker bool) {
	switch {
	case errors.Is(err, app.ErrNotSessionOwner):
		return "これは他の方の回答です。ご自身で「参加可能」を押してください。", false
	case errors.Is(err, app.ErrSessionClosed):
		return "この回答は既に完了しています。", false
	case errors.Is(err, app.ErrSessionExpired), errors.Is(err, app.ErrSessionNotFound):
		return "時間切れです。もう一度「参加可能」を押してください。", true
	case errors.Is(err, app.ErrNoTimeSelected):
		return "開始または終了時刻を選択してください。", false
	case errors.Is(err, calendar.ErrMisalignedTime):
		return "30分単位で選択してください。", false
	case errors.Is(err, app.ErrInvalidTransition):
		return "この操作は現在行えません。", false
	default:
		return genericErrorText, false
	}
}

func pickerBody(u *telebot.User, snap app.SessionSnapshot) string {
	return fmt.Sprintf("%s さん\n%s", mentionHTML(u), html.EscapeString(PickerText(snap)))
}

func mentionHTML(u *telebot.User) string {
	name := displayName(u)
	if name == "" {
		name = strconv.FormatInt(u.ID, 10)
	}
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, u.ID, html.EscapeString(name))
}

// displayName is the first and last name, or the username when both are empty.
func displayName(u *telebot.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.Username
	}
	return name
}
