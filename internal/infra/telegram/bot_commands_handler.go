// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func RegisterBotCommands(b *telebot.Bot, baseLogger *logrus.Entry) {
	startHelpLogger := baseLogger.WithField("handler_group", "start_help")

	b.Handle("/start", func(c telebot.Context) error {
		logCtx := startHelpLogger.WithField("command", "/start").WithField("sender_id", c.Sender().ID)
		logCtx.Info("Processing /start command")
		return c.Send("参加確認ボットです。設定された曜日と祝日前日に参加可否を質問し、集計結果をお知らせします。/help でコマンド一覧を表示します。")
	})

	b.Handle("/help", func(c telebot.Context) error {
		logCtx := startHelpLogger.WithField("command", "/help").WithField("sender_id", c.Sender().ID)
		logCtx.Info("Processing /help command")
		return c.Send(helpText())
	})
}

func helpText() string {
	var helpText strings.Builder
	helpText.WriteString("利用できるコマンド:\n\n")
	helpText.WriteString("/show_times - 送信時刻と次回送信日時を表示\n")
	helpText.WriteString("/set_send_time HH:MM - 質問送信時刻を設定\n")
	helpText.WriteString("/set_summary_time HH:MM - 集計送信時刻を設定\n")
	helpText.WriteString("/check_schedule YYYY-MM-DD - 指定日に送信されるか確認\n\n")
	helpText.WriteString("/reserve YYYY-MM-DD HH:MM - 臨時の質問送信を予約\n")
	helpText.WriteString("/reservations - 予約一覧\n")
	helpText.WriteString("/cancel_reservation YYYY-MM-DD [HH:MM] - 予約を取り消し\n\n")
	helpText.WriteString("/send_question - 今すぐ質問を送信\n")
	helpText.WriteString("/show_summary [YYYY-MM-DD] - 集計結果を表示\n\n")
	helpText.WriteString("/add_holiday YYYY-MM-DD [名称] - 祝日を登録\n")
	helpText.WriteString("/remove_holiday YYYY-MM-DD - 祝日を削除\n")
	helpText.WriteString("/holidays [YYYY] - 祝日一覧")
	return helpText.String()
}
