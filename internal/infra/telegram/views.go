package telegram

import (
	"fmt"
	"sort"
	"strings"

	"attendance_poll_bot/internal/app"
	"attendance_poll_bot/internal/domain/calendar"
	"attendance_poll_bot/internal/domain/schedule"
	domainTelegram "attendance_poll_bot/internal/domain/telegram"

	"gopkg.in/telebot.v3"
)

const pickerColumns = 4

// Start times cover the evening, end times run past midnight into the morning.
var (
	startSlots = calendar.HalfHourSlots(calendar.MustClock("11:30"), calendar.MustClock("23:30"))
	endSlots   = calendar.HalfHourSlots(calendar.MustClock("00:00"), calendar.MustClock("11:00"))
)

var weekdayNames = [...]string{"日", "月", "火", "水", "木", "金", "土"}

func formatDateJP(d calendar.Date) string {
	return fmt.Sprintf("%d年%02d月%02d日(%s)", d.Year, int(d.Month), d.Day, weekdayNames[d.Weekday()])
}

func clockLabel(c *calendar.Clock) string {
	if c == nil {
		return "未設定"
	}
	return c.String()
}

// PickerText is the body of the time selection message.
func PickerText(snap app.SessionSnapshot) string {
	return fmt.Sprintf(
		"%s の参加可能な時間を選択してください。\n開始: %s\n終了: %s",
		formatDateJP(snap.Date), clockLabel(snap.StartTime), clockLabel(snap.EndTime),
	)
}

// PickerMarkup renders the mode toggle, the half-hour slots of the active
// mode and, once a time is chosen, the confirm button.
func PickerMarkup(snap app.SessionSnapshot, mode string) *telebot.ReplyMarkup {
	if mode != domainTelegram.PickEnd {
		mode = domainTelegram.PickStart
	}
	markup := &telebot.ReplyMarkup{}

	startLabel, endLabel := "開始時刻", "終了時刻"
	if mode == domainTelegram.PickStart {
		startLabel = "▶ " + startLabel
	} else {
		endLabel = "▶ " + endLabel
	}
	rows := []telebot.Row{markup.Row(
		markup.Data(startLabel, domainTelegram.UniquePickerMode, snap.ID, domainTelegram.PickStart),
		markup.Data(endLabel, domainTelegram.UniquePickerMode, snap.ID, domainTelegram.PickEnd),
	)}

	selected, slots := snap.StartTime, startSlots
	if mode == domainTelegram.PickEnd {
		selected, slots = snap.EndTime, endSlots
	}
	var row []telebot.Btn
	for _, slot := range slots {
		label := slot.String()
		if selected != nil && *selected == slot {
			label = "✓" + label
		}
		row = append(row, markup.Data(label, domainTelegram.UniquePickTime, snap.ID, mode, slot.String()))
		if len(row) == pickerColumns {
			rows = append(rows, markup.Row(row...))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, markup.Row(row...))
	}

	if snap.State == app.StateTimeSelection && (snap.StartTime != nil || snap.EndTime != nil) {
		rows = append(rows, markup.Row(markup.Data("✅ 確定", domainTelegram.UniqueConfirm, snap.ID)))
	}
	markup.Inline(rows...)
	return markup
}

// ConfirmedText replaces the picker once the answer is saved.
func ConfirmedText(snap app.SessionSnapshot) string {
	return fmt.Sprintf("✅ %s 参加可能で登録しました。\n開始: %s\n終了: %s",
		formatDateJP(snap.Date), clockLabel(snap.StartTime), clockLabel(snap.EndTime))
}

func renderTimes(t *app.Times) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("質問送信時刻: %s\n", t.PromptTime))
	b.WriteString(fmt.Sprintf("集計送信時刻: %s\n", t.SummaryTime))

	days := t.Rule.SortedWeekdays()
	names := make([]string, len(days))
	for i, wd := range days {
		names[i] = weekdayNames[wd]
	}
	if len(names) == 0 {
		b.WriteString("送信曜日: なし\n")
	} else {
		b.WriteString(fmt.Sprintf("送信曜日: %s\n", strings.Join(names, "・")))
	}
	if t.Rule.SendBeforeHolidays {
		b.WriteString("祝日前日: 送信する\n")
	} else {
		b.WriteString("祝日前日: 送信しない\n")
	}
	if t.HasNextSend {
		b.WriteString(fmt.Sprintf("次回送信: %s %s", formatDateJP(calendar.DateOf(t.NextSend)), calendar.ClockOf(t.NextSend)))
	} else {
		b.WriteString("次回送信: 7日以内の予定なし")
	}
	return b.String()
}

func renderCheck(res *schedule.CheckResult) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s の送信判定\n", formatDateJP(res.Date)))
	if res.WillSend {
		b.WriteString("結果: 送信あり\n")
	} else {
		b.WriteString("結果: 送信なし\n")
	}
	b.WriteString(fmt.Sprintf("曜日一致: %s\n", yesNo(res.WeekdayMatch)))
	if res.HolidayBefore && res.HolidayLabel != "" {
		b.WriteString(fmt.Sprintf("祝日前日: はい (%s)\n", res.HolidayLabel))
	} else {
		b.WriteString(fmt.Sprintf("祝日前日: %s\n", yesNo(res.HolidayBefore)))
	}
	if res.Scheduled {
		times := make([]string, len(res.ScheduledTimes))
		for i, c := range res.ScheduledTimes {
			times[i] = c.String()
		}
		b.WriteString(fmt.Sprintf("予約: %s\n", strings.Join(times, ", ")))
	} else {
		b.WriteString("予約: なし\n")
	}
	b.WriteString(fmt.Sprintf("理由: %s", res.Reason))
	return b.String()
}

func renderReservations(list []schedule.Reservation) string {
	if len(list) == 0 {
		return "予約はありません。"
	}
	var b strings.Builder
	b.WriteString("予約一覧\n")
	for _, r := range list {
		b.WriteString(fmt.Sprintf("・%s %s\n", formatDateJP(r.Date), r.Time))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderHolidays(holidays map[calendar.Date]string, year int) string {
	if len(holidays) == 0 {
		if year != 0 {
			return fmt.Sprintf("%d年の祝日は登録されていません。", year)
		}
		return "祝日は登録されていません。"
	}
	dates := make([]calendar.Date, 0, len(holidays))
	for d := range holidays {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	var b strings.Builder
	if year != 0 {
		b.WriteString(fmt.Sprintf("%d年の祝日 (%d件)\n", year, len(dates)))
	} else {
		b.WriteString(fmt.Sprintf("登録済みの祝日 (%d件)\n", len(dates)))
	}
	for _, d := range dates {
		if label := holidays[d]; label != "" {
			b.WriteString(fmt.Sprintf("・%s %s\n", formatDateJP(d), label))
		} else {
			b.WriteString(fmt.Sprintf("・%s\n", formatDateJP(d)))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func yesNo(v bool) string {
	if v {
		return "はい"
	}
	return "いいえ"
}
