package schedule

import (
	"strings"
	"testing"
	"time"

	"attendance_poll_bot/internal/domain/calendar"
)

type holidaySet map[calendar.Date]string

func (h holidaySet) HolidayBefore(date calendar.Date) (string, bool) {
	label, ok := h[date.AddDays(1)]
	return label, ok
}

func friSatRule(beforeHolidays bool) Rule {
	days, _ := WeekdaysFromIndexes([]int{4, 5})
	return Rule{
		Weekdays:           days,
		SendBeforeHolidays: beforeHolidays,
		PromptTime:         calendar.MustClock("20:00"),
		SummaryTime:        calendar.MustClock("22:00"),
	}
}

func TestWeekdaysFromIndexes(t *testing.T) {
	t.Parallel()

	days, err := WeekdaysFromIndexes([]int{0, 4, 5, 6})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, wd := range []time.Weekday{time.Monday, time.Friday, time.Saturday, time.Sunday} {
		if !days[wd] {
			t.Fatalf("expected %v to be eligible", wd)
		}
	}
	if days[time.Tuesday] {
		t.Fatalf("did not expect Tuesday")
	}
	if _, err := WeekdaysFromIndexes([]int{7}); err == nil {
		t.Fatalf("expected error for index 7")
	}
	for i := 0; i < 7; i++ {
		d, _ := WeekdaysFromIndexes([]int{i})
		for wd := range d {
			if WeekdayIndex(wd) != i {
				t.Fatalf("WeekdayIndex(%v) = %d, expected %d", wd, WeekdayIndex(wd), i)
			}
		}
	}
}

func TestShouldSendOnHolidayEve(t *testing.T) {
	t.Parallel()

	thursday := calendar.NewDate(2025, time.November, 20)
	holidays := holidaySet{thursday.AddDays(1): "Labour Thanksgiving (observed)"}

	if thursday.Weekday() != time.Thursday {
		t.Fatalf("fixture is not a Thursday: %v", thursday.Weekday())
	}

	if !friSatRule(true).ShouldSendOn(thursday, holidays) {
		t.Fatalf("expected holiday eve to trigger with SendBeforeHolidays")
	}
	if friSatRule(false).ShouldSendOn(thursday, holidays) {
		t.Fatalf("expected no send on Thursday without SendBeforeHolidays")
	}
	if !friSatRule(false).ShouldSendOn(thursday.AddDays(1), nil) {
		t.Fatalf("expected Friday to be eligible by weekday")
	}
	if friSatRule(true).ShouldSendOn(thursday.AddDays(-1), holidays) {
		t.Fatalf("expected Wednesday not to be eligible")
	}
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	wednesday := calendar.NewDate(2025, time.November, 19)

	t.Run("no trigger", func(t *testing.T) {
		res := Evaluate(friSatRule(true), wednesday, holidaySet{}, nil)
		if res.WillSend || res.WeekdayMatch || res.HolidayBefore || res.Scheduled {
			t.Fatalf("expected nothing to match, got %+v", res)
		}
		if res.Reason != ReasonNoTrigger {
			t.Fatalf("unexpected reason %q", res.Reason)
		}
	})

	t.Run("reservation only", func(t *testing.T) {
		res := Evaluate(friSatRule(true), wednesday, holidaySet{}, []calendar.Clock{calendar.MustClock("09:00")})
		if !res.WillSend || !res.Scheduled || res.WeekdayMatch {
			t.Fatalf("expected scheduled send, got %+v", res)
		}
		if !strings.Contains(res.Reason, "09:00") {
			t.Fatalf("expected reason to mention the time, got %q", res.Reason)
		}
	})

	t.Run("holiday eve carries label", func(t *testing.T) {
		res := Evaluate(friSatRule(true), wednesday, holidaySet{wednesday.AddDays(1): "Founding Day"}, nil)
		if !res.WillSend || !res.HolidayBefore || res.HolidayLabel != "Founding Day" {
			t.Fatalf("expected holiday eve with label, got %+v", res)
		}
	})
}

func TestSortReservations(t *testing.T) {
	t.Parallel()

	d1 := calendar.NewDate(2025, time.November, 24)
	d2 := calendar.NewDate(2025, time.November, 25)
	list := []Reservation{
		{Date: d2, Time: calendar.MustClock("08:00")},
		{Date: d1, Time: calendar.MustClock("21:00")},
		{Date: d1, Time: calendar.MustClock("09:00")},
	}
	SortReservations(list)

	want := []string{"2025-11-24 09:00", "2025-11-24 21:00", "2025-11-25 08:00"}
	for i, r := range list {
		if r.String() != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], r)
		}
	}
}
