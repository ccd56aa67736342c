package schedule_test

import (
	"testing"
	"time"

	"github.com/warp/schedule-engine/schedule"
)

func TestStreak_Daily_CountsBackFromToday(t *testing.T) {
	// GIVEN: today 2024-03-10, completions on the 10th and 9th, the 8th absent
	// THEN: streak is 2

	today := day(2024, time.March, 10)
	completed := schedule.NewDaySet(
		day(2024, time.March, 10),
		day(2024, time.March, 9),
	)

	if got := schedule.Streak(today, schedule.DailyRule(), completed); got != 2 {
		t.Errorf("expected streak 2, got %d", got)
	}
}

func TestStreak_Daily_TodayMissing_IsZero(t *testing.T) {
	// The most recent applicable day missing a completion yields 0, even
	// with a long historical run behind it.
	today := day(2024, time.March, 10)
	completed := schedule.NewDaySet(
		day(2024, time.March, 9),
		day(2024, time.March, 8),
		day(2024, time.March, 7),
	)

	if got := schedule.Streak(today, schedule.DailyRule(), completed); got != 0 {
		t.Errorf("expected streak 0, got %d", got)
	}
}

func TestStreak_SpecificDays_InapplicableDaysAreTransparent(t *testing.T) {
	// GIVEN: a Mon/Wed/Fri habit completed on Fri 2024-01-05, Wed 01-03, Mon 01-01
	// WHEN: today is Sunday 2024-01-07 (not applicable)
	// THEN: the weekend neither extends nor breaks the streak of 3

	today := day(2024, time.January, 7)
	rule := schedule.SpecificDaysRule(1, 3, 5)
	completed := schedule.NewDaySet(
		day(2024, time.January, 5),
		day(2024, time.January, 3),
		day(2024, time.January, 1),
	)

	if got := schedule.Streak(today, rule, completed); got != 3 {
		t.Errorf("expected streak 3, got %d", got)
	}
}

func TestStreak_Interval_OnlyMultipleDatesMatter(t *testing.T) {
	// GIVEN: interval(3, start=2024-01-01), applicable on Jan 1, 4, 7, ...
	// THEN: missing completions on non-multiple dates never affect the
	//       streak; a missing multiple-date breaks it

	rule := schedule.IntervalRule(3, day(2024, time.January, 1))

	// All applicable days up to Jan 10 completed; the in-between days are
	// absent and must be transparent.
	completed := schedule.NewDaySet(
		day(2024, time.January, 1),
		day(2024, time.January, 4),
		day(2024, time.January, 7),
		day(2024, time.January, 10),
	)
	if got := schedule.Streak(day(2024, time.January, 11), rule, completed); got != 4 {
		t.Errorf("expected streak 4, got %d", got)
	}

	// Remove the completion on Jan 7 (a multiple date): the walk stops there.
	broken := schedule.NewDaySet(
		day(2024, time.January, 1),
		day(2024, time.January, 4),
		day(2024, time.January, 10),
	)
	if got := schedule.Streak(day(2024, time.January, 11), rule, broken); got != 1 {
		t.Errorf("expected streak 1 after missing multiple-date, got %d", got)
	}
}

func TestStreak_Interval_WithoutStart_IsZero(t *testing.T) {
	// Never-applicable rules make every day transparent; the walk exhausts
	// the window and reports 0.
	rule := schedule.HabitRule{Kind: schedule.HabitInterval, EveryNDays: 3}
	completed := schedule.NewDaySet(day(2024, time.March, 10))

	if got := schedule.Streak(day(2024, time.March, 10), rule, completed); got != 0 {
		t.Errorf("expected streak 0, got %d", got)
	}
}

func TestStreak_WindowExhaustion_ReturnsAccumulatedCount(t *testing.T) {
	// GIVEN: a daily habit completed every day for well over a year
	// THEN: the walk stops at the window and returns its count

	today := day(2024, time.March, 10)
	completed := schedule.NewDaySet()
	for offset := 0; offset < 500; offset++ {
		completed.Add(today.AddDays(-offset))
	}

	if got := schedule.Streak(today, schedule.DailyRule(), completed); got != schedule.StreakWindowDays {
		t.Errorf("expected streak capped at %d, got %d", schedule.StreakWindowDays, got)
	}
}

func TestStreak_CustomWindow(t *testing.T) {
	today := day(2024, time.March, 10)
	completed := schedule.NewDaySet()
	for offset := 0; offset < 30; offset++ {
		completed.Add(today.AddDays(-offset))
	}

	calc := schedule.StreakCalculator{Window: 7}
	if got := calc.Streak(today, schedule.DailyRule(), completed); got != 7 {
		t.Errorf("expected streak capped at 7, got %d", got)
	}
}

func TestStreak_NoCompletions_IsZero(t *testing.T) {
	if got := schedule.Streak(day(2024, time.March, 10), schedule.DailyRule(), schedule.NewDaySet()); got != 0 {
		t.Errorf("expected streak 0, got %d", got)
	}
}
