/*
stats.go - Weekly completion reporting

PURPOSE:
  Derives per-week expected/completed counts and completion rates from a
  habit's rule and completion set. This is where times_per_week quota
  bookkeeping lives: the evaluator treats quota rules as always applicable,
  and only reporting compares completions against the weekly target.

PRECISION:
  Rates use decimal.Decimal, not float64, so a 2-of-3 week reports exactly
  0.6667 and aggregates don't accumulate binary rounding noise.
*/
package habit

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/warp/schedule-engine/schedule"
)

// ratePlaces is the scale completion rates are rounded to.
const ratePlaces = 4

// WeekStat summarizes one calendar week (Sunday through Saturday).
type WeekStat struct {
	WeekStart schedule.Day
	Expected  int
	Completed int
	Rate      decimal.Decimal
}

// WeeklyReport returns stats for the most recent weeks, oldest first. The
// current (possibly partial) week is included.
func (s *Service) WeeklyReport(ctx context.Context, habitID string, weeks int) ([]WeekStat, error) {
	h, err := s.Get(ctx, habitID)
	if err != nil {
		return nil, err
	}
	if weeks <= 0 {
		return nil, nil
	}

	completed, err := s.Completions.CompletedDays(ctx, habitID)
	if err != nil {
		return nil, err
	}

	today := s.today()
	weekStart := startOfWeek(today)

	stats := make([]WeekStat, 0, weeks)
	for i := weeks - 1; i >= 0; i-- {
		start := weekStart.AddDays(-7 * i)
		stats = append(stats, weekStat(h.Rule, start, completed))
	}
	return stats, nil
}

// weekStat tallies one week.
//
// Expected is the weekly quota for times_per_week rules and the count of
// applicable days for everything else. Completed counts every completion
// recorded in the week, whether or not the day was applicable, so manual
// extra completions still show up in the report.
func weekStat(rule schedule.HabitRule, start schedule.Day, completed schedule.DaySet) WeekStat {
	stat := WeekStat{WeekStart: start}

	if rule.Kind == schedule.HabitTimesPerWeek {
		stat.Expected = rule.TimesPerWeek
	}
	for d := 0; d < 7; d++ {
		day := start.AddDays(d)
		if rule.Kind != schedule.HabitTimesPerWeek && schedule.IsApplicable(day, rule) {
			stat.Expected++
		}
		if completed.Contains(day) {
			stat.Completed++
		}
	}

	if stat.Expected > 0 {
		stat.Rate = decimal.NewFromInt(int64(stat.Completed)).
			Div(decimal.NewFromInt(int64(stat.Expected))).
			Round(ratePlaces)
	} else {
		stat.Rate = decimal.Zero
	}
	return stat
}

// startOfWeek returns the Sunday on or before the given day, matching the
// weekday-ordinal convention (0=Sunday) used by the rules.
func startOfWeek(d schedule.Day) schedule.Day {
	return d.AddDays(-int(d.Weekday()))
}
