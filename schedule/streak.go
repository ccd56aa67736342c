/*
streak.go - Consecutive-completion streak computation

PURPOSE:
  Walks backward from "today" through the habit's applicable days and counts
  the unbroken run of completions. Days the rule does not apply to are
  transparent: they neither extend nor break the streak.

SEE ALSO:
  - frequency.go: IsApplicable decides which days count
*/
package schedule

// StreakWindowDays bounds the backward walk. A streak older than a year is
// reported as the window's count rather than walking further.
const StreakWindowDays = 365

// StreakCalculator computes streaks. The zero value uses StreakWindowDays.
type StreakCalculator struct {
	// Window overrides the number of days walked backward when positive.
	Window int
}

// Streak returns the current consecutive-completion streak for the rule,
// walking backward from today over the completed-day set.
//
// The most recent applicable day missing a completion yields 0; an
// applicable-and-completed day increments the count and the walk continues.
func (sc StreakCalculator) Streak(today Day, rule HabitRule, completed DaySet) int {
	window := sc.Window
	if window <= 0 {
		window = StreakWindowDays
	}

	streak := 0
	for offset := 0; offset < window; offset++ {
		day := today.AddDays(-offset)
		if !IsApplicable(day, rule) {
			continue
		}
		if !completed.Contains(day) {
			return streak
		}
		streak++
	}
	return streak
}

// Streak computes a streak with the default window.
func Streak(today Day, rule HabitRule, completed DaySet) int {
	return StreakCalculator{}.Streak(today, rule, completed)
}
