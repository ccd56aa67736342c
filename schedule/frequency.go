/*
frequency.go - Habit applicability per calendar day

PURPOSE:
  IsApplicable answers whether a habit's frequency rule designates a given
  calendar day as one it should be tracked on. It is a pure, total function:
  malformed rules (interval without a start, non-positive step) report
  not-applicable rather than erroring, since they are reachable from ordinary
  user misconfiguration.

SEE ALSO:
  - streak.go: Walks days backward through IsApplicable
  - types.go:  HabitRule variants
*/
package schedule

// IsApplicable reports whether the habit is expected to occur on day.
//
//   - daily and times_per_week rules apply every day; weekly-quota
//     bookkeeping is deliberately left to reporting code.
//   - specific_days applies iff the day's UTC weekday ordinal is configured.
//   - interval applies on every EveryNDays-th day from Start, in either
//     direction; without a Start it never applies.
func IsApplicable(day Day, rule HabitRule) bool {
	switch rule.Kind {
	case HabitDaily, HabitTimesPerWeek:
		return true
	case HabitSpecificDays:
		wd := int(day.Weekday())
		for _, d := range rule.Days {
			if d == wd {
				return true
			}
		}
		return false
	case HabitInterval:
		if rule.Start == nil || rule.EveryNDays <= 0 {
			return false
		}
		diff := DaysBetween(*rule.Start, day)
		if diff < 0 {
			diff = -diff
		}
		return diff%rule.EveryNDays == 0
	default:
		return false
	}
}

// ValidateRule reports misconfigurations as an InvalidRuleError. The
// evaluator itself never needs this (it fails closed); services use it to
// reject bad rules at the API boundary before they are stored.
func ValidateRule(rule HabitRule) error {
	switch rule.Kind {
	case HabitDaily:
		return nil
	case HabitTimesPerWeek:
		if rule.TimesPerWeek <= 0 {
			return &InvalidRuleError{Kind: string(rule.Kind), Reason: "count must be positive"}
		}
	case HabitSpecificDays:
		if len(rule.Days) == 0 {
			return &InvalidRuleError{Kind: string(rule.Kind), Reason: "no weekdays configured"}
		}
		for _, d := range rule.Days {
			if d < 0 || d > 6 {
				return &InvalidRuleError{Kind: string(rule.Kind), Reason: "weekday ordinal out of range"}
			}
		}
	case HabitInterval:
		if rule.EveryNDays <= 0 {
			return &InvalidRuleError{Kind: string(rule.Kind), Reason: "step must be positive"}
		}
		if rule.Start == nil {
			return &InvalidRuleError{Kind: string(rule.Kind), Reason: "missing start date"}
		}
	default:
		return &InvalidRuleError{Kind: string(rule.Kind), Reason: "unknown rule kind"}
	}
	return nil
}
