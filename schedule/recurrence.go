/*
recurrence.go - Expansion of recurring tasks into dated occurrences

PURPOSE:
  Given a source occurrence with a recurrence rule and the set of due-date
  keys already materialized for its group, compute the new occurrences to
  create up to a bounded horizon. The expander proposes payloads; committing
  them is the caller's job and is assumed to be all-or-nothing per batch.

GUARANTEES:
  - Idempotent: re-running with the previous output folded into the existing
    set yields nothing new.
  - Deduplicated: no payload shares a group id and due date with another
    payload or with an existing occurrence.
  - Bounded: generation stops at the horizon or after MaxSteps advancement
    steps, whichever comes first. Malformed rules produce empty results
    instead of errors; misconfiguration is reachable from ordinary user
    input and must fail closed.
  - Side-effect-free: inputs are never mutated.

SEE ALSO:
  - types.go:  RecurrenceRule, Occurrence, OccurrencePayload
  - store.go:  OccurrenceStore commits the proposed payloads
*/
package schedule

import "sort"

// =============================================================================
// HORIZON POLICY
// =============================================================================

// Horizon and step-cap defaults. These encode how far ahead to materialize,
// which is policy, not correctness; HorizonPolicy makes them overridable.
const (
	DefaultDailyHorizonMonths   = 1
	DefaultWeeklyHorizonMonths  = 3
	DefaultMonthlyHorizonMonths = 6
	DefaultHorizonDays          = 90
	DefaultMaxSteps             = 365
)

// HorizonPolicy bounds a single expansion pass. Zero fields fall back to the
// package defaults.
type HorizonPolicy struct {
	DailyHorizonMonths   int
	WeeklyHorizonMonths  int
	MonthlyHorizonMonths int
	DefaultHorizonDays   int
	MaxSteps             int
}

func DefaultHorizonPolicy() HorizonPolicy {
	return HorizonPolicy{
		DailyHorizonMonths:   DefaultDailyHorizonMonths,
		WeeklyHorizonMonths:  DefaultWeeklyHorizonMonths,
		MonthlyHorizonMonths: DefaultMonthlyHorizonMonths,
		DefaultHorizonDays:   DefaultHorizonDays,
		MaxSteps:             DefaultMaxSteps,
	}
}

func (p HorizonPolicy) withDefaults() HorizonPolicy {
	d := DefaultHorizonPolicy()
	if p.DailyHorizonMonths > 0 {
		d.DailyHorizonMonths = p.DailyHorizonMonths
	}
	if p.WeeklyHorizonMonths > 0 {
		d.WeeklyHorizonMonths = p.WeeklyHorizonMonths
	}
	if p.MonthlyHorizonMonths > 0 {
		d.MonthlyHorizonMonths = p.MonthlyHorizonMonths
	}
	if p.DefaultHorizonDays > 0 {
		d.DefaultHorizonDays = p.DefaultHorizonDays
	}
	if p.MaxSteps > 0 {
		d.MaxSteps = p.MaxSteps
	}
	return d
}

// horizonFor returns the furthest date, from today, up to which occurrences
// are generated for the given frequency.
func (p HorizonPolicy) horizonFor(freq Frequency, today Day) Day {
	switch freq {
	case FrequencyDaily:
		return today.AddMonths(p.DailyHorizonMonths)
	case FrequencyWeekly, FrequencyBiweekly, FrequencyCustom:
		return today.AddMonths(p.WeeklyHorizonMonths)
	case FrequencyMonthly:
		return today.AddMonths(p.MonthlyHorizonMonths)
	default:
		return today.AddDays(p.DefaultHorizonDays)
	}
}

// =============================================================================
// EXPANDER
// =============================================================================

// Expander computes the occurrences a recurring task is still missing.
type Expander struct {
	Horizon HorizonPolicy
	Clock   Clock
}

func NewExpander(clock Clock) *Expander {
	return &Expander{Horizon: DefaultHorizonPolicy(), Clock: clock}
}

func (e *Expander) today() Day {
	if e.Clock != nil {
		return e.Clock.Today()
	}
	return SystemClock{}.Today()
}

// Expand returns the payloads to create for the source's recurrence group,
// ordered by due date ascending. Dates already present in existing are
// skipped, which makes repeated calls idempotent once prior output has been
// committed.
func (e *Expander) Expand(source Occurrence, existing DaySet) []OccurrencePayload {
	if !source.IsRecurring() || source.DueDate == nil {
		return nil
	}
	rule := *source.Recurrence

	policy := e.Horizon.withDefaults()
	horizon := policy.horizonFor(rule.Frequency, e.today())

	var custom []int
	if rule.Frequency == FrequencyCustom {
		custom = normalizeWeekdays(rule.CustomDays)
		if len(custom) == 0 {
			return nil
		}
	}

	var payloads []OccurrencePayload
	cur := *source.DueDate
	for step := 0; step < policy.MaxSteps; step++ {
		next, ok := nextDueDate(cur, rule.Frequency, custom)
		if !ok || next.After(horizon) {
			break
		}
		cur = next
		if existing.Contains(cur) {
			continue
		}
		payloads = append(payloads, buildPayload(source, cur))
	}
	return payloads
}

// nextDueDate advances one step from cur. Candidate dates are strictly
// increasing for every frequency, so the generated sequence is already
// sorted and duplicate-free.
func nextDueDate(cur Day, freq Frequency, custom []int) (Day, bool) {
	switch freq {
	case FrequencyDaily:
		return cur.AddDays(1), true
	case FrequencyWeekly:
		return cur.AddDays(7), true
	case FrequencyBiweekly:
		return cur.AddDays(14), true
	case FrequencyMonthly:
		return cur.AddMonths(1), true
	case FrequencyCustom:
		if len(custom) == 0 {
			return Day{}, false
		}
		wd := int(cur.Weekday())
		for _, d := range custom {
			if d > wd {
				return cur.AddDays(d - wd), true
			}
		}
		// Wrap to the first configured weekday of the following week.
		return cur.AddDays(7 - wd + custom[0]), true
	default:
		return Day{}, false
	}
}

// normalizeWeekdays returns the valid ordinals (0..6) sorted and deduplicated.
func normalizeWeekdays(days []int) []int {
	seen := [7]bool{}
	for _, d := range days {
		if d >= 0 && d <= 6 {
			seen[d] = true
		}
	}
	var out []int
	for d := 0; d < 7; d++ {
		if seen[d] {
			out = append(out, d)
		}
	}
	sort.Ints(out)
	return out
}

// buildPayload copies the source's content onto a new due date. Completion
// state is reset on the occurrence and on every subtask; text and order are
// preserved. The group id travels unchanged and the payload points back at
// its source.
func buildPayload(source Occurrence, due Day) OccurrencePayload {
	subtasks := make([]Subtask, len(source.Subtasks))
	for i, st := range source.Subtasks {
		subtasks[i] = Subtask{Text: st.Text}
	}

	rule := source.Recurrence.Clone()
	rule.SourceOccurrenceID = source.ID.String()

	return OccurrencePayload{
		Title:      source.Title,
		Notes:      source.Notes,
		DueDate:    due,
		Recurrence: rule,
		Subtasks:   subtasks,
	}
}
