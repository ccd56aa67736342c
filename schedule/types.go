/*
Package schedule provides the date-driven scheduling core.

PURPOSE:
  This package contains the pure algorithms behind recurring tasks and habit
  tracking: expanding a recurring task into concrete dated occurrences,
  deciding whether a habit applies on a given calendar day, and computing
  completion streaks. Everything operates on UTC-normalized calendar days and
  immutable inputs; persistence is behind interfaces in store.go.

KEY CONCEPTS IN THIS FILE (types.go):
  - Frequency/RecurrenceRule: How a task repeats and which group it belongs to
  - Occurrence: One concrete, dated instance of a (possibly recurring) task
  - OccurrencePayload: A proposed occurrence that has not been persisted yet
  - HabitRule: When a habit is expected to occur
  - ID: Tagged pending/committed identifier

DESIGN PRINCIPLES:
  1. Purity: Expand, IsApplicable and Streak never mutate their inputs
  2. Fail closed: Malformed rules yield empty results, never panics or errors
  3. Bounded: Every loop has an explicit horizon or step cap
  4. Date keys: Days are compared by their YYYY-MM-DD key, nothing finer

SEE ALSO:
  - recurrence.go: Occurrence expansion
  - frequency.go:  Habit applicability
  - streak.go:     Streak computation
  - store.go:      Persistence gateway interfaces
*/
package schedule

import (
	"github.com/google/uuid"
)

// =============================================================================
// IDENTIFIERS - Tagged pending/committed ids
// =============================================================================

// ID identifies an occurrence or subtask. Records proposed by the expander
// carry a pending local token until the store commits them and assigns a real
// id; the two states are never confused.
type ID struct {
	value   string
	pending bool
}

// NewPendingID returns a fresh pending id with a unique local token.
// Tokens are unique across batches, so concurrently proposed payloads can
// never collide before the store confirms them.
func NewPendingID() ID {
	return ID{value: uuid.NewString(), pending: true}
}

// CommittedID wraps a store-assigned identifier.
func CommittedID(value string) ID {
	return ID{value: value}
}

func (id ID) String() string  { return id.value }
func (id ID) IsPending() bool { return id.pending }
func (id ID) IsZero() bool    { return id.value == "" }

// =============================================================================
// RECURRENCE RULES
// =============================================================================

type Frequency string

const (
	FrequencyNone     Frequency = "none"
	FrequencyDaily    Frequency = "daily"
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
	FrequencyCustom   Frequency = "custom"
)

// RecurrenceRule describes how a task repeats.
//
// GroupID is assigned once, when the first occurrence of a recurring task is
// created, and copied unchanged onto every occurrence the expander produces
// for that group. It is the sole key used for deduplication.
type RecurrenceRule struct {
	Frequency Frequency

	// CustomDays holds weekday ordinals (0=Sunday .. 6=Saturday) for
	// FrequencyCustom. Set semantics; order and duplicates are ignored.
	CustomDays []int

	GroupID string

	// SourceOccurrenceID references the occurrence this one was expanded
	// from. Empty on the user-created original.
	SourceOccurrenceID string
}

// Clone returns a deep copy so payloads never alias the source rule.
func (r RecurrenceRule) Clone() RecurrenceRule {
	cp := r
	if r.CustomDays != nil {
		cp.CustomDays = append([]int(nil), r.CustomDays...)
	}
	return cp
}

// =============================================================================
// OCCURRENCES
// =============================================================================

// Subtask is one checklist entry under an occurrence. Order is significant.
type Subtask struct {
	ID        ID
	Text      string
	Completed bool
}

// Occurrence is one concrete, dated instance of a task. Created by the
// expander or directly by the user; mutated only by the user afterwards.
type Occurrence struct {
	ID         ID
	Title      string
	Notes      string
	DueDate    *Day
	Recurrence *RecurrenceRule
	Completed  bool
	Subtasks   []Subtask
}

// IsRecurring reports whether this occurrence belongs to a recurrence group.
func (o Occurrence) IsRecurring() bool {
	return o.Recurrence != nil &&
		o.Recurrence.Frequency != "" &&
		o.Recurrence.Frequency != FrequencyNone
}

// OccurrencePayload is a proposed occurrence produced by the expander. It has
// no committed id yet; LocalToken correlates it with the committed record the
// store returns. Persisting a batch of payloads is all-or-nothing.
type OccurrencePayload struct {
	LocalToken string
	Title      string
	Notes      string
	DueDate    Day
	Recurrence RecurrenceRule
	Subtasks   []Subtask
}

// =============================================================================
// HABITS
// =============================================================================

type HabitRuleKind string

const (
	HabitDaily        HabitRuleKind = "daily"
	HabitTimesPerWeek HabitRuleKind = "times_per_week"
	HabitSpecificDays HabitRuleKind = "specific_days"
	HabitInterval     HabitRuleKind = "interval"
)

// HabitRule is a tagged variant describing when a habit is expected to occur.
// Only the fields for the active Kind are meaningful.
type HabitRule struct {
	Kind HabitRuleKind

	// TimesPerWeek: weekly quota for HabitTimesPerWeek. The evaluator treats
	// such rules as always applicable; the quota only matters to reporting.
	TimesPerWeek int

	// Days: weekday ordinals (0=Sunday .. 6=Saturday) for HabitSpecificDays.
	Days []int

	// EveryNDays / Start: for HabitInterval. A rule with no Start or a
	// non-positive step is never applicable.
	EveryNDays int
	Start      *Day
}

func DailyRule() HabitRule { return HabitRule{Kind: HabitDaily} }

func TimesPerWeekRule(count int) HabitRule {
	return HabitRule{Kind: HabitTimesPerWeek, TimesPerWeek: count}
}

func SpecificDaysRule(days ...int) HabitRule {
	return HabitRule{Kind: HabitSpecificDays, Days: days}
}

func IntervalRule(everyNDays int, start Day) HabitRule {
	return HabitRule{Kind: HabitInterval, EveryNDays: everyNDays, Start: &start}
}

// Habit pairs a frequency rule with its identity.
type Habit struct {
	ID   ID
	Name string
	Rule HabitRule
}

// CompletionRecord marks a habit done on a given day. At most one exists per
// (habit, day) pair; stores enforce set semantics keyed by the day's Key().
type CompletionRecord struct {
	HabitID     string
	CompletedOn Day
}
