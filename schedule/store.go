/*
store.go - Persistence gateway interfaces

PURPOSE:
  Defines the capabilities the scheduling core expects from storage. The core
  itself never persists anything; it proposes payloads and derives values, and
  the surrounding services call these gateways to commit results.

ATOMICITY CONTRACT:
  InsertOccurrences is all-or-nothing for the batch. If the commit fails, the
  caller discards the proposed payloads and prior state is unchanged; partial
  application of a batch is never assumed.

IMPLEMENTATIONS:
  - schedule/store/memory.go: In-memory, for tests and dev
  - store/sqlite:             Production SQLite
*/
package schedule

import "context"

// =============================================================================
// OCCURRENCE STORE
// =============================================================================

// OccurrenceStore persists task occurrences and their subtasks.
type OccurrenceStore interface {
	// InsertOccurrences commits a batch of proposed payloads atomically and
	// returns the committed occurrences with assigned ids, in input order.
	// The dedup guard (one occurrence per group and due date) is enforced
	// here as well; a violation fails the whole batch.
	InsertOccurrences(ctx context.Context, payloads []OccurrencePayload) ([]Occurrence, error)

	// InsertSubtasks appends subtasks to an existing occurrence, batched and
	// atomic per parent. Returns the committed subtasks with assigned ids.
	InsertSubtasks(ctx context.Context, occurrenceID string, subtasks []Subtask) ([]Subtask, error)

	// GetOccurrence returns the occurrence or nil when absent.
	GetOccurrence(ctx context.Context, id string) (*Occurrence, error)

	// ListOccurrences returns all occurrences ordered by due date.
	ListOccurrences(ctx context.Context) ([]Occurrence, error)

	// ListGroupSources returns, for every recurrence group, the original
	// user-created occurrence (the one with no source reference). Used to
	// keep rolling horizons filled.
	ListGroupSources(ctx context.Context) ([]Occurrence, error)

	// GroupDates returns the due-date keys already materialized for a group.
	GroupDates(ctx context.Context, groupID string) (DaySet, error)

	// SaveOccurrence stores user mutations (completion toggles, edits).
	SaveOccurrence(ctx context.Context, occ Occurrence) error
}

// =============================================================================
// HABIT + COMPLETION STORES
// =============================================================================

// HabitStore persists habit definitions.
type HabitStore interface {
	SaveHabit(ctx context.Context, h Habit) error
	GetHabit(ctx context.Context, id string) (*Habit, error)
	ListHabits(ctx context.Context) ([]Habit, error)
}

// CompletionStore persists habit completion records with set semantics: at
// most one record per (habit, day) pair, keyed by the day's YYYY-MM-DD form.
type CompletionStore interface {
	// MarkCompleted records a completion. Marking the same day twice is a
	// no-op, not an error.
	MarkCompleted(ctx context.Context, habitID string, day Day) error

	// RemoveCompletion deletes a completion record if present.
	RemoveCompletion(ctx context.Context, habitID string, day Day) error

	// CompletedDays returns the set of days the habit was completed on.
	CompletedDays(ctx context.Context, habitID string) (DaySet, error)
}

// Store bundles every gateway. Concrete stores implement all of them.
type Store interface {
	OccurrenceStore
	HabitStore
	CompletionStore
}
