/*
errors.go - Centralized error types for the scheduling core

PURPOSE:
  All error types in one place for consistency and discoverability. The pure
  functions in this package never return errors; they fail closed on bad
  rules. These errors exist for the persistence gateways and the services
  built on top, which do have failure modes worth distinguishing.

USAGE:
  if errors.Is(err, schedule.ErrDuplicateOccurrence) {
      // the dedup guard fired; safe to treat as already materialized
  }
*/
package schedule

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidRule is returned when a frequency configuration is malformed,
	// e.g. an interval rule with a non-positive step.
	ErrInvalidRule = errors.New("invalid frequency rule")

	// ErrDuplicateOccurrence is returned when an insert would create a second
	// occurrence for the same recurrence group and due date.
	ErrDuplicateOccurrence = errors.New("duplicate occurrence for group and date")

	// ErrOccurrenceNotFound is returned when a referenced occurrence doesn't exist.
	ErrOccurrenceNotFound = errors.New("occurrence not found")

	// ErrHabitNotFound is returned when a referenced habit doesn't exist.
	ErrHabitNotFound = errors.New("habit not found")

	// ErrPendingID is returned when a pending id reaches an operation that
	// requires a committed one.
	ErrPendingID = errors.New("id has not been committed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidRuleError reports which rule was malformed and why.
type InvalidRuleError struct {
	Kind   string
	Reason string
}

func (e *InvalidRuleError) Error() string {
	return fmt.Sprintf("invalid %s rule: %s", e.Kind, e.Reason)
}

func (e *InvalidRuleError) Unwrap() error { return ErrInvalidRule }

// DuplicateOccurrenceError reports which group/date pair collided.
type DuplicateOccurrenceError struct {
	GroupID string
	DueDate Day
}

func (e *DuplicateOccurrenceError) Error() string {
	return fmt.Sprintf("occurrence already exists for group %s on %s", e.GroupID, e.DueDate)
}

func (e *DuplicateOccurrenceError) Unwrap() error { return ErrDuplicateOccurrence }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRule) ||
		errors.Is(err, ErrDuplicateOccurrence) ||
		errors.Is(err, ErrPendingID)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOccurrenceNotFound) ||
		errors.Is(err, ErrHabitNotFound)
}
