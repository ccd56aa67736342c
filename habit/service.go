/*
Package habit implements habit tracking on top of the scheduling core:
definitions, per-day completion records, and derived streaks.

The streak is never stored. It is recomputed on demand from the habit's
frequency rule and its completion set, so there is no cached value to drift
out of sync.
*/
package habit

import (
	"context"

	"github.com/google/uuid"

	"github.com/warp/schedule-engine/schedule"
)

// Service coordinates habit persistence with the frequency evaluator and
// streak calculator.
type Service struct {
	Habits      schedule.HabitStore
	Completions schedule.CompletionStore
	Clock       schedule.Clock
	Calc        schedule.StreakCalculator
}

func NewService(habits schedule.HabitStore, completions schedule.CompletionStore, clock schedule.Clock) *Service {
	return &Service{
		Habits:      habits,
		Completions: completions,
		Clock:       clock,
	}
}

func (s *Service) today() schedule.Day {
	if s.Clock != nil {
		return s.Clock.Today()
	}
	return schedule.SystemClock{}.Today()
}

// =============================================================================
// DEFINITIONS
// =============================================================================

// Create validates the rule and persists the habit. Misconfigured rules are
// rejected here, at the boundary; the evaluator would fail closed on them
// anyway, but storing a rule that can never apply helps nobody.
func (s *Service) Create(ctx context.Context, name string, rule schedule.HabitRule) (schedule.Habit, error) {
	if err := schedule.ValidateRule(rule); err != nil {
		return schedule.Habit{}, err
	}

	h := schedule.Habit{
		ID:   schedule.CommittedID(uuid.NewString()),
		Name: name,
		Rule: rule,
	}
	if err := s.Habits.SaveHabit(ctx, h); err != nil {
		return schedule.Habit{}, err
	}
	return h, nil
}

// Get returns one habit or ErrHabitNotFound.
func (s *Service) Get(ctx context.Context, id string) (schedule.Habit, error) {
	h, err := s.Habits.GetHabit(ctx, id)
	if err != nil {
		return schedule.Habit{}, err
	}
	if h == nil {
		return schedule.Habit{}, schedule.ErrHabitNotFound
	}
	return *h, nil
}

// List returns all habits.
func (s *Service) List(ctx context.Context) ([]schedule.Habit, error) {
	return s.Habits.ListHabits(ctx)
}

// =============================================================================
// COMPLETIONS
// =============================================================================

// MarkCompleted records a completion for the given day (today when day is
// nil). Set semantics: repeating the call for the same day is a no-op.
func (s *Service) MarkCompleted(ctx context.Context, habitID string, day *schedule.Day) error {
	if _, err := s.Get(ctx, habitID); err != nil {
		return err
	}
	at := s.today()
	if day != nil {
		at = *day
	}
	return s.Completions.MarkCompleted(ctx, habitID, at)
}

// RemoveCompletion unmarks a day.
func (s *Service) RemoveCompletion(ctx context.Context, habitID string, day schedule.Day) error {
	if _, err := s.Get(ctx, habitID); err != nil {
		return err
	}
	return s.Completions.RemoveCompletion(ctx, habitID, day)
}

// IsApplicableToday reports whether the habit is expected today.
func (s *Service) IsApplicableToday(ctx context.Context, habitID string) (bool, error) {
	h, err := s.Get(ctx, habitID)
	if err != nil {
		return false, err
	}
	return schedule.IsApplicable(s.today(), h.Rule), nil
}

// Streak recomputes the habit's current consecutive-completion streak.
func (s *Service) Streak(ctx context.Context, habitID string) (int, error) {
	h, err := s.Get(ctx, habitID)
	if err != nil {
		return 0, err
	}

	completed, err := s.Completions.CompletedDays(ctx, habitID)
	if err != nil {
		return 0, err
	}
	return s.Calc.Streak(s.today(), h.Rule, completed), nil
}
