/*
Package task implements recurring-task management on top of the scheduling
core. It owns the write path around the expander: creating occurrences,
assigning recurrence groups, materializing missing occurrences, and user
mutations like completion toggles.

MATERIALIZATION FLOW:
  1. Load the source occurrence and the due-date keys already persisted for
     its group.
  2. Ask the expander for the missing payloads (pure computation).
  3. Stamp each payload and subtask with a pending local token.
  4. Commit the batch through the occurrence store, all-or-nothing. On
     failure the proposed payloads are discarded and prior state stands.

SEE ALSO:
  - schedule/recurrence.go: The expansion algorithm
  - schedule/store.go:      OccurrenceStore contract
*/
package task

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/warp/schedule-engine/schedule"
)

// Service coordinates occurrence persistence with the expander.
type Service struct {
	Store    schedule.OccurrenceStore
	Expander *schedule.Expander
}

func NewService(store schedule.OccurrenceStore, clock schedule.Clock) *Service {
	return &Service{
		Store:    store,
		Expander: schedule.NewExpander(clock),
	}
}

// =============================================================================
// CREATION
// =============================================================================

// Create persists a user-authored occurrence. A recurring occurrence without
// a group gets one assigned here, exactly once; the expander copies it onto
// everything it generates afterwards.
func (s *Service) Create(ctx context.Context, occ schedule.Occurrence) (schedule.Occurrence, error) {
	if occ.IsRecurring() {
		if occ.Recurrence.Frequency == schedule.FrequencyCustom && len(occ.Recurrence.CustomDays) == 0 {
			return schedule.Occurrence{}, &schedule.InvalidRuleError{
				Kind:   string(schedule.FrequencyCustom),
				Reason: "no weekdays configured",
			}
		}
		if occ.Recurrence.GroupID == "" {
			rule := occ.Recurrence.Clone()
			rule.GroupID = uuid.NewString()
			occ.Recurrence = &rule
		}
	}

	payload := schedule.OccurrencePayload{
		LocalToken: uuid.NewString(),
		Title:      occ.Title,
		Notes:      occ.Notes,
		Subtasks:   occ.Subtasks,
	}
	if occ.DueDate != nil {
		payload.DueDate = *occ.DueDate
	}
	if occ.Recurrence != nil {
		payload.Recurrence = occ.Recurrence.Clone()
	}

	committed, err := s.Store.InsertOccurrences(ctx, []schedule.OccurrencePayload{payload})
	if err != nil {
		return schedule.Occurrence{}, err
	}
	return committed[0], nil
}

// =============================================================================
// MATERIALIZATION
// =============================================================================

// Materialize fills the recurrence group of the given occurrence up to the
// expander's horizon and returns the newly committed occurrences. Calling it
// repeatedly is safe: already-persisted dates are skipped.
func (s *Service) Materialize(ctx context.Context, occurrenceID string) ([]schedule.Occurrence, error) {
	src, err := s.Store.GetOccurrence(ctx, occurrenceID)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return nil, schedule.ErrOccurrenceNotFound
	}
	if !src.IsRecurring() {
		return nil, nil
	}

	existing, err := s.Store.GroupDates(ctx, src.Recurrence.GroupID)
	if err != nil {
		return nil, err
	}

	payloads := s.Expander.Expand(*src, existing)
	if len(payloads) == 0 {
		return nil, nil
	}

	// Pending tokens let callers correlate proposals with committed records
	// and keep concurrent batches collision-free before ids exist.
	for i := range payloads {
		payloads[i].LocalToken = uuid.NewString()
		for j := range payloads[i].Subtasks {
			payloads[i].Subtasks[j].ID = schedule.NewPendingID()
		}
	}

	committed, err := s.Store.InsertOccurrences(ctx, payloads)
	if err != nil {
		return nil, fmt.Errorf("materialize group %s: %w", src.Recurrence.GroupID, err)
	}
	return committed, nil
}

// MaterializeAll runs Materialize for every recurrence group's source
// occurrence and returns the total number of occurrences created. Used by
// the background scheduler to keep rolling horizons filled.
func (s *Service) MaterializeAll(ctx context.Context) (int, error) {
	sources, err := s.Store.ListGroupSources(ctx)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, src := range sources {
		committed, err := s.Materialize(ctx, src.ID.String())
		if err != nil {
			return created, err
		}
		created += len(committed)
	}
	return created, nil
}

// =============================================================================
// USER MUTATIONS
// =============================================================================

// SetCompleted toggles an occurrence's completion state. The expander never
// touches an occurrence after creation; this is the user's path.
func (s *Service) SetCompleted(ctx context.Context, occurrenceID string, completed bool) (schedule.Occurrence, error) {
	occ, err := s.Store.GetOccurrence(ctx, occurrenceID)
	if err != nil {
		return schedule.Occurrence{}, err
	}
	if occ == nil {
		return schedule.Occurrence{}, schedule.ErrOccurrenceNotFound
	}

	occ.Completed = completed
	if err := s.Store.SaveOccurrence(ctx, *occ); err != nil {
		return schedule.Occurrence{}, err
	}
	return *occ, nil
}

// SetSubtaskCompleted toggles one subtask by id.
func (s *Service) SetSubtaskCompleted(ctx context.Context, occurrenceID, subtaskID string, completed bool) (schedule.Occurrence, error) {
	occ, err := s.Store.GetOccurrence(ctx, occurrenceID)
	if err != nil {
		return schedule.Occurrence{}, err
	}
	if occ == nil {
		return schedule.Occurrence{}, schedule.ErrOccurrenceNotFound
	}

	found := false
	for i := range occ.Subtasks {
		if occ.Subtasks[i].ID.String() == subtaskID {
			occ.Subtasks[i].Completed = completed
			found = true
			break
		}
	}
	if !found {
		return schedule.Occurrence{}, schedule.ErrOccurrenceNotFound
	}

	if err := s.Store.SaveOccurrence(ctx, *occ); err != nil {
		return schedule.Occurrence{}, err
	}
	return *occ, nil
}

// AddSubtasks appends subtasks to an occurrence, batched and atomic per
// parent. Each entry gets a pending token before the store confirms it.
func (s *Service) AddSubtasks(ctx context.Context, occurrenceID string, texts []string) ([]schedule.Subtask, error) {
	subtasks := make([]schedule.Subtask, len(texts))
	for i, text := range texts {
		subtasks[i] = schedule.Subtask{ID: schedule.NewPendingID(), Text: text}
	}
	return s.Store.InsertSubtasks(ctx, occurrenceID, subtasks)
}

// List returns all occurrences ordered by due date.
func (s *Service) List(ctx context.Context) ([]schedule.Occurrence, error) {
	return s.Store.ListOccurrences(ctx)
}

// Get returns one occurrence.
func (s *Service) Get(ctx context.Context, occurrenceID string) (*schedule.Occurrence, error) {
	return s.Store.GetOccurrence(ctx, occurrenceID)
}
