// Package store provides in-memory Store implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/schedule-engine/schedule"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Compile-time check that Memory implements the full gateway surface.
var _ schedule.Store = (*Memory)(nil)

type Memory struct {
	mu          sync.RWMutex
	occurrences map[string]schedule.Occurrence
	groupDates  map[string]schedule.DaySet
	habits      map[string]schedule.Habit
	completions map[string]schedule.DaySet
	nextID      int
}

func NewMemory() *Memory {
	return &Memory{
		occurrences: make(map[string]schedule.Occurrence),
		groupDates:  make(map[string]schedule.DaySet),
		habits:      make(map[string]schedule.Habit),
		completions: make(map[string]schedule.DaySet),
	}
}

func (m *Memory) newID(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", prefix, m.nextID)
}

// InsertOccurrences commits payloads atomically: the dedup guard is checked
// for the whole batch before anything is written.
func (m *Memory) InsertOccurrences(_ context.Context, payloads []schedule.OccurrencePayload) ([]schedule.Occurrence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Check the dedup guard first (atomic check), including within the batch.
	batch := make(map[string]schedule.DaySet)
	for _, p := range payloads {
		gid := p.Recurrence.GroupID
		if gid == "" || p.DueDate.IsZero() {
			continue
		}
		if m.groupDates[gid].Contains(p.DueDate) || batch[gid].Contains(p.DueDate) {
			return nil, &schedule.DuplicateOccurrenceError{GroupID: gid, DueDate: p.DueDate}
		}
		if batch[gid] == nil {
			batch[gid] = schedule.NewDaySet()
		}
		batch[gid].Add(p.DueDate)
	}

	out := make([]schedule.Occurrence, 0, len(payloads))
	for _, p := range payloads {
		occ := m.commitLocked(p)
		out = append(out, occ)
	}
	return out, nil
}

func (m *Memory) commitLocked(p schedule.OccurrencePayload) schedule.Occurrence {
	var rulePtr *schedule.RecurrenceRule
	if p.Recurrence.Frequency != "" || p.Recurrence.GroupID != "" {
		rule := p.Recurrence.Clone()
		rulePtr = &rule
	}

	subtasks := make([]schedule.Subtask, len(p.Subtasks))
	for i, st := range p.Subtasks {
		subtasks[i] = schedule.Subtask{
			ID:        schedule.CommittedID(m.newID("sub")),
			Text:      st.Text,
			Completed: st.Completed,
		}
	}

	occ := schedule.Occurrence{
		ID:         schedule.CommittedID(m.newID("occ")),
		Title:      p.Title,
		Notes:      p.Notes,
		Recurrence: rulePtr,
		Subtasks:   subtasks,
	}
	if !p.DueDate.IsZero() {
		due := p.DueDate
		occ.DueDate = &due
	}
	m.occurrences[occ.ID.String()] = occ

	if rulePtr != nil && rulePtr.GroupID != "" && occ.DueDate != nil {
		gid := rulePtr.GroupID
		if m.groupDates[gid] == nil {
			m.groupDates[gid] = schedule.NewDaySet()
		}
		m.groupDates[gid].Add(*occ.DueDate)
	}
	return occ
}

func (m *Memory) InsertSubtasks(_ context.Context, occurrenceID string, subtasks []schedule.Subtask) ([]schedule.Subtask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	occ, ok := m.occurrences[occurrenceID]
	if !ok {
		return nil, schedule.ErrOccurrenceNotFound
	}

	out := make([]schedule.Subtask, len(subtasks))
	for i, st := range subtasks {
		out[i] = schedule.Subtask{
			ID:        schedule.CommittedID(m.newID("sub")),
			Text:      st.Text,
			Completed: st.Completed,
		}
	}
	occ.Subtasks = append(occ.Subtasks, out...)
	m.occurrences[occurrenceID] = occ
	return out, nil
}

func (m *Memory) GetOccurrence(_ context.Context, id string) (*schedule.Occurrence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	occ, ok := m.occurrences[id]
	if !ok {
		return nil, nil
	}
	cp := cloneOccurrence(occ)
	return &cp, nil
}

func (m *Memory) ListOccurrences(_ context.Context) ([]schedule.Occurrence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]schedule.Occurrence, 0, len(m.occurrences))
	for _, occ := range m.occurrences {
		out = append(out, cloneOccurrence(occ))
	}
	sortOccurrences(out)
	return out, nil
}

func (m *Memory) ListGroupSources(_ context.Context) ([]schedule.Occurrence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []schedule.Occurrence
	for _, occ := range m.occurrences {
		if occ.IsRecurring() && occ.Recurrence.SourceOccurrenceID == "" {
			out = append(out, cloneOccurrence(occ))
		}
	}
	sortOccurrences(out)
	return out, nil
}

func (m *Memory) GroupDates(_ context.Context, groupID string) (schedule.DaySet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := schedule.NewDaySet()
	for key := range m.groupDates[groupID] {
		out.AddKey(key)
	}
	return out, nil
}

func (m *Memory) SaveOccurrence(_ context.Context, occ schedule.Occurrence) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if occ.ID.IsPending() || occ.ID.IsZero() {
		return schedule.ErrPendingID
	}

	id := occ.ID.String()
	prev, exists := m.occurrences[id]
	if exists && occ.IsRecurring() {
		// Keep the group-date index in sync when a due date moves.
		if prev.Recurrence != nil && prev.DueDate != nil &&
			(occ.DueDate == nil || !prev.DueDate.Equal(*occ.DueDate)) {
			delete(m.groupDates[prev.Recurrence.GroupID], prev.DueDate.Key())
		}
		if occ.DueDate != nil {
			gid := occ.Recurrence.GroupID
			if m.groupDates[gid] == nil {
				m.groupDates[gid] = schedule.NewDaySet()
			}
			m.groupDates[gid].Add(*occ.DueDate)
		}
	}
	m.occurrences[id] = cloneOccurrence(occ)
	return nil
}

// =============================================================================
// HABITS + COMPLETIONS
// =============================================================================

func (m *Memory) SaveHabit(_ context.Context, h schedule.Habit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h.ID.IsPending() || h.ID.IsZero() {
		return schedule.ErrPendingID
	}
	m.habits[h.ID.String()] = h
	return nil
}

func (m *Memory) GetHabit(_ context.Context, id string) (*schedule.Habit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h, ok := m.habits[id]
	if !ok {
		return nil, nil
	}
	return &h, nil
}

func (m *Memory) ListHabits(_ context.Context) ([]schedule.Habit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]schedule.Habit, 0, len(m.habits))
	for _, h := range m.habits {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (m *Memory) MarkCompleted(_ context.Context, habitID string, day schedule.Day) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.completions[habitID] == nil {
		m.completions[habitID] = schedule.NewDaySet()
	}
	m.completions[habitID].Add(day)
	return nil
}

func (m *Memory) RemoveCompletion(_ context.Context, habitID string, day schedule.Day) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.completions[habitID], day.Key())
	return nil
}

func (m *Memory) CompletedDays(_ context.Context, habitID string) (schedule.DaySet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := schedule.NewDaySet()
	for key := range m.completions[habitID] {
		out.AddKey(key)
	}
	return out, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func cloneOccurrence(occ schedule.Occurrence) schedule.Occurrence {
	cp := occ
	if occ.DueDate != nil {
		due := *occ.DueDate
		cp.DueDate = &due
	}
	if occ.Recurrence != nil {
		rule := occ.Recurrence.Clone()
		cp.Recurrence = &rule
	}
	if occ.Subtasks != nil {
		cp.Subtasks = append([]schedule.Subtask(nil), occ.Subtasks...)
	}
	return cp
}

func sortOccurrences(occs []schedule.Occurrence) {
	sort.Slice(occs, func(i, j int) bool {
		di, dj := occs[i].DueDate, occs[j].DueDate
		switch {
		case di == nil && dj == nil:
			return occs[i].ID.String() < occs[j].ID.String()
		case di == nil:
			return true
		case dj == nil:
			return false
		case di.Equal(*dj):
			return occs[i].ID.String() < occs[j].ID.String()
		default:
			return di.Before(*dj)
		}
	})
}
