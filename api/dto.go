/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/warp/schedule-engine/habit"
	"github.com/warp/schedule-engine/schedule"
)

// =============================================================================
// TASK TYPES
// =============================================================================

// RecurrenceDTO represents a recurrence rule in API responses.
type RecurrenceDTO struct {
	Frequency          string `json:"frequency"`
	CustomDays         []int  `json:"custom_days,omitempty"`
	GroupID            string `json:"group_id,omitempty"`
	SourceOccurrenceID string `json:"source_occurrence_id,omitempty"`
}

// SubtaskDTO represents one checklist entry.
type SubtaskDTO struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// TaskDTO represents an occurrence in API responses.
type TaskDTO struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Notes      string         `json:"notes,omitempty"`
	DueDate    *string        `json:"due_date,omitempty"`
	Recurrence *RecurrenceDTO `json:"recurrence,omitempty"`
	Completed  bool           `json:"completed"`
	Subtasks   []SubtaskDTO   `json:"subtasks"`
}

// CreateTaskRequest is the request to create a task.
type CreateTaskRequest struct {
	Title      string         `json:"title"`
	Notes      string         `json:"notes,omitempty"`
	DueDate    *string        `json:"due_date,omitempty"`
	Recurrence *RecurrenceDTO `json:"recurrence,omitempty"`
	Subtasks   []string       `json:"subtasks,omitempty"`
}

// SetCompletedRequest toggles completion state.
type SetCompletedRequest struct {
	Completed bool `json:"completed"`
}

// AddSubtasksRequest appends checklist entries to a task.
type AddSubtasksRequest struct {
	Texts []string `json:"texts"`
}

// MaterializeResultDTO reports what a materialization pass created.
type MaterializeResultDTO struct {
	Created int       `json:"created"`
	Tasks   []TaskDTO `json:"tasks,omitempty"`
}

// =============================================================================
// HABIT TYPES
// =============================================================================

// RuleDTO represents a habit frequency rule.
type RuleDTO struct {
	Kind         string  `json:"kind"`
	TimesPerWeek int     `json:"times_per_week,omitempty"`
	Days         []int   `json:"days,omitempty"`
	EveryNDays   int     `json:"every_n_days,omitempty"`
	Start        *string `json:"start,omitempty"`
}

// HabitDTO represents a habit in API responses.
type HabitDTO struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Rule RuleDTO `json:"rule"`
}

// CreateHabitRequest is the request to create a habit.
type CreateHabitRequest struct {
	Name string  `json:"name"`
	Rule RuleDTO `json:"rule"`
}

// MarkCompletionRequest records a habit completion. Date defaults to today.
type MarkCompletionRequest struct {
	Date *string `json:"date,omitempty"`
}

// StreakDTO reports the current streak and today's applicability.
type StreakDTO struct {
	HabitID         string `json:"habit_id"`
	Streak          int    `json:"streak"`
	ApplicableToday bool   `json:"applicable_today"`
}

// WeekStatDTO is one week of the completion report.
type WeekStatDTO struct {
	WeekStart string `json:"week_start"`
	Expected  int    `json:"expected"`
	Completed int    `json:"completed"`
	Rate      string `json:"rate"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toTaskDTO(occ schedule.Occurrence) TaskDTO {
	dto := TaskDTO{
		ID:        occ.ID.String(),
		Title:     occ.Title,
		Notes:     occ.Notes,
		Completed: occ.Completed,
		Subtasks:  make([]SubtaskDTO, len(occ.Subtasks)),
	}
	if occ.DueDate != nil {
		key := occ.DueDate.Key()
		dto.DueDate = &key
	}
	if occ.Recurrence != nil {
		dto.Recurrence = &RecurrenceDTO{
			Frequency:          string(occ.Recurrence.Frequency),
			CustomDays:         occ.Recurrence.CustomDays,
			GroupID:            occ.Recurrence.GroupID,
			SourceOccurrenceID: occ.Recurrence.SourceOccurrenceID,
		}
	}
	for i, st := range occ.Subtasks {
		dto.Subtasks[i] = SubtaskDTO{
			ID:        st.ID.String(),
			Text:      st.Text,
			Completed: st.Completed,
		}
	}
	return dto
}

func toTaskDTOs(occs []schedule.Occurrence) []TaskDTO {
	dtos := make([]TaskDTO, len(occs))
	for i, occ := range occs {
		dtos[i] = toTaskDTO(occ)
	}
	return dtos
}

func toHabitDTO(h schedule.Habit) HabitDTO {
	dto := HabitDTO{
		ID:   h.ID.String(),
		Name: h.Name,
		Rule: RuleDTO{
			Kind:         string(h.Rule.Kind),
			TimesPerWeek: h.Rule.TimesPerWeek,
			Days:         h.Rule.Days,
			EveryNDays:   h.Rule.EveryNDays,
		},
	}
	if h.Rule.Start != nil {
		key := h.Rule.Start.Key()
		dto.Rule.Start = &key
	}
	return dto
}

func toRule(dto RuleDTO) (schedule.HabitRule, error) {
	rule := schedule.HabitRule{
		Kind:         schedule.HabitRuleKind(dto.Kind),
		TimesPerWeek: dto.TimesPerWeek,
		Days:         dto.Days,
		EveryNDays:   dto.EveryNDays,
	}
	if dto.Start != nil {
		day, err := schedule.ParseDay(*dto.Start)
		if err != nil {
			return schedule.HabitRule{}, err
		}
		rule.Start = &day
	}
	return rule, nil
}

func toWeekStatDTOs(stats []habit.WeekStat) []WeekStatDTO {
	dtos := make([]WeekStatDTO, len(stats))
	for i, s := range stats {
		dtos[i] = WeekStatDTO{
			WeekStart: s.WeekStart.Key(),
			Expected:  s.Expected,
			Completed: s.Completed,
			Rate:      s.Rate.String(),
		}
	}
	return dtos
}
