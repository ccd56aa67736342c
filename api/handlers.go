/*
handlers.go - HTTP API handlers for the scheduling engine

PURPOSE:
  Exposes the scheduling engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Tasks:
    GET    /api/tasks                         List all tasks
    POST   /api/tasks                         Create task
    GET    /api/tasks/{id}                    Get task details
    POST   /api/tasks/{id}/materialize        Fill the task's recurrence group
    POST   /api/tasks/materialize             Fill every recurrence group
    POST   /api/tasks/{id}/complete           Toggle completion
    POST   /api/tasks/{id}/subtasks           Append subtasks
    POST   /api/tasks/{id}/subtasks/{sid}/complete  Toggle one subtask

  Habits:
    GET    /api/habits                        List all habits
    POST   /api/habits                        Create habit
    GET    /api/habits/{id}                   Get habit details
    POST   /api/habits/{id}/completions       Mark a day completed
    DELETE /api/habits/{id}/completions/{date} Unmark a day
    GET    /api/habits/{id}/streak            Current streak
    GET    /api/habits/{id}/report            Weekly completion report

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (duplicate occurrence for group and date)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/warp/schedule-engine/habit"
	"github.com/warp/schedule-engine/schedule"
	"github.com/warp/schedule-engine/task"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Tasks  *task.Service
	Habits *habit.Service
	Log    zerolog.Logger
}

// NewHandler creates a new handler with the given services.
func NewHandler(tasks *task.Service, habits *habit.Service, log zerolog.Logger) *Handler {
	return &Handler{
		Tasks:  tasks,
		Habits: habits,
		Log:    log,
	}
}

// =============================================================================
// TASK HANDLERS
// =============================================================================

// ListTasks returns all tasks ordered by due date.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	occs, err := h.Tasks.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list tasks", err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskDTOs(occs))
}

// CreateTask creates a task, recurring or one-off.
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "Title is required", nil)
		return
	}

	occ := schedule.Occurrence{
		Title: req.Title,
		Notes: req.Notes,
	}
	if req.DueDate != nil {
		day, err := schedule.ParseDay(*req.DueDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid due_date", err)
			return
		}
		occ.DueDate = &day
	}
	if req.Recurrence != nil {
		occ.Recurrence = &schedule.RecurrenceRule{
			Frequency:  schedule.Frequency(req.Recurrence.Frequency),
			CustomDays: req.Recurrence.CustomDays,
			GroupID:    req.Recurrence.GroupID,
		}
	}
	for _, text := range req.Subtasks {
		occ.Subtasks = append(occ.Subtasks, schedule.Subtask{Text: text})
	}

	created, err := h.Tasks.Create(r.Context(), occ)
	if err != nil {
		h.writeDomainError(w, "Failed to create task", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTaskDTO(created))
}

// GetTask returns a single task.
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	occ, err := h.Tasks.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get task", err)
		return
	}
	if occ == nil {
		writeError(w, http.StatusNotFound, "Task not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toTaskDTO(*occ))
}

// MaterializeTask fills the task's recurrence group up to the horizon.
func (h *Handler) MaterializeTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	committed, err := h.Tasks.Materialize(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to materialize task", err)
		return
	}

	h.Log.Info().Str("task", id).Int("created", len(committed)).Msg("materialized recurrence group")
	writeJSON(w, http.StatusOK, MaterializeResultDTO{
		Created: len(committed),
		Tasks:   toTaskDTOs(committed),
	})
}

// MaterializeAll fills every recurrence group. Same operation the background
// scheduler runs.
func (h *Handler) MaterializeAll(w http.ResponseWriter, r *http.Request) {
	created, err := h.Tasks.MaterializeAll(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to materialize tasks", err)
		return
	}

	h.Log.Info().Int("created", created).Msg("materialized all recurrence groups")
	writeJSON(w, http.StatusOK, MaterializeResultDTO{Created: created})
}

// CompleteTask toggles a task's completion state.
func (h *Handler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	var req SetCompletedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	updated, err := h.Tasks.SetCompleted(r.Context(), chi.URLParam(r, "id"), req.Completed)
	if err != nil {
		h.writeDomainError(w, "Failed to update task", err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskDTO(updated))
}

// AddSubtasks appends checklist entries to a task.
func (h *Handler) AddSubtasks(w http.ResponseWriter, r *http.Request) {
	var req AddSubtasksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.Texts) == 0 {
		writeError(w, http.StatusBadRequest, "No subtasks given", nil)
		return
	}

	added, err := h.Tasks.AddSubtasks(r.Context(), chi.URLParam(r, "id"), req.Texts)
	if err != nil {
		h.writeDomainError(w, "Failed to add subtasks", err)
		return
	}

	dtos := make([]SubtaskDTO, len(added))
	for i, st := range added {
		dtos[i] = SubtaskDTO{ID: st.ID.String(), Text: st.Text, Completed: st.Completed}
	}
	writeJSON(w, http.StatusCreated, dtos)
}

// CompleteSubtask toggles one subtask's completion state.
func (h *Handler) CompleteSubtask(w http.ResponseWriter, r *http.Request) {
	var req SetCompletedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	updated, err := h.Tasks.SetSubtaskCompleted(r.Context(),
		chi.URLParam(r, "id"), chi.URLParam(r, "subtaskID"), req.Completed)
	if err != nil {
		h.writeDomainError(w, "Failed to update subtask", err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskDTO(updated))
}

// =============================================================================
// HABIT HANDLERS
// =============================================================================

// ListHabits returns all habits.
func (h *Handler) ListHabits(w http.ResponseWriter, r *http.Request) {
	habits, err := h.Habits.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list habits", err)
		return
	}

	dtos := make([]HabitDTO, len(habits))
	for i, hb := range habits {
		dtos[i] = toHabitDTO(hb)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateHabit creates a habit with a validated frequency rule.
func (h *Handler) CreateHabit(w http.ResponseWriter, r *http.Request) {
	var req CreateHabitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required", nil)
		return
	}

	rule, err := toRule(req.Rule)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rule start date", err)
		return
	}

	created, err := h.Habits.Create(r.Context(), req.Name, rule)
	if err != nil {
		h.writeDomainError(w, "Failed to create habit", err)
		return
	}
	writeJSON(w, http.StatusCreated, toHabitDTO(created))
}

// GetHabit returns a single habit.
func (h *Handler) GetHabit(w http.ResponseWriter, r *http.Request) {
	hb, err := h.Habits.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to get habit", err)
		return
	}
	writeJSON(w, http.StatusOK, toHabitDTO(hb))
}

// MarkCompletion records a completed day for a habit.
func (h *Handler) MarkCompletion(w http.ResponseWriter, r *http.Request) {
	var req MarkCompletionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	var day *schedule.Day
	if req.Date != nil {
		parsed, err := schedule.ParseDay(*req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date", err)
			return
		}
		day = &parsed
	}

	if err := h.Habits.MarkCompleted(r.Context(), chi.URLParam(r, "id"), day); err != nil {
		h.writeDomainError(w, "Failed to mark completion", err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// RemoveCompletion unmarks a completed day.
func (h *Handler) RemoveCompletion(w http.ResponseWriter, r *http.Request) {
	day, err := schedule.ParseDay(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	if err := h.Habits.RemoveCompletion(r.Context(), chi.URLParam(r, "id"), day); err != nil {
		h.writeDomainError(w, "Failed to remove completion", err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// GetStreak returns the habit's current streak and today's applicability.
func (h *Handler) GetStreak(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	streak, err := h.Habits.Streak(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to compute streak", err)
		return
	}
	applicable, err := h.Habits.IsApplicableToday(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to compute applicability", err)
		return
	}

	writeJSON(w, http.StatusOK, StreakDTO{
		HabitID:         id,
		Streak:          streak,
		ApplicableToday: applicable,
	})
}

// GetReport returns the weekly completion report. ?weeks=N, default 4.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	weeks := 4
	if raw := r.URL.Query().Get("weeks"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid weeks parameter", err)
			return
		}
		weeks = parsed
	}

	stats, err := h.Habits.WeeklyReport(r.Context(), chi.URLParam(r, "id"), weeks)
	if err != nil {
		h.writeDomainError(w, "Failed to build report", err)
		return
	}
	writeJSON(w, http.StatusOK, toWeekStatDTOs(stats))
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

// writeDomainError maps domain errors to HTTP status codes.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case schedule.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, schedule.ErrDuplicateOccurrence):
		writeError(w, http.StatusConflict, message, err)
	case schedule.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.Log.Error().Err(err).Msg(message)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	if data == nil {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
