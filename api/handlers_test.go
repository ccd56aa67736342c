/*
handlers_test.go - Unit tests for API handlers

Tests for:
- Task creation and materialization endpoints
- Habit completion and streak endpoints
- Domain-error to HTTP-status mapping
*/
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/warp/schedule-engine/habit"
	"github.com/warp/schedule-engine/schedule"
	"github.com/warp/schedule-engine/schedule/store"
	"github.com/warp/schedule-engine/task"
)

func newTestServer(t *testing.T, today schedule.Day) *httptest.Server {
	t.Helper()

	mem := store.NewMemory()
	clock := schedule.FixedClock{Day: today}
	handler := NewHandler(
		task.NewService(mem, clock),
		habit.NewService(mem, mem, clock),
		zerolog.Nop(),
	)
	server := httptest.NewServer(NewRouter(handler))
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	var out bytes.Buffer
	if _, err := out.ReadFrom(resp.Body); err != nil {
		t.Fatalf("Failed to read response: %v", err)
	}
	return resp, out.Bytes()
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("Failed to decode response %s: %v", raw, err)
	}
	return out
}

// =============================================================================
// TASK ENDPOINTS
// =============================================================================

func TestCreateAndMaterializeTask(t *testing.T) {
	// GIVEN: A weekly task created through the API
	server := newTestServer(t, schedule.NewDay(2024, time.January, 1))

	due := "2024-01-01"
	resp, raw := doJSON(t, http.MethodPost, server.URL+"/api/tasks", CreateTaskRequest{
		Title:      "water plants",
		DueDate:    &due,
		Recurrence: &RecurrenceDTO{Frequency: "weekly"},
		Subtasks:   []string{"fill can"},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", resp.StatusCode, raw)
	}
	created := decode[TaskDTO](t, raw)
	if created.Recurrence == nil || created.Recurrence.GroupID == "" {
		t.Fatal("Expected a group id on the created task")
	}

	// WHEN: Materializing its recurrence group
	resp, raw = doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/tasks/%s/materialize", server.URL, created.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, raw)
	}
	result := decode[MaterializeResultDTO](t, raw)

	// THEN: Future occurrences exist with reset subtasks
	if result.Created == 0 {
		t.Fatal("Expected materialized occurrences")
	}
	for _, dto := range result.Tasks {
		if dto.Completed {
			t.Error("Materialized task should start incomplete")
		}
		if len(dto.Subtasks) != 1 || dto.Subtasks[0].Completed {
			t.Errorf("Subtasks not carried over cleanly: %+v", dto.Subtasks)
		}
		if dto.Recurrence.SourceOccurrenceID != created.ID {
			t.Error("Source reference not set")
		}
	}

	// AND: A second materialization creates nothing
	resp, raw = doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/tasks/%s/materialize", server.URL, created.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, raw)
	}
	if again := decode[MaterializeResultDTO](t, raw); again.Created != 0 {
		t.Errorf("Expected idempotent re-materialization, got %d", again.Created)
	}
}

func TestCreateTask_InvalidCustomRule(t *testing.T) {
	server := newTestServer(t, schedule.NewDay(2024, time.January, 1))

	due := "2024-01-01"
	resp, raw := doJSON(t, http.MethodPost, server.URL+"/api/tasks", CreateTaskRequest{
		Title:      "broken",
		DueDate:    &due,
		Recurrence: &RecurrenceDTO{Frequency: "custom"},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d: %s", resp.StatusCode, raw)
	}
}

func TestGetTask_NotFound(t *testing.T) {
	server := newTestServer(t, schedule.NewDay(2024, time.January, 1))

	resp, _ := doJSON(t, http.MethodGet, server.URL+"/api/tasks/missing", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", resp.StatusCode)
	}
}

func TestCompleteTask(t *testing.T) {
	server := newTestServer(t, schedule.NewDay(2024, time.January, 1))

	resp, raw := doJSON(t, http.MethodPost, server.URL+"/api/tasks", CreateTaskRequest{Title: "one-off"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", resp.StatusCode, raw)
	}
	created := decode[TaskDTO](t, raw)

	resp, raw = doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/tasks/%s/complete", server.URL, created.ID),
		SetCompletedRequest{Completed: true})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, raw)
	}
	if updated := decode[TaskDTO](t, raw); !updated.Completed {
		t.Error("Expected the task to be completed")
	}
}

// =============================================================================
// HABIT ENDPOINTS
// =============================================================================

func TestHabitLifecycle(t *testing.T) {
	// GIVEN: A daily habit
	today := schedule.NewDay(2024, time.March, 10)
	server := newTestServer(t, today)

	resp, raw := doJSON(t, http.MethodPost, server.URL+"/api/habits", CreateHabitRequest{
		Name: "read",
		Rule: RuleDTO{Kind: "daily"},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", resp.StatusCode, raw)
	}
	created := decode[HabitDTO](t, raw)

	// WHEN: Completing today and yesterday
	resp, _ = doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/habits/%s/completions", server.URL, created.ID), nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", resp.StatusCode)
	}
	yesterday := "2024-03-09"
	resp, _ = doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/habits/%s/completions", server.URL, created.ID),
		MarkCompletionRequest{Date: &yesterday})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", resp.StatusCode)
	}

	// THEN: The streak is 2 and the habit applies today
	resp, raw = doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/api/habits/%s/streak", server.URL, created.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, raw)
	}
	streak := decode[StreakDTO](t, raw)
	if streak.Streak != 2 {
		t.Errorf("Expected streak 2, got %d", streak.Streak)
	}
	if !streak.ApplicableToday {
		t.Error("Daily habit should apply today")
	}

	// AND: Removing yesterday's completion shortens the streak
	resp, _ = doJSON(t, http.MethodDelete,
		fmt.Sprintf("%s/api/habits/%s/completions/%s", server.URL, created.ID, yesterday), nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", resp.StatusCode)
	}
	resp, raw = doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/api/habits/%s/streak", server.URL, created.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, raw)
	}
	if got := decode[StreakDTO](t, raw); got.Streak != 1 {
		t.Errorf("Expected streak 1 after removal, got %d", got.Streak)
	}
}

func TestCreateHabit_InvalidRule(t *testing.T) {
	server := newTestServer(t, schedule.NewDay(2024, time.March, 10))

	resp, raw := doJSON(t, http.MethodPost, server.URL+"/api/habits", CreateHabitRequest{
		Name: "broken",
		Rule: RuleDTO{Kind: "interval", EveryNDays: 0},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d: %s", resp.StatusCode, raw)
	}
}

func TestWeeklyReportEndpoint(t *testing.T) {
	server := newTestServer(t, schedule.NewDay(2024, time.March, 13))

	resp, raw := doJSON(t, http.MethodPost, server.URL+"/api/habits", CreateHabitRequest{
		Name: "gym",
		Rule: RuleDTO{Kind: "times_per_week", TimesPerWeek: 3},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", resp.StatusCode, raw)
	}
	created := decode[HabitDTO](t, raw)

	monday := "2024-03-11"
	resp, _ = doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/habits/%s/completions", server.URL, created.ID),
		MarkCompletionRequest{Date: &monday})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", resp.StatusCode)
	}

	resp, raw = doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/api/habits/%s/report?weeks=2", server.URL, created.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, raw)
	}

	stats := decode[[]WeekStatDTO](t, raw)
	if len(stats) != 2 {
		t.Fatalf("Expected 2 weeks, got %d", len(stats))
	}
	current := stats[1]
	if current.WeekStart != "2024-03-10" {
		t.Errorf("Expected current week to start 2024-03-10, got %s", current.WeekStart)
	}
	if current.Expected != 3 || current.Completed != 1 {
		t.Errorf("Expected 1/3, got %d/%d", current.Completed, current.Expected)
	}
}
