package task_test

import (
	"context"
	"testing"
	"time"

	"github.com/warp/schedule-engine/schedule"
	"github.com/warp/schedule-engine/schedule/store"
	"github.com/warp/schedule-engine/task"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestService(today schedule.Day) (*task.Service, *store.Memory) {
	mem := store.NewMemory()
	svc := task.NewService(mem, schedule.FixedClock{Day: today})
	return svc, mem
}

func day(year int, month time.Month, d int) schedule.Day {
	return schedule.NewDay(year, month, d)
}

func weeklyTask(due schedule.Day) schedule.Occurrence {
	return schedule.Occurrence{
		Title:   "take out the bins",
		DueDate: &due,
		Recurrence: &schedule.RecurrenceRule{
			Frequency: schedule.FrequencyWeekly,
		},
		Subtasks: []schedule.Subtask{
			{Text: "bins to curb"},
			{Text: "replace liners"},
		},
	}
}

// =============================================================================
// CREATION
// =============================================================================

func TestCreate_AssignsGroupIDOnce(t *testing.T) {
	// GIVEN: A recurring task created without a group
	// THEN: It gets a group id assigned exactly once, at creation

	today := day(2024, time.January, 1)
	svc, _ := newTestService(today)
	ctx := context.Background()

	created, err := svc.Create(ctx, weeklyTask(today))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Recurrence == nil || created.Recurrence.GroupID == "" {
		t.Fatal("expected a group id to be assigned")
	}
	if created.ID.IsPending() || created.ID.IsZero() {
		t.Error("expected a committed id after insert")
	}
}

func TestCreate_PreservesExplicitGroupID(t *testing.T) {
	today := day(2024, time.January, 1)
	svc, _ := newTestService(today)
	ctx := context.Background()

	occ := weeklyTask(today)
	occ.Recurrence.GroupID = "grp-fixed"

	created, err := svc.Create(ctx, occ)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Recurrence.GroupID != "grp-fixed" {
		t.Errorf("group id rewritten: %q", created.Recurrence.GroupID)
	}
}

func TestCreate_RejectsCustomRuleWithoutDays(t *testing.T) {
	today := day(2024, time.January, 1)
	svc, _ := newTestService(today)
	ctx := context.Background()

	occ := weeklyTask(today)
	occ.Recurrence = &schedule.RecurrenceRule{Frequency: schedule.FrequencyCustom}

	_, err := svc.Create(ctx, occ)
	if err == nil {
		t.Fatal("expected an error for custom rule without days")
	}
	if !schedule.IsClientError(err) {
		t.Errorf("expected a client error, got %v", err)
	}
}

func TestCreate_OneOffWithoutDueDate(t *testing.T) {
	today := day(2024, time.January, 1)
	svc, _ := newTestService(today)
	ctx := context.Background()

	created, err := svc.Create(ctx, schedule.Occurrence{Title: "someday"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.DueDate != nil {
		t.Errorf("expected no due date, got %s", created.DueDate)
	}
	if created.IsRecurring() {
		t.Error("one-off task should not be recurring")
	}
}

// =============================================================================
// MATERIALIZATION
// =============================================================================

func TestMaterialize_CreatesMissingOccurrences(t *testing.T) {
	today := day(2024, time.January, 1)
	svc, _ := newTestService(today)
	ctx := context.Background()

	created, err := svc.Create(ctx, weeklyTask(today))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	committed, err := svc.Materialize(ctx, created.ID.String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(committed) == 0 {
		t.Fatal("expected materialized occurrences")
	}

	for _, occ := range committed {
		if occ.ID.IsPending() || occ.ID.IsZero() {
			t.Error("expected committed ids after insert")
		}
		if occ.Completed {
			t.Error("materialized occurrence should start incomplete")
		}
		if occ.Recurrence.GroupID != created.Recurrence.GroupID {
			t.Error("group id not propagated")
		}
		if occ.Recurrence.SourceOccurrenceID != created.ID.String() {
			t.Error("source reference not set")
		}
		if len(occ.Subtasks) != 2 {
			t.Fatalf("expected 2 subtasks, got %d", len(occ.Subtasks))
		}
		for _, st := range occ.Subtasks {
			if st.Completed {
				t.Error("subtask completion not reset")
			}
			if st.ID.IsPending() || st.ID.IsZero() {
				t.Error("expected committed subtask ids after insert")
			}
		}
	}
}

func TestMaterialize_Idempotent(t *testing.T) {
	// GIVEN: A group already materialized to the horizon
	// WHEN: Materializing again
	// THEN: Nothing new is created

	today := day(2024, time.January, 1)
	svc, _ := newTestService(today)
	ctx := context.Background()

	created, err := svc.Create(ctx, weeklyTask(today))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first, err := svc.Materialize(ctx, created.ID.String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first) == 0 {
		t.Fatal("expected first materialization to create occurrences")
	}

	second, err := svc.Materialize(ctx, created.ID.String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(second) != 0 {
		t.Errorf("expected idempotent re-materialization, got %d new occurrences", len(second))
	}
}

func TestMaterialize_UnknownOccurrence(t *testing.T) {
	svc, _ := newTestService(day(2024, time.January, 1))

	_, err := svc.Materialize(context.Background(), "missing")
	if !schedule.IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestMaterialize_NonRecurring_NoOp(t *testing.T) {
	today := day(2024, time.January, 1)
	svc, _ := newTestService(today)
	ctx := context.Background()

	created, err := svc.Create(ctx, schedule.Occurrence{Title: "one-off", DueDate: &today})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	committed, err := svc.Materialize(ctx, created.ID.String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(committed) != 0 {
		t.Errorf("expected no occurrences for a one-off, got %d", len(committed))
	}
}

func TestMaterializeAll_FillsEveryGroup(t *testing.T) {
	today := day(2024, time.January, 1)
	svc, _ := newTestService(today)
	ctx := context.Background()

	if _, err := svc.Create(ctx, weeklyTask(today)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	due := day(2024, time.January, 15)
	b := weeklyTask(due)
	b.Recurrence.Frequency = schedule.FrequencyMonthly
	if _, err := svc.Create(ctx, b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	created, err := svc.MaterializeAll(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created == 0 {
		t.Fatal("expected occurrences across groups")
	}

	// A second pass finds everything already materialized.
	createdAgain, err := svc.MaterializeAll(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if createdAgain != 0 {
		t.Errorf("expected no new occurrences on second pass, got %d", createdAgain)
	}
}

// =============================================================================
// USER MUTATIONS
// =============================================================================

func TestSetCompleted_TogglesOnlyTargetOccurrence(t *testing.T) {
	today := day(2024, time.January, 1)
	svc, _ := newTestService(today)
	ctx := context.Background()

	created, err := svc.Create(ctx, weeklyTask(today))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	committed, err := svc.Materialize(ctx, created.ID.String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, err := svc.SetCompleted(ctx, created.ID.String(), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !updated.Completed {
		t.Error("expected occurrence to be completed")
	}

	// Materialized siblings stay untouched.
	sibling, err := svc.Get(ctx, committed[0].ID.String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sibling.Completed {
		t.Error("sibling occurrence mutated unexpectedly")
	}
}

func TestSetSubtaskCompleted(t *testing.T) {
	today := day(2024, time.January, 1)
	svc, _ := newTestService(today)
	ctx := context.Background()

	created, err := svc.Create(ctx, weeklyTask(today))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	target := created.Subtasks[1].ID.String()
	updated, err := svc.SetSubtaskCompleted(ctx, created.ID.String(), target, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Subtasks[0].Completed {
		t.Error("wrong subtask toggled")
	}
	if !updated.Subtasks[1].Completed {
		t.Error("target subtask not toggled")
	}
}

func TestAddSubtasks_BatchedWithCommittedIDs(t *testing.T) {
	today := day(2024, time.January, 1)
	svc, _ := newTestService(today)
	ctx := context.Background()

	created, err := svc.Create(ctx, schedule.Occurrence{Title: "pack", DueDate: &today})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	added, err := svc.AddSubtasks(ctx, created.ID.String(), []string{"passport", "charger"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(added) != 2 {
		t.Fatalf("expected 2 subtasks, got %d", len(added))
	}
	for _, st := range added {
		if st.ID.IsPending() || st.ID.IsZero() {
			t.Error("expected committed subtask ids")
		}
	}
	if added[0].Text != "passport" || added[1].Text != "charger" {
		t.Errorf("subtask order not preserved: %+v", added)
	}
}
