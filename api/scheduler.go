/*
scheduler.go - Background materialization scheduler

PURPOSE:
  Periodically re-runs materialization so every recurrence group stays
  filled to its rolling horizon as the calendar advances. Without this,
  horizons only move when a user touches a task.

DESIGN:
  - Uses a cron schedule (default: daily just after midnight UTC, when the
    set of reachable due dates changes)
  - Runs once immediately on Start so a fresh deploy catches up
  - Materialization is idempotent, so overlapping or repeated runs are safe

USAGE:
  scheduler := NewMaterializeScheduler(tasks, log, "5 0 * * *")
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: MaterializeAll endpoint (manual trigger)
  - task/service.go: MaterializeAll implementation
*/
package api

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/warp/schedule-engine/task"
)

// DefaultMaterializeSpec runs shortly after midnight UTC, once the set of
// dates inside each horizon has shifted.
const DefaultMaterializeSpec = "5 0 * * *"

// MaterializeScheduler keeps recurrence groups filled on a cron schedule.
type MaterializeScheduler struct {
	Tasks *task.Service
	Log   zerolog.Logger
	Spec  string

	cron *cron.Cron
}

// NewMaterializeScheduler creates a scheduler. An empty spec uses the default.
func NewMaterializeScheduler(tasks *task.Service, log zerolog.Logger, spec string) *MaterializeScheduler {
	if spec == "" {
		spec = DefaultMaterializeSpec
	}
	return &MaterializeScheduler{
		Tasks: tasks,
		Log:   log,
		Spec:  spec,
	}
}

// Start begins the scheduler and runs one immediate pass.
func (ms *MaterializeScheduler) Start() error {
	ms.cron = cron.New()
	if _, err := ms.cron.AddFunc(ms.Spec, ms.RunNow); err != nil {
		return err
	}
	ms.cron.Start()
	ms.Log.Info().Str("spec", ms.Spec).Msg("materialize scheduler started")

	go ms.RunNow()
	return nil
}

// Stop stops the scheduler and waits for a running pass to finish.
func (ms *MaterializeScheduler) Stop() {
	if ms.cron == nil {
		return
	}
	<-ms.cron.Stop().Done()
	ms.Log.Info().Msg("materialize scheduler stopped")
}

// RunNow triggers an immediate materialization pass.
func (ms *MaterializeScheduler) RunNow() {
	created, err := ms.Tasks.MaterializeAll(context.Background())
	if err != nil {
		ms.Log.Error().Err(err).Msg("materialization pass failed")
		return
	}
	if created > 0 {
		ms.Log.Info().Int("created", created).Msg("materialization pass completed")
	}
}
