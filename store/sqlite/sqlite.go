/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements schedule.Store (occurrences, habits, completions) using SQLite.
  In production, the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  occurrences: One row per dated task instance
  subtasks:    Ordered checklist entries under an occurrence
  habits:      Habit definitions with their rule serialized as JSON
  completions: One row per (habit, day); set semantics

DEDUPLICATION:
  idx_unique_group_day enforces at most one occurrence per (group_id,
  due_date). The expander's in-memory dedup makes collisions rare, but the
  index is the authority: a violating batch insert rolls back whole and
  surfaces as schedule.DuplicateOccurrenceError.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/schedule.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - schedule/store.go: Interface definitions
  - schedule/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/schedule-engine/schedule"
)

// Compile-time check that Store implements the full gateway surface.
var _ schedule.Store = (*Store)(nil)

// Store implements schedule.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Occurrences (one row per dated task instance)
	CREATE TABLE IF NOT EXISTS occurrences (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		due_date TEXT,
		frequency TEXT NOT NULL DEFAULT '',
		custom_days_json TEXT,
		group_id TEXT NOT NULL DEFAULT '',
		source_occurrence_id TEXT NOT NULL DEFAULT '',
		completed BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	-- CRITICAL: At most one occurrence per recurrence group per calendar day.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_group_day
		ON occurrences(group_id, due_date)
		WHERE group_id != '' AND due_date IS NOT NULL;

	CREATE INDEX IF NOT EXISTS idx_occurrences_group
		ON occurrences(group_id) WHERE group_id != '';
	CREATE INDEX IF NOT EXISTS idx_occurrences_due_date
		ON occurrences(due_date);

	-- Subtasks (ordered checklist under an occurrence)
	CREATE TABLE IF NOT EXISTS subtasks (
		id TEXT PRIMARY KEY,
		occurrence_id TEXT NOT NULL REFERENCES occurrences(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		text TEXT NOT NULL,
		completed BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE INDEX IF NOT EXISTS idx_subtasks_occurrence
		ON subtasks(occurrence_id, position);

	-- Habits
	CREATE TABLE IF NOT EXISTS habits (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		rule_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Completions (set semantics per habit and day)
	CREATE TABLE IF NOT EXISTS completions (
		habit_id TEXT NOT NULL REFERENCES habits(id) ON DELETE CASCADE,
		completed_on TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (habit_id, completed_on)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// OCCURRENCE STORE (schedule.OccurrenceStore interface)
// =============================================================================

// InsertOccurrences commits a batch of proposed occurrences atomically. A
// dedup violation rolls back the whole batch.
func (s *Store) InsertOccurrences(ctx context.Context, payloads []schedule.OccurrencePayload) ([]schedule.Occurrence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	out := make([]schedule.Occurrence, 0, len(payloads))
	for _, p := range payloads {
		occ, err := s.insertOccurrenceTx(ctx, sqlTx, p)
		if err != nil {
			return nil, err
		}
		out = append(out, occ)
	}

	if err := sqlTx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit batch: %w", err)
	}
	return out, nil
}

func (s *Store) insertOccurrenceTx(ctx context.Context, tx *sql.Tx, p schedule.OccurrencePayload) (schedule.Occurrence, error) {
	id := uuid.NewString()

	var dueDate *string
	if !p.DueDate.IsZero() {
		key := p.DueDate.Key()
		dueDate = &key
	}

	var customDaysJSON *string
	if len(p.Recurrence.CustomDays) > 0 {
		raw, _ := json.Marshal(p.Recurrence.CustomDays)
		str := string(raw)
		customDaysJSON = &str
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO occurrences
		(id, title, notes, due_date, frequency, custom_days_json, group_id, source_occurrence_id, completed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id,
		p.Title,
		p.Notes,
		dueDate,
		string(p.Recurrence.Frequency),
		customDaysJSON,
		p.Recurrence.GroupID,
		p.Recurrence.SourceOccurrenceID,
		false,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isGroupDayError(err) {
			return schedule.Occurrence{}, &schedule.DuplicateOccurrenceError{
				GroupID: p.Recurrence.GroupID,
				DueDate: p.DueDate,
			}
		}
		return schedule.Occurrence{}, fmt.Errorf("failed to insert occurrence: %w", err)
	}

	subtasks := make([]schedule.Subtask, len(p.Subtasks))
	for i, st := range p.Subtasks {
		subtasks[i] = schedule.Subtask{
			ID:   schedule.CommittedID(uuid.NewString()),
			Text: st.Text,
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO subtasks (id, occurrence_id, position, text, completed) VALUES (?, ?, ?, ?, ?)",
			subtasks[i].ID.String(), id, i, st.Text, false,
		)
		if err != nil {
			return schedule.Occurrence{}, fmt.Errorf("failed to insert subtask: %w", err)
		}
	}

	occ := schedule.Occurrence{
		ID:       schedule.CommittedID(id),
		Title:    p.Title,
		Notes:    p.Notes,
		Subtasks: subtasks,
	}
	if !p.DueDate.IsZero() {
		due := p.DueDate
		occ.DueDate = &due
	}
	if p.Recurrence.Frequency != "" || p.Recurrence.GroupID != "" {
		rule := p.Recurrence.Clone()
		occ.Recurrence = &rule
	}
	return occ, nil
}

// InsertSubtasks appends subtasks to an existing occurrence, atomic per batch.
func (s *Store) InsertSubtasks(ctx context.Context, occurrenceID string, subtasks []schedule.Subtask) ([]schedule.Subtask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	var position int
	err = sqlTx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM subtasks WHERE occurrence_id = ?", occurrenceID,
	).Scan(&position)
	if err != nil {
		return nil, err
	}

	var exists int
	err = sqlTx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM occurrences WHERE id = ?", occurrenceID,
	).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, schedule.ErrOccurrenceNotFound
	}

	out := make([]schedule.Subtask, len(subtasks))
	for i, st := range subtasks {
		out[i] = schedule.Subtask{
			ID:        schedule.CommittedID(uuid.NewString()),
			Text:      st.Text,
			Completed: st.Completed,
		}
		_, err := sqlTx.ExecContext(ctx,
			"INSERT INTO subtasks (id, occurrence_id, position, text, completed) VALUES (?, ?, ?, ?, ?)",
			out[i].ID.String(), occurrenceID, position+i, st.Text, st.Completed,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert subtask: %w", err)
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetOccurrence retrieves one occurrence with its subtasks.
func (s *Store) GetOccurrence(ctx context.Context, id string) (*schedule.Occurrence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	occs, err := s.queryOccurrences(ctx, selectOccurrences+" WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(occs) == 0 {
		return nil, nil
	}
	return &occs[0], nil
}

// ListOccurrences returns all occurrences ordered by due date, undated first.
func (s *Store) ListOccurrences(ctx context.Context) ([]schedule.Occurrence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryOccurrences(ctx, selectOccurrences+" ORDER BY due_date ASC, id ASC")
}

// ListGroupSources returns the user-created original of every recurrence
// group, the occurrences materialization starts from.
func (s *Store) ListGroupSources(ctx context.Context) ([]schedule.Occurrence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryOccurrences(ctx, selectOccurrences+`
		WHERE frequency != '' AND frequency != 'none' AND source_occurrence_id = ''
		ORDER BY due_date ASC, id ASC`)
}

// GroupDates returns the set of due-date keys already persisted for a group.
func (s *Store) GroupDates(ctx context.Context, groupID string) (schedule.DaySet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT due_date FROM occurrences WHERE group_id = ? AND due_date IS NOT NULL",
		groupID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := schedule.NewDaySet()
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		out.AddKey(key)
	}
	return out, rows.Err()
}

// SaveOccurrence updates an existing occurrence and its subtasks. Only
// committed records can be saved.
func (s *Store) SaveOccurrence(ctx context.Context, occ schedule.Occurrence) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if occ.ID.IsPending() || occ.ID.IsZero() {
		return schedule.ErrPendingID
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	var dueDate *string
	if occ.DueDate != nil {
		key := occ.DueDate.Key()
		dueDate = &key
	}

	frequency, groupID, sourceID := "", "", ""
	var customDaysJSON *string
	if occ.Recurrence != nil {
		frequency = string(occ.Recurrence.Frequency)
		groupID = occ.Recurrence.GroupID
		sourceID = occ.Recurrence.SourceOccurrenceID
		if len(occ.Recurrence.CustomDays) > 0 {
			raw, _ := json.Marshal(occ.Recurrence.CustomDays)
			str := string(raw)
			customDaysJSON = &str
		}
	}

	res, err := sqlTx.ExecContext(ctx, `
		UPDATE occurrences SET
			title = ?, notes = ?, due_date = ?, frequency = ?,
			custom_days_json = ?, group_id = ?, source_occurrence_id = ?, completed = ?
		WHERE id = ?
	`,
		occ.Title, occ.Notes, dueDate, frequency,
		customDaysJSON, groupID, sourceID, occ.Completed,
		occ.ID.String(),
	)
	if err != nil {
		if isGroupDayError(err) {
			var due schedule.Day
			if occ.DueDate != nil {
				due = *occ.DueDate
			}
			return &schedule.DuplicateOccurrenceError{GroupID: groupID, DueDate: due}
		}
		return fmt.Errorf("failed to update occurrence: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return schedule.ErrOccurrenceNotFound
	}

	// Rewrite the subtask rows; ids are preserved by the caller.
	if _, err := sqlTx.ExecContext(ctx,
		"DELETE FROM subtasks WHERE occurrence_id = ?", occ.ID.String(),
	); err != nil {
		return err
	}
	for i, st := range occ.Subtasks {
		id := st.ID.String()
		if st.ID.IsPending() || st.ID.IsZero() {
			id = uuid.NewString()
		}
		_, err := sqlTx.ExecContext(ctx,
			"INSERT INTO subtasks (id, occurrence_id, position, text, completed) VALUES (?, ?, ?, ?, ?)",
			id, occ.ID.String(), i, st.Text, st.Completed,
		)
		if err != nil {
			return fmt.Errorf("failed to save subtask: %w", err)
		}
	}

	return sqlTx.Commit()
}

const selectOccurrences = `
	SELECT id, title, notes, due_date, frequency, custom_days_json,
	       group_id, source_occurrence_id, completed
	FROM occurrences`

func (s *Store) queryOccurrences(ctx context.Context, query string, args ...any) ([]schedule.Occurrence, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query occurrences: %w", err)
	}
	defer rows.Close()

	var occurrences []schedule.Occurrence
	for rows.Next() {
		occ, err := scanOccurrence(rows)
		if err != nil {
			return nil, err
		}
		occurrences = append(occurrences, occ)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range occurrences {
		subtasks, err := s.loadSubtasks(ctx, occurrences[i].ID.String())
		if err != nil {
			return nil, err
		}
		occurrences[i].Subtasks = subtasks
	}
	return occurrences, nil
}

func scanOccurrence(rows *sql.Rows) (schedule.Occurrence, error) {
	var (
		id, title, notes   string
		dueDate            sql.NullString
		frequency          string
		customDaysJSON     sql.NullString
		groupID, sourceID  string
		completed          bool
	)

	err := rows.Scan(&id, &title, &notes, &dueDate, &frequency,
		&customDaysJSON, &groupID, &sourceID, &completed)
	if err != nil {
		return schedule.Occurrence{}, fmt.Errorf("failed to scan occurrence: %w", err)
	}

	occ := schedule.Occurrence{
		ID:        schedule.CommittedID(id),
		Title:     title,
		Notes:     notes,
		Completed: completed,
	}

	if dueDate.Valid {
		day, err := schedule.ParseDay(dueDate.String)
		if err != nil {
			return schedule.Occurrence{}, fmt.Errorf("bad due_date %q: %w", dueDate.String, err)
		}
		occ.DueDate = &day
	}

	if frequency != "" || groupID != "" {
		rule := schedule.RecurrenceRule{
			Frequency:          schedule.Frequency(frequency),
			GroupID:            groupID,
			SourceOccurrenceID: sourceID,
		}
		if customDaysJSON.Valid && customDaysJSON.String != "" {
			json.Unmarshal([]byte(customDaysJSON.String), &rule.CustomDays)
		}
		occ.Recurrence = &rule
	}
	return occ, nil
}

func (s *Store) loadSubtasks(ctx context.Context, occurrenceID string) ([]schedule.Subtask, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, text, completed FROM subtasks WHERE occurrence_id = ? ORDER BY position ASC",
		occurrenceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subtasks []schedule.Subtask
	for rows.Next() {
		var id, text string
		var completed bool
		if err := rows.Scan(&id, &text, &completed); err != nil {
			return nil, err
		}
		subtasks = append(subtasks, schedule.Subtask{
			ID:        schedule.CommittedID(id),
			Text:      text,
			Completed: completed,
		})
	}
	return subtasks, rows.Err()
}

// =============================================================================
// HABIT STORE (schedule.HabitStore interface)
// =============================================================================

// habitRuleRecord is the JSON shape the rule is stored as.
type habitRuleRecord struct {
	Kind         string  `json:"kind"`
	TimesPerWeek int     `json:"times_per_week,omitempty"`
	Days         []int   `json:"days,omitempty"`
	EveryNDays   int     `json:"every_n_days,omitempty"`
	Start        *string `json:"start,omitempty"`
}

// SaveHabit inserts or updates a habit.
func (s *Store) SaveHabit(ctx context.Context, h schedule.Habit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h.ID.IsPending() || h.ID.IsZero() {
		return schedule.ErrPendingID
	}

	record := habitRuleRecord{
		Kind:         string(h.Rule.Kind),
		TimesPerWeek: h.Rule.TimesPerWeek,
		Days:         h.Rule.Days,
		EveryNDays:   h.Rule.EveryNDays,
	}
	if h.Rule.Start != nil {
		key := h.Rule.Start.Key()
		record.Start = &key
	}
	ruleJSON, _ := json.Marshal(record)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO habits (id, name, rule_json, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			rule_json = excluded.rule_json
	`,
		h.ID.String(), h.Name, string(ruleJSON),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetHabit retrieves a habit by ID. Returns nil when absent.
func (s *Store) GetHabit(ctx context.Context, id string) (*schedule.Habit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var name, ruleJSON string
	err := s.db.QueryRowContext(ctx,
		"SELECT name, rule_json FROM habits WHERE id = ?", id,
	).Scan(&name, &ruleJSON)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rule, err := parseRule(ruleJSON)
	if err != nil {
		return nil, err
	}
	return &schedule.Habit{ID: schedule.CommittedID(id), Name: name, Rule: rule}, nil
}

// ListHabits returns all habits ordered by name.
func (s *Store) ListHabits(ctx context.Context) ([]schedule.Habit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, rule_json FROM habits ORDER BY name ASC, id ASC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var habits []schedule.Habit
	for rows.Next() {
		var id, name, ruleJSON string
		if err := rows.Scan(&id, &name, &ruleJSON); err != nil {
			return nil, err
		}
		rule, err := parseRule(ruleJSON)
		if err != nil {
			return nil, err
		}
		habits = append(habits, schedule.Habit{
			ID:   schedule.CommittedID(id),
			Name: name,
			Rule: rule,
		})
	}
	return habits, rows.Err()
}

func parseRule(raw string) (schedule.HabitRule, error) {
	var record habitRuleRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return schedule.HabitRule{}, fmt.Errorf("bad rule_json: %w", err)
	}

	rule := schedule.HabitRule{
		Kind:         schedule.HabitRuleKind(record.Kind),
		TimesPerWeek: record.TimesPerWeek,
		Days:         record.Days,
		EveryNDays:   record.EveryNDays,
	}
	if record.Start != nil {
		day, err := schedule.ParseDay(*record.Start)
		if err != nil {
			return schedule.HabitRule{}, fmt.Errorf("bad rule start %q: %w", *record.Start, err)
		}
		rule.Start = &day
	}
	return rule, nil
}

// =============================================================================
// COMPLETION STORE (schedule.CompletionStore interface)
// =============================================================================

// MarkCompleted records a completion for a day. Repeating the call for the
// same day is a no-op.
func (s *Store) MarkCompleted(ctx context.Context, habitID string, day schedule.Day) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO completions (habit_id, completed_on, created_at) VALUES (?, ?, ?)",
		habitID, day.Key(), time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// RemoveCompletion unmarks a day.
func (s *Store) RemoveCompletion(ctx context.Context, habitID string, day schedule.Day) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"DELETE FROM completions WHERE habit_id = ? AND completed_on = ?",
		habitID, day.Key(),
	)
	return err
}

// CompletedDays returns all completed day keys for a habit.
func (s *Store) CompletedDays(ctx context.Context, habitID string) (schedule.DaySet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT completed_on FROM completions WHERE habit_id = ?", habitID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := schedule.NewDaySet()
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		out.AddKey(key)
	}
	return out, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"completions", "habits", "subtasks", "occurrences"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func isGroupDayError(err error) bool {
	return err != nil &&
		strings.Contains(err.Error(), "UNIQUE constraint failed") &&
		strings.Contains(err.Error(), "occurrences")
}
