// Package store implements the Task store and Settings store external
// collaborators (§6) over SQLite, grounded on the teacher's
// internal/persistence/store.go (a debounced, file-backed store behind a
// narrow Store interface) and internal/events/store.go /
// internal/memory/db.go, which are the teacher's files that actually use
// github.com/mattn/go-sqlite3 (the pack's go.mod also lists
// modernc.org/sqlite, but it is exercised by exactly one disposable
// script — see DESIGN.md). The core only ever reads the Task fields named
// in §3 and writes status/failure_reason/updated_at/completed_at; it never owns the
// store's schema beyond that (§1 Non-goals).
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sessionforge/sessionforge/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id              TEXT PRIMARY KEY,
	project_dir     TEXT NOT NULL,
	doc_path        TEXT NOT NULL,
	status          TEXT NOT NULL,
	preferred_cli   TEXT NOT NULL DEFAULT '',
	review_override TEXT NOT NULL DEFAULT 'inherit',
	created_at      DATETIME NOT NULL,
	updated_at      DATETIME NOT NULL,
	completed_at    DATETIME,
	failure_reason  TEXT NOT NULL DEFAULT '',
	logs_pointer    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// DB wraps the sqlite connection shared by TaskStore and SettingsStore.
type DB struct {
	conn *sql.DB
}

// Open opens (creating if needed) the sqlite database at path and applies
// the schema.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal=WAL&_timeout=5000&_fk=true")
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	conn.SetMaxOpenConns(1) // sqlite3 driver is not safe for concurrent writers

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying connection.
func (d *DB) Close() error { return d.conn.Close() }

// TaskStore is durable CRUD of task records (§6 "Task store").
type TaskStore struct {
	db *DB
}

// NewTaskStore builds a TaskStore over db.
func NewTaskStore(db *DB) *TaskStore { return &TaskStore{db: db} }

// Get loads a task by id.
func (s *TaskStore) Get(id string) (*types.Task, error) {
	row := s.db.conn.QueryRow(`SELECT id, project_dir, doc_path, status, preferred_cli,
		review_override, created_at, updated_at, completed_at, failure_reason, logs_pointer
		FROM tasks WHERE id = ?`, id)
	return scanTask(row)
}

// ListByStatus returns every task with the given status, used at startup
// reconciliation (§3 "Lifecycles") to find in_progress/in_reviewing tasks.
func (s *TaskStore) ListByStatus(status types.TaskStatus) ([]*types.Task, error) {
	rows, err := s.db.conn.Query(`SELECT id, project_dir, doc_path, status, preferred_cli,
		review_override, created_at, updated_at, completed_at, failure_reason, logs_pointer
		FROM tasks WHERE status = ?`, string(status))
	if err != nil {
		return nil, fmt.Errorf("store: list by status %s: %w", status, err)
	}
	defer rows.Close()

	var out []*types.Task
	for rows.Next() {
		t, err := scanTaskRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Create inserts a new pending task.
func (s *TaskStore) Create(t *types.Task) error {
	_, err := s.db.conn.Exec(`INSERT INTO tasks
		(id, project_dir, doc_path, status, preferred_cli, review_override, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ProjectDir, t.DocPath, string(t.Status), string(t.PreferredCLI),
		string(t.ReviewOverride), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: create task %s: %w", t.ID, err)
	}
	return nil
}

// UpdateStatus writes the only fields the core ever mutates: status,
// failure_reason, updated_at, and completed_at (§3, §1 Non-goals).
func (s *TaskStore) UpdateStatus(id string, status types.TaskStatus, failureReason string, completedAt *time.Time, updatedAt time.Time) error {
	_, err := s.db.conn.Exec(`UPDATE tasks SET status = ?, failure_reason = ?, completed_at = ?, updated_at = ? WHERE id = ?`,
		string(status), failureReason, completedAt, updatedAt, id)
	if err != nil {
		return fmt.Errorf("store: update status of %s: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row *sql.Row) (*types.Task, error) {
	return scanTaskGeneric(row)
}

func scanTaskRows(rows *sql.Rows) (*types.Task, error) {
	return scanTaskGeneric(rows)
}

func scanTaskGeneric(s rowScanner) (*types.Task, error) {
	var t types.Task
	var status, preferredCLI, reviewOverride string
	var completedAt sql.NullTime

	err := s.Scan(&t.ID, &t.ProjectDir, &t.DocPath, &status, &preferredCLI,
		&reviewOverride, &t.CreatedAt, &t.UpdatedAt, &completedAt, &t.FailureReason, &t.LogsPointer)
	if err != nil {
		return nil, err
	}

	t.Status = types.TaskStatus(status)
	t.PreferredCLI = types.CLIKind(preferredCLI)
	t.ReviewOverride = types.ReviewToggle(reviewOverride)
	if completedAt.Valid {
		ts := completedAt.Time
		t.CompletedAt = &ts
	}
	return &t, nil
}

// SettingsStore is get/put of the typed settings keys enumerated in §3.
type SettingsStore struct {
	db *DB
}

// NewSettingsStore builds a SettingsStore over db.
func NewSettingsStore(db *DB) *SettingsStore { return &SettingsStore{db: db} }

// Get returns the raw string value for key, and whether it was present.
func (s *SettingsStore) Get(key string) (string, bool, error) {
	var value string
	err := s.db.conn.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("store: get setting %s: %w", key, err)
	}
	return value, true, nil
}

// Put upserts a single setting key/value.
func (s *SettingsStore) Put(key, value string) error {
	_, err := s.db.conn.Exec(`INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("store: put setting %s: %w", key, err)
	}
	return nil
}
