// Package history records finished jobs in a SQLite journal. The engine
// itself is persistence-free; the journal subscribes to removal events so
// clients can correlate job ids with unique invocations after the fact.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/RevCBH/unitd/internal/events"
)

// DB wraps the SQLite connection with journal-specific operations
type DB struct {
	conn *sql.DB
}

// Entry is one finished job
type Entry struct {
	JobID      uint32
	Invocation string
	Unit       string
	JobType    string
	Result     string
	FinishedAt time.Time
}

// Open creates or opens the journal database at the given path.
// It enables WAL mode and runs migrations.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
CREATE TABLE IF NOT EXISTS finished_jobs (
    seq         INTEGER PRIMARY KEY AUTOINCREMENT,
    job_id      INTEGER NOT NULL,
    invocation  TEXT NOT NULL,
    unit        TEXT NOT NULL,
    job_type    TEXT NOT NULL,
    result      TEXT NOT NULL,
    finished_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_finished_jobs_unit ON finished_jobs(unit);
`
	_, err := db.conn.Exec(schema)
	return err
}

// Record appends one finished job to the journal
func (db *DB) Record(e Entry) error {
	if e.FinishedAt.IsZero() {
		e.FinishedAt = time.Now()
	}
	_, err := db.conn.Exec(`
		INSERT INTO finished_jobs (job_id, invocation, unit, job_type, result, finished_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.JobID, e.Invocation, e.Unit, e.JobType, e.Result, e.FinishedAt)
	if err != nil {
		return fmt.Errorf("failed to record finished job: %w", err)
	}
	return nil
}

// List returns the most recent entries, newest first
func (db *DB) List(limit int) ([]Entry, error) {
	rows, err := db.conn.Query(`
		SELECT job_id, invocation, unit, job_type, result, finished_at
		FROM finished_jobs ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query finished jobs: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ListByUnit returns the most recent entries for one unit, newest first
func (db *DB) ListByUnit(unit string, limit int) ([]Entry, error) {
	rows, err := db.conn.Query(`
		SELECT job_id, invocation, unit, job_type, result, finished_at
		FROM finished_jobs WHERE unit = ? ORDER BY seq DESC LIMIT ?`, unit, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query finished jobs: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.JobID, &e.Invocation, &e.Unit, &e.JobType, &e.Result, &e.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Handler returns an event-bus handler that journals every job removal.
// OnError, when set, receives write failures; the bus must not block on
// them.
func (db *DB) Handler(onError func(error)) events.Handler {
	return func(e events.Event) {
		if !e.IsRemoval() {
			return
		}
		entry := Entry{
			JobID:      e.JobID,
			Unit:       e.Unit,
			JobType:    e.JobType,
			Result:     e.Result,
			FinishedAt: e.Time,
		}
		if inv, ok := e.Payload["invocation"].(string); ok {
			entry.Invocation = inv
		}
		if err := db.Record(entry); err != nil && onError != nil {
			onError(err)
		}
	}
}
