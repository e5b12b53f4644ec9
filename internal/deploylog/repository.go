// Package deploylog persists a local history of executed deployment
// actions: which action ran, against which database, with what outcome
// and duration.
package deploylog

import (
	"database/sql"
	"fmt"
	"time"

	"almpartners/dbdeploy/internal/database"
)

// Repository defines the persistence interface for deployment log entries.
type Repository interface {
	Save(entry *Entry) error
	List(limit int) ([]Entry, error)
	ListByAction(action string, limit int) ([]Entry, error)
	Prune(olderThan time.Duration) (int64, error)
	Close() error
}

// SQLiteRepository implements Repository backed by the local tool-state
// SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

// Open creates or opens the deployment log at the default path.
func Open() (*SQLiteRepository, error) {
	path, err := database.DefaultPath()
	if err != nil {
		return nil, fmt.Errorf("deploylog: %w", err)
	}
	return OpenAt(path)
}

// OpenAt creates or opens a SQLite database at the given path.
func OpenAt(path string) (*SQLiteRepository, error) {
	db, err := database.Open(path)
	if err != nil {
		return nil, fmt.Errorf("deploylog: %w", err)
	}

	r := &SQLiteRepository{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *SQLiteRepository) migrate() error {
	const ddl = `
        CREATE TABLE IF NOT EXISTS deploy_log (
            id          INTEGER PRIMARY KEY AUTOINCREMENT,
            timestamp   TEXT    NOT NULL,
            action      TEXT    NOT NULL,
            db_name     TEXT    NOT NULL DEFAULT '',
            params      TEXT    NOT NULL DEFAULT '',
            outcome     TEXT    NOT NULL DEFAULT '',
            detail      TEXT    NOT NULL DEFAULT '',
            duration_ms INTEGER NOT NULL DEFAULT 0
        );
        CREATE INDEX IF NOT EXISTS idx_deploy_log_timestamp ON deploy_log(timestamp);
        CREATE INDEX IF NOT EXISTS idx_deploy_log_action ON deploy_log(action);
    `
	if _, err := r.db.Exec(ddl); err != nil {
		return fmt.Errorf("deploylog: migration failed: %w", err)
	}
	return nil
}

// Save inserts a new log entry.
func (r *SQLiteRepository) Save(entry *Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	result, err := r.db.Exec(`
        INSERT INTO deploy_log (timestamp, action, db_name, params, outcome, detail, duration_ms)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.Timestamp.Format(time.RFC3339Nano), entry.Action, entry.Database,
		entry.Params, entry.Outcome, entry.Detail, entry.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("deploylog: insert failed: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("deploylog: failed to get last insert ID: %w", err)
	}
	entry.ID = id
	return nil
}

// List returns the most recent n entries.
func (r *SQLiteRepository) List(limit int) ([]Entry, error) {
	rows, err := r.db.Query(`
        SELECT id, timestamp, action, db_name, params, outcome, detail, duration_ms
        FROM deploy_log ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("deploylog: query failed: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// ListByAction returns the most recent n entries for an action name.
func (r *SQLiteRepository) ListByAction(action string, limit int) ([]Entry, error) {
	rows, err := r.db.Query(`
        SELECT id, timestamp, action, db_name, params, outcome, detail, duration_ms
        FROM deploy_log WHERE action = ? ORDER BY timestamp DESC LIMIT ?`, action, limit)
	if err != nil {
		return nil, fmt.Errorf("deploylog: query failed: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// Prune deletes entries older than the given duration.
func (r *SQLiteRepository) Prune(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339Nano)
	result, err := r.db.Exec(`DELETE FROM deploy_log WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deploylog: delete failed: %w", err)
	}
	return result.RowsAffected()
}

// Close releases database resources.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func scanRows(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var entry Entry
		var timestampStr string
		err := rows.Scan(
			&entry.ID, &timestampStr, &entry.Action, &entry.Database,
			&entry.Params, &entry.Outcome, &entry.Detail, &entry.DurationMs,
		)
		if err != nil {
			return nil, fmt.Errorf("deploylog: scan failed: %w", err)
		}
		entry.Timestamp, _ = time.Parse(time.RFC3339Nano, timestampStr)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
