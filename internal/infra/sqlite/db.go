// Package sqlite is the agent's durable local storage — the persistence
// behind the task outbox, the cached balance mirror, and the task snapshot.
// It survives process restarts; outbox entries stay on disk until the
// ledger acknowledges them.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the sqlite handle.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies migrations.
func Open(path string) (*DB, error) {
	handle, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// Single agent process is assumed; busy_timeout guards the accidental
	// second process rather than supporting it.
	if _, err := handle.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		handle.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}

	db := &DB{db: handle}
	if err := db.migrate(); err != nil {
		handle.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the underlying handle.
func (db *DB) Close() error { return db.db.Close() }

// ─── Schema ─────────────────────────────────────────────────────────────────

// Migrations returns the schema migration statements.
// Each string is a single SQL statement (SQLite executes one at a time).
func Migrations() []string {
	return []string{
		// Outbox: rowid preserves enqueue order for FIFO replay.
		`CREATE TABLE IF NOT EXISTS outbox (
			id          TEXT PRIMARY KEY,
			kind        TEXT NOT NULL,
			payload     TEXT NOT NULL,
			enqueued_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,

		// Cached balance mirror (single row; server value always wins).
		`CREATE TABLE IF NOT EXISTS balance_cache (
			id            INTEGER PRIMARY KEY CHECK (id = 1),
			normal_points INTEGER NOT NULL DEFAULT 0,
			gold_points   INTEGER NOT NULL DEFAULT 0,
			updated_at    TEXT NOT NULL DEFAULT (datetime('now'))
		)`,

		// Task snapshot for fast rendering before the first round-trip.
		`CREATE TABLE IF NOT EXISTS tasks (
			id           TEXT PRIMARY KEY,
			title        TEXT NOT NULL DEFAULT '',
			url          TEXT NOT NULL DEFAULT '',
			points       INTEGER NOT NULL DEFAULT 0,
			status       TEXT NOT NULL DEFAULT 'idle',
			handle       TEXT NOT NULL DEFAULT '',
			submitted_at TEXT,
			complete_at  TEXT,
			done_at      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status)`,
	}
}

func (db *DB) migrate() error {
	for _, stmt := range Migrations() {
		if _, err := db.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
