package sqlite

import (
	"database/sql"
	"sync"
	"time"

	"github.com/adsbot-network/pointsd/internal/domain"
)

// ─── Outbox Operations ──────────────────────────────────────────────────────
// DB implements domain.OutboxStore. Entries are returned in rowid order,
// which is enqueue order.

// Append inserts an outbox entry.
func (db *DB) Append(e domain.OutboxEntry) error {
	_, err := db.db.Exec(`
		INSERT INTO outbox (id, kind, payload, enqueued_at)
		VALUES (?, ?, ?, ?)
	`, e.ID, string(e.Kind), string(e.Payload), e.EnqueuedAt.Format(time.RFC3339))
	return err
}

// List returns all queued entries, earliest first.
func (db *DB) List() ([]domain.OutboxEntry, error) {
	rows, err := db.db.Query(`
		SELECT id, kind, payload, enqueued_at FROM outbox ORDER BY rowid
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.OutboxEntry
	for rows.Next() {
		var e domain.OutboxEntry
		var kind, payload, enqueued string
		if err := rows.Scan(&e.ID, &kind, &payload, &enqueued); err != nil {
			return nil, err
		}
		e.Kind = domain.OutboxKind(kind)
		e.Payload = []byte(payload)
		e.EnqueuedAt, _ = time.Parse(time.RFC3339, enqueued)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Remove deletes an acknowledged entry.
func (db *DB) Remove(id string) error {
	_, err := db.db.Exec(`DELETE FROM outbox WHERE id = ?`, id)
	return err
}

// Len returns the number of queued entries.
func (db *DB) Len() (int, error) {
	var n int
	err := db.db.QueryRow(`SELECT COUNT(*) FROM outbox`).Scan(&n)
	return n, err
}

var _ domain.OutboxStore = (*DB)(nil)

// ─── Balance Cache ──────────────────────────────────────────────────────────

// LoadBalance reads the cached balance mirror. Returns a zero balance when
// none has been stored yet.
func (db *DB) LoadBalance() (domain.Balance, error) {
	var b domain.Balance
	err := db.db.QueryRow(`
		SELECT normal_points, gold_points FROM balance_cache WHERE id = 1
	`).Scan(&b.Normal, &b.Gold)
	if err == sql.ErrNoRows {
		return domain.Balance{}, nil
	}
	return b, err
}

// SaveBalance overwrites the cached balance mirror.
func (db *DB) SaveBalance(b domain.Balance) error {
	_, err := db.db.Exec(`
		INSERT INTO balance_cache (id, normal_points, gold_points, updated_at)
		VALUES (1, ?, ?, datetime('now'))
		ON CONFLICT(id) DO UPDATE SET
			normal_points = excluded.normal_points,
			gold_points   = excluded.gold_points,
			updated_at    = datetime('now')
	`, b.Normal, b.Gold)
	return err
}

// Balance is a durable domain.BalanceStore: a write-through cache over the
// balance_cache table.
type Balance struct {
	mu sync.Mutex
	db *DB
	b  domain.Balance
}

// NewBalance loads the persisted mirror and returns a store over it.
func (db *DB) NewBalance() (*Balance, error) {
	b, err := db.LoadBalance()
	if err != nil {
		return nil, err
	}
	return &Balance{db: db, b: b}, nil
}

// Get returns the cached balance.
func (s *Balance) Get() domain.Balance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b
}

// Apply adds a delta and persists the result.
func (s *Balance) Apply(delta domain.Balance) domain.Balance {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.b = s.b.Add(delta)
	s.persist()
	return s.b
}

// Set overwrites the mirror with the server's authoritative value.
func (s *Balance) Set(b domain.Balance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.b = b
	s.persist()
}

// persist writes through to sqlite. A write failure only loses the cache,
// never ledger state; the next fetch restores it. Caller holds s.mu.
func (s *Balance) persist() {
	_ = s.db.SaveBalance(s.b)
}

var _ domain.BalanceStore = (*Balance)(nil)

// ─── Task Snapshot ──────────────────────────────────────────────────────────

// SaveTasks replaces the persisted task snapshot.
func (db *DB) SaveTasks(tasks []domain.TaskRecord) error {
	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM tasks`); err != nil {
		return err
	}
	for _, t := range tasks {
		_, err := tx.Exec(`
			INSERT INTO tasks (id, title, url, points, status, handle, submitted_at, complete_at, done_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, t.ID, t.Title, t.URL, t.Points, string(t.Status), t.Handle,
			timeOrNull(t.SubmittedAt), timeOrNull(t.CompleteAt), timeOrNull(t.DoneAt))
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadTasks reads the persisted task snapshot.
func (db *DB) LoadTasks() ([]domain.TaskRecord, error) {
	rows, err := db.db.Query(`
		SELECT id, title, url, points, status, handle, submitted_at, complete_at, done_at
		FROM tasks ORDER BY rowid
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.TaskRecord
	for rows.Next() {
		var t domain.TaskRecord
		var status string
		var submitted, complete, done sql.NullString
		if err := rows.Scan(&t.ID, &t.Title, &t.URL, &t.Points, &status, &t.Handle, &submitted, &complete, &done); err != nil {
			return nil, err
		}
		t.Status = domain.TaskStatus(status)
		t.SubmittedAt = parseNullTime(submitted)
		t.CompleteAt = parseNullTime(complete)
		t.DoneAt = parseNullTime(done)
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func timeOrNull(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(time.RFC3339)
}

func parseNullTime(s sql.NullString) time.Time {
	if !s.Valid {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339, s.String)
	return t
}
