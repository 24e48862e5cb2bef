package domain

import (
	"encoding/json"
	"time"
)

// ─── Outbox Types ───────────────────────────────────────────────────────────

// OutboxKind classifies a queued task mutation.
type OutboxKind string

const (
	KindSubmit   OutboxKind = "submit"
	KindComplete OutboxKind = "complete"
)

// OutboxEntry is a durably queued task mutation awaiting delivery to the
// remote ledger. An entry is removed if and only if its remote call has
// been confirmed successful, or the ledger definitively rejected it.
// Entries survive process restarts; the ledger endpoints are idempotent
// per task id, so at-least-once delivery is safe.
type OutboxEntry struct {
	ID         string          `json:"id"`
	Kind       OutboxKind      `json:"kind"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}
