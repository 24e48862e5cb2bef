package domain

import "context"

// ─── Collaborator Interfaces ────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// AdDisplay abstracts the external ad-network capability. It renders an ad
// for the given slot and returns nil on completed playback, or an error on
// failure, skip, or no-fill. At most one outstanding call per reward attempt.
type AdDisplay interface {
	Show(ctx context.Context, slot AdSlot) error
}

// Ledger abstracts the remote backend that owns the authoritative balance
// and task state. Every mutation returns the server's answer, which always
// replaces locally inferred values.
type Ledger interface {
	// Credit reports a completed ad view and returns the full authoritative
	// balance (not a delta).
	Credit(ctx context.Context, slot AdSlot) (Balance, error)

	// SubmitTask reports a user task submission.
	SubmitTask(ctx context.Context, sub TaskSubmission) (TaskServerResponse, error)

	// CompleteTask reports an elapsed pending window.
	CompleteTask(ctx context.Context, comp TaskCompletion) (TaskServerResponse, error)

	// FetchBalance returns the current authoritative balance.
	FetchBalance(ctx context.Context) (Balance, error)

	// FetchTasks returns the authoritative task snapshot for hydration.
	FetchTasks(ctx context.Context) ([]TaskRecord, error)
}

// BalanceStore holds the client's cached mirror of the ledger balance.
type BalanceStore interface {
	Get() Balance
	// Apply adds an optimistic delta and returns the resulting balance.
	Apply(delta Balance) Balance
	// Set overwrites the cache with the server's authoritative value.
	Set(b Balance)
}

// OutboxStore is the durable queue backing the task outbox. List returns
// entries in enqueue order (FIFO).
type OutboxStore interface {
	Append(e OutboxEntry) error
	List() ([]OutboxEntry, error)
	Remove(id string) error
	Len() (int, error)
}
