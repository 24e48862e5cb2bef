package domain

import "sync"

// ─── Balance ────────────────────────────────────────────────────────────────

// Balance mirrors the remote ledger's point totals. The authoritative copy
// lives on the ledger; the client holds a possibly stale cache that is
// overwritten wholesale whenever the server answers.
type Balance struct {
	Normal int64 `json:"normal_points"`
	Gold   int64 `json:"gold_points"`
}

// Add returns the balance with the delta applied.
func (b Balance) Add(delta Balance) Balance {
	return Balance{Normal: b.Normal + delta.Normal, Gold: b.Gold + delta.Gold}
}

// Neg returns the exact inverse of the balance, used to roll back an
// optimistic delta.
func (b Balance) Neg() Balance {
	return Balance{Normal: -b.Normal, Gold: -b.Gold}
}

// ─── In-Memory Balance Store ────────────────────────────────────────────────

// MemoryBalance is a process-local BalanceStore. The durable sqlite-backed
// store is used by the daemon; this one serves tests and one-shot CLI runs.
type MemoryBalance struct {
	mu sync.Mutex
	b  Balance
}

// NewMemoryBalance creates a store seeded with the given balance.
func NewMemoryBalance(b Balance) *MemoryBalance {
	return &MemoryBalance{b: b}
}

// Get returns the cached balance.
func (m *MemoryBalance) Get() Balance {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.b
}

// Apply adds a delta to the cached balance and returns the result.
func (m *MemoryBalance) Apply(delta Balance) Balance {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.b = m.b.Add(delta)
	return m.b
}

// Set replaces the cached balance with the server's authoritative value.
func (m *MemoryBalance) Set(b Balance) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.b = b
}
