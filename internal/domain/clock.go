package domain

import "time"

// ─── Clock ──────────────────────────────────────────────────────────────────

// Clock abstracts wall time so cooldown and deadline logic is testable with
// a fake clock.
type Clock interface {
	Now() time.Time
	// After returns a channel that delivers once d has elapsed.
	After(d time.Duration) <-chan time.Time
}

// SystemClock is the production Clock backed by package time.
type SystemClock struct{}

// Now returns the current wall time.
func (SystemClock) Now() time.Time { return time.Now() }

// After defers to time.After.
func (SystemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
