// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring of clean architecture — it depends on nothing.
package domain

import "time"

// ─── Ad Slots ───────────────────────────────────────────────────────────────

// AdSlot identifies one of the earn placements shown to the user.
type AdSlot string

const (
	SlotMain AdSlot = "main"
	SlotSide AdSlot = "side"
	SlotLow  AdSlot = "low"
)

// Valid reports whether the slot is a known placement.
func (s AdSlot) Valid() bool {
	switch s {
	case SlotMain, SlotSide, SlotLow:
		return true
	}
	return false
}

// SlotPolicy defines the nominal point value of a slot and whether the
// anti-abuse cooldown gate applies to it.
type SlotPolicy struct {
	Points   int64 `json:"points"`
	Cooldown bool  `json:"cooldown"`
}

// DefaultSlotPolicies returns the built-in earn placements.
// Main and side placements are cooldown-gated; the low placement credits
// immediately once the ad resolves.
func DefaultSlotPolicies() map[AdSlot]SlotPolicy {
	return map[AdSlot]SlotPolicy{
		SlotMain: {Points: 4, Cooldown: true},
		SlotSide: {Points: 2, Cooldown: true},
		SlotLow:  {Points: 1, Cooldown: false},
	}
}

// ─── Reward Attempt State Machine ───────────────────────────────────────────

// RewardState is the lifecycle state of a single reward attempt.
// Transitions: idle → awaiting_ad → ad_completed → crediting →
// {credited, failed} → idle. Crediting is never entered without passing
// through ad_completed.
type RewardState int

const (
	StateIdle RewardState = iota
	StateAwaitingAd
	StateAdCompleted
	StateCrediting
	StateCredited
	StateFailed
)

// String returns a human-readable state name.
func (s RewardState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingAd:
		return "awaiting_ad"
	case StateAdCompleted:
		return "ad_completed"
	case StateCrediting:
		return "crediting"
	case StateCredited:
		return "credited"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// InFlight reports whether the state blocks a new reward attempt.
// At most one attempt may be in {awaiting_ad, ad_completed, crediting}
// per session.
func (s RewardState) InFlight() bool {
	switch s {
	case StateAwaitingAd, StateAdCompleted, StateCrediting:
		return true
	}
	return false
}

// RewardAttempt is one user-initiated request to earn points by viewing
// an ad. Created on tap of an earn action; reset to idle on credit success,
// credit failure, or ad rejection.
type RewardAttempt struct {
	Slot          AdSlot      `json:"slot"`
	State         RewardState `json:"state"`
	StartedAt     time.Time   `json:"started_at"`
	CooldownEndsAt time.Time  `json:"cooldown_ends_at,omitempty"`
}
