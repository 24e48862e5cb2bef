package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency.

var (
	// Reward errors
	ErrConcurrentAttempt = errors.New("another reward attempt is in flight")
	ErrAdNotCompleted    = errors.New("ad was skipped or failed to complete")
	ErrCreditFailed      = errors.New("remote credit call failed")
	ErrUnknownSlot       = errors.New("unknown ad slot")
	ErrAttemptCanceled   = errors.New("reward attempt canceled")

	// Task errors
	ErrTaskNotFound = errors.New("task not found")
	ErrTaskNotIdle  = errors.New("task already submitted")

	// Outbox errors
	ErrOutboxWrite = errors.New("outbox storage write failed")
	ErrFlushBusy   = errors.New("outbox flush already in progress")

	// Ledger errors
	ErrRemoteCall     = errors.New("remote call failed")
	ErrRemoteRejected = errors.New("remote call rejected")
	ErrUnauthorized   = errors.New("ledger credential missing or expired")

	// Spend errors
	ErrInsufficientPoints = errors.New("insufficient points")
)
