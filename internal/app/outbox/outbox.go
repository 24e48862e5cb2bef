// Package outbox makes task mutations resilient to transient network loss.
// Mutations are queued durably and replayed FIFO until the ledger confirms
// them — at-least-once delivery; the ledger endpoints are idempotent per
// task id. A flush in progress suppresses a new one until it completes.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/adsbot-network/pointsd/internal/domain"
	"github.com/adsbot-network/pointsd/internal/infra/observability"
)

// ApplyFunc reconciles local task state with the ledger's answer to a
// confirmed outbox entry.
type ApplyFunc func(kind domain.OutboxKind, resp domain.TaskServerResponse)

// RejectFunc handles an entry the ledger definitively rejected (4xx).
// The entry is removed; retrying it would never succeed.
type RejectFunc func(kind domain.OutboxKind, payload json.RawMessage)

// Config controls flush scheduling.
type Config struct {
	FlushInterval time.Duration // periodic retry interval (default: 30s)
}

// DefaultConfig returns production outbox defaults.
func DefaultConfig() Config {
	return Config{FlushInterval: 30 * time.Second}
}

// Outbox is the durable queue of pending task mutations.
type Outbox struct {
	cfg      Config
	store    domain.OutboxStore
	ledger   domain.Ledger
	clock    domain.Clock
	apply    ApplyFunc
	onReject RejectFunc

	flushing atomic.Bool
}

// New creates an outbox over the given durable store. apply is invoked for
// every confirmed entry; onReject may be nil.
func New(cfg Config, store domain.OutboxStore, ledger domain.Ledger, clock domain.Clock, apply ApplyFunc, onReject RejectFunc) *Outbox {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 30 * time.Second
	}
	if clock == nil {
		clock = domain.SystemClock{}
	}
	if apply == nil {
		apply = func(domain.OutboxKind, domain.TaskServerResponse) {}
	}
	return &Outbox{
		cfg:      cfg,
		store:    store,
		ledger:   ledger,
		clock:    clock,
		apply:    apply,
		onReject: onReject,
	}
}

// Enqueue appends a mutation to durable storage and returns its id.
// A storage failure means the mutation is lost (best-effort); the caller
// logs and moves on rather than blocking the user.
func (o *Outbox) Enqueue(kind domain.OutboxKind, payload any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: encode payload: %v", domain.ErrOutboxWrite, err)
	}
	entry := domain.OutboxEntry{
		ID:         uuid.NewString(),
		Kind:       kind,
		Payload:    raw,
		EnqueuedAt: o.clock.Now(),
	}
	if err := o.store.Append(entry); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrOutboxWrite, err)
	}
	o.reportDepth()
	return entry.ID, nil
}

// Depth returns the number of queued entries.
func (o *Outbox) Depth() int {
	n, err := o.store.Len()
	if err != nil {
		return 0
	}
	return n
}

// Flush replays all queued entries in enqueue order, one attempt per entry
// per pass. An entry is removed iff the ledger confirmed it (or definitively
// rejected it). Transient failures leave the entry queued and never block
// the rest of the queue. Returns ErrFlushBusy when a pass is already
// running; the caller treats that as a no-op.
func (o *Outbox) Flush(ctx context.Context) error {
	if !o.flushing.CompareAndSwap(false, true) {
		return domain.ErrFlushBusy
	}
	defer o.flushing.Store(false)

	span := observability.Default.StartSpan(ctx, "outbox.flush", nil)
	err := o.flush(ctx)
	observability.Default.EndSpan(span, err)
	return err
}

func (o *Outbox) flush(ctx context.Context) error {
	entries, err := o.store.List()
	if err != nil {
		return fmt.Errorf("read outbox: %w", err)
	}

	for _, entry := range entries {
		resp, err := o.send(ctx, entry)
		switch {
		case err == nil:
			o.apply(entry.Kind, resp)
			o.remove(entry)
			observability.EntryDelivered()
		case errors.Is(err, domain.ErrRemoteRejected):
			// The ledger refused the mutation outright; retrying is
			// pointless. Hand it to the caller for rollback.
			if o.onReject != nil {
				o.onReject(entry.Kind, entry.Payload)
			}
			o.remove(entry)
			log.Printf("outbox: entry %s (%s) rejected: %v", entry.ID, entry.Kind, err)
		default:
			// Transient: keep for a later pass, move on.
			observability.EntryRetried()
			log.Printf("outbox: entry %s (%s) kept for retry: %v", entry.ID, entry.Kind, err)
		}
	}

	observability.FlushPass()
	o.reportDepth()
	return nil
}

// send issues the remote call matching the entry kind.
func (o *Outbox) send(ctx context.Context, entry domain.OutboxEntry) (domain.TaskServerResponse, error) {
	switch entry.Kind {
	case domain.KindSubmit:
		var sub domain.TaskSubmission
		if err := json.Unmarshal(entry.Payload, &sub); err != nil {
			return domain.TaskServerResponse{}, fmt.Errorf("%w: decode submit payload: %v", domain.ErrRemoteRejected, err)
		}
		return o.ledger.SubmitTask(ctx, sub)
	case domain.KindComplete:
		var comp domain.TaskCompletion
		if err := json.Unmarshal(entry.Payload, &comp); err != nil {
			return domain.TaskServerResponse{}, fmt.Errorf("%w: decode complete payload: %v", domain.ErrRemoteRejected, err)
		}
		return o.ledger.CompleteTask(ctx, comp)
	default:
		return domain.TaskServerResponse{}, fmt.Errorf("%w: unknown kind %q", domain.ErrRemoteRejected, entry.Kind)
	}
}

func (o *Outbox) remove(entry domain.OutboxEntry) {
	if err := o.store.Remove(entry.ID); err != nil {
		// The entry will be retried on a later pass; the ledger side is
		// idempotent, so the duplicate call is harmless.
		log.Printf("outbox: remove %s: %v", entry.ID, err)
	}
}

func (o *Outbox) reportDepth() {
	if n, err := o.store.Len(); err == nil {
		observability.OutboxDepth(n)
	}
}

// Run flushes on startup, on every reconnect signal, and on a periodic
// timer, until the context is canceled. reconnect may be nil.
func (o *Outbox) Run(ctx context.Context, reconnect <-chan struct{}) {
	o.flushQuietly(ctx)

	ticker := time.NewTicker(o.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.flushQuietly(ctx)
		case <-reconnect:
			o.flushQuietly(ctx)
		}
	}
}

func (o *Outbox) flushQuietly(ctx context.Context) {
	if err := o.Flush(ctx); err != nil && !errors.Is(err, domain.ErrFlushBusy) {
		log.Printf("outbox: flush: %v", err)
	}
}
