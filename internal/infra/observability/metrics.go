// Package observability exposes Prometheus metrics for the rewards agent.
// Served on /metrics by the local API when enabled in config.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Reward Metrics ─────────────────────────────────────────────────────────

var (
	creditsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pointsd_credits_total",
		Help: "Confirmed credit calls, by ad slot.",
	}, []string{"slot"})

	creditFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pointsd_credit_failures_total",
		Help: "Credit calls that failed and were rolled back.",
	})

	rejectedAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pointsd_concurrent_attempts_rejected_total",
		Help: "Reward attempts rejected because another was in flight.",
	})

	adFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pointsd_ad_failures_total",
		Help: "Ad displays that were skipped, failed, or had no fill.",
	})
)

// CreditIssued records a confirmed credit for a slot.
func CreditIssued(slot string) { creditsTotal.WithLabelValues(slot).Inc() }

// CreditFailed records a rolled-back credit attempt.
func CreditFailed() { creditFailuresTotal.Inc() }

// AttemptRejected records a concurrent-attempt rejection.
func AttemptRejected() { rejectedAttemptsTotal.Inc() }

// AdFailed records an ad that did not complete.
func AdFailed() { adFailuresTotal.Inc() }

// ─── Outbox Metrics ─────────────────────────────────────────────────────────

var (
	flushPassesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pointsd_outbox_flush_passes_total",
		Help: "Completed outbox flush passes.",
	})

	flushDeliveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pointsd_outbox_delivered_total",
		Help: "Outbox entries confirmed by the ledger and removed.",
	})

	flushRetriedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pointsd_outbox_retried_total",
		Help: "Outbox entries left queued for a later flush.",
	})

	outboxDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pointsd_outbox_depth",
		Help: "Entries currently queued in the outbox.",
	})

	tasksDoneTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pointsd_tasks_done_total",
		Help: "Tasks reaching done, locally inferred or server confirmed.",
	})
)

// FlushPass records one completed flush pass.
func FlushPass() { flushPassesTotal.Inc() }

// EntryDelivered records a confirmed-and-removed outbox entry.
func EntryDelivered() { flushDeliveredTotal.Inc() }

// EntryRetried records an entry kept for retry.
func EntryRetried() { flushRetriedTotal.Inc() }

// OutboxDepth reports the current queue depth.
func OutboxDepth(n int) { outboxDepth.Set(float64(n)) }

// TaskDone records a task reaching done.
func TaskDone() { tasksDoneTotal.Inc() }
