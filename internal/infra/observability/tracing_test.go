package observability

import (
	"context"
	"errors"
	"testing"
)

func TestTracerRecordsSpan(t *testing.T) {
	tr := NewTracer(DefaultTracerConfig())
	ctx := context.Background()

	span := tr.StartSpan(ctx, "reward.attempt", map[string]string{"slot": "main"})
	tr.EndSpan(span, nil)

	if tr.SpanCount() != 1 {
		t.Fatalf("SpanCount() = %d, want 1", tr.SpanCount())
	}

	spans := tr.Spans(1)
	if spans[0].Operation != "reward.attempt" {
		t.Errorf("Operation = %q, want reward.attempt", spans[0].Operation)
	}
	if spans[0].Status != SpanOK {
		t.Errorf("Status = %d, want SpanOK", spans[0].Status)
	}
	if spans[0].Attrs["slot"] != "main" {
		t.Errorf("Attrs[slot] = %q, want main", spans[0].Attrs["slot"])
	}
	if spans[0].EndTime.Before(spans[0].StartTime) {
		t.Error("EndTime should not be before StartTime")
	}
}

func TestTracerRecordsError(t *testing.T) {
	tr := NewTracer(DefaultTracerConfig())

	span := tr.StartSpan(context.Background(), "outbox.flush", nil)
	tr.EndSpan(span, errors.New("read outbox: disk full"))

	spans := tr.Spans(1)
	if spans[0].Status != SpanError {
		t.Errorf("Status = %d, want SpanError", spans[0].Status)
	}
	if spans[0].Attrs["error"] != "read outbox: disk full" {
		t.Errorf("error attr = %q", spans[0].Attrs["error"])
	}
}

func TestTracerDisabled(t *testing.T) {
	tr := NewTracer(TracerConfig{Enabled: false, MaxSpans: 100})

	span := tr.StartSpan(context.Background(), "noop", nil)
	tr.EndSpan(span, nil)

	if tr.SpanCount() != 0 {
		t.Errorf("disabled tracer SpanCount() = %d, want 0", tr.SpanCount())
	}
}

func TestTracerRingBufferOverflow(t *testing.T) {
	tr := NewTracer(TracerConfig{Enabled: true, MaxSpans: 3})

	for i := 0; i < 5; i++ {
		span := tr.StartSpan(context.Background(), "op", nil)
		tr.EndSpan(span, nil)
	}

	if tr.SpanCount() != 3 {
		t.Errorf("SpanCount() = %d, want 3 (ring buffer)", tr.SpanCount())
	}
}

func TestSpanParentFromContext(t *testing.T) {
	tr := NewTracer(DefaultTracerConfig())

	ctx := WithTraceID(context.Background(), "trace-1")
	ctx = WithSpanID(ctx, "parent-1")

	span := tr.StartSpan(ctx, "child", nil)
	if span.TraceID != "trace-1" {
		t.Errorf("TraceID = %q, want trace-1", span.TraceID)
	}
	if span.ParentID != "parent-1" {
		t.Errorf("ParentID = %q, want parent-1", span.ParentID)
	}
}
