package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/adsbot-network/pointsd/internal/domain"
)

// ─── Fakes ──────────────────────────────────────────────────────────────────

// memStore is an in-memory FIFO OutboxStore.
type memStore struct {
	mu      sync.Mutex
	entries []domain.OutboxEntry
	appendErr error
}

func (m *memStore) Append(e domain.OutboxEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *memStore) List() ([]domain.OutboxEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.OutboxEntry(nil), m.entries...), nil
}

func (m *memStore) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.entries[:0]
	for _, e := range m.entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	m.entries = kept
	return nil
}

func (m *memStore) Len() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries), nil
}

func (m *memStore) ids() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.ID
	}
	return out
}

// scriptLedger fails or succeeds per task id and records call order.
type scriptLedger struct {
	mu    sync.Mutex
	order []string
	fail  map[string]error // taskID → error to return
	gate  chan struct{}    // when non-nil, calls block until closed
	resp  domain.TaskServerResponse
}

func (l *scriptLedger) record(taskID string) error {
	l.mu.Lock()
	l.order = append(l.order, taskID)
	err := l.fail[taskID]
	gate := l.gate
	l.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return err
}

func (l *scriptLedger) calls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.order...)
}

func (l *scriptLedger) SubmitTask(ctx context.Context, sub domain.TaskSubmission) (domain.TaskServerResponse, error) {
	if err := l.record(sub.TaskID); err != nil {
		return domain.TaskServerResponse{}, err
	}
	resp := l.resp
	resp.TaskID = sub.TaskID
	return resp, nil
}

func (l *scriptLedger) CompleteTask(ctx context.Context, comp domain.TaskCompletion) (domain.TaskServerResponse, error) {
	if err := l.record(comp.TaskID); err != nil {
		return domain.TaskServerResponse{}, err
	}
	resp := l.resp
	resp.TaskID = comp.TaskID
	return resp, nil
}

func (l *scriptLedger) Credit(ctx context.Context, slot domain.AdSlot) (domain.Balance, error) {
	return domain.Balance{}, nil
}
func (l *scriptLedger) FetchBalance(ctx context.Context) (domain.Balance, error) {
	return domain.Balance{}, nil
}
func (l *scriptLedger) FetchTasks(ctx context.Context) ([]domain.TaskRecord, error) {
	return nil, nil
}

func enqueueSubmit(t *testing.T, o *Outbox, taskID string) string {
	t.Helper()
	id, err := o.Enqueue(domain.KindSubmit, domain.TaskSubmission{TaskID: taskID, SubmittedAt: time.Unix(0, 0)})
	if err != nil {
		t.Fatalf("Enqueue(%s): %v", taskID, err)
	}
	return id
}

// ─── Tests ──────────────────────────────────────────────────────────────────

func TestFlushFIFOAndAtLeastOnce(t *testing.T) {
	store := &memStore{}
	ledger := &scriptLedger{fail: map[string]error{"B": fmt.Errorf("%w: timeout", domain.ErrRemoteCall)}}
	var applied []string
	o := New(DefaultConfig(), store, ledger, nil, func(kind domain.OutboxKind, resp domain.TaskServerResponse) {
		applied = append(applied, resp.TaskID)
	}, nil)

	enqueueSubmit(t, o, "A")
	idB := enqueueSubmit(t, o, "B")
	enqueueSubmit(t, o, "C")

	if err := o.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	// A and C confirmed and removed; B kept, exactly once, in order.
	if got := ledger.calls(); len(got) != 3 || got[0] != "A" || got[1] != "B" || got[2] != "C" {
		t.Errorf("call order = %v, want [A B C]", got)
	}
	if got := store.ids(); len(got) != 1 || got[0] != idB {
		t.Errorf("outbox after flush = %v, want [%s]", got, idB)
	}
	if len(applied) != 2 || applied[0] != "A" || applied[1] != "C" {
		t.Errorf("applied = %v, want [A C]", applied)
	}

	// Second flush with B now succeeding empties the queue.
	ledger.mu.Lock()
	ledger.fail = nil
	ledger.mu.Unlock()
	if err := o.Flush(context.Background()); err != nil {
		t.Fatalf("second Flush: %v", err)
	}
	if n, _ := store.Len(); n != 0 {
		t.Errorf("outbox depth = %d, want 0", n)
	}
}

func TestFlushSingleFlight(t *testing.T) {
	store := &memStore{}
	gate := make(chan struct{})
	ledger := &scriptLedger{gate: gate}
	o := New(DefaultConfig(), store, ledger, nil, nil, nil)

	enqueueSubmit(t, o, "A")

	done := make(chan error, 1)
	go func() { done <- o.Flush(context.Background()) }()

	// Wait until the first pass is inside the ledger call.
	for len(ledger.calls()) == 0 {
		time.Sleep(time.Millisecond)
	}

	// Second flush while the first is in progress is a no-op.
	if err := o.Flush(context.Background()); !errors.Is(err, domain.ErrFlushBusy) {
		t.Fatalf("concurrent Flush err = %v, want ErrFlushBusy", err)
	}
	if got := ledger.calls(); len(got) != 1 {
		t.Errorf("ledger calls = %v, want exactly one (no duplicates)", got)
	}

	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("first Flush: %v", err)
	}
	if n, _ := store.Len(); n != 0 {
		t.Errorf("outbox depth = %d, want 0", n)
	}
}

func TestFlushRemovesRejectedEntries(t *testing.T) {
	store := &memStore{}
	ledger := &scriptLedger{fail: map[string]error{
		"dup": fmt.Errorf("%w: 409 already completed", domain.ErrRemoteRejected),
	}}
	var rejected []domain.OutboxKind
	o := New(DefaultConfig(), store, ledger, nil, nil, func(kind domain.OutboxKind, payload json.RawMessage) {
		rejected = append(rejected, kind)
	})

	enqueueSubmit(t, o, "dup")
	if err := o.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if n, _ := store.Len(); n != 0 {
		t.Error("rejected entry must be removed, not retried")
	}
	if len(rejected) != 1 || rejected[0] != domain.KindSubmit {
		t.Errorf("rejected = %v, want [submit]", rejected)
	}
}

func TestEnqueueStorageFailure(t *testing.T) {
	store := &memStore{appendErr: errors.New("disk full")}
	o := New(DefaultConfig(), store, &scriptLedger{}, nil, nil, nil)

	_, err := o.Enqueue(domain.KindSubmit, domain.TaskSubmission{TaskID: "A"})
	if !errors.Is(err, domain.ErrOutboxWrite) {
		t.Fatalf("err = %v, want ErrOutboxWrite", err)
	}
}

func TestEntriesSurviveNewOutbox(t *testing.T) {
	// A new Outbox over the same store sees entries enqueued before a
	// "restart" — durability is the store's job, FIFO the outbox's.
	store := &memStore{}
	ledger := &scriptLedger{}
	o1 := New(DefaultConfig(), store, ledger, nil, nil, nil)
	enqueueSubmit(t, o1, "A")
	enqueueSubmit(t, o1, "B")

	o2 := New(DefaultConfig(), store, ledger, nil, nil, nil)
	if err := o2.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got := ledger.calls(); len(got) != 2 || got[0] != "A" || got[1] != "B" {
		t.Errorf("call order = %v, want [A B]", got)
	}
}
