// Package taskflow owns the locally rendered task list: the social-follow
// catalog, optimistic status transitions, deadline-elapsed completion, and
// reconciliation against the ledger's answers replayed by the outbox.
package taskflow

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/adsbot-network/pointsd/internal/domain"
	"github.com/adsbot-network/pointsd/internal/infra/observability"
)

// Enqueuer is the slice of the outbox the task list needs.
type Enqueuer interface {
	Enqueue(kind domain.OutboxKind, payload any) (string, error)
}

// Config controls task timing.
type Config struct {
	PendingWindow time.Duration // submission → assumed-done deadline (default: 1h)
	SweepInterval time.Duration // deadline check cadence (default: 15s)
}

// DefaultConfig returns production task defaults.
func DefaultConfig() Config {
	return Config{
		PendingWindow: time.Hour,
		SweepInterval: 15 * time.Second,
	}
}

// List is the task catalog plus local progress. All mutations go through
// the outbox; the ledger's response always overrides locally inferred
// fields.
type List struct {
	mu     sync.Mutex
	tasks  []domain.TaskRecord
	cfg    Config
	outbox Enqueuer
	clock  domain.Clock
}

// New creates a task list seeded with the given catalog.
func New(cfg Config, catalog []domain.TaskRecord, outbox Enqueuer, clock domain.Clock) *List {
	if cfg.PendingWindow <= 0 {
		cfg.PendingWindow = time.Hour
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 15 * time.Second
	}
	if clock == nil {
		clock = domain.SystemClock{}
	}
	tasks := append([]domain.TaskRecord(nil), catalog...)
	return &List{tasks: tasks, cfg: cfg, outbox: outbox, clock: clock}
}

// Tasks returns a snapshot of the list.
func (l *List) Tasks() []domain.TaskRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.TaskRecord(nil), l.tasks...)
}

// Hydrate merges the server's task snapshot over the local list. Server
// fields win; tasks the server knows but the catalog lacks are appended.
func (l *List) Hydrate(server []domain.TaskRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()

	index := make(map[string]int, len(l.tasks))
	for i, t := range l.tasks {
		index[t.ID] = i
	}
	for _, s := range server {
		i, ok := index[s.ID]
		if !ok {
			l.tasks = append(l.tasks, s)
			continue
		}
		merged := l.tasks[i]
		if s.Title != "" {
			merged.Title = s.Title
		}
		if s.URL != "" {
			merged.URL = s.URL
		}
		if s.Points > 0 {
			merged.Points = s.Points
		}
		if s.Status != "" {
			merged.Status = s.Status
		}
		if !s.SubmittedAt.IsZero() {
			merged.SubmittedAt = s.SubmittedAt
		}
		if !s.CompleteAt.IsZero() {
			merged.CompleteAt = s.CompleteAt
		}
		if !s.DoneAt.IsZero() {
			merged.DoneAt = s.DoneAt
		}
		l.tasks[i] = merged
	}
}

// Submit transitions a task idle → pending and enqueues the submit
// mutation. The transition is optimistic; the ledger confirms (or rejects)
// it on the next flush.
func (l *List) Submit(taskID, handle string) error {
	l.mu.Lock()
	i, ok := l.find(taskID)
	if !ok {
		l.mu.Unlock()
		return domain.ErrTaskNotFound
	}
	if l.tasks[i].Status != domain.TaskIdle {
		l.mu.Unlock()
		return domain.ErrTaskNotIdle
	}

	now := l.clock.Now()
	l.tasks[i].Status = domain.TaskPending
	l.tasks[i].Handle = handle
	l.tasks[i].SubmittedAt = now
	l.tasks[i].CompleteAt = now.Add(l.cfg.PendingWindow)
	l.mu.Unlock()

	_, err := l.outbox.Enqueue(domain.KindSubmit, domain.TaskSubmission{
		TaskID:      taskID,
		Handle:      handle,
		SubmittedAt: now,
	})
	if err != nil {
		// Best-effort: the optimistic transition stands, the mutation is
		// lost until the next hydration corrects it.
		log.Printf("taskflow: enqueue submit %s: %v", taskID, err)
	}
	return nil
}

// SweepDeadlines flips pending tasks whose window elapsed to done and
// enqueues their completion for server confirmation. Returns the ids that
// flipped.
func (l *List) SweepDeadlines() []string {
	now := l.clock.Now()

	l.mu.Lock()
	var completions []domain.TaskCompletion
	for i := range l.tasks {
		t := &l.tasks[i]
		if t.Status == domain.TaskPending && !t.CompleteAt.IsZero() && !now.Before(t.CompleteAt) {
			t.Status = domain.TaskDone
			t.DoneAt = now
			completions = append(completions, domain.TaskCompletion{TaskID: t.ID, DoneAt: now})
		}
	}
	l.mu.Unlock()

	ids := make([]string, 0, len(completions))
	for _, c := range completions {
		observability.TaskDone()
		ids = append(ids, c.TaskID)
		if _, err := l.outbox.Enqueue(domain.KindComplete, c); err != nil {
			log.Printf("taskflow: enqueue complete %s: %v", c.TaskID, err)
		}
	}
	return ids
}

// ApplyServer reconciles a confirmed outbox entry. Server-confirmed fields
// take precedence over anything inferred locally — including the awarded
// point value when it differs from the catalog default.
func (l *List) ApplyServer(kind domain.OutboxKind, resp domain.TaskServerResponse) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i, ok := l.find(resp.TaskID)
	if !ok {
		return
	}
	t := &l.tasks[i]

	switch kind {
	case domain.KindSubmit:
		if resp.Status != "" {
			t.Status = resp.Status
		} else if t.Status == domain.TaskIdle {
			t.Status = domain.TaskPending
		}
		if !resp.CompleteAt.IsZero() {
			t.CompleteAt = resp.CompleteAt
		}
		if !resp.ServerNow.IsZero() {
			t.SubmittedAt = resp.ServerNow
		}
	case domain.KindComplete:
		wasDone := t.Status == domain.TaskDone
		if resp.Status != "" {
			t.Status = resp.Status
		} else {
			t.Status = domain.TaskDone
		}
		if !resp.DoneAt.IsZero() {
			t.DoneAt = resp.DoneAt
		}
		if resp.PointsAwarded > 0 {
			t.Points = resp.PointsAwarded
		}
		if !wasDone && t.Status == domain.TaskDone {
			observability.TaskDone()
		}
	}
}

// RollbackRejected returns a task to idle after the ledger definitively
// rejected its submit — the user may retry. Rejected completions are left
// alone; the next hydration is authoritative for those.
func (l *List) RollbackRejected(kind domain.OutboxKind, payload json.RawMessage) {
	if kind != domain.KindSubmit {
		return
	}
	taskID := submissionTaskID(payload)
	if taskID == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	i, ok := l.find(taskID)
	if !ok {
		return
	}
	if l.tasks[i].Status == domain.TaskPending {
		l.tasks[i].Status = domain.TaskIdle
		l.tasks[i].Handle = ""
		l.tasks[i].SubmittedAt = time.Time{}
		l.tasks[i].CompleteAt = time.Time{}
	}
}

// Run sweeps deadlines on a fixed cadence until the context is canceled.
func (l *List) Run(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.SweepDeadlines()
		}
	}
}

// DoneSubtotal returns the local sum of points across done tasks — a
// fallback for display before the server returns its canonical total.
func (l *List) DoneSubtotal() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var sum int64
	for _, t := range l.tasks {
		if t.Status == domain.TaskDone {
			sum += t.Points
		}
	}
	return sum
}

// find returns the index of the task with the given id. Caller holds l.mu.
func (l *List) find(taskID string) (int, bool) {
	for i := range l.tasks {
		if l.tasks[i].ID == taskID {
			return i, true
		}
	}
	return 0, false
}

func submissionTaskID(payload json.RawMessage) string {
	var sub domain.TaskSubmission
	if err := json.Unmarshal(payload, &sub); err != nil {
		return ""
	}
	return sub.TaskID
}
