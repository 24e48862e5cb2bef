package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/adsbot-network/pointsd/internal/app/outbox"
	"github.com/adsbot-network/pointsd/internal/app/reward"
	"github.com/adsbot-network/pointsd/internal/app/taskflow"
	"github.com/adsbot-network/pointsd/internal/domain"
)

// fakeAds completes every ad instantly.
type fakeAds struct{}

func (fakeAds) Show(ctx context.Context, slot domain.AdSlot) error { return nil }

// fakeLedger answers every call from canned values.
type fakeLedger struct {
	balance     domain.Balance
	withdrawals []domain.Withdrawal
}

func (f *fakeLedger) Credit(ctx context.Context, slot domain.AdSlot) (domain.Balance, error) {
	return f.balance, nil
}

func (f *fakeLedger) SubmitTask(ctx context.Context, sub domain.TaskSubmission) (domain.TaskServerResponse, error) {
	return domain.TaskServerResponse{TaskID: sub.TaskID, Status: domain.TaskPending}, nil
}

func (f *fakeLedger) CompleteTask(ctx context.Context, comp domain.TaskCompletion) (domain.TaskServerResponse, error) {
	return domain.TaskServerResponse{TaskID: comp.TaskID, Status: domain.TaskDone}, nil
}

func (f *fakeLedger) FetchBalance(ctx context.Context) (domain.Balance, error) {
	return f.balance, nil
}

func (f *fakeLedger) FetchTasks(ctx context.Context) ([]domain.TaskRecord, error) {
	return nil, nil
}

func (f *fakeLedger) ClaimInvite(ctx context.Context, claim domain.InviteClaim) error { return nil }

func (f *fakeLedger) CreateWithdrawal(ctx context.Context, tokens int64) (domain.Withdrawal, error) {
	wd := domain.Withdrawal{ID: "w1", Tokens: tokens, Status: domain.WithdrawalPending}
	f.withdrawals = append(f.withdrawals, wd)
	return wd, nil
}

func (f *fakeLedger) PendingWithdrawals(ctx context.Context, limit, offset int) ([]domain.Withdrawal, error) {
	return f.withdrawals, nil
}

func (f *fakeLedger) ResolveWithdrawal(ctx context.Context, id string, approve bool) error {
	return nil
}

// memStore is an in-memory domain.OutboxStore.
type memStore struct {
	mu      sync.Mutex
	entries []domain.OutboxEntry
}

func (m *memStore) Append(e domain.OutboxEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
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
	for i, e := range m.entries {
		if e.ID == id {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *memStore) Len() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries), nil
}

func newTestServer(t *testing.T, startBalance domain.Balance) (*httptest.Server, *fakeLedger) {
	t.Helper()

	remote := &fakeLedger{balance: startBalance}
	balance := domain.NewMemoryBalance(startBalance)

	ob := outbox.New(outbox.DefaultConfig(), &memStore{}, remote, nil, nil, nil)
	tasks := taskflow.New(taskflow.DefaultConfig(), domain.DefaultTaskCatalog(), ob, nil)
	session := reward.New(reward.DefaultConfig(), fakeAds{}, remote, balance, nil)

	s := NewServer(session, tasks, ob, remote, balance)
	s.SetIdentity("rewards_bot", "app", "42")
	s.SetCreditFeed(NewCreditFeed())

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv, remote
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url string, body, out any) int {
	t.Helper()
	raw, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode
}

func TestHealthAndStatus(t *testing.T) {
	srv, _ := newTestServer(t, domain.Balance{})

	if code := getJSON(t, srv.URL+"/health", nil); code != http.StatusOK {
		t.Errorf("health = %d, want 200", code)
	}

	var status struct {
		SessionState string `json:"session_state"`
		OutboxDepth  int    `json:"outbox_depth"`
	}
	if code := getJSON(t, srv.URL+"/api/status", &status); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if status.SessionState != "idle" {
		t.Errorf("session_state = %q, want idle", status.SessionState)
	}
}

func TestRewardEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, domain.Balance{Normal: 10, Gold: 5})

	var got struct {
		Slot         string `json:"slot"`
		NormalPoints int64  `json:"normal_points"`
	}
	// Low slot is ungated, so the request resolves without waiting out a
	// cooldown.
	code := postJSON(t, srv.URL+"/api/reward/low", nil, &got)
	if code != http.StatusOK {
		t.Fatalf("reward = %d, want 200", code)
	}
	if got.Slot != "low" || got.NormalPoints != 10 {
		t.Errorf("response = %+v, want slot=low normal=10", got)
	}
}

func TestRewardUnknownSlot(t *testing.T) {
	srv, _ := newTestServer(t, domain.Balance{})

	if code := postJSON(t, srv.URL+"/api/reward/banner", nil, nil); code != http.StatusBadRequest {
		t.Errorf("unknown slot = %d, want 400", code)
	}
}

func TestTaskSubmitFlow(t *testing.T) {
	srv, _ := newTestServer(t, domain.Balance{})
	catalog := domain.DefaultTaskCatalog()
	id := catalog[0].ID

	body := map[string]string{"handle": "@alice"}

	if code := postJSON(t, srv.URL+"/api/tasks/"+id+"/submit", body, nil); code != http.StatusOK {
		t.Fatalf("submit = %d, want 200", code)
	}
	// Second submit of the same task is a conflict.
	if code := postJSON(t, srv.URL+"/api/tasks/"+id+"/submit", body, nil); code != http.StatusConflict {
		t.Errorf("resubmit = %d, want 409", code)
	}
	if code := postJSON(t, srv.URL+"/api/tasks/nope/submit", body, nil); code != http.StatusNotFound {
		t.Errorf("unknown task = %d, want 404", code)
	}

	var tasks struct {
		Tasks []domain.TaskRecord `json:"tasks"`
	}
	getJSON(t, srv.URL+"/api/tasks", &tasks)
	if len(tasks.Tasks) == 0 || tasks.Tasks[0].Status != domain.TaskPending {
		t.Errorf("task list = %+v, want first task pending", tasks.Tasks)
	}
}

func TestOutboxFlushEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, domain.Balance{})
	catalog := domain.DefaultTaskCatalog()

	postJSON(t, srv.URL+"/api/tasks/"+catalog[0].ID+"/submit", map[string]string{"handle": "@a"}, nil)

	var depth struct {
		Depth int `json:"depth"`
	}
	getJSON(t, srv.URL+"/api/outbox", &depth)
	if depth.Depth != 1 {
		t.Fatalf("depth = %d, want 1", depth.Depth)
	}

	var flushed struct {
		Status string `json:"status"`
		Depth  int    `json:"depth"`
	}
	if code := postJSON(t, srv.URL+"/api/outbox/flush", nil, &flushed); code != http.StatusOK {
		t.Fatalf("flush = %d, want 200", code)
	}
	if flushed.Depth != 0 {
		t.Errorf("depth after flush = %d, want 0", flushed.Depth)
	}
}

func TestLotteryTicketInsufficient(t *testing.T) {
	srv, _ := newTestServer(t, domain.Balance{Normal: 50})

	if code := postJSON(t, srv.URL+"/api/lottery/ticket", nil, nil); code != http.StatusConflict {
		t.Errorf("ticket with 50 points = %d, want 409", code)
	}
}

func TestInviteLink(t *testing.T) {
	srv, _ := newTestServer(t, domain.Balance{})

	var got struct {
		Link string `json:"link"`
	}
	getJSON(t, srv.URL+"/api/invite", &got)
	if got.Link != "https://t.me/rewards_bot/app?startapp=42" {
		t.Errorf("link = %q", got.Link)
	}
}

func TestWithdrawalPassthrough(t *testing.T) {
	srv, remote := newTestServer(t, domain.Balance{})

	var created struct {
		Withdrawal domain.Withdrawal `json:"withdrawal"`
	}
	code := postJSON(t, srv.URL+"/api/withdrawals", map[string]int64{"tokens": 50}, &created)
	if code != http.StatusCreated {
		t.Fatalf("create withdrawal = %d, want 201", code)
	}
	if created.Withdrawal.Tokens != 50 || created.Withdrawal.Status != domain.WithdrawalPending {
		t.Errorf("withdrawal = %+v", created.Withdrawal)
	}
	if len(remote.withdrawals) != 1 {
		t.Errorf("ledger calls = %d, want 1", len(remote.withdrawals))
	}

	if code := postJSON(t, srv.URL+"/api/withdrawals", map[string]int64{"tokens": -1}, nil); code != http.StatusBadRequest {
		t.Errorf("negative tokens = %d, want 400", code)
	}

	if code := postJSON(t, srv.URL+"/api/withdrawals/w1/approve", nil, nil); code != http.StatusOK {
		t.Errorf("approve = %d, want 200", code)
	}
	if code := postJSON(t, srv.URL+"/api/withdrawals/w1/shred", nil, nil); code != http.StatusBadRequest {
		t.Errorf("bad action = %d, want 400", code)
	}
}

func TestCreditFeedBroadcast(t *testing.T) {
	feed := NewCreditFeed()
	ch, unsub := feed.Subscribe()
	defer unsub()

	feed.Broadcast(CreditEvent{Type: "credit", Slot: "main", NormalPoints: 14})

	select {
	case raw := <-ch:
		var ev CreditEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if ev.Slot != "main" || ev.NormalPoints != 14 {
			t.Errorf("event = %+v", ev)
		}
	default:
		t.Fatal("no event delivered")
	}

	if feed.ClientCount() != 1 {
		t.Errorf("clients = %d, want 1", feed.ClientCount())
	}
}
