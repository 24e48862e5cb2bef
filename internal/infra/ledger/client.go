// Package ledger is the HTTP client for the remote ledger backend — the
// external service that owns the authoritative balance, task state, invites,
// and withdrawals. The client attaches the bearer credential from login to
// every call and applies a bounded request timeout; it implements
// domain.Ledger.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/adsbot-network/pointsd/internal/domain"
)

// Client talks to the remote ledger REST API.
type Client struct {
	base string
	http *http.Client

	mu    sync.Mutex
	token string
}

// New creates a client for the given base URL (e.g. "https://backend.example.com/api").
// timeout bounds every request; failures past it are treated like any other
// network failure.
func New(base string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// SetToken installs the bearer credential attached to subsequent calls.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// ─── Auth ───────────────────────────────────────────────────────────────────

// LoginResponse is the answer to POST /auth/login.
type LoginResponse struct {
	Token string `json:"token"`
	User  struct {
		ID           string `json:"id"`
		TelegramID   string `json:"telegram_id"`
		NormalPoints int64  `json:"normal_points"`
		GoldPoints   int64  `json:"gold_points"`
	} `json:"user"`
}

// Balance returns the user's balance carried in the login answer.
func (r LoginResponse) Balance() domain.Balance {
	return domain.Balance{Normal: r.User.NormalPoints, Gold: r.User.GoldPoints}
}

// Login authenticates the Telegram identity, stores the returned bearer
// token on the client, and returns the user's current balance.
func (c *Client) Login(ctx context.Context, telegramID, username string) (LoginResponse, error) {
	var resp LoginResponse
	body := map[string]string{"telegram_id": telegramID, "username": username}
	if err := c.post(ctx, "/auth/login", body, &resp); err != nil {
		return LoginResponse{}, err
	}
	if resp.Token != "" {
		c.SetToken(resp.Token)
	}
	return resp, nil
}

// ─── domain.Ledger ──────────────────────────────────────────────────────────

// Credit reports a completed ad view. The server answers with the full
// authoritative balance, never a delta.
func (c *Client) Credit(ctx context.Context, slot domain.AdSlot) (domain.Balance, error) {
	var resp domain.Balance
	if err := c.post(ctx, "/credit", map[string]string{"adType": string(slot)}, &resp); err != nil {
		return domain.Balance{}, err
	}
	return resp, nil
}

// SubmitTask reports a user task submission.
func (c *Client) SubmitTask(ctx context.Context, sub domain.TaskSubmission) (domain.TaskServerResponse, error) {
	var resp domain.TaskServerResponse
	if err := c.post(ctx, "/tasks/submit", sub, &resp); err != nil {
		return domain.TaskServerResponse{}, err
	}
	return resp, nil
}

// CompleteTask reports an elapsed pending window.
func (c *Client) CompleteTask(ctx context.Context, comp domain.TaskCompletion) (domain.TaskServerResponse, error) {
	var resp domain.TaskServerResponse
	if err := c.post(ctx, "/tasks/complete", comp, &resp); err != nil {
		return domain.TaskServerResponse{}, err
	}
	return resp, nil
}

// FetchBalance returns the current authoritative balance.
func (c *Client) FetchBalance(ctx context.Context) (domain.Balance, error) {
	var resp domain.Balance
	if err := c.get(ctx, "/balance", &resp); err != nil {
		return domain.Balance{}, err
	}
	return resp, nil
}

// FetchTasks returns the authoritative task snapshot.
func (c *Client) FetchTasks(ctx context.Context) ([]domain.TaskRecord, error) {
	var resp struct {
		Tasks []domain.TaskRecord `json:"tasks"`
	}
	if err := c.get(ctx, "/tasks", &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

var _ domain.Ledger = (*Client)(nil)

// ─── Invites & Withdrawals ──────────────────────────────────────────────────

// ClaimInvite reports a referral claim for attribution.
func (c *Client) ClaimInvite(ctx context.Context, claim domain.InviteClaim) error {
	return c.post(ctx, "/invite/claim", claim, nil)
}

// CreateWithdrawal requests conversion of points into tokens.
func (c *Client) CreateWithdrawal(ctx context.Context, tokens int64) (domain.Withdrawal, error) {
	var resp struct {
		Withdrawal domain.Withdrawal `json:"withdrawal"`
	}
	if err := c.post(ctx, "/withdrawals", map[string]int64{"tokens": tokens}, &resp); err != nil {
		return domain.Withdrawal{}, err
	}
	return resp.Withdrawal, nil
}

// PendingWithdrawals lists withdrawals awaiting review (admin).
func (c *Client) PendingWithdrawals(ctx context.Context, limit, offset int) ([]domain.Withdrawal, error) {
	var resp struct {
		Withdrawals []domain.Withdrawal `json:"withdrawals"`
	}
	path := fmt.Sprintf("/withdrawals/pending?limit=%d&offset=%d", limit, offset)
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Withdrawals, nil
}

// ResolveWithdrawal approves or rejects a pending withdrawal (admin).
func (c *Client) ResolveWithdrawal(ctx context.Context, id string, approve bool) error {
	action := "reject"
	if approve {
		action = "approve"
	}
	return c.post(ctx, "/withdrawals/"+id+"/"+action, nil, nil)
}

// ─── HTTP Plumbing ──────────────────────────────────────────────────────────

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

// do issues one request. Transport errors and 5xx map to ErrRemoteCall
// (retryable); 4xx maps to ErrRemoteRejected (definitive); 401 to
// ErrUnauthorized.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.mu.Lock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.Unlock()

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", domain.ErrRemoteCall, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg := readErrorMessage(resp.Body)
		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", domain.ErrUnauthorized, msg)
		case resp.StatusCode < 500:
			return fmt.Errorf("%w: %d %s", domain.ErrRemoteRejected, resp.StatusCode, msg)
		default:
			return fmt.Errorf("%w: %d %s", domain.ErrRemoteCall, resp.StatusCode, msg)
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", domain.ErrRemoteCall, err)
	}
	return nil
}

// readErrorMessage extracts {"error": "..."} or {"message": "..."} from an
// error body, falling back to the raw text.
func readErrorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &payload) == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return strings.TrimSpace(string(raw))
}
