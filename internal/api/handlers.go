package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/adsbot-network/pointsd/internal/domain"
	"github.com/adsbot-network/pointsd/internal/infra/observability"
)

// ─── Rewards API ────────────────────────────────────────────────────────────
// REST endpoints for the Mini App shell to drive earn attempts, tasks, the
// outbox, and the ledger passthroughs.
//
// GET  /api/status                    — session state + outbox depth
// GET  /api/balance                   — cached balance mirror
// POST /api/reward/{slot}             — run one reward attempt (blocks)
// POST /api/reward/cancel             — cancel a pending attempt
// GET  /api/tasks                     — local task list
// POST /api/tasks/{id}/submit         — submit a task with a handle
// GET  /api/outbox                    — queue depth
// POST /api/outbox/flush              — force a flush pass
// POST /api/lottery/ticket            — buy one ticket
// GET  /api/invite                    — personal invite link
// POST /api/withdrawals               — request a withdrawal

// HandleStatus returns the session and queue state.
// GET /api/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":               "pointsd is running",
		"session_state":        s.session.State().String(),
		"cooldown_remaining_ms": s.session.CooldownRemaining().Milliseconds(),
		"outbox_depth":         s.outbox.Depth(),
	})
}

// HandleBalance returns the cached balance mirror plus the local subtotal of
// done task points.
// GET /api/balance
func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	b := s.balance.Get()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"normal_points": b.Normal,
		"gold_points":   b.Gold,
		"done_subtotal": s.tasks.DoneSubtotal(),
	})
}

// HandleReward runs one reward attempt for the slot in the URL. The request
// blocks until the attempt resolves (ad + cooldown + credit).
// POST /api/reward/{slot}
func (s *Server) handleReward(w http.ResponseWriter, r *http.Request) {
	slot := domain.AdSlot(chi.URLParam(r, "slot"))
	if !slot.Valid() {
		writeError(w, http.StatusBadRequest, "unknown ad slot: "+string(slot))
		return
	}

	bal, err := s.session.RequestReward(r.Context(), slot)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrConcurrentAttempt):
			writeError(w, http.StatusConflict, "an attempt is already in flight")
		case errors.Is(err, domain.ErrAttemptCanceled):
			writeError(w, http.StatusConflict, "attempt canceled")
		case errors.Is(err, domain.ErrAdNotCompleted):
			writeError(w, http.StatusBadGateway, err.Error())
		case errors.Is(err, domain.ErrCreditFailed):
			writeError(w, http.StatusBadGateway, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	if s.feed != nil {
		s.feed.Broadcast(CreditEvent{
			Type:         "credit",
			Slot:         string(slot),
			NormalPoints: bal.Normal,
			GoldPoints:   bal.Gold,
			Timestamp:    time.Now().Unix(),
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"slot":          slot,
		"normal_points": bal.Normal,
		"gold_points":   bal.Gold,
	})
}

// HandleRewardCancel cancels a pending attempt. Idempotent.
// POST /api/reward/cancel
func (s *Server) handleRewardCancel(w http.ResponseWriter, r *http.Request) {
	s.session.Cancel()
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"state":  s.session.State().String(),
	})
}

// HandleTasks returns the local task list.
// GET /api/tasks
func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tasks":         s.tasks.Tasks(),
		"done_subtotal": s.tasks.DoneSubtotal(),
	})
}

// HandleTaskSubmit submits a task with the user's handle.
// POST /api/tasks/{id}/submit
func (s *Server) handleTaskSubmit(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "id")

	var body struct {
		Handle string `json:"handle"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.tasks.Submit(taskID, body.Handle); err != nil {
		switch {
		case errors.Is(err, domain.ErrTaskNotFound):
			writeError(w, http.StatusNotFound, "task not found: "+taskID)
		case errors.Is(err, domain.ErrTaskNotIdle):
			writeError(w, http.StatusConflict, "task already submitted")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "pending",
		"task_id": taskID,
	})
}

// HandleOutbox returns the queue depth.
// GET /api/outbox
func (s *Server) handleOutbox(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"depth": s.outbox.Depth(),
	})
}

// HandleOutboxFlush forces a flush pass. A pass already in progress is
// reported as busy, not an error.
// POST /api/outbox/flush
func (s *Server) handleOutboxFlush(w http.ResponseWriter, r *http.Request) {
	err := s.outbox.Flush(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "flushed",
			"depth":  s.outbox.Depth(),
		})
	case errors.Is(err, domain.ErrFlushBusy):
		writeJSON(w, http.StatusAccepted, map[string]string{
			"status": "busy",
		})
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// HandleLotteryTicket spends points on one lottery ticket.
// POST /api/lottery/ticket
func (s *Server) handleLotteryTicket(w http.ResponseWriter, r *http.Request) {
	bal, err := s.session.BuyLotteryTicket()
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientPoints) {
			writeError(w, http.StatusConflict, "not enough points for a ticket")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"normal_points": bal.Normal,
		"gold_points":   bal.Gold,
	})
}

// HandleInvite returns the personal invite link.
// GET /api/invite
func (s *Server) handleInvite(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"link": domain.InviteLink(s.botUsername, s.appName, s.telegramID),
	})
}

// HandleInviteClaim forwards a referral claim to the ledger.
// POST /api/invite/claim
func (s *Server) handleInviteClaim(w http.ResponseWriter, r *http.Request) {
	var claim domain.InviteClaim
	if err := json.NewDecoder(r.Body).Decode(&claim); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.ledger.ClaimInvite(r.Context(), claim); err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleCreateWithdrawal forwards a withdrawal request to the ledger.
// POST /api/withdrawals
func (s *Server) handleCreateWithdrawal(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Tokens int64 `json:"tokens"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Tokens <= 0 {
		writeError(w, http.StatusBadRequest, "tokens must be positive")
		return
	}
	wd, err := s.ledger.CreateWithdrawal(r.Context(), body.Tokens)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"withdrawal": wd,
	})
}

// HandlePendingWithdrawals lists withdrawals awaiting review (admin).
// GET /api/withdrawals/pending
func (s *Server) handlePendingWithdrawals(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)

	wds, err := s.ledger.PendingWithdrawals(r.Context(), limit, offset)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"withdrawals": wds,
	})
}

// HandleResolveWithdrawal approves or rejects a withdrawal (admin).
// POST /api/withdrawals/{id}/{action}
func (s *Server) handleResolveWithdrawal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	action := chi.URLParam(r, "action")
	if action != "approve" && action != "reject" {
		writeError(w, http.StatusBadRequest, "action must be approve or reject")
		return
	}
	if err := s.ledger.ResolveWithdrawal(r.Context(), id, action == "approve"); err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": action + "d"})
}

// HandleDebugSpans returns recent trace spans for inspection.
// GET /api/debug/spans?limit=N
func (s *Server) handleDebugSpans(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"spans": observability.Default.Spans(limit),
	})
}

// writeLedgerError maps ledger client errors to HTTP statuses: transient
// failures read as bad gateway, definitive rejections as conflicts.
func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrRemoteRejected):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrRemoteCall):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
