// Package api provides the agent's local HTTP control surface.
// It exposes the reward, task, and outbox operations to the Mini App shell
// (or curl) over loopback, plus Prometheus metrics and a live credit feed.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/adsbot-network/pointsd/internal/app/outbox"
	"github.com/adsbot-network/pointsd/internal/app/reward"
	"github.com/adsbot-network/pointsd/internal/app/taskflow"
	"github.com/adsbot-network/pointsd/internal/domain"
)

// Version is the agent version reported by /api/version.
const Version = "0.1.0"

// LedgerOps is the slice of the remote ledger the API passes through:
// the core ledger calls plus invites and withdrawals.
type LedgerOps interface {
	domain.Ledger
	ClaimInvite(ctx context.Context, claim domain.InviteClaim) error
	CreateWithdrawal(ctx context.Context, tokens int64) (domain.Withdrawal, error)
	PendingWithdrawals(ctx context.Context, limit, offset int) ([]domain.Withdrawal, error)
	ResolveWithdrawal(ctx context.Context, id string, approve bool) error
}

// Server is the local control API server.
type Server struct {
	session *reward.Session
	tasks   *taskflow.List
	outbox  *outbox.Outbox
	ledger  LedgerOps
	balance domain.BalanceStore

	metricsEnabled bool
	feed           *CreditFeed

	botUsername string
	appName     string
	telegramID  string
}

// NewServer creates an API server over the agent's services.
func NewServer(session *reward.Session, tasks *taskflow.List, ob *outbox.Outbox, ledger LedgerOps, balance domain.BalanceStore) *Server {
	return &Server{
		session: session,
		tasks:   tasks,
		outbox:  ob,
		ledger:  ledger,
		balance: balance,
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetCreditFeed sets the live credit SSE hub.
func (s *Server) SetCreditFeed(f *CreditFeed) { s.feed = f }

// CreditFeed returns the live credit hub (for broadcasting events).
func (s *Server) CreditFeed() *CreditFeed { return s.feed }

// SetIdentity sets the Telegram identity used to build invite links.
func (s *Server) SetIdentity(botUsername, appName, telegramID string) {
	s.botUsername = botUsername
	s.appName = appName
	s.telegramID = telegramID
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{
				"version": Version,
			})
		})

		r.Get("/balance", s.handleBalance)

		r.Post("/reward/{slot}", s.handleReward)
		r.Post("/reward/cancel", s.handleRewardCancel)

		r.Get("/tasks", s.handleTasks)
		r.Post("/tasks/{id}/submit", s.handleTaskSubmit)

		r.Get("/outbox", s.handleOutbox)
		r.Post("/outbox/flush", s.handleOutboxFlush)

		r.Post("/lottery/ticket", s.handleLotteryTicket)

		r.Get("/invite", s.handleInvite)
		r.Post("/invite/claim", s.handleInviteClaim)

		r.Post("/withdrawals", s.handleCreateWithdrawal)
		r.Get("/withdrawals/pending", s.handlePendingWithdrawals)
		r.Post("/withdrawals/{id}/{action}", s.handleResolveWithdrawal)

		r.Get("/debug/spans", s.handleDebugSpans)
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	if s.feed != nil {
		r.Get("/api/credits/live", s.feed.HandleSSE)
	}

	return r
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// corsMiddleware adds CORS headers so the Mini App webview can call the
// loopback API directly.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
