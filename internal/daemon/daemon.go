package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/adsbot-network/pointsd/internal/api"
	"github.com/adsbot-network/pointsd/internal/app/outbox"
	"github.com/adsbot-network/pointsd/internal/app/reward"
	"github.com/adsbot-network/pointsd/internal/app/taskflow"
	"github.com/adsbot-network/pointsd/internal/domain"
	"github.com/adsbot-network/pointsd/internal/infra/ledger"
	"github.com/adsbot-network/pointsd/internal/infra/sqlite"
)

// Daemon is the assembled agent: storage, services, and the local API.
type Daemon struct {
	cfg     Config
	db      *sqlite.DB
	ledger  *ledger.Client
	balance domain.BalanceStore
	session *reward.Session
	tasks   *taskflow.List
	outbox  *outbox.Outbox
	server  *api.Server
}

// New assembles a daemon from config. The sqlite store is opened (and
// migrated) here; Run starts the loops.
func New(cfg Config) (*Daemon, error) {
	if err := os.MkdirAll(Home(), 0700); err != nil {
		return nil, fmt.Errorf("create home dir: %w", err)
	}
	db, err := sqlite.Open(cfg.Storage.Path)
	if err != nil {
		return nil, err
	}
	balance, err := db.NewBalance()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load balance cache: %w", err)
	}

	d := &Daemon{
		cfg:     cfg,
		db:      db,
		ledger:  ledger.New(cfg.Ledger.BaseURL, cfg.Ledger.Timeout()),
		balance: balance,
	}

	d.outbox = outbox.New(
		outbox.Config{FlushInterval: cfg.Outbox.FlushInterval()},
		db, d.ledger, nil,
		func(kind domain.OutboxKind, resp domain.TaskServerResponse) {
			d.tasks.ApplyServer(kind, resp)
		},
		func(kind domain.OutboxKind, payload json.RawMessage) {
			d.tasks.RollbackRejected(kind, payload)
		},
	)

	d.tasks = taskflow.New(
		taskflow.Config{PendingWindow: cfg.Tasks.PendingWindow(), SweepInterval: cfg.Tasks.SweepInterval()},
		domain.DefaultTaskCatalog(),
		d.outbox, nil,
	)
	if persisted, err := db.LoadTasks(); err == nil && len(persisted) > 0 {
		d.tasks.Hydrate(persisted)
	}

	d.session = reward.New(
		reward.Config{Cooldown: cfg.Reward.Cooldown(), Policies: cfg.Reward.Policies()},
		&adPlayer{duration: cfg.Reward.AdDuration()},
		d.ledger, d.balance, nil,
	)

	d.server = api.NewServer(d.session, d.tasks, d.outbox, d.ledger, d.balance)
	d.server.SetIdentity(cfg.Telegram.BotUsername, cfg.Telegram.AppName, cfg.Telegram.TelegramID)
	d.server.SetCreditFeed(api.NewCreditFeed())
	if cfg.Metrics.Enabled {
		d.server.EnableMetrics()
	}
	return d, nil
}

// Server returns the local API server (for route inspection in tests).
func (d *Daemon) Server() *api.Server { return d.server }

// Run logs in, hydrates local state from the ledger, and serves until the
// context is canceled.
func (d *Daemon) Run(ctx context.Context) error {
	d.login(ctx)
	d.hydrate(ctx)

	httpServer := &http.Server{
		Addr:    d.cfg.API.Addr(),
		Handler: d.server.Handler(),
	}

	go d.outbox.Run(ctx, nil)
	go d.tasks.Run(ctx)
	go d.persistLoop(ctx)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("daemon: local API listening on %s", d.cfg.API.Addr())
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.shutdown()
			return fmt.Errorf("local API: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	httpServer.Shutdown(shutdownCtx)
	d.shutdown()
	return nil
}

// login authenticates against the ledger. Failure is not fatal: the agent
// starts offline and the outbox replays once connectivity returns.
func (d *Daemon) login(ctx context.Context) {
	tg := d.cfg.Telegram
	if tg.TelegramID == "" {
		log.Printf("daemon: no telegram_id configured, running unauthenticated")
		return
	}
	resp, err := d.ledger.Login(ctx, tg.TelegramID, tg.Username)
	if err != nil {
		log.Printf("daemon: login failed, starting offline: %v", err)
		return
	}
	d.balance.Set(resp.Balance())
	log.Printf("daemon: logged in as %s", resp.User.ID)
}

// hydrate pulls the authoritative balance and task snapshot. Offline starts
// keep the persisted local state.
func (d *Daemon) hydrate(ctx context.Context) {
	if b, err := d.ledger.FetchBalance(ctx); err == nil {
		d.balance.Set(b)
	}
	if server, err := d.ledger.FetchTasks(ctx); err == nil && len(server) > 0 {
		d.tasks.Hydrate(server)
		d.saveTasks()
	}
}

// persistLoop snapshots the task list to sqlite on the sweep cadence so a
// crash loses at most one interval of local transitions.
func (d *Daemon) persistLoop(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.Tasks.SweepInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.saveTasks()
		}
	}
}

func (d *Daemon) saveTasks() {
	if err := d.db.SaveTasks(d.tasks.Tasks()); err != nil {
		log.Printf("daemon: save tasks: %v", err)
	}
}

func (d *Daemon) shutdown() {
	d.saveTasks()
	if err := d.db.Close(); err != nil {
		log.Printf("daemon: close store: %v", err)
	}
}

// adPlayer is the agent's stand-in for the Mini App ad SDK: it plays an ad
// for a fixed duration. The contract is two outcomes only — completed, or
// not (canceled / interrupted).
type adPlayer struct {
	duration time.Duration
}

func (a *adPlayer) Show(ctx context.Context, slot domain.AdSlot) error {
	if a.duration <= 0 {
		return nil
	}
	select {
	case <-time.After(a.duration):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
