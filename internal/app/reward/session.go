// Package reward implements the reward-crediting session.
// Lifecycle: gate the earn action behind the anti-abuse cooldown and the
// ad-completion signal, apply an optimistic balance delta, then reconcile
// against the ledger's authoritative answer — overwrite on success, exact
// rollback on failure.
package reward

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/adsbot-network/pointsd/internal/domain"
	"github.com/adsbot-network/pointsd/internal/infra/observability"
)

// Config controls session behavior.
type Config struct {
	Cooldown time.Duration                       // wait between gated ads (default: 15s)
	Policies map[domain.AdSlot]domain.SlotPolicy // slot → point value + gating
}

// DefaultConfig returns the production reward policy.
func DefaultConfig() Config {
	return Config{
		Cooldown: 15 * time.Second,
		Policies: domain.DefaultSlotPolicies(),
	}
}

// Session owns the state of the current reward attempt. At most one attempt
// may be in flight; a second RequestReward is rejected synchronously with
// ErrConcurrentAttempt and performs no side effect.
type Session struct {
	mu       sync.Mutex
	state    domain.RewardState
	attempt  domain.RewardAttempt
	cancelCh chan struct{}
	canceled bool

	cfg     Config
	ads     domain.AdDisplay
	ledger  domain.Ledger
	balance domain.BalanceStore
	clock   domain.Clock
}

// New creates a reward session.
func New(cfg Config, ads domain.AdDisplay, ledger domain.Ledger, balance domain.BalanceStore, clock domain.Clock) *Session {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 15 * time.Second
	}
	if cfg.Policies == nil {
		cfg.Policies = domain.DefaultSlotPolicies()
	}
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Session{
		state:   domain.StateIdle,
		cfg:     cfg,
		ads:     ads,
		ledger:  ledger,
		balance: balance,
		clock:   clock,
	}
}

// State returns the current attempt state.
func (s *Session) State() domain.RewardState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Attempt returns a snapshot of the current attempt.
func (s *Session) Attempt() domain.RewardAttempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.attempt
	a.State = s.state
	return a
}

// CooldownRemaining returns how long until a gated attempt may credit.
// Zero when no cooldown is pending.
func (s *Session) CooldownRemaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.InFlight() || s.attempt.CooldownEndsAt.IsZero() {
		return 0
	}
	d := s.attempt.CooldownEndsAt.Sub(s.clock.Now())
	if d < 0 {
		return 0
	}
	return d
}

// RequestReward runs one reward attempt for the slot and returns the balance
// after it resolves. The call blocks until the ad resolves, the cooldown
// elapses (for gated slots), and the credit call settles. Every optimistic
// balance mutation has exactly one resolving action: the server's value
// replaces it, or the delta is reversed.
func (s *Session) RequestReward(ctx context.Context, slot domain.AdSlot) (domain.Balance, error) {
	span := observability.Default.StartSpan(ctx, "reward.attempt", map[string]string{"slot": string(slot)})
	bal, err := s.requestReward(ctx, slot)
	observability.Default.EndSpan(span, err)
	return bal, err
}

func (s *Session) requestReward(ctx context.Context, slot domain.AdSlot) (domain.Balance, error) {
	policy, ok := s.cfg.Policies[slot]
	if !ok {
		return s.balance.Get(), fmt.Errorf("%w: %q", domain.ErrUnknownSlot, slot)
	}

	cooldownCh, err := s.begin(slot, policy)
	if err != nil {
		return s.balance.Get(), err
	}

	// Delegate rendering to the external capability. Its only contract is
	// the two outcomes: completed or not.
	if err := s.ads.Show(ctx, slot); err != nil {
		observability.AdFailed()
		s.reset()
		return s.balance.Get(), fmt.Errorf("%w: %v", domain.ErrAdNotCompleted, err)
	}
	if err := s.checkCanceled(); err != nil {
		return s.balance.Get(), err
	}
	s.setState(domain.StateAdCompleted)

	// Gated slots deny credit until the timer elapses, even when the ad
	// resolved early.
	if cooldownCh != nil {
		select {
		case <-cooldownCh:
		case <-s.cancelWait():
			return s.balance.Get(), domain.ErrAttemptCanceled
		case <-ctx.Done():
			s.reset()
			return s.balance.Get(), ctx.Err()
		}
		if err := s.checkCanceled(); err != nil {
			return s.balance.Get(), err
		}
	}

	return s.credit(ctx, slot, policy)
}

// begin transitions idle → awaiting_ad and arms the cooldown timer for
// gated slots. Rejected synchronously when another attempt is in flight.
func (s *Session) begin(slot domain.AdSlot, policy domain.SlotPolicy) (<-chan time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.InFlight() {
		observability.AttemptRejected()
		return nil, domain.ErrConcurrentAttempt
	}

	now := s.clock.Now()
	s.state = domain.StateAwaitingAd
	s.canceled = false
	s.cancelCh = make(chan struct{})
	s.attempt = domain.RewardAttempt{
		Slot:      slot,
		State:     domain.StateAwaitingAd,
		StartedAt: now,
	}

	if !policy.Cooldown {
		return nil, nil
	}
	s.attempt.CooldownEndsAt = now.Add(s.cfg.Cooldown)
	return s.clock.After(s.cfg.Cooldown), nil
}

// credit applies the optimistic delta, issues the ledger call, and resolves
// the delta exactly once.
func (s *Session) credit(ctx context.Context, slot domain.AdSlot, policy domain.SlotPolicy) (domain.Balance, error) {
	s.setState(domain.StateCrediting)

	delta := domain.Balance{Normal: policy.Points}
	s.balance.Apply(delta)

	authoritative, err := s.ledger.Credit(ctx, slot)
	if err != nil {
		// Roll back exactly the applied delta, never a partial amount.
		s.balance.Apply(delta.Neg())
		observability.CreditFailed()
		s.setState(domain.StateFailed)
		s.reset()
		return s.balance.Get(), fmt.Errorf("%w: %v", domain.ErrCreditFailed, err)
	}

	// Replace, not merge: the server returns the full balance.
	s.balance.Set(authoritative)
	observability.CreditIssued(string(slot))
	s.setState(domain.StateCredited)
	s.reset()
	return authoritative, nil
}

// TicketCost is the normal-point price of one lottery ticket.
const TicketCost = 100

// BuyLotteryTicket spends TicketCost normal points on a lottery ticket.
// The debit is local; the ledger reconciles it on the next balance fetch.
func (s *Session) BuyLotteryTicket() (domain.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.balance.Get().Normal < TicketCost {
		return s.balance.Get(), domain.ErrInsufficientPoints
	}
	return s.balance.Apply(domain.Balance{Normal: -TicketCost}), nil
}

// Cancel clears any pending cooldown wait and resets the session to idle
// without mutating the balance. Idempotent; a no-op once crediting has
// started, so the in-flight delta still resolves exactly once.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case domain.StateAwaitingAd, domain.StateAdCompleted:
	default:
		return
	}
	if !s.canceled {
		s.canceled = true
		close(s.cancelCh)
	}
	s.state = domain.StateIdle
	s.attempt = domain.RewardAttempt{}
}

func (s *Session) setState(state domain.RewardState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// reset returns the session to idle. Credited and failed are transient
// terminal states; every attempt resolves back to idle so the session is
// never left stuck.
func (s *Session) reset() {
	s.mu.Lock()
	s.state = domain.StateIdle
	s.attempt = domain.RewardAttempt{}
	s.mu.Unlock()
}

func (s *Session) checkCanceled() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.canceled {
		return domain.ErrAttemptCanceled
	}
	return nil
}

func (s *Session) cancelWait() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelCh
}
