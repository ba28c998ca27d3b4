package services

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"ticket-storefront/internal/clock"
	"ticket-storefront/internal/repositories"
	"ticket-storefront/internal/utils"
)

// Reservation defaults
const (
	DefaultReservationTTL = 15 * time.Minute
	DefaultPollInterval   = time.Second
	urgentThreshold       = time.Minute
)

// ReservationExpiredMessage is shown when the countdown reaches zero
const ReservationExpiredMessage = "Your reservation time has expired. The tickets have been released."

// ReservationState is the countdown's lifecycle state
type ReservationState int

const (
	ReservationInactive ReservationState = iota
	ReservationCounting
	ReservationExpired
)

func (s ReservationState) String() string {
	switch s {
	case ReservationCounting:
		return "counting"
	case ReservationExpired:
		return "expired"
	default:
		return "inactive"
	}
}

// ReservationConfig tunes the countdown
type ReservationConfig struct {
	TTL          time.Duration
	PollInterval time.Duration
}

// ReservationTimer runs the client-side hold countdown for one cart.
// The deadline is persisted under CartEndTimeKey so it survives reloads.
type ReservationTimer struct {
	mu        sync.Mutex
	state     ReservationState
	expiresAt time.Time
	cancel    context.CancelFunc

	parent   context.Context
	cart     *CartStore
	store    repositories.StateStore
	clientID string
	clock    clock.Clock
	notifier Notifier
	logger   *zap.Logger
	ttl      time.Duration
	interval time.Duration
}

// NewReservationTimer creates an Inactive timer. Polling goroutines are bound to parent.
func NewReservationTimer(parent context.Context, cart *CartStore, store repositories.StateStore, clientID string,
	clk clock.Clock, notifier Notifier, logger *zap.Logger, cfg ReservationConfig) *ReservationTimer {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultReservationTTL
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReservationTimer{
		state:    ReservationInactive,
		parent:   parent,
		cart:     cart,
		store:    store,
		clientID: clientID,
		clock:    clk,
		notifier: notifier,
		logger:   logger.With(zap.String("client_id", clientID)),
		ttl:      cfg.TTL,
		interval: cfg.PollInterval,
	}
}

// Init resumes a persisted window, opens a new one, or deactivates for an empty cart
func (t *ReservationTimer) Init() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.cart.GetItems()) == 0 {
		t.deactivateLocked()
		return
	}

	now := t.clock.Now()
	if end, ok := t.loadWindow(); ok && end.After(now) {
		t.expiresAt = end
		t.state = ReservationCounting
		t.startPollingLocked()
		return
	}

	t.openWindowLocked(now)
}

// CartChanged re-evaluates the countdown after any cart mutation.
// A running window is never extended.
func (t *ReservationTimer) CartChanged() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.cart.GetItems()) == 0 {
		t.deactivateLocked()
		return
	}
	if t.state != ReservationCounting {
		t.openWindowLocked(t.clock.Now())
	}
}

// Tick advances the state machine. It returns false once the timer is no longer counting.
func (t *ReservationTimer) Tick() bool {
	t.mu.Lock()
	if t.state != ReservationCounting {
		t.mu.Unlock()
		return false
	}
	if t.expiresAt.After(t.clock.Now()) {
		t.mu.Unlock()
		return true
	}

	t.state = ReservationExpired
	t.stopPollingLocked()
	t.clearWindow()
	if err := t.cart.Clear(); err != nil {
		t.logger.Error("failed to clear expired cart", zap.Error(err))
	}
	t.mu.Unlock()

	t.logger.Info("reservation expired")
	t.notifier.Warning(ReservationExpiredMessage)
	return false
}

// Release stops the countdown and discards the window, e.g. after a placed order
func (t *ReservationTimer) Release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deactivateLocked()
}

// Stop cancels polling without touching persisted state
func (t *ReservationTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopPollingLocked()
}

// State returns the current lifecycle state
func (t *ReservationTimer) State() ReservationState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// ExpiresAt returns the window deadline while counting
func (t *ReservationTimer) ExpiresAt() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != ReservationCounting {
		return time.Time{}, false
	}
	return t.expiresAt, true
}

// Remaining returns the time left, clamped at zero
func (t *ReservationTimer) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remainingLocked()
}

// Display renders the remaining time as MM:SS
func (t *ReservationTimer) Display() string {
	return utils.FormatCountdown(t.Remaining())
}

// Urgent reports whether less than a minute is left on a running countdown
func (t *ReservationTimer) Urgent() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == ReservationCounting && t.remainingLocked() < urgentThreshold
}

// Polling reports whether a tick goroutine is running
func (t *ReservationTimer) Polling() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancel != nil
}

func (t *ReservationTimer) remainingLocked() time.Duration {
	if t.state != ReservationCounting {
		return 0
	}
	remaining := t.expiresAt.Sub(t.clock.Now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (t *ReservationTimer) openWindowLocked(now time.Time) {
	t.expiresAt = now.Add(t.ttl)
	t.state = ReservationCounting

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	value := strconv.FormatInt(t.expiresAt.UnixMilli(), 10)
	if err := t.store.Put(ctx, t.clientID, CartEndTimeKey, value); err != nil {
		t.logger.Error("failed to persist reservation window", zap.Error(err))
	}

	t.logger.Debug("reservation window opened", zap.Time("expires_at", t.expiresAt))
	t.startPollingLocked()
}

func (t *ReservationTimer) deactivateLocked() {
	t.stopPollingLocked()
	t.state = ReservationInactive
	t.expiresAt = time.Time{}
	t.clearWindow()
}

func (t *ReservationTimer) loadWindow() (time.Time, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	raw, ok, err := t.store.Get(ctx, t.clientID, CartEndTimeKey)
	if err != nil {
		t.logger.Error("failed to read reservation window", zap.Error(err))
		return time.Time{}, false
	}
	if !ok {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		t.logger.Warn("discarding malformed reservation window", zap.String("raw", raw))
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

func (t *ReservationTimer) clearWindow() {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := t.store.Delete(ctx, t.clientID, CartEndTimeKey); err != nil {
		t.logger.Error("failed to clear reservation window", zap.Error(err))
	}
}

func (t *ReservationTimer) startPollingLocked() {
	if t.cancel != nil || t.parent == nil {
		return
	}
	ctx, cancel := context.WithCancel(t.parent)
	t.cancel = cancel
	ticker := t.clock.NewTicker(t.interval)
	go t.poll(ctx, ticker)
}

func (t *ReservationTimer) stopPollingLocked() {
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

func (t *ReservationTimer) poll(ctx context.Context, ticker *clock.Ticker) {
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			if !t.Tick() {
				return
			}
		}
	}
}
