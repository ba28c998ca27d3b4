package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"ticket-storefront/internal/clock"
	"ticket-storefront/internal/repositories"
)

// StorefrontConfig carries the per-session settings
type StorefrontConfig struct {
	Reservation      ReservationConfig
	ConfirmationPath string
	IdleTimeout      time.Duration
}

// ClientSession bundles the components serving one browser
type ClientSession struct {
	ClientID string
	Cart     *CartStore
	Timer    *ReservationTimer
	CartPage *CartPage
	Checkout *CheckoutPage
	Inbox    *NotificationInbox

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *ClientSession) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// LastSeen returns the time of the last request from this client
func (s *ClientSession) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Storefront builds and tracks one ClientSession per client ID
type Storefront struct {
	ctx      context.Context
	mu       sync.Mutex
	sessions map[string]*ClientSession

	store  repositories.StateStore
	promos *PromoResolver
	orders OrderSubmitter
	clock  clock.Clock
	logger *zap.Logger
	config StorefrontConfig
}

// NewStorefront creates the registry. Countdown goroutines live until ctx is cancelled.
func NewStorefront(ctx context.Context, store repositories.StateStore, promos *PromoResolver, orders OrderSubmitter,
	clk clock.Clock, logger *zap.Logger, config StorefrontConfig) *Storefront {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = 2 * time.Hour
	}
	return &Storefront{
		ctx:      ctx,
		sessions: make(map[string]*ClientSession),
		store:    store,
		promos:   promos,
		orders:   orders,
		clock:    clk,
		logger:   logger,
		config:   config,
	}
}

// Session returns the session for clientID, creating it and resuming any
// persisted countdown on first use
func (s *Storefront) Session(clientID string) *ClientSession {
	now := s.clock.Now()

	s.mu.Lock()
	session, ok := s.sessions[clientID]
	if !ok {
		session = s.newSession(clientID)
		s.sessions[clientID] = session
	}
	s.mu.Unlock()

	session.touch(now)
	if !ok {
		session.Timer.Init()
		s.logger.Debug("client session created", zap.String("client_id", clientID))
	}
	return session
}

func (s *Storefront) newSession(clientID string) *ClientSession {
	logger := s.logger.With(zap.String("client_id", clientID))
	inbox := NewNotificationInbox(clientID, s.clock.Now, s.logger)
	cart := NewCartStore(s.store, clientID, s.logger)
	timer := NewReservationTimer(s.ctx, cart, s.store, clientID, s.clock, inbox, s.logger, s.config.Reservation)

	return &ClientSession{
		ClientID: clientID,
		Cart:     cart,
		Timer:    timer,
		CartPage: NewCartPage(cart, timer, s.promos, inbox, logger),
		Checkout: NewCheckoutPage(cart, timer, s.orders, inbox, logger, s.config.ConfirmationPath),
		Inbox:    inbox,
	}
}

// Len returns the number of live sessions
func (s *Storefront) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// EvictIdle drops sessions idle since before now - IdleTimeout whose countdown is not running.
// Their persisted state stays in the store and is picked up again on the next request.
func (s *Storefront) EvictIdle() int {
	cutoff := s.clock.Now().Add(-s.config.IdleTimeout)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for clientID, session := range s.sessions {
		if session.LastSeen().After(cutoff) || session.Timer.State() == ReservationCounting {
			continue
		}
		session.Timer.Stop()
		delete(s.sessions, clientID)
		evicted++
	}
	if evicted > 0 {
		s.logger.Info("evicted idle client sessions", zap.Int("count", evicted))
	}
	return evicted
}

// RunJanitor evicts idle sessions every interval until ctx is done
func (s *Storefront) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.EvictIdle()
		}
	}
}

// Close stops every countdown
func (s *Storefront) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, session := range s.sessions {
		session.Timer.Stop()
	}
	s.logger.Info("storefront sessions stopped", zap.Int("count", len(s.sessions)))
}
