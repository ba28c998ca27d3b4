package services

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ticket-storefront/internal/models"
)

func storedWindow(t *testing.T, s *testSession) (int64, bool) {
	t.Helper()
	raw, ok, err := s.store.Get(context.Background(), "client-1", CartEndTimeKey)
	require.NoError(t, err)
	if !ok {
		return 0, false
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	require.NoError(t, err)
	return ms, true
}

func TestReservationTimer_InitEmptyCart(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.store.Put(context.Background(), "client-1", CartEndTimeKey, "123"))

	s.timer.Init()

	assert.Equal(t, ReservationInactive, s.timer.State())
	assert.Equal(t, time.Duration(0), s.timer.Remaining())
	_, ok := storedWindow(t, s)
	assert.False(t, ok, "stale window is discarded")
}

func TestReservationTimer_InitOpensWindow(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.cart.Save([]models.CartLineItem{lineItem(1, 10, "100", 1)}))

	s.timer.Init()

	assert.Equal(t, ReservationCounting, s.timer.State())
	assert.Equal(t, 15*time.Minute, s.timer.Remaining())
	assert.Equal(t, "15:00", s.timer.Display())

	ms, ok := storedWindow(t, s)
	require.True(t, ok)
	assert.Equal(t, testEpoch.Add(15*time.Minute).UnixMilli(), ms)
}

func TestReservationTimer_InitResumesPersistedWindow(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.cart.Save([]models.CartLineItem{lineItem(1, 10, "100", 1)}))
	end := testEpoch.Add(4*time.Minute + 30*time.Second)
	require.NoError(t, s.store.Put(context.Background(), "client-1", CartEndTimeKey, strconv.FormatInt(end.UnixMilli(), 10)))

	s.timer.Init()

	assert.Equal(t, ReservationCounting, s.timer.State())
	assert.Equal(t, "04:30", s.timer.Display())
	expiresAt, ok := s.timer.ExpiresAt()
	require.True(t, ok)
	assert.True(t, expiresAt.Equal(end))
}

func TestReservationTimer_InitReplacesPastWindow(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.cart.Save([]models.CartLineItem{lineItem(1, 10, "100", 1)}))
	past := testEpoch.Add(-time.Minute)
	require.NoError(t, s.store.Put(context.Background(), "client-1", CartEndTimeKey, strconv.FormatInt(past.UnixMilli(), 10)))

	s.timer.Init()

	assert.Equal(t, ReservationCounting, s.timer.State())
	assert.Equal(t, 15*time.Minute, s.timer.Remaining())
}

func TestReservationTimer_InitIgnoresMalformedWindow(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.cart.Save([]models.CartLineItem{lineItem(1, 10, "100", 1)}))
	require.NoError(t, s.store.Put(context.Background(), "client-1", CartEndTimeKey, "soon"))

	s.timer.Init()

	assert.Equal(t, 15*time.Minute, s.timer.Remaining())
}

func TestReservationTimer_ExpiresExactlyOnce(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.cart.Save([]models.CartLineItem{lineItem(1, 10, "100", 2)}))
	require.NoError(t, s.cart.SavePromo(models.AppliedPromo{Code: "VIP20", Rate: dec("0.20")}))
	s.timer.Init()

	s.clock.Advance(14*time.Minute + 59*time.Second)
	assert.True(t, s.timer.Tick())
	assert.Equal(t, "00:01", s.timer.Display())
	assert.True(t, s.timer.Urgent())

	s.clock.Advance(time.Second)
	assert.False(t, s.timer.Tick())

	assert.Equal(t, ReservationExpired, s.timer.State())
	assert.Equal(t, "00:00", s.timer.Display())
	assert.False(t, s.timer.Urgent())
	assert.Empty(t, s.cart.GetItems())
	assert.Nil(t, s.cart.GetPromo())
	_, ok := storedWindow(t, s)
	assert.False(t, ok)

	// later ticks are no-ops
	s.clock.Advance(time.Minute)
	assert.False(t, s.timer.Tick())
	assert.False(t, s.timer.Tick())

	notifications := s.inbox.Drain()
	require.Len(t, notifications, 1)
	assert.Equal(t, NotificationWarning, notifications[0].Level)
	assert.Equal(t, ReservationExpiredMessage, notifications[0].Message)
}

func TestReservationTimer_Urgent(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.cart.Save([]models.CartLineItem{lineItem(1, 10, "100", 1)}))
	s.timer.Init()

	assert.False(t, s.timer.Urgent())
	s.clock.Advance(14 * time.Minute)
	assert.False(t, s.timer.Urgent())
	s.clock.Advance(time.Second)
	assert.True(t, s.timer.Urgent())
}

func TestReservationTimer_CartChanged(t *testing.T) {
	s := newTestSession(t)
	s.timer.Init()
	assert.Equal(t, ReservationInactive, s.timer.State())

	// empty -> non-empty opens a window
	require.NoError(t, s.cart.Save([]models.CartLineItem{lineItem(1, 10, "100", 1)}))
	s.timer.CartChanged()
	assert.Equal(t, ReservationCounting, s.timer.State())
	first, ok := s.timer.ExpiresAt()
	require.True(t, ok)

	// further edits never extend it
	s.clock.Advance(5 * time.Minute)
	require.NoError(t, s.cart.Save([]models.CartLineItem{lineItem(1, 10, "100", 3)}))
	s.timer.CartChanged()
	second, _ := s.timer.ExpiresAt()
	assert.True(t, first.Equal(second))
	assert.Equal(t, 10*time.Minute, s.timer.Remaining())

	// emptied -> inactive, window cleared
	require.NoError(t, s.cart.Clear())
	s.timer.CartChanged()
	assert.Equal(t, ReservationInactive, s.timer.State())
	_, ok = storedWindow(t, s)
	assert.False(t, ok)
	assert.False(t, s.timer.Tick())
}

func TestReservationTimer_NewWindowAfterExpiry(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.cart.Save([]models.CartLineItem{lineItem(1, 10, "100", 1)}))
	s.timer.Init()
	s.clock.Advance(15 * time.Minute)
	s.timer.Tick()
	require.Equal(t, ReservationExpired, s.timer.State())

	require.NoError(t, s.cart.Save([]models.CartLineItem{lineItem(1, 10, "100", 1)}))
	s.timer.CartChanged()

	assert.Equal(t, ReservationCounting, s.timer.State())
	assert.Equal(t, 15*time.Minute, s.timer.Remaining())
}

func TestReservationTimer_Release(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.cart.Save([]models.CartLineItem{lineItem(1, 10, "100", 1)}))
	s.timer.Init()

	s.timer.Release()

	assert.Equal(t, ReservationInactive, s.timer.State())
	_, ok := storedWindow(t, s)
	assert.False(t, ok)
	assert.Len(t, s.cart.GetItems(), 1, "release leaves the cart to its caller")
}

func TestReservationTimer_PollingExpires(t *testing.T) {
	s := newTestSession(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	timer := NewReservationTimer(ctx, s.cart, s.store, "client-1", s.clock, s.inbox, zap.NewNop(), ReservationConfig{
		TTL:          2 * time.Second,
		PollInterval: time.Second,
	})
	require.NoError(t, s.cart.Save([]models.CartLineItem{lineItem(1, 10, "100", 1)}))

	timer.Init()
	require.True(t, timer.Polling())
	assert.Equal(t, 1, s.clock.ActiveTickers())

	s.clock.Advance(2 * time.Second)

	assert.Eventually(t, func() bool {
		return timer.State() == ReservationExpired
	}, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		return s.clock.ActiveTickers() == 0
	}, time.Second, 5*time.Millisecond)
	assert.False(t, timer.Polling())
	assert.Empty(t, s.cart.GetItems())
	assert.Len(t, s.inbox.Drain(), 1)
}

func TestReservationTimer_PollingStopsWhenCartEmpties(t *testing.T) {
	s := newTestSession(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	timer := NewReservationTimer(ctx, s.cart, s.store, "client-1", s.clock, s.inbox, zap.NewNop(), ReservationConfig{})
	require.NoError(t, s.cart.Save([]models.CartLineItem{lineItem(1, 10, "100", 1)}))
	timer.Init()
	require.True(t, timer.Polling())

	require.NoError(t, s.cart.Clear())
	timer.CartChanged()

	assert.False(t, timer.Polling())
	assert.Eventually(t, func() bool {
		return s.clock.ActiveTickers() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestReservationState_String(t *testing.T) {
	assert.Equal(t, "inactive", ReservationInactive.String())
	assert.Equal(t, "counting", ReservationCounting.String())
	assert.Equal(t, "expired", ReservationExpired.String())
}
