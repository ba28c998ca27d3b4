package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ticket-storefront/internal/clock"
	"ticket-storefront/internal/models"
	"ticket-storefront/internal/repositories"
)

func newTestStorefront(t *testing.T) (*Storefront, *clock.FakeClock, *repositories.MemoryStateStore) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	store := repositories.NewMemoryStateStore()
	clk := clock.Fake(testEpoch)
	storefront := NewStorefront(ctx, store, NewPromoResolver(nil, nil, nil), &MockOrderSubmitter{}, clk, zap.NewNop(), StorefrontConfig{
		IdleTimeout: time.Hour,
	})
	t.Cleanup(storefront.Close)
	return storefront, clk, store
}

func TestStorefront_SessionIsReused(t *testing.T) {
	storefront, _, _ := newTestStorefront(t)

	first := storefront.Session("client-1")
	second := storefront.Session("client-1")
	other := storefront.Session("client-2")

	assert.Same(t, first, second)
	assert.NotSame(t, first, other)
	assert.Equal(t, 2, storefront.Len())
	assert.Equal(t, "client-1", first.ClientID)
}

func TestStorefront_SessionResumesPersistedCart(t *testing.T) {
	storefront, _, store := newTestStorefront(t)
	cart := NewCartStore(store, "client-1", nil)
	require.NoError(t, cart.Save([]models.CartLineItem{lineItem(1, 10, "100.00", 1)}))

	session := storefront.Session("client-1")

	assert.Equal(t, ReservationCounting, session.Timer.State())
	assert.True(t, session.Timer.Polling())
	view := session.CartPage.Render()
	assert.Len(t, view.Items, 1)
}

func TestStorefront_SessionsShareNothing(t *testing.T) {
	storefront, _, _ := newTestStorefront(t)

	_, err := storefront.Session("client-1").CartPage.AddItem(lineItem(1, 10, "100.00", 1))
	require.NoError(t, err)

	assert.True(t, storefront.Session("client-2").CartPage.Render().Empty)
	assert.Equal(t, ReservationInactive, storefront.Session("client-2").Timer.State())
}

func TestStorefront_EvictIdle(t *testing.T) {
	storefront, clk, _ := newTestStorefront(t)

	idle := storefront.Session("idle")
	busy := storefront.Session("busy")
	_, err := busy.CartPage.AddItem(lineItem(1, 10, "100.00", 1))
	require.NoError(t, err)

	clk.Set(testEpoch.Add(45 * time.Minute))
	storefront.Session("recent")

	clk.Set(testEpoch.Add(90 * time.Minute))
	evicted := storefront.EvictIdle()

	// Set fires no ticks, so the busy countdown is still running
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 2, storefront.Len())
	assert.NotSame(t, idle, storefront.Session("idle"))
	assert.Same(t, busy, storefront.Session("busy"))
}
