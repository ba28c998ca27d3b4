package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"ticket-storefront/internal/clock"
	"ticket-storefront/internal/models"
	"ticket-storefront/internal/repositories"
)

var testEpoch = time.Date(2025, 3, 15, 18, 0, 0, 0, time.UTC)

func lineItem(eventID, ticketTypeID int, price string, quantity int) models.CartLineItem {
	return models.CartLineItem{
		EventID:        eventID,
		EventTitle:     "Rock Night",
		EventDate:      "2025-03-15",
		VenueName:      "Arenele Romane",
		TicketTypeID:   ticketTypeID,
		TicketTypeName: "General Admission",
		UnitPrice:      decimal.RequireFromString(price),
		Quantity:       quantity,
	}
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

// testSession wires one client's components over an in-memory store and a fake clock
type testSession struct {
	store    *repositories.MemoryStateStore
	clock    *clock.FakeClock
	inbox    *NotificationInbox
	cart     *CartStore
	timer    *ReservationTimer
	cartPage *CartPage
	orders   *MockOrderSubmitter
	checkout *CheckoutPage
}

func newTestSession(t *testing.T) *testSession {
	t.Helper()

	store := repositories.NewMemoryStateStore()
	clk := clock.Fake(testEpoch)
	logger := zap.NewNop()
	inbox := NewNotificationInbox("client-1", clk.Now, logger)
	cart := NewCartStore(store, "client-1", logger)
	// nil parent: ticks are driven by the test
	timer := NewReservationTimer(nil, cart, store, "client-1", clk, inbox, logger, ReservationConfig{})
	orders := &MockOrderSubmitter{}

	return &testSession{
		store:    store,
		clock:    clk,
		inbox:    inbox,
		cart:     cart,
		timer:    timer,
		cartPage: NewCartPage(cart, timer, NewPromoResolver(nil, nil, logger), inbox, logger),
		orders:   orders,
		checkout: NewCheckoutPage(cart, timer, orders, inbox, logger, ""),
	}
}

// MockOrderSubmitter is a mock implementation of OrderSubmitter
type MockOrderSubmitter struct {
	mock.Mock
}

func (m *MockOrderSubmitter) SubmitOrder(ctx context.Context, submission *models.OrderSubmission) (*models.OrderResponse, error) {
	args := m.Called(ctx, submission)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OrderResponse), args.Error(1)
}

// MockPromoChecker is a mock implementation of PromoChecker
type MockPromoChecker struct {
	mock.Mock
}

func (m *MockPromoChecker) CheckPromo(ctx context.Context, code string) (decimal.Decimal, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}
