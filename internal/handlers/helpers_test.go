package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ticket-storefront/internal/clock"
	"ticket-storefront/internal/middleware"
	"ticket-storefront/internal/models"
	"ticket-storefront/internal/repositories"
	"ticket-storefront/internal/services"
)

const testClientID = "3f1c9d2e-8a4b-4c6d-9e0f-1a2b3c4d5e6f"

// MockOrderSubmitter is a mock implementation of services.OrderSubmitter
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

type testAPI struct {
	router     http.Handler
	storefront *services.Storefront
	orders     *MockOrderSubmitter
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	logger := zap.NewNop()
	orders := &MockOrderSubmitter{}
	// nil context: countdowns are not polled in handler tests
	storefront := services.NewStorefront(nil, repositories.NewMemoryStateStore(),
		services.NewPromoResolver(nil, nil, logger), orders,
		clock.Fake(time.Date(2025, 3, 15, 18, 0, 0, 0, time.UTC)), logger, services.StorefrontConfig{})

	cart := NewCartHandler(storefront, logger)
	checkout := NewCheckoutHandler(storefront, logger)
	notifications := NewNotificationHandler(storefront)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.WithClientID(r.Context(), testClientID)))
		})
	})
	r.Get("/api/cart", cart.GetCart)
	r.Delete("/api/cart", cart.ClearCart)
	r.Get("/api/cart/timer", cart.GetTimer)
	r.Post("/api/cart/items", cart.AddItem)
	r.Post("/api/cart/items/{index}/quantity", cart.UpdateQuantity)
	r.Delete("/api/cart/items/{index}", cart.RemoveItem)
	r.Post("/api/cart/promo", cart.ApplyPromo)
	r.Get("/api/checkout", checkout.GetCheckout)
	r.Put("/api/checkout/buyer", checkout.SetBuyer)
	r.Post("/api/checkout/beneficiaries/toggle", checkout.ToggleBeneficiaries)
	r.Put("/api/checkout/beneficiaries/{item}/{ticket}", checkout.SetBeneficiary)
	r.Post("/api/checkout/payment-method", checkout.SelectPaymentMethod)
	r.Post("/api/checkout/terms", checkout.AcceptTerms)
	r.Post("/api/checkout/newsletter", checkout.SetNewsletter)
	r.Post("/api/checkout/account", checkout.SetCreateAccount)
	r.Post("/api/checkout/submit", checkout.Submit)
	r.Get("/api/notifications", notifications.Drain)

	return &testAPI{router: r, storefront: storefront, orders: orders}
}

// apiResult is Response with the payload left raw for the test to decode
type apiResult struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Errors  map[string][]string `json:"errors"`
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}) (int, apiResult) {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		payload, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)

	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	var result apiResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	return rr.Code, result
}

func decodeData(t *testing.T, result apiResult, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(result.Data, dst))
}

func ticket(ticketTypeID int, price string, quantity int) map[string]interface{} {
	return map[string]interface{}{
		"event_id":         1,
		"event_title":      "Rock Night",
		"event_date":       "2025-03-15",
		"venue_name":       "Arenele Romane",
		"ticket_type_id":   ticketTypeID,
		"ticket_type_name": "General Admission",
		"price":            price,
		"quantity":         quantity,
	}
}
