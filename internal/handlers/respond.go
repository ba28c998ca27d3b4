package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"ticket-storefront/internal/middleware"
	"ticket-storefront/internal/models"
	"ticket-storefront/internal/services"
)

// maxBodyBytes bounds every JSON request body
const maxBodyBytes = 64 << 10

// Response is the JSON envelope of every endpoint
type Response struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Data    interface{}         `json:"data,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// SessionProvider hands out the components serving one client
type SessionProvider interface {
	Session(clientID string) *services.ClientSession
}

func sessionFor(provider SessionProvider, r *http.Request) *services.ClientSession {
	return provider.Session(middleware.ClientIDFromContext(r.Context()))
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondOK(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, Response{Success: true, Data: data})
}

// respondError maps a domain error to its status. data, when not nil, carries
// the view as it stands after the failed operation.
func respondError(w http.ResponseWriter, logger *zap.Logger, err error, data interface{}) {
	status, message := statusFor(err)

	resp := Response{Success: false, Message: message, Data: data}
	var validation models.ValidationErrors
	if errors.As(err, &validation) {
		resp.Errors = validation
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, resp)
}

func statusFor(err error) (int, string) {
	var apiErr *services.OrderAPIError
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusUnprocessableEntity, "Please correct the highlighted fields"
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, models.ErrPromoEmpty):
		return http.StatusUnprocessableEntity, "Please enter a promo code"
	case errors.Is(err, models.ErrPromoRejected):
		return http.StatusUnprocessableEntity, "Invalid or expired promo code"
	case errors.Is(err, models.ErrPromoLocked):
		return http.StatusConflict, "A promo code is already applied"
	case errors.Is(err, models.ErrQuantityExceeded):
		return http.StatusConflict, detail(err, models.ErrQuantityExceeded, "Quantity exceeds the allowed maximum")
	case errors.Is(err, models.ErrItemNotFound):
		return http.StatusNotFound, "Cart item not found"
	case errors.Is(err, models.ErrCartEmpty):
		return http.StatusConflict, "Your cart is empty"
	case errors.Is(err, models.ErrSubmitInProgress):
		return http.StatusConflict, "Your order is already being processed"
	case errors.Is(err, models.ErrTermsNotAccepted):
		return http.StatusUnprocessableEntity, "Please accept the terms and conditions"
	case errors.Is(err, models.ErrInvalidPaymentMethod):
		return http.StatusUnprocessableEntity, "Please choose a valid payment method"
	case errors.Is(err, models.ErrBeneficiaryLocked):
		return http.StatusConflict, "Beneficiaries use the buyer's details"
	case errors.Is(err, models.ErrOrderRejected):
		return http.StatusBadGateway, detail(err, models.ErrOrderRejected, "The order could not be created")
	case errors.As(err, &apiErr):
		return http.StatusBadGateway, "We could not process your order. Please try again."
	default:
		return http.StatusInternalServerError, "Something went wrong. Please try again."
	}
}

// detail returns the text wrapped after sentinel, or fallback when there is none
func detail(err, sentinel error, fallback string) string {
	if _, message, ok := strings.Cut(err.Error(), sentinel.Error()+": "); ok && message != "" {
		return message
	}
	return fallback
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", models.ErrInvalidInput, err)
	}
	return nil
}
