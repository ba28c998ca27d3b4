package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"ticket-storefront/internal/models"
)

// CheckoutHandler serves the checkout page endpoints
type CheckoutHandler struct {
	sessions SessionProvider
	logger   *zap.Logger
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(sessions SessionProvider, logger *zap.Logger) *CheckoutHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoutHandler{
		sessions: sessions,
		logger:   logger,
	}
}

type toggleRequest struct {
	Same bool `json:"same"`
}

type beneficiaryRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type paymentMethodRequest struct {
	Method models.PaymentMethod `json:"method"`
}

type flagRequest struct {
	Value bool `json:"value"`
}

// GetCheckout handles GET /api/checkout
func (h *CheckoutHandler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	view, err := sessionFor(h.sessions, r).Checkout.Init(nil)
	if err != nil {
		respondError(w, h.logger, err, nil)
		return
	}
	respondOK(w, view)
}

// SetBuyer handles PUT /api/checkout/buyer
func (h *CheckoutHandler) SetBuyer(w http.ResponseWriter, r *http.Request) {
	var buyer models.Buyer
	if err := decodeJSON(w, r, &buyer); err != nil {
		respondError(w, h.logger, err, nil)
		return
	}
	respondOK(w, sessionFor(h.sessions, r).Checkout.SetBuyer(buyer))
}

// ToggleBeneficiaries handles POST /api/checkout/beneficiaries/toggle
func (h *CheckoutHandler) ToggleBeneficiaries(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, h.logger, err, nil)
		return
	}
	respondOK(w, sessionFor(h.sessions, r).Checkout.ToggleBeneficiaries(req.Same))
}

// SetBeneficiary handles PUT /api/checkout/beneficiaries/{item}/{ticket}
func (h *CheckoutHandler) SetBeneficiary(w http.ResponseWriter, r *http.Request) {
	itemIndex, err := indexParam(r, "item")
	if err != nil {
		respondError(w, h.logger, err, nil)
		return
	}
	ticketIndex, err := indexParam(r, "ticket")
	if err != nil {
		respondError(w, h.logger, err, nil)
		return
	}

	var req beneficiaryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, h.logger, err, nil)
		return
	}

	view, err := sessionFor(h.sessions, r).Checkout.SetBeneficiary(itemIndex, ticketIndex, req.Name, req.Email)
	if err != nil {
		respondError(w, h.logger, err, view)
		return
	}
	respondOK(w, view)
}

// SelectPaymentMethod handles POST /api/checkout/payment-method
func (h *CheckoutHandler) SelectPaymentMethod(w http.ResponseWriter, r *http.Request) {
	var req paymentMethodRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, h.logger, err, nil)
		return
	}

	view, err := sessionFor(h.sessions, r).Checkout.SelectPaymentMethod(req.Method)
	if err != nil {
		respondError(w, h.logger, err, view)
		return
	}
	respondOK(w, view)
}

// AcceptTerms handles POST /api/checkout/terms
func (h *CheckoutHandler) AcceptTerms(w http.ResponseWriter, r *http.Request) {
	var req flagRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, h.logger, err, nil)
		return
	}
	respondOK(w, sessionFor(h.sessions, r).Checkout.AcceptTerms(req.Value))
}

// SetNewsletter handles POST /api/checkout/newsletter
func (h *CheckoutHandler) SetNewsletter(w http.ResponseWriter, r *http.Request) {
	var req flagRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, h.logger, err, nil)
		return
	}
	respondOK(w, sessionFor(h.sessions, r).Checkout.SetNewsletter(req.Value))
}

// SetCreateAccount handles POST /api/checkout/account
func (h *CheckoutHandler) SetCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req flagRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, h.logger, err, nil)
		return
	}
	respondOK(w, sessionFor(h.sessions, r).Checkout.SetCreateAccount(req.Value))
}

// Submit handles POST /api/checkout/submit
func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	checkout := sessionFor(h.sessions, r).Checkout

	result, err := checkout.Submit(r.Context())
	if err != nil {
		status, _ := statusFor(err)
		if status == http.StatusInternalServerError {
			// transport failure talking to the order backend
			h.logger.Error("order submission failed", zap.Error(err))
			writeJSON(w, http.StatusBadGateway, Response{
				Success: false,
				Message: "We could not process your order. Please try again.",
				Data:    checkout.View(),
			})
			return
		}
		respondError(w, h.logger, err, checkout.View())
		return
	}
	respondOK(w, result)
}
