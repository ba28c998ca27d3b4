package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ticket-storefront/internal/models"
)

// CartHandler serves the cart page endpoints
type CartHandler struct {
	sessions SessionProvider
	logger   *zap.Logger
}

// NewCartHandler creates a new cart handler
func NewCartHandler(sessions SessionProvider, logger *zap.Logger) *CartHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartHandler{
		sessions: sessions,
		logger:   logger,
	}
}

type quantityRequest struct {
	Delta int `json:"delta"`
}

type promoRequest struct {
	Code string `json:"code"`
}

// GetCart handles GET /api/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	respondOK(w, sessionFor(h.sessions, r).CartPage.Render())
}

// AddItem handles POST /api/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var item models.CartLineItem
	if err := decodeJSON(w, r, &item); err != nil {
		respondError(w, h.logger, err, nil)
		return
	}

	view, err := sessionFor(h.sessions, r).CartPage.AddItem(item)
	if err != nil {
		respondError(w, h.logger, err, view)
		return
	}
	respondOK(w, view)
}

// UpdateQuantity handles POST /api/cart/items/{index}/quantity
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	index, err := indexParam(r, "index")
	if err != nil {
		respondError(w, h.logger, err, nil)
		return
	}

	var req quantityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, h.logger, err, nil)
		return
	}
	if req.Delta == 0 {
		respondError(w, h.logger, fmt.Errorf("%w: delta must not be zero", models.ErrInvalidInput), nil)
		return
	}

	view, err := sessionFor(h.sessions, r).CartPage.UpdateQuantity(index, req.Delta)
	if err != nil {
		respondError(w, h.logger, err, view)
		return
	}
	respondOK(w, view)
}

// RemoveItem handles DELETE /api/cart/items/{index}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	index, err := indexParam(r, "index")
	if err != nil {
		respondError(w, h.logger, err, nil)
		return
	}

	view, err := sessionFor(h.sessions, r).CartPage.RemoveItem(index)
	if err != nil {
		respondError(w, h.logger, err, view)
		return
	}
	respondOK(w, view)
}

// ApplyPromo handles POST /api/cart/promo
func (h *CartHandler) ApplyPromo(w http.ResponseWriter, r *http.Request) {
	var req promoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, h.logger, err, nil)
		return
	}

	view, err := sessionFor(h.sessions, r).CartPage.ApplyPromo(r.Context(), req.Code)
	if err != nil {
		respondError(w, h.logger, err, view)
		return
	}
	respondOK(w, view)
}

// ClearCart handles DELETE /api/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	view, err := sessionFor(h.sessions, r).CartPage.Clear()
	if err != nil {
		respondError(w, h.logger, err, view)
		return
	}
	respondOK(w, view)
}

// GetTimer handles GET /api/cart/timer. Pages poll it to redraw the countdown.
func (h *CartHandler) GetTimer(w http.ResponseWriter, r *http.Request) {
	respondOK(w, sessionFor(h.sessions, r).CartPage.Render().Timer)
}

func indexParam(r *http.Request, name string) (int, error) {
	index, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s", models.ErrInvalidInput, name)
	}
	return index, nil
}
