package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ticket-storefront/internal/models"
	"ticket-storefront/internal/repositories"
)

// Storage keys owned by the storefront for each client
const (
	CartKey        = "cart"
	CartEndTimeKey = "cart_end_time"
	CartPromoKey   = "cart_promo"
)

const storeTimeout = 5 * time.Second

// CartStore persists one client's cart as a JSON array under CartKey
type CartStore struct {
	store    repositories.StateStore
	clientID string
	logger   *zap.Logger
}

// NewCartStore creates a cart store scoped to clientID
func NewCartStore(store repositories.StateStore, clientID string, logger *zap.Logger) *CartStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartStore{
		store:    store,
		clientID: clientID,
		logger:   logger.With(zap.String("client_id", clientID)),
	}
}

// GetItems returns the stored cart. Missing or unreadable data yields an empty cart.
func (s *CartStore) GetItems() []models.CartLineItem {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	raw, ok, err := s.store.Get(ctx, s.clientID, CartKey)
	if err != nil {
		s.logger.Error("failed to read cart", zap.Error(err))
		return []models.CartLineItem{}
	}
	if !ok || raw == "" {
		return []models.CartLineItem{}
	}

	var items []models.CartLineItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		s.logger.Warn("discarding malformed cart", zap.Error(err))
		return []models.CartLineItem{}
	}
	if items == nil {
		return []models.CartLineItem{}
	}
	return items
}

// Save replaces the whole cart
func (s *CartStore) Save(items []models.CartLineItem) error {
	if items == nil {
		items = []models.CartLineItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if err := s.store.Put(ctx, s.clientID, CartKey, string(data)); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

// Clear removes the cart together with its applied promo
func (s *CartStore) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if err := s.store.Delete(ctx, s.clientID, CartKey, CartPromoKey); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// GetPromo returns the promo locked in for this cart, if any
func (s *CartStore) GetPromo() *models.AppliedPromo {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	raw, ok, err := s.store.Get(ctx, s.clientID, CartPromoKey)
	if err != nil {
		s.logger.Error("failed to read promo", zap.Error(err))
		return nil
	}
	if !ok || raw == "" {
		return nil
	}

	var promo models.AppliedPromo
	if err := json.Unmarshal([]byte(raw), &promo); err != nil || promo.Code == "" {
		s.logger.Warn("discarding malformed promo", zap.String("raw", raw))
		return nil
	}
	return &promo
}

// SavePromo locks promo in for the current cart
func (s *CartStore) SavePromo(promo models.AppliedPromo) error {
	data, err := json.Marshal(promo)
	if err != nil {
		return fmt.Errorf("failed to encode promo: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if err := s.store.Put(ctx, s.clientID, CartPromoKey, string(data)); err != nil {
		return fmt.Errorf("failed to save promo: %w", err)
	}
	return nil
}
