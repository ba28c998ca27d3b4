package services

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"ticket-storefront/internal/models"
)

// CartPage implements the cart page operations for one client
type CartPage struct {
	mu       sync.Mutex
	cart     *CartStore
	timer    *ReservationTimer
	promos   *PromoResolver
	notifier Notifier
	logger   *zap.Logger
}

// NewCartPage wires the cart page to its collaborators
func NewCartPage(cart *CartStore, timer *ReservationTimer, promos *PromoResolver, notifier Notifier, logger *zap.Logger) *CartPage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartPage{
		cart:     cart,
		timer:    timer,
		promos:   promos,
		notifier: notifier,
		logger:   logger,
	}
}

// Render returns the current page state straight from storage
func (p *CartPage) Render() CartView {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.render()
}

// AddItem adds a selection, merging it into an existing line for the same ticket type
func (p *CartPage) AddItem(item models.CartLineItem) (CartView, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := item.Validate(); err != nil {
		if models.IsQuantityError(err) {
			p.notifier.Warning(quantityWarning(item.Limit()))
			return p.render(), fmt.Errorf("%w: %s", models.ErrQuantityExceeded, quantityWarning(item.Limit()))
		}
		return p.render(), err
	}

	items := p.cart.GetItems()
	merged := false
	for idx := range items {
		if !items[idx].SameSelection(item) {
			continue
		}
		quantity := items[idx].Quantity + item.Quantity
		if quantity > items[idx].Limit() {
			p.notifier.Warning(quantityWarning(items[idx].Limit()))
			return p.render(), fmt.Errorf("%w: %s", models.ErrQuantityExceeded, quantityWarning(items[idx].Limit()))
		}
		items[idx].Quantity = quantity
		merged = true
		break
	}
	if !merged {
		items = append(items, item)
	}

	if err := p.cart.Save(items); err != nil {
		return p.render(), err
	}
	p.timer.CartChanged()

	p.logger.Info("cart item added",
		zap.Int("event_id", item.EventID),
		zap.Int("ticket_type_id", item.TicketTypeID),
		zap.Int("quantity", item.Quantity),
		zap.Bool("merged", merged),
	)
	return p.render(), nil
}

// UpdateQuantity changes line index by delta. Dropping below one removes the line.
func (p *CartPage) UpdateQuantity(index, delta int) (CartView, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	items := p.cart.GetItems()
	if index < 0 || index >= len(items) {
		return p.render(), fmt.Errorf("%w: index %d", models.ErrItemNotFound, index)
	}

	// compare against the headroom so huge deltas cannot wrap around
	current, limit := items[index].Quantity, items[index].Limit()
	switch {
	case delta > limit-current:
		p.notifier.Warning(quantityWarning(limit))
		return p.render(), fmt.Errorf("%w: %s", models.ErrQuantityExceeded, quantityWarning(limit))
	case delta <= -current:
		return p.removeLocked(items, index)
	}

	items[index].Quantity = current + delta
	if err := p.cart.Save(items); err != nil {
		return p.render(), err
	}
	p.timer.CartChanged()
	return p.render(), nil
}

// RemoveItem deletes line index
func (p *CartPage) RemoveItem(index int) (CartView, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	items := p.cart.GetItems()
	if index < 0 || index >= len(items) {
		return p.render(), fmt.Errorf("%w: index %d", models.ErrItemNotFound, index)
	}
	return p.removeLocked(items, index)
}

// ApplyPromo resolves code and locks it in for the current cart
func (p *CartPage) ApplyPromo(ctx context.Context, code string) (CartView, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cart.GetPromo() != nil {
		return p.render(), models.ErrPromoLocked
	}
	if len(p.cart.GetItems()) == 0 {
		return p.render(), models.ErrCartEmpty
	}

	rate, err := p.promos.Resolve(ctx, code)
	if err != nil {
		p.logger.Info("promo code rejected", zap.String("code", NormalizePromoCode(code)), zap.Error(err))
		view := p.render()
		if view.Promo != nil {
			view.Promo.Message = "Invalid or expired promo code"
		}
		return view, err
	}

	promo := models.AppliedPromo{Code: NormalizePromoCode(code), Rate: rate}
	if err := p.cart.SavePromo(promo); err != nil {
		return p.render(), err
	}

	p.logger.Info("promo code applied", zap.String("code", promo.Code), zap.String("rate", rate.String()))
	view := p.render()
	view.Promo.Message = fmt.Sprintf("Code applied! -%d%% discount", promo.PercentLabel())
	return view, nil
}

// Clear empties the cart and stops the countdown
func (p *CartPage) Clear() (CartView, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.cart.Clear(); err != nil {
		return p.render(), err
	}
	p.timer.CartChanged()
	return p.render(), nil
}

func (p *CartPage) removeLocked(items []models.CartLineItem, index int) (CartView, error) {
	removed := items[index]
	items = append(items[:index], items[index+1:]...)

	var err error
	if len(items) == 0 {
		err = p.cart.Clear()
	} else {
		err = p.cart.Save(items)
	}
	if err != nil {
		return p.render(), err
	}
	p.timer.CartChanged()

	p.logger.Info("cart item removed",
		zap.Int("event_id", removed.EventID),
		zap.Int("ticket_type_id", removed.TicketTypeID),
	)
	return p.render(), nil
}

func (p *CartPage) render() CartView {
	items := p.cart.GetItems()
	if len(items) == 0 {
		return CartView{Empty: true, Items: []CartItemView{}}
	}

	views := make([]CartItemView, len(items))
	for idx, item := range items {
		views[idx] = newCartItemView(idx, item)
	}

	promo := p.cart.GetPromo()
	return CartView{
		Items:   views,
		Summary: newSummaryView(SummaryWithPromo(items, promo)),
		Promo:   newPromoView(promo),
		Timer:   newTimerView(p.timer),
	}
}

func quantityWarning(limit int) string {
	return fmt.Sprintf("You can buy at most %d tickets of this type", limit)
}
