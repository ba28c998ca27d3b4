package services

import (
	"github.com/shopspring/decimal"

	"ticket-storefront/internal/models"
	"ticket-storefront/internal/utils"
)

// CartItemView is a line item ready for display
type CartItemView struct {
	Index int `json:"index"`
	models.CartLineItem
	FormattedDate          string `json:"formatted_date,omitempty"`
	FormattedUnitPrice     string `json:"formatted_unit_price"`
	FormattedLineTotal     string `json:"formatted_line_total"`
	FormattedOriginalTotal string `json:"formatted_original_total,omitempty"`
	DiscountPercent        int64  `json:"discount_percent,omitempty"`
	CanIncrease            bool   `json:"can_increase"`
}

// SummaryView pairs the computed summary with display strings
type SummaryView struct {
	models.PriceSummary
	FormattedSubtotal string `json:"formatted_subtotal"`
	FormattedTax      string `json:"formatted_tax"`
	FormattedDiscount string `json:"formatted_discount,omitempty"`
	FormattedTotal    string `json:"formatted_total"`
	FormattedSavings  string `json:"formatted_savings,omitempty"`
}

// PromoView describes the promo input state
type PromoView struct {
	Applied bool   `json:"applied"`
	Code    string `json:"code,omitempty"`
	Percent int64  `json:"percent,omitempty"`
	Message string `json:"message,omitempty"`
}

// TimerView is the countdown as the page shows it
type TimerView struct {
	State     string `json:"state"`
	Remaining string `json:"remaining"`
	Seconds   int64  `json:"seconds"`
	Urgent    bool   `json:"urgent"`
	ExpiresAt int64  `json:"expires_at,omitempty"`
}

// CartView is the full cart page state returned after every operation
type CartView struct {
	Empty   bool           `json:"empty"`
	Items   []CartItemView `json:"items"`
	Summary *SummaryView   `json:"summary,omitempty"`
	Promo   *PromoView     `json:"promo,omitempty"`
	Timer   *TimerView     `json:"timer,omitempty"`
}

func newCartItemView(index int, item models.CartLineItem) CartItemView {
	view := CartItemView{
		Index:              index,
		CartLineItem:       item,
		FormattedDate:      utils.FormatDate(item.EventDate),
		FormattedUnitPrice: utils.FormatCurrency(item.UnitPrice),
		FormattedLineTotal: utils.FormatCurrency(item.LineTotal()),
		CanIncrease:        item.Quantity < item.Limit(),
	}
	if item.HasDiscount() {
		original := item.OriginalUnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		view.FormattedOriginalTotal = utils.FormatCurrency(original)
		view.DiscountPercent = item.OriginalUnitPrice.Sub(item.UnitPrice).
			Div(*item.OriginalUnitPrice).
			Mul(decimal.NewFromInt(100)).
			Round(0).
			IntPart()
	}
	return view
}

func newSummaryView(summary models.PriceSummary) *SummaryView {
	view := &SummaryView{
		PriceSummary:      summary,
		FormattedSubtotal: utils.FormatCurrency(summary.Subtotal),
		FormattedTax:      utils.FormatCurrency(summary.Tax),
		FormattedTotal:    utils.FormatCurrency(summary.Total),
	}
	if summary.Discount.IsPositive() {
		view.FormattedDiscount = utils.FormatDiscount(summary.Discount)
	}
	if summary.Savings.IsPositive() {
		view.FormattedSavings = utils.FormatCurrency(summary.Savings)
	}
	return view
}

func newPromoView(promo *models.AppliedPromo) *PromoView {
	if promo == nil {
		return &PromoView{}
	}
	return &PromoView{
		Applied: true,
		Code:    promo.Code,
		Percent: promo.PercentLabel(),
	}
}

func newTimerView(timer *ReservationTimer) *TimerView {
	remaining := timer.Remaining()
	view := &TimerView{
		State:     timer.State().String(),
		Remaining: utils.FormatCountdown(remaining),
		Seconds:   int64(remaining.Seconds()),
		Urgent:    timer.Urgent(),
	}
	if expiresAt, ok := timer.ExpiresAt(); ok {
		view.ExpiresAt = expiresAt.UnixMilli()
	}
	return view
}
