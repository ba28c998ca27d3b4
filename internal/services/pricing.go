package services

import (
	"github.com/shopspring/decimal"

	"ticket-storefront/internal/models"
)

// TaxRate is the flat service tax applied to the subtotal
var TaxRate = decimal.RequireFromString("0.01")

var pointsPerUnit = decimal.NewFromInt(10)

// ComputeSummary derives the price summary for items. discount is an absolute
// amount; it is capped so the total never drops below zero.
func ComputeSummary(items []models.CartLineItem, discount decimal.Decimal) models.PriceSummary {
	subtotal := decimal.Zero
	savings := decimal.Zero
	count := 0

	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
		savings = savings.Add(item.Savings())
		count += item.Quantity
	}

	tax := subtotal.Mul(TaxRate).Round(2)
	gross := subtotal.Add(tax)

	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(gross) {
		discount = gross
	}
	total := gross.Sub(discount)

	return models.PriceSummary{
		Subtotal:     subtotal,
		Tax:          tax,
		Discount:     discount,
		Total:        total,
		Savings:      savings,
		PointsEarned: total.Div(pointsPerUnit).Floor().IntPart(),
		ItemCount:    count,
	}
}

// SummaryWithPromo prices items with promo's discount applied to the subtotal
func SummaryWithPromo(items []models.CartLineItem, promo *models.AppliedPromo) models.PriceSummary {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	return ComputeSummary(items, promo.DiscountFor(subtotal))
}
