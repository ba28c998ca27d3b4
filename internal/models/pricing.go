package models

import "github.com/shopspring/decimal"

// PriceSummary is derived from the cart on every change and never persisted
type PriceSummary struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	Tax          decimal.Decimal `json:"tax"`
	Discount     decimal.Decimal `json:"discount"`
	Total        decimal.Decimal `json:"total"`
	Savings      decimal.Decimal `json:"savings"`
	PointsEarned int64           `json:"points_earned"`
	ItemCount    int             `json:"item_count"`
}
