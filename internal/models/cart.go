package models

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultMaxQuantity applies to stored lines that carry no explicit limit.
const DefaultMaxQuantity = 10

// CartLineItem represents one ticket-type selection in the cart
type CartLineItem struct {
	EventID               int              `json:"event_id"`
	EventTitle            string           `json:"event_title"`
	EventImage            string           `json:"event_image,omitempty"`
	EventDate             string           `json:"event_date,omitempty"`
	VenueName             string           `json:"venue_name,omitempty"`
	TicketTypeID          int              `json:"ticket_type_id"`
	TicketTypeName        string           `json:"ticket_type_name"`
	TicketTypeDescription string           `json:"ticket_type_description,omitempty"`
	UnitPrice             decimal.Decimal  `json:"price"`
	OriginalUnitPrice     *decimal.Decimal `json:"original_price,omitempty"`
	Quantity              int              `json:"quantity"`
	MaxQuantity           int              `json:"max_quantity,omitempty"`
	CategoryName          string           `json:"category_name,omitempty"`
}

// Limit returns the per-line quantity cap
func (i CartLineItem) Limit() int {
	if i.MaxQuantity < 1 {
		return DefaultMaxQuantity
	}
	return i.MaxQuantity
}

// LineTotal returns UnitPrice * Quantity
func (i CartLineItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// HasDiscount reports whether the line is promotional (original price above current price)
func (i CartLineItem) HasDiscount() bool {
	return i.OriginalUnitPrice != nil && i.OriginalUnitPrice.GreaterThan(i.UnitPrice)
}

// Savings returns (OriginalUnitPrice - UnitPrice) * Quantity for promotional lines, zero otherwise
func (i CartLineItem) Savings() decimal.Decimal {
	if !i.HasDiscount() {
		return decimal.Zero
	}
	return i.OriginalUnitPrice.Sub(i.UnitPrice).Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// SameSelection reports whether two lines refer to the same event ticket type
func (i CartLineItem) SameSelection(other CartLineItem) bool {
	return i.EventID == other.EventID && i.TicketTypeID == other.TicketTypeID
}

// Validate checks the line item before it enters the cart
func (i CartLineItem) Validate() error {
	if i.TicketTypeID == 0 {
		return fmt.Errorf("%w: ticket type is required", ErrInvalidInput)
	}
	if i.UnitPrice.IsNegative() {
		return fmt.Errorf("%w: price cannot be negative", ErrInvalidInput)
	}
	if i.MaxQuantity < 0 {
		return fmt.Errorf("%w: max quantity cannot be negative", ErrInvalidInput)
	}
	if i.Quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", ErrInvalidInput)
	}
	if i.Quantity > i.Limit() {
		return fmt.Errorf("%w: maximum %d tickets of this type", ErrQuantityExceeded, i.Limit())
	}
	return nil
}

// TicketCount returns the number of physical tickets across all lines
func TicketCount(items []CartLineItem) int {
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	return count
}

// CloneItems returns a copy of items that shares no mutable state with the input
func CloneItems(items []CartLineItem) []CartLineItem {
	if items == nil {
		return []CartLineItem{}
	}
	cloned := make([]CartLineItem, len(items))
	for idx, item := range items {
		if item.OriginalUnitPrice != nil {
			original := *item.OriginalUnitPrice
			item.OriginalUnitPrice = &original
		}
		cloned[idx] = item
	}
	return cloned
}

// IsQuantityError reports whether err came from a quantity bound violation
func IsQuantityError(err error) bool {
	return errors.Is(err, ErrQuantityExceeded)
}

// AppliedPromo is a promo code locked in for the current cart
type AppliedPromo struct {
	Code string          `json:"code"`
	Rate decimal.Decimal `json:"rate"`
}

// DiscountFor converts the promo rate into an absolute discount on subtotal
func (p *AppliedPromo) DiscountFor(subtotal decimal.Decimal) decimal.Decimal {
	if p == nil {
		return decimal.Zero
	}
	return subtotal.Mul(p.Rate).Round(2)
}

// PercentLabel renders the rate as a whole percentage, e.g. 10 for 0.10
func (p *AppliedPromo) PercentLabel() int64 {
	if p == nil {
		return 0
	}
	return p.Rate.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
