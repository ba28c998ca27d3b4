package models

import (
	"errors"
	"fmt"
)

// Common errors used throughout the application
var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrItemNotFound         = errors.New("cart item not found")
	ErrQuantityExceeded     = errors.New("quantity exceeds the allowed maximum")
	ErrCartEmpty            = errors.New("cart is empty")
	ErrPromoRejected        = errors.New("promo code is invalid or expired")
	ErrPromoEmpty           = fmt.Errorf("%w: code is empty", ErrPromoRejected)
	ErrPromoLocked          = errors.New("a promo code is already applied")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrTermsNotAccepted     = errors.New("terms and conditions must be accepted")
	ErrBeneficiaryLocked    = errors.New("beneficiaries use the buyer's details")
	ErrSubmitInProgress     = errors.New("order submission already in progress")
	ErrOrderRejected        = errors.New("order was rejected")
	ErrValidation           = errors.New("validation failed")
)
