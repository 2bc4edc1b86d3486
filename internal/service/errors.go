package service

import "errors"

var (
	ErrInvalidProduct  = errors.New("product id is required")
	ErrInvalidQuantity = errors.New("quantity must be a positive number")
	ErrInvalidPrice    = errors.New("unit price cannot be negative")
	ErrStockExceeded   = errors.New("total items exceed available stock")
	ErrLineNotFound    = errors.New("item not found in cart")

	ErrEmptyCart        = errors.New("cart is empty, nothing to checkout")
	ErrNotAuthenticated = errors.New("no access credential for session")
	ErrAttemptInFlight  = errors.New("a checkout attempt is already in flight")
	ErrNoAttempt        = errors.New("no checkout attempt awaiting verification")

	ErrIllegalTransition = errors.New("illegal transition of checkout status")
)
