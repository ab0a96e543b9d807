package orders

import "errors"

var (
	ErrCartEmpty          = errors.New("cart is empty")
	ErrProductUnavailable = errors.New("product unavailable")
	ErrCurrencyMismatch   = errors.New("currency mismatch in cart")
	ErrNumberCollision    = errors.New("order number collision")
	ErrInvalidTransition  = errors.New("invalid order status transition")
	ErrNotActionable      = errors.New("order not actionable")
)
