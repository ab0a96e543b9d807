package payments

import "errors"

var (
	ErrNoOrders        = errors.New("no orders to pay")
	ErrOrderNotPayable = errors.New("order not payable")
	ErrForbidden       = errors.New("forbidden")
)
