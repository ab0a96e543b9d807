package settlement

import "errors"

var (
	ErrAlreadySettled = errors.New("payment already settled")
	ErrNotPayable     = errors.New("order not eligible for settlement")
)
