package order

import "errors"

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrAlreadyPaid   = errors.New("order does not need payment")
	ErrInvalidOrder  = errors.New("invalid order id")
)
