package orders

import "errors"

var (
	ErrNotFound        = errors.New("order not found")
	ErrEmptyReference  = errors.New("order reference is empty")
	ErrInvalidStatus   = errors.New("invalid order status")
	ErrCodeExhausted   = errors.New("could not allocate a unique verification code")
	ErrConcurrentWrite = errors.New("order changed concurrently")
)
