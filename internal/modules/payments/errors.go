package payments

import "errors"

var (
	ErrSecretNotConfigured = errors.New("signing secret not configured")
	ErrMissingSignature    = errors.New("signature header is missing")
	ErrMalformedSignature  = errors.New("signature is not valid hex")
	ErrInvalidSignature    = errors.New("invalid signature")

	ErrMissingOrderID      = errors.New("order id is required")
	ErrInvalidAmount       = errors.New("amount must be a non-negative decimal with at most two fractional digits")
	ErrUnsupportedCurrency = errors.New("unsupported currency")

	ErrMalformedPayload = errors.New("malformed webhook payload")
)
