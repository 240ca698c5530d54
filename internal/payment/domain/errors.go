package domain

import "errors"

var (
	ErrInvalidAmount        = errors.New("invalid_amount")
	ErrPaymentNotFound      = errors.New("payment_not_found")
	ErrPaymentExpired       = errors.New("payment_expired")
	ErrAmountMismatch       = errors.New("amount_mismatch")
	ErrMissingReference     = errors.New("missing_transfer_reference")
	ErrInvalidSignature     = errors.New("invalid_signature")
	ErrInvalidPayload       = errors.New("invalid_payload")
	ErrRoutingConfigMissing = errors.New("routing_config_missing")
)
