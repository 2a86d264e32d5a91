package billing

import "errors"

var (
	ErrInvalidSignature = errors.New("billing: webhook signature verification failed")
	ErrInvalidPayload   = errors.New("billing: invalid webhook payload")
	ErrMissingModel     = errors.New("billing: event has no subscription model")
	ErrUnsupportedEvent = errors.New("billing: unsupported event")
)
