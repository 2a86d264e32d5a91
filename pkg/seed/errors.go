package seed

import "errors"

var (
	ErrParsingDocument = errors.New("failed to parse seed document")
	ErrInvalidDocument = errors.New("invalid seed document")
	ErrApplyFailed     = errors.New("failed to apply seed document")
)
