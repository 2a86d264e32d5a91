package trial

import "errors"

var (
	// ErrNotFound indicates no override exists for the model and key.
	ErrNotFound = errors.New("trial: override not found")

	ErrInvalidOverride = errors.New("trial: invalid override")
)
