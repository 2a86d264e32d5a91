package subscription

import "errors"

var (
	ErrNotFound          = errors.New("subscription not found")
	ErrAlreadyExists     = errors.New("subscription already exists")
	ErrInvalidState      = errors.New("invalid subscription state")
	ErrTrialWithoutModel = errors.New("trial subscription requires a subscription model")

	ErrInvalidTransition = errors.New("subscription transition not allowed")
	ErrTrialNotAvailable = errors.New("subscription model does not offer a trial")
	ErrModelInactive     = errors.New("subscription model is not active")

	ErrFailedToSnapshot = errors.New("failed to snapshot entitlements")
)
