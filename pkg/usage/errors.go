package usage

import "errors"

var (
	ErrLimitExceeded        = errors.New("usage: limit exceeded")
	ErrNoActiveSubscription = errors.New("usage: no active subscription")
	ErrNoCounterRegistered  = errors.New("usage: no counter registered for entitlement")
	ErrFailedToCountUsage   = errors.New("usage: failed to count usage")
)
