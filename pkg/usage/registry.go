package usage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dppkit/dppkit/pkg/manifest"
)

// CounterFunc returns the current usage of an organization.
type CounterFunc func(ctx context.Context, organizationID uuid.UUID) (int64, error)

// Registry maps entitlement keys to their counters.
// Not thread-safe: register all counters at startup only.
type Registry map[manifest.EntitlementKey]CounterFunc

func NewRegistry() Registry {
	return make(Registry)
}

// Register sets or replaces the counter for key. Panics if fn is nil.
func (r Registry) Register(key manifest.EntitlementKey, fn CounterFunc) {
	if fn == nil {
		panic(fmt.Sprintf("usage: CounterFunc for entitlement %q cannot be nil", key))
	}
	r[key] = fn
}

// Count runs the counter registered for key.
func (r Registry) Count(ctx context.Context, key manifest.EntitlementKey, organizationID uuid.UUID) (int64, error) {
	fn, ok := r[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNoCounterRegistered, key)
	}
	n, err := fn(ctx, organizationID)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrFailedToCountUsage, key, err)
	}
	return n, nil
}
