package usage

import (
	"context"

	"github.com/dppkit/dppkit/pkg/capability"
	"github.com/dppkit/dppkit/pkg/manifest"
)

// Resolver is the part of capability.Resolver the enforcer needs.
type Resolver interface {
	ResolveEntitlement(ctx context.Context, key manifest.EntitlementKey, subject capability.Subject) (capability.Grant, error)
	CheckLimit(ctx context.Context, key manifest.EntitlementKey, usage int64, subject capability.Subject) (capability.LimitCheck, error)
}

// Enforcer compares counted usage with resolved limits.
type Enforcer struct {
	resolver Resolver
	counters Registry
}

// NewEnforcer panics if resolver is nil.
func NewEnforcer(resolver Resolver, counters Registry) *Enforcer {
	if resolver == nil {
		panic("usage: resolver is required")
	}
	if counters == nil {
		counters = NewRegistry()
	}
	return &Enforcer{resolver: resolver, counters: counters}
}

// Check counts the current usage and reports it against the resolved limit.
func (e *Enforcer) Check(ctx context.Context, key manifest.EntitlementKey, subject capability.Subject) (capability.LimitCheck, error) {
	n, err := e.counters.Count(ctx, key, subject.OrganizationID)
	if err != nil {
		return capability.LimitCheck{}, err
	}
	return e.resolver.CheckLimit(ctx, key, n, subject)
}

// CanCreate returns nil if one more unit fits within the limit.
// Unlimited grants are accepted without counting.
func (e *Enforcer) CanCreate(ctx context.Context, key manifest.EntitlementKey, subject capability.Subject) error {
	g, err := e.resolver.ResolveEntitlement(ctx, key, subject)
	if err != nil {
		return err
	}
	if !g.Active {
		return ErrNoActiveSubscription
	}
	if g.Limit.IsUnlimited() {
		return nil
	}

	n, err := e.counters.Count(ctx, key, subject.OrganizationID)
	if err != nil {
		return err
	}
	if !capability.Evaluate(g, n).Allowed {
		return ErrLimitExceeded
	}
	return nil
}
