package capability

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dppkit/dppkit/pkg/manifest"
	"github.com/dppkit/dppkit/pkg/plan"
	"github.com/dppkit/dppkit/pkg/snapshot"
	"github.com/dppkit/dppkit/pkg/subscription"
	"github.com/dppkit/dppkit/pkg/trial"
)

// ResolveEntitlement returns the numeric grant for key. Absence of a trial or
// active subscription is reported as Grant.Active == false, not as an error.
func (r *Resolver) ResolveEntitlement(ctx context.Context, key manifest.EntitlementKey, subject Subject) (Grant, error) {
	return r.resolveEntitlement(ctx, r.session(subject), key)
}

// ResolveEntitlements returns a grant for every manifest entitlement key in key order.
func (r *Resolver) ResolveEntitlements(ctx context.Context, subject Subject) ([]Grant, error) {
	sess := r.session(subject)
	keys := r.manifest.EntitlementKeys()
	grants := make([]Grant, 0, len(keys))
	for _, key := range keys {
		g, err := r.resolveEntitlement(ctx, sess, key)
		if err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, nil
}

// CheckLimit compares usage against the resolved grant. An unlimited grant is
// always allowed with nil Limit and Remaining. An inactive grant is denied.
func (r *Resolver) CheckLimit(ctx context.Context, key manifest.EntitlementKey, usage int64, subject Subject) (LimitCheck, error) {
	g, err := r.ResolveEntitlement(ctx, key, subject)
	if err != nil {
		return LimitCheck{}, err
	}

	c := Evaluate(g, usage)
	r.metrics.limit(c)
	return c, nil
}

// Evaluate compares usage against a grant without any lookups.
func Evaluate(g Grant, usage int64) LimitCheck {
	c := LimitCheck{Key: g.Key, Active: g.Active, Usage: usage, Source: g.Source}
	if !g.Active {
		return c
	}

	limit, limited := g.Limit.Value()
	if !limited {
		c.Allowed = true
		return c
	}

	remaining := max(0, limit-usage)
	c.Allowed = usage < limit
	c.Limit = &limit
	c.Remaining = &remaining
	return c
}

func (r *Resolver) resolveEntitlement(ctx context.Context, sess *session, key manifest.EntitlementKey) (Grant, error) {
	g, err := r.decideEntitlement(ctx, sess, key)
	if err != nil {
		return Grant{}, err
	}
	r.metrics.entitlement(g)
	return g, nil
}

func (r *Resolver) decideEntitlement(ctx context.Context, sess *session, key manifest.EntitlementKey) (Grant, error) {
	if !r.manifest.IsEntitlement(key) {
		r.logger.WarnContext(ctx, "entitlement key not in manifest", slog.String("entitlement", string(key)))
		return Grant{Key: key, Source: SourceUnknownKey}, nil
	}

	st, err := sess.state(ctx)
	if err != nil {
		return Grant{}, err
	}

	switch st.class {
	case subscription.ClassTrial:
		if modelID, ok := st.modelID(); ok {
			o, err := r.trials.EntitlementOverride(ctx, modelID, key)
			switch {
			case err == nil:
				return Grant{Key: key, Limit: o.Value, Active: true, Source: SourceTrialOverride, Class: st.class}, nil
			case !errors.Is(err, trial.ErrNotFound):
				return Grant{}, errors.Join(ErrLookupFailed, err)
			}
		}
		limit := plan.Of(0)
		if st.plan != nil {
			if l, ok := st.plan.Entitlement(key); ok {
				limit = l
			}
		}
		return Grant{Key: key, Limit: limit, Active: true, Source: SourceTrialPlan, Class: st.class}, nil

	case subscription.ClassActive:
		e, err := r.snapshots.Get(ctx, st.sub.ID, key)
		switch {
		case err == nil:
			return Grant{Key: key, Limit: e.Value, Active: true, Source: SourceSnapshot, Class: st.class}, nil
		case errors.Is(err, snapshot.ErrNotFound), errors.Is(err, snapshot.ErrNoSnapshot):
			r.logger.WarnContext(ctx, "active subscription has no snapshot value",
				slog.String("subscription_id", st.sub.ID.String()),
				slog.String("entitlement", string(key)),
			)
			return Grant{Key: key, Limit: plan.Of(0), Active: true, Source: SourceSnapshotMissing, Class: st.class}, nil
		default:
			return Grant{}, errors.Join(ErrLookupFailed, err)
		}

	default:
		return Grant{Key: key, Source: SourceNone, Class: st.class}, nil
	}
}
