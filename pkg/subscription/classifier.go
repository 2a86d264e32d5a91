package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dppkit/dppkit/pkg/plan"
)

// Classifier maps subscription rows onto lifecycle classes.
// The only write it performs is the trial expiry transition.
type Classifier struct {
	store Store
	opts  options
}

// NewClassifier panics if store is nil.
func NewClassifier(store Store, opts ...Option) *Classifier {
	if store == nil {
		panic("subscription: store is required")
	}
	return &Classifier{store: store, opts: newOptions(opts)}
}

// Classify returns the class of sub at the current time. A nil sub is ClassNone.
// model is the subscription's model, nil if it has none.
//
// When a trial has run out the row is expired and sub.Status is updated to
// match the post-transition state. Re-classifying performs no further writes.
func (c *Classifier) Classify(ctx context.Context, sub *Subscription, model *plan.Model) (Class, error) {
	if sub == nil {
		return ClassNone, nil
	}
	if !sub.Status.IsTrial() {
		if !sub.Status.Known() {
			c.opts.logger.WarnContext(ctx, "unrecognized subscription status, treating as none",
				slog.String("subscription_id", sub.ID.String()),
				slog.String("status", string(sub.Status)),
			)
		}
		return settled(sub.Status), nil
	}

	if sub.ModelID == nil {
		c.opts.logger.WarnContext(ctx, "trial subscription without model, expiring",
			slog.String("subscription_id", sub.ID.String()),
		)
		return c.expire(ctx, sub)
	}

	end, ok := sub.TrialEnd(model)
	if !ok {
		c.opts.logger.WarnContext(ctx, "trial subscription without trial window, expiring",
			slog.String("subscription_id", sub.ID.String()),
		)
		return c.expire(ctx, sub)
	}

	if c.opts.now().Before(end) {
		return ClassTrial, nil
	}
	return c.expire(ctx, sub)
}

func (c *Classifier) expire(ctx context.Context, sub *Subscription) (Class, error) {
	changed, err := c.store.ExpireTrial(ctx, sub.ID)
	if err != nil {
		return ClassNone, fmt.Errorf("failed to expire trial %s: %w", sub.ID, err)
	}
	if changed {
		c.opts.logger.InfoContext(ctx, "trial expired",
			slog.String("subscription_id", sub.ID.String()),
			slog.String("organization_id", sub.OrganizationID.String()),
		)
		sub.Status = StatusExpired
		return ClassExpired, nil
	}

	// Another writer moved the row first. Report whatever it moved it to.
	cur, err := c.store.GetByOrganization(ctx, sub.OrganizationID)
	if errors.Is(err, ErrNotFound) {
		return ClassNone, nil
	}
	if err != nil {
		return ClassNone, fmt.Errorf("failed to reload subscription %s: %w", sub.ID, err)
	}
	sub.Status = cur.Status
	return settled(cur.Status), nil
}
