package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dppkit/dppkit/pkg/manifest"
	"github.com/dppkit/dppkit/pkg/plan"
	"github.com/dppkit/dppkit/pkg/snapshot"
)

// Service is the write boundary for subscription rows.
type Service interface {
	// Get returns the organization's subscription after classifying it, so an
	// elapsed trial is reported as expired. Returns ErrNotFound.
	Get(ctx context.Context, organizationID uuid.UUID) (*Subscription, Class, error)

	StartTrial(ctx context.Context, organizationID, modelID uuid.UUID) (*Subscription, error)
	Activate(ctx context.Context, organizationID, modelID uuid.UUID, period Period) (*Subscription, error)
	ChangePlan(ctx context.Context, organizationID, modelID uuid.UUID) (*Subscription, error)
	Cancel(ctx context.Context, organizationID uuid.UUID) (*Subscription, error)
	Expire(ctx context.Context, organizationID uuid.UUID) (*Subscription, error)

	// DegradeInvalidTrials expires every trial row without a model and returns
	// how many rows this call changed. Safe to run repeatedly.
	DegradeInvalidTrials(ctx context.Context) (int, error)
}

// PlanSource looks up plans and models. plan.Store satisfies it.
type PlanSource interface {
	GetPlan(ctx context.Context, id uuid.UUID) (*plan.Plan, error)
	GetModel(ctx context.Context, id uuid.UUID) (*plan.Model, error)
}

// Snapshotter freezes entitlement values onto a subscription. snapshot.Store satisfies it.
type Snapshotter interface {
	Take(ctx context.Context, subscriptionID, planID uuid.UUID, values map[manifest.EntitlementKey]plan.Limit) (int, error)

	// List returns the latest generation or snapshot.ErrNoSnapshot.
	List(ctx context.Context, subscriptionID uuid.UUID) ([]snapshot.Entry, error)
}

type service struct {
	store      Store
	plans      PlanSource
	snapshots  Snapshotter
	classifier *Classifier
	opts       options
}

// NewService panics if any dependency is nil.
func NewService(store Store, plans PlanSource, snapshots Snapshotter, opts ...Option) Service {
	if store == nil {
		panic("subscription: store is required")
	}
	if plans == nil {
		panic("subscription: plan source is required")
	}
	if snapshots == nil {
		panic("subscription: snapshotter is required")
	}
	o := newOptions(opts)
	return &service{
		store:      store,
		plans:      plans,
		snapshots:  snapshots,
		classifier: &Classifier{store: store, opts: o},
		opts:       o,
	}
}

func (s *service) Get(ctx context.Context, organizationID uuid.UUID) (*Subscription, Class, error) {
	sub, class, err := s.current(ctx, organizationID)
	if err != nil {
		return nil, ClassNone, err
	}
	if sub == nil {
		return nil, ClassNone, ErrNotFound
	}
	return sub, class, nil
}

func (s *service) StartTrial(ctx context.Context, organizationID, modelID uuid.UUID) (*Subscription, error) {
	sub, class, err := s.current(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(class, ClassTrial); err != nil {
		return nil, err
	}

	model, err := s.activeModel(ctx, modelID)
	if err != nil {
		return nil, err
	}
	if model.TrialDays <= 0 {
		return nil, ErrTrialNotAvailable
	}

	now := s.opts.now().UTC()
	end := model.TrialEndsAt(now)
	sub = &Subscription{
		ID:                 uuid.New(),
		OrganizationID:     organizationID,
		ModelID:            &model.ID,
		Status:             StatusTrial,
		TrialStartedAt:     &now,
		TrialExpiresAt:     &end,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   end,
	}
	if err := s.store.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to create trial subscription: %w", err)
	}

	s.opts.logger.InfoContext(ctx, "trial started",
		slog.String("organization_id", organizationID.String()),
		slog.String("model_id", modelID.String()),
		slog.Time("trial_expires_at", end),
	)
	return sub, nil
}

func (s *service) Activate(ctx context.Context, organizationID, modelID uuid.UUID, period Period) (*Subscription, error) {
	sub, class, err := s.current(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(class, ClassActive); err != nil {
		return nil, err
	}

	model, err := s.activeModel(ctx, modelID)
	if err != nil {
		return nil, err
	}

	if period.Start.IsZero() {
		period.Start = s.opts.now().UTC()
	}

	if sub == nil {
		sub = &Subscription{
			ID:                 uuid.New(),
			OrganizationID:     organizationID,
			ModelID:            &model.ID,
			Status:             StatusActive,
			CurrentPeriodStart: period.Start,
			CurrentPeriodEnd:   period.End,
		}
		if err := s.store.Create(ctx, sub); err != nil {
			return nil, fmt.Errorf("failed to create subscription: %w", err)
		}
		if err := s.snapshot(ctx, sub.ID, model.PlanID); err != nil {
			return nil, err
		}
		s.logTransition(ctx, sub, class, ClassActive)
		return sub, nil
	}

	// An active subscription keeps its snapshot while it stays on the same plan,
	// whichever model or period it renews on.
	resnapshot := true
	if class == ClassActive {
		previousPlan, err := s.planOf(ctx, sub)
		if err != nil {
			return nil, err
		}
		resnapshot, err = s.needsSnapshot(ctx, sub.ID, previousPlan, model.PlanID)
		if err != nil {
			return nil, err
		}
	}

	sub.ModelID = &model.ID
	sub.Status = StatusActive
	sub.CurrentPeriodStart = period.Start
	sub.CurrentPeriodEnd = period.End
	if err := s.store.Update(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to activate subscription: %w", err)
	}
	if resnapshot {
		if err := s.snapshot(ctx, sub.ID, model.PlanID); err != nil {
			return nil, err
		}
	}
	s.logTransition(ctx, sub, class, ClassActive)
	return sub, nil
}

func (s *service) ChangePlan(ctx context.Context, organizationID, modelID uuid.UUID) (*Subscription, error) {
	sub, class, err := s.current(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	if !class.Entitled() {
		return nil, fmt.Errorf("%w: cannot change plan while %s", ErrInvalidTransition, class)
	}

	model, err := s.activeModel(ctx, modelID)
	if err != nil {
		return nil, err
	}

	previousPlan, err := s.planOf(ctx, sub)
	if err != nil {
		return nil, err
	}

	// The new model's trial length applies from the original start. A change
	// that would leave the trial already over is rejected.
	if class == ClassTrial && sub.TrialStartedAt != nil {
		end := model.TrialEndsAt(*sub.TrialStartedAt)
		if !s.opts.now().Before(end) {
			return nil, fmt.Errorf("%w: trial would have ended at %s", ErrTrialNotAvailable, end.Format(time.RFC3339))
		}
		sub.TrialExpiresAt = &end
	}

	// Trials read the target plan live, so only paid subscriptions are re-snapshotted.
	resnapshot := false
	if class == ClassActive {
		resnapshot, err = s.needsSnapshot(ctx, sub.ID, previousPlan, model.PlanID)
		if err != nil {
			return nil, err
		}
	}

	sub.ModelID = &model.ID
	if err := s.store.Update(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to change plan: %w", err)
	}
	if resnapshot {
		if err := s.snapshot(ctx, sub.ID, model.PlanID); err != nil {
			return nil, err
		}
	}

	s.opts.logger.InfoContext(ctx, "subscription plan changed",
		slog.String("organization_id", organizationID.String()),
		slog.String("model_id", model.ID.String()),
		slog.String("class", string(class)),
	)
	return sub, nil
}

func (s *service) Cancel(ctx context.Context, organizationID uuid.UUID) (*Subscription, error) {
	return s.settle(ctx, organizationID, ClassCanceled, StatusCanceled)
}

func (s *service) Expire(ctx context.Context, organizationID uuid.UUID) (*Subscription, error) {
	return s.settle(ctx, organizationID, ClassExpired, StatusExpired)
}

func (s *service) DegradeInvalidTrials(ctx context.Context) (int, error) {
	subs, err := s.store.ListInvalidTrials(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list invalid trials: %w", err)
	}

	var changed int
	for _, sub := range subs {
		ok, err := s.store.ExpireTrial(ctx, sub.ID)
		if err != nil {
			return changed, fmt.Errorf("failed to expire trial %s: %w", sub.ID, err)
		}
		if ok {
			changed++
			s.opts.logger.WarnContext(ctx, "degraded trial without model to expired",
				slog.String("subscription_id", sub.ID.String()),
				slog.String("organization_id", sub.OrganizationID.String()),
			)
		}
	}
	return changed, nil
}

func (s *service) settle(ctx context.Context, organizationID uuid.UUID, to Class, status Status) (*Subscription, error) {
	sub, class, err := s.current(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrNotFound
	}
	if err := checkTransition(class, to); err != nil {
		return nil, err
	}

	sub.Status = status
	if to == ClassCanceled || to == ClassExpired {
		now := s.opts.now().UTC()
		if sub.CurrentPeriodEnd.IsZero() || sub.CurrentPeriodEnd.After(now) {
			sub.CurrentPeriodEnd = now
		}
		if sub.CurrentPeriodEnd.Before(sub.CurrentPeriodStart) {
			sub.CurrentPeriodStart = sub.CurrentPeriodEnd
		}
	}
	if err := s.store.Update(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to update subscription: %w", err)
	}
	s.logTransition(ctx, sub, class, to)
	return sub, nil
}

// current loads and classifies the organization's subscription.
// A missing row is (nil, ClassNone, nil).
func (s *service) current(ctx context.Context, organizationID uuid.UUID) (*Subscription, Class, error) {
	sub, err := s.store.GetByOrganization(ctx, organizationID)
	if errors.Is(err, ErrNotFound) {
		return nil, ClassNone, nil
	}
	if err != nil {
		return nil, ClassNone, fmt.Errorf("failed to load subscription: %w", err)
	}

	var model *plan.Model
	if sub.ModelID != nil {
		model, err = s.plans.GetModel(ctx, *sub.ModelID)
		if err != nil && !errors.Is(err, plan.ErrModelNotFound) {
			return nil, ClassNone, fmt.Errorf("failed to load subscription model: %w", err)
		}
	}

	class, err := s.classifier.Classify(ctx, sub, model)
	if err != nil {
		return nil, ClassNone, err
	}
	return sub, class, nil
}

func (s *service) activeModel(ctx context.Context, modelID uuid.UUID) (*plan.Model, error) {
	model, err := s.plans.GetModel(ctx, modelID)
	if err != nil {
		return nil, err
	}
	if !model.Active {
		return nil, ErrModelInactive
	}
	return model, nil
}

// planOf returns the plan of the subscription's current model, or uuid.Nil
// when it has none.
func (s *service) planOf(ctx context.Context, sub *Subscription) (uuid.UUID, error) {
	if sub.ModelID == nil {
		return uuid.Nil, nil
	}
	m, err := s.plans.GetModel(ctx, *sub.ModelID)
	if errors.Is(err, plan.ErrModelNotFound) {
		return uuid.Nil, nil
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to load current model: %w", err)
	}
	return m.PlanID, nil
}

// needsSnapshot reports whether an active subscription moving to planID must
// be snapshotted. It must when it has no snapshot yet, which also heals an
// activation whose snapshot write failed, or when the snapshot froze another plan.
func (s *service) needsSnapshot(ctx context.Context, subscriptionID, previousPlan, planID uuid.UUID) (bool, error) {
	entries, err := s.snapshots.List(ctx, subscriptionID)
	if errors.Is(err, snapshot.ErrNoSnapshot) {
		return true, nil
	}
	if err != nil {
		return false, errors.Join(ErrFailedToSnapshot, err)
	}
	if len(entries) > 0 {
		return entries[0].PlanID != planID, nil
	}
	return previousPlan != planID, nil
}

func (s *service) snapshot(ctx context.Context, subscriptionID, planID uuid.UUID) error {
	p, err := s.plans.GetPlan(ctx, planID)
	if err != nil {
		return errors.Join(ErrFailedToSnapshot, err)
	}
	gen, err := s.snapshots.Take(ctx, subscriptionID, planID, p.Entitlements)
	if err != nil {
		return errors.Join(ErrFailedToSnapshot, err)
	}
	s.opts.logger.DebugContext(ctx, "entitlements snapshotted",
		slog.String("subscription_id", subscriptionID.String()),
		slog.String("plan_id", planID.String()),
		slog.Int("generation", gen),
	)
	return nil
}

func (s *service) logTransition(ctx context.Context, sub *Subscription, from, to Class) {
	s.opts.logger.InfoContext(ctx, "subscription transitioned",
		slog.String("organization_id", sub.OrganizationID.String()),
		slog.String("subscription_id", sub.ID.String()),
		slog.String("from", string(from)),
		slog.String("to", string(to)),
	)
}
