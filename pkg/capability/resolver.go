package capability

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dppkit/dppkit/pkg/manifest"
	"github.com/dppkit/dppkit/pkg/plan"
	"github.com/dppkit/dppkit/pkg/registry"
	"github.com/dppkit/dppkit/pkg/snapshot"
	"github.com/dppkit/dppkit/pkg/subscription"
	"github.com/dppkit/dppkit/pkg/trial"
)

// RegistryReader reads feature registry entries. registry.Store satisfies it.
type RegistryReader interface {
	Get(ctx context.Context, key manifest.Key) (*registry.Entry, error)
}

// PlanReader reads plans and subscription models. plan.Store satisfies it.
type PlanReader interface {
	GetPlan(ctx context.Context, id uuid.UUID) (*plan.Plan, error)
	GetModel(ctx context.Context, id uuid.UUID) (*plan.Model, error)
}

// Resolver is the single decision point for features and entitlements.
// It holds no per-organization state and is safe for concurrent use.
type Resolver struct {
	manifest   *manifest.Manifest
	registry   RegistryReader
	subs       subscription.Store
	plans      PlanReader
	snapshots  snapshot.Reader
	trials     trial.Reader
	classifier *subscription.Classifier

	logger  *slog.Logger
	now     func() time.Time
	metrics *Metrics
}

// New panics if any dependency is nil.
func New(
	m *manifest.Manifest,
	reg RegistryReader,
	subs subscription.Store,
	plans PlanReader,
	snapshots snapshot.Reader,
	trials trial.Reader,
	opts ...Option,
) *Resolver {
	switch {
	case m == nil:
		panic("capability: manifest is required")
	case reg == nil:
		panic("capability: registry reader is required")
	case subs == nil:
		panic("capability: subscription store is required")
	case plans == nil:
		panic("capability: plan reader is required")
	case snapshots == nil:
		panic("capability: snapshot reader is required")
	case trials == nil:
		panic("capability: trial override reader is required")
	}

	r := &Resolver{
		manifest:  m,
		registry:  reg,
		subs:      subs,
		plans:     plans,
		snapshots: snapshots,
		trials:    trials,
		logger:    discardLogger(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.classifier = subscription.NewClassifier(subs,
		subscription.WithClock(r.now),
		subscription.WithLogger(r.logger),
	)
	return r
}

// Manifest returns the catalog the resolver decides over.
func (r *Resolver) Manifest() *manifest.Manifest {
	return r.manifest
}

// state is the organization's billing position at the time of one call.
type state struct {
	sub   *subscription.Subscription
	class subscription.Class
	model *plan.Model
	plan  *plan.Plan
}

// modelID is the id trial overrides are keyed by.
func (s *state) modelID() (uuid.UUID, bool) {
	if s.sub == nil || s.sub.ModelID == nil {
		return uuid.Nil, false
	}
	return *s.sub.ModelID, true
}

// session loads the subscription state at most once and only when a rule
// actually needs it, so core features resolve without touching billing data.
type session struct {
	r       *Resolver
	subject Subject
	loaded  bool
	st      *state
	err     error
}

func (r *Resolver) session(subject Subject) *session {
	return &session{r: r, subject: subject}
}

func (s *session) state(ctx context.Context) (*state, error) {
	if !s.loaded {
		s.st, s.err = s.r.load(ctx, s.subject)
		s.loaded = true
	}
	return s.st, s.err
}

func (r *Resolver) load(ctx context.Context, subject Subject) (*state, error) {
	st := &state{class: subscription.ClassNone}

	sub, err := r.subs.GetByOrganization(ctx, subject.OrganizationID)
	if errors.Is(err, subscription.ErrNotFound) {
		return st, nil
	}
	if err != nil {
		return nil, errors.Join(ErrLookupFailed, err)
	}
	st.sub = sub

	if sub.ModelID != nil {
		st.model, err = r.plans.GetModel(ctx, *sub.ModelID)
		switch {
		case errors.Is(err, plan.ErrModelNotFound):
			r.logger.WarnContext(ctx, "subscription references unknown model",
				slog.String("subscription_id", sub.ID.String()),
				slog.String("model_id", sub.ModelID.String()),
			)
		case err != nil:
			return nil, errors.Join(ErrLookupFailed, err)
		}
	}

	st.class, err = r.classifier.Classify(ctx, sub, st.model)
	if err != nil {
		return nil, errors.Join(ErrLookupFailed, err)
	}

	if st.class.Entitled() && st.model != nil {
		st.plan, err = r.plans.GetPlan(ctx, st.model.PlanID)
		switch {
		case errors.Is(err, plan.ErrPlanNotFound):
			r.logger.WarnContext(ctx, "subscription model references unknown plan",
				slog.String("model_id", st.model.ID.String()),
				slog.String("plan_id", st.model.PlanID.String()),
			)
		case err != nil:
			return nil, errors.Join(ErrLookupFailed, err)
		}
	}

	return st, nil
}
