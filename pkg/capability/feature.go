package capability

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dppkit/dppkit/pkg/manifest"
	"github.com/dppkit/dppkit/pkg/plan"
	"github.com/dppkit/dppkit/pkg/registry"
	"github.com/dppkit/dppkit/pkg/subscription"
	"github.com/dppkit/dppkit/pkg/trial"
)

// ResolveFeature reports whether the subject may use the feature.
func (r *Resolver) ResolveFeature(ctx context.Context, key manifest.Key, subject Subject) (bool, error) {
	d, err := r.ExplainFeature(ctx, key, subject)
	if err != nil {
		return false, err
	}
	return d.Allowed, nil
}

// ExplainFeature resolves the feature and reports which rule decided it.
func (r *Resolver) ExplainFeature(ctx context.Context, key manifest.Key, subject Subject) (Decision, error) {
	return r.explainFeature(ctx, r.session(subject), key)
}

// AvailableFeatures returns every manifest key the subject may use.
// It applies the same rules as ResolveFeature to each key and classifies the
// subscription once per call.
func (r *Resolver) AvailableFeatures(ctx context.Context, subject Subject) (map[manifest.Key]struct{}, error) {
	decisions, err := r.ExplainFeatures(ctx, subject)
	if err != nil {
		return nil, err
	}
	result := make(map[manifest.Key]struct{}, len(decisions))
	for _, d := range decisions {
		if d.Allowed {
			result[d.Key] = struct{}{}
		}
	}
	return result, nil
}

// ExplainFeatures returns a decision for every manifest key in key order.
func (r *Resolver) ExplainFeatures(ctx context.Context, subject Subject) ([]Decision, error) {
	sess := r.session(subject)
	keys := r.manifest.Keys()
	decisions := make([]Decision, 0, len(keys))
	for _, key := range keys {
		d, err := r.explainFeature(ctx, sess, key)
		if err != nil {
			return nil, err
		}
		decisions = append(decisions, d)
	}
	return decisions, nil
}

func (r *Resolver) explainFeature(ctx context.Context, sess *session, key manifest.Key) (Decision, error) {
	d, err := r.decideFeature(ctx, sess, key)
	if err != nil {
		return Decision{}, err
	}
	r.metrics.feature(d)
	return d, nil
}

func (r *Resolver) decideFeature(ctx context.Context, sess *session, key manifest.Key) (Decision, error) {
	def, ok := r.manifest.Lookup(key)
	if !ok {
		r.logger.WarnContext(ctx, "feature key not in manifest", slog.String("feature", string(key)))
		return Decision{Key: key, Rule: RuleUnknownKey, Reason: ReasonUnknownFeature}, nil
	}
	if def.Core {
		return Decision{Key: key, Allowed: true, Rule: RuleCore}, nil
	}

	entry, err := r.registry.Get(ctx, key)
	if errors.Is(err, registry.ErrEntryNotFound) {
		return Decision{Key: key, Rule: RuleRegistryMissing, Reason: ReasonFeatureDisabled}, nil
	}
	if err != nil {
		return Decision{}, errors.Join(ErrLookupFailed, err)
	}
	if !entry.Enabled {
		return Decision{Key: key, Rule: RuleRegistryDisabled, Reason: ReasonFeatureDisabled}, nil
	}

	st, err := sess.state(ctx)
	if err != nil {
		return Decision{}, err
	}

	switch st.class {
	case subscription.ClassTrial:
		if modelID, ok := st.modelID(); ok {
			o, err := r.trials.FeatureOverride(ctx, modelID, key)
			switch {
			case err == nil:
				d := Decision{Key: key, Allowed: o.Enabled, Rule: RuleTrialOverride, Class: st.class}
				if !o.Enabled {
					d.Reason = ReasonTrialDisabled
				}
				return d, nil
			case !errors.Is(err, trial.ErrNotFound):
				return Decision{}, errors.Join(ErrLookupFailed, err)
			}
		}
		if !entry.UsableInTrial {
			return Decision{Key: key, Rule: RuleTrialNotUsable, Class: st.class, Reason: ReasonTrialDisabled}, nil
		}
		return planDecision(key, entry, st, RuleTrialPlan), nil

	case subscription.ClassActive:
		return planDecision(key, entry, st, RuleActivePlan), nil

	default:
		if entry.VisibleInTrial || entry.MinimumPlan == plan.TierFree {
			return Decision{Key: key, Allowed: true, Rule: RuleInactive, Class: st.class}, nil
		}
		return Decision{
			Key:          key,
			Rule:         RuleInactive,
			Class:        st.class,
			Reason:       ReasonRequiresPlan,
			RequiredTier: entry.MinimumPlan,
		}, nil
	}
}

func planDecision(key manifest.Key, entry *registry.Entry, st *state, rule Rule) Decision {
	if st.plan != nil && st.plan.Includes(key) {
		return Decision{Key: key, Allowed: true, Rule: rule, Class: st.class}
	}
	return Decision{
		Key:          key,
		Rule:         rule,
		Class:        st.class,
		Reason:       ReasonRequiresPlan,
		RequiredTier: entry.MinimumPlan,
	}
}
