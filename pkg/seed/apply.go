package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/dppkit/dppkit/pkg/logger"
	"github.com/dppkit/dppkit/pkg/manifest"
	"github.com/dppkit/dppkit/pkg/plan"
	"github.com/dppkit/dppkit/pkg/registry"
	"github.com/dppkit/dppkit/pkg/trial"
)

// Summary counts the rows written by Apply.
type Summary struct {
	RegistryEntries      int
	Plans                int
	Models               int
	FeatureOverrides     int
	EntitlementOverrides int
}

// Seeder writes seed documents. Every row goes through the same validation
// the admin API applies, and rows are upserted so a document can be applied
// repeatedly.
type Seeder struct {
	manifest *manifest.Manifest
	registry *registry.Service
	plans    plan.Store
	trials   *trial.Service
	logger   *slog.Logger
}

// Option configures a Seeder.
type Option func(*Seeder)

// WithLogger sets the logger. Defaults to a discard logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Seeder) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSeeder panics if any dependency is nil.
func NewSeeder(m *manifest.Manifest, reg *registry.Service, plans plan.Store, trials *trial.Service, opts ...Option) *Seeder {
	if m == nil || reg == nil || plans == nil || trials == nil {
		panic("seed: manifest, registry, plan store and trial service are required")
	}
	s := &Seeder{
		manifest: m,
		registry: reg,
		plans:    plans,
		trials:   trials,
		logger:   logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validate checks the document against the manifest without writing
// anything. Models must reference a plan defined in the same document.
// Trial overrides are checked on Apply, where their models can be looked up.
func Validate(m *manifest.Manifest, doc *Document) error {
	var errs []error
	planIDs := make(map[string]struct{}, len(doc.Plans))
	for i, p := range doc.Plans {
		if err := p.toPlan().Validate(m); err != nil {
			errs = append(errs, fmt.Errorf("plans[%d] %q: %w", i, p.Name, err))
		}
		planIDs[p.ID.String()] = struct{}{}
	}
	for i, mod := range doc.Models {
		if err := mod.toModel().Validate(); err != nil {
			errs = append(errs, fmt.Errorf("models[%d]: %w", i, err))
		}
		if _, ok := planIDs[mod.PlanID.String()]; !ok {
			errs = append(errs, fmt.Errorf("models[%d]: plan %s is not defined in the document", i, mod.PlanID))
		}
	}
	for i, e := range doc.Registry {
		if err := e.toEntry().Validate(m); err != nil {
			errs = append(errs, fmt.Errorf("registry[%d]: %w", i, err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidDocument}, errs...)...)
	}
	return nil
}

// Apply validates the document and writes plans, models, registry entries and
// trial overrides in that order. It stops at the first failed write.
func (s *Seeder) Apply(ctx context.Context, doc *Document) (Summary, error) {
	var sum Summary
	if err := Validate(s.manifest, doc); err != nil {
		return sum, err
	}

	for _, p := range doc.Plans {
		if err := s.plans.SavePlan(ctx, p.toPlan()); err != nil {
			return sum, errors.Join(ErrApplyFailed, fmt.Errorf("plan %q: %w", p.Name, err))
		}
		sum.Plans++
	}
	for _, m := range doc.Models {
		if err := s.plans.SaveModel(ctx, m.toModel()); err != nil {
			return sum, errors.Join(ErrApplyFailed, fmt.Errorf("model %s: %w", m.ID, err))
		}
		sum.Models++
	}

	for _, e := range doc.Registry {
		if err := s.registry.Register(ctx, e.toEntry()); err != nil {
			return sum, errors.Join(ErrApplyFailed, fmt.Errorf("registry %q: %w", e.Key, err))
		}
		sum.RegistryEntries++
	}

	for _, o := range doc.TrialOverrides {
		// Sorted so a failing document always stops at the same row.
		for _, key := range sortedKeys(o.Features) {
			fo := trial.FeatureOverride{ModelID: o.ModelID, Key: key, Enabled: o.Features[key]}
			if err := s.trials.SetFeature(ctx, fo); err != nil {
				return sum, errors.Join(ErrApplyFailed, fmt.Errorf("trial override %s/%s: %w", o.ModelID, key, err))
			}
			sum.FeatureOverrides++
		}
		for _, key := range sortedKeys(o.Entitlements) {
			eo := trial.EntitlementOverride{ModelID: o.ModelID, Key: key, Value: plan.Limit(o.Entitlements[key])}
			if err := s.trials.SetEntitlement(ctx, eo); err != nil {
				return sum, errors.Join(ErrApplyFailed, fmt.Errorf("trial override %s/%s: %w", o.ModelID, key, err))
			}
			sum.EntitlementOverrides++
		}
	}

	s.logger.InfoContext(ctx, "seed applied",
		logger.Component("seed"),
		slog.Int("registry_entries", sum.RegistryEntries),
		slog.Int("plans", sum.Plans),
		slog.Int("models", sum.Models),
		slog.Int("feature_overrides", sum.FeatureOverrides),
		slog.Int("entitlement_overrides", sum.EntitlementOverrides),
	)
	return sum, nil
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
