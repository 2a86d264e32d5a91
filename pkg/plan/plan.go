package plan

import (
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/dppkit/dppkit/pkg/manifest"
)

// BillingInterval is the billing frequency of a subscription model.
type BillingInterval string

const (
	IntervalNone    BillingInterval = "none"
	IntervalMonthly BillingInterval = "monthly"
	IntervalAnnual  BillingInterval = "annual"
)

// Plan is a pricing plan with its static feature inclusion and entitlement tables.
// Entitlement values here are the live definition; existing subscribers keep the
// values captured in their snapshot.
type Plan struct {
	ID           uuid.UUID
	Name         string
	Tier         Tier
	Features     map[manifest.Key]bool
	Entitlements map[manifest.EntitlementKey]Limit
}

// Includes reports whether the plan's feature table marks key as included.
func (p *Plan) Includes(key manifest.Key) bool {
	return p.Features[key]
}

// Entitlement returns the live entitlement value for key.
func (p *Plan) Entitlement(key manifest.EntitlementKey) (Limit, bool) {
	l, ok := p.Entitlements[key]
	return l, ok
}

// Clone returns a deep copy of the plan.
func (p *Plan) Clone() *Plan {
	c := *p
	c.Features = maps.Clone(p.Features)
	c.Entitlements = maps.Clone(p.Entitlements)
	return &c
}

// Validate checks the plan against the manifest.
func (p *Plan) Validate(m *manifest.Manifest) error {
	if p.ID == uuid.Nil {
		return errors.Join(ErrInvalidPlanConfiguration, errors.New("plan id is required"))
	}
	if !p.Tier.Valid() {
		return errors.Join(ErrInvalidPlanConfiguration, ErrInvalidTier)
	}
	for key := range p.Features {
		if _, ok := m.Lookup(key); !ok {
			return errors.Join(ErrInvalidPlanConfiguration, manifest.ErrUnknownFeature, fmt.Errorf("plan %s: feature %q", p.ID, key))
		}
	}
	for key, l := range p.Entitlements {
		if !m.IsEntitlement(key) {
			return errors.Join(ErrInvalidPlanConfiguration, manifest.ErrUnknownEntitlement, fmt.Errorf("plan %s: entitlement %q", p.ID, key))
		}
		if v, ok := l.Value(); ok && v < 0 {
			return errors.Join(ErrInvalidPlanConfiguration, fmt.Errorf("plan %s: entitlement %q is negative", p.ID, key))
		}
	}
	return nil
}

// Model is a billing offer template: a plan, an interval and a trial length.
// Many models can point at the same plan.
type Model struct {
	ID        uuid.UUID
	PlanID    uuid.UUID
	Interval  BillingInterval
	TrialDays int
	Active    bool
}

// TrialEndsAt returns when a trial started at startedAt ends under this model.
// Uses calendar days so daylight-saving shifts do not move the boundary.
func (m *Model) TrialEndsAt(startedAt time.Time) time.Time {
	if m.TrialDays <= 0 {
		return startedAt.UTC()
	}
	return startedAt.AddDate(0, 0, m.TrialDays).UTC()
}

// Validate checks model invariants.
func (m *Model) Validate() error {
	if m.ID == uuid.Nil || m.PlanID == uuid.Nil {
		return errors.Join(ErrInvalidModel, errors.New("model and plan ids are required"))
	}
	if m.TrialDays < 0 {
		return errors.Join(ErrInvalidModel, fmt.Errorf("model %s has negative trial days: %d", m.ID, m.TrialDays))
	}
	switch m.Interval {
	case IntervalNone, IntervalMonthly, IntervalAnnual:
	default:
		return errors.Join(ErrInvalidModel, fmt.Errorf("model %s has unknown interval %q", m.ID, m.Interval))
	}
	return nil
}
