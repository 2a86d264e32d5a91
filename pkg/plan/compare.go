package plan

import (
	"slices"

	"github.com/dppkit/dppkit/pkg/manifest"
)

// Comparison contains the differences between two plans.
// Used to preview upgrades and to warn before downgrades.
type Comparison struct {
	NewFeatures     []manifest.Key                          `json:"new_features"`
	LostFeatures    []manifest.Key                          `json:"lost_features"`
	IncreasedLimits map[manifest.EntitlementKey]LimitChange `json:"increased_limits"`
	DecreasedLimits map[manifest.EntitlementKey]LimitChange `json:"decreased_limits"`
	NewLimits       map[manifest.EntitlementKey]Limit       `json:"new_limits"`
	RemovedLimits   map[manifest.EntitlementKey]Limit       `json:"removed_limits"`
}

// LimitChange represents a change of an entitlement value.
type LimitChange struct {
	From Limit `json:"from"`
	To   Limit `json:"to"`
}

// HasDecreases returns true if any entitlement shrinks or disappears.
func (c *Comparison) HasDecreases() bool {
	return len(c.DecreasedLimits) > 0 || len(c.RemovedLimits) > 0
}

// Compare returns the differences between current and target plans.
func Compare(current, target *Plan) *Comparison {
	if current == nil || target == nil {
		return nil
	}

	c := &Comparison{
		NewFeatures:     make([]manifest.Key, 0),
		LostFeatures:    make([]manifest.Key, 0),
		IncreasedLimits: make(map[manifest.EntitlementKey]LimitChange),
		DecreasedLimits: make(map[manifest.EntitlementKey]LimitChange),
		NewLimits:       make(map[manifest.EntitlementKey]Limit),
		RemovedLimits:   make(map[manifest.EntitlementKey]Limit),
	}

	for key, included := range target.Features {
		if included && !current.Features[key] {
			c.NewFeatures = append(c.NewFeatures, key)
		}
	}
	for key, included := range current.Features {
		if included && !target.Features[key] {
			c.LostFeatures = append(c.LostFeatures, key)
		}
	}

	slices.Sort(c.NewFeatures)
	slices.Sort(c.LostFeatures)

	for key, to := range target.Entitlements {
		from, exists := current.Entitlements[key]
		if !exists {
			c.NewLimits[key] = to
			continue
		}
		if from == to {
			continue
		}

		change := LimitChange{From: from, To: to}
		fromV, fromLimited := from.Value()
		toV, toLimited := to.Value()

		// Unlimited to limited is always a decrease.
		switch {
		case !fromLimited:
			c.DecreasedLimits[key] = change
		case !toLimited:
			c.IncreasedLimits[key] = change
		case toV > fromV:
			c.IncreasedLimits[key] = change
		default:
			c.DecreasedLimits[key] = change
		}
	}

	for key, from := range current.Entitlements {
		if _, exists := target.Entitlements[key]; !exists {
			c.RemovedLimits[key] = from
		}
	}

	return c
}
