// Package seed loads the plan catalog, feature registry and trial overrides
// from a YAML document and writes them through the validating services.
//
//	registry:
//	  - key: storytelling_blocks
//	    enabled: true
//	    minimum_plan: pro
//	    usable_in_trial: true
//	    category: content
//	plans:
//	  - id: 6f0c1c1e-5a43-4a8e-9f55-0d0f6e1b2a01
//	    name: Pro
//	    tier: pro
//	    features: [storytelling_blocks]
//	    entitlements:
//	      max_published_dpp: 50
//	      max_team_members: unlimited
//	models:
//	  - id: 0b1d7f52-8c55-4c2e-b1c9-5d7a3e3f4b10
//	    plan: 6f0c1c1e-5a43-4a8e-9f55-0d0f6e1b2a01
//	    interval: monthly
//	    trial_days: 14
//	    active: true
//
// Entitlement values accept an integer, null or "unlimited".
package seed

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/dppkit/dppkit/pkg/manifest"
	"github.com/dppkit/dppkit/pkg/plan"
	"github.com/dppkit/dppkit/pkg/registry"
)

// Document is the root of a seed file.
type Document struct {
	Registry       []RegistryEntry `yaml:"registry"`
	Plans          []Plan          `yaml:"plans"`
	Models         []Model         `yaml:"models"`
	TrialOverrides []TrialOverride `yaml:"trial_overrides"`
}

type RegistryEntry struct {
	Key            manifest.Key      `yaml:"key"`
	Enabled        bool              `yaml:"enabled"`
	MinimumPlan    plan.Tier         `yaml:"minimum_plan"`
	VisibleInTrial bool              `yaml:"visible_in_trial"`
	UsableInTrial  bool              `yaml:"usable_in_trial"`
	Category       manifest.Category `yaml:"category"`
	Config         map[string]any    `yaml:"config"`
}

type Plan struct {
	ID           uuid.UUID                         `yaml:"id"`
	Name         string                            `yaml:"name"`
	Tier         plan.Tier                         `yaml:"tier"`
	Features     []manifest.Key                    `yaml:"features"`
	Entitlements map[manifest.EntitlementKey]Limit `yaml:"entitlements"`
}

type Model struct {
	ID        uuid.UUID            `yaml:"id"`
	PlanID    uuid.UUID            `yaml:"plan"`
	Interval  plan.BillingInterval `yaml:"interval"`
	TrialDays int                  `yaml:"trial_days"`
	Active    bool                 `yaml:"active"`
}

// TrialOverride lists the overrides of one model.
type TrialOverride struct {
	ModelID      uuid.UUID                         `yaml:"model"`
	Features     map[manifest.Key]bool             `yaml:"features"`
	Entitlements map[manifest.EntitlementKey]Limit `yaml:"entitlements"`
}

// Limit decodes an entitlement value. A null value leaves the zero Limit,
// which is unlimited.
type Limit plan.Limit

func (l *Limit) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: entitlement value must be a scalar", node.Line)
	}
	if strings.EqualFold(node.Value, "unlimited") {
		*l = Limit(plan.Unlimited())
		return nil
	}
	var n int64
	if err := node.Decode(&n); err != nil {
		return fmt.Errorf("line %d: entitlement value %q is neither an integer nor unlimited", node.Line, node.Value)
	}
	*l = Limit(plan.Of(n))
	return nil
}

// Load decodes a seed document. Unknown fields are rejected.
func Load(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.Join(ErrParsingDocument, errors.New("document is empty"))
		}
		return nil, errors.Join(ErrParsingDocument, err)
	}
	return &doc, nil
}

func (e RegistryEntry) toEntry() *registry.Entry {
	return &registry.Entry{
		Key:            e.Key,
		Enabled:        e.Enabled,
		MinimumPlan:    e.MinimumPlan,
		VisibleInTrial: e.VisibleInTrial,
		UsableInTrial:  e.UsableInTrial,
		Category:       e.Category,
		Config:         e.Config,
	}
}

func (p Plan) toPlan() *plan.Plan {
	out := &plan.Plan{
		ID:           p.ID,
		Name:         p.Name,
		Tier:         p.Tier,
		Features:     make(map[manifest.Key]bool, len(p.Features)),
		Entitlements: make(map[manifest.EntitlementKey]plan.Limit, len(p.Entitlements)),
	}
	for _, key := range p.Features {
		out.Features[key] = true
	}
	for key, l := range p.Entitlements {
		out.Entitlements[key] = plan.Limit(l)
	}
	return out
}

func (m Model) toModel() *plan.Model {
	return &plan.Model{
		ID:        m.ID,
		PlanID:    m.PlanID,
		Interval:  m.Interval,
		TrialDays: m.TrialDays,
		Active:    m.Active,
	}
}
