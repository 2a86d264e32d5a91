package registry

import (
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/dppkit/dppkit/pkg/manifest"
	"github.com/dppkit/dppkit/pkg/plan"
)

// Entry is the admin-editable configuration of one feature.
type Entry struct {
	Key            manifest.Key      `json:"key"`
	Enabled        bool              `json:"enabled"`
	MinimumPlan    plan.Tier         `json:"minimum_plan"`
	VisibleInTrial bool              `json:"visible_in_trial"`
	UsableInTrial  bool              `json:"usable_in_trial"`
	Category       manifest.Category `json:"category"`
	Config         map[string]any    `json:"config,omitempty"`
	UpdatedAt      time.Time         `json:"updated_at,omitzero"`
}

// Clone returns a copy that shares no mutable state with e.
func (e *Entry) Clone() *Entry {
	c := *e
	c.Config = maps.Clone(e.Config)
	return &c
}

// Validate checks the entry against the feature's manifest definition.
func (e *Entry) Validate(m *manifest.Manifest) error {
	def, ok := m.Lookup(e.Key)
	if !ok {
		return errors.Join(ErrInvalidEntry, manifest.ErrUnknownFeature, fmt.Errorf("key %q", e.Key))
	}
	if !e.MinimumPlan.Valid() {
		return errors.Join(ErrInvalidEntry, plan.ErrInvalidTier, fmt.Errorf("key %q: minimum plan %q", e.Key, e.MinimumPlan))
	}
	if e.Category != def.Category {
		return errors.Join(ErrInvalidEntry, manifest.ErrUnknownCategory,
			fmt.Errorf("key %q: category %q does not match manifest category %q", e.Key, e.Category, def.Category))
	}
	if err := def.ValidateConfig(e.Config); err != nil {
		return errors.Join(ErrInvalidEntry, err)
	}
	return nil
}
