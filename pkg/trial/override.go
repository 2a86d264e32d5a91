package trial

import (
	"context"

	"github.com/google/uuid"

	"github.com/dppkit/dppkit/pkg/manifest"
	"github.com/dppkit/dppkit/pkg/plan"
)

// FeatureOverride enables or disables a feature for trialing organizations on a model.
type FeatureOverride struct {
	ModelID uuid.UUID    `json:"model_id"`
	Key     manifest.Key `json:"key"`
	Enabled bool         `json:"enabled"`
}

// EntitlementOverride replaces an entitlement value for trialing organizations on a model.
type EntitlementOverride struct {
	ModelID uuid.UUID               `json:"model_id"`
	Key     manifest.EntitlementKey `json:"key"`
	Value   plan.Limit              `json:"value"`
}

// Overrides groups every override of one model.
type Overrides struct {
	Features     []FeatureOverride     `json:"features"`
	Entitlements []EntitlementOverride `json:"entitlements"`
}

// Reader is the read side used by the capability resolver.
type Reader interface {
	// FeatureOverride returns ErrNotFound if the model has no override for key.
	FeatureOverride(ctx context.Context, modelID uuid.UUID, key manifest.Key) (FeatureOverride, error)

	// EntitlementOverride returns ErrNotFound if the model has no override for key.
	EntitlementOverride(ctx context.Context, modelID uuid.UUID, key manifest.EntitlementKey) (EntitlementOverride, error)

	// ListByModel returns all overrides of a model ordered by key.
	ListByModel(ctx context.Context, modelID uuid.UUID) (Overrides, error)
}

// Store persists trial overrides.
type Store interface {
	Reader

	SetFeatureOverride(ctx context.Context, o FeatureOverride) error
	SetEntitlementOverride(ctx context.Context, o EntitlementOverride) error

	// DeleteFeatureOverride is a no-op when no override exists.
	DeleteFeatureOverride(ctx context.Context, modelID uuid.UUID, key manifest.Key) error

	// DeleteEntitlementOverride is a no-op when no override exists.
	DeleteEntitlementOverride(ctx context.Context, modelID uuid.UUID, key manifest.EntitlementKey) error
}
