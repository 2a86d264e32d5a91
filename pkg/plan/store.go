package plan

import (
	"context"

	"github.com/google/uuid"

	"github.com/dppkit/dppkit/pkg/manifest"
)

// Store persists pricing plans and subscription models.
type Store interface {
	// GetPlan returns ErrPlanNotFound if no plan exists.
	GetPlan(ctx context.Context, id uuid.UUID) (*Plan, error)

	// GetModel returns ErrModelNotFound if no model exists.
	GetModel(ctx context.Context, id uuid.UUID) (*Model, error)

	// SavePlan creates or replaces a plan including its feature and entitlement tables.
	SavePlan(ctx context.Context, p *Plan) error

	// SaveModel creates or replaces a subscription model.
	SaveModel(ctx context.Context, m *Model) error

	// SetEntitlement edits one live entitlement value of a plan.
	// Existing subscription snapshots are not affected.
	SetEntitlement(ctx context.Context, planID uuid.UUID, key manifest.EntitlementKey, value Limit) error
}
