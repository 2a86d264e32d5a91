package subscription

import (
	"context"

	"github.com/google/uuid"
)

// Store persists subscriptions. Each organization has at most one row.
type Store interface {
	// GetByOrganization returns ErrNotFound if the organization has no subscription.
	GetByOrganization(ctx context.Context, organizationID uuid.UUID) (*Subscription, error)

	// Create inserts a new row. Returns ErrAlreadyExists if the organization has one.
	Create(ctx context.Context, sub *Subscription) error

	// Update replaces an existing row. Returns ErrNotFound if it does not exist.
	Update(ctx context.Context, sub *Subscription) error

	// ExpireTrial sets the status to expired only if the row is still in a
	// trial status. It reports whether this call changed the row.
	ExpireTrial(ctx context.Context, id uuid.UUID) (bool, error)

	// ListInvalidTrials returns rows in a trial status that have no model.
	ListInvalidTrials(ctx context.Context) ([]*Subscription, error)
}
