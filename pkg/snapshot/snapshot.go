package snapshot

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dppkit/dppkit/pkg/manifest"
	"github.com/dppkit/dppkit/pkg/plan"
)

// Entry is one frozen entitlement value.
type Entry struct {
	SubscriptionID uuid.UUID               `json:"subscription_id"`
	PlanID         uuid.UUID               `json:"plan_id"`
	Generation     int                     `json:"generation"`
	Key            manifest.EntitlementKey `json:"key"`
	Value          plan.Limit              `json:"value"`
	TakenAt        time.Time               `json:"taken_at"`
}

// Reader is the read side used by the capability resolver.
type Reader interface {
	// Get returns the value of key in the latest generation.
	// Returns ErrNoSnapshot or ErrNotFound.
	Get(ctx context.Context, subscriptionID uuid.UUID, key manifest.EntitlementKey) (Entry, error)

	// List returns every entry of the latest generation ordered by key.
	List(ctx context.Context, subscriptionID uuid.UUID) ([]Entry, error)
}

// Store persists snapshot generations.
type Store interface {
	Reader

	// Take writes a new generation holding values and returns its number.
	// Generations start at 1. An empty values map still records a generation.
	Take(ctx context.Context, subscriptionID, planID uuid.UUID, values map[manifest.EntitlementKey]plan.Limit) (int, error)
}
