package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dppkit/dppkit/pkg/pg"
	"github.com/dppkit/dppkit/pkg/subscription"
)

// SubscriptionStore implements subscription.Store.
type SubscriptionStore struct {
	db *pgxpool.Pool
}

func NewSubscriptionStore(db *pgxpool.Pool) *SubscriptionStore {
	return &SubscriptionStore{db: db}
}

const subscriptionColumns = `id, organization_id, subscription_model_id, status, trial_started_at, trial_expires_at,
    current_period_start, current_period_end, created_at, updated_at`

func scanSubscription(row pgx.Row) (*subscription.Subscription, error) {
	var (
		sub       subscription.Subscription
		periodEnd *time.Time
	)
	err := row.Scan(
		&sub.ID,
		&sub.OrganizationID,
		&sub.ModelID,
		&sub.Status,
		&sub.TrialStartedAt,
		&sub.TrialExpiresAt,
		&sub.CurrentPeriodStart,
		&periodEnd,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	sub.CurrentPeriodEnd = timeOrZero(periodEnd)
	return &sub, nil
}

func (s *SubscriptionStore) GetByOrganization(ctx context.Context, organizationID uuid.UUID) (*subscription.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE organization_id = $1`

	sub, err := scanSubscription(s.db.QueryRow(ctx, query, organizationID))
	if pg.IsNotFoundError(err) {
		return nil, subscription.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription of organization %s: %w", organizationID, err)
	}
	return sub, nil
}

func (s *SubscriptionStore) Create(ctx context.Context, sub *subscription.Subscription) error {
	if err := sub.Validate(); err != nil {
		return err
	}

	query := `
        INSERT INTO subscriptions (id, organization_id, subscription_model_id, status, trial_started_at,
            trial_expires_at, current_period_start, current_period_end, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
    `
	_, err := s.db.Exec(ctx, query,
		sub.ID,
		sub.OrganizationID,
		sub.ModelID,
		sub.Status,
		sub.TrialStartedAt,
		sub.TrialExpiresAt,
		sub.CurrentPeriodStart,
		nullTime(sub.CurrentPeriodEnd),
	)
	return mapSubscriptionError(err, "create subscription %s", sub.ID)
}

func (s *SubscriptionStore) Update(ctx context.Context, sub *subscription.Subscription) error {
	if err := sub.Validate(); err != nil {
		return err
	}

	query := `
        UPDATE subscriptions SET
            subscription_model_id = $3,
            status = $4,
            trial_started_at = $5,
            trial_expires_at = $6,
            current_period_start = $7,
            current_period_end = $8,
            updated_at = now()
        WHERE id = $1 AND organization_id = $2
    `
	tag, err := s.db.Exec(ctx, query,
		sub.ID,
		sub.OrganizationID,
		sub.ModelID,
		sub.Status,
		sub.TrialStartedAt,
		sub.TrialExpiresAt,
		sub.CurrentPeriodStart,
		nullTime(sub.CurrentPeriodEnd),
	)
	if err != nil {
		return mapSubscriptionError(err, "update subscription %s", sub.ID)
	}
	if tag.RowsAffected() == 0 {
		return subscription.ErrNotFound
	}
	return nil
}

// ExpireTrial is a compare-and-set on the status column. Concurrent callers
// race on the row lock and exactly one of them sees a changed row.
func (s *SubscriptionStore) ExpireTrial(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
        UPDATE subscriptions SET status = 'expired', updated_at = now()
        WHERE id = $1 AND status IN ('trial', 'trial_active')
    `
	tag, err := s.db.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("expire trial %s: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *SubscriptionStore) ListInvalidTrials(ctx context.Context) ([]*subscription.Subscription, error) {
	query := `
        SELECT ` + subscriptionColumns + `
        FROM subscriptions
        WHERE status IN ('trial', 'trial_active') AND subscription_model_id IS NULL
        ORDER BY created_at
    `
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list invalid trials: %w", err)
	}
	defer rows.Close()

	var result []*subscription.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		result = append(result, sub)
	}
	return result, rows.Err()
}

func mapSubscriptionError(err error, format string, args ...any) error {
	switch {
	case err == nil:
		return nil
	case pg.IsDuplicateKeyError(err):
		return subscription.ErrAlreadyExists
	case pg.IsCheckViolationError(err) && pg.ConstraintName(err) == "subscriptions_trial_requires_model":
		return errors.Join(subscription.ErrInvalidState, subscription.ErrTrialWithoutModel)
	case pg.IsForeignKeyViolationError(err):
		return errors.Join(subscription.ErrInvalidState, err)
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
