package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dppkit/dppkit/pkg/manifest"
	"github.com/dppkit/dppkit/pkg/pg"
	"github.com/dppkit/dppkit/pkg/plan"
	"github.com/dppkit/dppkit/pkg/snapshot"
)

// SnapshotStore implements snapshot.Store. Generations are append-only.
type SnapshotStore struct {
	db *pgxpool.Pool
}

func NewSnapshotStore(db *pgxpool.Pool) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// Take locks the subscription row so two concurrent takes cannot claim the
// same generation number.
func (s *SnapshotStore) Take(ctx context.Context, subscriptionID, planID uuid.UUID, values map[manifest.EntitlementKey]plan.Limit) (int, error) {
	if subscriptionID == uuid.Nil {
		return 0, errors.Join(snapshot.ErrInvalidSnapshot, errors.New("subscription id is required"))
	}

	var gen int
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		var locked uuid.UUID
		err := tx.QueryRow(ctx, `SELECT id FROM subscriptions WHERE id = $1 FOR UPDATE`, subscriptionID).Scan(&locked)
		if pg.IsNotFoundError(err) {
			return errors.Join(snapshot.ErrInvalidSnapshot, fmt.Errorf("subscription %s does not exist", subscriptionID))
		}
		if err != nil {
			return fmt.Errorf("lock subscription %s: %w", subscriptionID, err)
		}

		err = tx.QueryRow(ctx, `
            INSERT INTO entitlement_snapshot_generations (subscription_id, generation, pricing_plan_id, taken_at)
            SELECT $1, COALESCE(MAX(generation), 0) + 1, $2, now()
            FROM entitlement_snapshot_generations
            WHERE subscription_id = $1
            RETURNING generation
        `, subscriptionID, planID).Scan(&gen)
		if err != nil {
			return fmt.Errorf("insert snapshot generation: %w", err)
		}

		if len(values) == 0 {
			return nil
		}
		rows := make([][]any, 0, len(values))
		for key, l := range values {
			rows = append(rows, []any{subscriptionID, gen, string(key), l.Ptr()})
		}
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"entitlement_snapshots"},
			[]string{"subscription_id", "generation", "entitlement_key", "value"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("copy snapshot entries: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return gen, nil
}

const latestGeneration = `
    SELECT subscription_id, generation, pricing_plan_id, taken_at
    FROM entitlement_snapshot_generations
    WHERE subscription_id = $1
    ORDER BY generation DESC
    LIMIT 1
`

func (s *SnapshotStore) Get(ctx context.Context, subscriptionID uuid.UUID, key manifest.EntitlementKey) (snapshot.Entry, error) {
	query := `
        WITH g AS (` + latestGeneration + `)
        SELECT g.generation, g.pricing_plan_id, g.taken_at, e.entitlement_key, e.value
        FROM g
        LEFT JOIN entitlement_snapshots e
            ON e.subscription_id = g.subscription_id AND e.generation = g.generation AND e.entitlement_key = $2
    `
	entry := snapshot.Entry{SubscriptionID: subscriptionID, Key: key}
	var (
		found *string
		value *int64
		taken time.Time
	)
	err := s.db.QueryRow(ctx, query, subscriptionID, key).Scan(&entry.Generation, &entry.PlanID, &taken, &found, &value)
	if pg.IsNotFoundError(err) {
		return snapshot.Entry{}, snapshot.ErrNoSnapshot
	}
	if err != nil {
		return snapshot.Entry{}, fmt.Errorf("get snapshot %s/%s: %w", subscriptionID, key, err)
	}
	if found == nil {
		return snapshot.Entry{}, snapshot.ErrNotFound
	}
	entry.Value = limitFromNull(value)
	entry.TakenAt = taken.UTC()
	return entry, nil
}

func (s *SnapshotStore) List(ctx context.Context, subscriptionID uuid.UUID) ([]snapshot.Entry, error) {
	var (
		gen    int
		planID uuid.UUID
		taken  time.Time
		subID  uuid.UUID
	)
	err := s.db.QueryRow(ctx, latestGeneration, subscriptionID).Scan(&subID, &gen, &planID, &taken)
	if pg.IsNotFoundError(err) {
		return nil, snapshot.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("get latest snapshot of %s: %w", subscriptionID, err)
	}

	rows, err := s.db.Query(ctx, `
        SELECT entitlement_key, value
        FROM entitlement_snapshots
        WHERE subscription_id = $1 AND generation = $2
        ORDER BY entitlement_key
    `, subscriptionID, gen)
	if err != nil {
		return nil, fmt.Errorf("list snapshot of %s: %w", subscriptionID, err)
	}

	var (
		key   manifest.EntitlementKey
		value *int64
	)
	result := make([]snapshot.Entry, 0)
	_, err = pgx.ForEachRow(rows, []any{&key, &value}, func() error {
		result = append(result, snapshot.Entry{
			SubscriptionID: subscriptionID,
			PlanID:         planID,
			Generation:     gen,
			Key:            key,
			Value:          limitFromNull(value),
			TakenAt:        taken.UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan snapshot of %s: %w", subscriptionID, err)
	}
	return result, nil
}
