package pgstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dppkit/dppkit/pkg/manifest"
	"github.com/dppkit/dppkit/pkg/pg"
	"github.com/dppkit/dppkit/pkg/plan"
	"github.com/dppkit/dppkit/pkg/trial"
)

// TrialStore implements trial.Store.
type TrialStore struct {
	db *pgxpool.Pool
}

func NewTrialStore(db *pgxpool.Pool) *TrialStore {
	return &TrialStore{db: db}
}

func (s *TrialStore) FeatureOverride(ctx context.Context, modelID uuid.UUID, key manifest.Key) (trial.FeatureOverride, error) {
	o := trial.FeatureOverride{ModelID: modelID, Key: key}
	err := s.db.QueryRow(ctx,
		`SELECT enabled FROM trial_feature_overrides WHERE subscription_model_id = $1 AND feature_key = $2`,
		modelID, key,
	).Scan(&o.Enabled)
	if pg.IsNotFoundError(err) {
		return trial.FeatureOverride{}, trial.ErrNotFound
	}
	if err != nil {
		return trial.FeatureOverride{}, fmt.Errorf("get trial feature override %s/%s: %w", modelID, key, err)
	}
	return o, nil
}

func (s *TrialStore) EntitlementOverride(ctx context.Context, modelID uuid.UUID, key manifest.EntitlementKey) (trial.EntitlementOverride, error) {
	var value *int64
	err := s.db.QueryRow(ctx,
		`SELECT value FROM trial_entitlement_overrides WHERE subscription_model_id = $1 AND entitlement_key = $2`,
		modelID, key,
	).Scan(&value)
	if pg.IsNotFoundError(err) {
		return trial.EntitlementOverride{}, trial.ErrNotFound
	}
	if err != nil {
		return trial.EntitlementOverride{}, fmt.Errorf("get trial entitlement override %s/%s: %w", modelID, key, err)
	}
	return trial.EntitlementOverride{ModelID: modelID, Key: key, Value: limitFromNull(value)}, nil
}

func (s *TrialStore) ListByModel(ctx context.Context, modelID uuid.UUID) (trial.Overrides, error) {
	out := trial.Overrides{
		Features:     make([]trial.FeatureOverride, 0),
		Entitlements: make([]trial.EntitlementOverride, 0),
	}

	rows, err := s.db.Query(ctx,
		`SELECT feature_key, enabled FROM trial_feature_overrides WHERE subscription_model_id = $1 ORDER BY feature_key`,
		modelID,
	)
	if err != nil {
		return trial.Overrides{}, fmt.Errorf("list trial feature overrides of %s: %w", modelID, err)
	}
	var (
		fkey    manifest.Key
		enabled bool
	)
	_, err = pgx.ForEachRow(rows, []any{&fkey, &enabled}, func() error {
		out.Features = append(out.Features, trial.FeatureOverride{ModelID: modelID, Key: fkey, Enabled: enabled})
		return nil
	})
	if err != nil {
		return trial.Overrides{}, fmt.Errorf("scan trial feature overrides of %s: %w", modelID, err)
	}

	rows, err = s.db.Query(ctx,
		`SELECT entitlement_key, value FROM trial_entitlement_overrides WHERE subscription_model_id = $1 ORDER BY entitlement_key`,
		modelID,
	)
	if err != nil {
		return trial.Overrides{}, fmt.Errorf("list trial entitlement overrides of %s: %w", modelID, err)
	}
	var (
		ekey  manifest.EntitlementKey
		value *int64
	)
	_, err = pgx.ForEachRow(rows, []any{&ekey, &value}, func() error {
		out.Entitlements = append(out.Entitlements, trial.EntitlementOverride{ModelID: modelID, Key: ekey, Value: limitFromNull(value)})
		return nil
	})
	if err != nil {
		return trial.Overrides{}, fmt.Errorf("scan trial entitlement overrides of %s: %w", modelID, err)
	}

	return out, nil
}

func (s *TrialStore) SetFeatureOverride(ctx context.Context, o trial.FeatureOverride) error {
	query := `
        INSERT INTO trial_feature_overrides (subscription_model_id, feature_key, enabled)
        VALUES ($1, $2, $3)
        ON CONFLICT (subscription_model_id, feature_key) DO UPDATE SET enabled = EXCLUDED.enabled
    `
	_, err := s.db.Exec(ctx, query, o.ModelID, o.Key, o.Enabled)
	if pg.IsForeignKeyViolationError(err) {
		return plan.ErrModelNotFound
	}
	if err != nil {
		return fmt.Errorf("set trial feature override %s/%s: %w", o.ModelID, o.Key, err)
	}
	return nil
}

func (s *TrialStore) SetEntitlementOverride(ctx context.Context, o trial.EntitlementOverride) error {
	query := `
        INSERT INTO trial_entitlement_overrides (subscription_model_id, entitlement_key, value)
        VALUES ($1, $2, $3)
        ON CONFLICT (subscription_model_id, entitlement_key) DO UPDATE SET value = EXCLUDED.value
    `
	_, err := s.db.Exec(ctx, query, o.ModelID, o.Key, o.Value.Ptr())
	switch {
	case pg.IsForeignKeyViolationError(err):
		return plan.ErrModelNotFound
	case pg.IsCheckViolationError(err):
		return trial.ErrInvalidOverride
	case err != nil:
		return fmt.Errorf("set trial entitlement override %s/%s: %w", o.ModelID, o.Key, err)
	}
	return nil
}

func (s *TrialStore) DeleteFeatureOverride(ctx context.Context, modelID uuid.UUID, key manifest.Key) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM trial_feature_overrides WHERE subscription_model_id = $1 AND feature_key = $2`,
		modelID, key,
	)
	if err != nil {
		return fmt.Errorf("delete trial feature override %s/%s: %w", modelID, key, err)
	}
	return nil
}

func (s *TrialStore) DeleteEntitlementOverride(ctx context.Context, modelID uuid.UUID, key manifest.EntitlementKey) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM trial_entitlement_overrides WHERE subscription_model_id = $1 AND entitlement_key = $2`,
		modelID, key,
	)
	if err != nil {
		return fmt.Errorf("delete trial entitlement override %s/%s: %w", modelID, key, err)
	}
	return nil
}
