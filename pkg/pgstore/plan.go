package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dppkit/dppkit/pkg/manifest"
	"github.com/dppkit/dppkit/pkg/pg"
	"github.com/dppkit/dppkit/pkg/plan"
)

// PlanStore implements plan.Store.
type PlanStore struct {
	db *pgxpool.Pool
}

func NewPlanStore(db *pgxpool.Pool) *PlanStore {
	return &PlanStore{db: db}
}

func (s *PlanStore) GetPlan(ctx context.Context, id uuid.UUID) (*plan.Plan, error) {
	p := &plan.Plan{
		Features:     make(map[manifest.Key]bool),
		Entitlements: make(map[manifest.EntitlementKey]plan.Limit),
	}

	err := s.db.QueryRow(ctx, `SELECT id, name, tier FROM pricing_plans WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Tier)
	if pg.IsNotFoundError(err) {
		return nil, plan.ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get plan %s: %w", id, err)
	}

	rows, err := s.db.Query(ctx, `SELECT feature_key, included FROM pricing_plan_features WHERE pricing_plan_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get plan %s features: %w", id, err)
	}
	var (
		key      manifest.Key
		included bool
	)
	_, err = pgx.ForEachRow(rows, []any{&key, &included}, func() error {
		p.Features[key] = included
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan plan %s features: %w", id, err)
	}

	rows, err = s.db.Query(ctx, `SELECT entitlement_key, value FROM pricing_plan_entitlements WHERE pricing_plan_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get plan %s entitlements: %w", id, err)
	}
	var (
		ekey  manifest.EntitlementKey
		value *int64
	)
	_, err = pgx.ForEachRow(rows, []any{&ekey, &value}, func() error {
		p.Entitlements[ekey] = limitFromNull(value)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan plan %s entitlements: %w", id, err)
	}

	return p, nil
}

func (s *PlanStore) GetModel(ctx context.Context, id uuid.UUID) (*plan.Model, error) {
	var m plan.Model
	query := `
        SELECT id, pricing_plan_id, billing_interval, trial_days, is_active
        FROM subscription_models
        WHERE id = $1
    `
	err := s.db.QueryRow(ctx, query, id).Scan(&m.ID, &m.PlanID, &m.Interval, &m.TrialDays, &m.Active)
	if pg.IsNotFoundError(err) {
		return nil, plan.ErrModelNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get model %s: %w", id, err)
	}
	return &m, nil
}

// SavePlan replaces the plan row and both of its tables in one transaction.
func (s *PlanStore) SavePlan(ctx context.Context, p *plan.Plan) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
            INSERT INTO pricing_plans (id, name, tier) VALUES ($1, $2, $3)
            ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, tier = EXCLUDED.tier, updated_at = now()
        `, p.ID, p.Name, p.Tier)
		if err != nil {
			return fmt.Errorf("save plan %s: %w", p.ID, err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM pricing_plan_features WHERE pricing_plan_id = $1`, p.ID); err != nil {
			return fmt.Errorf("clear plan %s features: %w", p.ID, err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM pricing_plan_entitlements WHERE pricing_plan_id = $1`, p.ID); err != nil {
			return fmt.Errorf("clear plan %s entitlements: %w", p.ID, err)
		}

		batch := &pgx.Batch{}
		for key, included := range p.Features {
			batch.Queue(`INSERT INTO pricing_plan_features (pricing_plan_id, feature_key, included) VALUES ($1, $2, $3)`,
				p.ID, key, included)
		}
		for key, l := range p.Entitlements {
			batch.Queue(`INSERT INTO pricing_plan_entitlements (pricing_plan_id, entitlement_key, value) VALUES ($1, $2, $3)`,
				p.ID, key, l.Ptr())
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("save plan %s tables: %w", p.ID, err)
		}
		return nil
	})
}

func (s *PlanStore) SaveModel(ctx context.Context, m *plan.Model) error {
	query := `
        INSERT INTO subscription_models (id, pricing_plan_id, billing_interval, trial_days, is_active)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (id) DO UPDATE SET
            pricing_plan_id = EXCLUDED.pricing_plan_id,
            billing_interval = EXCLUDED.billing_interval,
            trial_days = EXCLUDED.trial_days,
            is_active = EXCLUDED.is_active
    `
	_, err := s.db.Exec(ctx, query, m.ID, m.PlanID, m.Interval, m.TrialDays, m.Active)
	if pg.IsForeignKeyViolationError(err) {
		return plan.ErrPlanNotFound
	}
	if err != nil {
		return fmt.Errorf("save model %s: %w", m.ID, err)
	}
	return nil
}

// SetEntitlement edits the live plan table only. Snapshots are untouched.
func (s *PlanStore) SetEntitlement(ctx context.Context, planID uuid.UUID, key manifest.EntitlementKey, value plan.Limit) error {
	query := `
        INSERT INTO pricing_plan_entitlements (pricing_plan_id, entitlement_key, value)
        VALUES ($1, $2, $3)
        ON CONFLICT (pricing_plan_id, entitlement_key) DO UPDATE SET value = EXCLUDED.value
    `
	_, err := s.db.Exec(ctx, query, planID, key, value.Ptr())
	switch {
	case pg.IsForeignKeyViolationError(err):
		return plan.ErrPlanNotFound
	case pg.IsCheckViolationError(err):
		return errors.Join(plan.ErrInvalidPlanConfiguration, err)
	case err != nil:
		return fmt.Errorf("set plan %s entitlement %q: %w", planID, key, err)
	}
	return nil
}
