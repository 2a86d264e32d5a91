package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dppkit/dppkit/pkg/manifest"
	"github.com/dppkit/dppkit/pkg/pg"
	"github.com/dppkit/dppkit/pkg/registry"
)

// RegistryStore implements registry.Store.
type RegistryStore struct {
	db *pgxpool.Pool
}

func NewRegistryStore(db *pgxpool.Pool) *RegistryStore {
	return &RegistryStore{db: db}
}

const registryColumns = `key, enabled, minimum_plan, visible_in_trial, usable_in_trial, category, config, updated_at`

func scanEntry(row pgx.Row) (*registry.Entry, error) {
	var e registry.Entry
	err := row.Scan(
		&e.Key,
		&e.Enabled,
		&e.MinimumPlan,
		&e.VisibleInTrial,
		&e.UsableInTrial,
		&e.Category,
		&e.Config,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(e.Config) == 0 {
		e.Config = nil
	}
	return &e, nil
}

func (s *RegistryStore) Get(ctx context.Context, key manifest.Key) (*registry.Entry, error) {
	query := `SELECT ` + registryColumns + ` FROM feature_registry WHERE key = $1`

	e, err := scanEntry(s.db.QueryRow(ctx, query, key))
	if pg.IsNotFoundError(err) {
		return nil, registry.ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get registry entry %q: %w", key, err)
	}
	return e, nil
}

func (s *RegistryStore) List(ctx context.Context) ([]*registry.Entry, error) {
	query := `SELECT ` + registryColumns + ` FROM feature_registry ORDER BY key`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list registry entries: %w", err)
	}
	defer rows.Close()

	var result []*registry.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registry entry: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func (s *RegistryStore) Save(ctx context.Context, e *registry.Entry) error {
	cfg := e.Config
	if cfg == nil {
		cfg = map[string]any{}
	}

	query := `
        INSERT INTO feature_registry (key, enabled, minimum_plan, visible_in_trial, usable_in_trial, category, config, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, now())
        ON CONFLICT (key) DO UPDATE SET
            enabled = EXCLUDED.enabled,
            minimum_plan = EXCLUDED.minimum_plan,
            visible_in_trial = EXCLUDED.visible_in_trial,
            usable_in_trial = EXCLUDED.usable_in_trial,
            category = EXCLUDED.category,
            config = EXCLUDED.config,
            updated_at = now()
    `
	_, err := s.db.Exec(ctx, query,
		e.Key,
		e.Enabled,
		e.MinimumPlan,
		e.VisibleInTrial,
		e.UsableInTrial,
		e.Category,
		cfg,
	)
	if err != nil {
		return fmt.Errorf("save registry entry %q: %w", e.Key, err)
	}
	return nil
}
