package pgstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dppkit/dppkit/pkg/manifest"
	"github.com/dppkit/dppkit/pkg/usage"
)

// Counters computes live usage from the product tables.
type Counters struct {
	db *pgxpool.Pool
}

func NewCounters(db *pgxpool.Pool) *Counters {
	return &Counters{db: db}
}

// RegisterCounters binds every entitlement key to its counting query.
func (c *Counters) RegisterCounters(r usage.Registry) {
	r.Register(manifest.MaxPublishedDPP, c.PublishedPassports)
	r.Register(manifest.MaxDraftDPP, c.DraftPassports)
	r.Register(manifest.MaxTeamMembers, c.TeamMembers)
	r.Register(manifest.MaxAPIKeys, c.APIKeys)
	r.Register(manifest.MaxStorageMB, c.StorageMB)
	r.Register(manifest.MaxLanguages, c.Languages)
}

// PublishedPassports counts only published passports. Drafts and archived
// passports never consume the published limit.
func (c *Counters) PublishedPassports(ctx context.Context, organizationID uuid.UUID) (int64, error) {
	return c.count(ctx, `SELECT count(*) FROM passports WHERE organization_id = $1 AND status = 'published'`, organizationID)
}

func (c *Counters) DraftPassports(ctx context.Context, organizationID uuid.UUID) (int64, error) {
	return c.count(ctx, `SELECT count(*) FROM passports WHERE organization_id = $1 AND status = 'draft'`, organizationID)
}

func (c *Counters) TeamMembers(ctx context.Context, organizationID uuid.UUID) (int64, error) {
	return c.count(ctx, `SELECT count(*) FROM organization_members WHERE organization_id = $1 AND removed_at IS NULL`, organizationID)
}

func (c *Counters) APIKeys(ctx context.Context, organizationID uuid.UUID) (int64, error) {
	return c.count(ctx, `SELECT count(*) FROM api_keys WHERE organization_id = $1 AND revoked_at IS NULL`, organizationID)
}

// StorageMB rounds up so a single byte over a boundary counts as a megabyte.
func (c *Counters) StorageMB(ctx context.Context, organizationID uuid.UUID) (int64, error) {
	return c.count(ctx, `
        SELECT COALESCE(CEIL(SUM(size_bytes) / 1048576.0), 0)::BIGINT
        FROM media_assets
        WHERE organization_id = $1 AND deleted_at IS NULL
    `, organizationID)
}

func (c *Counters) Languages(ctx context.Context, organizationID uuid.UUID) (int64, error) {
	return c.count(ctx, `SELECT count(*) FROM passport_languages WHERE organization_id = $1`, organizationID)
}

func (c *Counters) count(ctx context.Context, query string, organizationID uuid.UUID) (int64, error) {
	var n int64
	if err := c.db.QueryRow(ctx, query, organizationID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count usage of organization %s: %w", organizationID, err)
	}
	return n, nil
}
