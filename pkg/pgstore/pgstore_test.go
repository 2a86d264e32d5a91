package pgstore_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dppkit/dppkit/pkg/manifest"
	"github.com/dppkit/dppkit/pkg/pg"
	"github.com/dppkit/dppkit/pkg/pgstore"
	"github.com/dppkit/dppkit/pkg/plan"
	"github.com/dppkit/dppkit/pkg/registry"
	"github.com/dppkit/dppkit/pkg/snapshot"
	"github.com/dppkit/dppkit/pkg/subscription"
	"github.com/dppkit/dppkit/pkg/trial"
	"github.com/dppkit/dppkit/pkg/usage"
)

var (
	poolOnce sync.Once
	testPool *pgxpool.Pool
	poolErr  error
)

// connect returns a migrated pool, or skips when DPPKIT_TEST_PG_URL is unset.
func connect(t *testing.T) *pgxpool.Pool {
	t.Helper()

	url := os.Getenv("DPPKIT_TEST_PG_URL")
	if url == "" {
		t.Skip("DPPKIT_TEST_PG_URL is not set")
	}

	poolOnce.Do(func() {
		ctx := context.Background()
		cfg := pg.Config{
			ConnectionString: url,
			MaxOpenConns:     10,
			MaxIdleConns:     1,
			RetryAttempts:    1,
			MigrationsTable:  "dppkit_schema_migrations",
		}
		testPool, poolErr = pg.Connect(ctx, cfg)
		if poolErr != nil {
			return
		}
		log := slog.New(slog.NewTextHandler(io.Discard, nil))
		poolErr = pg.Migrate(ctx, testPool, cfg, pgstore.Migrations(), pg.MigrateUp, log)
	})
	require.NoError(t, poolErr)
	return testPool
}

func seedPlan(t *testing.T, db *pgxpool.Pool) (*plan.Plan, *plan.Model) {
	t.Helper()
	ctx := context.Background()

	p := &plan.Plan{
		ID:   uuid.New(),
		Name: "Pro",
		Tier: plan.TierPro,
		Features: map[manifest.Key]bool{
			manifest.FeatureCSVImport: true,
		},
		Entitlements: map[manifest.EntitlementKey]plan.Limit{
			manifest.MaxPublishedDPP: plan.Of(5),
			manifest.MaxTeamMembers:  plan.Unlimited(),
		},
	}
	m := &plan.Model{ID: uuid.New(), PlanID: p.ID, Interval: plan.IntervalMonthly, TrialDays: 14, Active: true}

	store := pgstore.NewPlanStore(db)
	require.NoError(t, store.SavePlan(ctx, p))
	require.NoError(t, store.SaveModel(ctx, m))
	return p, m
}

func TestPlanStore(t *testing.T) {
	t.Parallel()
	db := connect(t)
	ctx := context.Background()
	store := pgstore.NewPlanStore(db)

	p, m := seedPlan(t, db)

	got, err := store.GetPlan(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Tier, got.Tier)
	assert.True(t, got.Includes(manifest.FeatureCSVImport))
	assert.Equal(t, plan.Of(5), got.Entitlements[manifest.MaxPublishedDPP])
	assert.True(t, got.Entitlements[manifest.MaxTeamMembers].IsUnlimited())

	gotModel, err := store.GetModel(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, *m, *gotModel)

	require.NoError(t, store.SetEntitlement(ctx, p.ID, manifest.MaxPublishedDPP, plan.Of(9)))
	got, err = store.GetPlan(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.Of(9), got.Entitlements[manifest.MaxPublishedDPP])

	_, err = store.GetPlan(ctx, uuid.New())
	assert.ErrorIs(t, err, plan.ErrPlanNotFound)

	err = store.SaveModel(ctx, &plan.Model{ID: uuid.New(), PlanID: uuid.New(), Interval: plan.IntervalNone})
	assert.ErrorIs(t, err, plan.ErrPlanNotFound)
}

func TestRegistryStore(t *testing.T) {
	t.Parallel()
	db := connect(t)
	ctx := context.Background()
	store := pgstore.NewRegistryStore(db)

	e := &registry.Entry{
		Key:            manifest.FeatureCSVImport,
		Enabled:        true,
		MinimumPlan:    plan.TierBasic,
		VisibleInTrial: true,
		UsableInTrial:  true,
		Category:       manifest.CategoryPassport,
		Config:         map[string]any{"max_rows": float64(500)},
	}
	require.NoError(t, store.Save(ctx, e))

	got, err := store.Get(ctx, manifest.FeatureCSVImport)
	require.NoError(t, err)
	assert.Equal(t, e.MinimumPlan, got.MinimumPlan)
	assert.Equal(t, float64(500), got.Config["max_rows"])
	assert.False(t, got.UpdatedAt.IsZero())

	_, err = store.Get(ctx, "no_such_feature")
	assert.ErrorIs(t, err, registry.ErrEntryNotFound)
}

func TestSubscriptionStore(t *testing.T) {
	t.Parallel()
	db := connect(t)
	ctx := context.Background()
	store := pgstore.NewSubscriptionStore(db)
	_, m := seedPlan(t, db)

	now := time.Now().UTC().Truncate(time.Microsecond)
	sub := &subscription.Subscription{
		ID:                 uuid.New(),
		OrganizationID:     uuid.New(),
		ModelID:            &m.ID,
		Status:             subscription.StatusTrial,
		TrialStartedAt:     &now,
		CurrentPeriodStart: now,
	}

	t.Run("create and read back", func(t *testing.T) {
		require.NoError(t, store.Create(ctx, sub))

		got, err := store.GetByOrganization(ctx, sub.OrganizationID)
		require.NoError(t, err)
		assert.Equal(t, sub.ID, got.ID)
		assert.Equal(t, subscription.StatusTrial, got.Status)
		assert.True(t, got.CurrentPeriodEnd.IsZero())

		err = store.Create(ctx, sub)
		assert.ErrorIs(t, err, subscription.ErrAlreadyExists)
	})

	t.Run("expire trial is a single winner compare and set", func(t *testing.T) {
		var wins atomic.Int32
		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				changed, err := store.ExpireTrial(ctx, sub.ID)
				assert.NoError(t, err)
				if changed {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())

		got, err := store.GetByOrganization(ctx, sub.OrganizationID)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusExpired, got.Status)
	})

	t.Run("trial without model is rejected", func(t *testing.T) {
		bad := &subscription.Subscription{
			ID:                 uuid.New(),
			OrganizationID:     uuid.New(),
			Status:             subscription.StatusTrial,
			TrialStartedAt:     &now,
			CurrentPeriodStart: now,
		}
		err := store.Create(ctx, bad)
		assert.ErrorIs(t, err, subscription.ErrTrialWithoutModel)
	})

	t.Run("update missing row", func(t *testing.T) {
		missing := &subscription.Subscription{
			ID:                 uuid.New(),
			OrganizationID:     uuid.New(),
			Status:             subscription.StatusActive,
			CurrentPeriodStart: now,
		}
		assert.ErrorIs(t, store.Update(ctx, missing), subscription.ErrNotFound)
	})
}

func TestSnapshotStore(t *testing.T) {
	t.Parallel()
	db := connect(t)
	ctx := context.Background()
	subs := pgstore.NewSubscriptionStore(db)
	store := pgstore.NewSnapshotStore(db)
	p, m := seedPlan(t, db)

	sub := &subscription.Subscription{
		ID:                 uuid.New(),
		OrganizationID:     uuid.New(),
		ModelID:            &m.ID,
		Status:             subscription.StatusActive,
		CurrentPeriodStart: time.Now().UTC(),
	}
	require.NoError(t, subs.Create(ctx, sub))

	_, err := store.Get(ctx, sub.ID, manifest.MaxPublishedDPP)
	assert.ErrorIs(t, err, snapshot.ErrNoSnapshot)

	gen, err := store.Take(ctx, sub.ID, p.ID, p.Entitlements)
	require.NoError(t, err)
	assert.Equal(t, 1, gen)

	gen, err = store.Take(ctx, sub.ID, p.ID, map[manifest.EntitlementKey]plan.Limit{
		manifest.MaxPublishedDPP: plan.Of(50),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, gen)

	e, err := store.Get(ctx, sub.ID, manifest.MaxPublishedDPP)
	require.NoError(t, err)
	assert.Equal(t, 2, e.Generation)
	assert.Equal(t, plan.Of(50), e.Value)

	// The latest generation wins, so keys only in generation 1 are gone.
	_, err = store.Get(ctx, sub.ID, manifest.MaxTeamMembers)
	assert.ErrorIs(t, err, snapshot.ErrNotFound)

	entries, err := store.List(ctx, sub.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, manifest.MaxPublishedDPP, entries[0].Key)
}

func TestTrialStore(t *testing.T) {
	t.Parallel()
	db := connect(t)
	ctx := context.Background()
	store := pgstore.NewTrialStore(db)
	_, m := seedPlan(t, db)

	_, err := store.FeatureOverride(ctx, m.ID, manifest.FeatureCSVImport)
	assert.ErrorIs(t, err, trial.ErrNotFound)

	require.NoError(t, store.SetFeatureOverride(ctx, trial.FeatureOverride{ModelID: m.ID, Key: manifest.FeatureCSVImport, Enabled: false}))
	require.NoError(t, store.SetEntitlementOverride(ctx, trial.EntitlementOverride{ModelID: m.ID, Key: manifest.MaxPublishedDPP, Value: plan.Of(1)}))

	fo, err := store.FeatureOverride(ctx, m.ID, manifest.FeatureCSVImport)
	require.NoError(t, err)
	assert.False(t, fo.Enabled)

	all, err := store.ListByModel(ctx, m.ID)
	require.NoError(t, err)
	assert.Len(t, all.Features, 1)
	assert.Len(t, all.Entitlements, 1)

	require.NoError(t, store.DeleteEntitlementOverride(ctx, m.ID, manifest.MaxPublishedDPP))
	_, err = store.EntitlementOverride(ctx, m.ID, manifest.MaxPublishedDPP)
	assert.ErrorIs(t, err, trial.ErrNotFound)

	err = store.SetFeatureOverride(ctx, trial.FeatureOverride{ModelID: uuid.New(), Key: manifest.FeatureCSVImport})
	assert.ErrorIs(t, err, plan.ErrModelNotFound)
}

func TestCounters(t *testing.T) {
	t.Parallel()
	db := connect(t)
	ctx := context.Background()
	org := uuid.New()

	for _, status := range []string{"draft", "published", "published", "archived"} {
		_, err := db.Exec(ctx, `INSERT INTO passports (id, organization_id, status) VALUES ($1, $2, $3)`, uuid.New(), org, status)
		require.NoError(t, err)
	}
	_, err := db.Exec(ctx, `INSERT INTO media_assets (id, organization_id, size_bytes) VALUES ($1, $2, $3)`, uuid.New(), org, 1048577)
	require.NoError(t, err)

	reg := usage.NewRegistry()
	pgstore.NewCounters(db).RegisterCounters(reg)

	n, err := reg.Count(ctx, manifest.MaxPublishedDPP, org)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = reg.Count(ctx, manifest.MaxDraftDPP, org)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = reg.Count(ctx, manifest.MaxStorageMB, org)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = reg.Count(ctx, manifest.MaxTeamMembers, org)
	require.NoError(t, err)
	assert.Zero(t, n)
}
