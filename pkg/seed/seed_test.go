package seed_test

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dppkit/dppkit/pkg/manifest"
	"github.com/dppkit/dppkit/pkg/plan"
	"github.com/dppkit/dppkit/pkg/registry"
	"github.com/dppkit/dppkit/pkg/seed"
	"github.com/dppkit/dppkit/pkg/trial"
)

var (
	basicPlanID  = uuid.MustParse("6f0c1c1e-5a43-4a8e-9f55-0d0f6e1b2a01")
	proPlanID    = uuid.MustParse("6f0c1c1e-5a43-4a8e-9f55-0d0f6e1b2a02")
	basicModelID = uuid.MustParse("0b1d7f52-8c55-4c2e-b1c9-5d7a3e3f4b10")
)

type stores struct {
	registry *registry.MemoryStore
	plans    *plan.MemoryStore
	trials   *trial.MemoryStore
	seeder   *seed.Seeder
}

func newStores() *stores {
	m := manifest.Default()
	s := &stores{
		registry: registry.NewMemoryStore(),
		plans:    plan.NewMemoryStore(nil, nil),
		trials:   trial.NewMemoryStore(),
	}
	s.seeder = seed.NewSeeder(m, registry.NewService(m, s.registry), s.plans, trial.NewService(m, s.plans, s.trials))
	return s
}

func loadCatalog(t *testing.T) *seed.Document {
	t.Helper()

	f, err := os.Open("testdata/catalog.yaml")
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	doc, err := seed.Load(f)
	require.NoError(t, err)
	return doc
}

func TestLoad(t *testing.T) {
	t.Parallel()

	doc := loadCatalog(t)
	require.Len(t, doc.Registry, 3)
	require.Len(t, doc.Plans, 2)
	require.Len(t, doc.Models, 2)
	require.Len(t, doc.TrialOverrides, 1)

	pro := doc.Plans[1]
	assert.Equal(t, proPlanID, pro.ID)
	assert.Equal(t, plan.TierPro, pro.Tier)
	assert.Equal(t, plan.Of(100), plan.Limit(pro.Entitlements[manifest.MaxPublishedDPP]))
	assert.True(t, plan.Limit(pro.Entitlements[manifest.MaxTeamMembers]).IsUnlimited())
	assert.True(t, plan.Limit(pro.Entitlements[manifest.MaxStorageMB]).IsUnlimited())

	assert.Equal(t, 20, doc.Registry[0].Config["max_blocks_per_page"])
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{name: "empty", doc: ""},
		{name: "unknown field", doc: "registry:\n  - key: csv_import\n    enabeld: true\n"},
		{name: "bad limit", doc: "plans:\n  - name: x\n    entitlements:\n      max_published_dpp: lots\n"},
		{name: "bad uuid", doc: "models:\n  - id: not-a-uuid\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := seed.Load(strings.NewReader(tt.doc))
			assert.ErrorIs(t, err, seed.ErrParsingDocument)
		})
	}
}

func TestApply(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newStores()
	doc := loadCatalog(t)

	sum, err := s.seeder.Apply(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, seed.Summary{RegistryEntries: 3, Plans: 2, Models: 2, FeatureOverrides: 1, EntitlementOverrides: 1}, sum)

	basic, err := s.plans.GetPlan(ctx, basicPlanID)
	require.NoError(t, err)
	assert.True(t, basic.Includes(manifest.FeatureCSVImport))
	assert.False(t, basic.Includes(manifest.FeatureStorytellingBlocks))

	model, err := s.plans.GetModel(ctx, basicModelID)
	require.NoError(t, err)
	assert.Equal(t, 14, model.TrialDays)

	entry, err := s.registry.Get(ctx, manifest.FeatureCO2Calculation)
	require.NoError(t, err)
	assert.Equal(t, plan.TierPremium, entry.MinimumPlan)

	o, err := s.trials.FeatureOverride(ctx, basicModelID, manifest.FeatureCO2Calculation)
	require.NoError(t, err)
	assert.True(t, o.Enabled)

	t.Run("idempotent", func(t *testing.T) {
		again, err := s.seeder.Apply(ctx, doc)
		require.NoError(t, err)
		assert.Equal(t, sum, again)

		entries, err := s.registry.List(ctx)
		require.NoError(t, err)
		assert.Len(t, entries, 3)
	})
}

func TestApply_Invalid(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("model references unknown plan", func(t *testing.T) {
		t.Parallel()
		s := newStores()
		doc := &seed.Document{
			Models: []seed.Model{{ID: uuid.New(), PlanID: uuid.New(), Interval: plan.IntervalMonthly}},
		}
		_, err := s.seeder.Apply(ctx, doc)
		assert.ErrorIs(t, err, seed.ErrInvalidDocument)
	})

	t.Run("plan with unknown feature writes nothing", func(t *testing.T) {
		t.Parallel()
		s := newStores()
		id := uuid.New()
		doc := &seed.Document{
			Plans: []seed.Plan{{ID: id, Name: "Broken", Tier: plan.TierPro, Features: []manifest.Key{"teleportation"}}},
		}
		_, err := s.seeder.Apply(ctx, doc)
		require.ErrorIs(t, err, seed.ErrInvalidDocument)
		assert.ErrorIs(t, err, manifest.ErrUnknownFeature)

		_, err = s.plans.GetPlan(ctx, id)
		assert.ErrorIs(t, err, plan.ErrPlanNotFound)
	})

	t.Run("registry entry with wrong category", func(t *testing.T) {
		t.Parallel()
		s := newStores()
		doc := &seed.Document{
			Registry: []seed.RegistryEntry{{Key: manifest.FeatureCSVImport, Enabled: true, MinimumPlan: plan.TierBasic, Category: manifest.CategoryBranding}},
		}
		sum, err := s.seeder.Apply(ctx, doc)
		require.ErrorIs(t, err, seed.ErrInvalidDocument)
		assert.ErrorIs(t, err, registry.ErrInvalidEntry)
		assert.Zero(t, sum)
	})

	t.Run("override on core feature", func(t *testing.T) {
		t.Parallel()
		s := newStores()
		doc := loadCatalog(t)
		doc.TrialOverrides[0].Features[manifest.FeaturePassportManagement] = false

		_, err := s.seeder.Apply(ctx, doc)
		require.ErrorIs(t, err, seed.ErrApplyFailed)
		assert.ErrorIs(t, err, trial.ErrInvalidOverride)
	})
}

func TestValidate(t *testing.T) {
	t.Parallel()

	m := manifest.Default()
	require.NoError(t, seed.Validate(m, loadCatalog(t)))

	doc := loadCatalog(t)
	doc.Plans[0].Tier = "gold"
	doc.Models[1].TrialDays = -1
	err := seed.Validate(m, doc)
	require.ErrorIs(t, err, seed.ErrInvalidDocument)
	assert.ErrorIs(t, err, plan.ErrInvalidTier)
	assert.ErrorIs(t, err, plan.ErrInvalidModel)
}
