package subscription_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dppkit/dppkit/pkg/plan"
	"github.com/dppkit/dppkit/pkg/subscription"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func clockAt(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// countingStore records how many ExpireTrial calls actually changed a row.
type countingStore struct {
	*subscription.MemoryStore
	writes atomic.Int32
}

func (s *countingStore) ExpireTrial(ctx context.Context, id uuid.UUID) (bool, error) {
	changed, err := s.MemoryStore.ExpireTrial(ctx, id)
	if changed {
		s.writes.Add(1)
	}
	return changed, err
}

func trialSub(model *plan.Model, startedAt time.Time) *subscription.Subscription {
	end := model.TrialEndsAt(startedAt)
	return &subscription.Subscription{
		ID:                 uuid.New(),
		OrganizationID:     uuid.New(),
		ModelID:            &model.ID,
		Status:             subscription.StatusTrial,
		TrialStartedAt:     &startedAt,
		TrialExpiresAt:     &end,
		CurrentPeriodStart: startedAt,
		CurrentPeriodEnd:   end,
	}
}

func trialModel() *plan.Model {
	return &plan.Model{ID: uuid.New(), PlanID: uuid.New(), Interval: plan.IntervalMonthly, TrialDays: 14, Active: true}
}

func TestClassifier_Classify(t *testing.T) {
	t.Parallel()

	t.Run("no subscription is none", func(t *testing.T) {
		t.Parallel()

		c := subscription.NewClassifier(subscription.NewMemoryStore())
		class, err := c.Classify(context.Background(), nil, nil)
		require.NoError(t, err)
		assert.Equal(t, subscription.ClassNone, class)
	})

	t.Run("settled statuses", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			status subscription.Status
			want   subscription.Class
		}{
			{subscription.StatusActive, subscription.ClassActive},
			{subscription.StatusExpired, subscription.ClassExpired},
			{subscription.StatusPastDue, subscription.ClassExpired},
			{subscription.StatusCanceled, subscription.ClassCanceled},
			{"suspended", subscription.ClassNone},
			{"", subscription.ClassNone},
		}

		c := subscription.NewClassifier(subscription.NewMemoryStore())
		for _, tt := range tests {
			sub := &subscription.Subscription{ID: uuid.New(), OrganizationID: uuid.New(), Status: tt.status}
			class, err := c.Classify(context.Background(), sub, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, class, "status %q", tt.status)
		}
	})

	t.Run("active ignores a running trial window", func(t *testing.T) {
		t.Parallel()

		model := trialModel()
		sub := trialSub(model, epoch)
		sub.Status = subscription.StatusActive

		c := subscription.NewClassifier(subscription.NewMemoryStore(sub), subscription.WithClock(clockAt(epoch.Add(time.Hour))))
		class, err := c.Classify(context.Background(), sub, model)
		require.NoError(t, err)
		assert.Equal(t, subscription.ClassActive, class)
	})

	t.Run("inside trial window", func(t *testing.T) {
		t.Parallel()

		model := trialModel()
		sub := trialSub(model, epoch)
		store := &countingStore{MemoryStore: subscription.NewMemoryStore(sub)}

		c := subscription.NewClassifier(store, subscription.WithClock(clockAt(epoch.AddDate(0, 0, 14).Add(-time.Nanosecond))))
		class, err := c.Classify(context.Background(), sub, model)
		require.NoError(t, err)
		assert.Equal(t, subscription.ClassTrial, class)
		assert.Zero(t, store.writes.Load())
	})

	t.Run("legacy trial status", func(t *testing.T) {
		t.Parallel()

		model := trialModel()
		sub := trialSub(model, epoch)
		sub.Status = subscription.StatusTrialActive

		c := subscription.NewClassifier(subscription.NewMemoryStore(sub), subscription.WithClock(clockAt(epoch.Add(time.Hour))))
		class, err := c.Classify(context.Background(), sub, model)
		require.NoError(t, err)
		assert.Equal(t, subscription.ClassTrial, class)
	})

	t.Run("boundary expires exactly once", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		model := trialModel()
		sub := trialSub(model, epoch)
		store := &countingStore{MemoryStore: subscription.NewMemoryStore(sub)}
		c := subscription.NewClassifier(store, subscription.WithClock(clockAt(epoch.AddDate(0, 0, 14))))

		for range 3 {
			row, err := store.GetByOrganization(ctx, sub.OrganizationID)
			require.NoError(t, err)

			class, err := c.Classify(ctx, row, model)
			require.NoError(t, err)
			assert.Equal(t, subscription.ClassExpired, class)
		}
		assert.Equal(t, int32(1), store.writes.Load())

		row, err := store.GetByOrganization(ctx, sub.OrganizationID)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusExpired, row.Status)
	})

	t.Run("stale copy reports post-transition class", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		model := trialModel()
		sub := trialSub(model, epoch)
		store := &countingStore{MemoryStore: subscription.NewMemoryStore(sub)}
		c := subscription.NewClassifier(store, subscription.WithClock(clockAt(epoch.AddDate(0, 1, 0))))

		stale := sub.Clone()
		class, err := c.Classify(ctx, sub, model)
		require.NoError(t, err)
		assert.Equal(t, subscription.ClassExpired, class)

		class, err = c.Classify(ctx, stale, model)
		require.NoError(t, err)
		assert.Equal(t, subscription.ClassExpired, class)
		assert.Equal(t, subscription.StatusExpired, stale.Status)
		assert.Equal(t, int32(1), store.writes.Load())
	})

	t.Run("lost race to activation", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		model := trialModel()
		sub := trialSub(model, epoch)
		store := subscription.NewMemoryStore(sub)

		paid := sub.Clone()
		paid.Status = subscription.StatusActive
		require.NoError(t, store.Update(ctx, paid))

		c := subscription.NewClassifier(store, subscription.WithClock(clockAt(epoch.AddDate(0, 1, 0))))
		class, err := c.Classify(ctx, sub, model)
		require.NoError(t, err)
		assert.Equal(t, subscription.ClassActive, class)
	})

	t.Run("concurrent classification writes once", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		model := trialModel()
		sub := trialSub(model, epoch)
		store := &countingStore{MemoryStore: subscription.NewMemoryStore(sub)}
		c := subscription.NewClassifier(store, subscription.WithClock(clockAt(epoch.AddDate(0, 0, 20))))

		var wg sync.WaitGroup
		classes := make([]subscription.Class, 16)
		for i := range classes {
			wg.Add(1)
			go func() {
				defer wg.Done()
				class, err := c.Classify(ctx, sub.Clone(), model)
				assert.NoError(t, err)
				classes[i] = class
			}()
		}
		wg.Wait()

		for _, class := range classes {
			assert.Equal(t, subscription.ClassExpired, class)
		}
		assert.Equal(t, int32(1), store.writes.Load())
	})

	t.Run("falls back to stored expiry without model", func(t *testing.T) {
		t.Parallel()

		model := trialModel()
		sub := trialSub(model, epoch)
		expires := epoch.AddDate(0, 0, 30)
		sub.TrialExpiresAt = &expires

		c := subscription.NewClassifier(subscription.NewMemoryStore(sub), subscription.WithClock(clockAt(epoch.AddDate(0, 0, 20))))
		class, err := c.Classify(context.Background(), sub, nil)
		require.NoError(t, err)
		assert.Equal(t, subscription.ClassTrial, class)
	})

	t.Run("trial without model is expired", func(t *testing.T) {
		t.Parallel()

		sub := trialSub(trialModel(), epoch)
		sub.ModelID = nil
		store := &countingStore{MemoryStore: subscription.NewMemoryStore(sub)}

		c := subscription.NewClassifier(store, subscription.WithClock(clockAt(epoch)))
		class, err := c.Classify(context.Background(), sub, nil)
		require.NoError(t, err)
		assert.Equal(t, subscription.ClassExpired, class)
		assert.Equal(t, int32(1), store.writes.Load())
	})

	t.Run("trial without any window is expired", func(t *testing.T) {
		t.Parallel()

		sub := trialSub(trialModel(), epoch)
		sub.TrialStartedAt, sub.TrialExpiresAt = nil, nil

		c := subscription.NewClassifier(subscription.NewMemoryStore(sub), subscription.WithClock(clockAt(epoch)))
		class, err := c.Classify(context.Background(), sub, nil)
		require.NoError(t, err)
		assert.Equal(t, subscription.ClassExpired, class)
	})
}

func TestSubscription_Validate(t *testing.T) {
	t.Parallel()

	model := trialModel()

	t.Run("trial requires model", func(t *testing.T) {
		t.Parallel()

		sub := trialSub(model, epoch)
		sub.ModelID = nil
		err := sub.Validate()
		assert.ErrorIs(t, err, subscription.ErrInvalidState)
		assert.ErrorIs(t, err, subscription.ErrTrialWithoutModel)

		nilID := uuid.Nil
		sub.ModelID = &nilID
		assert.ErrorIs(t, sub.Validate(), subscription.ErrTrialWithoutModel)
	})

	t.Run("trial requires start", func(t *testing.T) {
		t.Parallel()

		sub := trialSub(model, epoch)
		sub.TrialStartedAt = nil
		assert.ErrorIs(t, sub.Validate(), subscription.ErrInvalidState)
	})

	t.Run("unknown status", func(t *testing.T) {
		t.Parallel()

		sub := trialSub(model, epoch)
		sub.Status = "paused"
		assert.ErrorIs(t, sub.Validate(), subscription.ErrInvalidState)
	})

	t.Run("store rejects invalid trial at write time", func(t *testing.T) {
		t.Parallel()

		sub := trialSub(model, epoch)
		sub.ModelID = nil
		err := subscription.NewMemoryStore().Create(context.Background(), sub)
		assert.ErrorIs(t, err, subscription.ErrTrialWithoutModel)
	})

	t.Run("active without model is valid", func(t *testing.T) {
		t.Parallel()

		sub := &subscription.Subscription{ID: uuid.New(), OrganizationID: uuid.New(), Status: subscription.StatusActive}
		assert.NoError(t, sub.Validate())
	})
}

func TestCanTransition(t *testing.T) {
	t.Parallel()

	assert.True(t, subscription.CanTransition(subscription.ClassNone, subscription.ClassTrial))
	assert.True(t, subscription.CanTransition(subscription.ClassTrial, subscription.ClassActive))
	assert.True(t, subscription.CanTransition(subscription.ClassCanceled, subscription.ClassActive))
	assert.False(t, subscription.CanTransition(subscription.ClassExpired, subscription.ClassTrial))
	assert.False(t, subscription.CanTransition(subscription.ClassCanceled, subscription.ClassTrial))
	assert.False(t, subscription.CanTransition(subscription.ClassNone, subscription.ClassCanceled))
	assert.False(t, subscription.CanTransition(subscription.ClassExpired, subscription.ClassCanceled))
}
