package usage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dppkit/dppkit/pkg/capability"
	"github.com/dppkit/dppkit/pkg/manifest"
	"github.com/dppkit/dppkit/pkg/plan"
	"github.com/dppkit/dppkit/pkg/usage"
)

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) ResolveEntitlement(ctx context.Context, key manifest.EntitlementKey, subject capability.Subject) (capability.Grant, error) {
	args := m.Called(ctx, key, subject)
	return args.Get(0).(capability.Grant), args.Error(1)
}

func (m *mockResolver) CheckLimit(ctx context.Context, key manifest.EntitlementKey, n int64, subject capability.Subject) (capability.LimitCheck, error) {
	args := m.Called(ctx, key, n, subject)
	return args.Get(0).(capability.LimitCheck), args.Error(1)
}

func fixed(n int64) usage.CounterFunc {
	return func(context.Context, uuid.UUID) (int64, error) { return n, nil }
}

func TestEnforcer_CanCreate(t *testing.T) {
	t.Parallel()

	subject := capability.Subject{OrganizationID: uuid.New()}

	tests := []struct {
		name    string
		grant   capability.Grant
		counter usage.CounterFunc
		wantErr error
	}{
		{
			name:    "below limit",
			grant:   capability.Grant{Limit: plan.Of(5), Active: true},
			counter: fixed(4),
		},
		{
			name:    "at limit",
			grant:   capability.Grant{Limit: plan.Of(5), Active: true},
			counter: fixed(5),
			wantErr: usage.ErrLimitExceeded,
		},
		{
			name:  "unlimited skips counting",
			grant: capability.Grant{Limit: plan.Unlimited(), Active: true},
			counter: func(context.Context, uuid.UUID) (int64, error) {
				panic("counter must not run for unlimited grants")
			},
		},
		{
			name:    "inactive",
			grant:   capability.Grant{Source: capability.SourceNone},
			counter: fixed(0),
			wantErr: usage.ErrNoActiveSubscription,
		},
		{
			name:  "counter failure",
			grant: capability.Grant{Limit: plan.Of(5), Active: true},
			counter: func(context.Context, uuid.UUID) (int64, error) {
				return 0, errors.New("db down")
			},
			wantErr: usage.ErrFailedToCountUsage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := &mockResolver{}
			r.On("ResolveEntitlement", mock.Anything, manifest.MaxPublishedDPP, subject).Return(tt.grant, nil)

			reg := usage.NewRegistry()
			reg.Register(manifest.MaxPublishedDPP, tt.counter)

			err := usage.NewEnforcer(r, reg).CanCreate(context.Background(), manifest.MaxPublishedDPP, subject)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			r.AssertExpectations(t)
		})
	}
}

func TestEnforcer_Check(t *testing.T) {
	t.Parallel()

	subject := capability.Subject{OrganizationID: uuid.New()}
	limit, remaining := int64(5), int64(0)
	want := capability.LimitCheck{Key: manifest.MaxPublishedDPP, Active: true, Usage: 5, Limit: &limit, Remaining: &remaining}

	r := &mockResolver{}
	r.On("CheckLimit", mock.Anything, manifest.MaxPublishedDPP, int64(5), subject).Return(want, nil)

	reg := usage.NewRegistry()
	reg.Register(manifest.MaxPublishedDPP, fixed(5))

	got, err := usage.NewEnforcer(r, reg).Check(context.Background(), manifest.MaxPublishedDPP, subject)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = usage.NewEnforcer(r, reg).Check(context.Background(), manifest.MaxAPIKeys, subject)
	assert.ErrorIs(t, err, usage.ErrNoCounterRegistered)
}

func TestRegistry_Register(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { usage.NewRegistry().Register(manifest.MaxAPIKeys, nil) })
	assert.Panics(t, func() { usage.NewEnforcer(nil, nil) })
}
