package ratelimit_test

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dppkit/dppkit/pkg/org"
	"github.com/dppkit/dppkit/pkg/ratelimit"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newLimiter(t *testing.T, capacity, rate int) (*ratelimit.Limiter, *clock) {
	t.Helper()

	c := &clock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	l, err := ratelimit.New(ratelimit.Config{Capacity: capacity, RefillRate: rate, RefillInterval: time.Second}, ratelimit.WithClock(c.Now))
	require.NoError(t, err)
	return l, c
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()

	for _, cfg := range []ratelimit.Config{
		{Capacity: 0, RefillRate: 1, RefillInterval: time.Second},
		{Capacity: 1, RefillRate: 0, RefillInterval: time.Second},
		{Capacity: 1, RefillRate: 1},
	} {
		_, err := ratelimit.New(cfg)
		assert.ErrorIs(t, err, ratelimit.ErrInvalidConfig)
	}
}

func TestLimiter_Allow(t *testing.T) {
	t.Parallel()

	l, c := newLimiter(t, 3, 1)

	for i := range 3 {
		res := l.Allow("a")
		require.True(t, res.Allowed(), "request %d", i)
		assert.Equal(t, 2-i, res.Remaining)
	}

	res := l.Allow("a")
	assert.False(t, res.Allowed())
	assert.Equal(t, time.Second, res.RetryAfter(c.Now()))

	assert.True(t, l.Allow("b").Allowed(), "buckets are per key")

	// Repeated rejections do not push recovery further out.
	l.Allow("a")
	l.Allow("a")
	c.Advance(time.Second)
	assert.True(t, l.Allow("a").Allowed())
}

func TestLimiter_RefillCapsAtCapacity(t *testing.T) {
	t.Parallel()

	l, c := newLimiter(t, 2, 5)
	l.Allow("a")
	c.Advance(time.Hour)
	assert.Equal(t, 1, l.Allow("a").Remaining)
}

func TestLimiter_Prune(t *testing.T) {
	t.Parallel()

	l, c := newLimiter(t, 2, 1)
	l.Allow("old")
	c.Advance(2 * time.Hour)
	l.Allow("fresh")

	assert.Equal(t, 1, l.Prune(time.Hour))
	assert.Equal(t, 0, l.Prune(time.Hour))
}

func TestByClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded first valid", headers: map[string]string{"X-Forwarded-For": "garbage, 203.0.113.7, 10.0.0.1"}, remote: "10.0.0.2:1234", want: "ip:203.0.113.7"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "2001:db8::1"}, remote: "10.0.0.2:1234", want: "ip:2001:db8::1"},
		{name: "remote addr", remote: "198.51.100.4:5555", want: "ip:198.51.100.4"},
		{name: "unparseable", remote: "pipe", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ratelimit.ByClientIP(r))
		})
	}
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	l, _ := newLimiter(t, 1, 1)
	orgID := uuid.New()
	h := ratelimit.Middleware(l, ratelimit.ByOrganization, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	call := func(withOrg bool) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if withOrg {
			r = r.WithContext(org.WithIdentity(r.Context(), org.Identity{OrganizationID: orgID}))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec
	}

	rec := call(true)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = call(true)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	rec = call(false)
	assert.Equal(t, http.StatusNoContent, rec.Code, "requests without a key pass through")
}
