package ratelimit_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storekit/pkg/ratelimit"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newLimiter(t *testing.T, clock *fakeClock, capacity int) *ratelimit.Limiter {
	t.Helper()
	store := ratelimit.NewMemoryStore(ratelimit.WithClock(clock.Now), ratelimit.WithIdleTTL(0))
	t.Cleanup(store.Close)
	l, err := ratelimit.New(store, ratelimit.Config{Capacity: capacity, RefillRate: 1, RefillInterval: time.Second})
	require.NoError(t, err)
	return l
}

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := ratelimit.New(ratelimit.NewMemoryStore(ratelimit.WithIdleTTL(0)), ratelimit.Config{})
	assert.ErrorIs(t, err, ratelimit.ErrInvalidConfig)

	_, err = ratelimit.New(nil, ratelimit.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Second})
	assert.ErrorIs(t, err, ratelimit.ErrInvalidConfig)
}

func TestLimiter(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := newLimiter(t, clock, 3)
	ctx := context.Background()

	for i := 2; i >= 0; i-- {
		res, err := l.Allow(ctx, "tenant-a")
		require.NoError(t, err)
		assert.True(t, res.Allowed())
		assert.Equal(t, i, res.Remaining)
	}

	res, err := l.Allow(ctx, "tenant-a")
	require.NoError(t, err)
	assert.False(t, res.Allowed())
	assert.Equal(t, time.Second, res.RetryAfter(clock.Now()))

	other, err := l.Allow(ctx, "tenant-b")
	require.NoError(t, err)
	assert.True(t, other.Allowed(), "buckets are per key")

	clock.Advance(2 * time.Second)
	res, err = l.Allow(ctx, "tenant-a")
	require.NoError(t, err)
	assert.True(t, res.Allowed())
	assert.Equal(t, 1, res.Remaining)

	clock.Advance(time.Hour)
	res, err = l.AllowN(ctx, "tenant-a", 3)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Remaining, "refill never passes capacity")

	_, err = l.AllowN(ctx, "tenant-a", 0)
	assert.ErrorIs(t, err, ratelimit.ErrInvalidTokenCount)
}

func TestLimiter_RefusedTakeKeepsTokens(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{now: time.Now()}
	l := newLimiter(t, clock, 5)
	ctx := context.Background()

	res, err := l.AllowN(ctx, "k", 6)
	require.NoError(t, err)
	assert.False(t, res.Allowed())

	res, err = l.AllowN(ctx, "k", 5)
	require.NoError(t, err)
	assert.True(t, res.Allowed())
}

type brokenStore struct{}

func (brokenStore) Take(context.Context, string, int, ratelimit.Config) (int, time.Time, error) {
	return 0, time.Time{}, errors.New("down")
}

func TestMiddleware(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{now: time.Now()}
	l := newLimiter(t, clock, 1)

	var limited bool
	h := ratelimit.Middleware(l,
		func(r *http.Request) string { return r.Header.Get("X-Key") },
		ratelimit.WithLimitedHandler(func(w http.ResponseWriter, _ *http.Request, res ratelimit.Result) {
			limited = true
			w.WriteHeader(http.StatusTooManyRequests)
		}),
	)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("X-Key", key)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := do("a")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = do("a")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.True(t, limited)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusNoContent, do("").Code, "empty key is not limited")
}

func TestMiddleware_StoreFailure(t *testing.T) {
	t.Parallel()
	l, err := ratelimit.New(brokenStore{}, ratelimit.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Second})
	require.NoError(t, err)
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	key := func(*http.Request) string { return "k" }

	rec := httptest.NewRecorder()
	ratelimit.Middleware(l, key)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "fails open by default")

	rec = httptest.NewRecorder()
	ratelimit.Middleware(l, key, ratelimit.WithErrorHandler(func(w http.ResponseWriter, _ *http.Request, err error) {
		assert.ErrorIs(t, err, ratelimit.ErrStoreUnavailable)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
