package redisstore_test

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storekit/internal/redisstore"
	"github.com/dmitrymomot/storekit/pkg/quota"
	"github.com/dmitrymomot/storekit/pkg/redis"
)

func testCounters(t *testing.T) *redisstore.Counters {
	t.Helper()
	url := os.Getenv("STOREKIT_TEST_REDIS_URL")
	if url == "" {
		t.Skip("STOREKIT_TEST_REDIS_URL is not set")
	}
	client, err := redis.Connect(context.Background(), redis.Config{ConnectionURL: url, RetryAttempts: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return redisstore.NewCounters(client, "storekit-test:")
}

func TestCounters(t *testing.T) {
	counters := testCounters(t)
	ctx := context.Background()
	tenantID := uuid.New()

	n, err := counters.Get(ctx, tenantID, quota.ResourceAPICalls)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = counters.Increment(ctx, tenantID, quota.ResourceAPICalls, 3, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	_, err = counters.Increment(ctx, tenantID, quota.ResourceAPICalls, 3, 5)
	assert.ErrorIs(t, err, quota.ErrLimitExceeded)

	n, err = counters.Get(ctx, tenantID, quota.ResourceAPICalls)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = counters.Increment(ctx, tenantID, quota.ResourceAPICalls, 1000, quota.Unlimited)
	require.NoError(t, err)
	assert.Equal(t, int64(1003), n)
}

func TestCountersConcurrentLimit(t *testing.T) {
	counters := testCounters(t)
	ctx := context.Background()
	tenantID := uuid.New()

	var (
		wg      sync.WaitGroup
		granted atomic.Int32
	)
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := counters.Increment(ctx, tenantID, quota.ResourceAITasks, 1, 25); err == nil {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(25), granted.Load())
	n, err := counters.Get(ctx, tenantID, quota.ResourceAITasks)
	require.NoError(t, err)
	assert.Equal(t, int64(25), n)
}
