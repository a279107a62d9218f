package quota_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storekit/pkg/quota"
)

type recordingObserver struct {
	mu        sync.Mutex
	decisions map[string]int
}

func (o *recordingObserver) ObserveDecision(_ quota.Resource, decision string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.decisions == nil {
		o.decisions = make(map[string]int)
	}
	o.decisions[decision]++
}

func (o *recordingObserver) count(decision string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.decisions[decision]
}

type fixedCounts map[quota.Resource]*atomic.Int64

func (f fixedCounts) registry() quota.CounterRegistry {
	reg := quota.NewCounterRegistry()
	for res, v := range f {
		reg.Register(res, func(context.Context, uuid.UUID) (int64, error) {
			return v.Load(), nil
		})
	}
	return reg
}

func newCounts(values map[quota.Resource]int64) fixedCounts {
	f := make(fixedCounts, len(values))
	for res, v := range values {
		n := new(atomic.Int64)
		n.Store(v)
		f[res] = n
	}
	return f
}

type testEnv struct {
	svc      *quota.Service
	store    *quota.MemoryStore
	observer *recordingObserver
	tenantID uuid.UUID
}

func newTestEnv(t *testing.T, tier quota.Tier, counts fixedCounts) *testEnv {
	t.Helper()

	store := quota.NewMemoryStore()
	tenantID := uuid.New()
	store.AddTenant(tenantID, tier)

	reg := counts.registry()
	for _, res := range quota.MeteredResources() {
		reg.Register(res, quota.StoreCounter(store, res))
	}

	observer := &recordingObserver{}
	svc := quota.NewService(
		quota.MustDefaultRegistry(),
		store,
		quota.NewAggregator(reg),
		quota.WithCounterStore(store),
		quota.WithObserver(observer),
	)
	return &testEnv{svc: svc, store: store, observer: observer, tenantID: tenantID}
}

func TestService_CanAdd(t *testing.T) {
	t.Parallel()

	t.Run("tier change flips decision without touching usage", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, quota.TierFree, newCounts(map[quota.Resource]int64{quota.ResourceProducts: 100}))
		ctx := context.Background()

		ok, err := env.svc.CanAdd(ctx, env.tenantID, quota.ResourceProducts)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, env.svc.ChangeTier(ctx, env.tenantID, quota.TierStarter))

		ok, err = env.svc.CanAdd(ctx, env.tenantID, quota.ResourceProducts)
		require.NoError(t, err)
		assert.True(t, ok)

		assert.Equal(t, 1, env.observer.count(quota.DecisionDenied))
		assert.Equal(t, 1, env.observer.count(quota.DecisionAllowed))
	})

	t.Run("usage is recomputed per request", func(t *testing.T) {
		t.Parallel()

		counts := newCounts(map[quota.Resource]int64{quota.ResourceStores: 0})
		env := newTestEnv(t, quota.TierFree, counts)
		ctx := context.Background()

		ok, err := env.svc.CanAdd(ctx, env.tenantID, quota.ResourceStores)
		require.NoError(t, err)
		assert.True(t, ok)

		counts[quota.ResourceStores].Store(1)

		ok, err = env.svc.CanAdd(ctx, env.tenantID, quota.ResourceStores)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("counter failure denies with error", func(t *testing.T) {
		t.Parallel()

		store := quota.NewMemoryStore()
		tenantID := uuid.New()
		store.AddTenant(tenantID, quota.TierPro)

		reg := quota.NewCounterRegistry().Register(quota.ResourceProducts, func(context.Context, uuid.UUID) (int64, error) {
			return 0, errors.New("connection refused")
		})
		observer := &recordingObserver{}
		svc := quota.NewService(quota.MustDefaultRegistry(), store, quota.NewAggregator(reg), quota.WithObserver(observer))

		ok, err := svc.CanAdd(context.Background(), tenantID, quota.ResourceProducts)
		assert.False(t, ok)
		assert.ErrorIs(t, err, quota.ErrUsageUnknown)
		assert.ErrorIs(t, err, quota.ErrUpstream)
		assert.Equal(t, 1, observer.count(quota.DecisionUnknown))
	})

	t.Run("unknown tenant", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, quota.TierFree, newCounts(nil))

		_, err := env.svc.CanAdd(context.Background(), uuid.New(), quota.ResourceProducts)
		assert.ErrorIs(t, err, quota.ErrTenantNotFound)
	})

	t.Run("invalid resource", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, quota.TierFree, newCounts(nil))

		_, err := env.svc.CanAdd(context.Background(), env.tenantID, quota.Resource("widgets"))
		assert.ErrorIs(t, err, quota.ErrInvalidResource)
		assert.Equal(t, 1, env.observer.count(quota.DecisionInvalid))
	})
}

func TestService_Increment(t *testing.T) {
	t.Parallel()

	t.Run("records until limit", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, quota.TierFree, newCounts(nil))
		ctx := context.Background()

		total, err := env.svc.Increment(ctx, env.tenantID, quota.ResourceAITasks, 49)
		require.NoError(t, err)
		assert.Equal(t, int64(49), total)

		total, err = env.svc.Increment(ctx, env.tenantID, quota.ResourceAITasks, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(50), total)

		_, err = env.svc.Increment(ctx, env.tenantID, quota.ResourceAITasks, 1)
		var exceeded *quota.ExceededError
		require.ErrorAs(t, err, &exceeded)
		assert.Equal(t, int64(50), exceeded.Usage)
		assert.Equal(t, int64(50), exceeded.Limit)

		ok, err := env.svc.CanAdd(ctx, env.tenantID, quota.ResourceAITasks)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("rejected increment writes nothing", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, quota.TierFree, newCounts(nil))
		ctx := context.Background()

		_, err := env.svc.Increment(ctx, env.tenantID, quota.ResourceAITasks, 51)
		assert.ErrorIs(t, err, quota.ErrLimitExceeded)

		current, err := env.store.Get(ctx, env.tenantID, quota.ResourceAITasks)
		require.NoError(t, err)
		assert.Equal(t, int64(0), current)
	})

	t.Run("concurrent increments never overshoot", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, quota.TierFree, newCounts(nil))
		ctx := context.Background()

		var (
			wg      sync.WaitGroup
			granted atomic.Int64
		)
		for range 200 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := env.svc.Increment(ctx, env.tenantID, quota.ResourceAITasks, 1); err == nil {
					granted.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int64(50), granted.Load())
		current, err := env.store.Get(ctx, env.tenantID, quota.ResourceAITasks)
		require.NoError(t, err)
		assert.Equal(t, int64(50), current)
	})

	t.Run("invalid delta", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, quota.TierFree, newCounts(nil))

		_, err := env.svc.Increment(context.Background(), env.tenantID, quota.ResourceAITasks, 0)
		assert.ErrorIs(t, err, quota.ErrInvalidDelta)
	})

	t.Run("non metered resource", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, quota.TierFree, newCounts(nil))

		_, err := env.svc.Increment(context.Background(), env.tenantID, quota.ResourceProducts, 1)
		assert.ErrorIs(t, err, quota.ErrInvalidResource)
	})

	t.Run("unlimited tier", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, quota.TierEnterprise, newCounts(nil))

		total, err := env.svc.Increment(context.Background(), env.tenantID, quota.ResourceAPICalls, 1_000_000)
		require.NoError(t, err)
		assert.Equal(t, int64(1_000_000), total)
	})
}

func TestService_Summary(t *testing.T) {
	t.Parallel()

	t.Run("known usage", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, quota.TierFree, newCounts(map[quota.Resource]int64{
			quota.ResourceProducts: 90,
			quota.ResourceStores:   0,
			quota.ResourceOrders:   100,
		}))

		sum, err := env.svc.Summary(context.Background(), env.tenantID)
		require.NoError(t, err)

		assert.True(t, sum.Known)
		assert.Equal(t, quota.TierFree, sum.Tier)
		assert.Equal(t, quota.TierStarter, sum.Recommended)
		assert.Contains(t, sum.Alerts, quota.ResourceProducts)
		assert.NotContains(t, sum.Alerts, quota.ResourceOrders)

		products := sum.Usage[quota.ResourceProducts]
		assert.Equal(t, int64(90), products.Current)
		assert.Equal(t, int64(10), products.Remaining)
		assert.InDelta(t, 90.0, products.Percentage, 0.0001)
	})

	t.Run("unknown usage", func(t *testing.T) {
		t.Parallel()

		store := quota.NewMemoryStore()
		tenantID := uuid.New()
		store.AddTenant(tenantID, quota.TierStarter)
		reg := quota.NewCounterRegistry().Register(quota.ResourceOrders, func(context.Context, uuid.UUID) (int64, error) {
			return 0, errors.New("timeout")
		})
		svc := quota.NewService(quota.MustDefaultRegistry(), store, quota.NewAggregator(reg))

		sum, err := svc.Summary(context.Background(), tenantID)
		require.NoError(t, err)
		assert.False(t, sum.Known)
		assert.Empty(t, sum.Usage)
		assert.Equal(t, quota.TierStarter, sum.Recommended)
	})
}

func TestService_CanDowngrade(t *testing.T) {
	t.Parallel()

	t.Run("fits", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, quota.TierPro, newCounts(map[quota.Resource]int64{
			quota.ResourceProducts: 500,
			quota.ResourceStores:   2,
		}))

		comparison, err := env.svc.CanDowngrade(context.Background(), env.tenantID, quota.TierStarter)
		require.NoError(t, err)
		require.NotNil(t, comparison)
		assert.Contains(t, comparison.LostFeatures, quota.FeatureAIAutomation)
	})

	t.Run("exceeds target", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, quota.TierPro, newCounts(map[quota.Resource]int64{
			quota.ResourceProducts: 5000,
			quota.ResourceStores:   2,
		}))

		comparison, err := env.svc.CanDowngrade(context.Background(), env.tenantID, quota.TierStarter)
		assert.ErrorIs(t, err, quota.ErrDowngradeNotPossible)
		assert.ErrorContains(t, err, "products usage 5000")
		require.NotNil(t, comparison)
	})

	t.Run("unknown target", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t, quota.TierPro, newCounts(nil))

		_, err := env.svc.CanDowngrade(context.Background(), env.tenantID, quota.Tier("gold"))
		assert.ErrorIs(t, err, quota.ErrPlanNotFound)
	})
}

func TestService_ChangeTier(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, quota.TierFree, newCounts(nil))
	ctx := context.Background()

	assert.ErrorIs(t, env.svc.ChangeTier(ctx, env.tenantID, quota.Tier("gold")), quota.ErrUnknownTier)
	assert.ErrorIs(t, env.svc.ChangeTier(ctx, uuid.New(), quota.TierPro), quota.ErrTenantNotFound)

	require.NoError(t, env.svc.ChangeTier(ctx, env.tenantID, quota.TierPro))
	enabled, err := env.svc.HasFeature(ctx, env.tenantID, quota.FeatureAIAutomation)
	require.NoError(t, err)
	assert.True(t, enabled)
}

func TestService_HasFeature(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv(t, quota.TierFree, newCounts(nil))

	enabled, err := env.svc.HasFeature(ctx, env.tenantID, quota.FeatureAIAutomation)
	require.NoError(t, err)
	assert.False(t, enabled)

	enabled, err = env.svc.HasFeature(ctx, uuid.New(), quota.FeatureAIAutomation)
	assert.ErrorIs(t, err, quota.ErrTenantNotFound)
	assert.False(t, enabled)

	broken := quota.NewService(quota.MustDefaultRegistry(), failingTiers{}, nil)
	_, err = broken.HasFeature(ctx, env.tenantID, quota.FeatureAIAutomation)
	assert.ErrorIs(t, err, quota.ErrUpstream)
}

type failingTiers struct{}

func (failingTiers) Tier(context.Context, uuid.UUID) (quota.Tier, error) {
	return "", errors.New("connection refused")
}

func (failingTiers) SetTier(context.Context, uuid.UUID, quota.Tier) error {
	return errors.New("connection refused")
}
