package tenant_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storekit/pkg/tenant"
)

func TestMemoryCache(t *testing.T) {
	t.Parallel()

	t.Run("get after set", func(t *testing.T) {
		t.Parallel()
		c := tenant.NewMemoryCache(10)
		tn := &tenant.Tenant{ID: uuid.New(), Active: true}
		c.Set(tn, time.Minute)

		got, ok := c.Get(tn.ID)
		require.True(t, ok)
		assert.Same(t, tn, got)

		_, ok = c.Get(uuid.New())
		assert.False(t, ok)
	})

	t.Run("entries expire", func(t *testing.T) {
		t.Parallel()
		now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		c := tenant.NewMemoryCache(10).WithClock(func() time.Time { return now })
		tn := &tenant.Tenant{ID: uuid.New()}
		c.Set(tn, time.Minute)

		now = now.Add(59 * time.Second)
		_, ok := c.Get(tn.ID)
		assert.True(t, ok)

		now = now.Add(time.Second)
		_, ok = c.Get(tn.ID)
		assert.False(t, ok)
		assert.Zero(t, c.Len())
	})

	t.Run("evicts least recently used", func(t *testing.T) {
		t.Parallel()
		c := tenant.NewMemoryCache(2)
		a := &tenant.Tenant{ID: uuid.New()}
		b := &tenant.Tenant{ID: uuid.New()}
		d := &tenant.Tenant{ID: uuid.New()}

		c.Set(a, time.Minute)
		c.Set(b, time.Minute)
		_, _ = c.Get(a.ID)
		c.Set(d, time.Minute)

		_, ok := c.Get(b.ID)
		assert.False(t, ok)
		_, ok = c.Get(a.ID)
		assert.True(t, ok)
		_, ok = c.Get(d.ID)
		assert.True(t, ok)
		assert.Equal(t, 2, c.Len())
	})

	t.Run("delete and zero ttl", func(t *testing.T) {
		t.Parallel()
		c := tenant.NewMemoryCache(0)
		tn := &tenant.Tenant{ID: uuid.New()}

		c.Set(tn, 0)
		assert.Zero(t, c.Len())

		c.Set(tn, time.Minute)
		c.Delete(tn.ID)
		_, ok := c.Get(tn.ID)
		assert.False(t, ok)
	})
}
