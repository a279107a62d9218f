package cache_test

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/storekit/pkg/cache"
)

func TestLRUCache(t *testing.T) {
	t.Parallel()

	t.Run("put get and replace", func(t *testing.T) {
		t.Parallel()
		c := cache.NewLRUCache[uuid.UUID, string](2)
		id := uuid.New()

		_, existed := c.Put(id, "acme")
		assert.False(t, existed)
		old, existed := c.Put(id, "acme ltd")
		assert.True(t, existed)
		assert.Equal(t, "acme", old)

		v, ok := c.Get(id)
		assert.True(t, ok)
		assert.Equal(t, "acme ltd", v)
		assert.Equal(t, 1, c.Len())

		_, ok = c.Get(uuid.New())
		assert.False(t, ok)
	})

	t.Run("evicts least recently used", func(t *testing.T) {
		t.Parallel()
		c := cache.NewLRUCache[string, int](2)
		c.Put("a", 1)
		c.Put("b", 2)
		c.Get("a")
		c.Put("c", 3)

		_, ok := c.Get("b")
		assert.False(t, ok)
		_, ok = c.Get("a")
		assert.True(t, ok)
		_, ok = c.Get("c")
		assert.True(t, ok)
		assert.Equal(t, 2, c.Len())
	})

	t.Run("remove", func(t *testing.T) {
		t.Parallel()
		c := cache.NewLRUCache[string, int](2)
		c.Put("a", 1)

		v, ok := c.Remove("a")
		assert.True(t, ok)
		assert.Equal(t, 1, v)
		_, ok = c.Remove("a")
		assert.False(t, ok)
		assert.Equal(t, 0, c.Len())
	})

	t.Run("non-positive capacity panics", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() { cache.NewLRUCache[string, int](0) })
	})

	t.Run("concurrent use", func(t *testing.T) {
		t.Parallel()
		c := cache.NewLRUCache[int, int](8)
		var wg sync.WaitGroup
		for i := range 32 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				c.Put(i, i)
				c.Get(i)
				c.Remove(i - 1)
			}()
		}
		wg.Wait()
		assert.LessOrEqual(t, c.Len(), 8)
	})
}
