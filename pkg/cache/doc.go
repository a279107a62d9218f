// Package cache provides a generic, thread-safe LRU cache.
//
// The cache holds at most a fixed number of entries and evicts the least
// recently used one when a new key pushes it over capacity. Get and Put both
// count as use.
//
//	c := cache.NewLRUCache[uuid.UUID, *Tenant](1000)
//	c.Put(t.ID, t)
//	if t, ok := c.Get(id); ok {
//		// ...
//	}
//
// Expiry is left to callers: store the deadline in the value and Remove the
// key when it is stale.
package cache
