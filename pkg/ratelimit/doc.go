// Package ratelimit throttles API callers with token buckets.
//
// A Limiter applies one Config to many keys. Bucket state lives in a Store:
// MemoryStore for a single process, RedisStore when several replicas must
// share limits. Middleware takes one token per request and sets the
// X-RateLimit-* headers.
//
//	limiter, err := ratelimit.New(ratelimit.NewMemoryStore(), ratelimit.Config{
//		Capacity:       60,
//		RefillRate:     1,
//		RefillInterval: time.Second,
//	})
//	r.Use(ratelimit.Middleware(limiter, keyByTenant))
package ratelimit
