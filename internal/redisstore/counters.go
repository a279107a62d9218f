// Package redisstore keeps metered usage counters in Redis.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/storekit/pkg/quota"
)

// incrementScript adds ARGV[1] to KEYS[1] unless the result would pass
// ARGV[2]; a negative limit means unlimited. Returns -1 when refused.
var incrementScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local delta = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])
if limit >= 0 and current + delta > limit then
	return -1
end
return redis.call('INCRBY', KEYS[1], delta)
`)

// Counters is a quota.CounterStore on Redis.
type Counters struct {
	client redis.Cmdable
	prefix string
}

// NewCounters stores keys as <prefix>:usage:<tenant>:<resource>.
func NewCounters(client redis.Cmdable, prefix string) *Counters {
	if client == nil {
		panic("redisstore: client is required")
	}
	return &Counters{client: client, prefix: strings.TrimSuffix(prefix, ":")}
}

func (c *Counters) key(tenantID uuid.UUID, res quota.Resource) string {
	k := "usage:" + tenantID.String() + ":" + string(res)
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

func (c *Counters) Get(ctx context.Context, tenantID uuid.UUID, res quota.Resource) (int64, error) {
	n, err := c.client.Get(ctx, c.key(tenantID, res)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get counter: %w", err)
	}
	return n, nil
}

func (c *Counters) Increment(ctx context.Context, tenantID uuid.UUID, res quota.Resource, delta, limit int64) (int64, error) {
	n, err := incrementScript.Run(ctx, c.client, []string{c.key(tenantID, res)}, delta, limit).Int64()
	if err != nil {
		return 0, fmt.Errorf("increment counter: %w", err)
	}
	if n < 0 {
		return 0, quota.ErrLimitExceeded
	}
	return n, nil
}
