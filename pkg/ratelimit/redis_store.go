package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// takeScript mirrors MemoryStore.Take on a Redis hash {tokens, refill}.
// ARGV: capacity, refill rate, refill interval ms, tokens, now ms, ttl ms.
var takeScript = redis.NewScript(`
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local interval = tonumber(ARGV[3])
local take = tonumber(ARGV[4])
local now = tonumber(ARGV[5])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'refill')
local tokens = tonumber(state[1])
local refill = tonumber(state[2])
if tokens == nil or refill == nil then
	tokens = capacity
	refill = now
end

local intervals = math.floor((now - refill) / interval)
if intervals > 0 then
	local add = math.min(intervals, math.floor(capacity / rate) + 1) * rate
	tokens = math.min(capacity, tokens + add)
	refill = refill + intervals * interval
end

local remaining = tokens - take
if remaining >= 0 then
	tokens = remaining
end
redis.call('HSET', KEYS[1], 'tokens', tokens, 'refill', refill)
redis.call('PEXPIRE', KEYS[1], ARGV[6])
return {remaining, refill + interval}
`)

// RedisStore shares buckets between processes.
type RedisStore struct {
	client redis.Cmdable
	prefix string
	now    func() time.Time
}

// NewRedisStore stores buckets as <prefix>:ratelimit:<key>.
func NewRedisStore(client redis.Cmdable, prefix string) *RedisStore {
	if client == nil {
		panic("ratelimit: redis client is required")
	}
	return &RedisStore{client: client, prefix: strings.TrimSuffix(prefix, ":"), now: time.Now}
}

func (s *RedisStore) key(k string) string {
	if s.prefix == "" {
		return "ratelimit:" + k
	}
	return s.prefix + ":ratelimit:" + k
}

func (s *RedisStore) Take(ctx context.Context, key string, tokens int, cfg Config) (int, time.Time, error) {
	// A full refill from empty is the longest a bucket matters.
	ttl := time.Duration(cfg.Capacity/cfg.RefillRate+1) * cfg.RefillInterval
	res, err := takeScript.Run(ctx, s.client, []string{s.key(key)},
		cfg.Capacity,
		cfg.RefillRate,
		cfg.RefillInterval.Milliseconds(),
		tokens,
		s.now().UnixMilli(),
		ttl.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("take tokens: %w", err)
	}
	if len(res) != 2 {
		return 0, time.Time{}, fmt.Errorf("take tokens: unexpected reply %v", res)
	}
	return int(res[0]), time.UnixMilli(res[1]), nil
}
