package ratelimit

import (
	"context"
	"sync"
	"time"
)

type bucket struct {
	tokens     int
	lastRefill time.Time
	lastAccess time.Time
}

// MemoryStore keeps buckets in process. Idle buckets are dropped by a
// background sweep until Close is called.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time

	idleTTL time.Duration
	stop    chan struct{}
	once    sync.Once
}

type MemoryOption func(*MemoryStore)

// WithIdleTTL sets how long an untouched bucket survives. Zero disables the sweep.
func WithIdleTTL(d time.Duration) MemoryOption {
	return func(m *MemoryStore) { m.idleTTL = d }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryStore) {
		if now != nil {
			m.now = now
		}
	}
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		buckets: make(map[string]*bucket),
		now:     time.Now,
		idleTTL: time.Hour,
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.idleTTL > 0 {
		go m.sweep()
	}
	return m
}

func (m *MemoryStore) Take(_ context.Context, key string, tokens int, cfg Config) (int, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	b, ok := m.buckets[key]
	if !ok {
		b = &bucket{tokens: cfg.Capacity, lastRefill: now}
		m.buckets[key] = b
	}
	b.lastAccess = now

	if intervals := now.Sub(b.lastRefill) / cfg.RefillInterval; intervals > 0 {
		// Cap the multiplier so a long idle period cannot overflow.
		add := min(int64(intervals), int64(cfg.Capacity/cfg.RefillRate+1)) * int64(cfg.RefillRate)
		b.tokens = int(min(int64(b.tokens)+add, int64(cfg.Capacity)))
		b.lastRefill = b.lastRefill.Add(intervals * cfg.RefillInterval)
	}

	resetAt := b.lastRefill.Add(cfg.RefillInterval)
	if b.tokens < tokens {
		return b.tokens - tokens, resetAt, nil
	}
	b.tokens -= tokens
	return b.tokens, resetAt, nil
}

func (m *MemoryStore) sweep() {
	ticker := time.NewTicker(m.idleTTL / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			now := m.now()
			for key, b := range m.buckets {
				if now.Sub(b.lastAccess) > m.idleTTL {
					delete(m.buckets, key)
				}
			}
			m.mu.Unlock()
		case <-m.stop:
			return
		}
	}
}

// Close stops the sweep. Safe to call more than once.
func (m *MemoryStore) Close() {
	m.once.Do(func() { close(m.stop) })
}
