package quota

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type counterKey struct {
	tenantID uuid.UUID
	res      Resource
}

// MemoryStore is an in-process TierStore and CounterStore.
// Tenants must be registered with AddTenant before use.
type MemoryStore struct {
	mu       sync.Mutex
	tiers    map[uuid.UUID]Tier
	counters map[counterKey]int64
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tiers:    make(map[uuid.UUID]Tier),
		counters: make(map[counterKey]int64),
	}
}

// AddTenant registers a tenant on tier.
func (m *MemoryStore) AddTenant(tenantID uuid.UUID, tier Tier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tiers[tenantID] = tier
}

func (m *MemoryStore) Tier(_ context.Context, tenantID uuid.UUID) (Tier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tier, ok := m.tiers[tenantID]
	if !ok {
		return "", ErrTenantNotFound
	}
	return tier, nil
}

func (m *MemoryStore) SetTier(_ context.Context, tenantID uuid.UUID, tier Tier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tiers[tenantID]; !ok {
		return ErrTenantNotFound
	}
	m.tiers[tenantID] = tier
	return nil
}

func (m *MemoryStore) Get(_ context.Context, tenantID uuid.UUID, res Resource) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[counterKey{tenantID, res}], nil
}

func (m *MemoryStore) Increment(_ context.Context, tenantID uuid.UUID, res Resource, delta, limit int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := counterKey{tenantID, res}
	next := m.counters[key] + delta
	if limit != Unlimited && next > limit {
		return 0, ErrLimitExceeded
	}
	m.counters[key] = next
	return next, nil
}
