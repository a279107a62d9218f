package pricing

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[uuid.UUID]Product
	rules    map[uuid.UUID]Rule
	history  []ProfitCalculation
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: make(map[uuid.UUID]Product),
		rules:    make(map[uuid.UUID]Rule),
	}
}

// PutProduct inserts or replaces a product.
func (m *MemoryStore) PutProduct(p Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
}

// CountProducts returns the number of products owned by tenantID.
// It has the quota.CounterFunc signature.
func (m *MemoryStore) CountProducts(_ context.Context, tenantID uuid.UUID) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, p := range m.products {
		if p.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Product(_ context.Context, tenantID, productID uuid.UUID) (Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[productID]
	if !ok || p.TenantID != tenantID {
		return Product{}, ErrProductNotFound
	}
	return p, nil
}

func (m *MemoryStore) Rule(_ context.Context, tenantID, ruleID uuid.UUID) (Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rules[ruleID]
	if !ok || r.TenantID != tenantID {
		return Rule{}, ErrRuleNotFound
	}
	return r, nil
}

func (m *MemoryStore) ListRules(_ context.Context, tenantID uuid.UUID, activeOnly bool) ([]Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Rule, 0)
	for _, r := range m.rules {
		if r.TenantID != tenantID || (activeOnly && !r.Active) {
			continue
		}
		out = append(out, r)
	}
	SortRules(out)
	return out, nil
}

func (m *MemoryStore) CreateRule(_ context.Context, rule Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.priorityTaken(rule) {
		return ErrPriorityConflict
	}
	m.rules[rule.ID] = rule
	return nil
}

func (m *MemoryStore) UpdateRule(_ context.Context, rule Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.rules[rule.ID]
	if !ok || existing.TenantID != rule.TenantID {
		return ErrRuleNotFound
	}
	if m.priorityTaken(rule) {
		return ErrPriorityConflict
	}
	m.rules[rule.ID] = rule
	return nil
}

func (m *MemoryStore) DeleteRule(_ context.Context, tenantID, ruleID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rules[ruleID]
	if !ok || r.TenantID != tenantID {
		return ErrRuleNotFound
	}
	delete(m.rules, ruleID)
	return nil
}

// priorityTaken must be called with mu held.
func (m *MemoryStore) priorityTaken(rule Rule) bool {
	if !rule.Active {
		return false
	}
	for id, other := range m.rules {
		if id != rule.ID && other.TenantID == rule.TenantID && other.Active && other.Priority == rule.Priority {
			return true
		}
	}
	return false
}

func (m *MemoryStore) ApplyPrice(_ context.Context, tenantID, productID uuid.UUID, price float64, calc ProfitCalculation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok || p.TenantID != tenantID {
		return ErrProductNotFound
	}
	p.Price = price
	p.UpdatedAt = time.Now().UTC()
	m.products[productID] = p
	m.history = append(m.history, calc)
	return nil
}

func (m *MemoryStore) InsertProfitCalculation(_ context.Context, calc ProfitCalculation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, calc)
	return nil
}

// ProfitHistory returns the newest calculations first.
func (m *MemoryStore) ProfitHistory(_ context.Context, tenantID, productID uuid.UUID, limit int) ([]ProfitCalculation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ProfitCalculation, 0)
	for _, calc := range slices.Backward(m.history) {
		if calc.TenantID != tenantID || calc.ProductID != productID {
			continue
		}
		out = append(out, calc)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
