package stock

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu         sync.Mutex
	owners     map[uuid.UUID]uuid.UUID
	levels     map[uuid.UUID]int64
	thresholds map[uuid.UUID]int64
	history    []Change
	alerts     []Alert
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		owners:     make(map[uuid.UUID]uuid.UUID),
		levels:     make(map[uuid.UUID]int64),
		thresholds: make(map[uuid.UUID]int64),
	}
}

// PutProduct registers a product with its current quantity.
func (m *MemoryStore) PutProduct(tenantID, productID uuid.UUID, qty int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owners[productID] = tenantID
	m.levels[productID] = qty
}

// SetLowStockThreshold sets the tenant threshold.
func (m *MemoryStore) SetLowStockThreshold(tenantID uuid.UUID, threshold int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.thresholds[tenantID] = threshold
}

func (m *MemoryStore) Levels(_ context.Context, tenantID uuid.UUID, productIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[uuid.UUID]int64, len(productIDs))
	for _, id := range productIDs {
		if owner, ok := m.owners[id]; ok && owner == tenantID {
			out[id] = m.levels[id]
		}
	}
	return out, nil
}

func (m *MemoryStore) LowStockThreshold(_ context.Context, tenantID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.thresholds[tenantID], nil
}

func (m *MemoryStore) Apply(_ context.Context, _ uuid.UUID, changes []Change, alerts []Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range changes {
		if m.levels[c.ProductID] != c.PreviousQuantity {
			return ErrConflict
		}
	}
	for _, c := range changes {
		m.levels[c.ProductID] = c.NewQuantity
	}
	m.history = append(m.history, changes...)
	m.alerts = append(m.alerts, alerts...)
	return nil
}

// Quantity returns the stored level of a product.
func (m *MemoryStore) Quantity(productID uuid.UUID) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.levels[productID]
}

// History returns all recorded changes, oldest first.
func (m *MemoryStore) History() []Change {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Change(nil), m.history...)
}

// Alerts returns all raised alerts, oldest first.
func (m *MemoryStore) Alerts() []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Alert(nil), m.alerts...)
}
