package billing

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Subscription is the last applied state of a provider subscription.
type Subscription struct {
	ID          string    `json:"id"`
	TenantID    uuid.UUID `json:"tenant_id"`
	PriceID     string    `json:"price_id"`
	Status      string    `json:"status"`
	LastEventID string    `json:"last_event_id"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SubscriptionStore remembers which event last touched each subscription, so
// replayed and out-of-order webhooks do not roll a tier back.
type SubscriptionStore interface {
	// Subscription returns ErrSubscriptionNotFound for unknown ids.
	Subscription(ctx context.Context, id string) (Subscription, error)
	SaveSubscription(ctx context.Context, sub Subscription) error
}

// MemorySubscriptionStore is an in-process SubscriptionStore.
type MemorySubscriptionStore struct {
	mu   sync.RWMutex
	subs map[string]Subscription
}

func NewMemorySubscriptionStore() *MemorySubscriptionStore {
	return &MemorySubscriptionStore{subs: make(map[string]Subscription)}
}

func (m *MemorySubscriptionStore) Subscription(_ context.Context, id string) (Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sub, ok := m.subs[id]
	if !ok {
		return Subscription{}, ErrSubscriptionNotFound
	}
	return sub, nil
}

func (m *MemorySubscriptionStore) SaveSubscription(_ context.Context, sub Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[sub.ID] = sub
	return nil
}

// stale reports whether event is a replay of, or older than, what sub recorded.
func stale(sub Subscription, event *WebhookEvent) bool {
	if event.ID != "" && event.ID == sub.LastEventID {
		return true
	}
	return !event.OccurredAt.IsZero() && event.OccurredAt.Before(sub.UpdatedAt)
}
