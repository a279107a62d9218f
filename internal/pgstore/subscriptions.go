package pgstore

import (
	"context"
	"fmt"

	"github.com/dmitrymomot/storekit/pkg/billing"
	"github.com/dmitrymomot/storekit/pkg/pg"
)

// Subscriptions is the PostgreSQL billing.SubscriptionStore.
type Subscriptions struct {
	db DB
}

func NewSubscriptions(db DB) *Subscriptions {
	return &Subscriptions{db: db}
}

func (s *Subscriptions) Subscription(ctx context.Context, id string) (billing.Subscription, error) {
	sb := flavor.NewSelectBuilder()
	sb.Select("subscription_id", "tenant_id", "price_id", "status", "last_event_id", "updated_at").
		From("billing_subscriptions").
		Where(sb.Equal("subscription_id", id))

	var sub billing.Subscription
	err := queryRow(ctx, s.db, sb).Scan(&sub.ID, &sub.TenantID, &sub.PriceID, &sub.Status, &sub.LastEventID, &sub.UpdatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return billing.Subscription{}, billing.ErrSubscriptionNotFound
		}
		return billing.Subscription{}, fmt.Errorf("load subscription: %w", err)
	}
	return sub, nil
}

func (s *Subscriptions) SaveSubscription(ctx context.Context, sub billing.Subscription) error {
	ib := flavor.NewInsertBuilder()
	ib.InsertInto("billing_subscriptions").
		Cols("subscription_id", "tenant_id", "price_id", "status", "last_event_id", "updated_at").
		Values(sub.ID, sub.TenantID, sub.PriceID, sub.Status, sub.LastEventID, sub.UpdatedAt).
		SQL(`ON CONFLICT (subscription_id) DO UPDATE SET
			tenant_id = EXCLUDED.tenant_id,
			price_id = EXCLUDED.price_id,
			status = EXCLUDED.status,
			last_event_id = EXCLUDED.last_event_id,
			updated_at = EXCLUDED.updated_at`)

	if _, err := exec(ctx, s.db, ib); err != nil {
		return fmt.Errorf("save subscription: %w", err)
	}
	return nil
}
