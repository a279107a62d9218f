package billing

import (
	"context"
	"time"
)

// Provider verifies and normalizes webhooks from a payment provider.
type Provider interface {
	// ParseWebhook must reject payloads whose signature does not verify.
	ParseWebhook(ctx context.Context, payload []byte, signature string) (*WebhookEvent, error)
}

// WebhookEvent is a provider event reduced to what plan changes need.
type WebhookEvent struct {
	ID             string    // Provider event ID
	Type           EventType // Normalized event type
	ProviderEvent  string    // Original provider event name
	SubscriptionID string
	TenantID       string // From the checkout custom data
	Status         string
	PriceID        string
	OccurredAt     time.Time
}

// EventType is the normalized billing event type.
type EventType string

const (
	EventSubscriptionCreated   EventType = "subscription_created"
	EventSubscriptionUpdated   EventType = "subscription_updated"
	EventSubscriptionCancelled EventType = "subscription_cancelled"
	EventSubscriptionPaused    EventType = "subscription_paused"
	EventSubscriptionResumed   EventType = "subscription_resumed"

	EventPaymentSucceeded EventType = "payment_succeeded"
	EventPaymentFailed    EventType = "payment_failed"
)
