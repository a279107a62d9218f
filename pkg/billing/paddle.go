package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
)

// SignatureHeader carries the Paddle webhook signature.
const SignatureHeader = "Paddle-Signature"

// PaddleConfig holds configuration for the Paddle webhook endpoint.
type PaddleConfig struct {
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET"`
}

// PaddleProvider verifies Paddle Billing webhooks.
type PaddleProvider struct {
	verifier *paddle.WebhookVerifier
}

// NewPaddleProvider creates a Paddle webhook provider.
func NewPaddleProvider(cfg PaddleConfig) (*PaddleProvider, error) {
	if cfg.WebhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}
	return &PaddleProvider{verifier: paddle.NewWebhookVerifier(cfg.WebhookSecret)}, nil
}

type paddleNotification struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

type paddleData struct {
	ID             string         `json:"id"`
	SubscriptionID string         `json:"subscription_id"`
	Status         string         `json:"status"`
	CustomData     map[string]any `json:"custom_data"`
	Items          []struct {
		PriceID string `json:"price_id"`
		Price   *struct {
			ID string `json:"id"`
		} `json:"price"`
	} `json:"items"`
}

// ParseWebhook validates the signature and normalizes the Paddle event.
func (p *PaddleProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*WebhookEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/webhook", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request for verification: %w", err)
	}
	req.Header.Set(SignatureHeader, signature)

	valid, err := p.verifier.Verify(req)
	if err != nil {
		return nil, errors.Join(ErrWebhookVerificationFailed, err)
	}
	if !valid {
		return nil, ErrWebhookVerificationFailed
	}

	var n paddleNotification
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, errors.Join(ErrInvalidPayload, err)
	}
	var data paddleData
	if len(n.Data) > 0 {
		if err := json.Unmarshal(n.Data, &data); err != nil {
			return nil, errors.Join(ErrInvalidPayload, err)
		}
	}

	event := &WebhookEvent{
		ID:            n.EventID,
		Type:          mapPaddleEventType(n.EventType),
		ProviderEvent: n.EventType,
		Status:        data.Status,
		OccurredAt:    n.OccurredAt,
	}

	// Transactions reference the subscription separately from their own ID.
	event.SubscriptionID = data.ID
	if strings.HasPrefix(n.EventType, "transaction.") && data.SubscriptionID != "" {
		event.SubscriptionID = data.SubscriptionID
	}

	if id, ok := data.CustomData["tenant_id"].(string); ok {
		event.TenantID = id
	} else if id, ok := data.CustomData["customer_id"].(string); ok {
		event.TenantID = id
	}

	if len(data.Items) > 0 {
		item := data.Items[0]
		switch {
		case item.Price != nil && item.Price.ID != "":
			event.PriceID = item.Price.ID
		default:
			event.PriceID = item.PriceID
		}
	}

	return event, nil
}

func mapPaddleEventType(paddleEvent string) EventType {
	switch paddleEvent {
	case "subscription.created", "subscription.activated":
		return EventSubscriptionCreated
	case "subscription.updated":
		return EventSubscriptionUpdated
	case "subscription.canceled":
		return EventSubscriptionCancelled
	case "subscription.paused":
		return EventSubscriptionPaused
	case "subscription.resumed":
		return EventSubscriptionResumed
	case "transaction.completed", "transaction.paid":
		return EventPaymentSucceeded
	case "transaction.payment_failed":
		return EventPaymentFailed
	default:
		return EventType(paddleEvent)
	}
}
