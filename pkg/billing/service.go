package billing

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrymomot/storekit/pkg/quota"
)

// TierChanger applies plan tier changes. *quota.Service satisfies it.
type TierChanger interface {
	ChangeTier(ctx context.Context, tenantID uuid.UUID, tier quota.Tier) error
}

// Observer receives webhook outcomes.
type Observer interface {
	ObserveWebhook(event EventType, outcome string)
}

// Webhook outcomes.
const (
	OutcomeTierChanged = "tier_changed"
	OutcomeIgnored     = "ignored"
	OutcomeRejected    = "rejected"
	OutcomeFailed      = "failed"
)

// Result describes what a webhook did.
type Result struct {
	Event    EventType  `json:"event"`
	TenantID uuid.UUID  `json:"tenant_id,omitzero"`
	Tier     quota.Tier `json:"tier,omitempty"`
	Outcome  string     `json:"outcome"`
}

// Service turns verified billing webhooks into plan tier changes.
type Service struct {
	provider Provider
	tiers    TierChanger
	prices   map[string]quota.Tier
	subs     SubscriptionStore
	observer Observer
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithObserver reports every webhook outcome to o.
func WithObserver(o Observer) ServiceOption {
	return func(s *Service) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithSubscriptionStore enables replay and ordering protection.
func WithSubscriptionStore(store SubscriptionStore) ServiceOption {
	return func(s *Service) {
		if store != nil {
			s.subs = store
		}
	}
}

// NewService creates a billing Service. prices maps provider price IDs to tiers.
// Panics if provider or tiers is nil.
func NewService(provider Provider, tiers TierChanger, prices map[string]quota.Tier, opts ...ServiceOption) *Service {
	if provider == nil {
		panic("billing: Provider is required")
	}
	if tiers == nil {
		panic("billing: TierChanger is required")
	}
	s := &Service{
		provider: provider,
		tiers:    tiers,
		prices:   maps.Clone(prices),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleWebhook verifies a webhook and applies the tier change it implies.
// Created, updated and resumed subscriptions move the tenant to the tier of
// their price; cancelled and paused ones fall back to the free tier. Payment
// events are acknowledged without changes.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (*Result, error) {
	event, err := s.provider.ParseWebhook(ctx, payload, signature)
	if err != nil {
		s.observe("", OutcomeRejected)
		return nil, err
	}

	res, err := s.apply(ctx, event)
	switch {
	case err == nil:
		s.observe(event.Type, res.Outcome)
	case errors.Is(err, quota.ErrTenantNotFound), errors.Is(err, ErrUnknownPrice), errors.Is(err, ErrMissingTenantID):
		s.observe(event.Type, OutcomeRejected)
	default:
		s.observe(event.Type, OutcomeFailed)
	}
	return res, err
}

func (s *Service) apply(ctx context.Context, event *WebhookEvent) (*Result, error) {
	res := &Result{Event: event.Type, Outcome: OutcomeIgnored}

	var target quota.Tier
	switch event.Type {
	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionResumed:
		if isCancelledStatus(event.Status) {
			target = quota.TierFree
			break
		}
		tier, ok := s.prices[event.PriceID]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPrice, event.PriceID)
		}
		target = tier
	case EventSubscriptionCancelled, EventSubscriptionPaused:
		target = quota.TierFree
	default:
		return res, nil
	}

	if event.TenantID == "" {
		return nil, ErrMissingTenantID
	}
	tenantID, err := uuid.Parse(event.TenantID)
	if err != nil {
		return nil, errors.Join(ErrMissingTenantID, fmt.Errorf("invalid tenant ID in webhook: %w", err))
	}

	res.TenantID = tenantID
	if s.subs != nil && event.SubscriptionID != "" {
		prev, err := s.subs.Subscription(ctx, event.SubscriptionID)
		switch {
		case err == nil:
			if stale(prev, event) {
				return res, nil
			}
		case !errors.Is(err, ErrSubscriptionNotFound):
			return nil, errors.Join(ErrUpstream, err)
		}
	}

	if err := s.tiers.ChangeTier(ctx, tenantID, target); err != nil {
		return nil, err
	}
	res.Tier = target
	res.Outcome = OutcomeTierChanged

	if s.subs != nil && event.SubscriptionID != "" {
		err := s.subs.SaveSubscription(ctx, Subscription{
			ID:          event.SubscriptionID,
			TenantID:    tenantID,
			PriceID:     event.PriceID,
			Status:      event.Status,
			LastEventID: event.ID,
			UpdatedAt:   event.OccurredAt,
		})
		if err != nil {
			// The tier is already changed; a provider retry re-applies the same tier.
			return res, errors.Join(ErrUpstream, err)
		}
	}
	return res, nil
}

func (s *Service) observe(event EventType, outcome string) {
	if s.observer != nil {
		s.observer.ObserveWebhook(event, outcome)
	}
}

func isCancelledStatus(status string) bool {
	switch strings.ToLower(status) {
	case "canceled", "cancelled", "paused":
		return true
	default:
		return false
	}
}

// ParsePriceTiers validates a price ID to tier table, as read from configuration.
func ParsePriceTiers(raw map[string]string) (map[string]quota.Tier, error) {
	out := make(map[string]quota.Tier, len(raw))
	for priceID, name := range raw {
		priceID = strings.TrimSpace(priceID)
		if priceID == "" {
			return nil, fmt.Errorf("%w: empty price ID", ErrInvalidPriceTiers)
		}
		tier, err := quota.ParseTier(strings.TrimSpace(name))
		if err != nil {
			return nil, errors.Join(ErrInvalidPriceTiers, fmt.Errorf("price %s: %w", priceID, err))
		}
		out[priceID] = tier
	}
	return out, nil
}
