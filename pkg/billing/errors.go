package billing

import "errors"

var (
	ErrMissingWebhookSecret      = errors.New("billing: webhook secret is required")
	ErrWebhookVerificationFailed = errors.New("billing: webhook signature verification failed")
	ErrInvalidPayload            = errors.New("billing: invalid webhook payload")
	ErrMissingTenantID           = errors.New("billing: webhook carries no tenant ID")
	ErrUnknownPrice              = errors.New("billing: price is not mapped to a plan tier")
	ErrInvalidPriceTiers         = errors.New("billing: invalid price to tier mapping")
	ErrSubscriptionNotFound      = errors.New("billing: subscription not found")
	ErrUpstream                  = errors.New("billing: subscription store unavailable")
)
