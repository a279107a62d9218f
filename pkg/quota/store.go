package quota

import (
	"context"

	"github.com/google/uuid"
)

// TierStore persists the plan tier attached to each tenant.
type TierStore interface {
	// Tier returns the tenant's current tier or ErrTenantNotFound.
	Tier(ctx context.Context, tenantID uuid.UUID) (Tier, error)
	// SetTier records an upgrade or downgrade.
	SetTier(ctx context.Context, tenantID uuid.UUID, tier Tier) error
}

// CounterStore keeps running totals for metered resources (AI tasks, API calls, storage).
type CounterStore interface {
	// Get returns the stored total, zero when nothing was recorded yet.
	Get(ctx context.Context, tenantID uuid.UUID, res Resource) (int64, error)
	// Increment adds delta in a single read-modify-write. When limit is not
	// Unlimited and the new total would exceed it, nothing is written and
	// ErrLimitExceeded is returned.
	Increment(ctx context.Context, tenantID uuid.UUID, res Resource, delta, limit int64) (int64, error)
}

// MeteredResources are the resources tracked by a CounterStore by default.
// Everything else is counted from rows.
func MeteredResources() []Resource {
	return []Resource{ResourceAITasks, ResourceAPICalls, ResourceStorage}
}

// Observer receives quota decisions, typically for metrics.
type Observer interface {
	ObserveDecision(res Resource, decision string)
}

// Decision labels reported to an Observer.
const (
	DecisionAllowed  = "allowed"
	DecisionDenied   = "denied"
	DecisionUnknown  = "unknown"
	DecisionInvalid  = "invalid"
	DecisionRecorded = "recorded"
)
