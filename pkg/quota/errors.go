package quota

import (
	"errors"
	"fmt"
)

// Domain errors for quota operations
var (
	ErrUnknownTier              = errors.New("quota: unknown plan tier")
	ErrPlanNotFound             = errors.New("quota: plan not found")
	ErrInvalidPlanConfiguration = errors.New("quota: invalid plan configuration")
	ErrFailedToLoadPlans        = errors.New("quota: failed to load plans")

	ErrInvalidResource      = errors.New("quota: invalid resource")
	ErrUnknownFeature       = errors.New("quota: unknown feature")
	ErrNoCounterRegistered  = errors.New("quota: no counter registered")
	ErrLimitExceeded        = errors.New("quota: limit exceeded")
	ErrDowngradeNotPossible = errors.New("quota: downgrade not possible")
	ErrInvalidDelta         = errors.New("quota: increment delta must be positive")

	// ErrUsageUnknown means usage could not be counted; callers must deny.
	ErrUsageUnknown = errors.New("quota: usage unknown")

	ErrTenantNotFound = errors.New("quota: tenant not found")
	ErrUpstream       = errors.New("quota: backing store failure")
)

// ExceededError is returned when an action would push usage past the plan limit.
// It carries everything a caller needs to render an upgrade prompt.
type ExceededError struct {
	Resource Resource `json:"resource"`
	Tier     Tier     `json:"tier"`
	Usage    int64    `json:"usage"`
	Limit    int64    `json:"limit"`
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("quota: %s limit reached on %s plan (%d/%d)", e.Resource, e.Tier, e.Usage, e.Limit)
}

// Is makes errors.Is(err, ErrLimitExceeded) match.
func (e *ExceededError) Is(target error) bool {
	return target == ErrLimitExceeded
}
