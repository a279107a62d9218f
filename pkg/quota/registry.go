package quota

import (
	"context"
	"errors"
	"fmt"
)

// Registry is the immutable tier to plan lookup table.
// It is safe for concurrent use because nothing mutates it after NewRegistry.
type Registry struct {
	plans map[Tier]Plan
}

// NewRegistry loads plans from src once and validates them.
// Every known tier must be present.
func NewRegistry(ctx context.Context, src Source) (*Registry, error) {
	plans, err := src.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrFailedToLoadPlans) {
			return nil, err
		}
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}

	byTier := make(map[Tier]Plan, len(plans))
	for _, plan := range plans {
		if !plan.Tier.Valid() {
			return nil, errors.Join(ErrInvalidPlanConfiguration, fmt.Errorf("%w: %q", ErrUnknownTier, plan.Tier))
		}
		if _, dup := byTier[plan.Tier]; dup {
			return nil, errors.Join(ErrInvalidPlanConfiguration, fmt.Errorf("duplicate plan for tier %s", plan.Tier))
		}
		if err := validatePlan(plan); err != nil {
			return nil, err
		}
		byTier[plan.Tier] = plan.clone()
	}

	for _, tier := range tierOrder {
		if _, ok := byTier[tier]; !ok {
			return nil, errors.Join(ErrInvalidPlanConfiguration, fmt.Errorf("missing plan for tier %s", tier))
		}
	}

	return &Registry{plans: byTier}, nil
}

// MustDefaultRegistry builds a registry from DefaultPlans. Panics on invalid defaults.
func MustDefaultRegistry() *Registry {
	r, err := NewRegistry(context.Background(), NewInMemSource(DefaultPlans()...))
	if err != nil {
		panic(err)
	}
	return r
}

// Plan returns a copy of the plan for tier.
func (r *Registry) Plan(tier Tier) (Plan, error) {
	plan, ok := r.plans[tier]
	if !ok {
		return Plan{}, fmt.Errorf("%w: %s", ErrPlanNotFound, tier)
	}
	return plan.clone(), nil
}

// Plans returns copies of all plans ordered by tier.
func (r *Registry) Plans() []Plan {
	out := make([]Plan, 0, len(r.plans))
	for _, tier := range tierOrder {
		out = append(out, r.plans[tier].clone())
	}
	return out
}

func validatePlan(plan Plan) error {
	for res, limit := range plan.Limits {
		if _, err := ParseResource(string(res)); err != nil {
			return errors.Join(ErrInvalidPlanConfiguration, fmt.Errorf("plan %s: %w", plan.Tier, err))
		}
		if limit < Unlimited {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan %s has invalid limit %d for %s", plan.Tier, limit, res))
		}
	}
	return nil
}
