package quota

// RecommendationThreshold is the usage percentage that triggers an upgrade suggestion.
const RecommendationThreshold = 80.0

// recommendationResources are the resources that drive plan recommendations.
var recommendationResources = []Resource{ResourceProducts, ResourceStores, ResourceOrders}

// Evaluator answers quota questions for one tenant at one point in time.
// Build a fresh one per request; it holds no shared state.
type Evaluator struct {
	plan  Plan
	usage Snapshot
}

// NewEvaluator binds a plan to a usage snapshot.
func NewEvaluator(plan Plan, usage Snapshot) *Evaluator {
	return &Evaluator{plan: plan, usage: usage}
}

// Tier returns the tier the evaluator was built for.
func (e *Evaluator) Tier() Tier { return e.plan.Tier }

// Plan returns the evaluated plan.
func (e *Evaluator) Plan() Plan { return e.plan }

// Usage returns the underlying snapshot.
func (e *Evaluator) Usage() Snapshot { return e.usage }

// CanAdd reports whether one more res may be created.
// Unknown usage denies.
func (e *Evaluator) CanAdd(res Resource) bool {
	return e.Check(res) == nil
}

// Check returns nil when one more res fits, *ExceededError when it does not,
// and ErrUsageUnknown when usage could not be counted.
func (e *Evaluator) Check(res Resource) error {
	return e.CheckDelta(res, 1)
}

// CheckDelta is Check for adding delta units at once.
func (e *Evaluator) CheckDelta(res Resource, delta int64) error {
	limit, ok := e.plan.Limit(res)
	if !ok {
		return ErrInvalidResource
	}
	if limit == Unlimited {
		return nil
	}

	used, err := e.usage.Count(res)
	if err != nil {
		return err
	}

	if used+delta > limit {
		return &ExceededError{Resource: res, Tier: e.plan.Tier, Usage: used, Limit: limit}
	}
	return nil
}

// Remaining returns the headroom for res, never negative.
func (e *Evaluator) Remaining(res Resource) (Remaining, error) {
	limit, ok := e.plan.Limit(res)
	if !ok {
		return Remaining{}, ErrInvalidResource
	}
	if limit == Unlimited {
		return Remaining{Unlimited: true}, nil
	}

	used, err := e.usage.Count(res)
	if err != nil {
		return Remaining{}, err
	}
	return Remaining{Value: max(limit-used, 0)}, nil
}

// UsagePercentage returns usage as a percentage in [0, 100].
// Unlimited resources report 0, a zero limit reports 100.
func (e *Evaluator) UsagePercentage(res Resource) (float64, error) {
	limit, ok := e.plan.Limit(res)
	if !ok {
		return 0, ErrInvalidResource
	}
	if limit == Unlimited {
		return 0, nil
	}

	used, err := e.usage.Count(res)
	if err != nil {
		return 0, err
	}
	if limit == 0 {
		return 100, nil
	}
	return min(float64(used)/float64(limit)*100, 100), nil
}

// UsageInfo combines count, limit and derived values for res.
func (e *Evaluator) UsageInfo(res Resource) (UsageInfo, error) {
	limit, ok := e.plan.Limit(res)
	if !ok {
		return UsageInfo{}, ErrInvalidResource
	}

	used, err := e.usage.Count(res)
	if err != nil {
		return UsageInfo{}, err
	}

	info := UsageInfo{Current: used, Limit: limit, Unlimited: limit == Unlimited}
	remaining, _ := e.Remaining(res)
	info.Remaining = remaining.Value
	info.Percentage, _ = e.UsagePercentage(res)
	return info, nil
}

// RecommendedTier suggests the next tier when products, stores or orders
// reach RecommendationThreshold. It never looks more than one tier ahead
// and keeps the current tier when usage is unknown.
func (e *Evaluator) RecommendedTier() Tier {
	for _, res := range recommendationResources {
		pct, err := e.UsagePercentage(res)
		if err != nil {
			continue
		}
		if pct >= RecommendationThreshold {
			return e.plan.Tier.Next()
		}
	}
	return e.plan.Tier
}

// HasFeature reports whether the plan enables f.
func (e *Evaluator) HasFeature(f Feature) bool {
	return e.plan.HasFeature(f)
}
