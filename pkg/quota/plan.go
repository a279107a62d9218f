package quota

import (
	"maps"
	"slices"
)

// Plan describes a tier and its resource/feature constraints.
type Plan struct {
	Tier        Tier               `yaml:"tier" json:"tier"`
	Name        string             `yaml:"name" json:"name"`
	Description string             `yaml:"description" json:"description,omitempty"`
	Limits      map[Resource]int64 `yaml:"limits" json:"limits"` // -1 is unlimited
	Features    []Feature          `yaml:"features" json:"features"`
}

// Limit returns the ceiling for res and whether the plan defines it.
func (p Plan) Limit(res Resource) (int64, bool) {
	limit, ok := p.Limits[res]
	return limit, ok
}

// HasFeature reports whether the feature flag is enabled for this plan.
func (p Plan) HasFeature(f Feature) bool {
	return slices.Contains(p.Features, f)
}

func (p Plan) clone() Plan {
	return Plan{
		Tier:        p.Tier,
		Name:        p.Name,
		Description: p.Description,
		Limits:      maps.Clone(p.Limits),
		Features:    slices.Clone(p.Features),
	}
}

// PlanComparison contains the differences between two plans.
type PlanComparison struct {
	// Features gained in the target plan
	NewFeatures []Feature `json:"new_features"`
	// Features lost from the current plan
	LostFeatures []Feature `json:"lost_features"`
	// Resources with increased limits (old limit -> new limit)
	IncreasedLimits map[Resource]ResourceChange `json:"increased_limits"`
	// Resources with decreased limits (old limit -> new limit)
	DecreasedLimits map[Resource]ResourceChange `json:"decreased_limits"`
}

// ResourceChange represents a change in resource limit.
type ResourceChange struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// HasResourceDecreases returns true if any resources have decreased limits.
func (c *PlanComparison) HasResourceDecreases() bool {
	return len(c.DecreasedLimits) > 0
}

// ComparePlans returns the differences between current and target plans.
// Resources missing from one side are treated as a zero limit.
func ComparePlans(current, target *Plan) *PlanComparison {
	if current == nil || target == nil {
		return nil
	}

	comparison := &PlanComparison{
		NewFeatures:     make([]Feature, 0),
		LostFeatures:    make([]Feature, 0),
		IncreasedLimits: make(map[Resource]ResourceChange),
		DecreasedLimits: make(map[Resource]ResourceChange),
	}

	for _, feature := range target.Features {
		if !slices.Contains(current.Features, feature) {
			comparison.NewFeatures = append(comparison.NewFeatures, feature)
		}
	}
	for _, feature := range current.Features {
		if !slices.Contains(target.Features, feature) {
			comparison.LostFeatures = append(comparison.LostFeatures, feature)
		}
	}

	for _, res := range allResources {
		from := current.Limits[res]
		to := target.Limits[res]
		if from == to {
			continue
		}
		change := ResourceChange{From: from, To: to}
		if isIncrease(from, to) {
			comparison.IncreasedLimits[res] = change
		} else {
			comparison.DecreasedLimits[res] = change
		}
	}

	return comparison
}

// isIncrease treats unlimited as larger than any finite value.
func isIncrease(from, to int64) bool {
	switch {
	case from == Unlimited:
		return false
	case to == Unlimited:
		return true
	default:
		return to > from
	}
}
