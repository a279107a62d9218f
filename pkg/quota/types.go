package quota

import "fmt"

// Tier is a subscription level controlling numeric limits and feature flags.
type Tier string

// Plan tiers, cheapest first.
const (
	TierFree       Tier = "free"
	TierStarter    Tier = "starter"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

var tierOrder = []Tier{TierFree, TierStarter, TierPro, TierEnterprise}

// Tiers returns all tiers ordered from the cheapest to the most expensive.
func Tiers() []Tier {
	out := make([]Tier, len(tierOrder))
	copy(out, tierOrder)
	return out
}

// ParseTier converts a raw string into a known Tier.
func ParseTier(s string) (Tier, error) {
	for _, t := range tierOrder {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTier, s)
}

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	return t.rank() >= 0
}

// Next returns the tier one step up. The top tier returns itself.
func (t Tier) Next() Tier {
	i := t.rank()
	if i < 0 || i == len(tierOrder)-1 {
		return t
	}
	return tierOrder[i+1]
}

// Below reports whether t is strictly cheaper than other.
func (t Tier) Below(other Tier) bool {
	return t.rank() < other.rank()
}

func (t Tier) rank() int {
	for i, v := range tierOrder {
		if v == t {
			return i
		}
	}
	return -1
}

// Resource represents a countable tenant resource type.
type Resource string

// Predefined resource types.
const (
	ResourceProducts      Resource = "products"
	ResourceStores        Resource = "stores"
	ResourceOrders        Resource = "orders"
	ResourceAITasks       Resource = "ai_tasks"
	ResourceAPICalls      Resource = "api_calls"
	ResourceStorage       Resource = "storage" // megabytes
	ResourceUsers         Resource = "users"
	ResourceCustomDomains Resource = "custom_domains"
)

var allResources = []Resource{
	ResourceProducts,
	ResourceStores,
	ResourceOrders,
	ResourceAITasks,
	ResourceAPICalls,
	ResourceStorage,
	ResourceUsers,
	ResourceCustomDomains,
}

// Resources returns every resource key known to the registry.
func Resources() []Resource {
	out := make([]Resource, len(allResources))
	copy(out, allResources)
	return out
}

// ParseResource converts a raw string into a known Resource.
func ParseResource(s string) (Resource, error) {
	for _, r := range allResources {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidResource, s)
}

// Unlimited represents a resource with no ceiling.
const Unlimited int64 = -1

// Feature is a plan-specific capability flag.
type Feature string

// Predefined feature flags.
const (
	FeatureAdvancedAnalytics  Feature = "advanced_analytics"
	FeatureAIAutomation       Feature = "ai_automation"
	FeatureMultiStore         Feature = "multi_store"
	FeatureWhiteLabel         Feature = "white_label"
	FeaturePrioritySupport    Feature = "priority_support"
	FeatureCustomIntegrations Feature = "custom_integrations"
)

var allFeatures = []Feature{
	FeatureAdvancedAnalytics,
	FeatureAIAutomation,
	FeatureMultiStore,
	FeatureWhiteLabel,
	FeaturePrioritySupport,
	FeatureCustomIntegrations,
}

// ParseFeature converts a raw string into a known Feature.
func ParseFeature(s string) (Feature, error) {
	for _, f := range allFeatures {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFeature, s)
}

// UsageInfo contains the current usage and limit for a resource.
type UsageInfo struct {
	Current    int64   `json:"current"`
	Limit      int64   `json:"limit"`
	Remaining  int64   `json:"remaining"`
	Percentage float64 `json:"percentage"`
	Unlimited  bool    `json:"unlimited"`
}

// Remaining is the headroom left for a resource.
// Value is meaningless when Unlimited is set.
type Remaining struct {
	Unlimited bool  `json:"unlimited"`
	Value     int64 `json:"value"`
}
