package quota

// DefaultPlans returns the built-in reference limit table.
func DefaultPlans() []Plan {
	return []Plan{
		{
			Tier: TierFree,
			Name: "Free",
			Limits: map[Resource]int64{
				ResourceProducts:      100,
				ResourceStores:        1,
				ResourceOrders:        500,
				ResourceAITasks:       50,
				ResourceAPICalls:      1_000,
				ResourceStorage:       1_024,
				ResourceUsers:         1,
				ResourceCustomDomains: 0,
			},
			Features: []Feature{},
		},
		{
			Tier: TierStarter,
			Name: "Starter",
			Limits: map[Resource]int64{
				ResourceProducts:      1_000,
				ResourceStores:        3,
				ResourceOrders:        5_000,
				ResourceAITasks:       500,
				ResourceAPICalls:      10_000,
				ResourceStorage:       10_240,
				ResourceUsers:         3,
				ResourceCustomDomains: 1,
			},
			Features: []Feature{FeatureAdvancedAnalytics},
		},
		{
			Tier: TierPro,
			Name: "Pro",
			Limits: map[Resource]int64{
				ResourceProducts:      10_000,
				ResourceStores:        10,
				ResourceOrders:        50_000,
				ResourceAITasks:       5_000,
				ResourceAPICalls:      100_000,
				ResourceStorage:       102_400,
				ResourceUsers:         10,
				ResourceCustomDomains: 5,
			},
			Features: []Feature{
				FeatureAdvancedAnalytics,
				FeatureAIAutomation,
				FeatureMultiStore,
				FeaturePrioritySupport,
			},
		},
		{
			Tier: TierEnterprise,
			Name: "Enterprise",
			Limits: map[Resource]int64{
				ResourceProducts:      Unlimited,
				ResourceStores:        Unlimited,
				ResourceOrders:        Unlimited,
				ResourceAITasks:       Unlimited,
				ResourceAPICalls:      Unlimited,
				ResourceStorage:       Unlimited,
				ResourceUsers:         Unlimited,
				ResourceCustomDomains: Unlimited,
			},
			Features: []Feature{
				FeatureAdvancedAnalytics,
				FeatureAIAutomation,
				FeatureMultiStore,
				FeatureWhiteLabel,
				FeaturePrioritySupport,
				FeatureCustomIntegrations,
			},
		},
	}
}
