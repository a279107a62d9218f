// Package quota enforces plan limits and feature flags for tenants.
//
// A Registry holds the immutable tier to plan table. An Aggregator recomputes
// a usage Snapshot from registered counters; a snapshot is either Known or
// Unknown, and every check made against an Unknown snapshot denies with
// ErrUsageUnknown instead of silently allowing.
//
// Quota questions are answered by an Evaluator built per request from the
// tenant's plan and a fresh snapshot:
//
//	registry, err := quota.NewRegistry(ctx, quota.NewInMemSource(quota.DefaultPlans()...))
//	counters := quota.NewCounterRegistry().
//	    Register(quota.ResourceProducts, countProducts)
//	svc := quota.NewService(registry, tierStore, quota.NewAggregator(counters))
//
//	ok, err := svc.CanAdd(ctx, tenantID, quota.ResourceProducts)
//	if err != nil {
//	    // usage unknown or store failure: deny
//	}
//
// Metered resources (AI tasks, API calls, storage) are recorded through
// Service.Increment, which checks the limit and writes in one store call.
package quota
