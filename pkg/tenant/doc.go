// Package tenant resolves the tenant of an API request.
//
// Middleware reads the tenant id with a Resolver (X-Tenant-ID by default),
// loads the tenant through a Provider, caches it briefly and stores it in the
// request context. Handlers read it back with FromContext or IDFromContext.
//
//	r.Use(tenant.Middleware(
//	    tenant.NewHeaderResolver(""),
//	    tenants,
//	    tenant.WithErrorHandler(writeTenantError),
//	))
//
// Only identity and the active flag are cached. Anything that can change
// between requests, like the plan tier, is loaded by the services themselves.
package tenant
