// Package api is the HTTP surface of storekit.
//
// Tenant endpoints take POST {"action": "...", ...params} with the tenant in
// the X-Tenant-ID header and answer {"success": true, "data": ...} or
// {"success": false, "error": {"code", "message", "details"}}.
//
//	POST /v1/quota          can_add, remaining, usage_percentage, summary,
//	                        recommended_plan, has_feature, increment,
//	                        change_tier, can_downgrade
//	POST /v1/pricing        evaluate_rules, calculate_profit, profit_history,
//	                        list_rules, create_rule, update_rule, toggle_rule,
//	                        delete_rule
//	POST /v1/stock          sync
//	POST /webhooks/paddle   billing webhooks
//	GET  /healthz           readiness
//	GET  /metrics           Prometheus
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/storekit/internal/metrics"
	"github.com/dmitrymomot/storekit/pkg/billing"
	"github.com/dmitrymomot/storekit/pkg/clientip"
	"github.com/dmitrymomot/storekit/pkg/httpserver"
	"github.com/dmitrymomot/storekit/pkg/pricing"
	"github.com/dmitrymomot/storekit/pkg/quota"
	"github.com/dmitrymomot/storekit/pkg/ratelimit"
	"github.com/dmitrymomot/storekit/pkg/requestid"
	"github.com/dmitrymomot/storekit/pkg/stock"
	"github.com/dmitrymomot/storekit/pkg/tenant"
)

// Deps are the services behind the router. Log, Quota, Pricing, Stock and
// Tenants are required; the rest switch their feature off when nil.
type Deps struct {
	Log     *slog.Logger
	Quota   *quota.Service
	Pricing *pricing.Engine
	Stock   *stock.Syncer
	Tenants tenant.Provider

	TenantCache    tenant.Cache
	TenantCacheTTL time.Duration
	Billing        *billing.Service
	Limiter        *ratelimit.Limiter
	Metrics        *metrics.Metrics
	Health         map[string]httpserver.Check

	// SelfServiceTier enables the change_tier action. Off by default: tiers
	// follow billing webhooks, and a tenant must not upgrade itself.
	SelfServiceTier bool
}

// NewRouter wires every route.
func NewRouter(d Deps) http.Handler {
	if d.Log == nil || d.Quota == nil || d.Pricing == nil || d.Stock == nil || d.Tenants == nil {
		panic("api: log, quota, pricing, stock and tenants are required")
	}
	log := d.Log

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(clientip.Middleware())
	r.Use(middleware.Recoverer)
	r.Use(cors)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, log, errRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, log, errMethodNotAllowed)
	})

	r.Get("/healthz", httpserver.HealthHandler(log, 2*time.Second, d.Health))
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler())
	}
	if d.Billing != nil {
		r.Post("/webhooks/paddle", paddleWebhook(d.Billing, log))
	}

	r.Route("/v1", func(r chi.Router) {
		tenantOpts := []tenant.Option{
			tenant.WithCache(d.TenantCache),
			tenant.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
				writeError(w, r, log, tenantErr(err))
			}),
		}
		if d.TenantCacheTTL > 0 {
			tenantOpts = append(tenantOpts, tenant.WithCacheTTL(d.TenantCacheTTL))
		}
		r.Use(tenant.Middleware(tenant.NewHeaderResolver(tenant.DefaultHeader), d.Tenants, tenantOpts...))
		if d.Limiter != nil {
			r.Use(ratelimit.Middleware(d.Limiter, tenantKey,
				ratelimit.WithLimitedHandler(func(w http.ResponseWriter, r *http.Request, _ ratelimit.Result) {
					writeError(w, r, log, errRateLimited)
				}),
			))
		}

		r.Method(http.MethodPost, "/quota", &actionHandler{component: "quota", actions: quotaHandlers{quota: d.Quota, selfServiceTier: d.SelfServiceTier}.actions(), log: log})
		r.Method(http.MethodPost, "/pricing", &actionHandler{component: "pricing", actions: pricingHandlers{d.Pricing}.actions(), log: log})
		r.Method(http.MethodPost, "/stock", &actionHandler{component: "stock", actions: stockHandlers{d.Stock}.actions(), log: log})
	})

	return r
}

// tenantErr marks provider failures that are not tenant sentinels as upstream.
func tenantErr(err error) error {
	status, _ := classify(err)
	if status == http.StatusInternalServerError {
		return errUpstream
	}
	return err
}

func tenantKey(r *http.Request) string {
	if id, ok := tenant.IDFromContext(r.Context()); ok {
		return "tenant:" + id.String()
	}
	if ip := clientip.FromContext(r.Context()); ip != "" {
		return "ip:" + ip
	}
	return ""
}

// cors opens the API to any origin and answers preflights directly.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type, x-tenant-id, x-request-id")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Expose-Headers", "x-request-id, x-ratelimit-limit, x-ratelimit-remaining, retry-after")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
