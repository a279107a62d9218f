package tenant

import (
	"errors"
	"net/http"
	"time"
)

// ErrorHandler writes the response when a tenant cannot be resolved.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

type config struct {
	cache         Cache
	cacheTTL      time.Duration
	errorHandler  ErrorHandler
	requireActive bool
}

// Option configures Middleware.
type Option func(*config)

// WithCache replaces the default in-memory cache. Nil disables caching.
func WithCache(c Cache) Option {
	return func(cfg *config) { cfg.cache = c }
}

// WithCacheTTL sets how long a resolved tenant is reused.
func WithCacheTTL(ttl time.Duration) Option {
	return func(cfg *config) { cfg.cacheTTL = ttl }
}

func WithErrorHandler(h ErrorHandler) Option {
	return func(cfg *config) {
		if h != nil {
			cfg.errorHandler = h
		}
	}
}

// WithRequireActive rejects inactive tenants. Enabled by default.
func WithRequireActive(require bool) Option {
	return func(cfg *config) { cfg.requireActive = require }
}

// Middleware resolves the tenant for every request and stores it in the
// request context. Requests without a valid, known tenant never reach next.
func Middleware(resolver Resolver, provider Provider, opts ...Option) func(http.Handler) http.Handler {
	if resolver == nil || provider == nil {
		panic("tenant: resolver and provider are required")
	}
	cfg := &config{
		cache:         NewMemoryCache(DefaultCacheSize),
		cacheTTL:      time.Minute,
		errorHandler:  DefaultErrorHandler,
		requireActive: true,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := resolver.Resolve(r)
			if err != nil {
				cfg.errorHandler(w, r, err)
				return
			}

			var (
				t      *Tenant
				cached bool
			)
			if cfg.cache != nil {
				t, cached = cfg.cache.Get(id)
			}
			if !cached {
				t, err = provider.Tenant(r.Context(), id)
				if err != nil {
					cfg.errorHandler(w, r, err)
					return
				}
				if cfg.cache != nil {
					cfg.cache.Set(t, cfg.cacheTTL)
				}
			}

			if cfg.requireActive && !t.Active {
				cfg.errorHandler(w, r, ErrInactiveTenant)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithTenant(r.Context(), t)))
		})
	}
}

// DefaultErrorHandler writes a plain-text status.
func DefaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	switch {
	case errors.Is(err, ErrMissingIdentifier), errors.Is(err, ErrInvalidIdentifier):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrTenantNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrInactiveTenant):
		http.Error(w, err.Error(), http.StatusForbidden)
	default:
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
	}
}
