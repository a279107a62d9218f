// Package app assembles storekit from configuration: stores, services and the
// HTTP router. Connections are opened by the caller and passed in as options,
// so the memory driver runs without any infrastructure.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/storekit/internal/api"
	"github.com/dmitrymomot/storekit/internal/metrics"
	"github.com/dmitrymomot/storekit/internal/pgstore"
	"github.com/dmitrymomot/storekit/internal/redisstore"
	"github.com/dmitrymomot/storekit/pkg/billing"
	"github.com/dmitrymomot/storekit/pkg/httpserver"
	"github.com/dmitrymomot/storekit/pkg/logger"
	"github.com/dmitrymomot/storekit/pkg/pg"
	"github.com/dmitrymomot/storekit/pkg/pricing"
	"github.com/dmitrymomot/storekit/pkg/quota"
	"github.com/dmitrymomot/storekit/pkg/ratelimit"
	"github.com/dmitrymomot/storekit/pkg/redis"
	"github.com/dmitrymomot/storekit/pkg/stock"
	"github.com/dmitrymomot/storekit/pkg/tenant"
)

// App is a wired storekit instance.
type App struct {
	Handler http.Handler
	Metrics *metrics.Metrics
	Quota   *quota.Service

	closers []func()
}

// Option supplies an external connection or collaborator.
type Option func(*options)

type options struct {
	pool        *pgxpool.Pool
	redis       goredis.UniversalClient
	redisPrefix string
	registry    *prometheus.Registry
}

// WithPostgres provides the pool used by the postgres driver and counters.
func WithPostgres(pool *pgxpool.Pool) Option {
	return func(o *options) { o.pool = pool }
}

// WithRedis provides the client for redis usage counters and rate limiting.
// Keys are written under prefix.
func WithRedis(client goredis.UniversalClient, prefix string) Option {
	return func(o *options) {
		o.redis = client
		o.redisPrefix = prefix
	}
}

// WithRegistry registers metrics on reg instead of a fresh registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// New builds the services described by cfg.
func New(ctx context.Context, cfg Config, log *slog.Logger, opts ...Option) (*App, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.NeedsPostgres() && o.pool == nil {
		return nil, fmt.Errorf("%w: postgres pool for store driver %q", ErrMissingDependency, cfg.StoreDriver)
	}
	if cfg.NeedsRedis() && o.redis == nil {
		return nil, fmt.Errorf("%w: redis client", ErrMissingDependency)
	}
	if o.registry == nil {
		o.registry = prometheus.NewRegistry()
		o.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	plans, err := loadPlans(ctx, cfg.PlansFile)
	if err != nil {
		return nil, err
	}
	prices, err := billing.ParsePriceTiers(cfg.PriceTiers)
	if err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	s, err := buildStores(cfg, o)
	if err != nil {
		return nil, err
	}

	m := metrics.New(o.registry, o.registry)
	a := &App{Metrics: m}

	a.Quota = quota.NewService(plans, s.tiers, quota.NewAggregator(s.counters),
		quota.WithCounterStore(s.usage),
		quota.WithObserver(m),
	)

	limiter, err := a.limiter(cfg, o)
	if err != nil {
		a.Close()
		return nil, err
	}

	var billingSvc *billing.Service
	if cfg.Paddle.WebhookSecret != "" {
		provider, err := billing.NewPaddleProvider(cfg.Paddle)
		if err != nil {
			a.Close()
			return nil, errors.Join(ErrInvalidConfig, err)
		}
		billingSvc = billing.NewService(provider, a.Quota, prices,
			billing.WithObserver(m),
			billing.WithSubscriptionStore(s.subscriptions),
		)
	} else {
		log.WarnContext(ctx, "billing webhooks disabled, PADDLE_WEBHOOK_SECRET is not set", logger.Component("app"))
	}

	var cache tenant.Cache
	if cfg.TenantCacheSize > 0 {
		cache = tenant.NewMemoryCache(cfg.TenantCacheSize)
	}

	a.Handler = api.NewRouter(api.Deps{
		Log:             log,
		Quota:           a.Quota,
		Pricing:         pricing.NewEngine(s.pricing, pricing.WithObserver(m)),
		Stock:           stock.NewSyncer(s.stock, stock.WithObserver(m)),
		Tenants:         s.tenants,
		TenantCache:     cache,
		TenantCacheTTL:  cfg.TenantCacheTTL,
		SelfServiceTier: cfg.SelfServiceTier,
		Billing:         billingSvc,
		Limiter:         limiter,
		Metrics:         m,
		Health:          s.health,
	})

	log.InfoContext(ctx, "storekit assembled",
		logger.Component("app"),
		slog.String("store_driver", cfg.StoreDriver),
		slog.String("usage_counters", cfg.CounterBackend),
		slog.String("rate_limit", cfg.RateLimitBackend),
		slog.Bool("billing", billingSvc != nil),
	)
	return a, nil
}

// Close releases background workers started by New. Connections passed in
// as options stay open.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) limiter(cfg Config, o options) (*ratelimit.Limiter, error) {
	var store ratelimit.Store
	switch cfg.RateLimitBackend {
	case DriverOff:
		return nil, nil
	case DriverRedis:
		store = ratelimit.NewRedisStore(o.redis, o.redisPrefix)
	default:
		mem := ratelimit.NewMemoryStore()
		a.closers = append(a.closers, mem.Close)
		store = mem
	}
	l, err := ratelimit.New(store, cfg.RateLimit)
	if err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	return l, nil
}

func loadPlans(ctx context.Context, path string) (*quota.Registry, error) {
	src := quota.NewInMemSource(quota.DefaultPlans()...)
	if path != "" {
		src = quota.NewYAMLSource(path)
	}
	reg, err := quota.NewRegistry(ctx, src)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}
	return reg, nil
}

type stores struct {
	tenants       tenant.Provider
	tiers         quota.TierStore
	usage         quota.CounterStore
	counters      quota.CounterRegistry
	pricing       pricing.Store
	stock         stock.Store
	subscriptions billing.SubscriptionStore
	health        map[string]httpserver.Check
}

func buildStores(cfg Config, o options) (stores, error) {
	s := stores{
		counters: quota.NewCounterRegistry(),
		health:   make(map[string]httpserver.Check),
	}

	switch cfg.StoreDriver {
	case DriverPostgres:
		tenants := pgstore.NewTenants(o.pool)
		s.tenants = tenants
		s.tiers = tenants
		s.pricing = pgstore.NewPricing(o.pool)
		s.stock = pgstore.NewStock(o.pool)
		s.subscriptions = pgstore.NewSubscriptions(o.pool)
		pgstore.RowCounters(o.pool, s.counters)
		s.health["postgres"] = pg.Healthcheck(o.pool)

	default:
		seeds, err := cfg.devTenants()
		if err != nil {
			return s, err
		}
		mem := quota.NewMemoryStore()
		for _, t := range seeds {
			mem.AddTenant(t.id, t.tier)
		}
		products := pricing.NewMemoryStore()

		s.tenants = memoryTenants(mem)
		s.tiers = mem
		s.pricing = products
		s.stock = stock.NewMemoryStore()
		s.subscriptions = billing.NewMemorySubscriptionStore()
		s.counters.Register(quota.ResourceProducts, products.CountProducts)
		for _, res := range []quota.Resource{quota.ResourceStores, quota.ResourceOrders, quota.ResourceUsers, quota.ResourceCustomDomains} {
			s.counters.Register(res, quota.StoreCounter(mem, res))
		}
		s.usage = mem
	}

	switch cfg.CounterBackend {
	case DriverPostgres:
		s.usage = pgstore.NewCounters(o.pool)
	case DriverRedis:
		s.usage = redisstore.NewCounters(o.redis, o.redisPrefix)
	default:
		if s.usage == nil {
			s.usage = quota.NewMemoryStore()
		}
	}
	for _, res := range quota.MeteredResources() {
		s.counters.Register(res, quota.StoreCounter(s.usage, res))
	}

	if o.redis != nil {
		s.health["redis"] = redis.Healthcheck(o.redis)
	}
	return s, nil
}

// memoryTenants serves every tenant the memory store knows as active.
func memoryTenants(tiers quota.TierStore) tenant.Provider {
	return tenant.ProviderFunc(func(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
		if _, err := tiers.Tier(ctx, id); err != nil {
			if errors.Is(err, quota.ErrTenantNotFound) {
				return nil, tenant.ErrTenantNotFound
			}
			return nil, err
		}
		return &tenant.Tenant{ID: id, Name: id.String(), Active: true}, nil
	})
}
