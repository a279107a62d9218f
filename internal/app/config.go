package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/storekit/pkg/billing"
	"github.com/dmitrymomot/storekit/pkg/quota"
	"github.com/dmitrymomot/storekit/pkg/ratelimit"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverOff      = "off"
)

// Config is the process level configuration. Connection settings live in the
// pg, redis and httpserver packages.
type Config struct {
	Env      string `env:"APP_ENV" envDefault:"development"`
	Name     string `env:"APP_NAME" envDefault:"storekit"`
	LogLevel string `env:"LOG_LEVEL"`

	// StoreDriver selects where tenants, products, rules and stock live.
	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`
	// CounterBackend selects where metered usage counters live.
	CounterBackend string `env:"USAGE_COUNTER_BACKEND" envDefault:"postgres"`
	// RateLimitBackend is memory, redis or off.
	RateLimitBackend string `env:"RATE_LIMIT_BACKEND" envDefault:"memory"`
	RateLimit        ratelimit.Config

	// PlansFile overrides the built-in plan table with a YAML document.
	PlansFile string `env:"PLANS_FILE"`
	// PriceTiers maps billing price IDs to tiers: "pri_123=pro,pri_456=enterprise".
	PriceTiers map[string]string `env:"BILLING_PRICE_TIERS" envKeyValSeparator:"="`
	Paddle     billing.PaddleConfig

	TenantCacheSize int           `env:"TENANT_CACHE_SIZE" envDefault:"1024"`
	TenantCacheTTL  time.Duration `env:"TENANT_CACHE_TTL" envDefault:"1m"`

	// SelfServiceTier exposes change_tier to tenants. Enable only behind a
	// trusted gateway or in development.
	SelfServiceTier bool `env:"QUOTA_SELF_SERVICE_TIER" envDefault:"false"`

	// DevTenants seeds the memory driver: "<uuid>=<tier>,...".
	DevTenants map[string]string `env:"APP_DEV_TENANTS" envKeyValSeparator:"="`
}

func (c Config) validate() error {
	switch c.StoreDriver {
	case DriverMemory, DriverPostgres:
	default:
		return fmt.Errorf("%w: unknown store driver %q", ErrInvalidConfig, c.StoreDriver)
	}
	switch c.CounterBackend {
	case DriverMemory, DriverRedis:
	case DriverPostgres:
		if c.StoreDriver != DriverPostgres {
			return fmt.Errorf("%w: postgres usage counters need the postgres store driver", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown usage counter backend %q", ErrInvalidConfig, c.CounterBackend)
	}
	switch c.RateLimitBackend {
	case DriverMemory, DriverRedis, DriverOff:
	default:
		return fmt.Errorf("%w: unknown rate limit backend %q", ErrInvalidConfig, c.RateLimitBackend)
	}
	return nil
}

// NeedsPostgres reports whether the process must connect to PostgreSQL.
func (c Config) NeedsPostgres() bool { return c.StoreDriver == DriverPostgres }

// NeedsRedis reports whether the process must connect to Redis.
func (c Config) NeedsRedis() bool {
	return c.CounterBackend == DriverRedis || c.RateLimitBackend == DriverRedis
}

type devTenant struct {
	id   uuid.UUID
	tier quota.Tier
}

func (c Config) devTenants() ([]devTenant, error) {
	out := make([]devTenant, 0, len(c.DevTenants))
	for rawID, rawTier := range c.DevTenants {
		id, err := uuid.Parse(strings.TrimSpace(rawID))
		if err != nil {
			return nil, fmt.Errorf("%w: dev tenant %q: %v", ErrInvalidConfig, rawID, err)
		}
		tier, err := quota.ParseTier(strings.TrimSpace(rawTier))
		if err != nil {
			return nil, fmt.Errorf("%w: dev tenant %s: %v", ErrInvalidConfig, id, err)
		}
		out = append(out, devTenant{id: id, tier: tier})
	}
	return out, nil
}
