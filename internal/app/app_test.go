package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/storekit/internal/app"
	"github.com/dmitrymomot/storekit/pkg/quota"
	"github.com/dmitrymomot/storekit/pkg/ratelimit"
	"github.com/dmitrymomot/storekit/pkg/tenant"
)

func memoryConfig(tenantID uuid.UUID) app.Config {
	return app.Config{
		Env:              "test",
		Name:             "storekit",
		StoreDriver:      app.DriverMemory,
		CounterBackend:   app.DriverMemory,
		RateLimitBackend: app.DriverMemory,
		RateLimit:        ratelimit.Config{Capacity: 100, RefillRate: 1, RefillInterval: time.Second},
		PriceTiers:       map[string]string{"pri_pro": "pro"},
		TenantCacheSize:  16,
		TenantCacheTTL:   time.Minute,
		DevTenants:       map[string]string{tenantID.String(): "free"},
	}
}

func newApp(t *testing.T, cfg app.Config) *app.App {
	t.Helper()
	a, err := app.New(context.Background(), cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func post(t *testing.T, h http.Handler, tenantID uuid.UUID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/quota", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(tenant.DefaultHeader, tenantID.String())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNew_MemoryDriver(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	a := newApp(t, memoryConfig(tenantID))

	t.Run("seeded tenant is served", func(t *testing.T) {
		rec := post(t, a.Handler, tenantID, `{"action":"can_add","resource":"products"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp struct {
			Success bool `json:"success"`
			Data    struct {
				Allowed bool `json:"allowed"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.True(t, resp.Data.Allowed)
		assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Limit"))
	})

	t.Run("unknown tenant", func(t *testing.T) {
		rec := post(t, a.Handler, uuid.New(), `{"action":"summary"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("health and metrics", func(t *testing.T) {
		rec := httptest.NewRecorder()
		a.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = httptest.NewRecorder()
		a.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "storekit_quota_decisions_total")
	})

	t.Run("billing is off without a secret", func(t *testing.T) {
		rec := httptest.NewRecorder()
		a.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhooks/paddle", bytes.NewBufferString(`{}`)))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestNew_BillingEnabled(t *testing.T) {
	t.Parallel()

	cfg := memoryConfig(uuid.New())
	cfg.Paddle.WebhookSecret = "whsec_test"
	a := newApp(t, cfg)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/paddle", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNew_PlansFile(t *testing.T) {
	t.Parallel()

	plans := quota.DefaultPlans()
	plans[0].Limits[quota.ResourceAITasks] = 1
	raw, err := yaml.Marshal(map[string]any{"plans": plans})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "plans.yaml")
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	tenantID := uuid.New()
	cfg := memoryConfig(tenantID)
	cfg.PlansFile = path
	a := newApp(t, cfg)

	rec := post(t, a.Handler, tenantID, `{"action":"increment","resource":"ai_tasks"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = post(t, a.Handler, tenantID, `{"action":"increment","resource":"ai_tasks"}`)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)

	_, err = a.Quota.Remaining(context.Background(), tenantID, quota.ResourceAITasks)
	require.NoError(t, err)
}

func TestNew_RateLimitOff(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	cfg := memoryConfig(tenantID)
	cfg.RateLimitBackend = app.DriverOff
	a := newApp(t, cfg)

	rec := post(t, a.Handler, tenantID, `{"action":"summary"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestNew_SelfServiceTier(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	rec := post(t, newApp(t, memoryConfig(tenantID)).Handler, tenantID, `{"action":"change_tier","tier":"pro"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	cfg := memoryConfig(tenantID)
	cfg.SelfServiceTier = true
	a := newApp(t, cfg)
	rec = post(t, a.Handler, tenantID, `{"action":"change_tier","tier":"pro"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = post(t, a.Handler, tenantID, `{"action":"summary"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"tier":"pro"`)
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*app.Config)
		want   error
	}{
		{"unknown store driver", func(c *app.Config) { c.StoreDriver = "sqlite" }, app.ErrInvalidConfig},
		{"unknown counter backend", func(c *app.Config) { c.CounterBackend = "etcd" }, app.ErrInvalidConfig},
		{"postgres counters without postgres store", func(c *app.Config) { c.CounterBackend = app.DriverPostgres }, app.ErrInvalidConfig},
		{"unknown rate limit backend", func(c *app.Config) { c.RateLimitBackend = "nginx" }, app.ErrInvalidConfig},
		{"postgres without pool", func(c *app.Config) { c.StoreDriver = app.DriverPostgres }, app.ErrMissingDependency},
		{"redis without client", func(c *app.Config) { c.CounterBackend = app.DriverRedis }, app.ErrMissingDependency},
		{"bad dev tenant id", func(c *app.Config) { c.DevTenants = map[string]string{"acme": "free"} }, app.ErrInvalidConfig},
		{"bad dev tenant tier", func(c *app.Config) { c.DevTenants = map[string]string{uuid.NewString(): "gold"} }, app.ErrInvalidConfig},
		{"bad price tier", func(c *app.Config) { c.PriceTiers = map[string]string{"pri_x": "gold"} }, app.ErrInvalidConfig},
		{"bad rate limit", func(c *app.Config) { c.RateLimit.Capacity = 0 }, app.ErrInvalidConfig},
		{"missing plans file", func(c *app.Config) { c.PlansFile = "/nonexistent/plans.yaml" }, app.ErrFailedToLoadPlans},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := memoryConfig(uuid.New())
			tt.mutate(&cfg)
			_, err := app.New(context.Background(), cfg, nil)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestConfig_Needs(t *testing.T) {
	t.Parallel()

	cfg := app.Config{StoreDriver: app.DriverPostgres, CounterBackend: app.DriverPostgres, RateLimitBackend: app.DriverMemory}
	assert.True(t, cfg.NeedsPostgres())
	assert.False(t, cfg.NeedsRedis())

	cfg.RateLimitBackend = app.DriverRedis
	assert.True(t, cfg.NeedsRedis())
}
