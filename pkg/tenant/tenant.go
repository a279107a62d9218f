package tenant

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/storekit/pkg/logger"
)

var (
	ErrTenantNotFound    = errors.New("tenant: not found")
	ErrMissingIdentifier = errors.New("tenant: missing identifier")
	ErrInvalidIdentifier = errors.New("tenant: invalid identifier")
	ErrInactiveTenant    = errors.New("tenant: inactive")
)

// Tenant is the request-scoped view of a store owner account.
// The plan tier is deliberately absent: quota decisions read it fresh per request.
type Tenant struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Provider loads a tenant by id. Returns ErrTenantNotFound for unknown ids.
type Provider interface {
	Tenant(ctx context.Context, id uuid.UUID) (*Tenant, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, id uuid.UUID) (*Tenant, error)

func (f ProviderFunc) Tenant(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	return f(ctx, id)
}

type contextKey struct{}

// WithTenant stores t in ctx.
func WithTenant(ctx context.Context, t *Tenant) context.Context {
	return context.WithValue(ctx, contextKey{}, t)
}

// FromContext returns the tenant set by Middleware.
func FromContext(ctx context.Context) (*Tenant, bool) {
	t, ok := ctx.Value(contextKey{}).(*Tenant)
	return t, ok && t != nil
}

// IDFromContext returns the tenant id set by Middleware.
func IDFromContext(ctx context.Context) (uuid.UUID, bool) {
	t, ok := FromContext(ctx)
	if !ok {
		return uuid.Nil, false
	}
	return t.ID, true
}

// Extractor is a logger.ContextExtractor adding tenant_id to log records.
func Extractor(ctx context.Context) (slog.Attr, bool) {
	id, ok := IDFromContext(ctx)
	if !ok {
		return slog.Attr{}, false
	}
	return logger.TenantID(id.String()), true
}
