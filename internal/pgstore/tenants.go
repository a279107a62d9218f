package pgstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrymomot/storekit/pkg/pg"
	"github.com/dmitrymomot/storekit/pkg/quota"
	"github.com/dmitrymomot/storekit/pkg/tenant"
)

// Tenants reads tenant rows. It is a quota.TierStore and a tenant.Provider.
type Tenants struct {
	db DB
}

func NewTenants(db DB) *Tenants {
	return &Tenants{db: db}
}

func (s *Tenants) Tenant(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	sb := flavor.NewSelectBuilder()
	sb.Select("id", "name", "active", "created_at").
		From("tenants").
		Where(sb.Equal("id", id))

	var t tenant.Tenant
	if err := queryRow(ctx, s.db, sb).Scan(&t.ID, &t.Name, &t.Active, &t.CreatedAt); err != nil {
		if pg.IsNotFoundError(err) {
			return nil, tenant.ErrTenantNotFound
		}
		return nil, fmt.Errorf("load tenant: %w", err)
	}
	return &t, nil
}

func (s *Tenants) Tier(ctx context.Context, tenantID uuid.UUID) (quota.Tier, error) {
	sb := flavor.NewSelectBuilder()
	sb.Select("tier").From("tenants").Where(sb.Equal("id", tenantID))

	var tier string
	if err := queryRow(ctx, s.db, sb).Scan(&tier); err != nil {
		if pg.IsNotFoundError(err) {
			return "", quota.ErrTenantNotFound
		}
		return "", fmt.Errorf("load tier: %w", err)
	}
	return quota.Tier(tier), nil
}

func (s *Tenants) SetTier(ctx context.Context, tenantID uuid.UUID, tier quota.Tier) error {
	ub := flavor.NewUpdateBuilder()
	ub.Update("tenants").
		Set(ub.Assign("tier", string(tier)), "updated_at = now()").
		Where(ub.Equal("id", tenantID))

	tag, err := exec(ctx, s.db, ub)
	if err != nil {
		return fmt.Errorf("set tier: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return quota.ErrTenantNotFound
	}
	return nil
}

// LowStockThreshold returns the tenant setting, zero when unset.
func (s *Tenants) LowStockThreshold(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	sb := flavor.NewSelectBuilder()
	sb.Select("COALESCE(low_stock_threshold, 0)").From("tenants").Where(sb.Equal("id", tenantID))

	var n int64
	if err := queryRow(ctx, s.db, sb).Scan(&n); err != nil {
		if pg.IsNotFoundError(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("load low stock threshold: %w", err)
	}
	return n, nil
}
