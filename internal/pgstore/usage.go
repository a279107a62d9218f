package pgstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrymomot/storekit/pkg/pg"
	"github.com/dmitrymomot/storekit/pkg/quota"
)

// rowTables maps row-counted resources to the table holding them.
var rowTables = map[quota.Resource]string{
	quota.ResourceProducts:      "products",
	quota.ResourceStores:        "stores",
	quota.ResourceOrders:        "orders",
	quota.ResourceUsers:         "tenant_users",
	quota.ResourceCustomDomains: "custom_domains",
}

// RowCounters registers a COUNT(*) counter for every row-counted resource.
func RowCounters(db DB, reg quota.CounterRegistry) quota.CounterRegistry {
	for res, table := range rowTables {
		reg.Register(res, countRows(db, table))
	}
	return reg
}

func countRows(db DB, table string) quota.CounterFunc {
	return func(ctx context.Context, tenantID uuid.UUID) (int64, error) {
		sb := flavor.NewSelectBuilder()
		sb.Select("COUNT(*)").From(table).Where(sb.Equal("tenant_id", tenantID))

		var n int64
		if err := queryRow(ctx, db, sb).Scan(&n); err != nil {
			return 0, fmt.Errorf("count %s: %w", table, err)
		}
		return n, nil
	}
}

// Counters keeps metered usage totals in usage_counters.
type Counters struct {
	db DB
}

func NewCounters(db DB) *Counters {
	return &Counters{db: db}
}

func (s *Counters) Get(ctx context.Context, tenantID uuid.UUID, res quota.Resource) (int64, error) {
	sb := flavor.NewSelectBuilder()
	sb.Select("value").From("usage_counters").Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("resource", string(res)),
	)

	var n int64
	if err := queryRow(ctx, s.db, sb).Scan(&n); err != nil {
		if pg.IsNotFoundError(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("get counter: %w", err)
	}
	return n, nil
}

// incrementSQL upserts the counter; the conflict branch only fires while the
// new total stays within $4 (negative means unlimited).
const incrementSQL = `
INSERT INTO usage_counters (tenant_id, resource, value)
VALUES ($1, $2, $3)
ON CONFLICT (tenant_id, resource) DO UPDATE
SET value = usage_counters.value + EXCLUDED.value, updated_at = now()
WHERE $4::bigint < 0 OR usage_counters.value + EXCLUDED.value <= $4::bigint
RETURNING value`

func (s *Counters) Increment(ctx context.Context, tenantID uuid.UUID, res quota.Resource, delta, limit int64) (int64, error) {
	if limit != quota.Unlimited && delta > limit {
		return 0, quota.ErrLimitExceeded
	}

	var n int64
	err := s.db.QueryRow(ctx, incrementSQL, tenantID, string(res), delta, limit).Scan(&n)
	switch {
	case err == nil:
		return n, nil
	case pg.IsNotFoundError(err):
		return 0, quota.ErrLimitExceeded
	default:
		return 0, fmt.Errorf("increment counter: %w", err)
	}
}
