package pgstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/storekit/pkg/stock"
)

// Stock is the PostgreSQL stock.Store.
type Stock struct {
	db      DB
	tenants *Tenants
}

func NewStock(db DB) *Stock {
	return &Stock{db: db, tenants: NewTenants(db)}
}

func (s *Stock) Levels(ctx context.Context, tenantID uuid.UUID, productIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	levels := make(map[uuid.UUID]int64, len(productIDs))
	if len(productIDs) == 0 {
		return levels, nil
	}

	sb := flavor.NewSelectBuilder()
	sb.Select("id", "stock_quantity").
		From("products").
		Where(sb.Equal("tenant_id", tenantID), sb.In("id", anySlice(productIDs)...))

	rows, err := query(ctx, s.db, sb)
	if err != nil {
		return nil, fmt.Errorf("load stock levels: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id  uuid.UUID
			qty int64
		)
		if err := rows.Scan(&id, &qty); err != nil {
			return nil, fmt.Errorf("scan stock level: %w", err)
		}
		levels[id] = qty
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load stock levels: %w", err)
	}
	return levels, nil
}

func (s *Stock) LowStockThreshold(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	return s.tenants.LowStockThreshold(ctx, tenantID)
}

// Apply writes all changes, history rows and alerts in one transaction.
// Each quantity update is guarded by the previous value it was computed from.
func (s *Stock) Apply(ctx context.Context, tenantID uuid.UUID, changes []stock.Change, alerts []stock.Alert) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		for _, c := range changes {
			ub := flavor.NewUpdateBuilder()
			ub.Update("products").
				Set(ub.Assign("stock_quantity", c.NewQuantity), ub.Assign("updated_at", c.CreatedAt)).
				Where(
					ub.Equal("id", c.ProductID),
					ub.Equal("tenant_id", tenantID),
					ub.Equal("stock_quantity", c.PreviousQuantity),
				)
			tag, err := exec(ctx, tx, ub)
			if err != nil {
				return fmt.Errorf("update stock: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("%w: product %s", stock.ErrConflict, c.ProductID)
			}
		}

		batch := &pgx.Batch{}
		for _, c := range changes {
			ib := flavor.NewInsertBuilder()
			ib.InsertInto("stock_history").
				Cols("id", "tenant_id", "product_id", "previous_quantity", "new_quantity", "reason", "created_at").
				Values(c.ID, tenantID, c.ProductID, c.PreviousQuantity, c.NewQuantity, c.Reason, c.CreatedAt)
			sql, args := ib.Build()
			batch.Queue(sql, args...)
		}
		for _, a := range alerts {
			ib := flavor.NewInsertBuilder()
			ib.InsertInto("stock_alerts").
				Cols("id", "tenant_id", "product_id", "kind", "quantity", "threshold", "created_at").
				Values(a.ID, tenantID, a.ProductID, string(a.Kind), a.Quantity, a.Threshold, a.CreatedAt)
			sql, args := ib.Build()
			batch.Queue(sql, args...)
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("record stock history: %w", err)
		}
		return nil
	})
}
