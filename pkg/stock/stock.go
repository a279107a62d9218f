package stock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidUpdate = errors.New("stock: invalid update")
	ErrUpstream      = errors.New("stock: store unavailable")
	ErrConflict      = errors.New("stock: quantity changed concurrently")
)

// DefaultLowStockThreshold applies to tenants without their own setting.
const DefaultLowStockThreshold int64 = 10

// MaxBatchSize caps the number of updates in one Sync call.
const MaxBatchSize = 1000

// Update is a quantity reported by a supplier or storefront.
type Update struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int64     `json:"quantity" validate:"gte=0"`
}

// AlertKind classifies a stock alert.
type AlertKind string

const (
	AlertLowStock   AlertKind = "low_stock"
	AlertOutOfStock AlertKind = "out_of_stock"
)

// Change is one stock history row.
type Change struct {
	ID               uuid.UUID `json:"id"`
	TenantID         uuid.UUID `json:"tenant_id"`
	ProductID        uuid.UUID `json:"product_id"`
	PreviousQuantity int64     `json:"previous_quantity"`
	NewQuantity      int64     `json:"new_quantity"`
	Reason           string    `json:"reason"`
	CreatedAt        time.Time `json:"created_at"`
}

// Delta is the signed change in quantity.
func (c Change) Delta() int64 { return c.NewQuantity - c.PreviousQuantity }

// Alert is raised when a product drops to or below the tenant threshold.
type Alert struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	ProductID uuid.UUID `json:"product_id"`
	Kind      AlertKind `json:"kind"`
	Quantity  int64     `json:"quantity"`
	Threshold int64     `json:"threshold"`
	CreatedAt time.Time `json:"created_at"`
}

// Store reads and writes stock levels.
type Store interface {
	// Levels returns current quantities for the products the tenant owns.
	// Unknown product IDs are absent from the result.
	Levels(ctx context.Context, tenantID uuid.UUID, productIDs []uuid.UUID) (map[uuid.UUID]int64, error)
	// LowStockThreshold returns the tenant setting, or zero when unset.
	LowStockThreshold(ctx context.Context, tenantID uuid.UUID) (int64, error)
	// Apply writes new quantities with their history rows and alerts atomically.
	// It returns ErrConflict, writing nothing, when a stored quantity no longer
	// equals the change's PreviousQuantity.
	Apply(ctx context.Context, tenantID uuid.UUID, changes []Change, alerts []Alert) error
}

// Observer receives sync results.
type Observer interface {
	ObserveSync(res SyncResult)
}
