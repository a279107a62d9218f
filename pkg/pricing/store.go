package pricing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Product is the pricing view of a catalog item.
type Product struct {
	ID              uuid.UUID `json:"id"`
	TenantID        uuid.UUID `json:"tenant_id"`
	Name            string    `json:"name"`
	Category        string    `json:"category"`
	Price           float64   `json:"price"`
	CostPrice       float64   `json:"cost_price"`
	CompetitorPrice float64   `json:"competitor_price"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Store persists products, rules and profit history.
// Implementations return ErrProductNotFound or ErrRuleNotFound for missing rows
// and ErrPriorityConflict when two active rules of a tenant would share a priority.
type Store interface {
	Product(ctx context.Context, tenantID, productID uuid.UUID) (Product, error)

	Rule(ctx context.Context, tenantID, ruleID uuid.UUID) (Rule, error)
	ListRules(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]Rule, error)
	CreateRule(ctx context.Context, rule Rule) error
	UpdateRule(ctx context.Context, rule Rule) error
	DeleteRule(ctx context.Context, tenantID, ruleID uuid.UUID) error

	// ApplyPrice sets the product price and appends calc in one step.
	// Either both writes happen or neither does.
	ApplyPrice(ctx context.Context, tenantID, productID uuid.UUID, price float64, calc ProfitCalculation) error
	InsertProfitCalculation(ctx context.Context, calc ProfitCalculation) error
	ProfitHistory(ctx context.Context, tenantID, productID uuid.UUID, limit int) ([]ProfitCalculation, error)
}

// Observer receives evaluation outcomes.
type Observer interface {
	ObserveEvaluation(applied bool, rulesApplied int)
}
