package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/storekit/pkg/pg"
	"github.com/dmitrymomot/storekit/pkg/pricing"
)

// activePriorityIndex is the partial unique index on (tenant_id, priority).
const activePriorityIndex = "pricing_rules_active_priority_key"

var ruleColumns = []string{
	"id", "tenant_id", "name", "kind", "priority", "condition", "action", "active", "created_at", "updated_at",
}

var profitColumns = []string{
	"id", "tenant_id", "product_id", "selling_price", "cost_price", "additional_costs",
	"net_profit", "net_margin_percent", "created_at",
}

// Pricing is the PostgreSQL pricing.Store.
type Pricing struct {
	db DB
}

func NewPricing(db DB) *Pricing {
	return &Pricing{db: db}
}

func (s *Pricing) Product(ctx context.Context, tenantID, productID uuid.UUID) (pricing.Product, error) {
	sb := flavor.NewSelectBuilder()
	sb.Select("id", "tenant_id", "name", "category", "price", "cost_price", "competitor_price", "updated_at").
		From("products").
		Where(sb.Equal("id", productID), sb.Equal("tenant_id", tenantID))

	var p pricing.Product
	err := queryRow(ctx, s.db, sb).Scan(
		&p.ID, &p.TenantID, &p.Name, &p.Category, &p.Price, &p.CostPrice, &p.CompetitorPrice, &p.UpdatedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return pricing.Product{}, pricing.ErrProductNotFound
		}
		return pricing.Product{}, fmt.Errorf("load product: %w", err)
	}
	return p, nil
}

func (s *Pricing) Rule(ctx context.Context, tenantID, ruleID uuid.UUID) (pricing.Rule, error) {
	sb := flavor.NewSelectBuilder()
	sb.Select(ruleColumns...).
		From("pricing_rules").
		Where(sb.Equal("id", ruleID), sb.Equal("tenant_id", tenantID))

	rule, err := scanRule(queryRow(ctx, s.db, sb))
	if err != nil {
		if pg.IsNotFoundError(err) {
			return pricing.Rule{}, pricing.ErrRuleNotFound
		}
		return pricing.Rule{}, fmt.Errorf("load rule: %w", err)
	}
	return rule, nil
}

func (s *Pricing) ListRules(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]pricing.Rule, error) {
	sb := flavor.NewSelectBuilder()
	sb.Select(ruleColumns...).From("pricing_rules").Where(sb.Equal("tenant_id", tenantID))
	if activeOnly {
		sb.Where(sb.Equal("active", true))
	}
	sb.OrderBy("priority DESC", "created_at", "id")

	rows, err := query(ctx, s.db, sb)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	rules, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (pricing.Rule, error) {
		return scanRule(row)
	})
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	return rules, nil
}

func (s *Pricing) CreateRule(ctx context.Context, rule pricing.Rule) error {
	cond, action, err := encodeRule(rule)
	if err != nil {
		return err
	}

	ib := flavor.NewInsertBuilder()
	ib.InsertInto("pricing_rules").
		Cols(ruleColumns...).
		Values(rule.ID, rule.TenantID, rule.Name, string(rule.Kind), rule.Priority,
			cond, action, rule.Active, rule.CreatedAt, rule.UpdatedAt)

	if _, err := exec(ctx, s.db, ib); err != nil {
		return ruleWriteErr(err)
	}
	return nil
}

func (s *Pricing) UpdateRule(ctx context.Context, rule pricing.Rule) error {
	cond, action, err := encodeRule(rule)
	if err != nil {
		return err
	}

	ub := flavor.NewUpdateBuilder()
	ub.Update("pricing_rules").
		Set(
			ub.Assign("name", rule.Name),
			ub.Assign("kind", string(rule.Kind)),
			ub.Assign("priority", rule.Priority),
			ub.Assign("condition", cond),
			ub.Assign("action", action),
			ub.Assign("active", rule.Active),
			ub.Assign("updated_at", rule.UpdatedAt),
		).
		Where(ub.Equal("id", rule.ID), ub.Equal("tenant_id", rule.TenantID))

	tag, err := exec(ctx, s.db, ub)
	if err != nil {
		return ruleWriteErr(err)
	}
	if tag.RowsAffected() == 0 {
		return pricing.ErrRuleNotFound
	}
	return nil
}

func (s *Pricing) DeleteRule(ctx context.Context, tenantID, ruleID uuid.UUID) error {
	db := flavor.NewDeleteBuilder()
	db.DeleteFrom("pricing_rules").Where(db.Equal("id", ruleID), db.Equal("tenant_id", tenantID))

	tag, err := exec(ctx, s.db, db)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pricing.ErrRuleNotFound
	}
	return nil
}

// ApplyPrice updates the product and records calc in one transaction.
func (s *Pricing) ApplyPrice(ctx context.Context, tenantID, productID uuid.UUID, price float64, calc pricing.ProfitCalculation) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		ub := flavor.NewUpdateBuilder()
		ub.Update("products").
			Set(ub.Assign("price", price), ub.Assign("updated_at", calc.CreatedAt)).
			Where(ub.Equal("id", productID), ub.Equal("tenant_id", tenantID))

		tag, err := exec(ctx, tx, ub)
		if err != nil {
			return fmt.Errorf("update price: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return pricing.ErrProductNotFound
		}
		return insertCalculation(ctx, tx, calc)
	})
}

func (s *Pricing) InsertProfitCalculation(ctx context.Context, calc pricing.ProfitCalculation) error {
	return insertCalculation(ctx, s.db, calc)
}

func (s *Pricing) ProfitHistory(ctx context.Context, tenantID, productID uuid.UUID, limit int) ([]pricing.ProfitCalculation, error) {
	sb := flavor.NewSelectBuilder()
	sb.Select(profitColumns...).
		From("profit_calculations").
		Where(sb.Equal("tenant_id", tenantID), sb.Equal("product_id", productID)).
		OrderBy("created_at").Desc().
		Limit(limit)

	rows, err := query(ctx, s.db, sb)
	if err != nil {
		return nil, fmt.Errorf("profit history: %w", err)
	}
	history, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (pricing.ProfitCalculation, error) {
		var c pricing.ProfitCalculation
		err := row.Scan(&c.ID, &c.TenantID, &c.ProductID, &c.SellingPrice, &c.CostPrice,
			&c.AdditionalCosts, &c.NetProfit, &c.NetMarginPercent, &c.CreatedAt)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("profit history: %w", err)
	}
	return history, nil
}

func insertCalculation(ctx context.Context, q querier, c pricing.ProfitCalculation) error {
	ib := flavor.NewInsertBuilder()
	ib.InsertInto("profit_calculations").
		Cols(profitColumns...).
		Values(c.ID, c.TenantID, c.ProductID, c.SellingPrice, c.CostPrice,
			c.AdditionalCosts, c.NetProfit, c.NetMarginPercent, c.CreatedAt)

	if _, err := exec(ctx, q, ib); err != nil {
		if pg.IsConstraintViolation(err, "profit_calculations_product_id_fkey") {
			return pricing.ErrProductNotFound
		}
		return fmt.Errorf("insert profit calculation: %w", err)
	}
	return nil
}

func scanRule(row pgx.Row) (pricing.Rule, error) {
	var (
		r            pricing.Rule
		kind         string
		cond, action []byte
		createdAt    time.Time
		updatedAt    time.Time
	)
	if err := row.Scan(&r.ID, &r.TenantID, &r.Name, &kind, &r.Priority, &cond, &action,
		&r.Active, &createdAt, &updatedAt); err != nil {
		return pricing.Rule{}, err
	}
	r.Kind = pricing.Kind(kind)
	r.CreatedAt, r.UpdatedAt = createdAt.UTC(), updatedAt.UTC()

	var err error
	if r.Condition, err = pricing.ParseCondition(cond); err != nil {
		return pricing.Rule{}, fmt.Errorf("rule %s condition: %w", r.ID, err)
	}
	if r.Action, err = pricing.ParseAction(action); err != nil {
		return pricing.Rule{}, fmt.Errorf("rule %s action: %w", r.ID, err)
	}
	return r, nil
}

func encodeRule(rule pricing.Rule) (cond, action []byte, err error) {
	if rule.Condition == nil {
		rule.Condition = pricing.Always{}
	}
	if cond, err = json.Marshal(rule.Condition); err != nil {
		return nil, nil, errors.Join(pricing.ErrInvalidRule, err)
	}
	if action, err = json.Marshal(rule.Action); err != nil {
		return nil, nil, errors.Join(pricing.ErrInvalidRule, err)
	}
	return cond, action, nil
}

func ruleWriteErr(err error) error {
	switch {
	case pg.IsConstraintViolation(err, activePriorityIndex):
		return pricing.ErrPriorityConflict
	case pg.IsCheckViolation(err):
		return errors.Join(pricing.ErrInvalidRule, err)
	default:
		return fmt.Errorf("write rule: %w", err)
	}
}
