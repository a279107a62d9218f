package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// Engine evaluates pricing rules and records profit calculations for tenants.
type Engine struct {
	store    Store
	observer Observer
	now      func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithObserver reports every evaluation to o.
func WithObserver(o Observer) EngineOption {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an Engine. Panics if store is nil.
func NewEngine(store Store, opts ...EngineOption) *Engine {
	if store == nil {
		panic("pricing: Store is required")
	}
	e := &Engine{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EvaluateParams are the inputs of EvaluateRules. A zero CompetitorPrice
// falls back to the stored competitor price of the product.
type EvaluateParams struct {
	ProductID       uuid.UUID `json:"product_id" validate:"required"`
	CurrentPrice    float64   `json:"current_price" validate:"gte=0"`
	CostPrice       float64   `json:"cost_price" validate:"gte=0"`
	CompetitorPrice float64   `json:"competitor_price" validate:"gte=0"`
	Apply           bool      `json:"apply_rules"`
}

// EvaluateRules runs the tenant's active rules for a product. With Apply set
// the suggested price and a profit calculation are persisted together; a
// failed write leaves the product untouched.
func (e *Engine) EvaluateRules(ctx context.Context, tenantID uuid.UUID, params EvaluateParams) (Result, error) {
	if err := validateStruct(params).errOrNil(); err != nil {
		return Result{}, err
	}

	product, err := e.store.Product(ctx, tenantID, params.ProductID)
	if err != nil {
		return Result{}, storeErr(err)
	}
	rules, err := e.store.ListRules(ctx, tenantID, true)
	if err != nil {
		return Result{}, storeErr(err)
	}

	in := Input{
		Price:           params.CurrentPrice,
		CostPrice:       params.CostPrice,
		CompetitorPrice: params.CompetitorPrice,
		Category:        product.Category,
	}
	if in.CompetitorPrice == 0 {
		in.CompetitorPrice = product.CompetitorPrice
	}

	res := Evaluate(rules, in)
	if params.Apply {
		calc := e.newCalculation(tenantID, product.ID, CalculateProfit(res.SuggestedPrice, params.CostPrice))
		if err := e.store.ApplyPrice(ctx, tenantID, product.ID, res.SuggestedPrice, calc); err != nil {
			return Result{}, storeErr(err)
		}
		res.Applied = true
	}

	if e.observer != nil {
		e.observer.ObserveEvaluation(res.Applied, len(res.RulesApplied))
	}
	return res, nil
}

// ProfitParams are the inputs of CalculateProfit.
type ProfitParams struct {
	ProductID       uuid.UUID `json:"product_id" validate:"required"`
	SellingPrice    float64   `json:"selling_price" validate:"gte=0"`
	CostPrice       float64   `json:"cost_price" validate:"gte=0"`
	AdditionalCosts []float64 `json:"additional_costs" validate:"dive,gte=0"`
}

// CalculateProfit computes profit for a product and appends it to the history.
func (e *Engine) CalculateProfit(ctx context.Context, tenantID uuid.UUID, params ProfitParams) (ProfitCalculation, error) {
	if err := validateStruct(params).errOrNil(); err != nil {
		return ProfitCalculation{}, err
	}
	if _, err := e.store.Product(ctx, tenantID, params.ProductID); err != nil {
		return ProfitCalculation{}, storeErr(err)
	}

	calc := e.newCalculation(tenantID, params.ProductID,
		CalculateProfit(params.SellingPrice, params.CostPrice, params.AdditionalCosts...))
	if err := e.store.InsertProfitCalculation(ctx, calc); err != nil {
		return ProfitCalculation{}, storeErr(err)
	}
	return calc, nil
}

// ProfitHistory returns up to limit calculations for a product, newest first.
func (e *Engine) ProfitHistory(ctx context.Context, tenantID, productID uuid.UUID, limit int) ([]ProfitCalculation, error) {
	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}
	if _, err := e.store.Product(ctx, tenantID, productID); err != nil {
		return nil, storeErr(err)
	}
	history, err := e.store.ProfitHistory(ctx, tenantID, productID, limit)
	if err != nil {
		return nil, storeErr(err)
	}
	return history, nil
}

// ListRules returns all rules of the tenant in evaluation order.
func (e *Engine) ListRules(ctx context.Context, tenantID uuid.UUID) ([]Rule, error) {
	rules, err := e.store.ListRules(ctx, tenantID, false)
	if err != nil {
		return nil, storeErr(err)
	}
	return rules, nil
}

// CreateRule validates and stores a new rule owned by tenantID.
func (e *Engine) CreateRule(ctx context.Context, tenantID uuid.UUID, rule Rule) (Rule, error) {
	now := e.now()
	rule.ID = uuid.New()
	rule.TenantID = tenantID
	rule.CreatedAt = now
	rule.UpdatedAt = now

	if err := rule.Validate(); err != nil {
		return Rule{}, err
	}
	if err := e.store.CreateRule(ctx, rule); err != nil {
		return Rule{}, storeErr(err)
	}
	return rule, nil
}

// UpdateRule replaces the editable fields of an existing rule.
func (e *Engine) UpdateRule(ctx context.Context, tenantID uuid.UUID, rule Rule) (Rule, error) {
	existing, err := e.store.Rule(ctx, tenantID, rule.ID)
	if err != nil {
		return Rule{}, storeErr(err)
	}

	rule.TenantID = tenantID
	rule.CreatedAt = existing.CreatedAt
	rule.UpdatedAt = e.now()

	if err := rule.Validate(); err != nil {
		return Rule{}, err
	}
	if err := e.store.UpdateRule(ctx, rule); err != nil {
		return Rule{}, storeErr(err)
	}
	return rule, nil
}

// SetRuleActive enables or disables a rule.
func (e *Engine) SetRuleActive(ctx context.Context, tenantID, ruleID uuid.UUID, active bool) (Rule, error) {
	rule, err := e.store.Rule(ctx, tenantID, ruleID)
	if err != nil {
		return Rule{}, storeErr(err)
	}
	if rule.Active == active {
		return rule, nil
	}

	rule.Active = active
	rule.UpdatedAt = e.now()
	if err := e.store.UpdateRule(ctx, rule); err != nil {
		return Rule{}, storeErr(err)
	}
	return rule, nil
}

// DeleteRule removes a rule.
func (e *Engine) DeleteRule(ctx context.Context, tenantID, ruleID uuid.UUID) error {
	return storeErr(e.store.DeleteRule(ctx, tenantID, ruleID))
}

func (e *Engine) newCalculation(tenantID, productID uuid.UUID, p Profit) ProfitCalculation {
	return ProfitCalculation{
		ID:        uuid.New(),
		TenantID:  tenantID,
		ProductID: productID,
		Profit:    p,
		CreatedAt: e.now(),
	}
}

// storeErr passes domain errors through and marks everything else as upstream.
func storeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrProductNotFound),
		errors.Is(err, ErrRuleNotFound),
		errors.Is(err, ErrPriorityConflict),
		errors.Is(err, ErrInvalidInput):
		return err
	default:
		return errors.Join(ErrUpstream, err)
	}
}
