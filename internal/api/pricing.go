package api

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/dmitrymomot/storekit/pkg/pricing"
)

type pricingHandlers struct {
	engine *pricing.Engine
}

func (h pricingHandlers) actions() map[string]actionFunc {
	return map[string]actionFunc{
		"evaluate_rules":   h.evaluateRules,
		"calculate_profit": h.calculateProfit,
		"profit_history":   h.profitHistory,
		"list_rules":       h.listRules,
		"create_rule":      h.createRule,
		"update_rule":      h.updateRule,
		"toggle_rule":      h.toggleRule,
		"delete_rule":      h.deleteRule,
	}
}

// Engine methods validate their own params; decoding only checks JSON shape.
func unmarshal[T any](body []byte) (T, error) {
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return v, fieldError("body", err.Error())
	}
	return v, nil
}

func (h pricingHandlers) evaluateRules(ctx context.Context, tenantID uuid.UUID, body []byte) (any, error) {
	params, err := unmarshal[pricing.EvaluateParams](body)
	if err != nil {
		return nil, err
	}
	return h.engine.EvaluateRules(ctx, tenantID, params)
}

func (h pricingHandlers) calculateProfit(ctx context.Context, tenantID uuid.UUID, body []byte) (any, error) {
	params, err := unmarshal[pricing.ProfitParams](body)
	if err != nil {
		return nil, err
	}
	return h.engine.CalculateProfit(ctx, tenantID, params)
}

func (h pricingHandlers) profitHistory(ctx context.Context, tenantID uuid.UUID, body []byte) (any, error) {
	p, err := decode[struct {
		ProductID uuid.UUID `json:"product_id" validate:"required"`
		Limit     int       `json:"limit" validate:"gte=0"`
	}](body)
	if err != nil {
		return nil, err
	}
	return h.engine.ProfitHistory(ctx, tenantID, p.ProductID, p.Limit)
}

func (h pricingHandlers) listRules(ctx context.Context, tenantID uuid.UUID, _ []byte) (any, error) {
	return h.engine.ListRules(ctx, tenantID)
}

// The rule travels under "rule": its own "action" key would clash with the
// request action.
type ruleParams struct {
	Rule *pricing.Rule `json:"rule" validate:"required"`
}

func (h pricingHandlers) createRule(ctx context.Context, tenantID uuid.UUID, body []byte) (any, error) {
	p, err := decodeRule(body)
	if err != nil {
		return nil, err
	}
	return h.engine.CreateRule(ctx, tenantID, *p.Rule)
}

func (h pricingHandlers) updateRule(ctx context.Context, tenantID uuid.UUID, body []byte) (any, error) {
	p, err := decodeRule(body)
	if err != nil {
		return nil, err
	}
	if p.Rule.ID == uuid.Nil {
		return nil, fieldError("rule.id", "is required")
	}
	return h.engine.UpdateRule(ctx, tenantID, *p.Rule)
}

// decodeRule keeps condition and action parse errors as typed pricing errors.
func decodeRule(body []byte) (ruleParams, error) {
	var p ruleParams
	if err := json.Unmarshal(body, &p); err != nil {
		var (
			syntax  *json.SyntaxError
			mistype *json.UnmarshalTypeError
		)
		if errors.As(err, &syntax) || errors.As(err, &mistype) {
			return p, fieldError("rule", err.Error())
		}
		return p, err
	}
	if p.Rule == nil {
		return p, fieldError("rule", "is required")
	}
	return p, nil
}

type ruleIDParams struct {
	RuleID uuid.UUID `json:"rule_id" validate:"required"`
}

func (h pricingHandlers) toggleRule(ctx context.Context, tenantID uuid.UUID, body []byte) (any, error) {
	p, err := decode[struct {
		RuleID uuid.UUID `json:"rule_id" validate:"required"`
		Active *bool     `json:"active" validate:"required"`
	}](body)
	if err != nil {
		return nil, err
	}
	return h.engine.SetRuleActive(ctx, tenantID, p.RuleID, *p.Active)
}

func (h pricingHandlers) deleteRule(ctx context.Context, tenantID uuid.UUID, body []byte) (any, error) {
	p, err := decode[ruleIDParams](body)
	if err != nil {
		return nil, err
	}
	if err := h.engine.DeleteRule(ctx, tenantID, p.RuleID); err != nil {
		return nil, err
	}
	return struct {
		RuleID  uuid.UUID `json:"rule_id"`
		Deleted bool      `json:"deleted"`
	}{p.RuleID, true}, nil
}
