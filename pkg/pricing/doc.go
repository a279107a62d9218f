// Package pricing evaluates tenant pricing rules and calculates profit.
//
// A Rule pairs a Condition with an Action. Both are closed sum types decoded
// from tagged JSON documents such as
//
//	{"type": "threshold", "field": "margin_percent", "operator": "lt", "value": 25}
//	{"type": "min_margin_percent", "value": 25}
//
// and validated before a rule is stored, so evaluation never meets a malformed
// rule.
//
// Active rules run by descending priority and each matching rule acts on the
// price produced by the previous one. Stores reject two active rules of a
// tenant sharing a priority; if such rules exist anyway they run in creation
// order. Prices are rounded to cents and never go below zero. Cost based
// actions skip products whose cost is unknown (zero).
//
// Basic usage:
//
//	engine := pricing.NewEngine(store)
//
//	res, err := engine.EvaluateRules(ctx, tenantID, pricing.EvaluateParams{
//		ProductID:    productID,
//		CurrentPrice: 19.90,
//		CostPrice:    11.00,
//	})
//
// With Apply set the suggested price and a ProfitCalculation are written in a
// single store call. Evaluate and CalculateProfit are pure and can be used
// without an Engine.
package pricing
