package pricing

import (
	"slices"

	"github.com/google/uuid"
)

// AppliedRule records one rule that changed the working price.
type AppliedRule struct {
	RuleID      uuid.UUID `json:"rule_id"`
	Name        string    `json:"name"`
	Action      string    `json:"action"`
	PriceBefore float64   `json:"price_before"`
	PriceAfter  float64   `json:"price_after"`
}

// Result is the outcome of a rule evaluation.
type Result struct {
	OriginalPrice  float64       `json:"original_price"`
	SuggestedPrice float64       `json:"suggested_price"`
	RulesApplied   []AppliedRule `json:"rules_applied"`
	Applied        bool          `json:"applied"`
}

// Evaluate runs the active rules against in and returns the suggested price.
// Each matching rule acts on the output of the previous one. Inactive rules
// and rules whose action cannot fire are skipped. Only prices produced by a
// firing action are rounded; with no rule applied the input price is returned
// unchanged. Evaluate does not modify rules.
func Evaluate(rules []Rule, in Input) Result {
	ordered := slices.Clone(rules)
	SortRules(ordered)

	price := in.Price
	res := Result{
		OriginalPrice:  price,
		SuggestedPrice: price,
		RulesApplied:   make([]AppliedRule, 0),
	}

	for _, rule := range ordered {
		if !rule.Active || rule.Action == nil {
			continue
		}
		cond := rule.Condition
		if cond == nil {
			cond = Always{}
		}
		if !cond.Matches(price, in) {
			continue
		}

		next, ok := rule.Action.Apply(price, in)
		if !ok {
			continue
		}
		next = roundCents(next)

		res.RulesApplied = append(res.RulesApplied, AppliedRule{
			RuleID:      rule.ID,
			Name:        rule.Name,
			Action:      rule.Action.Type(),
			PriceBefore: price,
			PriceAfter:  next,
		})
		price = next
	}

	res.SuggestedPrice = price
	return res
}
