package pricing

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"
)

// Input is the product state a rule set is evaluated against.
type Input struct {
	Price           float64
	CostPrice       float64
	CompetitorPrice float64
	Category        string
}

// Field names a numeric value a condition can compare.
type Field string

const (
	FieldPrice           Field = "price"
	FieldCostPrice       Field = "cost_price"
	FieldCompetitorPrice Field = "competitor_price"
	FieldMarginPercent   Field = "margin_percent"
)

// value resolves f against the working price. Unknown values report false.
func (f Field) value(price float64, in Input) (float64, bool) {
	switch f {
	case FieldPrice:
		return price, true
	case FieldCostPrice:
		return in.CostPrice, in.CostPrice > 0
	case FieldCompetitorPrice:
		return in.CompetitorPrice, in.CompetitorPrice > 0
	case FieldMarginPercent:
		return marginPercent(price, in.CostPrice)
	default:
		return 0, false
	}
}

// Operator is a comparison used by threshold conditions.
type Operator string

const (
	OpLT  Operator = "lt"
	OpLTE Operator = "lte"
	OpGT  Operator = "gt"
	OpGTE Operator = "gte"
	OpEQ  Operator = "eq"
	OpNEQ Operator = "neq"
)

const epsilon = 1e-9

func (op Operator) compare(a, b float64) bool {
	switch op {
	case OpLT:
		return a < b
	case OpLTE:
		return a <= b+epsilon
	case OpGT:
		return a > b
	case OpGTE:
		return a >= b-epsilon
	case OpEQ:
		return math.Abs(a-b) <= epsilon
	case OpNEQ:
		return math.Abs(a-b) > epsilon
	default:
		return false
	}
}

// Condition types.
const (
	ConditionAlways     = "always"
	ConditionThreshold  = "threshold"
	ConditionPriceRange = "price_range"
	ConditionCategory   = "category"
	ConditionAll        = "all"
)

// Condition decides whether a rule applies. The set of implementations is
// closed; use ParseCondition to build one from JSON.
type Condition interface {
	Type() string
	Matches(price float64, in Input) bool
	validate() ValidationError
}

// Always matches every product.
type Always struct{}

func (Always) Type() string { return ConditionAlways }

func (Always) Matches(float64, Input) bool { return true }

func (Always) validate() ValidationError { return make(ValidationError) }

func (c Always) MarshalJSON() ([]byte, error) {
	return marshalTagged(c.Type(), struct{}{})
}

// Threshold compares one field against a constant.
type Threshold struct {
	Field    Field    `json:"field" validate:"required,oneof=price cost_price competitor_price margin_percent"`
	Operator Operator `json:"operator" validate:"required,oneof=lt lte gt gte eq neq"`
	Value    float64  `json:"value"`
}

func (Threshold) Type() string { return ConditionThreshold }

func (c Threshold) Matches(price float64, in Input) bool {
	v, ok := c.Field.value(price, in)
	if !ok {
		return false
	}
	return c.Operator.compare(v, c.Value)
}

func (c Threshold) validate() ValidationError { return validateStruct(c) }

func (c Threshold) MarshalJSON() ([]byte, error) {
	type plain Threshold
	return marshalTagged(c.Type(), plain(c))
}

// PriceRange matches when a field lies in [Min, Max]. A zero Max means no upper bound.
type PriceRange struct {
	Field Field   `json:"field" validate:"required,oneof=price cost_price competitor_price margin_percent"`
	Min   float64 `json:"min" validate:"gte=0"`
	Max   float64 `json:"max" validate:"gte=0"`
}

func (PriceRange) Type() string { return ConditionPriceRange }

func (c PriceRange) Matches(price float64, in Input) bool {
	v, ok := c.Field.value(price, in)
	if !ok {
		return false
	}
	if v < c.Min-epsilon {
		return false
	}
	return c.Max == 0 || v <= c.Max+epsilon
}

func (c PriceRange) validate() ValidationError {
	verr := validateStruct(c)
	if c.Max != 0 && c.Max < c.Min {
		verr.Add("max", "must not be less than min")
	}
	return verr
}

func (c PriceRange) MarshalJSON() ([]byte, error) {
	type plain PriceRange
	return marshalTagged(c.Type(), plain(c))
}

// Category matches products in any of the listed categories, case-insensitively.
type Category struct {
	Categories []string `json:"categories" validate:"required,min=1,dive,required"`
}

func (Category) Type() string { return ConditionCategory }

func (c Category) Matches(_ float64, in Input) bool {
	return slices.ContainsFunc(c.Categories, func(cat string) bool {
		return strings.EqualFold(cat, in.Category)
	})
}

func (c Category) validate() ValidationError { return validateStruct(c) }

func (c Category) MarshalJSON() ([]byte, error) {
	type plain Category
	return marshalTagged(c.Type(), plain(c))
}

// All matches when every nested condition matches.
type All struct {
	Conditions []Condition
}

func (All) Type() string { return ConditionAll }

func (c All) Matches(price float64, in Input) bool {
	for _, cond := range c.Conditions {
		if !cond.Matches(price, in) {
			return false
		}
	}
	return true
}

func (c All) validate() ValidationError {
	verr := make(ValidationError)
	if len(c.Conditions) == 0 {
		verr.Add("conditions", "is required")
	}
	for i, cond := range c.Conditions {
		if cond == nil {
			verr.Add(fmt.Sprintf("conditions[%d]", i), "is required")
			continue
		}
		verr.merge(fmt.Sprintf("conditions[%d].", i), cond.validate())
	}
	return verr
}

func (c All) MarshalJSON() ([]byte, error) {
	return marshalTagged(c.Type(), struct {
		Conditions []Condition `json:"conditions"`
	}{c.Conditions})
}

// ParseCondition decodes and validates a tagged condition document.
func ParseCondition(data []byte) (Condition, error) {
	cond, err := decodeCondition(data)
	if err != nil {
		return nil, err
	}
	if err := cond.validate().errOrNil(); err != nil {
		return nil, err
	}
	return cond, nil
}

func decodeCondition(data []byte) (Condition, error) {
	kind, err := tagOf(data)
	if err != nil {
		return nil, err
	}

	switch kind {
	case ConditionAlways:
		return Always{}, nil
	case ConditionThreshold:
		return decodeAs[Threshold](data)
	case ConditionPriceRange:
		return decodeAs[PriceRange](data)
	case ConditionCategory:
		return decodeAs[Category](data)
	case ConditionAll:
		var raw struct {
			Conditions []json.RawMessage `json:"conditions"`
		}
		if err := decodeBody(data, &raw); err != nil {
			return nil, err
		}
		all := All{Conditions: make([]Condition, 0, len(raw.Conditions))}
		for i, item := range raw.Conditions {
			nested, err := decodeCondition(item)
			if err != nil {
				return nil, fmt.Errorf("conditions[%d]: %w", i, err)
			}
			all.Conditions = append(all.Conditions, nested)
		}
		return all, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCondition, kind)
	}
}
