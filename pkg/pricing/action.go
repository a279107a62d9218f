package pricing

import (
	"fmt"
	"math"
)

// Action types.
const (
	ActionSetPrice           = "set_price"
	ActionSetMarginPercent   = "set_margin_percent"
	ActionMinMarginPercent   = "min_margin_percent"
	ActionMarkupPercent      = "markup_percent"
	ActionMarkupFixed        = "markup_fixed"
	ActionAdjustPercent      = "adjust_percent"
	ActionUndercutCompetitor = "undercut_competitor"
	ActionRoundEnding        = "round_ending"
)

// Action transforms the working price. Apply reports false when the action
// could not fire, for example a cost based action on a product with unknown cost.
type Action interface {
	Type() string
	Apply(price float64, in Input) (float64, bool)
	validate() ValidationError
}

// SetPrice replaces the price with a fixed value.
type SetPrice struct {
	Value float64 `json:"value" validate:"gte=0"`
}

func (SetPrice) Type() string { return ActionSetPrice }

func (a SetPrice) Apply(float64, Input) (float64, bool) { return a.Value, true }

func (a SetPrice) validate() ValidationError { return validateStruct(a) }

func (a SetPrice) MarshalJSON() ([]byte, error) {
	type plain SetPrice
	return marshalTagged(a.Type(), plain(a))
}

// SetMarginPercent prices the product so that Value percent of the selling
// price is margin over cost.
type SetMarginPercent struct {
	Value float64 `json:"value" validate:"gte=0,lt=100"`
}

func (SetMarginPercent) Type() string { return ActionSetMarginPercent }

func (a SetMarginPercent) Apply(_ float64, in Input) (float64, bool) {
	if in.CostPrice <= 0 {
		return 0, false
	}
	return priceForMargin(in.CostPrice, a.Value), true
}

func (a SetMarginPercent) validate() ValidationError { return validateStruct(a) }

func (a SetMarginPercent) MarshalJSON() ([]byte, error) {
	type plain SetMarginPercent
	return marshalTagged(a.Type(), plain(a))
}

// MinMarginPercent raises the price when its margin is below Value percent.
type MinMarginPercent struct {
	Value float64 `json:"value" validate:"gte=0,lt=100"`
}

func (MinMarginPercent) Type() string { return ActionMinMarginPercent }

func (a MinMarginPercent) Apply(price float64, in Input) (float64, bool) {
	if in.CostPrice <= 0 {
		return 0, false
	}
	if m, ok := marginPercent(price, in.CostPrice); ok && m >= a.Value-epsilon {
		return 0, false
	}
	return priceForMargin(in.CostPrice, a.Value), true
}

func (a MinMarginPercent) validate() ValidationError { return validateStruct(a) }

func (a MinMarginPercent) MarshalJSON() ([]byte, error) {
	type plain MinMarginPercent
	return marshalTagged(a.Type(), plain(a))
}

// MarkupPercent prices the product at cost plus Value percent of cost.
type MarkupPercent struct {
	Value float64 `json:"value" validate:"gte=0"`
}

func (MarkupPercent) Type() string { return ActionMarkupPercent }

func (a MarkupPercent) Apply(_ float64, in Input) (float64, bool) {
	if in.CostPrice <= 0 {
		return 0, false
	}
	return in.CostPrice * (1 + a.Value/100), true
}

func (a MarkupPercent) validate() ValidationError { return validateStruct(a) }

func (a MarkupPercent) MarshalJSON() ([]byte, error) {
	type plain MarkupPercent
	return marshalTagged(a.Type(), plain(a))
}

// MarkupFixed prices the product at cost plus a fixed amount.
type MarkupFixed struct {
	Value float64 `json:"value" validate:"gte=0"`
}

func (MarkupFixed) Type() string { return ActionMarkupFixed }

func (a MarkupFixed) Apply(_ float64, in Input) (float64, bool) {
	if in.CostPrice <= 0 {
		return 0, false
	}
	return in.CostPrice + a.Value, true
}

func (a MarkupFixed) validate() ValidationError { return validateStruct(a) }

func (a MarkupFixed) MarshalJSON() ([]byte, error) {
	type plain MarkupFixed
	return marshalTagged(a.Type(), plain(a))
}

// AdjustPercent scales the working price. Negative values discount.
type AdjustPercent struct {
	Value float64 `json:"value" validate:"gte=-100"`
}

func (AdjustPercent) Type() string { return ActionAdjustPercent }

func (a AdjustPercent) Apply(price float64, _ Input) (float64, bool) {
	return price * (1 + a.Value/100), true
}

func (a AdjustPercent) validate() ValidationError { return validateStruct(a) }

func (a AdjustPercent) MarshalJSON() ([]byte, error) {
	type plain AdjustPercent
	return marshalTagged(a.Type(), plain(a))
}

// UndercutCompetitor prices below the competitor by a fixed Amount or by
// Percent. Exactly one of them must be set.
type UndercutCompetitor struct {
	Amount  float64 `json:"amount,omitempty" validate:"gte=0"`
	Percent float64 `json:"percent,omitempty" validate:"gte=0,lt=100"`
}

func (UndercutCompetitor) Type() string { return ActionUndercutCompetitor }

func (a UndercutCompetitor) Apply(_ float64, in Input) (float64, bool) {
	if in.CompetitorPrice <= 0 {
		return 0, false
	}
	if a.Percent > 0 {
		return in.CompetitorPrice * (1 - a.Percent/100), true
	}
	return in.CompetitorPrice - a.Amount, true
}

func (a UndercutCompetitor) validate() ValidationError {
	verr := validateStruct(a)
	if (a.Amount > 0) == (a.Percent > 0) {
		verr.Add("amount", "exactly one of amount or percent must be set")
	}
	return verr
}

func (a UndercutCompetitor) MarshalJSON() ([]byte, error) {
	type plain UndercutCompetitor
	return marshalTagged(a.Type(), plain(a))
}

// RoundEnding sets the cents of the price, e.g. 0.99 turns 12.40 into 12.99.
type RoundEnding struct {
	Ending float64 `json:"ending" validate:"gte=0,lt=1"`
}

func (RoundEnding) Type() string { return ActionRoundEnding }

func (a RoundEnding) Apply(price float64, _ Input) (float64, bool) {
	if price <= 0 {
		return 0, false
	}
	return math.Floor(price) + a.Ending, true
}

func (a RoundEnding) validate() ValidationError { return validateStruct(a) }

func (a RoundEnding) MarshalJSON() ([]byte, error) {
	type plain RoundEnding
	return marshalTagged(a.Type(), plain(a))
}

// ParseAction decodes and validates a tagged action document.
func ParseAction(data []byte) (Action, error) {
	act, err := decodeAction(data)
	if err != nil {
		return nil, err
	}
	if err := act.validate().errOrNil(); err != nil {
		return nil, err
	}
	return act, nil
}

func decodeAction(data []byte) (Action, error) {
	kind, err := tagOf(data)
	if err != nil {
		return nil, err
	}

	switch kind {
	case ActionSetPrice:
		return decodeAs[SetPrice](data)
	case ActionSetMarginPercent:
		return decodeAs[SetMarginPercent](data)
	case ActionMinMarginPercent:
		return decodeAs[MinMarginPercent](data)
	case ActionMarkupPercent:
		return decodeAs[MarkupPercent](data)
	case ActionMarkupFixed:
		return decodeAs[MarkupFixed](data)
	case ActionAdjustPercent:
		return decodeAs[AdjustPercent](data)
	case ActionUndercutCompetitor:
		return decodeAs[UndercutCompetitor](data)
	case ActionRoundEnding:
		return decodeAs[RoundEnding](data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, kind)
	}
}
