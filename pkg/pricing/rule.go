package pricing

import (
	"cmp"
	"encoding/json"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Kind labels what a rule is for. It does not change evaluation.
type Kind string

const (
	KindMarginFloor     Kind = "margin_floor"
	KindCompetitorMatch Kind = "competitor_match"
	KindCostPlus        Kind = "cost_plus"
	KindMarkup          Kind = "markup"
	KindCustom          Kind = "custom"
)

// Rule is a tenant owned condition/action pair. Higher Priority runs first.
type Rule struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	Name      string    `json:"name" validate:"required,max=120"`
	Kind      Kind      `json:"kind" validate:"required,oneof=margin_floor competitor_match cost_plus markup custom"`
	Priority  int       `json:"priority" validate:"gte=0,lte=10000"`
	Condition Condition `json:"-" validate:"-"`
	Action    Action    `json:"-" validate:"-"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ruleJSON struct {
	ID        uuid.UUID       `json:"id"`
	TenantID  uuid.UUID       `json:"tenant_id"`
	Name      string          `json:"name"`
	Kind      Kind            `json:"kind"`
	Priority  int             `json:"priority"`
	Condition json.RawMessage `json:"condition"`
	Action    json.RawMessage `json:"action"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (r Rule) MarshalJSON() ([]byte, error) {
	out := ruleJSON{
		ID:        r.ID,
		TenantID:  r.TenantID,
		Name:      r.Name,
		Kind:      r.Kind,
		Priority:  r.Priority,
		Active:    r.Active,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	var err error
	if r.Condition != nil {
		if out.Condition, err = json.Marshal(r.Condition); err != nil {
			return nil, err
		}
	}
	if r.Action != nil {
		if out.Action, err = json.Marshal(r.Action); err != nil {
			return nil, err
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a rule. A missing condition means Always.
// Shape errors surface here; value checks are left to Validate.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var in ruleJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return errors.Join(ErrInvalidInput, err)
	}

	*r = Rule{
		ID:        in.ID,
		TenantID:  in.TenantID,
		Name:      in.Name,
		Kind:      in.Kind,
		Priority:  in.Priority,
		Active:    in.Active,
		CreatedAt: in.CreatedAt,
		UpdatedAt: in.UpdatedAt,
		Condition: Always{},
	}
	if len(in.Condition) > 0 && string(in.Condition) != "null" {
		cond, err := decodeCondition(in.Condition)
		if err != nil {
			return err
		}
		r.Condition = cond
	}
	if len(in.Action) > 0 && string(in.Action) != "null" {
		act, err := decodeAction(in.Action)
		if err != nil {
			return err
		}
		r.Action = act
	}
	return nil
}

// Validate checks the rule before it is stored.
func (r Rule) Validate() error {
	verr := validateStruct(r)
	if r.Condition == nil {
		verr.Add("condition", "is required")
	} else {
		verr.merge("condition.", r.Condition.validate())
	}
	if r.Action == nil {
		verr.Add("action", "is required")
	} else {
		verr.merge("action.", r.Action.validate())
	}
	return verr.errOrNil()
}

// compareRules orders by priority descending. Equal priorities run in
// creation order so the most recently created rule acts last.
func compareRules(a, b Rule) int {
	if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
		return c
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return slices.Compare(a.ID[:], b.ID[:])
}

// SortRules orders rules the way Evaluate runs them.
func SortRules(rules []Rule) {
	slices.SortStableFunc(rules, compareRules)
}
