package pricing_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storekit/pkg/pricing"
)

func TestParseCondition(t *testing.T) {
	t.Parallel()

	t.Run("nested all", func(t *testing.T) {
		t.Parallel()

		cond, err := pricing.ParseCondition([]byte(`{
			"type": "all",
			"conditions": [
				{"type": "category", "categories": ["toys"]},
				{"type": "price_range", "field": "price", "min": 5, "max": 50}
			]
		}`))
		require.NoError(t, err)

		all, ok := cond.(pricing.All)
		require.True(t, ok)
		require.Len(t, all.Conditions, 2)
		assert.Equal(t, pricing.Category{Categories: []string{"toys"}}, all.Conditions[0])
		assert.Equal(t, pricing.PriceRange{Field: pricing.FieldPrice, Min: 5, Max: 50}, all.Conditions[1])
	})

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		in := pricing.Threshold{Field: pricing.FieldMarginPercent, Operator: pricing.OpLT, Value: 20}
		data, err := json.Marshal(in)
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"threshold","field":"margin_percent","operator":"lt","value":20}`, string(data))

		out, err := pricing.ParseCondition(data)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("always", func(t *testing.T) {
		t.Parallel()

		data, err := json.Marshal(pricing.Always{})
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"always"}`, string(data))
	})

	testCases := []struct {
		name  string
		input string
		err   error
		field string
	}{
		{name: "unknown type", input: `{"type":"weekday"}`, err: pricing.ErrUnknownCondition},
		{name: "missing type", input: `{"field":"price"}`, err: pricing.ErrInvalidInput, field: "type"},
		{name: "bad operator", input: `{"type":"threshold","field":"price","operator":"about","value":1}`, err: pricing.ErrInvalidInput, field: "operator"},
		{name: "bad field", input: `{"type":"threshold","field":"weight","operator":"lt","value":1}`, err: pricing.ErrInvalidInput, field: "field"},
		{name: "inverted range", input: `{"type":"price_range","field":"price","min":10,"max":5}`, err: pricing.ErrInvalidInput, field: "max"},
		{name: "empty categories", input: `{"type":"category","categories":[]}`, err: pricing.ErrInvalidInput, field: "categories"},
		{name: "empty all", input: `{"type":"all","conditions":[]}`, err: pricing.ErrInvalidInput, field: "conditions"},
		{name: "invalid nested", input: `{"type":"all","conditions":[{"type":"threshold","field":"price","operator":"x"}]}`, err: pricing.ErrInvalidInput, field: "conditions[0].operator"},
		{name: "malformed", input: `{"type":`, err: pricing.ErrInvalidInput},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := pricing.ParseCondition([]byte(tc.input))
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.err)

			if tc.field != "" {
				var verr pricing.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.NotEmpty(t, verr.Get(tc.field), "expected message for %s in %v", tc.field, verr)
			}
		})
	}
}

func TestParseAction(t *testing.T) {
	t.Parallel()

	valid := map[string]pricing.Action{
		`{"type":"set_price","value":9.99}`:            pricing.SetPrice{Value: 9.99},
		`{"type":"set_margin_percent","value":30}`:     pricing.SetMarginPercent{Value: 30},
		`{"type":"min_margin_percent","value":15}`:     pricing.MinMarginPercent{Value: 15},
		`{"type":"markup_percent","value":130}`:        pricing.MarkupPercent{Value: 130},
		`{"type":"markup_fixed","value":4}`:            pricing.MarkupFixed{Value: 4},
		`{"type":"adjust_percent","value":-10}`:        pricing.AdjustPercent{Value: -10},
		`{"type":"undercut_competitor","amount":0.01}`: pricing.UndercutCompetitor{Amount: 0.01},
		`{"type":"undercut_competitor","percent":5}`:   pricing.UndercutCompetitor{Percent: 5},
		`{"type":"round_ending","ending":0.95}`:        pricing.RoundEnding{Ending: 0.95},
	}
	for input, expected := range valid {
		act, err := pricing.ParseAction([]byte(input))
		require.NoError(t, err, input)
		assert.Equal(t, expected, act, input)

		data, err := json.Marshal(act)
		require.NoError(t, err)
		assert.JSONEq(t, input, string(data))
	}

	invalid := map[string]error{
		`{"type":"discount","value":1}`:                         pricing.ErrUnknownAction,
		`{"type":"set_price","value":-1}`:                       pricing.ErrInvalidInput,
		`{"type":"set_margin_percent","value":100}`:             pricing.ErrInvalidInput,
		`{"type":"adjust_percent","value":-150}`:                pricing.ErrInvalidInput,
		`{"type":"undercut_competitor"}`:                        pricing.ErrInvalidInput,
		`{"type":"undercut_competitor","amount":1,"percent":2}`: pricing.ErrInvalidInput,
		`{"type":"round_ending","ending":1.5}`:                  pricing.ErrInvalidInput,
		`{"type":"markup_fixed","value":"four"}`:                pricing.ErrInvalidInput,
	}
	for input, expected := range invalid {
		_, err := pricing.ParseAction([]byte(input))
		assert.ErrorIs(t, err, expected, input)
	}
}

func TestRule_JSON(t *testing.T) {
	t.Parallel()

	var r pricing.Rule
	err := json.Unmarshal([]byte(`{
		"name": "Keep 20% margin",
		"kind": "margin_floor",
		"priority": 100,
		"active": true,
		"condition": {"type": "threshold", "field": "margin_percent", "operator": "lt", "value": 20},
		"action": {"type": "min_margin_percent", "value": 20}
	}`), &r)
	require.NoError(t, err)
	require.NoError(t, r.Validate())
	assert.Equal(t, pricing.MinMarginPercent{Value: 20}, r.Action)

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var back pricing.Rule
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, r.Condition, back.Condition)
	assert.Equal(t, r.Action, back.Action)
	assert.Equal(t, r.Priority, back.Priority)

	t.Run("condition defaults to always", func(t *testing.T) {
		t.Parallel()

		var r pricing.Rule
		require.NoError(t, json.Unmarshal([]byte(`{"name":"x","kind":"markup","action":{"type":"markup_percent","value":10}}`), &r))
		assert.Equal(t, pricing.Always{}, r.Condition)
		assert.NoError(t, r.Validate())
	})

	t.Run("validate reports every problem", func(t *testing.T) {
		t.Parallel()

		r := pricing.Rule{Kind: "bogus", Priority: -1, Action: pricing.SetPrice{Value: -3}}
		err := r.Validate()

		var verr pricing.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.NotEmpty(t, verr.Get("name"))
		assert.NotEmpty(t, verr.Get("kind"))
		assert.NotEmpty(t, verr.Get("priority"))
		assert.NotEmpty(t, verr.Get("condition"))
		assert.NotEmpty(t, verr.Get("action.value"))
	})
}
