package pricing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storekit/pkg/pricing"
)

type countingObserver struct {
	evaluations int
	applied     int
}

func (o *countingObserver) ObserveEvaluation(applied bool, _ int) {
	o.evaluations++
	if applied {
		o.applied++
	}
}

type brokenStore struct {
	*pricing.MemoryStore
}

func (brokenStore) ApplyPrice(context.Context, uuid.UUID, uuid.UUID, float64, pricing.ProfitCalculation) error {
	return errors.New("deadlock detected")
}

type fixture struct {
	engine    *pricing.Engine
	store     *pricing.MemoryStore
	observer  *countingObserver
	tenantID  uuid.UUID
	productID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := pricing.NewMemoryStore()
	tenantID := uuid.New()
	productID := uuid.New()
	store.PutProduct(pricing.Product{
		ID:        productID,
		TenantID:  tenantID,
		Name:      "Garden hose",
		Category:  "garden",
		Price:     24.90,
		CostPrice: 12,
	})

	tick := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}

	observer := &countingObserver{}
	return &fixture{
		engine:    pricing.NewEngine(store, pricing.WithObserver(observer), pricing.WithClock(clock)),
		store:     store,
		observer:  observer,
		tenantID:  tenantID,
		productID: productID,
	}
}

func (f *fixture) product(t *testing.T) pricing.Product {
	t.Helper()
	p, err := f.store.Product(context.Background(), f.tenantID, f.productID)
	require.NoError(t, err)
	return p
}

func (f *fixture) history(t *testing.T) []pricing.ProfitCalculation {
	t.Helper()
	h, err := f.engine.ProfitHistory(context.Background(), f.tenantID, f.productID, 0)
	require.NoError(t, err)
	return h
}

func TestEngine_EvaluateRules(t *testing.T) {
	t.Parallel()

	t.Run("no rules returns current price", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		res, err := f.engine.EvaluateRules(context.Background(), f.tenantID, pricing.EvaluateParams{
			ProductID:    f.productID,
			CurrentPrice: 24.90,
			CostPrice:    12,
		})
		require.NoError(t, err)
		assert.Equal(t, 24.90, res.SuggestedPrice)
		assert.Empty(t, res.RulesApplied)
		assert.False(t, res.Applied)
	})

	t.Run("no rules keeps a sub-cent price exactly", func(t *testing.T) {
		t.Parallel()

		for _, apply := range []bool{false, true} {
			f := newFixture(t)
			res, err := f.engine.EvaluateRules(context.Background(), f.tenantID, pricing.EvaluateParams{
				ProductID:    f.productID,
				CurrentPrice: 19.999,
				CostPrice:    12,
				Apply:        apply,
			})
			require.NoError(t, err)
			assert.Equal(t, 19.999, res.OriginalPrice)
			assert.Equal(t, 19.999, res.SuggestedPrice)
			assert.Empty(t, res.RulesApplied)
			assert.Equal(t, apply, res.Applied)

			want := 24.90
			if apply {
				want = 19.999
			}
			assert.Equal(t, want, f.product(t).Price, "apply=%v", apply)
		}
	})

	t.Run("dry run is idempotent and has no side effects", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		ctx := context.Background()
		_, err := f.engine.CreateRule(ctx, f.tenantID, pricing.Rule{
			Name:      "markup",
			Kind:      pricing.KindMarkup,
			Priority:  10,
			Condition: pricing.Always{},
			Action:    pricing.MarkupPercent{Value: 150},
			Active:    true,
		})
		require.NoError(t, err)

		params := pricing.EvaluateParams{ProductID: f.productID, CurrentPrice: 24.90, CostPrice: 12}
		first, err := f.engine.EvaluateRules(ctx, f.tenantID, params)
		require.NoError(t, err)
		second, err := f.engine.EvaluateRules(ctx, f.tenantID, params)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, 30.0, first.SuggestedPrice)
		assert.Equal(t, 24.90, f.product(t).Price)
		assert.Empty(t, f.history(t))
		assert.Equal(t, 2, f.observer.evaluations)
		assert.Equal(t, 0, f.observer.applied)
	})

	t.Run("apply persists price and one audit row", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		ctx := context.Background()
		_, err := f.engine.CreateRule(ctx, f.tenantID, pricing.Rule{
			Name:      "margin",
			Kind:      pricing.KindMarginFloor,
			Priority:  10,
			Condition: pricing.Category{Categories: []string{"garden"}},
			Action:    pricing.SetMarginPercent{Value: 40},
			Active:    true,
		})
		require.NoError(t, err)

		res, err := f.engine.EvaluateRules(ctx, f.tenantID, pricing.EvaluateParams{
			ProductID:    f.productID,
			CurrentPrice: 24.90,
			CostPrice:    12,
			Apply:        true,
		})
		require.NoError(t, err)
		assert.True(t, res.Applied)
		assert.Equal(t, 20.0, res.SuggestedPrice)
		assert.Equal(t, 20.0, f.product(t).Price)

		history := f.history(t)
		require.Len(t, history, 1)
		assert.Equal(t, 20.0, history[0].SellingPrice)
		assert.InDelta(t, 8.0, history[0].NetProfit, 0.001)
		assert.InDelta(t, 40.0, history[0].NetMarginPercent, 0.001)
		assert.Equal(t, 1, f.observer.applied)
	})

	t.Run("failed apply leaves product untouched", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		engine := pricing.NewEngine(brokenStore{f.store})

		_, err := engine.EvaluateRules(context.Background(), f.tenantID, pricing.EvaluateParams{
			ProductID:    f.productID,
			CurrentPrice: 30,
			Apply:        true,
		})
		assert.ErrorIs(t, err, pricing.ErrUpstream)
		assert.Equal(t, 24.90, f.product(t).Price)
		assert.Empty(t, f.history(t))
	})

	t.Run("unknown product", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		_, err := f.engine.EvaluateRules(context.Background(), f.tenantID, pricing.EvaluateParams{
			ProductID:    uuid.New(),
			CurrentPrice: 1,
		})
		assert.ErrorIs(t, err, pricing.ErrProductNotFound)
	})

	t.Run("other tenant's product", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		_, err := f.engine.EvaluateRules(context.Background(), uuid.New(), pricing.EvaluateParams{
			ProductID:    f.productID,
			CurrentPrice: 1,
		})
		assert.ErrorIs(t, err, pricing.ErrProductNotFound)
	})

	t.Run("negative price", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		_, err := f.engine.EvaluateRules(context.Background(), f.tenantID, pricing.EvaluateParams{
			ProductID:    f.productID,
			CurrentPrice: -5,
		})
		var verr pricing.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.NotEmpty(t, verr.Get("current_price"))
	})
}

func TestEngine_CalculateProfit(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	calc, err := f.engine.CalculateProfit(ctx, f.tenantID, pricing.ProfitParams{
		ProductID:       f.productID,
		SellingPrice:    100,
		CostPrice:       40,
		AdditionalCosts: []float64{10},
	})
	require.NoError(t, err)
	assert.Equal(t, 50.0, calc.NetProfit)
	assert.Equal(t, 50.0, calc.NetMarginPercent)

	calc, err = f.engine.CalculateProfit(ctx, f.tenantID, pricing.ProfitParams{
		ProductID:    f.productID,
		SellingPrice: 0,
		CostPrice:    40,
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, calc.NetMarginPercent)

	history := f.history(t)
	require.Len(t, history, 2)
	assert.Equal(t, 0.0, history[0].SellingPrice, "newest first")
	assert.Equal(t, 100.0, history[1].SellingPrice)

	_, err = f.engine.CalculateProfit(ctx, f.tenantID, pricing.ProfitParams{
		ProductID:       f.productID,
		SellingPrice:    10,
		AdditionalCosts: []float64{-1},
	})
	assert.ErrorIs(t, err, pricing.ErrInvalidInput)

	_, err = f.engine.CalculateProfit(ctx, f.tenantID, pricing.ProfitParams{ProductID: uuid.New(), SellingPrice: 1})
	assert.ErrorIs(t, err, pricing.ErrProductNotFound)
}

func TestEngine_Rules(t *testing.T) {
	t.Parallel()

	newRule := func(name string, priority int) pricing.Rule {
		return pricing.Rule{
			Name:      name,
			Kind:      pricing.KindCustom,
			Priority:  priority,
			Condition: pricing.Always{},
			Action:    pricing.AdjustPercent{Value: 5},
			Active:    true,
		}
	}

	t.Run("create assigns identity", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		r, err := f.engine.CreateRule(context.Background(), f.tenantID, newRule("a", 1))
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, r.ID)
		assert.Equal(t, f.tenantID, r.TenantID)
		assert.False(t, r.CreatedAt.IsZero())
	})

	t.Run("duplicate active priority is rejected", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		ctx := context.Background()
		first, err := f.engine.CreateRule(ctx, f.tenantID, newRule("a", 5))
		require.NoError(t, err)

		_, err = f.engine.CreateRule(ctx, f.tenantID, newRule("b", 5))
		assert.ErrorIs(t, err, pricing.ErrPriorityConflict)

		_, err = f.engine.CreateRule(ctx, uuid.New(), newRule("other tenant", 5))
		assert.NoError(t, err)

		_, err = f.engine.SetRuleActive(ctx, f.tenantID, first.ID, false)
		require.NoError(t, err)
		_, err = f.engine.CreateRule(ctx, f.tenantID, newRule("b", 5))
		require.NoError(t, err)

		_, err = f.engine.SetRuleActive(ctx, f.tenantID, first.ID, true)
		assert.ErrorIs(t, err, pricing.ErrPriorityConflict)
	})

	t.Run("invalid rule is not stored", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		bad := newRule("bad", 1)
		bad.Action = pricing.UndercutCompetitor{}

		_, err := f.engine.CreateRule(context.Background(), f.tenantID, bad)
		assert.ErrorIs(t, err, pricing.ErrInvalidInput)

		rules, err := f.engine.ListRules(context.Background(), f.tenantID)
		require.NoError(t, err)
		assert.Empty(t, rules)
	})

	t.Run("update keeps creation time", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		ctx := context.Background()
		created, err := f.engine.CreateRule(ctx, f.tenantID, newRule("a", 1))
		require.NoError(t, err)

		edit := newRule("renamed", 2)
		edit.ID = created.ID
		updated, err := f.engine.UpdateRule(ctx, f.tenantID, edit)
		require.NoError(t, err)
		assert.Equal(t, "renamed", updated.Name)
		assert.Equal(t, created.CreatedAt, updated.CreatedAt)
		assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

		edit.ID = uuid.New()
		_, err = f.engine.UpdateRule(ctx, f.tenantID, edit)
		assert.ErrorIs(t, err, pricing.ErrRuleNotFound)
	})

	t.Run("list is in evaluation order and delete removes", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		ctx := context.Background()
		low, err := f.engine.CreateRule(ctx, f.tenantID, newRule("low", 1))
		require.NoError(t, err)
		_, err = f.engine.CreateRule(ctx, f.tenantID, newRule("high", 9))
		require.NoError(t, err)

		rules, err := f.engine.ListRules(ctx, f.tenantID)
		require.NoError(t, err)
		require.Len(t, rules, 2)
		assert.Equal(t, "high", rules[0].Name)

		require.NoError(t, f.engine.DeleteRule(ctx, f.tenantID, low.ID))
		assert.ErrorIs(t, f.engine.DeleteRule(ctx, f.tenantID, low.ID), pricing.ErrRuleNotFound)

		rules, err = f.engine.ListRules(ctx, f.tenantID)
		require.NoError(t, err)
		assert.Len(t, rules, 1)
	})
}
