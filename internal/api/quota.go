package api

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/dmitrymomot/storekit/pkg/quota"
)

type quotaHandlers struct {
	quota *quota.Service
	// selfServiceTier lets a tenant call change_tier on itself.
	selfServiceTier bool
}

func (h quotaHandlers) actions() map[string]actionFunc {
	return map[string]actionFunc{
		"can_add":          h.canAdd,
		"remaining":        h.remaining,
		"usage_percentage": h.usagePercentage,
		"summary":          h.summary,
		"recommended_plan": h.recommendedPlan,
		"has_feature":      h.hasFeature,
		"increment":        h.increment,
		"change_tier":      h.changeTier,
		"can_downgrade":    h.canDowngrade,
	}
}

type resourceParams struct {
	Resource string `json:"resource" validate:"required"`
}

func parseResource(body []byte) (quota.Resource, error) {
	p, err := decode[resourceParams](body)
	if err != nil {
		return "", err
	}
	return quota.ParseResource(p.Resource)
}

// CanAddResult answers can_add. A denial is a normal answer and carries the
// figures needed for an upgrade prompt.
type CanAddResult struct {
	Resource quota.Resource `json:"resource"`
	Allowed  bool           `json:"allowed"`
	Tier     quota.Tier     `json:"tier,omitempty"`
	Usage    *int64         `json:"usage,omitempty"`
	Limit    *int64         `json:"limit,omitempty"`
}

func (h quotaHandlers) canAdd(ctx context.Context, tenantID uuid.UUID, body []byte) (any, error) {
	res, err := parseResource(body)
	if err != nil {
		return nil, err
	}

	err = h.quota.Check(ctx, tenantID, res)
	var exceeded *quota.ExceededError
	switch {
	case err == nil:
		return CanAddResult{Resource: res, Allowed: true}, nil
	case errors.As(err, &exceeded):
		return CanAddResult{
			Resource: res,
			Tier:     exceeded.Tier,
			Usage:    &exceeded.Usage,
			Limit:    &exceeded.Limit,
		}, nil
	default:
		return nil, err
	}
}

func (h quotaHandlers) remaining(ctx context.Context, tenantID uuid.UUID, body []byte) (any, error) {
	res, err := parseResource(body)
	if err != nil {
		return nil, err
	}
	rem, err := h.quota.Remaining(ctx, tenantID, res)
	if err != nil {
		return nil, err
	}
	return struct {
		Resource quota.Resource `json:"resource"`
		quota.Remaining
	}{res, rem}, nil
}

func (h quotaHandlers) usagePercentage(ctx context.Context, tenantID uuid.UUID, body []byte) (any, error) {
	res, err := parseResource(body)
	if err != nil {
		return nil, err
	}
	pct, err := h.quota.UsagePercentage(ctx, tenantID, res)
	if err != nil {
		return nil, err
	}
	return struct {
		Resource   quota.Resource `json:"resource"`
		Percentage float64        `json:"percentage"`
	}{res, pct}, nil
}

func (h quotaHandlers) summary(ctx context.Context, tenantID uuid.UUID, _ []byte) (any, error) {
	return h.quota.Summary(ctx, tenantID)
}

func (h quotaHandlers) recommendedPlan(ctx context.Context, tenantID uuid.UUID, _ []byte) (any, error) {
	tier, err := h.quota.RecommendedPlan(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return struct {
		Recommended quota.Tier `json:"recommended"`
	}{tier}, nil
}

func (h quotaHandlers) hasFeature(ctx context.Context, tenantID uuid.UUID, body []byte) (any, error) {
	p, err := decode[struct {
		Feature string `json:"feature" validate:"required"`
	}](body)
	if err != nil {
		return nil, err
	}
	f, err := quota.ParseFeature(p.Feature)
	if err != nil {
		return nil, err
	}
	enabled, err := h.quota.HasFeature(ctx, tenantID, f)
	if err != nil {
		return nil, err
	}
	return struct {
		Feature quota.Feature `json:"feature"`
		Enabled bool          `json:"enabled"`
	}{f, enabled}, nil
}

type incrementParams struct {
	Resource string `json:"resource" validate:"required"`
	Delta    *int64 `json:"delta" validate:"omitnil,gte=1"`
}

func (h quotaHandlers) increment(ctx context.Context, tenantID uuid.UUID, body []byte) (any, error) {
	p, err := decode[incrementParams](body)
	if err != nil {
		return nil, err
	}
	res, err := quota.ParseResource(p.Resource)
	if err != nil {
		return nil, err
	}
	delta := int64(1)
	if p.Delta != nil {
		delta = *p.Delta
	}

	usage, err := h.quota.Increment(ctx, tenantID, res, delta)
	if err != nil {
		return nil, err
	}
	return struct {
		Resource quota.Resource `json:"resource"`
		Usage    int64          `json:"usage"`
	}{res, usage}, nil
}

type tierParams struct {
	Tier string `json:"tier" validate:"required"`
}

func (h quotaHandlers) changeTier(ctx context.Context, tenantID uuid.UUID, body []byte) (any, error) {
	if !h.selfServiceTier {
		return nil, errTierChangeOff
	}
	p, err := decode[tierParams](body)
	if err != nil {
		return nil, err
	}
	tier, err := quota.ParseTier(p.Tier)
	if err != nil {
		return nil, err
	}
	if err := h.quota.ChangeTier(ctx, tenantID, tier); err != nil {
		return nil, err
	}
	return struct {
		Tier quota.Tier `json:"tier"`
	}{tier}, nil
}

func (h quotaHandlers) canDowngrade(ctx context.Context, tenantID uuid.UUID, body []byte) (any, error) {
	p, err := decode[tierParams](body)
	if err != nil {
		return nil, err
	}
	tier, err := quota.ParseTier(p.Tier)
	if err != nil {
		return nil, err
	}
	cmp, err := h.quota.CanDowngrade(ctx, tenantID, tier)
	if err != nil {
		return nil, err
	}
	return struct {
		Allowed    bool                  `json:"allowed"`
		Comparison *quota.PlanComparison `json:"comparison"`
	}{true, cmp}, nil
}
