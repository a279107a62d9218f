package api

import (
	"errors"
	"maps"
	"net/http"
	"strconv"

	"github.com/dmitrymomot/storekit/pkg/billing"
	"github.com/dmitrymomot/storekit/pkg/pricing"
	"github.com/dmitrymomot/storekit/pkg/quota"
	"github.com/dmitrymomot/storekit/pkg/ratelimit"
	"github.com/dmitrymomot/storekit/pkg/stock"
	"github.com/dmitrymomot/storekit/pkg/tenant"
)

// Error codes returned in ErrorDetail.Code.
const (
	CodeNotFound          = "not_found"
	CodeQuotaExceeded     = "quota_exceeded"
	CodeValidation        = "validation_error"
	CodeConflict          = "conflict"
	CodeUsageUnknown      = "usage_unknown"
	CodeUpstream          = "upstream_error"
	CodeBadRequest        = "bad_request"
	CodeUnknownAction     = "unknown_action"
	CodeUnauthorized      = "invalid_signature"
	CodeForbidden         = "tenant_inactive"
	CodeRateLimited       = "rate_limited"
	CodeInternal          = "internal_error"
	CodeDowngradeBlocked  = "downgrade_not_possible"
	CodeMethodNotAllowed  = "method_not_allowed"
	CodePayloadTooLarge   = "payload_too_large"
	CodeUnsupportedFormat = "unsupported_media_type"
	CodeTierChangeOff     = "tier_change_disabled"
)

var (
	errUnknownAction    = errors.New("unknown action")
	errMalformedBody    = errors.New("malformed JSON body")
	errTenantInBody     = errors.New("tenant is taken from the X-Tenant-ID header and must not be sent in the body")
	errBodyTooLarge     = errors.New("request body too large")
	errUnsupportedType  = errors.New("content type must be application/json")
	errRateLimited      = errors.New("too many requests")
	errUpstream         = errors.New("upstream unavailable")
	errRouteNotFound    = errors.New("route not found")
	errMethodNotAllowed = errors.New("method not allowed")
	errTierChangeOff    = errors.New("tier changes are applied by billing webhooks")
)

// validationError is a request field error raised by the API layer itself.
type validationError map[string][]string

func (e validationError) Error() string { return "invalid request" }

func fieldError(field, message string) validationError {
	return validationError{field: {message}}
}

// classify maps an error onto the four-kind taxonomy plus transport errors.
// NotFound → 404, QuotaExceeded → 402, ValidationError → 422,
// UpstreamError → 502 (503 when usage could not be counted).
func classify(err error) (int, *ErrorDetail) {
	var (
		exceeded *quota.ExceededError
		pv       pricing.ValidationError
		av       validationError
	)

	switch {
	case errors.As(err, &exceeded):
		return http.StatusPaymentRequired, &ErrorDetail{
			Code:    CodeQuotaExceeded,
			Message: exceeded.Error(),
			Details: map[string][]string{
				"resource": {string(exceeded.Resource)},
				"tier":     {string(exceeded.Tier)},
				"usage":    {strconv.FormatInt(exceeded.Usage, 10)},
				"limit":    {strconv.FormatInt(exceeded.Limit, 10)},
			},
		}
	case errors.Is(err, quota.ErrLimitExceeded):
		return http.StatusPaymentRequired, detail(CodeQuotaExceeded, err)

	case errors.As(err, &pv):
		d := detail(CodeValidation, err)
		d.Details = make(map[string][]string, len(pv))
		maps.Copy(d.Details, pv)
		return http.StatusUnprocessableEntity, d
	case errors.As(err, &av):
		d := detail(CodeValidation, err)
		d.Details = make(map[string][]string, len(av))
		maps.Copy(d.Details, av)
		return http.StatusUnprocessableEntity, d

	case errors.Is(err, tenant.ErrTenantNotFound),
		errors.Is(err, quota.ErrTenantNotFound),
		errors.Is(err, quota.ErrPlanNotFound),
		errors.Is(err, pricing.ErrProductNotFound),
		errors.Is(err, pricing.ErrRuleNotFound):
		return http.StatusNotFound, detail(CodeNotFound, err)

	case errors.Is(err, quota.ErrDowngradeNotPossible):
		return http.StatusConflict, detail(CodeDowngradeBlocked, err)
	case errors.Is(err, pricing.ErrPriorityConflict),
		errors.Is(err, stock.ErrConflict):
		return http.StatusConflict, detail(CodeConflict, err)

	case errors.Is(err, quota.ErrInvalidResource),
		errors.Is(err, quota.ErrUnknownTier),
		errors.Is(err, quota.ErrUnknownFeature),
		errors.Is(err, quota.ErrInvalidDelta),
		errors.Is(err, pricing.ErrInvalidRule),
		errors.Is(err, pricing.ErrInvalidInput),
		errors.Is(err, pricing.ErrUnknownCondition),
		errors.Is(err, pricing.ErrUnknownAction),
		errors.Is(err, stock.ErrInvalidUpdate),
		errors.Is(err, billing.ErrUnknownPrice),
		errors.Is(err, errTenantInBody):
		return http.StatusUnprocessableEntity, detail(CodeValidation, err)

	case errors.Is(err, quota.ErrUsageUnknown):
		return http.StatusServiceUnavailable, detail(CodeUsageUnknown, err)
	case errors.Is(err, quota.ErrUpstream),
		errors.Is(err, pricing.ErrUpstream),
		errors.Is(err, stock.ErrUpstream),
		errors.Is(err, billing.ErrUpstream),
		errors.Is(err, ratelimit.ErrStoreUnavailable),
		errors.Is(err, errUpstream):
		return http.StatusBadGateway, &ErrorDetail{Code: CodeUpstream, Message: "backing store unavailable"}

	case errors.Is(err, billing.ErrWebhookVerificationFailed):
		return http.StatusUnauthorized, detail(CodeUnauthorized, err)
	case errors.Is(err, billing.ErrInvalidPayload),
		errors.Is(err, billing.ErrMissingTenantID),
		errors.Is(err, tenant.ErrMissingIdentifier),
		errors.Is(err, tenant.ErrInvalidIdentifier),
		errors.Is(err, errMalformedBody):
		return http.StatusBadRequest, detail(CodeBadRequest, err)
	case errors.Is(err, errUnknownAction):
		return http.StatusBadRequest, detail(CodeUnknownAction, err)
	case errors.Is(err, errBodyTooLarge):
		return http.StatusRequestEntityTooLarge, detail(CodePayloadTooLarge, err)
	case errors.Is(err, errUnsupportedType):
		return http.StatusUnsupportedMediaType, detail(CodeUnsupportedFormat, err)
	case errors.Is(err, tenant.ErrInactiveTenant):
		return http.StatusForbidden, detail(CodeForbidden, err)
	case errors.Is(err, errTierChangeOff):
		return http.StatusForbidden, detail(CodeTierChangeOff, err)
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests, detail(CodeRateLimited, err)
	case errors.Is(err, errRouteNotFound):
		return http.StatusNotFound, detail(CodeNotFound, err)
	case errors.Is(err, errMethodNotAllowed):
		return http.StatusMethodNotAllowed, detail(CodeMethodNotAllowed, err)
	}

	return http.StatusInternalServerError, &ErrorDetail{Code: CodeInternal, Message: http.StatusText(http.StatusInternalServerError)}
}

func detail(code string, err error) *ErrorDetail {
	return &ErrorDetail{Code: code, Message: err.Error()}
}
