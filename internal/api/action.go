package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/dmitrymomot/storekit/pkg/logger"
	"github.com/dmitrymomot/storekit/pkg/tenant"
)

// MaxBodyBytes caps request bodies, webhooks included.
const MaxBodyBytes = 1 << 20

// actionFunc serves one action. body is the full request body, action key included.
type actionFunc func(ctx context.Context, tenantID uuid.UUID, body []byte) (any, error)

// actionHandler dispatches POST {"action": ..., ...params} bodies.
type actionHandler struct {
	component string
	actions   map[string]actionFunc
	log       *slog.Logger
}

func (h *actionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	attrs := []slog.Attr{logger.Component(h.component)}

	t, ok := tenant.FromContext(r.Context())
	if !ok {
		writeError(w, r, h.log, tenant.ErrMissingIdentifier, attrs...)
		return
	}

	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, h.log, err, attrs...)
		return
	}

	var head struct {
		Action   string          `json:"action"`
		TenantID json.RawMessage `json:"tenant_id"`
	}
	if err := json.Unmarshal(body, &head); err != nil {
		writeError(w, r, h.log, errors.Join(errMalformedBody, err), attrs...)
		return
	}
	if len(head.TenantID) > 0 {
		writeError(w, r, h.log, errTenantInBody, attrs...)
		return
	}

	fn, ok := h.actions[head.Action]
	if !ok {
		writeError(w, r, h.log, fmt.Errorf("%w %q, expected one of: %s", errUnknownAction, head.Action, strings.Join(h.names(), ", ")), attrs...)
		return
	}

	attrs = append(attrs, logger.Action(head.Action))
	data, err := fn(r.Context(), t.ID, body)
	if err != nil {
		writeError(w, r, h.log, err, attrs...)
		return
	}
	writeData(w, data)
}

func (h *actionHandler) names() []string {
	names := make([]string, 0, len(h.actions))
	for name := range h.actions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// readBody enforces the JSON content type and MaxBodyBytes.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "application/json" {
			return nil, errUnsupportedType
		}
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errBodyTooLarge
		}
		return nil, errors.Join(errMalformedBody, err)
	}
	if len(body) == 0 {
		return nil, errors.Join(errMalformedBody, io.ErrUnexpectedEOF)
	}
	return body, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// decode unmarshals the action parameters and validates their struct tags.
func decode[T any](body []byte) (T, error) {
	var params T
	if err := json.Unmarshal(body, &params); err != nil {
		return params, errors.Join(errMalformedBody, err)
	}
	if err := validate.Struct(params); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return params, err
		}
		verr := make(validationError, len(fieldErrs))
		for _, fe := range fieldErrs {
			verr[fe.Field()] = append(verr[fe.Field()], describe(fe))
		}
		return params, verr
	}
	return params, nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	default:
		return "is invalid"
	}
}
