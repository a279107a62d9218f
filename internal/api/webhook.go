package api

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/dmitrymomot/storekit/pkg/billing"
	"github.com/dmitrymomot/storekit/pkg/logger"
)

// paddleWebhook verifies and applies a billing webhook. Any non-2xx answer
// makes the provider retry.
func paddleWebhook(svc *billing.Service, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attrs := []slog.Attr{logger.Component("billing")}

		payload, err := readBody(w, r)
		if err != nil {
			writeError(w, r, log, err, attrs...)
			return
		}

		res, err := svc.HandleWebhook(r.Context(), payload, r.Header.Get(billing.SignatureHeader))
		if res != nil {
			attrs = append(attrs, logger.Event(string(res.Event)), slog.String("outcome", res.Outcome))
			if res.TenantID != uuid.Nil {
				attrs = append(attrs, logger.TenantID(res.TenantID))
			}
		}
		if err != nil {
			writeError(w, r, log, err, attrs...)
			return
		}

		log.LogAttrs(r.Context(), slog.LevelInfo, "billing webhook processed", attrs...)
		writeData(w, res)
	}
}
