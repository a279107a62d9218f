package api

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmitrymomot/storekit/pkg/stock"
)

type stockHandlers struct {
	syncer *stock.Syncer
}

func (h stockHandlers) actions() map[string]actionFunc {
	return map[string]actionFunc{
		"sync": h.sync,
	}
}

func (h stockHandlers) sync(ctx context.Context, tenantID uuid.UUID, body []byte) (any, error) {
	p, err := unmarshal[struct {
		Updates []stock.Update `json:"updates"`
	}](body)
	if err != nil {
		return nil, err
	}
	return h.syncer.Sync(ctx, tenantID, p.Updates)
}
