package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// SyncResult summarizes one Sync call.
type SyncResult struct {
	Checked    int         `json:"checked"`
	Updated    int         `json:"updated"`
	Unchanged  int         `json:"unchanged"`
	LowStock   int         `json:"low_stock"`
	OutOfStock int         `json:"out_of_stock"`
	Missing    []uuid.UUID `json:"missing"`
	Alerts     []Alert     `json:"alerts"`
}

// Syncer applies pushed stock updates.
type Syncer struct {
	store    Store
	validate *validator.Validate
	observer Observer
	now      func() time.Time
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithObserver reports every sync result to o.
func WithObserver(o Observer) Option {
	return func(s *Syncer) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithClock overrides the time source used for history and alerts.
func WithClock(now func() time.Time) Option {
	return func(s *Syncer) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSyncer creates a Syncer. Panics if store is nil.
func NewSyncer(store Store, opts ...Option) *Syncer {
	if store == nil {
		panic("stock: Store is required")
	}
	s := &Syncer{
		store:    store,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type batch struct {
	Updates []Update `validate:"required,min=1,max=1000,dive"`
}

// Sync writes changed quantities, records history and raises alerts for
// products that reach the low stock threshold or run out. Products whose
// quantity did not change produce no history and no alert. When a product
// appears more than once the last update wins.
func (s *Syncer) Sync(ctx context.Context, tenantID uuid.UUID, updates []Update) (SyncResult, error) {
	if err := s.validate.Struct(batch{Updates: updates}); err != nil {
		return SyncResult{}, errors.Join(ErrInvalidUpdate, err)
	}

	latest := make(map[uuid.UUID]int64, len(updates))
	order := make([]uuid.UUID, 0, len(updates))
	for _, u := range updates {
		if _, seen := latest[u.ProductID]; !seen {
			order = append(order, u.ProductID)
		}
		latest[u.ProductID] = u.Quantity
	}

	levels, err := s.store.Levels(ctx, tenantID, order)
	if err != nil {
		return SyncResult{}, errors.Join(ErrUpstream, err)
	}
	threshold, err := s.store.LowStockThreshold(ctx, tenantID)
	if err != nil {
		return SyncResult{}, errors.Join(ErrUpstream, err)
	}
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}

	now := s.now()
	res := SyncResult{
		Checked: len(order),
		Missing: make([]uuid.UUID, 0),
		Alerts:  make([]Alert, 0),
	}
	changes := make([]Change, 0, len(order))

	for _, productID := range order {
		previous, ok := levels[productID]
		if !ok {
			res.Missing = append(res.Missing, productID)
			continue
		}
		qty := latest[productID]
		if qty == previous {
			res.Unchanged++
			continue
		}

		changes = append(changes, Change{
			ID:               uuid.New(),
			TenantID:         tenantID,
			ProductID:        productID,
			PreviousQuantity: previous,
			NewQuantity:      qty,
			Reason:           "sync",
			CreatedAt:        now,
		})
		res.Updated++

		var kind AlertKind
		switch {
		case qty == 0:
			kind = AlertOutOfStock
			res.OutOfStock++
		case qty <= threshold:
			kind = AlertLowStock
			res.LowStock++
		default:
			continue
		}
		res.Alerts = append(res.Alerts, Alert{
			ID:        uuid.New(),
			TenantID:  tenantID,
			ProductID: productID,
			Kind:      kind,
			Quantity:  qty,
			Threshold: threshold,
			CreatedAt: now,
		})
	}

	if len(changes) > 0 {
		if err := s.store.Apply(ctx, tenantID, changes, res.Alerts); err != nil {
			if errors.Is(err, ErrConflict) {
				return SyncResult{}, err
			}
			return SyncResult{}, errors.Join(ErrUpstream, fmt.Errorf("apply %d changes: %w", len(changes), err))
		}
	}

	if s.observer != nil {
		s.observer.ObserveSync(res)
	}
	return res, nil
}
