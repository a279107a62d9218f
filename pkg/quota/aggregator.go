package quota

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Aggregator recomputes usage snapshots from registered counters.
type Aggregator struct {
	counters CounterRegistry
}

// NewAggregator creates an Aggregator. A nil registry counts nothing.
func NewAggregator(counters CounterRegistry) *Aggregator {
	if counters == nil {
		counters = NewCounterRegistry()
	}
	return &Aggregator{counters: counters}
}

// Snapshot counts every registered resource for the tenant concurrently.
// Any counter failure turns the whole snapshot Unknown.
func (a *Aggregator) Snapshot(ctx context.Context, tenantID uuid.UUID) Snapshot {
	var (
		mu     sync.Mutex
		counts = make(map[Resource]int64, len(a.counters))
	)

	g, gctx := errgroup.WithContext(ctx)
	for res, counter := range a.counters {
		g.Go(func() error {
			n, err := counter(gctx, tenantID)
			if err != nil {
				return fmt.Errorf("count %s: %w", res, err)
			}
			mu.Lock()
			counts[res] = n
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Unknown(errors.Join(ErrUpstream, err))
	}
	return Known(counts)
}

// Count returns usage for a single resource.
func (a *Aggregator) Count(ctx context.Context, tenantID uuid.UUID, res Resource) (int64, error) {
	counter, ok := a.counters[res]
	if !ok {
		return 0, ErrNoCounterRegistered
	}
	n, err := counter(ctx, tenantID)
	if err != nil {
		return 0, errors.Join(ErrUpstream, err)
	}
	return max(n, 0), nil
}
