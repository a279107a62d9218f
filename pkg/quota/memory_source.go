package quota

import (
	"context"
	"sync"
)

// Source defines how plans are loaded into the registry.
type Source interface {
	Load(ctx context.Context) ([]Plan, error)
}

// inMemSource implements the Source interface using an in-memory plan list.
type inMemSource struct {
	mu    sync.RWMutex
	plans []Plan
}

// NewInMemSource returns an in-memory Source with a deep copy of the given plans.
func NewInMemSource(plans ...Plan) Source {
	plansCopy := make([]Plan, 0, len(plans))
	for _, plan := range plans {
		plansCopy = append(plansCopy, plan.clone())
	}
	return &inMemSource{plans: plansCopy}
}

// Load returns a copy of all available plans from memory.
func (s *inMemSource) Load(ctx context.Context) ([]Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	plansCopy := make([]Plan, 0, len(s.plans))
	for _, plan := range s.plans {
		plansCopy = append(plansCopy, plan.clone())
	}
	return plansCopy, nil
}
