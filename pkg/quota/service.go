package quota

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// Service is the request entry point for quota checks. It resolves the tenant's
// tier, recomputes usage and hands back a per-request Evaluator; no plan or usage
// state is cached between calls.
type Service struct {
	registry   *Registry
	tiers      TierStore
	aggregator *Aggregator
	counters   CounterStore
	metered    []Resource
	observer   Observer
}

// ServiceOption configures a Service instance.
type ServiceOption func(*Service)

// WithCounterStore enables Increment for metered resources.
func WithCounterStore(store CounterStore) ServiceOption {
	return func(s *Service) {
		if store != nil {
			s.counters = store
		}
	}
}

// WithMeteredResources overrides which resources Increment accepts.
func WithMeteredResources(res ...Resource) ServiceOption {
	return func(s *Service) {
		s.metered = slices.Clone(res)
	}
}

// WithObserver reports every decision to o.
func WithObserver(o Observer) ServiceOption {
	return func(s *Service) {
		if o != nil {
			s.observer = o
		}
	}
}

// NewService creates a quota Service.
// Panics if registry or tiers is nil to fail fast during initialization.
func NewService(registry *Registry, tiers TierStore, aggregator *Aggregator, opts ...ServiceOption) *Service {
	if registry == nil {
		panic("quota: Registry is required")
	}
	if tiers == nil {
		panic("quota: TierStore is required")
	}
	if aggregator == nil {
		aggregator = NewAggregator(nil)
	}

	s := &Service{
		registry:   registry,
		tiers:      tiers,
		aggregator: aggregator,
		metered:    MeteredResources(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry exposes the plan table the service evaluates against.
func (s *Service) Registry() *Registry { return s.registry }

// Evaluator builds a per-request evaluator for the tenant.
// An Unknown usage snapshot is not an error here; the evaluator denies on it.
func (s *Service) Evaluator(ctx context.Context, tenantID uuid.UUID) (*Evaluator, error) {
	plan, err := s.plan(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return NewEvaluator(plan, s.aggregator.Snapshot(ctx, tenantID)), nil
}

// CanAdd reports whether the tenant may create one more res.
// It returns (false, nil) when the limit is reached and a non-nil error when
// the answer is unknown.
func (s *Service) CanAdd(ctx context.Context, tenantID uuid.UUID, res Resource) (bool, error) {
	err := s.Check(ctx, tenantID, res)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrLimitExceeded):
		return false, nil
	default:
		return false, err
	}
}

// Check is CanAdd returning the full *ExceededError on denial.
func (s *Service) Check(ctx context.Context, tenantID uuid.UUID, res Resource) error {
	if _, err := ParseResource(string(res)); err != nil {
		s.observe(res, DecisionInvalid)
		return err
	}

	ev, err := s.Evaluator(ctx, tenantID)
	if err != nil {
		return err
	}

	err = ev.Check(res)
	s.observe(res, decisionOf(err))
	return err
}

// Remaining returns the headroom left for res.
func (s *Service) Remaining(ctx context.Context, tenantID uuid.UUID, res Resource) (Remaining, error) {
	ev, err := s.Evaluator(ctx, tenantID)
	if err != nil {
		return Remaining{}, err
	}
	return ev.Remaining(res)
}

// UsagePercentage returns usage of res in [0, 100].
func (s *Service) UsagePercentage(ctx context.Context, tenantID uuid.UUID, res Resource) (float64, error) {
	ev, err := s.Evaluator(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	return ev.UsagePercentage(res)
}

// RecommendedPlan returns the advisory tier for the tenant.
func (s *Service) RecommendedPlan(ctx context.Context, tenantID uuid.UUID) (Tier, error) {
	ev, err := s.Evaluator(ctx, tenantID)
	if err != nil {
		return "", err
	}
	return ev.RecommendedTier(), nil
}

// HasFeature reports whether the tenant's plan enables f. The tier lookup
// error is returned as is, so an unknown tenant is ErrTenantNotFound.
func (s *Service) HasFeature(ctx context.Context, tenantID uuid.UUID, f Feature) (bool, error) {
	plan, err := s.plan(ctx, tenantID)
	if err != nil {
		return false, err
	}
	return plan.HasFeature(f), nil
}

// Summary is the dashboard view of a tenant's plan and usage.
type Summary struct {
	Tier        Tier                   `json:"tier"`
	Plan        Plan                   `json:"plan"`
	Known       bool                   `json:"known"`
	Usage       map[Resource]UsageInfo `json:"usage"`
	Alerts      []Resource             `json:"alerts"`
	Recommended Tier                   `json:"recommended"`
}

// Summary reports usage for every resource in the tenant's plan.
// When usage is unknown the summary says so instead of reporting zeros.
func (s *Service) Summary(ctx context.Context, tenantID uuid.UUID) (*Summary, error) {
	ev, err := s.Evaluator(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	sum := &Summary{
		Tier:        ev.Tier(),
		Plan:        ev.Plan(),
		Known:       ev.Usage().IsKnown(),
		Usage:       make(map[Resource]UsageInfo),
		Alerts:      make([]Resource, 0),
		Recommended: ev.RecommendedTier(),
	}
	if !sum.Known {
		return sum, nil
	}

	for _, res := range allResources {
		info, err := ev.UsageInfo(res)
		if err != nil {
			continue
		}
		sum.Usage[res] = info
		if !info.Unlimited && info.Percentage >= RecommendationThreshold {
			sum.Alerts = append(sum.Alerts, res)
		}
	}
	return sum, nil
}

// Increment records delta units of a metered resource. The limit check and the
// write happen in one store call; the returned total is re-read from the store.
func (s *Service) Increment(ctx context.Context, tenantID uuid.UUID, res Resource, delta int64) (int64, error) {
	if delta <= 0 {
		return 0, ErrInvalidDelta
	}
	if s.counters == nil || !slices.Contains(s.metered, res) {
		s.observe(res, DecisionInvalid)
		return 0, fmt.Errorf("%w: %s is not metered", ErrInvalidResource, res)
	}

	plan, err := s.plan(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	limit, ok := plan.Limit(res)
	if !ok {
		return 0, ErrInvalidResource
	}

	if _, err := s.counters.Increment(ctx, tenantID, res, delta, limit); err != nil {
		if !errors.Is(err, ErrLimitExceeded) {
			s.observe(res, DecisionUnknown)
			return 0, errors.Join(ErrUpstream, err)
		}
		s.observe(res, DecisionDenied)
		current, getErr := s.counters.Get(ctx, tenantID, res)
		if getErr != nil {
			return 0, errors.Join(ErrUpstream, getErr)
		}
		return 0, &ExceededError{Resource: res, Tier: plan.Tier, Usage: current, Limit: limit}
	}

	s.observe(res, DecisionRecorded)
	current, err := s.counters.Get(ctx, tenantID, res)
	if err != nil {
		return 0, errors.Join(ErrUpstream, err)
	}
	return current, nil
}

// ChangeTier moves the tenant to tier. Usage is untouched.
func (s *Service) ChangeTier(ctx context.Context, tenantID uuid.UUID, tier Tier) error {
	if !tier.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownTier, tier)
	}
	if err := s.tiers.SetTier(ctx, tenantID, tier); err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			return err
		}
		return errors.Join(ErrUpstream, err)
	}
	return nil
}

// CanDowngrade checks whether current usage fits within the target tier.
func (s *Service) CanDowngrade(ctx context.Context, tenantID uuid.UUID, target Tier) (*PlanComparison, error) {
	targetPlan, err := s.registry.Plan(target)
	if err != nil {
		return nil, err
	}

	ev, err := s.Evaluator(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	current := ev.Plan()
	comparison := ComparePlans(&current, &targetPlan)

	var errs []error
	for res, change := range comparison.DecreasedLimits {
		used, err := ev.Usage().Count(res)
		if err != nil {
			if errors.Is(err, ErrNoCounterRegistered) {
				continue
			}
			return comparison, err
		}
		if used > change.To {
			errs = append(errs, fmt.Errorf("%s usage %d exceeds %s limit %d", res, used, target, change.To))
		}
	}
	if len(errs) > 0 {
		return comparison, errors.Join(append([]error{ErrDowngradeNotPossible}, errs...)...)
	}
	return comparison, nil
}

func (s *Service) plan(ctx context.Context, tenantID uuid.UUID) (Plan, error) {
	tier, err := s.tiers.Tier(ctx, tenantID)
	if err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			return Plan{}, err
		}
		return Plan{}, errors.Join(ErrUpstream, err)
	}
	return s.registry.Plan(tier)
}

func (s *Service) observe(res Resource, decision string) {
	if s.observer != nil {
		s.observer.ObserveDecision(res, decision)
	}
}

func decisionOf(err error) string {
	switch {
	case err == nil:
		return DecisionAllowed
	case errors.Is(err, ErrLimitExceeded):
		return DecisionDenied
	case errors.Is(err, ErrUsageUnknown):
		return DecisionUnknown
	default:
		return DecisionInvalid
	}
}
