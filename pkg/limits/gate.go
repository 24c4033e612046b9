package limits

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/churchly/backend/pkg/feature"
	"github.com/churchly/backend/pkg/tenant"
)

// Gate decides whether a tenant may use a resource or feature.
//
// Every method takes the tenant explicitly; pass nil to use the tenant bound
// to ctx. A limit resolves from the tenant override first, then the plan.
// No configured limit means allowed, 0 always denies, Unlimited never does.
type Gate struct {
	plans     map[string]Plan
	usage     UsageStore
	overrides OverrideStore
	flags     feature.Provider
	counters  CounterRegistry
	logger    *slog.Logger
}

// NewGate loads plans from src and validates them.
func NewGate(ctx context.Context, src Source, usage UsageStore, opts ...Option) (*Gate, error) {
	plans, err := src.Load(ctx)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}
	if err := validatePlans(plans); err != nil {
		return nil, err
	}
	if usage == nil {
		usage = NewMemoryUsageStore()
	}

	g := &Gate{
		plans:    plans,
		usage:    usage,
		counters: NewRegistry(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// VerifyPlan reports ErrPlanNotFound for unknown plan ids.
func (g *Gate) VerifyPlan(planID string) error {
	if _, ok := g.plans[planID]; !ok {
		return ErrPlanNotFound
	}
	return nil
}

// KnownKey reports whether key names a resource or feature of any plan.
func (g *Gate) KnownKey(key string) bool {
	switch Resource(key) {
	case ResourceMembers, ResourceFamilies, ResourceDomains:
		return true
	}
	for _, p := range g.plans {
		if _, ok := p.Limits[Resource(key)]; ok || p.HasFeature(Feature(key)) {
			return true
		}
	}
	return false
}

// SetOverride stores an exception to the plan of o.TenantID. The override
// store must also implement OverrideWriter.
func (g *Gate) SetOverride(ctx context.Context, o Override) error {
	w, ok := g.overrides.(OverrideWriter)
	if !ok {
		return ErrOverridesReadOnly
	}
	if !g.KnownKey(o.Key) {
		return fmt.Errorf("%w: %s", ErrUnknownKey, o.Key)
	}
	if err := o.Validate(); err != nil {
		return err
	}
	return w.Put(ctx, o)
}

// Plan returns the plan of t, or nil when the tenant has none.
func (g *Gate) Plan(ctx context.Context, t *tenant.Tenant) (*Plan, error) {
	t, err := g.tenant(ctx, t)
	if err != nil {
		return nil, err
	}
	return g.planOf(t)
}

// Limit returns the effective limit of res for the tenant.
func (g *Gate) Limit(ctx context.Context, t *tenant.Tenant, res Resource) (int64, error) {
	t, err := g.tenant(ctx, t)
	if err != nil {
		return 0, err
	}
	return g.limit(ctx, t, res)
}

// EnsureCanUse fails with ErrLimitExceeded when usage has reached the limit,
// and with ErrFeatureDisabled when an override switched the resource off.
func (g *Gate) EnsureCanUse(ctx context.Context, t *tenant.Tenant, res Resource) error {
	t, err := g.tenant(ctx, t)
	if err != nil {
		return err
	}

	limit, err := g.limit(ctx, t, res)
	if err != nil {
		return err
	}
	if limit == Unlimited {
		return nil
	}

	current, err := g.usage.Current(ctx, t.ID, res)
	if err != nil {
		return err
	}
	if current >= limit {
		return fmt.Errorf("%w: %s %d/%d", ErrLimitExceeded, res, current, limit)
	}
	return nil
}

// Acquire checks the limit and records one unit in a single step,
// so concurrent creates cannot overshoot.
func (g *Gate) Acquire(ctx context.Context, t *tenant.Tenant, res Resource) error {
	t, err := g.tenant(ctx, t)
	if err != nil {
		return err
	}

	limit, err := g.limit(ctx, t, res)
	if err != nil {
		return err
	}

	current, err := g.usage.Increment(ctx, t.ID, res, limit)
	if errors.Is(err, ErrLimitExceeded) {
		return fmt.Errorf("%w: %s %d/%d", ErrLimitExceeded, res, current, limit)
	}
	return err
}

// RecordUsage counts one created unit of res without checking the limit.
func (g *Gate) RecordUsage(ctx context.Context, t *tenant.Tenant, res Resource) error {
	t, err := g.tenant(ctx, t)
	if err != nil {
		return err
	}
	_, err = g.usage.Increment(ctx, t.ID, res, Unlimited)
	return err
}

// ReleaseUsage counts one destroyed unit of res.
// A release with no matching record returns ErrUsageUnderflow.
func (g *Gate) ReleaseUsage(ctx context.Context, t *tenant.Tenant, res Resource) error {
	t, err := g.tenant(ctx, t)
	if err != nil {
		return err
	}

	if _, err := g.usage.Decrement(ctx, t.ID, res); err != nil {
		if errors.Is(err, ErrUsageUnderflow) {
			g.logger.ErrorContext(ctx, "usage released without matching record",
				slog.Int64("tenant_id", t.ID),
				slog.String("resource", string(res)))
		}
		return err
	}
	return nil
}

// Usage returns the counter and effective limit of res.
func (g *Gate) Usage(ctx context.Context, t *tenant.Tenant, res Resource) (UsageInfo, error) {
	t, err := g.tenant(ctx, t)
	if err != nil {
		return UsageInfo{}, err
	}

	limit, err := g.limit(ctx, t, res)
	switch {
	case errors.Is(err, ErrFeatureDisabled):
		limit = 0
	case err != nil:
		return UsageInfo{}, err
	}

	current, err := g.usage.Current(ctx, t.ID, res)
	if err != nil {
		return UsageInfo{}, err
	}
	return UsageInfo{Current: current, Limit: limit}, nil
}

// AllUsage returns usage for every resource the tenant's plan limits.
func (g *Gate) AllUsage(ctx context.Context, t *tenant.Tenant) (map[Resource]UsageInfo, error) {
	t, err := g.tenant(ctx, t)
	if err != nil {
		return nil, err
	}
	plan, err := g.planOf(t)
	if err != nil {
		return nil, err
	}

	result := make(map[Resource]UsageInfo)
	if plan == nil {
		return result, nil
	}
	for res := range plan.Limits {
		info, err := g.Usage(ctx, t, res)
		if err != nil {
			return nil, err
		}
		result[res] = info
	}
	return result, nil
}

// HasFeature resolves an override, then the plan, then rollout flags.
func (g *Gate) HasFeature(ctx context.Context, t *tenant.Tenant, f Feature) (bool, error) {
	t, err := g.tenant(ctx, t)
	if err != nil {
		return false, err
	}

	o, err := g.override(ctx, t.ID, string(f))
	if err != nil {
		return false, err
	}
	if o != nil && o.Enabled != nil {
		return *o.Enabled, nil
	}

	plan, err := g.planOf(t)
	if err != nil {
		return false, err
	}
	if plan != nil && plan.HasFeature(f) {
		return true, nil
	}

	if g.flags == nil {
		return false, nil
	}

	// Flags evaluate the tenant bound to the context, which may differ from t.
	flagCtx, release := tenant.Bind(ctx, t)
	defer release()

	on, err := g.flags.IsEnabled(flagCtx, string(f))
	if errors.Is(err, feature.ErrFlagNotFound) {
		return false, nil
	}
	return on, err
}

// RequireFeature returns ErrFeatureDisabled when the tenant lacks f.
func (g *Gate) RequireFeature(ctx context.Context, t *tenant.Tenant, f Feature) error {
	ok, err := g.HasFeature(ctx, t, f)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrFeatureDisabled, f)
	}
	return nil
}

// CheckTrial reports whether the tenant is still inside its plan's trial window.
func (g *Gate) CheckTrial(ctx context.Context, t *tenant.Tenant) error {
	t, err := g.tenant(ctx, t)
	if err != nil {
		return err
	}
	plan, err := g.planOf(t)
	if err != nil {
		return err
	}
	if plan == nil || plan.TrialDays == 0 {
		return ErrTrialNotAvailable
	}
	if !plan.IsTrialActive(t.CreatedAt) {
		return ErrTrialExpired
	}
	return nil
}

// SyncUsage overwrites the tenant's counters with the registered counters'
// authoritative values. Counters run with the tenant bound.
func (g *Gate) SyncUsage(ctx context.Context, t *tenant.Tenant) error {
	t, err := g.tenant(ctx, t)
	if err != nil {
		return err
	}

	ctx, release := tenant.Bind(ctx, t)
	defer release()

	var errs []error
	for res, count := range g.counters {
		n, err := count(ctx, t.ID)
		if err != nil {
			errs = append(errs, errors.Join(ErrFailedToCountResourceUsage, fmt.Errorf("%s: %w", res, err)))
			continue
		}
		if err := g.usage.Set(ctx, t.ID, res, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (g *Gate) tenant(ctx context.Context, t *tenant.Tenant) (*tenant.Tenant, error) {
	if t != nil {
		return t, nil
	}
	bound, ok := tenant.FromContext(ctx)
	if !ok {
		return nil, ErrNoTenant
	}
	return bound, nil
}

// planOf returns nil for tenants without a plan.
func (g *Gate) planOf(t *tenant.Tenant) (*Plan, error) {
	if t.PlanID == "" {
		return nil, nil
	}
	plan, ok := g.plans[t.PlanID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, t.PlanID)
	}
	return &plan, nil
}

func (g *Gate) override(ctx context.Context, tenantID int64, key string) (*Override, error) {
	if g.overrides == nil {
		return nil, nil
	}
	return g.overrides.Get(ctx, tenantID, key)
}

func (g *Gate) limit(ctx context.Context, t *tenant.Tenant, res Resource) (int64, error) {
	o, err := g.override(ctx, t.ID, string(res))
	if err != nil {
		return 0, err
	}
	if o != nil {
		if o.Enabled != nil && !*o.Enabled {
			return 0, fmt.Errorf("%w: %s", ErrFeatureDisabled, res)
		}
		if o.Limit != nil {
			return *o.Limit, nil
		}
	}

	plan, err := g.planOf(t)
	if err != nil {
		return 0, err
	}
	if plan != nil {
		if limit, ok := plan.Limit(res); ok {
			return limit, nil
		}
	}
	return Unlimited, nil
}

func validatePlans(plans map[string]Plan) error {
	for id, plan := range plans {
		if plan.TrialDays < 0 {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan %s has negative trial days: %d", id, plan.TrialDays))
		}
		for res, limit := range plan.Limits {
			if limit < Unlimited {
				return errors.Join(ErrInvalidPlanConfiguration,
					fmt.Errorf("plan %s has invalid limit %d for %s", id, limit, res))
			}
		}
	}
	return nil
}
