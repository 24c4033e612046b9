package feature

import (
	"context"
	"errors"
	"hash/fnv"
	"slices"
	"strconv"

	"github.com/churchly/backend/pkg/tenant"
)

// AlwaysStrategy returns the same value for every context.
type AlwaysStrategy struct {
	Value bool
}

// Evaluate returns the configured value.
func (s *AlwaysStrategy) Evaluate(context.Context) (bool, error) {
	return s.Value, nil
}

// NewAlwaysOnStrategy enables the flag for everyone.
func NewAlwaysOnStrategy() Strategy {
	return &AlwaysStrategy{Value: true}
}

// NewAlwaysOffStrategy disables the flag for everyone.
func NewAlwaysOffStrategy() Strategy {
	return &AlwaysStrategy{Value: false}
}

// TenantStrategy enables a flag for selected tenants.
// A context with no bound tenant never matches.
type TenantStrategy struct {
	Criteria TenantCriteria
}

// NewTenantStrategy builds a strategy from criteria.
func NewTenantStrategy(criteria TenantCriteria) Strategy {
	return &TenantStrategy{Criteria: criteria}
}

// Evaluate matches the bound tenant against the criteria.
func (s *TenantStrategy) Evaluate(ctx context.Context) (bool, error) {
	c := s.Criteria
	if c.empty() {
		return false, ErrInvalidStrategy
	}
	if c.Percentage != nil && (*c.Percentage < 0 || *c.Percentage > 100) {
		return false, errors.Join(ErrInvalidStrategy, errors.New("percentage must be between 0 and 100"))
	}

	t, ok := tenant.FromContext(ctx)
	if !ok {
		return false, nil
	}

	if slices.Contains(c.DenyList, t.ID) {
		return false, nil
	}
	if slices.Contains(c.AllowList, t.ID) || slices.Contains(c.Slugs, t.Slug) {
		return true, nil
	}
	if t.PlanID != "" && slices.Contains(c.Plans, t.PlanID) {
		return true, nil
	}
	if c.Percentage != nil {
		return bucket(t.ID) < *c.Percentage, nil
	}

	return false, nil
}

func (c TenantCriteria) empty() bool {
	return len(c.AllowList) == 0 && len(c.DenyList) == 0 && len(c.Slugs) == 0 &&
		len(c.Plans) == 0 && c.Percentage == nil
}

// bucket maps a tenant id to a stable value in [0, 100).
func bucket(id int64) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strconv.FormatInt(id, 10)))
	return int(h.Sum32() % 100)
}

// CompositeStrategy combines strategies with "and" or "or".
type CompositeStrategy struct {
	Strategies []Strategy
	Operator   string
}

// Evaluate short-circuits on the first decisive child.
func (s *CompositeStrategy) Evaluate(ctx context.Context) (bool, error) {
	if len(s.Strategies) == 0 {
		return false, ErrInvalidStrategy
	}

	var want bool
	switch s.Operator {
	case "and":
		want = false
	case "or":
		want = true
	default:
		return false, errors.Join(ErrInvalidStrategy,
			errors.New("composite operator must be 'and' or 'or'"))
	}

	for _, strategy := range s.Strategies {
		enabled, err := strategy.Evaluate(ctx)
		if err != nil {
			return false, err
		}
		if enabled == want {
			return want, nil
		}
	}
	return !want, nil
}

// NewAndStrategy requires every child to match.
func NewAndStrategy(strategies ...Strategy) Strategy {
	return &CompositeStrategy{Strategies: strategies, Operator: "and"}
}

// NewOrStrategy requires at least one child to match.
func NewOrStrategy(strategies ...Strategy) Strategy {
	return &CompositeStrategy{Strategies: strategies, Operator: "or"}
}
