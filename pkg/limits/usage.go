package limits

import (
	"context"
	"sync"
)

// UsageStore keeps per-tenant usage counters.
type UsageStore interface {
	// Current returns the counter, zero when never recorded.
	Current(ctx context.Context, tenantID int64, res Resource) (int64, error)

	// Increment adds one when the counter is below limit and returns the new
	// value. It returns ErrLimitExceeded otherwise. Unlimited skips the check.
	Increment(ctx context.Context, tenantID int64, res Resource, limit int64) (int64, error)

	// Decrement subtracts one, returning ErrUsageUnderflow at zero.
	Decrement(ctx context.Context, tenantID int64, res Resource) (int64, error)

	// Set overwrites the counter, used when reconciling with real row counts.
	Set(ctx context.Context, tenantID int64, res Resource, value int64) error
}

type usageKey struct {
	tenantID int64
	res      Resource
}

// MemoryUsageStore is a process-local UsageStore.
type MemoryUsageStore struct {
	mu     sync.Mutex
	counts map[usageKey]int64
}

// NewMemoryUsageStore creates an empty store.
func NewMemoryUsageStore() *MemoryUsageStore {
	return &MemoryUsageStore{counts: make(map[usageKey]int64)}
}

func (s *MemoryUsageStore) Current(_ context.Context, tenantID int64, res Resource) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[usageKey{tenantID, res}], nil
}

func (s *MemoryUsageStore) Increment(_ context.Context, tenantID int64, res Resource, limit int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := usageKey{tenantID, res}
	current := s.counts[key]
	if limit != Unlimited && current >= limit {
		return current, ErrLimitExceeded
	}
	s.counts[key] = current + 1
	return current + 1, nil
}

func (s *MemoryUsageStore) Decrement(_ context.Context, tenantID int64, res Resource) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := usageKey{tenantID, res}
	current := s.counts[key]
	if current <= 0 {
		return 0, ErrUsageUnderflow
	}
	s.counts[key] = current - 1
	return current - 1, nil
}

func (s *MemoryUsageStore) Set(_ context.Context, tenantID int64, res Resource, value int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[usageKey{tenantID, res}] = max(value, 0)
	return nil
}
