package limits

import (
	"context"
	"fmt"
	"sync"
)

// Override is a per-tenant exception to the plan for one resource or feature key.
// A nil field defers to the plan.
type Override struct {
	TenantID int64  `json:"tenant_id"`
	Key      string `json:"key"`
	Enabled  *bool  `json:"enabled,omitempty"`
	Limit    *int64 `json:"limit,omitempty"`
}

// OverrideStore looks up per-tenant overrides.
// Get returns nil, nil when the tenant has no override for key.
type OverrideStore interface {
	Get(ctx context.Context, tenantID int64, key string) (*Override, error)
}

// OverrideWriter persists overrides. Put replaces the override for the
// same tenant and key.
type OverrideWriter interface {
	Put(ctx context.Context, o Override) error
}

// Validate checks that o names a key and carries a usable limit.
func (o Override) Validate() error {
	if o.TenantID <= 0 || o.Key == "" {
		return ErrInvalidOverride
	}
	if o.Limit != nil && *o.Limit < Unlimited {
		return fmt.Errorf("%w: limit %d", ErrInvalidOverride, *o.Limit)
	}
	return nil
}

// MemoryOverrides is an in-process OverrideStore.
type MemoryOverrides struct {
	mu   sync.RWMutex
	rows map[int64]map[string]Override
}

// NewMemoryOverrides creates an empty store.
func NewMemoryOverrides() *MemoryOverrides {
	return &MemoryOverrides{rows: make(map[int64]map[string]Override)}
}

func (m *MemoryOverrides) Get(_ context.Context, tenantID int64, key string) (*Override, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.rows[tenantID][key]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

// Put stores o, replacing any override for the same tenant and key.
func (m *MemoryOverrides) Put(_ context.Context, o Override) error {
	m.update(o.TenantID, o.Key, func(cur *Override) { *cur = o })
	return nil
}

// SetLimit overrides the limit of res for a tenant.
func (m *MemoryOverrides) SetLimit(tenantID int64, res Resource, limit int64) {
	m.update(tenantID, string(res), func(cur *Override) { cur.Limit = &limit })
}

// SetEnabled turns a feature or resource on or off for a tenant.
func (m *MemoryOverrides) SetEnabled(tenantID int64, key string, enabled bool) {
	m.update(tenantID, key, func(cur *Override) { cur.Enabled = &enabled })
}

func (m *MemoryOverrides) update(tenantID int64, key string, fn func(*Override)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.rows[tenantID] == nil {
		m.rows[tenantID] = make(map[string]Override)
	}
	cur, ok := m.rows[tenantID][key]
	if !ok {
		cur = Override{TenantID: tenantID, Key: key}
	}
	fn(&cur)
	cur.TenantID, cur.Key = tenantID, key
	m.rows[tenantID][key] = cur
}
