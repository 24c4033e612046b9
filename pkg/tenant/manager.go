package tenant

import "sync"

// Manager holds the tenant bound to one logical unit of work: a single HTTP
// request or a single job execution. A Manager must never be shared between
// units of work; Bind creates a fresh one for every entry point.
type Manager struct {
	mu     sync.RWMutex
	tenant *Tenant
}

// NewManager returns a Manager with no tenant bound.
func NewManager() *Manager {
	return &Manager{}
}

// Set binds t as the current tenant, overwriting any previous binding.
// Callers that need nesting should use Within instead.
func (m *Manager) Set(t *Tenant) {
	m.mu.Lock()
	m.tenant = t
	m.mu.Unlock()
}

// Get returns the bound tenant or nil.
func (m *Manager) Get() *Tenant {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tenant
}

// Has reports whether a tenant is bound.
func (m *Manager) Has() bool {
	return m.Get() != nil
}

// Forget clears the binding.
func (m *Manager) Forget() {
	m.Set(nil)
}

// Within binds t for the duration of fn and then restores whatever was bound
// before (including nothing). The restore runs even if fn panics.
func (m *Manager) Within(t *Tenant, fn func() error) error {
	m.mu.Lock()
	prev := m.tenant
	m.tenant = t
	m.mu.Unlock()

	defer m.Set(prev)

	return fn()
}
