package audit

import (
	"context"
	"maps"
	"sync"
)

// MemoryStorage keeps events in process. It backs tests and setups
// without Postgres.
type MemoryStorage struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (m *MemoryStorage) Store(_ context.Context, e Event) error {
	e.Metadata = maps.Clone(e.Metadata)
	m.mu.Lock()
	m.events = append(m.events, e)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStorage) Query(_ context.Context, c Criteria) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []Event{}
	for i := len(m.events) - 1; i >= 0 && len(out) < c.PageSize(); i-- {
		e := m.events[i]
		if c.Action != "" && e.Action != c.Action {
			continue
		}
		if c.TenantID != nil && (e.TenantID == nil || *e.TenantID != *c.TenantID) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

var _ Storage = (*MemoryStorage)(nil)
