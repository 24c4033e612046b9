package registry

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[Kind]map[string]Entry
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: map[Kind]map[string]Entry{
		KindPermission: {},
		KindFeature:    {},
	}}
}

func (s *MemoryStore) Keys(_ context.Context, kind Kind) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, ok := s.rows[kind]
	if !ok {
		return nil, ErrUnknownKind
	}
	keys := make([]string, 0, len(rows))
	for key := range rows {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys, nil
}

func (s *MemoryStore) Upsert(_ context.Context, kind Kind, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, ok := s.rows[kind]
	if !ok {
		return ErrUnknownKind
	}
	for _, e := range entries {
		rows[e.Key] = e
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, kind Kind, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, ok := s.rows[kind]
	if !ok {
		return ErrUnknownKind
	}
	for _, key := range keys {
		delete(rows, key)
	}
	return nil
}

// Get returns a stored row.
func (s *MemoryStore) Get(kind Kind, key string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.rows[kind][key]
	return e, ok
}
