package tenantscope

import (
	"context"
	"sync"
)

// MemoryTable is an in-memory tenant-scoped table used by tests and local
// repositories. Views created with Scoped share rows with their parent.
type MemoryTable[T Owned] struct {
	data  *memoryData[T]
	scope Scope
}

type memoryData[T Owned] struct {
	mu   sync.RWMutex
	rows []T
}

// NewMemoryTable creates an empty table guarded by scope.
func NewMemoryTable[T Owned](scope Scope) *MemoryTable[T] {
	return &MemoryTable[T]{data: &memoryData[T]{}, scope: scope}
}

// Scoped returns a view of the same rows through scope,
// typically derived with ForTenant or Unscoped.
func (t *MemoryTable[T]) Scoped(scope Scope) *MemoryTable[T] {
	return &MemoryTable[T]{data: t.data, scope: scope}
}

// Scope returns the scope guarding this view.
func (t *MemoryTable[T]) Scope() Scope {
	return t.scope
}

// Insert stamps row and appends it.
func (t *MemoryTable[T]) Insert(ctx context.Context, row T) error {
	if err := t.scope.Stamp(ctx, row); err != nil {
		return err
	}

	t.data.mu.Lock()
	t.data.rows = append(t.data.rows, row)
	t.data.mu.Unlock()
	return nil
}

// Select returns visible rows matching match. A nil match selects every visible row.
func (t *MemoryTable[T]) Select(ctx context.Context, match func(T) bool) ([]T, error) {
	id, filtered, err := t.scope.Filter(ctx)
	if err != nil {
		return nil, err
	}

	t.data.mu.RLock()
	defer t.data.mu.RUnlock()

	out := make([]T, 0, len(t.data.rows))
	for _, row := range t.data.rows {
		if filtered && row.OwnerID() != id {
			continue
		}
		if match != nil && !match(row) {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

// Delete removes visible rows matching match and returns how many were removed.
func (t *MemoryTable[T]) Delete(ctx context.Context, match func(T) bool) (int, error) {
	id, filtered, err := t.scope.Filter(ctx)
	if err != nil {
		return 0, err
	}

	t.data.mu.Lock()
	defer t.data.mu.Unlock()

	kept := t.data.rows[:0]
	removed := 0
	for _, row := range t.data.rows {
		visible := !filtered || row.OwnerID() == id
		if visible && (match == nil || match(row)) {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	clear(t.data.rows[len(kept):])
	t.data.rows = kept
	return removed, nil
}
