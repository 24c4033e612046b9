package feature

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"
)

// MemoryProvider keeps flags in process memory.
// The catalog loader seeds it at startup.
type MemoryProvider struct {
	mu     sync.RWMutex
	flags  map[string]*Flag
	closed bool
}

// NewMemoryProvider creates a provider holding copies of initial.
func NewMemoryProvider(initial ...*Flag) (*MemoryProvider, error) {
	m := &MemoryProvider{flags: make(map[string]*Flag)}
	for _, flag := range initial {
		if flag == nil {
			continue
		}
		if err := m.CreateFlag(context.Background(), flag); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// IsEnabled evaluates a flag for ctx.
func (m *MemoryProvider) IsEnabled(ctx context.Context, flagName string) (bool, error) {
	m.mu.RLock()
	flag, ok := m.flags[flagName]
	m.mu.RUnlock()

	if !ok {
		return false, ErrFlagNotFound
	}
	if !flag.Enabled {
		return false, nil
	}
	if flag.Strategy == nil {
		return true, nil
	}
	return flag.Strategy.Evaluate(ctx)
}

// GetFlag returns a copy of the named flag.
func (m *MemoryProvider) GetFlag(_ context.Context, flagName string) (*Flag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	flag, ok := m.flags[flagName]
	if !ok {
		return nil, ErrFlagNotFound
	}
	return clone(flag), nil
}

// ListFlags returns flags sorted by name.
func (m *MemoryProvider) ListFlags(_ context.Context, tags ...string) ([]*Flag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Flag, 0, len(m.flags))
	for _, flag := range m.flags {
		if len(tags) > 0 && !slices.ContainsFunc(tags, func(tag string) bool {
			return slices.Contains(flag.Tags, tag)
		}) {
			continue
		}
		result = append(result, clone(flag))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// CreateFlag stores a new flag.
func (m *MemoryProvider) CreateFlag(_ context.Context, flag *Flag) error {
	if err := validate(flag); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrProviderClosed
	}
	if _, ok := m.flags[flag.Name]; ok {
		return ErrFlagAlreadyExists
	}

	stored := clone(flag)
	now := time.Now()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = stored.CreatedAt
	m.flags[flag.Name] = stored
	return nil
}

// UpdateFlag replaces an existing flag, keeping its creation time.
func (m *MemoryProvider) UpdateFlag(_ context.Context, flag *Flag) error {
	if err := validate(flag); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrProviderClosed
	}
	existing, ok := m.flags[flag.Name]
	if !ok {
		return ErrFlagNotFound
	}

	stored := clone(flag)
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = time.Now()
	m.flags[flag.Name] = stored
	return nil
}

// DeleteFlag removes a flag.
func (m *MemoryProvider) DeleteFlag(_ context.Context, flagName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.flags[flagName]; !ok {
		return ErrFlagNotFound
	}
	delete(m.flags, flagName)
	return nil
}

// Close rejects further writes. Reads keep working.
func (m *MemoryProvider) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func validate(flag *Flag) error {
	if flag == nil {
		return errors.Join(ErrInvalidFlag, errors.New("flag cannot be nil"))
	}
	if flag.Name == "" {
		return errors.Join(ErrInvalidFlag, errors.New("flag name cannot be empty"))
	}
	return nil
}

func clone(flag *Flag) *Flag {
	c := *flag
	c.Tags = slices.Clone(flag.Tags)
	return &c
}
