package tenant

import (
	"context"
	"log/slog"
	"strconv"
)

// contextKey prevents collisions with other packages using context values
type contextKey struct{}

// WithManager attaches m to the context. Lookups through FromContext always read
// the manager's current state, so a binding forgotten by the entry point is
// invisible to any goroutine still holding the context.
func WithManager(ctx context.Context, m *Manager) context.Context {
	return context.WithValue(ctx, contextKey{}, m)
}

// ManagerFromContext returns the manager of the current unit of work.
func ManagerFromContext(ctx context.Context) (*Manager, bool) {
	if ctx == nil {
		return nil, false
	}
	m, ok := ctx.Value(contextKey{}).(*Manager)
	return m, ok && m != nil
}

// Bind starts a new unit of work bound to t. The returned release func clears
// the binding and must be deferred by the caller; it is safe to call twice.
func Bind(ctx context.Context, t *Tenant) (context.Context, func()) {
	m := NewManager()
	m.Set(t)
	return WithManager(ctx, m), m.Forget
}

// WithTenant returns a context bound to t. Use Bind at unit-of-work entry
// points where the binding must be released.
func WithTenant(ctx context.Context, t *Tenant) context.Context {
	ctx, _ = Bind(ctx, t)
	return ctx
}

// FromContext returns the currently bound tenant.
func FromContext(ctx context.Context) (*Tenant, bool) {
	m, ok := ManagerFromContext(ctx)
	if !ok {
		return nil, false
	}
	t := m.Get()
	return t, t != nil
}

// IDFromContext provides fast access to the bound tenant id.
func IDFromContext(ctx context.Context) (int64, bool) {
	t, ok := FromContext(ctx)
	if !ok {
		return 0, false
	}
	return t.ID, true
}

// MustFromContext panics if no tenant is bound. Use only in handlers
// mounted behind a middleware that requires a tenant.
func MustFromContext(ctx context.Context) *Tenant {
	t, ok := FromContext(ctx)
	if !ok {
		panic("tenant: no tenant in context")
	}
	return t
}

// LoggerExtractor returns a function that enriches log records with the bound tenant.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		t, ok := FromContext(ctx)
		if !ok {
			return slog.Attr{}, false
		}
		return slog.String("tenant_id", strconv.FormatInt(t.ID, 10)), true
	}
}
