package limits

import (
	"log/slog"

	"github.com/churchly/backend/pkg/feature"
)

// Option configures a Gate.
type Option func(*Gate)

// WithOverrides sets the per-tenant override store.
func WithOverrides(store OverrideStore) Option {
	return func(g *Gate) {
		g.overrides = store
	}
}

// WithFlags lets rollout flags grant features a plan does not include.
func WithFlags(flags feature.Provider) Option {
	return func(g *Gate) {
		g.flags = flags
	}
}

// WithCounters registers the authoritative counters used by SyncUsage.
func WithCounters(counters CounterRegistry) Option {
	return func(g *Gate) {
		if counters != nil {
			g.counters = counters
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}
