package registry

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
)

// Store persists reconciled catalog rows.
type Store interface {
	Keys(ctx context.Context, kind Kind) ([]string, error)
	Upsert(ctx context.Context, kind Kind, entries []Entry) error
	Delete(ctx context.Context, kind Kind, keys []string) error
}

// Result counts what a reconciliation changed per kind.
type Result struct {
	Upserted map[Kind]int
	Pruned   map[Kind][]string
}

type options struct {
	prune  bool
	logger *slog.Logger
}

// Option configures Reconcile.
type Option func(*options)

// WithoutPrune keeps rows that are no longer declared.
func WithoutPrune() Option {
	return func(o *options) {
		o.prune = false
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Reconcile upserts every declared permission and feature, then deletes
// persisted rows the catalog no longer declares.
func Reconcile(ctx context.Context, store Store, c *Catalog, opts ...Option) (Result, error) {
	o := options{prune: true, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	res := Result{Upserted: make(map[Kind]int), Pruned: make(map[Kind][]string)}
	for _, kind := range []Kind{KindPermission, KindFeature} {
		entries := c.Entries(kind)

		existing, err := store.Keys(ctx, kind)
		if err != nil {
			return res, fmt.Errorf("list %s rows: %w", kind, err)
		}

		if len(entries) > 0 {
			if err := store.Upsert(ctx, kind, entries); err != nil {
				return res, fmt.Errorf("upsert %s rows: %w", kind, err)
			}
		}
		res.Upserted[kind] = len(entries)

		if !o.prune {
			continue
		}

		stale := staleKeys(existing, entries)
		if len(stale) == 0 {
			continue
		}
		if err := store.Delete(ctx, kind, stale); err != nil {
			return res, fmt.Errorf("prune %s rows: %w", kind, err)
		}
		res.Pruned[kind] = stale
	}

	o.logger.InfoContext(ctx, "catalog reconciled",
		slog.Int("permissions", res.Upserted[KindPermission]),
		slog.Int("features", res.Upserted[KindFeature]),
		slog.Int("pruned", len(res.Pruned[KindPermission])+len(res.Pruned[KindFeature])))

	return res, nil
}

func staleKeys(existing []string, declared []Entry) []string {
	keep := make(map[string]bool, len(declared))
	for _, e := range declared {
		keep[e.Key] = true
	}

	var stale []string
	for _, key := range existing {
		if !keep[key] {
			stale = append(stale, key)
		}
	}
	slices.Sort(stale)
	return stale
}
