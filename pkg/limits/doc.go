// Package limits gates tenant operations on plan limits and features.
//
// A Gate combines three inputs for the tenant bound to the context: the
// tenant's plan (loaded from a Source), per-tenant overrides (OverrideStore)
// and usage counters (UsageStore). Rollout flags from the feature package
// can additionally grant features.
//
//	gate, err := limits.NewGate(ctx, limits.NewYAMLSource("catalog.yaml"),
//		limits.NewRedisUsageStore(rdb, ""),
//		limits.WithOverrides(overrides),
//	)
//
//	if err := gate.Acquire(ctx, nil, limits.ResourceMembers); err != nil {
//		return err // wraps ErrLimitExceeded or ErrFeatureDisabled
//	}
//	if err := repo.Create(ctx, m); err != nil {
//		_ = gate.ReleaseUsage(ctx, nil, limits.ResourceMembers)
//		return err
//	}
//
// Limit semantics: a missing limit allows, 0 always denies and Unlimited (-1)
// never denies. RecordUsage and ReleaseUsage must pair with real creates and
// deletes; releasing below zero returns ErrUsageUnderflow. SyncUsage resets
// counters from the registered CounterFuncs to repair drift.
package limits
