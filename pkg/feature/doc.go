// Package feature implements rollout flags evaluated per tenant.
//
// A flag is either off, on for everyone, or on for the tenants its
// Strategy selects. TenantStrategy reads the tenant bound to the context
// (see tenant.FromContext) and matches it against allow and deny lists,
// slugs, plans, or a stable percentage bucket derived from the tenant id.
//
//	provider, _ := feature.NewMemoryProvider(&feature.Flag{
//		Name:    "online_giving_v2",
//		Enabled: true,
//		Strategy: feature.NewTenantStrategy(feature.TenantCriteria{
//			Plans: []string{"growth"},
//		}),
//	})
//	on, err := provider.IsEnabled(ctx, "online_giving_v2")
//
// The limits gate consults the provider after per-tenant overrides and plan
// features, so flags only ever widen what a tenant's plan grants.
package feature
