// Package tenant resolves which tenant a request belongs to and holds that
// binding for exactly one unit of work.
//
// # Architecture
//
// The package is built around four pieces:
//
// 1. Resolvers derive a tenant from an HTTP request: explicit headers, custom
// domains and subdomains of a central domain, tried in that order.
// 2. Providers load tenants from storage; CachedProvider adds an in-memory or
// Redis cache in front of them.
// 3. Manager holds the current tenant of one request or one job execution.
// 4. Middleware orchestrates resolve, bind, serve and unbind.
//
// # Usage
//
//	provider := tenant.NewCachedProvider(store, tenant.NewInMemoryCache(), 5*time.Minute, logger)
//	resolver := tenant.NewResolver(cfg, provider)
//
//	r := chi.NewRouter()
//	r.Group(func(r chi.Router) {
//		r.Use(tenant.Middleware(resolver))
//		r.Get("/api/members", listMembers)
//	})
//
//	func listMembers(w http.ResponseWriter, r *http.Request) {
//		t := tenant.MustFromContext(r.Context())
//		// ...
//	}
//
// # Binding lifecycle
//
// Bind creates a new Manager for every unit of work and returns a release
// func. The Manager is stored in the context by pointer, so once released no
// copy of the context can observe the tenant any more. Nested work for another
// tenant uses Manager.Within, which restores the previous binding afterwards.
//
// # Error Handling
//
//   - ErrTenantNotFound: nothing resolved and the route requires a tenant (404)
//   - ErrInactiveTenant: tenant exists but is suspended or disabled (403)
//   - ErrInvalidIdentifier: malformed header value (400)
//   - ErrNoTenantInContext: RequireTenant found no binding
package tenant
