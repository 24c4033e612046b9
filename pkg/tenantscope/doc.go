// Package tenantscope applies tenant isolation at the data access layer.
//
// Every tenant-scoped entity type is read and written through a Scope. On
// reads the Scope contributes a filter on the tenant foreign key column
// (tenant_id unless configured otherwise) using the tenant bound to the
// context by pkg/tenant. On writes Stamp fills an empty foreign key from
// the binding and leaves an explicitly set one untouched.
//
// Scopes are strict by default: a scoped statement without a bound tenant
// fails with ErrNoTenantBound instead of silently running across all
// tenants. Cross-tenant access is always requested explicitly:
//
//	// filter by a specific tenant, ignoring the ambient binding
//	members.ForTenant(42).List(ctx)
//
//	// no filter at all; logged at WARN with the reason
//	members.Unscoped("nightly export").List(ctx)
//
// Repositories render the filter with Where or WhereFrom, which produce a
// WHERE clause with numbered placeholders for pgx:
//
//	where, args, err := scope.Where(ctx, tenantscope.Eq("id", id))
//	row := pool.QueryRow(ctx, "SELECT ... FROM members"+where, args...)
//
// MemoryTable provides the same semantics over an in-memory slice.
package tenantscope
