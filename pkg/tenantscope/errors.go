package tenantscope

import "errors"

var (
	// ErrNoTenantBound is returned by a strict scope when a scoped statement
	// runs without a bound tenant and without an explicit bypass.
	ErrNoTenantBound = errors.New("tenantscope: no tenant bound")

	// ErrMissingReason is returned when Unscoped is used without a reason.
	ErrMissingReason = errors.New("tenantscope: unscoped access requires a reason")

	// ErrInvalidTenantID is returned by ForTenant scopes with a non-positive id.
	ErrInvalidTenantID = errors.New("tenantscope: invalid tenant id")
)
