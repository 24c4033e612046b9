package store

import (
	"context"

	"github.com/churchly/backend/pkg/tenant"
)

// TenantRepository persists tenants and their domains. Tenants are not
// tenant-scoped; every method is platform level.
type TenantRepository interface {
	tenant.Provider

	// Create inserts t and fills its ID, UUID and timestamps.
	// A taken slug fails with ErrConflict.
	Create(ctx context.Context, t *tenant.Tenant) error

	// UpdateStatus changes the lifecycle status and returns the updated tenant.
	UpdateStatus(ctx context.Context, id int64, status tenant.Status) (*tenant.Tenant, error)

	// ListActive returns every active tenant ordered by id.
	ListActive(ctx context.Context) ([]*tenant.Tenant, error)
}

// DomainRepository persists custom domains.
type DomainRepository interface {
	// Add inserts d and fills its ID and CreatedAt.
	// A hostname already mapped to any tenant fails with ErrConflict.
	Add(ctx context.Context, d *tenant.Domain) error

	// SetPrimary marks the domain as primary and clears the previous
	// primary of the same tenant in one transaction.
	SetPrimary(ctx context.Context, tenantID, domainID int64) (*tenant.Domain, error)

	// Get loads one domain of a tenant.
	Get(ctx context.Context, tenantID, domainID int64) (*tenant.Domain, error)

	// MarkVerified records the ownership check time. Already verified
	// domains keep their original time.
	MarkVerified(ctx context.Context, tenantID, domainID int64) (*tenant.Domain, error)

	// ListByTenant returns the domains of a tenant ordered by id.
	ListByTenant(ctx context.Context, tenantID int64) ([]*tenant.Domain, error)
}

// MemberRepository reads and writes members through a tenant scope.
type MemberRepository interface {
	Create(ctx context.Context, m *Member) error
	Get(ctx context.Context, id int64) (*Member, error)
	List(ctx context.Context, filter MemberFilter) ([]*Member, error)
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)

	// ForTenant returns a repository filtered by id regardless of the binding.
	ForTenant(id int64) MemberRepository

	// Unscoped returns a repository without tenant filter. Use is logged.
	Unscoped(reason string) MemberRepository
}

// FamilyRepository reads and writes families through a tenant scope.
type FamilyRepository interface {
	Create(ctx context.Context, f *Family) error
	List(ctx context.Context) ([]*Family, error)
	Count(ctx context.Context) (int64, error)
	ForTenant(id int64) FamilyRepository
}
