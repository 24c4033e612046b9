package tenant

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status describes the lifecycle state of a tenant.
// Tenants are never deleted in normal operation, they are soft-disabled.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusDisabled  Status = "disabled"
)

// Tenant is the identity record of one isolated organization.
type Tenant struct {
	ID        int64     `json:"id"`
	UUID      uuid.UUID `json:"uuid"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	PlanID    string    `json:"plan_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Active reports whether the tenant may serve traffic.
func (t *Tenant) Active() bool {
	return t != nil && t.Status == StatusActive
}

// Domain maps a hostname to exactly one tenant.
type Domain struct {
	ID                int64      `json:"id"`
	TenantID          int64      `json:"tenant_id"`
	Hostname          string     `json:"hostname"`
	VerificationToken string     `json:"-"`
	Primary           bool       `json:"primary"`
	VerifiedAt        *time.Time `json:"verified_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// Verified reports whether the domain ownership check has passed.
func (d *Domain) Verified() bool {
	return d != nil && d.VerifiedAt != nil
}

// Provider loads tenants from a data source.
// Every lookup returns ErrTenantNotFound when nothing matches.
type Provider interface {
	// GetByID loads a tenant by its numeric primary key.
	GetByID(ctx context.Context, id int64) (*Tenant, error)

	// GetByIdentifier loads a tenant whose numeric id, uuid or slug equals identifier.
	GetByIdentifier(ctx context.Context, identifier string) (*Tenant, error)

	// GetBySlug loads a tenant by its unique slug.
	GetBySlug(ctx context.Context, slug string) (*Tenant, error)

	// GetByHostname loads the tenant owning a custom domain.
	GetByHostname(ctx context.Context, hostname string) (*Tenant, error)
}

// NormalizeHostname lowercases a host and strips the port and trailing dot.
func NormalizeHostname(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		return ""
	}

	// Bracketed IPv6 literal, optionally with port
	if strings.HasPrefix(host, "[") {
		if end := strings.Index(host, "]"); end != -1 {
			return strings.ToLower(host[1:end])
		}
		return ""
	}

	if idx := strings.LastIndex(host, ":"); idx != -1 && strings.Count(host, ":") == 1 {
		host = host[:idx]
	}

	return strings.ToLower(strings.TrimSuffix(host, "."))
}
