package tenant_test

import (
	"time"

	"github.com/google/uuid"

	"github.com/churchly/backend/pkg/tenant"
)

func createTestTenant(id int64, slug string, active bool) *tenant.Tenant {
	status := tenant.StatusActive
	if !active {
		status = tenant.StatusSuspended
	}
	return &tenant.Tenant{
		ID:        id,
		UUID:      uuid.New(),
		Slug:      slug,
		Name:      slug + " church",
		Status:    status,
		PlanID:    "free",
		CreatedAt: time.Now(),
	}
}
