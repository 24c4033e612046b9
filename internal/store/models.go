package store

import (
	"time"

	"github.com/churchly/backend/pkg/tenantscope"
)

// Member is a person registered with a church.
type Member struct {
	tenantscope.Owner
	ID        int64     `json:"id"`
	FamilyID  *int64    `json:"family_id,omitempty"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Family groups members of one household.
type Family struct {
	tenantscope.Owner
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// MemberFilter narrows member listings.
type MemberFilter struct {
	FamilyID *int64
	Limit    int
	Offset   int
}

// DefaultPageSize caps listings without an explicit limit.
const DefaultPageSize = 100

// PageSize returns the effective limit.
func (f MemberFilter) PageSize() int {
	if f.Limit <= 0 || f.Limit > DefaultPageSize {
		return DefaultPageSize
	}
	return f.Limit
}
