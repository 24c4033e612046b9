package feature

import (
	"context"
	"time"
)

// Flag is a rollout switch evaluated against the tenant bound to the context.
type Flag struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Enabled     bool      `json:"enabled"`
	Strategy    Strategy  `json:"-"`
	Tags        []string  `json:"tags,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitzero"`
	UpdatedAt   time.Time `json:"updated_at,omitzero"`
}

// Strategy decides whether an enabled flag applies to the current context.
type Strategy interface {
	Evaluate(ctx context.Context) (bool, error)
}

// TenantCriteria selects tenants for a rollout.
// DenyList beats every other criterion; AllowList beats plans and percentage.
type TenantCriteria struct {
	AllowList  []int64  `json:"allow_list,omitempty" yaml:"tenants,omitempty"`
	DenyList   []int64  `json:"deny_list,omitempty" yaml:"deny,omitempty"`
	Slugs      []string `json:"slugs,omitempty" yaml:"slugs,omitempty"`
	Plans      []string `json:"plans,omitempty" yaml:"plans,omitempty"`
	Percentage *int     `json:"percentage,omitempty" yaml:"percentage,omitempty"`
}

// Provider stores flags and evaluates them.
type Provider interface {
	// IsEnabled returns false and ErrFlagNotFound for unknown flags.
	IsEnabled(ctx context.Context, flagName string) (bool, error)

	// GetFlag returns a copy of the flag or ErrFlagNotFound.
	GetFlag(ctx context.Context, flagName string) (*Flag, error)

	// ListFlags returns every flag carrying at least one of tags, or all flags.
	ListFlags(ctx context.Context, tags ...string) ([]*Flag, error)

	CreateFlag(ctx context.Context, flag *Flag) error
	UpdateFlag(ctx context.Context, flag *Flag) error
	DeleteFlag(ctx context.Context, flagName string) error

	Close() error
}
