package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrStorageNil      = errors.New("audit: storage cannot be nil")
	ErrEventValidation = errors.New("audit: event validation failed")
)

// Result is the outcome of an audited action.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
	ResultError   Result = "error"
)

// Event is one audit record. TenantID is nil for platform-wide actions.
type Event struct {
	ID         uuid.UUID      `json:"id"`
	TenantID   *int64         `json:"tenant_id,omitempty"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource,omitempty"`
	ResourceID string         `json:"resource_id,omitempty"`
	Result     Result         `json:"result"`
	Error      string         `json:"error,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	IP         string         `json:"ip,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Validate checks the fields every stored event needs.
func (e *Event) Validate() error {
	if e.Action == "" {
		return fmt.Errorf("%w: action is required", ErrEventValidation)
	}
	return nil
}

// Criteria narrows Query. Zero fields do not filter; events come newest first.
type Criteria struct {
	TenantID *int64
	Action   string
	Limit    int
}

// DefaultLimit caps Query when Criteria.Limit is not positive.
const DefaultLimit = 100

// PageSize returns the effective limit.
func (c Criteria) PageSize() int {
	if c.Limit <= 0 || c.Limit > DefaultLimit {
		return DefaultLimit
	}
	return c.Limit
}

// Storage persists and queries events.
type Storage interface {
	Store(ctx context.Context, e Event) error
	Query(ctx context.Context, c Criteria) ([]Event, error)
}

// EventOption adjusts an event before it is stored.
type EventOption func(*Event)

// WithTenant names the tenant of a platform action taken without a binding.
func WithTenant(id int64) EventOption {
	return func(e *Event) {
		e.TenantID = &id
	}
}

func WithResource(resource, id string) EventOption {
	return func(e *Event) {
		e.Resource = resource
		e.ResourceID = id
	}
}

func WithMetadata(key string, value any) EventOption {
	return func(e *Event) {
		if e.Metadata == nil {
			e.Metadata = make(map[string]any)
		}
		e.Metadata[key] = value
	}
}

// WithResult overrides the result set by Log or LogError.
func WithResult(r Result) EventOption {
	return func(e *Event) {
		e.Result = r
	}
}
