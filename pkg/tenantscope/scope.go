package tenantscope

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/churchly/backend/pkg/audit"
	"github.com/churchly/backend/pkg/logger"
	"github.com/churchly/backend/pkg/tenant"
)

// DefaultColumn is the conventional tenant foreign key column.
const DefaultColumn = "tenant_id"

type mode uint8

const (
	modeAmbient mode = iota
	modeExplicit
	modeUnscoped
)

// Scope shapes reads and writes of one tenant-scoped entity type.
// The zero mode filters by the tenant bound to the context; ForTenant and
// Unscoped derive scopes that replace that behaviour explicitly.
// Scope is a value type: deriving never mutates the receiver.
type Scope struct {
	column   string
	strict   bool
	logger   *slog.Logger
	audit    *audit.Logger
	mode     mode
	tenantID int64
	reason   string
}

// Option configures a Scope.
type Option func(*Scope)

// WithColumn overrides the tenant foreign key column.
func WithColumn(column string) Option {
	return func(s *Scope) {
		if column = strings.TrimSpace(column); column != "" {
			s.column = column
		}
	}
}

// WithStrict controls what happens when no tenant is bound.
// Strict scopes fail with ErrNoTenantBound, lenient scopes run unfiltered.
func WithStrict(strict bool) Option {
	return func(s *Scope) {
		s.strict = strict
	}
}

// WithLogger sets the logger used to audit unscoped access.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scope) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAudit records every unscoped access as a "tenant_scope.bypassed" event.
func WithAudit(l *audit.Logger) Option {
	return func(s *Scope) {
		s.audit = l
	}
}

// New creates a strict Scope on DefaultColumn.
func New(opts ...Option) Scope {
	s := Scope{
		column: DefaultColumn,
		strict: true,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Column returns the tenant foreign key column.
func (s Scope) Column() string {
	return s.column
}

// ForTenant returns a scope that filters by id regardless of the ambient binding.
func (s Scope) ForTenant(id int64) Scope {
	s.mode = modeExplicit
	s.tenantID = id
	s.reason = ""
	return s
}

// Unscoped returns a scope that applies no tenant filter. Every use is
// logged at WARN with reason.
func (s Scope) Unscoped(reason string) Scope {
	s.mode = modeUnscoped
	s.tenantID = 0
	s.reason = strings.TrimSpace(reason)
	return s
}

// IsUnscoped reports whether s was derived with Unscoped.
func (s Scope) IsUnscoped() bool {
	return s.mode == modeUnscoped
}

// Filter returns the tenant id the statement must be filtered by.
// filtered is false only for unscoped access and lenient scopes without a binding.
func (s Scope) Filter(ctx context.Context) (id int64, filtered bool, err error) {
	switch s.mode {
	case modeExplicit:
		if s.tenantID <= 0 {
			return 0, false, fmt.Errorf("%w: %d", ErrInvalidTenantID, s.tenantID)
		}
		return s.tenantID, true, nil

	case modeUnscoped:
		if s.reason == "" {
			return 0, false, ErrMissingReason
		}
		s.logger.WarnContext(ctx, "tenant scope bypassed",
			slog.String("column", s.column),
			slog.String("reason", s.reason))
		s.record(ctx)
		return 0, false, nil
	}

	if id, ok := tenant.IDFromContext(ctx); ok {
		return id, true, nil
	}
	if s.strict {
		return 0, false, ErrNoTenantBound
	}
	return 0, false, nil
}

// Stamp fills the tenant foreign key of a new row. An explicitly set owner
// is never overwritten. Rows without an owner cannot be stamped by unscoped
// access or without a binding.
func (s Scope) Stamp(ctx context.Context, row Owned) error {
	if row.OwnerID() != 0 {
		return nil
	}

	switch s.mode {
	case modeExplicit:
		if s.tenantID <= 0 {
			return fmt.Errorf("%w: %d", ErrInvalidTenantID, s.tenantID)
		}
		row.SetOwnerID(s.tenantID)
		return nil
	case modeUnscoped:
		return ErrNoTenantBound
	}

	id, ok := tenant.IDFromContext(ctx)
	if !ok {
		return ErrNoTenantBound
	}
	row.SetOwnerID(id)
	return nil
}

// Allows reports whether a row owned by ownerID is visible through s.
func (s Scope) Allows(ctx context.Context, ownerID int64) (bool, error) {
	id, filtered, err := s.Filter(ctx)
	if err != nil {
		return false, err
	}
	return !filtered || id == ownerID, nil
}

func (s Scope) record(ctx context.Context) {
	if s.audit == nil {
		return
	}
	err := s.audit.Log(ctx, "tenant_scope.bypassed",
		audit.WithMetadata("column", s.column),
		audit.WithMetadata("reason", s.reason))
	if err != nil {
		s.logger.WarnContext(ctx, "failed to audit scope bypass", logger.Error(err))
	}
}
