package tenantscope_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/churchly/backend/pkg/tenantscope"
)

func TestWhere(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		scope   tenantscope.Scope
		ctx     context.Context
		offset  int
		conds   []tenantscope.Cond
		clause  string
		args    []any
		wantErr error
	}{
		{
			name:   "tenant filter only",
			scope:  tenantscope.New(),
			ctx:    bound(4),
			clause: " WHERE tenant_id = $1",
			args:   []any{int64(4)},
		},
		{
			name:   "tenant filter first",
			scope:  tenantscope.New(),
			ctx:    bound(4),
			conds:  []tenantscope.Cond{tenantscope.Eq("id", int64(10)), tenantscope.Expr("name ILIKE ? OR email ILIKE ?", "%a%", "%a%")},
			clause: " WHERE tenant_id = $1 AND id = $2 AND (name ILIKE $3 OR email ILIKE $4)",
			args:   []any{int64(4), int64(10), "%a%", "%a%"},
		},
		{
			name:   "custom column with offset",
			scope:  tenantscope.New(tenantscope.WithColumn("m.tenant_id")),
			ctx:    bound(4),
			offset: 2,
			conds:  []tenantscope.Cond{tenantscope.Eq("m.id", 1)},
			clause: " WHERE m.tenant_id = $3 AND m.id = $4",
			args:   []any{int64(4), 1},
		},
		{
			name:   "for tenant",
			scope:  tenantscope.New().ForTenant(8),
			ctx:    bound(4),
			clause: " WHERE tenant_id = $1",
			args:   []any{int64(8)},
		},
		{
			name:   "unscoped without conditions",
			scope:  tenantscope.New().Unscoped("all tenants"),
			ctx:    context.Background(),
			clause: "",
		},
		{
			name:   "unscoped with conditions",
			scope:  tenantscope.New().Unscoped("all tenants"),
			ctx:    context.Background(),
			conds:  []tenantscope.Cond{tenantscope.Eq("status", "active")},
			clause: " WHERE status = $1",
			args:   []any{"active"},
		},
		{
			name:    "strict without binding",
			scope:   tenantscope.New(),
			ctx:     context.Background(),
			wantErr: tenantscope.ErrNoTenantBound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			clause, args, err := tt.scope.WhereFrom(tt.ctx, tt.offset, tt.conds...)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.clause, clause)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestWherePlaceholderMismatch(t *testing.T) {
	t.Parallel()

	_, _, err := tenantscope.New().Where(bound(1), tenantscope.Expr("a = ? AND b = ?", 1))
	assert.Error(t, err)
}
