package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/churchly/backend/pkg/limits"
	"github.com/churchly/backend/pkg/pg"
	"github.com/churchly/backend/pkg/tenantscope"
)

// OverrideRepo stores per-tenant plan overrides in tenant_features. The
// gate asks on behalf of a named tenant, so reads filter through
// scope.ForTenant.
type OverrideRepo struct {
	db    pg.DBTX
	scope tenantscope.Scope
}

func NewOverrideRepo(db pg.DBTX, scope tenantscope.Scope) *OverrideRepo {
	return &OverrideRepo{db: db, scope: scope}
}

// Get returns nil, nil when the tenant has no override for key.
func (r *OverrideRepo) Get(ctx context.Context, tenantID int64, key string) (*limits.Override, error) {
	where, args, err := r.scope.ForTenant(tenantID).Where(ctx, tenantscope.Eq("key", key))
	if err != nil {
		return nil, wrap("overrideRepo.Get", err)
	}

	o := limits.Override{TenantID: tenantID, Key: key}
	err = r.db.QueryRow(ctx, `SELECT enabled, limit_value FROM tenant_features`+where, args...).Scan(&o.Enabled, &o.Limit)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("overrideRepo.Get", err)
	}
	return &o, nil
}

// Put creates or replaces the override for o.TenantID and o.Key.
func (r *OverrideRepo) Put(ctx context.Context, o limits.Override) error {
	if _, _, err := r.scope.ForTenant(o.TenantID).Filter(ctx); err != nil {
		return wrap("overrideRepo.Put", err)
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO tenant_features (tenant_id, key, enabled, limit_value) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (tenant_id, key) DO UPDATE SET
		     enabled = EXCLUDED.enabled, limit_value = EXCLUDED.limit_value, updated_at = now()`,
		o.TenantID, o.Key, o.Enabled, o.Limit,
	)
	return wrap("overrideRepo.Put", err)
}

var (
	_ limits.OverrideStore  = (*OverrideRepo)(nil)
	_ limits.OverrideWriter = (*OverrideRepo)(nil)
)
