package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/churchly/backend/internal/store"
	"github.com/churchly/backend/pkg/pg"
	"github.com/churchly/backend/pkg/tenant"
	"github.com/churchly/backend/pkg/tenantscope"
)

const domainColumns = `id, tenant_id, hostname, verification_token, is_primary, verified_at, created_at`

// DomainRepo implements store.DomainRepository. Callers name the owning
// tenant; every statement filters by it through scope.ForTenant.
type DomainRepo struct {
	db    DB
	scope tenantscope.Scope
}

func NewDomainRepo(db DB, scope tenantscope.Scope) *DomainRepo {
	return &DomainRepo{db: db, scope: scope}
}

// where renders the filter for tenantID, which must be a real tenant.
func (r *DomainRepo) where(ctx context.Context, tenantID int64, conds ...tenantscope.Cond) (string, []any, error) {
	return r.scope.ForTenant(tenantID).Where(ctx, conds...)
}

func scanDomain(row pgx.Row) (*tenant.Domain, error) {
	var d tenant.Domain
	err := row.Scan(&d.ID, &d.TenantID, &d.Hostname, &d.VerificationToken, &d.Primary, &d.VerifiedAt, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DomainRepo) Add(ctx context.Context, d *tenant.Domain) error {
	if _, _, err := r.scope.ForTenant(d.TenantID).Filter(ctx); err != nil {
		return wrap("domainRepo.Add", err)
	}
	err := r.db.QueryRow(ctx,
		`INSERT INTO tenant_domains (tenant_id, hostname, verification_token, is_primary)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		d.TenantID, d.Hostname, d.VerificationToken, d.Primary,
	).Scan(&d.ID, &d.CreatedAt)
	return wrap("domainRepo.Add", err)
}

func (r *DomainRepo) Get(ctx context.Context, tenantID, domainID int64) (*tenant.Domain, error) {
	where, args, err := r.where(ctx, tenantID, tenantscope.Eq("id", domainID))
	if err != nil {
		return nil, wrap("domainRepo.Get", err)
	}
	d, err := scanDomain(r.db.QueryRow(ctx, `SELECT `+domainColumns+` FROM tenant_domains`+where, args...))
	if err != nil {
		return nil, wrap("domainRepo.Get", err)
	}
	return d, nil
}

// SetPrimary clears the current primary before setting the new one, so the
// partial unique index on (tenant_id) WHERE is_primary never sees two rows.
func (r *DomainRepo) SetPrimary(ctx context.Context, tenantID, domainID int64) (*tenant.Domain, error) {
	others, otherArgs, err := r.where(ctx, tenantID, tenantscope.Expr("is_primary"), tenantscope.Expr("id <> ?", domainID))
	if err != nil {
		return nil, wrap("domainRepo.SetPrimary", err)
	}
	target, targetArgs, err := r.where(ctx, tenantID, tenantscope.Eq("id", domainID))
	if err != nil {
		return nil, wrap("domainRepo.SetPrimary", err)
	}

	var out *tenant.Domain
	err = pg.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE tenant_domains SET is_primary = false`+others, otherArgs...); err != nil {
			return err
		}

		d, err := scanDomain(tx.QueryRow(ctx,
			`UPDATE tenant_domains SET is_primary = true`+target+` RETURNING `+domainColumns,
			targetArgs...,
		))
		if err != nil {
			return err
		}
		out = d
		return nil
	})
	if err != nil {
		return nil, wrap("domainRepo.SetPrimary", err)
	}
	return out, nil
}

func (r *DomainRepo) MarkVerified(ctx context.Context, tenantID, domainID int64) (*tenant.Domain, error) {
	where, args, err := r.where(ctx, tenantID, tenantscope.Eq("id", domainID))
	if err != nil {
		return nil, wrap("domainRepo.MarkVerified", err)
	}
	d, err := scanDomain(r.db.QueryRow(ctx,
		`UPDATE tenant_domains SET verified_at = COALESCE(verified_at, now())`+where+` RETURNING `+domainColumns,
		args...,
	))
	if err != nil {
		return nil, wrap("domainRepo.MarkVerified", err)
	}
	return d, nil
}

func (r *DomainRepo) ListByTenant(ctx context.Context, tenantID int64) ([]*tenant.Domain, error) {
	where, args, err := r.where(ctx, tenantID)
	if err != nil {
		return nil, wrap("domainRepo.ListByTenant", err)
	}
	rows, err := r.db.Query(ctx, `SELECT `+domainColumns+` FROM tenant_domains`+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, wrap("domainRepo.ListByTenant", err)
	}
	defer rows.Close()

	var domains []*tenant.Domain
	for rows.Next() {
		d, err := scanDomain(rows)
		if err != nil {
			return nil, wrap("domainRepo.ListByTenant: scan", err)
		}
		domains = append(domains, d)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("domainRepo.ListByTenant: rows", err)
	}
	return domains, nil
}

var _ store.DomainRepository = (*DomainRepo)(nil)
