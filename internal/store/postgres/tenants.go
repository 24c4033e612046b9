package postgres

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/churchly/backend/internal/store"
	"github.com/churchly/backend/pkg/pg"
	"github.com/churchly/backend/pkg/tenant"
)

const tenantColumns = `id, uuid, slug, name, status, plan_id, created_at, updated_at`

// TenantRepo implements store.TenantRepository and tenant.Provider.
type TenantRepo struct {
	db pg.DBTX
}

func NewTenantRepo(db pg.DBTX) *TenantRepo {
	return &TenantRepo{db: db}
}

func scanTenant(row pgx.Row) (*tenant.Tenant, error) {
	var t tenant.Tenant
	err := row.Scan(&t.ID, &t.UUID, &t.Slug, &t.Name, &t.Status, &t.PlanID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// lookup maps a missing row to tenant.ErrTenantNotFound, as tenant.Provider requires.
func (r *TenantRepo) lookup(ctx context.Context, op, where string, arg any) (*tenant.Tenant, error) {
	t, err := scanTenant(r.db.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE `+where, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, tenant.ErrTenantNotFound
	}
	if err != nil {
		return nil, wrap(op, err)
	}
	return t, nil
}

func (r *TenantRepo) GetByID(ctx context.Context, id int64) (*tenant.Tenant, error) {
	return r.lookup(ctx, "tenantRepo.GetByID", `id = $1`, id)
}

func (r *TenantRepo) GetBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	return r.lookup(ctx, "tenantRepo.GetBySlug", `slug = $1`, slug)
}

// GetByIdentifier tries the numeric id, then the uuid, then the slug.
func (r *TenantRepo) GetByIdentifier(ctx context.Context, identifier string) (*tenant.Tenant, error) {
	if id, err := strconv.ParseInt(identifier, 10, 64); err == nil {
		t, err := r.GetByID(ctx, id)
		if !errors.Is(err, tenant.ErrTenantNotFound) {
			return t, err
		}
	}
	if uid, err := uuid.Parse(identifier); err == nil {
		return r.lookup(ctx, "tenantRepo.GetByIdentifier", `uuid = $1`, uid)
	}
	return r.GetBySlug(ctx, identifier)
}

func (r *TenantRepo) GetByHostname(ctx context.Context, hostname string) (*tenant.Tenant, error) {
	t, err := scanTenant(r.db.QueryRow(ctx,
		`SELECT t.id, t.uuid, t.slug, t.name, t.status, t.plan_id, t.created_at, t.updated_at
		 FROM tenants t JOIN tenant_domains d ON d.tenant_id = t.id
		 WHERE d.hostname = $1`,
		tenant.NormalizeHostname(hostname),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, tenant.ErrTenantNotFound
	}
	if err != nil {
		return nil, wrap("tenantRepo.GetByHostname", err)
	}
	return t, nil
}

func (r *TenantRepo) Create(ctx context.Context, t *tenant.Tenant) error {
	if t.UUID == uuid.Nil {
		t.UUID = uuid.New()
	}
	if t.Status == "" {
		t.Status = tenant.StatusActive
	}

	err := r.db.QueryRow(ctx,
		`INSERT INTO tenants (uuid, slug, name, status, plan_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		t.UUID, t.Slug, t.Name, t.Status, t.PlanID,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	return wrap("tenantRepo.Create", err)
}

func (r *TenantRepo) UpdateStatus(ctx context.Context, id int64, status tenant.Status) (*tenant.Tenant, error) {
	t, err := scanTenant(r.db.QueryRow(ctx,
		`UPDATE tenants SET status = $1, updated_at = now()
		 WHERE id = $2
		 RETURNING `+tenantColumns,
		status, id,
	))
	if err != nil {
		return nil, wrap("tenantRepo.UpdateStatus", err)
	}
	return t, nil
}

func (r *TenantRepo) ListActive(ctx context.Context) ([]*tenant.Tenant, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE status = $1 ORDER BY id`,
		tenant.StatusActive,
	)
	if err != nil {
		return nil, wrap("tenantRepo.ListActive", err)
	}
	defer rows.Close()

	var tenants []*tenant.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, wrap("tenantRepo.ListActive: scan", err)
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("tenantRepo.ListActive: rows", err)
	}
	return tenants, nil
}

var _ store.TenantRepository = (*TenantRepo)(nil)
