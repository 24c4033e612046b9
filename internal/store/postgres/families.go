package postgres

import (
	"context"

	"github.com/churchly/backend/internal/store"
	"github.com/churchly/backend/pkg/pg"
	"github.com/churchly/backend/pkg/tenantscope"
)

// FamilyRepo implements store.FamilyRepository.
type FamilyRepo struct {
	db    pg.DBTX
	scope tenantscope.Scope
}

func NewFamilyRepo(db pg.DBTX, scope tenantscope.Scope) *FamilyRepo {
	return &FamilyRepo{db: db, scope: scope}
}

func (r *FamilyRepo) Create(ctx context.Context, f *store.Family) error {
	if err := r.scope.Stamp(ctx, f); err != nil {
		return wrap("familyRepo.Create", err)
	}
	err := r.db.QueryRow(ctx,
		`INSERT INTO families (tenant_id, name) VALUES ($1, $2) RETURNING id, created_at`,
		f.TenantID, f.Name,
	).Scan(&f.ID, &f.CreatedAt)
	return wrap("familyRepo.Create", err)
}

func (r *FamilyRepo) List(ctx context.Context) ([]*store.Family, error) {
	where, args, err := r.scope.Where(ctx)
	if err != nil {
		return nil, wrap("familyRepo.List", err)
	}
	rows, err := r.db.Query(ctx, `SELECT id, tenant_id, name, created_at FROM families`+where+` ORDER BY name, id`, args...)
	if err != nil {
		return nil, wrap("familyRepo.List", err)
	}
	defer rows.Close()

	families := []*store.Family{}
	for rows.Next() {
		var f store.Family
		if err := rows.Scan(&f.ID, &f.TenantID, &f.Name, &f.CreatedAt); err != nil {
			return nil, wrap("familyRepo.List: scan", err)
		}
		families = append(families, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("familyRepo.List: rows", err)
	}
	return families, nil
}

func (r *FamilyRepo) Count(ctx context.Context) (int64, error) {
	where, args, err := r.scope.Where(ctx)
	if err != nil {
		return 0, wrap("familyRepo.Count", err)
	}
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM families`+where, args...).Scan(&n); err != nil {
		return 0, wrap("familyRepo.Count", err)
	}
	return n, nil
}

func (r *FamilyRepo) ForTenant(id int64) store.FamilyRepository {
	return &FamilyRepo{db: r.db, scope: r.scope.ForTenant(id)}
}

var _ store.FamilyRepository = (*FamilyRepo)(nil)
