package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/churchly/backend/internal/store"
	"github.com/churchly/backend/pkg/pg"
	"github.com/churchly/backend/pkg/tenantscope"
)

const memberColumns = `id, tenant_id, family_id, first_name, last_name, email, created_at`

// MemberRepo implements store.MemberRepository. Every statement is
// filtered through scope.
type MemberRepo struct {
	db    pg.DBTX
	scope tenantscope.Scope
}

func NewMemberRepo(db pg.DBTX, scope tenantscope.Scope) *MemberRepo {
	return &MemberRepo{db: db, scope: scope}
}

func scanMember(row pgx.Row) (*store.Member, error) {
	var m store.Member
	err := row.Scan(&m.ID, &m.TenantID, &m.FamilyID, &m.FirstName, &m.LastName, &m.Email, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MemberRepo) Create(ctx context.Context, m *store.Member) error {
	if err := r.scope.Stamp(ctx, m); err != nil {
		return wrap("memberRepo.Create", err)
	}
	err := r.db.QueryRow(ctx,
		`INSERT INTO members (tenant_id, family_id, first_name, last_name, email)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		m.TenantID, m.FamilyID, m.FirstName, m.LastName, m.Email,
	).Scan(&m.ID, &m.CreatedAt)
	return wrap("memberRepo.Create", err)
}

func (r *MemberRepo) Get(ctx context.Context, id int64) (*store.Member, error) {
	where, args, err := r.scope.Where(ctx, tenantscope.Eq("id", id))
	if err != nil {
		return nil, wrap("memberRepo.Get", err)
	}
	m, err := scanMember(r.db.QueryRow(ctx, `SELECT `+memberColumns+` FROM members`+where, args...))
	if err != nil {
		return nil, wrap("memberRepo.Get", err)
	}
	return m, nil
}

func (r *MemberRepo) List(ctx context.Context, filter store.MemberFilter) ([]*store.Member, error) {
	var conds []tenantscope.Cond
	if filter.FamilyID != nil {
		conds = append(conds, tenantscope.Eq("family_id", *filter.FamilyID))
	}
	where, args, err := r.scope.Where(ctx, conds...)
	if err != nil {
		return nil, wrap("memberRepo.List", err)
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM members%s ORDER BY id LIMIT $%d OFFSET $%d`, memberColumns, where, n+1, n+2)
	args = append(args, filter.PageSize(), max(filter.Offset, 0))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap("memberRepo.List", err)
	}
	defer rows.Close()

	members := []*store.Member{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, wrap("memberRepo.List: scan", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("memberRepo.List: rows", err)
	}
	return members, nil
}

func (r *MemberRepo) Delete(ctx context.Context, id int64) error {
	where, args, err := r.scope.Where(ctx, tenantscope.Eq("id", id))
	if err != nil {
		return wrap("memberRepo.Delete", err)
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM members`+where, args...)
	if err != nil {
		return wrap("memberRepo.Delete", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("memberRepo.Delete: %w", store.ErrNotFound)
	}
	return nil
}

func (r *MemberRepo) Count(ctx context.Context) (int64, error) {
	where, args, err := r.scope.Where(ctx)
	if err != nil {
		return 0, wrap("memberRepo.Count", err)
	}
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM members`+where, args...).Scan(&n); err != nil {
		return 0, wrap("memberRepo.Count", err)
	}
	return n, nil
}

func (r *MemberRepo) ForTenant(id int64) store.MemberRepository {
	return &MemberRepo{db: r.db, scope: r.scope.ForTenant(id)}
}

func (r *MemberRepo) Unscoped(reason string) store.MemberRepository {
	return &MemberRepo{db: r.db, scope: r.scope.Unscoped(reason)}
}

var _ store.MemberRepository = (*MemberRepo)(nil)
