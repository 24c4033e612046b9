package postgres

import (
	"embed"
	"fmt"

	"github.com/churchly/backend/internal/store"
	"github.com/churchly/backend/pkg/pg"
	"github.com/churchly/backend/pkg/tenantscope"
)

// Migrations holds the goose migrations of the schema.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations.
const MigrationsDir = "migrations"

// DB is satisfied by *pgxpool.Pool.
type DB interface {
	pg.DBTX
	pg.TxBeginner
}

// Store groups the repositories sharing one connection pool.
type Store struct {
	db        DB
	tenants   *TenantRepo
	domains   *DomainRepo
	members   *MemberRepo
	families  *FamilyRepo
	tasks     *TaskRepo
	overrides *OverrideRepo
	catalog   *CatalogRepo
	audit     *AuditRepo
}

// New creates a Store. scope guards every tenant-scoped repository.
func New(db DB, scope tenantscope.Scope) *Store {
	return &Store{
		db:        db,
		tenants:   NewTenantRepo(db),
		domains:   NewDomainRepo(db, scope),
		members:   NewMemberRepo(db, scope),
		families:  NewFamilyRepo(db, scope),
		tasks:     NewTaskRepo(db),
		overrides: NewOverrideRepo(db, scope),
		catalog:   NewCatalogRepo(db),
		audit:     NewAuditRepo(db),
	}
}

func (s *Store) Tenants() *TenantRepo     { return s.tenants }
func (s *Store) Domains() *DomainRepo     { return s.domains }
func (s *Store) Members() *MemberRepo     { return s.members }
func (s *Store) Families() *FamilyRepo    { return s.families }
func (s *Store) Tasks() *TaskRepo         { return s.tasks }
func (s *Store) Overrides() *OverrideRepo { return s.overrides }
func (s *Store) Catalog() *CatalogRepo    { return s.catalog }
func (s *Store) Audit() *AuditRepo        { return s.audit }

// wrap maps driver errors to store errors and prefixes op.
func wrap(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case pg.IsNotFoundError(err):
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	case pg.IsForeignKeyViolationError(err):
		return fmt.Errorf("%s: %w: %w", op, store.ErrNotFound, err)
	case pg.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w: %w", op, store.ErrConflict, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
