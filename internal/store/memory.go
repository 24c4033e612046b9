package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/churchly/backend/pkg/tenant"
	"github.com/churchly/backend/pkg/tenantscope"
)

// MemoryTenants is an in-memory TenantRepository and DomainRepository for
// tests and local development. Lookups are served by tenant.MemoryProvider.
type MemoryTenants struct {
	*tenant.MemoryProvider

	mu      sync.Mutex
	ids     []int64
	nextID  int64
	domains []*tenant.Domain
}

// NewMemoryTenants creates an empty repository.
func NewMemoryTenants() *MemoryTenants {
	return &MemoryTenants{MemoryProvider: tenant.NewMemoryProvider()}
}

func (m *MemoryTenants) Create(ctx context.Context, t *tenant.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.GetBySlug(ctx, t.Slug); err == nil {
		return fmt.Errorf("memoryTenants.Create: %w: slug %q", ErrConflict, t.Slug)
	}

	m.nextID++
	now := time.Now().UTC()
	t.ID = m.nextID
	if t.UUID == uuid.Nil {
		t.UUID = uuid.New()
	}
	if t.Status == "" {
		t.Status = tenant.StatusActive
	}
	t.CreatedAt, t.UpdatedAt = now, now

	m.Add(t)
	m.ids = append(m.ids, t.ID)
	return nil
}

func (m *MemoryTenants) UpdateStatus(ctx context.Context, id int64, status tenant.Status) (*tenant.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("memoryTenants.UpdateStatus: %w", ErrNotFound)
	}
	t.Status = status
	t.UpdatedAt = time.Now().UTC()
	m.Add(t)
	return t, nil
}

func (m *MemoryTenants) ListActive(ctx context.Context) ([]*tenant.Tenant, error) {
	m.mu.Lock()
	ids := slices.Clone(m.ids)
	m.mu.Unlock()

	var out []*tenant.Tenant
	for _, id := range ids {
		t, err := m.GetByID(ctx, id)
		if err != nil {
			continue
		}
		if t.Active() {
			out = append(out, t)
		}
	}
	return out, nil
}

// Domains returns a DomainRepository sharing this repository's data.
func (m *MemoryTenants) Domains() DomainRepository {
	return memoryDomains{m}
}

type memoryDomains struct {
	m *MemoryTenants
}

func (d memoryDomains) Add(ctx context.Context, dom *tenant.Domain) error {
	d.m.mu.Lock()
	defer d.m.mu.Unlock()

	for _, existing := range d.m.domains {
		if existing.Hostname == dom.Hostname {
			return fmt.Errorf("memoryDomains.Add: %w: hostname %q", ErrConflict, dom.Hostname)
		}
	}

	dom.ID = int64(len(d.m.domains) + 1)
	dom.CreatedAt = time.Now().UTC()
	cp := *dom
	d.m.domains = append(d.m.domains, &cp)
	d.m.AddDomain(dom.Hostname, dom.TenantID)
	return nil
}

func (d memoryDomains) SetPrimary(_ context.Context, tenantID, domainID int64) (*tenant.Domain, error) {
	d.m.mu.Lock()
	defer d.m.mu.Unlock()

	var target *tenant.Domain
	for _, dom := range d.m.domains {
		if dom.TenantID == tenantID && dom.ID == domainID {
			target = dom
		}
	}
	if target == nil {
		return nil, fmt.Errorf("memoryDomains.SetPrimary: %w", ErrNotFound)
	}

	for _, dom := range d.m.domains {
		if dom.TenantID == tenantID {
			dom.Primary = dom.ID == domainID
		}
	}
	cp := *target
	return &cp, nil
}

func (d memoryDomains) MarkVerified(_ context.Context, tenantID, domainID int64) (*tenant.Domain, error) {
	d.m.mu.Lock()
	defer d.m.mu.Unlock()

	for _, dom := range d.m.domains {
		if dom.TenantID == tenantID && dom.ID == domainID {
			if dom.VerifiedAt == nil {
				now := time.Now().UTC()
				dom.VerifiedAt = &now
			}
			cp := *dom
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("memoryDomains.MarkVerified: %w", ErrNotFound)
}

func (d memoryDomains) Get(_ context.Context, tenantID, domainID int64) (*tenant.Domain, error) {
	d.m.mu.Lock()
	defer d.m.mu.Unlock()

	for _, dom := range d.m.domains {
		if dom.TenantID == tenantID && dom.ID == domainID {
			cp := *dom
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("memoryDomains.Get: %w", ErrNotFound)
}

func (d memoryDomains) ListByTenant(_ context.Context, tenantID int64) ([]*tenant.Domain, error) {
	d.m.mu.Lock()
	defer d.m.mu.Unlock()

	var out []*tenant.Domain
	for _, dom := range d.m.domains {
		if dom.TenantID == tenantID {
			cp := *dom
			out = append(out, &cp)
		}
	}
	return out, nil
}

// MemoryMembers is a MemberRepository over a tenantscope.MemoryTable.
type MemoryMembers struct {
	table  *tenantscope.MemoryTable[*Member]
	nextID *atomic.Int64
}

// NewMemoryMembers creates an empty repository guarded by scope.
func NewMemoryMembers(scope tenantscope.Scope) *MemoryMembers {
	return &MemoryMembers{
		table:  tenantscope.NewMemoryTable[*Member](scope),
		nextID: new(atomic.Int64),
	}
}

func (r *MemoryMembers) Create(ctx context.Context, m *Member) error {
	m.ID = r.nextID.Add(1)
	m.CreatedAt = time.Now().UTC()
	cp := *m
	if err := r.table.Insert(ctx, &cp); err != nil {
		return fmt.Errorf("memoryMembers.Create: %w", err)
	}
	m.TenantID = cp.TenantID
	return nil
}

func (r *MemoryMembers) Get(ctx context.Context, id int64) (*Member, error) {
	rows, err := r.table.Select(ctx, func(m *Member) bool { return m.ID == id })
	if err != nil {
		return nil, fmt.Errorf("memoryMembers.Get: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("memoryMembers.Get: %w", ErrNotFound)
	}
	cp := *rows[0]
	return &cp, nil
}

func (r *MemoryMembers) List(ctx context.Context, filter MemberFilter) ([]*Member, error) {
	rows, err := r.table.Select(ctx, func(m *Member) bool {
		return filter.FamilyID == nil || (m.FamilyID != nil && *m.FamilyID == *filter.FamilyID)
	})
	if err != nil {
		return nil, fmt.Errorf("memoryMembers.List: %w", err)
	}

	slices.SortFunc(rows, func(a, b *Member) int { return cmp.Compare(a.ID, b.ID) })
	if filter.Offset >= len(rows) {
		return []*Member{}, nil
	}
	rows = rows[filter.Offset:]
	if n := filter.PageSize(); len(rows) > n {
		rows = rows[:n]
	}

	out := make([]*Member, len(rows))
	for i, m := range rows {
		cp := *m
		out[i] = &cp
	}
	return out, nil
}

func (r *MemoryMembers) Delete(ctx context.Context, id int64) error {
	n, err := r.table.Delete(ctx, func(m *Member) bool { return m.ID == id })
	if err != nil {
		return fmt.Errorf("memoryMembers.Delete: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("memoryMembers.Delete: %w", ErrNotFound)
	}
	return nil
}

func (r *MemoryMembers) Count(ctx context.Context) (int64, error) {
	rows, err := r.table.Select(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("memoryMembers.Count: %w", err)
	}
	return int64(len(rows)), nil
}

func (r *MemoryMembers) ForTenant(id int64) MemberRepository {
	return &MemoryMembers{table: r.table.Scoped(r.table.Scope().ForTenant(id)), nextID: r.nextID}
}

func (r *MemoryMembers) Unscoped(reason string) MemberRepository {
	return &MemoryMembers{table: r.table.Scoped(r.table.Scope().Unscoped(reason)), nextID: r.nextID}
}

// MemoryFamilies is a FamilyRepository over a tenantscope.MemoryTable.
type MemoryFamilies struct {
	table  *tenantscope.MemoryTable[*Family]
	nextID *atomic.Int64
}

// NewMemoryFamilies creates an empty repository guarded by scope.
func NewMemoryFamilies(scope tenantscope.Scope) *MemoryFamilies {
	return &MemoryFamilies{
		table:  tenantscope.NewMemoryTable[*Family](scope),
		nextID: new(atomic.Int64),
	}
}

func (r *MemoryFamilies) Create(ctx context.Context, f *Family) error {
	f.ID = r.nextID.Add(1)
	f.CreatedAt = time.Now().UTC()
	cp := *f
	if err := r.table.Insert(ctx, &cp); err != nil {
		return fmt.Errorf("memoryFamilies.Create: %w", err)
	}
	f.TenantID = cp.TenantID
	return nil
}

func (r *MemoryFamilies) List(ctx context.Context) ([]*Family, error) {
	rows, err := r.table.Select(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("memoryFamilies.List: %w", err)
	}
	out := make([]*Family, len(rows))
	for i, f := range rows {
		cp := *f
		out[i] = &cp
	}
	return out, nil
}

func (r *MemoryFamilies) Count(ctx context.Context) (int64, error) {
	rows, err := r.table.Select(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("memoryFamilies.Count: %w", err)
	}
	return int64(len(rows)), nil
}

func (r *MemoryFamilies) ForTenant(id int64) FamilyRepository {
	return &MemoryFamilies{table: r.table.Scoped(r.table.Scope().ForTenant(id)), nextID: r.nextID}
}
