package tenant

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/churchly/backend/pkg/logger"
)

// DefaultCacheTTL is used by CachedProvider when no TTL is configured.
const DefaultCacheTTL = 5 * time.Minute

// CachedProvider decorates a Provider with a Cache.
// Only successful lookups are cached.
type CachedProvider struct {
	next   Provider
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedProvider wraps next with cache. A nil cache disables caching.
func NewCachedProvider(next Provider, cache Cache, ttl time.Duration, logger *slog.Logger) *CachedProvider {
	if cache == nil {
		cache = NewNoOpCache()
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedProvider{next: next, cache: cache, ttl: ttl, logger: logger}
}

func (p *CachedProvider) GetByID(ctx context.Context, id int64) (*Tenant, error) {
	return p.cached(ctx, idKey(id), func() (*Tenant, error) { return p.next.GetByID(ctx, id) })
}

func (p *CachedProvider) GetByIdentifier(ctx context.Context, identifier string) (*Tenant, error) {
	return p.cached(ctx, identKey(identifier), func() (*Tenant, error) { return p.next.GetByIdentifier(ctx, identifier) })
}

func (p *CachedProvider) GetBySlug(ctx context.Context, slug string) (*Tenant, error) {
	return p.cached(ctx, slugKey(slug), func() (*Tenant, error) { return p.next.GetBySlug(ctx, slug) })
}

func (p *CachedProvider) GetByHostname(ctx context.Context, hostname string) (*Tenant, error) {
	return p.cached(ctx, hostKey(hostname), func() (*Tenant, error) { return p.next.GetByHostname(ctx, hostname) })
}

// Invalidate evicts every cache entry that may point at t, including the given hostnames.
func (p *CachedProvider) Invalidate(ctx context.Context, t *Tenant, hostnames ...string) error {
	keys := make([]string, 0, 5+len(hostnames))
	if t != nil {
		keys = append(keys,
			idKey(t.ID),
			slugKey(t.Slug),
			identKey(strconv.FormatInt(t.ID, 10)),
			identKey(t.UUID.String()),
			identKey(t.Slug),
		)
	}
	for _, h := range hostnames {
		keys = append(keys, hostKey(h))
	}
	return p.cache.Delete(ctx, keys...)
}

func (p *CachedProvider) cached(ctx context.Context, key string, load func() (*Tenant, error)) (*Tenant, error) {
	if t, ok := p.cache.Get(ctx, key); ok {
		return t, nil
	}

	t, err := load()
	if err != nil {
		return nil, err
	}

	if err := p.cache.Set(ctx, key, t, p.ttl); err != nil {
		p.logger.WarnContext(ctx, "failed to cache tenant",
			slog.String("key", key),
			logger.Error(err))
	}

	return t, nil
}

func idKey(id int64) string        { return "id:" + strconv.FormatInt(id, 10) }
func slugKey(slug string) string   { return "slug:" + slug }
func hostKey(host string) string   { return "host:" + NormalizeHostname(host) }

// identKey keys UUID identifiers by their canonical form.
func identKey(ident string) string {
	ident = strings.TrimSpace(ident)
	if uid, err := uuid.Parse(ident); err == nil {
		return "ident:" + uid.String()
	}
	return "ident:" + ident
}

// MemoryProvider is an in-memory Provider for tests and local development.
type MemoryProvider struct {
	mu      sync.RWMutex
	tenants map[int64]Tenant
	domains map[string]int64
}

// NewMemoryProvider creates a provider seeded with tenants.
func NewMemoryProvider(tenants ...*Tenant) *MemoryProvider {
	p := &MemoryProvider{
		tenants: make(map[int64]Tenant),
		domains: make(map[string]int64),
	}
	for _, t := range tenants {
		p.Add(t)
	}
	return p
}

// Add stores a copy of t, replacing any tenant with the same id.
func (p *MemoryProvider) Add(t *Tenant) {
	if t == nil {
		return
	}
	p.mu.Lock()
	p.tenants[t.ID] = *t
	p.mu.Unlock()
}

// AddDomain maps hostname to the tenant with tenantID.
func (p *MemoryProvider) AddDomain(hostname string, tenantID int64) {
	p.mu.Lock()
	p.domains[NormalizeHostname(hostname)] = tenantID
	p.mu.Unlock()
}

func (p *MemoryProvider) GetByID(_ context.Context, id int64) (*Tenant, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	t, ok := p.tenants[id]
	if !ok {
		return nil, ErrTenantNotFound
	}
	return &t, nil
}

func (p *MemoryProvider) GetByIdentifier(ctx context.Context, identifier string) (*Tenant, error) {
	if id, err := strconv.ParseInt(identifier, 10, 64); err == nil {
		if t, err := p.GetByID(ctx, id); err == nil {
			return t, nil
		}
	}

	uid, uidErr := uuid.Parse(identifier)

	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, t := range p.tenants {
		if (uidErr == nil && t.UUID == uid) || t.Slug == identifier {
			return &t, nil
		}
	}
	return nil, ErrTenantNotFound
}

func (p *MemoryProvider) GetBySlug(_ context.Context, slug string) (*Tenant, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, t := range p.tenants {
		if t.Slug == slug {
			return &t, nil
		}
	}
	return nil, ErrTenantNotFound
}

func (p *MemoryProvider) GetByHostname(ctx context.Context, hostname string) (*Tenant, error) {
	p.mu.RLock()
	id, ok := p.domains[NormalizeHostname(hostname)]
	p.mu.RUnlock()

	if !ok {
		return nil, ErrTenantNotFound
	}
	return p.GetByID(ctx, id)
}
