package tenant

import "time"

// Config holds the tenancy settings recognised by the resolver and middleware.
type Config struct {
	Headers            []string      `env:"TENANT_HEADERS" envSeparator:"," envDefault:"X-Tenant,X-Tenant-ID"`          // Headers are checked in order for an explicit tenant id, uuid or slug.
	CentralDomains     []string      `env:"TENANT_CENTRAL_DOMAINS" envSeparator:"," envDefault:"churchly.app"`         // CentralDomains host tenant subdomains.
	ReservedSubdomains []string      `env:"TENANT_RESERVED_SUBDOMAINS" envSeparator:"," envDefault:"app,www,api,admin"` // ReservedSubdomains never resolve to a tenant.
	RequireActive      bool          `env:"TENANT_REQUIRE_ACTIVE" envDefault:"true"`                                   // RequireActive rejects suspended and disabled tenants.
	CacheTTL           time.Duration `env:"TENANT_CACHE_TTL" envDefault:"5m"`                                          // CacheTTL is how long resolved tenants stay cached.
	CacheSize          int           `env:"TENANT_CACHE_SIZE" envDefault:"1000"`                                       // CacheSize bounds the in-memory cache.
	RateLimit          int           `env:"TENANT_RATE_LIMIT" envDefault:"600"`                                        // RateLimit is the request budget per tenant per window.
	RateWindow         time.Duration `env:"TENANT_RATE_WINDOW" envDefault:"1m"`                                        // RateWindow is the rate limit window.
}

// IsReserved reports whether label is a reserved subdomain.
func (c Config) IsReserved(label string) bool {
	return isReserved(c.ReservedSubdomains, label)
}

// Centrals returns the central domains normalized the way request hosts
// are, dropping empty entries.
func (c Config) Centrals() []string {
	return normalizeCentrals(c.CentralDomains)
}
