package tenant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

const (
	// MaxIdentifierLength keeps identifiers DNS compatible and bounds lookups.
	MaxIdentifierLength = 63
)

// identifierPattern accepts slugs, numeric ids and uuids.
var identifierPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]*$`)

// labelPattern ensures DNS-safe subdomain labels.
var labelPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// Resolver derives the tenant of an inbound request.
// It returns nil, nil when the request does not identify a tenant.
type Resolver interface {
	Resolve(r *http.Request) (*Tenant, error)
}

// ResolverFunc is an adapter to allow the use of ordinary functions as Resolvers.
type ResolverFunc func(r *http.Request) (*Tenant, error)

// Resolve calls f(r).
func (f ResolverFunc) Resolve(r *http.Request) (*Tenant, error) {
	return f(r)
}

// NewResolver builds the standard resolution chain from cfg:
// explicit headers, then custom domains, then central-domain subdomains.
func NewResolver(cfg Config, provider Provider) Resolver {
	return Chain(
		HeaderResolver(provider, cfg.Headers...),
		DomainResolver(provider),
		SubdomainResolver(provider, cfg.CentralDomains, cfg.ReservedSubdomains),
	)
}

// HeaderResolver looks up the tenant named by the first of headers that is
// present and matches a tenant by id, uuid or slug.
func HeaderResolver(provider Provider, headers ...string) Resolver {
	if len(headers) == 0 {
		headers = []string{"X-Tenant-ID"}
	}

	return ResolverFunc(func(r *http.Request) (*Tenant, error) {
		for _, header := range headers {
			value := strings.TrimSpace(r.Header.Get(header))
			if value == "" {
				continue
			}
			if !isValidIdentifier(value) {
				return nil, fmt.Errorf("%w: header %s", ErrInvalidIdentifier, header)
			}

			t, err := lookup(r.Context(), func(ctx context.Context) (*Tenant, error) {
				return provider.GetByIdentifier(ctx, value)
			})
			if err != nil {
				return nil, err
			}
			if t != nil {
				return t, nil
			}
		}
		return nil, nil
	})
}

// DomainResolver maps the request host to a tenant through its custom domains.
func DomainResolver(provider Provider) Resolver {
	return ResolverFunc(func(r *http.Request) (*Tenant, error) {
		host := NormalizeHostname(r.Host)
		if host == "" {
			return nil, nil
		}
		return lookup(r.Context(), func(ctx context.Context) (*Tenant, error) {
			return provider.GetByHostname(ctx, host)
		})
	})
}

// SubdomainResolver extracts the first label below one of centralDomains
// and looks it up as a tenant slug. Reserved labels resolve to no tenant.
func SubdomainResolver(provider Provider, centralDomains, reserved []string) Resolver {
	centrals := normalizeCentrals(centralDomains)

	return ResolverFunc(func(r *http.Request) (*Tenant, error) {
		label, ok := SubdomainOf(r.Host, centrals)
		if !ok || isReserved(reserved, label) || !labelPattern.MatchString(label) {
			return nil, nil
		}
		return lookup(r.Context(), func(ctx context.Context) (*Tenant, error) {
			return provider.GetBySlug(ctx, label)
		})
	})
}

// SubdomainOf returns the first label of host below the first matching
// central domain. A host equal to a central domain has no subdomain.
func SubdomainOf(host string, centralDomains []string) (string, bool) {
	host = NormalizeHostname(host)
	if host == "" {
		return "", false
	}

	for _, central := range centralDomains {
		suffix := "." + central
		if !strings.HasSuffix(host, suffix) {
			continue
		}
		rest := strings.TrimSuffix(host, suffix)
		label, _, _ := strings.Cut(rest, ".")
		if label == "" {
			return "", false
		}
		return label, true
	}

	return "", false
}

// Chain tries each resolver in order and returns the first tenant found.
// Lookup failures other than "not found" stop the chain.
func Chain(resolvers ...Resolver) Resolver {
	return ResolverFunc(func(r *http.Request) (*Tenant, error) {
		for _, resolver := range resolvers {
			t, err := resolver.Resolve(r)
			if err != nil {
				return nil, err
			}
			if t != nil {
				return t, nil
			}
		}
		return nil, nil
	})
}

// lookup turns ErrTenantNotFound into a nil result so resolution can fall through.
func lookup(ctx context.Context, fn func(ctx context.Context) (*Tenant, error)) (*Tenant, error) {
	t, err := fn(ctx)
	if errors.Is(err, ErrTenantNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("tenant lookup: %w", err)
	}
	return t, nil
}

func isValidIdentifier(id string) bool {
	return len(id) <= MaxIdentifierLength && identifierPattern.MatchString(id)
}

func normalizeCentrals(domains []string) []string {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		if d = NormalizeHostname(d); d != "" {
			out = append(out, d)
		}
	}
	return out
}

func isReserved(reserved []string, label string) bool {
	for _, r := range reserved {
		if strings.EqualFold(strings.TrimSpace(r), label) {
			return true
		}
	}
	return false
}
