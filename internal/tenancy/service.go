package tenancy

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/churchly/backend/internal/store"
	"github.com/churchly/backend/pkg/audit"
	"github.com/churchly/backend/pkg/limits"
	"github.com/churchly/backend/pkg/logger"
	"github.com/churchly/backend/pkg/slug"
	"github.com/churchly/backend/pkg/tenant"
	"github.com/churchly/backend/pkg/token"
)

const (
	slugAttempts   = 3
	slugSuffixSize = 4
)

// Config holds onboarding and custom domain settings.
type Config struct {
	DomainSecret string `env:"TENANT_DOMAIN_SECRET,required"`                      // DomainSecret signs domain verification tokens.
	DefaultPlan  string `env:"TENANT_DEFAULT_PLAN" envDefault:"starter"`           // DefaultPlan is assigned when onboarding names no plan.
	VerifyRecord string `env:"TENANT_VERIFY_RECORD" envDefault:"_churchly-verify"` // VerifyRecord is the TXT label queried below a custom domain.
}

// TXTResolver looks up DNS TXT records. *net.Resolver implements it.
type TXTResolver interface {
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

// Invalidator evicts cached tenant lookups. *tenant.CachedProvider implements it.
type Invalidator interface {
	Invalidate(ctx context.Context, t *tenant.Tenant, hostnames ...string) error
}

// CreateTenantInput describes a new church. An empty Slug is derived from Name.
type CreateTenantInput struct {
	Name   string `json:"name"`
	Slug   string `json:"slug"`
	PlanID string `json:"plan_id"`
}

// domainClaim is the signed content of a verification token.
type domainClaim struct {
	TenantID int64  `json:"tid"`
	Hostname string `json:"host"`
	Nonce    string `json:"n"`
}

// Service onboards tenants and manages their custom domains.
type Service struct {
	tenants  store.TenantRepository
	domains  store.DomainRepository
	gate     *limits.Gate
	signer   *token.Signer
	tenancy  tenant.Config
	centrals []string
	cfg      Config
	resolver TXTResolver
	cache    Invalidator
	audit    *audit.Logger
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithResolver replaces the DNS resolver used by VerifyDomain.
func WithResolver(r TXTResolver) Option {
	return func(s *Service) { s.resolver = r }
}

// WithInvalidator evicts cached lookups after status and domain changes.
func WithInvalidator(c Invalidator) Option {
	return func(s *Service) { s.cache = c }
}

// WithAudit records tenant lifecycle, domain and override changes.
func WithAudit(l *audit.Logger) Option {
	return func(s *Service) { s.audit = l }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a Service. It fails when cfg carries no domain secret.
func New(tenants store.TenantRepository, domains store.DomainRepository, gate *limits.Gate, tenancy tenant.Config, cfg Config, opts ...Option) (*Service, error) {
	signer, err := token.NewSigner(cfg.DomainSecret, "domain-verification")
	if err != nil {
		return nil, fmt.Errorf("tenancy: %w", err)
	}

	s := &Service{
		tenants:  tenants,
		domains:  domains,
		gate:     gate,
		signer:   signer,
		tenancy:  tenancy,
		centrals: tenancy.Centrals(),
		cfg:      cfg,
		resolver: net.DefaultResolver,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.Component("tenancy"))
	return s, nil
}

// CreateTenant registers a church. A derived slug that is taken is retried
// with a random suffix; an explicit slug that is taken fails with store.ErrConflict.
func (s *Service) CreateTenant(ctx context.Context, in CreateTenantInput) (*tenant.Tenant, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrInvalidName
	}

	planID := cmp.Or(in.PlanID, s.cfg.DefaultPlan)
	if err := s.gate.VerifyPlan(planID); err != nil {
		return nil, fmt.Errorf("%w: %s", err, planID)
	}

	explicit := strings.TrimSpace(in.Slug) != ""
	label := strings.ToLower(strings.TrimSpace(in.Slug))
	if !explicit {
		label = slug.Label(name)
	}
	if !slug.ValidLabel(label) {
		return nil, ErrInvalidSlug
	}
	if s.tenancy.IsReserved(label) {
		return nil, fmt.Errorf("%w: %s", tenant.ErrReservedSlug, label)
	}

	t := &tenant.Tenant{Name: name, Slug: label, PlanID: planID, Status: tenant.StatusActive}
	for attempt := 1; ; attempt++ {
		err := s.tenants.Create(ctx, t)
		if err == nil {
			break
		}
		if !errors.Is(err, store.ErrConflict) {
			return nil, err
		}
		if explicit {
			return nil, err
		}
		if attempt == slugAttempts {
			return nil, fmt.Errorf("%w: %s", store.ErrSlugTaken, label)
		}
		t.Slug = slug.Label(name, slug.WithSuffix(slugSuffixSize))
	}

	s.record(ctx, "tenant.created", nil,
		audit.WithTenant(t.ID),
		audit.WithResource("tenant", t.UUID.String()),
		audit.WithMetadata("plan_id", t.PlanID))
	s.logger.InfoContext(ctx, "tenant created",
		logger.TenantID(t.ID),
		slog.String("slug", t.Slug),
		slog.String("plan_id", t.PlanID))
	return t, nil
}

// UpdateStatus moves a tenant through its lifecycle and evicts every cached
// lookup of it, including its custom domains.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status tenant.Status) (*tenant.Tenant, error) {
	if !slices.Contains([]tenant.Status{tenant.StatusActive, tenant.StatusSuspended, tenant.StatusDisabled}, status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	t, err := s.tenants.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	domains, err := s.domains.ListByTenant(ctx, id)
	if err != nil {
		return nil, err
	}
	hosts := make([]string, 0, len(domains))
	for _, d := range domains {
		hosts = append(hosts, d.Hostname)
	}
	s.invalidate(ctx, t, hosts...)
	s.record(ctx, "tenant.status_changed", nil,
		audit.WithTenant(t.ID),
		audit.WithMetadata("status", string(status)))

	s.logger.InfoContext(ctx, "tenant status changed",
		logger.TenantID(t.ID),
		slog.String("status", string(status)))
	return t, nil
}

// AddDomain maps hostname to the tenant bound to ctx. The plan must include
// custom domains and the domain counter must have room.
func (s *Service) AddDomain(ctx context.Context, hostname string) (*tenant.Domain, error) {
	t, ok := tenant.FromContext(ctx)
	if !ok {
		return nil, tenant.ErrNoTenantInContext
	}

	host, err := s.checkHostname(hostname)
	if err != nil {
		return nil, err
	}

	if err := s.gate.RequireFeature(ctx, t, limits.FeatureCustomDomains); err != nil {
		return nil, err
	}
	if err := s.gate.Acquire(ctx, t, limits.ResourceDomains); err != nil {
		return nil, err
	}

	tok, err := token.Sign(s.signer, domainClaim{TenantID: t.ID, Hostname: host, Nonce: uuid.NewString()})
	if err != nil {
		s.release(ctx, t)
		return nil, err
	}

	d := &tenant.Domain{TenantID: t.ID, Hostname: host, VerificationToken: tok}
	if err := s.domains.Add(ctx, d); err != nil {
		s.release(ctx, t)
		return nil, err
	}
	s.invalidate(ctx, nil, host)
	s.record(ctx, "domain.added", nil,
		audit.WithResource("domain", strconv.FormatInt(d.ID, 10)),
		audit.WithMetadata("hostname", host))

	s.logger.InfoContext(ctx, "custom domain added",
		slog.Int64("domain_id", d.ID),
		slog.String("hostname", host))
	return d, nil
}

// SetPrimaryDomain makes a domain of the bound tenant its canonical host.
func (s *Service) SetPrimaryDomain(ctx context.Context, domainID int64) (*tenant.Domain, error) {
	t, ok := tenant.FromContext(ctx)
	if !ok {
		return nil, tenant.ErrNoTenantInContext
	}
	d, err := s.domains.SetPrimary(ctx, t.ID, domainID)
	if err != nil {
		return nil, err
	}
	s.record(ctx, "domain.primary_set", nil,
		audit.WithResource("domain", strconv.FormatInt(d.ID, 10)),
		audit.WithMetadata("hostname", d.Hostname))
	return d, nil
}

// SetOverride stores a per-tenant exception to the plan, such as a raised
// member limit or a feature granted outside the plan.
func (s *Service) SetOverride(ctx context.Context, o limits.Override) (*limits.Override, error) {
	t, err := s.tenants.GetByID(ctx, o.TenantID)
	if err != nil {
		return nil, err
	}
	if err := s.gate.SetOverride(ctx, o); err != nil {
		return nil, err
	}

	opts := []audit.EventOption{audit.WithTenant(t.ID), audit.WithResource("override", o.Key)}
	if o.Enabled != nil {
		opts = append(opts, audit.WithMetadata("enabled", *o.Enabled))
	}
	if o.Limit != nil {
		opts = append(opts, audit.WithMetadata("limit", *o.Limit))
	}
	s.record(ctx, "tenant.override_set", nil, opts...)
	return &o, nil
}

// VerificationRecord returns the TXT record name and value the church
// publishes to prove it owns d.
func (s *Service) VerificationRecord(d *tenant.Domain) (name, value string) {
	return s.cfg.VerifyRecord + "." + d.Hostname, d.VerificationToken
}

// VerifyDomain checks the TXT records of the domain for its signed token.
// Resolution does not wait for verification; the mark is informational.
func (s *Service) VerifyDomain(ctx context.Context, domainID int64) (*tenant.Domain, error) {
	t, ok := tenant.FromContext(ctx)
	if !ok {
		return nil, tenant.ErrNoTenantInContext
	}

	d, err := s.verify(ctx, t, domainID)
	s.record(ctx, "domain.verify", err, audit.WithResource("domain", strconv.FormatInt(domainID, 10)))
	return d, err
}

func (s *Service) verify(ctx context.Context, t *tenant.Tenant, domainID int64) (*tenant.Domain, error) {
	d, err := s.domains.Get(ctx, t.ID, domainID)
	if err != nil {
		return nil, err
	}
	if d.Verified() {
		return d, nil
	}

	name, want := s.VerificationRecord(d)
	records, err := s.resolver.LookupTXT(ctx, name)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return nil, fmt.Errorf("%w: %s", ErrVerificationFailed, name)
		}
		return nil, fmt.Errorf("tenancy: lookup %s: %w", name, err)
	}

	for _, rec := range records {
		rec = strings.TrimSpace(rec)
		if rec != want {
			continue
		}
		claim, err := token.Verify[domainClaim](s.signer, rec)
		if err != nil || claim.TenantID != t.ID || claim.Hostname != d.Hostname {
			continue
		}
		return s.domains.MarkVerified(ctx, t.ID, d.ID)
	}
	return nil, fmt.Errorf("%w: %s", ErrVerificationFailed, name)
}

// checkHostname normalizes hostname and rejects anything that is not a
// plain multi-label domain outside the platform domains.
func (s *Service) checkHostname(hostname string) (string, error) {
	host := tenant.NormalizeHostname(hostname)
	labels := strings.Split(host, ".")
	if len(labels) < 2 || len(host) > 253 || strings.Trim(labels[len(labels)-1], "0123456789") == "" {
		return "", ErrInvalidHostname
	}
	for _, l := range labels {
		if !slug.ValidLabel(l) {
			return "", ErrInvalidHostname
		}
	}

	for _, central := range s.centrals {
		if host == central || strings.HasSuffix(host, "."+central) {
			return "", fmt.Errorf("%w: %s", ErrCentralDomain, central)
		}
	}
	return host, nil
}

func (s *Service) release(ctx context.Context, t *tenant.Tenant) {
	if err := s.gate.ReleaseUsage(ctx, t, limits.ResourceDomains); err != nil {
		s.logger.WarnContext(ctx, "failed to release domain usage", logger.Error(err))
	}
}

// record writes an audit event; a failure to audit never fails the operation.
func (s *Service) record(ctx context.Context, action string, cause error, opts ...audit.EventOption) {
	if s.audit == nil {
		return
	}
	var err error
	if cause != nil {
		err = s.audit.LogError(ctx, action, cause, opts...)
	} else {
		err = s.audit.Log(ctx, action, opts...)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "failed to record audit event", slog.String("action", action), logger.Error(err))
	}
}

func (s *Service) invalidate(ctx context.Context, t *tenant.Tenant, hosts ...string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, t, hosts...); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate tenant cache", logger.Error(err))
	}
}
