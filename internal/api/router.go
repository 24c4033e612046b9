// Package api exposes the HTTP surface: platform onboarding without a
// tenant, and the tenant scoped /api routes behind the tenant middleware.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/churchly/backend/handler"
	"github.com/churchly/backend/internal/store"
	"github.com/churchly/backend/internal/tenancy"
	"github.com/churchly/backend/pkg/audit"
	"github.com/churchly/backend/pkg/binder"
	"github.com/churchly/backend/pkg/clientip"
	"github.com/churchly/backend/pkg/httpserver"
	"github.com/churchly/backend/pkg/limits"
	"github.com/churchly/backend/pkg/queue"
	"github.com/churchly/backend/pkg/requestid"
	"github.com/churchly/backend/pkg/tenant"
)

// Enqueuer schedules background work. The tenant bound to ctx travels with the task.
type Enqueuer interface {
	Enqueue(ctx context.Context, payload any, opts ...queue.EnqueueOption) error
}

// Config carries the router's collaborators.
type Config struct {
	Resolver tenant.Resolver
	Tenancy  tenant.Config
	Service  *tenancy.Service
	Gate     *limits.Gate
	Members  store.MemberRepository
	Families store.FamilyRepository
	Domains  store.DomainRepository
	Enqueuer Enqueuer
	Audit    *audit.Logger
	Checks   map[string]httpserver.Check
	Logger   *slog.Logger
}

type handlers struct {
	svc      *tenancy.Service
	gate     *limits.Gate
	members  store.MemberRepository
	families store.FamilyRepository
	domains  store.DomainRepository
	enqueuer Enqueuer
	audit    *audit.Logger
	logger   *slog.Logger
}

// NewRouter builds the application handler.
func NewRouter(cfg Config) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	errs := handler.NewErrorHandler(log, classify)
	tenantErrs := func(w http.ResponseWriter, r *http.Request, err error) {
		errs(handler.NewContext(w, r), err)
	}

	h := &handlers{
		svc:      cfg.Service,
		gate:     cfg.Gate,
		members:  cfg.Members,
		families: cfg.Families,
		domains:  cfg.Domains,
		enqueuer: cfg.Enqueuer,
		audit:    cfg.Audit,
		logger:   log,
	}

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(clientip.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(tenant.Middleware(cfg.Resolver,
		tenant.WithOptional(),
		tenant.WithRequireActive(cfg.Tenancy.RequireActive),
		tenant.WithErrorHandler(tenantErrs),
		tenant.WithSkipPaths("/healthz", "/readyz", "/platform/"),
		tenant.WithLogger(log),
	))

	r.Get("/healthz", httpserver.HealthCheckHandler(log, nil))
	r.Get("/readyz", httpserver.HealthCheckHandler(log, cfg.Checks))

	r.Route("/platform", func(r chi.Router) {
		r.Post("/tenants", wrap(errs, h.createTenant, binder.JSON()))
		r.Post("/tenants/{id}/status", wrap(errs, h.updateStatus, binder.Path(chi.URLParam), binder.JSON()))
		r.Put("/tenants/{id}/overrides/{key}", wrap(errs, h.setOverride, binder.Path(chi.URLParam), binder.JSON()))
		r.Get("/tenants/{id}/audit", wrap(errs, h.auditTrail, binder.Path(chi.URLParam), binder.Query()))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(tenant.RequireTenant(tenantErrs))
		r.Use(tenantRateLimit(cfg.Tenancy.RateLimit, cfg.Tenancy.RateWindow, errs))

		r.Get("/me/tenant", wrap(errs, h.currentTenant))

		r.Get("/members", wrap(errs, h.listMembers, binder.Query()))
		r.Post("/members", wrap(errs, h.createMember, binder.JSON()))
		r.Delete("/members/{id}", wrap(errs, h.deleteMember, binder.Path(chi.URLParam)))

		r.Get("/families", wrap(errs, h.listFamilies))
		r.Post("/families", wrap(errs, h.createFamily, binder.JSON()))

		r.Get("/domains", wrap(errs, h.listDomains))
		r.Post("/domains", wrap(errs, h.addDomain, binder.JSON()))
		r.Post("/domains/{id}/primary", wrap(errs, h.setPrimaryDomain, binder.Path(chi.URLParam)))
		r.Post("/domains/{id}/verify", wrap(errs, h.verifyDomain, binder.Path(chi.URLParam)))

		r.Post("/reports/directory", wrap(errs, h.requestDirectoryReport))
	})

	return r
}

func wrap[R any](errs handler.ErrorHandler, h handler.HandlerFunc[R], binders ...handler.Bind) http.HandlerFunc {
	return handler.Wrap(h,
		handler.WithBinders[R](binders...),
		handler.WithErrorHandler[R](errs),
	)
}

// tenantRateLimit gives every tenant its own request budget. Requests
// without a bound tenant are keyed by client IP.
func tenantRateLimit(limit int, window time.Duration, errs handler.ErrorHandler) func(http.Handler) http.Handler {
	if limit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return httprate.Limit(limit, window,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if id, ok := tenant.IDFromContext(r.Context()); ok {
				return "tenant:" + strconv.FormatInt(id, 10), nil
			}
			return "ip:" + clientip.FromContext(r.Context()), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			errs(handler.NewContext(w, r), handler.ErrTooManyRequests)
		}),
	)
}
