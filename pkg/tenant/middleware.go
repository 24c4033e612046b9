package tenant

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/churchly/backend/pkg/logger"
)

// Middleware resolves the tenant of every request, binds it to a fresh
// Manager for the lifetime of the request and unbinds it before returning,
// whether the downstream handler returns normally or panics.
func Middleware(resolver Resolver, opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{
		errorHandler:  defaultErrorHandler,
		requireActive: true,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, skip := range cfg.skipPaths {
				if strings.HasPrefix(r.URL.Path, skip) {
					next.ServeHTTP(w, r)
					return
				}
			}

			t, err := resolver.Resolve(r)
			if err != nil {
				cfg.logger.ErrorContext(r.Context(), "tenant resolution failed",
					slog.String("host", r.Host),
					logger.Error(err))
				cfg.errorHandler(w, r, err)
				return
			}

			if t == nil {
				if cfg.optional {
					next.ServeHTTP(w, r)
					return
				}
				cfg.errorHandler(w, r, ErrTenantNotFound)
				return
			}

			if cfg.requireActive && !t.Active() {
				cfg.errorHandler(w, r, ErrInactiveTenant)
				return
			}

			ctx, release := Bind(r.Context(), t)
			defer release()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireTenant ensures a tenant is bound. Mount it on route groups that
// sit behind an optional Middleware but must not run tenant-less.
func RequireTenant(errorHandler ErrorHandler) func(http.Handler) http.Handler {
	if errorHandler == nil {
		errorHandler = defaultErrorHandler
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := FromContext(r.Context()); !ok {
				errorHandler(w, r, ErrNoTenantInContext)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
