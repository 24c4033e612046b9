package api

import (
	"errors"
	"net/http"

	"github.com/churchly/backend/handler"
	"github.com/churchly/backend/internal/store"
	"github.com/churchly/backend/internal/tenancy"
	"github.com/churchly/backend/pkg/limits"
	"github.com/churchly/backend/pkg/tenant"
	"github.com/churchly/backend/pkg/validator"
)

var (
	errTenantNotFound     = handler.NewHTTPError(http.StatusNotFound, "tenant_not_found")
	errTenantInactive     = handler.NewHTTPError(http.StatusForbidden, "tenant_inactive")
	errInvalidTenant      = handler.NewHTTPError(http.StatusBadRequest, "invalid_tenant_identifier")
	errLimitExceeded      = handler.NewHTTPError(http.StatusPaymentRequired, "limit_exceeded")
	errFeatureDisabled    = handler.NewHTTPError(http.StatusPaymentRequired, "feature_disabled")
	errVerificationFailed = handler.NewHTTPError(http.StatusConflict, "domain_verification_failed")
)

// classify maps domain errors to the HTTP taxonomy. Anything it does not
// know, including scope violations and usage underflow, stays a 500.
func classify(err error) error {
	var (
		httpErr handler.HTTPError
		valErr  handler.ValidationError
	)
	if errors.As(err, &httpErr) || errors.As(err, &valErr) {
		return err
	}
	if fields := validator.Extract(err); fields != nil {
		v := handler.NewValidationError()
		for _, fe := range fields {
			v.Add(fe.Field, fe.Message)
		}
		return v
	}

	switch {
	case errors.Is(err, tenant.ErrTenantNotFound), errors.Is(err, tenant.ErrNoTenantInContext):
		return errTenantNotFound
	case errors.Is(err, tenant.ErrInactiveTenant):
		return errTenantInactive
	case errors.Is(err, tenant.ErrInvalidIdentifier):
		return errInvalidTenant
	case errors.Is(err, limits.ErrLimitExceeded):
		return errLimitExceeded
	case errors.Is(err, limits.ErrFeatureDisabled):
		return errFeatureDisabled
	case errors.Is(err, store.ErrNotFound):
		return handler.ErrNotFound
	case errors.Is(err, store.ErrConflict), errors.Is(err, store.ErrSlugTaken):
		return handler.ErrConflict
	case errors.Is(err, tenancy.ErrVerificationFailed):
		return errVerificationFailed
	}

	if field, msg, ok := fieldError(err); ok {
		v := handler.NewValidationError()
		v.Add(field, msg)
		return v
	}
	return err
}

// fieldError maps input errors of the service layer to a request field.
func fieldError(err error) (field, msg string, ok bool) {
	switch {
	case errors.Is(err, tenancy.ErrInvalidName):
		return "name", "is required", true
	case errors.Is(err, tenancy.ErrInvalidSlug):
		return "slug", "must be a lowercase subdomain label", true
	case errors.Is(err, tenant.ErrReservedSlug):
		return "slug", "is reserved", true
	case errors.Is(err, limits.ErrPlanNotFound):
		return "plan_id", "is not a known plan", true
	case errors.Is(err, tenancy.ErrInvalidStatus):
		return "status", "must be active, suspended or disabled", true
	case errors.Is(err, tenancy.ErrInvalidHostname):
		return "hostname", "is not a valid domain name", true
	case errors.Is(err, tenancy.ErrCentralDomain):
		return "hostname", "belongs to the platform", true
	case errors.Is(err, limits.ErrUnknownKey):
		return "key", "is not a known resource or feature", true
	case errors.Is(err, limits.ErrInvalidOverride):
		return "limit", "must be -1 (unlimited) or more", true
	}
	return "", "", false
}
