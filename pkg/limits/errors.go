package limits

import "errors"

var (
	// Plan errors
	ErrPlanNotFound             = errors.New("limits.errors.plan_not_found")
	ErrInvalidPlanConfiguration = errors.New("limits.errors.invalid_plan_configuration")
	ErrFailedToLoadPlans        = errors.New("limits.errors.failed_to_load_plans")

	// Gate errors
	ErrNoTenant        = errors.New("limits.errors.no_tenant")
	ErrLimitExceeded   = errors.New("limits.errors.limit_exceeded")
	ErrFeatureDisabled = errors.New("limits.errors.feature_disabled")

	// Override errors
	ErrUnknownKey        = errors.New("limits.errors.unknown_key")
	ErrInvalidOverride   = errors.New("limits.errors.invalid_override")
	ErrOverridesReadOnly = errors.New("limits.errors.overrides_read_only")

	// ErrUsageUnderflow is returned when usage is released below zero,
	// which means a release had no matching record.
	ErrUsageUnderflow = errors.New("limits.errors.usage_underflow")

	// Trial errors
	ErrTrialExpired      = errors.New("limits.errors.trial_expired")
	ErrTrialNotAvailable = errors.New("limits.errors.trial_not_available")

	// Storage errors
	ErrUsageStore                 = errors.New("limits.errors.usage_store")
	ErrFailedToCountResourceUsage = errors.New("limits.errors.failed_to_count_resource_usage")
)
