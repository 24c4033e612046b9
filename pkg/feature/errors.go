package feature

import "errors"

var (
	ErrFlagNotFound      = errors.New("feature flag not found")
	ErrFlagAlreadyExists = errors.New("feature flag already exists")
	ErrInvalidFlag       = errors.New("invalid feature flag parameters")
	ErrInvalidStrategy   = errors.New("invalid feature rollout strategy")
	ErrProviderClosed    = errors.New("feature provider closed")
)
