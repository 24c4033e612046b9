package tenancy

import "errors"

var (
	ErrInvalidName        = errors.New("tenancy: name is required")
	ErrInvalidSlug        = errors.New("tenancy: slug is not a valid subdomain label")
	ErrInvalidStatus      = errors.New("tenancy: unknown tenant status")
	ErrInvalidHostname    = errors.New("tenancy: hostname is not a valid domain name")
	ErrCentralDomain      = errors.New("tenancy: hostname belongs to a platform domain")
	ErrVerificationFailed = errors.New("tenancy: domain verification record not found")
)
