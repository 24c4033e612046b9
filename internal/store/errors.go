package store

import "errors"

var (
	// ErrNotFound is returned when a row does not exist or is not visible
	// through the current tenant scope.
	ErrNotFound = errors.New("store: not found")

	// ErrConflict is returned when a unique constraint rejects a write.
	ErrConflict = errors.New("store: conflict")

	// ErrSlugTaken is returned when no free slug could be derived for a tenant.
	ErrSlugTaken = errors.New("store: tenant slug taken")
)
