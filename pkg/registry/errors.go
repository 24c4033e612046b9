package registry

import "errors"

var (
	ErrInvalidCatalog = errors.New("registry: invalid catalog")
	ErrUnknownKind    = errors.New("registry: unknown kind")
)
