package queue

import "errors"

var (
	ErrRepositoryNil          = errors.New("repository cannot be nil")
	ErrPayloadNil             = errors.New("payload cannot be nil")
	ErrInvalidPriority        = errors.New("priority must be between 0 and 100")
	ErrHandlerNotFound        = errors.New("no handler registered for task type")
	ErrNoHandlers             = errors.New("no task handlers registered")
	ErrTaskAlreadyRegistered  = errors.New("task already registered")
	ErrSchedulerNotConfigured = errors.New("scheduler has no registered tasks")
	ErrWorkerStarted          = errors.New("worker already started")
	ErrWorkerNotStarted       = errors.New("worker not started")

	// ErrNoTaskToClaim is returned by ClaimTask when nothing is due.
	ErrNoTaskToClaim = errors.New("no task to claim")

	// ErrDuplicateOccurrence is returned by CreateTask when a fresh pending
	// occurrence of the same periodic task already exists.
	ErrDuplicateOccurrence = errors.New("periodic task already has a pending occurrence")

	// ErrTaskNotFound is returned by storage for unknown task ids.
	ErrTaskNotFound = errors.New("task not found")

	// ErrTenantRequired is returned by tenant-scoped handlers executed without
	// a bound tenant, and by EnqueueForTenant called with a nil tenant.
	ErrTenantRequired = errors.New("task requires a tenant")
)
