package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/churchly/backend/pkg/tenant"
)

type (
	// Handler executes tasks with a given name.
	Handler interface {
		Name() string
		Handle(ctx context.Context, payload json.RawMessage) error
	}

	TaskHandlerFunc[T any]  func(ctx context.Context, payload T) error
	PeriodicTaskHandlerFunc func(ctx context.Context) error
)

// NewTaskHandler handles tasks whose payload is a T. The task name is
// derived from the payload type, matching Enqueue.
func NewTaskHandler[T any](handler TaskHandlerFunc[T]) Handler {
	var payload T
	return &oneTimeTaskHandler[T]{
		name:    qualifiedStructName(payload),
		handler: handler,
	}
}

// NewPeriodicTaskHandler handles scheduler generated tasks named name.
func NewPeriodicTaskHandler(name string, handler PeriodicTaskHandlerFunc) Handler {
	return &periodicTaskHandler{
		name:    name,
		handler: handler,
	}
}

type oneTimeTaskHandler[T any] struct {
	name    string
	handler TaskHandlerFunc[T]
}

func (h *oneTimeTaskHandler[T]) Name() string {
	return h.name
}

func (h *oneTimeTaskHandler[T]) Handle(ctx context.Context, payload json.RawMessage) error {
	var t T
	if err := json.Unmarshal(payload, &t); err != nil {
		return fmt.Errorf("decode %s payload: %w", h.name, err)
	}
	return h.handler(ctx, t)
}

type periodicTaskHandler struct {
	name    string
	handler PeriodicTaskHandlerFunc
}

func (h *periodicTaskHandler) Name() string {
	return h.name
}

func (h *periodicTaskHandler) Handle(ctx context.Context, _ json.RawMessage) error {
	return h.handler(ctx)
}

// RequireTenant wraps a tenant-scoped handler so it fails with
// ErrTenantRequired instead of running with no tenant bound.
func RequireTenant(h Handler) Handler {
	return &requireTenantHandler{next: h}
}

type requireTenantHandler struct {
	next Handler
}

func (h *requireTenantHandler) Name() string {
	return h.next.Name()
}

func (h *requireTenantHandler) Handle(ctx context.Context, payload json.RawMessage) error {
	if _, ok := tenant.FromContext(ctx); !ok {
		return fmt.Errorf("%w: %s", ErrTenantRequired, h.next.Name())
	}
	return h.next.Handle(ctx, payload)
}

// TenantDispatcher enqueues work on behalf of a tenant.
type TenantDispatcher interface {
	EnqueueForTenant(ctx context.Context, t *tenant.Tenant, payload any, opts ...EnqueueOption) error
}

// TenantListFunc returns the tenants a fan-out task dispatches to.
type TenantListFunc func(ctx context.Context) ([]*tenant.Tenant, error)

// FanOut builds a periodic handler that dispatches one task per listed
// tenant. Dispatch failures for individual tenants are collected and do not
// stop the remaining tenants.
func FanOut(name string, list TenantListFunc, dispatcher TenantDispatcher, build func(t *tenant.Tenant) any, opts ...EnqueueOption) Handler {
	return NewPeriodicTaskHandler(name, func(ctx context.Context) error {
		tenants, err := list(ctx)
		if err != nil {
			return fmt.Errorf("%s: list tenants: %w", name, err)
		}

		var errs []error
		for _, t := range tenants {
			if err := dispatcher.EnqueueForTenant(ctx, t, build(t), opts...); err != nil {
				errs = append(errs, fmt.Errorf("tenant %d: %w", t.ID, err))
			}
		}
		return errors.Join(errs...)
	})
}
