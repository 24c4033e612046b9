package api

import (
	"net/http"

	"github.com/churchly/backend/handler"
	"github.com/churchly/backend/internal/tenancy"
	"github.com/churchly/backend/pkg/audit"
	"github.com/churchly/backend/pkg/limits"
	"github.com/churchly/backend/pkg/tenant"
)

type updateStatusRequest struct {
	ID     int64         `path:"id" json:"-"`
	Status tenant.Status `json:"status"`
}

type overrideRequest struct {
	ID      int64  `path:"id" json:"-"`
	Key     string `path:"key" json:"-"`
	Enabled *bool  `json:"enabled"`
	Limit   *int64 `json:"limit"`
}

type auditRequest struct {
	ID     int64  `path:"id"`
	Action string `query:"action"`
	Limit  int    `query:"limit"`
}

type tenantView struct {
	Tenant *tenant.Tenant                       `json:"tenant"`
	Plan   *limits.Plan                         `json:"plan,omitempty"`
	Usage  map[limits.Resource]limits.UsageInfo `json:"usage"`
}

func (h *handlers) createTenant(ctx handler.Context, req tenancy.CreateTenantInput) handler.Response {
	t, err := h.svc.CreateTenant(ctx, req)
	if err != nil {
		return handler.Fail(err)
	}
	return handler.JSON(t, handler.WithJSONStatus(http.StatusCreated))
}

func (h *handlers) updateStatus(ctx handler.Context, req updateStatusRequest) handler.Response {
	t, err := h.svc.UpdateStatus(ctx, req.ID, req.Status)
	if err != nil {
		return handler.Fail(err)
	}
	return handler.JSON(t)
}

func (h *handlers) setOverride(ctx handler.Context, req overrideRequest) handler.Response {
	o, err := h.svc.SetOverride(ctx, limits.Override{
		TenantID: req.ID,
		Key:      req.Key,
		Enabled:  req.Enabled,
		Limit:    req.Limit,
	})
	if err != nil {
		return handler.Fail(err)
	}
	return handler.JSON(o)
}

// auditTrail lists the newest audit events of one tenant.
func (h *handlers) auditTrail(ctx handler.Context, req auditRequest) handler.Response {
	if h.audit == nil {
		return handler.Fail(handler.ErrNotFound)
	}
	events, err := h.audit.Find(ctx, audit.Criteria{TenantID: &req.ID, Action: req.Action, Limit: req.Limit})
	if err != nil {
		return handler.Fail(err)
	}
	return handler.JSON(events)
}

// currentTenant echoes the bound tenant with its plan and usage.
func (h *handlers) currentTenant(ctx handler.Context, _ struct{}) handler.Response {
	t, ok := ctx.Tenant()
	if !ok {
		return handler.Fail(tenant.ErrNoTenantInContext)
	}

	plan, err := h.gate.Plan(ctx, t)
	if err != nil {
		return handler.Fail(err)
	}
	usage, err := h.gate.AllUsage(ctx, t)
	if err != nil {
		return handler.Fail(err)
	}
	return handler.JSON(tenantView{Tenant: t, Plan: plan, Usage: usage})
}
