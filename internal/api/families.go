package api

import (
	"net/http"

	"github.com/churchly/backend/handler"
	"github.com/churchly/backend/internal/store"
	"github.com/churchly/backend/pkg/limits"
	"github.com/churchly/backend/pkg/validator"
)

type createFamilyRequest struct {
	Name string `json:"name"`
}

func (h *handlers) listFamilies(ctx handler.Context, _ struct{}) handler.Response {
	families, err := h.families.List(ctx)
	if err != nil {
		return handler.Fail(err)
	}
	return handler.JSON(families)
}

func (h *handlers) createFamily(ctx handler.Context, req createFamilyRequest) handler.Response {
	if err := validator.Apply(
		validator.Required("name", req.Name),
		validator.MaxLen("name", req.Name, maxNameLen),
	); err != nil {
		return handler.Fail(err)
	}
	if err := h.gate.Acquire(ctx, nil, limits.ResourceFamilies); err != nil {
		return handler.Fail(err)
	}

	f := &store.Family{Name: req.Name}
	if err := h.families.Create(ctx, f); err != nil {
		h.release(ctx, limits.ResourceFamilies)
		return handler.Fail(err)
	}
	return handler.JSON(f, handler.WithJSONStatus(http.StatusCreated))
}
