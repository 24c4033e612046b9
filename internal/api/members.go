package api

import (
	"net/http"

	"github.com/churchly/backend/handler"
	"github.com/churchly/backend/internal/store"
	"github.com/churchly/backend/pkg/limits"
	"github.com/churchly/backend/pkg/logger"
	"github.com/churchly/backend/pkg/validator"
)

type listMembersRequest struct {
	FamilyID *int64 `query:"family_id"`
	Limit    int    `query:"limit"`
	Offset   int    `query:"offset"`
}

type createMemberRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	FamilyID  *int64 `json:"family_id"`
}

func (r createMemberRequest) validate() error {
	return validator.Apply(
		validator.Required("first_name", r.FirstName),
		validator.MaxLen("first_name", r.FirstName, maxNameLen),
		validator.Required("last_name", r.LastName),
		validator.MaxLen("last_name", r.LastName, maxNameLen),
		validator.When(r.Email != "", validator.Email("email", r.Email)),
		validator.When(r.FamilyID != nil, validator.Positive("family_id", deref(r.FamilyID))),
	)
}

func deref(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}

const maxNameLen = 100

type idRequest struct {
	ID int64 `path:"id"`
}

func (h *handlers) listMembers(ctx handler.Context, req listMembersRequest) handler.Response {
	filter := store.MemberFilter{FamilyID: req.FamilyID, Limit: req.Limit, Offset: max(req.Offset, 0)}
	members, err := h.members.List(ctx, filter)
	if err != nil {
		return handler.Fail(err)
	}
	return handler.JSON(members, handler.WithJSONMeta(map[string]any{
		"limit":  filter.PageSize(),
		"offset": filter.Offset,
	}))
}

// createMember reserves a unit of the members limit before inserting and
// gives it back when the insert fails.
func (h *handlers) createMember(ctx handler.Context, req createMemberRequest) handler.Response {
	if err := req.validate(); err != nil {
		return handler.Fail(err)
	}
	if err := h.gate.Acquire(ctx, nil, limits.ResourceMembers); err != nil {
		return handler.Fail(err)
	}

	m := &store.Member{FirstName: req.FirstName, LastName: req.LastName, Email: req.Email, FamilyID: req.FamilyID}
	if err := h.members.Create(ctx, m); err != nil {
		h.release(ctx, limits.ResourceMembers)
		return handler.Fail(err)
	}
	return handler.JSON(m, handler.WithJSONStatus(http.StatusCreated))
}

func (h *handlers) deleteMember(ctx handler.Context, req idRequest) handler.Response {
	if err := h.members.Delete(ctx, req.ID); err != nil {
		return handler.Fail(err)
	}
	h.release(ctx, limits.ResourceMembers)
	return handler.Empty()
}

// release gives back one unit of res. A failure only skews the counter
// until the next usage sync, so it is logged rather than returned.
func (h *handlers) release(ctx handler.Context, res limits.Resource) {
	if err := h.gate.ReleaseUsage(ctx, nil, res); err != nil {
		h.logger.WarnContext(ctx, "failed to release usage",
			logger.Error(err),
			logger.Component("api"))
	}
}
