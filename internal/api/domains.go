package api

import (
	"net/http"

	"github.com/churchly/backend/handler"
	"github.com/churchly/backend/pkg/tenant"
)

type addDomainRequest struct {
	Hostname string `json:"hostname"`
}

type verificationRecord struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

type domainView struct {
	*tenant.Domain
	Verification *verificationRecord `json:"verification,omitempty"`
}

func (h *handlers) view(d *tenant.Domain) domainView {
	v := domainView{Domain: d}
	if !d.Verified() {
		name, value := h.svc.VerificationRecord(d)
		v.Verification = &verificationRecord{Type: "TXT", Name: name, Value: value}
	}
	return v
}

func (h *handlers) listDomains(ctx handler.Context, _ struct{}) handler.Response {
	t, ok := ctx.Tenant()
	if !ok {
		return handler.Fail(tenant.ErrNoTenantInContext)
	}
	domains, err := h.domains.ListByTenant(ctx, t.ID)
	if err != nil {
		return handler.Fail(err)
	}

	views := make([]domainView, 0, len(domains))
	for _, d := range domains {
		views = append(views, h.view(d))
	}
	return handler.JSON(views)
}

func (h *handlers) addDomain(ctx handler.Context, req addDomainRequest) handler.Response {
	d, err := h.svc.AddDomain(ctx, req.Hostname)
	if err != nil {
		return handler.Fail(err)
	}
	return handler.JSON(h.view(d), handler.WithJSONStatus(http.StatusCreated))
}

func (h *handlers) setPrimaryDomain(ctx handler.Context, req idRequest) handler.Response {
	d, err := h.svc.SetPrimaryDomain(ctx, req.ID)
	if err != nil {
		return handler.Fail(err)
	}
	return handler.JSON(h.view(d))
}

func (h *handlers) verifyDomain(ctx handler.Context, req idRequest) handler.Response {
	d, err := h.svc.VerifyDomain(ctx, req.ID)
	if err != nil {
		return handler.Fail(err)
	}
	return handler.JSON(h.view(d))
}
