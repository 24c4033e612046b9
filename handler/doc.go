// Package handler provides type-safe JSON HTTP handlers.
//
// A HandlerFunc receives a request struct populated by binders and returns
// a Response. Wrap adapts it to http.HandlerFunc:
//
//	type AddDomainRequest struct {
//		Hostname string `json:"hostname"`
//	}
//
//	func addDomain(ctx handler.Context, req AddDomainRequest) handler.Response {
//		t, _ := ctx.Tenant()
//		d, err := domains.Add(ctx, t.ID, req.Hostname)
//		if err != nil {
//			return handler.JSONError(err)
//		}
//		return handler.JSON(d, handler.WithJSONStatus(http.StatusCreated))
//	}
//
//	r.Post("/domains", handler.Wrap(addDomain,
//		handler.WithBinders[AddDomainRequest](binder.JSON()),
//		handler.WithErrorHandler[AddDomainRequest](errHandler),
//	))
//
// Errors are carried as HTTPError values with a status code and a stable key,
// or as ValidationError for per-field messages. JSONError renders both into
// the {"error": {...}} envelope; other errors render as 500 without leaking
// their message. NewErrorHandler combines a Classifier, which maps domain
// errors to HTTPError, with structured logging of every failed request.
package handler
