// Package audit records who did what to which tenant. Events are filled
// from the request context by extractors (tenant, request id, client IP)
// and written to a pluggable Storage.
//
//	log := audit.NewLogger(storage,
//	    audit.WithTenantExtractor(tenant.IDFromContext),
//	    audit.WithRequestIDExtractor(audit.NonEmpty(requestid.FromContext)),
//	    audit.WithIPExtractor(audit.NonEmpty(clientip.FromContext)),
//	)
//	_ = log.Log(ctx, "domain.added", audit.WithResource("domain", "12"))
//
// Events for platform operations that run without a bound tenant name
// their tenant with WithTenant.
package audit
