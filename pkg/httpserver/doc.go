// Package httpserver runs an http.Handler until its context is cancelled and
// then shuts down gracefully.
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	g.Go(func() error { return srv.Run(ctx, router) })
//
// HealthCheckHandler turns named dependency checks (pg.Healthcheck,
// redis.Healthcheck) into a JSON readiness endpoint.
package httpserver
