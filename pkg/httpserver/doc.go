// Package httpserver serves the worker's operational endpoints: Prometheus
// metrics plus liveness and readiness endpoints.
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	handler := httpserver.NewRouter(registry, log, map[string]httpserver.Check{
//		"postgres": pg.Healthcheck(pool),
//	})
//	if err := srv.Run(ctx, handler); err != nil {
//		// handle error
//	}
//
// Run blocks until ctx is cancelled and then shuts the server down within
// the configured timeout.
package httpserver
