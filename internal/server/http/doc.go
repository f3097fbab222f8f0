// Package httpserver exposes the live service as JSON over a chi router:
// bootstrap, tail and debug per category, plus health, category listing and
// Prometheus metrics.
//
// Example:
//
//	rt, _ := runtime.Open(ctx, runtime.Options{Config: cfg, Metrics: metrics.New()})
//	svc := livesvc.New(rt.Store(), rt.Registry(), livesvc.Options{Metrics: rt.Metrics()}, logger)
//	s := httpserver.New(rt, svc, logger)
//	_ = s.ListenAndServe(ctx, cfg.Server.HTTPAddr)
package httpserver
