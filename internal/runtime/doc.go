// Package runtime wires the configured storage backend, the category
// registry and metrics into a single server instance. It exposes
// Open/Close, health checks and background maintenance.
//
// Example:
//
//	cfg := config.Default()
//	rt, err := runtime.Open(ctx, runtime.Options{Config: cfg, Logger: logger, Metrics: metrics.New()})
//	if err != nil { /* handle */ }
//	defer rt.Close()
//	rt.Start(ctx)
//	_ = rt.CheckHealth(ctx)
package runtime
