// Package serverrun starts the incidents server: storage runtime, live
// service, HTTP and gRPC listeners, optional ingest sources and config
// hot reload. It blocks until the context is cancelled.
//
//	cfg, _ := config.Load("incidents.yaml")
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//	_ = serverrun.Run(ctx, serverrun.Options{Config: cfg, ConfigPath: "incidents.yaml"})
package serverrun
