// Package grpcserver hosts incidents.v1.LiveService and grpc.health.v1,
// delegating to the shared live service.
//
// Example:
//
//	s := grpcserver.New(rt, svc, logger)
//	_ = s.ListenAndServe(ctx, cfg.Server.GRPCAddr)
package grpcserver
