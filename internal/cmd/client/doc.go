// Package client provides the `incidents` client commands.
//
// The commands talk to an incidents server over its HTTP gateway or gRPC
// service. The default endpoint comes from INCIDENTS_ENDPOINT
// (http://127.0.0.1:4000 when unset); a grpc:// endpoint selects gRPC.
//
// Usage
//
//	# Print new business incidents as JSON lines, status on stderr
//	incidents feed tail --category business
//
//	# Server-side filter over gRPC
//	incidents feed tail --endpoint grpc://127.0.0.1:4001 \
//	    --category federal --filter 'issue_type in ["fiber", "edge"]'
//
//	# Terminal dashboard for every category, or feeds from a config file
//	incidents feed watch
//	incidents feed watch --config incidents.yaml
//
//	# Collection diagnostics
//	incidents debug business
package client
