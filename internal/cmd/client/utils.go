package client

import (
	"os"
	"strings"
)

// EndpointFunc provides the default server endpoint (e.g., from env).
type EndpointFunc func() string

// DefaultEndpoint is used when INCIDENTS_ENDPOINT is unset.
const DefaultEndpoint = "http://127.0.0.1:4000"

// EndpointFromEnv returns INCIDENTS_ENDPOINT or DefaultEndpoint.
func EndpointFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("INCIDENTS_ENDPOINT")); v != "" {
		return v
	}
	return DefaultEndpoint
}

// httpBase normalises an endpoint for plain HTTP calls.
func httpBase(endpoint string) string {
	endpoint = strings.TrimRight(endpoint, "/")
	if !strings.Contains(endpoint, "://") {
		return "http://" + endpoint
	}
	return endpoint
}
