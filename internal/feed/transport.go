package feed

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/corbtastik/incident-visualizer/internal/cursor"
	"github.com/corbtastik/incident-visualizer/internal/event"
)

var (
	// ErrTransport covers network failures, timeouts and non-success responses.
	ErrTransport = errors.New("feed: transport failure")
	// ErrDecode marks a response body that could not be parsed.
	ErrDecode = errors.New("feed: malformed response")
	// ErrUnsupportedCategory is the server rejecting the category. Pollers
	// do not retry it.
	ErrUnsupportedCategory = errors.New("feed: unsupported category")
)

// BootstrapResult is the server's starting point for a category.
type BootstrapResult struct {
	Cursor cursor.Key `json:"cursor"`
	Empty  bool       `json:"empty"`
}

// TailRequest is one page request. A zero Cursor is never sent by a Poller.
type TailRequest struct {
	Category string
	Cursor   cursor.Key
	Limit    int
	Filter   string
}

// Page is one tail response.
type Page struct {
	Items      []event.Event `json:"items"`
	NextCursor cursor.Key    `json:"nextCursor"`
	Count      int           `json:"count"`
	Scanned    int           `json:"scanned"`
	ServerTime string        `json:"serverTime"`
}

// Transport issues bootstrap and tail calls to a server.
type Transport interface {
	Bootstrap(ctx context.Context, category string) (BootstrapResult, error)
	Tail(ctx context.Context, req TailRequest) (Page, error)
	Close() error
}

// DefaultTimeout bounds a single request.
const DefaultTimeout = 10 * time.Second

// Dial builds a Transport for endpoint. kind is "http" or "grpc"; when empty
// it is inferred from the scheme (grpc:// selects gRPC, anything else HTTP).
func Dial(endpoint, kind string) (Transport, error) {
	if endpoint == "" {
		return nil, errors.New("feed: endpoint is required")
	}
	if kind == "" {
		kind = "http"
		if strings.HasPrefix(endpoint, "grpc://") {
			kind = "grpc"
		}
	}
	switch kind {
	case "http":
		if !strings.Contains(endpoint, "://") {
			endpoint = "http://" + endpoint
		}
		return NewHTTPTransport(endpoint, nil)
	case "grpc":
		target := strings.TrimPrefix(endpoint, "grpc://")
		if u, err := url.Parse(endpoint); err == nil && u.Scheme != "" && u.Scheme != "grpc" {
			target = u.Host
		}
		return NewGRPCTransport(target)
	default:
		return nil, fmt.Errorf("feed: unknown transport %q", kind)
	}
}

// emptyPage is the response to a body-less success: nothing new, cursor
// unchanged.
func emptyPage(after cursor.Key) Page {
	return Page{Items: []event.Event{}, NextCursor: after}
}
