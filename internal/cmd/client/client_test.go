package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/corbtastik/incident-visualizer/internal/cursor"
	"github.com/corbtastik/incident-visualizer/internal/event"
	"github.com/corbtastik/incident-visualizer/internal/feed"
)

const (
	k1 = "000000000000000000000001"
	k2 = "000000000000000000000002"
	k3 = "000000000000000000000003"
)

// newStubServer serves a bootstrap at k1, then one page with k2 and k3,
// then empty pages.
func newStubServer(t *testing.T) *httptest.Server {
	t.Helper()
	var tails atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/live/business/bootstrap", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"category":"business","cursor":"` + k1 + `","empty":false}`))
	})
	mux.HandleFunc("/v1/live/business", func(w http.ResponseWriter, r *http.Request) {
		if tails.Add(1) == 1 && r.URL.Query().Get("after") == k1 {
			_, _ = w.Write([]byte(`{"items":[` +
				`{"key":"` + k2 + `","fields":{"city":"Austin"}},` +
				`{"key":"` + k3 + `","fields":{"city":"Boise"}}],` +
				`"nextCursor":"` + k3 + `","count":2,"scanned":2}`))
			return
		}
		_, _ = w.Write([]byte(`{"items":[],"nextCursor":"` + r.URL.Query().Get("after") + `","count":0,"scanned":0}`))
	})
	mux.HandleFunc("/v1/debug/business", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"category":"business","count":3,"hasData":true}`))
	})
	mux.HandleFunc("/v1/debug/nope", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"unsupported category \"nope\"","code":"unsupported_category"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFeedTailPrintsRecords(t *testing.T) {
	srv := newStubServer(t)
	cmd := NewRoot(func() string { return srv.URL })
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"feed", "tail", "--category", "business", "--interval", "5ms", "--limit", "2"})

	done := make(chan error, 1)
	go func() { done <- cmd.Execute() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("execute: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("tail did not stop after --limit")
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("output = %q", out.String())
	}
	var ev struct {
		Key      string         `json:"key"`
		Category string         `json:"category"`
		Fields   map[string]any `json:"fields"`
	}
	if err := json.Unmarshal([]byte(lines[1]), &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Key != k3 || ev.Category != "business" || ev.Fields["city"] != "Boise" {
		t.Fatalf("event = %+v", ev)
	}
	if !strings.Contains(errOut.String(), "business") {
		t.Fatalf("status output = %q", errOut.String())
	}
}

func TestFeedTailRequiresCategory(t *testing.T) {
	cmd := NewRoot(func() string { return "http://127.0.0.1:1" })
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"feed", "tail"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected missing --category error")
	}
}

func TestDebugCommand(t *testing.T) {
	srv := newStubServer(t)
	cmd := NewRoot(func() string { return srv.URL })
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"debug", "business"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out.String(), `"count": 3`) {
		t.Fatalf("output = %q", out.String())
	}

	cmd = NewRoot(func() string { return srv.URL })
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"debug", "nope"})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "unsupported category") {
		t.Fatalf("err = %v", err)
	}
}

func TestWatchFeedsFromFlags(t *testing.T) {
	cmd := newFeedWatchCommand(func() string { return "grpc://127.0.0.1:4001" })
	if err := cmd.ParseFlags([]string{"--category", "business,federal", "--filter", "true", "--no-lifecycle"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	feeds, err := watchFeeds(cmd, func() string { return "grpc://127.0.0.1:4001" })
	if err != nil {
		t.Fatalf("feeds: %v", err)
	}
	if len(feeds) != 2 || feeds[1].Category != "federal" || feeds[1].Endpoint != "grpc://127.0.0.1:4001" {
		t.Fatalf("feeds = %+v", feeds)
	}
	if feeds[0].Filter != "true" || feeds[0].Lifecycle.Enabled {
		t.Fatalf("feed = %+v", feeds[0])
	}

	cmd = newFeedWatchCommand(EndpointFromEnv)
	feeds, err = watchFeeds(cmd, EndpointFromEnv)
	if err != nil || len(feeds) != 5 || !feeds[0].Lifecycle.Enabled {
		t.Fatalf("default feeds = %+v, %v", feeds, err)
	}
}

func TestWatchFeedsFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "incidents.yaml")
	body := "feeds:\n  - endpoint: http://127.0.0.1:4000\n    category: consumer\n    interval: 1s\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cmd := newFeedWatchCommand(EndpointFromEnv)
	if err := cmd.ParseFlags([]string{"--config", path}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	feeds, err := watchFeeds(cmd, EndpointFromEnv)
	if err != nil {
		t.Fatalf("feeds: %v", err)
	}
	if len(feeds) != 1 || feeds[0].Category != "consumer" || feeds[0].Interval != time.Second {
		t.Fatalf("feeds = %+v", feeds)
	}
}

func TestEndpointFromEnv(t *testing.T) {
	t.Setenv("INCIDENTS_ENDPOINT", "")
	if got := EndpointFromEnv(); got != DefaultEndpoint {
		t.Fatalf("default = %q", got)
	}
	t.Setenv("INCIDENTS_ENDPOINT", "grpc://10.0.0.5:4001")
	if got := EndpointFromEnv(); got != "grpc://10.0.0.5:4001" {
		t.Fatalf("env = %q", got)
	}
	if httpBase("localhost:4000/") != "http://localhost:4000" {
		t.Fatalf("httpBase = %q", httpBase("localhost:4000/"))
	}
}

// countingTransport serves one record per tail, keys 1..total, then idles.
type countingTransport struct {
	total int
	tails atomic.Int32
}

func (c *countingTransport) Bootstrap(context.Context, string) (feed.BootstrapResult, error) {
	return feed.BootstrapResult{Cursor: cursor.Int64Key(0)}, nil
}

func (c *countingTransport) Tail(_ context.Context, req feed.TailRequest) (feed.Page, error) {
	n := int(c.tails.Add(1))
	if n > c.total {
		return feed.Page{NextCursor: req.Cursor}, nil
	}
	k := cursor.Int64Key(int64(n))
	return feed.Page{Items: []event.Event{{Key: k, Fields: map[string]any{"n": n}}}, NextCursor: k, Count: 1}, nil
}

func (c *countingTransport) Close() error { return nil }

// stallWriter blocks its first write for delay.
type stallWriter struct {
	delay time.Duration
	once  sync.Once
	buf   bytes.Buffer
}

func (w *stallWriter) Write(p []byte) (int, error) {
	w.once.Do(func() { time.Sleep(w.delay) })
	return w.buf.Write(p)
}

func TestTailKeepsEveryRecordWithSlowOutput(t *testing.T) {
	const total = 60
	p := feed.NewPoller(&countingTransport{total: total}, feed.Options{Category: "business", Interval: time.Millisecond}, nil)
	out := &stallWriter{delay: 300 * time.Millisecond}

	done := make(chan error, 1)
	go func() { done <- tail(context.Background(), p, total, out, io.Discard) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("tail: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("tail did not reach --limit")
	}

	lines := strings.Split(strings.TrimSpace(out.buf.String()), "\n")
	if len(lines) != total {
		t.Fatalf("printed %d of %d records", len(lines), total)
	}
	for i, line := range lines {
		var ev struct {
			Fields map[string]any `json:"fields"`
		}
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("line %d: %v", i, err)
		}
		if n, _ := ev.Fields["n"].(float64); int(n) != i+1 {
			t.Fatalf("line %d = %s", i, line)
		}
	}
}
