package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/corbtastik/incident-visualizer/internal/config"
	"github.com/corbtastik/incident-visualizer/internal/cursor"
	"github.com/corbtastik/incident-visualizer/internal/event"
)

// liveServer bootstraps business at boot and serves one record, item, on
// the first tail after it.
func liveServer(t *testing.T, boot, item byte) (string, *atomic.Int32) {
	t.Helper()
	var boots atomic.Int32
	var served atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/live/business/bootstrap", func(w http.ResponseWriter, r *http.Request) {
		boots.Add(1)
		_, _ = w.Write([]byte(`{"cursor":"` + cursor.Encode(key(boot)) + `","empty":false}`))
	})
	mux.HandleFunc("/v1/live/business", func(w http.ResponseWriter, r *http.Request) {
		after := r.URL.Query().Get("after")
		if after == cursor.Encode(key(boot)) && served.CompareAndSwap(false, true) {
			k := cursor.Encode(key(item))
			_, _ = w.Write([]byte(`{"items":[{"key":"` + k + `","fields":{}}],"nextCursor":"` + k + `","count":1,"scanned":1}`))
			return
		}
		_, _ = w.Write([]byte(`{"items":[],"nextCursor":"` + after + `","count":0,"scanned":0}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv.URL, &boots
}

func TestHubRejectsDuplicateCategory(t *testing.T) {
	h := NewHub()
	if err := h.Add(NewPoller(&fakeTransport{}, Options{Category: "business"}, nil)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := h.Add(NewPoller(&fakeTransport{}, Options{Category: "business"}, nil)); err == nil {
		t.Fatal("expected duplicate error")
	}
	if err := h.Add(NewPoller(&fakeTransport{}, Options{Category: "consumer"}, nil)); err != nil {
		t.Fatalf("add: %v", err)
	}
	states := h.States()
	if len(states) != 2 || states[0].Category != "business" || states[1].Category != "consumer" {
		t.Fatalf("states = %+v", states)
	}
	if _, ok := h.Get("consumer"); !ok {
		t.Fatal("consumer poller missing")
	}
}

func TestFromConfig(t *testing.T) {
	feeds := []config.Feed{
		config.DefaultFeed("http://localhost:4000", "", "business"),
		config.DefaultFeed("grpc://localhost:4001", "", "federal"),
	}
	h, err := FromConfig(feeds, nil, nil)
	if err != nil {
		t.Fatalf("from config: %v", err)
	}
	defer h.Stop()
	ps := h.Pollers()
	if len(ps) != 2 || ps[0].Category() != "business" || ps[1].Category() != "federal" {
		t.Fatalf("pollers = %d", len(ps))
	}
	if _, ok := ps[1].transport.(*GRPCTransport); !ok {
		t.Fatalf("federal transport = %T", ps[1].transport)
	}

	dup := append(feeds, config.DefaultFeed("http://localhost:4000", "", "business"))
	if _, err := FromConfig(dup, nil, nil); err == nil {
		t.Fatal("expected duplicate category error")
	}
}

func TestOptionsFromConfig(t *testing.T) {
	f := config.DefaultFeed("http://localhost:4000", "http", "business")
	f.Interval = 500 * time.Millisecond
	f.Backoff = true
	f.Lifecycle.Enabled = true
	f.Lifecycle.TTLMin = time.Second
	f.Lifecycle.Admit = `issue_type == "outage"`

	opts, err := OptionsFromConfig(f)
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opts.Backoff.Max != 8*time.Second {
		t.Fatalf("backoff max = %s", opts.Backoff.Max)
	}
	if opts.Lifecycle == nil || opts.Lifecycle.TTLMin != time.Second || opts.Lifecycle.Admit == nil {
		t.Fatalf("lifecycle = %+v", opts.Lifecycle)
	}
	outage := event.Event{Key: key(1), Fields: map[string]any{"serviceIssue": map[string]any{"type": "outage"}}}
	if !opts.Lifecycle.Admit(outage) {
		t.Fatal("admit rejected matching event")
	}

	f.Lifecycle.Admit = "issue_type =="
	if _, err := OptionsFromConfig(f); err == nil {
		t.Fatal("expected admit compile error")
	}
}

func TestHubApplyRetargetsChangedEndpoint(t *testing.T) {
	oldURL, _ := liveServer(t, 10, 11)
	newURL, newBoots := liveServer(t, 1, 2)

	f := config.DefaultFeed(oldURL, "http", "business")
	f.Interval = 5 * time.Millisecond
	h, err := FromConfig([]config.Feed{f}, nil, nil)
	if err != nil {
		t.Fatalf("from config: %v", err)
	}
	defer h.Stop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.Start(ctx)
	p, _ := h.Get("business")
	waitFor(t, "old endpoint delivery", func() bool { return p.State().Cursor == key(11) })

	f.Endpoint = newURL
	if err := h.Apply(ctx, []config.Feed{f, config.DefaultFeed(newURL, "http", "federal")}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := h.Endpoint("business"); got != newURL {
		t.Fatalf("endpoint = %s", got)
	}
	waitFor(t, "new endpoint delivery", func() bool { return p.State().Cursor == key(2) })
	evs := p.Events()
	if len(evs) != 1 || evs[0].Key != key(2) || p.State().TotalReceived != 1 {
		t.Fatalf("events after retarget = %+v", evs)
	}

	// Re-applying the same endpoint leaves the running poller alone.
	if err := h.Apply(ctx, []config.Feed{f}); err != nil {
		t.Fatalf("reapply: %v", err)
	}
	if n := newBoots.Load(); n != 1 {
		t.Fatalf("bootstraps on new endpoint = %d", n)
	}
	if err := h.Retarget(ctx, "federal", newURL, ""); err == nil {
		t.Fatal("expected error for unknown category")
	}
}
