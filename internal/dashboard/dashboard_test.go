package dashboard

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/corbtastik/incident-visualizer/internal/config"
	"github.com/corbtastik/incident-visualizer/internal/cursor"
	"github.com/corbtastik/incident-visualizer/internal/event"
	"github.com/corbtastik/incident-visualizer/internal/feed"
)

type idleTransport struct{ boots *atomic.Int32 }

func (t idleTransport) Bootstrap(context.Context, string) (feed.BootstrapResult, error) {
	if t.boots != nil {
		t.boots.Add(1)
	}
	return feed.BootstrapResult{Empty: true}, nil
}

func (idleTransport) Tail(_ context.Context, req feed.TailRequest) (feed.Page, error) {
	return feed.Page{NextCursor: req.Cursor}, nil
}

func (idleTransport) Close() error { return nil }

func incident(n int64, typ string) event.Event {
	return event.Event{Key: cursor.Int64Key(n), Fields: map[string]any{"serviceIssue": map[string]any{"type": typ}}}
}

func TestBuildRowCounts(t *testing.T) {
	buffered := []event.Event{incident(1, "fiber"), incident(2, "fiber"), incident(3, "edge")}
	r := BuildRow(feed.State{Category: "business"}, buffered, nil, false)
	if r.Live != -1 || r.Buffered != 3 {
		t.Fatalf("row = %+v", r)
	}
	if len(r.Counts) != 2 || r.Counts[0].Type != "fiber" || r.Counts[0].Value != 2 {
		t.Fatalf("counts = %+v", r.Counts)
	}

	live := []event.Event{incident(3, "edge")}
	r = BuildRow(feed.State{Category: "business"}, buffered, live, true)
	if r.Live != 1 || len(r.Counts) != 1 || r.Counts[0].Type != "edge" {
		t.Fatalf("lifecycle row = %+v", r)
	}
}

func TestBuildRowTopTypes(t *testing.T) {
	var evs []event.Event
	for i, typ := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		evs = append(evs, incident(int64(i+1), typ))
	}
	if r := BuildRow(feed.State{}, evs, nil, false); len(r.Counts) != topTypes {
		t.Fatalf("counts = %d", len(r.Counts))
	}
}

func newHub(t *testing.T, cats ...string) *feed.Hub {
	t.Helper()
	h := feed.NewHub()
	for _, c := range cats {
		if err := h.Add(feed.NewPoller(idleTransport{}, feed.Options{Category: c}, nil)); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	return h
}

func TestModelNavigationAndView(t *testing.T) {
	h := newHub(t, "business", "federal")
	m := New(context.Background(), h, time.Second)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	if m.selected != 1 {
		t.Fatalf("selected = %d", m.selected)
	}
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	if next.(Model).selected != 1 {
		t.Fatal("selection ran past the last feed")
	}

	next, cmd := m.Update(tickMsg(time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)))
	if cmd == nil {
		t.Fatal("tick did not reschedule")
	}
	view := next.(Model).View()
	for _, want := range []string{"business", "federal", "idle", "09:30:00"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q did not quit")
	}
}

func TestRestartSelectedFeed(t *testing.T) {
	var boots atomic.Int32
	h := feed.NewHub()
	if err := h.Add(feed.NewPoller(idleTransport{boots: &boots}, feed.Options{Category: "business", Interval: 5 * time.Millisecond}, nil)); err != nil {
		t.Fatalf("add: %v", err)
	}
	t.Cleanup(func() { _ = h.Stop() })

	m := New(context.Background(), h, time.Second)
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	deadline := time.Now().Add(3 * time.Second)
	for boots.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("restart did not start the poller")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestViewShowsFeedEndpoint(t *testing.T) {
	f := config.DefaultFeed("http://incidents-a:4000", "http", "business")
	h, err := feed.FromConfig([]config.Feed{f}, nil, nil)
	if err != nil {
		t.Fatalf("from config: %v", err)
	}
	t.Cleanup(func() { _ = h.Stop() })

	rows := Snapshot(h)
	if len(rows) != 1 || rows[0].Endpoint != "http://incidents-a:4000" {
		t.Fatalf("rows = %+v", rows)
	}
	if view := New(context.Background(), h, time.Second).View(); !strings.Contains(view, "incidents-a:4000") {
		t.Fatalf("view missing endpoint:\n%s", view)
	}
}
