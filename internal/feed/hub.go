package feed

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/corbtastik/incident-visualizer/internal/config"
	"github.com/corbtastik/incident-visualizer/internal/filter"
	"github.com/corbtastik/incident-visualizer/internal/lifecycle"
	logpkg "github.com/corbtastik/incident-visualizer/pkg/log"
)

// Hub holds independent pollers keyed by category. Pollers share nothing.
type Hub struct {
	mu      sync.Mutex
	pollers map[string]*Poller
	targets map[string]target
}

// target is a transport the hub dialed for one category.
type target struct {
	endpoint string
	kind     string
	t        Transport
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{pollers: make(map[string]*Poller), targets: make(map[string]target)}
}

// Add registers p under its category. A second poller for the same
// category is rejected.
func (h *Hub) Add(p *Poller) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	cat := p.Category()
	if _, dup := h.pollers[cat]; dup {
		return fmt.Errorf("feed: duplicate poller for category %q", cat)
	}
	h.pollers[cat] = p
	return nil
}

// Get returns the poller for category.
func (h *Hub) Get(category string) (*Poller, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.pollers[category]
	return p, ok
}

// Pollers returns the pollers sorted by category.
func (h *Hub) Pollers() []*Poller {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Poller, 0, len(h.pollers))
	for _, p := range h.pollers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category() < out[j].Category() })
	return out
}

// Start starts every poller.
func (h *Hub) Start(ctx context.Context) {
	for _, p := range h.Pollers() {
		p.Start(ctx)
	}
}

// Stop stops every poller and closes transports the hub dialed.
func (h *Hub) Stop() error {
	for _, p := range h.Pollers() {
		p.Stop()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	var errs []error
	for cat, tg := range h.targets {
		errs = append(errs, tg.t.Close())
		delete(h.targets, cat)
	}
	return errors.Join(errs...)
}

// Endpoint returns the endpoint the hub dialed for category, or "" for
// pollers added with their own transport.
func (h *Hub) Endpoint(category string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.targets[category].endpoint
}

// Retarget points the category's poller at a new endpoint. The poller
// restarts from a fresh bootstrap and the previous hub-owned transport is
// closed. An unchanged endpoint and kind is a no-op.
func (h *Hub) Retarget(ctx context.Context, category, endpoint, kind string) error {
	p, ok := h.Get(category)
	if !ok {
		return fmt.Errorf("feed: no poller for category %q", category)
	}
	h.mu.Lock()
	old, owned := h.targets[category]
	h.mu.Unlock()
	if owned && old.endpoint == endpoint && old.kind == kind {
		return nil
	}
	t, err := Dial(endpoint, kind)
	if err != nil {
		return err
	}
	p.Retarget(ctx, t)

	h.mu.Lock()
	h.targets[category] = target{endpoint: endpoint, kind: kind, t: t}
	h.mu.Unlock()
	if owned {
		return old.t.Close()
	}
	return nil
}

// Apply retargets every poller whose feed endpoint or transport changed.
// Feeds for categories the hub does not run are ignored; other feed
// settings take effect when the hub is rebuilt.
func (h *Hub) Apply(ctx context.Context, feeds []config.Feed) error {
	var errs []error
	for _, f := range feeds {
		if _, ok := h.Get(f.Category); !ok {
			continue
		}
		if err := h.Retarget(ctx, f.Category, f.Endpoint, f.Transport); err != nil {
			errs = append(errs, fmt.Errorf("feed %s: %w", f.Category, err))
		}
	}
	return errors.Join(errs...)
}

// States returns each poller's state, sorted by category.
func (h *Hub) States() []State {
	ps := h.Pollers()
	out := make([]State, len(ps))
	for i, p := range ps {
		out[i] = p.State()
	}
	return out
}

// FromConfig dials each feed and builds its poller. Transports are owned by
// the hub and closed by Stop.
func FromConfig(feeds []config.Feed, obs Observer, logger logpkg.Logger) (*Hub, error) {
	h := NewHub()
	for _, f := range feeds {
		opts, err := OptionsFromConfig(f)
		if err != nil {
			_ = h.Stop()
			return nil, fmt.Errorf("feed %s: %w", f.Category, err)
		}
		opts.Observer = obs
		t, err := Dial(f.Endpoint, f.Transport)
		if err != nil {
			_ = h.Stop()
			return nil, err
		}
		if err := h.Add(NewPoller(t, opts, logger)); err != nil {
			_ = t.Close()
			_ = h.Stop()
			return nil, err
		}
		h.targets[f.Category] = target{endpoint: f.Endpoint, kind: f.Transport, t: t}
	}
	return h, nil
}

// OptionsFromConfig translates a feed configuration into poller options.
func OptionsFromConfig(f config.Feed) (Options, error) {
	if err := f.Validate(); err != nil {
		return Options{}, err
	}
	opts := Options{
		Category:  f.Category,
		Interval:  f.Interval,
		PageSize:  f.PageSize,
		BufferCap: f.BufferCap,
		Filter:    f.Filter,
	}
	if f.Backoff {
		opts.Backoff = Backoff{Max: 16 * opts.withDefaults().Interval}
	}
	if lc := f.Lifecycle; lc.Enabled {
		lo := &lifecycle.Options{
			TTLMin:        lc.TTLMin,
			TTLMax:        lc.TTLMax,
			PruneInterval: lc.PruneInterval,
			MaxEntries:    lc.MaxEntries,
		}
		if lc.Admit != "" {
			admit, err := filter.Compile(lc.Admit)
			if err != nil {
				return Options{}, fmt.Errorf("lifecycle admit: %w", err)
			}
			lo.Admit = admit.Match
		}
		opts.Lifecycle = lo
	}
	return opts, nil
}
