// Package lifecycle ages events out of a client-side view on a synthetic,
// per-entry time-to-live, with a global size cap.
package lifecycle

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/corbtastik/incident-visualizer/internal/cursor"
	"github.com/corbtastik/incident-visualizer/internal/event"
)

// Defaults mirror the dashboard's demo settings.
const (
	DefaultTTLMin        = 10 * time.Second
	DefaultTTLMax        = 60 * time.Second
	DefaultPruneInterval = 2 * time.Second
	DefaultMaxEntries    = 80000
)

// Entry is an admitted event with its synthetic lifetime.
type Entry struct {
	Event     event.Event
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Options configures a Cache. Zero durations and sizes take the defaults.
type Options struct {
	TTLMin        time.Duration
	TTLMax        time.Duration
	PruneInterval time.Duration
	MaxEntries    int
	// Admit selects which events are aged; nil admits all.
	Admit func(event.Event) bool
	// OnPrune observes each prune pass.
	OnPrune func(expired, evicted, size int)
	Now     func() time.Time
	Rand    *rand.Rand
}

func (o Options) withDefaults() Options {
	if o.TTLMin <= 0 {
		o.TTLMin = DefaultTTLMin
	}
	if o.TTLMax <= 0 {
		o.TTLMax = DefaultTTLMax
	}
	if o.TTLMax < o.TTLMin {
		o.TTLMax = o.TTLMin
	}
	if o.PruneInterval <= 0 {
		o.PruneInterval = DefaultPruneInterval
	}
	if o.MaxEntries <= 0 {
		o.MaxEntries = DefaultMaxEntries
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return o
}

// Cache holds one entry per unique key. Timestamps are fixed at first sight;
// re-delivery of a key never extends its life.
type Cache struct {
	opts Options

	mu      sync.Mutex
	entries map[cursor.Key]*Entry
}

// New builds a Cache.
func New(opts Options) *Cache {
	return &Cache{opts: opts.withDefaults(), entries: make(map[cursor.Key]*Entry)}
}

// Options returns the effective options.
func (c *Cache) Options() Options { return c.opts }

// Observe admits events not seen before and returns how many were added.
func (c *Cache) Observe(evs ...event.Event) int {
	if len(evs) == 0 {
		return 0
	}
	now := c.opts.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	added := 0
	for _, ev := range evs {
		if _, seen := c.entries[ev.Key]; seen {
			continue
		}
		if c.opts.Admit != nil && !c.opts.Admit(ev) {
			continue
		}
		c.entries[ev.Key] = &Entry{Event: ev, CreatedAt: now, ExpiresAt: now.Add(c.ttl())}
		added++
	}
	return added
}

// ttl draws uniformly from [TTLMin, TTLMax]. Caller holds c.mu, which also
// serializes access to the rand source.
func (c *Cache) ttl() time.Duration {
	span := int64(c.opts.TTLMax - c.opts.TTLMin)
	if span <= 0 {
		return c.opts.TTLMin
	}
	return c.opts.TTLMin + time.Duration(c.opts.Rand.Int63n(span+1))
}

// Prune removes entries with ExpiresAt <= now, then, while over MaxEntries,
// removes the entries expiring soonest.
func (c *Cache) Prune(now time.Time) (expired, evicted int) {
	c.mu.Lock()
	for k, e := range c.entries {
		if !e.ExpiresAt.After(now) {
			delete(c.entries, k)
			expired++
		}
	}
	if over := len(c.entries) - c.opts.MaxEntries; over > 0 {
		byExpiry := make([]*Entry, 0, len(c.entries))
		for _, e := range c.entries {
			byExpiry = append(byExpiry, e)
		}
		sort.Slice(byExpiry, func(i, j int) bool {
			a, b := byExpiry[i], byExpiry[j]
			if !a.ExpiresAt.Equal(b.ExpiresAt) {
				return a.ExpiresAt.Before(b.ExpiresAt)
			}
			return cursor.Compare(a.Event.Key, b.Event.Key) < 0
		})
		for _, e := range byExpiry[:over] {
			delete(c.entries, e.Event.Key)
		}
		evicted = over
	}
	size := len(c.entries)
	c.mu.Unlock()
	if c.opts.OnPrune != nil {
		c.opts.OnPrune(expired, evicted, size)
	}
	return expired, evicted
}

// Run prunes on PruneInterval until ctx is done.
func (c *Cache) Run(ctx context.Context) {
	t := time.NewTicker(c.opts.PruneInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.Prune(c.opts.Now())
		}
	}
}

// Snapshot returns copies of all entries ordered by CreatedAt, then key.
func (c *Cache) Snapshot() []Entry {
	c.mu.Lock()
	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, *e)
	}
	c.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return cursor.Compare(out[i].Event.Key, out[j].Event.Key) < 0
	})
	return out
}

// Get returns the entry for key.
func (c *Cache) Get(key cursor.Key) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Reset drops all entries.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cursor.Key]*Entry)
}
