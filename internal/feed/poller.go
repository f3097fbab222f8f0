package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/corbtastik/incident-visualizer/internal/buffer"
	"github.com/corbtastik/incident-visualizer/internal/cursor"
	"github.com/corbtastik/incident-visualizer/internal/event"
	"github.com/corbtastik/incident-visualizer/internal/lifecycle"
	logpkg "github.com/corbtastik/incident-visualizer/pkg/log"
)

// Poller defaults.
const (
	DefaultInterval  = 2 * time.Second
	DefaultPageSize  = 200
	DefaultBufferCap = 8000
)

// subscriberBuffer is the per-subscriber channel depth; updates beyond it
// are dropped for Subscribe readers.
const subscriberBuffer = 16

// Backoff stretches the wait after consecutive failures. A zero Max keeps
// the fixed interval.
type Backoff struct {
	Max time.Duration
}

// Options configures a Poller. Zero values take the defaults.
type Options struct {
	Category  string
	Interval  time.Duration
	PageSize  int
	BufferCap int
	// Filter is a server-side CEL expression sent with every tail.
	Filter string
	// Lifecycle enables the synthetic-TTL cache when non-nil.
	Lifecycle *lifecycle.Options
	Backoff   Backoff
	Observer  Observer
	Now       func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.BufferCap <= 0 {
		o.BufferCap = DefaultBufferCap
	}
	if o.Observer == nil {
		o.Observer = nopObserver{}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Poller tails one category. At most one request is outstanding at a time.
type Poller struct {
	id     string
	logger logpkg.Logger

	mu        sync.Mutex
	transport Transport
	opts      Options
	state     State
	buf       *buffer.Rolling[event.Event]
	life      *lifecycle.Cache
	subs      map[*subscriber]struct{}

	// run guards the loop handle.
	run    sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller builds a stopped poller.
func NewPoller(t Transport, opts Options, logger logpkg.Logger) *Poller {
	if logger == nil {
		logger = logpkg.NewNop()
	}
	opts = opts.withDefaults()
	id := uuid.NewString()
	p := &Poller{
		id:        id,
		transport: t,
		logger:    logger.WithComponent("feed").With(logpkg.Str(logpkg.FeedIDKey, id)),
		opts:      opts,
		buf:       buffer.New[event.Event](opts.BufferCap),
		subs:      make(map[*subscriber]struct{}),
	}
	p.resetLocked(opts.Category)
	return p
}

// ID identifies this poller instance in logs.
func (p *Poller) ID() string { return p.id }

// Category returns the current target category.
func (p *Poller) Category() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opts.Category
}

// Start begins polling the configured category, restarting any running loop.
func (p *Poller) Start(ctx context.Context) {
	p.Restart(ctx, p.Category())
}

// Restart cancels any running loop and waits for it, discards the cursor
// and buffered events, then starts polling category.
func (p *Poller) Restart(ctx context.Context, category string) {
	p.restart(ctx, category, nil)
}

// Retarget is Restart on the current category against a different server.
// The in-flight request is cancelled before t is used; the old transport is
// left for the caller to close.
func (p *Poller) Retarget(ctx context.Context, t Transport) {
	p.restart(ctx, p.Category(), t)
}

// restart swaps in t when non-nil.
func (p *Poller) restart(ctx context.Context, category string, t Transport) {
	p.run.Lock()
	defer p.run.Unlock()
	p.stopLocked()

	p.mu.Lock()
	if t != nil {
		p.transport = t
	}
	p.resetLocked(category)
	life, tr := p.life, p.transport
	p.mu.Unlock()

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel, p.done = cancel, done
	if life != nil {
		go life.Run(loopCtx)
	}
	go func() {
		defer close(done)
		p.loop(loopCtx, category, tr)
	}()
}

// Stop cancels the loop and waits for it to exit. State and buffers remain
// readable.
func (p *Poller) Stop() {
	p.run.Lock()
	defer p.run.Unlock()
	p.stopLocked()
}

func (p *Poller) stopLocked() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	p.cancel, p.done = nil, nil
}

// resetLocked clears state for category. Caller holds p.mu (or owns p).
func (p *Poller) resetLocked(category string) {
	p.opts.Category = category
	p.state = State{FeedID: p.id, Category: category, Status: StatusIdle, UpdatedAt: p.opts.Now()}
	p.buf.Reset()
	p.life = nil
	if p.opts.Lifecycle != nil {
		lo := *p.opts.Lifecycle
		obs, prev := p.opts.Observer, lo.OnPrune
		lo.OnPrune = func(expired, evicted, size int) {
			obs.ObservePrune(category, expired, evicted, size)
			if prev != nil {
				prev(expired, evicted, size)
			}
		}
		p.life = lifecycle.New(lo)
	}
}

// State returns a copy of the current state.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Events returns the rolling buffer contents, oldest first.
func (p *Poller) Events() []event.Event {
	return p.buf.Snapshot()
}

// Lifecycle returns the lifecycle snapshot, or nil when disabled.
func (p *Poller) Lifecycle() []lifecycle.Entry {
	p.mu.Lock()
	life := p.life
	p.mu.Unlock()
	if life == nil {
		return nil
	}
	return life.Snapshot()
}

type subscriber struct {
	ctx      context.Context
	lossless bool

	mu     sync.Mutex
	closed bool
	ch     chan Update
}

// Subscribe returns a channel of updates that closes when ctx is done.
// Slow subscribers miss updates rather than stall the loop.
func (p *Poller) Subscribe(ctx context.Context) <-chan Update {
	return p.subscribe(ctx, false)
}

// Follow is Subscribe without drops: every update is delivered in order and
// the loop waits for the reader before its next request.
func (p *Poller) Follow(ctx context.Context) <-chan Update {
	return p.subscribe(ctx, true)
}

func (p *Poller) subscribe(ctx context.Context, lossless bool) <-chan Update {
	s := &subscriber{ctx: ctx, lossless: lossless, ch: make(chan Update, subscriberBuffer)}
	p.mu.Lock()
	p.subs[s] = struct{}{}
	p.mu.Unlock()
	go func() {
		<-ctx.Done()
		p.mu.Lock()
		delete(p.subs, s)
		p.mu.Unlock()
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
	}()
	return s.ch
}

// snapshotLocked captures an update and its recipients. Caller holds p.mu.
func (p *Poller) snapshotLocked(items []event.Event) (Update, []*subscriber) {
	subs := make([]*subscriber, 0, len(p.subs))
	for s := range p.subs {
		subs = append(subs, s)
	}
	return Update{State: p.state, Items: items}, subs
}

// publish delivers u. Lossless sends block until the reader takes u or
// either context ends. Only the loop goroutine publishes, so order holds.
func publish(ctx context.Context, u Update, subs []*subscriber) {
	for _, s := range subs {
		s.mu.Lock()
		if !s.closed {
			if s.lossless {
				select {
				case s.ch <- u:
				case <-s.ctx.Done():
				case <-ctx.Done():
				}
			} else {
				select {
				case s.ch <- u:
				default:
				}
			}
		}
		s.mu.Unlock()
	}
}

func (p *Poller) loop(ctx context.Context, category string, t Transport) {
	p.logger.Info("feed started", logpkg.Category(category))
	defer p.logger.Info("feed stopped", logpkg.Category(category))

	cur, ok := p.bootstrap(ctx, category, t)
	if !ok {
		return
	}
	failures := 0
	for {
		if !sleep(ctx, p.delay(failures)) {
			return
		}
		page, err := t.Tail(ctx, TailRequest{
			Category: category,
			Cursor:   cur,
			Limit:    p.opts.PageSize,
			Filter:   p.opts.Filter,
		})
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			failures++
			p.fail(ctx, category, err)
			if errors.Is(err, ErrUnsupportedCategory) {
				<-ctx.Done()
				return
			}
			continue
		}
		failures = 0
		cur = p.apply(ctx, category, cur, page)
	}
}

// bootstrap retries until it has a cursor. It returns false when ctx is
// done or the category is unsupported (after parking until ctx is done).
func (p *Poller) bootstrap(ctx context.Context, category string, t Transport) (cursor.Key, bool) {
	failures := 0
	for {
		res, err := t.Bootstrap(ctx, category)
		if ctx.Err() != nil {
			return cursor.Key{}, false
		}
		switch {
		case errors.Is(err, ErrUnsupportedCategory):
			p.fail(ctx, category, err)
			<-ctx.Done()
			return cursor.Key{}, false
		case err != nil:
			failures++
			p.fail(ctx, category, err)
		case res.Empty || res.Cursor.IsZero():
			failures = 0
			p.settle(ctx, category, StatusIdle, cursor.Key{}, nil)
		default:
			p.settle(ctx, category, StatusIdle, res.Cursor, nil)
			p.logger.Debug("bootstrapped", logpkg.Category(category), logpkg.Str("cursor", cursor.Encode(res.Cursor)))
			return res.Cursor, true
		}
		if !sleep(ctx, p.delay(failures)) {
			return cursor.Key{}, false
		}
	}
}

// apply folds a successful page into state and returns the new cursor. Only
// keys strictly after the running cursor are delivered; the cursor never
// moves backward.
func (p *Poller) apply(ctx context.Context, category string, cur cursor.Key, page Page) cursor.Key {
	fresh := make([]event.Event, 0, len(page.Items))
	next := cur
	for _, ev := range page.Items {
		if !ev.Key.After(next) {
			continue
		}
		if ev.Category == "" {
			ev.Category = category
		}
		fresh = append(fresh, ev)
		next = ev.Key
	}
	if page.NextCursor.After(next) {
		next = page.NextCursor
	}
	if len(page.Items) != len(fresh) {
		p.logger.Warn("dropped stale or out-of-order items", logpkg.Category(category),
			logpkg.Int("received", len(page.Items)), logpkg.Int("kept", len(fresh)))
	}
	if len(fresh) == 0 {
		p.settle(ctx, category, StatusIdle, next, nil)
		return next
	}
	p.settle(ctx, category, StatusOK, next, fresh)
	return next
}

// settle records a successful check.
func (p *Poller) settle(ctx context.Context, category string, status Status, cur cursor.Key, fresh []event.Event) {
	p.mu.Lock()
	if len(fresh) > 0 {
		p.buf.Append(fresh...)
		if p.life != nil {
			p.life.Observe(fresh...)
		}
		last := fresh[len(fresh)-1]
		p.state.LastEvent = &last
		p.state.TotalReceived += int64(len(fresh))
	}
	if cur.After(p.state.Cursor) {
		p.state.Cursor = cur
	}
	p.state.Status = status
	p.state.ErrorMessage = ""
	p.state.UpdatedAt = p.opts.Now()
	p.opts.Observer.ObservePoll(category, string(status), len(fresh))
	u, subs := p.snapshotLocked(fresh)
	p.mu.Unlock()
	publish(ctx, u, subs)
}

// fail records a failed check; the cursor is left alone.
func (p *Poller) fail(ctx context.Context, category string, err error) {
	p.mu.Lock()
	p.state.Status = StatusError
	p.state.ErrorMessage = err.Error()
	p.state.UpdatedAt = p.opts.Now()
	p.opts.Observer.ObservePoll(category, string(StatusError), 0)
	u, subs := p.snapshotLocked(nil)
	p.mu.Unlock()
	publish(ctx, u, subs)
	p.logger.Warn("poll failed", logpkg.Category(category), logpkg.Err(err))
}

// delay is the wait before the next request after failures consecutive
// failures.
func (p *Poller) delay(failures int) time.Duration {
	d := p.opts.Interval
	if p.opts.Backoff.Max <= 0 || failures == 0 {
		return d
	}
	for i := 0; i < failures && d < p.opts.Backoff.Max; i++ {
		d *= 2
	}
	if d > p.opts.Backoff.Max {
		d = p.opts.Backoff.Max
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
