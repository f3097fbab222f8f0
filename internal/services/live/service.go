package livesvc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/corbtastik/incident-visualizer/internal/category"
	"github.com/corbtastik/incident-visualizer/internal/cursor"
	"github.com/corbtastik/incident-visualizer/internal/event"
	"github.com/corbtastik/incident-visualizer/internal/filter"
	"github.com/corbtastik/incident-visualizer/internal/metrics"
	"github.com/corbtastik/incident-visualizer/internal/storage"
	logpkg "github.com/corbtastik/incident-visualizer/pkg/log"
)

var (
	// ErrUnsupportedCategory rejects a category name missing from the registry.
	ErrUnsupportedCategory = errors.New("unsupported category")
	// ErrInvalidFilter rejects a filter expression that does not compile.
	ErrInvalidFilter = errors.New("invalid filter")
)

// Page size bounds.
const (
	DefaultPageSize = 200
	MaxPageSize     = 1000
)

// Options tunes the service. Zero values take the defaults.
type Options struct {
	DefaultPageSize int
	// MaxPageSize is the hard ceiling applied to every request; it cannot
	// be raised above 1000.
	MaxPageSize int
	Now         func() time.Time
	Metrics     *metrics.Metrics
}

// Service answers bootstrap and tail queries.
type Service struct {
	store    storage.Store
	registry *category.Registry
	opts     Options
	logger   logpkg.Logger
}

// New builds a Service. The registry is read-only after construction.
func New(store storage.Store, registry *category.Registry, opts Options, logger logpkg.Logger) *Service {
	if opts.MaxPageSize <= 0 || opts.MaxPageSize > MaxPageSize {
		opts.MaxPageSize = MaxPageSize
	}
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = DefaultPageSize
	}
	if opts.DefaultPageSize > opts.MaxPageSize {
		opts.DefaultPageSize = opts.MaxPageSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = logpkg.NewNop()
	}
	return &Service{store: store, registry: registry, opts: opts, logger: logger.WithComponent("live")}
}

// Categories lists the configured categories.
func (s *Service) Categories() []category.Category { return s.registry.All() }

// Health pings the backing store.
func (s *Service) Health(ctx context.Context) error { return s.store.Ping(ctx) }

// PageSize applies the default and the ceiling to a requested limit.
func (s *Service) PageSize(limit int) int {
	if limit <= 0 {
		return s.opts.DefaultPageSize
	}
	if limit > s.opts.MaxPageSize {
		return s.opts.MaxPageSize
	}
	return limit
}

func (s *Service) lookup(name string) (category.Category, error) {
	c, ok := s.registry.Lookup(name)
	if !ok {
		return category.Category{}, fmt.Errorf("%w: %q", ErrUnsupportedCategory, name)
	}
	return c, nil
}

func (s *Service) serverTime() string {
	return s.opts.Now().UTC().Format(time.RFC3339Nano)
}

// Bootstrap returns the newest cursor of a category, or Empty.
func (s *Service) Bootstrap(ctx context.Context, name string) (BootstrapResult, error) {
	c, err := s.lookup(name)
	if err != nil {
		s.opts.Metrics.ObserveBootstrap(metricLabel(name, err), Outcome(err))
		return BootstrapResult{}, err
	}
	newest, ok, err := s.store.Newest(ctx, c.Collection)
	if err != nil {
		err = fmt.Errorf("bootstrap %s: %w", c.Name, err)
		s.opts.Metrics.ObserveBootstrap(c.Name, Outcome(err))
		return BootstrapResult{}, err
	}
	s.opts.Metrics.ObserveBootstrap(c.Name, Outcome(nil))
	return BootstrapResult{Category: c.Name, Cursor: newest, Empty: !ok}, nil
}

// Tail returns the records after req.Cursor. NextCursor is the last scanned
// key, or the request cursor when nothing was scanned, so it never regresses.
func (s *Service) Tail(ctx context.Context, req TailRequest) (resp TailResponse, err error) {
	start := time.Now()
	defer func() {
		s.opts.Metrics.ObserveTail(metricLabel(req.Category, err), Outcome(err), resp.Count, time.Since(start))
	}()

	c, err := s.lookup(req.Category)
	if err != nil {
		return TailResponse{}, err
	}
	flt, err := filter.Compile(req.Filter)
	if err != nil {
		return TailResponse{}, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}

	resp = TailResponse{Category: c.Name, Items: []event.Event{}}
	if req.Cursor == "" {
		newest, ok, err := s.store.Newest(ctx, c.Collection)
		if err != nil {
			return TailResponse{}, fmt.Errorf("tail %s: %w", c.Name, err)
		}
		resp.NextCursor, resp.Empty = newest, !ok
		resp.ServerTime = s.serverTime()
		return resp, nil
	}

	after, err := cursor.Decode(req.Cursor)
	if err != nil {
		return TailResponse{}, err
	}
	recs, err := s.store.After(ctx, c.Collection, after, s.PageSize(req.Limit))
	if errors.Is(err, storage.ErrKeyKind) {
		return TailResponse{}, fmt.Errorf("%w: %v", cursor.ErrInvalidCursor, err)
	}
	if err != nil {
		return TailResponse{}, fmt.Errorf("tail %s: %w", c.Name, err)
	}

	next := after
	for _, r := range recs {
		if !r.Key.After(next) {
			s.logger.Warn("store returned out-of-order key",
				logpkg.Category(c.Name), logpkg.Str("key", cursor.Encode(r.Key)), logpkg.Str("cursor", cursor.Encode(next)))
			continue
		}
		next = r.Key
		resp.Scanned++
		ev := event.Event{Key: r.Key, Category: c.Name, Fields: r.Doc}
		if flt.Match(ev) {
			resp.Items = append(resp.Items, ev)
		}
	}
	resp.NextCursor = next
	resp.Count = len(resp.Items)
	resp.ServerTime = s.serverTime()
	return resp, nil
}

// Debug summarises a category's collection.
func (s *Service) Debug(ctx context.Context, name string) (DebugInfo, error) {
	c, err := s.lookup(name)
	if err != nil {
		return DebugInfo{}, err
	}
	st, err := s.store.Stats(ctx, c.Collection)
	if err != nil {
		return DebugInfo{}, fmt.Errorf("debug %s: %w", c.Name, err)
	}
	ns := st.Namespace
	if ns == "" {
		ns = c.Collection
	}
	return DebugInfo{
		Category:   c.Name,
		Namespace:  ns,
		Count:      st.Count,
		Newest:     st.Newest,
		Oldest:     st.Oldest,
		ServerTime: s.serverTime(),
	}, nil
}

// metricLabel keeps arbitrary caller input out of label values.
func metricLabel(name string, err error) string {
	if errors.Is(err, ErrUnsupportedCategory) {
		return "unknown"
	}
	return name
}

// Error codes shared by the HTTP and gRPC surfaces.
const (
	CodeUnsupportedCategory = "unsupported_category"
	CodeInvalidCursor       = "invalid_cursor"
	CodeInvalidFilter       = "invalid_filter"
	CodeInternal            = "internal"
)

// Code classifies err into one of the wire error codes.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedCategory):
		return CodeUnsupportedCategory
	case errors.Is(err, cursor.ErrInvalidCursor):
		return CodeInvalidCursor
	case errors.Is(err, ErrInvalidFilter):
		return CodeInvalidFilter
	default:
		return CodeInternal
	}
}

// Outcome is the metrics label for err ("ok" when nil).
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return Code(err)
}
