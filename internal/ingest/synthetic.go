package ingest

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/corbtastik/incident-visualizer/internal/category"
	"github.com/corbtastik/incident-visualizer/internal/stats"
	"github.com/corbtastik/incident-visualizer/internal/storage"
	logpkg "github.com/corbtastik/incident-visualizer/pkg/log"
)

// Generated coordinates fall inside the contiguous United States.
const (
	latMin, latSpan = 25.0, 20.0
	lngMin, lngSpan = -125.0, 58.0
)

var cities = []string{
	"Atlanta", "Austin", "Boise", "Chicago", "Denver", "Kansas City",
	"Los Angeles", "Miami", "Nashville", "Phoenix", "Portland", "Reno",
	"Salt Lake City", "Seattle",
}

// SyntheticOptions configures the generator. Zero values take defaults:
// one second, five records per category per tick.
type SyntheticOptions struct {
	Categories []category.Category
	Interval   time.Duration
	Batch      int
	Hook       Hook
	Now        func() time.Time
	Rand       *rand.Rand
}

// Synthetic appends randomized incidents to every category on a timer.
type Synthetic struct {
	app    storage.Appender
	opts   SyntheticOptions
	logger logpkg.Logger
}

// NewSynthetic builds a generator writing through app.
func NewSynthetic(app storage.Appender, opts SyntheticOptions, logger logpkg.Logger) *Synthetic {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.Batch <= 0 {
		opts.Batch = 5
	}
	if opts.Hook == nil {
		opts.Hook = nopHook{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = logpkg.NewNop()
	}
	return &Synthetic{app: app, opts: opts, logger: logger.WithComponent("ingest.synthetic")}
}

// Name implements Source.
func (s *Synthetic) Name() string { return "synthetic" }

// Run implements Source.
func (s *Synthetic) Run(ctx context.Context) error {
	s.logger.Info("synthetic ingest started",
		logpkg.Int("categories", len(s.opts.Categories)),
		logpkg.Int("batch", s.opts.Batch),
		logpkg.Dur("interval", s.opts.Interval))
	t := time.NewTicker(s.opts.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
		if err := s.Tick(ctx); cancelled(ctx, err) {
			return nil
		}
	}
}

// Tick appends one batch to each category. Failures are logged and the
// remaining categories still receive their batch; the first error is
// returned.
func (s *Synthetic) Tick(ctx context.Context) error {
	var first error
	for _, c := range s.opts.Categories {
		docs := s.Generate(s.opts.Batch)
		_, err := s.app.Append(ctx, c.Collection, docs)
		s.opts.Hook.ObserveIngest(s.Name(), c.Name, len(docs), err)
		if err != nil {
			if cancelled(ctx, err) {
				return err
			}
			s.logger.Warn("append failed", logpkg.Category(c.Name), logpkg.Err(err))
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// Generate builds n incident documents.
func (s *Synthetic) Generate(n int) []map[string]any {
	r := s.opts.Rand
	ts := s.opts.Now().UnixMilli()
	docs := make([]map[string]any, n)
	for i := range docs {
		docs[i] = map[string]any{
			"incidentId": uuid.NewString(),
			"type":       "incident",
			"ts":         ts,
			"lat":        latMin + r.Float64()*latSpan,
			"lng":        lngMin + r.Float64()*lngSpan,
			"weight":     0.5 + r.Float64()*2,
			"city":       cities[r.Intn(len(cities))],
			"serviceIssue": map[string]any{
				"type":  stats.IssueTypes[r.Intn(len(stats.IssueTypes))],
				"issue": "slow-speeds",
			},
		}
	}
	return docs
}
