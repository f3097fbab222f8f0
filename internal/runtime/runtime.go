package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/corbtastik/incident-visualizer/internal/category"
	cfgpkg "github.com/corbtastik/incident-visualizer/internal/config"
	"github.com/corbtastik/incident-visualizer/internal/eventlog"
	"github.com/corbtastik/incident-visualizer/internal/metrics"
	"github.com/corbtastik/incident-visualizer/internal/storage"
	"github.com/corbtastik/incident-visualizer/internal/storage/memory"
	"github.com/corbtastik/incident-visualizer/internal/storage/mongo"
	pebblestore "github.com/corbtastik/incident-visualizer/internal/storage/pebble"
	"github.com/corbtastik/incident-visualizer/internal/storage/postgres"
	"github.com/corbtastik/incident-visualizer/internal/storage/rediscache"
	logpkg "github.com/corbtastik/incident-visualizer/pkg/log"
)

// Options for building the Runtime.
type Options struct {
	Config  cfgpkg.Config
	Logger  logpkg.Logger
	Metrics *metrics.Metrics
}

// Runtime wires the configured store, category registry and metrics for a
// single server instance.
type Runtime struct {
	config   cfgpkg.Config
	logger   logpkg.Logger
	metrics  *metrics.Metrics
	registry *category.Registry
	store    storage.Store
	// embedded is set for the pebble driver; retention runs against it.
	embedded *eventlog.Store
}

// Open validates the configuration and opens the storage backend.
func Open(ctx context.Context, opts Options) (*Runtime, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("runtime: invalid config: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewNop()
	}
	registry, err := category.NewRegistry(cfg.Categories)
	if err != nil {
		return nil, err
	}
	rt := &Runtime{config: cfg, logger: logger.WithComponent("runtime"), metrics: opts.Metrics, registry: registry}

	base, err := rt.openBackend(ctx)
	if err != nil {
		return nil, err
	}
	store := storage.Observed(base, cfg.Storage.Driver, opts.Metrics)

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			_ = store.Close()
			return nil, fmt.Errorf("runtime: redis %s: %w", cfg.Redis.Addr, err)
		}
		store = rediscache.Wrap(store, rdb, rediscache.Options{TTL: cfg.Redis.TTL, Prefix: cfg.Redis.Prefix, Logger: logger})
		rt.logger.Info("newest-key cache enabled", logpkg.Str("addr", cfg.Redis.Addr), logpkg.Dur("ttl", cfg.Redis.TTL))
	}
	rt.store = store
	return rt, nil
}

func (r *Runtime) openBackend(ctx context.Context) (storage.Store, error) {
	sc := r.config.Storage
	switch sc.Driver {
	case cfgpkg.DriverEmbedded:
		fsync, _ := pebblestore.ParseFsyncMode(sc.Fsync)
		dir := sc.ResolvedDataDir()
		db, err := pebblestore.Open(pebblestore.Options{
			DataDir: dir,
			Fsync:   fsync,
			Metrics: r.metrics,
			Logger:  r.logger,
		})
		if err != nil {
			return nil, err
		}
		r.embedded = eventlog.NewStore(db, r.logger)
		r.logger.Info("storage opened", logpkg.Str("driver", sc.Driver), logpkg.Str("dir", dir))
		return r.embedded, nil
	case cfgpkg.DriverPostgres:
		st, err := postgres.Open(ctx, sc.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("runtime: postgres %s: %w", cfgpkg.RedactURI(sc.PostgresDSN), err)
		}
		if err := st.EnsureSchema(ctx, r.registry.Collections()); err != nil {
			_ = st.Close()
			return nil, err
		}
		r.logger.Info("storage opened", logpkg.Str("driver", sc.Driver), logpkg.Str("dsn", cfgpkg.RedactURI(sc.PostgresDSN)))
		return st, nil
	case cfgpkg.DriverMongo:
		st, err := mongo.Open(ctx, sc.MongoURI, sc.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("runtime: mongo %s: %w", cfgpkg.RedactURI(sc.MongoURI), err)
		}
		r.logger.Info("storage opened", logpkg.Str("driver", sc.Driver),
			logpkg.Str("uri", cfgpkg.RedactURI(sc.MongoURI)), logpkg.Str("db", sc.MongoDatabase))
		return st, nil
	case cfgpkg.DriverMemory:
		r.logger.Warn("storage is in-memory; records are lost on exit")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("runtime: unknown storage driver %q", sc.Driver)
	}
}

// Start launches background maintenance (embedded retention) until ctx is done.
func (r *Runtime) Start(ctx context.Context) {
	ret := r.config.Retention
	if r.embedded == nil || ret.MaxAge <= 0 {
		return
	}
	r.logger.Info("retention enabled", logpkg.Dur("max_age", ret.MaxAge), logpkg.Dur("interval", ret.Interval))
	go r.embedded.RunRetention(ctx, r.registry.Collections(), ret.MaxAge, ret.Interval)
}

// Close closes underlying resources.
func (r *Runtime) Close() error {
	if r.store == nil {
		return nil
	}
	return r.store.Close()
}

// CheckHealth pings the backing store (and Redis, when configured).
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.store == nil {
		return errors.New("store not open")
	}
	return r.store.Ping(ctx)
}

// Store returns the observed, optionally cached store.
func (r *Runtime) Store() storage.Store { return r.store }

// Appender returns the store's write side when the backend accepts writes.
func (r *Runtime) Appender() (storage.Appender, bool) {
	a, ok := r.store.(storage.Appender)
	return a, ok
}

// Registry returns the category registry.
func (r *Runtime) Registry() *category.Registry { return r.registry }

// Metrics returns the metrics set, possibly nil.
func (r *Runtime) Metrics() *metrics.Metrics { return r.metrics }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }
