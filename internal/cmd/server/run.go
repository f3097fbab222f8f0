package serverrun

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	cfgpkg "github.com/corbtastik/incident-visualizer/internal/config"
	"github.com/corbtastik/incident-visualizer/internal/ingest"
	"github.com/corbtastik/incident-visualizer/internal/metrics"
	"github.com/corbtastik/incident-visualizer/internal/runtime"
	grpcserver "github.com/corbtastik/incident-visualizer/internal/server/grpc"
	httpserver "github.com/corbtastik/incident-visualizer/internal/server/http"
	livesvc "github.com/corbtastik/incident-visualizer/internal/services/live"
	logpkg "github.com/corbtastik/incident-visualizer/pkg/log"
)

// Options configures Run.
type Options struct {
	Config cfgpkg.Config
	// ConfigPath, when set, is watched and the log level follows edits.
	ConfigPath string
	// Logger overrides the one built from Config.Log.
	Logger logpkg.Logger
	// OnReady receives the bound listener addresses once both are serving.
	OnReady func(httpAddr, grpcAddr net.Addr)
}

// Run starts the server and blocks until ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := opts.Logger
	if logger == nil {
		l, err := logpkg.ApplyConfig(&cfg.Log)
		if err != nil {
			return err
		}
		logger = l
		logpkg.RedirectStdLog(logger)
	}

	m := metrics.New()
	rt, err := runtime.Open(ctx, runtime.Options{Config: cfg, Logger: logger, Metrics: m})
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	rt.Start(ctx)

	svc := livesvc.New(rt.Store(), rt.Registry(), livesvc.Options{
		DefaultPageSize: cfg.Server.DefaultPageSize,
		MaxPageSize:     cfg.Server.MaxPageSize,
		Metrics:         m,
	}, logger)

	sources, err := ingestSources(rt, m, logger)
	if err != nil {
		return err
	}

	hl, err := net.Listen("tcp", cfg.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("http listen %s: %w", cfg.Server.HTTPAddr, err)
	}
	gl, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		_ = hl.Close()
		return fmt.Errorf("grpc listen %s: %w", cfg.Server.GRPCAddr, err)
	}

	logger.Info("starting incidents server",
		logpkg.Str("http", hl.Addr().String()),
		logpkg.Str("grpc", gl.Addr().String()),
		logpkg.Str("driver", cfg.Storage.Driver),
		logpkg.Str("postgres", cfgpkg.RedactURI(cfg.Storage.PostgresDSN)),
		logpkg.Str("mongo", cfgpkg.RedactURI(cfg.Storage.MongoURI)),
		logpkg.Int("categories", len(rt.Registry().Names())),
		logpkg.Int("ingest_sources", len(sources)),
	)

	hsrv := httpserver.New(rt, svc, logger)
	gsrv := grpcserver.New(rt, svc, logger)

	var wg sync.WaitGroup
	errCh := make(chan error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := hsrv.Serve(ctx, hl); err != nil && ctx.Err() == nil {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := gsrv.Serve(ctx, gl); err != nil && ctx.Err() == nil {
			errCh <- fmt.Errorf("grpc: %w", err)
		}
	}()

	for _, src := range sources {
		wg.Add(1)
		go func(src ingest.Source) {
			defer wg.Done()
			if err := src.Run(ctx); err != nil {
				logger.Error("ingest source stopped", logpkg.Str("source", src.Name()), logpkg.Err(err))
			}
		}(src)
	}

	if opts.ConfigPath != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := cfgpkg.Watch(ctx, opts.ConfigPath, logger, func(next cfgpkg.Config) {
				applyReload(logger, next)
			})
			if err != nil && ctx.Err() == nil {
				logger.Warn("config watch stopped", logpkg.Err(err))
			}
		}()
	}

	if opts.OnReady != nil {
		opts.OnReady(hl.Addr(), gl.Addr())
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		logger.Error("server failed", logpkg.Err(runErr))
	}
	cancel()
	gsrv.Close()
	hsrv.Close()
	wg.Wait()
	logger.Info("incidents server stopped")
	return runErr
}

// ingestSources builds the configured write-side sources. They need a
// writable store.
func ingestSources(rt *runtime.Runtime, m *metrics.Metrics, logger logpkg.Logger) ([]ingest.Source, error) {
	cfg := rt.Config().Ingest
	if !cfg.Synthetic && len(cfg.KafkaBrokers) == 0 {
		return nil, nil
	}
	app, ok := rt.Appender()
	if !ok {
		return nil, errors.New("ingest: storage driver does not accept writes")
	}
	var out []ingest.Source
	if cfg.Synthetic {
		out = append(out, ingest.NewSynthetic(app, ingest.SyntheticOptions{
			Categories: rt.Registry().All(),
			Interval:   cfg.SyntheticInterval,
			Batch:      cfg.SyntheticBatch,
			Hook:       m,
		}, logger))
	}
	if len(cfg.KafkaBrokers) > 0 {
		reader := ingest.NewKafkaReader(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID)
		out = append(out, ingest.NewKafka(reader, app, rt.Registry(), ingest.KafkaOptions{Hook: m}, logger))
	}
	return out, nil
}

// applyReload applies the settings that can change without a restart.
// Only the log level is live; everything else is logged as pending.
func applyReload(logger logpkg.Logger, next cfgpkg.Config) {
	level, err := logpkg.ParseLevel(next.Log.Level)
	if err != nil {
		logger.Warn("config reload: bad log level", logpkg.Err(err))
		return
	}
	if level != logger.GetLevel() {
		logger.SetLevel(level)
		logger.Info("log level changed", logpkg.Str("level", level.String()))
	}
}
