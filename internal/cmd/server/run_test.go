package serverrun

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	cfgpkg "github.com/corbtastik/incident-visualizer/internal/config"
	logpkg "github.com/corbtastik/incident-visualizer/pkg/log"
)

func testConfig(t *testing.T) cfgpkg.Config {
	t.Helper()
	cfg := cfgpkg.Default()
	cfg.Server.HTTPAddr = "127.0.0.1:0"
	cfg.Server.GRPCAddr = "127.0.0.1:0"
	cfg.Storage.DataDir = t.TempDir()
	cfg.Storage.Fsync = "never"
	return cfg
}

func TestRunServesAndStops(t *testing.T) {
	cfg := testConfig(t)
	cfg.Ingest.Synthetic = true
	cfg.Ingest.SyntheticInterval = 10 * time.Millisecond

	ready := make(chan net.Addr, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Options{
			Config:  cfg,
			Logger:  logpkg.NewNop(),
			OnReady: func(h, _ net.Addr) { ready <- h },
		})
	}()

	var base string
	select {
	case addr := <-ready:
		base = "http://" + addr.String()
	case err := <-done:
		t.Fatalf("run exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server not ready")
	}

	resp, err := http.Get(base + "/v1/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}

	// Synthetic ingest fills the categories.
	deadline := time.Now().Add(5 * time.Second)
	for {
		var body struct {
			Empty bool `json:"empty"`
		}
		resp, err := http.Get(base + "/v1/live/business/bootstrap")
		if err != nil {
			t.Fatalf("bootstrap: %v", err)
		}
		err = json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !body.Empty {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("synthetic ingest produced nothing")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("run did not stop")
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Driver = "cassandra"
	if err := Run(context.Background(), Options{Config: cfg, Logger: logpkg.NewNop()}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestRunRejectsBusyPort(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	cfg := testConfig(t)
	cfg.Server.HTTPAddr = l.Addr().String()
	if err := Run(context.Background(), Options{Config: cfg, Logger: logpkg.NewNop()}); err == nil {
		t.Fatal("expected listen error")
	}
}

func TestApplyFlags(t *testing.T) {
	cmd := NewCommand()
	start, _, err := cmd.Find([]string{"start"})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if err := start.ParseFlags([]string{"--http", ":9000", "--driver", "memory", "--synthetic", "--log-level", "debug"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg := cfgpkg.Default()
	applyFlags(start, &cfg)
	if cfg.Server.HTTPAddr != ":9000" || cfg.Storage.Driver != "memory" || !cfg.Ingest.Synthetic || cfg.Log.Level != "debug" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Server.GRPCAddr != ":4001" {
		t.Fatalf("unset flag overwrote grpc addr: %q", cfg.Server.GRPCAddr)
	}
}

func TestApplyReloadChangesLevel(t *testing.T) {
	logger, err := logpkg.ApplyConfig(&logpkg.Config{Level: "info", Outputs: []logpkg.OutputConfig{{Type: "null"}}})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	next := cfgpkg.Default()
	next.Log.Level = "debug"
	applyReload(logger, next)
	if logger.GetLevel() != logpkg.DebugLevel {
		t.Fatalf("level = %v", logger.GetLevel())
	}
	next.Log.Level = "loud"
	applyReload(logger, next)
	if logger.GetLevel() != logpkg.DebugLevel {
		t.Fatalf("bad level applied: %v", logger.GetLevel())
	}
}
