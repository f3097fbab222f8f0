package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	stdlog "log"
	"log/slog"
	"strings"
	"testing"
)

func newBufLogger(level Level, f Formatter) (Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewLogger(WithLevel(level), WithFormatter(f), WithOutput(NewWriterOutput(&buf))), &buf
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newBufLogger(WarnLevel, &TextFormatter{DisableTimestamp: true})
	l.Debug("d")
	l.Info("i")
	l.Warn("w")
	l.Error("e")
	out := buf.String()
	if strings.Contains(out, " d") || strings.Contains(out, " i\n") {
		t.Fatalf("debug/info leaked: %q", out)
	}
	if !strings.Contains(out, "WARN  w") || !strings.Contains(out, "ERROR e") {
		t.Fatalf("missing warn/error: %q", out)
	}

	l.SetLevel(DebugLevel)
	buf.Reset()
	l.Debug("now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Fatalf("SetLevel not applied: %q", buf.String())
	}
}

func TestJSONFormatterFields(t *testing.T) {
	l, buf := newBufLogger(DebugLevel, &JSONFormatter{})
	l.With(Component("feed"), Category("business")).
		Info("applied", Int("count", 3), Err(errors.New("boom")))

	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("unmarshal %q: %v", buf.String(), err)
	}
	want := map[string]any{
		"msg":       "applied",
		"level":     "info",
		"component": "feed",
		"category":  "business",
		"count":     float64(3),
		"error":     "boom",
	}
	for k, v := range want {
		if m[k] != v {
			t.Fatalf("%s: got %v want %v", k, m[k], v)
		}
	}
}

func TestDerivedLoggersShareLevel(t *testing.T) {
	parent, buf := newBufLogger(InfoLevel, &TextFormatter{DisableTimestamp: true})
	child := parent.WithComponent("child")
	parent.SetLevel(ErrorLevel)
	child.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("child ignored parent level: %q", buf.String())
	}
	if child.GetLevel() != ErrorLevel {
		t.Fatalf("child level %v", child.GetLevel())
	}
}

func TestTextFormatterComponentPrefix(t *testing.T) {
	l, buf := newBufLogger(InfoLevel, &TextFormatter{DisableTimestamp: true})
	l.WithComponent("http").Infof("request", "path", "/v1/healthz", "status", 200)
	got := buf.String()
	want := "INFO  [http] request path=/v1/healthz status=200\n"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestContextFields(t *testing.T) {
	l, buf := newBufLogger(InfoLevel, &JSONFormatter{})
	ctx := ContextWith(context.Background(), RequestIDKey, "req-1")
	l.WithContext(ctx).Info("hello")
	if !strings.Contains(buf.String(), `"request_id":"req-1"`) {
		t.Fatalf("missing request id: %s", buf.String())
	}
}

func TestApplyConfigRedactAndSample(t *testing.T) {
	l, err := ApplyConfig(&Config{Level: "debug", Format: "json", Outputs: []OutputConfig{{Type: "null"}}})
	if err != nil {
		t.Fatalf("ApplyConfig: %v", err)
	}
	if l.GetLevel() != DebugLevel {
		t.Fatalf("level %v", l.GetLevel())
	}

	var buf bytes.Buffer
	base := newBaseLogger(WithFormatter(&JSONFormatter{}), WithOutput(NewWriterOutput(&buf)))
	h := newBridgeHandler(base.core).withRedactions([]string{"password"}).withSampler(1, 2)
	base.slogLogger = slog.New(h)

	for i := 0; i < 4; i++ {
		base.Info("tick", Str("password", "hunter2"))
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	// initial=1 then every 2nd: calls 0, 1 and 3 pass.
	if len(lines) != 3 {
		t.Fatalf("sampled lines = %d: %q", len(lines), buf.String())
	}
	if strings.Contains(buf.String(), "hunter2") {
		t.Fatalf("password not redacted: %s", buf.String())
	}
}

func TestApplyConfigRejectsUnknown(t *testing.T) {
	if _, err := ApplyConfig(&Config{Level: "loud"}); err == nil {
		t.Fatal("expected level error")
	}
	if _, err := ApplyConfig(&Config{Format: "xml"}); err == nil {
		t.Fatal("expected format error")
	}
	if _, err := ApplyConfig(&Config{Outputs: []OutputConfig{{Type: "kafka"}}}); err == nil {
		t.Fatal("expected output error")
	}
}

func TestToStdLogger(t *testing.T) {
	l, buf := newBufLogger(InfoLevel, &TextFormatter{DisableTimestamp: true})
	var std *stdlog.Logger = ToStdLogger(l, WarnLevel)
	std.Print("pebble: compaction done")
	if got := buf.String(); got != "WARN  pebble: compaction done\n" {
		t.Fatalf("got %q", got)
	}
}
