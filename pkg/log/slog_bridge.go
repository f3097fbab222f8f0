package log

import (
	"context"
	"log/slog"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// redacted replaces the value of a redacted key.
const redacted = "[REDACTED]"

// sampleWindow is how long per-message sample counts live before resetting.
const sampleWindow = time.Second

// bridgeHandler is the slog.Handler behind every Logger. It flattens attrs
// (groups become dotted prefixes), applies redaction and sampling, then
// hands an Entry to the shared core.
type bridgeHandler struct {
	core    *core
	attrs   []slog.Attr
	prefix  string
	redact  map[string]bool
	sampler *sampler
}

func newBridgeHandler(c *core) *bridgeHandler {
	return &bridgeHandler{core: c}
}

func (h *bridgeHandler) Enabled(_ context.Context, level slog.Level) bool {
	return fromSlogLevel(level) >= h.core.getLevel()
}

func (h *bridgeHandler) Handle(_ context.Context, r slog.Record) error {
	if h.sampler != nil && !h.sampler.allow(r.Level, r.Message, r.Time) {
		return nil
	}
	fields := make(Fields, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		h.flatten(fields, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.flatten(fields, h.prefix, a)
		return true
	})

	var caller string
	if r.PC != 0 {
		if f, _ := runtime.CallersFrames([]uintptr{r.PC}).Next(); f.File != "" {
			caller = f.File + ":" + strconv.Itoa(f.Line)
		}
	}
	return h.core.write(&Entry{
		Level:     fromSlogLevel(r.Level),
		Message:   r.Message,
		Fields:    fields,
		Timestamp: r.Time,
		Caller:    caller,
	})
}

// flatten writes a into fields, expanding groups into dotted keys.
func (h *bridgeHandler) flatten(fields Fields, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if a.Key == "" && v.Kind() != slog.KindGroup {
		return
	}
	key := prefix + a.Key
	if v.Kind() == slog.KindGroup {
		if a.Key != "" {
			prefix = key + "."
		}
		for _, ga := range v.Group() {
			h.flatten(fields, prefix, ga)
		}
		return
	}
	if h.redact[strings.ToLower(a.Key)] {
		fields[key] = redacted
		return
	}
	fields[key] = v.Any()
}

// WithAttrs binds attrs under the current group prefix.
func (h *bridgeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	nh := *h
	nh.attrs = make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(nh.attrs, h.attrs)
	for _, a := range attrs {
		if h.prefix != "" {
			a.Key = h.prefix + a.Key
		}
		nh.attrs = append(nh.attrs, a)
	}
	return &nh
}

// WithGroup prefixes later attribute keys with name.
func (h *bridgeHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	nh := *h
	nh.prefix = h.prefix + name + "."
	return &nh
}

// withRedactions masks the values of keys (case-insensitive).
func (h *bridgeHandler) withRedactions(keys []string) *bridgeHandler {
	if len(keys) == 0 {
		return h
	}
	nh := *h
	nh.redact = make(map[string]bool, len(keys))
	for _, k := range keys {
		nh.redact[strings.ToLower(k)] = true
	}
	return &nh
}

// withSampler keeps the first initial repeats of a message per window, then
// every thereafter-th. thereafter <= 0 disables sampling.
func (h *bridgeHandler) withSampler(initial, thereafter int) *bridgeHandler {
	if thereafter <= 0 {
		return h
	}
	nh := *h
	nh.sampler = newSampler(initial, thereafter)
	return &nh
}

type sampleKey struct {
	level slog.Level
	msg   string
}

type sampler struct {
	initial, thereafter uint64

	mu     sync.Mutex
	start  time.Time
	counts map[sampleKey]uint64
}

func newSampler(initial, thereafter int) *sampler {
	return &sampler{
		initial:    uint64(max(initial, 0)),
		thereafter: uint64(thereafter),
		counts:     make(map[sampleKey]uint64),
	}
}

func (s *sampler) allow(level slog.Level, msg string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.Sub(s.start) >= sampleWindow {
		s.start = now
		clear(s.counts)
	}
	k := sampleKey{level, msg}
	n := s.counts[k]
	s.counts[k] = n + 1
	return n < s.initial || (n-s.initial)%s.thereafter == 0
}

// slogLevelFatal sits above slog.LevelError; slog has no fatal level.
const slogLevelFatal = slog.LevelError + 4

var slogLevels = map[Level]slog.Level{
	DebugLevel: slog.LevelDebug,
	InfoLevel:  slog.LevelInfo,
	WarnLevel:  slog.LevelWarn,
	ErrorLevel: slog.LevelError,
	FatalLevel: slogLevelFatal,
}

func toSlogLevel(level Level) slog.Level {
	if l, ok := slogLevels[level]; ok {
		return l
	}
	return slog.LevelInfo
}

func fromSlogLevel(level slog.Level) Level {
	switch {
	case level >= slogLevelFatal:
		return FatalLevel
	case level >= slog.LevelError:
		return ErrorLevel
	case level >= slog.LevelWarn:
		return WarnLevel
	case level >= slog.LevelInfo:
		return InfoLevel
	default:
		return DebugLevel
	}
}

// attrsFromMap converts m in key order, so derived loggers are stable.
func attrsFromMap(m Fields) []slog.Attr {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	attrs := make([]slog.Attr, len(keys))
	for i, k := range keys {
		attrs[i] = slog.Any(k, m[k])
	}
	return attrs
}

func attrsFromFieldSlice(fields []Field) []slog.Attr {
	if len(fields) == 0 {
		return nil
	}
	attrs := make([]slog.Attr, len(fields))
	for i, f := range fields {
		attrs[i] = slog.Any(f.Key, f.Value)
	}
	return attrs
}

// argsToAttrs pairs printf-style key/value args. A non-string key or a
// dangling value is kept under "argN".
func argsToAttrs(args []interface{}) []slog.Attr {
	if len(args) == 0 {
		return nil
	}
	attrs := make([]slog.Attr, 0, (len(args)+1)/2)
	for i := 0; i < len(args); i += 2 {
		if i+1 == len(args) {
			attrs = append(attrs, slog.Any("arg"+strconv.Itoa(i), args[i]))
			break
		}
		key, ok := args[i].(string)
		if !ok {
			key = "arg" + strconv.Itoa(i)
		}
		attrs = append(attrs, slog.Any(key, args[i+1]))
	}
	return attrs
}

func attrsToAny(attrs []slog.Attr) []any {
	out := make([]any, len(attrs))
	for i, a := range attrs {
		out[i] = a
	}
	return out
}
