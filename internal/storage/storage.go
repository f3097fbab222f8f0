// Package storage declares the narrow read surface the live service needs
// from a collection store: "newest key" and "records after key, ascending".
// Backends live in subpackages (eventlog, postgres, mongo, memory) and may be
// wrapped by rediscache.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/corbtastik/incident-visualizer/internal/cursor"
)

// ErrKeyKind is returned when a backend cannot seek by the given key kind
// (e.g. a generic key against an ObjectID collection with no generic ids).
var ErrKeyKind = errors.New("storage: key kind not supported by backend")

// Record is one stored document with its ordering key.
type Record struct {
	Key cursor.Key
	Doc map[string]any
}

// Stats summarises a collection for diagnostics.
type Stats struct {
	// Namespace is the backend-qualified collection name, when it has one.
	Namespace string
	Count     int64
	Oldest    cursor.Key
	Newest    cursor.Key
	HasData   bool
}

// Reader is what the tail path needs.
type Reader interface {
	// Newest returns the greatest key in coll; ok is false when coll is empty.
	Newest(ctx context.Context, coll string) (key cursor.Key, ok bool, err error)
	// After returns up to limit records with key strictly greater than after,
	// ascending. A zero after reads from the beginning.
	After(ctx context.Context, coll string, after cursor.Key, limit int) ([]Record, error)
}

// Store is a Reader with diagnostics and lifecycle.
type Store interface {
	Reader
	Stats(ctx context.Context, coll string) (Stats, error)
	Ping(ctx context.Context) error
	Close() error
}

// Appender is implemented by stores that accept writes (ingest sources).
type Appender interface {
	Append(ctx context.Context, coll string, docs []map[string]any) ([]cursor.Key, error)
}

// ReadHook observes backend reads; internal/metrics implements it.
type ReadHook interface {
	ObserveStorage(backend, op string, elapsed time.Duration, err error)
}

type noopHook struct{}

func (noopHook) ObserveStorage(string, string, time.Duration, error) {}

// Observed wraps s so every call reports to hook under backend.
func Observed(s Store, backend string, hook ReadHook) Store {
	if hook == nil {
		hook = noopHook{}
	}
	o := &observed{Store: s, backend: backend, hook: hook}
	if a, ok := s.(Appender); ok {
		return &observedAppender{observed: o, app: a}
	}
	return o
}

type observed struct {
	Store
	backend string
	hook    ReadHook
}

func (o *observed) Newest(ctx context.Context, coll string) (cursor.Key, bool, error) {
	start := time.Now()
	k, ok, err := o.Store.Newest(ctx, coll)
	o.hook.ObserveStorage(o.backend, "newest", time.Since(start), err)
	return k, ok, err
}

func (o *observed) After(ctx context.Context, coll string, after cursor.Key, limit int) ([]Record, error) {
	start := time.Now()
	recs, err := o.Store.After(ctx, coll, after, limit)
	o.hook.ObserveStorage(o.backend, "after", time.Since(start), err)
	return recs, err
}

func (o *observed) Stats(ctx context.Context, coll string) (Stats, error) {
	start := time.Now()
	st, err := o.Store.Stats(ctx, coll)
	o.hook.ObserveStorage(o.backend, "stats", time.Since(start), err)
	return st, err
}

type observedAppender struct {
	*observed
	app Appender
}

func (o *observedAppender) Append(ctx context.Context, coll string, docs []map[string]any) ([]cursor.Key, error) {
	start := time.Now()
	keys, err := o.app.Append(ctx, coll, docs)
	o.hook.ObserveStorage(o.backend, "append", time.Since(start), err)
	return keys, err
}
