// Package memory is an in-process storage.Store. It backs the "memory"
// storage driver and doubles as a recording fake in tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/corbtastik/incident-visualizer/internal/cursor"
	"github.com/corbtastik/incident-visualizer/internal/storage"
)

// Call records one Store invocation.
type Call struct {
	Op    string
	Coll  string
	After cursor.Key
	Limit int
}

// Store keeps records per collection in key order.
type Store struct {
	mu    sync.Mutex
	colls map[string][]storage.Record
	calls []Call
	next  int64
	// Err, when set, is returned by every read.
	Err error
}

var (
	_ storage.Store    = (*Store)(nil)
	_ storage.Appender = (*Store)(nil)
)

// New returns an empty store.
func New() *Store { return &Store{colls: make(map[string][]storage.Record)} }

// Put inserts records with caller-chosen keys (any kind), keeping order.
func (s *Store) Put(coll string, recs ...storage.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := append(s.colls[coll], recs...)
	sort.SliceStable(list, func(i, j int) bool { return cursor.Compare(list[i].Key, list[j].Key) < 0 })
	s.colls[coll] = list
}

// Calls returns a copy of the recorded calls.
func (s *Store) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

func (s *Store) record(c Call) {
	s.mu.Lock()
	s.calls = append(s.calls, c)
	s.mu.Unlock()
}

// Newest implements storage.Reader.
func (s *Store) Newest(ctx context.Context, coll string) (cursor.Key, bool, error) {
	s.record(Call{Op: "newest", Coll: coll})
	if err := s.readErr(ctx); err != nil {
		return cursor.Key{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.colls[coll]
	if len(list) == 0 {
		return cursor.Key{}, false, nil
	}
	return list[len(list)-1].Key, true, nil
}

// After implements storage.Reader.
func (s *Store) After(ctx context.Context, coll string, after cursor.Key, limit int) ([]storage.Record, error) {
	s.record(Call{Op: "after", Coll: coll, After: after, Limit: limit})
	if err := s.readErr(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.colls[coll]
	i := sort.Search(len(list), func(i int) bool { return cursor.Compare(list[i].Key, after) > 0 })
	var out []storage.Record
	for ; i < len(list) && (limit <= 0 || len(out) < limit); i++ {
		out = append(out, storage.Record{Key: list[i].Key, Doc: copyDoc(list[i].Doc)})
	}
	return out, nil
}

// Stats implements storage.Store.
func (s *Store) Stats(ctx context.Context, coll string) (storage.Stats, error) {
	s.record(Call{Op: "stats", Coll: coll})
	if err := s.readErr(ctx); err != nil {
		return storage.Stats{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.colls[coll]
	st := storage.Stats{Count: int64(len(list))}
	if len(list) > 0 {
		st.Oldest, st.Newest, st.HasData = list[0].Key, list[len(list)-1].Key, true
	}
	return st, nil
}

// Append implements storage.Appender with increasing integer keys. New
// keys start past the greatest integer key already in coll, including keys
// stored with Put.
func (s *Store) Append(ctx context.Context, coll string, docs []map[string]any) ([]cursor.Key, error) {
	s.record(Call{Op: "append", Coll: coll})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.colls[coll]
	for i := len(list) - 1; i >= 0; i-- {
		if n, ok := list[i].Key.Int64(); ok {
			s.next = max(s.next, n)
			break
		}
	}
	keys := make([]cursor.Key, len(docs))
	for i, d := range docs {
		s.next++
		keys[i] = cursor.Int64Key(s.next)
		list = insertSorted(list, storage.Record{Key: keys[i], Doc: copyDoc(d)})
	}
	s.colls[coll] = list
	return keys, nil
}

// insertSorted places r after every record whose key is not greater.
func insertSorted(list []storage.Record, r storage.Record) []storage.Record {
	i := sort.Search(len(list), func(i int) bool { return cursor.Compare(list[i].Key, r.Key) > 0 })
	if i == len(list) {
		return append(list, r)
	}
	list = append(list, storage.Record{})
	copy(list[i+1:], list[i:])
	list[i] = r
	return list
}

func (s *Store) Ping(ctx context.Context) error { return s.readErr(ctx) }

func (s *Store) Close() error { return nil }

func (s *Store) readErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Err
}

func copyDoc(d map[string]any) map[string]any {
	out := make(map[string]any, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
