package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/corbtastik/incident-visualizer/internal/cursor"
	"github.com/corbtastik/incident-visualizer/internal/storage"
	pebblestore "github.com/corbtastik/incident-visualizer/internal/storage/pebble"
	"github.com/corbtastik/incident-visualizer/pkg/id"
	"github.com/corbtastik/incident-visualizer/pkg/log"
)

// Store serves storage.Store and storage.Appender from per-collection logs
// in one Pebble database. Keys are Fixed cursor keys holding the entry id.
type Store struct {
	db     *pebblestore.DB
	logger log.Logger

	mu   sync.Mutex
	logs map[string]*Log
}

var (
	_ storage.Store    = (*Store)(nil)
	_ storage.Appender = (*Store)(nil)
)

// NewStore takes ownership of db; Close closes it.
func NewStore(db *pebblestore.DB, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{db: db, logger: logger.WithComponent("eventlog"), logs: make(map[string]*Log)}
}

// Log returns (opening on first use) the log of coll.
func (s *Store) Log(coll string) (*Log, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.logs[coll]; ok {
		return l, nil
	}
	l, err := OpenLog(s.db, coll)
	if err != nil {
		return nil, fmt.Errorf("eventlog: open %s: %w", coll, err)
	}
	s.logs[coll] = l
	return l, nil
}

// Newest implements storage.Reader.
func (s *Store) Newest(ctx context.Context, coll string) (cursor.Key, bool, error) {
	if err := ctx.Err(); err != nil {
		return cursor.Key{}, false, err
	}
	l, err := s.Log(coll)
	if err != nil {
		return cursor.Key{}, false, err
	}
	newest, ok, err := l.Newest()
	if err != nil || !ok {
		return cursor.Key{}, false, err
	}
	return cursor.FixedKey(newest), true, nil
}

// After implements storage.Reader. Only zero and Fixed keys can be sought.
func (s *Store) After(ctx context.Context, coll string, after cursor.Key, limit int) ([]storage.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var from id.ID
	switch after.Kind() {
	case cursor.KindNone:
	case cursor.KindFixed:
		from = id.ID(after.Bytes())
	default:
		return nil, fmt.Errorf("%w: %s", storage.ErrKeyKind, after.Kind())
	}
	l, err := s.Log(coll)
	if err != nil {
		return nil, err
	}
	// Undecodable documents are skipped and the read continues past them,
	// so a page of bad entries cannot pin the caller's cursor.
	out := make([]storage.Record, 0, capHint(limit))
	for {
		want := limit
		if limit > 0 {
			want = limit - len(out)
		}
		items, err := l.Read(from, want)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			from = it.ID
			var doc map[string]any
			if err := json.Unmarshal(it.Doc, &doc); err != nil {
				s.logger.Warn("skipping undecodable document", log.Str("collection", coll), log.Str("id", it.ID.String()), log.Err(err))
				continue
			}
			out = append(out, storage.Record{Key: cursor.FixedKey(it.ID), Doc: doc})
		}
		if limit <= 0 || len(items) < want || len(out) >= limit {
			return out, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

// Stats implements storage.Store.
func (s *Store) Stats(ctx context.Context, coll string) (storage.Stats, error) {
	if err := ctx.Err(); err != nil {
		return storage.Stats{}, err
	}
	l, err := s.Log(coll)
	if err != nil {
		return storage.Stats{}, err
	}
	st := storage.Stats{Count: int64(l.Count())}
	oldest, ok, err := l.Oldest()
	if err != nil || !ok {
		return st, err
	}
	newest, _, err := l.Newest()
	if err != nil {
		return st, err
	}
	st.Oldest, st.Newest, st.HasData = cursor.FixedKey(oldest), cursor.FixedKey(newest), true
	return st, nil
}

// Append implements storage.Appender.
func (s *Store) Append(ctx context.Context, coll string, docs []map[string]any) ([]cursor.Key, error) {
	raw := make([][]byte, len(docs))
	for i, d := range docs {
		b, err := json.Marshal(d)
		if err != nil {
			return nil, fmt.Errorf("eventlog: encode document %d: %w", i, err)
		}
		raw[i] = b
	}
	l, err := s.Log(coll)
	if err != nil {
		return nil, err
	}
	ids, err := l.Append(ctx, raw)
	if err != nil {
		return nil, err
	}
	keys := make([]cursor.Key, len(ids))
	for i, v := range ids {
		keys[i] = cursor.FixedKey(v)
	}
	return keys, nil
}

// Ping implements storage.Store.
func (s *Store) Ping(ctx context.Context) error { return s.db.Ping(ctx) }

// Close implements storage.Store.
func (s *Store) Close() error { return s.db.Close() }

// RunRetention trims entries older than maxAge from colls every interval
// until ctx is done.
func (s *Store) RunRetention(ctx context.Context, colls []string, maxAge, interval time.Duration) {
	if maxAge <= 0 {
		return
	}
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			for _, coll := range colls {
				l, err := s.Log(coll)
				if err != nil {
					s.logger.Error("retention: open log", log.Str("collection", coll), log.Err(err))
					continue
				}
				n, err := l.TrimOlderThan(ctx, now.Add(-maxAge), 1024)
				if err != nil && ctx.Err() == nil {
					s.logger.Error("retention: trim", log.Str("collection", coll), log.Err(err))
				}
				if n > 0 {
					s.logger.Debug("retention: trimmed", log.Str("collection", coll), log.Int("deleted", n))
				}
			}
		}
	}
}
