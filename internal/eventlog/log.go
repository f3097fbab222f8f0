package eventlog

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"

	"github.com/cockroachdb/pebble"

	pebblestore "github.com/corbtastik/incident-visualizer/internal/storage/pebble"
	"github.com/corbtastik/incident-visualizer/pkg/id"
)

// Log is the append-only event log of one collection.
type Log struct {
	db   *pebblestore.DB
	coll string
	gen  *id.Generator

	mu    sync.Mutex
	count uint64
}

// OpenLog loads the entry count from metadata and primes the id generator
// past the newest stored entry so new ids keep sorting after old ones.
func OpenLog(db *pebblestore.DB, coll string) (*Log, error) {
	if err := validCollection(coll); err != nil {
		return nil, err
	}
	l := &Log{db: db, coll: coll, gen: id.NewGenerator()}
	meta, err := db.Get(KeyMeta(coll))
	switch {
	case err == nil && len(meta) >= 8:
		l.count = binary.BigEndian.Uint64(meta[:8])
	case err != nil && !errors.Is(err, pebble.ErrNotFound):
		return nil, err
	}
	if last, ok, err := l.Newest(); err != nil {
		return nil, err
	} else if ok {
		l.gen.Observe(last)
	}
	return l, nil
}

// Collection returns the collection name.
func (l *Log) Collection() string { return l.coll }

// Count returns the number of stored entries.
func (l *Log) Count() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Append stores docs (JSON) as one atomic batch and returns their ids in order.
func (l *Log) Append(ctx context.Context, docs [][]byte) ([]id.ID, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.db.NewBatch()
	defer b.Close()

	ids := make([]id.ID, len(docs))
	for i, doc := range docs {
		ids[i] = l.gen.Next()
		if err := b.Set(KeyEntry(l.coll, ids[i]), EncodeRecord(doc), nil); err != nil {
			return nil, err
		}
	}
	if err := b.Set(KeyMeta(l.coll), countBytes(l.count+uint64(len(docs))), nil); err != nil {
		return nil, err
	}
	if err := l.db.CommitBatch(ctx, b); err != nil {
		return nil, err
	}
	l.count += uint64(len(docs))
	return ids, nil
}

func countBytes(n uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], n)
	return b[:]
}
