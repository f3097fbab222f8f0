package eventlog

import (
	"bytes"

	"github.com/cockroachdb/pebble"

	"github.com/corbtastik/incident-visualizer/pkg/id"
)

// Item is one decoded entry.
type Item struct {
	ID  id.ID
	Doc []byte
}

// Read returns up to limit entries with id strictly greater than after,
// ascending. A zero after starts at the first entry; limit <= 0 means no
// limit. Entries that fail their checksum are skipped.
func (l *Log) Read(after id.ID, limit int) ([]Item, error) {
	lower, upper := entryBounds(l.coll)
	iter, err := l.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var ok bool
	if after.IsZero() {
		ok = iter.First()
	} else {
		start := KeyEntry(l.coll, after)
		ok = iter.SeekGE(start)
		if ok && bytes.Equal(iter.Key(), start) {
			ok = iter.Next()
		}
	}

	items := make([]Item, 0, capHint(limit))
	for ; ok && (limit <= 0 || len(items) < limit); ok = iter.Next() {
		i, idOK := idFromKey(iter.Key())
		if !idOK {
			continue
		}
		doc, err := DecodeRecord(iter.Value())
		if err != nil {
			continue
		}
		items = append(items, Item{ID: i, Doc: doc})
	}
	return items, iter.Error()
}

// Newest returns the greatest stored id.
func (l *Log) Newest() (id.ID, bool, error) { return l.edge(true) }

// Oldest returns the smallest stored id.
func (l *Log) Oldest() (id.ID, bool, error) { return l.edge(false) }

func (l *Log) edge(last bool) (id.ID, bool, error) {
	lower, upper := entryBounds(l.coll)
	iter, err := l.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return id.ID{}, false, err
	}
	defer iter.Close()
	var ok bool
	if last {
		ok = iter.Last()
	} else {
		ok = iter.First()
	}
	if !ok {
		return id.ID{}, false, iter.Error()
	}
	i, ok := idFromKey(iter.Key())
	return i, ok, nil
}

func capHint(limit int) int {
	if limit <= 0 || limit > 1024 {
		return 64
	}
	return limit
}
