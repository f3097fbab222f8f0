package eventlog

import (
	"context"
	"time"

	"github.com/cockroachdb/pebble"
)

// TrimOlderThan deletes entries whose id timestamp is before cutoff, oldest
// first, committing every batchLimit deletes. It returns the number deleted.
func (l *Log) TrimOlderThan(ctx context.Context, cutoff time.Time, batchLimit int) (int, error) {
	if batchLimit <= 0 {
		batchLimit = 1024
	}
	cutoffMs := cutoff.UnixMilli()

	l.mu.Lock()
	defer l.mu.Unlock()

	lower, upper := entryBounds(l.coll)
	iter, err := l.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	deleted := 0
	for ok := iter.First(); ok; {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		b := l.db.NewBatch()
		n := 0
		for ok && n < batchLimit {
			i, idOK := idFromKey(iter.Key())
			if !idOK || i.Ms() >= cutoffMs {
				ok = false
				break
			}
			if err := b.Delete(iter.Key(), nil); err != nil {
				b.Close()
				return deleted, err
			}
			n++
			ok = iter.Next()
		}
		if n == 0 {
			b.Close()
			break
		}
		remaining := uint64(0)
		if l.count > uint64(n) {
			remaining = l.count - uint64(n)
		}
		if err := b.Set(KeyMeta(l.coll), countBytes(remaining), nil); err != nil {
			b.Close()
			return deleted, err
		}
		if err := l.db.CommitBatch(ctx, b); err != nil {
			b.Close()
			return deleted, err
		}
		b.Close()
		l.count = remaining
		deleted += n
	}
	return deleted, nil
}
