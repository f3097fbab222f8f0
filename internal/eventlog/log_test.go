package eventlog

import (
	"context"
	"fmt"
	"testing"

	pebblestore "github.com/corbtastik/incident-visualizer/internal/storage/pebble"
)

func openDB(t *testing.T, dir string) *pebblestore.DB {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	return db
}

func newTestLog(t *testing.T) *Log {
	t.Helper()
	db := openDB(t, t.TempDir())
	t.Cleanup(func() { _ = db.Close() })
	l, err := OpenLog(db, "business_events")
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	return l
}

func docs(n int) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		out[i] = []byte(fmt.Sprintf(`{"n":%d}`, i))
	}
	return out
}

func TestAppendAssignsIncreasingIDs(t *testing.T) {
	l := newTestLog(t)
	ids, err := l.Append(context.Background(), docs(3))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("want 3 ids, got %d", len(ids))
	}
	for i := 1; i < len(ids); i++ {
		if ids[i-1].Compare(ids[i]) >= 0 {
			t.Fatalf("ids not increasing: %v", ids)
		}
	}
	if l.Count() != 3 {
		t.Fatalf("count = %d", l.Count())
	}
}

func TestAppendDurableAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	db := openDB(t, dir)
	l, err := OpenLog(db, "business_events")
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	first, err := l.Append(context.Background(), docs(2))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db2 := openDB(t, dir)
	t.Cleanup(func() { _ = db2.Close() })
	l2, err := OpenLog(db2, "business_events")
	if err != nil {
		t.Fatalf("reopen log: %v", err)
	}
	if l2.Count() != 2 {
		t.Fatalf("count after reopen = %d", l2.Count())
	}
	next, err := l2.Append(context.Background(), docs(1))
	if err != nil {
		t.Fatalf("append2: %v", err)
	}
	if first[1].Compare(next[0]) >= 0 {
		t.Fatalf("id after reopen does not sort last: prev=%s next=%s", first[1], next[0])
	}
}

func TestOpenLogRejectsBadCollection(t *testing.T) {
	db := openDB(t, t.TempDir())
	t.Cleanup(func() { _ = db.Close() })
	if _, err := OpenLog(db, "a/b"); err == nil {
		t.Fatal("expected error")
	}
}
