package eventlog

import (
	"context"
	"testing"

	"github.com/corbtastik/incident-visualizer/pkg/id"
)

func seedLog(t *testing.T, n int) (*Log, []id.ID) {
	t.Helper()
	l := newTestLog(t)
	ids, err := l.Append(context.Background(), docs(n))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	return l, ids
}

func TestReadFromStart(t *testing.T) {
	l, ids := seedLog(t, 5)
	items, err := l.Read(id.ID{}, 3)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(items) != 3 || items[0].ID != ids[0] || items[2].ID != ids[2] {
		t.Fatalf("unexpected items: %+v", items)
	}
	if string(items[1].Doc) != `{"n":1}` {
		t.Fatalf("doc = %s", items[1].Doc)
	}
}

func TestReadAfterIsExclusive(t *testing.T) {
	l, ids := seedLog(t, 4)
	items, err := l.Read(ids[1], 0)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(items) != 2 || items[0].ID != ids[2] || items[1].ID != ids[3] {
		t.Fatalf("unexpected items: %+v", items)
	}
	items, _ = l.Read(ids[3], 10)
	if len(items) != 0 {
		t.Fatalf("read past newest returned %d items", len(items))
	}
}

func TestReadAfterUnknownID(t *testing.T) {
	l, ids := seedLog(t, 3)
	// An id between two stored ones still resumes at the next stored entry.
	between := id.Make(ids[0].Ms(), ids[0].Seq()+1)
	if between.Compare(ids[1]) >= 0 {
		t.Skip("ids are adjacent")
	}
	items, _ := l.Read(between, 1)
	if len(items) != 1 || items[0].ID != ids[1] {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestNewestOldest(t *testing.T) {
	l := newTestLog(t)
	if _, ok, err := l.Newest(); ok || err != nil {
		t.Fatalf("empty log newest ok=%v err=%v", ok, err)
	}
	ids, _ := l.Append(context.Background(), docs(3))
	newest, ok, _ := l.Newest()
	if !ok || newest != ids[2] {
		t.Fatalf("newest = %s", newest)
	}
	oldest, ok, _ := l.Oldest()
	if !ok || oldest != ids[0] {
		t.Fatalf("oldest = %s", oldest)
	}
}
