package eventlog

import (
	"context"
	"testing"
	"time"

	"github.com/corbtastik/incident-visualizer/pkg/id"
)

func TestTrimOlderThan(t *testing.T) {
	l := newTestLog(t)
	restore := id.NowMs
	t.Cleanup(func() { id.NowMs = restore })

	base := time.Now().Add(-time.Hour)
	for i, ms := range []int64{base.UnixMilli(), base.Add(10 * time.Minute).UnixMilli(), time.Now().UnixMilli() + 1000} {
		ms := ms
		id.NowMs = func() int64 { return ms }
		if _, err := l.Append(context.Background(), docs(1)); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	deleted, err := l.TrimOlderThan(context.Background(), time.Now(), 1)
	if err != nil {
		t.Fatalf("trim: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("deleted = %d, want 2", deleted)
	}
	if l.Count() != 1 {
		t.Fatalf("count = %d", l.Count())
	}
	items, _ := l.Read(id.ID{}, 0)
	if len(items) != 1 {
		t.Fatalf("remaining = %d", len(items))
	}
}
