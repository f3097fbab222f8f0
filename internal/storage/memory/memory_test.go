package memory

import (
	"context"
	"testing"

	"github.com/corbtastik/incident-visualizer/internal/cursor"
	"github.com/corbtastik/incident-visualizer/internal/storage"
)

func TestAfterIsStrictAndOrdered(t *testing.T) {
	s := New()
	s.Put("c", storage.Record{Key: cursor.Int64Key(3)}, storage.Record{Key: cursor.Int64Key(1)}, storage.Record{Key: cursor.Int64Key(2)})
	ctx := context.Background()

	recs, err := s.After(ctx, "c", cursor.Int64Key(1), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 || recs[0].Key != cursor.Int64Key(2) || recs[1].Key != cursor.Int64Key(3) {
		t.Fatalf("recs = %+v", recs)
	}
	recs, _ = s.After(ctx, "c", cursor.Key{}, 1)
	if len(recs) != 1 || recs[0].Key != cursor.Int64Key(1) {
		t.Fatalf("limit/zero-after = %+v", recs)
	}
	newest, ok, _ := s.Newest(ctx, "c")
	if !ok || newest != cursor.Int64Key(3) {
		t.Fatalf("newest = %v", newest)
	}
	if got := len(s.Calls()); got != 3 {
		t.Fatalf("calls = %d", got)
	}
}

func TestAppendContinuesKeys(t *testing.T) {
	s := New()
	keys, _ := s.Append(context.Background(), "c", []map[string]any{{"a": 1}, {"a": 2}})
	if keys[0] != cursor.Int64Key(1) || keys[1] != cursor.Int64Key(2) {
		t.Fatalf("keys = %v", keys)
	}
	st, _ := s.Stats(context.Background(), "c")
	if st.Count != 2 || st.Newest != keys[1] {
		t.Fatalf("stats = %+v", st)
	}
}

func TestAppendAfterPutStaysOrdered(t *testing.T) {
	s := New()
	ctx := context.Background()
	text, err := cursor.GenericKey("zz")
	if err != nil {
		t.Fatal(err)
	}
	s.Put("c", storage.Record{Key: cursor.Int64Key(10)}, storage.Record{Key: text})

	keys, err := s.Append(ctx, "c", []map[string]any{{"a": 1}, {"a": 2}})
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 || keys[0] != cursor.Int64Key(11) || keys[1] != cursor.Int64Key(12) {
		t.Fatalf("keys = %v", keys)
	}

	recs, _ := s.After(ctx, "c", cursor.Key{}, 0)
	for i := 1; i < len(recs); i++ {
		if cursor.Compare(recs[i-1].Key, recs[i].Key) >= 0 {
			t.Fatalf("records out of order at %d: %v", i, recs)
		}
	}
	recs, _ = s.After(ctx, "c", cursor.Int64Key(10), 0)
	if len(recs) < 2 || recs[0].Key != keys[0] || recs[1].Key != keys[1] {
		t.Fatalf("after 10 = %+v", recs)
	}
}
