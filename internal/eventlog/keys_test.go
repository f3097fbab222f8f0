package eventlog

import (
	"bytes"
	"testing"

	"github.com/corbtastik/incident-visualizer/pkg/id"
)

func TestEntryKeysSortByID(t *testing.T) {
	a := KeyEntry("business_events", id.Make(1000, 9))
	b := KeyEntry("business_events", id.Make(1001, 0))
	if bytes.Compare(a, b) >= 0 {
		t.Fatalf("expected a < b")
	}
	got, ok := idFromKey(b)
	if !ok || got != id.Make(1001, 0) {
		t.Fatalf("idFromKey = %v %v", got, ok)
	}
}

func TestEntryBoundsIsolateCollections(t *testing.T) {
	lo, hi := entryBounds("a")
	for _, k := range [][]byte{KeyEntry("a", id.Make(0, 0)), KeyEntry("a", id.Make(1<<40, 1<<40))} {
		if bytes.Compare(k, lo) < 0 || bytes.Compare(k, hi) >= 0 {
			t.Fatalf("key %x outside [%q, %q)", k, lo, hi)
		}
	}
	for _, k := range [][]byte{KeyMeta("a"), KeyEntry("ab", id.Make(1, 1)), KeyEntry("b", id.Make(0, 0))} {
		if bytes.Compare(k, lo) >= 0 && bytes.Compare(k, hi) < 0 {
			t.Fatalf("foreign key %q inside bounds", k)
		}
	}
}

func TestValidCollection(t *testing.T) {
	for _, bad := range []string{"", "a/b"} {
		if validCollection(bad) == nil {
			t.Fatalf("%q accepted", bad)
		}
	}
	if err := validCollection("federal_events"); err != nil {
		t.Fatal(err)
	}
}
