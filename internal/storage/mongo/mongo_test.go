package mongo

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/corbtastik/incident-visualizer/internal/cursor"
	"github.com/corbtastik/incident-visualizer/internal/storage"
)

func TestKeyOf(t *testing.T) {
	oid := primitive.NewObjectID()
	k, err := KeyOf(oid)
	if err != nil || k.Kind() != cursor.KindFixed || cursor.Encode(k) != oid.Hex() {
		t.Fatalf("objectid key = %v (%v)", k, err)
	}
	k, err = KeyOf(int32(7))
	if err != nil || k != cursor.Int64Key(7) {
		t.Fatalf("int key = %v (%v)", k, err)
	}
	if _, err := KeyOf(nil); err == nil {
		t.Fatal("nil _id accepted")
	}
}

func TestFilterAfter(t *testing.T) {
	f, err := FilterAfter(cursor.Key{})
	if err != nil || len(f) != 0 {
		t.Fatalf("zero key filter = %v", f)
	}

	oid := primitive.NewObjectID()
	f, _ = FilterAfter(cursor.FixedKey(oid))
	gt := f[0].Value.(bson.D)[0]
	if f[0].Key != "_id" || gt.Key != "$gt" || gt.Value != oid {
		t.Fatalf("fixed filter = %v", f)
	}

	f, _ = FilterAfter(cursor.Int64Key(99))
	if v := f[0].Value.(bson.D)[0].Value; v != int64(99) {
		t.Fatalf("int filter value = %#v", v)
	}

	str, _ := cursor.GenericKey("evt-10")
	f, _ = FilterAfter(str)
	if v := f[0].Value.(bson.D)[0].Value; v != "evt-10" {
		t.Fatalf("string filter value = %#v", v)
	}

	obj, _ := cursor.GenericKey(map[string]int{"a": 1})
	if _, err := FilterAfter(obj); !errors.Is(err, storage.ErrKeyKind) {
		t.Fatalf("object key err = %v", err)
	}
}

func TestNormalize(t *testing.T) {
	oid := primitive.NewObjectID()
	when := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	in := bson.M{
		"_id":  oid,
		"ts":   primitive.NewDateTimeFromTime(when),
		"n":    int32(3),
		"tags": bson.A{"a", int32(1)},
		"serviceIssue": bson.D{
			{Key: "type", Value: "outage"},
		},
	}
	out := Normalize(in).(map[string]any)
	if out["_id"] != oid.Hex() {
		t.Fatalf("_id = %v", out["_id"])
	}
	if out["ts"] != "2024-05-01T12:00:00Z" {
		t.Fatalf("ts = %v", out["ts"])
	}
	if out["n"] != int64(3) {
		t.Fatalf("n = %#v", out["n"])
	}
	if tags := out["tags"].([]any); tags[1] != int64(1) {
		t.Fatalf("tags = %#v", tags)
	}
	if si := out["serviceIssue"].(map[string]any); si["type"] != "outage" {
		t.Fatalf("serviceIssue = %#v", si)
	}
}

// Runs against a real server when INCIDENTS_TEST_MONGO_URI is set.
func TestStoreRoundTrip(t *testing.T) {
	uri := os.Getenv("INCIDENTS_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("INCIDENTS_TEST_MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	st, err := Open(ctx, uri, "incidents_test")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer st.Close()
	coll := "roundtrip_" + primitive.NewObjectID().Hex()
	t.Cleanup(func() { _ = st.db.Collection(coll).Drop(context.Background()) })

	keys, err := st.Append(ctx, coll, []map[string]any{{"city": "Mesa"}, {"city": "Waco"}})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	recs, err := st.After(ctx, coll, keys[0], 10)
	if err != nil || len(recs) != 1 || recs[0].Doc["city"] != "Waco" {
		t.Fatalf("after = %+v err=%v", recs, err)
	}
	stats, err := st.Stats(ctx, coll)
	if err != nil || stats.Count != 2 || stats.Newest != keys[1] {
		t.Fatalf("stats = %+v err=%v", stats, err)
	}
}

func TestSameIDTypeRejectsMixedKeys(t *testing.T) {
	oid := cursor.FixedKey(primitive.NewObjectID())
	str, _ := cursor.GenericKey("evt-10")
	num := cursor.Int64Key(3)

	want := idType(cursor.Key{})
	want, err := sameIDType(want, num)
	if err != nil || want != "number" {
		t.Fatalf("first key: %q %v", want, err)
	}
	if _, err := sameIDType(want, cursor.Int64Key(4)); err != nil {
		t.Fatalf("same type rejected: %v", err)
	}
	for _, k := range []cursor.Key{oid, str} {
		if _, err := sameIDType(want, k); !errors.Is(err, ErrMixedKeys) {
			t.Fatalf("%s accepted after number: %v", cursor.Encode(k), err)
		}
	}
	if _, err := sameIDType(idType(oid), str); !errors.Is(err, ErrMixedKeys) {
		t.Fatalf("string accepted after objectid cursor: %v", err)
	}
}
