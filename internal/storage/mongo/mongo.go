// Package mongo serves storage.Store from MongoDB collections ordered by _id.
// ObjectIDs surface as Fixed cursor keys; any other _id type becomes a
// Generic key holding its JSON rendering.
//
// A collection must keep a single _id type (ObjectID, number or string).
// BSON sorts mixed types differently from cursor keys and $gt only matches
// within one type, so After reports ErrMixedKeys instead of serving them.
package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/corbtastik/incident-visualizer/internal/cursor"
	"github.com/corbtastik/incident-visualizer/internal/storage"
)

// ErrMixedKeys is returned by After when one page holds more than one _id
// type.
var ErrMixedKeys = errors.New("mongo: collection mixes _id types")

// Store is a MongoDB backed storage.Store.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

var (
	_ storage.Store    = (*Store)(nil)
	_ storage.Appender = (*Store)(nil)
)

// Open connects to uri, pings the primary and selects database dbName.
func Open(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}
	return &Store{client: client, db: client.Database(dbName)}, nil
}

var idOnly = bson.D{{Key: "_id", Value: 1}}

// Newest implements storage.Reader.
func (s *Store) Newest(ctx context.Context, coll string) (cursor.Key, bool, error) {
	return s.edge(ctx, coll, -1)
}

func (s *Store) edge(ctx context.Context, coll string, dir int) (cursor.Key, bool, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: dir}}).SetProjection(idOnly)
	var doc bson.M
	err := s.db.Collection(coll).FindOne(ctx, bson.D{}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return cursor.Key{}, false, nil
	}
	if err != nil {
		return cursor.Key{}, false, fmt.Errorf("mongo: edge %s: %w", coll, err)
	}
	k, err := KeyOf(doc["_id"])
	if err != nil {
		return cursor.Key{}, false, err
	}
	return k, true, nil
}

// After implements storage.Reader.
func (s *Store) After(ctx context.Context, coll string, after cursor.Key, limit int) ([]storage.Record, error) {
	filter, err := FilterAfter(after)
	if err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.db.Collection(coll).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: find %s: %w", coll, err)
	}
	defer cur.Close(ctx)

	var out []storage.Record
	want := idType(after)
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, fmt.Errorf("mongo: decode %s: %w", coll, err)
		}
		k, err := KeyOf(raw["_id"])
		if err != nil {
			return nil, err
		}
		if want, err = sameIDType(want, k); err != nil {
			return nil, fmt.Errorf("%s: %w", coll, err)
		}
		doc, _ := Normalize(raw).(map[string]any)
		out = append(out, storage.Record{Key: k, Doc: doc})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("mongo: cursor %s: %w", coll, err)
	}
	return out, nil
}

// Stats implements storage.Store.
func (s *Store) Stats(ctx context.Context, coll string) (storage.Stats, error) {
	st := storage.Stats{Namespace: s.db.Name() + "." + coll}
	n, err := s.db.Collection(coll).CountDocuments(ctx, bson.D{})
	if err != nil {
		return st, fmt.Errorf("mongo: count %s: %w", coll, err)
	}
	st.Count = n
	newest, ok, err := s.edge(ctx, coll, -1)
	if err != nil || !ok {
		return st, err
	}
	oldest, _, err := s.edge(ctx, coll, 1)
	if err != nil {
		return st, err
	}
	st.Oldest, st.Newest, st.HasData = oldest, newest, true
	return st, nil
}

// Append implements storage.Appender. Documents without an _id get a fresh
// ObjectID.
func (s *Store) Append(ctx context.Context, coll string, docs []map[string]any) ([]cursor.Key, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	batch := make([]any, len(docs))
	keys := make([]cursor.Key, len(docs))
	for i, d := range docs {
		m := bson.M{}
		for k, v := range d {
			m[k] = v
		}
		if _, ok := m["_id"]; !ok {
			m["_id"] = primitive.NewObjectID()
		}
		k, err := KeyOf(m["_id"])
		if err != nil {
			return nil, err
		}
		batch[i], keys[i] = m, k
	}
	if _, err := s.db.Collection(coll).InsertMany(ctx, batch, options.InsertMany().SetOrdered(true)); err != nil {
		return nil, fmt.Errorf("mongo: insert %s: %w", coll, err)
	}
	return keys, nil
}

// Ping implements storage.Store.
func (s *Store) Ping(ctx context.Context) error { return s.client.Ping(ctx, readpref.Primary()) }

// Close implements storage.Store.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// KeyOf maps a stored _id onto a cursor key.
func KeyOf(v any) (cursor.Key, error) {
	switch id := v.(type) {
	case primitive.ObjectID:
		return cursor.FixedKey(id), nil
	case nil:
		return cursor.Key{}, fmt.Errorf("mongo: document has no _id")
	default:
		return cursor.GenericKey(Normalize(v))
	}
}

// idType classifies a key by the BSON type its _id has; "" for the zero key.
func idType(k cursor.Key) string {
	switch k.Kind() {
	case cursor.KindFixed:
		return "objectid"
	case cursor.KindGeneric:
		v, err := k.Value()
		if err != nil {
			return "other"
		}
		switch v.(type) {
		case json.Number:
			return "number"
		case string:
			return "string"
		}
		return "other"
	}
	return ""
}

// sameIDType checks k against the _id type seen so far. An empty want
// adopts k's type.
func sameIDType(want string, k cursor.Key) (string, error) {
	got := idType(k)
	if want == "" || want == got {
		return got, nil
	}
	return want, fmt.Errorf("%w: %s _id after %s", ErrMixedKeys, got, want)
}

// FilterAfter builds the {_id: {$gt: ...}} filter for a cursor key.
func FilterAfter(k cursor.Key) (bson.D, error) {
	var v any
	switch k.Kind() {
	case cursor.KindNone:
		return bson.D{}, nil
	case cursor.KindFixed:
		v = primitive.ObjectID(k.Bytes())
	default:
		raw, err := k.Value()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", storage.ErrKeyKind, err)
		}
		switch n := raw.(type) {
		case json.Number:
			if i, err := n.Int64(); err == nil {
				v = i
			} else if f, err := n.Float64(); err == nil {
				v = f
			} else {
				return nil, fmt.Errorf("%w: number %s", storage.ErrKeyKind, n)
			}
		case string:
			v = n
		default:
			return nil, fmt.Errorf("%w: unsupported generic _id %T", storage.ErrKeyKind, raw)
		}
	}
	return bson.D{{Key: "_id", Value: bson.D{{Key: "$gt", Value: v}}}}, nil
}

// Normalize converts BSON values into JSON-friendly Go values.
func Normalize(v any) any {
	switch t := v.(type) {
	case bson.M:
		out := make(map[string]any, len(t))
		for k, x := range t {
			out[k] = Normalize(x)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, x := range t {
			out[k] = Normalize(x)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = Normalize(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = Normalize(x)
		}
		return out
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC().Format(time.RFC3339Nano)
	case primitive.Decimal128:
		if f, err := strconv.ParseFloat(t.String(), 64); err == nil {
			return f
		}
		return t.String()
	case int32:
		return int64(t)
	default:
		return v
	}
}
