// Package eventlog is the embedded, Pebble-backed event store.
//
// Each collection is an append-only log keyed by 12-byte ids
// ([6B ms][6B seq], see pkg/id), so entry keys sort in append order and map
// one-to-one onto Fixed cursor keys:
//   - cat/{coll}/m         entry count
//   - cat/{coll}/e/{id12}  entries
//
// Values are framed as version | json | crc32c.
//
//	st := eventlog.NewStore(db, logger)
//	keys, _ := st.Append(ctx, "business_events", docs)
//	recs, _ := st.After(ctx, "business_events", keys[0], 200)
//
// Store.RunRetention optionally trims entries older than a maximum age.
package eventlog
