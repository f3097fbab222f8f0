// Package livesvc implements the server side of tail replication: bootstrap
// (newest key of a category) and tail (records strictly after a cursor,
// ascending, page-limited, optionally CEL-filtered).
//
// The service is stateless per request. Cursors are supplied by the caller
// and never held server-side. Category names resolve through an immutable
// category.Registry before storage is touched.
//
//	svc := livesvc.New(store, registry, livesvc.Options{}, logger)
//	b, _ := svc.Bootstrap(ctx, "business")
//	resp, _ := svc.Tail(ctx, livesvc.TailRequest{Category: "business", Cursor: cursor.Encode(b.Cursor)})
package livesvc
