// Package id provides a 96-bit, lexicographically sortable record identifier.
//
// # Format
//
// The ID is 12 bytes big-endian: [6 bytes ms_timestamp][6 bytes sequence],
// the same width as a document-store object id so it travels through the
// fixed cursor encoding. Byte-wise order is chronological order; IDs minted
// within one millisecond increase by sequence.
//
// # Monotonicity
//
// The Generator never goes backwards. A regressing clock is pinned to the
// last seen millisecond, and sequence exhaustion within a millisecond waits
// for the next one.
//
//	g := id.NewGenerator()
//	k := g.Next()
//	_ = k.String() // 24 hex chars
//	_ = k.Time()   // embedded timestamp
package id
