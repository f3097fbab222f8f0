// Package cursor implements the record key model and its opaque string codec.
//
// A Key is either a 12-byte fixed identifier (time-prefixed, rendered as 24
// hex characters) or a generic store-native value held as canonical JSON and
// rendered as "g." followed by unpadded base64url. The zero Key stands for
// "nothing observed yet" and encodes to the empty string (null on the wire).
//
//	k, err := cursor.Decode(req.After)
//	if errors.Is(err, cursor.ErrInvalidCursor) { /* 400 */ }
//	next := cursor.Encode(last.Key)
package cursor
