package eventlog

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
)

// Value layout: version(1B) | json doc | crc32c(doc) (4B BE).

const recordVersion = 1

// ErrCorrupt marks a stored value that fails its checksum or framing.
var ErrCorrupt = errors.New("eventlog: corrupt record")

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// EncodeRecord frames a document for storage.
func EncodeRecord(doc []byte) []byte {
	out := make([]byte, 0, 1+len(doc)+4)
	out = append(out, recordVersion)
	out = append(out, doc...)
	var crcb [4]byte
	binary.BigEndian.PutUint32(crcb[:], crc32.Checksum(doc, castagnoli))
	return append(out, crcb[:]...)
}

// DecodeRecord verifies and unframes a stored value. The returned slice is a copy.
func DecodeRecord(b []byte) ([]byte, error) {
	if len(b) < 1+4 || b[0] != recordVersion {
		return nil, ErrCorrupt
	}
	doc := b[1 : len(b)-4]
	if crc32.Checksum(doc, castagnoli) != binary.BigEndian.Uint32(b[len(b)-4:]) {
		return nil, ErrCorrupt
	}
	return append([]byte(nil), doc...), nil
}
