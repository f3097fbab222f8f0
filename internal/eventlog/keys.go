package eventlog

import (
	"errors"
	"strings"

	"github.com/corbtastik/incident-visualizer/pkg/id"
)

// Keyspace (byte-wise, lexicographically sortable):
//   - cat/{coll}/m          collection metadata (entry count, 8B BE)
//   - cat/{coll}/e/{id12}   entries, ordered by id
var (
	collPrefix = []byte("cat/")
	metaSuffix = []byte("/m")
	entrySeg   = []byte("/e/")
)

var errBadCollection = errors.New("eventlog: collection name must be non-empty and contain no '/'")

func validCollection(coll string) error {
	if coll == "" || strings.ContainsRune(coll, '/') {
		return errBadCollection
	}
	return nil
}

// KeyMeta builds the collection metadata key.
func KeyMeta(coll string) []byte {
	k := make([]byte, 0, len(collPrefix)+len(coll)+len(metaSuffix))
	k = append(k, collPrefix...)
	k = append(k, coll...)
	return append(k, metaSuffix...)
}

// KeyEntry builds an entry key. Entry keys of one collection sort by id.
func KeyEntry(coll string, i id.ID) []byte {
	k := entryPrefix(coll)
	return append(k, i[:]...)
}

func entryPrefix(coll string) []byte {
	k := make([]byte, 0, len(collPrefix)+len(coll)+len(entrySeg)+id.Size)
	k = append(k, collPrefix...)
	k = append(k, coll...)
	return append(k, entrySeg...)
}

// entryBounds returns [lower, upper) covering every entry of coll.
func entryBounds(coll string) (lower, upper []byte) {
	lower = entryPrefix(coll)
	upper = append([]byte(nil), lower...)
	upper[len(upper)-1]++ // "/e/" -> "/e0"
	return lower, upper
}

// idFromKey extracts the trailing id of an entry key.
func idFromKey(k []byte) (id.ID, bool) {
	var i id.ID
	if len(k) < id.Size {
		return i, false
	}
	copy(i[:], k[len(k)-id.Size:])
	return i, true
}
