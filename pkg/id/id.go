package id

import (
	"bytes"
	"encoding/hex"
	"sync"
	"time"
)

// Size is the byte length of an ID.
const Size = 12

const maxSeq = 1<<48 - 1

// ID is [6 bytes ms][6 bytes sequence], big-endian.
type ID [Size]byte

// Bytes returns a copy of the raw representation.
func (i ID) Bytes() []byte { b := make([]byte, Size); copy(b, i[:]); return b }

// String returns lowercase hex.
func (i ID) String() string { return hex.EncodeToString(i[:]) }

// Compare returns -1, 0, 1 based on byte-wise comparison.
func (i ID) Compare(other ID) int { return bytes.Compare(i[:], other[:]) }

// IsZero reports whether i is the zero ID.
func (i ID) IsZero() bool { return i == ID{} }

// Ms returns the embedded millisecond timestamp.
func (i ID) Ms() int64 { return int64(get48(i[0:6])) }

// Time returns the embedded timestamp.
func (i ID) Time() time.Time { return time.UnixMilli(i.Ms()) }

// Seq returns the embedded sequence.
func (i ID) Seq() uint64 { return get48(i[6:12]) }

// Generator produces strictly increasing IDs per process.
type Generator struct {
	mu       sync.Mutex
	lastMs   int64
	sequence uint64
}

// NewGenerator creates a new Generator.
func NewGenerator() *Generator { return &Generator{} }

// NowMs returns current time in milliseconds since Unix epoch.
var NowMs = func() int64 { return time.Now().UnixMilli() }

// Observe advances the generator past an existing ID so that IDs minted after
// reopening a store sort after what is already stored.
func (g *Generator) Observe(last ID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ms, seq := last.Ms(), last.Seq()
	if ms > g.lastMs || (ms == g.lastMs && seq > g.sequence) {
		g.lastMs, g.sequence = ms, seq
	}
}

// Next returns a new ID.
func (g *Generator) Next() ID {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := NowMs()
	if ms < g.lastMs {
		ms = g.lastMs
	}

	if ms == g.lastMs {
		if g.sequence >= maxSeq {
			for {
				ms = NowMs()
				if ms > g.lastMs {
					break
				}
				time.Sleep(time.Millisecond / 8)
			}
			g.sequence = 0
		} else {
			g.sequence++
		}
	} else {
		g.sequence = 0
	}

	g.lastMs = ms
	return Make(ms, g.sequence)
}

// Make assembles an ID from its parts. Values are truncated to 48 bits.
func Make(ms int64, seq uint64) ID {
	var i ID
	put48(i[0:6], uint64(ms))
	put48(i[6:12], seq)
	return i
}

func put48(b []byte, v uint64) {
	for k := 5; k >= 0; k-- {
		b[k] = byte(v)
		v >>= 8
	}
}

func get48(b []byte) uint64 {
	var v uint64
	for k := 0; k < 6; k++ {
		v = v<<8 | uint64(b[k])
	}
	return v
}
