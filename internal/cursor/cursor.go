package cursor

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// ErrInvalidCursor is returned when a cursor string cannot be decoded into a Key.
var ErrInvalidCursor = errors.New("invalid cursor")

// Kind discriminates the shape of a Key.
type Kind uint8

const (
	// KindNone is the zero Key: nothing observed yet.
	KindNone Kind = iota
	// KindFixed is a 12-byte time-prefixed identifier rendered as 24 hex chars.
	KindFixed
	// KindGeneric is any other store-native key, held as canonical JSON.
	KindGeneric
)

func (k Kind) String() string {
	switch k {
	case KindFixed:
		return "fixed"
	case KindGeneric:
		return "generic"
	default:
		return "none"
	}
}

// FixedLen is the byte length of a fixed key.
const FixedLen = 12

const (
	fixedHexLen   = FixedLen * 2
	genericPrefix = "g."
	maxCursorLen  = 4096
)

// Key is a totally ordered record key. The zero value means "no key".
// Keys are comparable with == and usable as map keys.
type Key struct {
	kind  Kind
	fixed [FixedLen]byte
	raw   string
}

// FixedKey builds a fixed key from its 12 raw bytes.
func FixedKey(b [FixedLen]byte) Key { return Key{kind: KindFixed, fixed: b} }

// ParseHex parses a 24-character hex string (either case) into a fixed key.
func ParseHex(s string) (Key, error) {
	if len(s) != fixedHexLen {
		return Key{}, fmt.Errorf("%w: want %d hex chars, got %d", ErrInvalidCursor, fixedHexLen, len(s))
	}
	var b [FixedLen]byte
	if _, err := hex.Decode(b[:], []byte(s)); err != nil {
		return Key{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	return FixedKey(b), nil
}

// GenericKey builds a generic key from any JSON-marshalable value.
func GenericKey(v any) (Key, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Key{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	return GenericRaw(b)
}

// GenericRaw builds a generic key from raw JSON text, compacting it.
func GenericRaw(raw []byte) (Key, error) {
	if !json.Valid(raw) {
		return Key{}, fmt.Errorf("%w: generic key is not valid JSON", ErrInvalidCursor)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return Key{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if buf.String() == "null" {
		return Key{}, fmt.Errorf("%w: null is not a key", ErrInvalidCursor)
	}
	return Key{kind: KindGeneric, raw: buf.String()}, nil
}

// Int64Key is shorthand for a generic key holding an integer.
func Int64Key(n int64) Key {
	return Key{kind: KindGeneric, raw: strconv.FormatInt(n, 10)}
}

// Kind reports the key shape.
func (k Key) Kind() Kind { return k.kind }

// IsZero reports whether k is the zero key.
func (k Key) IsZero() bool { return k.kind == KindNone }

// Bytes returns the raw bytes of a fixed key; zero for other kinds.
func (k Key) Bytes() [FixedLen]byte { return k.fixed }

// Raw returns the canonical JSON of a generic key; nil for other kinds.
func (k Key) Raw() []byte {
	if k.kind != KindGeneric {
		return nil
	}
	return []byte(k.raw)
}

// Int64 returns the integer held by a generic key, if it holds one.
func (k Key) Int64() (int64, bool) {
	if k.kind != KindGeneric {
		return 0, false
	}
	n, err := strconv.ParseInt(k.raw, 10, 64)
	return n, err == nil
}

// Value unmarshals a generic key into a Go value (numbers as json.Number).
func (k Key) Value() (any, error) {
	if k.kind != KindGeneric {
		return nil, fmt.Errorf("key kind %s has no JSON value", k.kind)
	}
	dec := json.NewDecoder(strings.NewReader(k.raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// String returns the cursor encoding of k.
func (k Key) String() string { return Encode(k) }

// MarshalJSON renders the key as its cursor string, or null for the zero key.
func (k Key) MarshalJSON() ([]byte, error) {
	if k.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(Encode(k))
}

// UnmarshalJSON accepts a cursor string or null.
func (k *Key) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*k = Key{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if s == "" {
		*k = Key{}
		return nil
	}
	d, err := Decode(s)
	if err != nil {
		return err
	}
	*k = d
	return nil
}

// Encode renders k as an opaque cursor string. The zero key encodes to "".
func Encode(k Key) string {
	switch k.kind {
	case KindFixed:
		return hex.EncodeToString(k.fixed[:])
	case KindGeneric:
		return genericPrefix + base64.RawURLEncoding.EncodeToString([]byte(k.raw))
	default:
		return ""
	}
}

// Decode parses a cursor string produced by Encode. Fixed cursors are also
// accepted in upper case. Errors wrap ErrInvalidCursor.
func Decode(s string) (Key, error) {
	switch {
	case s == "":
		return Key{}, fmt.Errorf("%w: empty", ErrInvalidCursor)
	case len(s) > maxCursorLen:
		return Key{}, fmt.Errorf("%w: too long", ErrInvalidCursor)
	case strings.HasPrefix(s, genericPrefix):
		raw, err := base64.RawURLEncoding.DecodeString(s[len(genericPrefix):])
		if err != nil {
			return Key{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
		}
		if len(raw) == 0 {
			return Key{}, fmt.Errorf("%w: empty generic key", ErrInvalidCursor)
		}
		return GenericRaw(raw)
	default:
		return ParseHex(s)
	}
}

// Compare orders keys: zero < fixed < generic. Fixed keys compare byte-wise;
// generic keys compare numerically when both hold numbers, else by text.
func Compare(a, b Key) int {
	if a.kind != b.kind {
		if a.kind < b.kind {
			return -1
		}
		return 1
	}
	switch a.kind {
	case KindFixed:
		return bytes.Compare(a.fixed[:], b.fixed[:])
	case KindGeneric:
		return compareGeneric(a.raw, b.raw)
	default:
		return 0
	}
}

// After reports whether k sorts strictly after o.
func (k Key) After(o Key) bool { return Compare(k, o) > 0 }

func compareGeneric(a, b string) int {
	if a == b {
		return 0
	}
	if x, err := strconv.ParseInt(a, 10, 64); err == nil {
		if y, err := strconv.ParseInt(b, 10, 64); err == nil {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	}
	x, xok := new(big.Float).SetString(a)
	y, yok := new(big.Float).SetString(b)
	switch {
	case xok && yok:
		if c := x.Cmp(y); c != 0 {
			return c
		}
	case xok:
		return -1
	case yok:
		return 1
	}
	return strings.Compare(a, b)
}
