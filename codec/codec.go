// Package codec supplies the key/comparator facility the B+ tree treats as
// an opaque, externally-supplied type with a total-order comparator. Go
// has no templates, so the tree is parameterized over a Codec[K] type
// argument instead — it is what lets daemonidx/bptree be instantiated for
// multiple fixed key widths (e.g., 4, 8, 16, 32, 64 bytes) without
// resorting to a variable-length key.
package codec

import (
	"bytes"
	"encoding/binary"
)

// Codec is the total-order comparator plus the fixed-width on-page
// encoding for a key type K. Size must be constant for a given Codec value
// — every page laid out with a Codec stores Size bytes per key slot.
type Codec[K any] interface {
	Size() int
	Encode(k K, dst []byte)
	Decode(src []byte) K
	Compare(a, b K) int
}

// ValueCodec is Codec without the comparator — leaf values (RIDs) are
// opaque and never ordered, only stored and retrieved.
type ValueCodec[V any] interface {
	Size() int
	Encode(v V, dst []byte)
	Decode(src []byte) V
}

// Int32Key is a 4-byte key codec, e.g. for small surrogate integer keys.
type Int32Key struct{}

func (Int32Key) Size() int { return 4 }

func (Int32Key) Encode(k int32, dst []byte) {
	binary.LittleEndian.PutUint32(dst, uint32(k))
}

func (Int32Key) Decode(src []byte) int32 {
	return int32(binary.LittleEndian.Uint32(src))
}

func (Int32Key) Compare(a, b int32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Int64Key is an 8-byte key codec.
type Int64Key struct{}

func (Int64Key) Size() int { return 8 }

func (Int64Key) Encode(k int64, dst []byte) {
	binary.LittleEndian.PutUint64(dst, uint64(k))
}

func (Int64Key) Decode(src []byte) int64 {
	return int64(binary.LittleEndian.Uint64(src))
}

func (Int64Key) Compare(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// FixedBytes is a codec for opaque keys of a runtime-fixed width (e.g.
// 16/32/64-byte composite or character keys), compared lexicographically.
// Go has no const generics, so the width is a field rather than a type
// parameter; it covers key widths beyond the integer cases above.
type FixedBytes struct {
	Width int
}

// NewFixedBytes builds a FixedBytes codec for the given width in bytes.
func NewFixedBytes(width int) FixedBytes {
	return FixedBytes{Width: width}
}

func (c FixedBytes) Size() int { return c.Width }

func (c FixedBytes) Encode(k []byte, dst []byte) {
	copy(dst, k)
	for i := len(k); i < c.Width; i++ {
		dst[i] = 0
	}
}

func (c FixedBytes) Decode(src []byte) []byte {
	out := make([]byte, c.Width)
	copy(out, src[:c.Width])
	return out
}

func (c FixedBytes) Compare(a, b []byte) int {
	return bytes.Compare(a, b)
}
