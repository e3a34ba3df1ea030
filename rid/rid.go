// Package rid defines the fixed-size record identifier stored as the value
// in every B+ tree leaf slot: an opaque fixed-size value the tree core
// never interprets, only copies in and out of leaf pages.
package rid

import "encoding/binary"

// Size is the fixed on-page width of an RID: a page id plus a slot number.
const Size = 8

// RID locates a record within the heap the index points into.
type RID struct {
	PageID int32
	Slot   uint32
}

// Codec implements codec.ValueCodec[RID] for use as a B+ tree leaf value.
type Codec struct{}

func (Codec) Size() int { return Size }

func (Codec) Encode(r RID, dst []byte) {
	binary.LittleEndian.PutUint32(dst[0:4], uint32(r.PageID))
	binary.LittleEndian.PutUint32(dst[4:8], r.Slot)
}

func (Codec) Decode(src []byte) RID {
	return RID{
		PageID: int32(binary.LittleEndian.Uint32(src[0:4])),
		Slot:   binary.LittleEndian.Uint32(src[4:8]),
	}
}
