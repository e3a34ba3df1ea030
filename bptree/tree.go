package bptree

import (
	"fmt"

	"daemonidx/codec"
	"daemonidx/storage/bufferpool"
	"daemonidx/storage/page"
)

// BPlusTree is the generic, on-disk, concurrent B+ tree index. K is the
// key type (see package codec for ready-made fixed-width codecs); V is
// always expected to be rid.RID in practice, but is left generic so tests
// can substitute something smaller.
//
// Construction takes a tree name, a pre-allocated header page id, a buffer
// pool handle, a key codec (comparator + on-page encoding), and the
// leaf/internal fan-out bounds.
type BPlusTree[K any, V any] struct {
	name            string
	headerPageID    int32
	pool            *bufferpool.BufferPool
	kc              codec.Codec[K]
	vc              codec.ValueCodec[V]
	leafMaxSize     int32
	internalMaxSize int32
}

// New constructs a tree over a freshly allocated, not-yet-formatted header
// page and initializes it to the empty-tree sentinel. Use Open instead to
// attach to a header page an earlier New already formatted.
func New[K any, V any](
	name string,
	headerPageID int32,
	pool *bufferpool.BufferPool,
	kc codec.Codec[K],
	vc codec.ValueCodec[V],
	leafMaxSize, internalMaxSize int32,
) (*BPlusTree[K, V], error) {
	t := Open(name, headerPageID, pool, kc, vc, leafMaxSize, internalMaxSize)

	g, err := fetchWrite(pool, headerPageID)
	if err != nil {
		return nil, fmt.Errorf("bptree: New: %w", err)
	}
	NewHeaderView(g.DataMut()).SetRootPageID(page.InvalidID)
	g.Release()

	return t, nil
}

// Open attaches to an existing, already-formatted header page (e.g. one a
// prior New call initialized and whose contents were since persisted).
func Open[K any, V any](
	name string,
	headerPageID int32,
	pool *bufferpool.BufferPool,
	kc codec.Codec[K],
	vc codec.ValueCodec[V],
	leafMaxSize, internalMaxSize int32,
) *BPlusTree[K, V] {
	return &BPlusTree[K, V]{
		name:            name,
		headerPageID:    headerPageID,
		pool:            pool,
		kc:              kc,
		vc:              vc,
		leafMaxSize:     leafMaxSize,
		internalMaxSize: internalMaxSize,
	}
}

func (t *BPlusTree[K, V]) leafView(buf *[page.Size]byte) LeafView[K, V] {
	return NewLeafView(buf, t.kc, t.vc)
}

func (t *BPlusTree[K, V]) internalView(buf *[page.Size]byte) InternalView[K] {
	return NewInternalView(buf, t.kc)
}

// IsEmpty reports whether the tree currently has no keys.
func (t *BPlusTree[K, V]) IsEmpty() (bool, error) {
	g, err := fetchRead(t.pool, t.headerPageID)
	if err != nil {
		return false, fmt.Errorf("bptree: IsEmpty: %w", err)
	}
	defer g.Release()
	return NewHeaderView(g.Data()).RootPageID() == page.InvalidID, nil
}

// GetRootPageID returns the page id of the root node, or page.InvalidID if
// the tree is empty.
func (t *BPlusTree[K, V]) GetRootPageID() (int32, error) {
	g, err := fetchRead(t.pool, t.headerPageID)
	if err != nil {
		return page.InvalidID, fmt.Errorf("bptree: GetRootPageID: %w", err)
	}
	defer g.Release()
	return NewHeaderView(g.Data()).RootPageID(), nil
}
