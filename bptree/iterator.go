package bptree

import (
	"fmt"

	"daemonidx/storage/page"
)

// Iterator walks the tree's leaves in ascending key order via the sibling
// chain, holding at most one read latch at a time: advancing past the last
// entry of a leaf releases that leaf's latch before the next one is
// acquired.
type Iterator[K any, V any] struct {
	tree *BPlusTree[K, V]
	leaf *ReadGuard
	slot int
}

// AtEnd reports whether the iterator has been exhausted.
func (it *Iterator[K, V]) AtEnd() bool { return it.leaf == nil }

// Close releases any latch the iterator is still holding. Safe to call on
// an already-exhausted iterator.
func (it *Iterator[K, V]) Close() {
	if it.leaf != nil {
		it.leaf.Release()
		it.leaf = nil
	}
}

// Key returns the entry the iterator currently points at. Undefined at end.
func (it *Iterator[K, V]) Key() K {
	lv := it.tree.leafView(it.leaf.Data())
	return lv.KeyAt(it.slot)
}

// Value returns the entry the iterator currently points at. Undefined at
// end.
func (it *Iterator[K, V]) Value() V {
	lv := it.tree.leafView(it.leaf.Data())
	return lv.ValueAt(it.slot)
}

// Next advances to the following entry, crossing into the sibling leaf (and
// releasing the current one) when the current leaf is exhausted.
func (it *Iterator[K, V]) Next() error {
	if it.leaf == nil {
		return nil
	}
	it.slot++
	return it.skipEmptyLeaves()
}

// skipEmptyLeaves advances across sibling leaves until the iterator either
// points at a real entry or reaches the end of the chain.
func (it *Iterator[K, V]) skipEmptyLeaves() error {
	for it.leaf != nil {
		lv := it.tree.leafView(it.leaf.Data())
		if it.slot < int(lv.Size()) {
			return nil
		}
		nextID := lv.GetNextPageID()
		it.leaf.Release()
		it.leaf = nil
		if nextID == page.InvalidID {
			return nil
		}
		next, err := fetchRead(it.tree.pool, nextID)
		if err != nil {
			return fmt.Errorf("bptree: iterator: %w", err)
		}
		it.leaf = next
		it.slot = 0
	}
	return nil
}

// Begin returns an iterator positioned at the smallest key in the tree.
func (t *BPlusTree[K, V]) Begin() (*Iterator[K, V], error) {
	hg, err := fetchRead(t.pool, t.headerPageID)
	if err != nil {
		return nil, fmt.Errorf("bptree: Begin: %w", err)
	}
	root := NewHeaderView(hg.Data()).RootPageID()
	hg.Release()

	if root == page.InvalidID {
		return &Iterator[K, V]{tree: t}, nil
	}

	cur, err := fetchRead(t.pool, root)
	if err != nil {
		return nil, fmt.Errorf("bptree: Begin: %w", err)
	}
	for !isLeafPage(cur.Data()) {
		iv := t.internalView(cur.Data())
		next, err := fetchRead(t.pool, iv.ValueAt(0))
		cur.Release()
		if err != nil {
			return nil, fmt.Errorf("bptree: Begin: %w", err)
		}
		cur = next
	}

	it := &Iterator[K, V]{tree: t, leaf: cur, slot: 0}
	if err := it.skipEmptyLeaves(); err != nil {
		return nil, err
	}
	return it, nil
}

// BeginAt returns an iterator positioned at the smallest key >= key.
func (t *BPlusTree[K, V]) BeginAt(key K) (*Iterator[K, V], error) {
	leaf, err := t.findLeafRead(key)
	if err != nil {
		return nil, fmt.Errorf("bptree: BeginAt: %w", err)
	}
	if leaf == nil {
		return &Iterator[K, V]{tree: t}, nil
	}

	lv := t.leafView(leaf.Data())
	idx := leafSearch(lv, t.kc, key)

	var start int
	switch {
	case idx == -1:
		start = 0
	case t.kc.Compare(lv.KeyAt(idx), key) == 0:
		start = idx
	default:
		start = idx + 1
	}

	it := &Iterator[K, V]{tree: t, leaf: leaf, slot: start}
	if err := it.skipEmptyLeaves(); err != nil {
		return nil, err
	}
	return it, nil
}
