package bptree

import (
	"fmt"

	"daemonidx/codec"
	"daemonidx/storage/page"
	"daemonidx/storage/txn"
)

// leafSearch returns the largest slot 0 <= i < size whose key <= target, or
// -1 if every key in the leaf exceeds target.
func leafSearch[K any, V any](lv LeafView[K, V], kc codec.Codec[K], target K) int {
	lo, hi := 0, int(lv.Size())-1
	res := -1
	for lo <= hi {
		mid := lo + (hi-lo)/2
		if kc.Compare(lv.KeyAt(mid), target) <= 0 {
			res = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return res
}

// internalSearch returns the slot i such that key_at(i) <= target <
// key_at(i+1), treating slot 0's key as -infinity. Equality at a separator
// means "go right": the returned slot's key equals target when a key in
// the page matches exactly.
func internalSearch[K any](iv InternalView[K], kc codec.Codec[K], target K) int {
	lo, hi := 1, int(iv.Size())-1
	res := 0
	for lo <= hi {
		mid := lo + (hi-lo)/2
		if kc.Compare(iv.KeyAt(mid), target) <= 0 {
			res = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return res
}

// findLeafRead descends from the root to the leaf that would hold key,
// crabbing read latches: the header latch is dropped as soon as the root
// id is read, and each parent's read latch is dropped as soon as the
// child's is acquired. Returns a nil guard (no error) for an empty tree.
func (t *BPlusTree[K, V]) findLeafRead(key K) (*ReadGuard, error) {
	hg, err := fetchRead(t.pool, t.headerPageID)
	if err != nil {
		return nil, err
	}
	root := NewHeaderView(hg.Data()).RootPageID()
	hg.Release()

	if root == page.InvalidID {
		return nil, nil
	}

	cur, err := fetchRead(t.pool, root)
	if err != nil {
		return nil, err
	}

	for !isLeafPage(cur.Data()) {
		iv := t.internalView(cur.Data())
		idx := internalSearch(iv, t.kc, key)
		childID := iv.ValueAt(idx)

		next, err := fetchRead(t.pool, childID)
		cur.Release()
		if err != nil {
			return nil, err
		}
		cur = next
	}

	return cur, nil
}

// GetValue looks up key and reports whether it is present. txn is accepted
// but never interpreted.
func (t *BPlusTree[K, V]) GetValue(key K, _ *txn.Transaction) (V, bool, error) {
	var zero V

	leaf, err := t.findLeafRead(key)
	if err != nil {
		return zero, false, fmt.Errorf("bptree: GetValue: %w", err)
	}
	if leaf == nil {
		return zero, false, nil
	}
	defer leaf.Release()

	lv := t.leafView(leaf.Data())
	idx := leafSearch(lv, t.kc, key)
	if idx == -1 || t.kc.Compare(lv.KeyAt(idx), key) != 0 {
		return zero, false, nil
	}
	return lv.ValueAt(idx), true, nil
}
