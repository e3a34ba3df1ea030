package bptree

import (
	"fmt"

	"daemonidx/storage/page"
	"daemonidx/storage/txn"
)

// nodeRemoveSafe reports whether removing one entry from the node backed by
// buf is guaranteed not to drop it below the minimum occupancy that forces
// a borrow or merge.
func (t *BPlusTree[K, V]) nodeRemoveSafe(buf *[page.Size]byte, isRoot bool) bool {
	if isLeafPage(buf) {
		lv := t.leafView(buf)
		if isRoot {
			return lv.Size() > 1
		}
		return lv.Size() > lv.MinSize()
	}
	iv := t.internalView(buf)
	if isRoot {
		return iv.Size() > 2
	}
	return iv.Size() > iv.MinSize()
}

// Remove deletes key from the tree. A missing key is a silent no-op. txn is
// accepted but never interpreted.
func (t *BPlusTree[K, V]) Remove(key K, _ *txn.Transaction) error {
	ctx := newContext()

	hg, err := fetchWrite(t.pool, t.headerPageID)
	if err != nil {
		return fmt.Errorf("bptree: Remove: %w", err)
	}
	ctx.headerGuard = hg

	root := NewHeaderView(hg.Data()).RootPageID()
	if root == page.InvalidID {
		hg.Release()
		return nil
	}
	ctx.rootPageID = root

	g, err := fetchWrite(t.pool, root)
	if err != nil {
		ctx.releaseAll()
		return fmt.Errorf("bptree: Remove: %w", err)
	}
	ctx.pushWrite(g)
	if t.nodeRemoveSafe(g.Data(), true) {
		ctx.crab()
	}

	for !isLeafPage(g.Data()) {
		iv := t.internalView(g.Data())
		idx := internalSearch(iv, t.kc, key)
		childID := iv.ValueAt(idx)

		cg, err := fetchWrite(t.pool, childID)
		if err != nil {
			ctx.releaseAll()
			return fmt.Errorf("bptree: Remove: %w", err)
		}
		ctx.pushWrite(cg)
		if t.nodeRemoveSafe(cg.Data(), false) {
			ctx.crab()
		}
		g = cg
	}

	err = t.removeFromLeaf(ctx, g, key)
	ctx.releaseAll()
	if err != nil {
		return fmt.Errorf("bptree: Remove: %w", err)
	}
	return nil
}

func (t *BPlusTree[K, V]) removeFromLeaf(ctx *context, g *WriteGuard, key K) error {
	lv := t.leafView(g.DataMut())

	idx := leafSearch(lv, t.kc, key)
	if idx < 0 || t.kc.Compare(lv.KeyAt(idx), key) != 0 {
		return nil
	}
	lv.shiftDown(idx)
	lv.IncreaseSize(-1)

	if ctx.parent() == nil {
		// No parent is held: either the leaf is the root, or crabbing
		// proved it remove-safe and released its ancestors. Only a root
		// leaf can end up empty, and that just means an empty tree.
		if lv.Size() == 0 {
			NewHeaderView(ctx.headerGuard.DataMut()).SetRootPageID(page.InvalidID)
		}
		return nil
	}

	if lv.Size() >= lv.MinSize() {
		return nil
	}
	return t.fixUnderflow(ctx, g)
}

func (t *BPlusTree[K, V]) fixUnderflow(ctx *context, node *WriteGuard) error {
	if isLeafPage(node.Data()) {
		return t.fixLeafUnderflow(ctx, node)
	}
	return t.fixInternalUnderflow(ctx, node)
}

// fixLeafUnderflow resolves an underflowed non-root leaf by, in order:
// borrowing from the left sibling, borrowing from the right sibling, or
// merging with the left sibling (falling back to the right sibling only
// when there is no left one).
func (t *BPlusTree[K, V]) fixLeafUnderflow(ctx *context, node *WriteGuard) error {
	lv := t.leafView(node.DataMut())
	parent := ctx.parent()
	piv := t.internalView(parent.DataMut())
	idx := piv.ValueIndex(node.PageID())
	if idx < 0 {
		return fmt.Errorf("bptree: fixLeafUnderflow: node %d not found in parent %d", node.PageID(), parent.PageID())
	}

	if idx > 0 {
		left, err := fetchWrite(t.pool, piv.ValueAt(idx-1))
		if err != nil {
			return fmt.Errorf("bptree: fixLeafUnderflow: %w", err)
		}
		llv := t.leafView(left.DataMut())
		if llv.Size() > llv.MinSize() {
			last := int(llv.Size()) - 1
			k, v := llv.KeyAt(last), llv.ValueAt(last)
			llv.SetSize(llv.Size() - 1)

			lv.shiftUp(0)
			lv.SetAt(0, k, v)
			lv.IncreaseSize(1)

			piv.SetKeyAt(idx, k)
			left.Release()
			return nil
		}
		left.Release()
	}

	if idx < int(piv.Size())-1 {
		right, err := fetchWrite(t.pool, piv.ValueAt(idx+1))
		if err != nil {
			return fmt.Errorf("bptree: fixLeafUnderflow: %w", err)
		}
		rlv := t.leafView(right.DataMut())
		if rlv.Size() > rlv.MinSize() {
			k, v := rlv.KeyAt(0), rlv.ValueAt(0)
			rlv.shiftDown(0)
			rlv.SetSize(rlv.Size() - 1)

			lv.SetAt(int(lv.Size()), k, v)
			lv.IncreaseSize(1)

			piv.SetKeyAt(idx+1, rlv.KeyAt(0))
			right.Release()
			return nil
		}
		right.Release()
	}

	if idx > 0 {
		left, err := fetchWrite(t.pool, piv.ValueAt(idx-1))
		if err != nil {
			return fmt.Errorf("bptree: fixLeafUnderflow: %w", err)
		}
		llv := t.leafView(left.DataMut())
		n := int(llv.Size())
		for i := 0; i < int(lv.Size()); i++ {
			llv.SetAt(n+i, lv.KeyAt(i), lv.ValueAt(i))
		}
		llv.SetSize(llv.Size() + lv.Size())
		llv.SetNextPageID(lv.GetNextPageID())
		left.Release()
		return t.removeUp(ctx, idx)
	}

	right, err := fetchWrite(t.pool, piv.ValueAt(idx+1))
	if err != nil {
		return fmt.Errorf("bptree: fixLeafUnderflow: %w", err)
	}
	rlv := t.leafView(right.DataMut())
	n := int(lv.Size())
	for i := 0; i < int(rlv.Size()); i++ {
		lv.SetAt(n+i, rlv.KeyAt(i), rlv.ValueAt(i))
	}
	lv.SetSize(lv.Size() + rlv.Size())
	lv.SetNextPageID(rlv.GetNextPageID())
	right.Release()
	return t.removeUp(ctx, idx+1)
}

// fixInternalUnderflow mirrors fixLeafUnderflow for internal nodes. Moving
// a child across the separator requires re-deriving the key that becomes
// unused at its new first-child slot and the key promoted into the parent.
func (t *BPlusTree[K, V]) fixInternalUnderflow(ctx *context, node *WriteGuard) error {
	iv := t.internalView(node.DataMut())
	parent := ctx.parent()
	piv := t.internalView(parent.DataMut())
	idx := piv.ValueIndex(node.PageID())
	if idx < 0 {
		return fmt.Errorf("bptree: fixInternalUnderflow: node %d not found in parent %d", node.PageID(), parent.PageID())
	}

	if idx > 0 {
		left, err := fetchWrite(t.pool, piv.ValueAt(idx-1))
		if err != nil {
			return fmt.Errorf("bptree: fixInternalUnderflow: %w", err)
		}
		liv := t.internalView(left.DataMut())
		if liv.Size() > liv.MinSize() {
			last := int(liv.Size()) - 1
			borrowed := liv.ValueAt(last)
			newSep := liv.KeyAt(last)
			liv.SetSize(liv.Size() - 1)

			iv.shiftUp(0)
			iv.SetValueAt(0, borrowed)
			iv.SetKeyAt(1, piv.KeyAt(idx))
			iv.IncreaseSize(1)

			piv.SetKeyAt(idx, newSep)
			left.Release()
			return nil
		}
		left.Release()
	}

	if idx < int(piv.Size())-1 {
		right, err := fetchWrite(t.pool, piv.ValueAt(idx+1))
		if err != nil {
			return fmt.Errorf("bptree: fixInternalUnderflow: %w", err)
		}
		riv := t.internalView(right.DataMut())
		if riv.Size() > riv.MinSize() {
			borrowed := riv.ValueAt(0)
			newSep := riv.KeyAt(1)
			riv.shiftDown(0)
			riv.SetSize(riv.Size() - 1)

			at := int(iv.Size())
			iv.SetValueAt(at, borrowed)
			iv.SetKeyAt(at, piv.KeyAt(idx+1))
			iv.IncreaseSize(1)

			piv.SetKeyAt(idx+1, newSep)
			right.Release()
			return nil
		}
		right.Release()
	}

	if idx > 0 {
		left, err := fetchWrite(t.pool, piv.ValueAt(idx-1))
		if err != nil {
			return fmt.Errorf("bptree: fixInternalUnderflow: %w", err)
		}
		liv := t.internalView(left.DataMut())
		n := int(liv.Size())
		liv.SetValueAt(n, iv.ValueAt(0))
		liv.SetKeyAt(n, piv.KeyAt(idx))
		for i := 1; i < int(iv.Size()); i++ {
			liv.SetValueAt(n+i, iv.ValueAt(i))
			liv.SetKeyAt(n+i, iv.KeyAt(i))
		}
		liv.SetSize(liv.Size() + iv.Size())
		left.Release()
		return t.removeUp(ctx, idx)
	}

	right, err := fetchWrite(t.pool, piv.ValueAt(idx+1))
	if err != nil {
		return fmt.Errorf("bptree: fixInternalUnderflow: %w", err)
	}
	riv := t.internalView(right.DataMut())
	n := int(iv.Size())
	iv.SetValueAt(n, riv.ValueAt(0))
	iv.SetKeyAt(n, piv.KeyAt(idx+1))
	for i := 1; i < int(riv.Size()); i++ {
		iv.SetValueAt(n+i, riv.ValueAt(i))
		iv.SetKeyAt(n+i, riv.KeyAt(i))
	}
	iv.SetSize(iv.Size() + riv.Size())
	right.Release()
	return t.removeUp(ctx, idx+1)
}

// removeUp releases the current top of ctx's write set (the node whose
// underflow was just resolved by a merge), drops the merged-away child at
// removedChildIdx out of the parent and, if that underflows the parent in turn,
// recurses upward — or collapses the root if the parent is the root and is
// left with a single child.
func (t *BPlusTree[K, V]) removeUp(ctx *context, removedChildIdx int) error {
	n := len(ctx.writeSet)
	current := ctx.writeSet[n-1]
	current.Release()
	ctx.writeSet = ctx.writeSet[:n-1]

	if len(ctx.writeSet) == 0 {
		return nil
	}

	parent := ctx.writeSet[len(ctx.writeSet)-1]
	piv := t.internalView(parent.DataMut())
	piv.shiftDown(removedChildIdx)
	piv.IncreaseSize(-1)

	if ctx.isRootPage(parent.PageID()) {
		if piv.Size() == 1 {
			return t.collapseRoot(ctx)
		}
		return nil
	}

	if piv.Size() >= piv.MinSize() {
		return nil
	}
	return t.fixInternalUnderflow(ctx, parent)
}

// collapseRoot replaces a root that has been reduced to a single child
// with that child, shrinking the tree by one level.
func (t *BPlusTree[K, V]) collapseRoot(ctx *context) error {
	n := len(ctx.writeSet)
	root := ctx.writeSet[n-1]
	iv := t.internalView(root.DataMut())
	onlyChild := iv.ValueAt(0)
	root.Release()
	ctx.writeSet = ctx.writeSet[:n-1]

	NewHeaderView(ctx.headerGuard.DataMut()).SetRootPageID(onlyChild)
	return nil
}
