package bptree

import (
	"fmt"

	"daemonidx/storage/page"
	"daemonidx/storage/txn"
)

// nodeInsertSafe reports whether one more entry can be inserted into the
// node backed by buf without making it overflow, i.e. whether a split (and
// any propagation to its parent) can be ruled out in advance.
func (t *BPlusTree[K, V]) nodeInsertSafe(buf *[page.Size]byte) bool {
	if isLeafPage(buf) {
		lv := t.leafView(buf)
		return lv.Size()+1 < lv.MaxSize()
	}
	iv := t.internalView(buf)
	return iv.Size() < iv.MaxSize()
}

// Insert adds key/value to the tree, reporting false (no error) if key is
// already present: the index does not admit duplicate keys. txn is
// accepted but never interpreted.
func (t *BPlusTree[K, V]) Insert(key K, value V, _ *txn.Transaction) (bool, error) {
	ctx := newContext()

	hg, err := fetchWrite(t.pool, t.headerPageID)
	if err != nil {
		return false, fmt.Errorf("bptree: Insert: %w", err)
	}
	ctx.headerGuard = hg

	root := NewHeaderView(hg.Data()).RootPageID()
	if root == page.InvalidID {
		return t.insertIntoEmptyTree(hg, key, value)
	}
	ctx.rootPageID = root

	g, err := fetchWrite(t.pool, root)
	if err != nil {
		ctx.releaseAll()
		return false, fmt.Errorf("bptree: Insert: %w", err)
	}
	ctx.pushWrite(g)
	if t.nodeInsertSafe(g.Data()) {
		ctx.crab()
	}

	for !isLeafPage(g.Data()) {
		iv := t.internalView(g.Data())
		idx := internalSearch(iv, t.kc, key)
		childID := iv.ValueAt(idx)

		cg, err := fetchWrite(t.pool, childID)
		if err != nil {
			ctx.releaseAll()
			return false, fmt.Errorf("bptree: Insert: %w", err)
		}
		ctx.pushWrite(cg)
		if t.nodeInsertSafe(cg.Data()) {
			ctx.crab()
		}
		g = cg
	}

	ok, err := t.insertIntoLeaf(ctx, g, key, value)
	ctx.releaseAll()
	if err != nil {
		return false, fmt.Errorf("bptree: Insert: %w", err)
	}
	return ok, nil
}

func (t *BPlusTree[K, V]) insertIntoEmptyTree(hg *WriteGuard, key K, value V) (bool, error) {
	defer hg.Release()

	bg, id, err := newPage(t.pool)
	if err != nil {
		return false, fmt.Errorf("bptree: insertIntoEmptyTree: %w", err)
	}
	wg := bg.UpgradeWrite()
	defer wg.Release()

	lv := t.leafView(wg.DataMut())
	lv.Init(t.leafMaxSize)
	lv.SetAt(0, key, value)
	lv.SetSize(1)

	NewHeaderView(hg.DataMut()).SetRootPageID(id)
	return true, nil
}

// insertIntoLeaf inserts key/value into the leaf held by g, splitting (and
// propagating up via insertUp) if the insertion overflows it.
func (t *BPlusTree[K, V]) insertIntoLeaf(ctx *context, g *WriteGuard, key K, value V) (bool, error) {
	lv := t.leafView(g.DataMut())

	idx := leafSearch(lv, t.kc, key)
	if idx >= 0 && t.kc.Compare(lv.KeyAt(idx), key) == 0 {
		return false, nil
	}

	at := idx + 1
	lv.shiftUp(at)
	lv.SetAt(at, key, value)
	lv.IncreaseSize(1)

	if lv.Size() < lv.MaxSize() {
		return true, nil
	}

	sepKey, rightID, err := t.splitLeaf(lv)
	if err != nil {
		return false, err
	}
	return true, t.insertUp(ctx, g.PageID(), sepKey, rightID)
}

// splitLeaf moves the upper half of lv's entries into a freshly allocated
// sibling leaf, links it into the sibling chain, and returns the separator
// key (the new leaf's first key) and its page id.
func (t *BPlusTree[K, V]) splitLeaf(lv LeafView[K, V]) (K, int32, error) {
	var zero K

	bg, newID, err := newPage(t.pool)
	if err != nil {
		return zero, page.InvalidID, fmt.Errorf("bptree: splitLeaf: %w", err)
	}
	wg := bg.UpgradeWrite()
	defer wg.Release()

	nlv := t.leafView(wg.DataMut())
	nlv.Init(lv.MaxSize())

	total := int(lv.Size())
	mid := (total + 1) / 2
	rightCount := total - mid
	for i := 0; i < rightCount; i++ {
		nlv.SetAt(i, lv.KeyAt(mid+i), lv.ValueAt(mid+i))
	}
	nlv.SetSize(int32(rightCount))
	lv.SetSize(int32(mid))

	nlv.SetNextPageID(lv.GetNextPageID())
	lv.SetNextPageID(newID)

	return nlv.KeyAt(0), newID, nil
}

// splitInternal moves the upper half of iv's entries (including their
// child pointers) into a freshly allocated sibling, returning the key that
// separated the two halves (to be promoted to the parent) and the
// sibling's page id. The promoted key's slot becomes slot 0 of the new
// node, unused by the "first key unused" convention.
func (t *BPlusTree[K, V]) splitInternal(iv InternalView[K]) (K, int32, error) {
	var zero K

	bg, newID, err := newPage(t.pool)
	if err != nil {
		return zero, page.InvalidID, fmt.Errorf("bptree: splitInternal: %w", err)
	}
	wg := bg.UpgradeWrite()
	defer wg.Release()

	niv := t.internalView(wg.DataMut())
	niv.Init(iv.MaxSize())

	total := int(iv.Size())
	mid := (total + 1) / 2
	rightCount := total - mid
	for i := 0; i < rightCount; i++ {
		niv.SetValueAt(i, iv.ValueAt(mid+i))
		if i > 0 {
			niv.SetKeyAt(i, iv.KeyAt(mid+i))
		}
	}
	niv.SetSize(int32(rightCount))

	promoted := iv.KeyAt(mid)
	iv.SetSize(int32(mid))

	return promoted, newID, nil
}

// insertUp propagates a freshly split child's separator key into its
// parent, splitting the parent in turn (and recursing) if that overflows
// it, or growing a new root if the split node had no parent. splitNodeID
// is the page id of the node that just split; it sits at the top of ctx's
// write set and this call releases it.
func (t *BPlusTree[K, V]) insertUp(ctx *context, splitNodeID int32, key K, rightChild int32) error {
	n := len(ctx.writeSet)
	top := ctx.writeSet[n-1]
	top.Release()
	ctx.writeSet = ctx.writeSet[:n-1]

	if len(ctx.writeSet) == 0 {
		return t.newRoot(ctx, splitNodeID, key, rightChild)
	}

	parent := ctx.writeSet[len(ctx.writeSet)-1]
	iv := t.internalView(parent.DataMut())

	idx := iv.ValueIndex(splitNodeID)
	if idx < 0 {
		return fmt.Errorf("bptree: insertUp: split node %d not found in parent %d", splitNodeID, parent.PageID())
	}

	iv.shiftUp(idx + 1)
	iv.SetKeyAt(idx+1, key)
	iv.SetValueAt(idx+1, rightChild)
	iv.IncreaseSize(1)

	if iv.Size() <= iv.MaxSize() {
		return nil
	}

	promoted, newID, err := t.splitInternal(iv)
	if err != nil {
		return err
	}
	return t.insertUp(ctx, parent.PageID(), promoted, newID)
}

// newRoot grows the tree by one level: the node that just split had no
// parent, so a fresh internal root is allocated with the old node as its
// left child and the new sibling as its right child.
func (t *BPlusTree[K, V]) newRoot(ctx *context, leftChildID int32, key K, rightChild int32) error {
	if ctx.headerGuard == nil {
		return fmt.Errorf("bptree: newRoot: header latch not held")
	}

	bg, newID, err := newPage(t.pool)
	if err != nil {
		return fmt.Errorf("bptree: newRoot: %w", err)
	}
	wg := bg.UpgradeWrite()
	defer wg.Release()

	iv := t.internalView(wg.DataMut())
	iv.Init(t.internalMaxSize)
	iv.SetValueAt(0, leftChildID)
	iv.SetKeyAt(1, key)
	iv.SetValueAt(1, rightChild)
	iv.SetSize(2)

	NewHeaderView(ctx.headerGuard.DataMut()).SetRootPageID(newID)
	return nil
}
