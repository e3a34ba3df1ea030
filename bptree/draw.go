package bptree

import (
	"fmt"
	"io"
	"os"

	"daemonidx/storage/page"
)

// Draw prints a human-readable level-by-level dump of the tree to stdout.
// It is debug tooling, not a hot path: every node is fetched with a plain
// read latch and released immediately.
func (t *BPlusTree[K, V]) Draw() error { return t.DrawTo(os.Stdout) }

// DrawTo writes the dump to w: the header's root id, then a breadth-first
// walk printing each internal node's keys/children and each leaf's
// key->value pairs and sibling link.
func (t *BPlusTree[K, V]) DrawTo(w io.Writer) error {
	hg, err := fetchRead(t.pool, t.headerPageID)
	if err != nil {
		return fmt.Errorf("bptree: Draw: %w", err)
	}
	root := NewHeaderView(hg.Data()).RootPageID()
	hg.Release()

	fmt.Fprintf(w, "root = %d\n", root)
	if root == page.InvalidID {
		fmt.Fprintln(w, "(empty tree)")
		return nil
	}

	queue := []int32{root}
	level := 0
	for len(queue) > 0 {
		fmt.Fprintf(w, "level %d:\n", level)
		var next []int32
		for _, id := range queue {
			g, err := fetchRead(t.pool, id)
			if err != nil {
				fmt.Fprintf(w, "  [page %d] fetch error: %v\n", id, err)
				continue
			}
			if isLeafPage(g.Data()) {
				lv := t.leafView(g.Data())
				fmt.Fprintf(w, "  [leaf %d] size=%d next=%d", id, lv.Size(), lv.GetNextPageID())
				for i := 0; i < int(lv.Size()); i++ {
					fmt.Fprintf(w, " %v->%v", lv.KeyAt(i), lv.ValueAt(i))
				}
				fmt.Fprintln(w)
			} else {
				iv := t.internalView(g.Data())
				fmt.Fprintf(w, "  [internal %d] size=%d children=[%d", id, iv.Size(), iv.ValueAt(0))
				for i := 1; i < int(iv.Size()); i++ {
					fmt.Fprintf(w, " %v %d", iv.KeyAt(i), iv.ValueAt(i))
				}
				fmt.Fprintln(w, "]")
				for i := 0; i < int(iv.Size()); i++ {
					next = append(next, iv.ValueAt(i))
				}
			}
			g.Release()
		}
		queue = next
		level++
	}
	return nil
}
