package bptree

import (
	"os"
	"path/filepath"
	"testing"

	"daemonidx/codec"
	"daemonidx/rid"
	"daemonidx/storage/bufferpool"
	"daemonidx/storage/diskmgr"
)

// testTree wires a real disk manager and buffer pool behind a small-fanout
// tree (leaf max 3, internal max 4) so split/borrow/merge paths trigger on
// just a handful of keys.
func testTree(t *testing.T) *BPlusTree[int32, rid.RID] {
	t.Helper()
	testDir := filepath.Join(os.TempDir(), "daemonidx_bptree_test")
	os.MkdirAll(testDir, 0755)
	t.Cleanup(func() { os.RemoveAll(testDir) })

	dm, err := diskmgr.Open(filepath.Join(testDir, t.Name()+".idx"))
	if err != nil {
		t.Fatalf("diskmgr.Open: %v", err)
	}
	t.Cleanup(func() { dm.Close() })

	pool, err := bufferpool.New(64, dm)
	if err != nil {
		t.Fatalf("bufferpool.New: %v", err)
	}

	headerID, err := dm.AllocatePage()
	if err != nil {
		t.Fatalf("AllocatePage: %v", err)
	}

	tree, err := New[int32, rid.RID]("test", headerID, pool, codec.Int32Key{}, rid.Codec{}, 3, 4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tree
}

func rv(key int32) rid.RID { return rid.RID{PageID: key, Slot: uint32(key)} }
