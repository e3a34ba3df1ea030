package harness

import (
	"os"
	"path/filepath"
	"testing"

	"daemonidx/bptree"
	"daemonidx/codec"
	"daemonidx/rid"
	"daemonidx/storage/bufferpool"
	"daemonidx/storage/diskmgr"
)

func testTree(t *testing.T) *bptree.BPlusTree[int32, rid.RID] {
	t.Helper()
	testDir := filepath.Join(os.TempDir(), "daemonidx_harness_test")
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

	tree, err := bptree.New[int32, rid.RID]("test", headerID, pool, codec.Int32Key{}, rid.Codec{}, 8, 8)
	if err != nil {
		t.Fatalf("bptree.New: %v", err)
	}
	return tree
}

func writeTempFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ops.txt")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestInsertFromFile(t *testing.T) {
	tree := testTree(t)
	path := writeTempFile(t, "1 2 3\n4 5\n")

	if err := InsertFromFile(tree, path); err != nil {
		t.Fatalf("InsertFromFile: %v", err)
	}
	for _, k := range []int32{1, 2, 3, 4, 5} {
		if _, found, err := tree.GetValue(k, nil); err != nil || !found {
			t.Errorf("GetValue(%d): found=%v err=%v", k, found, err)
		}
	}
}

func TestInsertFromFileSkipsDuplicates(t *testing.T) {
	tree := testTree(t)
	path := writeTempFile(t, "1 1 2\n")

	if err := InsertFromFile(tree, path); err != nil {
		t.Fatalf("InsertFromFile: %v", err)
	}
	for _, k := range []int32{1, 2} {
		if _, found, err := tree.GetValue(k, nil); err != nil || !found {
			t.Errorf("GetValue(%d): found=%v err=%v", k, found, err)
		}
	}
}

func TestRemoveFromFile(t *testing.T) {
	tree := testTree(t)
	if err := InsertFromFile(tree, writeTempFile(t, "1 2 3 4 5")); err != nil {
		t.Fatalf("InsertFromFile: %v", err)
	}

	if err := RemoveFromFile(tree, writeTempFile(t, "2 4 99")); err != nil {
		t.Fatalf("RemoveFromFile: %v", err)
	}

	for _, k := range []int32{1, 3, 5} {
		if _, found, err := tree.GetValue(k, nil); err != nil || !found {
			t.Errorf("GetValue(%d): found=%v err=%v", k, found, err)
		}
	}
	for _, k := range []int32{2, 4} {
		if _, found, err := tree.GetValue(k, nil); err != nil || found {
			t.Errorf("GetValue(%d) found=%v, want absent", k, found)
		}
	}
}

func TestBatchOpsFromFile(t *testing.T) {
	tree := testTree(t)
	path := writeTempFile(t, "i 1\nI 2\nd 1\ni 3\n")

	if err := BatchOpsFromFile(tree, path); err != nil {
		t.Fatalf("BatchOpsFromFile: %v", err)
	}

	if _, found, err := tree.GetValue(1, nil); err != nil || found {
		t.Errorf("GetValue(1) found=%v, want absent after delete", found)
	}
	for _, k := range []int32{2, 3} {
		if _, found, err := tree.GetValue(k, nil); err != nil || !found {
			t.Errorf("GetValue(%d): found=%v err=%v", k, found, err)
		}
	}
}

func TestBatchOpsFromFileRejectsUnknownOp(t *testing.T) {
	tree := testTree(t)
	path := writeTempFile(t, "x 1\n")

	if err := BatchOpsFromFile(tree, path); err == nil {
		t.Errorf("expected an unknown op to produce an error")
	}
}

func TestBatchOpsFromFileRejectsDanglingOp(t *testing.T) {
	tree := testTree(t)
	path := writeTempFile(t, "i\n")

	if err := BatchOpsFromFile(tree, path); err == nil {
		t.Errorf("expected a dangling op with no key to produce an error")
	}
}
