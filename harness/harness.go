// Package harness provides file-driven batch operations for exercising a
// bptree.BPlusTree[int32, rid.RID] with large, scripted workloads instead
// of one call per key — the kind of thing a test or a load-testing CLI
// reaches for. These are test/load-driving tools, not core tree
// operations, which is why they live in their own package rather than as
// methods on BPlusTree.
package harness

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"daemonidx/bptree"
	"daemonidx/rid"
)

// syntheticRID builds a deterministic, recognizable value for a harness
// key: tests only need to round-trip the key through the tree, not model a
// real heap location.
func syntheticRID(key int32) rid.RID {
	return rid.RID{PageID: key, Slot: 0}
}

// InsertFromFile inserts every whitespace-separated integer key found in
// path, in file order. A duplicate key is skipped (Insert already reports
// that case; the harness just keeps going).
func InsertFromFile(tree *bptree.BPlusTree[int32, rid.RID], path string) error {
	return forEachToken(path, func(tok string) error {
		key, err := strconv.ParseInt(tok, 10, 32)
		if err != nil {
			return fmt.Errorf("harness: InsertFromFile: bad key %q: %w", tok, err)
		}
		_, err = tree.Insert(int32(key), syntheticRID(int32(key)), nil)
		return err
	})
}

// RemoveFromFile removes every whitespace-separated integer key found in
// path, in file order. Missing keys are silently skipped.
func RemoveFromFile(tree *bptree.BPlusTree[int32, rid.RID], path string) error {
	return forEachToken(path, func(tok string) error {
		key, err := strconv.ParseInt(tok, 10, 32)
		if err != nil {
			return fmt.Errorf("harness: RemoveFromFile: bad key %q: %w", tok, err)
		}
		return tree.Remove(int32(key), nil)
	})
}

// BatchOpsFromFile replays a mixed script of "i <key>" / "d <key>" token
// pairs against tree, in file order.
func BatchOpsFromFile(tree *bptree.BPlusTree[int32, rid.RID], path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("harness: BatchOpsFromFile: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Split(bufio.ScanWords)

	for sc.Scan() {
		op := sc.Text()
		if !sc.Scan() {
			return fmt.Errorf("harness: BatchOpsFromFile: dangling op %q with no key", op)
		}
		key, err := strconv.ParseInt(sc.Text(), 10, 32)
		if err != nil {
			return fmt.Errorf("harness: BatchOpsFromFile: bad key %q: %w", sc.Text(), err)
		}

		switch strings.ToLower(op) {
		case "i":
			if _, err := tree.Insert(int32(key), syntheticRID(int32(key)), nil); err != nil {
				return fmt.Errorf("harness: BatchOpsFromFile: insert %d: %w", key, err)
			}
		case "d":
			if err := tree.Remove(int32(key), nil); err != nil {
				return fmt.Errorf("harness: BatchOpsFromFile: remove %d: %w", key, err)
			}
		default:
			return fmt.Errorf("harness: BatchOpsFromFile: unknown op %q", op)
		}
	}
	return sc.Err()
}

func forEachToken(path string, fn func(tok string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("harness: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Split(bufio.ScanWords)
	for sc.Scan() {
		if err := fn(sc.Text()); err != nil {
			return err
		}
	}
	return sc.Err()
}
