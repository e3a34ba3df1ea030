// btreecli drives a bptree.BPlusTree[int32, rid.RID] backed by a single
// on-disk file, for manual testing and inspection.
//
// Usage:
//
//	btreecli <index-file> create
//	btreecli <index-file> insert-file <path>
//	btreecli <index-file> remove-file <path>
//	btreecli <index-file> batch-file <path>
//	btreecli <index-file> get <key>
//	btreecli <index-file> draw
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"daemonidx/bptree"
	"daemonidx/codec"
	"daemonidx/harness"
	"daemonidx/rid"
	"daemonidx/storage/bufferpool"
	"daemonidx/storage/diskmgr"
)

const (
	headerPageID    = 1
	leafMaxSize     = 64
	internalMaxSize = 64
	poolCapacity    = 128
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintf(os.Stderr, "Usage: %s <index-file> <create|insert-file|remove-file|batch-file|get|draw> [args...]\n", os.Args[0])
		os.Exit(1)
	}
	path, cmd, args := os.Args[1], os.Args[2], os.Args[3:]

	disk, err := diskmgr.Open(path)
	if err != nil {
		log.Fatalf("open %s: %v", path, err)
	}
	defer disk.Close()

	pool, err := bufferpool.New(poolCapacity, disk)
	if err != nil {
		log.Fatalf("new buffer pool: %v", err)
	}
	defer pool.FlushAllPages()

	kc := codec.Int32Key{}
	vc := rid.Codec{}

	var tree *bptree.BPlusTree[int32, rid.RID]
	if cmd == "create" {
		tree, err = bptree.New("cli", headerPageID, pool, kc, vc, leafMaxSize, internalMaxSize)
	} else {
		tree = bptree.Open("cli", headerPageID, pool, kc, vc, leafMaxSize, internalMaxSize)
	}
	if err != nil {
		log.Fatalf("open tree: %v", err)
	}

	switch cmd {
	case "create":
		fmt.Println("created empty tree at", path)

	case "insert-file":
		requireArgs(args, 1, "insert-file <path>")
		if err := harness.InsertFromFile(tree, args[0]); err != nil {
			log.Fatalf("insert-file: %v", err)
		}

	case "remove-file":
		requireArgs(args, 1, "remove-file <path>")
		if err := harness.RemoveFromFile(tree, args[0]); err != nil {
			log.Fatalf("remove-file: %v", err)
		}

	case "batch-file":
		requireArgs(args, 1, "batch-file <path>")
		if err := harness.BatchOpsFromFile(tree, args[0]); err != nil {
			log.Fatalf("batch-file: %v", err)
		}

	case "get":
		requireArgs(args, 1, "get <key>")
		key, err := strconv.ParseInt(args[0], 10, 32)
		if err != nil {
			log.Fatalf("bad key %q: %v", args[0], err)
		}
		v, ok, err := tree.GetValue(int32(key), nil)
		if err != nil {
			log.Fatalf("get: %v", err)
		}
		if !ok {
			fmt.Println("not found")
		} else {
			fmt.Printf("%d -> %+v\n", key, v)
		}

	case "draw":
		if err := tree.Draw(); err != nil {
			log.Fatalf("draw: %v", err)
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		os.Exit(1)
	}
}

func requireArgs(args []string, n int, usage string) {
	if len(args) < n {
		fmt.Fprintf(os.Stderr, "Usage: btreecli <index-file> %s\n", usage)
		os.Exit(1)
	}
}
