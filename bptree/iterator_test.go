package bptree

import "testing"

func TestBeginOnEmptyTreeIsAtEnd(t *testing.T) {
	tree := testTree(t)
	it, err := tree.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if !it.AtEnd() {
		t.Errorf("expected Begin() on an empty tree to be immediately at end")
	}
	it.Close()
}

func TestIteratorWalksAllKeysInOrder(t *testing.T) {
	tree := testTree(t)
	keys := []int32{9, 7, 5, 3, 1, 8, 6, 4, 2, 0, 15, 11, 13, 10, 14, 12}
	insertAll(t, tree, keys)

	it, err := tree.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer it.Close()

	var got []int32
	for !it.AtEnd() {
		got = append(got, it.Key())
		if v := it.Value(); v != rv(it.Key()) {
			t.Errorf("Value() for key %d = %+v, want %+v", it.Key(), v, rv(it.Key()))
		}
		if err := it.Next(); err != nil {
			t.Fatalf("Next: %v", err)
		}
	}

	if len(got) != len(keys) {
		t.Fatalf("iterated %d keys, want %d", len(got), len(keys))
	}
	for i := 1; i < len(got); i++ {
		if got[i] <= got[i-1] {
			t.Fatalf("iteration not strictly ascending at index %d: %d then %d", i, got[i-1], got[i])
		}
	}
	if got[0] != 0 || got[len(got)-1] != 15 {
		t.Errorf("unexpected bounds: first=%d last=%d", got[0], got[len(got)-1])
	}
}

func TestBeginAtPositionsOnLowerBound(t *testing.T) {
	tree := testTree(t)
	insertAll(t, tree, []int32{0, 2, 4, 6, 8, 10, 12, 14, 16, 18, 20})

	it, err := tree.BeginAt(7)
	if err != nil {
		t.Fatalf("BeginAt(7): %v", err)
	}
	defer it.Close()
	if it.AtEnd() {
		t.Fatalf("expected BeginAt(7) to land before the end")
	}
	if it.Key() != 8 {
		t.Errorf("BeginAt(7).Key() = %d, want 8 (first key >= 7)", it.Key())
	}

	it2, err := tree.BeginAt(8)
	if err != nil {
		t.Fatalf("BeginAt(8): %v", err)
	}
	defer it2.Close()
	if it2.Key() != 8 {
		t.Errorf("BeginAt(8).Key() = %d, want 8 (exact match)", it2.Key())
	}
}

func TestBeginAtPastAllKeysIsAtEnd(t *testing.T) {
	tree := testTree(t)
	insertAll(t, tree, []int32{1, 2, 3})

	it, err := tree.BeginAt(100)
	if err != nil {
		t.Fatalf("BeginAt(100): %v", err)
	}
	defer it.Close()
	if !it.AtEnd() {
		t.Errorf("expected BeginAt() past the largest key to be at end")
	}
}
