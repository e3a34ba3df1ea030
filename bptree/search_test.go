package bptree

import (
	"testing"

	"daemonidx/codec"
	"daemonidx/rid"
	"daemonidx/storage/page"
)

func TestLeafSearch(t *testing.T) {
	var buf [page.Size]byte
	lv := NewLeafView[int32, rid.RID](&buf, codec.Int32Key{}, rid.Codec{})
	lv.Init(8)
	for i, k := range []int32{10, 20, 30} {
		lv.SetAt(i, k, rv(k))
	}
	lv.SetSize(3)

	cases := []struct {
		target int32
		want   int
	}{
		{5, -1},
		{10, 0},
		{15, 0},
		{20, 1},
		{29, 1},
		{30, 2},
		{100, 2},
	}
	for _, c := range cases {
		if got := leafSearch(lv, codec.Int32Key{}, c.target); got != c.want {
			t.Errorf("leafSearch(%d) = %d, want %d", c.target, got, c.want)
		}
	}
}

func TestInternalSearch(t *testing.T) {
	var buf [page.Size]byte
	iv := NewInternalView[int32](&buf, codec.Int32Key{})
	iv.Init(8)
	iv.SetValueAt(0, 1)
	iv.SetKeyAt(1, 20)
	iv.SetValueAt(1, 2)
	iv.SetKeyAt(2, 40)
	iv.SetValueAt(2, 3)
	iv.SetSize(3)

	cases := []struct {
		target int32
		want   int
	}{
		{5, 0},
		{19, 0},
		{20, 1},
		{39, 1},
		{40, 2},
		{100, 2},
	}
	for _, c := range cases {
		if got := internalSearch(iv, codec.Int32Key{}, c.target); got != c.want {
			t.Errorf("internalSearch(%d) = %d, want %d", c.target, got, c.want)
		}
	}
}

func TestGetValueOnEmptyTree(t *testing.T) {
	tree := testTree(t)
	_, ok, err := tree.GetValue(1, nil)
	if err != nil {
		t.Fatalf("GetValue: %v", err)
	}
	if ok {
		t.Errorf("expected GetValue on empty tree to report not-found")
	}
}

func TestGetValueFindsInsertedKey(t *testing.T) {
	tree := testTree(t)
	if ok, err := tree.Insert(5, rv(5), nil); err != nil || !ok {
		t.Fatalf("Insert: ok=%v err=%v", ok, err)
	}

	v, ok, err := tree.GetValue(5, nil)
	if err != nil {
		t.Fatalf("GetValue: %v", err)
	}
	if !ok {
		t.Fatalf("expected to find key 5")
	}
	if v != rv(5) {
		t.Errorf("GetValue(5) = %+v, want %+v", v, rv(5))
	}

	if _, ok, err := tree.GetValue(6, nil); err != nil || ok {
		t.Errorf("GetValue(6) = ok=%v err=%v, want ok=false", ok, err)
	}
}
