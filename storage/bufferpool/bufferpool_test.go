package bufferpool

import (
	"os"
	"path/filepath"
	"testing"

	"daemonidx/storage/diskmgr"
)

func newTestPool(t *testing.T, capacity int) *BufferPool {
	t.Helper()
	testDir := filepath.Join(os.TempDir(), "daemonidx_bufferpool_test")
	os.MkdirAll(testDir, 0755)
	t.Cleanup(func() { os.RemoveAll(testDir) })

	dm, err := diskmgr.Open(filepath.Join(testDir, t.Name()+".idx"))
	if err != nil {
		t.Fatalf("diskmgr.Open: %v", err)
	}
	t.Cleanup(func() { dm.Close() })

	pool, err := New(capacity, dm)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return pool
}

func TestNewPageThenFetchRoundTrips(t *testing.T) {
	pool := newTestPool(t, 4)

	pg, err := pool.NewPage()
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	pg.Data[0] = 0x42
	if err := pool.UnpinPage(pg.ID, true); err != nil {
		t.Fatalf("UnpinPage: %v", err)
	}

	fetched, err := pool.FetchPage(pg.ID, ReadLatch)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	defer fetched.RUnlock()
	if fetched.Data[0] != 0x42 {
		t.Errorf("expected fetched page to retain written byte, got %d", fetched.Data[0])
	}
	pool.UnpinPage(pg.ID, false)
}

func TestUnpinnedPageIsEvictedAtCapacity(t *testing.T) {
	pool := newTestPool(t, 2)

	var ids []int32
	for i := 0; i < 2; i++ {
		pg, err := pool.NewPage()
		if err != nil {
			t.Fatalf("NewPage: %v", err)
		}
		ids = append(ids, pg.ID)
		if err := pool.UnpinPage(pg.ID, false); err != nil {
			t.Fatalf("UnpinPage: %v", err)
		}
	}
	if pool.Size() != 2 {
		t.Fatalf("expected pool size 2, got %d", pool.Size())
	}

	// A third page should evict one of the two unpinned pages.
	pg3, err := pool.NewPage()
	if err != nil {
		t.Fatalf("NewPage (third): %v", err)
	}
	pool.UnpinPage(pg3.ID, false)

	if pool.Size() > 2 {
		t.Errorf("expected pool to stay at capacity 2, got size %d", pool.Size())
	}
}

func TestPinnedPageIsNotEvicted(t *testing.T) {
	pool := newTestPool(t, 2)

	pinned, err := pool.NewPage()
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	// pinned stays pinned (never UnpinPage'd).

	other, err := pool.NewPage()
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	pool.UnpinPage(other.ID, false)

	// At capacity with pinned unpinnable, a third page must evict "other"
	// (the only unpinned candidate), never the pinned page.
	third, err := pool.NewPage()
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	pool.UnpinPage(third.ID, false)

	fetched, err := pool.FetchPage(pinned.ID, ReadLatch)
	if err != nil {
		t.Fatalf("expected pinned page %d to survive eviction pressure: %v", pinned.ID, err)
	}
	fetched.RUnlock()
	pool.UnpinPage(pinned.ID, false)
}

func TestAllPinnedPreventsEviction(t *testing.T) {
	pool := newTestPool(t, 1)

	_, err := pool.NewPage()
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	// Never unpinned: the pool is full of pinned pages.

	if _, err := pool.NewPage(); err == nil {
		t.Errorf("expected NewPage to fail when no unpinned page is available to evict")
	}
}

type fakeWAL struct{ flushed uint64 }

func (f *fakeWAL) GetFlushedLSN() uint64 { return f.flushed }

func TestFlushIsGatedByWAL(t *testing.T) {
	pool := newTestPool(t, 4)
	wal := &fakeWAL{flushed: 0}
	pool.SetWAL(wal)

	pg, err := pool.NewPage()
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	pg.LSN = 5
	pool.UnpinPage(pg.ID, true)

	if err := pool.FlushPage(pg.ID); err != nil {
		t.Fatalf("FlushPage: %v", err)
	}
	fetched, err := pool.FetchPage(pg.ID, ReadLatch)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	stillDirty := fetched.IsDirty
	fetched.RUnlock()
	pool.UnpinPage(pg.ID, false)
	if !stillDirty {
		t.Errorf("expected flush to be blocked by unflushed WAL LSN, but page was cleaned")
	}

	wal.flushed = 5
	if err := pool.FlushPage(pg.ID); err != nil {
		t.Fatalf("FlushPage after WAL catches up: %v", err)
	}
}
