// Package bufferpool is the external collaborator that provides page fetch
// (with read or write latch), new-page allocation, and pin/unpin
// bookkeeping. The B+ tree core never touches the disk manager or a raw
// *page.Page directly — it only ever goes through here, and only ever
// through a page guard (package bptree) that wraps what this pool hands
// back.
package bufferpool

import (
	"fmt"
	"sync"

	ristretto "github.com/dgraph-io/ristretto/v2"

	"daemonidx/storage/diskmgr"
	"daemonidx/storage/page"
)

// LatchMode selects the latch FetchPage takes on a hit or after a load.
type LatchMode int

const (
	// NoLatch fetches and pins without taking the page's RWMutex. (NewPage
	// does not go through FetchPage; it always returns its page unlatched.)
	NoLatch LatchMode = iota
	ReadLatch
	WriteLatch
)

// WALFlushedLSNGetter lets the pool gate flush/eviction of a page on the
// durability of whatever log records cover it. A nil getter (the default)
// disables the gate entirely.
type WALFlushedLSNGetter interface {
	GetFlushedLSN() uint64
}

// BufferPool caches fixed-size pages in memory, backed by a single
// diskmgr.DiskManager. Eviction among unpinned pages is guided by a
// ristretto cache that tracks access frequency — ristretto's own
// expiry/eviction machinery is not relied on for correctness (it has no
// notion of a pin), only its frequency estimate is consulted to break ties
// among evictable candidates.
type BufferPool struct {
	mu       sync.Mutex
	pages    map[int32]*page.Page
	capacity int
	disk     *diskmgr.DiskManager
	wal      WALFlushedLSNGetter
	hot      *ristretto.Cache[int32, struct{}]
	// order lists cached page ids in insertion order, so eviction scans
	// candidates in a stable order rather than Go's randomized map order.
	order []int32
}

func New(capacity int, disk *diskmgr.DiskManager) (*BufferPool, error) {
	hot, err := ristretto.NewCache(&ristretto.Config[int32, struct{}]{
		NumCounters: int64(capacity) * 10,
		MaxCost:     int64(capacity),
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("bufferpool: failed to build frequency cache: %w", err)
	}

	return &BufferPool{
		pages:    make(map[int32]*page.Page, capacity),
		capacity: capacity,
		disk:     disk,
		hot:      hot,
		order:    make([]int32, 0, capacity),
	}, nil
}

// SetWAL wires the flush-durability gate. See WALFlushedLSNGetter.
func (bp *BufferPool) SetWAL(wal WALFlushedLSNGetter) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	bp.wal = wal
}

// FetchPage loads pageID (from cache or disk), pins it, and latches it in
// mode. The caller must eventually call UnpinPage and must itself release
// whatever latch it took (the page's RLock/Lock is exposed directly; page
// guards in package bptree are the intended caller).
func (bp *BufferPool) FetchPage(pageID int32, mode LatchMode) (*page.Page, error) {
	bp.mu.Lock()
	pg, exists := bp.pages[pageID]
	if !exists {
		fmt.Printf("[BufferPool] MISS pageID=%d — loading from disk\n", pageID)
		var err error
		pg, err = bp.loadLocked(pageID)
		if err != nil {
			bp.mu.Unlock()
			return nil, err
		}
	} else {
		fmt.Printf("[BufferPool] HIT  pageID=%d pinCount=%d\n", pageID, pg.PinCount)
		bp.touchLocked(pageID)
	}
	pg.PinCount++
	bp.mu.Unlock()

	bp.hot.Set(pageID, struct{}{}, 1)
	latch(pg, mode)
	return pg, nil
}

// NewPage allocates a fresh page, pins it, and returns it unlatched — the
// caller takes the latch itself once it owns exclusive knowledge of the new
// id (mirrors a basic page guard immediately upgrading after allocation).
func (bp *BufferPool) NewPage() (*page.Page, error) {
	id, err := bp.disk.AllocatePage()
	if err != nil {
		return nil, fmt.Errorf("bufferpool: failed to allocate page: %w", err)
	}

	pg := page.New(id)
	pg.IsDirty = true
	pg.PinCount = 1

	bp.mu.Lock()
	if err := bp.addLocked(pg); err != nil {
		bp.mu.Unlock()
		return nil, err
	}
	bp.mu.Unlock()

	return pg, nil
}

// UnpinPage decrements the pin count and optionally marks the page dirty.
func (bp *BufferPool) UnpinPage(pageID int32, dirty bool) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	pg, exists := bp.pages[pageID]
	if !exists {
		return fmt.Errorf("bufferpool: page %d not in pool", pageID)
	}
	if pg.PinCount > 0 {
		pg.PinCount--
	}
	if dirty {
		pg.IsDirty = true
	}
	return nil
}

// FlushPage writes pageID back to disk if dirty and not blocked by the WAL
// durability gate.
func (bp *BufferPool) FlushPage(pageID int32) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	pg, exists := bp.pages[pageID]
	if !exists {
		return fmt.Errorf("bufferpool: page %d not in pool", pageID)
	}
	return bp.flushLocked(pg)
}

// FlushAllPages writes every dirty, WAL-cleared page back to disk.
func (bp *BufferPool) FlushAllPages() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	fmt.Printf("[BufferPool] FlushAllPages — pool size=%d\n", len(bp.pages))
	for _, pg := range bp.pages {
		if err := bp.flushLocked(pg); err != nil {
			return err
		}
	}
	return nil
}

func (bp *BufferPool) flushLocked(pg *page.Page) error {
	if !pg.IsDirty {
		return nil
	}
	if bp.wal != nil {
		if flushed := bp.wal.GetFlushedLSN(); pg.LSN > flushed {
			fmt.Printf("[BufferPool] FLUSH BLOCKED pageID=%d pageLSN=%d flushedLSN=%d\n", pg.ID, pg.LSN, flushed)
			return nil
		}
	}
	fmt.Printf("[BufferPool] FLUSH pageID=%d\n", pg.ID)
	if err := bp.disk.WritePage(pg); err != nil {
		return fmt.Errorf("bufferpool: failed to flush page %d: %w", pg.ID, err)
	}
	pg.IsDirty = false
	return nil
}

func (bp *BufferPool) loadLocked(pageID int32) (*page.Page, error) {
	pg, err := bp.disk.ReadPage(pageID)
	if err != nil {
		return nil, fmt.Errorf("bufferpool: failed to read page %d: %w", pageID, err)
	}
	if err := bp.addLocked(pg); err != nil {
		return nil, err
	}
	return pg, nil
}

// addLocked inserts pg into the pool, evicting an unpinned victim first if
// at capacity. Caller holds bp.mu.
func (bp *BufferPool) addLocked(pg *page.Page) error {
	if _, exists := bp.pages[pg.ID]; exists {
		bp.touchLocked(pg.ID)
		return nil
	}

	if len(bp.pages) >= bp.capacity {
		if err := bp.evictLocked(); err != nil {
			return fmt.Errorf("bufferpool: failed to make room for page %d: %w", pg.ID, err)
		}
	}

	bp.pages[pg.ID] = pg
	bp.order = append(bp.order, pg.ID)
	return nil
}

// evictLocked picks an unpinned victim among the pool's pages, preferring
// one ristretto has no frequency record for (cold) over one it does (hot).
// Dirty victims are flushed first, honoring the WAL gate; a dirty page the
// gate blocks is skipped in favor of the next candidate.
func (bp *BufferPool) evictLocked() error {
	var coldVictim, anyVictim int = -1, -1

	for i, id := range bp.order {
		pg, exists := bp.pages[id]
		if !exists {
			continue
		}
		if pg.PinCount > 0 {
			continue
		}
		if pg.IsDirty && bp.wal != nil && pg.LSN > bp.wal.GetFlushedLSN() {
			continue
		}
		if anyVictim == -1 {
			anyVictim = i
		}
		if _, found := bp.hot.Get(id); !found {
			coldVictim = i
			break
		}
	}

	victimIdx := coldVictim
	if victimIdx == -1 {
		victimIdx = anyVictim
	}
	if victimIdx == -1 {
		return fmt.Errorf("no unpinned, WAL-durable page to evict")
	}

	victimID := bp.order[victimIdx]
	pg := bp.pages[victimID]
	fmt.Printf("[BufferPool] EVICT pageID=%d dirty=%v\n", victimID, pg.IsDirty)
	if pg.IsDirty {
		if bp.wal != nil && pg.LSN > bp.wal.GetFlushedLSN() {
			return fmt.Errorf("page %d dirty and not yet WAL-durable, cannot evict", victimID)
		}
		if err := bp.disk.WritePage(pg); err != nil {
			return fmt.Errorf("failed to write page %d during eviction: %w", victimID, err)
		}
	}

	delete(bp.pages, victimID)
	bp.order = append(bp.order[:victimIdx], bp.order[victimIdx+1:]...)
	bp.hot.Del(victimID)
	return nil
}

func (bp *BufferPool) touchLocked(pageID int32) {
	bp.hot.Set(pageID, struct{}{}, 1)
}

// Size returns the number of pages currently cached.
func (bp *BufferPool) Size() int {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return len(bp.pages)
}

func latch(pg *page.Page, mode LatchMode) {
	switch mode {
	case ReadLatch:
		pg.RLock()
	case WriteLatch:
		pg.Lock()
	}
}
