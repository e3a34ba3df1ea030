// Package diskmgr is the single-file on-disk pager backing one B+ tree
// index. It owns the OS file handle, reads and writes whole pages at
// pageID*PageSize offsets, and hands out monotonically increasing page ids.
//
// It knows nothing about the tree structure stored inside a page — that is
// the buffer pool's and the tree core's concern.
package diskmgr

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"daemonidx/storage/page"
)

// DiskManager manages disk I/O for a single index file.
type DiskManager struct {
	mu       sync.RWMutex
	file     *os.File
	path     string
	nextPage int32
}

// Open opens or creates the index file at path. Page 0 is never handed
// out, so a freshly created file starts handing out page ids at 1.
func Open(path string) (*DiskManager, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("diskmgr: failed to open %s: %w", path, err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("diskmgr: failed to stat %s: %w", path, err)
	}

	numPages := int32(stat.Size() / page.Size)
	next := numPages
	if next == 0 {
		next = 1
	}

	fmt.Printf("[DiskManager] Open: path=%s nextPage=%d\n", path, next)
	return &DiskManager{file: file, path: path, nextPage: next}, nil
}

// ReadPage reads the page at pageID from disk. Pages never written (a hole
// at the tail of a sparse file, or a brand-new allocation) read back as all
// zeros — callers initialize new pages before relying on their contents.
func (dm *DiskManager) ReadPage(pageID int32) (*page.Page, error) {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	if dm.file == nil {
		return nil, fmt.Errorf("diskmgr: file is closed")
	}

	pg := page.New(pageID)
	offset := int64(pageID) * int64(page.Size)
	n, err := dm.file.ReadAt(pg.Data[:], offset)
	if err != nil && n == 0 && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("diskmgr: failed to read page %d: %w", pageID, err)
	}
	return pg, nil
}

// WritePage writes pg's buffer to its on-disk slot.
func (dm *DiskManager) WritePage(pg *page.Page) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.file == nil {
		return fmt.Errorf("diskmgr: file is closed")
	}

	offset := int64(pg.ID) * int64(page.Size)
	if _, err := dm.file.WriteAt(pg.Data[:], offset); err != nil {
		return fmt.Errorf("diskmgr: failed to write page %d: %w", pg.ID, err)
	}
	return nil
}

// AllocatePage reserves the next page id. It does not touch disk; the
// caller (buffer pool) is responsible for eventually flushing the page's
// initial contents.
func (dm *DiskManager) AllocatePage() (int32, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.file == nil {
		return page.InvalidID, fmt.Errorf("diskmgr: file is closed")
	}

	id := dm.nextPage
	dm.nextPage++
	fmt.Printf("[DiskManager] AllocatePage: path=%s assigned pageID=%d\n", dm.path, id)
	return id, nil
}

// Sync flushes pending writes to stable storage.
func (dm *DiskManager) Sync() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.file == nil {
		return fmt.Errorf("diskmgr: file is closed")
	}
	return dm.file.Sync()
}

// Close syncs and closes the underlying file.
func (dm *DiskManager) Close() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.file == nil {
		return nil
	}
	if err := dm.file.Sync(); err != nil {
		dm.file.Close()
		dm.file = nil
		return fmt.Errorf("diskmgr: failed to sync before close: %w", err)
	}
	err := dm.file.Close()
	dm.file = nil
	return err
}
