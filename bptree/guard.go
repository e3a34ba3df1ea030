// Page guards: scoped ownership of one fetched page plus its latch. There
// are three variants — Basic (no latch, used right after creation), Read
// (shared latch), Write (exclusive latch) — each releasing the latch and
// unpinning the page exactly once, however the caller's scope exits. Go has
// no destructors, so "release on scope exit" becomes "call Release,
// normally via defer" — the natural Go shape for RAII-style ownership,
// cheap to get right because Release is idempotent and safe to defer
// unconditionally.
//
// Guards are single-owner: treat them as movable-not-copyable by always
// passing *Guard, never copying the struct, and never calling Release
// twice on the same instance outside of the double-release guard below.
package bptree

import (
	"fmt"

	"daemonidx/storage/bufferpool"
	"daemonidx/storage/page"
)

// BasicGuard owns a freshly allocated, unlatched page. It exists only long
// enough for the caller to initialize the new page's contents and then
// upgrade to a real latch: exactly once, to either a ReadGuard or a
// WriteGuard.
type BasicGuard struct {
	pool     *bufferpool.BufferPool
	pg       *page.Page
	released bool
}

func newBasicGuard(pool *bufferpool.BufferPool, pg *page.Page) *BasicGuard {
	return &BasicGuard{pool: pool, pg: pg}
}

func (g *BasicGuard) PageID() int32 { return g.pg.ID }

// Data returns a read-only view of the page payload.
func (g *BasicGuard) Data() *[page.Size]byte { return &g.pg.Data }

// DataMut returns a mutable view and marks the page dirty.
func (g *BasicGuard) DataMut() *[page.Size]byte {
	g.pg.IsDirty = true
	return &g.pg.Data
}

// UpgradeRead takes the page's read latch and returns a ReadGuard owning
// it. May only be called once per BasicGuard.
func (g *BasicGuard) UpgradeRead() *ReadGuard {
	g.pg.RLock()
	g.released = true
	return &ReadGuard{pool: g.pool, pg: g.pg}
}

// UpgradeWrite takes the page's write latch and returns a WriteGuard
// owning it. May only be called once per BasicGuard.
func (g *BasicGuard) UpgradeWrite() *WriteGuard {
	g.pg.Lock()
	g.released = true
	return &WriteGuard{pool: g.pool, pg: g.pg}
}

// Release unpins the page without taking or releasing any latch. No-op if
// the guard already upgraded or already released.
func (g *BasicGuard) Release() {
	if g.released {
		return
	}
	g.released = true
	_ = g.pool.UnpinPage(g.pg.ID, false)
}

// ReadGuard owns a page's shared latch.
type ReadGuard struct {
	pool     *bufferpool.BufferPool
	pg       *page.Page
	released bool
}

func (g *ReadGuard) PageID() int32           { return g.pg.ID }
func (g *ReadGuard) Data() *[page.Size]byte { return &g.pg.Data }

// Release releases the read latch and unpins the page. Safe to call more
// than once; only the first call has effect.
func (g *ReadGuard) Release() {
	if g.released {
		return
	}
	g.released = true
	g.pg.RUnlock()
	_ = g.pool.UnpinPage(g.pg.ID, false)
}

// WriteGuard owns a page's exclusive latch.
type WriteGuard struct {
	pool     *bufferpool.BufferPool
	pg       *page.Page
	released bool
}

func (g *WriteGuard) PageID() int32          { return g.pg.ID }
func (g *WriteGuard) Data() *[page.Size]byte { return &g.pg.Data }

// DataMut returns a mutable view and marks the page dirty.
func (g *WriteGuard) DataMut() *[page.Size]byte {
	g.pg.IsDirty = true
	return &g.pg.Data
}

// Release releases the write latch and unpins the page.
func (g *WriteGuard) Release() {
	if g.released {
		return
	}
	g.released = true
	g.pg.Unlock()
	_ = g.pool.UnpinPage(g.pg.ID, false)
}

// fetchRead acquires a page's read latch via the buffer pool.
func fetchRead(pool *bufferpool.BufferPool, id int32) (*ReadGuard, error) {
	pg, err := pool.FetchPage(id, bufferpool.ReadLatch)
	if err != nil {
		return nil, fmt.Errorf("bptree: acquire_read(%d): %w", id, err)
	}
	return &ReadGuard{pool: pool, pg: pg}, nil
}

// fetchWrite acquires a page's write latch via the buffer pool.
func fetchWrite(pool *bufferpool.BufferPool, id int32) (*WriteGuard, error) {
	pg, err := pool.FetchPage(id, bufferpool.WriteLatch)
	if err != nil {
		return nil, fmt.Errorf("bptree: acquire_write(%d): %w", id, err)
	}
	return &WriteGuard{pool: pool, pg: pg}, nil
}

// newPage allocates a new page and returns a basic (unlatched) guard plus
// its id.
func newPage(pool *bufferpool.BufferPool) (*BasicGuard, int32, error) {
	pg, err := pool.NewPage()
	if err != nil {
		return nil, page.InvalidID, fmt.Errorf("bptree: new_page(): %w", err)
	}
	return newBasicGuard(pool, pg), pg.ID, nil
}
