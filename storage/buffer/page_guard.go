package buffer

import (
	"fmt"

	"github.com/y-akamatsu/KasagoDB/common"
	"github.com/y-akamatsu/KasagoDB/storage/page"
	"github.com/y-akamatsu/KasagoDB/types"
)

/**
 * Page guards pair one pin on one frame with an optional latch on the page
 * bytes, and give the pin/latch scoped, exactly-once release. A guard owns
 * its pin until Drop or until ownership transfers (UpgradeRead /
 * UpgradeWrite); the donor guard is emptied, so a later Drop on it is a
 * no-op. Unpinning an already-unpinned page is a programming error and
 * panics.
 */
type BasicPageGuard struct {
	bpm     *BufferPoolManager
	page_   *page.Page
	isDirty bool
}

// PageId returns the guarded page's id
func (g *BasicPageGuard) PageId() types.PageID {
	return g.page_.GetPageId()
}

// GetData exposes the page bytes for reading
func (g *BasicPageGuard) GetData() *[common.PageSize]byte {
	return g.page_.Data()
}

// GetDataMut exposes the page bytes for writing and marks the guard dirty
func (g *BasicPageGuard) GetDataMut() *[common.PageSize]byte {
	g.isDirty = true
	return g.page_.Data()
}

// Drop unpins the page with the guard's dirty flag. Dropping an emptied
// guard is a no-op; a failing unpin means the pin accounting is broken.
func (g *BasicPageGuard) Drop() {
	if g.bpm == nil {
		return
	}
	if !g.bpm.UnpinPage(g.PageId(), g.isDirty) {
		panic(fmt.Sprintf("page %d is already unpinned", g.PageId()))
	}
	g.bpm = nil
	g.page_ = nil
	g.isDirty = false
}

// UpgradeRead acquires the shared latch and transfers the pin to the
// returned read guard. The basic guard is emptied.
func (g *BasicPageGuard) UpgradeRead() ReadPageGuard {
	common.Assert(g.bpm != nil, "UpgradeRead on an emptied guard")
	g.page_.RLatch()
	rg := ReadPageGuard{BasicPageGuard{g.bpm, g.page_, g.isDirty}}
	g.bpm = nil
	g.page_ = nil
	g.isDirty = false
	return rg
}

// UpgradeWrite acquires the exclusive latch and transfers the pin to the
// returned write guard. The basic guard is emptied.
func (g *BasicPageGuard) UpgradeWrite() WritePageGuard {
	common.Assert(g.bpm != nil, "UpgradeWrite on an emptied guard")
	g.page_.WLatch()
	wg := WritePageGuard{BasicPageGuard{g.bpm, g.page_, true}}
	g.bpm = nil
	g.page_ = nil
	g.isDirty = false
	return wg
}

// ReadPageGuard additionally holds the shared latch on the page bytes
type ReadPageGuard struct {
	guard BasicPageGuard
}

func (g *ReadPageGuard) PageId() types.PageID {
	return g.guard.PageId()
}

func (g *ReadPageGuard) GetData() *[common.PageSize]byte {
	return g.guard.GetData()
}

// Drop releases the shared latch, then unpins
func (g *ReadPageGuard) Drop() {
	if g.guard.bpm == nil {
		return
	}
	g.guard.page_.RUnlatch()
	g.guard.Drop()
}

// WritePageGuard additionally holds the exclusive latch on the page bytes.
// It is dirty from birth: the page is written back even if the caller
// never mutated it.
type WritePageGuard struct {
	guard BasicPageGuard
}

func (g *WritePageGuard) PageId() types.PageID {
	return g.guard.PageId()
}

func (g *WritePageGuard) GetData() *[common.PageSize]byte {
	return g.guard.GetData()
}

func (g *WritePageGuard) GetDataMut() *[common.PageSize]byte {
	return g.guard.GetDataMut()
}

// Drop releases the exclusive latch, then unpins
func (g *WritePageGuard) Drop() {
	if g.guard.bpm == nil {
		return
	}
	g.guard.page_.WUnlatch()
	g.guard.Drop()
}

// FetchPageBasic returns the page pinned, with no latch held
func (b *BufferPoolManager) FetchPageBasic(pageID types.PageID) *BasicPageGuard {
	pg := b.FetchPage(pageID)
	if pg == nil {
		return nil
	}
	return &BasicPageGuard{b, pg, false}
}

// FetchPageRead returns the page pinned with the shared latch held
func (b *BufferPoolManager) FetchPageRead(pageID types.PageID) *ReadPageGuard {
	pg := b.FetchPage(pageID)
	if pg == nil {
		return nil
	}
	pg.RLatch()
	return &ReadPageGuard{BasicPageGuard{b, pg, false}}
}

// FetchPageWrite returns the page pinned with the exclusive latch held
func (b *BufferPoolManager) FetchPageWrite(pageID types.PageID) *WritePageGuard {
	pg := b.FetchPage(pageID)
	if pg == nil {
		return nil
	}
	pg.WLatch()
	return &WritePageGuard{BasicPageGuard{b, pg, true}}
}

// NewPageGuarded allocates a fresh page and returns it pinned, unlatched
func (b *BufferPoolManager) NewPageGuarded() *BasicPageGuard {
	pg := b.NewPage()
	if pg == nil {
		return nil
	}
	return &BasicPageGuard{b, pg, false}
}
