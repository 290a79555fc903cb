package page

import (
	"sync/atomic"

	"github.com/y-akamatsu/KasagoDB/common"
	"github.com/y-akamatsu/KasagoDB/types"
)

/**
 * Page wraps one page-sized byte buffer resident in a buffer pool frame,
 * together with the bookkeeping the buffer pool manager needs: pin count,
 * dirty flag and the reader/writer latch on the page bytes. The latch never
 * protects pool metadata; the pool mutex does.
 */
type Page struct {
	id       types.PageID
	pinCount int32
	isDirty  bool // guarded by the pool mutex
	data     *[common.PageSize]byte
	rwlatch  common.ReaderWriterLatch
}

// IncPinCount increments pin count
func (p *Page) IncPinCount() {
	atomic.AddInt32(&p.pinCount, 1)
}

// DecPinCount decrements pin count
func (p *Page) DecPinCount() {
	atomic.AddInt32(&p.pinCount, -1)
}

// PinCount returns the pin count
func (p *Page) PinCount() int32 {
	return atomic.LoadInt32(&p.pinCount)
}

// GetPageId returns the page id
func (p *Page) GetPageId() types.PageID {
	return p.id
}

// Data returns the bytes stored on the page
func (p *Page) Data() *[common.PageSize]byte {
	return p.data
}

// SetIsDirty sets the isDirty bit
func (p *Page) SetIsDirty(isDirty bool) {
	p.isDirty = isDirty
}

// IsDirty checks if the page is dirty
func (p *Page) IsDirty() bool {
	return p.isDirty
}

// Copy copies data into the page at offset
func (p *Page) Copy(offset uint32, data []byte) {
	copy(p.data[offset:], data)
}

// WLatch acquires the page write latch
func (p *Page) WLatch() {
	if common.EnableDebug {
		common.LogDebug(common.DEBUG_INFO_DETAIL, "WLatch: pageId=%d", p.id)
	}
	p.rwlatch.WLock()
}

// WUnlatch releases the page write latch
func (p *Page) WUnlatch() {
	if common.EnableDebug {
		common.LogDebug(common.DEBUG_INFO_DETAIL, "WUnlatch: pageId=%d", p.id)
	}
	p.rwlatch.WUnlock()
}

// RLatch acquires the page read latch
func (p *Page) RLatch() {
	if common.EnableDebug {
		common.LogDebug(common.DEBUG_INFO_DETAIL, "RLatch: pageId=%d", p.id)
	}
	p.rwlatch.RLock()
}

// RUnlatch releases the page read latch
func (p *Page) RUnlatch() {
	if common.EnableDebug {
		common.LogDebug(common.DEBUG_INFO_DETAIL, "RUnlatch: pageId=%d", p.id)
	}
	p.rwlatch.RUnlock()
}

// New creates a page holding data read from disk, pinned once by the caller
func New(id types.PageID, isDirty bool, data *[common.PageSize]byte) *Page {
	return &Page{id, int32(1), isDirty, data, common.NewRWLatch()}
}

// NewEmpty creates a zeroed page, pinned once by the caller
func NewEmpty(id types.PageID) *Page {
	return &Page{id, int32(1), false, &[common.PageSize]byte{}, common.NewRWLatch()}
}
