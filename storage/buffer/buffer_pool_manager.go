package buffer

import (
	"fmt"
	"sort"
	"sync"

	"github.com/y-akamatsu/KasagoDB/common"
	"github.com/y-akamatsu/KasagoDB/storage/disk"
	"github.com/y-akamatsu/KasagoDB/storage/page"
	"github.com/y-akamatsu/KasagoDB/types"
)

// LogFlusher is the recovery hook. When set, the buffer pool flushes the
// log ahead of writing back a dirty victim (write-ahead rule). Recovery
// itself is out of scope here.
type LogFlusher interface {
	Flush()
}

/**
 * BufferPoolManager mediates all disk I/O through a bounded set of frames.
 * A single pool-wide mutex guards the page table, free list, pin counts,
 * dirty flags and the replacer; I/O is issued while holding it, which is
 * correct but coarse.
 */
type BufferPoolManager struct {
	diskScheduler    *disk.DiskScheduler
	pages            []*page.Page // index is FrameID
	replacer         *LRUKReplacer
	freeList         []FrameID
	reUsablePageList []types.PageID
	pageTable        map[types.PageID]FrameID
	nextPageID       types.PageID
	logFlusher       LogFlusher // may be nil
	mutex            *sync.Mutex
}

// NewBufferPoolManager returns an empty buffer pool manager of poolSize
// frames. logFlusher may be nil.
func NewBufferPoolManager(poolSize uint32, replacerK uint32, diskManager disk.DiskManager, logFlusher LogFlusher) *BufferPoolManager {
	freeList := make([]FrameID, poolSize)
	pages := make([]*page.Page, poolSize)
	for i := uint32(0); i < poolSize; i++ {
		freeList[i] = FrameID(i)
		pages[i] = nil
	}

	return &BufferPoolManager{
		diskScheduler:    disk.NewDiskScheduler(diskManager),
		pages:            pages,
		replacer:         NewLRUKReplacer(poolSize, replacerK),
		freeList:         freeList,
		reUsablePageList: make([]types.PageID, 0),
		pageTable:        make(map[types.PageID]FrameID),
		nextPageID:       0,
		logFlusher:       logFlusher,
		mutex:            new(sync.Mutex),
	}
}

// NewPage allocates a fresh page pinned in a frame, or nil when every
// frame is pinned.
func (b *BufferPoolManager) NewPage() *page.Page {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	frameID := b.getFrameID()
	if frameID == nil {
		return nil
	}

	pageID := b.allocatePage()
	pg := page.NewEmpty(pageID)
	b.pageTable[pageID] = *frameID
	b.pages[*frameID] = pg
	b.replacer.RecordAccess(*frameID)
	b.replacer.SetEvictable(*frameID, false)

	common.LogDebug(common.DEBUG_INFO, "NewPage: returned pageID: %d", pageID)
	return pg
}

// FetchPage returns the requested page pinned in a frame, reading it from
// disk when it is not resident. Returns nil when every frame is pinned.
func (b *BufferPoolManager) FetchPage(pageID types.PageID) *page.Page {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if frameID, ok := b.pageTable[pageID]; ok {
		pg := b.pages[frameID]
		pg.IncPinCount()
		b.replacer.RecordAccess(frameID)
		b.replacer.SetEvictable(frameID, false)
		common.LogDebug(common.PIN_COUNT_TRACE, "FetchPage: PageId=%d PinCount=%d", pg.GetPageId(), pg.PinCount())
		return pg
	}

	frameID := b.getFrameID()
	if frameID == nil {
		return nil
	}

	var pageData [common.PageSize]byte
	promise := b.diskScheduler.CreatePromise()
	b.diskScheduler.Schedule(&disk.DiskRequest{IsWrite: false, Data: pageData[:], PageID: pageID, Callback: promise})
	if err := <-promise; err != nil {
		// put the frame back; the page never became resident
		b.freeList = append(b.freeList, *frameID)
		common.LogDebug(common.DEBUG_INFO, "FetchPage: read of pageId=%d failed: %v", pageID, err)
		return nil
	}

	pg := page.New(pageID, false, &pageData)
	b.pageTable[pageID] = *frameID
	b.pages[*frameID] = pg
	b.replacer.RecordAccess(*frameID)
	b.replacer.SetEvictable(*frameID, false)

	common.LogDebug(common.CACHE_OUT_IN_INFO, "FetchPage: cache in pageId=%d", pageID)
	return pg
}

// UnpinPage releases one pin. dirty=true marks the page dirty; it never
// clears the flag. When the pin count reaches zero the frame becomes
// evictable.
func (b *BufferPoolManager) UnpinPage(pageID types.PageID, dirty bool) bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	frameID, ok := b.pageTable[pageID]
	if !ok {
		return false
	}
	pg := b.pages[frameID]
	if pg.PinCount() <= 0 {
		return false
	}

	pg.DecPinCount()
	if dirty {
		pg.SetIsDirty(true)
	}
	if pg.PinCount() == 0 {
		b.replacer.SetEvictable(frameID, true)
	}
	common.LogDebug(common.PIN_COUNT_TRACE, "UnpinPage: PageId=%d PinCount=%d", pg.GetPageId(), pg.PinCount())
	return true
}

// FlushPage writes the page to disk and clears its dirty flag regardless
// of the flag's prior value. The page is durable before return.
func (b *BufferPoolManager) FlushPage(pageID types.PageID) bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.flushPageLocked(pageID)
}

func (b *BufferPoolManager) flushPageLocked(pageID types.PageID) bool {
	frameID, ok := b.pageTable[pageID]
	if !ok {
		return false
	}
	pg := b.pages[frameID]

	promise := b.diskScheduler.CreatePromise()
	b.diskScheduler.Schedule(&disk.DiskRequest{IsWrite: true, Data: pg.Data()[:], PageID: pageID, Callback: promise})
	if err := <-promise; err != nil {
		return false
	}
	pg.SetIsDirty(false)
	return true
}

// FlushAllPages flushes every resident page, dirty or not, waiting for
// each write to complete. Used on shutdown.
func (b *BufferPoolManager) FlushAllPages() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	for pageID := range b.pageTable {
		b.flushPageLocked(pageID)
	}
}

// DeletePage drops a resident page from the pool and recycles its page ID.
// Deleting a non-resident page is a no-op success; a pinned page refuses.
func (b *BufferPoolManager) DeletePage(pageID types.PageID) bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	frameID, ok := b.pageTable[pageID]
	if !ok {
		return true
	}
	pg := b.pages[frameID]
	if pg.PinCount() > 0 {
		return false
	}

	delete(b.pageTable, pageID)
	b.replacer.Remove(frameID)
	b.pages[frameID] = nil
	b.freeList = append(b.freeList, frameID)
	b.reUsablePageList = append(b.reUsablePageList, pageID)
	return true
}

// getFrameID takes a frame from the free list, else evicts a victim,
// writing it back first when dirty. One atomic region under the pool
// mutex: no other thread observes the victim half-gone.
func (b *BufferPoolManager) getFrameID() *FrameID {
	if len(b.freeList) > 0 {
		frameID := b.freeList[0]
		b.freeList = b.freeList[1:]
		return &frameID
	}

	victim := b.replacer.Evict()
	if victim == nil {
		return nil
	}

	currentPage := b.pages[*victim]
	if currentPage != nil {
		common.Assert(currentPage.PinCount() == 0,
			fmt.Sprintf("pin count of page to be cached out must be zero. pageId:%d PinCount:%d",
				currentPage.GetPageId(), currentPage.PinCount()))
		if currentPage.IsDirty() {
			if b.logFlusher != nil {
				b.logFlusher.Flush()
			}
			promise := b.diskScheduler.CreatePromise()
			b.diskScheduler.Schedule(&disk.DiskRequest{
				IsWrite:  true,
				Data:     currentPage.Data()[:],
				PageID:   currentPage.GetPageId(),
				Callback: promise,
			})
			<-promise
		}
		common.LogDebug(common.CACHE_OUT_IN_INFO, "getFrameID: cache out pageId=%d", currentPage.GetPageId())
		delete(b.pageTable, currentPage.GetPageId())
		b.pages[*victim] = nil
	}
	return victim
}

// allocatePage hands out a page ID, preferring IDs reclaimed by DeletePage
func (b *BufferPoolManager) allocatePage() types.PageID {
	if len(b.reUsablePageList) > 0 {
		pageID := b.reUsablePageList[0]
		b.reUsablePageList = b.reUsablePageList[1:]
		return pageID
	}
	pageID := b.nextPageID
	b.nextPageID++
	return pageID
}

// GetPoolSize returns the number of resident pages
func (b *BufferPoolManager) GetPoolSize() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return len(b.pageTable)
}

// FlushAllPagesAndShutDown flushes everything and stops the disk scheduler
func (b *BufferPoolManager) FlushAllPagesAndShutDown() {
	b.FlushAllPages()
	b.diskScheduler.ShutDown()
}

// PrintBufferUsageState dumps (pageId, pinCount) of every pinned page.
// A debugging aid; the pool's own operations do not call it.
func (b *BufferPoolManager) PrintBufferUsageState(callerAdditionalInfo string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	var pinned []*page.Page
	for _, frameID := range b.pageTable {
		pg := b.pages[frameID]
		if pg != nil && pg.PinCount() > 0 {
			pinned = append(pinned, pg)
		}
	}
	sort.Slice(pinned, func(i, j int) bool { return pinned[i].GetPageId() < pinned[j].GetPageId() })

	printStr := fmt.Sprintf("BPM::PrintBufferUsageState %s ", callerAdditionalInfo)
	for _, pg := range pinned {
		printStr += fmt.Sprintf("(%d,%d)-", pg.GetPageId(), pg.PinCount())
	}
	common.LogInfo("%s", printStr)
}
