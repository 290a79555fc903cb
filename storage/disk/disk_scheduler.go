package disk

import (
	"sync"

	"github.com/golang-collections/collections/queue"
	"github.com/y-akamatsu/KasagoDB/common"
	"github.com/y-akamatsu/KasagoDB/types"
)

// DiskRequest represents one read or write of a page-sized block.
// Callback receives the I/O result after the request has taken effect:
// a read scheduled after a write to the same page ID observes that write.
type DiskRequest struct {
	IsWrite  bool
	Data     []byte
	PageID   types.PageID
	Callback chan error
}

/**
 * DiskScheduler serializes requests to the DiskManager. A single background
 * worker drains a FIFO queue, so requests for the same page ID complete in
 * submission order. Callers block on the request callback before
 * proceeding; the buffer pool treats all I/O as synchronous.
 */
type DiskScheduler struct {
	diskManager  DiskManager
	requestQueue *queue.Queue
	mutex        sync.Mutex
	cond         *sync.Cond
	shutdown     bool
	workerDone   chan struct{}
}

func NewDiskScheduler(diskManager DiskManager) *DiskScheduler {
	s := &DiskScheduler{
		diskManager:  diskManager,
		requestQueue: queue.New(),
		workerDone:   make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mutex)
	go s.startWorkerThread()
	return s
}

// CreatePromise returns the one-shot completion signal a DiskRequest
// carries. Buffered so the worker never blocks on fulfillment.
func (s *DiskScheduler) CreatePromise() chan error {
	return make(chan error, 1)
}

// Schedule enqueues the request. The caller must wait on req.Callback.
func (s *DiskScheduler) Schedule(req *DiskRequest) {
	s.mutex.Lock()
	common.Assert(!s.shutdown, "DiskScheduler::Schedule called after ShutDown")
	s.requestQueue.Enqueue(req)
	s.mutex.Unlock()
	s.cond.Signal()
}

// ShutDown drains outstanding requests and stops the worker.
func (s *DiskScheduler) ShutDown() {
	s.mutex.Lock()
	s.shutdown = true
	s.mutex.Unlock()
	s.cond.Signal()
	<-s.workerDone
}

func (s *DiskScheduler) startWorkerThread() {
	defer close(s.workerDone)
	for {
		s.mutex.Lock()
		for s.requestQueue.Len() == 0 && !s.shutdown {
			s.cond.Wait()
		}
		if s.requestQueue.Len() == 0 && s.shutdown {
			s.mutex.Unlock()
			return
		}
		req := s.requestQueue.Dequeue().(*DiskRequest)
		s.mutex.Unlock()

		var err error
		if req.IsWrite {
			err = s.diskManager.WritePage(req.PageID, req.Data)
		} else {
			err = s.diskManager.ReadPage(req.PageID, req.Data)
		}
		if common.EnableDebug {
			common.LogDebug(common.DEBUG_INFO, "DiskScheduler: processed pageId=%d isWrite=%v err=%v", req.PageID, req.IsWrite, err)
		}
		req.Callback <- err
	}
}
