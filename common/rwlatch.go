package common

import (
	"sync"

	"github.com/sasha-s/go-deadlock"
)

// ReaderWriterLatch is the short-duration lock protecting page bytes.
// It never protects buffer pool metadata.
type ReaderWriterLatch interface {
	WLock()
	WUnlock()
	RLock()
	RUnlock()
}

type readerWriterLatch struct {
	mutex *sync.RWMutex
}

func (l *readerWriterLatch) WLock()   { l.mutex.Lock() }
func (l *readerWriterLatch) WUnlock() { l.mutex.Unlock() }
func (l *readerWriterLatch) RLock()   { l.mutex.RLock() }
func (l *readerWriterLatch) RUnlock() { l.mutex.RUnlock() }

// deadlock detecting variant. go-deadlock aborts the process with a report
// when latch acquisition order forms a cycle.
type readerWriterLatchDeadlockDetect struct {
	mutex *deadlock.RWMutex
}

func (l *readerWriterLatchDeadlockDetect) WLock()   { l.mutex.Lock() }
func (l *readerWriterLatchDeadlockDetect) WUnlock() { l.mutex.Unlock() }
func (l *readerWriterLatchDeadlockDetect) RLock()   { l.mutex.RLock() }
func (l *readerWriterLatchDeadlockDetect) RUnlock() { l.mutex.RUnlock() }

func NewRWLatch() ReaderWriterLatch {
	if EnableDeadlockDetection {
		return &readerWriterLatchDeadlockDetect{new(deadlock.RWMutex)}
	}
	return &readerWriterLatch{new(sync.RWMutex)}
}
