package buffer

import (
	"fmt"
	"sync"
)

// FrameID is the type for frame id
type FrameID uint32

// lruKNode keeps the access history of one frame: logical timestamps,
// oldest first, and the evictable flag.
type lruKNode struct {
	history   []uint64
	evictable bool
}

/**
 * LRUKReplacer picks the frame whose K-th most recent access lies furthest
 * in the past (largest backward K-distance). Frames with fewer than K
 * recorded accesses count as +inf distance and dominate fully-accessed
 * frames; ties among them break by the earliest recorded timestamp, which
 * is classical LRU on the under-filled set.
 *
 * The replacer has its own mutex so it can be exercised on its own in
 * tests. Under the pool mutex its operations are already serialized.
 */
type LRUKReplacer struct {
	nodeStore        map[FrameID]*lruKNode
	currentTimestamp uint64
	currSize         uint32
	replacerSize     uint32
	k                uint32
	mutex            sync.Mutex
}

func NewLRUKReplacer(numFrames uint32, k uint32) *LRUKReplacer {
	return &LRUKReplacer{
		nodeStore:    make(map[FrameID]*lruKNode),
		replacerSize: numFrames,
		k:            k,
	}
}

// Evict removes and returns the evictable frame with the largest backward
// K-distance, or nil when no frame is evictable.
func (r *LRUKReplacer) Evict() *FrameID {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.currSize == 0 {
		return nil
	}

	var victim FrameID
	var victimStamp uint64
	underK := false
	found := false

	for frameId, node := range r.nodeStore {
		if !node.evictable {
			continue
		}
		if uint32(len(node.history)) < r.k {
			// +inf distance; earliest first access wins among these
			if !underK || node.history[0] < victimStamp {
				underK = true
				found = true
				victim = frameId
				victimStamp = node.history[0]
			}
		} else if !underK {
			// the K-th most recent access; the smallest one is the
			// largest K-distance
			kth := node.history[uint32(len(node.history))-r.k]
			if !found || kth < victimStamp {
				found = true
				victim = frameId
				victimStamp = kth
			}
		}
	}

	delete(r.nodeStore, victim)
	r.currSize--
	return &victim
}

// RecordAccess appends the current logical time to the frame's history,
// creating its node (non-evictable) on first access.
func (r *LRUKReplacer) RecordAccess(frameId FrameID) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if uint32(frameId) >= r.replacerSize {
		panic(fmt.Sprintf("LRUKReplacer::RecordAccess: invalid frame id %d", frameId))
	}
	r.currentTimestamp++
	node, ok := r.nodeStore[frameId]
	if !ok {
		node = &lruKNode{}
		r.nodeStore[frameId] = node
	}
	node.history = append(node.history, r.currentTimestamp)
}

// SetEvictable toggles a frame's evictable flag and keeps the evictable
// count in step. Unknown frames are a caller bug.
func (r *LRUKReplacer) SetEvictable(frameId FrameID, setEvictable bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	node, ok := r.nodeStore[frameId]
	if !ok {
		panic(fmt.Sprintf("LRUKReplacer::SetEvictable: unknown frame id %d", frameId))
	}
	if node.evictable == setEvictable {
		return
	}
	node.evictable = setEvictable
	if setEvictable {
		r.currSize++
	} else {
		r.currSize--
	}
}

// Remove drops a frame's history. Removing a non-evictable frame is a
// caller bug; removing an unknown frame is a no-op.
func (r *LRUKReplacer) Remove(frameId FrameID) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	node, ok := r.nodeStore[frameId]
	if !ok {
		return
	}
	if !node.evictable {
		panic(fmt.Sprintf("LRUKReplacer::Remove: frame id %d is not evictable", frameId))
	}
	delete(r.nodeStore, frameId)
	r.currSize--
}

// Size returns the current evictable count
func (r *LRUKReplacer) Size() uint32 {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.currSize
}
