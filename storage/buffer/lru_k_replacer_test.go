package buffer

import (
	"testing"

	testingpkg "github.com/y-akamatsu/KasagoDB/testing/testing_util"
)

func TestLRUKReplacerEvictOrder(t *testing.T) {
	replacer := NewLRUKReplacer(7, 2)

	// Scenario: access frames 1-4 once, frame 1 a second time, frame 5 once.
	replacer.RecordAccess(1)
	replacer.RecordAccess(2)
	replacer.RecordAccess(3)
	replacer.RecordAccess(4)
	replacer.RecordAccess(1)
	replacer.RecordAccess(5)

	for frameId := FrameID(1); frameId <= 5; frameId++ {
		replacer.SetEvictable(frameId, true)
	}
	testingpkg.Equals(t, uint32(5), replacer.Size())

	// Scenario: frames 2,3,4,5 have fewer than K accesses, so they carry
	// +inf K-distance and dominate frame 1. Classical LRU among them.
	victim := replacer.Evict()
	testingpkg.Equals(t, FrameID(2), *victim)
	victim = replacer.Evict()
	testingpkg.Equals(t, FrameID(3), *victim)

	// Scenario: a second access on frame 4 fills its history; frame 5
	// stays under-filled and is preferred.
	replacer.RecordAccess(4)
	victim = replacer.Evict()
	testingpkg.Equals(t, FrameID(5), *victim)

	// Scenario: both survivors have K accesses. Frame 1's K-th most
	// recent access is older, so its K-distance is larger.
	victim = replacer.Evict()
	testingpkg.Equals(t, FrameID(1), *victim)
	victim = replacer.Evict()
	testingpkg.Equals(t, FrameID(4), *victim)

	testingpkg.Equals(t, uint32(0), replacer.Size())
	testingpkg.True(t, replacer.Evict() == nil)
}

func TestLRUKReplacerUnderKDominates(t *testing.T) {
	replacer := NewLRUKReplacer(4, 3)

	// frame 0 gets a long history, frame 1 only one access
	replacer.RecordAccess(0)
	replacer.RecordAccess(0)
	replacer.RecordAccess(0)
	replacer.RecordAccess(0)
	replacer.RecordAccess(1)
	replacer.SetEvictable(0, true)
	replacer.SetEvictable(1, true)

	// the newly added under-K frame is evicted ahead of the full one
	victim := replacer.Evict()
	testingpkg.Equals(t, FrameID(1), *victim)
	victim = replacer.Evict()
	testingpkg.Equals(t, FrameID(0), *victim)
}

func TestLRUKReplacerSetEvictable(t *testing.T) {
	replacer := NewLRUKReplacer(4, 2)

	replacer.RecordAccess(0)
	replacer.RecordAccess(1)
	testingpkg.Equals(t, uint32(0), replacer.Size())

	replacer.SetEvictable(0, true)
	replacer.SetEvictable(1, true)
	testingpkg.Equals(t, uint32(2), replacer.Size())

	// toggling twice has no extra effect on the count
	replacer.SetEvictable(1, true)
	testingpkg.Equals(t, uint32(2), replacer.Size())

	replacer.SetEvictable(0, false)
	testingpkg.Equals(t, uint32(1), replacer.Size())

	victim := replacer.Evict()
	testingpkg.Equals(t, FrameID(1), *victim)
	testingpkg.True(t, replacer.Evict() == nil)
}

func TestLRUKReplacerRemove(t *testing.T) {
	replacer := NewLRUKReplacer(4, 2)

	replacer.RecordAccess(0)
	replacer.SetEvictable(0, true)
	replacer.Remove(0)
	testingpkg.Equals(t, uint32(0), replacer.Size())

	// removing an unknown frame is a no-op
	replacer.Remove(3)
	testingpkg.Equals(t, uint32(0), replacer.Size())
}

func TestLRUKReplacerMisusePanics(t *testing.T) {
	replacer := NewLRUKReplacer(4, 2)

	func() {
		defer func() {
			testingpkg.True(t, recover() != nil)
		}()
		replacer.RecordAccess(4) // out of range
	}()

	func() {
		defer func() {
			testingpkg.True(t, recover() != nil)
		}()
		replacer.SetEvictable(2, true) // no node
	}()

	func() {
		defer func() {
			testingpkg.True(t, recover() != nil)
		}()
		replacer.RecordAccess(1)
		replacer.Remove(1) // exists but not evictable
	}()
}
