package page

import (
	"testing"
	"unsafe"

	"github.com/y-akamatsu/KasagoDB/common"
	testingpkg "github.com/y-akamatsu/KasagoDB/testing/testing_util"
	"github.com/y-akamatsu/KasagoDB/types"
)

func TestPageLayoutSizes(t *testing.T) {
	// every layout must fit one page
	testingpkg.True(t, unsafe.Sizeof(HashTableHeaderPage{}) <= common.PageSize)
	testingpkg.True(t, unsafe.Sizeof(HashTableDirectoryPage{}) <= common.PageSize)
	testingpkg.True(t, unsafe.Sizeof(HashTableBucketPage{}) <= common.PageSize)
}

func TestHeaderPage(t *testing.T) {
	var data [common.PageSize]byte
	hp := CastPageAsHashTableHeaderPage(&data)
	hp.Init(2)

	testingpkg.Equals(t, uint32(4), hp.MaxSize())
	for i := uint32(0); i < hp.MaxSize(); i++ {
		testingpkg.Equals(t, types.InvalidPageID, hp.GetDirectoryPageId(i))
	}

	// the high maxDepth bits select the slot
	testingpkg.Equals(t, uint32(0), hp.HashToDirectoryIndex(0x00000000))
	testingpkg.Equals(t, uint32(1), hp.HashToDirectoryIndex(0x40000000))
	testingpkg.Equals(t, uint32(2), hp.HashToDirectoryIndex(0x80000000))
	testingpkg.Equals(t, uint32(3), hp.HashToDirectoryIndex(0xFFFFFFFF))

	hp.SetDirectoryPageId(2, types.PageID(7))
	testingpkg.Equals(t, types.PageID(7), hp.GetDirectoryPageId(2))

	// depth 0 collapses everything onto slot 0
	hp.Init(0)
	testingpkg.Equals(t, uint32(1), hp.MaxSize())
	testingpkg.Equals(t, uint32(0), hp.HashToDirectoryIndex(0xFFFFFFFF))
}

func TestDirectoryPageGrowShrink(t *testing.T) {
	var data [common.PageSize]byte
	dp := CastPageAsHashTableDirectoryPage(&data)
	dp.Init(3)

	testingpkg.Equals(t, uint32(0), dp.GetGlobalDepth())
	testingpkg.Equals(t, uint32(1), dp.Size())
	testingpkg.Equals(t, uint32(8), dp.MaxSize())

	dp.SetBucketPageId(0, types.PageID(10))
	dp.SetLocalDepth(0, 0)

	// growing mirrors the lower half into the revealed slots
	dp.IncrGlobalDepth()
	testingpkg.Equals(t, uint32(2), dp.Size())
	testingpkg.Equals(t, types.PageID(10), dp.GetBucketPageId(1))
	testingpkg.Equals(t, uint32(0), dp.GetLocalDepth(1))
	dp.VerifyIntegrity()

	// both slots still point at one depth-0 bucket, so it can shrink
	testingpkg.True(t, dp.CanShrink())
	dp.DecrGlobalDepth()
	testingpkg.Equals(t, uint32(0), dp.GetGlobalDepth())
	testingpkg.False(t, dp.CanShrink())

	// split slot 0 at depth 1: slots diverge and shrink is off the table
	dp.IncrGlobalDepth()
	dp.SetLocalDepth(0, 1)
	dp.SetLocalDepth(1, 1)
	dp.SetBucketPageId(1, types.PageID(11))
	dp.VerifyIntegrity()
	testingpkg.False(t, dp.CanShrink())

	testingpkg.Equals(t, uint32(1), dp.GetSplitImageIndex(0))
	testingpkg.Equals(t, uint32(0), dp.GetSplitImageIndex(1))
}

func TestDirectoryPageHashToBucketIndex(t *testing.T) {
	var data [common.PageSize]byte
	dp := CastPageAsHashTableDirectoryPage(&data)
	dp.Init(3)

	// low globalDepth bits select the slot
	testingpkg.Equals(t, uint32(0), dp.HashToBucketIndex(0xABCDEF12))
	dp.IncrGlobalDepth()
	dp.IncrGlobalDepth()
	testingpkg.Equals(t, uint32(0x12&3), dp.HashToBucketIndex(0xABCDEF12))
}

func TestBucketPageInsertRemove(t *testing.T) {
	var data [common.PageSize]byte
	bp := CastPageAsHashTableBucketPage(&data)
	bp.Init(4)
	cmp := func(a, b uint64) bool { return a == b }

	testingpkg.True(t, bp.IsEmpty())
	for i := uint64(0); i < 4; i++ {
		testingpkg.True(t, bp.Insert(i, i*100, cmp))
	}
	testingpkg.True(t, bp.IsFull())

	// duplicates and overflow both refuse without mutation
	testingpkg.False(t, bp.Insert(2, 999, cmp))
	testingpkg.False(t, bp.Insert(42, 1, cmp))
	testingpkg.Equals(t, uint32(4), bp.Size())

	v, found := bp.Lookup(2, cmp)
	testingpkg.True(t, found)
	testingpkg.Equals(t, uint64(200), v)

	// removal compacts by swapping the last entry into the hole
	testingpkg.True(t, bp.Remove(0, cmp))
	testingpkg.Equals(t, uint32(3), bp.Size())
	testingpkg.Equals(t, uint64(3), bp.KeyAt(0))

	_, found = bp.Lookup(0, cmp)
	testingpkg.False(t, found)
	testingpkg.False(t, bp.Remove(0, cmp))

	entries := bp.DrainAll()
	testingpkg.Equals(t, 3, len(entries))
	testingpkg.True(t, bp.IsEmpty())
}
