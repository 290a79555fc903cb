package page

import (
	"unsafe"

	"github.com/y-akamatsu/KasagoDB/common"
	"github.com/y-akamatsu/KasagoDB/types"
)

const hashTableDirectoryArraySize = 1 << common.HashTableDirectoryMaxDepth

/**
 * Directory page of the extendible hash table. A hash value's low
 * globalDepth bits select the bucket slot.
 *
 * Directory page format (little endian, page-resident):
 * ------------------------------------------------------------------------
 * | MaxDepth (4) | GlobalDepth (4) | BucketPageIds (4 x 2^MaxDepth) |
 * | LocalDepths (1 x 2^MaxDepth) | ...
 * ------------------------------------------------------------------------
 *
 * Invariants:
 *   - localDepths[i] <= globalDepth for every active slot i
 *   - slots whose low localDepths[i] bits agree point at the same bucket
 *     page and carry equal local depths
 */
type HashTableDirectoryPage struct {
	maxDepth      uint32
	globalDepth   uint32
	bucketPageIds [hashTableDirectoryArraySize]types.PageID
	localDepths   [hashTableDirectoryArraySize]uint8
}

// CastPageAsHashTableDirectoryPage interprets page bytes as a directory page
func CastPageAsHashTableDirectoryPage(data *[common.PageSize]byte) *HashTableDirectoryPage {
	return (*HashTableDirectoryPage)(unsafe.Pointer(data))
}

// Init starts the directory at globalDepth 0 with every slot invalid
func (dp *HashTableDirectoryPage) Init(maxDepth uint32) {
	common.Assert(maxDepth <= common.HashTableDirectoryMaxDepth, "directory maxDepth exceeds limit")
	dp.maxDepth = maxDepth
	dp.globalDepth = 0
	for i := uint32(0); i < dp.MaxSize(); i++ {
		dp.bucketPageIds[i] = types.InvalidPageID
		dp.localDepths[i] = 0
	}
}

// HashToBucketIndex selects a bucket slot by the low globalDepth bits
func (dp *HashTableDirectoryPage) HashToBucketIndex(hash uint32) uint32 {
	return hash & dp.GetGlobalDepthMask()
}

func (dp *HashTableDirectoryPage) GetBucketPageId(bucketIdx uint32) types.PageID {
	return dp.bucketPageIds[bucketIdx]
}

func (dp *HashTableDirectoryPage) SetBucketPageId(bucketIdx uint32, bucketPageId types.PageID) {
	dp.bucketPageIds[bucketIdx] = bucketPageId
}

// GetSplitImageIndex returns the slot this one pairs with at its current
// local depth: the top bit of the local-depth mask flipped.
func (dp *HashTableDirectoryPage) GetSplitImageIndex(bucketIdx uint32) uint32 {
	localDepth := uint32(dp.localDepths[bucketIdx])
	common.Assert(localDepth > 0, "split image of a depth-0 slot does not exist")
	return bucketIdx ^ (1 << (localDepth - 1))
}

// GetGlobalDepthMask returns a mask of globalDepth ones (low bits)
func (dp *HashTableDirectoryPage) GetGlobalDepthMask() uint32 {
	return (1 << dp.globalDepth) - 1
}

// GetLocalDepthMask returns a mask of localDepths[bucketIdx] ones
func (dp *HashTableDirectoryPage) GetLocalDepthMask(bucketIdx uint32) uint32 {
	return (1 << uint32(dp.localDepths[bucketIdx])) - 1
}

func (dp *HashTableDirectoryPage) GetGlobalDepth() uint32 {
	return dp.globalDepth
}

func (dp *HashTableDirectoryPage) GetMaxDepth() uint32 {
	return dp.maxDepth
}

// IncrGlobalDepth doubles the active directory. Pointers and local depths
// of the newly revealed upper half mirror their lower halves.
func (dp *HashTableDirectoryPage) IncrGlobalDepth() {
	common.Assert(dp.globalDepth < dp.maxDepth, "directory cannot grow beyond maxDepth")
	half := uint32(1) << dp.globalDepth
	for i := uint32(0); i < half; i++ {
		dp.bucketPageIds[half+i] = dp.bucketPageIds[i]
		dp.localDepths[half+i] = dp.localDepths[i]
	}
	dp.globalDepth++
}

func (dp *HashTableDirectoryPage) DecrGlobalDepth() {
	common.Assert(dp.globalDepth > 0, "directory cannot shrink below depth 0")
	dp.globalDepth--
}

// CanShrink holds iff every active slot's local depth is below globalDepth
func (dp *HashTableDirectoryPage) CanShrink() bool {
	if dp.globalDepth == 0 {
		return false
	}
	for i := uint32(0); i < dp.Size(); i++ {
		if uint32(dp.localDepths[i]) == dp.globalDepth {
			return false
		}
	}
	return true
}

// Size returns the number of active slots
func (dp *HashTableDirectoryPage) Size() uint32 {
	return 1 << dp.globalDepth
}

// MaxSize returns the number of slots at maxDepth
func (dp *HashTableDirectoryPage) MaxSize() uint32 {
	return 1 << dp.maxDepth
}

func (dp *HashTableDirectoryPage) GetLocalDepth(bucketIdx uint32) uint32 {
	return uint32(dp.localDepths[bucketIdx])
}

func (dp *HashTableDirectoryPage) SetLocalDepth(bucketIdx uint32, localDepth uint8) {
	dp.localDepths[bucketIdx] = localDepth
}

func (dp *HashTableDirectoryPage) IncrLocalDepth(bucketIdx uint32) {
	dp.localDepths[bucketIdx]++
}

func (dp *HashTableDirectoryPage) DecrLocalDepth(bucketIdx uint32) {
	dp.localDepths[bucketIdx]--
}

// VerifyIntegrity checks the directory invariants. Panics on violation;
// randomized tests call it after every mutation batch.
func (dp *HashTableDirectoryPage) VerifyIntegrity() {
	pageIdToCount := make(map[types.PageID]uint32)
	pageIdToLd := make(map[types.PageID]uint32)

	for i := uint32(0); i < dp.Size(); i++ {
		ld := uint32(dp.localDepths[i])
		common.Assert(ld <= dp.globalDepth, "local depth exceeds global depth")

		pageId := dp.bucketPageIds[i]
		pageIdToCount[pageId]++

		if known, ok := pageIdToLd[pageId]; ok {
			common.Assert(ld == known, "slots sharing a bucket disagree on local depth")
		} else {
			pageIdToLd[pageId] = ld
		}
	}

	for pageId, count := range pageIdToCount {
		// each bucket of depth ld is referenced by exactly 2^(gd-ld) slots
		expected := uint32(1) << (dp.globalDepth - pageIdToLd[pageId])
		common.Assert(count == expected, "bucket reference count does not match its local depth")
	}
}
