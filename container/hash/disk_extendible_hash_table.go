package hash

import (
	"github.com/y-akamatsu/KasagoDB/common"
	"github.com/y-akamatsu/KasagoDB/storage/buffer"
	"github.com/y-akamatsu/KasagoDB/storage/page"
	"github.com/y-akamatsu/KasagoDB/types"
)

/**
 * DiskExtendibleHashTable is a disk-resident hash table with three levels
 * of indirection: one header page, up to 2^headerMaxDepth directory pages
 * and dynamically split/merged bucket pages, all living in the buffer
 * pool. The header indexes by the high headerMaxDepth bits of the hash,
 * each directory by its low globalDepth bits.
 *
 * Latches are taken top-down (header -> directory -> bucket) and a
 * higher-level latch is never reacquired while a lower one is held, so
 * the traversal order is a strict tree. Lookups release each level as
 * soon as the next pointer has been read; writers keep the directory
 * write latch while a split or merge may touch it.
 */
type DiskExtendibleHashTable struct {
	name              string
	bpm               *buffer.BufferPoolManager
	cmp               page.KeyComparator
	hashFn            HashFunc
	headerMaxDepth    uint32
	directoryMaxDepth uint32
	bucketMaxSize     uint32
	headerPageId      types.PageID
}

// NewDiskExtendibleHashTable creates the header page and returns the
// table. cmp and hashFn may be nil; the defaults are used then.
func NewDiskExtendibleHashTable(name string, bpm *buffer.BufferPoolManager, cmp page.KeyComparator,
	hashFn HashFunc, headerMaxDepth uint32, directoryMaxDepth uint32, bucketMaxSize uint32) *DiskExtendibleHashTable {
	if cmp == nil {
		cmp = DefaultKeyComparator
	}
	if hashFn == nil {
		hashFn = GenHash
	}

	headerGuard := bpm.NewPageGuarded()
	common.Assert(headerGuard != nil, "buffer pool exhausted while creating hash table header")
	headerWrite := headerGuard.UpgradeWrite()
	headerPage := page.CastPageAsHashTableHeaderPage(headerWrite.GetDataMut())
	headerPage.Init(headerMaxDepth)
	headerPageId := headerWrite.PageId()
	headerWrite.Drop()

	return &DiskExtendibleHashTable{
		name:              name,
		bpm:               bpm,
		cmp:               cmp,
		hashFn:            hashFn,
		headerMaxDepth:    headerMaxDepth,
		directoryMaxDepth: directoryMaxDepth,
		bucketMaxSize:     bucketMaxSize,
		headerPageId:      headerPageId,
	}
}

// GetHeaderPageId returns the fixed header page id of this table
func (ht *DiskExtendibleHashTable) GetHeaderPageId() types.PageID {
	return ht.headerPageId
}

// GetValue looks key up and returns its value
func (ht *DiskExtendibleHashTable) GetValue(key uint64) (uint64, bool) {
	hashVal := ht.hashFn(key)

	headerGuard := ht.bpm.FetchPageRead(ht.headerPageId)
	if headerGuard == nil {
		return 0, false
	}
	headerPage := page.CastPageAsHashTableHeaderPage(headerGuard.GetData())
	dirPageId := headerPage.GetDirectoryPageId(headerPage.HashToDirectoryIndex(hashVal))
	headerGuard.Drop()
	if dirPageId == types.InvalidPageID {
		return 0, false
	}

	dirGuard := ht.bpm.FetchPageRead(dirPageId)
	if dirGuard == nil {
		return 0, false
	}
	dirPage := page.CastPageAsHashTableDirectoryPage(dirGuard.GetData())
	bucketPageId := dirPage.GetBucketPageId(dirPage.HashToBucketIndex(hashVal))
	dirGuard.Drop()
	if bucketPageId == types.InvalidPageID {
		return 0, false
	}

	bucketGuard := ht.bpm.FetchPageRead(bucketPageId)
	if bucketGuard == nil {
		return 0, false
	}
	bucketPage := page.CastPageAsHashTableBucketPage(bucketGuard.GetData())
	value, found := bucketPage.Lookup(key, ht.cmp)
	bucketGuard.Drop()
	return value, found
}

// Insert adds the key/value pair, splitting buckets and growing the
// directory as needed. Returns false on a duplicate key or when the
// directory is at maxDepth and the target bucket still cannot take the
// entry.
func (ht *DiskExtendibleHashTable) Insert(key uint64, value uint64) bool {
	hashVal := ht.hashFn(key)

	headerGuard := ht.bpm.FetchPageWrite(ht.headerPageId)
	if headerGuard == nil {
		return false
	}
	headerPage := page.CastPageAsHashTableHeaderPage(headerGuard.GetDataMut())
	dirIdx := headerPage.HashToDirectoryIndex(hashVal)
	dirPageId := headerPage.GetDirectoryPageId(dirIdx)
	if dirPageId == types.InvalidPageID {
		ok := ht.insertToNewDirectory(headerPage, dirIdx, hashVal, key, value)
		headerGuard.Drop()
		return ok
	}

	dirGuard := ht.bpm.FetchPageWrite(dirPageId)
	headerGuard.Drop()
	if dirGuard == nil {
		return false
	}
	dirPage := page.CastPageAsHashTableDirectoryPage(dirGuard.GetDataMut())
	bucketIdx := dirPage.HashToBucketIndex(hashVal)
	bucketPageId := dirPage.GetBucketPageId(bucketIdx)
	if bucketPageId == types.InvalidPageID {
		ok := ht.insertToNewBucket(dirPage, bucketIdx, key, value)
		dirGuard.Drop()
		return ok
	}

	bucketGuard := ht.bpm.FetchPageWrite(bucketPageId)
	if bucketGuard == nil {
		dirGuard.Drop()
		return false
	}
	bucketPage := page.CastPageAsHashTableBucketPage(bucketGuard.GetDataMut())

	if bucketPage.Insert(key, value, ht.cmp) {
		bucketGuard.Drop()
		dirGuard.Drop()
		return true
	}
	if _, found := bucketPage.Lookup(key, ht.cmp); found {
		bucketGuard.Drop()
		dirGuard.Drop()
		return false
	}

	// bucket is full: split it
	common.Assert(bucketPage.IsFull(), "insert failed on a bucket that is neither full nor holding the key")

	if dirPage.GetLocalDepth(bucketIdx) == dirPage.GetGlobalDepth() {
		if dirPage.GetGlobalDepth() == dirPage.GetMaxDepth() {
			// cannot grow further along this directory
			bucketGuard.Drop()
			dirGuard.Drop()
			return false
		}
		dirPage.IncrGlobalDepth()
	}

	newDepth := dirPage.GetLocalDepth(bucketIdx) + 1

	splitBasic := ht.bpm.NewPageGuarded()
	if splitBasic == nil {
		bucketGuard.Drop()
		dirGuard.Drop()
		return false
	}
	splitWrite := splitBasic.UpgradeWrite()
	splitPage := page.CastPageAsHashTableBucketPage(splitWrite.GetDataMut())
	splitPage.Init(ht.bucketMaxSize)
	splitPage.SetLocalDepth(newDepth)
	bucketPage.SetLocalDepth(newDepth)
	splitPageId := splitWrite.PageId()

	ht.updateDirectoryMapping(dirPage, bucketIdx, bucketPageId, splitPageId, newDepth)

	// redistribute every entry of the old bucket at the new depth
	for _, entry := range bucketPage.DrainAll() {
		idx := dirPage.HashToBucketIndex(ht.hashFn(entry.First))
		if dirPage.GetBucketPageId(idx) == splitPageId {
			splitPage.Insert(entry.First, entry.Second, ht.cmp)
		} else {
			bucketPage.Insert(entry.First, entry.Second, ht.cmp)
		}
	}

	insertIdx := dirPage.HashToBucketIndex(hashVal)
	var inserted bool
	if dirPage.GetBucketPageId(insertIdx) == splitPageId {
		inserted = splitPage.Insert(key, value, ht.cmp)
	} else {
		inserted = bucketPage.Insert(key, value, ht.cmp)
	}

	// release everything before retrying so the traversal stays top-down
	splitWrite.Drop()
	bucketGuard.Drop()
	dirGuard.Drop()

	if !inserted {
		// the target bucket is still full; split again from the top
		return ht.Insert(key, value)
	}
	return true
}

// insertToNewDirectory allocates a directory with a single fresh bucket.
// Caller holds the header write latch.
func (ht *DiskExtendibleHashTable) insertToNewDirectory(headerPage *page.HashTableHeaderPage,
	dirIdx uint32, hashVal uint32, key uint64, value uint64) bool {
	dirBasic := ht.bpm.NewPageGuarded()
	if dirBasic == nil {
		return false
	}
	dirWrite := dirBasic.UpgradeWrite()
	dirPage := page.CastPageAsHashTableDirectoryPage(dirWrite.GetDataMut())
	dirPage.Init(ht.directoryMaxDepth)
	headerPage.SetDirectoryPageId(dirIdx, dirWrite.PageId())

	common.LogDebug(common.DEBUG_INFO, "%s: created directory %d at header slot %d", ht.name, dirWrite.PageId(), dirIdx)

	ok := ht.insertToNewBucket(dirPage, dirPage.HashToBucketIndex(hashVal), key, value)
	dirWrite.Drop()
	return ok
}

// insertToNewBucket allocates a bucket and points every directory slot
// sharing the target slot's low localDepth bits at it. Caller holds the
// directory write latch.
func (ht *DiskExtendibleHashTable) insertToNewBucket(dirPage *page.HashTableDirectoryPage,
	bucketIdx uint32, key uint64, value uint64) bool {
	bucketBasic := ht.bpm.NewPageGuarded()
	if bucketBasic == nil {
		return false
	}
	bucketWrite := bucketBasic.UpgradeWrite()
	bucketPage := page.CastPageAsHashTableBucketPage(bucketWrite.GetDataMut())
	bucketPage.Init(ht.bucketMaxSize)

	localDepth := dirPage.GetLocalDepth(bucketIdx)
	bucketPage.SetLocalDepth(localDepth)
	mask := (uint32(1) << localDepth) - 1
	for i := uint32(0); i < dirPage.Size(); i++ {
		if i&mask == bucketIdx&mask {
			dirPage.SetBucketPageId(i, bucketWrite.PageId())
		}
	}

	ok := bucketPage.Insert(key, value, ht.cmp)
	bucketWrite.Drop()
	return ok
}

// updateDirectoryMapping rewrites the directory after bucketIdx's bucket
// split to newDepth: every slot sharing the old bucket's low newDepth-1
// bits gets depth newDepth, and the slots on the split-image side get the
// new bucket page. Every matching slot is updated, not just one.
func (ht *DiskExtendibleHashTable) updateDirectoryMapping(dirPage *page.HashTableDirectoryPage,
	bucketIdx uint32, oldPageId types.PageID, newPageId types.PageID, newDepth uint32) {
	lowMask := (uint32(1) << (newDepth - 1)) - 1
	lowBits := bucketIdx & lowMask
	newBit := uint32(1) << (newDepth - 1)

	for i := uint32(0); i < dirPage.Size(); i++ {
		if i&lowMask != lowBits {
			continue
		}
		if i&newBit == bucketIdx&newBit {
			dirPage.SetBucketPageId(i, oldPageId)
		} else {
			dirPage.SetBucketPageId(i, newPageId)
		}
		dirPage.SetLocalDepth(i, uint8(newDepth))
	}
}

// Remove deletes the entry for key, merging empty buckets with their
// split images and shrinking the directory when possible.
func (ht *DiskExtendibleHashTable) Remove(key uint64) bool {
	hashVal := ht.hashFn(key)

	headerGuard := ht.bpm.FetchPageRead(ht.headerPageId)
	if headerGuard == nil {
		return false
	}
	headerPage := page.CastPageAsHashTableHeaderPage(headerGuard.GetData())
	dirPageId := headerPage.GetDirectoryPageId(headerPage.HashToDirectoryIndex(hashVal))
	headerGuard.Drop()
	if dirPageId == types.InvalidPageID {
		return false
	}

	dirGuard := ht.bpm.FetchPageWrite(dirPageId)
	if dirGuard == nil {
		return false
	}
	dirPage := page.CastPageAsHashTableDirectoryPage(dirGuard.GetDataMut())
	bucketIdx := dirPage.HashToBucketIndex(hashVal)
	bucketPageId := dirPage.GetBucketPageId(bucketIdx)
	if bucketPageId == types.InvalidPageID {
		dirGuard.Drop()
		return false
	}

	bucketGuard := ht.bpm.FetchPageWrite(bucketPageId)
	if bucketGuard == nil {
		dirGuard.Drop()
		return false
	}
	bucketPage := page.CastPageAsHashTableBucketPage(bucketGuard.GetDataMut())

	if !bucketPage.Remove(key, ht.cmp) {
		bucketGuard.Drop()
		dirGuard.Drop()
		return false
	}

	// merge loop: while the bucket pairs with an image of equal depth and
	// one of the two is empty, collapse them into one bucket
	for dirPage.GetLocalDepth(bucketIdx) > 0 {
		splitIdx := dirPage.GetSplitImageIndex(bucketIdx)
		if dirPage.GetLocalDepth(splitIdx) != dirPage.GetLocalDepth(bucketIdx) {
			break
		}
		splitPageId := dirPage.GetBucketPageId(splitIdx)

		splitGuard := ht.bpm.FetchPageWrite(splitPageId)
		if splitGuard == nil {
			break
		}
		splitPage := page.CastPageAsHashTableBucketPage(splitGuard.GetDataMut())

		if !bucketPage.IsEmpty() && !splitPage.IsEmpty() {
			splitGuard.Drop()
			break
		}

		// the non-empty bucket survives; the image survives when both
		// are empty
		survivorPageId := splitPageId
		victimPageId := bucketPageId
		survivorGuard, victimGuard := splitGuard, bucketGuard
		survivorPage := splitPage
		if splitPage.IsEmpty() && !bucketPage.IsEmpty() {
			survivorPageId, victimPageId = bucketPageId, splitPageId
			survivorGuard, victimGuard = bucketGuard, splitGuard
			survivorPage = bucketPage
		}

		newDepth := dirPage.GetLocalDepth(bucketIdx) - 1
		mask := (uint32(1) << newDepth) - 1
		for i := uint32(0); i < dirPage.Size(); i++ {
			pid := dirPage.GetBucketPageId(i)
			if (pid == bucketPageId || pid == splitPageId) && i&mask == bucketIdx&mask {
				dirPage.SetBucketPageId(i, survivorPageId)
				dirPage.SetLocalDepth(i, uint8(newDepth))
			}
		}
		survivorPage.SetLocalDepth(newDepth)

		victimGuard.Drop()
		ht.bpm.DeletePage(victimPageId)

		bucketIdx &= mask
		bucketPageId = survivorPageId
		bucketGuard = survivorGuard
		bucketPage = survivorPage
	}

	for dirPage.CanShrink() {
		dirPage.DecrGlobalDepth()
	}

	bucketGuard.Drop()
	dirGuard.Drop()
	return true
}

// VerifyIntegrity walks every directory and checks the directory
// invariants. Test hook.
func (ht *DiskExtendibleHashTable) VerifyIntegrity() {
	headerGuard := ht.bpm.FetchPageRead(ht.headerPageId)
	common.Assert(headerGuard != nil, "VerifyIntegrity: header fetch failed")
	headerPage := page.CastPageAsHashTableHeaderPage(headerGuard.GetData())

	dirPageIds := make([]types.PageID, 0)
	for i := uint32(0); i < headerPage.MaxSize(); i++ {
		if id := headerPage.GetDirectoryPageId(i); id != types.InvalidPageID {
			dirPageIds = append(dirPageIds, id)
		}
	}
	headerGuard.Drop()

	for _, dirPageId := range dirPageIds {
		dirGuard := ht.bpm.FetchPageRead(dirPageId)
		common.Assert(dirGuard != nil, "VerifyIntegrity: directory fetch failed")
		dirPage := page.CastPageAsHashTableDirectoryPage(dirGuard.GetData())
		dirPage.VerifyIntegrity()
		dirGuard.Drop()
	}
}
