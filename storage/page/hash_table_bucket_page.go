package page

import (
	"unsafe"

	pair "github.com/notEpsilon/go-pair"
	"github.com/y-akamatsu/KasagoDB/common"
)

// HashTablePair is one bucket entry: fixed-size key and value concatenated
type HashTablePair struct {
	Key   uint64
	Value uint64
}

const sizeOfHashTablePair = 16
const hashTableBucketHeaderSize = 16

// HashTableBucketArraySize is the entry capacity of one bucket page
const HashTableBucketArraySize = (common.PageSize - hashTableBucketHeaderSize) / sizeOfHashTablePair

// KeyComparator reports whether two keys are equal
type KeyComparator func(a uint64, b uint64) bool

/**
 * Bucket page of the extendible hash table.
 *
 * Bucket page format (little endian, page-resident):
 * ---------------------------------------------------------------------
 * | Size (4) | MaxSize (4) | LocalDepth (4) | (pad 4) | Entries ...
 * ---------------------------------------------------------------------
 * Insert appends; Remove compacts by swapping the removed entry with the
 * last one.
 */
type HashTableBucketPage struct {
	size       uint32
	maxSize    uint32
	localDepth uint32
	reserved   uint32
	array      [HashTableBucketArraySize]HashTablePair
}

// CastPageAsHashTableBucketPage interprets page bytes as a bucket page
func CastPageAsHashTableBucketPage(data *[common.PageSize]byte) *HashTableBucketPage {
	return (*HashTableBucketPage)(unsafe.Pointer(data))
}

// Init sets up an empty bucket holding at most maxSize entries
func (bp *HashTableBucketPage) Init(maxSize uint32) {
	common.Assert(maxSize <= HashTableBucketArraySize, "bucket maxSize exceeds page capacity")
	bp.size = 0
	bp.maxSize = maxSize
	bp.localDepth = 0
	bp.reserved = 0
}

// Lookup scans for key and returns its value
func (bp *HashTableBucketPage) Lookup(key uint64, cmp KeyComparator) (uint64, bool) {
	for i := uint32(0); i < bp.size; i++ {
		if cmp(bp.array[i].Key, key) {
			return bp.array[i].Value, true
		}
	}
	return 0, false
}

// Insert appends the entry. Returns false when the bucket is full or the
// key is already present; the page is not mutated in either case.
func (bp *HashTableBucketPage) Insert(key uint64, value uint64, cmp KeyComparator) bool {
	if _, found := bp.Lookup(key, cmp); found {
		return false
	}
	if bp.IsFull() {
		return false
	}
	bp.array[bp.size] = HashTablePair{key, value}
	bp.size++
	return true
}

// Remove drops the entry for key, compacting by swap-with-last
func (bp *HashTableBucketPage) Remove(key uint64, cmp KeyComparator) bool {
	for i := uint32(0); i < bp.size; i++ {
		if cmp(bp.array[i].Key, key) {
			bp.RemoveAt(i)
			return true
		}
	}
	return false
}

// RemoveAt drops the entry at index by swapping the last entry into it
func (bp *HashTableBucketPage) RemoveAt(bucketIdx uint32) {
	common.Assert(bucketIdx < bp.size, "RemoveAt index out of range")
	bp.array[bucketIdx] = bp.array[bp.size-1]
	bp.size--
}

func (bp *HashTableBucketPage) KeyAt(bucketIdx uint32) uint64 {
	return bp.array[bucketIdx].Key
}

func (bp *HashTableBucketPage) ValueAt(bucketIdx uint32) uint64 {
	return bp.array[bucketIdx].Value
}

// EntryAt returns the entry at index as a key/value pair
func (bp *HashTableBucketPage) EntryAt(bucketIdx uint32) pair.Pair[uint64, uint64] {
	return pair.Pair[uint64, uint64]{First: bp.array[bucketIdx].Key, Second: bp.array[bucketIdx].Value}
}

// DrainAll empties the bucket and returns what it held. Split
// redistribution stages entries through this.
func (bp *HashTableBucketPage) DrainAll() []pair.Pair[uint64, uint64] {
	entries := make([]pair.Pair[uint64, uint64], 0, bp.size)
	for i := uint32(0); i < bp.size; i++ {
		entries = append(entries, bp.EntryAt(i))
	}
	bp.size = 0
	return entries
}

func (bp *HashTableBucketPage) Size() uint32 {
	return bp.size
}

func (bp *HashTableBucketPage) MaxSize() uint32 {
	return bp.maxSize
}

func (bp *HashTableBucketPage) IsFull() bool {
	return bp.size == bp.maxSize
}

func (bp *HashTableBucketPage) IsEmpty() bool {
	return bp.size == 0
}

func (bp *HashTableBucketPage) GetLocalDepth() uint32 {
	return bp.localDepth
}

func (bp *HashTableBucketPage) SetLocalDepth(localDepth uint32) {
	bp.localDepth = localDepth
}
