package page

import (
	"unsafe"

	"github.com/y-akamatsu/KasagoDB/common"
	"github.com/y-akamatsu/KasagoDB/types"
)

const hashTableHeaderArraySize = 1 << common.HashTableHeaderMaxDepth

/**
 * Header page of the extendible hash table. A hash value's high maxDepth
 * bits select the directory.
 *
 * Header page format (little endian, page-resident):
 * ---------------------------------------------------------
 * | MaxDepth (4) | DirectoryPageIds (4 x 2^MaxDepth) | ...
 * ---------------------------------------------------------
 * The array is sized for the maximum depth; a page image stays valid for
 * any configured maxDepth below it.
 */
type HashTableHeaderPage struct {
	maxDepth         uint32
	directoryPageIds [hashTableHeaderArraySize]types.PageID
}

// CastPageAsHashTableHeaderPage interprets page bytes as a header page
func CastPageAsHashTableHeaderPage(data *[common.PageSize]byte) *HashTableHeaderPage {
	return (*HashTableHeaderPage)(unsafe.Pointer(data))
}

// Init sets maxDepth and marks every directory slot invalid
func (hp *HashTableHeaderPage) Init(maxDepth uint32) {
	common.Assert(maxDepth <= common.HashTableHeaderMaxDepth, "header maxDepth exceeds limit")
	hp.maxDepth = maxDepth
	for i := uint32(0); i < hp.MaxSize(); i++ {
		hp.directoryPageIds[i] = types.InvalidPageID
	}
}

// HashToDirectoryIndex selects a directory slot by the high maxDepth bits
func (hp *HashTableHeaderPage) HashToDirectoryIndex(hash uint32) uint32 {
	if hp.maxDepth == 0 {
		return 0
	}
	return hash >> (32 - hp.maxDepth)
}

func (hp *HashTableHeaderPage) GetDirectoryPageId(index uint32) types.PageID {
	return hp.directoryPageIds[index]
}

func (hp *HashTableHeaderPage) SetDirectoryPageId(index uint32, pageId types.PageID) {
	hp.directoryPageIds[index] = pageId
}

// MaxSize returns the number of addressable directory slots
func (hp *HashTableHeaderPage) MaxSize() uint32 {
	return 1 << hp.maxDepth
}

func (hp *HashTableHeaderPage) GetMaxDepth() uint32 {
	return hp.maxDepth
}
