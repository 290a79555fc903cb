package disk

import (
	"github.com/y-akamatsu/KasagoDB/types"
)

/**
 * DiskManager is the block device abstraction. It reads and writes
 * page-sized blocks addressed by page ID. Page ID allocation lives in the
 * buffer pool manager, not here.
 */
type DiskManager interface {
	ReadPage(types.PageID, []byte) error
	WritePage(types.PageID, []byte) error
	GetNumWrites() uint64
	ShutDown()
	Size() int64
	RemoveDBFile()
}
