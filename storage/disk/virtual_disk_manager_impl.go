package disk

import (
	"io"
	"sync"

	"github.com/dsnet/golib/memfile"
	"github.com/pkg/errors"
	"github.com/y-akamatsu/KasagoDB/common"
	"github.com/y-akamatsu/KasagoDB/types"
)

// VirtualDiskManagerImpl keeps the "db file" on memory. Tests run against
// it so they need no filesystem and leave nothing behind.
type VirtualDiskManagerImpl struct {
	db          *memfile.File
	fileName    string
	numWrites   uint64
	size        int64
	dbFileMutex *sync.Mutex
}

func NewVirtualDiskManagerImpl(dbFilename string) DiskManager {
	file := memfile.New(make([]byte, 0))
	return &VirtualDiskManagerImpl{file, dbFilename, 0, 0, new(sync.Mutex)}
}

// ShutDown does nothing. The backing buffer vanishes with the object.
func (d *VirtualDiskManagerImpl) ShutDown() {}

func (d *VirtualDiskManagerImpl) WritePage(pageId types.PageID, pageData []byte) error {
	d.dbFileMutex.Lock()
	defer d.dbFileMutex.Unlock()

	offset := int64(pageId) * int64(common.PageSize)
	bytesWritten, err := d.db.WriteAt(pageData, offset)
	if err != nil {
		return errors.Wrapf(err, "write of page %d failed", pageId)
	}
	if bytesWritten != common.PageSize {
		return errors.Errorf("bytes written (%d) does not equal page size", bytesWritten)
	}

	if offset >= d.size {
		d.size = offset + int64(bytesWritten)
	}
	d.numWrites++
	return nil
}

func (d *VirtualDiskManagerImpl) ReadPage(pageID types.PageID, pageData []byte) error {
	d.dbFileMutex.Lock()
	defer d.dbFileMutex.Unlock()

	offset := int64(pageID) * int64(common.PageSize)
	if offset > d.size {
		return errors.Errorf("I/O error past end of file (page %d)", pageID)
	}

	bytesRead, err := d.db.ReadAt(pageData, offset)
	if err != nil && err != io.EOF {
		return errors.Wrapf(err, "I/O error while reading page %d", pageID)
	}
	if bytesRead < common.PageSize {
		for i := bytesRead; i < common.PageSize; i++ {
			pageData[i] = 0
		}
	}
	return nil
}

func (d *VirtualDiskManagerImpl) GetNumWrites() uint64 {
	d.dbFileMutex.Lock()
	defer d.dbFileMutex.Unlock()
	return d.numWrites
}

func (d *VirtualDiskManagerImpl) Size() int64 {
	d.dbFileMutex.Lock()
	defer d.dbFileMutex.Unlock()
	return d.size
}

func (d *VirtualDiskManagerImpl) RemoveDBFile() {}
