package disk

import (
	"io"
	"os"
	"sync"

	"github.com/ncw/directio"
	"github.com/pkg/errors"
	"github.com/y-akamatsu/KasagoDB/common"
	"github.com/y-akamatsu/KasagoDB/types"
)

// DiskManagerImpl is the file-backed implementation of DiskManager
type DiskManagerImpl struct {
	db          *os.File
	fileName    string
	numWrites   uint64
	size        int64
	dbFileMutex *sync.Mutex
}

// NewDiskManagerImpl returns a DiskManager instance backed by dbFilename
func NewDiskManagerImpl(dbFilename string) DiskManager {
	file, err := os.OpenFile(dbFilename, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		panic(errors.Wrap(err, "can't open db file"))
	}

	fileInfo, err := file.Stat()
	if err != nil {
		panic(errors.Wrap(err, "file info error"))
	}
	fileSize := fileInfo.Size()

	return &DiskManagerImpl{file, dbFilename, 0, fileSize, new(sync.Mutex)}
}

// ShutDown closes the database file
func (d *DiskManagerImpl) ShutDown() {
	d.dbFileMutex.Lock()
	defer d.dbFileMutex.Unlock()
	if err := d.db.Close(); err != nil {
		panic(errors.Wrap(err, "close of db file failed"))
	}
}

// WritePage writes a page to the database file
func (d *DiskManagerImpl) WritePage(pageId types.PageID, pageData []byte) error {
	d.dbFileMutex.Lock()
	defer d.dbFileMutex.Unlock()

	offset := int64(pageId) * int64(common.PageSize)
	if _, err := d.db.Seek(offset, io.SeekStart); err != nil {
		return errors.Wrapf(err, "seek to page %d failed", pageId)
	}

	// write through an aligned block so the file can be opened with
	// O_DIRECT without changing this path
	block := directio.AlignedBlock(common.PageSize)
	copy(block, pageData)
	bytesWritten, err := d.db.Write(block)
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

	d.db.Sync()
	return nil
}

// ReadPage reads a page from the database file
func (d *DiskManagerImpl) ReadPage(pageID types.PageID, pageData []byte) error {
	d.dbFileMutex.Lock()
	defer d.dbFileMutex.Unlock()

	offset := int64(pageID) * int64(common.PageSize)

	fileInfo, err := d.db.Stat()
	if err != nil {
		return errors.Wrap(err, "file info error")
	}
	if offset > fileInfo.Size() {
		return errors.Errorf("I/O error past end of file (page %d)", pageID)
	}

	if _, err := d.db.Seek(offset, io.SeekStart); err != nil {
		return errors.Wrapf(err, "seek to page %d failed", pageID)
	}

	bytesRead, err := d.db.Read(pageData)
	if err != nil && err != io.EOF {
		return errors.Wrapf(err, "I/O error while reading page %d", pageID)
	}

	if bytesRead < common.PageSize {
		// page tail past EOF reads as zeroes
		for i := bytesRead; i < common.PageSize; i++ {
			pageData[i] = 0
		}
	}
	return nil
}

// GetNumWrites returns the number of disk writes
func (d *DiskManagerImpl) GetNumWrites() uint64 {
	d.dbFileMutex.Lock()
	defer d.dbFileMutex.Unlock()
	return d.numWrites
}

// Size returns the size of the file in disk
func (d *DiskManagerImpl) Size() int64 {
	d.dbFileMutex.Lock()
	defer d.dbFileMutex.Unlock()
	return d.size
}

// RemoveDBFile removes the db file. Call after ShutDown.
func (d *DiskManagerImpl) RemoveDBFile() {
	d.dbFileMutex.Lock()
	defer d.dbFileMutex.Unlock()
	if err := os.Remove(d.fileName); err != nil {
		panic(errors.Wrap(err, "file remove failed"))
	}
}
