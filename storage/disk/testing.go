package disk

import (
	"os"

	"github.com/y-akamatsu/KasagoDB/common"
)

// DiskManagerTest is the DiskManager tests run against. It delegates to the
// virtual (on memory) implementation unless common.EnableOnMemStorage says
// otherwise, and cleans up the db file on ShutDown.
type DiskManagerTest struct {
	path string
	DiskManager
}

// NewDiskManagerTest returns a DiskManager instance for testing purposes
func NewDiskManagerTest() DiskManager {
	f, err := os.CreateTemp("", "kasago.")
	if err != nil {
		panic(err)
	}
	path := f.Name()
	f.Close()
	os.Remove(path)

	if !common.EnableOnMemStorage {
		return &DiskManagerTest{path, NewDiskManagerImpl(path)}
	}
	return &DiskManagerTest{path, NewVirtualDiskManagerImpl(path)}
}

// ShutDown closes the database file and removes it
func (d *DiskManagerTest) ShutDown() {
	d.DiskManager.ShutDown()
	if !common.EnableOnMemStorage {
		os.Remove(d.path)
	}
}
