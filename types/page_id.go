package types

import (
	"bytes"
	"encoding/binary"
)

// PageID identifies a page on disk. IDs are allocated monotonically by the
// buffer pool manager; IDs of deleted pages are recycled through its freelist.
type PageID int32

// InvalidPageID represents "no page"
const InvalidPageID = PageID(-1)

// IsValid checks if id points at an allocated page
func (id PageID) IsValid() bool {
	return id != InvalidPageID && id >= 0
}

// Serialize casts it to []byte
func (id PageID) Serialize() []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, id)
	return buf.Bytes()
}

// NewPageIDFromBytes creates a page id from []byte
func NewPageIDFromBytes(data []byte) (ret PageID) {
	binary.Read(bytes.NewBuffer(data), binary.LittleEndian, &ret)
	return ret
}
