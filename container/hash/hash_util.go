package hash

import (
	"encoding/binary"

	"github.com/spaolacci/murmur3"
)

// HashFunc maps a key to the 32-bit hash the table indexes by. Must be
// pure and deterministic.
type HashFunc func(key uint64) uint32

// GenHash is the default HashFunc
func GenHash(key uint64) uint32 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], key)
	return murmur3.Sum32(buf[:])
}

// DefaultKeyComparator is plain equality on the fixed-size key
func DefaultKeyComparator(a uint64, b uint64) bool {
	return a == b
}
