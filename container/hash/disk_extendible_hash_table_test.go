package hash

import (
	"sync"
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/stretchr/testify/require"
	"github.com/y-akamatsu/KasagoDB/common"
	"github.com/y-akamatsu/KasagoDB/storage/buffer"
	"github.com/y-akamatsu/KasagoDB/storage/disk"
	"github.com/y-akamatsu/KasagoDB/storage/page"
)

func castHeaderForTest(g *buffer.ReadPageGuard) *page.HashTableHeaderPage {
	return page.CastPageAsHashTableHeaderPage(g.GetData())
}

func castDirectoryForTest(g *buffer.ReadPageGuard) *page.HashTableDirectoryPage {
	return page.CastPageAsHashTableDirectoryPage(g.GetData())
}

func castBucketForTest(g *buffer.ReadPageGuard) *page.HashTableBucketPage {
	return page.CastPageAsHashTableBucketPage(g.GetData())
}

func newTestBPM(poolSize uint32) (*buffer.BufferPoolManager, disk.DiskManager) {
	dm := disk.NewDiskManagerTest()
	bpm := buffer.NewBufferPoolManager(poolSize, common.DefaultReplacerK, dm, nil)
	return bpm, dm
}

// identityHash makes directory placement a direct function of the key, so
// split sequences in the tests below are deterministic.
func identityHash(key uint64) uint32 {
	return uint32(key)
}

func TestHashTableBasic(t *testing.T) {
	bpm, dm := newTestBPM(common.BufferPoolMaxFrameNumForTest)
	defer dm.ShutDown()

	ht := NewDiskExtendibleHashTable("basic_test", bpm, nil, nil, 1, 6, 8)

	for i := uint64(0); i < 64; i++ {
		require.True(t, ht.Insert(i, i*i))
	}
	for i := uint64(0); i < 64; i++ {
		v, found := ht.GetValue(i)
		require.True(t, found)
		require.Equal(t, i*i, v)
	}

	// duplicate keys refuse without mutation
	require.False(t, ht.Insert(10, 42))
	v, _ := ht.GetValue(10)
	require.Equal(t, uint64(100), v)

	// missing keys are not found and not removable
	_, found := ht.GetValue(1000)
	require.False(t, found)
	require.False(t, ht.Remove(1000))

	for i := uint64(0); i < 64; i += 2 {
		require.True(t, ht.Remove(i))
	}
	for i := uint64(0); i < 64; i++ {
		_, found := ht.GetValue(i)
		require.Equal(t, i%2 == 1, found)
	}
	ht.VerifyIntegrity()
}

// a table with headerMaxDepth=0, directoryMaxDepth=2, bucketMaxSize=2
// grows by splitting until the directory saturates, then refuses.
func TestHashTableGrowthAndIndexFull(t *testing.T) {
	bpm, dm := newTestBPM(common.BufferPoolMaxFrameNumForTest)
	defer dm.ShutDown()

	ht := NewDiskExtendibleHashTable("growth_test", bpm, nil, identityHash, 0, 2, 2)

	// 1,2 fill the first bucket; 3 splits on the low bit; 4 lands in the
	// even bucket; 13 (0b1101) splits the odd bucket to depth 2
	for _, key := range []uint64{1, 2, 3, 4, 13} {
		require.True(t, ht.Insert(key, key*10), "insert %d", key)
	}
	for _, key := range []uint64{1, 2, 3, 4, 13} {
		v, found := ht.GetValue(key)
		require.True(t, found)
		require.Equal(t, key*10, v)
	}
	ht.VerifyIntegrity()

	// 5 (0b0101) targets bucket 01 = {1, 13}, which sits at
	// localDepth == globalDepth == directoryMaxDepth: the insert fails
	require.False(t, ht.Insert(5, 50))

	// the failure mutated nothing
	for _, key := range []uint64{1, 2, 3, 4, 13} {
		_, found := ht.GetValue(key)
		require.True(t, found)
	}
	ht.VerifyIntegrity()
}

// inserting many keys and removing them in reverse order collapses the
// directory back to a single bucket at globalDepth 0.
func TestHashTableShrinkToEmpty(t *testing.T) {
	bpm, dm := newTestBPM(common.BufferPoolMaxFrameNumForTest)
	defer dm.ShutDown()

	ht := NewDiskExtendibleHashTable("shrink_test", bpm, nil, nil, 0, 9, 10)

	const numKeys = 500
	for i := uint64(0); i < numKeys; i++ {
		require.True(t, ht.Insert(i, i))
	}
	ht.VerifyIntegrity()

	for i := int64(numKeys - 1); i >= 0; i-- {
		require.True(t, ht.Remove(uint64(i)))
	}
	ht.VerifyIntegrity()

	for i := uint64(0); i < numKeys; i++ {
		_, found := ht.GetValue(i)
		require.False(t, found)
	}

	// one directory remains, back at depth 0 with a single empty bucket
	headerGuard := bpm.FetchPageRead(ht.GetHeaderPageId())
	require.NotNil(t, headerGuard)
	headerPage := castHeaderForTest(headerGuard)
	dirPageId := headerPage.GetDirectoryPageId(0)
	headerGuard.Drop()

	dirGuard := bpm.FetchPageRead(dirPageId)
	require.NotNil(t, dirGuard)
	dirPage := castDirectoryForTest(dirGuard)
	require.EqualValues(t, 0, dirPage.GetGlobalDepth())
	bucketPageId := dirPage.GetBucketPageId(0)
	dirGuard.Drop()

	bucketGuard := bpm.FetchPageRead(bucketPageId)
	require.NotNil(t, bucketGuard)
	require.True(t, castBucketForTest(bucketGuard).IsEmpty())
	bucketGuard.Drop()
}

// randomized workload against a model map; the table and the model agree
// after every batch and the directory invariants hold throughout.
func TestHashTableRandomizedAgainstModel(t *testing.T) {
	bpm, dm := newTestBPM(common.BufferPoolMaxFrameNumForTest)
	defer dm.ShutDown()

	ht := NewDiskExtendibleHashTable("randomized_test", bpm, nil, nil, 1, 9, 16)

	model := make(map[uint64]uint64)
	inserted := mapset.NewSet[uint64]()
	removed := mapset.NewSet[uint64]()

	// a fixed LCG keeps the workload deterministic across runs
	state := uint64(0x9E3779B97F4A7C15)
	next := func() uint64 {
		state = state*6364136223846793005 + 1442695040888963407
		return state >> 16
	}

	for round := 0; round < 20; round++ {
		for i := 0; i < 100; i++ {
			key := next() % 4096
			switch next() % 3 {
			case 0, 1:
				_, exists := model[key]
				require.Equal(t, !exists, ht.Insert(key, key+1))
				if !exists {
					model[key] = key + 1
					inserted.Add(key)
				}
			case 2:
				_, exists := model[key]
				require.Equal(t, exists, ht.Remove(key))
				if exists {
					delete(model, key)
					removed.Add(key)
				}
			}
		}

		for key, want := range model {
			got, found := ht.GetValue(key)
			require.True(t, found, "key %d lost", key)
			require.Equal(t, want, got)
		}
		ht.VerifyIntegrity()
	}

	// every key ever touched and since removed reads as absent
	for key := range removed.Iter() {
		if _, stillThere := model[key]; !stillThere {
			_, found := ht.GetValue(key)
			require.False(t, found)
		}
	}
	require.True(t, inserted.Cardinality() > 0)
}

// 8 goroutines insert disjoint key ranges; the union is fully retrievable.
func TestHashTableConcurrentInsert(t *testing.T) {
	bpm, dm := newTestBPM(128)
	defer dm.ShutDown()

	ht := NewDiskExtendibleHashTable("concurrent_test", bpm, nil, nil, 2, 9, 16)

	const numThreads = 8
	const keysPerThread = 1000

	var wg sync.WaitGroup
	for th := 0; th < numThreads; th++ {
		wg.Add(1)
		go func(th int) {
			defer wg.Done()
			base := uint64(th * keysPerThread)
			for i := uint64(0); i < keysPerThread; i++ {
				key := base + i
				if !ht.Insert(key, key*2) {
					t.Errorf("insert of key %d failed", key)
					return
				}
			}
		}(th)
	}
	wg.Wait()

	for key := uint64(0); key < numThreads*keysPerThread; key++ {
		v, found := ht.GetValue(key)
		require.True(t, found, "key %d missing", key)
		require.Equal(t, key*2, v)
	}
	ht.VerifyIntegrity()
}

func TestHashTableConcurrentMixed(t *testing.T) {
	bpm, dm := newTestBPM(128)
	defer dm.ShutDown()

	ht := NewDiskExtendibleHashTable("concurrent_mixed_test", bpm, nil, nil, 1, 9, 16)

	const numThreads = 4
	const keysPerThread = 500

	var wg sync.WaitGroup
	for th := 0; th < numThreads; th++ {
		wg.Add(1)
		go func(th int) {
			defer wg.Done()
			base := uint64(th * keysPerThread)
			for i := uint64(0); i < keysPerThread; i++ {
				key := base + i
				if !ht.Insert(key, key) {
					t.Errorf("insert of key %d failed", key)
					return
				}
				if i%2 == 0 {
					if !ht.Remove(key) {
						t.Errorf("remove of key %d failed", key)
						return
					}
				}
			}
		}(th)
	}
	wg.Wait()

	for th := 0; th < numThreads; th++ {
		base := uint64(th * keysPerThread)
		for i := uint64(0); i < keysPerThread; i++ {
			key := base + i
			_, found := ht.GetValue(key)
			require.Equal(t, i%2 == 1, found, "key %d", key)
		}
	}
	ht.VerifyIntegrity()
}
