package common

const EnableDebug bool = false

// use on memory virtual storage or not on tests
const EnableOnMemStorage = true

// when true, latches are backed by go-deadlock mutexes which report
// lock-order cycles. slow; debugging only.
const EnableDeadlockDetection = false

const (
	// size of a data page in byte
	PageSize = 4096
	// frame count of the default test buffer pool
	BufferPoolMaxFrameNumForTest = 32
	// K of the LRU-K replacer when callers do not choose one
	DefaultReplacerK = 2

	// hard limits of the extendible hash page layouts. both are bit
	// counts; the on-page arrays are sized for the maximum so a page
	// image stays valid for any smaller configured depth.
	HashTableHeaderMaxDepth    = 9
	HashTableDirectoryMaxDepth = 9

	ActiveLogKindSetting = INFO
)

// log kind bits. ActiveLogKindSetting selects which kinds LogDebug emits.
const (
	DEBUG_INFO uint32 = 1 << iota
	DEBUG_INFO_DETAIL
	CACHE_OUT_IN_INFO
	PIN_COUNT_TRACE
	INFO
)
