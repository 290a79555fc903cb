package trie

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTriePutGet(t *testing.T) {
	trie := New[uint32]()

	trie = trie.Put("hello", 1)
	trie = trie.Put("hell", 2)
	trie = trie.Put("help", 3)

	v, ok := trie.Get("hello")
	require.True(t, ok)
	require.EqualValues(t, 1, v)

	v, ok = trie.Get("hell")
	require.True(t, ok)
	require.EqualValues(t, 2, v)

	v, ok = trie.Get("help")
	require.True(t, ok)
	require.EqualValues(t, 3, v)

	// prefixes without a value and unknown keys miss
	_, ok = trie.Get("he")
	require.False(t, ok)
	_, ok = trie.Get("helium")
	require.False(t, ok)
}

func TestTrieOverwrite(t *testing.T) {
	trie := New[string]()
	trie = trie.Put("key", "old")
	trie = trie.Put("key", "new")

	v, ok := trie.Get("key")
	require.True(t, ok)
	require.Equal(t, "new", v)
}

func TestTrieEmptyKey(t *testing.T) {
	trie := New[int]()
	trie = trie.Put("", 7)

	v, ok := trie.Get("")
	require.True(t, ok)
	require.Equal(t, 7, v)

	trie = trie.Remove("")
	_, ok = trie.Get("")
	require.False(t, ok)
}

// an older version keeps seeing its snapshot after Put and Remove
func TestTrieSnapshotIsolation(t *testing.T) {
	trie1 := New[uint32]().Put("a", 1).Put("ab", 2)
	trie2 := trie1.Put("ab", 20).Put("abc", 3)
	trie3 := trie2.Remove("a")

	v, ok := trie1.Get("ab")
	require.True(t, ok)
	require.EqualValues(t, 2, v)
	_, ok = trie1.Get("abc")
	require.False(t, ok)

	v, ok = trie2.Get("ab")
	require.True(t, ok)
	require.EqualValues(t, 20, v)
	v, ok = trie2.Get("a")
	require.True(t, ok)
	require.EqualValues(t, 1, v)

	_, ok = trie3.Get("a")
	require.False(t, ok)
	v, ok = trie3.Get("abc")
	require.True(t, ok)
	require.EqualValues(t, 3, v)
}

func TestTrieRemove(t *testing.T) {
	trie := New[int]().Put("test", 1).Put("te", 2).Put("tes", 3)

	// removing a missing key returns the original trie
	same := trie.Remove("nope")
	v, ok := same.Get("test")
	require.True(t, ok)
	require.Equal(t, 1, v)

	trie = trie.Remove("test")
	_, ok = trie.Get("test")
	require.False(t, ok)
	v, ok = trie.Get("tes")
	require.True(t, ok)
	require.Equal(t, 3, v)

	// removing everything yields the empty trie (nil root)
	trie = trie.Remove("te").Remove("tes")
	require.Nil(t, trie.root)

	// a removed interior value keeps its children alive
	trie = New[int]().Put("ab", 1).Put("abcd", 2).Remove("ab")
	_, ok = trie.Get("ab")
	require.False(t, ok)
	v, ok = trie.Get("abcd")
	require.True(t, ok)
	require.Equal(t, 2, v)
}

func TestTrieConcurrentReaders(t *testing.T) {
	trie := New[uint64]()
	for i := uint64(0); i < 100; i++ {
		trie = trie.Put(string(rune('a'+i%26))+string(rune('a'+i/26)), i)
	}

	snapshot := trie
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			v, ok := snapshot.Get("ab")
			if !ok || v != 26 {
				t.Errorf("snapshot changed under a reader")
				return
			}
		}
	}()

	// writers publish new versions while the reader walks the old one
	for i := uint64(0); i < 100; i++ {
		trie = trie.Remove(string(rune('a'+i%26)) + string(rune('a'+i/26)))
	}
	<-done
	require.Nil(t, trie.root)
}
