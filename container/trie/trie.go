package trie

/**
 * A copy-on-write persistent trie. Every Put and Remove returns a new
 * logical tree sharing the unmodified subtrees with the old one, so
 * readers of an older version keep seeing a consistent snapshot. Nodes
 * are never mutated after publication.
 */

// trieNode is an immutable node. A node carrying a value has a non-nil
// value pointer; that is the value-node variant.
type trieNode[V any] struct {
	children map[byte]*trieNode[V]
	value    *V
}

// clone copies the node shallowly: the children map is fresh, the child
// nodes are shared.
func (n *trieNode[V]) clone() *trieNode[V] {
	children := make(map[byte]*trieNode[V], len(n.children))
	for c, child := range n.children {
		children[c] = child
	}
	return &trieNode[V]{children: children, value: n.value}
}

func newTrieNode[V any]() *trieNode[V] {
	return &trieNode[V]{children: make(map[byte]*trieNode[V])}
}

// Trie is an immutable handle on one version of the tree. The zero value
// is the empty trie.
type Trie[V any] struct {
	root *trieNode[V]
}

// New returns an empty trie
func New[V any]() Trie[V] {
	return Trie[V]{}
}

// Get returns the value stored under key
func (t Trie[V]) Get(key string) (V, bool) {
	var zero V
	node := t.root
	if node == nil {
		return zero, false
	}
	for i := 0; i < len(key); i++ {
		child, ok := node.children[key[i]]
		if !ok {
			return zero, false
		}
		node = child
	}
	if node.value == nil {
		return zero, false
	}
	return *node.value, true
}

// Put stores value under key and returns the new trie. An existing value
// is overwritten.
func (t Trie[V]) Put(key string, value V) Trie[V] {
	var newRoot *trieNode[V]
	if t.root == nil {
		newRoot = newTrieNode[V]()
	} else {
		newRoot = t.root.clone()
	}

	node := newRoot
	for i := 0; i < len(key); i++ {
		c := key[i]
		var next *trieNode[V]
		if child, ok := node.children[c]; ok {
			next = child.clone()
		} else {
			next = newTrieNode[V]()
		}
		node.children[c] = next
		node = next
	}
	node.value = &value

	return Trie[V]{root: newRoot}
}

// Remove deletes key and returns the new trie, pruning nodes left with
// neither value nor children. Removing a missing key returns the
// original trie; removing the last entry returns the empty trie.
func (t Trie[V]) Remove(key string) Trie[V] {
	if t.root == nil {
		return t
	}

	// the cloned path from the root down to the removed node, with the
	// byte each node hangs under
	type pathEntry struct {
		node *trieNode[V]
		c    byte
	}

	newRoot := t.root.clone()
	path := []pathEntry{{newRoot, 0}}
	node := newRoot
	for i := 0; i < len(key); i++ {
		c := key[i]
		child, ok := node.children[c]
		if !ok {
			return t
		}
		next := child.clone()
		node.children[c] = next
		node = next
		path = append(path, pathEntry{next, c})
	}
	if node.value == nil {
		return t
	}
	node.value = nil

	// prune empty non-value nodes bottom-up
	for len(path) > 1 {
		top := path[len(path)-1]
		if len(top.node.children) != 0 || top.node.value != nil {
			break
		}
		path = path[:len(path)-1]
		delete(path[len(path)-1].node.children, top.c)
	}

	if len(newRoot.children) == 0 && newRoot.value == nil {
		return Trie[V]{}
	}
	return Trie[V]{root: newRoot}
}
