package btree

import "github.com/orderedkv/btreekv/slab"

// node is a single B-Tree node: a sorted run of keys with parallel
// values and, if internal, one more child reference than keys. It is
// never referenced by pointer — only by slab.Ref, so the arena (the
// Tree's pool) is the sole owner and there is no parent/child pointer
// cycle to manage.
//
// Capacity is fixed at creation to maxKeys (maxKeys+1 for children) and
// the backing slices are never grown or shrunk.
type node[K, V any] struct {
	leaf     bool
	numKeys  int
	keys     []K
	values   []V
	children []slab.Ref // len == numKeys+1 when !leaf, else unused
	parent   slab.Ref
}

func newNode[K, V any](leaf bool, maxKeys int) node[K, V] {
	n := node[K, V]{
		leaf:   leaf,
		keys:   make([]K, 0, maxKeys),
		values: make([]V, 0, maxKeys),
		parent: slab.NilRef,
	}
	n.keys = n.keys[:0]
	n.values = n.values[:0]
	if !leaf {
		n.children = make([]slab.Ref, 0, maxKeys+1)
	}
	return n
}

// locate performs a binary search over keys[0:numKeys). It returns a
// non-negative index on a hit, or -(gap+1) encoding the insertion gap
// on a miss, so callers can distinguish "found" from "not found" from
// a single return value.
func (n *node[K, V]) locate(key K, compare func(a, b K) int) int {
	lo, hi := 0, n.numKeys
	for lo < hi {
		mid := (lo + hi) / 2
		c := compare(n.keys[mid], key)
		switch {
		case c == 0:
			return mid
		case c < 0:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return -(lo + 1)
}

// insertAt shifts the suffix right and places (key, value) at slot i.
// If the node is internal, rightChild becomes children[i+1]; the
// caller is responsible for passing a valid child in that case.
// Precondition: numKeys < cap(keys) and 0 <= i <= numKeys.
func (n *node[K, V]) insertAt(i int, key K, value V, rightChild slab.Ref) {
	n.keys = n.keys[:n.numKeys+1]
	n.values = n.values[:n.numKeys+1]
	copy(n.keys[i+1:], n.keys[i:n.numKeys])
	copy(n.values[i+1:], n.values[i:n.numKeys])
	n.keys[i] = key
	n.values[i] = value

	if !n.leaf {
		n.children = n.children[:n.numKeys+2]
		copy(n.children[i+2:], n.children[i+1:n.numKeys+1])
		n.children[i+1] = rightChild
	}
	n.numKeys++
}

// setFirstChild sets children[0] on a freshly created internal node
// that has no keys yet.
func (n *node[K, V]) setFirstChild(ref slab.Ref) {
	n.children = n.children[:1]
	n.children[0] = ref
}

// removeAt invokes destroy (if non-nil) on the payload at slot i, then
// shifts the suffix left by one slot. It does not touch children —
// callers that remove a key from an internal node must separately
// relink children if needed (delete.go never removes a key from an
// internal node without already having resolved its children).
func (n *node[K, V]) removeAt(i int, destroy func(K, V)) {
	if destroy != nil {
		destroy(n.keys[i], n.values[i])
	}
	copy(n.keys[i:], n.keys[i+1:n.numKeys])
	copy(n.values[i:], n.values[i+1:n.numKeys])
	n.numKeys--
	n.keys = n.keys[:n.numKeys]
	n.values = n.values[:n.numKeys]
}

// removeChildAt removes children[i], shifting the suffix left.
func (n *node[K, V]) removeChildAt(i int) {
	copy(n.children[i:], n.children[i+1:])
	n.children = n.children[:len(n.children)-1]
}

// full reports whether the node cannot accept another key without splitting.
func (n *node[K, V]) full(maxKeys int) bool { return n.numKeys >= maxKeys }

// deficient reports whether the node has fewer than minKeys keys — an
// underflow that must be fixed before a mutation descends past it.
func (n *node[K, V]) deficient(minKeys int) bool { return n.numKeys < minKeys }
