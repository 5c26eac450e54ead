package btree

import (
	"fmt"

	"github.com/orderedkv/btreekv/slab"
)

// Verify walks the whole tree and checks every structural invariant
// from the data model: height balance, key-count bounds per node,
// in-node ordering (and, transitively via the lo/hi bounds threaded
// through the walk, that every separator correctly bounds its
// subtrees), parent back-pointers, and the key_count/node_count
// identities. It returns nil for a structurally sound tree and a
// wrapped InvalidOperation describing the first violation otherwise.
//
// Unlike the original source's debug-only verifier stub, this is a
// real, always-available check — useful directly in tests after every
// mutation, not just under a debug build.
func (t *Tree[K, V]) Verify() error {
	if t.root.IsNil() {
		if t.height != 0 || t.keyCount != 0 || t.nodeCount != 0 {
			return newErr("Verify", KindInvalidOperation,
				fmt.Errorf("empty tree but height=%d keyCount=%d nodeCount=%d", t.height, t.keyCount, t.nodeCount))
		}
		return nil
	}

	var leafDepth = -1
	var totalKeys, reachableNodes int

	var walk func(ref, parent slab.Ref, depth int, lo, hi *K) error
	walk = func(ref, parent slab.Ref, depth int, lo, hi *K) error {
		n := t.node(ref)
		if n == nil {
			return fmt.Errorf("dangling node reference at depth %d", depth)
		}
		reachableNodes++

		if n.parent != parent {
			return fmt.Errorf("node at depth %d has wrong parent back-pointer", depth)
		}

		if ref == t.root {
			if n.numKeys < 1 || n.numKeys > t.maxKeys {
				return fmt.Errorf("root key count %d out of [1,%d]", n.numKeys, t.maxKeys)
			}
		} else if n.numKeys < t.minKeys || n.numKeys > t.maxKeys {
			return fmt.Errorf("node at depth %d has key count %d out of [%d,%d]", depth, n.numKeys, t.minKeys, t.maxKeys)
		}

		for i := 1; i < n.numKeys; i++ {
			c := t.cap.Compare(n.keys[i-1], n.keys[i])
			if c > 0 || (c == 0 && !t.allowDuplicates) {
				return fmt.Errorf("node at depth %d not ascending at slot %d", depth, i)
			}
		}
		if lo != nil && n.numKeys > 0 {
			c := t.cap.Compare(n.keys[0], *lo)
			if c < 0 || (c == 0 && !t.allowDuplicates) {
				return fmt.Errorf("node at depth %d holds a key not greater than its lower separator", depth)
			}
		}
		if hi != nil && n.numKeys > 0 {
			c := t.cap.Compare(n.keys[n.numKeys-1], *hi)
			if c > 0 || (c == 0 && !t.allowDuplicates) {
				return fmt.Errorf("node at depth %d holds a key not less than its upper separator", depth)
			}
		}

		totalKeys += n.numKeys

		if n.leaf {
			if leafDepth == -1 {
				leafDepth = depth
			} else if depth != leafDepth {
				return fmt.Errorf("leaf at depth %d, expected %d", depth, leafDepth)
			}
			return nil
		}

		if len(n.children) != n.numKeys+1 {
			return fmt.Errorf("node at depth %d has %d children for %d keys", depth, len(n.children), n.numKeys)
		}
		for i, c := range n.children {
			var childLo, childHi *K
			if i > 0 {
				k := n.keys[i-1]
				childLo = &k
			}
			if i < n.numKeys {
				k := n.keys[i]
				childHi = &k
			}
			if err := walk(c, ref, depth+1, childLo, childHi); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(t.root, slab.NilRef, 1, nil, nil); err != nil {
		return newErr("Verify", KindInvalidOperation, err)
	}
	if leafDepth != t.height {
		return newErr("Verify", KindInvalidOperation, fmt.Errorf("height is %d, leaves found at depth %d", t.height, leafDepth))
	}
	if totalKeys != t.keyCount {
		return newErr("Verify", KindInvalidOperation, fmt.Errorf("keyCount is %d, reachable nodes sum to %d", t.keyCount, totalKeys))
	}
	if reachableNodes != t.nodeCount {
		return newErr("Verify", KindInvalidOperation, fmt.Errorf("nodeCount is %d, %d nodes reachable", t.nodeCount, reachableNodes))
	}
	return nil
}
