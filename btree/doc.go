// Package btree implements an in-memory, ordered key-value B-Tree of
// configurable branching factor.
//
// # Overview
//
// A Tree is a classic B-Tree (every node, leaf or internal, carries
// payloads — this is not a B+Tree): point insert, point lookup, and
// delete run in O(height) node visits; ordered iteration and range
// scan take O(height) to position and O(1) amortised per step; bulk
// load builds the whole tree in one bottom-up pass.
//
// # Usage
//
//	cap := capability.Ordered[int, string]()
//	tree, err := btree.New[int, string](16, cap)
//	if err != nil {
//	    // degree out of [3, 1024], or cap.Compare is nil
//	}
//	tree.Insert(1, "one")
//	value, ok := tree.Search(1)
//
//	it := tree.Forward()
//	for it.Next() {
//	    key, value := it.KeyValue()
//	}
//
// # Memory
//
// Nodes are allocated from a slab.Pool sized at construction; a tree
// that empties itself via Clear or repeated deletes returns every node
// it allocated back to the pool.
package btree
