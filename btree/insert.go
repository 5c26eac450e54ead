package btree

import "github.com/orderedkv/btreekv/slab"

// Insert places (key, value) into the tree. If duplicates are
// disallowed (the default) and key is already present, Insert returns
// an error wrapping ErrDuplicateKey and leaves the tree untouched.
//
// The tree uses the classic pre-emptive split: before insertDown ever
// descends into a child holding maxKeys keys, that child is split so
// its parent — and eventually the leaf reached — always has room. When
// duplicates are disallowed, Insert first walks the tree read-only to
// check for key's presence, so a DuplicateKey failure never leaves a
// partially-split tree behind.
//
// If the pool runs out during a split, Insert returns an error wrapping
// ErrMemoryAllocation. A failure at the first split of the call leaves
// the tree exactly as it was; splits already completed higher up the
// path before a later split fails are not undone, so the tree stays
// valid and holds the same keys, but its node count and height may
// differ from before the call.
func (t *Tree[K, V]) Insert(key K, value V) error {
	const op = "Insert"

	if !t.allowDuplicates && t.Contains(key) {
		return t.fail(newErr(op, KindDuplicateKey, nil))
	}

	if t.root.IsNil() {
		ref, n, err := t.allocNode(true)
		if err != nil {
			return t.fail(newErr(op, KindMemoryAllocation, nil))
		}
		n.insertAt(0, key, value, slab.NilRef)
		t.root = ref
		t.height = 1
		t.keyCount++
		t.seq++
		return nil
	}

	if t.node(t.root).full(t.maxKeys) {
		newRootRef, newRoot, err := t.allocNode(false)
		if err != nil {
			return t.fail(newErr(op, KindMemoryAllocation, nil))
		}
		oldRoot := t.root
		newRoot.setFirstChild(oldRoot)
		if err := t.splitChild(newRootRef, newRoot, 0, oldRoot); err != nil {
			t.freeNode(newRootRef)
			return t.fail(err)
		}
		t.node(oldRoot).parent = newRootRef
		t.root = newRootRef
		t.height++
	}

	if err := t.insertDown(t.root, key, value); err != nil {
		return t.fail(err)
	}
	t.keyCount++
	t.seq++
	return nil
}

// splitChild splits the node addressed by childRef, a child of
// parent at slot i, promoting its middle key/value up into parent.
// Precondition: child holds exactly maxKeys keys; parent has room for
// one more key (checked by every caller before invoking this).
func (t *Tree[K, V]) splitChild(parentRef slab.Ref, parent *node[K, V], i int, childRef slab.Ref) error {
	child := t.node(childRef)

	siblingRef, sibling, err := t.allocNode(child.leaf)
	if err != nil {
		return newErr("Insert", KindMemoryAllocation, nil)
	}

	mid := t.degree - 1
	promotedKey := child.keys[mid]
	promotedValue := child.values[mid]
	rightCount := child.numKeys - mid - 1

	sibling.keys = sibling.keys[:rightCount]
	sibling.values = sibling.values[:rightCount]
	copy(sibling.keys, child.keys[mid+1:child.numKeys])
	copy(sibling.values, child.values[mid+1:child.numKeys])
	sibling.numKeys = rightCount
	sibling.parent = parentRef

	if !child.leaf {
		sibling.children = sibling.children[:rightCount+1]
		copy(sibling.children, child.children[mid+1:])
		for _, c := range sibling.children {
			if cn := t.node(c); cn != nil {
				cn.parent = siblingRef
			}
		}
		child.children = child.children[:mid+1]
	}

	child.numKeys = mid
	child.keys = child.keys[:mid]
	child.values = child.values[:mid]

	parent.insertAt(i, promotedKey, promotedValue, siblingRef)
	return nil
}

// insertDown descends from ref, pre-splitting any full child before
// entering it, and places (key, value) at the leaf it reaches.
func (t *Tree[K, V]) insertDown(ref slab.Ref, key K, value V) error {
	n := t.node(ref)
	idx := n.locate(key, t.cap.Compare)

	if n.leaf {
		if idx >= 0 {
			if !t.allowDuplicates {
				return newErr("Insert", KindDuplicateKey, nil)
			}
			n.insertAt(idx+1, key, value, slab.NilRef)
			return nil
		}
		gap := -(idx + 1)
		n.insertAt(gap, key, value, slab.NilRef)
		return nil
	}

	childIdx := idx
	if childIdx >= 0 {
		if !t.allowDuplicates {
			return newErr("Insert", KindDuplicateKey, nil)
		}
		childIdx++
	} else {
		childIdx = -(childIdx + 1)
	}

	childRef := n.children[childIdx]
	if t.node(childRef).full(t.maxKeys) {
		if err := t.splitChild(ref, n, childIdx, childRef); err != nil {
			return err
		}
		c := t.cap.Compare(n.keys[childIdx], key)
		switch {
		case c == 0:
			if !t.allowDuplicates {
				return newErr("Insert", KindDuplicateKey, nil)
			}
			childIdx++
		case c < 0:
			childIdx++
		}
		childRef = n.children[childIdx]
	}

	return t.insertDown(childRef, key, value)
}

// BulkInsert builds the tree from pairs, which must already be sorted
// in ascending comparator order; unsorted input is rejected with
// InvalidOperation rather than loaded out of order. It requires an
// empty tree (call Clear first to discard an existing one) and builds
// bottom-up in one pass rather than via repeated Insert/split — see
// BulkLoad, which this delegates to, for the full contract.
func (t *Tree[K, V]) BulkInsert(pairs []Pair[K, V]) error {
	return t.BulkLoad(pairs)
}
