package btree

import "github.com/orderedkv/btreekv/slab"

// Delete removes key from the tree. If key is absent, Delete returns
// an error wrapping ErrKeyNotFound and leaves the tree untouched.
//
// Like Insert, Delete uses a pre-emptive structural fix on the way
// down: before descending into any child holding only minKeys keys,
// that child is topped up (by borrowing a key from a sibling, or by
// merging with one) so the deletion below it can never underflow the
// tree past this point. Because that fix-up happens unconditionally
// while descending, Delete first confirms key's presence with a
// read-only Contains check, so a KeyNotFound failure never triggers
// any redistribution or merge.
func (t *Tree[K, V]) Delete(key K) error {
	const op = "Delete"

	if t.root.IsNil() || !t.Contains(key) {
		return t.fail(newErr(op, KindKeyNotFound, nil))
	}

	if err := t.deleteDown(t.root, key, t.cap.Destroy); err != nil {
		return t.fail(err)
	}
	t.keyCount--
	t.seq++

	root := t.node(t.root)
	switch {
	case !root.leaf && root.numKeys == 0:
		// The root's last key was absorbed into a merge of its two
		// children; that merged child becomes the new root.
		onlyChild := root.children[0]
		t.node(onlyChild).parent = slab.NilRef
		t.freeNode(t.root)
		t.root = onlyChild
		t.height--
	case root.leaf && root.numKeys == 0:
		t.freeNode(t.root)
		t.root = slab.NilRef
		t.height = 0
	}
	return nil
}

// deleteDown descends from ref looking for key, pre-filling any
// deficient child before entering it, and removes key once the node
// holding it (directly, or via predecessor/successor substitution) is
// reached. destroy is invoked on the removed payload; it is nil while
// removing a predecessor/successor whose payload was moved up.
func (t *Tree[K, V]) deleteDown(ref slab.Ref, key K, destroy func(K, V)) error {
	n := t.node(ref)
	idx := n.locate(key, t.cap.Compare)

	if n.leaf {
		if idx < 0 {
			return newErr("Delete", KindKeyNotFound, nil)
		}
		n.removeAt(idx, destroy)
		return nil
	}

	if idx >= 0 {
		leftRef, rightRef := n.children[idx], n.children[idx+1]
		left, right := t.node(leftRef), t.node(rightRef)
		switch {
		case left.numKeys > t.minKeys:
			predKey, predVal := t.maxEntry(leftRef)
			if destroy != nil {
				destroy(n.keys[idx], n.values[idx])
			}
			n.keys[idx], n.values[idx] = predKey, predVal
			return t.deleteDown(leftRef, predKey, nil)
		case right.numKeys > t.minKeys:
			succKey, succVal := t.minEntry(rightRef)
			if destroy != nil {
				destroy(n.keys[idx], n.values[idx])
			}
			n.keys[idx], n.values[idx] = succKey, succVal
			return t.deleteDown(rightRef, succKey, nil)
		default:
			mergedRef := t.mergeChildren(n, idx)
			return t.deleteDown(mergedRef, key, destroy)
		}
	}

	childIdx := -(idx + 1)
	childRef := t.ensureFilled(n, childIdx)
	return t.deleteDown(childRef, key, destroy)
}

// maxEntry returns the in-order predecessor reachable from ref: the
// last key/value of the rightmost leaf in ref's subtree.
func (t *Tree[K, V]) maxEntry(ref slab.Ref) (K, V) {
	n := t.node(ref)
	for !n.leaf {
		ref = n.children[n.numKeys]
		n = t.node(ref)
	}
	return n.keys[n.numKeys-1], n.values[n.numKeys-1]
}

// minEntry returns the in-order successor reachable from ref: the
// first key/value of the leftmost leaf in ref's subtree.
func (t *Tree[K, V]) minEntry(ref slab.Ref) (K, V) {
	n := t.node(ref)
	for !n.leaf {
		ref = n.children[0]
		n = t.node(ref)
	}
	return n.keys[0], n.values[0]
}

// ensureFilled guarantees parent.children[childIdx] holds more than
// minKeys keys before the caller descends into it, redistributing from
// a sibling if one has spare keys, or merging with one otherwise. It
// returns the (possibly different, post-merge) ref to descend into.
func (t *Tree[K, V]) ensureFilled(parent *node[K, V], childIdx int) slab.Ref {
	childRef := parent.children[childIdx]
	child := t.node(childRef)
	if child.numKeys > t.minKeys {
		return childRef
	}

	if childIdx > 0 {
		leftRef := parent.children[childIdx-1]
		if left := t.node(leftRef); left.numKeys > t.minKeys {
			t.redistributeFromLeft(parent, childIdx, left, leftRef, child, childRef)
			return childRef
		}
	}
	if childIdx < parent.numKeys {
		rightRef := parent.children[childIdx+1]
		if right := t.node(rightRef); right.numKeys > t.minKeys {
			t.redistributeFromRight(parent, childIdx, child, childRef, right, rightRef)
			return childRef
		}
	}
	if childIdx > 0 {
		return t.mergeChildren(parent, childIdx-1)
	}
	return t.mergeChildren(parent, childIdx)
}

// redistributeFromLeft rotates one key through the parent: the
// separator at parent.keys[childIdx-1] moves down to become child's
// first key, left's last key moves up to take its place, and (for
// internal nodes) left's last child follows it across to become
// child's first child.
func (t *Tree[K, V]) redistributeFromLeft(parent *node[K, V], childIdx int, left *node[K, V], leftRef slab.Ref, child *node[K, V], childRef slab.Ref) {
	child.keys = child.keys[:child.numKeys+1]
	child.values = child.values[:child.numKeys+1]
	copy(child.keys[1:], child.keys[:child.numKeys])
	copy(child.values[1:], child.values[:child.numKeys])
	child.keys[0] = parent.keys[childIdx-1]
	child.values[0] = parent.values[childIdx-1]

	if !child.leaf {
		movedChild := left.children[left.numKeys]
		child.children = child.children[:child.numKeys+2]
		copy(child.children[1:], child.children[:child.numKeys+1])
		child.children[0] = movedChild
		if cn := t.node(movedChild); cn != nil {
			cn.parent = childRef
		}
		left.children = left.children[:left.numKeys]
	}
	child.numKeys++

	parent.keys[childIdx-1] = left.keys[left.numKeys-1]
	parent.values[childIdx-1] = left.values[left.numKeys-1]

	left.numKeys--
	left.keys = left.keys[:left.numKeys]
	left.values = left.values[:left.numKeys]
}

// redistributeFromRight is the mirror of redistributeFromLeft: the
// separator at parent.keys[childIdx] moves down to become child's
// last key, right's first key moves up to replace it, and right's
// first child (if internal) follows across to become child's last
// child.
func (t *Tree[K, V]) redistributeFromRight(parent *node[K, V], childIdx int, child *node[K, V], childRef slab.Ref, right *node[K, V], rightRef slab.Ref) {
	child.keys = child.keys[:child.numKeys+1]
	child.values = child.values[:child.numKeys+1]
	child.keys[child.numKeys] = parent.keys[childIdx]
	child.values[child.numKeys] = parent.values[childIdx]

	if !child.leaf {
		movedChild := right.children[0]
		child.children = child.children[:child.numKeys+2]
		child.children[child.numKeys+1] = movedChild
		if cn := t.node(movedChild); cn != nil {
			cn.parent = childRef
		}
		copy(right.children, right.children[1:])
		right.children = right.children[:len(right.children)-1]
	}
	child.numKeys++

	parent.keys[childIdx] = right.keys[0]
	parent.values[childIdx] = right.values[0]

	copy(right.keys, right.keys[1:right.numKeys])
	copy(right.values, right.values[1:right.numKeys])
	right.numKeys--
	right.keys = right.keys[:right.numKeys]
	right.values = right.values[:right.numKeys]
}

// mergeChildren absorbs parent.children[leftIdx+1], the separator at
// parent.keys[leftIdx], and parent.children[leftIdx] into a single
// node holding 2*minKeys+1 keys, frees the right sibling, and removes
// the now-absent separator and child slot from parent. It returns the
// ref of the merged node (the left child's, reused in place).
func (t *Tree[K, V]) mergeChildren(parent *node[K, V], leftIdx int) slab.Ref {
	leftRef, rightRef := parent.children[leftIdx], parent.children[leftIdx+1]
	left, right := t.node(leftRef), t.node(rightRef)

	newCount := left.numKeys + 1 + right.numKeys
	left.keys = left.keys[:newCount]
	left.values = left.values[:newCount]
	left.keys[left.numKeys] = parent.keys[leftIdx]
	left.values[left.numKeys] = parent.values[leftIdx]
	copy(left.keys[left.numKeys+1:], right.keys[:right.numKeys])
	copy(left.values[left.numKeys+1:], right.values[:right.numKeys])

	if !left.leaf {
		left.children = left.children[:newCount+1]
		copy(left.children[left.numKeys+1:], right.children[:right.numKeys+1])
		for _, c := range left.children[left.numKeys+1:] {
			if cn := t.node(c); cn != nil {
				cn.parent = leftRef
			}
		}
	}
	left.numKeys = newCount

	parent.removeAt(leftIdx, nil) // payload already absorbed into left; no destroy
	parent.removeChildAt(leftIdx + 1)

	t.freeNode(rightRef)
	return leftRef
}
