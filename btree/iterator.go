package btree

import "github.com/orderedkv/btreekv/slab"

// Iterator produces a lazy, read-only, in-order sequence of
// (key, value) pairs. It holds a stack of (node, next-slot) frames —
// O(height) to construct, O(1) amortised per Next/Prev.
//
// An iterator is a snapshot of the tree's structure as of its
// construction: any mutation to the tree (Insert, Delete, Clear,
// BulkLoad) invalidates every outstanding iterator. Calling Next or
// Prev on an invalidated iterator returns false and records an
// InvalidOperation error retrievable via Err.
type Iterator[K, V any] struct {
	t   *Tree[K, V]
	seq uint64

	stack []iterFrame

	curKey K
	curVal V

	hasLo, hasHi         bool
	lo, hi               K
	loInclusive, hiInclusive bool

	done bool
	err  error
}

type iterFrame struct {
	ref  slab.Ref
	next int
}

// Forward returns an iterator over the whole tree in ascending order.
func (t *Tree[K, V]) Forward() *Iterator[K, V] {
	it := &Iterator[K, V]{t: t, seq: t.seq}
	it.pushLeftSpine(t.root)
	return it
}

// Backward returns an iterator over the whole tree in descending order.
func (t *Tree[K, V]) Backward() *Iterator[K, V] {
	it := &Iterator[K, V]{t: t, seq: t.seq}
	it.pushRightSpine(t.root)
	return it
}

// Range returns an ascending iterator over keys k with lo `?` k `?` hi,
// where `?` is `<=` when the corresponding *Inclusive flag is set and
// `<` otherwise. It positions directly at the first qualifying key
// without visiting anything before it.
func (t *Tree[K, V]) Range(lo, hi K, loInclusive, hiInclusive bool) *Iterator[K, V] {
	it := &Iterator[K, V]{
		t: t, seq: t.seq,
		hasHi: true, hi: hi, hiInclusive: hiInclusive,
	}
	it.seekLow(lo, loInclusive)
	return it
}

// RangeBackward is Range's descending counterpart: it positions at the
// last qualifying key and walks down to the first.
func (t *Tree[K, V]) RangeBackward(lo, hi K, loInclusive, hiInclusive bool) *Iterator[K, V] {
	it := &Iterator[K, V]{
		t: t, seq: t.seq,
		hasLo: true, lo: lo, loInclusive: loInclusive,
	}
	it.seekHigh(hi, hiInclusive)
	return it
}

func (it *Iterator[K, V]) pushLeftSpine(ref slab.Ref) {
	for !ref.IsNil() {
		n := it.t.node(ref)
		it.stack = append(it.stack, iterFrame{ref, 0})
		if n.leaf {
			return
		}
		ref = n.children[0]
	}
}

func (it *Iterator[K, V]) pushRightSpine(ref slab.Ref) {
	for !ref.IsNil() {
		n := it.t.node(ref)
		it.stack = append(it.stack, iterFrame{ref, n.numKeys - 1})
		if n.leaf {
			return
		}
		ref = n.children[n.numKeys]
	}
}

// seekLow walks down to the first key >= lo (or > lo when !inclusive),
// building a stack whose top frame sits exactly at that key, without
// ever visiting a key strictly less than the boundary.
func (it *Iterator[K, V]) seekLow(lo K, inclusive bool) {
	if it.t.root.IsNil() {
		return
	}
	ref := it.t.root
	for {
		n := it.t.node(ref)
		idx := n.locate(lo, it.t.cap.Compare)
		if idx >= 0 {
			start := idx
			if !inclusive {
				start = idx + 1
			}
			it.stack = append(it.stack, iterFrame{ref, start})
			if !n.leaf && !inclusive {
				it.pushLeftSpine(n.children[idx+1])
			}
			return
		}
		gap := -(idx + 1)
		it.stack = append(it.stack, iterFrame{ref, gap})
		if n.leaf {
			return
		}
		ref = n.children[gap]
	}
}

// seekHigh is seekLow's mirror: it walks down to the last key <= hi
// (or < hi when !inclusive).
func (it *Iterator[K, V]) seekHigh(hi K, inclusive bool) {
	if it.t.root.IsNil() {
		return
	}
	ref := it.t.root
	for {
		n := it.t.node(ref)
		idx := n.locate(hi, it.t.cap.Compare)
		if idx >= 0 {
			start := idx
			if !inclusive {
				start = idx - 1
			}
			it.stack = append(it.stack, iterFrame{ref, start})
			if !n.leaf && !inclusive {
				it.pushRightSpine(n.children[idx])
			}
			return
		}
		gap := -(idx + 1)
		it.stack = append(it.stack, iterFrame{ref, gap - 1})
		if n.leaf {
			return
		}
		ref = n.children[gap]
	}
}

func (it *Iterator[K, V]) withinHi(k K) bool {
	c := it.t.cap.Compare(k, it.hi)
	if it.hiInclusive {
		return c <= 0
	}
	return c < 0
}

func (it *Iterator[K, V]) withinLo(k K) bool {
	c := it.t.cap.Compare(k, it.lo)
	if it.loInclusive {
		return c >= 0
	}
	return c > 0
}

func (it *Iterator[K, V]) checkSeq() bool {
	if it.t.seq != it.seq {
		it.err = newErr("Iterator", KindInvalidOperation, nil)
		it.stack = nil
		return false
	}
	return true
}

// Next advances to the next ascending pair and reports whether one was
// found. Call KeyValue to read it.
func (it *Iterator[K, V]) Next() bool {
	if it.done || !it.checkSeq() {
		return false
	}
	for len(it.stack) > 0 {
		top := &it.stack[len(it.stack)-1]
		n := it.t.node(top.ref)
		if top.next >= n.numKeys {
			it.stack = it.stack[:len(it.stack)-1]
			continue
		}
		key := n.keys[top.next]
		if it.hasHi && !it.withinHi(key) {
			it.stack = nil
			it.done = true
			return false
		}
		it.curKey, it.curVal = key, n.values[top.next]
		childIdx := top.next + 1
		top.next++
		if !n.leaf {
			it.pushLeftSpine(n.children[childIdx])
		}
		return true
	}
	return false
}

// Prev advances to the next descending pair and reports whether one
// was found. Call KeyValue to read it.
func (it *Iterator[K, V]) Prev() bool {
	if it.done || !it.checkSeq() {
		return false
	}
	for len(it.stack) > 0 {
		top := &it.stack[len(it.stack)-1]
		n := it.t.node(top.ref)
		if top.next < 0 {
			it.stack = it.stack[:len(it.stack)-1]
			continue
		}
		key := n.keys[top.next]
		if it.hasLo && !it.withinLo(key) {
			it.stack = nil
			it.done = true
			return false
		}
		it.curKey, it.curVal = key, n.values[top.next]
		childIdx := top.next
		top.next--
		if !n.leaf {
			it.pushRightSpine(n.children[childIdx])
		}
		return true
	}
	return false
}

// KeyValue returns the pair most recently produced by Next or Prev.
func (it *Iterator[K, V]) KeyValue() (K, V) { return it.curKey, it.curVal }

// Err returns the error that stopped iteration, if any. A plain
// end-of-sequence is not an error; Err is non-nil only when the tree
// was mutated underneath this iterator.
func (it *Iterator[K, V]) Err() error { return it.err }
