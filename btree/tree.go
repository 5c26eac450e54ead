package btree

import (
	"github.com/orderedkv/btreekv/capability"
	"github.com/orderedkv/btreekv/slab"
)

const (
	minDegree = 3
	maxDegree = 1024
)

// Pair is one key-value pair, as taken by BulkInsert and BulkLoad and
// returned by RangeSearch.
type Pair[K, V any] struct {
	Key   K
	Value V
}

// Option configures a Tree at construction.
type Option func(*options)

type options struct {
	allowDuplicates bool
	poolCapacity    int
	poolFlags       slab.Flags
	caseInsensitive bool // reserved, accepted for flag-set fidelity; no effect
	threadSafeTree  bool // reserved, accepted for flag-set fidelity; no effect
}

// WithAllowDuplicates permits inserting an already-present key instead
// of failing with ErrDuplicateKey.
func WithAllowDuplicates() Option { return func(o *options) { o.allowDuplicates = true } }

// WithPoolCapacity sets the number of nodes the backing slab.Pool
// reserves up front. Zero or negative means "size for a reasonably
// deep tree at this degree" (see defaultPoolCapacity).
func WithPoolCapacity(n int) Option { return func(o *options) { o.poolCapacity = n } }

// WithPoolFlags passes flags straight through to slab.NewPool.
func WithPoolFlags(f slab.Flags) Option { return func(o *options) { o.poolFlags = f } }

// WithCaseInsensitive is reserved; accepted for flag-set fidelity, no
// effect. Fold case into the Capability's Compare function instead.
func WithCaseInsensitive() Option { return func(o *options) { o.caseInsensitive = true } }

// WithThreadSafeTree is reserved; accepted for flag-set fidelity, no
// effect — the tree itself remains single-writer regardless. Each Tree
// allocates from a slab.Pool of its own, created by New; a pool cannot
// be shared between trees. WithPoolFlags(slab.ThreadSafe) makes that
// pool's methods lock.
func WithThreadSafeTree() Option { return func(o *options) { o.threadSafeTree = true } }

// Tree is an in-memory B-Tree over ordered keys K with values V.
type Tree[K, V any] struct {
	pool *slab.Pool[node[K, V]]
	root slab.Ref

	degree   int
	maxKeys  int
	minKeys  int
	height   int
	keyCount int
	nodeCount int

	cap             capability.Capability[K, V]
	allowDuplicates bool

	lastErr error
	seq     uint64 // bumped by every mutator; iterators snapshot it
}

// New constructs an empty Tree of the given degree. degree must be in
// [3, 1024]; cap.Compare must be non-nil.
func New[K, V any](degree int, cap capability.Capability[K, V], opts ...Option) (*Tree[K, V], error) {
	if degree < minDegree || degree > maxDegree {
		return nil, newErr("New", KindInvalidDegree, nil)
	}
	if cap.Compare == nil {
		return nil, newErr("New", KindNullPointer, nil)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	maxKeys := 2*degree - 1
	poolCap := o.poolCapacity
	if poolCap <= 0 {
		poolCap = defaultPoolCapacity(degree)
	}

	t := &Tree[K, V]{
		pool:            slab.NewPool[node[K, V]](poolCap, o.poolFlags),
		root:            slab.NilRef,
		degree:          degree,
		maxKeys:         maxKeys,
		minKeys:         degree - 1,
		cap:             cap,
		allowDuplicates: o.allowDuplicates,
	}
	return t, nil
}

// defaultPoolCapacity picks a generous but bounded starting arena size:
// enough nodes for a tree several levels deep at this degree, without
// preallocating for pathological data sizes up front. Callers with
// known dataset sizes should pass WithPoolCapacity explicitly.
func defaultPoolCapacity(degree int) int {
	n := 64 * degree
	if n < 256 {
		n = 256
	}
	return n
}

// OptimalDegree estimates a cache-friendly degree from the key and
// value sizes, mirroring BTREE_OPTIMAL_DEGREE in the original C
// source. It is advisory only: unlike the C source's flat, pointerless
// node layout, this port's nodes hold Go slices (headers plus
// heap-allocated backing arrays), so the cache-line arithmetic here is
// a much rougher heuristic. Prefer measuring.
func OptimalDegree(keySize, valueSize uintptr) int {
	const cacheLine = 64
	const nodeOverhead = 64 // rough header + slice-header cost
	perKey := int(keySize) + int(valueSize) + 8 // +8 for a child ref
	if perKey <= 0 {
		return 16
	}
	d := (cacheLine*4 - nodeOverhead) / perKey
	if d < minDegree {
		d = minDegree
	}
	if d > maxDegree {
		d = maxDegree
	}
	return d
}

// Size returns the total number of keys stored.
func (t *Tree[K, V]) Size() int { return t.keyCount }

// Height returns the tree height (0 when empty).
func (t *Tree[K, V]) Height() int { return t.height }

// IsEmpty reports whether the tree holds no keys.
func (t *Tree[K, V]) IsEmpty() bool { return t.root.IsNil() }

// LastError returns the most recent failing call's error, or nil. It is
// a diagnostic convenience only — the primary failure channel is every
// method's own return value.
func (t *Tree[K, V]) LastError() error { return t.lastErr }

func (t *Tree[K, V]) fail(err error) error {
	t.lastErr = err
	return err
}

// Clear removes every key, invoking the payload destructor (if any)
// exactly once per pair, and returns every node to the pool.
func (t *Tree[K, V]) Clear() {
	if !t.root.IsNil() {
		t.clearSubtree(t.root)
	}
	t.root = slab.NilRef
	t.height = 0
	t.keyCount = 0
	t.nodeCount = 0
	t.seq++
}

func (t *Tree[K, V]) clearSubtree(ref slab.Ref) {
	n := t.pool.Get(ref)
	if n == nil {
		return
	}
	if !n.leaf {
		for _, c := range n.children {
			t.clearSubtree(c)
		}
	}
	if t.cap.Destroy != nil {
		for i := 0; i < n.numKeys; i++ {
			t.cap.Destroy(n.keys[i], n.values[i])
		}
	}
	t.pool.Free(ref)
}

// allocNode reserves a node from the pool. It returns ErrMemoryAllocation
// (not a panic) when the pool is exhausted.
func (t *Tree[K, V]) allocNode(leaf bool) (slab.Ref, *node[K, V], error) {
	ref, slot := t.pool.Alloc()
	if ref.IsNil() {
		return slab.NilRef, nil, newErr("", KindMemoryAllocation, nil)
	}
	*slot = newNode[K, V](leaf, t.maxKeys)
	t.nodeCount++
	return ref, slot, nil
}

func (t *Tree[K, V]) freeNode(ref slab.Ref) {
	t.pool.Free(ref)
	t.nodeCount--
}

func (t *Tree[K, V]) node(ref slab.Ref) *node[K, V] { return t.pool.Get(ref) }

// Stats reports tree-level counters.
type Stats struct {
	NodeCount int
	KeyCount  int
	Height    int
}

// Stats returns a snapshot of the tree's counters.
func (t *Tree[K, V]) Stats() Stats {
	return Stats{NodeCount: t.nodeCount, KeyCount: t.keyCount, Height: t.height}
}

// PoolStats returns the backing slab.Pool's allocator-level counters.
func (t *Tree[K, V]) PoolStats() slab.Stats { return t.pool.Stats() }
