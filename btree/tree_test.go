package btree

import (
	"errors"
	"math/rand"
	"sort"
	"testing"

	"github.com/orderedkv/btreekv/capability"
)

func newIntTree(t *testing.T, degree int, opts ...Option) *Tree[int, int] {
	t.Helper()
	tr, err := New[int, int](degree, capability.Ordered[int, int](), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tr
}

func requireVerify(t *testing.T, tr *Tree[int, int]) {
	t.Helper()
	if err := tr.Verify(); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
}

// S1 — tiny insert/search.
func TestScenarioTinyInsertSearch(t *testing.T) {
	tr := newIntTree(t, 3)
	for k := 1; k <= 7; k++ {
		if err := tr.Insert(k, k*10); err != nil {
			t.Fatalf("Insert(%d): %v", k, err)
		}
	}
	requireVerify(t, tr)

	if tr.Size() != 7 {
		t.Fatalf("Size() = %d, want 7", tr.Size())
	}
	if tr.Height() != 2 {
		t.Fatalf("Height() = %d, want 2", tr.Height())
	}
	if v, ok := tr.Search(4); !ok || v != 40 {
		t.Fatalf("Search(4) = (%d,%v), want (40,true)", v, ok)
	}

	var got []int
	it := tr.Forward()
	for it.Next() {
		k, _ := it.KeyValue()
		got = append(got, k)
	}
	want := []int{1, 2, 3, 4, 5, 6, 7}
	if !equalInts(got, want) {
		t.Fatalf("iteration = %v, want %v", got, want)
	}
}

// S2 — duplicates disallowed.
func TestScenarioDuplicatesDisallowed(t *testing.T) {
	tr := newIntTree(t, 5)
	if err := tr.Insert(42, 1); err != nil {
		t.Fatalf("first Insert(42): %v", err)
	}
	err := tr.Insert(42, 2)
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("second Insert(42) = %v, want ErrDuplicateKey", err)
	}
	if v, ok := tr.Search(42); !ok || v != 1 {
		t.Fatalf("Search(42) = (%d,%v), want (1,true)", v, ok)
	}
	requireVerify(t, tr)
}

// S3 — descending inserts trigger splits on the left spine.
func TestScenarioDescendingInserts(t *testing.T) {
	tr := newIntTree(t, 3)
	for k := 10; k >= 1; k-- {
		if err := tr.Insert(k, k); err != nil {
			t.Fatalf("Insert(%d): %v", k, err)
		}
		requireVerify(t, tr)
	}

	var got []int
	it := tr.Forward()
	for it.Next() {
		k, _ := it.KeyValue()
		got = append(got, k)
	}
	want := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if !equalInts(got, want) {
		t.Fatalf("iteration = %v, want %v", got, want)
	}
	if tr.Height() != 3 {
		t.Fatalf("Height() = %d, want 3", tr.Height())
	}
}

// S4 — random workload round-trip.
func TestScenarioRandomWorkload(t *testing.T) {
	tr := newIntTree(t, 16)
	rng := rand.New(rand.NewSource(1))

	seen := map[int]bool{}
	var keys []int
	for len(keys) < 10000 {
		k := int(rng.Int31())
		if seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
		if err := tr.Insert(k, k); err != nil {
			t.Fatalf("Insert(%d): %v", k, err)
		}
	}
	requireVerify(t, tr)

	for _, k := range keys {
		if v, ok := tr.Search(k); !ok || v != k {
			t.Fatalf("Search(%d) = (%d,%v), want (%d,true)", k, v, ok, k)
		}
	}

	shuffled := append([]int(nil), keys...)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	toDelete := shuffled[:5000]
	toKeep := shuffled[5000:]

	for _, k := range toDelete {
		if err := tr.Delete(k); err != nil {
			t.Fatalf("Delete(%d): %v", k, err)
		}
	}
	requireVerify(t, tr)

	if tr.Size() != 5000 {
		t.Fatalf("Size() = %d, want 5000", tr.Size())
	}
	for _, k := range toKeep {
		if _, ok := tr.Search(k); !ok {
			t.Fatalf("Search(%d) after partial delete: not found, want found", k)
		}
	}
	for _, k := range toDelete {
		if _, ok := tr.Search(k); ok {
			t.Fatalf("Search(%d) after delete: found, want KeyNotFound", k)
		}
	}
}

// S5 — clear releases payloads.
func TestScenarioClearReleasesPayloads(t *testing.T) {
	var destroyedCount int
	cap := capability.WithDestroy(capability.Ordered[int, string](), func(k int, v string) {
		destroyedCount++
	})
	tr, err := New[int, string](8, cap)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 1000; i++ {
		if err := tr.Insert(i, "value"); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}

	tr.Clear()

	if destroyedCount != 1000 {
		t.Fatalf("destroyedCount = %d, want 1000", destroyedCount)
	}
	if tr.Size() != 0 || tr.Height() != 0 || !tr.IsEmpty() {
		t.Fatalf("tree not empty after Clear: size=%d height=%d", tr.Size(), tr.Height())
	}
	if stats := tr.PoolStats(); stats.UsedBlocks != 0 {
		t.Fatalf("PoolStats().UsedBlocks = %d, want 0", stats.UsedBlocks)
	}
}

// S6 — failure atomicity: pool exhaustion mid-split leaves the tree
// exactly as it was before the call.
func TestScenarioFailureAtomicity(t *testing.T) {
	// maxKeys = 2*3-1 = 5; size the pool to hold exactly one node, so a
	// 6th insert's attempt to grow the tree (allocate a new root above
	// the full one) fails immediately, before any structural change.
	tr := newIntTree(t, 3, WithPoolCapacity(1))
	for k := 1; k <= 5; k++ {
		if err := tr.Insert(k, k); err != nil {
			t.Fatalf("Insert(%d): %v", k, err)
		}
	}
	requireVerify(t, tr)

	preSize, preHeight, preNodes := tr.Size(), tr.Height(), tr.Stats().NodeCount
	preUsed := tr.PoolStats().UsedBlocks

	err := tr.Insert(6, 6)
	if !errors.Is(err, ErrMemoryAllocation) {
		t.Fatalf("Insert into exhausted pool = %v, want ErrMemoryAllocation", err)
	}
	if tr.Size() != preSize || tr.Height() != preHeight || tr.Stats().NodeCount != preNodes {
		t.Fatalf("tree state changed after failed insert: size=%d height=%d nodes=%d", tr.Size(), tr.Height(), tr.Stats().NodeCount)
	}
	if tr.PoolStats().UsedBlocks != preUsed {
		t.Fatalf("pool used-block count changed after failed insert: %d != %d", tr.PoolStats().UsedBlocks, preUsed)
	}
	requireVerify(t, tr)
}

func TestInsertDeleteRoundTripNoLeak(t *testing.T) {
	tr := newIntTree(t, 4)
	preAllocs := tr.PoolStats().AllocationCount
	preFrees := tr.PoolStats().DeallocationCount
	for i := 0; i < 500; i++ {
		if err := tr.Insert(i, i); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}
	preNodes := tr.Stats().NodeCount

	for i := 0; i < 500; i++ {
		if err := tr.Delete(i); err != nil {
			t.Fatalf("Delete(%d): %v", i, err)
		}
	}
	if !tr.IsEmpty() || tr.Size() != 0 {
		t.Fatalf("tree not empty after deleting everything inserted")
	}

	for i := 0; i < 500; i++ {
		if err := tr.Insert(i, i); err != nil {
			t.Fatalf("re-Insert(%d): %v", i, err)
		}
	}
	for i := 0; i < 500; i++ {
		if err := tr.Delete(i); err != nil {
			t.Fatalf("re-Delete(%d): %v", i, err)
		}
	}

	if got := tr.Stats().NodeCount; got != 0 {
		t.Fatalf("NodeCount after full round trip = %d, want 0", got)
	}
	_ = preNodes
	if stats := tr.PoolStats(); stats.AllocationCount-preAllocs != stats.DeallocationCount-preFrees {
		t.Fatalf("alloc/free counts diverge across repeated round trips: allocs=%d frees=%d",
			stats.AllocationCount-preAllocs, stats.DeallocationCount-preFrees)
	}
}

func TestIterationReinsertionPreservesSequence(t *testing.T) {
	tr := newIntTree(t, 5)
	rng := rand.New(rand.NewSource(7))
	keys := rng.Perm(300)
	for _, k := range keys {
		if err := tr.Insert(k, k*2); err != nil {
			t.Fatalf("Insert(%d): %v", k, err)
		}
	}

	var pairs []Pair[int, int]
	it := tr.Forward()
	for it.Next() {
		k, v := it.KeyValue()
		pairs = append(pairs, Pair[int, int]{Key: k, Value: v})
	}

	sorted := append([]int(nil), keys...)
	sort.Ints(sorted)
	for i, p := range pairs {
		if p.Key != sorted[i] {
			t.Fatalf("iteration out of order at %d: got %d, want %d", i, p.Key, sorted[i])
		}
	}

	fresh := newIntTree(t, 5)
	for _, p := range pairs {
		if err := fresh.Insert(p.Key, p.Value); err != nil {
			t.Fatalf("re-Insert(%d): %v", p.Key, err)
		}
	}
	if fresh.Size() != tr.Size() {
		t.Fatalf("fresh tree size = %d, want %d", fresh.Size(), tr.Size())
	}

	it2 := fresh.Forward()
	i := 0
	for it2.Next() {
		k, _ := it2.KeyValue()
		if k != pairs[i].Key {
			t.Fatalf("fresh iteration mismatch at %d: got %d, want %d", i, k, pairs[i].Key)
		}
		i++
	}
}

func TestIteratorInvalidatedByMutation(t *testing.T) {
	tr := newIntTree(t, 4)
	for i := 0; i < 20; i++ {
		tr.Insert(i, i)
	}
	it := tr.Forward()
	it.Next()
	tr.Insert(1000, 1000)
	if it.Next() {
		t.Fatal("Next() succeeded after a mutation invalidated the iterator")
	}
	if !errors.Is(it.Err(), ErrInvalidOperation) {
		t.Fatalf("Err() = %v, want ErrInvalidOperation", it.Err())
	}
}

func TestRangeSearchBounds(t *testing.T) {
	tr := newIntTree(t, 4)
	for i := 0; i < 100; i++ {
		tr.Insert(i, i)
	}
	pairs := tr.RangeSearch(10, 20, 0)
	if len(pairs) != 11 {
		t.Fatalf("RangeSearch(10,20) returned %d pairs, want 11", len(pairs))
	}
	for i, p := range pairs {
		if p.Key != 10+i {
			t.Fatalf("pairs[%d].Key = %d, want %d", i, p.Key, 10+i)
		}
	}
}

func TestRangeExclusiveBounds(t *testing.T) {
	tr := newIntTree(t, 4)
	for i := 0; i < 50; i++ {
		tr.Insert(i, i)
	}
	it := tr.Range(10, 20, false, false)
	var got []int
	for it.Next() {
		k, _ := it.KeyValue()
		got = append(got, k)
	}
	want := []int{11, 12, 13, 14, 15, 16, 17, 18, 19}
	if !equalInts(got, want) {
		t.Fatalf("exclusive range = %v, want %v", got, want)
	}
}

func TestBackwardIteration(t *testing.T) {
	tr := newIntTree(t, 4)
	for i := 0; i < 30; i++ {
		tr.Insert(i, i)
	}
	var got []int
	it := tr.Backward()
	for it.Prev() {
		k, _ := it.KeyValue()
		got = append(got, k)
	}
	if len(got) != 30 {
		t.Fatalf("Backward iteration produced %d keys, want 30", len(got))
	}
	for i := 0; i < 30; i++ {
		if got[i] != 29-i {
			t.Fatalf("got[%d] = %d, want %d", i, got[i], 29-i)
		}
	}
}

func TestBulkLoadMatchesSortedInput(t *testing.T) {
	// 2000 pairs at degree 4 need 328 nodes, more than the default pool.
	tr := newIntTree(t, 4, WithPoolCapacity(512))
	var pairs []Pair[int, int]
	for i := 0; i < 2000; i++ {
		pairs = append(pairs, Pair[int, int]{Key: i, Value: i * 3})
	}
	if err := tr.BulkLoad(pairs); err != nil {
		t.Fatalf("BulkLoad: %v", err)
	}
	requireVerify(t, tr)

	if tr.Size() != len(pairs) {
		t.Fatalf("Size() = %d, want %d", tr.Size(), len(pairs))
	}

	var got []int
	it := tr.Forward()
	for it.Next() {
		k, _ := it.KeyValue()
		got = append(got, k)
	}
	for i, k := range got {
		if k != i {
			t.Fatalf("got[%d] = %d, want %d", i, k, i)
		}
	}
}

func TestBulkLoadRejectsUnsortedInput(t *testing.T) {
	tr := newIntTree(t, 4)
	pairs := []Pair[int, int]{{Key: 2, Value: 2}, {Key: 1, Value: 1}}
	err := tr.BulkLoad(pairs)
	if !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("BulkLoad(unsorted) = %v, want ErrInvalidOperation", err)
	}
	if !tr.IsEmpty() {
		t.Fatal("tree not empty after rejected bulk load")
	}
}

func TestBoundaryDegreeThreeSevenInserts(t *testing.T) {
	tr := newIntTree(t, 3)
	for k := 1; k <= 7; k++ {
		tr.Insert(k, k)
	}
	requireVerify(t, tr)
	if tr.Height() != 2 {
		t.Fatalf("Height() = %d, want 2", tr.Height())
	}
	root := tr.node(tr.root)
	if root.numKeys != 1 && root.numKeys != 2 {
		t.Fatalf("root key count = %d, want 1 or 2", root.numKeys)
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
