package slab

import "testing"

func TestAllocFreeRoundTrip(t *testing.T) {
	p := NewPool[int](4, 0)
	refs := make([]Ref, 0, 4)
	for i := 0; i < 4; i++ {
		ref, v := p.Alloc()
		if ref.IsNil() || v == nil {
			t.Fatalf("alloc %d: unexpected exhaustion", i)
		}
		*v = i
		refs = append(refs, ref)
	}

	if ref, v := p.Alloc(); !ref.IsNil() || v != nil {
		t.Fatalf("alloc on exhausted pool should fail silently, got %v %v", ref, v)
	}

	for i, ref := range refs {
		if got := p.Get(ref); got == nil || *got != i {
			t.Fatalf("slot %d: got %v, want %d", i, got, i)
		}
	}

	p.Free(refs[1])
	if p.Contains(refs[1]) {
		t.Fatal("freed ref should not be contained")
	}

	ref, v := p.Alloc()
	if ref.IsNil() || v == nil {
		t.Fatal("alloc after free should succeed")
	}
	if ref.slot != refs[1].slot {
		t.Fatalf("expected reused slot %d, got %d", refs[1].slot, ref.slot)
	}
	if ref.gen == refs[1].gen {
		t.Fatal("reused slot must bump its generation")
	}

	stats := p.Stats()
	if stats.UsedBlocks != 4 || stats.FreeBlocks != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.AllocationCount != 5 || stats.DeallocationCount != 1 {
		t.Fatalf("unexpected counters: %+v", stats)
	}
}

func TestStaleRefAfterFree(t *testing.T) {
	p := NewPool[string](2, 0)
	ref, v := p.Alloc()
	*v = "hello"
	p.Free(ref)

	if p.Contains(ref) {
		t.Fatal("stale ref should not be contained")
	}
	if got := p.Get(ref); got != nil {
		t.Fatalf("stale ref should resolve to nil, got %v", got)
	}
	// Double free is ignored, not a crash.
	p.Free(ref)
}

func TestDoubleFreeDoesNotCorruptFreeList(t *testing.T) {
	p := NewPool[int](2, 0)
	r1, _ := p.Alloc()
	r2, _ := p.Alloc()

	p.Free(r1)
	p.Free(r1) // double free of the same (now-stale) ref is a no-op

	// Exactly one slot should be free.
	stats := p.Stats()
	if stats.FreeBlocks != 1 {
		t.Fatalf("expected 1 free block after double free, got %d", stats.FreeBlocks)
	}

	ref, v := p.Alloc()
	if ref.IsNil() || v == nil {
		t.Fatal("alloc should still succeed")
	}
	_ = r2
}

func TestReset(t *testing.T) {
	p := NewPool[int](3, 0)
	for i := 0; i < 3; i++ {
		p.Alloc()
	}
	p.Reset()
	stats := p.Stats()
	if stats.UsedBlocks != 0 || stats.FreeBlocks != 3 {
		t.Fatalf("reset did not fully free pool: %+v", stats)
	}
}

func TestZeroMemoryFlag(t *testing.T) {
	p := NewPool[int](1, ZeroMemory)
	ref, v := p.Alloc()
	*v = 42
	p.Free(ref)

	ref2, v2 := p.Alloc()
	if ref2.slot != ref.slot {
		t.Fatalf("expected slot reuse")
	}
	if *v2 != 0 {
		t.Fatalf("ZeroMemory pool should hand back a zeroed slot, got %d", *v2)
	}
}

func TestThreadSafeFlagAllowsConcurrentUse(t *testing.T) {
	p := NewPool[int](64, ThreadSafe)
	done := make(chan struct{})
	for g := 0; g < 8; g++ {
		go func() {
			for i := 0; i < 8; i++ {
				if ref, v := p.Alloc(); !ref.IsNil() {
					*v = i
					p.Free(ref)
				}
			}
			done <- struct{}{}
		}()
	}
	for g := 0; g < 8; g++ {
		<-done
	}
	stats := p.Stats()
	if stats.UsedBlocks != 0 {
		t.Fatalf("expected all blocks freed, got %d used", stats.UsedBlocks)
	}
}
