package vmaddr

import "testing"

func TestAlignDownIdempotent(t *testing.T) {
	for _, alpha := range []uintptr{16, 32, 64} {
		for _, raw := range []Address{0, 1, 15, 17, 1024, 1025} {
			once := AlignDown(raw, alpha)
			twice := AlignDown(once, alpha)
			if once != twice {
				t.Errorf("AlignDown not idempotent: align_down(align_down(%v))=%v, align_down(%v)=%v", raw, twice, raw, once)
			}
		}
	}
}

func TestAllocationAlignmentSweep(t *testing.T) {
	// Scenario 1 from the testable-properties list: for each alpha in
	// {16,32,64}, an 8 byte allocation at offset 0 must land aligned, and
	// at offset 4 the address+4 must land aligned.
	for _, alpha := range []uintptr{16, 32, 64} {
		base := Address(0x10000)
		addr := AlignUp(base, alpha)
		if uintptr(addr)%alpha != 0 {
			t.Errorf("alpha=%d: addr %v not aligned", alpha, addr)
		}
		withOffset := AlignUp(base.Add(4), alpha).Sub(4)
		if uintptr(withOffset.Add(4))%alpha != 0 {
			t.Errorf("alpha=%d: addr+4 not aligned for offset case", alpha)
		}
	}
}

func TestIsWordInHeapHalfOpen(t *testing.T) {
	heap := Range{Start: 0x1000, End: 0x2000}
	if !IsWordInHeap(0x1000, heap) {
		t.Error("heap start should be in heap (inclusive lower bound)")
	}
	if IsWordInHeap(0x2000, heap) {
		t.Error("heap end should NOT be in heap (exclusive upper bound, half-open)")
	}
	if IsWordInHeap(heap.Start.Sub(8), heap) {
		t.Error("word below heap_start must be rejected")
	}
}

func TestConservativeRootRejection(t *testing.T) {
	// Scenario 6: a word outside the heap, or unaligned, is never a root
	// candidate even if its bit pattern looks like a valid id.
	heap := Range{Start: 0x10000, End: 0x20000}
	outside := heap.Start.Sub(8)
	if IsWordInHeap(outside, heap) {
		t.Error("word outside heap must be rejected")
	}
	unaligned := heap.Start.Add(3)
	if IsPtrAligned(unaligned, 8) {
		t.Error("unaligned word must be rejected by alignment predicate")
	}
}

func TestRangeBoundaryEmpty(t *testing.T) {
	r := Range{Start: 0x1000, End: 0x1000}
	if r.Len() != 0 {
		t.Errorf("expected zero length for top==bottom range, got %d", r.Len())
	}
	if r.Contains(r.Start) {
		t.Error("empty range must contain nothing")
	}
}
