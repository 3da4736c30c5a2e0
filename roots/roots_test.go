package roots

import (
	"testing"

	"github.com/mmtk-go/nativebinding/abi"
	"github.com/mmtk-go/nativebinding/heap"
	"github.com/mmtk-go/nativebinding/vmaddr"
)

func testLayout() abi.Layout {
	return abi.Layout{
		ArrayIDsMin:         100,
		ArrayIDsMax:         199,
		WeakRefIDsMin:       200,
		WeakRefIDsMax:       200,
		WeakRefFieldOffset:  8,
		ObjectArrayID:       100,
		AllocationAlignment: 16,
		UsesLockWords:       true,
		ObjectHeaderSize:    16,
		ArrayHeaderSize:     24,
	}
}

type fakePinned struct{ pinned []vmaddr.Address }

func (f *fakePinned) Pin(obj vmaddr.Address) { f.pinned = append(f.pinned, obj) }

func TestConservativeScanFindsObjectAndPins(t *testing.T) {
	arena, err := heap.NewArenaMemory(8192)
	if err != nil {
		t.Fatalf("NewArenaMemory: %v", err)
	}
	defer arena.Close()

	layout := testLayout()
	base := arena.Bounds().Start
	rttiAddr := base.Add(256)
	arena.Store32(rttiAddr.Add(16), 1)
	arena.Store64(rttiAddr.Add(32), 48)

	objAddr := base.Add(512)
	arena.Store64(objAddr, uint64(rttiAddr))

	stackBase := base.Add(4096)
	arena.Store64(stackBase, uint64(objAddr))

	pinned := &fakePinned{}
	var flushed [][]vmaddr.Address
	closure := NewRootsClosure(func(full []vmaddr.Address) []vmaddr.Address {
		flushed = append(flushed, append([]vmaddr.Address{}, full...))
		return nil
	})

	s := Scanner{
		Mem:    arena,
		Layout: layout,
		Pinned: pinned,
		IsMMTkObject: func(candidate vmaddr.Address) bool {
			return candidate == objAddr
		},
	}
	s.ScanConservativeRange(vmaddr.Range{Start: stackBase, End: stackBase.Add(8)}, closure)
	closure.Close()

	if len(pinned.pinned) != 1 || pinned.pinned[0] != objAddr {
		t.Fatalf("expected object to be pinned, got %v", pinned.pinned)
	}
	if len(flushed) != 1 || len(flushed[0]) != 1 || flushed[0][0] != objAddr {
		t.Fatalf("expected flush to contain exactly the object, got %v", flushed)
	}
}

func TestConservativeScanRejectsOutsideAndUnaligned(t *testing.T) {
	// Scenario 6 at the package level: rejected candidates never reach
	// IsMMTkObject or get enqueued.
	arena, err := heap.NewArenaMemory(8192)
	if err != nil {
		t.Fatalf("NewArenaMemory: %v", err)
	}
	defer arena.Close()

	layout := testLayout()
	base := arena.Bounds().Start
	stackBase := base.Add(4096)
	outside := arena.Bounds().Start.Sub(8)
	unaligned := base.Add(3)
	arena.Store64(stackBase, uint64(outside))
	arena.Store64(stackBase.Add(8), uint64(unaligned))

	called := false
	flushes := 0
	closure := NewRootsClosure(func(full []vmaddr.Address) []vmaddr.Address {
		flushes++
		return nil
	})
	s := Scanner{
		Mem:    arena,
		Layout: layout,
		IsMMTkObject: func(candidate vmaddr.Address) bool {
			called = true
			return true
		},
	}
	s.ScanConservativeRange(vmaddr.Range{Start: stackBase, End: stackBase.Add(16)}, closure)
	closure.Close()

	if called {
		t.Error("IsMMTkObject must not be called for an out-of-heap or unaligned word")
	}
	if flushes != 0 {
		t.Errorf("expected no roots enqueued, got %d flush(es)", flushes)
	}
}

func TestEmptyStackRangeNoRoots(t *testing.T) {
	// Boundary: top == bottom reports no roots and does not crash.
	arena, err := heap.NewArenaMemory(4096)
	if err != nil {
		t.Fatalf("NewArenaMemory: %v", err)
	}
	defer arena.Close()

	var flushed [][]vmaddr.Address
	closure := NewRootsClosure(func(full []vmaddr.Address) []vmaddr.Address {
		flushed = append(flushed, full)
		return nil
	})
	s := Scanner{Mem: arena, Layout: testLayout(), IsMMTkObject: func(vmaddr.Address) bool { return true }}
	stackBase := arena.Bounds().Start.Add(1024)
	s.ScanConservativeRange(vmaddr.Range{Start: stackBase, End: stackBase}, closure)
	closure.Close()

	if len(flushed) != 0 {
		t.Errorf("expected no flush for an empty range, got %v", flushed)
	}
}

func TestEmptyModuleListNoRoots(t *testing.T) {
	arena, err := heap.NewArenaMemory(4096)
	if err != nil {
		t.Fatalf("NewArenaMemory: %v", err)
	}
	defer arena.Close()

	var flushed [][]vmaddr.Address
	closure := NewRootsClosure(func(full []vmaddr.Address) []vmaddr.Address {
		flushed = append(flushed, full)
		return nil
	})
	s := Scanner{Mem: arena, Layout: testLayout()}
	s.ScanPreciseModules(nil, closure)
	closure.Close()

	if len(flushed) != 0 {
		t.Errorf("expected zero pinning roots for an empty module list, got %v", flushed)
	}
}

func TestRootsClosureBatchesAtCapacity(t *testing.T) {
	arena, err := heap.NewArenaMemory(1 << 20)
	if err != nil {
		t.Fatalf("NewArenaMemory: %v", err)
	}
	defer arena.Close()

	flushCount := 0
	closure := NewRootsClosure(func(full []vmaddr.Address) []vmaddr.Address {
		flushCount++
		want := BatchCapacity // first flush: the full batch
		if flushCount == 2 {
			want = 1 // residual flush from Close
		}
		if len(full) != want {
			t.Errorf("flush %d: got %d entries, want %d", flushCount, len(full), want)
		}
		return nil
	})
	for i := 0; i < BatchCapacity+1; i++ {
		closure.Enqueue(arena.Bounds().Start.Add(uintptr(i) * 16))
	}
	closure.Close()

	if flushCount != 2 {
		t.Fatalf("expected 2 flushes (one full batch + one residual), got %d", flushCount)
	}
}
