package objectmodel

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

func TestCopyPreservesPayloadAndCallsPostCopy(t *testing.T) {
	arena, err := heap.NewArenaMemory(4096)
	if err != nil {
		t.Fatalf("NewArenaMemory: %v", err)
	}
	defer arena.Close()

	layout := testLayout()
	base := arena.Bounds().Start
	rttiAddr := base.Add(512)
	arena.Store32(rttiAddr.Add(16), 1)
	arena.Store64(rttiAddr.Add(32), 32)

	from := base.Add(16)
	arena.Store64(from, uint64(rttiAddr))
	arena.Store64(from.Add(8), 0xdeadbeef)

	a := Adapter{Mem: arena, Layout: layout}
	var postCopyCalled bool
	toRegion := base.Add(1024)
	to := a.Copy(from, func(bytes, alignment uintptr) vmaddr.Address {
		if bytes != 32 {
			t.Errorf("alloc called with bytes=%d, want 32", bytes)
		}
		return toRegion
	}, func(vmaddr.Address) { postCopyCalled = true })

	if to != toRegion {
		t.Errorf("Copy returned %v, want %v", to, toRegion)
	}
	if got := arena.Load64(to.Add(8)); got != 0xdeadbeef {
		t.Errorf("copied payload = %#x, want 0xdeadbeef", got)
	}
	if !postCopyCalled {
		t.Error("expected postCopy to be invoked")
	}
}

func TestReferenceAddressIdentityMapping(t *testing.T) {
	a := Adapter{}
	obj := vmaddr.Address(0x3000)
	if a.RefToObjectStart(obj) != obj || a.RefToHeader(obj) != obj || a.RefToAddress(obj) != obj {
		t.Error("expected identity mapping between references and addresses")
	}
	if a.AddressToRef(obj) != obj {
		t.Error("expected AddressToRef to be the identity function")
	}
}

func TestDefaultSpecsPinningBitOnlyWhenEnabled(t *testing.T) {
	if DefaultSpecs(false).LocalPinningBit != nil {
		t.Error("expected no pinning bit spec when pinning disabled")
	}
	if DefaultSpecs(true).LocalPinningBit == nil {
		t.Error("expected a pinning bit spec when pinning enabled")
	}
}

// CopyTo calls vmlog.Fatalf, which terminates the process (spec §4.H:
// compacting plans are unsupported, and a call is a fatal invariant
// violation). os.Exit isn't something a unit test can observe safely, so
// this contract is documented here rather than exercised.
func TestCopyToIsFatal(t *testing.T) {
	t.Skip("CopyTo is process-fatal by design (os.Exit); not exercised in unit tests")
}
