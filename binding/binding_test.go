package binding

import (
	"testing"

	"github.com/mmtk-go/nativebinding/vmaddr"
)

// A second SetFramework call is process-fatal (vmlog.Fatalf exits), so
// only the first publication is checked here.
func TestSetFrameworkOnceOnly(t *testing.T) {
	b := New()
	b.SetFramework("framework-handle")
	if b.Framework() != "framework-handle" {
		t.Fatalf("Framework() = %v, want framework-handle", b.Framework())
	}
}

func TestPinUnpinAllClearsSet(t *testing.T) {
	b := New()
	b.Pin(vmaddr.Address(0x1000))
	b.Pin(vmaddr.Address(0x2000))
	if got := len(b.PinnedObjects()); got != 2 {
		t.Fatalf("len(PinnedObjects()) = %d, want 2", got)
	}
	b.UnpinAll()
	if got := len(b.PinnedObjects()); got != 0 {
		t.Fatalf("len(PinnedObjects()) after UnpinAll = %d, want 0", got)
	}
}

func TestGCThreadRegistry(t *testing.T) {
	b := New()
	if b.IsGCThread(7) {
		t.Fatal("thread 7 should not be registered yet")
	}
	b.RegisterGCThread(7)
	if !b.IsGCThread(7) {
		t.Fatal("thread 7 should be registered")
	}
	b.UnregisterGCThread(7)
	if b.IsGCThread(7) {
		t.Fatal("thread 7 should have been unregistered")
	}
}

func TestInitializedFlag(t *testing.T) {
	b := New()
	if b.Initialized() {
		t.Fatal("fresh binding should not be initialized")
	}
	b.MarkInitialized()
	if !b.Initialized() {
		t.Fatal("binding should report initialized after MarkInitialized")
	}
}

func TestConstantsRoundTrip(t *testing.T) {
	b := New()
	c := Constants{VOBitAddress: 0xdead, FreeListAllocatorSize: 64}
	b.SetConstants(c)
	if got := b.Constants(); got != c {
		t.Fatalf("Constants() = %+v, want %+v", got, c)
	}
}
