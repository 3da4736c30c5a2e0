package collection

import (
	"sync"
	"testing"
	"time"

	"github.com/mmtk-go/nativebinding/binding"
	"github.com/mmtk-go/nativebinding/safepoint"
)

func newTestAdapter(t *testing.T, stop, resume func(safepoint.ThreadID)) *Adapter {
	t.Helper()
	b := binding.New()
	s := safepoint.NewSynchronizer(safepoint.Upcalls{
		StopAllMutators: stop,
		ResumeMutators:  resume,
	})
	go s.Run(nil)
	t.Cleanup(s.Stop)
	return &Adapter{Binding: b, Sync: s}
}

func TestStopAllMutatorsThenResumeMutators(t *testing.T) {
	var mu sync.Mutex
	var events []string
	a := newTestAdapter(t,
		func(safepoint.ThreadID) {
			mu.Lock()
			events = append(events, "stop")
			mu.Unlock()
		},
		func(safepoint.ThreadID) {
			mu.Lock()
			events = append(events, "resume")
			mu.Unlock()
		},
	)

	a.StopAllMutators(1)
	a.ResumeMutators(1)

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 2 || events[0] != "stop" || events[1] != "resume" {
		t.Fatalf("events = %v, want [stop resume]", events)
	}
}

func TestSpawnGCThreadRegistersAndRunsStart(t *testing.T) {
	b := binding.New()
	var tlsSeen uintptr
	var initCalled, startCalled, registered bool
	var mu sync.Mutex
	b.SetUpcalls(&binding.Upcalls{
		InitGCWorkerThread: func(tls uintptr, kind binding.GCThreadKind, ctx uintptr) {
			mu.Lock()
			initCalled = true
			mu.Unlock()
		},
		GetGCThreadTLS: func() uintptr { return 0xabc },
	})
	a := &Adapter{Binding: b}

	done := make(chan struct{})
	a.SpawnGCThread(WorkerContext{
		Kind: binding.GCThreadWorker,
		Start: func(tls uintptr) {
			mu.Lock()
			startCalled = true
			tlsSeen = tls
			registered = b.IsGCThread(1) // first id handed out by the adapter
			mu.Unlock()
			close(done)
		},
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for spawned GC thread to run")
	}

	mu.Lock()
	defer mu.Unlock()
	if !initCalled {
		t.Error("expected InitGCWorkerThread to be called")
	}
	if !startCalled {
		t.Error("expected Start to be called")
	}
	if !registered {
		t.Error("expected the spawned thread to be registered as a GC thread while Start runs")
	}
	if tlsSeen != 0xabc {
		t.Errorf("tlsSeen = %#x, want 0xabc", tlsSeen)
	}
}

func TestOutOfMemoryForwardsToUpcall(t *testing.T) {
	b := binding.New()
	var gotKind binding.OOMKind
	called := false
	b.SetUpcalls(&binding.Upcalls{
		OutOfMemory: func(tls uintptr, kind binding.OOMKind) {
			called = true
			gotKind = kind
		},
	})
	a := &Adapter{Binding: b}
	a.OutOfMemory(1, binding.OOMHeap)

	if !called {
		t.Fatal("expected OutOfMemory upcall to be invoked")
	}
	if gotKind != binding.OOMHeap {
		t.Errorf("kind = %v, want OOMHeap", gotKind)
	}
}

func TestPostAllocPromotesLargeAllocationsToLOS(t *testing.T) {
	if got := PostAlloc(SemanticsDefault, MaxNonLOSDefaultAllocBytes); got != SemanticsLOS {
		t.Errorf("PostAlloc at threshold = %v, want SemanticsLOS", got)
	}
	if got := PostAlloc(SemanticsDefault, MaxNonLOSDefaultAllocBytes-1); got != SemanticsDefault {
		t.Errorf("PostAlloc below threshold = %v, want SemanticsDefault", got)
	}
}
