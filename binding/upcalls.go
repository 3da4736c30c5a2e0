// Package binding implements the Binding Singleton & Upcalls component
// (J): the one-shot GC-framework handle, the publish-once upcall table,
// the mutex-protected pinned-object set, the GC-threads registry, the
// MMTK_INITIALIZED flag, and the link-time Constants struct. Grounded on
// original_source/mmtk/src/lib.rs's BINDING/UPCALLS/GC_THREADS/
// MMTK_INITIALIZED statics and binding.rs's ScalaNativeBinding, translated
// from C-ABI extern "C" fn pointers to first-class Go func values — no
// closure trampoline is needed since Go functions already carry their own
// context.
package binding

import "github.com/mmtk-go/nativebinding/safepoint"

// StackRange is the client runtime's conservative stack bounds for one
// mutator thread (upcalls group "Roots", get_stack_range).
type StackRange struct {
	Top, Bottom uintptr
}

// RegsRange is the client runtime's conservative register-save-area
// bounds for one mutator thread (get_regs_range).
type RegsRange struct {
	Regs uintptr
	N    int
}

// GCThreadKind distinguishes the controller thread from worker threads
// when spawning GC threads (collection.rs's GC_THREAD_KIND_CONTROLLER/
// _WORKER).
type GCThreadKind int

const (
	GCThreadController GCThreadKind = iota
	GCThreadWorker
)

// OOMKind mirrors mmtk::util::alloc::AllocationError's two client-visible
// variants named in spec §6.
type OOMKind int

const (
	OOMHeap OOMKind = iota
	OOMMmapOutOfAddressSpace
)

// MutatorVisitor is called once per live mutator by GetMutators.
type MutatorVisitor func(mutatorTLS uintptr)

// Upcalls is the single function-pointer table published once via SetUpcalls,
// matching lib.rs's ScalaNative_Upcalls field-for-field (grouped the same
// way as spec §6's table): Collection, RTTI, Roots, Mutators, GC threads.
type Upcalls struct {
	// Collection
	StopAllMutators   func(workerTLS safepoint.ThreadID)
	ResumeMutators    func(workerTLS safepoint.ThreadID)
	BlockForGC        func(mutatorTLS uintptr)
	OutOfMemory       func(tls uintptr, kind OOMKind)
	ScheduleFinalizer func()

	// RTTI
	GetArrayIDsMin         func() int32
	GetArrayIDsMax         func() int32
	GetWeakRefIDsMin       func() int32
	GetWeakRefIDsMax       func() int32
	GetWeakRefFieldOffset  func() int32
	GetObjectArrayID       func() int32
	GetAllocationAlignment func() uintptr

	// Roots
	GetStackRange             func(tls uintptr) StackRange
	GetRegsRange              func(tls uintptr) RegsRange
	GetModules                func() []uintptr
	GetMutatorThreads         func() []uintptr
	PrepareForRootsReScanning func()
	WeakRefStackNullify       func()
	WeakRefStackCallHandlers  func()

	// Mutators / active plan
	GetMutators      func(visit MutatorVisitor)
	NumberOfMutators func() int
	IsMutator        func(tls uintptr) bool
	GetMMTkMutator   func(tls uintptr) uintptr

	// GC threads
	InitGCWorkerThread     func(tls uintptr, kind GCThreadKind, ctx uintptr)
	GetGCThreadTLS         func() uintptr
	InitSynchronizerThread func()
}
