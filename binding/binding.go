package binding

import (
	"sync"
	"sync/atomic"

	"github.com/mmtk-go/nativebinding/abi"
	"github.com/mmtk-go/nativebinding/internal/vmlog"
	"github.com/mmtk-go/nativebinding/safepoint"
	"github.com/mmtk-go/nativebinding/vmaddr"
)

// Constants reproduces the link-time symbols spec §6 lists
// (GLOBAL_SIDE_METADATA_BASE_ADDRESS and friends). The original computes
// these from the framework's side-metadata layout at package-init time
// (lib.rs's #[no_mangle] pub static items); here the binding does not
// compute them: they hold whatever values were last stored with
// SetConstants and are read many times afterward, the
// same "small typed table of framework facts" role
// internal/gocore.Process.rtConsts plays for DWARF-derived facts.
type Constants struct {
	GlobalSideMetadataBaseAddress   uintptr
	GlobalSideMetadataVMBaseAddress uintptr
	VOBitAddress                    uintptr
	MarkCompactHeaderReservedBytes  uintptr
	FreeListAllocatorSize           uintptr
}

// pinnedSet is the mutex-protected pinned-object collection from spec
// §3's Lifecycle: entries added during conservative root scanning (always)
// and precise module scanning (when object pinning is compiled in),
// cleared in full at weak-ref processing. Never contended during mutator
// execution because it is touched only at those two points.
type pinnedSet struct {
	mu      sync.Mutex
	objects []vmaddr.Address
}

func (p *pinnedSet) Pin(obj vmaddr.Address) {
	p.mu.Lock()
	p.objects = append(p.objects, obj)
	p.mu.Unlock()
}

// UnpinAll drains the pinned set, releasing every entry so the framework
// can relocate them starting with the next cycle's non-conservative roots
// (weakref.PinnedSet).
func (p *pinnedSet) UnpinAll() {
	p.mu.Lock()
	n := len(p.objects)
	p.objects = p.objects[:0]
	p.mu.Unlock()
	if n > 0 {
		vmlog.Warn("unpinned %d object(s) at end of weak-ref processing", n)
	}
}

func (p *pinnedSet) snapshot() []vmaddr.Address {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]vmaddr.Address, len(p.objects))
	copy(out, p.objects)
	return out
}

// gcThreadRegistry is the mutex-protected set of registered GC-thread ids
// from spec §4.J and lib.rs's GC_THREADS OnceCell<Mutex<HashSet<ThreadId>>>.
type gcThreadRegistry struct {
	mu      sync.Mutex
	members map[uint64]struct{}
}

func (r *gcThreadRegistry) register(id uint64) {
	r.mu.Lock()
	if r.members == nil {
		r.members = make(map[uint64]struct{})
	}
	r.members[id] = struct{}{}
	r.mu.Unlock()
}

func (r *gcThreadRegistry) unregister(id uint64) {
	r.mu.Lock()
	delete(r.members, id)
	r.mu.Unlock()
}

func (r *gcThreadRegistry) isMember(id uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.members[id]
	return ok
}

// Binding is the component J singleton: a one-shot handle to the GC
// framework, a publish-once upcall table pointer, the pinned-object set,
// the GC-threads registry, the MMTK_INITIALIZED flag, and the exported
// Constants. It stores only borrowed handles, never ownership, resolving
// the cyclic-ownership concern from spec §9 (the framework holds workers
// that reference this binding, which references framework constants).
type Binding struct {
	initialized atomic.Bool

	frameworkOnce sync.Once
	framework     any // opaque handle to the GC framework instance

	upcallsOnce sync.Once
	upcalls     *Upcalls

	pinned    pinnedSet
	gcThreads gcThreadRegistry

	constants    Constants
	headerLayout abi.Layout // UsesLockWords/ObjectHeaderSize/ArrayHeaderSize only
}

// New constructs an un-initialized Binding. There is exactly one Binding
// per process; callers are expected to hold it in a package-level
// variable the way lib.rs holds BINDING in a OnceCell.
func New() *Binding {
	return &Binding{}
}

// SetFramework publishes the GC-framework handle exactly once. A second
// call is a fatal invariant violation: re-initializing the binding is
// listed explicitly under spec §7's "Fatal invariant violations".
func (b *Binding) SetFramework(framework any) {
	set := false
	b.frameworkOnce.Do(func() {
		b.framework = framework
		set = true
	})
	if !set {
		vmlog.Fatalf("binding already bound to a GC framework instance")
	}
}

// Framework returns the published GC-framework handle, or nil before
// SetFramework has been called.
func (b *Binding) Framework() any { return b.framework }

// SetUpcalls publishes the upcall table exactly once (scalanative_gc_init).
// Per spec §5's ordering guarantee, this must happen before any GC thread
// is spawned; after publication the table is read-only and needs no
// further synchronization.
func (b *Binding) SetUpcalls(upcalls *Upcalls) {
	set := false
	b.upcallsOnce.Do(func() {
		b.upcalls = upcalls
		set = true
	})
	if !set {
		vmlog.Fatalf("upcalls table already published; scalanative_gc_init called twice")
	}
}

// Upcalls returns the published upcall table. Callers must not call this
// before SetUpcalls; doing so returns nil, which every caller in this
// binding treats as "binding not yet initialized" rather than a crash.
func (b *Binding) Upcalls() *Upcalls { return b.upcalls }

// MarkInitialized flips MMTK_INITIALIZED to true. Idempotent in effect
// (AtomicBool.Store), but callers are expected to call it exactly once,
// from the lazy heap-initializer.
func (b *Binding) MarkInitialized() { b.initialized.Store(true) }

// Initialized reports the MMTK_INITIALIZED flag.
func (b *Binding) Initialized() bool { return b.initialized.Load() }

// Pin adds obj to the pinned-object set (roots.PinnedSet).
func (b *Binding) Pin(obj vmaddr.Address) { b.pinned.Pin(obj) }

// UnpinAll satisfies weakref.PinnedSet.
func (b *Binding) UnpinAll() { b.pinned.UnpinAll() }

// PinnedObjects returns a snapshot of the currently pinned set, used by
// cmd/mmtkctl's "pinned" subcommand.
func (b *Binding) PinnedObjects() []vmaddr.Address { return b.pinned.snapshot() }

// RegisterGCThread adds id to the GC-threads registry.
func (b *Binding) RegisterGCThread(id uint64) { b.gcThreads.register(id) }

// UnregisterGCThread removes id from the GC-threads registry.
func (b *Binding) UnregisterGCThread(id uint64) { b.gcThreads.unregister(id) }

// IsGCThread reports whether id is a registered GC thread.
func (b *Binding) IsGCThread(id uint64) bool { return b.gcThreads.isMember(id) }

// SetConstants populates the exported Constants table once the framework
// handle is available to derive them from.
func (b *Binding) SetConstants(c Constants) { b.constants = c }

// Constants returns the exported link-time constants (spec §6).
func (b *Binding) Constants() Constants { return b.constants }

// SetHeaderLayout records the three object-header facts that are compiled
// into the client runtime rather than discovered through an upcall (the
// Rust original's #[cfg(uses_lockword)]): whether lock words are present,
// and the resulting header sizes.
func (b *Binding) SetHeaderLayout(usesLockWords bool, objectHeaderSize, arrayHeaderSize uintptr) {
	b.headerLayout.UsesLockWords = usesLockWords
	b.headerLayout.ObjectHeaderSize = objectHeaderSize
	b.headerLayout.ArrayHeaderSize = arrayHeaderSize
}

// Layout assembles an abi.Layout from the RTTI-group upcalls (spec §6),
// the same way the client's scalanative_gc_init call populates the
// binding's object-model constants before the first collection. Header
// sizes come from SetHeaderLayout, since nothing in the RTTI group
// upcalls carries them. Returns a Layout with only the header-size fields
// set if the upcalls table has not been published yet.
func (b *Binding) Layout() abi.Layout {
	l := b.headerLayout
	u := b.Upcalls()
	if u == nil {
		return l
	}
	if u.GetArrayIDsMin != nil {
		l.ArrayIDsMin = u.GetArrayIDsMin()
	}
	if u.GetArrayIDsMax != nil {
		l.ArrayIDsMax = u.GetArrayIDsMax()
	}
	if u.GetWeakRefIDsMin != nil {
		l.WeakRefIDsMin = u.GetWeakRefIDsMin()
	}
	if u.GetWeakRefIDsMax != nil {
		l.WeakRefIDsMax = u.GetWeakRefIDsMax()
	}
	if u.GetWeakRefFieldOffset != nil {
		l.WeakRefFieldOffset = uintptr(u.GetWeakRefFieldOffset())
	}
	if u.GetObjectArrayID != nil {
		l.ObjectArrayID = u.GetObjectArrayID()
	}
	if u.GetAllocationAlignment != nil {
		l.AllocationAlignment = u.GetAllocationAlignment()
	}
	return l
}

// SynchronizerUpcalls bridges the Collection-group stop_all_mutators/
// resume_mutators/init_synchronizer_thread upcalls to safepoint.Upcalls.
// Each closure here resolves b.Upcalls() lazily at call time rather than
// capturing it up front, so a Synchronizer constructed before SetUpcalls
// publishes the client table still reaches that table once it is set.
func (b *Binding) SynchronizerUpcalls() safepoint.Upcalls {
	return safepoint.Upcalls{
		StopAllMutators: func(tls safepoint.ThreadID) {
			if u := b.Upcalls(); u != nil && u.StopAllMutators != nil {
				u.StopAllMutators(tls)
			}
		},
		ResumeMutators: func(tls safepoint.ThreadID) {
			if u := b.Upcalls(); u != nil && u.ResumeMutators != nil {
				u.ResumeMutators(tls)
			}
		},
		InitSynchronizerThread: func() {
			if u := b.Upcalls(); u != nil && u.InitSynchronizerThread != nil {
				u.InitSynchronizerThread()
			}
		},
	}
}
