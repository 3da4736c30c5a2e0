// Package roots implements the Root Scanner (component D): conservative
// stack/register scanning, precise module scanning, and the fixed
// capacity roots-batching buffer handed to the GC framework.
package roots

import (
	"github.com/mmtk-go/nativebinding/abi"
	"github.com/mmtk-go/nativebinding/heap"
	"github.com/mmtk-go/nativebinding/vmaddr"
)

// BatchCapacity is the roots buffer capacity K from spec §4.D ("≈4096").
const BatchCapacity = 4096

// PinnedSet receives objects discovered as pinning roots. The binding
// package's mutex-protected set implements this.
type PinnedSet interface {
	Pin(obj vmaddr.Address)
}

// WeakRefStack mirrors scan.WeakRefStack; duplicated here rather than
// imported so this package has no dependency on scan's internals, only
// on the shared notion of "push a weak-ref candidate".
type WeakRefStack interface {
	Push(obj vmaddr.Address)
}

// IsMMTkObject asks the framework whether candidate is the start of a
// genuine object (the VO-bit check mentioned in the glossary).
type IsMMTkObject func(candidate vmaddr.Address) bool

// Flush is the framework callback that receives a full roots buffer and
// returns a fresh one to continue filling, matching spec §4.D's
// "hand off full buffer, get a fresh one back" protocol and the
// original's RootsClosure::do_work/flush.
type Flush func(full []vmaddr.Address) (fresh []vmaddr.Address)

// RootsClosure accumulates discovered roots into a capacity-bounded
// buffer, flushing to the framework when full, grounded on
// scanning.rs's RootsClosure (buffer/cursor/capacity/do_work/flush). Go
// has no destructors, so the Rust Drop-triggered flush becomes an
// explicit Close call (callers must defer it).
type RootsClosure struct {
	buffer []vmaddr.Address
	flush  Flush
}

// NewRootsClosure constructs a closure with a fresh, empty buffer of
// BatchCapacity and the given flush callback.
func NewRootsClosure(flush Flush) *RootsClosure {
	return &RootsClosure{buffer: make([]vmaddr.Address, 0, BatchCapacity), flush: flush}
}

// Enqueue appends obj to the current batch, flushing and replacing the
// buffer when it fills.
func (rc *RootsClosure) Enqueue(obj vmaddr.Address) {
	rc.buffer = append(rc.buffer, obj)
	if len(rc.buffer) == cap(rc.buffer) {
		rc.doFlush()
	}
}

func (rc *RootsClosure) doFlush() {
	if len(rc.buffer) == 0 {
		return
	}
	fresh := rc.flush(rc.buffer)
	if fresh == nil {
		fresh = make([]vmaddr.Address, 0, BatchCapacity)
	}
	rc.buffer = fresh[:0]
}

// Close flushes any residual buffer, matching RootsClosure's Drop impl.
func (rc *RootsClosure) Close() {
	rc.doFlush()
}

// Scanner performs conservative and precise root scans over a single
// heap.Memory/abi.Layout pair.
type Scanner struct {
	Mem          heap.Memory
	Layout       abi.Layout
	IsMMTkObject IsMMTkObject
	Pinned       PinnedSet
	Weak         WeakRefStack
	ObjectScan   func(obj vmaddr.Address, visit func(edge vmaddr.Address))

	// ObjectPinningEnabled mirrors the original's object_pinning feature
	// gate: when set, precise module roots are added to the pinned set
	// too (conservative roots are always pinned, unconditionally).
	ObjectPinningEnabled bool
}

// ScanConservativeRange implements spec §4.D's conservative stack/
// register scan over [r.Start, r.End): for each aligned word that both
// lies in the heap and is confirmed by the framework's VO-bit predicate,
// pin it, scan its inflated-lock indirections, weak-ref-check it, and
// enqueue it.
func (s Scanner) ScanConservativeRange(r vmaddr.Range, out *RootsClosure) {
	heapBounds := s.Mem.Bounds()
	alpha := s.Layout.AllocationAlignment
	for w := r.Start; w.Diff(r.End) < 0; w = w.Add(8) {
		if !s.Mem.Readable(w, 8) {
			continue
		}
		word := vmaddr.Address(s.Mem.Load64(w))
		if !vmaddr.IsWordInHeap(word, heapBounds) || !vmaddr.IsPtrAligned(word, alpha) {
			continue
		}
		candidate := vmaddr.AlignDown(word, alpha)
		if s.IsMMTkObject == nil || !s.IsMMTkObject(candidate) {
			continue
		}
		// Conservative scanning always pins: the candidate's precise
		// type is unknown, so it cannot be safely relocated this cycle.
		s.capture(candidate, out, true)
	}
}

// ScanPreciseModules implements spec §4.D's precise module scan: walk a
// fixed-length array of module object pointers, treating each as a
// precise reference. Pinning only happens when object pinning is
// compiled in.
func (s Scanner) ScanPreciseModules(modules []vmaddr.Address, out *RootsClosure) {
	for _, m := range modules {
		if m.IsZero() {
			continue
		}
		s.capture(m, out, s.ObjectPinningEnabled)
	}
}

// capture implements the common "treat candidate as an object reference"
// steps shared by both conservative and precise scanning: optionally pin
// it, scan its inflated-lock indirections, weak-ref-check it, enqueue it.
func (s Scanner) capture(candidate vmaddr.Address, out *RootsClosure, pin bool) {
	if pin && s.Pinned != nil {
		s.Pinned.Pin(candidate)
	}
	s.scanInflatedLocks(candidate, out)
	obj := abi.At(candidate, s.Mem, s.Layout)
	if obj.IsWeakReference() && s.Weak != nil {
		s.Weak.Push(candidate)
	}
	out.Enqueue(candidate)
}

// scanInflatedLocks walks a root's lock-word indirections, since those
// monitor objects are reachable from roots even when no precise field
// points at them (spec §4.D: "Scan its inflated-lock indirections").
func (s Scanner) scanInflatedLocks(candidate vmaddr.Address, out *RootsClosure) {
	if !s.Layout.UsesLockWords {
		return
	}
	obj := abi.At(candidate, s.Mem, s.Layout)
	if rttiLock := obj.Rtti().LockWord(); abi.LockWordInflated(rttiLock) {
		out.Enqueue(abi.AlignedLockRef(rttiLock))
	}
	if objLock := obj.LockWord(); abi.LockWordInflated(objLock) {
		out.Enqueue(abi.AlignedLockRef(objLock))
	}
}
