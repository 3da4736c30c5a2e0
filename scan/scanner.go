// Package scan implements the Object Scanner (component C): precise
// field walking via an object's reference map, array element walking,
// weak-reference-stack capture, and inflated-lock-word forwarding.
package scan

import (
	"github.com/mmtk-go/nativebinding/abi"
	"github.com/mmtk-go/nativebinding/heap"
	"github.com/mmtk-go/nativebinding/vmaddr"
)

// EdgeVisitor is called once per reference-typed slot discovered while
// scanning an object. It receives the edge's address (the slot itself,
// not its contents) so the framework's tracer can decide whether to
// enqueue the referent.
type EdgeVisitor func(edge vmaddr.Address)

// EdgeTracer reads a slot's current target, asks the framework to trace
// it (possibly forwarding it to a new location), and returns the
// (possibly unchanged) target so the caller can write it back.
type EdgeTracer func(target vmaddr.Address) vmaddr.Address

// WeakRefStack receives weak-reference objects discovered during a scan.
// The real implementation (package weakref) is a mutex-protected stack;
// this is expressed as an interface so the scanner has no direct
// dependency on weakref's locking discipline.
type WeakRefStack interface {
	Push(obj vmaddr.Address)
}

// Scanner walks object graphs over a single heap.Memory using a fixed
// abi.Layout, matching spec §4.C's algorithm exactly.
type Scanner struct {
	Mem    heap.Memory
	Layout abi.Layout
	Weak   WeakRefStack
}

// ScanObject implements the edge-visiting mode: for each reference field
// of o, invoke visit with the field's address. Matches spec §4.C's
// plain-object and array algorithms.
func (s Scanner) ScanObject(o abi.Object, visit EdgeVisitor) {
	s.scanLockWords(o, func(edge vmaddr.Address, target vmaddr.Address) {
		visit(edge)
	})
	if o.IsArray() {
		s.scanArray(o, func(edge vmaddr.Address, target vmaddr.Address) {
			visit(edge)
		})
		return
	}
	s.scanFields(o, func(edge vmaddr.Address, target vmaddr.Address) {
		visit(edge)
	})
}

// ScanObjectAndTraceEdges implements the forwarding mode: for each
// reference field, read the target, hand it to trace, and write back
// whatever trace returns (spec §4.C, "object-tracing with forwarding").
func (s Scanner) ScanObjectAndTraceEdges(o abi.Object, trace EdgeTracer) {
	s.scanLockWords(o, func(edge vmaddr.Address, target vmaddr.Address) {
		forwarded := trace(target)
		s.Mem.Store64(edge, uint64(abi.Inflate(forwarded)))
	})
	var walker func(edge, target vmaddr.Address)
	walker = func(edge, target vmaddr.Address) {
		forwarded := trace(target)
		s.Mem.Store64(edge, uint64(forwarded))
	}
	if o.IsArray() {
		s.scanArray(o, walker)
		return
	}
	s.scanFields(o, walker)
}

type edgeFunc func(edge, target vmaddr.Address)

// scanFields implements the plain-object algorithm from spec §4.C:
//
//	i ← 0; base ← field_base(o)
//	while ref_map[i] != -1:
//	    off ← ref_map[i]
//	    if is_referent_field(o, off): i++; continue
//	    edge ← base + off
//	    target ← *edge
//	    if is_word_in_heap(target): process(edge, target)
//	    i++
func (s Scanner) scanFields(o abi.Object, process edgeFunc) {
	base := o.FieldBase()
	n := o.NumFields()
	for i := 0; i < n; i++ {
		off := o.FieldOffset(i)
		if o.IsReferentField(off) {
			continue
		}
		edge := base.Add(uintptr(off))
		target := vmaddr.Address(s.Mem.Load64(edge))
		if target.IsZero() {
			continue
		}
		if !vmaddr.IsWordInHeap(target, s.Mem.Bounds()) {
			continue
		}
		s.maybeCaptureWeakRef(target)
		process(edge, target)
	}
}

// scanArray implements the array algorithm: only object arrays
// (rtti.id == ObjectArrayID) are walked; primitive arrays contain no
// reference-typed elements and are skipped.
func (s Scanner) scanArray(o abi.Object, process edgeFunc) {
	if o.Rtti().ID() != s.Layout.ObjectArrayID {
		return
	}
	length := o.ArrayLength()
	base := o.FieldBase()
	const ptrSize = 8
	for i := int32(0); i < length; i++ {
		edge := base.Add(uintptr(i) * ptrSize)
		target := vmaddr.Address(s.Mem.Load64(edge))
		if target.IsZero() {
			continue
		}
		if !vmaddr.IsWordInHeap(target, s.Mem.Bounds()) {
			continue
		}
		s.maybeCaptureWeakRef(target)
		process(edge, target)
	}
}

// scanLockWords inspects the two potential inflated-lock indirections
// (o.rtti.runtime.lock_word and o.lock_word) described in spec §4.C, and
// reports each inflated one to process with the aligned monitor address
// as the target.
func (s Scanner) scanLockWords(o abi.Object, process edgeFunc) {
	if !s.Layout.UsesLockWords {
		return
	}
	if rttiLock := o.Rtti().LockWord(); abi.LockWordInflated(rttiLock) {
		monitor := abi.AlignedLockRef(rttiLock)
		process(o.Rtti().Addr(), monitor)
	}
	if objLock := o.LockWord(); abi.LockWordInflated(objLock) {
		monitor := abi.AlignedLockRef(objLock)
		process(o.LockWordAddr(), monitor)
	}
}

// maybeCaptureWeakRef pushes target onto the weak-ref stack if it is
// itself a weak-reference object, per spec §4.C's "weak-ref handling
// during scan": the containing weak-reference object is captured, not
// the field's own referent (which is already skipped by scanFields).
func (s Scanner) maybeCaptureWeakRef(target vmaddr.Address) {
	if s.Weak == nil {
		return
	}
	obj := abi.At(target, s.Mem, s.Layout)
	if obj.IsWeakReference() {
		s.Weak.Push(target)
	}
}
