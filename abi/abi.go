// Package abi implements the object model and RTTI layer described by
// component A: header layout, RTTI access, and the size/id/array/weak
// queries the rest of the binding is built on.
package abi

import (
	"github.com/mmtk-go/nativebinding/heap"
	"github.com/mmtk-go/nativebinding/vmaddr"
)

// Layout describes the byte offsets and id ranges the client runtime
// compiled its object model with. It is populated once from upcalls
// (RTTI group, §6) and then treated as read-only.
type Layout struct {
	ArrayIDsMin, ArrayIDsMax     int32
	WeakRefIDsMin, WeakRefIDsMax int32
	WeakRefFieldOffset           uintptr
	ObjectArrayID                int32
	AllocationAlignment          uintptr
	UsesLockWords                bool
	ObjectHeaderSize             uintptr // offset of the first field
	ArrayHeaderSize              uintptr // offset of the first element
}

const monitorInflationMarkMask = vmaddr.Address(1)
const monitorObjectMask = ^vmaddr.Address(1)

// roundToNextMultiple mirrors abi.rs's free function of the same name.
func roundToNextMultiple(n uintptr, alignment uintptr) uintptr {
	return vmaddr.RoundToNextMultiple(n, alignment)
}

// Rtti is a read view over the runtime-type-information record pointed to
// by an object's header. It never copies the backing bytes; each accessor
// performs one load. Its field offsets depend on whether the client
// runtime was built with lock words compiled in (spec §3's "lock_word is
// optional" note), so Rtti carries that one bit of layout alongside the
// address.
type Rtti struct {
	addr          vmaddr.Address
	mem           heap.Memory
	usesLockWords bool
}

// RttiAt constructs a view over the Rtti record at addr, using layout to
// resolve the lock-word-dependent field offsets.
func RttiAt(addr vmaddr.Address, mem heap.Memory, layout Layout) Rtti {
	return Rtti{addr: addr, mem: mem, usesLockWords: layout.UsesLockWords}
}

func (r Rtti) IsNil() bool { return r.addr.IsZero() }

// Addr returns the address of the lock word slot inside the Rtti record
// (o.rtti.runtime.lock_word), not the address of the record itself; it is
// the edge the scanner reports and rewrites for an inflated rtti lock word.
func (r Rtti) Addr() vmaddr.Address { return r.addr.Add(rttiLockWordOffset) }

// Field offsets within the Rtti record, matching abi.rs's Runtime/Rtti
// #[repr(C)] layout: {class_ptr, [lock_word], id, tid, name_ptr}, size,
// id_range_until, ref_map. Every field from id onward shifts by 8 bytes
// when lock_word is compiled out of Runtime, so they are computed from a
// base offset rather than fixed.
const (
	rttiClassPtrOffset = 0
	rttiLockWordOffset = 8 // only meaningful when Layout.UsesLockWords
)

// rttiBaseOffset is the offset of the id field: right after class_ptr,
// and (when compiled in) the lock_word slot.
func rttiBaseOffset(usesLockWords bool) uintptr {
	if usesLockWords {
		return 16
	}
	return 8
}

func rttiIDOffset(usesLockWords bool) uintptr {
	return rttiBaseOffset(usesLockWords)
}

func rttiTIDOffset(usesLockWords bool) uintptr {
	return rttiBaseOffset(usesLockWords) + 4
}

func rttiNamePtrOffset(usesLockWords bool) uintptr {
	return rttiBaseOffset(usesLockWords) + 8
}

func rttiSizeOffset(usesLockWords bool) uintptr {
	return rttiBaseOffset(usesLockWords) + 16
}

func rttiIDRangeUpOffset(usesLockWords bool) uintptr {
	return rttiBaseOffset(usesLockWords) + 20
}

func rttiRefMapOffset(usesLockWords bool) uintptr {
	return rttiBaseOffset(usesLockWords) + 24
}

func (r Rtti) ID() int32 {
	return int32(r.mem.Load32(r.addr.Add(rttiIDOffset(r.usesLockWords))))
}

func (r Rtti) LockWord() vmaddr.Address {
	return vmaddr.Address(r.mem.Load64(r.addr.Add(rttiLockWordOffset)))
}

func (r Rtti) SetLockWord(v vmaddr.Address) {
	r.mem.Store64(r.addr.Add(rttiLockWordOffset), uint64(v))
}

// Size is rtti.size, a 4-byte field in the client's Rtti struct.
func (r Rtti) Size() uintptr {
	return uintptr(r.mem.Load32(r.addr.Add(rttiSizeOffset(r.usesLockWords))))
}

func (r Rtti) IDRangeUntil() int32 {
	return int32(r.mem.Load32(r.addr.Add(rttiIDRangeUpOffset(r.usesLockWords))))
}

func (r Rtti) RefMap() vmaddr.Address {
	return vmaddr.Address(r.mem.Load64(r.addr.Add(rttiRefMapOffset(r.usesLockWords))))
}

// RefMapSentinel terminates the reference-map offset sequence.
const RefMapSentinel int64 = -1

// NumFields counts the entries in ref_map before the sentinel.
func (r Rtti) NumFields() int {
	refMap := r.RefMap()
	if refMap.IsZero() {
		return 0
	}
	n := 0
	for {
		off := int64(r.mem.Load64(refMap.Add(uintptr(n) * 8)))
		if off == RefMapSentinel {
			return n
		}
		n++
	}
}

// FieldOffset returns the i'th reference-typed field offset in ref_map.
func (r Rtti) FieldOffset(i int) int64 {
	return int64(r.mem.Load64(r.RefMap().Add(uintptr(i) * 8)))
}

// Object is a read/write view over a heap object's header, keyed by the
// address of the header's first byte (spec §3: object header = rtti +
// optional lock_word).
type Object struct {
	addr   vmaddr.Address
	mem    heap.Memory
	layout Layout
}

// At constructs an Object view over the header at addr.
func At(addr vmaddr.Address, mem heap.Memory, layout Layout) Object {
	return Object{addr: addr, mem: mem, layout: layout}
}

func (o Object) Addr() vmaddr.Address { return o.addr }

func (o Object) rttiPtr() vmaddr.Address {
	return vmaddr.Address(o.mem.Load64(o.addr))
}

// Rtti returns the object's RTTI record, as read directly (no alignment
// masking — use RttiForCopy during copying, when forwarding bits may be
// set in the header).
func (o Object) Rtti() Rtti {
	return RttiAt(o.rttiPtr(), o.mem, o.layout)
}

// RttiForCopy masks off the low alignment bits before dereferencing,
// because the GC framework may have written forwarding bits into the
// header word that normally holds the rtti pointer (spec §4.A).
func (o Object) RttiForCopy() Rtti {
	ptr := vmaddr.AlignDown(o.rttiPtr(), o.layout.AllocationAlignment)
	return RttiAt(ptr, o.mem, o.layout)
}

// LockWordAddr returns the address of the object header's own lock word
// slot (distinct from the rtti record's lock word, see Rtti.Addr).
func (o Object) LockWordAddr() vmaddr.Address {
	return o.addr.Add(o.layout.ObjectHeaderSize - 8)
}

func (o Object) LockWord() vmaddr.Address {
	return vmaddr.Address(o.mem.Load64(o.LockWordAddr()))
}

func (o Object) SetLockWord(v vmaddr.Address) {
	o.mem.Store64(o.LockWordAddr(), uint64(v))
}

// IsArray reports whether o.rtti.id falls in the array id range.
func (o Object) IsArray() bool {
	id := o.Rtti().ID()
	return id >= o.layout.ArrayIDsMin && id <= o.layout.ArrayIDsMax
}

func isArrayID(id int32, l Layout) bool {
	return id >= l.ArrayIDsMin && id <= l.ArrayIDsMax
}

// IsArrayForCopy is IsArray but tolerant of in-progress forwarding bits.
func (o Object) IsArrayForCopy() bool {
	id := o.RttiForCopy().ID()
	return isArrayID(id, o.layout)
}

// IsWeakReference reports whether o.rtti.id falls in the weak-ref id range.
func (o Object) IsWeakReference() bool {
	id := o.Rtti().ID()
	return id >= o.layout.WeakRefIDsMin && id <= o.layout.WeakRefIDsMax
}

// IsReferentField reports whether offset is the referent slot of a
// weak-reference object (spec invariant 4).
func (o Object) IsReferentField(offset int64) bool {
	return o.IsWeakReference() && uintptr(offset) == o.layout.WeakRefFieldOffset
}

// ArrayLength reads the length field of an array header.
func (o Object) ArrayLength() int32 {
	return int32(o.mem.Load32(o.addr.Add(o.layout.ObjectHeaderSize)))
}

// ArrayStride reads the per-element stride of an array header.
func (o Object) ArrayStride() int32 {
	return int32(o.mem.Load32(o.addr.Add(o.layout.ObjectHeaderSize + 4)))
}

// Size returns the allocated size in bytes, rounded up to the allocation
// alignment (spec §4.A). Arrays use header+length*stride; plain objects
// use rtti.size.
func (o Object) Size() uintptr {
	alpha := o.layout.AllocationAlignment
	if o.IsArray() {
		payload := uintptr(o.ArrayLength()) * uintptr(o.ArrayStride())
		return roundToNextMultiple(o.layout.ArrayHeaderSize+payload, alpha)
	}
	return roundToNextMultiple(o.Rtti().Size(), alpha)
}

// SizeForCopy is Size but computed via RttiForCopy, tolerant of in-flight
// forwarding bits in the header (spec §4.A).
func (o Object) SizeForCopy() uintptr {
	alpha := o.layout.AllocationAlignment
	if o.IsArrayForCopy() {
		payload := uintptr(o.ArrayLength()) * uintptr(o.ArrayStride())
		return roundToNextMultiple(o.layout.ArrayHeaderSize+payload, alpha)
	}
	return roundToNextMultiple(o.RttiForCopy().Size(), alpha)
}

// FieldBase returns the address of the first field, immediately past the
// object header.
func (o Object) FieldBase() vmaddr.Address {
	return o.addr.Add(o.layout.ObjectHeaderSize)
}

// NumFields counts the reference-typed fields of a plain object (not
// meaningful for arrays, which are walked by stride instead).
func (o Object) NumFields() int {
	return o.Rtti().NumFields()
}

// FieldOffset returns the i'th reference-typed field offset.
func (o Object) FieldOffset(i int) int64 {
	return o.Rtti().FieldOffset(i)
}

// LockWordInflated reports whether field's low bit marks it as an
// inflated-lock indirection (abi.rs's field_is_inflated_lock).
func LockWordInflated(field vmaddr.Address) bool {
	return field&monitorInflationMarkMask != 0
}

// AlignedLockRef strips the inflation tag bit, yielding the address of the
// monitor object (abi.rs's field_alligned_lock_ref).
func AlignedLockRef(field vmaddr.Address) vmaddr.Address {
	return field & monitorObjectMask
}

// Inflate sets the inflation tag bit on a monitor object's address.
func Inflate(monitor vmaddr.Address) vmaddr.Address {
	return monitor | monitorInflationMarkMask
}
