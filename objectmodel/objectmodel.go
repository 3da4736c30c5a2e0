// Package objectmodel implements the Object-Model Adapter (component H):
// the bit-layout contract handed to the GC framework, plus copy and
// size-when-copied. Grounded on original_source/mmtk/src/object_model.rs's
// ObjectModel impl, translated from const trait items to a Go struct of
// typed bit-spec values in the style of internal/gocore/type.go's Kind
// enum table.
package objectmodel

import (
	"github.com/mmtk-go/nativebinding/abi"
	"github.com/mmtk-go/nativebinding/heap"
	"github.com/mmtk-go/nativebinding/internal/vmlog"
	"github.com/mmtk-go/nativebinding/vmaddr"
)

// MetadataKind distinguishes where a bit-layout spec is stored: a header
// bit/word, or a parallel side-metadata region (spec §4.H).
type MetadataKind int

const (
	InHeader MetadataKind = iota
	SideMetadata
)

// BitSpec describes one framework-visible metadata slot: either an
// in-header bit offset (negative offsets count from the high bit, matching
// the original's "-2" top-two-bits convention) or a side-metadata
// placement relative to another spec.
type BitSpec struct {
	Kind MetadataKind

	// In-header placement.
	HeaderBitOffset int // e.g. 0 for forwarding pointer, -2 for top two bits

	// Side-metadata placement.
	SideMetadataFirst bool     // true => first side-metadata word
	SideMetadataAfter *BitSpec // non-nil => placed immediately after this spec
}

// Specs is the fixed bit-layout contract from spec §4.H, populated once at
// binding init and handed to the GC framework unchanged thereafter.
type Specs struct {
	GlobalLogBit          BitSpec
	LocalMarkBit          BitSpec
	LocalLOSMarkNursery   BitSpec
	LocalForwardingPtr    BitSpec
	LocalForwardingBits   BitSpec
	LocalPinningBit       *BitSpec // nil when pinning is not compiled in
	NeedVOBitsDuringTrace bool
}

// DefaultSpecs reproduces object_model.rs's const layout: global log bit
// and local mark bit both side-metadata (mark bit first, LOS mark/nursery
// immediately after it); forwarding pointer and forwarding bits both
// in-header, at word 0 and the top two bits respectively.
func DefaultSpecs(pinningEnabled bool) Specs {
	mark := BitSpec{Kind: SideMetadata, SideMetadataFirst: true}
	los := BitSpec{Kind: SideMetadata, SideMetadataAfter: &mark}
	specs := Specs{
		GlobalLogBit:          BitSpec{Kind: SideMetadata, SideMetadataFirst: true},
		LocalMarkBit:          mark,
		LocalLOSMarkNursery:   los,
		LocalForwardingPtr:    BitSpec{Kind: InHeader, HeaderBitOffset: 0},
		LocalForwardingBits:   BitSpec{Kind: InHeader, HeaderBitOffset: -2},
		NeedVOBitsDuringTrace: true,
	}
	if pinningEnabled {
		pin := BitSpec{Kind: SideMetadata, SideMetadataAfter: &los}
		specs.LocalPinningBit = &pin
	}
	return specs
}

// Allocator allocates bytes at the given alignment for a live copy,
// delegating to the GC framework's copy-context allocator (the binding
// never owns allocation itself).
type Allocator func(bytes uintptr, alignment uintptr) vmaddr.Address

// PostCopy notifies the framework that a copy has completed, so it can
// update its own per-object bookkeeping (mark bits, log bits).
type PostCopy func(to vmaddr.Address)

// Adapter implements the copy/size/reference-mapping half of component H
// over a single heap.Memory and abi.Layout.
type Adapter struct {
	Mem    heap.Memory
	Layout abi.Layout
}

// Size returns the current allocated size of an object, tolerant of
// in-flight forwarding bits (spec §4.A's size_for_copy).
func (a Adapter) Size(from vmaddr.Address) uintptr {
	return abi.At(from, a.Mem, a.Layout).SizeForCopy()
}

// SizeWhenCopied mirrors object_model.rs's get_size_when_copied, which is
// just get_current_size: this binding never changes an object's size on
// copy (no compaction-driven shrinking).
func (a Adapter) SizeWhenCopied(from vmaddr.Address) uintptr {
	return a.Size(from)
}

// AlignWhenCopied is always the machine word size: object headers begin
// with a pointer-sized rtti field.
func (a Adapter) AlignWhenCopied() uintptr { return 8 }

// AlignOffsetWhenCopied is always 0: no object requires a non-zero
// alignment offset in this binding.
func (a Adapter) AlignOffsetWhenCopied() uintptr { return 0 }

// Copy allocates size(from) bytes at the required alignment via alloc,
// copies the payload byte-for-byte, and calls postCopy, per spec §4.H.
func (a Adapter) Copy(from vmaddr.Address, alloc Allocator, postCopy PostCopy) vmaddr.Address {
	size := a.Size(from)
	to := alloc(size, a.AlignWhenCopied())
	for off := uintptr(0); off+8 <= size; off += 8 {
		a.Mem.Store64(to.Add(off), a.Mem.Load64(from.Add(off)))
	}
	if rem := size % 8; rem == 4 {
		off := size - 4
		a.Mem.Store32(to.Add(off), a.Mem.Load32(from.Add(off)))
	}
	if postCopy != nil {
		postCopy(to)
	}
	return to
}

// CopyTo is unreachable for this binding: compacting plans that require
// copy_to are a documented non-goal (spec §1, §4.H). Any call is a fatal
// invariant violation, matching object_model.rs's unimplemented!().
func (a Adapter) CopyTo(from, to vmaddr.Address, region vmaddr.Address) vmaddr.Address {
	vmlog.Fatalf("copy_to called: compacting plans are unsupported by this binding")
	panic("unreachable")
}

// RefToObjectStart, RefToHeader, and RefToAddress are all the identity
// function: object references and the addresses that represent them
// coincide in this binding (spec §4.H, OBJECT_REF_OFFSET == 0).
func (a Adapter) RefToObjectStart(obj vmaddr.Address) vmaddr.Address { return obj }
func (a Adapter) RefToHeader(obj vmaddr.Address) vmaddr.Address      { return obj }
func (a Adapter) RefToAddress(obj vmaddr.Address) vmaddr.Address     { return obj }
func (a Adapter) AddressToRef(addr vmaddr.Address) vmaddr.Address    { return addr }
