// Package vmaddr defines the typed address and alignment primitives the
// rest of the binding builds on (component B of the binding's design).
package vmaddr

import "fmt"

// Address is a raw word address in the client runtime's address space.
// It carries no ownership or reference semantics: it is a number with
// arithmetic and predicate helpers, never an abstraction that implies
// automatic traversal.
type Address uintptr

// Nil is the zero address, never a valid object or edge.
const Nil Address = 0

// Add returns the address n bytes past a.
func (a Address) Add(n uintptr) Address { return a + Address(n) }

// Sub returns the address n bytes before a.
func (a Address) Sub(n uintptr) Address { return a - Address(n) }

// Diff returns a-b as a signed byte count.
func (a Address) Diff(b Address) int64 { return int64(a) - int64(b) }

// IsZero reports whether a is the nil address.
func (a Address) IsZero() bool { return a == Nil }

func (a Address) String() string { return fmt.Sprintf("0x%x", uintptr(a)) }

// IsAligned reports whether a is a multiple of alignment, which must be a
// power of two.
func IsAligned(a Address, alignment uintptr) bool {
	return uintptr(a)&(alignment-1) == 0
}

// AlignDown rounds a down to the nearest multiple of alignment.
func AlignDown(a Address, alignment uintptr) Address {
	return Address(uintptr(a) &^ (alignment - 1))
}

// AlignUp rounds a up to the nearest multiple of alignment.
func AlignUp(a Address, alignment uintptr) Address {
	return AlignDown(a.Add(alignment-1), alignment)
}

// RoundToNextMultiple rounds n up to the next multiple of alignment.
func RoundToNextMultiple(n uintptr, alignment uintptr) uintptr {
	return (n + alignment - 1) &^ (alignment - 1)
}

// Range is a half-open address range [Start, End).
type Range struct {
	Start, End Address
}

// Contains reports whether a lies in [r.Start, r.End). The upper bound is
// exclusive: this is deliberate (see the binding's open-question log) and
// matches the half-open convention used throughout this package.
func (r Range) Contains(a Address) bool {
	return a >= r.Start && a < r.End
}

// Len returns the number of bytes spanned by r.
func (r Range) Len() uintptr {
	if r.End <= r.Start {
		return 0
	}
	return uintptr(r.End - r.Start)
}

// IsWordInHeap reports whether p lies in the half-open heap range
// [heap.Start, heap.End).
func IsWordInHeap(p Address, heap Range) bool {
	return heap.Contains(p)
}

// IsPtrAligned reports whether p is a multiple of alignment; conservative
// scanning passes the allocation alignment.
func IsPtrAligned(p Address, alignment uintptr) bool {
	return IsAligned(p, alignment)
}
