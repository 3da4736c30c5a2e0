// Package heap provides the live, read/write memory abstraction the rest
// of the binding reads and writes the client runtime's object heap
// through. Unlike a post-mortem core-file reader, this memory can be
// mutated by the collector (forwarding pointers, nulling weak referents,
// rewriting lock words).
package heap

import (
	"fmt"

	"github.com/mmtk-go/nativebinding/vmaddr"
)

// Memory is the word-granularity read/write surface the scanner, root
// scanner, and object-model adapter operate through. Implementations
// never need to support anything coarser than 32/64-bit loads and stores:
// the object model (spec §3-4) is defined entirely in terms of single
// machine words.
type Memory interface {
	// Load32/Load64 read a little-endian value at addr. They do not check
	// addr against the heap range, so an address taken from an untrusted
	// conservative-scan candidate must be checked with Readable first.
	Load32(addr vmaddr.Address) uint32
	Load64(addr vmaddr.Address) uint64
	Store32(addr vmaddr.Address, v uint32)
	Store64(addr vmaddr.Address, v uint64)

	// Readable reports whether [addr, addr+n) can be safely loaded from.
	Readable(addr vmaddr.Address, n uintptr) bool

	// Bounds returns the half-open heap range this Memory covers.
	Bounds() vmaddr.Range
}

// ErrOutOfRange is an error value describing an address outside the heap
// range. The Memory implementations in this package do not return it:
// their loads and stores perform no range check.
type ErrOutOfRange struct {
	Addr vmaddr.Address
}

func (e ErrOutOfRange) Error() string {
	return fmt.Sprintf("address %v out of heap range", e.Addr)
}
