package heap

import (
	"encoding/binary"
	"unsafe"

	"github.com/mmtk-go/nativebinding/vmaddr"
)

// UnsafeMemory is the production Memory implementation: the client
// runtime's heap lives at a fixed address range in this same process
// (the binding is linked into the client runtime, never a separate
// process), so loads and stores go straight through unsafe.Pointer.
type UnsafeMemory struct {
	bounds vmaddr.Range
}

// NewUnsafeMemory wraps the live heap range [start, end) reported by the
// client runtime at init time.
func NewUnsafeMemory(bounds vmaddr.Range) *UnsafeMemory {
	return &UnsafeMemory{bounds: bounds}
}

func (m *UnsafeMemory) Bounds() vmaddr.Range { return m.bounds }

func (m *UnsafeMemory) Readable(addr vmaddr.Address, n uintptr) bool {
	end := addr.Add(n)
	return addr >= m.bounds.Start && end <= m.bounds.End
}

func (m *UnsafeMemory) Load32(addr vmaddr.Address) uint32 {
	p := (*[4]byte)(unsafe.Pointer(uintptr(addr)))
	return binary.LittleEndian.Uint32(p[:])
}

func (m *UnsafeMemory) Load64(addr vmaddr.Address) uint64 {
	p := (*[8]byte)(unsafe.Pointer(uintptr(addr)))
	return binary.LittleEndian.Uint64(p[:])
}

func (m *UnsafeMemory) Store32(addr vmaddr.Address, v uint32) {
	p := (*[4]byte)(unsafe.Pointer(uintptr(addr)))
	binary.LittleEndian.PutUint32(p[:], v)
}

func (m *UnsafeMemory) Store64(addr vmaddr.Address, v uint64) {
	p := (*[8]byte)(unsafe.Pointer(uintptr(addr)))
	binary.LittleEndian.PutUint64(p[:], v)
}
