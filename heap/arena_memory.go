package heap

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/mmtk-go/nativebinding/vmaddr"
)

// ArenaMemory is a synthetic heap backed by a real mmap'd region, used in
// tests so alignment and heap-membership predicates exercise genuine
// page-backed addresses instead of a Go slice's backing array, which the
// runtime is free to relocate or which the race detector may flag under
// unsafe.Pointer tricks. Grounded on the teacher's use of
// golang.org/x/sys/unix in internal/gocore/gocore_test.go.
type ArenaMemory struct {
	data   []byte
	bounds vmaddr.Range
}

// NewArenaMemory mmaps size bytes anonymously and returns a Memory backed
// by it. Callers must call Close when done to munmap the region.
func NewArenaMemory(size int) (*ArenaMemory, error) {
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("mmap arena: %w", err)
	}
	start := vmaddr.Address(uintptr(addrOfSlice(data)))
	return &ArenaMemory{
		data:   data,
		bounds: vmaddr.Range{Start: start, End: start.Add(uintptr(size))},
	}, nil
}

// Close releases the mmap'd region.
func (a *ArenaMemory) Close() error {
	return unix.Munmap(a.data)
}

func (a *ArenaMemory) Bounds() vmaddr.Range { return a.bounds }

func (a *ArenaMemory) Readable(addr vmaddr.Address, n uintptr) bool {
	end := addr.Add(n)
	return addr >= a.bounds.Start && end <= a.bounds.End
}

func (a *ArenaMemory) offset(addr vmaddr.Address) uintptr {
	return uintptr(addr.Diff(a.bounds.Start))
}

func (a *ArenaMemory) Load32(addr vmaddr.Address) uint32 {
	off := a.offset(addr)
	return binary.LittleEndian.Uint32(a.data[off : off+4])
}

func (a *ArenaMemory) Load64(addr vmaddr.Address) uint64 {
	off := a.offset(addr)
	return binary.LittleEndian.Uint64(a.data[off : off+8])
}

func (a *ArenaMemory) Store32(addr vmaddr.Address, v uint32) {
	off := a.offset(addr)
	binary.LittleEndian.PutUint32(a.data[off:off+4], v)
}

func (a *ArenaMemory) Store64(addr vmaddr.Address, v uint64) {
	off := a.offset(addr)
	binary.LittleEndian.PutUint64(a.data[off:off+8], v)
}
