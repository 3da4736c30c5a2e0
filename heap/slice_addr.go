package heap

import "unsafe"

// addrOfSlice returns the address of b's backing array. Only used by
// ArenaMemory, whose backing storage is mmap'd (and thus never moved by
// the Go runtime), unlike an ordinary Go-managed slice.
func addrOfSlice(b []byte) unsafe.Pointer {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Pointer(&b[0])
}
