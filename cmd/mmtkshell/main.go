// Command mmtkshell is an interactive console for driving a harness
// binding.Binding through init/acquire/release/weak-ref-processing cycles
// by hand, useful for exercising the Synchronizer and Weak-Reference
// Processor without a real client runtime attached. Grounded on the
// teacher's own chzyer/readline dependency (declared in go.mod but unused
// in the retrieved golang-debug snapshot) and the ogle subsystem's
// debugger-shell role; the read-eval-print loop follows ogle's
// command-dispatch shape.
package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/mmtk-go/nativebinding/binding"
	"github.com/mmtk-go/nativebinding/heap"
	"github.com/mmtk-go/nativebinding/safepoint"
	"github.com/mmtk-go/nativebinding/vmaddr"
	"github.com/mmtk-go/nativebinding/weakref"
)

type shell struct {
	b      *binding.Binding
	sync   *safepoint.Synchronizer
	mem    *heap.ArenaMemory
	weak   *weakref.Stack
	proc   *weakref.Processor
	synced bool
}

// harnessUpcalls stands in for a real client's scalanative_gc_init table:
// print-based Collection-group callbacks plus a plausible RTTI group, so
// Binding.Layout() has something to assemble.
func harnessUpcalls() *binding.Upcalls {
	return &binding.Upcalls{
		StopAllMutators: func(safepoint.ThreadID) { fmt.Println("(stop_all_mutators upcall)") },
		ResumeMutators:  func(safepoint.ThreadID) { fmt.Println("(resume_mutators upcall)") },

		GetArrayIDsMin:         func() int32 { return 100 },
		GetArrayIDsMax:         func() int32 { return 199 },
		GetWeakRefIDsMin:       func() int32 { return 200 },
		GetWeakRefIDsMax:       func() int32 { return 200 },
		GetWeakRefFieldOffset:  func() int32 { return 8 },
		GetObjectArrayID:       func() int32 { return 100 },
		GetAllocationAlignment: func() uintptr { return 16 },
	}
}

func newShell() (*shell, error) {
	b := binding.New()
	b.SetUpcalls(harnessUpcalls())
	b.SetHeaderLayout(true, 16, 24) // rtti ptr+lock word, length+stride

	mem, err := heap.NewArenaMemory(1 << 20)
	if err != nil {
		return nil, err
	}

	stack := &weakref.Stack{}
	s := &shell{
		b:    b,
		mem:  mem,
		weak: stack,
		proc: &weakref.Processor{Mem: mem, Layout: b.Layout(), Stack: stack, Pinned: b},
	}
	s.sync = safepoint.NewSynchronizer(b.SynchronizerUpcalls())
	return s, nil
}

func main() {
	rl, err := readline.New("mmtk> ")
	if err != nil {
		fmt.Println(err)
		return
	}
	defer rl.Close()

	s, err := newShell()
	if err != nil {
		fmt.Println(err)
		return
	}
	defer s.mem.Close()
	go s.sync.Run(nil)
	defer s.sync.Stop()

	fmt.Println("mmtkshell: interactive harness console. Type 'help' for commands.")
	for {
		line, err := rl.Readline()
		if err == io.EOF || err == readline.ErrInterrupt {
			return
		}
		if err != nil {
			fmt.Println(err)
			return
		}
		if s.dispatch(strings.TrimSpace(line)) {
			return
		}
	}
}

// dispatch runs one command and reports whether the shell should exit.
func (s *shell) dispatch(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	switch fields[0] {
	case "help":
		fmt.Println("commands: acquire <tls>, release <tls>, pin <addr>, process, layout, status, quit")
	case "acquire":
		tls := parseTLS(fields)
		s.sync.Acquire(tls)
		s.synced = true
		fmt.Println("acquired")
	case "release":
		tls := parseTLS(fields)
		s.sync.Release(tls)
		s.synced = false
		fmt.Println("released")
	case "pin":
		if len(fields) < 2 {
			fmt.Println("usage: pin <addr>")
			return false
		}
		n, err := strconv.ParseUint(fields[1], 0, 64)
		if err != nil {
			fmt.Println(err)
			return false
		}
		s.b.Pin(vmaddr.Address(n))
		fmt.Println("pinned")
	case "process":
		s.proc.Process(identityTracer{})
		fmt.Printf("processed; visited=%v\n", s.proc.Visited())
	case "layout":
		l := s.b.Layout()
		fmt.Printf("array_ids=[%d,%d] weak_ref_ids=[%d,%d] weak_ref_field_offset=%d object_array_id=%d alignment=%d uses_lock_words=%v object_header_size=%d array_header_size=%d\n",
			l.ArrayIDsMin, l.ArrayIDsMax, l.WeakRefIDsMin, l.WeakRefIDsMax, l.WeakRefFieldOffset,
			l.ObjectArrayID, l.AllocationAlignment, l.UsesLockWords, l.ObjectHeaderSize, l.ArrayHeaderSize)
	case "status":
		fmt.Printf("synced=%v pinned=%d initialized=%v\n", s.synced, len(s.b.PinnedObjects()), s.b.Initialized())
	case "quit", "exit":
		return true
	default:
		fmt.Printf("unknown command %q\n", fields[0])
	}
	return false
}

func parseTLS(fields []string) safepoint.ThreadID {
	if len(fields) < 2 {
		return 0
	}
	n, err := strconv.ParseUint(fields[1], 0, 64)
	if err != nil {
		return 0
	}
	return safepoint.ThreadID(n)
}

// identityTracer is a no-framework stand-in used by the shell's "process"
// command: every candidate is treated as already-forwarded and reachable,
// so "process" exercises the drain/unpin machinery without requiring a
// live GC framework handle.
type identityTracer struct{}

func (identityTracer) Forwarded(obj vmaddr.Address) vmaddr.Address { return obj }
func (identityTracer) IsReachable(vmaddr.Address) bool             { return true }
