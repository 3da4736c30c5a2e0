// Package weakref implements the Weak-Reference Processor (component I):
// the mutex-protected candidate stack filled during tracing, and the
// post-mark drain that nulls dead referents and releases the pinned set.
// Grounded on original_source/mmtk/src/scanning.rs's WEAK_REF_STACK and
// process_weak_refs, and reference_glue.rs's referent model; the
// mutex-protected stack follows the locking discipline
// internal/gocore/object.go uses for its shared heapTable.
package weakref

import (
	"sync"
	"sync/atomic"

	"github.com/mmtk-go/nativebinding/abi"
	"github.com/mmtk-go/nativebinding/heap"
	"github.com/mmtk-go/nativebinding/vmaddr"
)

// Stack is the mutex-protected weak-reference candidate stack pushed to
// during scanning (scan.WeakRefStack, roots.WeakRefStack) and drained
// during processing. Push order does not matter: every pushed entry is
// visited once per processing pass regardless of order, and an object
// pushed more than once is visited once per push.
type Stack struct {
	mu      sync.Mutex
	objects []vmaddr.Address
}

// Push appends obj to the stack. Safe for concurrent use by multiple
// tracing workers.
func (s *Stack) Push(obj vmaddr.Address) {
	s.mu.Lock()
	s.objects = append(s.objects, obj)
	s.mu.Unlock()
}

// drain empties the stack and returns everything that was on it, leaving
// the stack ready for the next cycle.
func (s *Stack) drain() []vmaddr.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.objects) == 0 {
		return nil
	}
	out := s.objects
	s.objects = nil
	return out
}

// PinnedSet is the subset of binding.Binding the processor needs: release
// every pinned object at the start of processing (spec §4.I step 1).
type PinnedSet interface {
	UnpinAll()
}

// Tracer resolves an object's possibly-forwarded self-reference and
// reports whether it is still reachable, matching the framework's tracer
// context passed into process_weak_refs.
type Tracer interface {
	// Forwarded returns obj's current location (itself, if it was never
	// moved).
	Forwarded(obj vmaddr.Address) vmaddr.Address
	// IsReachable reports whether obj was determined live by the just
	// completed mark phase.
	IsReachable(obj vmaddr.Address) bool
}

// Handler is a user-registered callback invoked once per processing pass,
// after referents have been nulled (mmtk_weak_ref_stack_set_handler).
type Handler func()

// Processor implements spec §4.I over a single heap.Memory/abi.Layout.
type Processor struct {
	Mem     heap.Memory
	Layout  abi.Layout
	Stack   *Stack
	Pinned  PinnedSet
	handler atomic.Pointer[Handler]

	// visited is the process-wide VISITED flag: set whenever a referent
	// was nulled during the most recent pass (spec §5's atomic, release/
	// acquire semantics map directly onto sync/atomic.Bool).
	visited atomic.Bool
}

// SetHandler registers the user handler called at the end of every
// processing pass, replacing any previously registered handler.
func (p *Processor) SetHandler(h Handler) {
	p.handler.Store(&h)
}

// Visited reports whether any referent was nulled during the most
// recently completed processing pass.
func (p *Processor) Visited() bool { return p.visited.Load() }

// Process runs spec §4.I's algorithm: unpin everything, drain the weak-ref
// stack, null dead referents, flip VISITED, and call the registered
// handler. Idempotent on an empty stack (draining nothing leaves VISITED
// and the handler call as the only observable effects, matching the
// source's own "runs every cycle regardless" behavior).
func (p *Processor) Process(tracer Tracer) {
	if p.Pinned != nil {
		p.Pinned.UnpinAll()
	}
	candidates := p.Stack.drain()
	nulledAny := false
	for _, w := range candidates {
		self := tracer.Forwarded(w)
		obj := abi.At(self, p.Mem, p.Layout)
		referentSlot := obj.FieldBase().Add(p.Layout.WeakRefFieldOffset)
		referent := vmaddr.Address(p.Mem.Load64(referentSlot))
		if referent.IsZero() {
			continue
		}
		if !tracer.IsReachable(referent) {
			p.Mem.Store64(referentSlot, 0)
			nulledAny = true
		}
	}
	p.visited.Store(nulledAny)
	if h := p.handler.Load(); h != nil && *h != nil {
		(*h)()
	}
}
