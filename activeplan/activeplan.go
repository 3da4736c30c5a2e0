// Package activeplan implements the Active-Plan Adapter (component G):
// mutator enumeration via a callback-populated FIFO queue, plus direct
// upcall forwarding for the remaining queries. Grounded on
// original_source/mmtk/src/active_plan.rs's ScalaNativeMutatorIterator
// (VecDeque-backed) and the teacher's callback-populated traversal style
// in internal/gocore/object.go (c.ForEachObject/ForEachPtr).
package activeplan

import "github.com/mmtk-go/nativebinding/binding"

// MutatorIterator drains mutator pointers collected by one GetMutators
// callback invocation, in FIFO order, matching the original's VecDeque
// semantics exactly (push_back during collection, pop_front during
// iteration).
type MutatorIterator struct {
	queue []uintptr
}

// NewMutatorIterator asks the client (via GetMutators) to enumerate every
// live mutator, collecting them into a queue up front rather than
// streaming, because Go has no generator-style callback-to-iterator
// adapter as cheap as Rust's boxed Iterator.
func NewMutatorIterator(getMutators func(visit binding.MutatorVisitor)) *MutatorIterator {
	it := &MutatorIterator{}
	if getMutators != nil {
		getMutators(func(tls uintptr) { it.queue = append(it.queue, tls) })
	}
	return it
}

// Next pops the next mutator off the front of the queue. The second
// return value is false once the queue is empty.
func (it *MutatorIterator) Next() (uintptr, bool) {
	if len(it.queue) == 0 {
		return 0, false
	}
	m := it.queue[0]
	it.queue = it.queue[1:]
	return m, true
}

// Adapter forwards the remaining Active-Plan queries directly to the
// published upcall table.
type Adapter struct {
	Binding *binding.Binding
}

// Mutators returns a fresh MutatorIterator over every currently live
// mutator.
func (a Adapter) Mutators() *MutatorIterator {
	u := a.Binding.Upcalls()
	if u == nil {
		return &MutatorIterator{}
	}
	return NewMutatorIterator(u.GetMutators)
}

// NumberOfMutators forwards to the client's number_of_mutators upcall.
func (a Adapter) NumberOfMutators() int {
	if u := a.Binding.Upcalls(); u != nil && u.NumberOfMutators != nil {
		return u.NumberOfMutators()
	}
	return 0
}

// IsMutator forwards to the client's is_mutator upcall.
func (a Adapter) IsMutator(tls uintptr) bool {
	if u := a.Binding.Upcalls(); u != nil && u.IsMutator != nil {
		return u.IsMutator(tls)
	}
	return false
}

// Mutator forwards to the client's get_mmtk_mutator upcall, returning the
// opaque mutator reference for tls.
func (a Adapter) Mutator(tls uintptr) uintptr {
	if u := a.Binding.Upcalls(); u != nil && u.GetMMTkMutator != nil {
		return u.GetMMTkMutator(tls)
	}
	return 0
}
