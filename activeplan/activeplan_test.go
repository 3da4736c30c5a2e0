package activeplan

import (
	"testing"

	"github.com/mmtk-go/nativebinding/binding"
)

func TestMutatorIteratorFIFOOrder(t *testing.T) {
	order := []uintptr{0x10, 0x20, 0x30}
	it := NewMutatorIterator(func(visit binding.MutatorVisitor) {
		for _, m := range order {
			visit(m)
		}
	})

	for _, want := range order {
		got, ok := it.Next()
		if !ok {
			t.Fatalf("iterator exhausted early, want %x", want)
		}
		if got != want {
			t.Errorf("Next() = %x, want %x", got, want)
		}
	}
	if _, ok := it.Next(); ok {
		t.Error("expected iterator to be exhausted")
	}
}

func TestMutatorIteratorEmptyWhenNoCallback(t *testing.T) {
	it := NewMutatorIterator(nil)
	if _, ok := it.Next(); ok {
		t.Error("expected empty iterator when getMutators is nil")
	}
}

func TestAdapterForwardsUpcalls(t *testing.T) {
	b := binding.New()
	b.SetUpcalls(&binding.Upcalls{
		NumberOfMutators: func() int { return 3 },
		IsMutator:        func(tls uintptr) bool { return tls == 42 },
		GetMMTkMutator:   func(tls uintptr) uintptr { return tls + 1 },
	})
	a := Adapter{Binding: b}

	if got := a.NumberOfMutators(); got != 3 {
		t.Errorf("NumberOfMutators() = %d, want 3", got)
	}
	if !a.IsMutator(42) {
		t.Error("IsMutator(42) = false, want true")
	}
	if got := a.Mutator(42); got != 43 {
		t.Errorf("Mutator(42) = %d, want 43", got)
	}
}

func TestAdapterZeroValueBeforeUpcallsPublished(t *testing.T) {
	a := Adapter{Binding: binding.New()}
	if got := a.NumberOfMutators(); got != 0 {
		t.Errorf("NumberOfMutators() = %d, want 0 before upcalls published", got)
	}
	if a.IsMutator(1) {
		t.Error("IsMutator should report false before upcalls published")
	}
}
