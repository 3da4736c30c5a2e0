package config

import "testing"

func TestProcessUnknownOptionFails(t *testing.T) {
	o := NewOptions()
	if o.Process("bogus", "1") {
		t.Fatal("expected unknown option to return false")
	}
}

func TestProcessPlanAcceptsImmix(t *testing.T) {
	o := NewOptions()
	if !o.Process("plan", "Immix") {
		t.Fatal("expected plan=Immix to succeed")
	}
	if o.Plan != PlanImmix {
		t.Errorf("Plan = %v, want %v", o.Plan, PlanImmix)
	}
}

func TestProcessPlanRejectsUnknownPlan(t *testing.T) {
	o := NewOptions()
	if o.Process("plan", "MarkCompact") {
		t.Fatal("expected compacting plan to be rejected (non-goal)")
	}
}

func TestHeapTriggerFixedWhenMinEqualsMax(t *testing.T) {
	o := NewOptions()
	if !o.Process("min_heap_size", "1048576") {
		t.Fatal("min_heap_size should be accepted")
	}
	if !o.Process("max_heap_size", "1048576") {
		t.Fatal("max_heap_size should be accepted")
	}
	if !o.Trigger.Fixed {
		t.Error("expected a fixed heap trigger when min == max")
	}
}

func TestHeapTriggerDynamicWhenMinLessThanMax(t *testing.T) {
	o := NewOptions()
	o.Process("min_heap_size", "1048576")
	o.Process("max_heap_size", "4194304")
	if o.Trigger.Fixed {
		t.Error("expected a dynamic heap trigger when min != max")
	}
}

func TestProcessRejectsUnparsableSize(t *testing.T) {
	o := NewOptions()
	if o.Process("min_heap_size", "not-a-number") {
		t.Fatal("expected unparsable size to return false")
	}
}
