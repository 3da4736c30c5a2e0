// Package config implements the mmtk_process(name, value) tuning-option
// table from spec §6: a small option struct, set by option name, with typed setters
// and a boolean success/failure result, modeled the way cmd/viewcore
// selects gocore.Flags per command and the way flag.String/flag.Bool
// validate CLI option values in cmd/viewcore/main.go.
package config

import "strconv"

// Plan names the GC plan selected via the "plan" option. Only the
// mark-region (Immix) plan is supported; this binding's Non-goals exclude
// compacting plans that require copy_to.
type Plan string

const (
	PlanImmix Plan = "Immix"
)

// HeapTrigger selects between a fixed and a dynamic heap size policy,
// per spec §6's tuning-options table.
type HeapTrigger struct {
	Fixed bool
	Min   uintptr
	Max   uintptr
}

// Options is the live, mutable tuning-option table built up by
// process() calls before mmtk_init, matching BUILDER's role in
// original_source/mmtk/src/api.rs (a Mutex<MMTKBuilder> mutated by
// mmtk_process, read once by mmtk_init).
type Options struct {
	Plan    Plan
	Trigger HeapTrigger
}

// NewOptions returns the default option table: Immix plan, no heap
// trigger configured yet (Process("min_heap_size"/"max_heap_size", ...)
// populates it).
func NewOptions() *Options {
	return &Options{Plan: PlanImmix}
}

// Process implements mmtk_process: sets one named option to value,
// returning false for an unknown option name or an unparsable value
// (spec §7, kind 1: configuration errors are returned as a boolean, never
// panicked on).
func (o *Options) Process(name, value string) bool {
	switch name {
	case "plan":
		switch Plan(value) {
		case PlanImmix:
			o.Plan = PlanImmix
			return true
		default:
			return false
		}
	case "min_heap_size":
		n, ok := parseSize(value)
		if !ok {
			return false
		}
		o.Trigger.Min = n
		o.resolveTrigger()
		return true
	case "max_heap_size":
		n, ok := parseSize(value)
		if !ok {
			return false
		}
		o.Trigger.Max = n
		o.resolveTrigger()
		return true
	default:
		return false
	}
}

func (o *Options) resolveTrigger() {
	o.Trigger.Fixed = o.Trigger.Min != 0 && o.Trigger.Min == o.Trigger.Max
}

func parseSize(value string) (uintptr, bool) {
	n, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, false
	}
	return uintptr(n), true
}
