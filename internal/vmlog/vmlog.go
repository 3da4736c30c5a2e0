// Package vmlog is the binding's level-prefixed logging wrapper. The
// corpus never reaches for a structured logger (golang-debug, the ogle
// subsystem, and the other retrieved repos all print through fmt or the
// standard log package), so this wraps log.Logger the same way
// cmd/viewcore accumulates and prints warnings, rather than pulling in a
// third-party logging library nothing in the pack uses.
package vmlog

import (
	"fmt"
	"log"
	"os"
	"sync"
)

var std = log.New(os.Stderr, "", log.LstdFlags)

var (
	mu       sync.Mutex
	warnings []string
)

// Warn logs a recoverable condition and records it in the accumulated
// warnings list, mirroring cmd/viewcore's p.warnings slice.
func Warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	mu.Lock()
	warnings = append(warnings, msg)
	mu.Unlock()
	std.Printf("[mmtk] WARN: %s", msg)
}

// Warnings returns every warning logged so far, in order. Used by
// cmd/mmtkctl's status subcommand.
func Warnings() []string {
	mu.Lock()
	defer mu.Unlock()
	out := make([]string, len(warnings))
	copy(out, warnings)
	return out
}

// Fatalf logs a process-fatal invariant violation (spec §7, kind 3) and
// terminates the process, matching cmd/viewcore's exitf helper.
func Fatalf(format string, args ...any) {
	std.Printf("[mmtk] FATAL: %s", fmt.Sprintf(format, args...))
	os.Exit(2)
}
