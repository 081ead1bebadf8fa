// Package invariant provides contract assertions for espalier.
//
// Command trees are built once by host code and frozen before dispatch, so
// every violation caught here is a programming error in tree construction,
// never a user input error. All functions panic on violation.
package invariant

import (
	"fmt"
	"runtime"
)

// Precondition checks an input contract at function entry.
// Panics with PRECONDITION VIOLATION if condition is false.
func Precondition(condition bool, format string, args ...any) {
	if !condition {
		fail("PRECONDITION", format, args...)
	}
}

// Invariant checks an internal consistency condition.
// Panics with INVARIANT VIOLATION if condition is false.
func Invariant(condition bool, format string, args ...any) {
	if !condition {
		fail("INVARIANT", format, args...)
	}
}

// NotNil panics if value is nil. Interface values wrapping typed nil
// pointers are not detected; callers pass concrete pointers here.
func NotNil(value any, name string) {
	if value == nil {
		fail("PRECONDITION", "%s must not be nil", name)
	}
}

// fail panics with a formatted message plus the file:line of the caller
// that violated the contract.
func fail(kind, format string, args ...any) {
	msg := fmt.Sprintf(kind+" VIOLATION: "+format, args...)
	// Skip fail() and the exported wrapper to report the violation site.
	pc := make([]uintptr, 4)
	n := runtime.Callers(3, pc)
	if n > 0 {
		frames := runtime.CallersFrames(pc[:n])
		// Next's boolean only signals further frames; the frame it returned
		// is valid whenever a PC was captured.
		frame, _ := frames.Next()
		if frame.PC != 0 {
			msg += fmt.Sprintf("\n  at %s:%d", frame.File, frame.Line)
		}
	}
	panic(msg)
}
