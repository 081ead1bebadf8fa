// Package cmderr defines the error taxonomy for command parsing and dispatch.
//
// Every failure raised while matching a command line is an *Error carrying a
// Kind, a human message, and the character offset at which parsing had
// progressed when the failure occurred. Kinds form a tree: handlers installed
// on command nodes match an error by its exact kind or by any ancestor kind,
// so the hierarchy is represented as a kind tag plus a parent table rather
// than as wrapped error chains.
package cmderr

import (
	"fmt"
	"strings"
	"sync"
)

// Kind identifies one node of the error taxonomy.
type Kind int

// Built-in kinds. CommandError is the root of the taxonomy.
const (
	CommandError Kind = iota

	// Syntax covers malformed input at a specific offset.
	Syntax
	InvalidNumber
	InvalidInteger
	InvalidFloat
	NumberOutOfRange
	TextLengthOutOfRange
	UnterminatedQuote
	IllegalEscape
	LiteralMismatch

	// UnknownCommand means no registered root literal matched the first token.
	UnknownCommand
	// UnknownArgument means a node's children collectively rejected the
	// remaining text.
	UnknownArgument
	// UnknownRootArgument is UnknownArgument at depth zero.
	UnknownRootArgument
	// RequirementNotMet means a node's requirement gate rejected the source.
	RequirementNotMet
	// IncompleteCommand means the input is a valid prefix of a longer command.
	IncompleteCommand

	numBuiltin
)

type kindInfo struct {
	name   string
	parent Kind
}

var (
	kindMu sync.RWMutex
	kinds  = []kindInfo{
		CommandError:         {"command error", CommandError},
		Syntax:               {"syntax error", CommandError},
		InvalidNumber:        {"invalid number", Syntax},
		InvalidInteger:       {"invalid integer", InvalidNumber},
		InvalidFloat:         {"invalid float", InvalidNumber},
		NumberOutOfRange:     {"number out of range", Syntax},
		TextLengthOutOfRange: {"text length out of range", Syntax},
		UnterminatedQuote:    {"unterminated quoted text", Syntax},
		IllegalEscape:        {"illegal escape", Syntax},
		LiteralMismatch:      {"literal mismatch", Syntax},
		UnknownCommand:       {"unknown command", CommandError},
		UnknownArgument:      {"unknown argument", CommandError},
		UnknownRootArgument:  {"unknown root argument", UnknownArgument},
		RequirementNotMet:    {"requirement not met", CommandError},
		IncompleteCommand:    {"incomplete command", CommandError},
	}
)

// NewKind registers a custom error kind under the given parent and returns
// its tag. Custom node implementations register their kinds once, during
// program initialization, before any dispatch runs.
func NewKind(name string, parent Kind) Kind {
	kindMu.Lock()
	defer kindMu.Unlock()
	if parent < 0 || int(parent) >= len(kinds) {
		panic(fmt.Sprintf("cmderr: NewKind(%q): unknown parent kind %d", name, parent))
	}
	k := Kind(len(kinds))
	kinds = append(kinds, kindInfo{name: name, parent: parent})
	return k
}

// String returns the kind's registered name.
func (k Kind) String() string {
	kindMu.RLock()
	defer kindMu.RUnlock()
	if k < 0 || int(k) >= len(kinds) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kinds[k].name
}

// Parent returns the kind's parent in the taxonomy. The root kind
// CommandError is its own parent.
func (k Kind) Parent() Kind {
	kindMu.RLock()
	defer kindMu.RUnlock()
	if k < 0 || int(k) >= len(kinds) {
		return CommandError
	}
	return kinds[k].parent
}

// Is reports whether ancestor equals k or appears on k's parent chain.
func (k Kind) Is(ancestor Kind) bool {
	for {
		if k == ancestor {
			return true
		}
		parent := k.Parent()
		if parent == k {
			return false
		}
		k = parent
	}
}

// Error is a command parsing or dispatch failure.
type Error struct {
	Kind    Kind
	Message string
	// Offset is the number of characters of the original input consumed
	// when the failure occurred.
	Offset int

	handled bool
}

// New creates an Error of the given kind at the given offset.
func New(kind Kind, offset int, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Offset:  offset,
		Message: fmt.Sprintf(format, args...),
	}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Message
}

// IsKind reports whether the error's kind is the given kind or a descendant
// of it.
func (e *Error) IsKind(kind Kind) bool {
	return e.Kind.Is(kind)
}

// SetHandled marks the error as resolved by a node's error handler.
// A handled error stops intercepting further up the tree and is not
// surfaced by Execute.
func (e *Error) SetHandled() {
	e.handled = true
}

// Handled reports whether the error was resolved by an error handler.
func (e *Error) Handled() bool {
	return e.handled
}

// Snippet renders the original input with a caret marking the offset at
// which parsing stopped:
//
//	!!email remove abc
//	               ^
func (e *Error) Snippet(line string) string {
	offset := e.Offset
	if offset < 0 {
		offset = 0
	}
	if offset > len(line) {
		offset = len(line)
	}
	var sb strings.Builder
	sb.WriteString(line)
	sb.WriteByte('\n')
	sb.WriteString(strings.Repeat(" ", offset))
	sb.WriteByte('^')
	return sb.String()
}
