package command

import (
	"github.com/espalier-cmd/espalier/pkgs/cmderr"
	"github.com/espalier-cmd/espalier/pkgs/invariant"
)

// User-supplied callables come in a small fixed set of shapes: a prefix of
// (source, context) for callbacks, predicates, message getters and
// suggestion getters, or a prefix of (source, error, context) for error
// handlers. Each builder method normalizes the supplied function into a
// full-arity closure wrapper at registration time, so dispatch invokes every
// callable uniformly.

type (
	runCallback     func(source Source, ctx *Context)
	boolCallback    func(source Source, ctx *Context) bool
	messageCallback func(source Source, ctx *Context) string
	errorCallback   func(source Source, err *cmderr.Error, ctx *Context)
	suggestCallback func(source Source, ctx *Context) []string
)

func adaptRun(fn any) runCallback {
	switch f := fn.(type) {
	case func():
		return func(Source, *Context) { f() }
	case func(Source):
		return func(source Source, _ *Context) { f(source) }
	case func(Source, *Context):
		return f
	}
	invariant.Precondition(false, "Runs callback must be func(), func(source) or func(source, *Context), got %T", fn)
	return nil
}

func adaptRequirement(fn any) boolCallback {
	switch f := fn.(type) {
	case func() bool:
		return func(Source, *Context) bool { return f() }
	case func(Source) bool:
		return func(source Source, _ *Context) bool { return f(source) }
	case func(Source, *Context) bool:
		return f
	}
	invariant.Precondition(false, "Requires predicate must be func() bool, func(source) bool or func(source, *Context) bool, got %T", fn)
	return nil
}

func adaptMessage(fn any) messageCallback {
	switch f := fn.(type) {
	case string:
		return func(Source, *Context) string { return f }
	case func() string:
		return func(Source, *Context) string { return f() }
	case func(Source) string:
		return func(source Source, _ *Context) string { return f(source) }
	case func(Source, *Context) string:
		return f
	}
	invariant.Precondition(false, "failure message must be a string or a func returning string, got %T", fn)
	return nil
}

func adaptErrorHandler(fn any) errorCallback {
	switch f := fn.(type) {
	case func():
		return func(Source, *cmderr.Error, *Context) { f() }
	case func(Source):
		return func(source Source, _ *cmderr.Error, _ *Context) { f(source) }
	case func(Source, *cmderr.Error):
		return func(source Source, err *cmderr.Error, _ *Context) { f(source, err) }
	case func(Source, *cmderr.Error, *Context):
		return f
	}
	invariant.Precondition(false, "error handler must accept a prefix of (source, *cmderr.Error, *Context), got %T", fn)
	return nil
}

func adaptSuggestions(fn any) suggestCallback {
	switch f := fn.(type) {
	case []string:
		return func(Source, *Context) []string { return f }
	case func() []string:
		return func(Source, *Context) []string { return f() }
	case func(Source) []string:
		return func(source Source, _ *Context) []string { return f(source) }
	case func(Source, *Context) []string:
		return f
	}
	invariant.Precondition(false, "Suggests getter must be a []string or a func returning []string, got %T", fn)
	return nil
}
