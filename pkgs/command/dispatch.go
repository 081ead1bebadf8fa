package command

import (
	"github.com/espalier-cmd/espalier/pkgs/cmderr"
	"github.com/espalier-cmd/espalier/pkgs/invariant"
)

// DispatchTelemetry collects counters for one execution when enabled.
// Zero overhead when not requested, matching the opt-in telemetry shape of
// the rest of the engine's surfaces.
type DispatchTelemetry struct {
	NodesVisited  int
	ChildrenTried int
	ErrorsRaised  int
}

// ExecOption configures a single execution.
type ExecOption func(*walker)

// WithTelemetry records dispatch counters into t during the execution.
func WithTelemetry(t *DispatchTelemetry) ExecOption {
	return func(w *walker) { w.telemetry = t }
}

// walker carries the per-invocation state of one recursive descent. It is
// created fresh per Execute call and never shared; the tree itself is only
// read.
type walker struct {
	source    Source
	ctx       *Context
	input     string
	telemetry *DispatchTelemetry
}

// Execute matches line against the tree rooted at n and invokes the
// terminal callback of the matched path. The root must be a literal node.
//
// A nil return means the command ran (or was recognized as a no-op, or its
// error was resolved by a handled=true interceptor). A non-nil return is
// always a *cmderr.Error positioned at the offset where matching stopped;
// surfacing it to the issuing source is the caller's concern.
func (n *Node) Execute(source Source, line string, opts ...ExecOption) error {
	invariant.Precondition(n.kind == kindLiteral, "Execute: root node %s must be a literal", n)
	w := &walker{
		source: source,
		ctx:    newContext(source, line),
		input:  line,
	}
	for _, opt := range opts {
		opt(w)
	}
	err := w.advance(n, line)
	if err == nil || err.Handled() {
		return nil
	}
	if err.Kind == cmderr.LiteralMismatch {
		// Only the root's own parse can surface a literal mismatch: deeper
		// literal children are chosen by exact token lookup and cannot fail
		// to match. Distinguish it for top-level messaging.
		err = cmderr.New(cmderr.UnknownRootArgument, err.Offset, "unknown command root %q", nextToken(line))
	}
	return err
}

// advance runs the matching algorithm for one node: requirement gate,
// self-parse, terminal check, delegation, error interception. text is the
// unconsumed tail of w.input.
func (w *walker) advance(n *Node, text string) *cmderr.Error {
	if w.telemetry != nil {
		w.telemetry.NodesVisited++
	}
	base := len(w.input) - len(text)

	// Requirement gate, before anything is consumed. The gate does not move
	// the offset: a rejection points at the position before this node ran.
	if n.requirement != nil && !w.passes(n) {
		msg := "requirement not met"
		if n.failureMsg != nil {
			msg = n.failureMsg(w.source, w.ctx)
		}
		return w.raise(n, cmderr.New(cmderr.RequirementNotMet, base, "%s", msg))
	}

	// Self-parse.
	res, perr := n.selfParse(text)
	if perr != nil {
		perr.Offset += base
		return w.raise(n, perr)
	}
	if n.name != "" {
		w.ctx.store(n.name, res.Value)
	}
	rest := skipDivider(text[res.Consumed:])

	// Terminal check.
	if rest == "" {
		if n.callback != nil {
			n.callback(w.source, w.ctx)
			return nil
		}
		if !n.hasChildren() && n.redirect == nil {
			// Recognized, nothing to do.
			return nil
		}
		return w.raise(n, cmderr.New(cmderr.IncompleteCommand, len(w.input), "incomplete command"))
	}

	// Delegation. A redirect substitutes the target's children for this
	// node's own; chains of redirects resolve to the first node that owns
	// its children. Acyclicity is validated at registration.
	target := n
	for target.redirect != nil {
		target = target.redirect
	}

	offset := len(w.input) - len(rest)
	tok := nextToken(rest)
	if matched := target.childLiterals[tok]; len(matched) > 0 {
		// Literal match is exact and takes absolute priority over argument
		// children: on failure the literal branch's error surfaces without
		// falling back to argument children.
		var last *cmderr.Error
		for _, child := range matched {
			if w.telemetry != nil {
				w.telemetry.ChildrenTried++
			}
			err := w.advance(child, rest)
			if err == nil {
				return nil
			}
			if err.Handled() {
				return err
			}
			last = err
		}
		return w.intercept(n, last)
	}

	// Argument children in declaration order; first success wins. Failures
	// are remembered and the one that progressed furthest surfaces as the
	// best partial match.
	var best *cmderr.Error
	for _, child := range target.children {
		if w.telemetry != nil {
			w.telemetry.ChildrenTried++
		}
		before := w.ctx.snapshot()
		err := w.advance(child, rest)
		if err == nil {
			return nil
		}
		if err.Handled() {
			return err
		}
		w.ctx.restore(before)
		if best == nil || err.Offset > best.Offset {
			best = err
		}
	}
	if best != nil {
		return w.intercept(n, best)
	}
	return w.raise(n, cmderr.New(cmderr.UnknownArgument, offset, "unknown argument %q", tok))
}

// passes evaluates the requirement gate. A panicking predicate counts as a
// rejection, mirroring the gate contract that a throwing requirement blocks
// descent rather than aborting the dispatcher.
func (w *walker) passes(n *Node) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return n.requirement(w.source, w.ctx)
}

// raise gives the node raising the error the first interception chance,
// then returns the error for propagation.
func (w *walker) raise(n *Node, err *cmderr.Error) *cmderr.Error {
	if w.telemetry != nil {
		w.telemetry.ErrorsRaised++
	}
	w.run(n.handlers, err)
	return err
}

// intercept handles an error bubbling out of a delegated child: the child
// interception handlers run first, then the node's general handlers. Each
// node on the propagation path gets this one chance; a handled error skips
// all further interception.
func (w *walker) intercept(n *Node, err *cmderr.Error) *cmderr.Error {
	w.run(n.childHandlers, err)
	w.run(n.handlers, err)
	return err
}

func (w *walker) run(handlers []errorHandler, err *cmderr.Error) {
	if err.Handled() {
		return
	}
	for _, h := range handlers {
		if err.Kind.Is(h.kind) {
			h.fn(w.source, err, w.ctx)
			if h.handled {
				err.SetHandled()
				return
			}
		}
	}
}
