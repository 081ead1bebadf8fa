// Package command implements the command-tree matching engine: typed
// argument nodes assembled into a tree by host code, matched against raw
// command lines, accumulating parsed values into a per-invocation Context
// and invoking a terminal callback or failing with a positioned
// *cmderr.Error.
//
// Trees are built with the fluent node constructors and builder methods,
// then handed to a registry which freezes them. Construction-time misuse
// (adding children after a redirect, mutating a frozen node, unsupported
// callback shapes) panics: those are programming errors, not user input
// errors.
package command

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/espalier-cmd/espalier/pkgs/cmderr"
	"github.com/espalier-cmd/espalier/pkgs/invariant"
)

type nodeKind int

const (
	kindLiteral nodeKind = iota
	kindInteger
	kindFloat
	kindNumber
	kindText
	kindQuotableText
	kindGreedyText
	kindCustom
)

func (k nodeKind) String() string {
	switch k {
	case kindLiteral:
		return "literal"
	case kindInteger:
		return "integer"
	case kindFloat:
		return "float"
	case kindNumber:
		return "number"
	case kindText:
		return "text"
	case kindQuotableText:
		return "quotable text"
	case kindGreedyText:
		return "greedy text"
	case kindCustom:
		return "custom"
	}
	return "unknown"
}

type errorHandler struct {
	kind    cmderr.Kind
	fn      errorCallback
	handled bool
}

// Node is one element of a command tree. Literal nodes match an exact
// keyword token and store nothing; argument nodes parse a typed value into
// the Context under their name. All fields are mutated only during tree
// construction; once a node is reachable from a registry it is frozen and
// dispatch treats it as read-only.
type Node struct {
	kind     nodeKind
	name     string   // context key, empty for literals
	literals []string // literal words in declaration order
	parse    ParseFunc

	// Numeric range bounds; either side optional.
	hasMin, hasMax bool
	min, max       float64

	// Text length bounds in runes; -1 means unbounded.
	minLen, maxLen int

	childLiterals map[string][]*Node
	children      []*Node
	callback      runCallback
	requirement   boolCallback
	failureMsg    messageCallback
	redirect      *Node
	handlers      []errorHandler
	childHandlers []errorHandler
	suggestions   suggestCallback

	frozen bool
}

func newNode(kind nodeKind, name string) *Node {
	return &Node{
		kind:          kind,
		name:          name,
		minLen:        -1,
		maxLen:        -1,
		childLiterals: make(map[string][]*Node),
	}
}

// Literal creates a node matching any of the given keyword words exactly
// (case-sensitive, whole token). Only literal nodes may be registered as
// command roots.
func Literal(words ...string) *Node {
	invariant.Precondition(len(words) > 0, "Literal needs at least one word")
	for _, w := range words {
		invariant.Precondition(w != "", "literal word must not be empty")
		invariant.Precondition(!strings.ContainsRune(w, divider), "literal word %q must not contain a divider", w)
	}
	n := newNode(kindLiteral, "")
	n.literals = append(n.literals, words...)
	return n
}

// Integer creates an argument node parsing an int64 into the context under
// name.
func Integer(name string) *Node { return newArgument(kindInteger, name) }

// Float creates an argument node parsing a float64 into the context under
// name.
func Float(name string) *Node { return newArgument(kindFloat, name) }

// Number creates an argument node parsing an int64 when the token is
// integral, else a float64.
func Number(name string) *Node { return newArgument(kindNumber, name) }

// Text creates an argument node parsing a single non-quoted word.
func Text(name string) *Node { return newArgument(kindText, name) }

// QuotableText creates an argument node parsing a single word or a quoted
// run with \" and \\ escapes.
func QuotableText(name string) *Node { return newArgument(kindQuotableText, name) }

// GreedyText creates an argument node consuming the entire remaining text.
// Nothing can follow it, so it is terminal in practice.
func GreedyText(name string) *Node { return newArgument(kindGreedyText, name) }

// Custom creates an argument node with a caller-supplied parse function.
// The parse contract is the same as every built-in node's: consume a prefix
// of the text or fail with a *cmderr.Error whose kind descends from
// cmderr.Syntax. No other extension surface exists or is needed.
func Custom(name string, parse ParseFunc) *Node {
	invariant.NotNil(parse, "parse")
	n := newArgument(kindCustom, name)
	n.parse = parse
	return n
}

func newArgument(kind nodeKind, name string) *Node {
	invariant.Precondition(name != "", "argument node needs a non-empty name")
	return newNode(kind, name)
}

// Name returns the context key the node stores its value under; empty for
// literal nodes.
func (n *Node) Name() string { return n.name }

// IsLiteral reports whether the node matches exact keyword tokens.
func (n *Node) IsLiteral() bool { return n.kind == kindLiteral }

// Kind returns the node's kind as a human-readable word.
func (n *Node) Kind() string { return n.kind.String() }

// Literals returns a copy of a literal node's words in declaration order;
// nil for argument nodes.
func (n *Node) Literals() []string {
	if n.kind != kindLiteral {
		return nil
	}
	words := make([]string, len(n.literals))
	copy(words, n.literals)
	return words
}

// Usage renders the node for help text: the literal words joined by "|" or
// "<name>" for argument nodes.
func (n *Node) Usage() string {
	if n.kind == kindLiteral {
		words := make([]string, len(n.literals))
		copy(words, n.literals)
		sort.Strings(words)
		return strings.Join(words, "|")
	}
	return "<" + n.name + ">"
}

func (n *Node) String() string {
	if n.kind == kindLiteral {
		return fmt.Sprintf("literal %s", n.Usage())
	}
	return fmt.Sprintf("%s %s", n.kind, n.Usage())
}

// mutable guards every builder method against post-registration mutation.
func (n *Node) mutable(op string) {
	invariant.Precondition(!n.frozen, "%s: node %s is frozen; command trees are immutable once registered", op, n)
}

// Then adds a child node. Literal children are indexed by each of their
// words for exact lookup during dispatch; argument children are tried in
// declaration order.
func (n *Node) Then(child *Node) *Node {
	n.mutable("Then")
	invariant.NotNil(child, "child")
	invariant.Precondition(n.redirect == nil, "Then: node %s redirects; a redirecting node cannot take children", n)
	if child.kind == kindLiteral {
		for _, w := range child.literals {
			n.childLiterals[w] = append(n.childLiterals[w], child)
		}
	} else {
		n.children = append(n.children, child)
	}
	return n
}

// Runs sets the terminal callback invoked when the command line ends at
// this node. fn accepts a prefix of (source, *Context).
func (n *Node) Runs(fn any) *Node {
	n.mutable("Runs")
	n.callback = adaptRun(fn)
	return n
}

// Requires gates entry to this node on a predicate over a prefix of
// (source, *Context). An optional failure message, either a string
// constant or a getter with the same shape, replaces the default message
// when the gate rejects.
func (n *Node) Requires(fn any, failureMessage ...any) *Node {
	n.mutable("Requires")
	invariant.Precondition(len(failureMessage) <= 1, "Requires takes at most one failure message")
	n.requirement = adaptRequirement(fn)
	if len(failureMessage) == 1 {
		n.failureMsg = adaptMessage(failureMessage[0])
	}
	return n
}

// Redirects aliases this node's continuation to target: descent past this
// node uses target's children instead of its own. The target subtree is
// shared, never copied, so the redirect graph must stay acyclic; the
// registry validates that at registration.
func (n *Node) Redirects(target *Node) *Node {
	n.mutable("Redirects")
	invariant.NotNil(target, "target")
	invariant.Precondition(!n.hasChildren(), "Redirects: node %s has children; a node with children cannot redirect", n)
	n.redirect = target
	return n
}

// OnError intercepts errors of the given kind (or any descendant kind)
// passing through this node: raised by the node itself or propagating up
// from its subtree. With handled=true the error is resolved here and stops
// propagating; otherwise the handler observes and propagation continues.
// Handlers are consulted in registration order, one interception per node.
func (n *Node) OnError(kind cmderr.Kind, handler any, handled bool) *Node {
	n.mutable("OnError")
	n.handlers = append(n.handlers, errorHandler{kind: kind, fn: adaptErrorHandler(handler), handled: handled})
	return n
}

// OnChildError is like OnError but fires only for errors arriving from a
// delegated child, not for errors this node raises itself. It is consulted
// before the node's own OnError handlers.
func (n *Node) OnChildError(kind cmderr.Kind, handler any, handled bool) *Node {
	n.mutable("OnChildError")
	n.childHandlers = append(n.childHandlers, errorHandler{kind: kind, fn: adaptErrorHandler(handler), handled: handled})
	return n
}

// Suggests sets the completion candidate getter for this argument node: a
// []string constant or a getter over a prefix of (source, *Context).
// Literal nodes always suggest their own words.
func (n *Node) Suggests(fn any) *Node {
	n.mutable("Suggests")
	invariant.Precondition(n.kind != kindLiteral, "Suggests: literal nodes suggest their own words")
	n.suggestions = adaptSuggestions(fn)
	return n
}

// AtMin sets the inclusive lower bound of a numeric argument node.
func (n *Node) AtMin(v float64) *Node {
	n.mutable("AtMin")
	n.numeric("AtMin")
	n.hasMin, n.min = true, v
	return n
}

// AtMax sets the inclusive upper bound of a numeric argument node.
func (n *Node) AtMax(v float64) *Node {
	n.mutable("AtMax")
	n.numeric("AtMax")
	n.hasMax, n.max = true, v
	return n
}

func (n *Node) numeric(op string) {
	invariant.Precondition(n.kind == kindInteger || n.kind == kindFloat || n.kind == kindNumber,
		"%s: node %s is not numeric", op, n)
}

// MinLength sets the inclusive minimum decoded length, in runes, of a text
// argument node.
func (n *Node) MinLength(l int) *Node {
	n.mutable("MinLength")
	n.textual("MinLength")
	n.minLen = l
	return n
}

// MaxLength sets the inclusive maximum decoded length, in runes, of a text
// argument node.
func (n *Node) MaxLength(l int) *Node {
	n.mutable("MaxLength")
	n.textual("MaxLength")
	n.maxLen = l
	return n
}

func (n *Node) textual(op string) {
	invariant.Precondition(n.kind == kindText || n.kind == kindQuotableText || n.kind == kindGreedyText,
		"%s: node %s is not a text node", op, n)
}

func (n *Node) hasChildren() bool {
	return len(n.children) > 0 || len(n.childLiterals) > 0
}

// Executable reports whether a terminal callback is set on the node.
func (n *Node) Executable() bool { return n.callback != nil }

// RedirectTarget returns the node this node's continuation aliases to, or
// nil.
func (n *Node) RedirectTarget() *Node { return n.redirect }

// Children returns every distinct child in a stable order: literal children
// by first indexed word, then argument children in declaration order.
func (n *Node) Children() []*Node {
	var words []string
	for w := range n.childLiterals {
		words = append(words, w)
	}
	sort.Strings(words)
	seen := make(map[*Node]bool)
	var out []*Node
	for _, w := range words {
		for _, child := range n.childLiterals[w] {
			if !seen[child] {
				seen[child] = true
				out = append(out, child)
			}
		}
	}
	out = append(out, n.children...)
	return out
}

// selfParse runs the node's own parsing step over text. Error offsets are
// relative to text; the dispatcher rebases them onto the full input line.
func (n *Node) selfParse(text string) (ParseResult, *cmderr.Error) {
	switch n.kind {
	case kindLiteral:
		tok := nextToken(text)
		for _, w := range n.literals {
			if tok == w {
				return ParseResult{Consumed: len(tok)}, nil
			}
		}
		return ParseResult{}, cmderr.New(cmderr.LiteralMismatch, len(tok), "expected %s, got %q", n.Usage(), tok)
	case kindInteger:
		return n.checkBounds(parseInteger(text))
	case kindFloat:
		return n.checkBounds(parseFloat(text))
	case kindNumber:
		return n.checkBounds(parseNumber(text))
	case kindText:
		return n.checkLength(parseText(text))
	case kindQuotableText:
		return n.checkLength(parseQuotableText(text))
	case kindGreedyText:
		return n.checkLength(parseGreedy(text))
	case kindCustom:
		res, err := n.parse(text)
		if err == nil {
			return res, nil
		}
		if cerr, ok := err.(*cmderr.Error); ok {
			return ParseResult{}, cerr
		}
		// Custom parsers returning plain errors fold into the generic
		// syntax kind with nothing consumed.
		return ParseResult{}, cmderr.New(cmderr.Syntax, 0, "%s", err.Error())
	}
	panic("unreachable node kind")
}

// checkBounds enforces numeric range bounds after a successful conversion.
// The token's characters stay consumed on a range failure, so the error
// offset still spans the token.
func (n *Node) checkBounds(res ParseResult, err error) (ParseResult, *cmderr.Error) {
	if err != nil {
		return ParseResult{}, err.(*cmderr.Error)
	}
	var v float64
	switch value := res.Value.(type) {
	case int64:
		v = float64(value)
	case float64:
		v = value
	}
	if (n.hasMin && v < n.min) || (n.hasMax && v > n.max) {
		return ParseResult{}, cmderr.New(cmderr.NumberOutOfRange, res.Consumed,
			"number %v out of range %s", res.Value, n.boundsUsage())
	}
	return res, nil
}

func (n *Node) boundsUsage() string {
	low, high := "-inf", "+inf"
	if n.hasMin {
		low = fmt.Sprintf("%v", n.min)
	}
	if n.hasMax {
		high = fmt.Sprintf("%v", n.max)
	}
	return fmt.Sprintf("[%s, %s]", low, high)
}

// checkLength enforces decoded text length bounds.
func (n *Node) checkLength(res ParseResult, err error) (ParseResult, *cmderr.Error) {
	if err != nil {
		return ParseResult{}, err.(*cmderr.Error)
	}
	if n.minLen < 0 && n.maxLen < 0 {
		return res, nil
	}
	length := utf8.RuneCountInString(res.Value.(string))
	if (n.minLen >= 0 && length < n.minLen) || (n.maxLen >= 0 && length > n.maxLen) {
		return ParseResult{}, cmderr.New(cmderr.TextLengthOutOfRange, res.Consumed,
			"text length %d out of range [%d, %d]", length, n.minLen, n.maxLen)
	}
	return res, nil
}

// ownSuggestions returns the node's completion candidates: literal words
// for literal nodes, the Suggests getter for argument nodes.
func (n *Node) ownSuggestions(source Source, ctx *Context) []string {
	if n.kind == kindLiteral {
		words := make([]string, len(n.literals))
		copy(words, n.literals)
		return words
	}
	if n.suggestions != nil {
		return n.suggestions(source, ctx)
	}
	return nil
}

// Freeze marks the node and everything reachable from it immutable.
// Registries call this at registration; afterwards every builder method
// panics. Freeze follows redirect targets, so a shared target subtree is
// frozen along with its aliasing tree.
func (n *Node) Freeze() {
	n.freeze(make(map[*Node]bool))
}

func (n *Node) freeze(visited map[*Node]bool) {
	if visited[n] {
		return
	}
	visited[n] = true
	n.frozen = true
	for _, nodes := range n.childLiterals {
		for _, child := range nodes {
			child.freeze(visited)
		}
	}
	for _, child := range n.children {
		child.freeze(visited)
	}
	if n.redirect != nil {
		n.redirect.freeze(visited)
	}
}

// ValidateRedirects walks everything reachable from n and reports an error
// if following redirect pointers from any node closes a cycle. A redirect
// consumes no input, so a cycle would recurse unboundedly at dispatch time.
func (n *Node) ValidateRedirects() error {
	visited := make(map[*Node]bool)
	var walk func(node *Node) error
	walk = func(node *Node) error {
		if visited[node] {
			return nil
		}
		visited[node] = true
		if node.redirect != nil {
			seen := make(map[*Node]bool)
			for hop := node; hop != nil; hop = hop.redirect {
				if seen[hop] {
					return fmt.Errorf("redirect cycle through node %s", hop)
				}
				seen[hop] = true
			}
		}
		for _, child := range node.Children() {
			if err := walk(child); err != nil {
				return err
			}
		}
		if node.redirect != nil {
			return walk(node.redirect)
		}
		return nil
	}
	return walk(n)
}
