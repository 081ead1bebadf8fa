package manifest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/espalier-cmd/espalier/pkgs/command"
	"github.com/espalier-cmd/espalier/pkgs/registry"
)

// Bindings resolve the symbolic names a manifest uses into behavior.
// Functions keep the shapes the command builders accept; an unknown name
// is a build error, a wrong shape panics like any other construction
// misuse.
type Bindings struct {
	Runs     map[string]any
	Requires map[string]any
	Suggests map[string]any
}

// Build turns a parsed manifest into command trees, one per entry in
// commands. Every root must be a literal node.
//
// Redirect targets are addressed by the path of first literal words from
// the root, joined by "/": "email/send" is the child literal send of the
// root whose first word is email. All paths are resolved after the whole
// document is built, so forward references work.
func Build(m Manifest, b Bindings) ([]*command.Node, error) {
	bld := &builder{bindings: b, paths: make(map[string]*command.Node)}

	roots := make([]*command.Node, 0, len(m.Commands))
	for i, spec := range m.Commands {
		if len(spec.Literal) == 0 {
			return nil, fmt.Errorf("commands[%d]: root must be a literal node", i)
		}
		node, err := bld.build(spec, "")
		if err != nil {
			return nil, err
		}
		roots = append(roots, node)
	}
	if err := bld.applyRedirects(); err != nil {
		return nil, err
	}
	return roots, nil
}

// Load parses raw manifest bytes and builds its trees.
func Load(data []byte, b Bindings) ([]*command.Node, error) {
	m, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return Build(m, b)
}

// Apply loads a manifest and registers every tree it defines.
func Apply(data []byte, b Bindings, reg *registry.Registry) error {
	roots, err := Load(data, b)
	if err != nil {
		return err
	}
	for _, root := range roots {
		if err := reg.Register(root); err != nil {
			return err
		}
	}
	return nil
}

// StubBindings builds no-op bindings for every symbolic name a manifest
// references. Useful for structural checking and export, where tree
// shape matters but behavior does not.
func StubBindings(m Manifest) Bindings {
	b := Bindings{
		Runs:     make(map[string]any),
		Requires: make(map[string]any),
		Suggests: make(map[string]any),
	}
	var walk func(NodeSpec)
	walk = func(spec NodeSpec) {
		if spec.Run != "" {
			b.Runs[spec.Run] = func() {}
		}
		if spec.Require != "" {
			b.Requires[spec.Require] = func() bool { return true }
		}
		if spec.SuggestFn != "" {
			b.Suggests[spec.SuggestFn] = func() []string { return nil }
		}
		for _, child := range spec.Children {
			walk(child)
		}
	}
	for _, spec := range m.Commands {
		walk(spec)
	}
	return b
}

type pendingRedirect struct {
	node *command.Node
	path string
	at   string
}

type builder struct {
	bindings  Bindings
	paths     map[string]*command.Node
	redirects []pendingRedirect
}

func (b *builder) build(spec NodeSpec, parentPath string) (*command.Node, error) {
	node, path, err := b.newNode(spec, parentPath)
	if err != nil {
		return nil, err
	}
	at := path
	if at == "" {
		at = "<" + spec.Argument + ">"
	}

	if spec.Run != "" {
		fn, ok := b.bindings.Runs[spec.Run]
		if !ok {
			return nil, fmt.Errorf("%s: unknown run binding %q", at, spec.Run)
		}
		node.Runs(fn)
	}
	if spec.Require != "" {
		fn, ok := b.bindings.Requires[spec.Require]
		if !ok {
			return nil, fmt.Errorf("%s: unknown require binding %q", at, spec.Require)
		}
		if spec.FailureMessage != "" {
			node.Requires(fn, spec.FailureMessage)
		} else {
			node.Requires(fn)
		}
	}
	if (len(spec.Suggest) > 0 || spec.SuggestFn != "") && len(spec.Literal) > 0 {
		return nil, fmt.Errorf("%s: literal nodes suggest their own words", at)
	}
	if len(spec.Suggest) > 0 {
		node.Suggests(spec.Suggest)
	}
	if spec.SuggestFn != "" {
		fn, ok := b.bindings.Suggests[spec.SuggestFn]
		if !ok {
			return nil, fmt.Errorf("%s: unknown suggest binding %q", at, spec.SuggestFn)
		}
		node.Suggests(fn)
	}

	if spec.Redirect != "" {
		b.redirects = append(b.redirects, pendingRedirect{node: node, path: spec.Redirect, at: at})
		return node, nil
	}
	for _, childSpec := range spec.Children {
		child, err := b.build(childSpec, path)
		if err != nil {
			return nil, err
		}
		node.Then(child)
	}
	return node, nil
}

// newNode constructs the bare node for a spec and records its path when it
// is a literal. Returns an empty path for argument nodes: they are not
// addressable as redirect targets.
func (b *builder) newNode(spec NodeSpec, parentPath string) (*command.Node, string, error) {
	if len(spec.Literal) > 0 {
		node := command.Literal(spec.Literal...)
		path := spec.Literal[0]
		if parentPath != "" {
			path = parentPath + "/" + path
		}
		if prev, dup := b.paths[path]; dup && prev != node {
			return nil, "", fmt.Errorf("duplicate literal path %q", path)
		}
		b.paths[path] = node
		return node, path, nil
	}

	var node *command.Node
	numeric := false
	switch spec.Type {
	case "integer":
		node, numeric = command.Integer(spec.Argument), true
	case "float":
		node, numeric = command.Float(spec.Argument), true
	case "number":
		node, numeric = command.Number(spec.Argument), true
	case "text":
		node = command.Text(spec.Argument)
	case "quotable_text":
		node = command.QuotableText(spec.Argument)
	case "greedy_text":
		node = command.GreedyText(spec.Argument)
	default:
		return nil, "", fmt.Errorf("argument %q: unsupported type %q", spec.Argument, spec.Type)
	}

	if (spec.Min != nil || spec.Max != nil) && !numeric {
		return nil, "", fmt.Errorf("argument %q: min/max require a numeric type, got %q", spec.Argument, spec.Type)
	}
	if (spec.MinLength != nil || spec.MaxLength != nil) && numeric {
		return nil, "", fmt.Errorf("argument %q: min_length/max_length require a text type, got %q", spec.Argument, spec.Type)
	}

	if spec.Min != nil {
		node.AtMin(*spec.Min)
	}
	if spec.Max != nil {
		node.AtMax(*spec.Max)
	}
	if spec.MinLength != nil {
		node.MinLength(*spec.MinLength)
	}
	if spec.MaxLength != nil {
		node.MaxLength(*spec.MaxLength)
	}
	return node, "", nil
}

func (b *builder) applyRedirects() error {
	for _, p := range b.redirects {
		target, ok := b.paths[p.path]
		if !ok {
			return fmt.Errorf("%s: redirect target %q not found; known paths: %s",
				p.at, p.path, strings.Join(b.knownPaths(), ", "))
		}
		p.node.Redirects(target)
	}
	return nil
}

func (b *builder) knownPaths() []string {
	out := make([]string, 0, len(b.paths))
	for path := range b.paths {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}
