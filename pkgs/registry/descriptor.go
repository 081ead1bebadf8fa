package registry

import (
	"github.com/espalier-cmd/espalier/pkgs/command"
)

// Descriptor is a serializable snapshot of a command (sub)tree: enough
// structure to render help text or ship the tree shape to another
// process, without callbacks or parse functions.
//
// Redirected continuations are flattened by usage string rather than
// expanded, so shared subtrees and alias chains stay finite.
type Descriptor struct {
	Kind       string       `json:"kind" cbor:"kind"`
	Usage      string       `json:"usage" cbor:"usage"`
	Name       string       `json:"name,omitempty" cbor:"name,omitempty"`
	Executable bool         `json:"executable,omitempty" cbor:"executable,omitempty"`
	RedirectTo string       `json:"redirect_to,omitempty" cbor:"redirect_to,omitempty"`
	Children   []Descriptor `json:"children,omitempty" cbor:"children,omitempty"`
}

// Describe snapshots a single tree.
func Describe(root *command.Node) Descriptor {
	d := Descriptor{
		Kind:       root.Kind(),
		Usage:      root.Usage(),
		Name:       root.Name(),
		Executable: root.Executable(),
	}
	if target := root.RedirectTarget(); target != nil {
		d.RedirectTo = target.Usage()
		return d
	}
	for _, child := range root.Children() {
		d.Children = append(d.Children, Describe(child))
	}
	return d
}

// Describe snapshots every registered tree, ordered by first root word.
// A root registered under several words appears once.
func (r *Registry) Describe() []Descriptor {
	seen := make(map[*command.Node]bool)
	var out []Descriptor
	for _, word := range r.Words() {
		root, ok := r.Lookup(word)
		if !ok || seen[root] {
			continue
		}
		seen[root] = true
		out = append(out, Describe(root))
	}
	return out
}
