// Package registry maps root literal words to frozen command trees and
// routes incoming lines to them.
//
// A Registry is the shared front door for every command source (console,
// manifest loader, tests). Trees are validated and frozen at registration,
// so lookups and dispatch need only a read lock.
package registry

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/espalier-cmd/espalier/pkgs/cmderr"
	"github.com/espalier-cmd/espalier/pkgs/command"
	"github.com/espalier-cmd/espalier/pkgs/invariant"
)

const divider = ' '

// Registry holds registered command roots keyed by literal word.
// Uses the database/sql driver registration pattern: register once at
// startup, look up many times.
type Registry struct {
	mu    sync.RWMutex
	roots map[string]*command.Node // word -> root
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		roots: make(map[string]*command.Node),
	}
}

// Register validates, freezes and installs a root under each of its
// literal words. Registering a word that is already taken replaces the
// previous mapping: the last registration wins, and the displaced root
// stays reachable through any of its other words.
//
// The root must be a literal node. Redirect cycles anywhere in the tree
// are reported as an error before anything is installed.
func (r *Registry) Register(root *command.Node) error {
	invariant.NotNil(root, "root")
	invariant.Precondition(root.IsLiteral(), "Register: root must be a literal node, got %s", root)

	if err := root.ValidateRedirects(); err != nil {
		return err
	}
	root.Freeze()

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, word := range root.Literals() {
		r.roots[word] = root
	}
	return nil
}

// Unregister removes the mapping for a single word. Other words of the
// same root are untouched. Returns whether the word was registered.
func (r *Registry) Unregister(word string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.roots[word]
	delete(r.roots, word)
	return ok
}

// Lookup retrieves the root registered under a word.
func (r *Registry) Lookup(word string) (*command.Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	root, ok := r.roots[word]
	return root, ok
}

// Words returns every registered root word, sorted.
func (r *Registry) Words() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	words := make([]string, 0, len(r.roots))
	for w := range r.roots {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// Execute routes a line to the root registered under its first word and
// dispatches it. An unrecognized first word yields an UnknownCommand
// error: a normal outcome for user input, not a defect.
//
// Error offsets are relative to the trimmed line actually dispatched.
func (r *Registry) Execute(source command.Source, line string, opts ...command.ExecOption) error {
	trimmed := strings.TrimLeft(line, string(divider))
	word := firstWord(trimmed)
	if word == "" {
		return cmderr.New(cmderr.UnknownCommand, 0, "empty command")
	}

	root, ok := r.Lookup(word)
	if !ok {
		msg := "unknown command " + strconv.Quote(word)
		if hint := r.Closest(word); hint != "" {
			msg += ", did you mean " + strconv.Quote(hint) + "?"
		}
		return cmderr.New(cmderr.UnknownCommand, 0, "%s", msg)
	}
	return root.Execute(source, trimmed, opts...)
}

// Suggest completes a partial line. Before the first word is finished it
// offers matching root words; afterwards it delegates to the owning tree.
func (r *Registry) Suggest(source command.Source, line string) []string {
	trimmed := strings.TrimLeft(line, string(divider))
	if !strings.ContainsRune(trimmed, divider) {
		return r.matchingWords(trimmed)
	}
	root, ok := r.Lookup(firstWord(trimmed))
	if !ok {
		return nil
	}
	return root.Suggest(source, trimmed)
}

// Closest finds the registered word nearest to name using fuzzy matching.
// Returns "" when nothing ranks.
func (r *Registry) Closest(name string) string {
	words := r.Words()
	if len(words) == 0 {
		return ""
	}
	ranks := fuzzy.RankFindFold(name, words)
	if len(ranks) == 0 {
		return ""
	}
	sort.Sort(ranks)
	return ranks[0].Target
}

func (r *Registry) matchingWords(prefix string) []string {
	var out []string
	for _, w := range r.Words() {
		if strings.HasPrefix(w, prefix) {
			out = append(out, w)
		}
	}
	return out
}

func firstWord(s string) string {
	if i := strings.IndexRune(s, divider); i >= 0 {
		return s[:i]
	}
	return s
}
