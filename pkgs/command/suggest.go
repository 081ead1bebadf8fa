package command

import (
	"sort"
	"strings"
)

// Suggest returns completion candidates for the word being typed at the end
// of line: literal words of reachable children, argument suggestion getters
// along the matched path. Candidates are filtered by the trailing partial
// word, deduplicated and sorted. Parsing failures never escape a suggestion
// walk; they just end a branch.
func (n *Node) Suggest(source Source, line string) []string {
	w := &walker{
		source: source,
		ctx:    newContext(source, line),
		input:  line,
	}
	candidates := w.suggest(n, line)

	partial := line
	if i := strings.LastIndexByte(line, divider); i >= 0 {
		partial = line[i+1:]
	}
	seen := make(map[string]bool)
	var out []string
	for _, c := range candidates {
		if strings.HasPrefix(c, partial) && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

func (w *walker) suggest(n *Node, text string) []string {
	if n.requirement != nil && !w.passes(n) {
		return nil
	}
	res, perr := n.selfParse(text)
	if perr != nil {
		// The trailing word is an incomplete form of this node: offer the
		// node's own candidates for it.
		return n.ownSuggestions(w.source, w.ctx)
	}
	if n.name != "" {
		w.ctx.store(n.name, res.Value)
	}
	rest := skipDivider(text[res.Consumed:])
	if rest == "" {
		if res.Consumed == len(text) {
			// No trailing divider: the caller is still finishing this
			// node's token.
			return n.ownSuggestions(w.source, w.ctx)
		}
		// Trailing divider: a fresh word begins, candidates come from the
		// children starting words.
		target := n
		for target.redirect != nil {
			target = target.redirect
		}
		var out []string
		for _, child := range target.Children() {
			if child.requirement != nil && !w.passes(child) {
				continue
			}
			out = append(out, child.ownSuggestions(w.source, w.ctx)...)
		}
		return out
	}

	target := n
	for target.redirect != nil {
		target = target.redirect
	}
	tok := nextToken(rest)
	if matched := target.childLiterals[tok]; len(matched) > 0 {
		var out []string
		for _, child := range matched {
			out = append(out, w.suggest(child, rest)...)
		}
		return out
	}
	var out []string
	for _, child := range target.Children() {
		mark := w.ctx.snapshot()
		out = append(out, w.suggest(child, rest)...)
		w.ctx.restore(mark)
	}
	return out
}
