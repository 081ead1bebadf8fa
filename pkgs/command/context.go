package command

// Source is the opaque handle of whatever issued the command. The engine
// passes it through to requirement predicates and callbacks unchanged and
// never inspects it.
type Source = any

// Context accumulates parsed argument values while a single command line is
// matched against the tree. A fresh Context is created per execution, owned
// exclusively by that execution, and discarded when it completes.
type Context struct {
	source  Source
	input   string
	values  map[string]any
	order   []string
	journal []journalEntry
}

// journalEntry records one store so a failed argument branch can be
// unwound exactly: additions are deleted, overwrites put the previous
// value back.
type journalEntry struct {
	name    string
	prev    any
	existed bool
}

func newContext(source Source, input string) *Context {
	return &Context{
		source: source,
		input:  input,
		values: make(map[string]any),
	}
}

// Source returns the handle that issued the command.
func (c *Context) Source() Source { return c.source }

// Input returns the full raw command line being executed.
func (c *Context) Input() string { return c.input }

// Get returns the parsed value stored under an argument node's name.
func (c *Context) Get(name string) (any, bool) {
	v, ok := c.values[name]
	return v, ok
}

// Int returns the value under name as int64, or zero when absent or not an
// integer argument.
func (c *Context) Int(name string) int64 {
	v, _ := c.values[name].(int64)
	return v
}

// Float returns the value under name as float64. Integer-valued Number
// arguments are widened.
func (c *Context) Float(name string) float64 {
	switch v := c.values[name].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0
}

// String returns the value under name as a string, or "" when absent.
func (c *Context) String(name string) string {
	v, _ := c.values[name].(string)
	return v
}

// Names returns the stored argument names in parse order.
func (c *Context) Names() []string {
	names := make([]string, len(c.order))
	copy(names, c.order)
	return names
}

// Len returns the number of stored arguments.
func (c *Context) Len() int { return len(c.values) }

// snapshot marks the current journal position so a failed argument branch
// can be rolled back before the next sibling is tried.
func (c *Context) snapshot() int { return len(c.journal) }

// restore unwinds every store made after the snapshot mark, newest first.
// A store that added a name is deleted; a store that overwrote a name put
// down by an ancestor gets the previous value back.
func (c *Context) restore(mark int) {
	for i := len(c.journal) - 1; i >= mark; i-- {
		e := c.journal[i]
		if e.existed {
			c.values[e.name] = e.prev
		} else {
			delete(c.values, e.name)
			c.order = c.order[:len(c.order)-1]
		}
	}
	c.journal = c.journal[:mark]
}

// store records a parsed value. Re-parsing the same name (through a
// redirect loop over distinct invocations of the same subtree) overwrites
// the value but keeps the original position in parse order.
func (c *Context) store(name string, value any) {
	prev, existed := c.values[name]
	c.journal = append(c.journal, journalEntry{name: name, prev: prev, existed: existed})
	if !existed {
		c.order = append(c.order, name)
	}
	c.values[name] = value
}
