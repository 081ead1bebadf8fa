package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/espalier-cmd/espalier/pkgs/cmderr"
	"github.com/espalier-cmd/espalier/pkgs/command"
	"github.com/espalier-cmd/espalier/pkgs/registry"
)

func newGreetTree(got *string) *command.Node {
	return command.Literal("greet", "hi").Then(
		command.Text("who").Runs(func(src command.Source, ctx *command.Context) {
			*got = ctx.String("who")
		}),
	)
}

func asCommandError(t *testing.T, err error) *cmderr.Error {
	t.Helper()
	var cerr *cmderr.Error
	require.ErrorAs(t, err, &cerr)
	return cerr
}

func TestRegisterAndExecute(t *testing.T) {
	r := registry.New()
	var got string
	require.NoError(t, r.Register(newGreetTree(&got)))

	require.NoError(t, r.Execute(nil, "greet steve"))
	assert.Equal(t, "steve", got)

	// Every literal word of the root routes to the same tree.
	require.NoError(t, r.Execute(nil, "hi alex"))
	assert.Equal(t, "alex", got)
}

func TestExecuteTrimsLeadingDividers(t *testing.T) {
	r := registry.New()
	var got string
	require.NoError(t, r.Register(newGreetTree(&got)))

	require.NoError(t, r.Execute(nil, "   greet bob"))
	assert.Equal(t, "bob", got)
}

func TestExecuteUnknownCommand(t *testing.T) {
	r := registry.New()
	var got string
	require.NoError(t, r.Register(newGreetTree(&got)))

	cerr := asCommandError(t, r.Execute(nil, "gret bob"))
	assert.True(t, cerr.Kind.Is(cmderr.UnknownCommand))
	assert.Equal(t, 0, cerr.Offset)
	assert.Contains(t, cerr.Message, `"gret"`)
	assert.Contains(t, cerr.Message, `did you mean "greet"?`)
}

func TestExecuteEmptyLine(t *testing.T) {
	r := registry.New()
	cerr := asCommandError(t, r.Execute(nil, "   "))
	assert.True(t, cerr.Kind.Is(cmderr.UnknownCommand))
}

func TestRegisterRejectsArgumentRoot(t *testing.T) {
	r := registry.New()
	assert.Panics(t, func() {
		_ = r.Register(command.Integer("n"))
	})
}

func TestRegisterRejectsRedirectCycle(t *testing.T) {
	a := command.Literal("a")
	b := command.Literal("b")
	a.Redirects(b)
	b.Redirects(a)
	root := command.Literal("top").Then(a).Then(b)

	r := registry.New()
	err := r.Register(root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redirect cycle")
}

func TestLastRegistrationWins(t *testing.T) {
	r := registry.New()
	var first, second bool
	require.NoError(t, r.Register(command.Literal("go").Runs(func() { first = true })))
	require.NoError(t, r.Register(command.Literal("go").Runs(func() { second = true })))

	require.NoError(t, r.Execute(nil, "go"))
	assert.False(t, first)
	assert.True(t, second)
}

func TestUnregisterIsPerWord(t *testing.T) {
	r := registry.New()
	var got string
	require.NoError(t, r.Register(newGreetTree(&got)))

	assert.True(t, r.Unregister("hi"))
	assert.False(t, r.Unregister("hi"))

	cerr := asCommandError(t, r.Execute(nil, "hi bob"))
	assert.True(t, cerr.Kind.Is(cmderr.UnknownCommand))

	require.NoError(t, r.Execute(nil, "greet bob"))
	assert.Equal(t, "bob", got)
}

func TestWordsSorted(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.Register(command.Literal("zeta")))
	require.NoError(t, r.Register(command.Literal("alpha", "mid")))
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, r.Words())
}

func TestSuggestRoots(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.Register(command.Literal("greet")))
	require.NoError(t, r.Register(command.Literal("grab")))
	require.NoError(t, r.Register(command.Literal("stop")))

	assert.Equal(t, []string{"grab", "greet"}, r.Suggest(nil, "gr"))
	assert.Equal(t, []string{"grab", "greet", "stop"}, r.Suggest(nil, ""))
}

func TestSuggestDelegatesToTree(t *testing.T) {
	r := registry.New()
	root := command.Literal("email").
		Then(command.Literal("list").Runs(func() {})).
		Then(command.Literal("send").Runs(func() {}))
	require.NoError(t, r.Register(root))

	assert.Equal(t, []string{"list", "send"}, r.Suggest(nil, "email "))
	assert.Nil(t, r.Suggest(nil, "nosuch "))
}

func TestClosest(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.Register(command.Literal("teleport")))
	require.NoError(t, r.Register(command.Literal("tell")))

	assert.Equal(t, "tell", r.Closest("tel"))
	assert.Equal(t, "", r.Closest("xyzzy"))
}

func TestDescribe(t *testing.T) {
	r := registry.New()
	var got string
	require.NoError(t, r.Register(newGreetTree(&got)))

	ds := r.Describe()
	require.Len(t, ds, 1)
	d := ds[0]
	assert.Equal(t, "literal", d.Kind)
	assert.Equal(t, "greet|hi", d.Usage)
	assert.False(t, d.Executable)
	require.Len(t, d.Children, 1)
	assert.Equal(t, "text", d.Children[0].Kind)
	assert.Equal(t, "<who>", d.Children[0].Usage)
	assert.Equal(t, "who", d.Children[0].Name)
	assert.True(t, d.Children[0].Executable)
}

func TestDescribeFlattensRedirect(t *testing.T) {
	shared := command.Literal("sub").Runs(func() {})
	main := command.Literal("main").Then(shared)
	alias := command.Literal("alias").Redirects(main)

	r := registry.New()
	require.NoError(t, r.Register(main))
	require.NoError(t, r.Register(alias))

	ds := r.Describe()
	require.Len(t, ds, 2)
	assert.Equal(t, "alias", ds[0].Usage)
	assert.Equal(t, "main", ds[0].RedirectTo)
	assert.Empty(t, ds[0].Children)
}
