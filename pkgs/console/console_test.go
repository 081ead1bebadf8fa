package console

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/espalier-cmd/espalier/pkgs/cmderr"
	"github.com/espalier-cmd/espalier/pkgs/command"
	"github.com/espalier-cmd/espalier/pkgs/manifest"
	"github.com/espalier-cmd/espalier/pkgs/registry"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "> ", cfg.Prompt)
	assert.Equal(t, OperatorLevel, cfg.Level)

	cfg, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, "> ", cfg.Prompt)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
prompt = "srv# "
level = 3
log_level = "debug"
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "srv# ", cfg.Prompt)
	assert.Equal(t, AdminLevel, cfg.Level)
	assert.Equal(t, "debug", cfg.LogLevel)
	// Unset keys keep their defaults.
	assert.NotEmpty(t, cfg.HistoryFile)
}

func TestRequireLevelGate(t *testing.T) {
	var ran bool
	root := command.Literal("ban").
		Requires(RequireLevel(AdminLevel), "admins only").
		Runs(func() { ran = true })

	reg := registry.New()
	require.NoError(t, reg.Register(root))

	err := reg.Execute(Actor{Name: "guest", Level: GuestLevel}, "ban")
	var cerr *cmderr.Error
	require.ErrorAs(t, err, &cerr)
	assert.True(t, cerr.Kind.Is(cmderr.RequirementNotMet))
	assert.Equal(t, "admins only", cerr.Message)
	assert.False(t, ran)

	require.NoError(t, reg.Execute(Actor{Name: "root", Level: AdminLevel}, "ban"))
	assert.True(t, ran)

	// Non-actor sources never pass a level gate.
	err = reg.Execute("bare string", "ban")
	require.ErrorAs(t, err, &cerr)
	assert.True(t, cerr.Kind.Is(cmderr.RequirementNotMet))
}

func TestReloaderSwapsCommands(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "commands.json")
	write := func(doc string) {
		require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	}

	calls := map[string]int{}
	bindings := manifest.Bindings{Runs: map[string]any{
		"ping": func() { calls["ping"]++ },
		"pong": func() { calls["pong"]++ },
	}}

	write(`{"commands": [{"literal": "ping", "run": "ping"}]}`)
	reg := registry.New()
	r := NewReloader(reg, bindings, path, nil)
	require.NoError(t, r.Reload())

	require.NoError(t, reg.Execute(nil, "ping"))
	assert.Equal(t, 1, calls["ping"])

	// Replace ping with pong: the old word must be unregistered.
	write(`{"commands": [{"literal": "pong", "run": "pong"}]}`)
	require.NoError(t, r.Reload())

	require.NoError(t, reg.Execute(nil, "pong"))
	assert.Equal(t, []string{"pong"}, reg.Words())
}

func TestReloaderKeepsOldOnBadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "commands.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"commands": [{"literal": "ping", "run": "ping"}]}`), 0o644))

	reg := registry.New()
	r := NewReloader(reg, manifest.Bindings{Runs: map[string]any{"ping": func() {}}}, path, nil)
	require.NoError(t, r.Reload())

	require.NoError(t, os.WriteFile(path, []byte(`{"commands": [{`), 0o644))
	require.Error(t, r.Reload())
	assert.Equal(t, []string{"ping"}, reg.Words())
}

func TestCompleter(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register(command.Literal("greet")))
	require.NoError(t, reg.Register(command.Literal("grab")))

	c := &completer{reg: reg, actor: Actor{}}

	line := []rune("gr")
	cands, n := c.Do(line, len(line))
	assert.Equal(t, 2, n)
	require.Len(t, cands, 2)
	assert.Equal(t, "ab ", string(cands[0]))
	assert.Equal(t, "eet ", string(cands[1]))

	cands, _ = c.Do([]rune("zz"), 2)
	assert.Empty(t, cands)
}
