// Package console runs an interactive command console over a registry:
// a readline loop with tab completion, permission-aware sources, caret
// error rendering and optional manifest hot-reload.
package console

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"github.com/espalier-cmd/espalier/pkgs/cmderr"
	"github.com/espalier-cmd/espalier/pkgs/command"
	"github.com/espalier-cmd/espalier/pkgs/manifest"
	"github.com/espalier-cmd/espalier/pkgs/registry"
)

// Console is an interactive readline session over a command registry.
type Console struct {
	reg   *registry.Registry
	cfg   Config
	log   *slog.Logger
	actor Actor
	out   io.Writer

	reloader *Reloader
}

// New creates a console. The registry may already hold commands;
// cfg.Manifest adds hot-reloaded ones on Run.
func New(reg *registry.Registry, cfg Config, log *slog.Logger) *Console {
	if log == nil {
		log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	}
	return &Console{
		reg:   reg,
		cfg:   cfg,
		log:   log,
		actor: Actor{Name: "console", Level: cfg.Level},
		out:   os.Stdout,
	}
}

// Run drives the interactive loop until EOF or an exit command. Manifest
// hot-reload, when configured, lives for the duration of the loop.
func (c *Console) Run(bindings manifest.Bindings) error {
	if c.cfg.Manifest != "" {
		c.reloader = NewReloader(c.reg, bindings, c.cfg.Manifest, c.log)
		if err := c.reloader.Start(); err != nil {
			return err
		}
		defer c.reloader.Close()
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          c.cfg.Prompt,
		HistoryFile:     c.cfg.HistoryFile,
		AutoComplete:    &completer{reg: c.reg, actor: c.actor},
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("readline init: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "help", "?":
			c.printHelp()
			continue
		}
		c.dispatch(line)
	}
}

func (c *Console) dispatch(line string) {
	err := c.reg.Execute(c.actor, line)
	if err == nil {
		return
	}
	var cerr *cmderr.Error
	if errors.As(err, &cerr) {
		fmt.Fprintf(c.out, "error: %s\n%s\n", cerr.Message, indent(cerr.Snippet(line), "  "))
		return
	}
	fmt.Fprintf(c.out, "error: %v\n", err)
}

func (c *Console) printHelp() {
	words := c.reg.Words()
	if len(words) == 0 {
		fmt.Fprintln(c.out, "no commands registered")
		return
	}
	fmt.Fprintln(c.out, "commands:", strings.Join(words, ", "))
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// completer adapts registry suggestions to readline's completion
// interface.
type completer struct {
	reg   *registry.Registry
	actor command.Source
}

func (c *completer) Do(line []rune, pos int) ([][]rune, int) {
	text := string(line[:pos])
	candidates := c.reg.Suggest(c.actor, text)
	if len(candidates) == 0 {
		return nil, 0
	}

	// readline wants the suffix beyond the partial word being completed.
	partial := ""
	if i := strings.LastIndexByte(text, ' '); i >= 0 {
		partial = text[i+1:]
	} else {
		partial = strings.TrimLeft(text, " ")
	}

	var out [][]rune
	for _, cand := range candidates {
		if strings.HasPrefix(cand, partial) {
			out = append(out, []rune(cand[len(partial):]+" "))
		}
	}
	return out, len(partial)
}
