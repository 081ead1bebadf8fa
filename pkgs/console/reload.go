package console

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/espalier-cmd/espalier/pkgs/manifest"
	"github.com/espalier-cmd/espalier/pkgs/registry"
)

// Reloader keeps a registry in sync with a manifest file on disk. On
// every change it builds a fresh set of trees and swaps them in whole:
// live nodes are frozen and never mutated, so a dispatch racing a reload
// sees either the old tree or the new one, never a half-built state.
type Reloader struct {
	reg      *registry.Registry
	bindings manifest.Bindings
	path     string
	log      *slog.Logger
	debounce time.Duration

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup

	mu    sync.Mutex
	words []string // root words installed by the last successful load
}

// NewReloader creates a reloader for one manifest file. Call Start to
// perform the initial load and begin watching.
func NewReloader(reg *registry.Registry, b manifest.Bindings, path string, log *slog.Logger) *Reloader {
	if log == nil {
		log = slog.Default()
	}
	return &Reloader{
		reg:      reg,
		bindings: b,
		path:     path,
		log:      log,
		debounce: 100 * time.Millisecond,
	}
}

// Start loads the manifest once, then watches its directory for changes.
// Watching the directory rather than the file survives the
// rename-and-replace dance editors and atomic writers do.
func (r *Reloader) Start() error {
	if err := r.Reload(); err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watcher init: %w", err)
	}
	if err := w.Add(filepath.Dir(r.path)); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(r.path), err)
	}
	r.watcher = w
	r.done = make(chan struct{})
	r.wg.Add(1)
	go r.loop()
	return nil
}

// Close stops watching. The last loaded trees stay registered.
func (r *Reloader) Close() error {
	if r.watcher == nil {
		return nil
	}
	close(r.done)
	err := r.watcher.Close()
	r.wg.Wait()
	return err
}

func (r *Reloader) loop() {
	defer r.wg.Done()
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case ev, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(r.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			// Debounce: editors emit bursts of events per save.
			if timer == nil {
				timer = time.NewTimer(r.debounce)
				fire = timer.C
			} else {
				timer.Reset(r.debounce)
			}

		case <-fire:
			timer, fire = nil, nil
			if err := r.Reload(); err != nil {
				r.log.Error("manifest reload failed, keeping previous commands",
					"path", r.path, "error", err)
			}

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.log.Warn("manifest watcher error", "error", err)

		case <-r.done:
			return
		}
	}
}

// Reload rebuilds the registry contents from the manifest file. The swap
// is all-or-nothing: a manifest that fails to validate or build leaves
// the previously loaded commands in place. Root words present in the old
// load but absent from the new one are unregistered.
func (r *Reloader) Reload() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	roots, err := manifest.Load(data, r.bindings)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	fresh := make(map[string]bool)
	for _, root := range roots {
		if err := r.reg.Register(root); err != nil {
			return err
		}
		for _, w := range root.Literals() {
			fresh[w] = true
		}
	}
	for _, w := range r.words {
		if !fresh[w] {
			r.reg.Unregister(w)
		}
	}
	r.words = r.words[:0]
	for w := range fresh {
		r.words = append(r.words, w)
	}

	r.log.Info("manifest loaded", "path", r.path, "commands", len(roots))
	return nil
}
