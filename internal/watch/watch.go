// Package watch observes a project's source and design trees and emits a
// filtered, debounced stream of change events.
package watch

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leapstack-labs/sceneforge/internal/chanx"
)

// DefaultDebounce is the minimum time between two forwarded events.
const DefaultDebounce = 250 * time.Millisecond

// DefaultIgnore lists the ignore patterns applied when Config.Ignore is empty:
// the build-artifact and version-control directories, at any depth.
var DefaultIgnore = []string{"target/", ".git/"}

// Event is a change that survived filtering and debouncing.
type Event struct {
	Paths []string
	Op    fsnotify.Op
}

// Config configures a Worker.
type Config struct {
	// Root is the project root.
	Root string
	// Trees are root-relative directories observed recursively.
	Trees []string
	// Files are top-level file names observed for changes.
	Files []string
	// Ignore holds gitignore-style patterns, relative to Root.
	Ignore []string
	// Debounce is the leading-edge debounce window (DefaultDebounce when zero).
	Debounce time.Duration
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Worker runs the observation loop for one project.
type Worker struct {
	fsw    *fsnotify.Watcher
	filter *filter
	gate   debounce
	out    *chanx.Unbounded[Event]
	logger *slog.Logger

	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// Start registers the configured paths and starts the loop. Paths that cannot
// be registered are skipped; watching continues on the rest.
func Start(cfg Config) (*Worker, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if len(cfg.Ignore) == 0 {
		cfg.Ignore = DefaultIgnore
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Worker{
		fsw:     fsw,
		filter:  newFilter(cfg.Root, cfg.Trees, cfg.Files, cfg.Ignore),
		gate:    debounce{window: cfg.Debounce},
		out:     chanx.New[Event](),
		logger:  logger,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}

	// Top-level files are observed through their directory so that editors
	// replacing a file by rename keep being seen.
	if err := fsw.Add(cfg.Root); err != nil {
		logger.Debug("watch registration failed", "path", cfg.Root, "error", err)
	}
	for _, tree := range cfg.Trees {
		w.addTree(filepath.Join(cfg.Root, tree))
	}

	logger.Debug("watcher started", "root", cfg.Root, "trees", cfg.Trees, "files", cfg.Files)
	go w.loop()
	return w, nil
}

// Events returns the queue of forwarded events. It is closed when the worker stops.
func (w *Worker) Events() *chanx.Unbounded[Event] { return w.out }

// Close stops the loop and closes the event queue. It waits for the loop to exit.
func (w *Worker) Close() {
	w.closeOnce.Do(func() { close(w.done) })
	<-w.stopped
}

// addTree registers dir and every non-ignored directory below it.
func (w *Worker) addTree(dir string) {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if rel, ok := w.filter.rel(path); ok && w.filter.ignored(rel, path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.logger.Debug("watch registration failed", "path", path, "error", err)
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		w.logger.Debug("walk failed", "path", dir, "error", err)
	}
}

func (w *Worker) loop() {
	defer close(w.stopped)
	defer w.out.Close()
	defer func() { _ = w.fsw.Close() }()

	for {
		select {
		case <-w.done:
			return

		case raw, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(raw)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Debug("watcher error", "error", err)
		}
	}
}

func (w *Worker) handle(raw fsnotify.Event) {
	ev := Event{Paths: []string{raw.Name}, Op: raw.Op}
	if !w.filter.keep(ev) {
		return
	}

	// New directories inside observed trees are not covered by existing
	// registrations.
	if raw.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(raw.Name); err == nil && info.IsDir() {
			w.addTree(raw.Name)
		}
	}

	if !w.gate.allow(time.Now()) {
		w.logger.Debug("event debounced", "path", raw.Name, "op", raw.Op.String())
		return
	}
	w.logger.Debug("change detected", "path", raw.Name, "op", raw.Op.String())
	w.out.Send(ev)
}
