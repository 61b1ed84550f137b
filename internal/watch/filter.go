package watch

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	gitignore "github.com/denormal/go-gitignore"
	"github.com/fsnotify/fsnotify"
)

// filter decides which raw events are worth forwarding.
type filter struct {
	root     string
	trees    map[string]bool // top-level dirs observed recursively
	topLevel map[string]bool // top-level files observed
	ignore   gitignore.GitIgnore
}

func newFilter(root string, trees, files, ignore []string) *filter {
	f := &filter{
		root:     root,
		trees:    make(map[string]bool, len(trees)),
		topLevel: make(map[string]bool, len(files)),
		ignore:   gitignore.New(strings.NewReader(strings.Join(ignore, "\n")), root, nil),
	}
	for _, t := range trees {
		f.trees[filepath.Clean(t)] = true
	}
	for _, name := range files {
		f.topLevel[name] = true
	}
	return f
}

// noise reports events that carry no content change: attribute-only events
// and events without any operation.
func noise(op fsnotify.Op) bool {
	return op&^fsnotify.Chmod == 0
}

// keep reports whether ev should be forwarded: it must not be noise and at
// least one of its paths must be in scope and outside every ignored prefix.
func (f *filter) keep(ev Event) bool {
	if noise(ev.Op) {
		return false
	}
	for _, p := range ev.Paths {
		rel, ok := f.rel(p)
		if !ok {
			continue
		}
		if f.inScope(rel) && !f.ignored(rel, p) {
			return true
		}
	}
	return false
}

func (f *filter) rel(p string) (string, bool) {
	rel, err := filepath.Rel(f.root, p)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// inScope limits events from the non-recursive root watch to the observed
// top-level files and trees.
func (f *filter) inScope(rel string) bool {
	first, _, nested := strings.Cut(rel, "/")
	if f.trees[first] {
		return true
	}
	return !nested && f.topLevel[first]
}

// ignored matches every ancestor of rel, and rel itself, against the ignore
// patterns. A path that no longer exists is treated as a directory.
func (f *filter) ignored(rel, abs string) bool {
	parts := strings.Split(rel, "/")
	for i := 1; i <= len(parts); i++ {
		isDir := true
		if i == len(parts) {
			if info, err := os.Stat(abs); err == nil {
				isDir = info.IsDir()
			}
		}
		if m := f.ignore.Relative(strings.Join(parts[:i], "/"), isDir); m != nil && m.Ignore() {
			return true
		}
	}
	return false
}

// debounce is a leading-edge gate: an event passes when at least window has
// elapsed since the last event that passed.
type debounce struct {
	window time.Duration
	last   time.Time
}

func (d *debounce) allow(now time.Time) bool {
	if !d.last.IsZero() && now.Sub(d.last) < d.window {
		return false
	}
	d.last = now
	return true
}
