package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// ProjectYAML is a valid project.yaml body.
const ProjectYAML = "name: demo\nentry: src/main.rs\nruntime_version: \"0.14\"\n"

// WriteFiles writes each relative path -> content pair under root, creating
// parent directories as needed.
func WriteFiles(t testing.TB, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
}

// NewProject creates a project in a temp dir with a valid project.yaml plus the
// given files, and returns its root.
func NewProject(t testing.TB, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	WriteFiles(t, root, map[string]string{"project.yaml": ProjectYAML})
	WriteFiles(t, root, files)
	return root
}

// BumpMtime moves the file's mtime d into the future, so that writes within
// the filesystem's timestamp granularity are still seen as newer.
func BumpMtime(t testing.TB, path string, d time.Duration) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	mt := info.ModTime().Add(d)
	if err := os.Chtimes(path, mt, mt); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}
