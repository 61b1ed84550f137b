// Package project owns the state of one open project: its configuration, the
// in-memory scene document with its on-disk baseline, the diagnostics of the
// latest check and the script schema cache.
package project

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/sceneforge/internal/config"
	"github.com/leapstack-labs/sceneforge/internal/scene"
	"github.com/leapstack-labs/sceneforge/pkg/core"
)

// Session is the unit the editor manipulates for an open project.
// It is not safe for concurrent use; the editor drives it from its tick.
type Session struct {
	root        string
	config      *config.ProjectConfig
	diagnostics []core.Diagnostic

	// scene and scenePath are either both set or both empty.
	scene     *scene.Doc
	scenePath string
	baseline  fileBaseline
	dirty     bool

	schema *SchemaCache
	logger *slog.Logger

	// parses counts scene parses performed by reloads.
	parses int
}

// Open loads the project rooted at root. A missing scene file is not an error;
// the session then has no scene.
func Open(root string, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}

	cfg, err := config.LoadFromDir(abs)
	if err != nil {
		return nil, err
	}

	s := &Session{
		root:   abs,
		config: cfg,
		schema: newSchemaCache(filepath.Join(abs, config.SchemaFile)),
		logger: logger.With("project", cfg.Name),
	}

	path := filepath.Join(abs, config.SceneFile)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		doc, perr := scene.Parse(data)
		if perr != nil {
			return nil, &core.SceneParseError{Path: path, Err: perr}
		}
		s.scene = doc
		s.scenePath = path
		s.baseline.path = path
		if err := s.baseline.refresh(); err != nil {
			return nil, fmt.Errorf("stat scene: %w", err)
		}
	case os.IsNotExist(err):
		s.logger.Debug("no scene file", "path", path)
	default:
		return nil, &core.SceneParseError{Path: path, Err: err}
	}

	s.logger.Debug("project opened", "root", abs, "scene", s.scenePath != "")
	return s, nil
}

// Root returns the absolute project root.
func (s *Session) Root() string { return s.root }

// Config returns the project configuration.
func (s *Session) Config() *config.ProjectConfig { return s.config }

// Scene returns the in-memory scene, or nil when the project has none.
// Callers that mutate it must call Touch.
func (s *Session) Scene() *scene.Doc { return s.scene }

// ScenePath returns the path the scene was loaded from, or "" when there is no scene.
func (s *Session) ScenePath() string { return s.scenePath }

// Schema returns the script schema cache.
func (s *Session) Schema() *SchemaCache { return s.schema }

// Diagnostics returns the diagnostics of the latest failed check.
func (s *Session) Diagnostics() []core.Diagnostic { return s.diagnostics }

// SetDiagnostics replaces the diagnostics wholesale.
func (s *Session) SetDiagnostics(diags []core.Diagnostic) { s.diagnostics = diags }

// Dirty reports whether the scene has edits that were not saved.
func (s *Session) Dirty() bool { return s.dirty }

// Touch marks the in-memory scene as edited.
func (s *Session) Touch() {
	if s.scene != nil {
		s.dirty = true
	}
}

// ReloadIfChanged re-reads the scene when its file is newer than the baseline.
// A parse failure keeps the current document and leaves the baseline in place
// so the next call retries. Reports whether the document was replaced.
func (s *Session) ReloadIfChanged() bool {
	if s.scenePath == "" {
		return false
	}
	mt, changed := s.baseline.changed()
	if !changed {
		return false
	}

	data, err := os.ReadFile(s.scenePath)
	if err != nil {
		s.logger.Debug("scene reload skipped", "error", err)
		return false
	}
	s.parses++
	doc, err := scene.Parse(data)
	if err != nil {
		s.logger.Debug("scene reload failed, keeping previous document", "error", err)
		return false
	}

	s.scene = doc
	s.baseline.advance(mt)
	s.dirty = false
	s.logger.Debug("scene reloaded", "path", s.scenePath, "entities", len(doc.Entities))
	return true
}

// Save writes the scene back to its file and adopts the written file's mtime as
// the baseline, so the write is not picked up as an external change.
func (s *Session) Save() error {
	if s.scene == nil {
		return fmt.Errorf("%w: no scene in memory", core.ErrScheduleConflict)
	}
	if s.scenePath == "" {
		return fmt.Errorf("%w: no scene file", core.ErrScheduleConflict)
	}

	data, err := scene.Marshal(s.scene)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.scenePath, data, 0o644); err != nil {
		return fmt.Errorf("write scene: %w", err)
	}
	if err := s.baseline.refresh(); err != nil {
		return fmt.Errorf("stat scene: %w", err)
	}
	s.dirty = false

	s.logger.Debug("scene saved", "path", s.scenePath)
	return nil
}

// CreateScene creates the scene file at its fixed location when the project has
// no scene. A nil doc creates an empty scene.
func (s *Session) CreateScene(doc *scene.Doc) error {
	if s.scene != nil {
		return fmt.Errorf("%w: scene already exists", core.ErrScheduleConflict)
	}
	if doc == nil {
		doc = &scene.Doc{Entities: []scene.Entity{}}
	}

	path := filepath.Join(s.root, config.SceneFile)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create design dir: %w", err)
	}

	s.scene = doc
	s.scenePath = path
	s.baseline = fileBaseline{path: path}
	if err := s.Save(); err != nil {
		s.scene = nil
		s.scenePath = ""
		s.baseline.reset()
		return err
	}
	return nil
}
