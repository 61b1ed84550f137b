package editor

import (
	"fmt"

	"github.com/leapstack-labs/sceneforge/internal/scene"
	"github.com/leapstack-labs/sceneforge/pkg/core"
)

// Selection is the entity picked in the hierarchy. It is editor state rather
// than view state, so the first frame after an open already has one.
type Selection struct {
	// Entity is the index of the selected entity, or -1.
	Entity int
}

var noSelection = Selection{Entity: -1}

// Valid reports whether an entity is selected.
func (s Selection) Valid() bool { return s.Entity >= 0 }

// Selection returns the current selection.
func (e *Editor) Selection() Selection { return e.selection }

// Selected returns the selected entity, or nil.
func (e *Editor) Selected() *scene.Entity {
	doc := e.scene()
	if doc == nil || !e.selection.Valid() || e.selection.Entity >= len(doc.Entities) {
		return nil
	}
	return &doc.Entities[e.selection.Entity]
}

// Select picks the entity at index i. Out-of-range indexes are ignored.
func (e *Editor) Select(i int) bool {
	doc := e.scene()
	if doc == nil || i < 0 || i >= len(doc.Entities) {
		return false
	}
	e.selection.Entity = i
	return true
}

// SelectNext moves the selection down, stopping at the last entity.
func (e *Editor) SelectNext() bool { return e.Select(e.selection.Entity + 1) }

// SelectPrev moves the selection up, stopping at the first entity.
func (e *Editor) SelectPrev() bool { return e.Select(e.selection.Entity - 1) }

// clampSelection keeps the selection inside the current scene, defaulting to
// the first entity.
func (e *Editor) clampSelection() {
	doc := e.scene()
	switch {
	case doc == nil || len(doc.Entities) == 0:
		e.selection = noSelection
	case !e.selection.Valid():
		e.selection.Entity = 0
	case e.selection.Entity >= len(doc.Entities):
		e.selection.Entity = len(doc.Entities) - 1
	}
}

func (e *Editor) scene() *scene.Doc {
	if e.session == nil {
		return nil
	}
	return e.session.Scene()
}

// AttachScript attaches a schema script to the selected entity.
func (e *Editor) AttachScript(name string) error {
	ent := e.Selected()
	if ent == nil {
		return fmt.Errorf("%w: no entity selected", core.ErrScheduleConflict)
	}
	schema := e.session.Schema().Schema()
	if schema == nil {
		return fmt.Errorf("no schema loaded")
	}
	if _, ok := schema.Script(name); !ok {
		return fmt.Errorf("unknown script %q", name)
	}
	if ent.AttachScript(name) {
		e.session.Touch()
	}
	return nil
}

// DetachScript removes the i-th script of the selected entity.
func (e *Editor) DetachScript(i int) error {
	ent := e.Selected()
	if ent == nil {
		return fmt.Errorf("%w: no entity selected", core.ErrScheduleConflict)
	}
	if !ent.DetachScript(i) {
		return fmt.Errorf("no script at index %d", i)
	}
	e.session.Touch()
	return nil
}

// AddEntity appends an entity with the given components and selects it.
func (e *Editor) AddEntity(id string, components ...scene.Component) error {
	doc := e.scene()
	if doc == nil {
		return fmt.Errorf("%w: no scene loaded", core.ErrScheduleConflict)
	}
	doc.Entities = append(doc.Entities, scene.Entity{ID: id, Components: components})
	e.selection.Entity = len(doc.Entities) - 1
	e.session.Touch()
	return nil
}

// RemoveSelected deletes the selected entity.
func (e *Editor) RemoveSelected() error {
	doc := e.scene()
	if doc == nil || !e.selection.Valid() || e.selection.Entity >= len(doc.Entities) {
		return fmt.Errorf("%w: no entity selected", core.ErrScheduleConflict)
	}
	i := e.selection.Entity
	doc.Entities = append(doc.Entities[:i], doc.Entities[i+1:]...)
	e.clampSelection()
	e.session.Touch()
	return nil
}
