package project

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ParamType is the declared type of a script parameter.
type ParamType string

// Script parameter types.
const (
	ParamBool      ParamType = "Bool"
	ParamI64       ParamType = "I64"
	ParamF64       ParamType = "F64"
	ParamString    ParamType = "String"
	ParamVec3      ParamType = "Vec3"
	ParamColorRgba ParamType = "ColorRgba"
)

func (t ParamType) valid() bool {
	switch t {
	case ParamBool, ParamI64, ParamF64, ParamString, ParamVec3, ParamColorRgba:
		return true
	}
	return false
}

// Schema lists the scripts the project exports for the editor.
type Schema struct {
	Scripts []ScriptMeta `yaml:"scripts"`
}

// ScriptMeta describes one script and its parameters.
type ScriptMeta struct {
	Name   string      `yaml:"name"`
	Symbol string      `yaml:"symbol"`
	Params []ParamMeta `yaml:"params"`
}

// ParamMeta describes one script parameter.
type ParamMeta struct {
	Key     string    `yaml:"key"`
	Label   string    `yaml:"label"`
	Type    ParamType `yaml:"type"`
	Default *string   `yaml:"default,omitempty"`
}

// Names returns the script names in schema order.
func (s *Schema) Names() []string {
	names := make([]string, 0, len(s.Scripts))
	for _, sc := range s.Scripts {
		names = append(names, sc.Name)
	}
	return names
}

// Script looks a script up by name.
func (s *Schema) Script(name string) (ScriptMeta, bool) {
	for _, sc := range s.Scripts {
		if sc.Name == name {
			return sc, true
		}
	}
	return ScriptMeta{}, false
}

// ParseSchema decodes a schema file.
func ParseSchema(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	for _, sc := range s.Scripts {
		if sc.Name == "" {
			return nil, fmt.Errorf("script without name")
		}
		for _, p := range sc.Params {
			if !p.Type.valid() {
				return nil, fmt.Errorf("script %s: param %s: unknown type %q", sc.Name, p.Key, p.Type)
			}
		}
	}
	return &s, nil
}

// SchemaCache holds the parsed schema file and reloads it when the file changes.
// A missing or unparsable file clears the schema. The baseline only advances
// on a successful parse, so a broken file is retried until it loads.
type SchemaCache struct {
	baseline fileBaseline
	schema   *Schema

	// failedAt is the mtime of the last write that failed to load; the
	// failure is reported once per write.
	failedAt time.Time
	failed   bool
}

func newSchemaCache(path string) *SchemaCache {
	return &SchemaCache{baseline: fileBaseline{path: path}}
}

// Path returns the schema file path.
func (c *SchemaCache) Path() string { return c.baseline.path }

// Schema returns the loaded schema, or nil.
func (c *SchemaCache) Schema() *Schema { return c.schema }

// Load reads the schema file unconditionally and returns a status line.
func (c *SchemaCache) Load() string {
	name := filepath.Base(c.baseline.path)

	info, err := os.Stat(c.baseline.path)
	if err != nil {
		c.schema = nil
		c.failed = false
		c.baseline.reset()
		return fmt.Sprintf("No %s yet (run exporter): %v", name, err)
	}

	data, err := os.ReadFile(c.baseline.path)
	if err != nil {
		c.fail(info.ModTime())
		return fmt.Sprintf("No %s yet (run exporter): %v", name, err)
	}
	s, err := ParseSchema(data)
	if err != nil {
		c.fail(info.ModTime())
		return fmt.Sprintf("Failed to parse %s: %v", name, err)
	}
	c.schema = s
	c.failed = false
	c.baseline.advance(info.ModTime())
	return fmt.Sprintf("Loaded script schema (%d scripts).", len(s.Scripts))
}

func (c *SchemaCache) fail(mt time.Time) {
	c.schema = nil
	c.failedAt = mt
	c.failed = true
}

// ReloadIfChanged calls Load when the schema file is newer than the last
// successful load. A missing file is left alone. A write that already failed
// is retried silently and only reported once it loads.
func (c *SchemaCache) ReloadIfChanged() (string, bool) {
	mt, changed := c.baseline.changed()
	if !changed {
		return "", false
	}
	if c.failed && mt.Equal(c.failedAt) {
		status := c.Load()
		if c.schema == nil {
			return "", false
		}
		return status, true
	}
	return c.Load(), true
}
