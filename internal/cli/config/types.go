// Package config provides configuration management for the sceneforge CLI.
//
// Editor settings are layered from defaults, a sceneforge.yaml file,
// SCENEFORGE_* environment variables and command-line flags. Project
// metadata (project.yaml) lives in internal/config.
package config

import (
	"path/filepath"
	"sort"
	"time"

	"github.com/leapstack-labs/sceneforge/internal/check"
	intconfig "github.com/leapstack-labs/sceneforge/internal/config"
	"github.com/leapstack-labs/sceneforge/internal/editor"
	"github.com/leapstack-labs/sceneforge/internal/runner"
	"github.com/leapstack-labs/sceneforge/internal/watch"
)

// Config holds all CLI configuration options.
type Config struct {
	LogLevel     string        `koanf:"log_level"`
	LogFormat    string        `koanf:"log_format"`
	LogFile      string        `koanf:"log_file"`
	StatePath    string        `koanf:"state_path"`
	History      bool          `koanf:"history"`
	LogLines     int           `koanf:"log_lines"`
	TickInterval time.Duration `koanf:"tick_interval"`
	Check        CommandConfig `koanf:"check"`
	Run          CommandConfig `koanf:"run"`
	Export       CommandConfig `koanf:"export"`
	Watch        WatchConfig   `koanf:"watch"`
}

// CommandConfig configures one external process.
type CommandConfig struct {
	Command []string          `koanf:"command"`
	Env     map[string]string `koanf:"env"`
}

// WatchConfig configures the project watcher.
type WatchConfig struct {
	Debounce  time.Duration `koanf:"debounce"`
	Ignore    []string      `koanf:"ignore"`
	SourceDir string        `koanf:"source_dir"`
	DesignDir string        `koanf:"design_dir"`
	Manifest  string        `koanf:"manifest"`
}

// Default configuration values.
const (
	DefaultConfigFile   = "sceneforge.yaml"
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
	DefaultStateFile    = intconfig.StateDir + "/state.db"
	DefaultEditorLog    = intconfig.StateDir + "/editor.log"
	DefaultTickInterval = 50 * time.Millisecond
	EnvPrefix           = "SCENEFORGE_"
)

// Defaults returns the configuration used when nothing overrides it.
func Defaults() *Config {
	return &Config{
		LogLevel:     DefaultLogLevel,
		LogFormat:    DefaultLogFormat,
		StatePath:    DefaultStateFile,
		History:      true,
		LogLines:     editor.DefaultLogLines,
		TickInterval: DefaultTickInterval,
		Check:        CommandConfig{Command: check.DefaultCommand},
		Run:          CommandConfig{Command: runner.DefaultRunCommand},
		Export:       CommandConfig{Command: runner.DefaultExportCommand},
		Watch: WatchConfig{
			Debounce:  watch.DefaultDebounce,
			Ignore:    watch.DefaultIgnore,
			SourceDir: intconfig.SourceDir,
			DesignDir: intconfig.DesignDir,
			Manifest:  intconfig.ManifestFile,
		},
	}
}

// StatePathFor resolves the history database path for a project root.
func (c *Config) StatePathFor(root string) string {
	return resolvePathRelativeTo(c.StatePath, root)
}

// EditorConfig converts the CLI configuration into an editor.Config.
func (c *Config) EditorConfig() editor.Config {
	return editor.Config{
		CheckCommand:  c.Check.Command,
		CheckEnv:      envList(c.Check.Env),
		RunCommand:    c.Run.Command,
		RunEnv:        envList(c.Run.Env),
		ExportCommand: c.Export.Command,
		ExportEnv:     envList(c.Export.Env),
		Watch: editor.WatchConfig{
			Debounce:  c.Watch.Debounce,
			Ignore:    c.Watch.Ignore,
			SourceDir: c.Watch.SourceDir,
			DesignDir: c.Watch.DesignDir,
			Manifest:  c.Watch.Manifest,
		},
		LogLines: c.LogLines,
	}
}

// envList flattens an env map into sorted KEY=VALUE pairs.
func envList(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
