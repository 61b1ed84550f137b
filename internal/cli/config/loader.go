package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	intconfig "github.com/leapstack-labs/sceneforge/internal/config"
	"github.com/spf13/pflag"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// configKey is used to store config in context.
type configKey struct{}

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config
)

// sections are the nested config blocks reachable from flat env var names.
var sections = []string{"check", "run", "export", "watch"}

// flagKeys maps flag names whose config key is not the snake_case flag name.
var flagKeys = map[string]string{
	"state":    "state_path",
	"debounce": "watch.debounce",
}

// findConfigFile finds the config file to use.
// Priority: explicit path > ./sceneforge.yaml > ./sceneforge.yml > project root
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if found := configIn("."); found != "" {
		return found
	}
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	if root := intconfig.FindProjectRoot(cwd); root != "" {
		return configIn(root)
	}
	return ""
}

// configIn returns the sceneforge config file in dir, if any.
func configIn(dir string) string {
	for _, name := range []string{DefaultConfigFile, "sceneforge.yml"} {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k = koanf.New(".")

	// 1. Load defaults
	d := Defaults()
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"log_level":        d.LogLevel,
		"log_format":       d.LogFormat,
		"log_file":         d.LogFile,
		"state_path":       d.StatePath,
		"history":          d.History,
		"log_lines":        d.LogLines,
		"tick_interval":    d.TickInterval,
		"check.command":    d.Check.Command,
		"run.command":      d.Run.Command,
		"export.command":   d.Export.Command,
		"watch.debounce":   d.Watch.Debounce,
		"watch.ignore":     d.Watch.Ignore,
		"watch.source_dir": d.Watch.SourceDir,
		"watch.design_dir": d.Watch.DesignDir,
		"watch.manifest":   d.Watch.Manifest,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load config file
	configFileUsed = findConfigFile(cfgFile)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Load environment variables (SCENEFORGE_ prefix)
	// Transform: SCENEFORGE_WATCH_DEBOUNCE -> watch.debounce
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority - overrides env vars and config file)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			if f.Name == "config" {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			if mapped, ok := flagKeys[key]; ok {
				key = mapped
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	currentConfig = &cfg
	return &cfg, nil
}

// envKey maps a SCENEFORGE_ variable name to its config key.
// Returns "" for variables that cannot be expressed as a flat value.
func envKey(name string) string {
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	for _, section := range sections {
		rest, ok := strings.CutPrefix(key, section+"_")
		if !ok {
			continue
		}
		if rest == "env" {
			return ""
		}
		return section + "." + rest
	}
	return key
}

// envValue converts an environment variable into a config key and value.
// Command lines are split on whitespace, ignore lists on commas.
func envValue(name, value string) (string, interface{}) {
	key := envKey(name)
	switch {
	case key == "":
		return "", nil
	case strings.HasSuffix(key, ".command"):
		return key, strings.Fields(value)
	case key == "watch.ignore":
		var patterns []string
		for _, p := range strings.Split(value, ",") {
			if p = strings.TrimSpace(p); p != "" {
				patterns = append(patterns, p)
			}
		}
		return key, patterns
	}
	return key, value
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the currently loaded configuration.
// This is available after LoadConfig is called.
func GetCurrentConfig() *Config {
	return currentConfig
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// ConfigKey returns the context key used for storing the loaded config.
func ConfigKey() interface{} {
	return configKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}

// GetConfig retrieves the config from the command context.
func GetConfig(ctx context.Context) *Config {
	if c, ok := ctx.Value(configKey{}).(*Config); ok {
		return c
	}
	return Defaults()
}
