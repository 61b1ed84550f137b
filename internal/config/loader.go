package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/leapstack-labs/sceneforge/pkg/core"
)

// LoadFromDir loads the ProjectConfig of the project rooted at dir.
// A missing, unparsable or incomplete project.yaml is reported as a
// *core.ConfigError.
func LoadFromDir(dir string) (*ProjectConfig, error) {
	configPath := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(configPath); err != nil {
		return nil, &core.ConfigError{Path: configPath, Err: err}
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
		return nil, &core.ConfigError{Path: configPath, Err: err}
	}

	var cfg ProjectConfig
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, &core.ConfigError{Path: configPath, Err: fmt.Errorf("decode: %w", err)}
	}

	if err := cfg.Validate(); err != nil {
		return nil, &core.ConfigError{Path: configPath, Err: err}
	}

	return &cfg, nil
}

// FindProjectRoot walks up from the given directory to find a directory
// containing project.yaml.
// Returns empty string if not found.
func FindProjectRoot(startDir string) string {
	dir := startDir
	for {
		if _, err := os.Stat(filepath.Join(dir, ConfigFileName)); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			return ""
		}
		dir = parent
	}
}
