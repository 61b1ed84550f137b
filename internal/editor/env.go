package editor

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/joho/godotenv"
	"github.com/leapstack-labs/sceneforge/internal/config"
)

// LoadProjectEnv reads the project's .env file as KEY=VALUE entries in key
// order. A missing file yields no entries.
func LoadProjectEnv(root string) ([]string, error) {
	vars, err := godotenv.Read(filepath.Join(root, config.EnvFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+vars[k])
	}
	return env, nil
}

// MergeEnv concatenates env lists; later entries win when a process starts.
func MergeEnv(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
