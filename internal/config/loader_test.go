package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/sceneforge/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0o644))
}

func TestLoadFromDir(t *testing.T) {
	tests := []struct {
		name      string
		content   *string
		wantErr   bool
		errSubstr string
		want      *ProjectConfig
	}{
		{
			name:    "valid",
			content: ptr("name: demo\nentry: src/main.rs\nruntime_version: \"0.14\"\n"),
			want:    &ProjectConfig{Name: "demo", Entry: "src/main.rs", RuntimeVersion: "0.14"},
		},
		{
			name:      "missing file",
			content:   nil,
			wantErr:   true,
			errSubstr: "project.yaml",
		},
		{
			name:      "malformed yaml",
			content:   ptr("name: [unterminated\n"),
			wantErr:   true,
			errSubstr: "project config",
		},
		{
			name:      "missing entry",
			content:   ptr("name: demo\nruntime_version: \"0.14\"\n"),
			wantErr:   true,
			errSubstr: "entry is required",
		},
		{
			name:      "missing everything",
			content:   ptr("{}\n"),
			wantErr:   true,
			errSubstr: "runtime_version is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.content != nil {
				writeConfig(t, dir, *tt.content)
			}

			cfg, err := LoadFromDir(dir)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errSubstr)

				var cfgErr *core.ConfigError
				assert.True(t, errors.As(err, &cfgErr), "expected *core.ConfigError, got %T", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg)
		})
	}
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "name: demo\nentry: src/main.rs\nruntime_version: \"0.14\"\n")

	nested := filepath.Join(root, "src", "systems")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	assert.Equal(t, root, FindProjectRoot(nested))
	assert.Equal(t, root, FindProjectRoot(root))
	assert.Equal(t, "", FindProjectRoot(t.TempDir()))
}

func ptr(s string) *string { return &s }
