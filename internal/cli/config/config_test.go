package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leapstack-labs/sceneforge/internal/check"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), DefaultConfigFile)
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0600))
	return cfgPath
}

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, Defaults(), cfg)
	assert.Empty(t, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfig_File(t *testing.T) {
	ResetConfig()
	cfgPath := writeConfig(t, `log_level: debug
log_lines: 200
check:
  command: [cargo, clippy, --message-format=json]
  env:
    RUSTFLAGS: -Dwarnings
watch:
  debounce: 500ms
  ignore: [target/, .git/, "*.tmp"]
`)

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, cfgPath, GetConfigFileUsed())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 200, cfg.LogLines)
	assert.Equal(t, []string{"cargo", "clippy", "--message-format=json"}, cfg.Check.Command)
	assert.Equal(t, map[string]string{"RUSTFLAGS": "-Dwarnings"}, cfg.Check.Env)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, []string{"target/", ".git/", "*.tmp"}, cfg.Watch.Ignore)

	// Untouched keys keep their defaults
	assert.Equal(t, Defaults().Run.Command, cfg.Run.Command)
	assert.Equal(t, "src", cfg.Watch.SourceDir)
}

func TestLoadConfig_FileInWorkingDirectory(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte("log_format: json\n"), 0600))
	t.Chdir(dir)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, DefaultConfigFile, filepath.Base(GetConfigFileUsed()))
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	ResetConfig()
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoadConfig_EnvPrecedenceOverFile(t *testing.T) {
	ResetConfig()
	cfgPath := writeConfig(t, "log_level: warn\nwatch:\n  debounce: 1s\n")

	t.Setenv("SCENEFORGE_LOG_LEVEL", "error")
	t.Setenv("SCENEFORGE_WATCH_DEBOUNCE", "100ms")
	t.Setenv("SCENEFORGE_RUN_COMMAND", "cargo run --release")
	t.Setenv("SCENEFORGE_WATCH_IGNORE", "target/, .git/,assets/")

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, 100*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, []string{"cargo", "run", "--release"}, cfg.Run.Command)
	assert.Equal(t, []string{"target/", ".git/", "assets/"}, cfg.Watch.Ignore)
}

func TestLoadConfig_FlagPrecedence(t *testing.T) {
	ResetConfig()
	cfgPath := writeConfig(t, "log_level: warn\nstate_path: from_file.db\n")
	t.Setenv("SCENEFORGE_LOG_LEVEL", "error")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-level", "", "log level")
	flags.String("state", "", "state database")
	flags.Duration("debounce", 0, "debounce window")
	require.NoError(t, flags.Set("log-level", "debug"))
	require.NoError(t, flags.Set("state", "from_flag.db"))
	require.NoError(t, flags.Set("debounce", "2s"))

	cfg, err := LoadConfig(cfgPath, flags)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel, "flag value should override config file and env var")
	assert.Equal(t, "from_flag.db", cfg.StatePath)
	assert.Equal(t, 2*time.Second, cfg.Watch.Debounce)
}

func TestLoadConfig_FlagNotSetUsesEnv(t *testing.T) {
	ResetConfig()
	t.Chdir(t.TempDir())
	t.Setenv("SCENEFORGE_LOG_LEVEL", "error")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-level", "info", "log level")

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel, "env var should be used when flag is not set")
}

func TestLoadConfig_Invalid(t *testing.T) {
	ResetConfig()
	cfgPath := writeConfig(t, "log_format: xml\nlog_lines: 0\ncheck:\n  command: []\n")

	_, err := LoadConfig(cfgPath, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_format")
	assert.Contains(t, err.Error(), "log_lines")
	assert.Contains(t, err.Error(), "check.command is required")
}

func TestEnvKey(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"SCENEFORGE_LOG_LEVEL", "log_level"},
		{"SCENEFORGE_STATE_PATH", "state_path"},
		{"SCENEFORGE_CHECK_COMMAND", "check.command"},
		{"SCENEFORGE_WATCH_SOURCE_DIR", "watch.source_dir"},
		{"SCENEFORGE_EXPORT_ENV", ""},
		{"SCENEFORGE_RUNTIME", "runtime"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, envKey(tt.name))
		})
	}
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, "WARN", lvl.String())

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestConfig_EditorConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Run.Env = map[string]string{"B": "2", "A": "1"}

	ed := cfg.EditorConfig()
	assert.Equal(t, check.DefaultCommand, ed.CheckCommand)
	assert.Nil(t, ed.CheckEnv)
	assert.Equal(t, []string{"A=1", "B=2"}, ed.RunEnv)
	assert.Equal(t, cfg.Watch.Debounce, ed.Watch.Debounce)
	assert.Equal(t, cfg.LogLines, ed.LogLines)
}

func TestConfig_StatePathFor(t *testing.T) {
	cfg := Defaults()
	root := t.TempDir()
	assert.Equal(t, filepath.Join(root, ".sceneforge", "state.db"), cfg.StatePathFor(root))

	abs := filepath.Join(t.TempDir(), "shared.db")
	cfg.StatePath = abs
	assert.Equal(t, abs, cfg.StatePathFor(root))
}
