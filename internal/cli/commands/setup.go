package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/sceneforge/internal/cli/config"
	intconfig "github.com/leapstack-labs/sceneforge/internal/config"
	"github.com/leapstack-labs/sceneforge/internal/state"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg    *config.Config
	Logger *slog.Logger
	// Root is the absolute project root the command operates on.
	Root string
}

// NewCommandContext resolves the project root from the optional [dir]
// argument and collects the config and logger from the command context.
func NewCommandContext(cmd *cobra.Command, args []string) (*CommandContext, error) {
	root, err := resolveRoot(args)
	if err != nil {
		return nil, err
	}
	return &CommandContext{
		Cfg:    config.GetConfig(cmd.Context()),
		Logger: config.GetLogger(cmd.Context()),
		Root:   root,
	}, nil
}

// OpenStore opens the history database of the project.
// Returns nil when history is disabled.
func (c *CommandContext) OpenStore() (*state.SQLiteStore, error) {
	if !c.Cfg.History {
		return nil, nil
	}
	store := state.NewSQLiteStore(c.Logger)
	if err := store.Open(c.Cfg.StatePathFor(c.Root)); err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}
	return store, nil
}

// resolveRoot returns the project root named by args, or the nearest
// directory above the working directory that holds a project.yaml.
// Falls back to the working directory.
func resolveRoot(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		abs, err := filepath.Abs(args[0])
		if err != nil {
			return "", fmt.Errorf("invalid project directory %q: %w", args[0], err)
		}
		return abs, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	if root := intconfig.FindProjectRoot(cwd); root != "" {
		return root, nil
	}
	return cwd, nil
}
