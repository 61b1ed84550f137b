package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/sceneforge/internal/config"
	"github.com/leapstack-labs/sceneforge/internal/scene"
	"github.com/spf13/cobra"
)

// DefaultRuntimeVersion is written into new projects unless --runtime-version is set.
const DefaultRuntimeVersion = "0.14"

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var name string
	var runtimeVersion string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new scene project",
		Long: `Initialize a new scene project with the default layout.

This creates:
  - project.yaml describing the project
  - Cargo.toml and src/main.rs for the game crate
  - design/initial.scene.yaml with a starter scene
  - sceneforge.yaml with editor defaults
  - .gitignore`,
		Example: `  # Initialize in current directory
  sceneforge init

  # Initialize in a new directory
  sceneforge init my-game

  # Overwrite files that already exist
  sceneforge init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runInit(cmd.OutOrStdout(), dir, name, runtimeVersion, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")
	cmd.Flags().StringVar(&name, "name", "", "Project name (defaults to the directory name)")
	cmd.Flags().StringVar(&runtimeVersion, "runtime-version", DefaultRuntimeVersion, "Target runtime version")

	return cmd
}

func runInit(out io.Writer, dir, name, runtimeVersion string, force bool) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(abs, 0750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	configPath := filepath.Join(abs, config.ConfigFileName)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", config.ConfigFileName)
	}

	if name == "" {
		name = filepath.Base(abs)
	}
	data := templateData{Name: name, Crate: crateName(name), RuntimeVersion: runtimeVersion}

	created, err := copyTemplate("starter", abs, data, force)
	if err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	sceneCreated, err := writeStarterScene(abs, force)
	if err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}
	if sceneCreated {
		created = append(created, config.SceneFile)
	}

	for _, f := range created {
		_, _ = fmt.Fprintf(out, "  created %s\n", filepath.ToSlash(f))
	}
	_, _ = fmt.Fprintf(out, "\nProject %q initialized in %s\n", name, abs)
	_, _ = fmt.Fprintln(out, "\nNext steps:")
	_, _ = fmt.Fprintln(out, "  sceneforge check    Type-check the game crate")
	_, _ = fmt.Fprintln(out, "  sceneforge scene show")
	_, _ = fmt.Fprintln(out, "  sceneforge edit     Open the editor")
	return nil
}

// writeStarterScene writes the starter scene unless one already exists.
func writeStarterScene(root string, force bool) (bool, error) {
	path := filepath.Join(root, config.SceneFile)
	_, err := os.Stat(path)
	switch {
	case err == nil && !force:
		return false, nil
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return false, err
	}
	data, err := scene.Marshal(scene.Starter())
	if err != nil {
		return false, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return false, err
	}
	return true, os.WriteFile(path, data, 0600)
}
