package commands

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/sceneforge/internal/project"
	"github.com/leapstack-labs/sceneforge/internal/scene"
	"github.com/leapstack-labs/sceneforge/pkg/core"
	"github.com/spf13/cobra"
)

// ErrSceneNotFormatted is returned by scene fmt --check when the scene file
// differs from its canonical form.
var ErrSceneNotFormatted = errors.New("scene file is not formatted")

// NewSceneCommand creates the scene command and its subcommands.
func NewSceneCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scene",
		Short: "Inspect and maintain the design scene",
		Long:  `Commands that operate on the project's design/initial.scene.yaml.`,
	}

	cmd.AddCommand(newSceneShowCommand())
	cmd.AddCommand(newSceneFmtCommand())
	cmd.AddCommand(newSceneInitCommand())
	return cmd
}

func newSceneShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show [dir]",
		Short: "List the entities of the scene",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd, args)
			if err != nil {
				return err
			}
			if sess.Scene() == nil {
				return fmt.Errorf("project %s has no scene; run 'sceneforge scene init'", sess.Root())
			}
			renderScene(cmd.OutOrStdout(), sess.Scene())
			for _, id := range sess.Scene().DuplicateIDs() {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: entity id %q is used more than once\n", id)
			}
			return nil
		},
	}
}

func newSceneFmtCommand() *cobra.Command {
	var checkOnly bool

	cmd := &cobra.Command{
		Use:   "fmt [dir]",
		Short: "Rewrite the scene file in canonical form",
		Long: `Parse the scene file and write it back in canonical form. With --check
the file is left untouched and the command fails if it would change.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd, args)
			if err != nil {
				return err
			}
			if sess.Scene() == nil {
				return fmt.Errorf("project %s has no scene", sess.Root())
			}

			current, err := os.ReadFile(sess.ScenePath())
			if err != nil {
				return fmt.Errorf("read scene: %w", err)
			}
			formatted, err := scene.Marshal(sess.Scene())
			if err != nil {
				return err
			}
			if bytes.Equal(current, formatted) {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "scene already formatted")
				return nil
			}
			if checkOnly {
				return fmt.Errorf("%w: %s", ErrSceneNotFormatted, sess.ScenePath())
			}
			if err := sess.Save(); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "formatted %s\n", sess.ScenePath())
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkOnly, "check", false, "Fail instead of rewriting when the file is not formatted")
	return cmd
}

func newSceneInitCommand() *cobra.Command {
	var empty bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create the scene file of a project",
		Long: `Create design/initial.scene.yaml with a camera, a light and a ground
plane. Fails if the project already has a scene.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd, args)
			if err != nil {
				return err
			}
			doc := scene.Starter()
			if empty {
				doc = nil
			}
			if err := sess.CreateScene(doc); err != nil {
				if errors.Is(err, core.ErrScheduleConflict) {
					return fmt.Errorf("scene already exists at %s", sess.ScenePath())
				}
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", sess.ScenePath())
			return nil
		},
	}

	cmd.Flags().BoolVar(&empty, "empty", false, "Create a scene without entities")
	return cmd
}

func openSession(cmd *cobra.Command, args []string) (*project.Session, error) {
	cc, err := NewCommandContext(cmd, args)
	if err != nil {
		return nil, err
	}
	return project.Open(cc.Root, cc.Logger)
}

func renderScene(w io.Writer, doc *scene.Doc) {
	if len(doc.Entities) == 0 {
		_, _ = fmt.Fprintln(w, "(0 entities)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Entity", "Components", "Scripts"})
	for i, e := range doc.Entities {
		kinds := make([]string, 0, len(e.Components))
		for _, c := range e.Components {
			kinds = append(kinds, c.TypeID())
		}
		t.AppendRow(table.Row{i, e.ID, strings.Join(kinds, ", "), scriptNames(e.Scripts)})
	}
	t.Render()
}

func scriptNames(scripts []scene.AttachedScript) string {
	names := make([]string, 0, len(scripts))
	for _, s := range scripts {
		if len(s.Params) == 0 {
			names = append(names, s.Name)
			continue
		}
		keys := make([]string, 0, len(s.Params))
		for k := range s.Params {
			keys = append(keys, k+"="+s.Params[k])
		}
		sort.Strings(keys)
		names = append(names, fmt.Sprintf("%s(%s)", s.Name, strings.Join(keys, ", ")))
	}
	return strings.Join(names, ", ")
}
