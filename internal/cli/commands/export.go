package commands

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/sceneforge/internal/editor"
	"github.com/leapstack-labs/sceneforge/internal/project"
	"github.com/leapstack-labs/sceneforge/internal/runner"
	"github.com/spf13/cobra"
)

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export [dir]",
		Short: "Regenerate the script schema",
		Long: `Run the configured exporter in the project root. On success the exporter
writes design/.schema.yaml, which is then loaded and summarized.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := NewCommandContext(cmd, args)
			if err != nil {
				return err
			}
			sess, err := project.Open(cc.Root, cc.Logger)
			if err != nil {
				return err
			}

			env, err := editor.LoadProjectEnv(sess.Root())
			if err != nil {
				cc.Logger.Warn("ignoring unreadable .env", "root", sess.Root(), "error", err)
			}
			res := runner.Export(cmd.Context(), sess.Root(), runner.Config{
				Command: cc.Cfg.Export.Command,
				Env:     editor.MergeEnv(env, cc.Cfg.EditorConfig().ExportEnv),
				Logger:  cc.Logger,
			})

			out := cmd.OutOrStdout()
			for _, line := range res.LogLines() {
				_, _ = fmt.Fprintln(out, line)
			}
			if res.Err != nil {
				return res.Err
			}
			if !res.OK() {
				return errors.New(res.Status())
			}

			_, _ = fmt.Fprintln(out, res.Status(), sess.Schema().Load())
			if schema := sess.Schema().Schema(); schema != nil {
				for _, name := range schema.Names() {
					_, _ = fmt.Fprintf(out, "  %s\n", name)
				}
			}
			return nil
		},
	}
}
