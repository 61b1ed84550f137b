package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/leapstack-labs/sceneforge/internal/chanx"
	"github.com/leapstack-labs/sceneforge/internal/check"
	"github.com/leapstack-labs/sceneforge/internal/project"
	"github.com/leapstack-labs/sceneforge/internal/state"
	"github.com/leapstack-labs/sceneforge/pkg/core"
	"github.com/spf13/cobra"
)

// ErrCheckFailed is returned when the compiler check reports diagnostics.
var ErrCheckFailed = errors.New("check reported diagnostics")

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check [dir]",
		Short: "Run the compiler check once",
		Long: `Run the configured check command in the project root and print its
diagnostics. The command fails when any diagnostic is reported.`,
		Example: `  # Check the project in the current directory
  sceneforge check

  # Check another project with a custom command
  SCENEFORGE_CHECK_COMMAND="cargo clippy --message-format=json" sceneforge check ../game`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := NewCommandContext(cmd, args)
			if err != nil {
				return err
			}
			return runCheck(cmd.Context(), cmd.OutOrStdout(), cc)
		},
	}
}

func runCheck(ctx context.Context, w io.Writer, cc *CommandContext) error {
	sess, err := project.Open(cc.Root, cc.Logger)
	if err != nil {
		return err
	}

	results := chanx.New[check.Result]()
	worker := check.Start(check.Config{
		Command: cc.Cfg.Check.Command,
		Env:     cc.Cfg.EditorConfig().CheckEnv,
		Results: results,
		Logger:  cc.Logger,
	})
	worker.Submit(check.Job{Root: sess.Root(), Epoch: 1})
	res, _ := results.Recv()
	worker.Close()
	<-worker.Done()

	printDiagnostics(w, res.Diagnostics)
	_, _ = fmt.Fprintln(w, checkSummary(res))

	store, err := cc.OpenStore()
	if err != nil {
		cc.Logger.Warn("history unavailable", "error", err)
	} else if store != nil {
		defer func() { _ = store.Close() }()
		if err := store.RecordCheck(ctx, checkRun(res)); err != nil {
			cc.Logger.Warn("failed to record check", "error", err)
		}
	}

	if !res.OK() {
		return fmt.Errorf("%w: %d", ErrCheckFailed, len(res.Diagnostics))
	}
	return nil
}

func printDiagnostics(w io.Writer, diags []core.Diagnostic) {
	for _, d := range diags {
		_, _ = fmt.Fprintln(w, d.String())
	}
}

func checkSummary(res check.Result) string {
	if res.OK() {
		return fmt.Sprintf("check: OK in %d ms", res.Duration.Milliseconds())
	}
	return fmt.Sprintf("check: ERR in %d ms (%d diagnostics)", res.Duration.Milliseconds(), len(res.Diagnostics))
}

func checkRun(res check.Result) *state.CheckRun {
	run := &state.CheckRun{
		ProjectRoot: res.Root,
		Epoch:       res.Epoch,
		StartedAt:   res.Started,
		Duration:    res.Duration,
		Status:      state.CheckStatusOK,
		Diagnostics: res.Diagnostics,
	}
	if !res.OK() {
		run.Status = state.CheckStatusErr
	}
	return run
}
