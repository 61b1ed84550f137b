package commands

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/sceneforge/internal/state"
	"github.com/spf13/cobra"
)

var errHistoryDisabled = errors.New("history is disabled (history: false)")

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var (
		limit int
		runID string
	)

	cmd := &cobra.Command{
		Use:   "history [dir]",
		Short: "Show recorded check runs",
		Long: `List the check runs recorded for the project, newest first. With --run
the diagnostics of a single run are printed.`,
		Example: `  # Last 20 checks of the current project
  sceneforge history

  # Diagnostics of one run
  sceneforge history --run 3f2a...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := NewCommandContext(cmd, args)
			if err != nil {
				return err
			}
			store, err := cc.OpenStore()
			if err != nil {
				return err
			}
			if store == nil {
				return errHistoryDisabled
			}
			defer func() { _ = store.Close() }()

			out := cmd.OutOrStdout()
			if runID != "" {
				run, err := store.GetCheckRun(cmd.Context(), runID)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(out, "%s  %s  %s  %d ms\n", run.ID, run.StartedAt.Format(time.DateTime), run.Status, run.Duration.Milliseconds())
				printDiagnostics(out, run.Diagnostics)
				return nil
			}

			runs, err := store.ListCheckRuns(cmd.Context(), cc.Root, limit)
			if err != nil {
				return err
			}
			renderCheckRuns(out, runs)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	cmd.Flags().StringVar(&runID, "run", "", "Show the diagnostics of this run")
	return cmd
}

// NewRecentCommand creates the recent command.
func NewRecentCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "recent [dir]",
		Short: "List recently opened projects",
		Long: `List the projects recorded in the history database, most recently opened
first. Point state_path at a shared absolute path to track projects across
directories.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := NewCommandContext(cmd, args)
			if err != nil {
				return err
			}
			store, err := cc.OpenStore()
			if err != nil {
				return err
			}
			if store == nil {
				return errHistoryDisabled
			}
			defer func() { _ = store.Close() }()

			projects, err := store.RecentProjects(cmd.Context(), limit)
			if err != nil {
				return err
			}
			renderRecentProjects(cmd.OutOrStdout(), projects)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of projects to list")
	return cmd
}

func renderCheckRuns(w io.Writer, runs []*state.CheckRun) {
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(w, "(no check runs)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Run", "Started", "Duration", "Status", "Diagnostics"})
	for _, r := range runs {
		t.AppendRow(table.Row{
			r.ID,
			r.StartedAt.Format(time.DateTime),
			fmt.Sprintf("%d ms", r.Duration.Milliseconds()),
			string(r.Status),
			r.DiagnosticCount,
		})
	}
	t.Render()
}

func renderRecentProjects(w io.Writer, projects []state.RecentProject) {
	if len(projects) == 0 {
		_, _ = fmt.Fprintln(w, "(no recent projects)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Name", "Root", "Opened"})
	for _, p := range projects {
		t.AppendRow(table.Row{p.Name, p.Root, p.OpenedAt.Format(time.DateTime)})
	}
	t.Render()
}
