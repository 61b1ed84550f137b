package commands

import (
	"context"
	"log/slog"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/leapstack-labs/sceneforge/internal/cli/config"
	"github.com/leapstack-labs/sceneforge/internal/editor"
	"github.com/leapstack-labs/sceneforge/internal/tui"
	"github.com/spf13/cobra"
)

// NewEditCommand creates the edit command.
func NewEditCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "edit [dir]",
		Short: "Open the scene editor",
		Long: `Open a project in the terminal scene editor.

The project is watched for changes; every change to src/, design/,
Cargo.toml or project.yaml triggers a background check whose diagnostics
are shown in the editor. Logs go to the configured log file, or
.sceneforge/editor.log in the project.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := NewCommandContext(cmd, args)
			if err != nil {
				return err
			}

			logger := cc.Logger
			if cc.Cfg.LogFile == "" {
				f, err := config.OpenLogFile(filepath.Join(cc.Root, config.DefaultEditorLog))
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				logger = cc.Cfg.NewLogger(f)
			}
			cc.Logger = logger

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
			defer stop()
			return runEdit(ctx, cc)
		},
	}
}

func runEdit(ctx context.Context, cc *CommandContext) error {
	store, err := cc.OpenStore()
	if err != nil {
		cc.Logger.Warn("history unavailable", "error", err)
	}
	if store != nil {
		defer func() { _ = store.Close() }()
	}

	waker := &tui.Waker{}
	edCfg := cc.Cfg.EditorConfig()
	edCfg.Logger = cc.Logger
	edCfg.Wake = waker.Wake
	if store != nil {
		edCfg.History = store
	}

	ed := editor.New(edCfg)
	if err := ed.Open(cc.Root); err != nil {
		return err
	}
	defer shutdownEditor(ed, cc.Logger)

	return tui.Run(ctx, ed, waker, cc.Cfg.TickInterval)
}

func shutdownEditor(ed *editor.Editor, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := ed.Shutdown(ctx); err != nil {
		logger.Warn("editor shutdown incomplete", "error", err)
	}
}
