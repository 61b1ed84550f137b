package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/leapstack-labs/sceneforge/internal/chanx"
	"github.com/leapstack-labs/sceneforge/internal/check"
	"github.com/leapstack-labs/sceneforge/internal/editor"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// shutdownTimeout bounds how long the watch loop waits for an in-flight check.
const shutdownTimeout = 10 * time.Second

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [dir]",
		Short: "Watch the project and re-check on every change",
		Long: `Open the project without a terminal UI, check it once, then re-run the
check whenever a source or design file changes. Status changes and
diagnostics are printed as they arrive. Stop with Ctrl-C.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := NewCommandContext(cmd, args)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd.OutOrStdout(), cc)
		},
	}
}

func runWatch(ctx context.Context, w io.Writer, cc *CommandContext) error {
	store, err := cc.OpenStore()
	if err != nil {
		cc.Logger.Warn("history unavailable", "error", err)
	}
	if store != nil {
		defer func() { _ = store.Close() }()
	}

	wake := make(chan struct{}, 1)
	edCfg := cc.Cfg.EditorConfig()
	edCfg.Logger = cc.Logger
	edCfg.Wake = func() {
		select {
		case wake <- struct{}{}:
		default:
		}
	}
	if store != nil {
		edCfg.History = store
	}

	ed := editor.New(edCfg)
	if err := ed.Open(cc.Root); err != nil {
		return err
	}

	lines := chanx.New[string]()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer lines.Close()
		ticker := time.NewTicker(cc.Cfg.TickInterval)
		defer ticker.Stop()

		var rep reporter
		rep.report(ed, lines)
		for {
			select {
			case <-gctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return ed.Shutdown(shutdownCtx)
			case <-wake:
			case <-ticker.C:
			}
			if ed.Tick() {
				rep.report(ed, lines)
			}
		}
	})

	g.Go(func() error {
		for {
			line, ok := lines.Recv()
			if !ok {
				return nil
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	})

	return g.Wait()
}

// reporter prints what changed since the previous report: the diagnostics of
// every newly applied check and each new status line.
type reporter struct {
	status string
	last   *check.Result
}

func (r *reporter) report(ed *editor.Editor, out *chanx.Unbounded[string]) {
	if last := ed.LastCheck(); last != nil && last != r.last {
		for _, d := range last.Diagnostics {
			out.Send(d.String())
		}
		r.last = last
		r.status = ""
	}
	if status := ed.Status(); status != r.status {
		out.Send(status)
		r.status = status
	}
}
