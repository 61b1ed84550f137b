// Package editor is the orchestrator of the project synchronization core.
//
// An Editor owns the open project session and its background workers. It is
// driven by Tick, called once per UI frame from a single goroutine; Tick never
// blocks. Background workers hand results over through unbounded queues that
// Tick drains.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/sceneforge/internal/chanx"
	"github.com/leapstack-labs/sceneforge/internal/check"
	"github.com/leapstack-labs/sceneforge/internal/config"
	"github.com/leapstack-labs/sceneforge/internal/project"
	"github.com/leapstack-labs/sceneforge/internal/runner"
	"github.com/leapstack-labs/sceneforge/internal/state"
	"github.com/leapstack-labs/sceneforge/internal/watch"
	"github.com/leapstack-labs/sceneforge/pkg/core"
)

// HistoryStore persists check results and opened projects.
type HistoryStore interface {
	RecordCheck(ctx context.Context, run *state.CheckRun) error
	TouchRecentProject(ctx context.Context, root, name string) error
}

// WatchConfig configures the filesystem watcher of each opened project.
type WatchConfig struct {
	Debounce  time.Duration
	Ignore    []string
	SourceDir string
	DesignDir string
	Manifest  string
}

// Config configures an Editor.
type Config struct {
	CheckCommand  []string
	CheckEnv      []string
	RunCommand    []string
	RunEnv        []string
	ExportCommand []string
	ExportEnv     []string
	Watch         WatchConfig
	// LogLines bounds the process log (DefaultLogLines when zero).
	LogLines int
	// History records check results when set.
	History HistoryStore
	// Wake is called from background goroutines when new work is waiting
	// for the next Tick (optional).
	Wake func()
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Editor wires the session, the watcher, the check worker and the runner.
type Editor struct {
	cfg    Config
	logger *slog.Logger

	// epoch identifies the current project; results of older epochs are dropped.
	epoch      uint64
	session    *project.Session
	projectEnv []string
	checker    *check.Worker
	watcher    *watch.Worker
	results    *chanx.Unbounded[check.Result]
	retired    []<-chan struct{}
	lastCheck  *check.Result

	run *runner.Process
	log *LogBuffer

	status    string
	selection Selection
}

// New creates an editor with no project open.
func New(cfg Config) *Editor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Wake == nil {
		cfg.Wake = func() {}
	}
	if cfg.Watch.SourceDir == "" {
		cfg.Watch.SourceDir = config.SourceDir
	}
	if cfg.Watch.DesignDir == "" {
		cfg.Watch.DesignDir = config.DesignDir
	}
	if cfg.Watch.Manifest == "" {
		cfg.Watch.Manifest = config.ManifestFile
	}

	return &Editor{
		cfg:       cfg,
		logger:    logger,
		results:   chanx.New[check.Result](),
		log:       NewLogBuffer(cfg.LogLines),
		selection: noSelection,
	}
}

// Open makes root the active project. On failure the previous project stays
// open and the error is reported on the status line.
// Unsaved edits of the previous project are discarded; callers may consult Dirty first.
func (e *Editor) Open(root string) error {
	sess, err := project.Open(root, e.logger)
	if err != nil {
		e.status = fmt.Sprintf("Failed to open project: %v", err)
		e.logger.Warn("open failed", "root", root, "error", err)
		return err
	}

	env, err := LoadProjectEnv(sess.Root())
	if err != nil {
		e.logger.Warn("ignoring unreadable .env", "root", sess.Root(), "error", err)
	}

	e.teardown()
	e.epoch++
	e.session = sess
	e.projectEnv = env
	e.lastCheck = nil
	e.selection = noSelection
	e.clampSelection()

	e.checker = check.Start(check.Config{
		Command: e.cfg.CheckCommand,
		Env:     e.cfg.CheckEnv,
		Results: e.results,
		Logger:  e.logger,
	})
	job := check.Job{Root: sess.Root(), Epoch: e.epoch}
	e.checker.Submit(job)

	w, err := watch.Start(watch.Config{
		Root:     sess.Root(),
		Trees:    []string{e.cfg.Watch.SourceDir, e.cfg.Watch.DesignDir},
		Files:    []string{e.cfg.Watch.Manifest, config.ConfigFileName},
		Ignore:   e.cfg.Watch.Ignore,
		Debounce: e.cfg.Watch.Debounce,
		Logger:   e.logger,
	})
	if err != nil {
		e.logger.Warn("watcher unavailable", "root", sess.Root(), "error", err)
	} else {
		e.watcher = w
		go bridge(w, e.checker, job, e.cfg.Wake)
	}

	if e.cfg.History != nil {
		if err := e.cfg.History.TouchRecentProject(context.Background(), sess.Root(), sess.Config().Name); err != nil {
			e.logger.Warn("failed to record recent project", "error", err)
		}
	}

	e.status = sess.Schema().Load()
	e.logger.Info("project opened", "root", sess.Root(), "name", sess.Config().Name, "epoch", e.epoch)
	return nil
}

// bridge turns every watcher event into a check submission. It ends when the
// watcher closes its queue.
func bridge(w *watch.Worker, checker *check.Worker, job check.Job, wake func()) {
	for {
		if _, ok := w.Events().Recv(); !ok {
			return
		}
		checker.Submit(job)
		wake()
	}
}

// teardown stops the workers of the current project. The in-flight check of
// the retired worker still completes; its result carries a stale epoch.
func (e *Editor) teardown() {
	if e.run != nil {
		e.stopRun()
	}
	if e.watcher != nil {
		e.watcher.Close()
		e.watcher = nil
	}
	if e.checker != nil {
		e.checker.Close()
		e.retired = append(e.retired, e.checker.Done())
		e.checker = nil
	}
}

// Tick reloads changed files and drains worker output. It reports whether
// anything visible changed.
func (e *Editor) Tick() bool {
	changed := false

	if e.session != nil {
		if e.session.ReloadIfChanged() {
			e.clampSelection()
			changed = true
		}
		if msg, ok := e.session.Schema().ReloadIfChanged(); ok {
			e.status = msg
			changed = true
		}
	}

	for {
		res, ok := e.results.TryRecv()
		if !ok {
			break
		}
		if res.Epoch != e.epoch || e.session == nil {
			e.logger.Debug("dropping stale check result", "epoch", res.Epoch, "current", e.epoch)
			continue
		}
		e.applyResult(res)
		changed = true
	}

	if e.pumpRunLog() {
		changed = true
	}
	return changed
}

func (e *Editor) applyResult(res check.Result) {
	ms := res.Duration.Milliseconds()
	status := state.CheckStatusOK
	if res.OK() {
		e.status = fmt.Sprintf("check: OK in %d ms", ms)
		e.session.SetDiagnostics(nil)
	} else {
		status = state.CheckStatusErr
		e.status = fmt.Sprintf("check: ERR in %d ms", ms)
		e.session.SetDiagnostics(res.Diagnostics)
	}
	e.lastCheck = &res

	if e.cfg.History != nil {
		run := &state.CheckRun{
			ProjectRoot: res.Root,
			Epoch:       res.Epoch,
			StartedAt:   res.Started,
			Duration:    res.Duration,
			Status:      status,
			Diagnostics: res.Diagnostics,
		}
		if err := e.cfg.History.RecordCheck(context.Background(), run); err != nil {
			e.logger.Warn("failed to record check", "error", err)
		}
	}
}

func (e *Editor) pumpRunLog() bool {
	if e.run == nil {
		return false
	}
	lines := e.run.Lines().Drain()
	e.log.Append(lines...)
	if e.run.Lines().Closed() && e.run.Lines().Len() == 0 {
		e.logger.Debug("runner finished", "code", e.run.ExitCode())
		e.run = nil
		return true
	}
	return len(lines) > 0
}

// Save writes the scene to disk.
func (e *Editor) Save() error {
	if e.session == nil {
		e.status = "no project open"
		return fmt.Errorf("%w: no project open", core.ErrScheduleConflict)
	}
	if err := e.session.Save(); err != nil {
		e.status = fmt.Sprintf("save failed: %v", err)
		return err
	}
	e.status = "scene saved"
	return nil
}

// RequestCheck queues a check of the current project.
func (e *Editor) RequestCheck() bool {
	if e.session == nil || e.checker == nil {
		e.status = "no project open"
		return false
	}
	ok := e.checker.Submit(check.Job{Root: e.session.Root(), Epoch: e.epoch})
	if ok {
		e.status = "check queued"
	}
	return ok
}

// StartRun starts the project. Starting while a run is active is rejected.
func (e *Editor) StartRun() error {
	if e.session == nil {
		e.status = "no project open"
		return fmt.Errorf("%w: no project open", core.ErrScheduleConflict)
	}
	if e.run != nil {
		e.status = "runner already active"
		return fmt.Errorf("%w: runner already active", core.ErrScheduleConflict)
	}

	p, err := runner.Start(e.session.Root(), runner.Config{
		Command: e.cfg.RunCommand,
		Env:     MergeEnv(e.projectEnv, e.cfg.RunEnv),
		Notify:  e.cfg.Wake,
		Logger:  e.logger,
	})
	if err != nil {
		e.status = fmt.Sprintf("failed to start runner: %v", err)
		return err
	}

	e.run = p
	e.log.Clear()
	e.status = "runner started"
	return nil
}

// StopRun kills the active run and waits for it to exit.
func (e *Editor) StopRun() {
	if e.run == nil {
		return
	}
	e.stopRun()
	e.status = "runner stopped"
}

func (e *Editor) stopRun() {
	e.run.Stop()
	e.log.Append(e.run.Lines().Drain()...)
	e.run = nil
}

// Running reports whether a run process is active.
func (e *Editor) Running() bool { return e.run != nil }

// Export runs the schema exporter synchronously, logs its output and reloads
// the schema when it succeeds.
func (e *Editor) Export(ctx context.Context) runner.ExportResult {
	if e.session == nil {
		e.status = "no project open"
		return runner.ExportResult{ExitCode: -1, Err: fmt.Errorf("%w: no project open", core.ErrScheduleConflict)}
	}

	res := runner.Export(ctx, e.session.Root(), runner.Config{
		Command: e.cfg.ExportCommand,
		Env:     MergeEnv(e.projectEnv, e.cfg.ExportEnv),
		Logger:  e.logger,
	})
	e.log.Append(res.LogLines()...)
	e.status = res.Status()
	if res.OK() {
		e.status += " " + e.session.Schema().Load()
	}
	return res
}

// Close stops the run process and the workers of the current project.
// It does not wait for an in-flight check; see Shutdown.
func (e *Editor) Close() {
	e.teardown()
	e.session = nil
	e.selection = noSelection
}

// Shutdown closes the editor and waits until every retired check worker has
// exited or ctx is done.
func (e *Editor) Shutdown(ctx context.Context) error {
	e.Close()
	for _, done := range e.retired {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	e.retired = nil
	return nil
}

// Session returns the open project session, or nil.
func (e *Editor) Session() *project.Session { return e.session }

// Epoch returns the epoch of the open project.
func (e *Editor) Epoch() uint64 { return e.epoch }

// Status returns the last status line.
func (e *Editor) Status() string { return e.status }

// Log returns the process log buffer.
func (e *Editor) Log() *LogBuffer { return e.log }

// LastCheck returns the last applied check result, or nil.
func (e *Editor) LastCheck() *check.Result { return e.lastCheck }

// Diagnostics returns the diagnostics of the open project.
func (e *Editor) Diagnostics() []core.Diagnostic {
	if e.session == nil {
		return nil
	}
	return e.session.Diagnostics()
}

// Dirty reports whether the open scene has unsaved edits.
func (e *Editor) Dirty() bool {
	return e.session != nil && e.session.Dirty()
}

// CreateScene creates the scene file when the project has none.
func (e *Editor) CreateScene() error {
	if e.session == nil {
		e.status = "no project open"
		return fmt.Errorf("%w: no project open", core.ErrScheduleConflict)
	}
	if err := e.session.CreateScene(nil); err != nil {
		if !errors.Is(err, core.ErrScheduleConflict) {
			e.status = fmt.Sprintf("save failed: %v", err)
		}
		return err
	}
	e.clampSelection()
	e.status = "scene saved"
	return nil
}
