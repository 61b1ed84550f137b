// Package runner starts the authored project and its schema exporter.
//
// A run process streams its output as prefixed lines into an unbounded queue
// the editor drains on its tick. The exporter runs synchronously and returns
// its collected output.
package runner

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/leapstack-labs/sceneforge/internal/chanx"
	"github.com/leapstack-labs/sceneforge/pkg/core"
)

// DefaultRunCommand runs the authored project.
var DefaultRunCommand = []string{"cargo", "run"}

// Line prefixes of the run log.
const (
	PrefixOut  = "[out] "
	PrefixErr  = "[err] "
	PrefixExit = "[exit] "
)

// waitDelay bounds how long Wait keeps reading output after the process has
// exited, for descendants that inherited its pipes.
const waitDelay = 2 * time.Second

// Config configures a process.
type Config struct {
	// Command is the argv to run.
	Command []string
	// Env holds extra KEY=VALUE entries appended to the inherited environment.
	Env []string
	// Notify is called after every line is queued (optional).
	Notify func()
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Process is one running instance of the project.
type Process struct {
	cmd    *exec.Cmd
	lines  *chanx.Unbounded[string]
	logger *slog.Logger

	exited   chan struct{}
	exitCode int
	stopOnce sync.Once
}

// Start spawns the run command in root.
func Start(root string, cfg Config) (*Process, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	command := cfg.Command
	if len(command) == 0 {
		command = DefaultRunCommand
	}
	notify := cfg.Notify
	if notify == nil {
		notify = func() {}
	}

	lines := chanx.New[string]()
	stdout := &lineWriter{prefix: PrefixOut, out: lines, notify: notify}
	stderr := &lineWriter{prefix: PrefixErr, out: lines, notify: notify}

	cmd := exec.Command(command[0], command[1:]...)
	cmd.Dir = root
	cmd.Env = append(os.Environ(), cfg.Env...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = waitDelay

	if err := cmd.Start(); err != nil {
		return nil, &core.SpawnError{Command: strings.Join(command, " "), Err: err}
	}

	p := &Process{
		cmd:    cmd,
		lines:  lines,
		logger: logger,
		exited: make(chan struct{}),
	}
	logger.Info("runner started", "root", root, "pid", cmd.Process.Pid)

	go func() {
		defer close(p.exited)
		if err := cmd.Wait(); err != nil {
			logger.Debug("runner wait", "error", err)
		}
		stdout.flush()
		stderr.flush()
		p.exitCode = cmd.ProcessState.ExitCode()
		lines.Send(fmt.Sprintf("%s%d", PrefixExit, p.exitCode))
		lines.Close()
		notify()
		logger.Info("runner exited", "code", p.exitCode)
	}()

	return p, nil
}

// Lines returns the output queue. It is closed after the exit line.
func (p *Process) Lines() *chanx.Unbounded[string] { return p.lines }

// Exited is closed once the process has exited and its output is queued.
func (p *Process) Exited() <-chan struct{} { return p.exited }

// ExitCode returns the exit code, or -1 when the process was killed by a
// signal. Only valid after Exited is closed.
func (p *Process) ExitCode() int { return p.exitCode }

// Stop kills the process and waits for it to exit.
func (p *Process) Stop() {
	p.stopOnce.Do(func() {
		select {
		case <-p.exited:
			return
		default:
		}
		if err := p.cmd.Process.Kill(); err != nil {
			p.logger.Debug("runner kill", "error", err)
		}
	})
	<-p.exited
}

// lineWriter splits written bytes into lines and queues them with a prefix.
// Each instance is written by a single goroutine.
type lineWriter struct {
	prefix string
	out    *chanx.Unbounded[string]
	notify func()
	buf    []byte
}

func (w *lineWriter) Write(b []byte) (int, error) {
	w.buf = append(w.buf, b...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.emit(w.buf[:i])
		w.buf = w.buf[i+1:]
	}
	return len(b), nil
}

func (w *lineWriter) flush() {
	if len(w.buf) > 0 {
		w.emit(w.buf)
		w.buf = nil
	}
}

func (w *lineWriter) emit(line []byte) {
	w.out.Send(w.prefix + strings.TrimRight(string(line), "\r"))
	w.notify()
}
