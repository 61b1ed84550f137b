// Package check runs the project's verification command in the background and
// turns its line-delimited JSON output into diagnostics.
//
// A Worker owns one goroutine and an unbounded FIFO job queue: jobs run one at
// a time, in submission order, and every job produces exactly one Result.
package check

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/leapstack-labs/sceneforge/internal/chanx"
	"github.com/leapstack-labs/sceneforge/pkg/core"
)

// DefaultCommand is the verification command run in the project root.
var DefaultCommand = []string{"cargo", "check", "--message-format=json"}

// Job asks for one verification run.
type Job struct {
	Root  string
	Epoch uint64
}

// Result is the outcome of one Job. A result without diagnostics is a success.
type Result struct {
	Root        string
	Epoch       uint64
	Started     time.Time
	Duration    time.Duration
	Diagnostics []core.Diagnostic
}

// OK reports whether the run produced no diagnostics.
func (r Result) OK() bool { return len(r.Diagnostics) == 0 }

// Config configures a Worker.
type Config struct {
	// Command is the argv to run (DefaultCommand when empty).
	Command []string
	// Env holds extra KEY=VALUE entries appended to the inherited environment.
	Env []string
	// Results receives every result. The worker creates its own queue when nil.
	Results *chanx.Unbounded[Result]
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Worker serializes verification runs.
type Worker struct {
	command []string
	env     []string
	jobs    *chanx.Unbounded[Job]
	results *chanx.Unbounded[Result]
	logger  *slog.Logger
	done    chan struct{}
}

// Start launches the worker goroutine.
func Start(cfg Config) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	command := cfg.Command
	if len(command) == 0 {
		command = DefaultCommand
	}
	results := cfg.Results
	if results == nil {
		results = chanx.New[Result]()
	}

	w := &Worker{
		command: command,
		env:     cfg.Env,
		jobs:    chanx.New[Job](),
		results: results,
		logger:  logger,
		done:    make(chan struct{}),
	}
	go w.loop()
	return w
}

// Submit enqueues a job without blocking. Jobs are not de-duplicated.
// Returns false once the worker is closed.
func (w *Worker) Submit(job Job) bool {
	return w.jobs.Send(job)
}

// Results returns the queue results are delivered to.
func (w *Worker) Results() *chanx.Unbounded[Result] { return w.results }

// Close stops accepting jobs and drops queued jobs that have not started.
// A job already running finishes and delivers its result; Done is closed after that.
func (w *Worker) Close() {
	w.jobs.Close()
	if dropped := w.jobs.Drain(); len(dropped) > 0 {
		w.logger.Debug("dropped queued checks", "count", len(dropped))
	}
}

// Done is closed when the worker goroutine has exited.
func (w *Worker) Done() <-chan struct{} { return w.done }

func (w *Worker) loop() {
	defer close(w.done)
	for {
		job, ok := w.jobs.Recv()
		if !ok {
			return
		}
		w.results.Send(w.run(job))
	}
}

func (w *Worker) run(job Job) Result {
	started := time.Now()
	res := Result{Root: job.Root, Epoch: job.Epoch, Started: started}

	cmd := exec.Command(w.command[0], w.command[1:]...)
	cmd.Dir = job.Root
	cmd.Env = append(os.Environ(), w.env...)

	stdout, err := cmd.StdoutPipe()
	if err == nil {
		err = cmd.Start()
	}
	if err != nil {
		spawnErr := &core.SpawnError{Command: strings.Join(w.command, " "), Err: err}
		w.logger.Warn("check spawn failed", "root", job.Root, "error", spawnErr)
		res.Diagnostics = []core.Diagnostic{{File: job.Root, Message: spawnErr.Error()}}
		return res
	}

	w.logger.Debug("check started", "root", job.Root, "epoch", job.Epoch)
	res.Diagnostics = collect(stdout, w.logger)

	// The exit status is not inspected: diagnostics alone decide the outcome.
	if err := cmd.Wait(); err != nil {
		w.logger.Debug("check exited", "error", err)
	}
	res.Duration = time.Since(started)

	w.logger.Debug("check finished", "root", job.Root, "epoch", job.Epoch,
		"duration_ms", res.Duration.Milliseconds(), "diagnostics", len(res.Diagnostics))
	return res
}

// collect reads r line by line until EOF. A read error ends the stream.
func collect(r io.Reader, logger *slog.Logger) []core.Diagnostic {
	var diags []core.Diagnostic
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadBytes('\n')
		if line = bytes.TrimSpace(line); len(line) > 0 {
			if d, ok := ParseLine(line); ok {
				diags = append(diags, d)
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Debug("check output ended", "error", &core.ProcessIOError{Stream: "stdout", Err: err})
			}
			return diags
		}
	}
}
