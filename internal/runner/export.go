package runner

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/leapstack-labs/sceneforge/pkg/core"
)

// DefaultExportCommand regenerates the script schema from project sources.
var DefaultExportCommand = []string{"cargo", "run", "--bin", "export_schema", "--features", "bandana_export"}

// Exporter log prefixes.
const (
	PrefixExportOut = "[export/stdout] "
	PrefixExportErr = "[export/stderr] "
)

// ExportResult is the outcome of one exporter run.
type ExportResult struct {
	Stdout   []string
	Stderr   []string
	ExitCode int
	// Err is set when the exporter could not be run at all.
	Err error
}

// OK reports whether the exporter ran and exited with status 0.
func (r ExportResult) OK() bool { return r.Err == nil && r.ExitCode == 0 }

// Status returns the one-line summary shown to the user.
func (r ExportResult) Status() string {
	switch {
	case r.Err != nil:
		return fmt.Sprintf("Failed to run exporter: %v", r.Err)
	case r.ExitCode != 0:
		return fmt.Sprintf("Export failed (exit %d). See console.", r.ExitCode)
	default:
		return "Exported script schema."
	}
}

// LogLines returns the collected output with exporter prefixes, stdout first.
func (r ExportResult) LogLines() []string {
	out := make([]string, 0, len(r.Stdout)+len(r.Stderr))
	for _, l := range r.Stdout {
		out = append(out, PrefixExportOut+l)
	}
	for _, l := range r.Stderr {
		out = append(out, PrefixExportErr+l)
	}
	return out
}

// Export runs the exporter in root and blocks until it exits.
func Export(ctx context.Context, root string, cfg Config) ExportResult {
	command := cfg.Command
	if len(command) == 0 {
		command = DefaultExportCommand
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	cmd.Dir = root
	cmd.Env = append(os.Environ(), cfg.Env...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := ExportResult{Stdout: splitLines(stdout.Bytes()), Stderr: splitLines(stderr.Bytes())}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		res.Err = &core.SpawnError{Command: strings.Join(command, " "), Err: err}
		res.ExitCode = -1
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("export finished", "root", root, "exit_code", res.ExitCode, "error", res.Err)
	}
	return res
}

func splitLines(b []byte) []string {
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(b))
	sc.Buffer(make([]byte, 0, 64*1024), len(b)+1)
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	return lines
}
