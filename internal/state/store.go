// Package state persists check history and recently opened projects in a
// SQLite database under the project's state directory.
package state

import (
	"time"

	"github.com/leapstack-labs/sceneforge/pkg/core"
)

// CheckStatus is the outcome of a recorded check.
type CheckStatus string

// Check outcomes.
const (
	CheckStatusOK  CheckStatus = "ok"
	CheckStatusErr CheckStatus = "err"
)

// CheckRun is one recorded verification run.
type CheckRun struct {
	ID          string
	ProjectRoot string
	Epoch       uint64
	StartedAt   time.Time
	Duration    time.Duration
	Status      CheckStatus
	// Diagnostics is only populated by GetCheckRun.
	Diagnostics []core.Diagnostic
	// DiagnosticCount is the number of diagnostics recorded for the run.
	DiagnosticCount int
}

// RecentProject is a project the editor opened.
type RecentProject struct {
	Root     string
	Name     string
	OpenedAt time.Time
}
