package core

import (
	"errors"
	"fmt"
)

// ErrScheduleConflict is returned when an operation cannot run in the current
// state: starting a run while one is active, or saving without a scene.
var ErrScheduleConflict = errors.New("schedule conflict")

// ConfigError reports a missing or malformed project configuration.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("project config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// SceneParseError reports a scene document that could not be read or decoded.
type SceneParseError struct {
	Path string
	Err  error
}

func (e *SceneParseError) Error() string {
	return fmt.Sprintf("scene %s: %v", e.Path, e.Err)
}

func (e *SceneParseError) Unwrap() error { return e.Err }

// SpawnError reports an external process that could not be started.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn %s: %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// ProcessIOError reports a failed read from a child process pipe. Readers
// treat it as the natural end of the stream.
type ProcessIOError struct {
	Stream string
	Err    error
}

func (e *ProcessIOError) Error() string {
	return fmt.Sprintf("reading %s: %v", e.Stream, e.Err)
}

func (e *ProcessIOError) Unwrap() error { return e.Err }
