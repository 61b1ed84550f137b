// Package config provides the project configuration shared by the editor
// session, the CLI commands and the watcher.
// This package is decoupled from CLI concerns: it only knows how to read the
// project.yaml file that sits at the root of every authored project.
package config

import (
	"errors"
	"fmt"
	"strings"
)

// ProjectConfig is the immutable description of an authored project.
type ProjectConfig struct {
	// Name is the human readable project name.
	Name string `koanf:"name"`
	// Entry is the runtime entry point, relative to the project root (e.g. src/main.rs).
	Entry string `koanf:"entry"`
	// RuntimeVersion is the target runtime version, stored as text.
	RuntimeVersion string `koanf:"runtime_version"`
}

// Validate checks that every required field is present.
func (c *ProjectConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, fmt.Errorf("name is required"))
	}
	if strings.TrimSpace(c.Entry) == "" {
		errs = append(errs, fmt.Errorf("entry is required"))
	}
	if strings.TrimSpace(c.RuntimeVersion) == "" {
		errs = append(errs, fmt.Errorf("runtime_version is required"))
	}
	return errors.Join(errs...)
}
